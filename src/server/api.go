package server

import (
	"fmt"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kreeztoph/damaged-trays/src/analysis"
	"github.com/kreeztoph/damaged-trays/src/interfaces"
	"github.com/kreeztoph/damaged-trays/src/logger"
	"github.com/kreeztoph/damaged-trays/src/models"
	"github.com/kreeztoph/damaged-trays/src/utils"

	"github.com/gin-gonic/gin"
)

// -----------------------------------------------------------------------------
// DashboardServer
// -----------------------------------------------------------------------------

type DashboardServer struct {
	Config    *models.MConfig
	Logger    *logger.Logger
	Analyzer  *analysis.AnalysisFacade
	Refresher interfaces.IRefresher
	engine    *gin.Engine

	// WebSocket clients. The map belongs to the hub goroutine; connCount
	// mirrors its size for the health endpoint.
	clients    map[*Client]struct{}
	connCount  atomic.Int64
	broadcast  chan *models.MDashboardState
	register   chan *Client
	unregister chan *Client

	// Local cache: last snapshot plus the state prebuilt from it
	latestState *models.MDashboardState
	latestSnap  *models.MSnapshot
	stateMutex  sync.RWMutex
}

// -----------------------------------------------------------------------------
// Constructor
// -----------------------------------------------------------------------------

func NewDashboardServer(cfg *models.MConfig, log *logger.Logger, analyzer *analysis.AnalysisFacade, refresher interfaces.IRefresher) *DashboardServer {
	// Set Gin mode
	if cfg.LogLevel != "DEBUG" {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &DashboardServer{
		Config:    cfg,
		Logger:    log,
		Analyzer:  analyzer,
		Refresher: refresher,
		engine:    gin.Default(),
		clients:   make(map[*Client]struct{}),
		// Buffered channel to prevent lock/blocking on refresh bursts
		broadcast:  make(chan *models.MDashboardState, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		latestState: &models.MDashboardState{
			Type:          "INITIAL",
			TopTrays:      []models.MTrayRecord{},
			Trays:         []models.MTrayRecord{},
			TraySeries:    []models.MSeriesPoint{},
			PLCRows:       []models.MPLCRecord{},
			DailySeries:   []models.MDailyRecord{},
			CounterSeries: []models.MCounterRecord{},
			Summary:       models.MTraySummary{LastScan: utils.NoData},
			Range:         models.MRangeSelection{Window: utils.RangeAll},
			Errors:        []string{},
		},
	}

	// Add CORS Middleware
	s.engine.Use(func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if strings.HasPrefix(origin, "http://127.0.0.1:") {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		}
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	// setup web routes
	s.setupRoutes()
	return s
}

// -----------------------------------------------------------------------------
// Route Setup
// -----------------------------------------------------------------------------

func (s *DashboardServer) setupRoutes() {
	// REST API endpoints
	s.engine.GET("/api/dashboard", s.getDashboard)
	s.engine.GET("/api/config", s.getConfig)
	s.engine.GET("/api/health", s.getHealth)
	s.engine.POST("/api/refresh", s.postRefresh)

	// WebSocket endpoint
	s.engine.GET("/ws", s.handleWebSocket)
}

// -----------------------------------------------------------------------------
// Server Lifecycle
// -----------------------------------------------------------------------------

func (s *DashboardServer) Start() error {
	addr := fmt.Sprintf("%s:%d", s.Config.Host, s.Config.Port)
	s.Logger.Info("Starting server on %s", addr)

	go s.handleWebsockets()

	return s.engine.Run(addr)
}

// -----------------------------------------------------------------------------

func (s *DashboardServer) Stop() error {
	// Clean shutdown
	close(s.broadcast)
	close(s.register)
	close(s.unregister)
	return nil
}

// -----------------------------------------------------------------------------
// Route Handlers
// -----------------------------------------------------------------------------

// getDashboard serves the current state. A range selection in the query
// is applied per request against the stored snapshot; nothing about the
// selection outlives the request.
func (s *DashboardServer) getDashboard(c *gin.Context) {
	sel, err := parseRangeSelection(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	s.stateMutex.RLock()
	snap := s.latestSnap
	state := s.latestState
	s.stateMutex.RUnlock()

	// Default window with no snapshot yet: serve the empty initial state.
	if snap == nil {
		c.JSON(http.StatusOK, state)
		return
	}

	if sel.Window == state.Range.Window && sel.Window != utils.RangeCustom {
		c.JSON(http.StatusOK, state)
		return
	}

	filtered := s.Analyzer.BuildDashboard(snap, sel, time.Now().UTC(), state.Metrics)
	c.JSON(http.StatusOK, filtered)
}

// -----------------------------------------------------------------------------

func (s *DashboardServer) getConfig(c *gin.Context) {
	c.JSON(200, gin.H{
		"ranges":                   utils.RangeWindows,
		"refresh_interval_seconds": s.Config.Refresh.IntervalSeconds,
		"top_trays":                s.Config.Display.TopTrays,
	})
}

// -----------------------------------------------------------------------------

func (s *DashboardServer) getHealth(c *gin.Context) {
	s.stateMutex.RLock()
	timestamp := s.latestState.Timestamp
	s.stateMutex.RUnlock()

	c.JSON(200, gin.H{
		"status":        "ok",
		"connections":   s.connCount.Load(),
		"latest_update": timestamp,
	})
}

// -----------------------------------------------------------------------------

// postRefresh triggers an immediate out-of-cycle fetch and waits for it,
// so the caller learns whether the refresh actually happened.
func (s *DashboardServer) postRefresh(c *gin.Context) {
	if s.Refresher == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "refresh not available"})
		return
	}

	if err := s.Refresher.TriggerRefresh(); err != nil {
		s.Logger.Error("Manual refresh failed: %v", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	c.JSON(200, gin.H{"status": "refreshed"})
}

// -----------------------------------------------------------------------------
// Helpers
// -----------------------------------------------------------------------------

// parseRangeSelection reads the range query parameters. Missing range
// means "all"; custom requires from/to as unix seconds or RFC3339.
func parseRangeSelection(c *gin.Context) (models.MRangeSelection, error) {
	window := c.DefaultQuery("range", utils.RangeAll)
	if !utils.IsValidRange(window) {
		return models.MRangeSelection{}, fmt.Errorf("unknown range %q", window)
	}

	sel := models.MRangeSelection{Window: window}
	if window != utils.RangeCustom {
		return sel, nil
	}

	from, err := parseInstant(c.Query("from"))
	if err != nil {
		return models.MRangeSelection{}, fmt.Errorf("bad 'from': %v", err)
	}
	to, err := parseInstant(c.Query("to"))
	if err != nil {
		return models.MRangeSelection{}, fmt.Errorf("bad 'to': %v", err)
	}
	if from == 0 && to == 0 {
		return models.MRangeSelection{}, fmt.Errorf("custom range requires 'from' and/or 'to'")
	}
	if from > 0 && to > 0 && from > to {
		return models.MRangeSelection{}, fmt.Errorf("'from' is after 'to'")
	}

	sel.From = from
	sel.To = to
	return sel, nil
}

// -----------------------------------------------------------------------------

func parseInstant(raw string) (int64, error) {
	if raw == "" {
		return 0, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.Unix(), nil
	}
	var unix int64
	if _, err := fmt.Sscanf(raw, "%d", &unix); err != nil || unix <= 0 {
		return 0, fmt.Errorf("expected unix seconds or RFC3339, got %q", raw)
	}
	return unix, nil
}
