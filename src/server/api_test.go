package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/kreeztoph/damaged-trays/src/analysis"
	"github.com/kreeztoph/damaged-trays/src/logger"
	"github.com/kreeztoph/damaged-trays/src/models"
	"github.com/kreeztoph/damaged-trays/src/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// -----------------------------------------------------------------------------
// Helpers
// -----------------------------------------------------------------------------

type stubRefresher struct {
	calls int
	err   error
}

func (r *stubRefresher) TriggerRefresh() error {
	r.calls++
	return r.err
}

// -----------------------------------------------------------------------------

func testConfig() *models.MConfig {
	return &models.MConfig{
		Name:     "test",
		Host:     "127.0.0.1",
		Port:     8080,
		LogLevel: "ERROR",
		Sheets: models.MSheetsConfig{
			Worksheets: models.MWorksheetNames{
				PLC:     "plc_data",
				Memory:  "memory_data",
				Daily:   "daily_data",
				Counter: "counter_data",
			},
		},
		Refresh: models.MRefreshConfig{IntervalSeconds: 300},
		Display: models.MDisplayConfig{UTCOffsetHours: 1, TopTrays: 5},
	}
}

func testServer(refresher *stubRefresher) *DashboardServer {
	cfg := testConfig()
	log := logger.NewLogger("ERROR", "test")
	analyzer := analysis.NewAnalysisFacade(cfg, log)
	if refresher == nil {
		return NewDashboardServer(cfg, log, analyzer, nil)
	}
	return NewDashboardServer(cfg, log, analyzer, refresher)
}

func doRequest(s *DashboardServer, method, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, nil)
	s.engine.ServeHTTP(w, req)
	return w
}

func seedSnapshot(s *DashboardServer, now time.Time) {
	snap := &models.MSnapshot{
		FetchedAt: now,
		Trays: []models.MTrayRecord{
			{TrayID: "T1", Count: 5, LastSeen: now.Add(-time.Hour)},
			{TrayID: "T2", Count: 2, LastSeen: now.Add(-48 * time.Hour)},
		},
		TableErrors: map[string]string{},
		SkippedRows: map[string]int{},
	}
	state := s.Analyzer.BuildDashboard(snap, models.MRangeSelection{Window: utils.RangeAll}, now, models.MRefreshMetrics{})
	s.UpdateAllData(snap, state)
}

// -----------------------------------------------------------------------------
// /api/health
// -----------------------------------------------------------------------------

func TestHealthEndpoint(t *testing.T) {
	s := testServer(nil)

	w := doRequest(s, http.MethodGet, "/api/health")

	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
}

// -----------------------------------------------------------------------------
// /api/config
// -----------------------------------------------------------------------------

func TestConfigEndpoint(t *testing.T) {
	s := testServer(nil)

	w := doRequest(s, http.MethodGet, "/api/config")

	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Ranges          []string `json:"ranges"`
		RefreshInterval int      `json:"refresh_interval_seconds"`
		TopTrays        int      `json:"top_trays"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, utils.RangeWindows, body.Ranges)
	assert.Equal(t, 300, body.RefreshInterval)
	assert.Equal(t, 5, body.TopTrays)
}

// -----------------------------------------------------------------------------
// /api/dashboard
// -----------------------------------------------------------------------------

func TestDashboardBeforeFirstFetch(t *testing.T) {
	s := testServer(nil)

	w := doRequest(s, http.MethodGet, "/api/dashboard")

	require.Equal(t, http.StatusOK, w.Code)

	var state models.MDashboardState
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &state))
	assert.Equal(t, "INITIAL", state.Type)
	assert.Equal(t, utils.NoData, state.Summary.LastScan)
	assert.Empty(t, state.Trays)
}

// -----------------------------------------------------------------------------

func TestDashboardDefaultRange(t *testing.T) {
	s := testServer(nil)
	seedSnapshot(s, time.Now().UTC())

	w := doRequest(s, http.MethodGet, "/api/dashboard")

	require.Equal(t, http.StatusOK, w.Code)

	var state models.MDashboardState
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &state))
	assert.Len(t, state.Trays, 2)
	assert.Equal(t, 2, state.Summary.UniqueTrays)
}

// -----------------------------------------------------------------------------

func TestDashboardRangeFilterPerRequest(t *testing.T) {
	s := testServer(nil)
	seedSnapshot(s, time.Now().UTC())

	w := doRequest(s, http.MethodGet, "/api/dashboard?range=1d")

	require.Equal(t, http.StatusOK, w.Code)

	var state models.MDashboardState
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &state))
	require.Len(t, state.Trays, 1)
	assert.Equal(t, "T1", state.Trays[0].TrayID)
	assert.Equal(t, utils.Range1Day, state.Range.Window)

	// The stored full-range state is untouched by the filtered request
	w = doRequest(s, http.MethodGet, "/api/dashboard")
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &state))
	assert.Len(t, state.Trays, 2)
}

// -----------------------------------------------------------------------------

func TestDashboardCustomRange(t *testing.T) {
	s := testServer(nil)
	now := time.Now().UTC()
	seedSnapshot(s, now)

	from := now.Add(-72 * time.Hour).Unix()
	to := now.Add(-24 * time.Hour).Unix()
	w := doRequest(s, http.MethodGet, fmt.Sprintf("/api/dashboard?range=custom&from=%d&to=%d", from, to))

	require.Equal(t, http.StatusOK, w.Code)

	var state models.MDashboardState
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &state))
	require.Len(t, state.Trays, 1)
	assert.Equal(t, "T2", state.Trays[0].TrayID)
}

// -----------------------------------------------------------------------------

func TestDashboardBadRangeRequests(t *testing.T) {
	s := testServer(nil)
	seedSnapshot(s, time.Now().UTC())

	assert.Equal(t, http.StatusBadRequest, doRequest(s, http.MethodGet, "/api/dashboard?range=6mo").Code)
	assert.Equal(t, http.StatusBadRequest, doRequest(s, http.MethodGet, "/api/dashboard?range=custom").Code)
	assert.Equal(t, http.StatusBadRequest, doRequest(s, http.MethodGet, "/api/dashboard?range=custom&from=oops").Code)
	assert.Equal(t, http.StatusBadRequest, doRequest(s, http.MethodGet, "/api/dashboard?range=custom&from=200&to=100").Code)
}

// -----------------------------------------------------------------------------
// /api/refresh
// -----------------------------------------------------------------------------

func TestRefreshEndpoint(t *testing.T) {
	refresher := &stubRefresher{}
	s := testServer(refresher)

	w := doRequest(s, http.MethodPost, "/api/refresh")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, refresher.calls)
}

// -----------------------------------------------------------------------------

func TestRefreshEndpointPropagatesFailure(t *testing.T) {
	refresher := &stubRefresher{err: fmt.Errorf("sheet unreachable")}
	s := testServer(refresher)

	w := doRequest(s, http.MethodPost, "/api/refresh")

	require.Equal(t, http.StatusBadGateway, w.Code)
	assert.Contains(t, w.Body.String(), "sheet unreachable")
}

// -----------------------------------------------------------------------------

func TestRefreshEndpointWithoutRefresher(t *testing.T) {
	s := testServer(nil)

	w := doRequest(s, http.MethodPost, "/api/refresh")

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
