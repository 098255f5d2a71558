package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/kreeztoph/damaged-trays/src/models"
	"github.com/kreeztoph/damaged-trays/src/utils"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// -----------------------------------------------------------------------------
// Hub Pattern Implementation
// -----------------------------------------------------------------------------

// handleWebsockets is the main Hub loop
func (s *DashboardServer) handleWebsockets() {
	for {
		select {
		case client := <-s.register:
			s.clients[client] = struct{}{}
			s.connCount.Store(int64(len(s.clients)))
			// Send initial state on connect
			s.stateMutex.RLock()
			if s.latestState != nil {
				client.send <- s.latestState
			}
			s.stateMutex.RUnlock()

		case client := <-s.unregister:
			if _, ok := s.clients[client]; ok {
				delete(s.clients, client)
				close(client.send)
				s.connCount.Store(int64(len(s.clients)))
			}

		case message := <-s.broadcast:
			// Broadcast to all clients
			for client := range s.clients {
				select {
				case client.send <- message:
					// Message sent successfully
				default:
					// Client too slow, disconnect to prevent Hub blocking
					delete(s.clients, client)
					close(client.send)
					s.connCount.Store(int64(len(s.clients)))
				}
			}
		}
	}
}

// -----------------------------------------------------------------------------
// Data Exchange Interface Implementation
// -----------------------------------------------------------------------------

// UpdateAllData replaces the served snapshot and its prebuilt state. The
// snapshot is retained so range-filtered views can be rebuilt per request.
// Callers own the state type; an unset type defaults to "UPDATE".
func (s *DashboardServer) UpdateAllData(snap *models.MSnapshot, state *models.MDashboardState) {
	s.stateMutex.Lock()
	defer s.stateMutex.Unlock()

	s.latestSnap = snap
	if state.Type == "" {
		state.Type = "UPDATE"
	}
	s.latestState = state
}

// -----------------------------------------------------------------------------

// Broadcast sends a state to the broadcast channel (Queue)
func (s *DashboardServer) Broadcast(state *models.MDashboardState) {
	if state == nil {
		return
	}

	// Non-blocking send; with a 256 buffer a full queue means every
	// consumer is stalled and dropping one update is the lesser evil.
	select {
	case s.broadcast <- state:
	default:
		s.Logger.Warning("Broadcast queue full, dropping update")
	}
}

// -----------------------------------------------------------------------------
// WebSocket Handlers
// -----------------------------------------------------------------------------

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// -----------------------------------------------------------------------------

func (s *DashboardServer) handleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.Logger.Info("Failed to upgrade websocket: %v", err)
		return
	}

	client := &Client{
		hub:  s,
		conn: conn,
		// Buffered channel to prevent blocking the Hub loop
		send: make(chan interface{}, 256),
	}

	s.register <- client

	// Start goroutines for reading/writing
	go client.writePump()
	go client.readPump()
}

// -----------------------------------------------------------------------------
// Client Message Handling
// -----------------------------------------------------------------------------

// HandleClientMessage serves subscribe commands. A client asking for a
// range gets a state rebuilt from the stored snapshot for that window;
// the selection never changes what other clients receive.
func (s *DashboardServer) HandleClientMessage(client *Client, message []byte) {
	var cmd models.MSubscribeCommand
	if err := json.Unmarshal(message, &cmd); err != nil {
		s.Logger.Info("Failed to parse client command: %v, disconnecting client", err)
		client.conn.Close()
		return
	}

	if cmd.Command != "subscribe" {
		return
	}

	window := cmd.Range
	if window == "" {
		window = utils.RangeAll
	}
	if !utils.IsValidRange(window) {
		s.Logger.Info("Client requested unknown range %q, ignoring", window)
		return
	}

	sel := models.MRangeSelection{Window: window, From: cmd.From, To: cmd.To}

	s.stateMutex.RLock()
	snap := s.latestSnap
	metrics := s.latestState.Metrics
	s.stateMutex.RUnlock()

	var response *models.MDashboardState
	if snap == nil {
		s.stateMutex.RLock()
		response = s.latestState
		s.stateMutex.RUnlock()
	} else {
		response = s.Analyzer.BuildDashboard(snap, sel, time.Now().UTC(), metrics)
		response.Type = "INITIAL"
	}

	// Use select to avoid blocking if client's send buffer is full
	select {
	case client.send <- response:
	default:
	}
}
