package server

import (
	"testing"
	"time"

	"github.com/kreeztoph/damaged-trays/src/models"
	"github.com/kreeztoph/damaged-trays/src/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// -----------------------------------------------------------------------------
// Helpers
// -----------------------------------------------------------------------------

func newTestClient(s *DashboardServer, buffer int) *Client {
	return &Client{
		hub:  s,
		send: make(chan interface{}, buffer),
	}
}

func receiveState(t *testing.T, c *Client) *models.MDashboardState {
	t.Helper()
	select {
	case msg := <-c.send:
		state, ok := msg.(*models.MDashboardState)
		require.True(t, ok, "expected a dashboard state, got %T", msg)
		return state
	case <-time.After(time.Second):
		t.Fatal("no message received")
		return nil
	}
}

func assertNoMessage(t *testing.T, c *Client) {
	t.Helper()
	select {
	case msg := <-c.send:
		t.Fatalf("unexpected message: %#v", msg)
	case <-time.After(50 * time.Millisecond):
	}
}

// -----------------------------------------------------------------------------
// State typing
// -----------------------------------------------------------------------------

func TestUpdateAllDataKeepsCallerType(t *testing.T) {
	s := testServer(nil)
	now := time.Now().UTC()
	snap := &models.MSnapshot{FetchedAt: now, TableErrors: map[string]string{}, SkippedRows: map[string]int{}}

	state := s.Analyzer.BuildDashboard(snap, models.MRangeSelection{Window: utils.RangeAll}, now, models.MRefreshMetrics{})
	state.Type = "INITIAL"
	s.UpdateAllData(snap, state)

	s.stateMutex.RLock()
	stored := s.latestState.Type
	s.stateMutex.RUnlock()
	assert.Equal(t, "INITIAL", stored, "the startup state keeps its type")
}

// -----------------------------------------------------------------------------

func TestUpdateAllDataDefaultsToUpdate(t *testing.T) {
	s := testServer(nil)
	now := time.Now().UTC()
	snap := &models.MSnapshot{FetchedAt: now, TableErrors: map[string]string{}, SkippedRows: map[string]int{}}

	state := s.Analyzer.BuildDashboard(snap, models.MRangeSelection{Window: utils.RangeAll}, now, models.MRefreshMetrics{})
	state.Type = ""
	s.UpdateAllData(snap, state)

	s.stateMutex.RLock()
	stored := s.latestState.Type
	s.stateMutex.RUnlock()
	assert.Equal(t, "UPDATE", stored)
}

// -----------------------------------------------------------------------------
// Hub loop
// -----------------------------------------------------------------------------

func TestHubSendsStateOnConnect(t *testing.T) {
	s := testServer(nil)
	seedSnapshot(s, time.Now().UTC())
	go s.handleWebsockets()

	client := newTestClient(s, 4)
	s.register <- client

	state := receiveState(t, client)
	assert.Len(t, state.Trays, 2)
}

// -----------------------------------------------------------------------------

func TestHubBroadcastReachesAllClients(t *testing.T) {
	s := testServer(nil)
	now := time.Now().UTC()
	seedSnapshot(s, now)
	go s.handleWebsockets()

	a := newTestClient(s, 4)
	b := newTestClient(s, 4)
	s.register <- a
	s.register <- b
	receiveState(t, a)
	receiveState(t, b)

	snap := &models.MSnapshot{
		FetchedAt:   now,
		Trays:       []models.MTrayRecord{{TrayID: "T9", Count: 7, LastSeen: now}},
		TableErrors: map[string]string{},
		SkippedRows: map[string]int{},
	}
	fresh := s.Analyzer.BuildDashboard(snap, models.MRangeSelection{Window: utils.RangeAll}, now, models.MRefreshMetrics{})
	s.Broadcast(fresh)

	for _, client := range []*Client{a, b} {
		state := receiveState(t, client)
		require.Len(t, state.Trays, 1)
		assert.Equal(t, "T9", state.Trays[0].TrayID)
	}
}

// -----------------------------------------------------------------------------

func TestHubEvictsSlowClient(t *testing.T) {
	s := testServer(nil)
	now := time.Now().UTC()
	seedSnapshot(s, now)
	go s.handleWebsockets()

	// Buffer of one: the connect push fills it, the broadcast cannot land.
	client := newTestClient(s, 1)
	s.register <- client

	fresh := s.Analyzer.BuildDashboard(s.latestSnap, models.MRangeSelection{Window: utils.RangeAll}, now, models.MRefreshMetrics{})
	s.Broadcast(fresh)

	receiveState(t, client)

	select {
	case _, open := <-client.send:
		assert.False(t, open, "evicted client's channel must be closed")
	case <-time.After(time.Second):
		t.Fatal("channel not closed after eviction")
	}
}

// -----------------------------------------------------------------------------
// Subscribe commands
// -----------------------------------------------------------------------------

func TestSubscribeReturnsFilteredState(t *testing.T) {
	s := testServer(nil)
	seedSnapshot(s, time.Now().UTC())

	client := newTestClient(s, 4)
	s.HandleClientMessage(client, []byte(`{"command":"subscribe","range":"1d"}`))

	state := receiveState(t, client)
	assert.Equal(t, "INITIAL", state.Type)
	assert.Equal(t, utils.Range1Day, state.Range.Window)
	require.Len(t, state.Trays, 1)
	assert.Equal(t, "T1", state.Trays[0].TrayID)

	// The selection is scoped to the reply; the stored state is untouched.
	s.stateMutex.RLock()
	assert.Len(t, s.latestState.Trays, 2)
	s.stateMutex.RUnlock()
}

// -----------------------------------------------------------------------------

func TestSubscribeDefaultRangeIsAll(t *testing.T) {
	s := testServer(nil)
	seedSnapshot(s, time.Now().UTC())

	client := newTestClient(s, 4)
	s.HandleClientMessage(client, []byte(`{"command":"subscribe"}`))

	state := receiveState(t, client)
	assert.Equal(t, utils.RangeAll, state.Range.Window)
	assert.Len(t, state.Trays, 2)
}

// -----------------------------------------------------------------------------

func TestSubscribeUnknownRangeIgnored(t *testing.T) {
	s := testServer(nil)
	seedSnapshot(s, time.Now().UTC())

	client := newTestClient(s, 4)
	s.HandleClientMessage(client, []byte(`{"command":"subscribe","range":"6mo"}`))

	assertNoMessage(t, client)
}

// -----------------------------------------------------------------------------

func TestNonSubscribeCommandIgnored(t *testing.T) {
	s := testServer(nil)
	seedSnapshot(s, time.Now().UTC())

	client := newTestClient(s, 4)
	s.HandleClientMessage(client, []byte(`{"command":"ping"}`))

	assertNoMessage(t, client)
}
