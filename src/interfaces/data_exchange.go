package interfaces

import "github.com/kreeztoph/damaged-trays/src/models"

// -----------------------------------------------------------------------------
// IDataExchanger defining the interface for sharing dashboard state with
// external systems (HTTP API + websocket push).
// -----------------------------------------------------------------------------

type IDataExchanger interface {

	// -----------------------------------------------------------------------------
	// UpdateAllData replaces the served snapshot and its prebuilt state.
	// The snapshot is kept so per-request range selections can be rebuilt
	// without waiting for the next refresh.
	UpdateAllData(snap *models.MSnapshot, state *models.MDashboardState)

	// -----------------------------------------------------------------------------
	// Broadcast pushes a freshly built state to all connected clients.
	Broadcast(state *models.MDashboardState)

	// -----------------------------------------------------------------------------
	// Start the server
	Start() error

	// -----------------------------------------------------------------------------
	// Stop the server gracefully
	Stop() error
}
