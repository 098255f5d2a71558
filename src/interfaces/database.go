package interfaces

import (
	"time"

	"github.com/kreeztoph/damaged-trays/src/models"
)

// -----------------------------------------------------------------------------
// IDatabase defines the contract for the local archive. The dashboard is
// served from memory; the archive exists so chart history survives restarts
// and can be inspected offline.
// -----------------------------------------------------------------------------

type IDatabase interface {

	// -----------------------------------------------------------------------------

	// Initialize sets up the database schema and tables.
	Initialize() error

	// -----------------------------------------------------------------------------

	// SavePLCEvents appends the raw PLC rows of one refresh.
	SavePLCEvents(fetchedAt time.Time, rows []models.MPLCRecord) error

	// -----------------------------------------------------------------------------

	// SaveTraySnapshots appends the tray table of one refresh.
	SaveTraySnapshots(fetchedAt time.Time, trays []models.MTrayRecord) error

	// -----------------------------------------------------------------------------

	// SaveDailyCounts upserts daily aggregate rows keyed by date.
	SaveDailyCounts(daily []models.MDailyRecord) error

	// -----------------------------------------------------------------------------

	// SaveCounterRecords upserts cumulative counter rows keyed by date.
	SaveCounterRecords(counters []models.MCounterRecord) error

	// -----------------------------------------------------------------------------

	// CleanupOldData removes archive rows older than the retention policy.
	CleanupOldData() error

	// -----------------------------------------------------------------------------

	// Close the database connection
	Close() error
}
