package storage

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/kreeztoph/damaged-trays/src/logger"
	"github.com/kreeztoph/damaged-trays/src/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// -----------------------------------------------------------------------------

func testSQLiteDB(t *testing.T) *SQLiteDB {
	t.Helper()

	cfg := &models.MConfig{
		LogLevel: "ERROR",
		Storage: models.MStorageConfig{
			DBType:        "sqlite",
			DBPath:        filepath.Join(t.TempDir(), "archive.db"),
			RetentionDays: 31,
		},
	}

	db, err := NewSQLiteDB(cfg, logger.NewLogger("ERROR", "test"))
	require.NoError(t, err)
	require.NoError(t, db.Initialize())
	t.Cleanup(func() { db.Close() })
	return db
}

func countRows(t *testing.T, db *SQLiteDB, table string) int {
	t.Helper()
	var n int
	require.NoError(t, db.DB.QueryRow("SELECT COUNT(*) FROM "+table).Scan(&n))
	return n
}

// -----------------------------------------------------------------------------

func TestSQLiteSavePLCEvents(t *testing.T) {
	db := testSQLiteDB(t)
	now := time.Now().UTC()

	rows := []models.MPLCRecord{
		{Timestamp: now.Add(-time.Hour), Fields: map[string]string{"Station": "S1"}},
		{Timestamp: now, Fields: map[string]string{"Station": "S2"}},
	}

	require.NoError(t, db.SavePLCEvents(now, rows))
	assert.Equal(t, 2, countRows(t, db, "plc_events"))

	// Appends, never replaces
	require.NoError(t, db.SavePLCEvents(now.Add(time.Minute), rows))
	assert.Equal(t, 4, countRows(t, db, "plc_events"))
}

// -----------------------------------------------------------------------------

func TestSQLiteTraySnapshotUpsert(t *testing.T) {
	db := testSQLiteDB(t)
	now := time.Now().UTC()

	trays := []models.MTrayRecord{
		{TrayID: "T1", Count: 2, LastSeen: now},
		{TrayID: "T2", Count: 1, LastSeen: now},
	}

	require.NoError(t, db.SaveTraySnapshots(now, trays))
	// Same fetch instant writes again without duplicating
	trays[0].Count = 3
	require.NoError(t, db.SaveTraySnapshots(now, trays))

	assert.Equal(t, 2, countRows(t, db, "tray_snapshots"))

	var count int
	require.NoError(t, db.DB.QueryRow(
		"SELECT count FROM tray_snapshots WHERE tray_id = ?", "T1").Scan(&count))
	assert.Equal(t, 3, count)
}

// -----------------------------------------------------------------------------

func TestSQLiteDailyCountsUpsertByDate(t *testing.T) {
	db := testSQLiteDB(t)
	day := time.Date(2025, 8, 3, 0, 0, 0, 0, time.UTC)

	require.NoError(t, db.SaveDailyCounts([]models.MDailyRecord{{Date: day, TriggerCount: 5}}))
	require.NoError(t, db.SaveDailyCounts([]models.MDailyRecord{{Date: day, TriggerCount: 9}}))

	assert.Equal(t, 1, countRows(t, db, "daily_counts"))

	var count int
	require.NoError(t, db.DB.QueryRow(
		"SELECT trigger_count FROM daily_counts WHERE date = ?", "2025-08-03").Scan(&count))
	assert.Equal(t, 9, count)
}

// -----------------------------------------------------------------------------

func TestSQLiteCounterRecords(t *testing.T) {
	db := testSQLiteDB(t)
	day := time.Date(2025, 8, 3, 0, 0, 0, 0, time.UTC)

	require.NoError(t, db.SaveCounterRecords([]models.MCounterRecord{
		{Date: day, Counter: 100, PctChange: 0},
		{Date: day.AddDate(0, 0, 1), Counter: 125, PctChange: 25},
	}))

	assert.Equal(t, 2, countRows(t, db, "trigger_counters"))

	var pct float64
	require.NoError(t, db.DB.QueryRow(
		"SELECT pct_change FROM trigger_counters WHERE date = ?", "2025-08-04").Scan(&pct))
	assert.InDelta(t, 25.0, pct, 0.0001)
}

// -----------------------------------------------------------------------------

func TestSQLiteEmptySavesAreNoops(t *testing.T) {
	db := testSQLiteDB(t)
	now := time.Now().UTC()

	require.NoError(t, db.SavePLCEvents(now, nil))
	require.NoError(t, db.SaveTraySnapshots(now, nil))
	require.NoError(t, db.SaveDailyCounts(nil))
	require.NoError(t, db.SaveCounterRecords(nil))
}

// -----------------------------------------------------------------------------

func TestSQLiteCleanupOldData(t *testing.T) {
	db := testSQLiteDB(t)
	now := time.Now().UTC()
	old := now.AddDate(0, 0, -60)

	require.NoError(t, db.SavePLCEvents(old, []models.MPLCRecord{{Timestamp: old}}))
	require.NoError(t, db.SavePLCEvents(now, []models.MPLCRecord{{Timestamp: now}}))
	require.NoError(t, db.SaveDailyCounts([]models.MDailyRecord{
		{Date: old, TriggerCount: 1},
		{Date: now, TriggerCount: 2},
	}))

	require.NoError(t, db.CleanupOldData())

	assert.Equal(t, 1, countRows(t, db, "plc_events"))
	assert.Equal(t, 1, countRows(t, db, "daily_counts"))
}
