package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/kreeztoph/damaged-trays/src/logger"
	"github.com/kreeztoph/damaged-trays/src/models"

	_ "modernc.org/sqlite"
)

// -----------------------------------------------------------------------------

type SQLiteDB struct {
	Config *models.MConfig
	DB     *sql.DB
	Logger *logger.Logger
}

// -----------------------------------------------------------------------------

func NewSQLiteDB(cfg *models.MConfig, log *logger.Logger) (*SQLiteDB, error) {
	return &SQLiteDB{
		Config: cfg,
		Logger: log,
	}, nil
}

// -----------------------------------------------------------------------------

func (d *SQLiteDB) Initialize() error {
	dsn := d.Config.Storage.DBPath

	// Open DB
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return err
	}

	if err := db.Ping(); err != nil {
		return err
	}

	d.DB = db

	// PRAGMA optimizations
	if _, err := db.Exec("PRAGMA journal_mode = WAL;"); err != nil {
		d.Logger.Warning("Failed to set WAL mode: %v", err)
	}
	if _, err := db.Exec("PRAGMA synchronous = NORMAL;"); err != nil {
		d.Logger.Warning("Failed to set synchronous mode: %v", err)
	}

	return d.createTables()
}

// -----------------------------------------------------------------------------

// createTables builds the archive schema. Unlike a scratch cache, the
// archive must survive restarts, so tables are created only if missing.
func (d *SQLiteDB) createTables() error {
	queries := []string{
		`
		CREATE TABLE IF NOT EXISTS plc_events (
			fetched_at INTEGER,
			timestamp INTEGER,
			fields TEXT
		);
		`,
		`
		CREATE TABLE IF NOT EXISTS tray_snapshots (
			fetched_at INTEGER,
			tray_id TEXT,
			count INTEGER,
			last_seen INTEGER,
			PRIMARY KEY (fetched_at, tray_id)
		);
		`,
		`
		CREATE TABLE IF NOT EXISTS daily_counts (
			date TEXT PRIMARY KEY,
			trigger_count INTEGER
		);
		`,
		`
		CREATE TABLE IF NOT EXISTS trigger_counters (
			date TEXT PRIMARY KEY,
			counter INTEGER,
			pct_change REAL
		);
		`,
	}

	for _, query := range queries {
		if _, err := d.DB.Exec(query); err != nil {
			return fmt.Errorf("failed to create archive table: %w", err)
		}
	}
	return nil
}

// -----------------------------------------------------------------------------

func (d *SQLiteDB) SavePLCEvents(fetchedAt time.Time, rows []models.MPLCRecord) error {
	if len(rows) == 0 {
		return nil
	}

	tx, err := d.DB.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO plc_events (fetched_at, timestamp, fields)
		VALUES (?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, r := range rows {
		fields, err := json.Marshal(r.Fields)
		if err != nil {
			return err
		}
		if _, err := stmt.Exec(fetchedAt.Unix(), r.Timestamp.Unix(), string(fields)); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// -----------------------------------------------------------------------------

func (d *SQLiteDB) SaveTraySnapshots(fetchedAt time.Time, trays []models.MTrayRecord) error {
	if len(trays) == 0 {
		return nil
	}

	tx, err := d.DB.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT OR REPLACE INTO tray_snapshots (fetched_at, tray_id, count, last_seen)
		VALUES (?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, t := range trays {
		if _, err := stmt.Exec(fetchedAt.Unix(), t.TrayID, t.Count, t.LastSeen.Unix()); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// -----------------------------------------------------------------------------

func (d *SQLiteDB) SaveDailyCounts(daily []models.MDailyRecord) error {
	if len(daily) == 0 {
		return nil
	}

	tx, err := d.DB.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO daily_counts (date, trigger_count)
		VALUES (?, ?)
		ON CONFLICT (date) DO UPDATE SET trigger_count = excluded.trigger_count
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, rec := range daily {
		if _, err := stmt.Exec(rec.Date.Format("2006-01-02"), rec.TriggerCount); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// -----------------------------------------------------------------------------

func (d *SQLiteDB) SaveCounterRecords(counters []models.MCounterRecord) error {
	if len(counters) == 0 {
		return nil
	}

	tx, err := d.DB.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO trigger_counters (date, counter, pct_change)
		VALUES (?, ?, ?)
		ON CONFLICT (date) DO UPDATE SET
			counter = excluded.counter,
			pct_change = excluded.pct_change
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, rec := range counters {
		if _, err := stmt.Exec(rec.Date.Format("2006-01-02"), rec.Counter, rec.PctChange); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// -----------------------------------------------------------------------------

func (d *SQLiteDB) CleanupOldData() error {
	retentionDays := d.Config.Storage.RetentionDays
	cutoffTime := time.Now().UTC().AddDate(0, 0, -retentionDays)
	cutoff := cutoffTime.Unix()
	cutoffDate := cutoffTime.Format("2006-01-02")

	d.Logger.Info("Cleaning up archive rows older than %d days", retentionDays)

	if _, err := d.DB.Exec("DELETE FROM plc_events WHERE fetched_at < ?", cutoff); err != nil {
		d.Logger.Error("Cleanup plc_events error: %v", err)
	}
	if _, err := d.DB.Exec("DELETE FROM tray_snapshots WHERE fetched_at < ?", cutoff); err != nil {
		d.Logger.Error("Cleanup tray_snapshots error: %v", err)
	}
	if _, err := d.DB.Exec("DELETE FROM daily_counts WHERE date < ?", cutoffDate); err != nil {
		d.Logger.Error("Cleanup daily_counts error: %v", err)
	}
	if _, err := d.DB.Exec("DELETE FROM trigger_counters WHERE date < ?", cutoffDate); err != nil {
		d.Logger.Error("Cleanup trigger_counters error: %v", err)
	}

	return nil
}

// -----------------------------------------------------------------------------

func (d *SQLiteDB) Close() error {
	if d.DB != nil {
		return d.DB.Close()
	}
	return nil
}
