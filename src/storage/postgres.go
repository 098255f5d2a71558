package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kreeztoph/damaged-trays/src/logger"
	"github.com/kreeztoph/damaged-trays/src/models"

	_ "github.com/lib/pq"
)

// -----------------------------------------------------------------------------

type PostgresDB struct {
	Config *models.MConfig
	DB     *sql.DB
	Schema string
	Logger *logger.Logger
}

// -----------------------------------------------------------------------------

func NewPostgresDB(cfg *models.MConfig, log *logger.Logger) (*PostgresDB, error) {
	// Schema is named after the executable so several monitor instances can
	// share one database without colliding.
	exe, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("failed to get executable name: %w", err)
	}
	name := filepath.Base(exe)
	name = strings.TrimSuffix(name, filepath.Ext(name))

	return &PostgresDB{
		Config: cfg,
		Schema: name,
		Logger: log,
	}, nil
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) Initialize() error {
	dsn := d.Config.Storage.DBConnectionString
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return err
	}

	if err := db.Ping(); err != nil {
		return err
	}

	d.DB = db

	// Create Schema
	if _, err := d.DB.Exec(fmt.Sprintf(`CREATE SCHEMA IF NOT EXISTS "%s"`, d.Schema)); err != nil {
		return fmt.Errorf("failed to create schema %s: %w", d.Schema, err)
	}

	if err := d.createTables(); err != nil {
		return err
	}

	d.Logger.Info("PostgresDB initialized successfully (Schema: %s)", d.Schema)
	return nil
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) createTables() error {
	queries := []string{
		fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS "%s"."plc_events" (
				fetched_at BIGINT,
				timestamp BIGINT,
				fields JSONB
			);
		`, d.Schema),
		fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS "%s"."tray_snapshots" (
				fetched_at BIGINT,
				tray_id TEXT,
				count INTEGER,
				last_seen BIGINT,
				PRIMARY KEY (fetched_at, tray_id)
			);
		`, d.Schema),
		fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS "%s"."daily_counts" (
				date TEXT PRIMARY KEY,
				trigger_count INTEGER
			);
		`, d.Schema),
		fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS "%s"."trigger_counters" (
				date TEXT PRIMARY KEY,
				counter INTEGER,
				pct_change DOUBLE PRECISION
			);
		`, d.Schema),
	}

	for _, query := range queries {
		if _, err := d.DB.Exec(query); err != nil {
			return fmt.Errorf("failed to create archive table: %w", err)
		}
	}
	return nil
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) SavePLCEvents(fetchedAt time.Time, rows []models.MPLCRecord) error {
	if len(rows) == 0 {
		return nil
	}

	tx, err := d.DB.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(fmt.Sprintf(`
		INSERT INTO "%s"."plc_events" (fetched_at, timestamp, fields)
		VALUES ($1, $2, $3)
	`, d.Schema))
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

func (d *PostgresDB) SaveTraySnapshots(fetchedAt time.Time, trays []models.MTrayRecord) error {
	if len(trays) == 0 {
		return nil
	}

	tx, err := d.DB.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(fmt.Sprintf(`
		INSERT INTO "%s"."tray_snapshots" (fetched_at, tray_id, count, last_seen)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (fetched_at, tray_id) DO UPDATE SET
			count = excluded.count,
			last_seen = excluded.last_seen
	`, d.Schema))
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

func (d *PostgresDB) SaveDailyCounts(daily []models.MDailyRecord) error {
	if len(daily) == 0 {
		return nil
	}

	tx, err := d.DB.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(fmt.Sprintf(`
		INSERT INTO "%s"."daily_counts" (date, trigger_count)
		VALUES ($1, $2)
		ON CONFLICT (date) DO UPDATE SET trigger_count = excluded.trigger_count
	`, d.Schema))
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

func (d *PostgresDB) SaveCounterRecords(counters []models.MCounterRecord) error {
	if len(counters) == 0 {
		return nil
	}

	tx, err := d.DB.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(fmt.Sprintf(`
		INSERT INTO "%s"."trigger_counters" (date, counter, pct_change)
		VALUES ($1, $2, $3)
		ON CONFLICT (date) DO UPDATE SET
			counter = excluded.counter,
			pct_change = excluded.pct_change
	`, d.Schema))
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

func (d *PostgresDB) CleanupOldData() error {
	retentionDays := d.Config.Storage.RetentionDays
	cutoffTime := time.Now().UTC().AddDate(0, 0, -retentionDays)
	cutoff := cutoffTime.Unix()
	cutoffDate := cutoffTime.Format("2006-01-02")

	d.Logger.Info("Cleaning up archive rows older than %d days", retentionDays)

	if _, err := d.DB.Exec(fmt.Sprintf(`DELETE FROM "%s"."plc_events" WHERE fetched_at < $1`, d.Schema), cutoff); err != nil {
		d.Logger.Error("Cleanup plc_events error: %v", err)
	}
	if _, err := d.DB.Exec(fmt.Sprintf(`DELETE FROM "%s"."tray_snapshots" WHERE fetched_at < $1`, d.Schema), cutoff); err != nil {
		d.Logger.Error("Cleanup tray_snapshots error: %v", err)
	}
	if _, err := d.DB.Exec(fmt.Sprintf(`DELETE FROM "%s"."daily_counts" WHERE date < $1`, d.Schema), cutoffDate); err != nil {
		d.Logger.Error("Cleanup daily_counts error: %v", err)
	}
	if _, err := d.DB.Exec(fmt.Sprintf(`DELETE FROM "%s"."trigger_counters" WHERE date < $1`, d.Schema), cutoffDate); err != nil {
		d.Logger.Error("Cleanup trigger_counters error: %v", err)
	}

	return nil
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) Close() error {
	if d.DB != nil {
		return d.DB.Close()
	}
	return nil
}
