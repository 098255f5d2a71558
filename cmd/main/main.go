package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/kreeztoph/damaged-trays/src/analysis"
	"github.com/kreeztoph/damaged-trays/src/config"
	"github.com/kreeztoph/damaged-trays/src/data_source/gsheet"
	"github.com/kreeztoph/damaged-trays/src/helpers"
	"github.com/kreeztoph/damaged-trays/src/interfaces"
	"github.com/kreeztoph/damaged-trays/src/logger"
	"github.com/kreeztoph/damaged-trays/src/models"
	"github.com/kreeztoph/damaged-trays/src/server"
	"github.com/kreeztoph/damaged-trays/src/storage"
	"github.com/kreeztoph/damaged-trays/src/utils"
)

// -----------------------------------------------------------------------------

func main() {

	// Parse command line flags
	configPath := flag.String("config", "config/default.yaml", "path to config file")
	flag.Parse()

	// Load config from YAML file
	config, err := config.NewConfig(*configPath)
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}

	// Setup logger
	appLogger := logger.NewLogger(config.LogLevel, config.Name)
	errHandler := helpers.NewErrorHandler(helpers.DefaultErrorLogFile)

	// 2. Setup Storage
	var db interfaces.IDatabase

	switch config.Storage.DBType {
	case "postgres":
		db, err = storage.NewPostgresDB(config.MConfig, appLogger)
	default:
		// Default to SQLite
		db, err = storage.NewSQLiteDB(config.MConfig, appLogger)
	}

	if err != nil {
		appLogger.Critical("Failed to init db: %v", err)
	}
	if err := db.Initialize(); err != nil {
		appLogger.Critical("Failed to migrate db: %v", err)
	}
	defer db.Close()

	// Create context for cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 3. Setup Components
	source, err := gsheet.NewGoogleSheetsSource(ctx, config.MConfig)
	if err != nil {
		appLogger.Critical("Failed to init sheets source: %v", err)
	}

	var analyzer *analysis.AnalysisFacade = analysis.NewAnalysisFacade(config.MConfig, appLogger)
	var srv interfaces.IDataExchanger = server.NewDashboardServer(config.MConfig, appLogger, analyzer, source)

	// 4. Initial Data Load
	appLogger.Info("Fetching initial data...")
	initialSnap, err := source.FetchSnapshot(ctx)
	if err != nil {
		// Startup survives a dead spreadsheet; the dashboard serves its
		// empty initial state until a later cycle succeeds.
		errHandler.Handle(err, "initial fetch")
	} else {
		state := analyzer.BuildDashboard(initialSnap, models.MRangeSelection{Window: utils.RangeAll}, time.Now().UTC(), buildMetrics(initialSnap))
		state.Type = "INITIAL"
		srv.UpdateAllData(initialSnap, state)
		archiveSnapshot(db, analyzer, initialSnap, errHandler)
		appLogger.Info("Initialization complete.")
	}

	// 5. Start Server
	go func() {
		if err := srv.Start(); err != nil {
			appLogger.Error("Server failed: %v", err)
		}
	}()

	// 6. Main Loop (Push Model)
	wrapWg := &sync.WaitGroup{}
	updatesChan := make(chan *models.MSnapshot, 10)

	// Start Source
	if err := source.Start(ctx, updatesChan, wrapWg); err != nil {
		appLogger.Critical("Failed to start source: %v", err)
		return
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	appLogger.Info("Starting data loop (Push Model)...")

	for {
		select {
		case snap, ok := <-updatesChan:
			if !ok {
				appLogger.Info("Data source closed channel.")
				return
			}

			appLogger.Info("Received snapshot with %d trays, %d PLC rows", len(snap.Trays), len(snap.PLC))

			state := analyzer.BuildDashboard(snap, models.MRangeSelection{Window: utils.RangeAll}, time.Now().UTC(), buildMetrics(snap))
			srv.UpdateAllData(snap, state)
			srv.Broadcast(state)

			// Archive and prune
			archiveSnapshot(db, analyzer, snap, errHandler)
			if err := db.CleanupOldData(); err != nil {
				errHandler.Handle(err, "archive cleanup")
			}

		case <-quit:
			appLogger.Info("Shutting down...")
			cancel()      // Signal source to stop
			wrapWg.Wait() // Wait for source to close
			return
		}
	}
}

// -----------------------------------------------------------------------------

// archiveSnapshot persists one snapshot. Each table is written
// independently; a failed write never blocks the others.
func archiveSnapshot(db interfaces.IDatabase, analyzer *analysis.AnalysisFacade, snap *models.MSnapshot, errHandler *helpers.ErrorHandler) {
	if err := db.SavePLCEvents(snap.FetchedAt, snap.PLC); err != nil {
		errHandler.Handle(helpers.NewStorageError("save plc events", err), "archive")
	}
	if err := db.SaveTraySnapshots(snap.FetchedAt, snap.Trays); err != nil {
		errHandler.Handle(helpers.NewStorageError("save tray snapshots", err), "archive")
	}
	if err := db.SaveDailyCounts(snap.Daily); err != nil {
		errHandler.Handle(helpers.NewStorageError("save daily counts", err), "archive")
	}
	// Persist counters with their change series applied so the archive
	// matches what the dashboard showed.
	if err := db.SaveCounterRecords(analyzer.PercentChanges(snap.Counters)); err != nil {
		errHandler.Handle(helpers.NewStorageError("save counter records", err), "archive")
	}
}

// -----------------------------------------------------------------------------

func buildMetrics(snap *models.MSnapshot) models.MRefreshMetrics {
	skipped := 0
	for _, n := range snap.SkippedRows {
		skipped += n
	}
	return models.MRefreshMetrics{
		FetchSeconds: snap.FetchSeconds,
		RowsLoaded:   len(snap.PLC) + len(snap.Trays) + len(snap.Daily) + len(snap.Counters),
		TablesLoaded: 4 - len(snap.TableErrors),
		SkippedRows:  skipped,
		Manual:       snap.Manual,
	}
}
