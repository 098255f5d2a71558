package gsheet

import (
	"context"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kreeztoph/damaged-trays/src/helpers"
	"github.com/kreeztoph/damaged-trays/src/logger"
	"github.com/kreeztoph/damaged-trays/src/models"
	"github.com/kreeztoph/damaged-trays/src/utils"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// -----------------------------------------------------------------------------

// GoogleSheetsSource pulls the four monitor tables from one spreadsheet.
// Every fetch is a full re-read; the sheet is the source of truth and this
// process never writes to it.
type GoogleSheetsSource struct {
	Config   *models.MConfig
	Service  *sheets.Service
	Logger   *logger.Logger
	Schedule *utils.OperatingSchedule

	refreshChan chan chan error
	cancelFunc  context.CancelFunc
	ctx         context.Context
	outputChan  chan<- *models.MSnapshot
	isRunning   atomic.Bool
	mu          sync.Mutex
}

// -----------------------------------------------------------------------------

func (s *GoogleSheetsSource) Name() string {
	return "GoogleSheetsSource"
}

// -----------------------------------------------------------------------------

func NewGoogleSheetsSource(ctx context.Context, cfg *models.MConfig) (*GoogleSheetsSource, error) {
	credentialsJSON, err := os.ReadFile(cfg.Sheets.CredentialsFile)
	if err != nil {
		return nil, &helpers.ConfigurationError{TrayMonitorError: helpers.TrayMonitorError{
			Message: fmt.Sprintf("failed to read credentials file %s", cfg.Sheets.CredentialsFile),
			Cause:   err,
		}}
	}
	if len(credentialsJSON) == 0 {
		return nil, &helpers.ConfigurationError{TrayMonitorError: helpers.TrayMonitorError{
			Message: "credentials file is empty",
		}}
	}

	service, err := sheets.NewService(ctx,
		option.WithCredentialsJSON(credentialsJSON),
		option.WithScopes(sheets.SpreadsheetsReadonlyScope),
	)
	if err != nil {
		return nil, helpers.NewSheetsError("failed to create sheets service", err)
	}

	lg := logger.NewLogger(cfg.LogLevel, "GoogleSheetsSource")

	return &GoogleSheetsSource{
		Config:      cfg,
		Service:     service,
		Logger:      lg,
		Schedule:    utils.NewOperatingSchedule(cfg.Refresh.Schedule, lg),
		refreshChan: make(chan chan error, 1),
	}, nil
}

// -----------------------------------------------------------------------------

// FetchSnapshot re-fetches all four tables in full. A table that fails to
// load or parse is recorded in TableErrors so the dashboard can keep
// rendering the others; the returned error is non-nil only when every
// table failed.
func (s *GoogleSheetsSource) FetchSnapshot(ctx context.Context) (*models.MSnapshot, error) {
	names := s.Config.Sheets.Worksheets

	snap := &models.MSnapshot{
		FetchedAt:   time.Now().UTC(),
		PLC:         []models.MPLCRecord{},
		Trays:       []models.MTrayRecord{},
		Daily:       []models.MDailyRecord{},
		Counters:    []models.MCounterRecord{},
		TableErrors: make(map[string]string),
		SkippedRows: make(map[string]int),
	}

	// 1. Raw PLC log
	if values, err := s.loadValues(ctx, names.PLC); err != nil {
		snap.TableErrors[names.PLC] = err.Error()
	} else if headers, rows, skipped, err := parsePLCRows(values); err != nil {
		snap.TableErrors[names.PLC] = err.Error()
	} else {
		snap.PLCHeaders = headers
		snap.PLC = rows
		snap.SkippedRows[names.PLC] = skipped
	}

	// 2. Deduplicated tray memory table
	if values, err := s.loadValues(ctx, names.Memory); err != nil {
		snap.TableErrors[names.Memory] = err.Error()
	} else if rows, skipped, err := parseTrayRows(values); err != nil {
		snap.TableErrors[names.Memory] = err.Error()
	} else {
		snap.Trays = rows
		snap.SkippedRows[names.Memory] = skipped
	}

	// 3. Daily aggregate table
	if values, err := s.loadValues(ctx, names.Daily); err != nil {
		snap.TableErrors[names.Daily] = err.Error()
	} else if rows, skipped, err := parseDailyRows(values); err != nil {
		snap.TableErrors[names.Daily] = err.Error()
	} else {
		snap.Daily = rows
		snap.SkippedRows[names.Daily] = skipped
	}

	// 4. Cumulative trigger-counter table
	if values, err := s.loadValues(ctx, names.Counter); err != nil {
		snap.TableErrors[names.Counter] = err.Error()
	} else if rows, skipped, err := parseCounterRows(values); err != nil {
		snap.TableErrors[names.Counter] = err.Error()
	} else {
		snap.Counters = rows
		snap.SkippedRows[names.Counter] = skipped
	}

	if len(snap.TableErrors) == 4 {
		first := ""
		for _, msg := range snap.TableErrors {
			first = msg
			break
		}
		return nil, helpers.NewSheetsError("all worksheets failed to load", fmt.Errorf("%s", first))
	}

	snap.FetchSeconds = time.Since(snap.FetchedAt).Seconds()

	totalRows := len(snap.PLC) + len(snap.Trays) + len(snap.Daily) + len(snap.Counters)
	s.Logger.Info("Fetched %d rows across %d/4 tables in %.2fs", totalRows, 4-len(snap.TableErrors), snap.FetchSeconds)

	return snap, nil
}

// -----------------------------------------------------------------------------

// loadValues reads one worksheet in full, with retry. The whole used
// range of the sheet comes back; the header row is values[0].
func (s *GoogleSheetsSource) loadValues(ctx context.Context, worksheet string) ([][]interface{}, error) {
	maxRetries := s.Config.Refresh.MaxRetries
	if maxRetries < 1 {
		maxRetries = 1
	}

	res, err := helpers.RetryWithBackoff(fmt.Sprintf("load worksheet %s", worksheet), maxRetries, time.Second, func() (interface{}, error) {
		resp, err := s.Service.Spreadsheets.Values.Get(s.Config.Sheets.SpreadsheetID, worksheet).Context(ctx).Do()
		if err != nil {
			return nil, err
		}
		return resp.Values, nil
	})
	if err != nil {
		return nil, helpers.NewSheetsError(fmt.Sprintf("failed to read worksheet %s", worksheet), err)
	}

	values, _ := res.([][]interface{})
	return values, nil
}

// -----------------------------------------------------------------------------

// Start begins the periodic fetch loop
func (s *GoogleSheetsSource) Start(parentCtx context.Context, outputChan chan<- *models.MSnapshot, wg *sync.WaitGroup) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning.Load() {
		return fmt.Errorf("source %s is already running", s.Name())
	}

	// Derive a context so we can stop just this source via Stop()
	ctx, cancel := context.WithCancel(parentCtx)
	s.cancelFunc = cancel
	s.ctx = ctx
	s.outputChan = outputChan
	s.isRunning.Store(true)

	wg.Add(1)
	go s.runLoop(ctx, outputChan, wg)
	s.Logger.Info("Started %s (interval %ds)", s.Name(), s.Config.Refresh.IntervalSeconds)
	return nil
}

// -----------------------------------------------------------------------------

// Stop signals the run loop to exit
func (s *GoogleSheetsSource) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning.Load() {
		return fmt.Errorf("source %s is not running", s.Name())
	}

	if s.cancelFunc != nil {
		s.cancelFunc()
	}
	s.isRunning.Store(false)
	s.Logger.Info("Stopped %s", s.Name())
	return nil
}

// -----------------------------------------------------------------------------

// TriggerRefresh wakes the loop for one immediate fetch and waits for it
// to complete, so the HTTP handler can report the outcome. No long-lived
// flag is involved; the request owns the whole interaction.
func (s *GoogleSheetsSource) TriggerRefresh() error {
	if !s.isRunning.Load() {
		return fmt.Errorf("source %s is not running", s.Name())
	}

	done := make(chan error, 1)
	select {
	case s.refreshChan <- done:
	default:
		// A manual refresh is already queued; piggyback on it.
		return nil
	}

	select {
	case err := <-done:
		return err
	case <-time.After(30 * time.Second):
		return fmt.Errorf("manual refresh timed out")
	}
}

// -----------------------------------------------------------------------------

// runLoop is the main loop that fetches snapshots periodically and on
// manual triggers.
func (s *GoogleSheetsSource) runLoop(ctx context.Context, outputChan chan<- *models.MSnapshot, wg *sync.WaitGroup) {
	defer wg.Done()

	ticker := time.NewTicker(time.Duration(s.Config.Refresh.IntervalSeconds) * time.Second)
	defer ticker.Stop()

	// Initial fetch happens in main before Start; the loop only handles
	// subsequent cycles.
	for {
		select {
		case <-ctx.Done():
			return

		case <-ticker.C:
			if !s.Schedule.IsOpen(time.Now()) {
				s.Logger.Debug("Facility closed, skipping scheduled fetch")
				continue
			}
			s.fetchAndPush(ctx, outputChan, false, nil)

		case done := <-s.refreshChan:
			// Manual refresh bypasses the operating schedule.
			s.fetchAndPush(ctx, outputChan, true, done)
		}
	}
}

// -----------------------------------------------------------------------------

func (s *GoogleSheetsSource) fetchAndPush(ctx context.Context, outputChan chan<- *models.MSnapshot, manual bool, done chan error) {
	snap, err := s.FetchSnapshot(ctx)
	if err != nil {
		s.Logger.Error("Fetch failed: %v", err)
		if done != nil {
			done <- err
		}
		return
	}

	snap.Manual = manual

	select {
	case outputChan <- snap:
		if done != nil {
			done <- nil
		}
	case <-ctx.Done():
		if done != nil {
			done <- ctx.Err()
		}
	}
}
