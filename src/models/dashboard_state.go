package models

// -----------------------------------------------------------------------------
// Server State Structure
// -----------------------------------------------------------------------------

type MDashboardState struct {
	Type          string           `json:"type"` // "INITIAL" or "UPDATE"
	Summary       MTraySummary     `json:"summary"`
	TopTrays      []MTrayRecord    `json:"top_trays"`
	Trays         []MTrayRecord    `json:"trays"`
	TraySeries    []MSeriesPoint   `json:"tray_series"`
	PLCHeaders    []string         `json:"plc_headers"`
	PLCRows       []MPLCRecord     `json:"plc_rows"`
	DailySeries   []MDailyRecord   `json:"daily_series"`
	CounterSeries []MCounterRecord `json:"counter_series"`
	Range         MRangeSelection  `json:"range"`
	Errors        []string         `json:"errors"`
	Timestamp     int64            `json:"timestamp"`
	Metrics       MRefreshMetrics  `json:"refresh_metrics"`
}

// -----------------------------------------------------------------------------

// MTraySummary backs the metric tiles. LastScan carries the formatted
// display string and defaults to "N/A" when no tray has been seen.
type MTraySummary struct {
	UniqueTrays  int    `json:"unique_trays"`
	TotalScans   int    `json:"total_scans"`
	LastScan     string `json:"last_scan"`
	LastScanUnix int64  `json:"last_scan_unix"`
}

// -----------------------------------------------------------------------------

// MSeriesPoint is one point of the tray-appearances chart.
type MSeriesPoint struct {
	TrayID    string `json:"tray_id"`
	Count     int    `json:"count"`
	Timestamp int64  `json:"timestamp"`
	Label     string `json:"label"` // Display-formatted timestamp
}

// -----------------------------------------------------------------------------

// MRangeSelection describes the time window a state was filtered to.
// Window is one of the names in utils (all, 1d, 2d, 7d, 1mo, custom);
// From/To are unix seconds and only set for custom ranges.
type MRangeSelection struct {
	Window string `json:"window"`
	From   int64  `json:"from,omitempty"`
	To     int64  `json:"to,omitempty"`
}

// -----------------------------------------------------------------------------

// MRefreshMetrics represents the performance metrics for one refresh cycle.
type MRefreshMetrics struct {
	FetchSeconds float64 `json:"fetch_seconds"`
	BuildSeconds float64 `json:"build_seconds"`
	RowsLoaded   int     `json:"rows_loaded"`
	TablesLoaded int     `json:"tables_loaded"`
	SkippedRows  int     `json:"skipped_rows"`
	Manual       bool    `json:"manual"`
}

// -----------------------------------------------------------------------------
// SubscribeCommand for client messages
// -----------------------------------------------------------------------------

type MSubscribeCommand struct {
	Command    string `json:"command"`
	ClientType string `json:"clientType"`
	Range      string `json:"range"`
	From       int64  `json:"from"`
	To         int64  `json:"to"`
}
