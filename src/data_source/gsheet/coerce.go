package gsheet

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/kreeztoph/damaged-trays/src/models"
)

// -----------------------------------------------------------------------------
// Parameterized table loading
//
// Every worksheet goes through the same path: a header row naming the
// columns, then data rows whose cells may arrive as strings or numbers
// depending on how the sheet formats them. Each logical column carries a
// list of accepted header aliases because the upstream sheets renamed
// columns between revisions ("Tote ID" became "Tray ID" with no semantic
// change).
// -----------------------------------------------------------------------------

type rowParser[T any] func(cols map[string]int, row []interface{}) (T, error)

// -----------------------------------------------------------------------------

// parseTable coerces raw worksheet values into typed records. The first
// row is the header; each logical column in columns maps to its accepted
// header aliases. Rows that fail coercion are skipped and counted, never
// fatal. A missing required column is an error for the whole table.
func parseTable[T any](values [][]interface{}, columns map[string][]string, parse rowParser[T]) ([]T, int, error) {
	if len(values) == 0 {
		return []T{}, 0, nil
	}

	header := values[0]
	cols := make(map[string]int, len(columns))

	for logical, aliases := range columns {
		idx := -1
		for i, cell := range header {
			name := strings.ToLower(strings.TrimSpace(cellString(cell)))
			for _, alias := range aliases {
				if name == strings.ToLower(alias) {
					idx = i
					break
				}
			}
			if idx >= 0 {
				break
			}
		}
		if idx < 0 {
			return nil, 0, fmt.Errorf("column %q not found in header", logical)
		}
		cols[logical] = idx
	}

	records := make([]T, 0, len(values)-1)
	skipped := 0

	for _, row := range values[1:] {
		rec, err := parse(cols, row)
		if err != nil {
			skipped++
			continue
		}
		records = append(records, rec)
	}

	return records, skipped, nil
}

// -----------------------------------------------------------------------------
// Per-table parsers
// -----------------------------------------------------------------------------

var trayColumns = map[string][]string{
	"id":        {"Tray ID", "Tote ID"},
	"count":     {"Count"},
	"last_seen": {"Most Recent Timestamp", "Last Seen"},
}

func parseTrayRows(values [][]interface{}) ([]models.MTrayRecord, int, error) {
	return parseTable(values, trayColumns, func(cols map[string]int, row []interface{}) (models.MTrayRecord, error) {
		id := cellString(cellAt(row, cols["id"]))
		if id == "" {
			return models.MTrayRecord{}, fmt.Errorf("empty tray id")
		}
		count, err := cellInt(cellAt(row, cols["count"]))
		if err != nil || count < 0 {
			return models.MTrayRecord{}, fmt.Errorf("bad count: %v", err)
		}
		seen, err := parseTimestamp(cellString(cellAt(row, cols["last_seen"])))
		if err != nil {
			return models.MTrayRecord{}, err
		}
		return models.MTrayRecord{TrayID: id, Count: count, LastSeen: seen}, nil
	})
}

// -----------------------------------------------------------------------------

var dailyColumns = map[string][]string{
	"date":  {"Date"},
	"count": {"Daily Trigger Count", "Trigger Count"},
}

func parseDailyRows(values [][]interface{}) ([]models.MDailyRecord, int, error) {
	return parseTable(values, dailyColumns, func(cols map[string]int, row []interface{}) (models.MDailyRecord, error) {
		date, err := parseTimestamp(cellString(cellAt(row, cols["date"])))
		if err != nil {
			return models.MDailyRecord{}, err
		}
		count, err := cellInt(cellAt(row, cols["count"]))
		if err != nil {
			return models.MDailyRecord{}, err
		}
		return models.MDailyRecord{Date: date, TriggerCount: count}, nil
	})
}

// -----------------------------------------------------------------------------

var counterColumns = map[string][]string{
	"date":    {"Date"},
	"counter": {"Counter"},
}

func parseCounterRows(values [][]interface{}) ([]models.MCounterRecord, int, error) {
	return parseTable(values, counterColumns, func(cols map[string]int, row []interface{}) (models.MCounterRecord, error) {
		date, err := parseTimestamp(cellString(cellAt(row, cols["date"])))
		if err != nil {
			return models.MCounterRecord{}, err
		}
		counter, err := cellInt(cellAt(row, cols["counter"]))
		if err != nil {
			return models.MCounterRecord{}, err
		}
		// PctChange is derived downstream, never read from the sheet.
		return models.MCounterRecord{Date: date, Counter: counter}, nil
	})
}

// -----------------------------------------------------------------------------

var plcColumns = map[string][]string{
	"timestamp": {"Timestamp"},
}

// parsePLCRows keeps every non-timestamp column as an opaque display
// field since the PLC log layout varies between deployments.
func parsePLCRows(values [][]interface{}) ([]string, []models.MPLCRecord, int, error) {
	var headers []string
	if len(values) > 0 {
		for _, cell := range values[0] {
			headers = append(headers, cellString(cell))
		}
	}

	records, skipped, err := parseTable(values, plcColumns, func(cols map[string]int, row []interface{}) (models.MPLCRecord, error) {
		ts, err := parseTimestamp(cellString(cellAt(row, cols["timestamp"])))
		if err != nil {
			return models.MPLCRecord{}, err
		}

		fields := make(map[string]string, len(headers))
		for i, name := range headers {
			if i == cols["timestamp"] || name == "" {
				continue
			}
			fields[name] = cellString(cellAt(row, i))
		}
		return models.MPLCRecord{Timestamp: ts, Fields: fields}, nil
	})

	return headers, records, skipped, err
}

// -----------------------------------------------------------------------------
// Cell coercion helpers
// -----------------------------------------------------------------------------

func cellAt(row []interface{}, idx int) interface{} {
	if idx < 0 || idx >= len(row) {
		return nil
	}
	return row[idx]
}

// -----------------------------------------------------------------------------

func cellString(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return strings.TrimSpace(fmt.Sprintf("%v", val))
	}
}

// -----------------------------------------------------------------------------

func cellInt(v interface{}) (int, error) {
	switch val := v.(type) {
	case float64:
		return int(val), nil
	case string:
		s := strings.TrimSpace(val)
		if s == "" {
			return 0, fmt.Errorf("empty cell")
		}
		// Sheets sometimes renders integers as "12.0"
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, err
		}
		return int(f), nil
	default:
		return 0, fmt.Errorf("cannot coerce %T to int", v)
	}
}

// -----------------------------------------------------------------------------

// timestampLayouts in the order they are tried. The upstream writers have
// not been consistent about formats, so several are accepted.
var timestampLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"02/01/2006 15:04:05",
	"2006-01-02",
	"02/01/2006",
}

func parseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable timestamp %q", s)
}
