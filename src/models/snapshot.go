package models

import "time"

// MSnapshot holds the full result of one refresh cycle: all four tables
// re-fetched from the spreadsheet, plus per-table load failures so one
// broken worksheet does not take down the rest of the dashboard.
type MSnapshot struct {
	FetchedAt    time.Time
	FetchSeconds float64
	Manual       bool // Set when the fetch was forced by the refresh control
	PLCHeaders []string
	PLC        []MPLCRecord
	Trays      []MTrayRecord
	Daily      []MDailyRecord
	Counters   []MCounterRecord

	// TableErrors maps worksheet title -> load error text.
	TableErrors map[string]string
	// SkippedRows maps worksheet title -> rows dropped during coercion.
	SkippedRows map[string]int
}

// -----------------------------------------------------------------------------

// HasTable reports whether the named worksheet loaded without error.
func (s *MSnapshot) HasTable(worksheet string) bool {
	if s.TableErrors == nil {
		return true
	}
	_, failed := s.TableErrors[worksheet]
	return !failed
}
