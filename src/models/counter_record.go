package models

import "time"

// MCounterRecord represents one row of the cumulative trigger-counter
// worksheet. PctChange is derived locally (percent vs the previous row,
// 0 for the first row) and never read from the sheet.
type MCounterRecord struct {
	Date      time.Time `json:"date"`
	Counter   int       `json:"counter"`
	PctChange float64   `json:"pct_change"`
}
