package models

import "time"

// MDailyRecord represents one row of the daily aggregate worksheet.
type MDailyRecord struct {
	Date         time.Time `json:"date"`
	TriggerCount int       `json:"trigger_count"`
}
