package models

import "time"

// MPLCRecord represents one raw event row from the PLC log worksheet.
// Beyond the timestamp the columns vary between deployments, so they are
// kept as an ordered header list plus a per-row value map.
type MPLCRecord struct {
	Timestamp time.Time         `json:"timestamp"`
	Fields    map[string]string `json:"fields"`
}
