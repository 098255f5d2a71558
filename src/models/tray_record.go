package models

import "time"

// MTrayRecord represents one deduplicated tray row from the memory worksheet.
// Count is maintained upstream and is non-decreasing per tray ID.
type MTrayRecord struct {
	TrayID   string    `json:"tray_id"`
	Count    int       `json:"count"`
	LastSeen time.Time `json:"last_seen"`
}
