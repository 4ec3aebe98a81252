package models

import "time"

// Snapshot represents a JPEG of a trained frame written to disk.
type Snapshot struct {
	ID        int64     `json:"id"`
	Filename  string    `json:"filename"`
	Class     int       `json:"class"`
	Label     string    `json:"label"`
	Timestamp time.Time `json:"timestamp"`
	FilePath  string    `json:"filepath"`
	FileSize  int64     `json:"filesize"`
}
