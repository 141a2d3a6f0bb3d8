package progress

import "time"

type EventType string

const (
	EventScanStarted  EventType = "scan_started"
	EventScanWarning  EventType = "scan_warning"
	EventFileScanned  EventType = "file_scanned"
	EventFileSkipped  EventType = "file_skipped"
	EventScanFinished EventType = "scan_finished"
)

type Event struct {
	Type         EventType `json:"type"`
	At           time.Time `json:"at"`
	Root         string    `json:"root,omitempty"`
	File         string    `json:"file,omitempty"`
	Reason       string    `json:"reason,omitempty"`
	Message      string    `json:"message,omitempty"`
	Error        string    `json:"error,omitempty"`
	FilesTotal   int       `json:"files_total,omitempty"`
	FilesScanned int       `json:"files_scanned,omitempty"`
	FindingCount int       `json:"finding_count,omitempty"`
	DurationMS   int64     `json:"duration_ms,omitempty"`
}

// Skip reasons carried by EventFileSkipped.
const (
	SkipTooLarge  = "too_large"
	SkipBinary    = "binary"
	SkipReadError = "read_error"
	SkipCanceled  = "canceled"
)
