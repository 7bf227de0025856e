// Package capture defines core types shared across subsystems.
package capture

import (
	"time"
)

// Status represents the lifecycle state of a single capture.
type Status string

// Capture status values held in the status map.
const (
	StatusPending  Status = "pending"
	StatusComplete Status = "complete"
	StatusFailed   Status = "failed"
)

// Outcome is the result a worker reports for a finished capture.
type Outcome string

// Outcomes reported through ReportResult.
const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
)

// Task is the message placed on a worker's queue: the URL to capture plus
// the tracking identity the worker reports back under.
type Task struct {
	CaptureID string `json:"capture_id"`
	URL       string `json:"url"`
}

// Record tracks one dispatched capture.
type Record struct {
	ID        string     `json:"id"`
	URL       string     `json:"url"`
	Worker    string     `json:"worker"`
	Owner     int64      `json:"owner"`
	BatchID   string     `json:"batch_id,omitempty"`
	Status    Status     `json:"status"`
	Submitted time.Time  `json:"submitted_at"`
	Resolved  *time.Time `json:"resolved_at,omitempty"`
}

// BatchRecord tracks a set of captures submitted together.
//
// Complete and Failed are disjoint subsets of Captures; a capture id absent
// from both is pending. "All resolved" is derived from the counts and never
// stored.
type BatchRecord struct {
	ID       string   `json:"id"`
	Owner    int64    `json:"owner"`
	Captures []string `json:"captures"`
	Complete []string `json:"complete"`
	Failed   []string `json:"failed"`
}

// BatchStatus is the aggregate view returned by batch status queries.
type BatchStatus struct {
	Total    int `json:"total"`
	Complete int `json:"complete"`
	Failed   int `json:"failed"`
	Pending  int `json:"pending"`
}

// User is the persisted account identity.
type User struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Passhash string `json:"-"`
}

// CaptureRow mirrors the captures relation.
type CaptureRow struct {
	UUID   string    `json:"uuid"`
	URL    string    `json:"url"`
	Time   time.Time `json:"time"`
	Owner  int64     `json:"owner"`
	Public bool      `json:"public"`
}
