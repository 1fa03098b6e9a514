package queue

import "time"

// Status represents the lifecycle of a tracked job.
type Status string

const (
	// StatusPending jobs are waiting for a worker slot.
	StatusPending Status = "pending"
	// StatusRunning jobs hold a slot and are executing their task.
	StatusRunning Status = "running"
	// StatusNotifying jobs are delivering their outcome to the receiver.
	StatusNotifying Status = "notifying"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

var allStatuses = []Status{
	StatusPending,
	StatusRunning,
	StatusNotifying,
	StatusCompleted,
	StatusFailed,
}

// AllStatuses returns every known status in lifecycle order.
func AllStatuses() []Status {
	return append([]Status(nil), allStatuses...)
}

// IsTerminal reports whether the status ends a job's lifecycle.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Job is the tracker's view of a submitted job.
type Job struct {
	ID          string    `json:"id"`
	Task        string    `json:"task"`
	Receiver    string    `json:"receiver"`
	Inputs      []string  `json:"inputs"`
	Status      Status    `json:"status"`
	SubmittedAt time.Time `json:"submitted_at"`
	StartedAt   time.Time `json:"started_at,omitzero"`
	FinishedAt  time.Time `json:"finished_at,omitzero"`
	Error       string    `json:"error,omitempty"`
}

// Stats summarizes the tracker for status output.
type Stats struct {
	Depth     int64          `json:"depth"`
	Submitted int64          `json:"submitted"`
	Completed int64          `json:"completed"`
	Failed    int64          `json:"failed"`
	ByStatus  map[Status]int `json:"by_status"`
}
