package ipc

import "scraibe/internal/api"

// SubmitRequest carries one transcription job.
type SubmitRequest struct {
	Audio          []string       `json:"audio"`
	Receiver       string         `json:"receiver"`
	Task           string         `json:"task"`
	Speakers       int            `json:"speakers"`
	Translate      bool           `json:"translate"`
	Language       string         `json:"language,omitempty"`
	SuccessOptions map[string]any `json:"success_options,omitempty"`
	ErrorOptions   map[string]any `json:"error_options,omitempty"`
}

// SubmitResponse returns the assigned job ID and the queue depth after admission.
type SubmitResponse struct {
	ID    string `json:"id"`
	Depth int64  `json:"depth"`
}

// StatusRequest fetches daemon status.
type StatusRequest struct{}

// StatusResponse is the daemon status snapshot.
type StatusResponse struct {
	api.DaemonStatus
}

// JobRequest looks up one job by ID.
type JobRequest struct {
	ID string `json:"id"`
}

// JobResponse holds the job, when found.
type JobResponse struct {
	Found bool        `json:"found"`
	Job   api.JobItem `json:"job"`
}

// TestNotificationRequest triggers a test alert and, with a receiver, a test mail.
type TestNotificationRequest struct {
	Receiver string `json:"receiver,omitempty"`
}

// TestNotificationResponse reports notification test result.
type TestNotificationResponse struct {
	Sent    bool   `json:"sent"`
	Message string `json:"message"`
}

// LogTailRequest asks for daemon log lines.
type LogTailRequest struct {
	Offset     int64  `json:"offset"`
	Limit      int    `json:"limit"`
	Follow     bool   `json:"follow"`
	WaitMillis int    `json:"wait_millis"`
	JobID      string `json:"job_id,omitempty"`
}

// LogTailResponse returns log lines and the offset to resume from.
type LogTailResponse struct {
	Lines  []string `json:"lines"`
	Offset int64    `json:"offset"`
}

// ShutdownRequest asks the daemon process to exit.
type ShutdownRequest struct{}

// ShutdownResponse acknowledges a shutdown request.
type ShutdownResponse struct {
	Accepted bool `json:"accepted"`
}
