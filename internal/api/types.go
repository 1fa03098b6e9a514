package api

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// JobItem describes a tracked job in a transport-friendly format.
type JobItem struct {
	ID           string   `json:"id"`
	Task         string   `json:"task"`
	Receiver     string   `json:"receiver"`
	Inputs       []string `json:"inputs"`
	Status       string   `json:"status"`
	ErrorMessage string   `json:"errorMessage,omitempty"`
	SubmittedAt  string   `json:"submittedAt,omitempty"`
	StartedAt    string   `json:"startedAt,omitempty"`
	FinishedAt   string   `json:"finishedAt,omitempty"`
	ElapsedMs    int64    `json:"elapsedMs,omitempty"`
}

// QueueStatus summarizes admission and accounting state.
type QueueStatus struct {
	Depth     int64          `json:"depth"`
	Capacity  int            `json:"capacity"`
	InUse     int            `json:"inUse"`
	Waiting   int            `json:"waiting"`
	Submitted int64          `json:"submitted"`
	Completed int64          `json:"completed"`
	Failed    int64          `json:"failed"`
	ByStatus  map[string]int `json:"byStatus"`
}

// DependencyStatus captures availability of an external dependency.
type DependencyStatus struct {
	Name        string `json:"name"`
	Command     string `json:"command"`
	Description string `json:"description"`
	Optional    bool   `json:"optional"`
	Available   bool   `json:"available"`
	Detail      string `json:"detail,omitempty"`
}

// DaemonStatus aggregates daemon runtime information for API consumers.
type DaemonStatus struct {
	Running      bool               `json:"running"`
	PID          int                `json:"pid"`
	LockFilePath string             `json:"lockFilePath"`
	SocketPath   string             `json:"socketPath"`
	Queue        QueueStatus        `json:"queue"`
	Active       []JobItem          `json:"active"`
	Recent       []JobItem          `json:"recent"`
	Dependencies []DependencyStatus `json:"dependencies"`
}

// HealthResponse is the body of the liveness endpoint.
type HealthResponse struct {
	Status string `json:"status"`
	Depth  int64  `json:"depth"`
}
