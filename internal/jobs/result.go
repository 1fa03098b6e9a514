package jobs

import (
	"time"

	"scraibe/internal/artifacts"
)

// Result is the outcome of executing one request. Artifacts lists every file
// written, including those written before a failure, so cleanup covers them.
type Result struct {
	Artifacts []artifacts.Artifact
	// Dir is the job's output directory, removed together with the artifacts.
	Dir      string
	Err      error
	Duration time.Duration
}

// Succeeded reports whether the job finished without error.
func (r Result) Succeeded() bool {
	return r.Err == nil
}

// Paths returns the distinct artifact paths in creation order.
func (r Result) Paths() []string {
	return artifacts.UniquePaths(r.Artifacts)
}
