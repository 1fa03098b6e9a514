package api

import (
	"slices"
	"time"

	"scraibe/internal/deps"
	"scraibe/internal/queue"
)

// FromJob converts a tracker record to its API representation.
func FromJob(job queue.Job) JobItem {
	dto := JobItem{
		ID:           job.ID,
		Task:         job.Task,
		Receiver:     job.Receiver,
		Inputs:       slices.Clone(job.Inputs),
		Status:       string(job.Status),
		ErrorMessage: job.Error,
		SubmittedAt:  formatTime(job.SubmittedAt),
		StartedAt:    formatTime(job.StartedAt),
		FinishedAt:   formatTime(job.FinishedAt),
	}
	if !job.StartedAt.IsZero() {
		end := job.FinishedAt
		if end.IsZero() {
			end = time.Now()
		}
		dto.ElapsedMs = end.Sub(job.StartedAt).Milliseconds()
	}
	return dto
}

// FromJobs converts a slice of tracker records, keeping their order.
func FromJobs(jobs []queue.Job) []JobItem {
	out := make([]JobItem, 0, len(jobs))
	for _, job := range jobs {
		out = append(out, FromJob(job))
	}
	return out
}

// FromStats combines tracker counters with the admission gate gauges. Every
// known status is present in ByStatus, zero or not.
func FromStats(stats queue.Stats, capacity, inUse, waiting int) QueueStatus {
	byStatus := make(map[string]int, len(queue.AllStatuses()))
	for _, status := range queue.AllStatuses() {
		if status.IsTerminal() {
			continue
		}
		byStatus[string(status)] = stats.ByStatus[status]
	}
	return QueueStatus{
		Depth:     stats.Depth,
		Capacity:  capacity,
		InUse:     inUse,
		Waiting:   waiting,
		Submitted: stats.Submitted,
		Completed: stats.Completed,
		Failed:    stats.Failed,
		ByStatus:  byStatus,
	}
}

// FromDependencies converts dependency checks.
func FromDependencies(statuses []deps.Status) []DependencyStatus {
	out := make([]DependencyStatus, len(statuses))
	for i, dep := range statuses {
		out[i] = DependencyStatus(dep)
	}
	return out
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateTimeFormat)
}
