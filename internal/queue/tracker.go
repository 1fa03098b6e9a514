package queue

import (
	"errors"
	"slices"
	"sync"
	"sync/atomic"
	"time"
)

const defaultHistoryLimit = 50

var (
	// ErrDuplicateJob is returned when a job ID is enqueued twice.
	ErrDuplicateJob = errors.New("job already tracked")
	// ErrUnknownJob is returned for operations on IDs the tracker does not hold.
	ErrUnknownJob = errors.New("job not tracked")
)

// Tracker counts and records in-flight jobs. It is safe for concurrent use.
type Tracker struct {
	depth     atomic.Int64
	submitted atomic.Int64
	completed atomic.Int64
	failed    atomic.Int64

	mu           sync.RWMutex
	active       map[string]*Job
	history      []Job
	historyLimit int
	now          func() time.Time
}

// NewTracker returns an empty tracker that remembers up to historyLimit
// finished jobs. A non-positive limit uses the default.
func NewTracker(historyLimit int) *Tracker {
	if historyLimit <= 0 {
		historyLimit = defaultHistoryLimit
	}
	return &Tracker{
		active:       make(map[string]*Job),
		historyLimit: historyLimit,
		now:          time.Now,
	}
}

// Enqueue registers a job as pending and increments the counter. It returns
// the depth after the increment.
func (t *Tracker) Enqueue(job Job) (int64, error) {
	if job.ID == "" {
		return t.depth.Load(), errors.New("job id is required")
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, exists := t.active[job.ID]; exists {
		return t.depth.Load(), ErrDuplicateJob
	}
	job.Status = StatusPending
	if job.SubmittedAt.IsZero() {
		job.SubmittedAt = t.now()
	}
	job.Inputs = slices.Clone(job.Inputs)
	t.active[job.ID] = &job
	t.submitted.Add(1)
	return t.depth.Add(1), nil
}

// Transition moves an active job to a non-terminal status.
func (t *Tracker) Transition(id string, status Status) error {
	if status.IsTerminal() {
		return errors.New("use Done for terminal statuses")
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	job, ok := t.active[id]
	if !ok {
		return ErrUnknownJob
	}
	job.Status = status
	if status == StatusRunning && job.StartedAt.IsZero() {
		job.StartedAt = t.now()
	}
	return nil
}

// Done finishes a job and decrements the counter exactly once per enqueued
// job. failure is recorded when non-nil and selects StatusFailed. Calls for
// unknown or already finished IDs leave the counter untouched.
func (t *Tracker) Done(id string, failure error) (int64, error) {
	t.mu.Lock()
	job, ok := t.active[id]
	if !ok {
		t.mu.Unlock()
		return t.depth.Load(), ErrUnknownJob
	}
	delete(t.active, id)
	job.FinishedAt = t.now()
	if failure != nil {
		job.Status = StatusFailed
		job.Error = failure.Error()
		t.failed.Add(1)
	} else {
		job.Status = StatusCompleted
		t.completed.Add(1)
	}
	t.history = append(t.history, *job)
	if overflow := len(t.history) - t.historyLimit; overflow > 0 {
		t.history = slices.Delete(t.history, 0, overflow)
	}
	depth := t.depth.Add(-1)
	t.mu.Unlock()
	return depth, nil
}

// Depth returns the number of submitted jobs that have not completed.
func (t *Tracker) Depth() int64 {
	return t.depth.Load()
}

// Get returns a copy of the job with the given ID, active or recently finished.
func (t *Tracker) Get(id string) (Job, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if job, ok := t.active[id]; ok {
		return cloneJob(*job), true
	}
	for i := len(t.history) - 1; i >= 0; i-- {
		if t.history[i].ID == id {
			return cloneJob(t.history[i]), true
		}
	}
	return Job{}, false
}

// Active returns copies of all unfinished jobs ordered by submission time.
func (t *Tracker) Active() []Job {
	t.mu.RLock()
	jobs := make([]Job, 0, len(t.active))
	for _, job := range t.active {
		jobs = append(jobs, cloneJob(*job))
	}
	t.mu.RUnlock()
	slices.SortFunc(jobs, func(a, b Job) int {
		if c := a.SubmittedAt.Compare(b.SubmittedAt); c != 0 {
			return c
		}
		if a.ID < b.ID {
			return -1
		}
		if a.ID > b.ID {
			return 1
		}
		return 0
	})
	return jobs
}

// Recent returns finished jobs, newest first.
func (t *Tracker) Recent() []Job {
	t.mu.RLock()
	defer t.mu.RUnlock()
	jobs := make([]Job, 0, len(t.history))
	for i := len(t.history) - 1; i >= 0; i-- {
		jobs = append(jobs, cloneJob(t.history[i]))
	}
	return jobs
}

// Stats returns counter totals and per-status counts of active jobs.
func (t *Tracker) Stats() Stats {
	t.mu.RLock()
	byStatus := make(map[Status]int, len(allStatuses))
	for _, job := range t.active {
		byStatus[job.Status]++
	}
	t.mu.RUnlock()
	return Stats{
		Depth:     t.depth.Load(),
		Submitted: t.submitted.Load(),
		Completed: t.completed.Load(),
		Failed:    t.failed.Load(),
		ByStatus:  byStatus,
	}
}

func cloneJob(job Job) Job {
	job.Inputs = slices.Clone(job.Inputs)
	return job
}
