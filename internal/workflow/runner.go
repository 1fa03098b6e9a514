package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"scraibe/internal/admission"
	"scraibe/internal/artifacts"
	"scraibe/internal/jobs"
	"scraibe/internal/logging"
	"scraibe/internal/notifications"
	"scraibe/internal/queue"
	"scraibe/internal/services"
)

// ErrRunnerClosed is returned by Submit after Close.
var ErrRunnerClosed = errors.New("runner closed")

// Executor runs one request and reports its outcome.
type Executor interface {
	Execute(ctx context.Context, req jobs.Request) jobs.Result
}

// Runner owns the per-job goroutines.
type Runner struct {
	gate      *admission.Gate
	tracker   *queue.Tracker
	executor  Executor
	notifier  notifications.Service
	alerter   notifications.Alerter
	artifacts *artifacts.Manager
	logger    *slog.Logger
	newID     func() string

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// NewRunner wires a runner. A nil alerter disables operator alerts.
func NewRunner(
	gate *admission.Gate,
	tracker *queue.Tracker,
	executor Executor,
	notifier notifications.Service,
	alerter notifications.Alerter,
	manager *artifacts.Manager,
	logger *slog.Logger,
) *Runner {
	if alerter == nil {
		alerter = notifications.NewAlerter(nil)
	}
	if manager == nil {
		manager = artifacts.NewManager("", logger)
	}
	return &Runner{
		gate:      gate,
		tracker:   tracker,
		executor:  executor,
		notifier:  notifier,
		alerter:   alerter,
		artifacts: manager,
		logger:    logging.NewComponentLogger(logger, "runner"),
		newID:     func() string { return uuid.NewString() },
	}
}

// Submit registers req and starts its worker goroutine. It never waits for a
// slot. The worker runs under a context detached from ctx, so cancelling the
// caller does not interrupt the job; values such as the request id are kept.
func (r *Runner) Submit(ctx context.Context, req jobs.Request) (string, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return "", ErrRunnerClosed
	}

	job := req.Clone()
	if job.ID == "" {
		job.ID = r.newID()
	}
	depth, err := r.tracker.Enqueue(queue.Job{
		ID:          job.ID,
		Task:        string(job.Task),
		Receiver:    job.Receiver,
		Inputs:      append([]string(nil), job.Audio...),
		SubmittedAt: time.Now(),
	})
	if err != nil {
		return "", fmt.Errorf("register job: %w", err)
	}

	jobCtx := services.WithTask(services.WithJobID(context.WithoutCancel(ctx), job.ID), string(job.Task))
	logging.WithContext(jobCtx, r.logger).Info("job submitted",
		logging.String(logging.FieldReceiver, job.Receiver),
		logging.Int("inputs", len(job.Audio)),
		logging.Int64("queue_depth", depth),
		logging.String(logging.FieldEventType, "job_submitted"),
	)

	r.wg.Add(1)
	go r.run(jobCtx, job)
	return job.ID, nil
}

// Active returns the jobs that have not completed yet.
func (r *Runner) Active() []queue.Job {
	return r.tracker.Active()
}

// Depth returns the number of submitted jobs that have not completed.
func (r *Runner) Depth() int64 {
	return r.tracker.Depth()
}

// Close stops accepting submissions and waits for in-flight jobs, or until
// ctx ends.
func (r *Runner) Close(ctx context.Context) error {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("wait for %d in-flight jobs: %w", r.tracker.Depth(), ctx.Err())
	}
}

// Wait blocks until every submitted job has completed.
func (r *Runner) Wait() {
	r.wg.Wait()
}

func (r *Runner) run(ctx context.Context, req jobs.Request) {
	logger := logging.WithContext(ctx, r.logger)
	var failure error

	defer r.wg.Done()
	defer func() {
		if rec := recover(); rec != nil {
			failure = fmt.Errorf("job worker panicked: %v", rec)
			logger.Error("job worker panicked",
				logging.Any("panic", rec),
				logging.Alert("worker_panic"),
				logging.String(logging.FieldEventType, "job_panic"),
			)
		}
		depth, err := r.tracker.Done(req.ID, failure)
		if err != nil {
			logger.Error("queue accounting failed", logging.Error(err))
			return
		}
		logger.Info("job finished",
			logging.Bool("succeeded", failure == nil),
			logging.Int64("queue_depth", depth),
			logging.String(logging.FieldEventType, "job_finished"),
		)
	}()

	slot, err := r.admit(ctx, logger)
	if err != nil {
		failure = err
		r.handleAdmissionFailure(ctx, logger, req, err)
		return
	}
	defer func() {
		held := slot.Held()
		slot.Release()
		logger.Debug("worker slot released", logging.Duration("held", held))
	}()

	r.transition(logger, req.ID, queue.StatusRunning)
	logger.Info("job admitted",
		logging.Int("slots_in_use", r.gate.InUse()),
		logging.Int("capacity", r.gate.Capacity()),
		logging.String(logging.FieldEventType, "job_started"),
	)

	result := r.executor.Execute(ctx, req)
	defer r.cleanup(logger, result)
	failure = result.Err

	r.transition(logger, req.ID, queue.StatusNotifying)
	r.dispatch(ctx, logger, req, result)
}

// admit takes a free slot immediately when there is one and otherwise logs
// the wait before blocking on the gate.
func (r *Runner) admit(ctx context.Context, logger *slog.Logger) (*admission.Slot, error) {
	if slot, ok := r.gate.TryAcquire(); ok {
		return slot, nil
	}
	logger.Info("waiting for a worker slot",
		logging.Int("capacity", r.gate.Capacity()),
		logging.Int("waiting", r.gate.Waiting()+1),
		logging.String(logging.FieldEventType, "job_waiting"),
	)
	return r.gate.Acquire(ctx)
}

// dispatch is the single place a job outcome becomes a notification.
func (r *Runner) dispatch(ctx context.Context, logger *slog.Logger, req jobs.Request, result jobs.Result) {
	if result.Succeeded() {
		logger.Info("job succeeded",
			logging.Int("artifacts", len(result.Artifacts)),
			logging.Duration("elapsed", result.Duration),
			logging.String(logging.FieldEventType, "job_succeeded"),
		)
		err := r.notifier.SendTranscript(ctx, req.Receiver, result.Paths(), req.SuccessOptions)
		r.afterNotify(ctx, logger, req, err)
		return
	}

	r.logFailure(logger, result.Err, result.Duration)
	if err := r.alerter.JobFailed(ctx, req.ID, req.Receiver, result.Err); err != nil {
		logger.Debug("job failure alert not sent", logging.Error(err))
	}
	err := r.notifier.SendErrorNotification(ctx, req.Receiver, failureMessage(result.Err), req.ErrorOptions)
	r.afterNotify(ctx, logger, req, err)
}

func (r *Runner) handleAdmissionFailure(ctx context.Context, logger *slog.Logger, req jobs.Request, err error) {
	if !errors.Is(err, admission.ErrAdmissionStall) {
		logger.Error("admission failed", logging.Error(err), logging.String(logging.FieldEventType, "admission_failed"))
		return
	}
	waited := r.gate.Timeout()
	logging.WarnWithContext(logger, "no worker slot became free; job abandoned", "admission_stalled",
		logging.Error(err),
		logging.Duration("waited", waited),
		logging.Int("capacity", r.gate.Capacity()),
		logging.String(logging.FieldErrorHint, services.Details(err).Hint),
		logging.String(logging.FieldImpact, "receiver gets an error notification instead of a transcript"),
	)
	if alertErr := r.alerter.AdmissionStalled(ctx, req.ID, waited); alertErr != nil {
		logger.Debug("admission stall alert not sent", logging.Error(alertErr))
	}
	r.transition(logger, req.ID, queue.StatusNotifying)
	notifyErr := r.notifier.SendErrorNotification(ctx, req.Receiver, failureMessage(err), req.ErrorOptions)
	r.afterNotify(ctx, logger, req, notifyErr)
}

func (r *Runner) afterNotify(ctx context.Context, logger *slog.Logger, req jobs.Request, err error) {
	if err == nil {
		return
	}
	details := services.Details(err)
	logger.Error("notification failed; receiver not informed",
		logging.Error(err),
		logging.String(logging.FieldErrorKind, string(details.Kind)),
		logging.String(logging.FieldErrorHint, "check [mail] settings and SMTP reachability"),
		logging.String(logging.FieldImpact, "receiver does not learn the job outcome"),
		logging.Alert("notification_failed"),
		logging.String(logging.FieldEventType, "notification_failed"),
	)
	if alertErr := r.alerter.NotificationFailed(ctx, req.ID, req.Receiver, err); alertErr != nil {
		logger.Debug("notification failure alert not sent", logging.Error(alertErr))
	}
}

func (r *Runner) cleanup(logger *slog.Logger, result jobs.Result) {
	if len(result.Artifacts) == 0 && result.Dir == "" {
		return
	}
	res := r.artifacts.Cleanup(result.Dir, result.Artifacts)
	if err := res.Err(); err != nil {
		logging.WarnWithContext(logger, "artifact cleanup incomplete", "artifact_cleanup_failed",
			logging.Error(err),
			logging.Int("removed", len(res.Removed)),
			logging.Int("failed", len(res.Errors)),
			logging.String(logging.FieldErrorHint, "check permissions on paths.work_dir"),
			logging.String(logging.FieldImpact, "generated files remain on disk"),
		)
		return
	}
	logger.Debug("artifacts removed", logging.Int("count", len(res.Removed)))
}

func (r *Runner) transition(logger *slog.Logger, id string, status queue.Status) {
	if err := r.tracker.Transition(id, status); err != nil {
		logger.Debug("status transition skipped", logging.String("status", string(status)), logging.Error(err))
	}
}

func (r *Runner) logFailure(logger *slog.Logger, err error, elapsed time.Duration) {
	details := services.Details(err)
	attrs := []logging.Attr{
		logging.String(logging.FieldErrorKind, string(details.Kind)),
		logging.String("error_operation", details.Operation),
		logging.String(logging.FieldErrorHint, details.Hint),
		logging.Duration("elapsed", elapsed),
		logging.Alert("job_failure"),
	}
	if details.Cause != nil {
		attrs = append(attrs, logging.Error(details.Cause))
	} else {
		attrs = append(attrs, logging.Error(err))
	}
	attrs = append(attrs, logging.String(logging.FieldEventType, "job_failed"))
	logger.Error("job failed", logging.Args(attrs...)...)
}

func failureMessage(err error) string {
	if err == nil {
		return "job failed without error detail"
	}
	if errors.Is(err, admission.ErrAdmissionStall) {
		return services.Details(err).Message + "; the job was not run"
	}
	return err.Error()
}
