package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/gofrs/flock"

	"scraibe/internal/admission"
	"scraibe/internal/api"
	"scraibe/internal/config"
	"scraibe/internal/deps"
	"scraibe/internal/jobs"
	"scraibe/internal/logging"
	"scraibe/internal/notifications"
	"scraibe/internal/preflight"
	"scraibe/internal/queue"
	"scraibe/internal/services"
	"scraibe/internal/workflow"
)

// ErrNotRunning is returned by Submit before Start or after Stop.
var ErrNotRunning = errors.New("daemon is not running")

// Components are the shared pieces the daemon owns.
type Components struct {
	Gate     *admission.Gate
	Tracker  *queue.Tracker
	Runner   *workflow.Runner
	Notifier notifications.Service
	Alerter  notifications.Alerter
}

// Daemon coordinates the job runner and enforces single-instance execution.
type Daemon struct {
	cfg      *config.Config
	logger   *slog.Logger
	gate     *admission.Gate
	tracker  *queue.Tracker
	runner   *workflow.Runner
	notifier notifications.Service
	alerter  notifications.Alerter

	lockPath string
	lock     *flock.Flock
	api      *apiServer

	running atomic.Bool
	mu      sync.Mutex
	deps    []deps.Status
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, logger *slog.Logger, c Components) (*Daemon, error) {
	if cfg == nil || c.Gate == nil || c.Tracker == nil || c.Runner == nil || c.Notifier == nil {
		return nil, errors.New("daemon requires config, gate, tracker, runner, and notifier")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	if c.Alerter == nil {
		c.Alerter = notifications.NewAlerter(nil)
	}
	lockPath := cfg.LockPath()
	d := &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		gate:     c.Gate,
		tracker:  c.Tracker,
		runner:   c.Runner,
		notifier: c.Notifier,
		alerter:  c.Alerter,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}
	d.api = newAPIServer(cfg, d, logger)
	return d, nil
}

// Start acquires the daemon lock and opens the HTTP status API.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}
	if err := os.MkdirAll(filepath.Dir(d.lockPath), 0o755); err != nil {
		return fmt.Errorf("ensure lock dir: %w", err)
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another scraibe daemon instance is already running")
	}

	if err := d.api.start(ctx); err != nil {
		_ = d.lock.Unlock()
		return err
	}

	d.refreshDependencies()
	d.running.Store(true)
	d.logger.Info("scraibe daemon started",
		logging.String("lock", d.lockPath),
		logging.Int("max_concurrent", d.gate.Capacity()),
		logging.Duration("admission_timeout", d.gate.Timeout()),
		logging.String(logging.FieldEventType, "daemon_started"),
	)
	return nil
}

// Stop stops accepting jobs, waits for in-flight jobs until ctx ends, and
// releases the daemon lock.
func (d *Daemon) Stop(ctx context.Context) error {
	if !d.running.Swap(false) {
		return nil
	}
	d.logger.Info("scraibe daemon stopping",
		logging.Int64("in_flight", d.tracker.Depth()),
		logging.String(logging.FieldEventType, "daemon_stopping"),
	)

	waitErr := d.runner.Close(ctx)
	if waitErr != nil {
		logging.WarnWithContext(d.logger, "shutdown did not wait for every job", "daemon_shutdown_incomplete",
			logging.Error(waitErr),
			logging.String(logging.FieldErrorHint, "jobs still running are abandoned with the process"),
			logging.String(logging.FieldImpact, "their receivers get no notification"),
		)
	}
	d.api.stop()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.logger.Info("scraibe daemon stopped", logging.String(logging.FieldEventType, "daemon_stopped"))
	return waitErr
}

// Running reports whether the daemon accepts jobs.
func (d *Daemon) Running() bool {
	return d.running.Load()
}

// Submit validates req and hands it to the runner. Audio paths are made
// absolute so the worker does not depend on the caller's directory.
func (d *Daemon) Submit(ctx context.Context, req jobs.Request) (string, error) {
	if !d.running.Load() {
		return "", ErrNotRunning
	}
	req = req.Clone()
	for i, audio := range req.Audio {
		trimmed := strings.TrimSpace(audio)
		if trimmed == "" {
			continue
		}
		abs, err := filepath.Abs(trimmed)
		if err != nil {
			return "", services.Wrap(services.ErrValidation, "daemon", "resolve audio path", trimmed, err)
		}
		req.Audio[i] = abs
	}
	req.Receiver = strings.TrimSpace(req.Receiver)
	if err := req.Validate(); err != nil {
		return "", err
	}
	id, err := d.runner.Submit(ctx, req)
	if err != nil {
		if errors.Is(err, workflow.ErrRunnerClosed) {
			return "", ErrNotRunning
		}
		return "", err
	}
	return id, nil
}

// Status returns the current daemon status.
func (d *Daemon) Status(_ context.Context) api.DaemonStatus {
	d.mu.Lock()
	dependencies := api.FromDependencies(d.deps)
	d.mu.Unlock()

	return api.DaemonStatus{
		Running:      d.running.Load(),
		PID:          os.Getpid(),
		LockFilePath: d.lockPath,
		SocketPath:   d.cfg.SocketPath(),
		Queue:        api.FromStats(d.tracker.Stats(), d.gate.Capacity(), d.gate.InUse(), d.gate.Waiting()),
		Active:       api.FromJobs(d.tracker.Active()),
		Recent:       api.FromJobs(d.tracker.Recent()),
		Dependencies: dependencies,
	}
}

// LogPath returns the daemon log file location.
func (d *Daemon) LogPath() string {
	return d.cfg.LogPath()
}

// Job returns a tracked job by ID.
func (d *Daemon) Job(id string) (api.JobItem, bool) {
	job, ok := d.tracker.Get(id)
	if !ok {
		return api.JobItem{}, false
	}
	return api.FromJob(job), true
}

// TestNotification sends an ntfy test alert and, when receiver is set, a test
// mail through the configured notifier.
func (d *Daemon) TestNotification(ctx context.Context, receiver string) (bool, string, error) {
	var sent []string
	if strings.TrimSpace(d.cfg.Notifications.NtfyTopic) != "" {
		if err := d.alerter.TestNotification(ctx); err != nil {
			return false, "failed to send ntfy test", err
		}
		sent = append(sent, "ntfy")
	}
	if receiver = strings.TrimSpace(receiver); receiver != "" {
		if !d.cfg.MailConfigured() {
			return false, "mail.host not configured", nil
		}
		opts := map[string]any{"test": true}
		if err := d.notifier.SendTranscript(ctx, receiver, nil, opts); err != nil {
			return false, "failed to send test mail", err
		}
		sent = append(sent, "mail to "+receiver)
	}
	if len(sent) == 0 {
		return false, "no notification channel configured", nil
	}
	return true, "test notification sent via " + strings.Join(sent, " and "), nil
}

func (d *Daemon) refreshDependencies() {
	statuses := preflight.CheckSystemDeps(d.cfg)
	for _, missing := range deps.Missing(statuses) {
		logging.WarnWithContext(d.logger, "required binary unavailable", "dependency_missing",
			logging.String("dependency", missing.Name),
			logging.String("command", missing.Command),
			logging.String(logging.FieldErrorHint, missing.Detail),
			logging.String(logging.FieldImpact, "jobs fail until the binary is installed"),
		)
	}
	d.mu.Lock()
	d.deps = statuses
	d.mu.Unlock()
}
