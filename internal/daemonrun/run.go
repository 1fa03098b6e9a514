package daemonrun

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"scraibe/internal/admission"
	"scraibe/internal/artifacts"
	"scraibe/internal/config"
	"scraibe/internal/daemon"
	"scraibe/internal/deps"
	"scraibe/internal/engine"
	"scraibe/internal/ipc"
	"scraibe/internal/jobs"
	"scraibe/internal/logging"
	"scraibe/internal/notifications"
	"scraibe/internal/preflight"
	"scraibe/internal/queue"
	"scraibe/internal/staging"
	"scraibe/internal/workflow"
)

// Options configures daemon process runtime behavior.
type Options struct {
	LogLevel    string
	Development bool
}

// Run starts the scraibe daemon and blocks until SIGINT, SIGTERM, or an IPC
// shutdown request. In-flight jobs are waited for; a second signal abandons them.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	runCtx, shutdown := context.WithCancel(signalCtx)
	defer shutdown()

	runID := time.Now().UTC().Format("20060102T150405.000Z")
	logPath := filepath.Join(cfg.Paths.LogDir, fmt.Sprintf("scraibe-%s.log", runID))
	level := opts.LogLevel
	if level == "" {
		level = cfg.Logging.Level
	}
	logger, err := logging.New(logging.Options{
		Level:            level,
		Format:           cfg.Logging.Format,
		OutputPaths:      []string{"stdout", logPath},
		ErrorOutputPaths: []string{"stderr", logPath},
		Development:      opts.Development,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	// Shared state on disk is only touched once the instance lock is held.
	d, err := build(cfg, logger)
	if err != nil {
		return err
	}
	if err := d.Start(runCtx); err != nil {
		return fmt.Errorf("start daemon: %w", err)
	}

	if err := ensureCurrentLogPointer(cfg.LogPath(), logPath); err != nil {
		fmt.Fprintf(os.Stderr, "warn: unable to update scraibe.log link: %v\n", err)
	}
	logging.CleanupOldLogs(logger, cfg.Logging.RetentionDays,
		logging.RetentionTarget{Dir: cfg.Paths.LogDir, Pattern: "scraibe-*.log", Exclude: []string{logPath}},
	)

	pidPath := cfg.PIDPath()
	if err := writePIDFile(pidPath); err != nil {
		_ = d.Stop(context.Background())
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	logDependencySnapshot(logger, cfg)
	for _, check := range preflight.Failed(preflight.RunAll(runCtx, cfg)) {
		logging.WarnWithContext(logger, "preflight check failed", "preflight_failed",
			logging.String("check", check.Name),
			logging.String(logging.FieldErrorHint, check.Detail),
			logging.String(logging.FieldImpact, "jobs may fail until this is fixed"),
		)
	}
	pruneLeftovers(runCtx, cfg, logger)

	ipcServer, err := ipc.NewServer(runCtx, cfg.SocketPath(), d, shutdown, logger)
	if err != nil {
		_ = d.Stop(context.Background())
		return fmt.Errorf("start IPC server: %w", err)
	}
	ipcServer.Serve()

	<-runCtx.Done()
	logger.Info("scraibe daemon shutting down", logging.String(logging.FieldEventType, "daemon_shutdown"))

	// A second signal cuts the wait for running jobs short.
	stopCtx, stopCancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stopCancel()
	stopErr := d.Stop(stopCtx)
	ipcServer.Close()
	return stopErr
}

func build(cfg *config.Config, logger *slog.Logger) (*daemon.Daemon, error) {
	gate, err := admission.New(cfg.Jobs.MaxConcurrent, cfg.AdmissionTimeout())
	if err != nil {
		return nil, fmt.Errorf("create admission gate: %w", err)
	}
	tracker := queue.NewTracker(0)
	manager := artifacts.NewManager(cfg.Paths.WorkDir, logger)
	executor := jobs.NewExecutor(engine.NewWhisperXFactory(cfg, logger), manager, logger)

	notifier, err := notifications.NewService(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("create notifier: %w", err)
	}
	alerter := notifications.NewAlerter(cfg)

	runner := workflow.NewRunner(gate, tracker, executor, notifier, alerter, manager, logger)
	d, err := daemon.New(cfg, logger, daemon.Components{
		Gate:     gate,
		Tracker:  tracker,
		Runner:   runner,
		Notifier: notifier,
		Alerter:  alerter,
	})
	if err != nil {
		return nil, fmt.Errorf("create daemon: %w", err)
	}
	return d, nil
}

// pruneLeftovers removes engine scratch and job output directories left by a
// previous run. Callers must hold the daemon lock.
func pruneLeftovers(ctx context.Context, cfg *config.Config, logger *slog.Logger) {
	for _, pattern := range []string{staging.ScratchPattern, artifacts.JobDirPattern} {
		staging.CleanStale(ctx, cfg.Paths.WorkDir, pattern, 0, logger)
	}
}

func ensureCurrentLogPointer(current, target string) error {
	if current == "" || target == "" {
		return nil
	}
	if err := os.Remove(current); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove existing log pointer: %w", err)
	}
	if err := os.Symlink(target, current); err == nil {
		return nil
	}
	if err := os.Link(target, current); err != nil {
		return fmt.Errorf("link log pointer: %w", err)
	}
	return nil
}

func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	return os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())+"\n"), 0o644)
}

func logDependencySnapshot(logger *slog.Logger, cfg *config.Config) {
	attrs := []logging.Attr{
		logging.String(logging.FieldEventType, "dependency_snapshot"),
		logging.Int("max_concurrent", cfg.Jobs.MaxConcurrent),
		logging.Int("threads_per_model", engine.ResolveThreads(cfg.Jobs.ThreadsPerModel)),
		logging.String("whisperx_model", cfg.Engine.WhisperXModel),
		logging.Bool("whisperx_cuda", cfg.Engine.WhisperXCUDAEnabled),
		logging.Bool("hf_token_present", cfg.Engine.WhisperXHuggingFace != ""),
		logging.Bool("mail_configured", cfg.MailConfigured()),
		logging.Bool("ntfy_configured", cfg.Notifications.NtfyTopic != ""),
	}
	for _, status := range deps.CheckBinaries(deps.Requirements(cfg)) {
		attrs = append(attrs,
			logging.Bool(strings.ToLower(status.Name)+"_available", status.Available),
		)
	}
	logger.Info("dependency snapshot", logging.Args(attrs...)...)
}
