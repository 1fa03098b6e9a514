package notifications

import (
	"context"
	"log/slog"
	"path/filepath"

	"scraibe/internal/config"
	"scraibe/internal/logging"
)

// Service sends job outcomes to the receiver that submitted the job.
type Service interface {
	// SendTranscript delivers the artifact files of a successful job.
	SendTranscript(ctx context.Context, receiver string, paths []string, opts map[string]any) error
	// SendErrorNotification tells the receiver that the job failed.
	SendErrorNotification(ctx context.Context, receiver, message string, opts map[string]any) error
}

// NewService builds an SMTP-backed service when mail.host is configured and a
// logging no-op otherwise.
func NewService(cfg *config.Config, logger *slog.Logger) (Service, error) {
	logger = logging.NewComponentLogger(logger, "notifier")
	if cfg == nil || !cfg.MailConfigured() {
		return logService{logger: logger}, nil
	}
	return newMailService(cfg, logger)
}

type logService struct {
	logger *slog.Logger
}

func (s logService) SendTranscript(ctx context.Context, receiver string, paths []string, _ map[string]any) error {
	names := make([]string, 0, len(paths))
	for _, p := range paths {
		names = append(names, filepath.Base(p))
	}
	logging.WithContext(ctx, s.logger).Info("mail disabled; transcript not sent",
		logging.String(logging.FieldReceiver, receiver),
		logging.Strings("files", names),
		logging.String(logging.FieldEventType, "notification_skipped"),
	)
	return nil
}

func (s logService) SendErrorNotification(ctx context.Context, receiver, message string, _ map[string]any) error {
	logging.WithContext(ctx, s.logger).Info("mail disabled; error notice not sent",
		logging.String(logging.FieldReceiver, receiver),
		logging.String("message", message),
		logging.String(logging.FieldEventType, "notification_skipped"),
	)
	return nil
}
