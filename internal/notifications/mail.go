package notifications

import (
	"context"
	"log/slog"
	"time"

	"github.com/wneessen/go-mail"

	"scraibe/internal/config"
	"scraibe/internal/logging"
	"scraibe/internal/services"
)

// transport is the subset of *mail.Client used for delivery.
type transport interface {
	DialAndSendWithContext(ctx context.Context, messages ...*mail.Msg) error
}

type mailService struct {
	sender  string
	timeout time.Duration
	client  transport
	success messageTemplate
	failure messageTemplate
	logger  *slog.Logger
}

func newMailService(cfg *config.Config, logger *slog.Logger) (*mailService, error) {
	client, err := newClient(cfg.Mail)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "notifications", "smtp client", cfg.Mail.Host, err)
	}
	return newMailServiceWithTransport(cfg.Mail, client, logger)
}

func newMailServiceWithTransport(cfg config.Mail, client transport, logger *slog.Logger) (*mailService, error) {
	success, err := parseMessageTemplate("success", cfg.SuccessSubject, cfg.SuccessTemplate)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "notifications", "templates", "", err)
	}
	failure, err := parseMessageTemplate("error", cfg.ErrorSubject, cfg.ErrorTemplate)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "notifications", "templates", "", err)
	}
	timeout := time.Duration(cfg.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &mailService{
		sender:  cfg.Sender,
		timeout: timeout,
		client:  client,
		success: success,
		failure: failure,
		logger:  logger,
	}, nil
}

func newClient(cfg config.Mail) (*mail.Client, error) {
	timeout := time.Duration(cfg.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	opts := []mail.Option{
		mail.WithPort(cfg.Port),
		mail.WithTimeout(timeout),
	}
	switch cfg.TLSPolicy {
	case "none":
		opts = append(opts, mail.WithTLSPolicy(mail.NoTLS))
	case "opportunistic":
		opts = append(opts, mail.WithTLSPolicy(mail.TLSOpportunistic))
	default:
		opts = append(opts, mail.WithTLSPolicy(mail.TLSMandatory))
	}
	if cfg.SSL {
		opts = append(opts, mail.WithSSL())
	}
	if cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.Username),
			mail.WithPassword(cfg.Password),
		)
	}
	return mail.NewClient(cfg.Host, opts...)
}

func (s *mailService) SendTranscript(ctx context.Context, receiver string, paths []string, opts map[string]any) error {
	subject, body, err := s.success.render(newTemplateData(receiver, paths, "", opts))
	if err != nil {
		return services.Wrap(services.ErrConfiguration, "notifications", "render success mail", "", err)
	}
	msg, err := s.compose(receiver, subject, body)
	if err != nil {
		return err
	}
	for _, path := range paths {
		msg.AttachFile(path)
	}
	return s.deliver(ctx, msg, receiver, "transcript", len(paths))
}

func (s *mailService) SendErrorNotification(ctx context.Context, receiver, message string, opts map[string]any) error {
	subject, body, err := s.failure.render(newTemplateData(receiver, nil, message, opts))
	if err != nil {
		return services.Wrap(services.ErrConfiguration, "notifications", "render error mail", "", err)
	}
	msg, err := s.compose(receiver, subject, body)
	if err != nil {
		return err
	}
	return s.deliver(ctx, msg, receiver, "error", 0)
}

func (s *mailService) compose(receiver, subject, body string) (*mail.Msg, error) {
	msg := mail.NewMsg()
	if err := msg.From(s.sender); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "notifications", "set sender", s.sender, err)
	}
	if err := msg.To(receiver); err != nil {
		return nil, services.Wrap(services.ErrValidation, "notifications", "set receiver", receiver, err)
	}
	msg.Subject(subject)
	msg.SetDate()
	msg.SetMessageID()
	msg.SetBodyString(mail.TypeTextPlain, body)
	return msg, nil
}

func (s *mailService) deliver(ctx context.Context, msg *mail.Msg, receiver, kind string, attachments int) error {
	sendCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	if err := s.client.DialAndSendWithContext(sendCtx, msg); err != nil {
		return services.Wrap(services.ErrTransient, "notifications", "send "+kind+" mail", receiver, err)
	}
	logging.WithContext(ctx, s.logger).Info("mail sent",
		logging.String(logging.FieldReceiver, receiver),
		logging.String("kind", kind),
		logging.Int("attachments", attachments),
		logging.Duration("elapsed", time.Since(start)),
		logging.String(logging.FieldEventType, "notification_sent"),
	)
	return nil
}

var _ Service = (*mailService)(nil)
