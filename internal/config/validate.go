package config

import (
	"errors"
	"fmt"
	"net"
	"strings"
	"text/template"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateJobs(); err != nil {
		return err
	}
	if err := c.validateEngine(); err != nil {
		return err
	}
	if err := c.validateMail(); err != nil {
		return err
	}
	if err := c.validateNotifications(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return c.validateAPI()
}

func (c *Config) validateJobs() error {
	if c.Jobs.MaxConcurrent <= 0 {
		return errors.New("jobs.max_concurrent must be positive")
	}
	if c.Jobs.ThreadsPerModel < 0 {
		return errors.New("jobs.threads_per_model must be >= 0 (0 uses all cores)")
	}
	if c.Jobs.AdmissionTimeout < 0 {
		return errors.New("jobs.admission_timeout must be >= 0 (0 waits indefinitely)")
	}
	return nil
}

func (c *Config) validateEngine() error {
	switch c.Engine.WhisperXVADMethod {
	case "pyannote", "silero":
	default:
		return fmt.Errorf("engine.whisperx_vad_method must be one of pyannote or silero, got %q", c.Engine.WhisperXVADMethod)
	}
	if c.Engine.BatchSize < 0 {
		return errors.New("engine.batch_size must be >= 0")
	}
	switch c.Engine.ComputeType {
	case "", "int8", "float16", "float32":
	default:
		return fmt.Errorf("engine.compute_type must be int8, float16 or float32, got %q", c.Engine.ComputeType)
	}
	return nil
}

func (c *Config) validateMail() error {
	switch c.Mail.TLSPolicy {
	case "mandatory", "opportunistic", "none":
	default:
		return fmt.Errorf("mail.tls_policy must be mandatory, opportunistic or none, got %q", c.Mail.TLSPolicy)
	}
	if _, err := template.New("success").Parse(c.Mail.SuccessTemplate); err != nil {
		return fmt.Errorf("mail.success_template: %w", err)
	}
	if _, err := template.New("error").Parse(c.Mail.ErrorTemplate); err != nil {
		return fmt.Errorf("mail.error_template: %w", err)
	}
	if !c.MailConfigured() {
		return nil
	}
	if c.Mail.Port <= 0 || c.Mail.Port > 65535 {
		return fmt.Errorf("mail.port must be between 1 and 65535, got %d", c.Mail.Port)
	}
	if c.Mail.Sender == "" {
		return errors.New("mail.sender must be set when mail.host is configured")
	}
	if c.Mail.Username != "" && c.Mail.Password == "" {
		return errors.New("mail.password must be set when mail.username is configured (or set SCRAIBE_SMTP_PASSWORD)")
	}
	return nil
}

func (c *Config) validateNotifications() error {
	if c.Notifications.NtfyTopic == "" {
		return nil
	}
	if !strings.HasPrefix(c.Notifications.NtfyTopic, "http://") && !strings.HasPrefix(c.Notifications.NtfyTopic, "https://") {
		return fmt.Errorf("notifications.ntfy_topic must be a full http(s) URL, got %q", c.Notifications.NtfyTopic)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn or error, got %q", c.Logging.Level)
	}
	if c.Logging.RetentionDays < 0 {
		return errors.New("logging.retention_days must be >= 0")
	}
	return nil
}

func (c *Config) validateAPI() error {
	if c.Paths.APIBind == "" {
		return nil
	}
	if _, _, err := net.SplitHostPort(c.Paths.APIBind); err != nil {
		return fmt.Errorf("paths.api_bind: %w", err)
	}
	return nil
}
