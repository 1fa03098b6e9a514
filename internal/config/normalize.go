package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeEngine()
	c.normalizeMail()
	c.normalizeNotifications()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.WorkDir) == "" {
		c.Paths.WorkDir = defaultWorkDir
	}
	if c.Paths.WorkDir, err = expandPath(c.Paths.WorkDir); err != nil {
		return fmt.Errorf("paths.work_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	c.Paths.APIToken = strings.TrimSpace(c.Paths.APIToken)
	if c.Paths.APIToken == "" {
		if value, ok := os.LookupEnv("SCRAIBE_API_TOKEN"); ok {
			c.Paths.APIToken = strings.TrimSpace(value)
		}
	}
	return nil
}

func (c *Config) normalizeEngine() {
	c.Engine.UVXBinary = strings.TrimSpace(c.Engine.UVXBinary)
	c.Engine.WhisperXModel = strings.TrimSpace(c.Engine.WhisperXModel)
	if c.Engine.WhisperXModel == "" {
		c.Engine.WhisperXModel = defaultWhisperXModel
	}
	c.Engine.WhisperXVADMethod = strings.ToLower(strings.TrimSpace(c.Engine.WhisperXVADMethod))
	if c.Engine.WhisperXVADMethod == "" {
		c.Engine.WhisperXVADMethod = defaultWhisperXVADMethod
	}
	c.Engine.ComputeType = strings.ToLower(strings.TrimSpace(c.Engine.ComputeType))
	c.Engine.WhisperXHuggingFace = strings.TrimSpace(c.Engine.WhisperXHuggingFace)
	if c.Engine.WhisperXHuggingFace == "" {
		if value, ok := os.LookupEnv("HF_TOKEN"); ok {
			c.Engine.WhisperXHuggingFace = strings.TrimSpace(value)
		}
	}
}

func (c *Config) normalizeMail() {
	c.Mail.Host = strings.TrimSpace(c.Mail.Host)
	c.Mail.Username = strings.TrimSpace(c.Mail.Username)
	c.Mail.Sender = strings.TrimSpace(c.Mail.Sender)
	if c.Mail.Sender == "" && strings.Contains(c.Mail.Username, "@") {
		c.Mail.Sender = c.Mail.Username
	}
	if c.Mail.Password == "" {
		if value, ok := os.LookupEnv("SCRAIBE_SMTP_PASSWORD"); ok {
			c.Mail.Password = value
		}
	}
	c.Mail.TLSPolicy = strings.ToLower(strings.TrimSpace(c.Mail.TLSPolicy))
	if c.Mail.TLSPolicy == "" {
		c.Mail.TLSPolicy = defaultMailTLSPolicy
	}
	if c.Mail.RequestTimeout <= 0 {
		c.Mail.RequestTimeout = defaultMailTimeout
	}
	if strings.TrimSpace(c.Mail.SuccessSubject) == "" {
		c.Mail.SuccessSubject = defaultSuccessSubject
	}
	if strings.TrimSpace(c.Mail.ErrorSubject) == "" {
		c.Mail.ErrorSubject = defaultErrorSubject
	}
	if strings.TrimSpace(c.Mail.SuccessTemplate) == "" {
		c.Mail.SuccessTemplate = defaultSuccessTemplate
	}
	if strings.TrimSpace(c.Mail.ErrorTemplate) == "" {
		c.Mail.ErrorTemplate = defaultErrorTemplate
	}
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNotifyRequestTimeout
	}
}

func (c *Config) normalizeLogging() {
	format := strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if format == "" {
		format = defaultLogFormat
	}
	c.Logging.Format = format

	level := strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if level == "" {
		level = defaultLogLevel
	}
	c.Logging.Level = level
}
