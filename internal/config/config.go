package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and bind address configuration.
type Paths struct {
	WorkDir  string `toml:"work_dir"`
	LogDir   string `toml:"log_dir"`
	APIBind  string `toml:"api_bind"`
	APIToken string `toml:"api_token"`
}

// Jobs contains worker capacity settings.
type Jobs struct {
	// MaxConcurrent is the number of jobs allowed in their compute phase at once.
	MaxConcurrent int `toml:"max_concurrent"`
	// ThreadsPerModel caps compute threads per engine instance. 0 uses every core.
	ThreadsPerModel int `toml:"threads_per_model"`
	// AdmissionTimeout bounds the wait for a worker slot, in seconds. 0 waits forever.
	AdmissionTimeout int `toml:"admission_timeout"`
}

// Engine contains WhisperX invocation settings.
type Engine struct {
	UVXBinary           string `toml:"uvx_binary"`
	WhisperXModel       string `toml:"whisperx_model"`
	WhisperXCUDAEnabled bool   `toml:"whisperx_cuda_enabled"`
	WhisperXVADMethod   string `toml:"whisperx_vad_method"`
	WhisperXHuggingFace string `toml:"whisperx_hf_token"`
	BatchSize           int    `toml:"batch_size"`
	ComputeType         string `toml:"compute_type"`
}

// Mail contains SMTP settings for delivering transcripts to receivers.
type Mail struct {
	Host            string `toml:"host"`
	Port            int    `toml:"port"`
	Username        string `toml:"username"`
	Password        string `toml:"password"`
	Sender          string `toml:"sender"`
	TLSPolicy       string `toml:"tls_policy"`
	SSL             bool   `toml:"ssl"`
	RequestTimeout  int    `toml:"request_timeout"`
	SuccessSubject  string `toml:"success_subject"`
	SuccessTemplate string `toml:"success_template"`
	ErrorSubject    string `toml:"error_subject"`
	ErrorTemplate   string `toml:"error_template"`
}

// Notifications contains configuration for operator ntfy alerts.
type Notifications struct {
	NtfyTopic            string `toml:"ntfy_topic"`
	RequestTimeout       int    `toml:"request_timeout"`
	JobFailures          bool   `toml:"job_failures"`
	NotificationFailures bool   `toml:"notification_failures"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Config encapsulates all configuration values for scraibe.
//
// Configuration sections by subsystem:
//   - Paths: scratch, log and socket directories plus the status API bind address
//   - Jobs: worker capacity and admission wait
//   - Engine: WhisperX model and runtime options
//   - Mail: SMTP delivery of transcripts and failure notices
//   - Notifications: ntfy operator alerts
//   - Logging: log format, level, and retention
type Config struct {
	Paths         Paths         `toml:"paths"`
	Jobs          Jobs          `toml:"jobs"`
	Engine        Engine        `toml:"engine"`
	Mail          Mail          `toml:"mail"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/scraibe/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("scraibe.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon operation.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.WorkDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// SocketPath returns the IPC socket location for the daemon.
func (c *Config) SocketPath() string {
	return filepath.Join(c.Paths.LogDir, "scraibe.sock")
}

// LogPath returns the daemon log file location.
func (c *Config) LogPath() string {
	return filepath.Join(c.Paths.LogDir, "scraibe.log")
}

// PIDPath returns the location of the running daemon's pid file.
func (c *Config) PIDPath() string {
	return filepath.Join(c.Paths.LogDir, "scraibe.pid")
}

// LockPath returns the single-instance lock file location for the daemon.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.LogDir, "scraibe.lock")
}

// AdmissionTimeout returns the bounded admission wait, or zero for unbounded.
func (c *Config) AdmissionTimeout() time.Duration {
	if c.Jobs.AdmissionTimeout <= 0 {
		return 0
	}
	return time.Duration(c.Jobs.AdmissionTimeout) * time.Second
}

// MailConfigured reports whether an SMTP host is set.
func (c *Config) MailConfigured() bool {
	return strings.TrimSpace(c.Mail.Host) != ""
}

// UVXBinary returns the uvx executable used to launch WhisperX.
func (c *Config) UVXBinary() string {
	if bin := strings.TrimSpace(c.Engine.UVXBinary); bin != "" {
		return bin
	}
	return defaultUVXBinary
}

// FFmpegBinary returns the ffmpeg executable name WhisperX relies on for decoding.
func (c *Config) FFmpegBinary() string {
	return "ffmpeg"
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
