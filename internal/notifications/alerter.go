package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"scraibe/internal/config"
)

const userAgent = "scraibe/0.1.0"

// Alerter pushes operator-facing alerts.
type Alerter interface {
	JobFailed(ctx context.Context, jobID, receiver string, err error) error
	NotificationFailed(ctx context.Context, jobID, receiver string, err error) error
	AdmissionStalled(ctx context.Context, jobID string, waited time.Duration) error
	TestNotification(ctx context.Context) error
}

// NewAlerter builds an ntfy-backed alerter when a topic is configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewAlerter(cfg *config.Config) Alerter {
	if cfg == nil {
		return noopAlerter{}
	}
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopAlerter{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyAlerter{
		endpoint:             topic,
		client:               &http.Client{Timeout: timeout},
		jobFailures:          cfg.Notifications.JobFailures,
		notificationFailures: cfg.Notifications.NotificationFailures,
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyAlerter struct {
	endpoint             string
	client               *http.Client
	jobFailures          bool
	notificationFailures bool
}

func (n *ntfyAlerter) JobFailed(ctx context.Context, jobID, receiver string, err error) error {
	if !n.jobFailures {
		return nil
	}
	data := payload{
		title:   "scraibe - Job Failed",
		message: fmt.Sprintf("Job %s for %s failed: %s", shortJobID(jobID), strings.TrimSpace(receiver), errText(err)),
		tags:    []string{"scraibe", "job", "failed"},
	}
	return n.send(ctx, data)
}

func (n *ntfyAlerter) NotificationFailed(ctx context.Context, jobID, receiver string, err error) error {
	if !n.notificationFailures {
		return nil
	}
	data := payload{
		title:    "scraibe - Delivery Failed",
		message:  fmt.Sprintf("Could not notify %s about job %s: %s", strings.TrimSpace(receiver), shortJobID(jobID), errText(err)),
		tags:     []string{"scraibe", "mail", "alert"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyAlerter) AdmissionStalled(ctx context.Context, jobID string, waited time.Duration) error {
	data := payload{
		title:    "scraibe - Admission Stalled",
		message:  fmt.Sprintf("Job %s found no free worker within %s", shortJobID(jobID), waited.Round(time.Second)),
		tags:     []string{"scraibe", "queue", "stalled"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyAlerter) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "scraibe - Test",
		message:  "Notification system test",
		tags:     []string{"scraibe", "test"},
		priority: "low",
	}
	return n.send(ctx, data)
}

func (n *ntfyAlerter) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func shortJobID(id string) string {
	if i := strings.IndexByte(id, '-'); i > 0 {
		return id[:i]
	}
	return id
}

func errText(err error) string {
	if err == nil {
		return "unknown"
	}
	return strings.TrimSpace(err.Error())
}

type noopAlerter struct{}

func (noopAlerter) JobFailed(context.Context, string, string, error) error          { return nil }
func (noopAlerter) NotificationFailed(context.Context, string, string, error) error { return nil }
func (noopAlerter) AdmissionStalled(context.Context, string, time.Duration) error   { return nil }
func (noopAlerter) TestNotification(context.Context) error                          { return nil }
