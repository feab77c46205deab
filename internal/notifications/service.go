package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"studyscribe/internal/config"
)

const userAgent = "studyscribe/0.1"

// Service defines the notification surface used by the job service.
type Service interface {
	NotifyTranscriptionCompleted(ctx context.Context, audioPath, sessionDir string, segments int, elapsed time.Duration) error
	NotifyTranscriptionFailed(ctx context.Context, audioPath, message string) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg config.Notifications) Service {
	topic := strings.TrimSpace(cfg.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.RequestTimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ntfyService{
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
}

func (n *ntfyService) NotifyTranscriptionCompleted(ctx context.Context, audioPath, sessionDir string, segments int, elapsed time.Duration) error {
	elapsed = max(elapsed.Round(time.Second), 0)
	message := fmt.Sprintf("✅ Transcribed %s: %d segments in %s", displayName(audioPath), segments, elapsed)
	if sessionDir = strings.TrimSpace(sessionDir); sessionDir != "" {
		message = fmt.Sprintf("%s\nSession: %s", message, sessionDir)
	}
	return n.send(ctx, payload{
		title:   "studyscribe - Transcript Ready",
		message: message,
		tags:    []string{"studyscribe", "transcription", "completed"},
	})
}

func (n *ntfyService) NotifyTranscriptionFailed(ctx context.Context, audioPath, message string) error {
	message = strings.TrimSpace(message)
	if message == "" {
		message = "unknown error"
	}
	return n.send(ctx, payload{
		title:    "studyscribe - Transcription Failed",
		message:  fmt.Sprintf("❌ %s: %s", displayName(audioPath), message),
		tags:     []string{"studyscribe", "error", "alert"},
		priority: "high",
	})
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	return n.send(ctx, payload{
		title:    "studyscribe - Test",
		message:  "🧪 Notification system test",
		tags:     []string{"studyscribe", "test"},
		priority: "low",
	})
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
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

func displayName(audioPath string) string {
	audioPath = strings.TrimSpace(audioPath)
	if audioPath == "" {
		return "recording"
	}
	return filepath.Base(audioPath)
}

type noopService struct{}

func (noopService) NotifyTranscriptionCompleted(context.Context, string, string, int, time.Duration) error {
	return nil
}
func (noopService) NotifyTranscriptionFailed(context.Context, string, string) error { return nil }
func (noopService) TestNotification(context.Context) error                           { return nil }
