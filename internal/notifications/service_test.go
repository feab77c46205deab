package notifications_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"studyscribe/internal/config"
	"studyscribe/internal/notifications"
)

type captured struct {
	title    string
	tags     string
	priority string
	body     string
}

func captureServer(t *testing.T, status int) (*httptest.Server, *captured) {
	t.Helper()
	got := &captured{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("unexpected method: %s", r.Method)
		}
		got.title = r.Header.Get("Title")
		got.tags = r.Header.Get("Tags")
		got.priority = r.Header.Get("Priority")
		body, _ := io.ReadAll(r.Body)
		got.body = string(body)
		w.WriteHeader(status)
	}))
	t.Cleanup(server.Close)
	return server, got
}

func TestNewServiceReturnsNoopWhenTopicMissing(t *testing.T) {
	svc := notifications.NewService(config.Notifications{})
	if err := svc.NotifyTranscriptionFailed(context.Background(), "/tmp/a.wav", "boom"); err != nil {
		t.Fatalf("expected noop notifier to return nil, got %v", err)
	}
}

func TestNtfyServiceFormatsPayloads(t *testing.T) {
	tests := []struct {
		name           string
		send           func(notifications.Service) error
		expectTitle    string
		expectMessage  string
		expectTags     string
		expectPriority string
	}{
		{
			name: "completed",
			send: func(svc notifications.Service) error {
				return svc.NotifyTranscriptionCompleted(context.Background(), "/audio/week3.m4a", "/data/sessions/week3", 42, 95*time.Second+400*time.Millisecond)
			},
			expectTitle:   "studyscribe - Transcript Ready",
			expectMessage: "✅ Transcribed week3.m4a: 42 segments in 1m35s\nSession: /data/sessions/week3",
			expectTags:    "studyscribe,transcription,completed",
		},
		{
			name: "failed",
			send: func(svc notifications.Service) error {
				return svc.NotifyTranscriptionFailed(context.Background(), "/audio/week3.m4a", "The audio file could not be read or decoded")
			},
			expectTitle:    "studyscribe - Transcription Failed",
			expectMessage:  "❌ week3.m4a: The audio file could not be read or decoded",
			expectTags:     "studyscribe,error,alert",
			expectPriority: "high",
		},
		{
			name:           "test",
			send:           func(svc notifications.Service) error { return svc.TestNotification(context.Background()) },
			expectTitle:    "studyscribe - Test",
			expectMessage:  "🧪 Notification system test",
			expectTags:     "studyscribe,test",
			expectPriority: "low",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			server, got := captureServer(t, http.StatusOK)
			svc := notifications.NewService(config.Notifications{NtfyTopic: server.URL, RequestTimeoutSeconds: 5})
			if err := tc.send(svc); err != nil {
				t.Fatalf("notification returned error: %v", err)
			}
			if got.title != tc.expectTitle {
				t.Fatalf("expected title %q, got %q", tc.expectTitle, got.title)
			}
			if got.body != tc.expectMessage {
				t.Fatalf("expected message %q, got %q", tc.expectMessage, got.body)
			}
			if got.tags != tc.expectTags {
				t.Fatalf("expected tags %q, got %q", tc.expectTags, got.tags)
			}
			if got.priority != tc.expectPriority {
				t.Fatalf("expected priority %q, got %q", tc.expectPriority, got.priority)
			}
		})
	}
}

func TestNtfyServiceReportsHTTPErrors(t *testing.T) {
	server, _ := captureServer(t, http.StatusForbidden)
	svc := notifications.NewService(config.Notifications{NtfyTopic: server.URL})
	err := svc.TestNotification(context.Background())
	if err == nil || !strings.Contains(err.Error(), "403") {
		t.Fatalf("expected 403 error, got %v", err)
	}
}
