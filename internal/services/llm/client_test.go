package llm_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"studyscribe/internal/services"
	"studyscribe/internal/services/llm"
)

func completionServer(t *testing.T, handler func(w http.ResponseWriter, r *http.Request)) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(handler))
	t.Cleanup(server.Close)
	return server
}

func writeCompletion(t *testing.T, w http.ResponseWriter, content string) {
	t.Helper()
	payload := map[string]any{
		"id":      "cmpl-1",
		"object":  "chat.completion",
		"created": 1,
		"model":   "demo-model",
		"choices": []any{
			map[string]any{
				"index":         0,
				"finish_reason": "stop",
				"message": map[string]any{
					"role":    "assistant",
					"content": content,
				},
			},
		},
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		t.Errorf("encode response: %v", err)
	}
}

func newTestClient(server *httptest.Server, opts ...llm.Option) *llm.Client {
	opts = append([]llm.Option{llm.WithSleeper(func(context.Context, time.Duration) error { return nil })}, opts...)
	return llm.NewClient(llm.Config{APIKey: "test", BaseURL: server.URL + "/v1/", Model: "demo-model"}, opts...)
}

func TestCompleteJSONSendsJSONRequest(t *testing.T) {
	var body map[string]any
	server := completionServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test" {
			t.Errorf("unexpected authorization header %q", got)
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode request: %v", err)
		}
		writeCompletion(t, w, `{"answer":"ok"}`)
	})

	content, err := newTestClient(server).CompleteJSON(context.Background(), "system", "question")
	if err != nil {
		t.Fatalf("CompleteJSON: %v", err)
	}
	if content != `{"answer":"ok"}` {
		t.Fatalf("unexpected content %q", content)
	}
	if body["model"] != "demo-model" {
		t.Fatalf("unexpected model %v", body["model"])
	}
	format, _ := body["response_format"].(map[string]any)
	if format["type"] != "json_object" {
		t.Fatalf("expected json_object response format, got %v", body["response_format"])
	}
	messages, _ := body["messages"].([]any)
	if len(messages) != 2 {
		t.Fatalf("expected system and user messages, got %d", len(messages))
	}
}

func TestCompleteJSONRequiresConfiguration(t *testing.T) {
	client := llm.NewClient(llm.Config{BaseURL: "http://127.0.0.1:1/v1/", Model: "demo"})
	_, err := client.CompleteJSON(context.Background(), "system", "question")
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestCompleteJSONRetriesOnRateLimit(t *testing.T) {
	var calls atomic.Int32
	server := completionServer(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error":{"message":"slow down","type":"rate_limit"}}`))
			return
		}
		writeCompletion(t, w, `{"ok":true}`)
	})

	var waits []time.Duration
	client := newTestClient(server,
		llm.WithRetryBackoff(10*time.Millisecond, 15*time.Millisecond),
		llm.WithSleeper(func(_ context.Context, d time.Duration) error {
			waits = append(waits, d)
			return nil
		}),
	)
	if _, err := client.CompleteJSON(context.Background(), "", "question"); err != nil {
		t.Fatalf("CompleteJSON: %v", err)
	}
	if calls.Load() != 3 {
		t.Fatalf("expected 3 calls, got %d", calls.Load())
	}
	if len(waits) != 2 || waits[0] != 10*time.Millisecond || waits[1] != 15*time.Millisecond {
		t.Fatalf("unexpected backoff %v", waits)
	}
}

func TestCompleteJSONDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	server := completionServer(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"bad key"}}`))
	})

	_, err := newTestClient(server).CompleteJSON(context.Background(), "", "question")
	if !errors.Is(err, services.ErrGenerationFailure) {
		t.Fatalf("expected generation failure, got %v", err)
	}
	if calls.Load() != 1 {
		t.Fatalf("expected a single call, got %d", calls.Load())
	}
}

func TestHealthCheck(t *testing.T) {
	server := completionServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeCompletion(t, w, "```json\n{\"ok\":true}\n```")
	})
	if err := newTestClient(server).HealthCheck(context.Background()); err != nil {
		t.Fatalf("HealthCheck: %v", err)
	}
}

func TestHealthCheckUnexpectedReply(t *testing.T) {
	server := completionServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeCompletion(t, w, `{"ok":false}`)
	})
	if err := newTestClient(server).HealthCheck(context.Background()); err == nil {
		t.Fatal("expected health check to fail")
	}
}
