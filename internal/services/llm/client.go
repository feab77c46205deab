package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"

	"studyscribe/internal/services"
)

const (
	defaultTimeout        = 60 * time.Second
	defaultRetryAttempts  = 4
	defaultRetryBaseDelay = 2 * time.Second
	defaultRetryMaxDelay  = 30 * time.Second
)

// Config captures the settings needed to reach an OpenAI-compatible endpoint.
type Config struct {
	APIKey         string
	BaseURL        string
	Model          string
	TimeoutSeconds int
}

// Client wraps the chat completion API of an OpenAI-compatible provider.
type Client struct {
	cfg     Config
	api     openai.Client
	timeout time.Duration

	retryMaxAttempts int
	retryBaseDelay   time.Duration
	retryMaxDelay    time.Duration
	sleeper          func(context.Context, time.Duration) error
	httpClient       *http.Client
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client handed to the SDK.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithRetryMaxAttempts overrides how many times a rate-limited call is tried.
func WithRetryMaxAttempts(attempts int) Option {
	return func(c *Client) {
		c.retryMaxAttempts = attempts
	}
}

// WithRetryBackoff overrides the retry backoff delays.
func WithRetryBackoff(baseDelay, maxDelay time.Duration) Option {
	return func(c *Client) {
		c.retryBaseDelay = baseDelay
		c.retryMaxDelay = maxDelay
	}
}

// WithSleeper overrides how retry waits are performed (tests).
func WithSleeper(sleeper func(context.Context, time.Duration) error) Option {
	return func(c *Client) {
		if sleeper != nil {
			c.sleeper = sleeper
		}
	}
}

// NewClient constructs a client from cfg.
func NewClient(cfg Config, opts ...Option) *Client {
	client := &Client{
		cfg: Config{
			APIKey:         strings.TrimSpace(cfg.APIKey),
			BaseURL:        strings.TrimSpace(cfg.BaseURL),
			Model:          strings.TrimSpace(cfg.Model),
			TimeoutSeconds: cfg.TimeoutSeconds,
		},
		timeout:          defaultTimeout,
		retryMaxAttempts: defaultRetryAttempts,
		retryBaseDelay:   defaultRetryBaseDelay,
		retryMaxDelay:    defaultRetryMaxDelay,
		sleeper:          sleepContext,
	}
	if cfg.TimeoutSeconds > 0 {
		client.timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	for _, opt := range opts {
		opt(client)
	}

	// Retries are handled here so rate limits are visible to callers and tests.
	sdkOpts := []option.RequestOption{
		option.WithAPIKey(client.cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if client.cfg.BaseURL != "" {
		sdkOpts = append(sdkOpts, option.WithBaseURL(client.cfg.BaseURL))
	}
	if client.httpClient != nil {
		sdkOpts = append(sdkOpts, option.WithHTTPClient(client.httpClient))
	}
	client.api = openai.NewClient(sdkOpts...)
	return client
}

// Model returns the configured model name.
func (c *Client) Model() string {
	return c.cfg.Model
}

// Configured reports whether the client has the key and model it needs.
func (c *Client) Configured() bool {
	return c.cfg.APIKey != "" && c.cfg.Model != ""
}

// CompleteJSON sends a JSON-only chat completion and returns the raw content.
func (c *Client) CompleteJSON(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	systemPrompt = strings.TrimSpace(systemPrompt)
	userPrompt = strings.TrimSpace(userPrompt)
	if userPrompt == "" {
		return "", services.Wrap(services.ErrValidation, "llm complete", "A question is required", nil)
	}
	if !c.Configured() {
		return "", services.Wrap(services.ErrConfiguration, "llm complete",
			"Answer generation is not configured; set llm.api_key and llm.model", nil)
	}
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, 2)
	if systemPrompt != "" {
		messages = append(messages, openai.SystemMessage(systemPrompt))
	}
	messages = append(messages, openai.UserMessage(userPrompt))
	params := openai.ChatCompletionNewParams{
		Model:       shared.ChatModel(c.cfg.Model),
		Messages:    messages,
		Temperature: openai.Float(0),
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{Type: "json_object"},
		},
	}
	content, err := c.completeWithRetry(ctx, params)
	if err != nil {
		return "", services.Wrap(services.ErrGenerationFailure, "llm complete", "", err)
	}
	return content, nil
}

// HealthCheck issues a tiny request to verify the key and model are usable.
func (c *Client) HealthCheck(ctx context.Context) error {
	content, err := c.CompleteJSON(ctx, "You must respond with JSON only.", `Respond with {"ok":true}`)
	if err != nil {
		return err
	}
	var parsed struct {
		OK bool `json:"ok"`
	}
	if err := DecodeLLMJSON(content, &parsed); err != nil {
		return fmt.Errorf("llm health: parse payload: %w", err)
	}
	if !parsed.OK {
		return errors.New("llm health: unexpected response")
	}
	return nil
}

func (c *Client) completeWithRetry(ctx context.Context, params openai.ChatCompletionNewParams) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	attempts := max(c.retryMaxAttempts, 1)
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		completion, err := c.api.Chat.Completions.New(ctx, params)
		if err == nil {
			if len(completion.Choices) == 0 {
				return "", errors.New("no completion choices returned")
			}
			content := strings.TrimSpace(completion.Choices[0].Message.Content)
			if content == "" {
				return "", fmt.Errorf("empty content (finish_reason=%q, refusal=%q)",
					completion.Choices[0].FinishReason, completion.Choices[0].Message.Refusal)
			}
			return content, nil
		}
		lastErr = err
		if attempt == attempts || !isRetryable(err) {
			break
		}
		if err := c.sleeper(ctx, c.backoffDelay(attempt)); err != nil {
			return "", err
		}
	}
	return "", lastErr
}

func (c *Client) backoffDelay(attempt int) time.Duration {
	delay := c.retryBaseDelay << (attempt - 1)
	if c.retryMaxDelay > 0 && (delay > c.retryMaxDelay || delay <= 0) {
		return c.retryMaxDelay
	}
	return delay
}

func isRetryable(err error) bool {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusTooManyRequests ||
			apiErr.StatusCode == http.StatusRequestTimeout ||
			apiErr.StatusCode >= http.StatusInternalServerError
	}
	return false
}

func sleepContext(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
