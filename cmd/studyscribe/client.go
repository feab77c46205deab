package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"syscall"
	"time"

	"studyscribe/internal/api"
)

// daemonClient talks to the JSON API served by `studyscribe serve`.
type daemonClient struct {
	base string
	http *http.Client
}

func newDaemonClient(address string) *daemonClient {
	base := strings.TrimRight(strings.TrimSpace(address), "/")
	if base != "" && !strings.Contains(base, "://") {
		base = "http://" + base
	}
	return &daemonClient{
		base: base,
		http: &http.Client{Timeout: 3 * time.Minute},
	}
}

func (c *daemonClient) submit(ctx context.Context, req api.SubmitRequest) (api.SubmitResponse, error) {
	var resp api.SubmitResponse
	err := c.do(ctx, http.MethodPost, "/api/transcriptions", req, &resp)
	return resp, err
}

func (c *daemonClient) job(ctx context.Context, id string) (api.Job, error) {
	var job api.Job
	err := c.do(ctx, http.MethodGet, "/api/jobs/"+url.PathEscape(id), nil, &job)
	return job, err
}

func (c *daemonClient) status(ctx context.Context) (api.Status, error) {
	var status api.Status
	err := c.do(ctx, http.MethodGet, "/api/status", nil, &status)
	return status, err
}

func (c *daemonClient) do(ctx context.Context, method, path string, body, out any) error {
	if c.base == "" {
		return errors.New("daemon address is not configured; set paths.api_bind or pass --api")
	}
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return wrapDialError(err, c.base)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		var apiErr api.ErrorResponse
		if decodeErr := json.NewDecoder(resp.Body).Decode(&apiErr); decodeErr != nil || apiErr.Error == "" {
			return fmt.Errorf("daemon returned %s", resp.Status)
		}
		return errors.New(apiErr.Error)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

var errDaemonUnreachable = errors.New("daemon unreachable")

func wrapDialError(err error, base string) error {
	if errors.Is(err, syscall.ECONNREFUSED) {
		return fmt.Errorf("%w: nothing is listening on %s; start it with `studyscribe serve`", errDaemonUnreachable, base)
	}
	return fmt.Errorf("%w: %v", errDaemonUnreachable, err)
}
