package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateJobs(); err != nil {
		return err
	}
	if err := c.validateTranscription(); err != nil {
		return err
	}
	if err := c.validateRetrieval(); err != nil {
		return err
	}
	if err := c.validateStorage(); err != nil {
		return err
	}
	if err := c.validateLLM(); err != nil {
		return err
	}
	if c.Notifications.RequestTimeoutSeconds < 1 {
		return errors.New("notifications.request_timeout_seconds must be at least 1")
	}
	if topic := c.Notifications.NtfyTopic; topic != "" && !strings.HasPrefix(topic, "http://") && !strings.HasPrefix(topic, "https://") {
		return fmt.Errorf("notifications.ntfy_topic must be a full http(s) URL, got %q", topic)
	}
	return c.validateLogging()
}

func (c *Config) validateJobs() error {
	if c.Jobs.MaxWorkers < 1 {
		return errors.New("jobs.max_workers must be at least 1")
	}
	if c.Jobs.QueueWarnDepth < 0 {
		return errors.New("jobs.queue_warn_depth must be zero (disabled) or positive")
	}
	if c.Jobs.StaleAfterMinutes < 0 {
		return errors.New("jobs.stale_after_minutes must be positive")
	}
	return nil
}

func (c *Config) validateTranscription() error {
	if c.Transcription.WindowSeconds < 1 {
		return errors.New("transcription.window_seconds must be at least 1")
	}
	switch c.Transcription.ComputeType {
	case "int8", "int16", "float16", "float32":
	default:
		return fmt.Errorf("transcription.compute_type: unsupported value %q", c.Transcription.ComputeType)
	}
	return nil
}

func (c *Config) validateRetrieval() error {
	if c.Retrieval.TargetChars < 1 {
		return errors.New("retrieval.target_chars must be at least 1")
	}
	if c.Retrieval.OverlapChars < 0 {
		return errors.New("retrieval.overlap_chars must not be negative")
	}
	if c.Retrieval.OverlapChars >= c.Retrieval.TargetChars {
		return fmt.Errorf("retrieval.overlap_chars (%d) must be smaller than retrieval.target_chars (%d)",
			c.Retrieval.OverlapChars, c.Retrieval.TargetChars)
	}
	if c.Retrieval.TopK < 1 {
		return errors.New("retrieval.top_k must be at least 1")
	}
	return nil
}

func (c *Config) validateStorage() error {
	if c.Storage.MinFreePercent < 0 || c.Storage.MinFreePercent > 100 {
		return errors.New("storage.min_free_percent must be between 0 and 100")
	}
	if c.Storage.MinFreeMB < 0 {
		return errors.New("storage.min_free_mb must not be negative")
	}
	return nil
}

func (c *Config) validateLLM() error {
	if c.LLM.TimeoutSeconds < 1 {
		return errors.New("llm.timeout_seconds must be at least 1")
	}
	if c.LLM.MaxContextTokens < 1 {
		return errors.New("llm.max_context_tokens must be at least 1")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}
