package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeJobs(); err != nil {
		return err
	}
	if err := c.normalizeTranscription(); err != nil {
		return err
	}
	c.normalizeRetrieval()
	c.normalizeLLM()
	if err := c.normalizeStorage(); err != nil {
		return err
	}
	c.normalizeNotifications()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	if c.Paths.APIBind == "" {
		c.Paths.APIBind = defaultAPIBind
	}
	return nil
}

func (c *Config) normalizeJobs() error {
	if err := envInt("JOBS_MAX_WORKERS", &c.Jobs.MaxWorkers); err != nil {
		return err
	}
	if err := envInt("JOBS_QUEUE_WARN", &c.Jobs.QueueWarnDepth); err != nil {
		return err
	}
	if c.Jobs.MaxWorkers == 0 {
		c.Jobs.MaxWorkers = defaultMaxWorkers
	}
	if c.Jobs.StaleAfterMinutes == 0 {
		c.Jobs.StaleAfterMinutes = defaultStaleAfterMinutes
	}
	return nil
}

func (c *Config) normalizeTranscription() error {
	if err := envInt("TRANSCRIBE_CHUNK_SECONDS", &c.Transcription.WindowSeconds); err != nil {
		return err
	}
	if c.Transcription.WindowSeconds == 0 {
		c.Transcription.WindowSeconds = defaultWindowSeconds
	}
	c.Transcription.FFmpegBinary = strings.TrimSpace(c.Transcription.FFmpegBinary)
	if c.Transcription.FFmpegBinary == "" {
		c.Transcription.FFmpegBinary = defaultFFmpegBinary
	}
	c.Transcription.UVXBinary = strings.TrimSpace(c.Transcription.UVXBinary)
	if c.Transcription.UVXBinary == "" {
		c.Transcription.UVXBinary = defaultUVXBinary
	}
	c.Transcription.WhisperXModel = strings.TrimSpace(c.Transcription.WhisperXModel)
	if c.Transcription.WhisperXModel == "" {
		c.Transcription.WhisperXModel = defaultWhisperXModel
	}
	c.Transcription.ComputeType = strings.ToLower(strings.TrimSpace(c.Transcription.ComputeType))
	if c.Transcription.ComputeType == "" {
		c.Transcription.ComputeType = defaultComputeType
	}
	c.Transcription.Language = strings.ToLower(strings.TrimSpace(c.Transcription.Language))
	return nil
}

func (c *Config) normalizeRetrieval() {
	if c.Retrieval.TargetChars == 0 {
		c.Retrieval.TargetChars = defaultTargetChars
	}
	if c.Retrieval.TopK == 0 {
		c.Retrieval.TopK = defaultTopK
	}
}

func (c *Config) normalizeLLM() {
	c.LLM.APIKey = strings.TrimSpace(c.LLM.APIKey)
	if c.LLM.APIKey == "" {
		for _, key := range []string{"STUDYSCRIBE_LLM_API_KEY", "GEMINI_API_KEY", "OPENAI_API_KEY"} {
			if value, ok := os.LookupEnv(key); ok && strings.TrimSpace(value) != "" {
				c.LLM.APIKey = strings.TrimSpace(value)
				break
			}
		}
	}
	c.LLM.BaseURL = strings.TrimSpace(c.LLM.BaseURL)
	if c.LLM.BaseURL == "" {
		c.LLM.BaseURL = defaultLLMBaseURL
	}
	c.LLM.Model = strings.TrimSpace(c.LLM.Model)
	if c.LLM.Model == "" {
		c.LLM.Model = defaultLLMModel
	}
	if c.LLM.TimeoutSeconds == 0 {
		c.LLM.TimeoutSeconds = defaultLLMTimeoutSeconds
	}
	if c.LLM.MaxContextTokens == 0 {
		c.LLM.MaxContextTokens = defaultMaxContextTokens
	}
}

func (c *Config) normalizeStorage() error {
	if err := envInt("DATA_DIR_MIN_FREE_PERCENT", &c.Storage.MinFreePercent); err != nil {
		return err
	}
	return envInt("DATA_DIR_MIN_FREE_MB", &c.Storage.MinFreeMB)
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.NtfyTopic == "" {
		c.Notifications.NtfyTopic = strings.TrimSpace(os.Getenv("NTFY_TOPIC"))
	}
	if c.Notifications.RequestTimeoutSeconds == 0 {
		c.Notifications.RequestTimeoutSeconds = defaultNtfyTimeout
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

// envInt overrides target when key is set to a non-empty value.
func envInt(key string, target *int) error {
	raw, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(raw) == "" {
		return nil
	}
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("%s: invalid integer %q", key, raw)
	}
	*target = value
	return nil
}
