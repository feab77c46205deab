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

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and bind address configuration.
type Paths struct {
	DataDir string `toml:"data_dir"`
	LogDir  string `toml:"log_dir"`
	APIBind string `toml:"api_bind"`
}

// Jobs controls the in-process executor.
type Jobs struct {
	MaxWorkers        int `toml:"max_workers"`
	QueueWarnDepth    int `toml:"queue_warn_depth"`
	StaleAfterMinutes int `toml:"stale_after_minutes"`
}

// Transcription configures audio normalization and the whisperx engine.
type Transcription struct {
	WindowSeconds int    `toml:"window_seconds"`
	FFmpegBinary  string `toml:"ffmpeg_binary"`
	UVXBinary     string `toml:"uvx_binary"`
	WhisperXModel string `toml:"whisperx_model"`
	Language      string `toml:"language"`
	ComputeType   string `toml:"compute_type"`
	KeepWorkFiles bool   `toml:"keep_work_files"`
}

// Retrieval tunes chunk building and ranking.
type Retrieval struct {
	TargetChars     int  `toml:"target_chars"`
	OverlapChars    int  `toml:"overlap_chars"`
	TopK            int  `toml:"top_k"`
	LengthNormalize bool `toml:"length_normalize"`
}

// LLM contains the OpenAI-compatible endpoint used for answer synthesis.
type LLM struct {
	APIKey           string `toml:"api_key"`
	BaseURL          string `toml:"base_url"`
	Model            string `toml:"model"`
	TimeoutSeconds   int    `toml:"timeout_seconds"`
	MaxContextTokens int    `toml:"max_context_tokens"`
}

// Storage holds free-space thresholds for the data directory.
type Storage struct {
	MinFreePercent int `toml:"min_free_percent"`
	MinFreeMB      int `toml:"min_free_mb"`
}

// Notifications configures ntfy job alerts. An empty topic disables them.
type Notifications struct {
	NtfyTopic             string `toml:"ntfy_topic"`
	RequestTimeoutSeconds int    `toml:"request_timeout_seconds"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for studyscribe.
type Config struct {
	Paths         Paths         `toml:"paths"`
	Jobs          Jobs          `toml:"jobs"`
	Transcription Transcription `toml:"transcription"`
	Retrieval     Retrieval     `toml:"retrieval"`
	LLM           LLM           `toml:"llm"`
	Storage       Storage       `toml:"storage"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/studyscribe/config.toml")
}

// Load locates, parses, and validates a configuration file. A .env file in the
// working directory is applied first without overriding the real environment.
func Load(path string) (*Config, string, bool, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, "", false, fmt.Errorf("load .env: %w", err)
	}

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

	projectPath, err := filepath.Abs("studyscribe.toml")
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

// EnsureDirectories creates the data, sessions, and log directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.SessionsDir(), c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// DatabasePath is the SQLite job store location.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Paths.DataDir, "jobs.db")
}

// LockPath is the daemon single-instance lock file.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.DataDir, "studyscribe.lock")
}

// LogPath is the daemon log file written alongside stdout.
func (c *Config) LogPath() string {
	return filepath.Join(c.Paths.LogDir, "studyscribe.log")
}

// SessionsDir is the default root for per-session working directories.
func (c *Config) SessionsDir() string {
	return filepath.Join(c.Paths.DataDir, "sessions")
}

// StaleAfter is the age past which a Running job is reported as stale.
func (c *Config) StaleAfter() time.Duration {
	return time.Duration(c.Jobs.StaleAfterMinutes) * time.Minute
}

// LLMTimeout is the per-request deadline for answer synthesis.
func (c *Config) LLMTimeout() time.Duration {
	return time.Duration(c.LLM.TimeoutSeconds) * time.Second
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
