package main

import (
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"studyscribe/internal/api"
	"studyscribe/internal/config"
	"studyscribe/internal/jobs"
	"studyscribe/internal/logging"
	"studyscribe/internal/notifications"
	"studyscribe/internal/qa"
	"studyscribe/internal/services/llm"
	"studyscribe/internal/transcribe"
	"studyscribe/internal/workflow"
)

type commandContext struct {
	configFlag *string
	apiFlag    *string
	jsonFlag   *bool

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag, apiFlag *string, jsonFlag *bool) *commandContext {
	return &commandContext{
		configFlag: configFlag,
		apiFlag:    apiFlag,
		jsonFlag:   jsonFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) jsonOutput() bool {
	return c.jsonFlag != nil && *c.jsonFlag
}

func (c *commandContext) apiAddress() string {
	if c.apiFlag != nil && strings.TrimSpace(*c.apiFlag) != "" {
		return strings.TrimSpace(*c.apiFlag)
	}
	if c.config != nil {
		return c.config.Paths.APIBind
	}
	return ""
}

func (c *commandContext) client() *daemonClient {
	return newDaemonClient(c.apiAddress())
}

// cliLogger writes warnings and errors to stderr so command output stays clean.
func (c *commandContext) cliLogger(cmd *cobra.Command) *slog.Logger {
	format := "console"
	if c.config != nil {
		format = c.config.Logging.Format
	}
	logger, err := logging.New(logging.Options{Level: "warn", Format: format, Writer: cmd.ErrOrStderr()})
	if err != nil {
		return logging.NewNop()
	}
	return logger
}

// localService opens the job store and returns a service that can read jobs,
// search and ask. Submitting requires runLocal or the daemon.
func (c *commandContext) localService(cmd *cobra.Command) (*api.Service, func(), error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, nil, err
	}
	store, err := jobs.Open(cfg)
	if err != nil {
		return nil, nil, err
	}
	logger := c.cliLogger(cmd)
	svc := api.NewService(cfg, store, nil, nil, logger, answererOption(cfg, logger)...)
	return svc, func() { _ = store.Close() }, nil
}

// answererOption enables Ask when an LLM key is configured.
func answererOption(cfg *config.Config, logger *slog.Logger) []api.Option {
	if strings.TrimSpace(cfg.LLM.APIKey) == "" {
		return nil
	}
	client := llm.NewClient(llm.Config{
		APIKey:         cfg.LLM.APIKey,
		BaseURL:        cfg.LLM.BaseURL,
		Model:          cfg.LLM.Model,
		TimeoutSeconds: cfg.LLM.TimeoutSeconds,
	})
	answerer := qa.NewAnswerer(client,
		qa.WithMaxContextTokens(cfg.LLM.MaxContextTokens),
		qa.WithLogger(logger),
	)
	return []api.Option{api.WithAnswerer(answerer)}
}

// processingStack builds the store, executor and full service used by both
// the daemon and local transcription.
type processingStack struct {
	store    *jobs.Store
	executor *workflow.Executor
	service  *api.Service
}

func newProcessingStack(cfg *config.Config, logger *slog.Logger) (*processingStack, error) {
	store, err := jobs.Open(cfg)
	if err != nil {
		return nil, err
	}
	executor := workflow.NewExecutor(store, logger, cfg.Jobs.MaxWorkers,
		workflow.WithQueueWarnDepth(cfg.Jobs.QueueWarnDepth))
	pipeline := transcribe.NewPipeline(cfg, nil, nil, logger)
	opts := append(answererOption(cfg, logger), api.WithNotifier(notifications.NewService(cfg.Notifications)))
	service := api.NewService(cfg, store, executor, pipeline, logger, opts...)
	return &processingStack{store: store, executor: executor, service: service}, nil
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
