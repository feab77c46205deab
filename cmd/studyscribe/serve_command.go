package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"studyscribe/internal/daemon"
	"studyscribe/internal/logging"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the transcription daemon and HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			signalCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			cfg, err := ctx.ensureConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			logger, err := logging.NewFromConfig(cfg)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}

			stack, err := newProcessingStack(cfg, logger)
			if err != nil {
				logger.Error("open job store", logging.Error(err))
				return err
			}
			d, err := daemon.New(cfg, stack.store, stack.executor, stack.service, logger)
			if err != nil {
				_ = stack.store.Close()
				return fmt.Errorf("create daemon: %w", err)
			}
			defer d.Close()

			if err := d.Start(signalCtx); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "studyscribe listening on http://%s\n", d.Addr())

			<-signalCtx.Done()
			logger.Info("studyscribe daemon shutting down")
			return nil
		},
	}
}
