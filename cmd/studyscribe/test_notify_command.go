package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"studyscribe/internal/notifications"
)

func newTestNotifyCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "test-notify",
		Short: "Send a test notification to the configured ntfy topic",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if cfg.Notifications.NtfyTopic == "" {
				fmt.Fprintln(out, "Notifications are disabled; set notifications.ntfy_topic")
				return nil
			}
			if err := notifications.NewService(cfg.Notifications).TestNotification(cmd.Context()); err != nil {
				return fmt.Errorf("send test notification: %w", err)
			}
			fmt.Fprintf(out, "Test notification sent to %s\n", cfg.Notifications.NtfyTopic)
			return nil
		},
	}
}
