package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"studyscribe/internal/api"
)

func newJobCommand(ctx *commandContext) *cobra.Command {
	jobCmd := &cobra.Command{
		Use:   "job",
		Short: "Inspect transcription jobs",
	}
	jobCmd.AddCommand(newJobShowCommand(ctx))
	jobCmd.AddCommand(newJobListCommand(ctx))
	jobCmd.AddCommand(newJobStaleCommand(ctx))
	return jobCmd
}

func newJobShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, closeFn, err := ctx.localService(cmd)
			if err != nil {
				return err
			}
			defer closeFn()

			job, err := svc.Describe(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if ctx.jsonOutput() {
				return writeJSON(cmd, job)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "ID:       %s\n", job.ID)
			fmt.Fprintf(out, "Status:   %s\n", job.Status)
			fmt.Fprintf(out, "Progress: %d%%\n", job.Progress)
			fmt.Fprintf(out, "Message:  %s\n", job.Message)
			if job.Result != "" {
				fmt.Fprintf(out, "Result:   %s\n", job.Result)
			}
			if job.ErrorKind != "" {
				fmt.Fprintf(out, "Error:    %s\n", job.ErrorKind)
			}
			fmt.Fprintf(out, "Source:   %s\n", job.SourcePath)
			fmt.Fprintf(out, "Session:  %s\n", job.SessionDir)
			fmt.Fprintf(out, "Updated:  %s\n", formatDisplayTime(job.UpdatedAt))
			return nil
		},
	}
}

func newJobListCommand(ctx *commandContext) *cobra.Command {
	var statuses []string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List jobs, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, closeFn, err := ctx.localService(cmd)
			if err != nil {
				return err
			}
			defer closeFn()

			list, err := svc.List(cmd.Context(), statuses...)
			if err != nil {
				return err
			}
			return printJobs(cmd, ctx, list, "No jobs")
		},
	}
	cmd.Flags().StringSliceVar(&statuses, "status", nil, "Filter by status (queued, running, success, error)")
	return cmd
}

func newJobStaleCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stale",
		Short: "List running jobs that stopped reporting progress",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, closeFn, err := ctx.localService(cmd)
			if err != nil {
				return err
			}
			defer closeFn()

			list, err := svc.Stale(cmd.Context())
			if err != nil {
				return err
			}
			return printJobs(cmd, ctx, list, "No stale jobs")
		},
	}
}

func printJobs(cmd *cobra.Command, ctx *commandContext, list []api.JobSummary, empty string) error {
	if ctx.jsonOutput() {
		return writeJSON(cmd, api.JobListResponse{Jobs: list})
	}
	out := cmd.OutOrStdout()
	if len(list) == 0 {
		fmt.Fprintln(out, empty)
		return nil
	}
	rows := make([][]string, 0, len(list))
	for _, job := range list {
		rows = append(rows, []string{
			job.ID,
			job.Status,
			strconv.Itoa(job.Progress) + "%",
			truncate(job.Message, 48),
			formatDisplayTime(job.UpdatedAt),
		})
	}
	fmt.Fprintln(out, renderTable(
		[]string{"ID", "Status", "Progress", "Message", "Updated"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft, alignLeft},
	))
	return nil
}

func truncate(value string, limit int) string {
	value = strings.TrimSpace(value)
	runes := []rune(value)
	if len(runes) <= limit {
		return value
	}
	return string(runes[:limit-1]) + "…"
}

func formatDisplayTime(value string) string {
	t := api.ParseTime(value)
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04:05")
}
