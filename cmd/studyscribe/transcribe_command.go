package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"studyscribe/internal/api"
	"studyscribe/internal/jobs"
)

const pollInterval = time.Second

func newTranscribeCommand(ctx *commandContext) *cobra.Command {
	var sessionDir string
	var wait bool
	var local bool

	cmd := &cobra.Command{
		Use:   "transcribe <audio>",
		Short: "Queue an audio file for transcription",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := api.SubmitRequest{AudioPath: args[0], SessionDir: sessionDir}
			if local {
				return runLocalTranscription(cmd, ctx, req)
			}

			client := ctx.client()
			resp, err := client.submit(cmd.Context(), req)
			if err != nil {
				return err
			}
			if !wait {
				return printSubmitted(cmd, ctx, resp)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Queued job %s\n", resp.JobID)
			job, err := waitForJob(cmd.Context(), cmd.ErrOrStderr(), pollInterval, func(c context.Context) (api.Job, error) {
				return client.job(c, resp.JobID)
			})
			if err != nil {
				return err
			}
			return finishJob(cmd, ctx, job)
		},
	}

	cmd.Flags().StringVarP(&sessionDir, "session", "s", "", "Session directory (defaults to a new directory under the data dir)")
	cmd.Flags().BoolVarP(&wait, "wait", "w", false, "Wait for the job to finish, printing progress")
	cmd.Flags().BoolVar(&local, "local", false, "Transcribe in this process instead of the daemon")
	return cmd
}

// runLocalTranscription runs one job through an in-process executor.
func runLocalTranscription(cmd *cobra.Command, ctx *commandContext, req api.SubmitRequest) error {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}
	stack, err := newProcessingStack(cfg, ctx.cliLogger(cmd))
	if err != nil {
		return err
	}
	defer stack.store.Close()

	if err := stack.executor.Start(cmd.Context()); err != nil {
		return err
	}
	defer stack.executor.Stop()

	resp, err := stack.service.Submit(cmd.Context(), req)
	if err != nil {
		return err
	}
	job, err := waitForJob(cmd.Context(), cmd.ErrOrStderr(), 100*time.Millisecond, func(c context.Context) (api.Job, error) {
		return stack.service.Get(c, resp.JobID)
	})
	if err != nil {
		return err
	}
	return finishJob(cmd, ctx, job)
}

// waitForJob polls fetch until the job reaches a terminal status, printing
// each new progress message.
func waitForJob(ctx context.Context, out io.Writer, interval time.Duration, fetch func(context.Context) (api.Job, error)) (api.Job, error) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	last := ""
	for {
		job, err := fetch(ctx)
		if err != nil {
			return api.Job{}, err
		}
		line := fmt.Sprintf("%3d%% %s", job.Progress, job.Message)
		if line != last {
			fmt.Fprintln(out, line)
			last = line
		}
		status, _ := jobs.ParseStatus(job.Status)
		if status.IsTerminal() {
			return job, nil
		}
		select {
		case <-ctx.Done():
			return job, ctx.Err()
		case <-ticker.C:
		}
	}
}

func finishJob(cmd *cobra.Command, ctx *commandContext, job api.Job) error {
	if ctx.jsonOutput() {
		if err := writeJSON(cmd, job); err != nil {
			return err
		}
	} else if job.Status == string(jobs.StatusSuccess) {
		fmt.Fprintf(cmd.OutOrStdout(), "Transcript: %s\n", job.Result)
	}
	if job.Status == string(jobs.StatusError) {
		return fmt.Errorf("job %s failed: %s", job.ID, job.Message)
	}
	return nil
}

func printSubmitted(cmd *cobra.Command, ctx *commandContext, resp api.SubmitResponse) error {
	if ctx.jsonOutput() {
		return writeJSON(cmd, resp)
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Queued job %s\n", resp.JobID)
	fmt.Fprintf(out, "Session: %s\n", resp.SessionDir)
	fmt.Fprintf(out, "Follow with: studyscribe job show %s\n", resp.JobID)
	return nil
}
