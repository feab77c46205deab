package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"studyscribe/internal/workspace"
)

type sessionView struct {
	Name          string `json:"name"`
	Path          string `json:"path"`
	Modified      string `json:"modified"`
	SizeBytes     int64  `json:"size_bytes"`
	HasTranscript bool   `json:"has_transcript"`
	HasChunks     bool   `json:"has_chunks"`
	HasWorkDir    bool   `json:"has_work_dir"`
}

func newSessionsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "sessions",
		Short: "List session directories under the data dir",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			sessions, err := workspace.ListSessions(cfg.SessionsDir())
			if err != nil {
				return fmt.Errorf("list sessions: %w", err)
			}
			if ctx.jsonOutput() {
				views := make([]sessionView, 0, len(sessions))
				for _, s := range sessions {
					views = append(views, sessionView{
						Name:          s.Name,
						Path:          s.Path,
						Modified:      s.ModTime.UTC().Format("2006-01-02T15:04:05Z07:00"),
						SizeBytes:     s.Size,
						HasTranscript: s.HasTranscript,
						HasChunks:     s.HasChunks,
						HasWorkDir:    s.HasWorkDir,
					})
				}
				return writeJSON(cmd, views)
			}
			out := cmd.OutOrStdout()
			if len(sessions) == 0 {
				fmt.Fprintf(out, "No sessions in %s\n", cfg.SessionsDir())
				return nil
			}
			rows := make([][]string, 0, len(sessions))
			for _, s := range sessions {
				rows = append(rows, []string{
					s.Name,
					yesNo(s.HasTranscript),
					yesNo(s.HasChunks),
					humanize.Bytes(uint64(s.Size)),
					humanize.Time(s.ModTime),
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Session", "Transcript", "Chunks", "Size", "Modified"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
			))
			return nil
		},
	}
}
