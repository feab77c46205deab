package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"studyscribe/internal/api"
	"studyscribe/internal/qa"
)

func newSearchCommand(ctx *commandContext) *cobra.Command {
	var sessions []string
	var topK int

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Rank transcript chunks against a query",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, closeFn, err := ctx.localService(cmd)
			if err != nil {
				return err
			}
			defer closeFn()

			resp, err := svc.Search(cmd.Context(), api.SearchRequest{
				Query:       strings.Join(args, " "),
				SessionDirs: sessions,
				TopK:        topK,
			})
			if err != nil {
				return err
			}
			if ctx.jsonOutput() {
				return writeJSON(cmd, resp)
			}
			out := cmd.OutOrStdout()
			printMissing(cmd, resp.Missing)
			if len(resp.Results) == 0 {
				fmt.Fprintln(out, "No matching chunks")
				return nil
			}
			rows := make([][]string, 0, len(resp.Results))
			for i, result := range resp.Results {
				rows = append(rows, []string{
					fmt.Sprintf("%d", i+1),
					fmt.Sprintf("%.2f", result.Score),
					fmt.Sprintf("%s-%s", qa.FormatTimestamp(result.TStart), qa.FormatTimestamp(result.TEnd)),
					truncate(result.Text, 72),
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"#", "Score", "Time", "Text"},
				rows,
				[]columnAlignment{alignRight, alignRight, alignLeft, alignLeft},
			))
			return nil
		},
	}
	cmd.Flags().StringSliceVarP(&sessions, "session", "s", nil, "Session directory or name (repeatable)")
	cmd.Flags().IntVarP(&topK, "top", "k", 0, "Number of chunks to return (defaults to retrieval.top_k)")
	return cmd
}

func newAskCommand(ctx *commandContext) *cobra.Command {
	var sessions []string
	var topK int

	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Answer a question from transcripts with citations",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, closeFn, err := ctx.localService(cmd)
			if err != nil {
				return err
			}
			defer closeFn()

			resp, err := svc.Ask(cmd.Context(), api.AskRequest{
				Question:    strings.Join(args, " "),
				SessionDirs: sessions,
				TopK:        topK,
			})
			if err != nil {
				return err
			}
			if ctx.jsonOutput() {
				return writeJSON(cmd, resp)
			}
			out := cmd.OutOrStdout()
			printMissing(cmd, resp.Missing)
			fmt.Fprintln(out, resp.Answer.Answer)
			cited := resp.Answer.CitedSources()
			if len(cited) == 0 {
				return nil
			}
			fmt.Fprintln(out)
			fmt.Fprintln(out, "Sources:")
			for _, source := range cited {
				fmt.Fprintf(out, "  [%d] %s  %s\n", source.ID, source.Title, source.Locator.SessionDir)
			}
			return nil
		},
	}
	cmd.Flags().StringSliceVarP(&sessions, "session", "s", nil, "Session directory or name (repeatable)")
	cmd.Flags().IntVarP(&topK, "top", "k", 0, "Number of chunks to use as context (defaults to retrieval.top_k)")
	return cmd
}

func printMissing(cmd *cobra.Command, missing []string) {
	for _, dir := range missing {
		fmt.Fprintf(cmd.ErrOrStderr(), "warn: no transcript in %s, skipped\n", dir)
	}
}
