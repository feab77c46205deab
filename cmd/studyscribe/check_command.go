package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"studyscribe/internal/preflight"
)

type checkView struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail"`
}

func newCheckCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Verify directories, disk space, ffmpeg, uvx and the answer LLM",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			results := preflight.RunAll(cmd.Context(), cfg)
			failed := 0
			views := make([]checkView, 0, len(results))
			rows := make([][]string, 0, len(results))
			for _, result := range results {
				if !result.Passed {
					failed++
				}
				views = append(views, checkView{Name: result.Name, Passed: result.Passed, Detail: result.Detail})
				rows = append(rows, []string{result.Name, passFail(result.Passed), result.Detail})
			}
			if ctx.jsonOutput() {
				if err := writeJSON(cmd, views); err != nil {
					return err
				}
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Check", "Result", "Detail"}, rows, nil))
			}
			if failed > 0 {
				return errors.New(pluralize(failed, "check failed", "checks failed"))
			}
			return nil
		},
	}
}

func passFail(ok bool) string {
	if ok {
		return "pass"
	}
	return "FAIL"
}

func pluralize(n int, one, many string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, one)
	}
	return fmt.Sprintf("%d %s", n, many)
}
