package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newChunksCommand(ctx *commandContext) *cobra.Command {
	chunksCmd := &cobra.Command{
		Use:   "chunks",
		Short: "Manage retrieval chunks",
	}
	chunksCmd.AddCommand(&cobra.Command{
		Use:   "rebuild <session>",
		Short: "Rebuild chunks.json from transcript.json",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, closeFn, err := ctx.localService(cmd)
			if err != nil {
				return err
			}
			defer closeFn()

			resp, err := svc.RebuildChunks(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if ctx.jsonOutput() {
				return writeJSON(cmd, resp)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Rebuilt %d chunks in %s\n", resp.Chunks, resp.SessionDir)
			return nil
		},
	})
	return chunksCmd
}
