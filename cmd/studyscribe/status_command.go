package main

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	"studyscribe/internal/api"
	"studyscribe/internal/jobs"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon, queue and dependency status",
		RunE: func(cmd *cobra.Command, args []string) error {
			status, err := ctx.client().status(cmd.Context())
			running := err == nil
			if err != nil {
				if !errors.Is(err, errDaemonUnreachable) {
					return err
				}
				// Fall back to what the data directory can tell us.
				svc, closeFn, lerr := ctx.localService(cmd)
				if lerr != nil {
					return lerr
				}
				defer closeFn()
				if status, err = svc.Status(cmd.Context()); err != nil {
					return err
				}
			}
			if ctx.jsonOutput() {
				return writeJSON(cmd, struct {
					DaemonRunning bool `json:"daemon_running"`
					api.Status
				}{running, status})
			}
			renderStatus(cmd.OutOrStdout(), running, status)
			return nil
		},
	}
}

func renderStatus(out io.Writer, running bool, status api.Status) {
	colorize := shouldColorize(out)
	for _, line := range sectionHeader("Daemon", colorize) {
		fmt.Fprintln(out, line)
	}
	if running {
		fmt.Fprintf(out, "Running:   yes (pid %d)\n", status.PID)
		fmt.Fprintf(out, "Workers:   %d active / %d\n", status.Executor.Active, status.Executor.Workers)
		fmt.Fprintf(out, "Pending:   %d\n", status.Executor.Pending)
		fmt.Fprintf(out, "Sessions:  %d busy\n", status.ActiveSessions)
	} else {
		fmt.Fprintln(out, "Running:   no")
	}
	fmt.Fprintf(out, "Database:  %s\n", status.DatabasePath)
	fmt.Fprintf(out, "Data:      %s\n", status.SessionsDir)
	fmt.Fprintln(out)

	for _, line := range sectionHeader("Jobs", colorize) {
		fmt.Fprintln(out, line)
	}
	rows := make([][]string, 0, len(status.Jobs))
	for _, s := range jobs.AllStatuses() {
		rows = append(rows, []string{string(s), strconv.Itoa(status.Jobs[string(s)])})
	}
	fmt.Fprintln(out, renderTable([]string{"Status", "Count"}, rows, []columnAlignment{alignLeft, alignRight}))
	fmt.Fprintln(out)

	for _, line := range sectionHeader("Dependencies", colorize) {
		fmt.Fprintln(out, line)
	}
	deps := append([]api.DependencyStatus(nil), status.Dependencies...)
	sort.SliceStable(deps, func(i, j int) bool { return deps[i].Name < deps[j].Name })
	rows = rows[:0]
	for _, dep := range deps {
		detail := dep.Detail
		if dep.Available {
			detail = dep.Command
		}
		rows = append(rows, []string{dep.Name, yesNo(dep.Available), detail})
	}
	fmt.Fprintln(out, renderTable([]string{"Dependency", "Available", "Detail"}, rows, nil))
}
