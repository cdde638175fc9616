package main

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/spf13/cobra"
)

func newHealthCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool
	cmd := &cobra.Command{
		Use:   "health",
		Short: "Show daemon, store and stage health",
		RunE: func(cmd *cobra.Command, args []string) error {
			health, err := ctx.client().Health(cmd.Context())
			if health == nil {
				return wrapConnError(err, ctx.baseURL())
			}
			if jsonOut {
				if werr := writeJSON(cmd, health); werr != nil {
					return werr
				}
				return err
			}

			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			daemonKind := statusOK
			if health.Status != "ok" {
				daemonKind = statusError
			}
			fmt.Fprintln(out, renderStatusLine("Daemon", daemonKind, "pid "+strconv.Itoa(health.PID), colorize))
			storeKind, storeMsg := statusOK, health.Store
			if health.StoreErr != "" {
				storeKind, storeMsg = statusError, health.Store+": "+health.StoreErr
			}
			fmt.Fprintln(out, renderStatusLine("Store", storeKind, storeMsg, colorize))
			fmt.Fprintln(out, renderStatusLine("Workflow", statusInfo,
				fmt.Sprintf("started=%s running=%d", yesNo(health.Workflow.Started), health.Workflow.Running), colorize))
			for _, h := range health.Workflow.StageHealth {
				kind := statusOK
				if !h.Ready {
					kind = statusWarn
				}
				fmt.Fprintln(out, renderStatusLine(h.Name, kind, h.Detail, colorize))
			}
			if health.Workflow.LastError != "" {
				fmt.Fprintln(out, renderStatusLine("Last error", statusError, health.Workflow.LastError, colorize))
			}

			if len(health.Workflow.JobStats) > 0 {
				keys := make([]string, 0, len(health.Workflow.JobStats))
				for k := range health.Workflow.JobStats {
					keys = append(keys, k)
				}
				sort.Strings(keys)
				rows := make([][]string, 0, len(keys))
				for _, k := range keys {
					rows = append(rows, []string{k, strconv.Itoa(health.Workflow.JobStats[k])})
				}
				fmt.Fprintln(out, renderTable([]string{"Status", "Jobs"}, rows, []columnAlignment{alignLeft, alignRight}))
			}
			return err
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output JSON")
	return cmd
}
