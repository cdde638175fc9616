package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"revoice/internal/api"
	"revoice/internal/poller"
	"revoice/internal/stage"
)

func newSubmitCommand(ctx *commandContext) *cobra.Command {
	var language string
	var wait bool
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "submit <youtube-url>",
		Short: "Submit a video for re-voicing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := ctx.client()
			resp, err := c.Submit(cmd.Context(), api.SubmitRequest{Source: args[0], Language: language})
			if err != nil {
				return wrapConnError(err, ctx.baseURL())
			}
			if !wait {
				if jsonOut {
					return writeJSON(cmd, resp)
				}
				out := cmd.OutOrStdout()
				if resp.Existing {
					fmt.Fprintf(out, "Job %s already in progress for this video and language\n", resp.JobID)
				} else {
					fmt.Fprintf(out, "Submitted job %s\n", resp.JobID)
				}
				return nil
			}
			return watchJob(cmd, ctx, resp.JobID, jsonOut)
		},
	}
	cmd.Flags().StringVarP(&language, "language", "l", "", "Target language (e.g. es, fr, pt-BR)")
	cmd.Flags().BoolVarP(&wait, "wait", "w", false, "Wait for the job to finish")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output JSON")
	_ = cmd.MarkFlagRequired("language")
	return cmd
}

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool
	cmd := &cobra.Command{
		Use:   "status <job-id>",
		Short: "Show the current state of a job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			record, err := ctx.client().Job(cmd.Context(), args[0])
			if err != nil {
				return wrapConnError(err, ctx.baseURL())
			}
			if jsonOut {
				return writeJSON(cmd, record)
			}
			out := cmd.OutOrStdout()
			printJob(out, *record, shouldColorize(out))
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output JSON")
	return cmd
}

func newLookupCommand(ctx *commandContext) *cobra.Command {
	var language string
	var jsonOut bool
	cmd := &cobra.Command{
		Use:   "lookup <youtube-url>",
		Short: "Find the latest completed translation of a video",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			record, err := ctx.client().LatestCompleted(cmd.Context(), args[0], language)
			if err != nil {
				return wrapConnError(err, ctx.baseURL())
			}
			if jsonOut {
				return writeJSON(cmd, record)
			}
			out := cmd.OutOrStdout()
			printJob(out, *record, shouldColorize(out))
			return nil
		},
	}
	cmd.Flags().StringVarP(&language, "language", "l", "", "Target language")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output JSON")
	_ = cmd.MarkFlagRequired("language")
	return cmd
}

func newWatchCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool
	cmd := &cobra.Command{
		Use:   "watch <job-id>",
		Short: "Poll a job until it finishes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return watchJob(cmd, ctx, args[0], jsonOut)
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output JSON")
	return cmd
}

func newJobsCommand(ctx *commandContext) *cobra.Command {
	var statuses []string
	var limit int
	var jsonOut bool
	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "List jobs, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			records, err := ctx.client().List(cmd.Context(), statuses, limit)
			if err != nil {
				return wrapConnError(err, ctx.baseURL())
			}
			if jsonOut {
				return writeJSON(cmd, api.JobListResponse{Jobs: records})
			}
			out := cmd.OutOrStdout()
			if len(records) == 0 {
				fmt.Fprintln(out, "No jobs")
				return nil
			}
			headers := []string{"ID", "Status", "Stage", "Source", "Lang", "Outcome", "Updated"}
			fmt.Fprintln(out, renderTable(headers, jobRows(records), nil))
			return nil
		},
	}
	cmd.Flags().StringSliceVarP(&statuses, "status", "s", nil, "Filter by status (pending, processing, done, error)")
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Maximum number of jobs to show")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output JSON")
	return cmd
}

// watchJob polls id and renders stage progress until the job finishes. A job
// that ends in error is reported as a command error.
func watchJob(cmd *cobra.Command, ctx *commandContext, id string, jsonOut bool) error {
	cfg, _ := ctx.ensureConfig()
	c := ctx.client()
	p := poller.Poller{Fetch: c.Job}
	if cfg != nil {
		p.Interval = cfg.PollInterval()
	}

	out := cmd.OutOrStdout()
	var bar *progressbar.ProgressBar
	if !jsonOut {
		bar = newStageBar(out, id)
		p.OnUpdate = func(r api.JobRecord) { advanceBar(bar, r) }
	}

	runCtx := cmd.Context()
	if runCtx == nil {
		runCtx = context.Background()
	}
	record, err := p.Wait(runCtx, id)
	if bar != nil {
		_ = bar.Finish()
		fmt.Fprintln(out)
	}
	if err != nil {
		return wrapConnError(err, ctx.baseURL())
	}
	if jsonOut {
		if werr := writeJSON(cmd, record); werr != nil {
			return werr
		}
	} else {
		printJob(out, *record, shouldColorize(out))
	}
	if record.Status == "error" {
		return errors.New("job " + id + " failed: " + record.ErrorMessage())
	}
	return nil
}

func newStageBar(out io.Writer, id string) *progressbar.ProgressBar {
	return progressbar.NewOptions(len(stage.Order()),
		progressbar.OptionSetWriter(out),
		progressbar.OptionSetDescription("job "+shortID(id)+" pending"),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(24),
		progressbar.OptionEnableColorCodes(shouldColorize(out)),
	)
}

// advanceBar maps the job's current stage onto the bar. A stage counts as
// complete once the job has moved past it.
func advanceBar(bar *progressbar.ProgressBar, r api.JobRecord) {
	done := 0
	if idx := slices.Index(stage.Order(), r.Stage); idx >= 0 {
		done = idx
	}
	if r.Status == "done" {
		done = len(stage.Order())
	}
	desc := "job " + shortID(r.ID) + " " + r.Status
	if r.Stage != "" && r.Status == "processing" {
		desc += " (" + strings.ToLower(r.Stage) + ")"
	}
	bar.Describe(desc)
	_ = bar.Set(done)
}
