package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"shortsadmin/internal/admin"
	"shortsadmin/internal/api"
	"shortsadmin/internal/config"
	"shortsadmin/internal/poller"
)

func newJobsCommand(ctx *commandContext) *cobra.Command {
	jobsCmd := &cobra.Command{
		Use:   "jobs",
		Short: "Inspect background generation jobs",
	}
	jobsCmd.AddCommand(newJobsListCommand(ctx))
	jobsCmd.AddCommand(newJobsShowCommand(ctx))
	return jobsCmd
}

func newJobsListCommand(ctx *commandContext) *cobra.Command {
	var statuses []string
	var jobType string
	var offset int
	var limit int
	var watch bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List jobs, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withConsole(func(c *console) error {
				if limit <= 0 {
					limit = c.cfg.Paging.JobsLimit
				}
				view := c.service.JobsView(limit)
				view.SetFilters(admin.NewJobFilter(statuses, jobType))
				view.Seek(offset)

				out := cmd.OutOrStdout()
				colorize := shouldColorize(out)
				if watch {
					if err := c.session.Require(); err != nil {
						return err
					}
					handle := view.Follow(cmd.Context(), poller.Options{
						Name:     "jobs.list",
						Interval: config.Interval(c.cfg.Polling.JobsListMS),
						Logger:   c.logger,
					}, func(page api.Page[api.Job], err error) bool {
						redraw(out, colorize)
						if err != nil {
							fmt.Fprintln(out, renderNotice(statusError, explain(err).Error(), colorize))
							return true
						}
						fmt.Fprintln(out, renderJobsTable(page.Items, colorize, true))
						fmt.Fprintln(out, pageFooter(page))
						return true
					})
					defer handle.Stop()
					<-cmd.Context().Done()
					return nil
				}

				page, err := view.Fetch(cmd.Context())
				if err != nil {
					return explain(err)
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, page)
				}
				fmt.Fprintln(out, renderJobsTable(page.Items, colorize, true))
				fmt.Fprintln(out, pageFooter(page))
				return nil
			})
		},
	}
	cmd.Flags().StringSliceVar(&statuses, "status", nil, "Filter by status (comma-separated or repeated)")
	cmd.Flags().StringVar(&jobType, "type", "", "Filter by job type")
	cmd.Flags().IntVar(&offset, "offset", 0, "Skip this many jobs")
	cmd.Flags().IntVar(&limit, "limit", 0, "Page size (default from config)")
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "Keep refreshing until interrupted")
	return cmd
}

func renderJobsTable(jobs []api.Job, colorize, withStep bool) string {
	if len(jobs) == 0 {
		return "No jobs"
	}
	rows := make([][]string, 0, len(jobs))
	for _, job := range jobs {
		rows = append(rows, []string{
			job.JobID,
			dash(job.JobType),
			colorizeStatus(job.Status, colorize),
			formatPercentCell(api.PickProgress(job.Result, withStep)),
			api.FormatTimestamp(job.UpdatedAt),
			api.Deref(job.Error, ""),
		})
	}
	return renderTable([]column{
		{title: "Job ID"},
		{title: "Type"},
		{title: "Status"},
		{title: "Progress", align: alignRight},
		{title: "Updated"},
		{title: "Error", maxWidth: 48},
	}, rows)
}

func newJobsShowCommand(ctx *commandContext) *cobra.Command {
	var watch bool

	cmd := &cobra.Command{
		Use:   "show <job-id>",
		Short: "Show one job and its result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jobID := strings.TrimSpace(args[0])
			return ctx.withConsole(func(c *console) error {
				out := cmd.OutOrStdout()
				colorize := shouldColorize(out)
				if watch {
					return watchJob(cmd.Context(), out, c, jobID, colorize, ctx.jsonOutput())
				}
				job, err := c.service.GetJob(cmd.Context(), jobID)
				if err != nil {
					return explain(err)
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, job)
				}
				fmt.Fprint(out, renderJobDetail(job, colorize))
				return nil
			})
		},
	}
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "Refresh until the job finishes")
	return cmd
}

// watchJob polls one job until it reaches a final status or ctx ends.
func watchJob(ctx context.Context, out io.Writer, c *console, jobID string, colorize, asJSON bool) error {
	if err := c.session.Require(); err != nil {
		return err
	}
	var last api.Job
	finished := make(chan struct{})
	detail := poller.NewSelection(ctx, poller.Options{
		Name:     "jobs.detail",
		Interval: config.Interval(c.cfg.Polling.JobDetailMS),
		Logger:   c.logger,
	}, c.service.GetJob, func(id string, job api.Job, err error) bool {
		if err != nil {
			if !asJSON {
				redraw(out, colorize)
				fmt.Fprintln(out, renderNotice(statusError, explain(err).Error(), colorize))
			}
			return true
		}
		last = job
		if asJSON {
			_ = encodeJSON(out, job)
		} else {
			redraw(out, colorize)
			fmt.Fprint(out, renderJobDetail(job, colorize))
		}
		if job.Terminal() {
			close(finished)
			return false
		}
		return true
	})
	detail.Select(jobID)
	// Once Clear returns the sink is never called again.
	defer detail.Clear()

	select {
	case <-finished:
	case <-ctx.Done():
		return nil
	}
	if strings.EqualFold(last.Status, api.JobStatusFailed) {
		return fmt.Errorf("job %s failed: %s", last.JobID, api.Deref(last.Error, "no error message"))
	}
	return nil
}

func renderJobDetail(job api.Job, colorize bool) string {
	fields := [][2]string{
		{"Job ID", job.JobID},
		{"Type", dash(job.JobType)},
		{"Status", colorizeStatus(job.Status, colorize)},
		{"Created", api.FormatTimestamp(job.CreatedAt)},
		{"Updated", api.FormatTimestamp(job.UpdatedAt)},
	}
	if bar := formatProgress(api.PickProgress(job.Result, false)); bar != "" {
		fields = append(fields, [2]string{"Progress", bar})
	}
	if step := api.ResultField(job.Result, "step"); step != "" {
		fields = append(fields, [2]string{"Step", step})
	}
	if job.Error != nil && *job.Error != "" {
		fields = append(fields, [2]string{"Error", *job.Error})
	}

	var b strings.Builder
	b.WriteString(renderFields(fields) + "\n")
	if len(job.Result) > 0 && string(job.Result) != "null" {
		b.WriteString("\nResult:\n")
		var pretty strings.Builder
		if err := encodeJSON(&pretty, job.Result); err == nil {
			b.WriteString(pretty.String())
		} else {
			b.WriteString(string(job.Result) + "\n")
		}
	}
	return b.String()
}

func redraw(out io.Writer, colorize bool) {
	if colorize {
		fmt.Fprint(out, ansiClear)
		return
	}
	fmt.Fprintf(out, "--- %s ---\n", time.Now().Format(time.TimeOnly))
}
