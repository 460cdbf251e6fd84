package main

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"shortsadmin/internal/admin"
	"shortsadmin/internal/api"
	"shortsadmin/internal/config"
	"shortsadmin/internal/poller"
)

type dashboardJSON struct {
	Overview      *api.Overview      `json:"overview,omitempty"`
	OverviewError string             `json:"overview_error,omitempty"`
	Jobs          *api.Page[api.Job] `json:"jobs,omitempty"`
	JobsError     string             `json:"jobs_error,omitempty"`
}

func newDashboardCommand(ctx *commandContext) *cobra.Command {
	var watch bool
	var days int

	cmd := &cobra.Command{
		Use:   "dashboard",
		Short: "Show metrics and the newest jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withConsole(func(c *console) error {
				if days <= 0 {
					days = c.cfg.Paging.MetricsDays
				}
				if watch {
					return watchDashboard(cmd.Context(), cmd.OutOrStdout(), c, days)
				}

				summary, err := c.service.Dashboard(cmd.Context(), days, c.cfg.Paging.DashboardJobsLimit)
				if err != nil {
					return explain(err)
				}
				if ctx.jsonOutput() {
					if err := writeJSON(cmd, dashboardPayload(summary)); err != nil {
						return err
					}
				} else {
					out := cmd.OutOrStdout()
					fmt.Fprint(out, renderDashboard(summary, days, shouldColorize(out)))
				}
				if summary.OverviewErr != nil && summary.JobsErr != nil {
					return explain(summary.OverviewErr)
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "Keep refreshing until interrupted")
	cmd.Flags().IntVar(&days, "days", 0, "Metrics window in days (default from config)")
	return cmd
}

func dashboardPayload(d admin.Dashboard) dashboardJSON {
	var payload dashboardJSON
	if d.OverviewErr != nil {
		payload.OverviewError = d.OverviewErr.Error()
	} else {
		payload.Overview = &d.Overview
	}
	if d.JobsErr != nil {
		payload.JobsError = d.JobsErr.Error()
	} else {
		payload.Jobs = &d.Jobs
	}
	return payload
}

func renderDashboard(d admin.Dashboard, days int, colorize bool) string {
	var b strings.Builder
	for _, line := range renderSectionHeader(fmt.Sprintf("Overview (last %d days)", days), colorize) {
		b.WriteString(line + "\n")
	}
	if d.OverviewErr != nil {
		b.WriteString(renderNotice(statusError, explain(d.OverviewErr).Error(), colorize) + "\n")
	} else {
		b.WriteString(renderOverview(d.Overview))
	}
	b.WriteString("\n")
	for _, line := range renderSectionHeader("Recent jobs", colorize) {
		b.WriteString(line + "\n")
	}
	if d.JobsErr != nil {
		b.WriteString(renderNotice(statusError, explain(d.JobsErr).Error(), colorize) + "\n")
	} else {
		b.WriteString(renderJobsTable(d.Jobs.Items, colorize, false) + "\n")
	}
	return b.String()
}

func renderOverview(o api.Overview) string {
	var b strings.Builder
	b.WriteString(renderFields([][2]string{
		{"Users", fmt.Sprintf("%d (%d active)", o.UsersTotal, o.UsersActive)},
		{"Episodes", strconv.FormatInt(o.EpisodesTotal, 10)},
		{"Jobs", strconv.FormatInt(o.JobsTotal, 10)},
	}))
	b.WriteString("\n")
	if len(o.JobsByStatus) > 0 {
		rows := make([][]string, 0, len(o.JobsByStatus))
		for _, sc := range o.JobsByStatus {
			rows = append(rows, []string{statusLabel(sc.Status), strconv.FormatInt(sc.Count, 10)})
		}
		b.WriteString(renderTable([]column{{title: "Job status"}, {title: "Count", align: alignRight}}, rows) + "\n")
	}
	if len(o.OrdersByStatus) > 0 {
		rows := make([][]string, 0, len(o.OrdersByStatus))
		for _, oc := range o.OrdersByStatus {
			rows = append(rows, []string{statusLabel(oc.Status), strconv.FormatInt(oc.Count, 10), fmt.Sprintf("%.2f", oc.AmountSum)})
		}
		b.WriteString(renderTable([]column{{title: "Order status"}, {title: "Count", align: alignRight}, {title: "Amount", align: alignRight}}, rows) + "\n")
	}
	return b.String()
}

// dashboardScreen holds the latest state of each panel; every poll redraws
// the whole screen.
type dashboardScreen struct {
	mu       sync.Mutex
	out      io.Writer
	colorize bool
	days     int
	state    admin.Dashboard
	updated  time.Time
}

func (s *dashboardScreen) update(fn func(*admin.Dashboard)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&s.state)
	s.updated = time.Now()
	if s.colorize {
		fmt.Fprint(s.out, ansiClear)
	} else {
		fmt.Fprintln(s.out, strings.Repeat("=", 60))
	}
	fmt.Fprintf(s.out, "Updated %s (Ctrl-C to stop)\n\n", s.updated.Format(time.TimeOnly))
	fmt.Fprint(s.out, renderDashboard(s.state, s.days, s.colorize))
}

func watchDashboard(ctx context.Context, out io.Writer, c *console, days int) error {
	if err := c.session.Require(); err != nil {
		return explain(err)
	}
	screen := &dashboardScreen{out: out, colorize: shouldColorize(out), days: days}

	metrics := poller.Start(ctx, poller.Options{
		Name:     "dashboard.metrics",
		Interval: config.Interval(c.cfg.Polling.DashboardMetricsMS),
		Logger:   c.logger,
	}, func(ctx context.Context) (api.Overview, error) {
		return c.service.Overview(ctx, days)
	}, func(o api.Overview, err error) bool {
		screen.update(func(d *admin.Dashboard) { d.Overview, d.OverviewErr = o, err })
		return true
	})
	defer metrics.Stop()

	jobs := c.service.JobsView(c.cfg.Paging.DashboardJobsLimit).Follow(ctx, poller.Options{
		Name:     "dashboard.jobs",
		Interval: config.Interval(c.cfg.Polling.DashboardJobsMS),
		Logger:   c.logger,
	}, func(page api.Page[api.Job], err error) bool {
		screen.update(func(d *admin.Dashboard) { d.Jobs, d.JobsErr = page, err })
		return true
	})
	defer jobs.Stop()

	<-ctx.Done()
	return nil
}
