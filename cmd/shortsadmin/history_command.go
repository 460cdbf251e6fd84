package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"shortsadmin/internal/journal"
)

var errNoJournal = errors.New("action journal unavailable; see the log for details")

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var action, target string

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show mutations issued from this machine",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withConsole(func(c *console) error {
				if c.journal == nil {
					return errNoJournal
				}
				entries, err := c.journal.List(cmd.Context(), journal.ListOptions{Limit: limit, Action: action, Target: target})
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, entries)
				}
				out := cmd.OutOrStdout()
				if len(entries) == 0 {
					fmt.Fprintln(out, "No recorded actions")
					return nil
				}
				fmt.Fprintln(out, renderHistoryTable(entries, shouldColorize(out)))
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 50, "Number of entries")
	cmd.Flags().StringVar(&action, "action", "", "Only this action (e.g. credits.adjust)")
	cmd.Flags().StringVar(&target, "target", "", "Only this target ID")
	cmd.AddCommand(newHistoryPruneCommand(ctx))
	return cmd
}

func renderHistoryTable(entries []journal.Entry, colorize bool) string {
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		outcome := string(e.Outcome)
		if colorize {
			outcome = statusKindColor(outcomeKind(e.Outcome)) + outcome + ansiReset
		}
		rows = append(rows, []string{
			e.CreatedAt.Local().Format(time.DateTime),
			e.Actor,
			e.Action,
			e.Target,
			outcome,
			e.RequestID,
			e.Detail,
		})
	}
	return renderTable([]column{
		{title: "When"},
		{title: "Actor"},
		{title: "Action"},
		{title: "Target", maxWidth: 40},
		{title: "Outcome"},
		{title: "Request ID"},
		{title: "Detail", maxWidth: 60},
	}, rows)
}

func outcomeKind(o journal.Outcome) statusKind {
	switch o {
	case journal.OutcomeOK:
		return statusOK
	case journal.OutcomePartial:
		return statusWarn
	default:
		return statusError
	}
}

func newHistoryPruneCommand(ctx *commandContext) *cobra.Command {
	var olderThan time.Duration

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete journal entries older than --older-than",
		RunE: func(cmd *cobra.Command, args []string) error {
			if olderThan <= 0 {
				return fmt.Errorf("--older-than must be positive")
			}
			return ctx.withConsole(func(c *console) error {
				if c.journal == nil {
					return errNoJournal
				}
				removed, err := c.journal.Prune(cmd.Context(), time.Now().Add(-olderThan))
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %d entries\n", removed)
				return nil
			})
		},
	}
	cmd.Flags().DurationVar(&olderThan, "older-than", 90*24*time.Hour, "Age cutoff")
	return cmd
}
