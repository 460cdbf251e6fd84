package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"shortsadmin/internal/admin"
	"shortsadmin/internal/api"
	"shortsadmin/internal/config"
)

func newEpisodesCommand(ctx *commandContext) *cobra.Command {
	episodesCmd := &cobra.Command{
		Use:   "episodes",
		Short: "List and delete generated episodes",
	}
	episodesCmd.AddCommand(newEpisodesListCommand(ctx))
	episodesCmd.AddCommand(newEpisodeDeleteCommand(ctx))
	return episodesCmd
}

func newEpisodesListCommand(ctx *commandContext) *cobra.Command {
	var query, userID string
	var offset, limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List episodes, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withConsole(func(c *console) error {
				if limit <= 0 {
					limit = c.cfg.Paging.EpisodesLimit
				}
				view := c.service.EpisodesView(min(limit, config.MaxPageLimit))
				view.SetFilters(admin.EpisodeFilter{Query: query, UserID: userID})
				view.Seek(offset)

				page, err := view.Fetch(cmd.Context())
				if err != nil {
					return explain(err)
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, page)
				}
				out := cmd.OutOrStdout()
				fmt.Fprintln(out, renderEpisodesTable(page.Items))
				fmt.Fprintln(out, pageFooter(page))
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&query, "query", "q", "", "Match title or ID")
	cmd.Flags().StringVar(&userID, "user", "", "Only episodes owned by this user")
	cmd.Flags().IntVar(&offset, "offset", 0, "Skip this many episodes")
	cmd.Flags().IntVar(&limit, "limit", 0, "Page size (default from config)")
	return cmd
}

func renderEpisodesTable(episodes []api.Episode) string {
	if len(episodes) == 0 {
		return "No episodes"
	}
	rows := make([][]string, 0, len(episodes))
	for _, ep := range episodes {
		rows = append(rows, []string{
			ep.EpisodeID,
			api.Deref(ep.Title, "-"),
			api.Deref(ep.UserID, "-"),
			api.Deref(ep.SeriesLayout, "-"),
			api.FormatTimestamp(ep.CreatedAt),
			api.Deref(ep.VideoURL, "-"),
			api.Deref(ep.Error, ""),
		})
	}
	return renderTable([]column{
		{title: "Episode ID"},
		{title: "Title", maxWidth: 40},
		{title: "User"},
		{title: "Layout"},
		{title: "Created"},
		{title: "Video", maxWidth: 48},
		{title: "Error", maxWidth: 32},
	}, rows)
}

func newEpisodeDeleteCommand(ctx *commandContext) *cobra.Command {
	var keepObjects bool

	cmd := &cobra.Command{
		Use:   "delete <episode-id>",
		Short: "Delete an episode and its output objects",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withConsole(func(c *console) error {
				result, err := c.service.DeleteEpisode(cmd.Context(), args[0], !keepObjects)
				if err != nil {
					return explain(err)
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, result)
				}
				renderDeleteResult(cmd.OutOrStdout(), args[0], result)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&keepObjects, "keep-objects", false, "Delete the database row only")
	return cmd
}

// renderDeleteResult keeps partial success visibly distinct from both full
// success and failure.
func renderDeleteResult(out io.Writer, id string, result api.EpisodeDeleteResult) {
	colorize := shouldColorize(out)
	switch {
	case result.Partial():
		fmt.Fprintln(out, renderNotice(statusWarn, fmt.Sprintf("Deleted %s but %d of %d objects remain",
			id, len(result.FailedObjects), len(result.FailedObjects)+len(result.DeletedObjects)), colorize))
	default:
		fmt.Fprintln(out, renderNotice(statusOK, fmt.Sprintf("Deleted %s (%d objects removed)", id, len(result.DeletedObjects)), colorize))
	}
	fmt.Fprintln(out, renderStatusLine("Database row", kindFor(result.DeletedDB), yesNo(result.DeletedDB), colorize))
	for _, key := range result.DeletedObjects {
		fmt.Fprintln(out, renderStatusLine("Object", statusOK, key, colorize))
	}
	for _, failure := range result.FailedObjects {
		msg := failure.Key
		if failure.Error != "" {
			msg += ": " + failure.Error
		}
		fmt.Fprintln(out, renderStatusLine("Object", statusError, msg, colorize))
	}
}

func kindFor(ok bool) statusKind {
	if ok {
		return statusOK
	}
	return statusError
}
