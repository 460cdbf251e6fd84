package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"shortsadmin/internal/logging"
	"shortsadmin/internal/logs"
)

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var lines int
	var follow bool
	var requestID string
	var interval time.Duration

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show the console log file",
		Long: "Print the last lines of the console log. --request narrows the output to\n" +
			"one mutation, using the request ID shown by `shortsadmin history`.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			path := logging.FilePath(cfg)
			if path == "" {
				return fmt.Errorf("no log directory configured (paths.log_dir)")
			}
			out := cmd.OutOrStdout()
			filter := strings.TrimSpace(requestID)

			recent, offset, err := logs.Last(path, lines)
			if err != nil {
				return err
			}
			printLogLines(out, recent, filter)
			if !follow {
				return nil
			}
			return logs.Follow(cmd.Context(), path, offset, interval, func(batch []string) error {
				printLogLines(out, batch, filter)
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&lines, "lines", "n", 50, "Number of trailing lines")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Keep printing new lines")
	cmd.Flags().StringVar(&requestID, "request", "", "Only lines mentioning this request ID")
	cmd.Flags().DurationVar(&interval, "interval", 250*time.Millisecond, "Follow poll interval")
	_ = cmd.Flags().MarkHidden("interval")
	return cmd
}

func printLogLines(out io.Writer, lines []string, filter string) {
	for _, line := range lines {
		if filter != "" && !strings.Contains(line, filter) {
			continue
		}
		fmt.Fprintln(out, line)
	}
}
