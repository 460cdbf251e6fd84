package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"shortsadmin/internal/preflight"
)

func newDoctorCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check local state, backend reachability and credentials",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withConsole(func(c *console) error {
				results := preflight.RunAll(cmd.Context(), c.cfg, c.service, c.session.Token(), time.Now())
				if ctx.jsonOutput() {
					if err := writeJSON(cmd, results); err != nil {
						return err
					}
				} else {
					out := cmd.OutOrStdout()
					colorize := shouldColorize(out)
					for _, line := range renderSectionHeader("shortsadmin doctor", colorize) {
						fmt.Fprintln(out, line)
					}
					fmt.Fprintln(out, renderStatusLine("Backend URL", statusInfo, c.cfg.API.BaseURL, colorize))
					for _, r := range results {
						fmt.Fprintln(out, renderStatusLine(r.Name, kindFor(r.Passed), r.Detail, colorize))
					}
				}
				if preflight.Failed(results) {
					return errors.New("one or more checks failed")
				}
				return nil
			})
		},
	}
}
