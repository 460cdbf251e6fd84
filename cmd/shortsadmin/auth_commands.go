package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"shortsadmin/internal/api"
	"shortsadmin/internal/session"
)

func newAuthCommands(ctx *commandContext) []*cobra.Command {
	return []*cobra.Command{
		newLoginCommand(ctx),
		newLogoutCommand(ctx),
		newWhoamiCommand(ctx),
	}
}

func newLoginCommand(ctx *commandContext) *cobra.Command {
	var token string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Store an access token (from --token or stdin)",
		RunE: func(cmd *cobra.Command, args []string) error {
			raw := strings.TrimSpace(token)
			if raw == "" {
				read, err := readToken(cmd.InOrStdin())
				if err != nil {
					return err
				}
				raw = read
			}
			return ctx.withConsole(func(c *console) error {
				profile, claims, err := c.service.Login(cmd.Context(), c.session, raw, time.Now())
				if err != nil {
					return explain(err)
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, profile)
				}
				out := cmd.OutOrStdout()
				colorize := shouldColorize(out)
				fmt.Fprintln(out, renderNotice(statusOK, fmt.Sprintf("Logged in as %s (%s)", dash(profile.Email), profile.Role), colorize))
				if !claims.ExpiresAt.IsZero() {
					fmt.Fprintf(out, "Token expires %s\n", claims.ExpiresAt.Local().Format(time.DateTime))
				}
				if !profile.IsAdmin() {
					fmt.Fprintln(out, renderNotice(statusWarn, "this account is not an admin; admin endpoints will answer 403", colorize))
				}
				if c.cfg.API.Token != "" {
					fmt.Fprintln(out, renderNotice(statusInfo, "SHORTSADMIN_TOKEN is set; the token was not saved", colorize))
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&token, "token", "", "Access token (read from stdin when omitted)")
	return cmd
}

func readToken(r io.Reader) (string, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 4096), 64<<10)
	if scanner.Scan() {
		if token := strings.TrimSpace(scanner.Text()); token != "" {
			return token, nil
		}
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("read token: %w", err)
	}
	return "", errors.New("no token given: pass --token or pipe it on stdin")
}

func newLogoutCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Erase the stored access token",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withConsole(func(c *console) error {
				if err := c.session.Logout(); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
				return nil
			})
		},
	}
}

func newWhoamiCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the operator behind the stored token",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withConsole(func(c *console) error {
				profile, err := c.service.Whoami(cmd.Context(), c.session)
				if err != nil {
					return explain(err)
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, profile)
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderFields(profileFields(profile, c.session.Token())))
				return nil
			})
		},
	}
}

func profileFields(profile api.Profile, token string) [][2]string {
	fields := [][2]string{
		{"ID", dash(profile.Subject())},
		{"Email", dash(profile.Email)},
		{"Role", dash(profile.Role)},
	}
	if profile.Username != "" {
		fields = append(fields, [2]string{"Username", profile.Username})
	}
	if profile.Plan != "" {
		fields = append(fields, [2]string{"Plan", profile.Plan})
	}
	if profile.Credit != nil {
		fields = append(fields, [2]string{"Credit", formatCredit(profile.Credit)})
	}
	if claims, err := session.DecodeClaims(token); err == nil && !claims.ExpiresAt.IsZero() {
		fields = append(fields, [2]string{"Token expires", claims.ExpiresAt.Local().Format(time.DateTime)})
	}
	return fields
}
