package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"shortsadmin/internal/admin"
	"shortsadmin/internal/api"
	"shortsadmin/internal/config"
)

func newUsersCommand(ctx *commandContext) *cobra.Command {
	usersCmd := &cobra.Command{
		Use:   "users",
		Short: "List and manage user accounts",
	}
	usersCmd.AddCommand(newUsersListCommand(ctx))
	usersCmd.AddCommand(newUserActiveCommand(ctx, "activate", "Activate a user", true))
	usersCmd.AddCommand(newUserActiveCommand(ctx, "deactivate", "Deactivate a user", false))
	usersCmd.AddCommand(newUserToggleCommand(ctx))
	usersCmd.AddCommand(newUserSetCreditCommand(ctx))
	usersCmd.AddCommand(newUserSetPlanCommand(ctx))
	return usersCmd
}

func newUsersListCommand(ctx *commandContext) *cobra.Command {
	var query string
	var active, inactive bool
	var offset, limit int
	var allPages bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List users, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			state, err := admin.ParseActiveState(active, inactive)
			if err != nil {
				return err
			}
			return ctx.withConsole(func(c *console) error {
				if limit <= 0 {
					limit = c.cfg.Paging.UsersLimit
				}
				view := c.service.UsersView(min(limit, config.MaxPageLimit))
				view.SetFilters(admin.UserFilter{Query: query, Active: state})
				view.Seek(offset)

				page, err := view.Fetch(cmd.Context())
				if err != nil {
					return explain(err)
				}
				if allPages {
					for view.Next() {
						next, err := view.Fetch(cmd.Context())
						if err != nil {
							return explain(err)
						}
						page.Items = append(page.Items, next.Items...)
					}
					page.Limit = len(page.Items)
				}

				if ctx.jsonOutput() {
					return writeJSON(cmd, page)
				}
				out := cmd.OutOrStdout()
				fmt.Fprintln(out, renderUsersTable(page.Items))
				fmt.Fprintln(out, pageFooter(page))
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&query, "query", "q", "", "Match email, username or ID")
	cmd.Flags().BoolVar(&active, "active", false, "Only active users")
	cmd.Flags().BoolVar(&inactive, "inactive", false, "Only inactive users")
	cmd.Flags().IntVar(&offset, "offset", 0, "Skip this many users")
	cmd.Flags().IntVar(&limit, "limit", 0, "Page size (default from config)")
	cmd.Flags().BoolVar(&allPages, "all-pages", false, "Follow next pages until the end")
	return cmd
}

func renderUsersTable(users []api.User) string {
	if len(users) == 0 {
		return "No users"
	}
	rows := make([][]string, 0, len(users))
	for _, u := range users {
		rows = append(rows, []string{
			u.UserID,
			dash(u.Email),
			dash(u.Username),
			yesNo(u.Active()),
			api.Deref(u.Plan, "-"),
			formatCredit(u.Credit),
			api.FormatTimestamp(u.CreatedAt),
		})
	}
	return renderTable([]column{
		{title: "User ID", maxWidth: 36},
		{title: "Email"},
		{title: "Username"},
		{title: "Active"},
		{title: "Plan"},
		{title: "Credit", align: alignRight},
		{title: "Created"},
	}, rows)
}

func newUserActiveCommand(ctx *commandContext, use, short string, active bool) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <user-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withConsole(func(c *console) error {
				user, err := c.service.SetUserActive(cmd.Context(), args[0], active)
				return printUser(cmd, ctx, user, err)
			})
		},
	}
}

func newUserToggleCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "toggle <user-id>",
		Short: "Flip a user's active flag",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withConsole(func(c *console) error {
				current, err := c.service.FindUser(cmd.Context(), args[0])
				if err != nil {
					return explain(err)
				}
				user, err := c.service.ToggleUserActive(cmd.Context(), current)
				return printUser(cmd, ctx, user, err)
			})
		},
	}
}

func newUserSetCreditCommand(ctx *commandContext) *cobra.Command {
	var mode string
	var amount int64
	var reason string

	cmd := &cobra.Command{
		Use:   "set-credit <user-id>",
		Short: "Legacy credit write that bypasses the ledger",
		Long: "Set or add to a user's balance without a ledger entry.\n" +
			"Prefer `shortsadmin credits adjust`, which records who changed what and why.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("amount") {
				return fmt.Errorf("%w: --amount is required", admin.ErrValidation)
			}
			fmt.Fprintln(cmd.ErrOrStderr(), renderNotice(statusWarn,
				"set-credit bypasses the credit ledger; use `credits adjust` for audited changes", shouldColorize(cmd.ErrOrStderr())))
			return ctx.withConsole(func(c *console) error {
				user, err := c.service.PatchUserCredit(cmd.Context(), args[0], mode, amount, reason)
				return printUser(cmd, ctx, user, err)
			})
		},
	}
	cmd.Flags().StringVar(&mode, "mode", api.CreditModeSet, "set or add")
	cmd.Flags().Int64Var(&amount, "amount", 0, "Credit amount")
	cmd.Flags().StringVar(&reason, "reason", "", "Optional note")
	return cmd
}

func newUserSetPlanCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "set-plan <user-id> <plan>",
		Short: "Change a user's plan tag",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withConsole(func(c *console) error {
				user, err := c.service.SetUserPlan(cmd.Context(), args[0], args[1])
				return printUser(cmd, ctx, user, err)
			})
		},
	}
}

func printUser(cmd *cobra.Command, ctx *commandContext, user api.User, err error) error {
	if err != nil {
		return explain(err)
	}
	if ctx.jsonOutput() {
		return writeJSON(cmd, user)
	}
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, renderNotice(statusOK, "Updated "+user.UserID, shouldColorize(out)))
	fmt.Fprintln(out, renderUsersTable([]api.User{user}))
	return nil
}

// resolveUserID accepts either an ID or an exact email.
func resolveUserID(ctx context.Context, svc *admin.Service, ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if !strings.Contains(ref, "@") {
		return ref, nil
	}
	page, err := svc.ListUsers(ctx, admin.UserFilter{Query: ref}, config.MaxPageLimit, 0)
	if err != nil {
		return "", err
	}
	for _, u := range page.Items {
		if strings.EqualFold(u.Email, ref) {
			return u.UserID, nil
		}
	}
	return "", fmt.Errorf("%w: no user with email %s", admin.ErrNotFound, ref)
}
