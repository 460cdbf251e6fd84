package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"shortsadmin/internal/admin"
	"shortsadmin/internal/api"
)

func newCreditsCommand(ctx *commandContext) *cobra.Command {
	creditsCmd := &cobra.Command{
		Use:   "credits",
		Short: "Inspect balances and append ledger entries",
	}
	creditsCmd.AddCommand(newCreditsListCommand(ctx))
	creditsCmd.AddCommand(newCreditsShowCommand(ctx))
	creditsCmd.AddCommand(newCreditsAdjustCommand(ctx))
	return creditsCmd
}

func newCreditsListCommand(ctx *commandContext) *cobra.Command {
	var query string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List user balances",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withConsole(func(c *console) error {
				view := c.service.CreditsView()
				view.SetFilters(admin.CreditFilter{Query: query})
				items, err := view.Fetch(cmd.Context())
				if err != nil {
					return explain(err)
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, items)
				}
				out := cmd.OutOrStdout()
				if len(items) == 0 {
					fmt.Fprintln(out, "No users")
					return nil
				}
				rows := make([][]string, 0, len(items))
				for _, item := range items {
					rows = append(rows, []string{
						item.UserID,
						dash(item.Email),
						dash(item.Username),
						strconv.FormatInt(item.CreditsBalance, 10),
						api.FormatTimestamp(item.UpdatedAt),
					})
				}
				fmt.Fprintln(out, renderTable([]column{
					{title: "User ID", maxWidth: 36},
					{title: "Email"},
					{title: "Username"},
					{title: "Balance", align: alignRight},
					{title: "Updated"},
				}, rows))
				fmt.Fprintf(out, "%d users\n", len(items))
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&query, "query", "q", "", "Match email, username or ID")
	return cmd
}

func newCreditsShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <user-id|email>",
		Short: "Show a balance and its recent ledger",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withConsole(func(c *console) error {
				userID, err := resolveUserID(cmd.Context(), c.service, args[0])
				if err != nil {
					return explain(err)
				}
				detail, err := c.service.GetCreditUser(cmd.Context(), userID)
				if err != nil {
					return explain(err)
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, detail)
				}
				fmt.Fprint(cmd.OutOrStdout(), renderCreditDetail(detail))
				return nil
			})
		},
	}
}

func newCreditsAdjustCommand(ctx *commandContext) *cobra.Command {
	var delta int64
	var reason string

	cmd := &cobra.Command{
		Use:   "adjust <user-id|email>",
		Short: "Append a signed ledger entry",
		Long: "Add --delta (negative to deduct) to a user's balance and record it in\n" +
			"the credit ledger with --reason (1-200 characters).",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("delta") {
				return fmt.Errorf("%w: --delta is required", admin.ErrValidation)
			}
			return ctx.withConsole(func(c *console) error {
				userID, err := resolveUserID(cmd.Context(), c.service, args[0])
				if err != nil {
					return explain(err)
				}
				detail, err := c.service.AdjustCredit(cmd.Context(), userID, delta, reason)
				if err != nil {
					return explain(err)
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, detail)
				}
				out := cmd.OutOrStdout()
				fmt.Fprintln(out, renderNotice(statusOK, fmt.Sprintf("Adjusted %s by %s, balance now %d",
					detail.UserID, signed(delta), detail.CreditsBalance), shouldColorize(out)))
				fmt.Fprint(out, renderCreditDetail(detail))
				return nil
			})
		},
	}
	cmd.Flags().Int64Var(&delta, "delta", 0, "Signed credit change")
	cmd.Flags().StringVar(&reason, "reason", "", "Why the balance changes (required)")
	return cmd
}

func renderCreditDetail(detail api.CreditUserDetail) string {
	out := renderFields([][2]string{
		{"User ID", detail.UserID},
		{"Email", dash(detail.Email)},
		{"Username", dash(detail.Username)},
		{"Balance", strconv.FormatInt(detail.CreditsBalance, 10)},
		{"Updated", api.FormatTimestamp(detail.UpdatedAt)},
	}) + "\n\n"
	if len(detail.Ledger) == 0 {
		return out + "No ledger entries\n"
	}
	rows := make([][]string, 0, len(detail.Ledger))
	for _, entry := range detail.Ledger {
		rows = append(rows, []string{
			api.FormatTimestamp(entry.CreatedAt),
			signed(entry.Delta),
			entry.Reason,
			api.Deref(entry.Actor, "-"),
		})
	}
	return out + renderTable([]column{
		{title: "When"},
		{title: "Delta", align: alignRight},
		{title: "Reason", maxWidth: 60},
		{title: "Actor"},
	}, rows) + "\n"
}

func signed(n int64) string {
	if n > 0 {
		return "+" + strconv.FormatInt(n, 10)
	}
	return strconv.FormatInt(n, 10)
}
