package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"

	"shortsadmin/internal/config"
)

func newConfigCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect or create the console configuration",
		// Subcommands load the file themselves so a broken file can be reported.
		Annotations: map[string]string{"skipConfigLoad": "true"},
	}
	cmd.AddCommand(
		newConfigValidateCommand(ctx),
		newConfigShowCommand(ctx),
		newConfigInitCommand(),
	)
	return cmd
}

// loadForConfigCommand wraps config errors with the file that produced them.
func loadForConfigCommand(ctx *commandContext) (*config.Config, error) {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		where := "default location"
		if ctx.configFlag != nil && strings.TrimSpace(*ctx.configFlag) != "" {
			where = strings.TrimSpace(*ctx.configFlag)
		}
		return nil, fmt.Errorf("config (%s): %w", where, err)
	}
	return cfg, nil
}

func newConfigValidateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:     "validate",
		Aliases: []string{"check"},
		Short:   "Load the configuration and report where the console will connect and write",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadForConfigCommand(ctx)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			source := ctx.configPath
			if !ctx.configFound {
				source += " (not found, built-in defaults)"
			}
			fmt.Fprint(out, renderFields([][2]string{
				{"Config file", source},
				{"Backend", cfg.API.BaseURL},
				{"Request timeout", cfg.RequestTimeout().String()},
				{"Rate limit", rateSummary(cfg.API)},
				{"Session file", cfg.SessionPath()},
				{"Action journal", cfg.JournalPath()},
				{"Log directory", cfg.Paths.LogDir},
			}))
			fmt.Fprintln(out)
			fmt.Fprintln(out, renderNotice(statusOK, "Configuration valid", shouldColorize(out)))
			return nil
		},
	}
}

func rateSummary(api config.API) string {
	if api.RateLimitPerSecond <= 0 {
		return "unlimited"
	}
	return strconv.FormatFloat(api.RateLimitPerSecond, 'f', -1, 64) + "/s, burst " + strconv.Itoa(api.RateBurst)
}

func newConfigShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration as TOML",
		Long: "Print the configuration after defaults, path expansion and --api-url are applied.\n" +
			"A SHORTSADMIN_TOKEN credential is never printed.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadForConfigCommand(ctx)
			if err != nil {
				return err
			}
			shown := *cfg
			shown.API.Token = ""
			if ctx.jsonOutput() {
				return writeJSON(cmd, shown)
			}
			data, err := toml.Marshal(shown)
			if err != nil {
				return fmt.Errorf("encode config: %w", err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "# %s\n", ctx.configPath)
			_, err = out.Write(data)
			return err
		},
	}
}

func newConfigInitCommand() *cobra.Command {
	var targetPath string
	var overwrite bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a commented starter configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := initTarget(targetPath)
			if err != nil {
				return err
			}
			if err := refuseExisting(target, overwrite); err != nil {
				return err
			}
			if err := config.CreateSample(target); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderNotice(statusOK, "Wrote sample configuration to "+target, shouldColorize(out)))
			fmt.Fprintln(out, "Next: set api.base_url (or export SHORTSADMIN_API_URL) and run `shortsadmin login`.")
			return nil
		},
	}
	cmd.Flags().StringVarP(&targetPath, "path", "p", "", "Where to write the file (default ~/.config/shortsadmin/config.toml)")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Replace an existing file")
	return cmd
}

func initTarget(flagValue string) (string, error) {
	if p := strings.TrimSpace(flagValue); p != "" {
		return config.ExpandPath(p)
	}
	return config.DefaultConfigPath()
}

func refuseExisting(target string, overwrite bool) error {
	if overwrite {
		return nil
	}
	_, err := os.Stat(target)
	switch {
	case err == nil:
		return fmt.Errorf("%s already exists; pass --overwrite to replace it", target)
	case errors.Is(err, fs.ErrNotExist):
		return nil
	default:
		return fmt.Errorf("inspect %s: %w", target, err)
	}
}
