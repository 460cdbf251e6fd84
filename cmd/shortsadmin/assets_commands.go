package main

import (
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"shortsadmin/internal/admin"
	"shortsadmin/internal/api"
)

func newAssetsCommand(ctx *commandContext) *cobra.Command {
	assetsCmd := &cobra.Command{
		Use:   "assets",
		Short: "Browse and upload static assets (fonts, soundeffects, userassets)",
	}
	assetsCmd.AddCommand(newAssetsListCommand(ctx))
	assetsCmd.AddCommand(newAssetsUploadCommand(ctx))
	return assetsCmd
}

func parseKind(value string) (api.AssetKind, error) {
	kind, err := api.ParseAssetKind(value)
	if err != nil {
		return "", fmt.Errorf("%w: %v", admin.ErrValidation, err)
	}
	return kind, nil
}

func newAssetsListCommand(ctx *commandContext) *cobra.Command {
	var prefix string

	cmd := &cobra.Command{
		Use:   "list <kind>",
		Short: "List stored objects of one kind",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := parseKind(args[0])
			if err != nil {
				return err
			}
			return ctx.withConsole(func(c *console) error {
				view := c.service.AssetsView(kind)
				view.SetFilters(admin.AssetFilter{Prefix: prefix})
				items, err := view.Fetch(cmd.Context())
				if err != nil {
					return explain(err)
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, items)
				}
				out := cmd.OutOrStdout()
				if len(items) == 0 {
					fmt.Fprintf(out, "No %s assets\n", kind)
					return nil
				}
				rows := make([][]string, 0, len(items))
				for _, item := range items {
					rows = append(rows, []string{
						item.Key,
						formatSize(item.Size),
						api.FormatTimestamp(item.LastModified),
						api.Deref(item.URL, "-"),
					})
				}
				fmt.Fprintln(out, renderTable([]column{
					{title: "Key"},
					{title: "Size", align: alignRight},
					{title: "Modified"},
					{title: "URL", maxWidth: 64},
				}, rows))
				fmt.Fprintf(out, "%d objects\n", len(items))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&prefix, "prefix", "", "Only keys starting with this prefix")
	return cmd
}

func newAssetsUploadCommand(ctx *commandContext) *cobra.Command {
	var key string

	cmd := &cobra.Command{
		Use:   "upload <kind> <file>",
		Short: "Upload a file under a key",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := parseKind(args[0])
			if err != nil {
				return err
			}
			path := args[1]
			if strings.TrimSpace(key) == "" {
				key = filepath.Base(path)
			}
			if strings.TrimSpace(admin.SanitizeKey(key)) == "" {
				return fmt.Errorf("%w: key %q is empty after sanitizing", admin.ErrValidation, key)
			}

			file, err := os.Open(path)
			if err != nil {
				return fmt.Errorf("open upload: %w", err)
			}
			defer file.Close()

			return ctx.withConsole(func(c *console) error {
				item, err := c.service.UploadAsset(cmd.Context(), kind, key, admin.Upload{
					FileName:    filepath.Base(path),
					ContentType: mime.TypeByExtension(filepath.Ext(path)),
					Content:     file,
				})
				if err != nil {
					return explain(err)
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, item)
				}
				out := cmd.OutOrStdout()
				fmt.Fprintln(out, renderNotice(statusOK, fmt.Sprintf("Uploaded %s/%s (%s)", kind, item.Key, formatSize(item.Size)), shouldColorize(out)))
				if item.URL != nil {
					fmt.Fprintln(out, *item.URL)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&key, "key", "k", "", "Object key (default: file name)")
	return cmd
}
