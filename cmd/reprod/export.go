package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/reprodlocal/reprod/internal/app"
	"github.com/reprodlocal/reprod/internal/export"
	"github.com/reprodlocal/reprod/internal/ui"
)

var exportCmd = &cobra.Command{
	Use:     "export",
	GroupID: "system",
	Short:   "Export the library with progress, notes, bookmarks and settings",
	Long: `Export the whole library as JSON or YAML.

Examples:
  reprod export > library.json
  reprod export --format yaml --out library.yaml`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("format")
		out, _ := cmd.Flags().GetString("out")

		return withService(cmd, func(ctx context.Context, svc *app.Service) error {
			lib, err := export.Build(ctx, svc.Store())
			if err != nil {
				return err
			}

			var w io.Writer = os.Stdout
			if out != "" {
				f, err := os.Create(out)
				if err != nil {
					return fmt.Errorf("failed to create %s: %w", out, err)
				}
				defer f.Close()
				w = f
			}
			if err := export.Write(w, lib, format); err != nil {
				return err
			}
			if out != "" {
				fmt.Fprintf(os.Stderr, "%s Exported %d course(s) to %s\n", ui.RenderPass("✓"), len(lib.Courses), out)
			}
			return nil
		})
	},
}

func init() {
	exportCmd.Flags().StringP("format", "f", export.FormatJSON, "Output format: json or yaml")
	exportCmd.Flags().StringP("out", "o", "", "Write to this file instead of stdout")
	rootCmd.AddCommand(exportCmd)
}
