package main

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/reprodlocal/reprod/internal/app"
	"github.com/reprodlocal/reprod/internal/scanner"
	"github.com/reprodlocal/reprod/internal/store"
	"github.com/reprodlocal/reprod/internal/ui"
)

type statusReport struct {
	Database      string       `json:"database"`
	SchemaVersion int          `json:"schema_version"`
	Counts        store.Counts `json:"counts"`
	Roots         []string     `json:"roots"`
	ExistingRoots []string     `json:"existing_roots"`
}

var statusCmd = &cobra.Command{
	Use:     "status",
	GroupID: "system",
	Short:   "Show database location, row counts and scan roots",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withService(cmd, func(ctx context.Context, svc *app.Service) error {
			counts, err := svc.Store().Counts(ctx)
			if err != nil {
				return err
			}
			report := statusReport{
				Database:      svc.Store().Path(),
				SchemaVersion: store.SchemaVersion,
				Counts:        counts,
				Roots:         svc.Roots(),
				ExistingRoots: scanner.ExistingRoots(svc.Roots()),
			}
			if jsonOutput {
				return printJSON(report)
			}

			fmt.Printf("\n%s\n\n", ui.RenderHeader("Library"))
			fmt.Printf("  Database:  %s (schema v%d)\n", report.Database, report.SchemaVersion)
			fmt.Printf("  Courses:   %s\n", humanize.Comma(int64(counts.Courses)))
			fmt.Printf("  Modules:   %s\n", humanize.Comma(int64(counts.Modules)))
			fmt.Printf("  Videos:    %s\n", humanize.Comma(int64(counts.Videos)))
			fmt.Printf("  Progress:  %s\n", humanize.Comma(int64(counts.Progress)))
			fmt.Printf("  Notes:     %s\n", humanize.Comma(int64(counts.Notes)))
			fmt.Printf("  Bookmarks: %s\n", humanize.Comma(int64(counts.Bookmarks)))
			fmt.Printf("  Activity:  %s\n\n", humanize.Comma(int64(counts.Activity)))

			existing := make(map[string]bool, len(report.ExistingRoots))
			for _, r := range report.ExistingRoots {
				existing[r] = true
			}
			fmt.Printf("%s\n\n", ui.RenderHeader("Scan roots"))
			for _, r := range report.Roots {
				if existing[filepath.Clean(r)] {
					fmt.Printf("  %s %s\n", ui.RenderPass("✓"), r)
				} else {
					fmt.Printf("  %s %s\n", ui.RenderMuted("·"), ui.RenderMuted(r))
				}
			}
			fmt.Println()
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
