package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/reprodlocal/reprod/internal/app"
	"github.com/reprodlocal/reprod/internal/types"
	"github.com/reprodlocal/reprod/internal/ui"
)

var selectDirCmd = &cobra.Command{
	Use:     "select-dir",
	GroupID: "library",
	Short:   "Pick a course directory interactively",
	Long: `Open a directory picker and print the chosen path, or scan it with --scan.

Cancelling the picker, or leaving it idle past ui.picker_timeout, selects
nothing and exits without error.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !term.IsTerminal(int(os.Stdin.Fd())) {
			return fmt.Errorf("select-dir needs an interactive terminal: %w", types.ErrInvalidInput)
		}
		doScan, _ := cmd.Flags().GetBool("scan")

		dir, err := pickDirectory(cmd.Context())
		if err != nil {
			return err
		}
		if dir == "" {
			fmt.Printf("%s No directory selected\n", ui.RenderMuted("·"))
			return nil
		}
		if !doScan {
			fmt.Println(dir)
			return nil
		}

		return withService(cmd, func(ctx context.Context, svc *app.Service) error {
			courses, err := svc.ScanDirectory(ctx, dir)
			if err != nil {
				return err
			}
			if jsonOutput {
				return printJSON(courses)
			}
			fmt.Printf("%s Found %d course(s) in %s\n", ui.RenderPass("✓"), len(courses), dir)
			return nil
		})
	},
}

// pickDirectory returns "" when the picker is cancelled or times out.
func pickDirectory(ctx context.Context) (string, error) {
	start, err := os.UserHomeDir()
	if err != nil {
		start = "."
	}
	if cfg.Scan.CoursesDir != "" {
		if info, err := os.Stat(cfg.Scan.CoursesDir); err == nil && info.IsDir() {
			start = cfg.Scan.CoursesDir
		}
	}

	var dir string
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewFilePicker().
				Title("Select a courses directory").
				CurrentDirectory(start).
				DirAllowed(true).
				FileAllowed(false).
				ShowHidden(false).
				Value(&dir),
		),
	).WithTimeout(cfg.UI.PickerTimeout)

	if err := form.RunWithContext(ctx); err != nil {
		if errors.Is(err, huh.ErrUserAborted) || errors.Is(err, huh.ErrTimeout) {
			logger.Debugw("Directory picker closed without a selection", "reason", err)
			return "", nil
		}
		return "", fmt.Errorf("directory picker failed: %w", err)
	}
	return dir, nil
}

func init() {
	selectDirCmd.Flags().Bool("scan", false, "Scan the selected directory")
	rootCmd.AddCommand(selectDirCmd)
}
