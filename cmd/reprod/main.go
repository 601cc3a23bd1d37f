// Command reprod tracks progress through local video courses.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/reprodlocal/reprod/internal/app"
	"github.com/reprodlocal/reprod/internal/config"
	"github.com/reprodlocal/reprod/internal/logging"
	"github.com/reprodlocal/reprod/internal/progress"
	"github.com/reprodlocal/reprod/internal/scanner"
	"github.com/reprodlocal/reprod/internal/store"
	"github.com/reprodlocal/reprod/internal/ui"
)

var (
	cfgFile    string
	dbPath     string
	logLevel   string
	noColor    bool
	jsonOutput bool

	cfg    config.Config
	logger *zap.SugaredLogger
)

var rootCmd = &cobra.Command{
	Use:   "reprod",
	Short: "Track progress through local video courses",
	Long: `reprod scans folders of video lessons into courses and modules and keeps
track of what you have watched, with notes and bookmarks alongside.

Every directory under a scan root is a course; every folder inside a course
that holds videos is a module. Progress, notes, bookmarks and settings live
in a single SQLite database.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, _, err := config.Load(cfgFile)
		if err != nil {
			return err
		}
		if dbPath != "" {
			loaded.Database.Path = dbPath
		}
		if logLevel != "" {
			loaded.Log.Level = logLevel
		}
		if noColor {
			loaded.UI.Color = false
		}
		cfg = loaded

		ui.Init(cfg.UI.Color)

		logger, err = logging.New(logging.Options{
			Level:      cfg.Log.Level,
			File:       cfg.Log.File,
			MaxSizeMB:  cfg.Log.MaxSizeMB,
			MaxBackups: cfg.Log.MaxBackups,
			MaxAgeDays: cfg.Log.MaxAgeDays,
		})
		return err
	},
}

func init() {
	rootCmd.AddGroup(
		&cobra.Group{ID: "library", Title: "Library:"},
		&cobra.Group{ID: "progress", Title: "Progress:"},
		&cobra.Group{ID: "notes", Title: "Notes and bookmarks:"},
		&cobra.Group{ID: "system", Title: "System:"},
	)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file (default: user config dir or ./reprod.toml)")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "Database path (overrides database.path)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn or error")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output JSON")
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	cancel()
	if logger != nil {
		_ = logger.Sync()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s %s\n", ui.RenderFail("✗"), app.Message(err))
		os.Exit(1)
	}
}

// openService opens the database and builds the command layer. The
// returned function closes the database.
func openService(ctx context.Context) (*app.Service, func(), error) {
	db, err := store.Open(ctx, cfg.Database.Path)
	if err != nil {
		return nil, nil, err
	}
	logger.Debugw("Opened database", "path", db.Path())

	home, _ := os.UserHomeDir()
	roots := cfg.Scan.Roots
	if len(roots) == 0 {
		roots = scanner.DefaultRoots(home, cfg.Scan.CoursesDir)
	}

	svc := app.New(db, app.Options{
		Scan: scanner.Options{
			ReuseIDs:    cfg.Scan.ReuseIDs,
			ExcludeDirs: cfg.Scan.ExcludeDirs,
		},
		Progress: progress.Options{
			CompleteRatio: cfg.Progress.CompleteRatio,
			SessionGap:    cfg.Progress.SessionGap,
		},
		Roots:  roots,
		Logger: logger,
	})
	if _, err := svc.InitDefaultSettings(ctx); err != nil {
		logger.Warnw("Failed to initialize default settings", "error", err)
	}

	return svc, func() {
		if err := db.Close(); err != nil {
			logger.Warnw("Failed to close database", "error", err)
		}
	}, nil
}

// withService runs fn with an open service and closes it afterwards.
func withService(cmd *cobra.Command, fn func(ctx context.Context, svc *app.Service) error) error {
	ctx := cmd.Context()
	svc, closeFn, err := openService(ctx)
	if err != nil {
		return err
	}
	defer closeFn()
	return fn(ctx, svc)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
