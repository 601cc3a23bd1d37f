package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/reprodlocal/reprod/internal/app"
	"github.com/reprodlocal/reprod/internal/server"
	"github.com/reprodlocal/reprod/internal/ui"
	"github.com/reprodlocal/reprod/internal/watch"
)

var serveCmd = &cobra.Command{
	Use:     "serve",
	GroupID: "system",
	Short:   "Serve the JSON API and live event stream",
	Long: `Serve the library over HTTP on server.addr (default 127.0.0.1:17380).

Endpoints:
  GET  /health   server status and connected clients
  GET  /ws       WebSocket stream of library events
  *    /api/...  courses, videos, progress, notes, bookmarks, settings, activity

With --watch the scan roots are watched and rescanned on change while the
server runs.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, _ := cmd.Flags().GetString("addr")
		if addr == "" {
			addr = cfg.Server.Addr
		}
		watchRoots, _ := cmd.Flags().GetBool("watch")

		return withService(cmd, func(ctx context.Context, svc *app.Service) error {
			srv := server.New(svc, &server.Config{Addr: addr, Logger: logger})
			if err := srv.Start(); err != nil {
				return err
			}
			defer func() {
				if err := srv.Stop(); err != nil {
					logger.Warnw("Failed to stop server", "error", err)
				}
			}()

			fmt.Printf("%s Serving on http://%s\n", ui.RenderPass("✓"), srv.GetAddr())
			fmt.Printf("   Press Ctrl+C to stop\n")

			if watchRoots {
				return runWatcher(ctx, svc)
			}
			<-ctx.Done()
			return nil
		})
	},
}

var watchCmd = &cobra.Command{
	Use:     "watch",
	GroupID: "library",
	Short:   "Watch the scan roots and rescan courses that change",
	Long: `Watch the scan roots and rescan a course shortly after files under it
change. A course whose directory disappears is removed from the library.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withService(cmd, func(ctx context.Context, svc *app.Service) error {
			fmt.Printf("%s Watching %d root(s), press Ctrl+C to stop\n", ui.RenderAccent("👁"), len(svc.Roots()))
			return runWatcher(ctx, svc)
		})
	},
}

// runWatcher blocks until ctx is cancelled.
func runWatcher(ctx context.Context, svc *app.Service) error {
	d, err := watch.New(svc, svc.Roots(), &watch.Config{
		Debounce:    cfg.Watch.Debounce,
		ExcludeDirs: cfg.Scan.ExcludeDirs,
		Logger:      logger,
	})
	if err != nil {
		return err
	}
	if err := d.Start(ctx); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}

func init() {
	serveCmd.Flags().String("addr", "", "Listen address (overrides server.addr)")
	serveCmd.Flags().Bool("watch", false, "Also watch the scan roots")
	rootCmd.AddCommand(serveCmd, watchCmd)
}
