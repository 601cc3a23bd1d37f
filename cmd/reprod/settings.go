package main

import (
	"context"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/reprodlocal/reprod/internal/app"
	"github.com/reprodlocal/reprod/internal/types"
	"github.com/reprodlocal/reprod/internal/ui"
)

var settingsCmd = &cobra.Command{
	Use:     "settings",
	GroupID: "system",
	Short:   "List, read and change user settings",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withService(cmd, func(ctx context.Context, svc *app.Service) error {
			settings, err := svc.AllSettings(ctx)
			if err != nil {
				return err
			}
			if jsonOutput {
				return printJSON(settings)
			}
			for _, s := range settings {
				fmt.Printf("%-20s = %s  %s\n", s.Key, s.Value, ui.RenderMuted(s.SettingType))
			}
			return nil
		})
	},
}

var settingsGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Print one setting",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withService(cmd, func(ctx context.Context, svc *app.Service) error {
			s, err := svc.GetSetting(ctx, args[0])
			if err != nil {
				return err
			}
			if jsonOutput {
				return printJSON(s)
			}
			fmt.Println(s.Value)
			return nil
		})
	},
}

var settingsSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Create or replace a setting",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		settingType, _ := cmd.Flags().GetString("type")
		return withService(cmd, func(ctx context.Context, svc *app.Service) error {
			s, err := svc.SetSetting(ctx, args[0], args[1], settingType)
			if err != nil {
				return err
			}
			if jsonOutput {
				return printJSON(s)
			}
			fmt.Printf("%s %s = %s\n", ui.RenderPass("✓"), s.Key, s.Value)
			return nil
		})
	},
}

var settingsInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Insert the default settings that are missing",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withService(cmd, func(ctx context.Context, svc *app.Service) error {
			n, err := svc.InitDefaultSettings(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("%s Added %d default setting(s)\n", ui.RenderPass("✓"), n)
			return nil
		})
	},
}

var activityCmd = &cobra.Command{
	Use:     "activity",
	GroupID: "system",
	Short:   "Show the activity log",
	Long: `Show the activity log, newest first.

--since accepts RFC 3339, a date, a duration back from now or an English
expression.

Examples:
  reprod activity --type video_completed
  reprod activity --since yesterday
  reprod activity --since 72h -n 100`,
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		activityType, _ := cmd.Flags().GetString("type")
		sinceStr, _ := cmd.Flags().GetString("since")

		var since time.Time
		if sinceStr != "" {
			t, err := parseSince(sinceStr, time.Now())
			if err != nil {
				return err
			}
			since = t
		}

		return withService(cmd, func(ctx context.Context, svc *app.Service) error {
			var entries []types.ActivityLog
			var err error
			switch {
			case activityType != "":
				entries, err = svc.ActivityByType(ctx, activityType, limit)
			case !since.IsZero():
				entries, err = svc.ActivitySince(ctx, since, limit)
			default:
				entries, err = svc.RecentActivity(ctx, limit)
			}
			if err != nil {
				return err
			}
			if activityType != "" && !since.IsZero() {
				kept := entries[:0]
				for _, e := range entries {
					if !e.CreatedAt.Before(since) {
						kept = append(kept, e)
					}
				}
				entries = kept
			}
			if jsonOutput {
				return printJSON(entries)
			}
			if len(entries) == 0 {
				fmt.Printf("%s No activity\n", ui.RenderMuted("·"))
				return nil
			}
			for _, e := range entries {
				details := ""
				if e.Details != nil {
					details = *e.Details
				}
				fmt.Printf("%-14s %-18s %s:%s %s\n", ui.RenderMuted(humanize.Time(e.CreatedAt)),
					ui.RenderAccent(e.ActivityType), e.EntityType, e.EntityID, ui.RenderMuted(details))
			}
			return nil
		})
	},
}

var activityLogCmd = &cobra.Command{
	Use:   "log <type> <entity-type> [entity-id]",
	Short: "Append an entry to the activity log",
	Args:  cobra.RangeArgs(2, 3),
	RunE: func(cmd *cobra.Command, args []string) error {
		details, _ := cmd.Flags().GetString("details")
		entityID := ""
		if len(args) == 3 {
			entityID = args[2]
		}
		return withService(cmd, func(ctx context.Context, svc *app.Service) error {
			entry, err := svc.LogActivity(ctx, args[0], entityID, args[1], details)
			if err != nil {
				return err
			}
			if jsonOutput {
				return printJSON(entry)
			}
			fmt.Printf("%s Logged %s\n", ui.RenderPass("✓"), entry.ID)
			return nil
		})
	},
}

func init() {
	settingsSetCmd.Flags().String("type", types.SettingString, "Setting type: string, number, boolean or json")

	activityCmd.Flags().IntP("limit", "n", 50, "Maximum number of entries")
	activityCmd.Flags().String("type", "", "Only entries of this activity type")
	activityCmd.Flags().String("since", "", "Only entries at or after this time")
	activityLogCmd.Flags().String("details", "", "Free-form details")

	settingsCmd.AddCommand(settingsGetCmd, settingsSetCmd, settingsInitCmd)
	activityCmd.AddCommand(activityLogCmd)
	rootCmd.AddCommand(settingsCmd, activityCmd)
}
