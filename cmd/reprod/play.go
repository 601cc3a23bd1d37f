package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/reprodlocal/reprod/internal/app"
	"github.com/reprodlocal/reprod/internal/ui"
)

var playCmd = &cobra.Command{
	Use:     "play <video-id|file>",
	GroupID: "progress",
	Short:   "Open a video in the system player",
	Long: `Open a video in the system's default player.

A stored video resumes from its saved position unless it is complete, or
starts at --start when given. Any other file is opened as is.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		startStr, _ := cmd.Flags().GetString("start")
		var start float64
		if startStr != "" {
			s, err := parsePosition(startStr)
			if err != nil {
				return err
			}
			start = s
		}

		return withService(cmd, func(ctx context.Context, svc *app.Service) error {
			target := args[0]
			if _, err := os.Stat(target); err == nil {
				if err := svc.Play(ctx, target, start); err != nil {
					return err
				}
				fmt.Printf("%s Playing %s\n", ui.RenderPass("▶"), target)
				return nil
			}

			if startStr != "" {
				video, err := svc.Store().VideoByID(ctx, target)
				if err != nil {
					return err
				}
				if err := svc.Play(ctx, video.Path, start); err != nil {
					return err
				}
				fmt.Printf("%s Playing %s from %s\n", ui.RenderPass("▶"), video.Name, clock(start))
				return nil
			}

			video, err := svc.PlayVideo(ctx, target)
			if err != nil {
				return err
			}
			fmt.Printf("%s Playing %s\n", ui.RenderPass("▶"), video.Name)
			return nil
		})
	},
}

func init() {
	playCmd.Flags().String("start", "", "Start position (seconds, m:ss or duration)")
	rootCmd.AddCommand(playCmd)
}
