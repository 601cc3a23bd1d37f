package main

import (
	"context"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/reprodlocal/reprod/internal/app"
	"github.com/reprodlocal/reprod/internal/progress"
	"github.com/reprodlocal/reprod/internal/types"
	"github.com/reprodlocal/reprod/internal/ui"
)

var progressCmd = &cobra.Command{
	Use:     "progress <video-id>",
	GroupID: "progress",
	Short:   "Show or record the watch progress of a video",
	Long: `Show the watch progress of a video, or record a new position with --at.

Examples:
  reprod progress 7c1e...
  reprod progress 7c1e... --at 5m30s --duration 12m`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		at, _ := cmd.Flags().GetDuration("at")
		duration, _ := cmd.Flags().GetDuration("duration")
		done, _ := cmd.Flags().GetBool("completed")
		record := cmd.Flags().Changed("at") || cmd.Flags().Changed("duration") || done

		return withService(cmd, func(ctx context.Context, svc *app.Service) error {
			var p *types.VideoProgress
			var err error
			if record {
				p, err = svc.UpdateProgress(ctx, args[0], at.Seconds(), duration.Seconds(), done)
			} else {
				p, err = svc.GetProgress(ctx, args[0])
			}
			if err != nil {
				return err
			}
			if jsonOutput {
				return printJSON(p)
			}
			if p == nil {
				fmt.Printf("%s Not started\n", stateMark(nil))
				return nil
			}
			fmt.Printf("%s %s  %s / %s  %s %3.0f%%\n", stateMark(p), progress.StateOf(p),
				clock(p.CurrentTime), clock(p.Duration), ui.ProgressBar(progress.Percent(p), 20), progress.Percent(p))
			fmt.Printf("   watched %d time(s), last %s\n", p.WatchCount, humanize.Time(p.LastWatched))
			return nil
		})
	},
}

var completeCmd = &cobra.Command{
	Use:     "complete <video-id>",
	GroupID: "progress",
	Short:   "Mark a video as watched",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withService(cmd, func(ctx context.Context, svc *app.Service) error {
			p, err := svc.MarkCompleted(ctx, args[0])
			if err != nil {
				return err
			}
			if jsonOutput {
				return printJSON(p)
			}
			fmt.Printf("%s Video %s completed\n", ui.RenderPass("✓"), args[0])
			return nil
		})
	},
}

var uncompleteCmd = &cobra.Command{
	Use:     "uncomplete <video-id>",
	GroupID: "progress",
	Short:   "Clear the watched flag of a video",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withService(cmd, func(ctx context.Context, svc *app.Service) error {
			p, err := svc.MarkIncomplete(ctx, args[0])
			if err != nil {
				return err
			}
			if jsonOutput {
				return printJSON(p)
			}
			fmt.Printf("%s Video %s marked as not watched\n", ui.RenderPass("✓"), args[0])
			return nil
		})
	},
}

var recentCmd = &cobra.Command{
	Use:     "recent",
	GroupID: "progress",
	Short:   "List recently watched videos",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		return withService(cmd, func(ctx context.Context, svc *app.Service) error {
			videos, err := svc.RecentVideos(ctx, limit)
			if err != nil {
				return err
			}
			return printVideoList(videos, "Nothing watched yet")
		})
	},
}

var completedCmd = &cobra.Command{
	Use:     "completed",
	GroupID: "progress",
	Short:   "List watched videos",
	RunE: func(cmd *cobra.Command, args []string) error {
		courseID, _ := cmd.Flags().GetString("course")
		return withService(cmd, func(ctx context.Context, svc *app.Service) error {
			videos, err := svc.CompletedVideos(ctx, courseID)
			if err != nil {
				return err
			}
			return printVideoList(videos, "No completed videos")
		})
	},
}

var todoCmd = &cobra.Command{
	Use:     "todo",
	GroupID: "progress",
	Short:   "List videos that are not watched yet, in course order",
	RunE: func(cmd *cobra.Command, args []string) error {
		courseID, _ := cmd.Flags().GetString("course")
		return withService(cmd, func(ctx context.Context, svc *app.Service) error {
			videos, err := svc.IncompleteVideos(ctx, courseID)
			if err != nil {
				return err
			}
			return printVideoList(videos, "Everything is watched")
		})
	},
}

var statsCmd = &cobra.Command{
	Use:     "stats <course-id>",
	GroupID: "progress",
	Short:   "Show completion counts for a course",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withService(cmd, func(ctx context.Context, svc *app.Service) error {
			course, err := svc.Course(ctx, args[0])
			if err != nil {
				return err
			}
			stats, err := svc.CourseStats(ctx, course.ID)
			if err != nil {
				return err
			}
			if jsonOutput {
				return printJSON(stats)
			}
			fmt.Printf("\n%s\n", ui.RenderHeader(course.Name))
			fmt.Printf("%s %3.0f%%\n\n", ui.ProgressBar(stats.Percent(), 30), stats.Percent())
			fmt.Printf("  Total:       %d\n", stats.Total)
			fmt.Printf("  Completed:   %s\n", ui.RenderPass(fmt.Sprint(stats.Completed)))
			fmt.Printf("  In progress: %s\n", ui.RenderWarn(fmt.Sprint(stats.InProgress)))
			fmt.Printf("  Not started: %d\n\n", stats.Total-stats.Completed-stats.InProgress)
			return nil
		})
	},
}

func printVideoList(videos []types.VideoWithProgress, empty string) error {
	if jsonOutput {
		return printJSON(videos)
	}
	if len(videos) == 0 {
		fmt.Printf("%s %s\n", ui.RenderMuted("·"), empty)
		return nil
	}
	for _, v := range videos {
		line := fmt.Sprintf("%s %s  %s", stateMark(v.Progress), v.Video.Name, ui.RenderMuted(v.Video.ID))
		if v.Progress != nil && !v.Progress.LastWatched.IsZero() {
			line += "  " + ui.RenderMuted(humanize.Time(v.Progress.LastWatched))
		}
		fmt.Println(line)
	}
	return nil
}

func stateMark(p *types.VideoProgress) string {
	switch progress.StateOf(p) {
	case progress.Completed:
		return ui.RenderPass("✓")
	case progress.InProgress:
		return ui.RenderWarn("◐")
	default:
		return ui.RenderMuted("○")
	}
}

// clock formats seconds as h:mm:ss or m:ss.
func clock(seconds float64) string {
	d := time.Duration(seconds * float64(time.Second)).Round(time.Second)
	h := int(d / time.Hour)
	m := int(d/time.Minute) % 60
	s := int(d/time.Second) % 60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}

func init() {
	progressCmd.Flags().Duration("at", 0, "Playback position to record (e.g. 5m30s)")
	progressCmd.Flags().Duration("duration", 0, "Total length of the video")
	progressCmd.Flags().Bool("completed", false, "Mark the video complete while recording")

	recentCmd.Flags().IntP("limit", "n", 10, "Maximum number of videos")
	completedCmd.Flags().String("course", "", "Only videos of this course")
	todoCmd.Flags().String("course", "", "Only videos of this course")

	rootCmd.AddCommand(progressCmd, completeCmd, uncompleteCmd, recentCmd, completedCmd, todoCmd, statsCmd)
}
