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

var scanCmd = &cobra.Command{
	Use:     "scan [directory]",
	GroupID: "library",
	Short:   "Scan a directory, or the configured roots, into courses",
	Long: `Scan a directory into the library.

Every immediate subdirectory becomes a course and every folder holding videos
inside it becomes a module. Videos directly under the directory form one
extra course named after it.

Without an argument, scans the configured roots (scan.roots) or, when none are
configured, the default candidates that exist: scan.courses_dir, ~/Cursos,
~/Courses, ~/Videos/Cursos, ~/Videos/Courses, ~/Documents/Cursos,
~/Documents/Courses and ~/Downloads.

Examples:
  reprod scan ~/Courses
  reprod scan`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withService(cmd, func(ctx context.Context, svc *app.Service) error {
			start := time.Now()
			var courses []types.Course
			var err error
			if len(args) == 1 {
				logger.Infow("Scanning directory", "path", args[0])
				courses, err = svc.ScanDirectory(ctx, args[0])
			} else {
				logger.Infow("Scanning default roots", "roots", svc.Roots())
				courses, err = svc.ScanDefaultRoots(ctx)
			}
			if err != nil {
				return err
			}
			if jsonOutput {
				return printJSON(courses)
			}
			fmt.Printf("%s Found %d course(s) in %v\n", ui.RenderPass("✓"), len(courses), time.Since(start).Round(time.Millisecond))
			for _, c := range courses {
				fmt.Printf("   %s  %s\n", c.Name, ui.RenderMuted(c.Path))
			}
			return nil
		})
	},
}

var coursesCmd = &cobra.Command{
	Use:     "courses",
	GroupID: "library",
	Short:   "List courses with completion",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withService(cmd, func(ctx context.Context, svc *app.Service) error {
			courses, err := svc.ListCourses(ctx)
			if err != nil {
				return err
			}
			if jsonOutput {
				return printJSON(courses)
			}
			if len(courses) == 0 {
				fmt.Printf("\n%s No courses yet\n", ui.RenderWarn("⚠"))
				fmt.Printf("   Run 'reprod scan <directory>' to add some\n\n")
				return nil
			}
			for _, c := range courses {
				stats, err := svc.CourseStats(ctx, c.ID)
				if err != nil {
					return err
				}
				opened := "never opened"
				if c.LastAccessed != nil {
					opened = "opened " + humanize.Time(*c.LastAccessed)
				}
				fmt.Printf("%s %s %3.0f%%  %s\n", ui.ProgressBar(stats.Percent(), 20), ui.RenderHeader(c.Name), stats.Percent(), ui.RenderMuted(opened))
				fmt.Printf("   %s  %d/%d videos  %s\n", ui.RenderMuted(c.ID), stats.Completed, stats.Total, ui.RenderMuted(c.Path))
			}
			return nil
		})
	},
}

var modulesCmd = &cobra.Command{
	Use:     "modules <course-id>",
	GroupID: "library",
	Short:   "List the modules of a course",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withService(cmd, func(ctx context.Context, svc *app.Service) error {
			if _, err := svc.Course(ctx, args[0]); err != nil {
				return err
			}
			modules, err := svc.CourseModules(ctx, args[0])
			if err != nil {
				return err
			}
			if jsonOutput {
				return printJSON(modules)
			}
			for _, m := range modules {
				fmt.Printf("%2d. %s  %s\n", m.OrderIndex+1, m.Name, ui.RenderMuted(m.ID))
			}
			return nil
		})
	},
}

var videosCmd = &cobra.Command{
	Use:     "videos <module-id>",
	GroupID: "library",
	Short:   "List the videos of a module with their progress",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withService(cmd, func(ctx context.Context, svc *app.Service) error {
			videos, err := svc.ModuleVideos(ctx, args[0])
			if err != nil {
				return err
			}
			if jsonOutput {
				return printJSON(videos)
			}
			for _, v := range videos {
				p, err := svc.GetProgress(ctx, v.ID)
				if err != nil {
					return err
				}
				size := ""
				if v.FileSize != nil {
					size = humanize.Bytes(uint64(*v.FileSize))
				}
				fmt.Printf("%s %2d. %s  %s  %s\n", stateMark(p), v.OrderIndex+1, v.Name, ui.RenderMuted(size), ui.RenderMuted(v.ID))
			}
			return nil
		})
	},
}

var touchCmd = &cobra.Command{
	Use:     "touch <course-id>",
	GroupID: "library",
	Short:   "Mark a course as opened now",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withService(cmd, func(ctx context.Context, svc *app.Service) error {
			if err := svc.TouchCourse(ctx, args[0]); err != nil {
				return err
			}
			fmt.Printf("%s Course %s opened\n", ui.RenderPass("✓"), args[0])
			return nil
		})
	},
}

var removeCourseCmd = &cobra.Command{
	Use:     "remove <course-id>",
	GroupID: "library",
	Short:   "Remove a course with its modules, videos and progress",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withService(cmd, func(ctx context.Context, svc *app.Service) error {
			if err := svc.DeleteCourse(ctx, args[0]); err != nil {
				return err
			}
			fmt.Printf("%s Course %s removed\n", ui.RenderPass("✓"), args[0])
			return nil
		})
	},
}

var folderCmd = &cobra.Command{
	Use:     "folder <path>",
	GroupID: "library",
	Short:   "Browse the videos and subfolders under a folder without storing them",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withService(cmd, func(ctx context.Context, svc *app.Service) error {
			content, err := svc.FolderContent(args[0])
			if err != nil {
				return err
			}
			if jsonOutput {
				return printJSON(content)
			}
			fmt.Printf("\n%s %s (%d videos)\n\n", ui.RenderAccent("📁"), content.Path, content.TotalFiles)
			for _, sub := range content.Subfolders {
				fmt.Printf("   %s/  %s\n", sub.Name, ui.RenderMuted(fmt.Sprintf("%d videos", sub.MediaCount)))
			}
			for _, f := range content.MediaFiles {
				fmt.Printf("   %s  %s %s\n", f.Name, ui.RenderMuted(f.FileType), ui.RenderMuted(humanize.Bytes(uint64(f.Size))))
			}
			fmt.Println()
			return nil
		})
	},
}

var playlistCmd = &cobra.Command{
	Use:     "playlist <path>",
	GroupID: "library",
	Short:   "List every video under a folder in path order",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withService(cmd, func(ctx context.Context, svc *app.Service) error {
			files, err := svc.FolderPlaylist(args[0])
			if err != nil {
				return err
			}
			if jsonOutput {
				return printJSON(files)
			}
			for i, f := range files {
				fmt.Printf("%3d. %s\n", i+1, f.Path)
			}
			return nil
		})
	},
}

var infoCmd = &cobra.Command{
	Use:     "info <file>",
	GroupID: "library",
	Short:   "Show file metadata for a video",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withService(cmd, func(ctx context.Context, svc *app.Service) error {
			info, err := svc.VideoInfo(args[0])
			if err != nil {
				return err
			}
			if jsonOutput {
				return printJSON(info)
			}
			fmt.Printf("Path: %s\n", info.Path)
			fmt.Printf("Type: %s\n", info.FileType)
			fmt.Printf("Size: %s\n", humanize.Bytes(uint64(info.FileSize)))
			if v, err := svc.VideoByPath(ctx, info.Path); err == nil {
				fmt.Printf("Video: %s (course %s)\n", v.ID, v.CourseID)
			}
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(scanCmd, coursesCmd, modulesCmd, videosCmd, touchCmd, removeCourseCmd, folderCmd, playlistCmd, infoCmd)
}
