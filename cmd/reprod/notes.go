package main

import (
	"context"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/reprodlocal/reprod/internal/app"
	"github.com/reprodlocal/reprod/internal/types"
	"github.com/reprodlocal/reprod/internal/ui"
)

var notesCmd = &cobra.Command{
	Use:     "notes",
	GroupID: "notes",
	Short:   "List, add, edit and remove notes",
	RunE: func(cmd *cobra.Command, args []string) error {
		videoID, _ := cmd.Flags().GetString("video")
		courseID, _ := cmd.Flags().GetString("course")
		return withService(cmd, func(ctx context.Context, svc *app.Service) error {
			var notes []types.UserNote
			var err error
			switch {
			case videoID != "":
				notes, err = svc.NotesByVideo(ctx, videoID)
			case courseID != "":
				notes, err = svc.NotesByCourse(ctx, courseID)
			default:
				notes, err = svc.AllNotes(ctx)
			}
			if err != nil {
				return err
			}
			if jsonOutput {
				return printJSON(notes)
			}
			if len(notes) == 0 {
				fmt.Printf("%s No notes\n", ui.RenderMuted("·"))
				return nil
			}
			for _, n := range notes {
				at := ""
				if n.Timestamp != nil {
					at = "@" + clock(*n.Timestamp) + " "
				}
				fmt.Printf("%s %s%s  %s\n", ui.RenderAccent("✎"), at, ui.RenderHeader(n.Title), ui.RenderMuted(n.ID))
				if n.Content != "" {
					fmt.Printf("   %s\n", n.Content)
				}
				fmt.Printf("   %s\n", ui.RenderMuted(n.NoteType+", updated "+humanize.Time(n.UpdatedAt)))
			}
			return nil
		})
	},
}

var notesAddCmd = &cobra.Command{
	Use:   "add <title>",
	Short: "Add a note to a video, module or course",
	Long: `Add a note. At least one of --video, --module or --course is required.

Examples:
  reprod notes add "Closures" --video 7c1e... --at 4m10s --content "capture by reference"
  reprod notes add "Course summary" --course 91ab... --type summary`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		in := app.NoteInput{Title: args[0]}
		in.VideoID, _ = cmd.Flags().GetString("video")
		in.ModuleID, _ = cmd.Flags().GetString("module")
		in.CourseID, _ = cmd.Flags().GetString("course")
		in.Content, _ = cmd.Flags().GetString("content")
		in.NoteType, _ = cmd.Flags().GetString("type")
		if cmd.Flags().Changed("at") {
			at, _ := cmd.Flags().GetDuration("at")
			seconds := at.Seconds()
			in.Timestamp = &seconds
			if in.NoteType == "" {
				in.NoteType = types.NoteTimestamp
			}
		}
		return withService(cmd, func(ctx context.Context, svc *app.Service) error {
			note, err := svc.CreateNote(ctx, in)
			if err != nil {
				return err
			}
			if jsonOutput {
				return printJSON(note)
			}
			fmt.Printf("%s Created note %s\n", ui.RenderPass("✓"), note.ID)
			return nil
		})
	},
}

var notesEditCmd = &cobra.Command{
	Use:   "edit <note-id> <title>",
	Short: "Replace the title and content of a note",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		content, _ := cmd.Flags().GetString("content")
		return withService(cmd, func(ctx context.Context, svc *app.Service) error {
			note, err := svc.UpdateNote(ctx, args[0], args[1], content)
			if err != nil {
				return err
			}
			if jsonOutput {
				return printJSON(note)
			}
			fmt.Printf("%s Updated note %s\n", ui.RenderPass("✓"), note.ID)
			return nil
		})
	},
}

var notesRmCmd = &cobra.Command{
	Use:   "rm <note-id>",
	Short: "Delete a note",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withService(cmd, func(ctx context.Context, svc *app.Service) error {
			if err := svc.DeleteNote(ctx, args[0]); err != nil {
				return err
			}
			fmt.Printf("%s Deleted note %s\n", ui.RenderPass("✓"), args[0])
			return nil
		})
	},
}

var bookmarksCmd = &cobra.Command{
	Use:     "bookmarks",
	GroupID: "notes",
	Short:   "List, add and remove bookmarks",
	RunE: func(cmd *cobra.Command, args []string) error {
		videoID, _ := cmd.Flags().GetString("video")
		return withService(cmd, func(ctx context.Context, svc *app.Service) error {
			marks, err := svc.Bookmarks(ctx, videoID)
			if err != nil {
				return err
			}
			if jsonOutput {
				return printJSON(marks)
			}
			if len(marks) == 0 {
				fmt.Printf("%s No bookmarks\n", ui.RenderMuted("·"))
				return nil
			}
			for _, b := range marks {
				fmt.Printf("%s %s %s  %s\n", ui.RenderAccent("★"), clock(b.Timestamp), b.Title, ui.RenderMuted(b.ID))
				if b.Description != nil {
					fmt.Printf("   %s\n", *b.Description)
				}
			}
			return nil
		})
	},
}

var bookmarksAddCmd = &cobra.Command{
	Use:   "add <video-id> <position> <title>",
	Short: "Bookmark a position in a video",
	Long: `Bookmark a position in a video. The position is a duration such as 90s or 1h2m.

Example:
  reprod bookmarks add 7c1e... 12m40s "Interface satisfaction"`,
	Args: cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		at, err := parsePosition(args[1])
		if err != nil {
			return err
		}
		description, _ := cmd.Flags().GetString("description")
		return withService(cmd, func(ctx context.Context, svc *app.Service) error {
			b, err := svc.CreateBookmark(ctx, args[0], at, args[2], description)
			if err != nil {
				return err
			}
			if jsonOutput {
				return printJSON(b)
			}
			fmt.Printf("%s Bookmarked %s at %s\n", ui.RenderPass("✓"), args[0], clock(b.Timestamp))
			return nil
		})
	},
}

var bookmarksRmCmd = &cobra.Command{
	Use:   "rm <bookmark-id>",
	Short: "Delete a bookmark",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withService(cmd, func(ctx context.Context, svc *app.Service) error {
			if err := svc.DeleteBookmark(ctx, args[0]); err != nil {
				return err
			}
			fmt.Printf("%s Deleted bookmark %s\n", ui.RenderPass("✓"), args[0])
			return nil
		})
	},
}

func init() {
	notesCmd.Flags().String("video", "", "Only notes of this video")
	notesCmd.Flags().String("course", "", "Only notes of this course")

	notesAddCmd.Flags().String("video", "", "Video the note belongs to")
	notesAddCmd.Flags().String("module", "", "Module the note belongs to")
	notesAddCmd.Flags().String("course", "", "Course the note belongs to")
	notesAddCmd.Flags().String("content", "", "Note body")
	notesAddCmd.Flags().String("type", "", "Note type: note, timestamp or summary")
	notesAddCmd.Flags().Duration("at", 0, "Position in the video the note refers to")

	notesEditCmd.Flags().String("content", "", "New note body")

	bookmarksCmd.Flags().String("video", "", "Only bookmarks of this video")
	bookmarksAddCmd.Flags().String("description", "", "Longer description")

	notesCmd.AddCommand(notesAddCmd, notesEditCmd, notesRmCmd)
	bookmarksCmd.AddCommand(bookmarksAddCmd, bookmarksRmCmd)
	rootCmd.AddCommand(notesCmd, bookmarksCmd)
}
