package app

import (
	"context"
	"fmt"

	"github.com/reprodlocal/reprod/internal/player"
	"github.com/reprodlocal/reprod/internal/scanner"
	"github.com/reprodlocal/reprod/internal/types"
)

// Play opens a file in the external player. When the file is a known
// video, the play is recorded and its course is touched.
func (s *Service) Play(ctx context.Context, path string, startTime float64) error {
	if path == "" {
		return fmt.Errorf("video path is required: %w", types.ErrInvalidInput)
	}
	if err := s.player.Play(ctx, path, startTime); err != nil {
		return err
	}

	video, err := s.db.VideoByPath(ctx, path)
	if err != nil {
		if !types.IsNotFound(err) {
			s.log.Warnw("Failed to look up played video", "path", path, "error", err)
		}
		return nil
	}
	s.record(ctx, types.ActivityVideoPlayed, video.ID, types.EntityVideo, map[string]float64{"start_time": startTime})
	if err := s.db.UpdateCourseLastAccessed(ctx, video.CourseID); err != nil {
		s.log.Warnw("Failed to touch course", "course", video.CourseID, "error", err)
	}
	return nil
}

// PlayVideo opens a stored video, resuming from its saved position unless
// it is complete.
func (s *Service) PlayVideo(ctx context.Context, videoID string) (*types.Video, error) {
	if videoID == "" {
		return nil, fmt.Errorf("video id is required: %w", types.ErrInvalidInput)
	}
	video, err := s.db.VideoByID(ctx, videoID)
	if err != nil {
		return nil, err
	}
	var start float64
	if p, err := s.tracker.Get(ctx, videoID); err == nil && p != nil && !p.Completed {
		start = p.CurrentTime
	}
	if err := s.Play(ctx, video.Path, start); err != nil {
		return nil, err
	}
	return video, nil
}

// PlayerStatus reports what the player last opened.
func (s *Service) PlayerStatus() player.Status {
	return s.player.Status()
}

// Stop stops the external player.
func (s *Service) Stop() {
	s.player.Stop()
}

func (s *Service) Pause()  { s.player.Pause() }
func (s *Service) Resume() { s.player.Resume() }

// Seek records a new player position.
func (s *Service) Seek(seconds float64) error {
	return s.player.Seek(seconds)
}

// SetVolume sets the player volume, clamped to [0, 1].
func (s *Service) SetVolume(v float64) float64 {
	return s.player.SetVolume(v)
}

// FolderContent lists the videos and subfolders under path without storing
// anything.
func (s *Service) FolderContent(path string) (*scanner.FolderContent, error) {
	if path == "" {
		return nil, fmt.Errorf("folder path is required: %w", types.ErrInvalidInput)
	}
	return scanner.ReadFolder(path)
}

// FolderPlaylist returns every video under path, sorted by path.
func (s *Service) FolderPlaylist(path string) ([]scanner.MediaFile, error) {
	if path == "" {
		return nil, fmt.Errorf("folder path is required: %w", types.ErrInvalidInput)
	}
	return scanner.Playlist(path)
}

// VideoInfo returns file metadata for a video.
func (s *Service) VideoInfo(path string) (*scanner.VideoInfo, error) {
	if path == "" {
		return nil, fmt.Errorf("video path is required: %w", types.ErrInvalidInput)
	}
	return scanner.Info(path)
}
