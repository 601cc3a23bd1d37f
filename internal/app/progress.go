package app

import (
	"context"
	"fmt"

	"github.com/reprodlocal/reprod/internal/types"
)

// GetProgress returns the progress of a video, nil when never watched.
func (s *Service) GetProgress(ctx context.Context, videoID string) (*types.VideoProgress, error) {
	if videoID == "" {
		return nil, fmt.Errorf("video id is required: %w", types.ErrInvalidInput)
	}
	return s.tracker.Get(ctx, videoID)
}

// UpdateProgress records a playback position.
func (s *Service) UpdateProgress(ctx context.Context, videoID string, currentTime, duration float64, completed bool) (*types.VideoProgress, error) {
	p, err := s.tracker.Update(ctx, videoID, currentTime, duration, completed)
	if err != nil {
		return nil, err
	}
	s.publish(EventProgressUpdated, p)
	return p, nil
}

// MarkCompleted marks a video complete.
func (s *Service) MarkCompleted(ctx context.Context, videoID string) (*types.VideoProgress, error) {
	p, err := s.tracker.MarkCompleted(ctx, videoID, true)
	if err != nil {
		return nil, err
	}
	s.record(ctx, types.ActivityVideoCompleted, videoID, types.EntityVideo, nil)
	s.publish(EventVideoCompleted, p)
	return p, nil
}

// MarkIncomplete clears the completed flag of a video.
func (s *Service) MarkIncomplete(ctx context.Context, videoID string) (*types.VideoProgress, error) {
	p, err := s.tracker.MarkCompleted(ctx, videoID, false)
	if err != nil {
		return nil, err
	}
	s.record(ctx, types.ActivityVideoReset, videoID, types.EntityVideo, nil)
	s.publish(EventProgressUpdated, p)
	return p, nil
}

// RecentVideos returns started but unfinished videos, newest first.
func (s *Service) RecentVideos(ctx context.Context, limit int) ([]types.VideoWithProgress, error) {
	return s.db.RecentVideos(ctx, limit)
}

// CompletedVideos lists completed videos; an empty course id means all.
func (s *Service) CompletedVideos(ctx context.Context, courseID string) ([]types.VideoWithProgress, error) {
	return s.db.CompletedVideos(ctx, courseID)
}

// IncompleteVideos lists unfinished videos; an empty course id means all.
func (s *Service) IncompleteVideos(ctx context.Context, courseID string) ([]types.VideoWithProgress, error) {
	return s.db.IncompleteVideos(ctx, courseID)
}

// CourseStats returns completion counts for a course.
func (s *Service) CourseStats(ctx context.Context, courseID string) (types.CourseStats, error) {
	return s.tracker.CourseStats(ctx, courseID)
}
