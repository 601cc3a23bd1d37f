// Package progress records watch progress and derives completion state.
//
// Each video has at most one progress row. Updates go through the store's
// read-modify-write so the row is found by video id and changed in place.
package progress

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/reprodlocal/reprod/internal/types"
)

// Defaults for Options.
const (
	DefaultCompleteRatio = 0.95
	DefaultSessionGap    = 30 * time.Minute
)

// Store is the persistence the tracker needs.
type Store interface {
	GetProgress(ctx context.Context, videoID string) (*types.VideoProgress, error)
	ModifyProgress(ctx context.Context, videoID string, mutate func(p *types.VideoProgress, exists bool) error) (*types.VideoProgress, error)
	MarkCompleted(ctx context.Context, videoID string, completed bool) (*types.VideoProgress, error)
	CourseStats(ctx context.Context, courseID string) (types.CourseStats, error)
}

// Options tunes the tracker.
type Options struct {
	// CompleteRatio marks a video complete once position/duration reaches
	// it. Zero disables automatic completion.
	CompleteRatio float64

	// SessionGap is the idle time after which an update counts as a new
	// watch and increments watch_count.
	SessionGap time.Duration
}

// Tracker updates progress rows and answers completion questions.
type Tracker struct {
	store Store
	opts  Options
	now   func() time.Time
}

// New creates a Tracker. Out-of-range options fall back to the defaults.
func New(store Store, opts Options) *Tracker {
	if opts.CompleteRatio < 0 || opts.CompleteRatio > 1 {
		opts.CompleteRatio = DefaultCompleteRatio
	}
	if opts.SessionGap <= 0 {
		opts.SessionGap = DefaultSessionGap
	}
	return &Tracker{store: store, opts: opts, now: time.Now}
}

// Update records a playback position for a video.
//
// Positions past a known duration are clamped to it. The row is marked
// complete when completed is set or the completion ratio is reached.
func (t *Tracker) Update(ctx context.Context, videoID string, currentTime, duration float64, completed bool) (*types.VideoProgress, error) {
	if videoID == "" {
		return nil, fmt.Errorf("video id is required: %w", types.ErrInvalidInput)
	}
	if invalidSeconds(currentTime) || invalidSeconds(duration) {
		return nil, fmt.Errorf("position %v and duration %v must be non-negative numbers: %w",
			currentTime, duration, types.ErrInvalidInput)
	}
	if duration > 0 && currentTime > duration {
		currentTime = duration
	}
	if t.reachedRatio(currentTime, duration) {
		completed = true
	}

	now := t.now()
	return t.store.ModifyProgress(ctx, videoID, func(p *types.VideoProgress, exists bool) error {
		if exists && now.Sub(p.LastWatched) > t.opts.SessionGap {
			p.WatchCount++
		}
		if p.WatchCount < 1 {
			p.WatchCount = 1
		}
		p.CurrentTime = currentTime
		p.Duration = duration
		p.Completed = completed
		p.LastWatched = now
		return nil
	})
}

// MarkCompleted sets or clears the completed flag of a video.
func (t *Tracker) MarkCompleted(ctx context.Context, videoID string, completed bool) (*types.VideoProgress, error) {
	if videoID == "" {
		return nil, fmt.Errorf("video id is required: %w", types.ErrInvalidInput)
	}
	return t.store.MarkCompleted(ctx, videoID, completed)
}

// Get returns the progress row of a video, nil when it was never watched.
func (t *Tracker) Get(ctx context.Context, videoID string) (*types.VideoProgress, error) {
	return t.store.GetProgress(ctx, videoID)
}

// CourseStats returns the completion counts of a course.
func (t *Tracker) CourseStats(ctx context.Context, courseID string) (types.CourseStats, error) {
	if courseID == "" {
		return types.CourseStats{}, fmt.Errorf("course id is required: %w", types.ErrInvalidInput)
	}
	return t.store.CourseStats(ctx, courseID)
}

func (t *Tracker) reachedRatio(currentTime, duration float64) bool {
	if t.opts.CompleteRatio == 0 || duration <= 0 {
		return false
	}
	return currentTime/duration >= t.opts.CompleteRatio
}

func invalidSeconds(v float64) bool {
	return v < 0 || math.IsNaN(v) || math.IsInf(v, 0)
}
