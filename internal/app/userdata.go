package app

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/reprodlocal/reprod/internal/types"
)

// NoteInput holds the fields of a new note. At least one of VideoID,
// CourseID or ModuleID must be set.
type NoteInput struct {
	VideoID   string   `json:"video_id,omitempty"`
	CourseID  string   `json:"course_id,omitempty"`
	ModuleID  string   `json:"module_id,omitempty"`
	Timestamp *float64 `json:"timestamp,omitempty"`
	Title     string   `json:"title"`
	Content   string   `json:"content"`
	NoteType  string   `json:"note_type,omitempty"`
}

// CreateNote stores a new note.
func (s *Service) CreateNote(ctx context.Context, in NoteInput) (*types.UserNote, error) {
	now := time.Now()
	note := &types.UserNote{
		ID:        uuid.NewString(),
		VideoID:   types.StringPtr(in.VideoID),
		CourseID:  types.StringPtr(in.CourseID),
		ModuleID:  types.StringPtr(in.ModuleID),
		Timestamp: in.Timestamp,
		Title:     in.Title,
		Content:   in.Content,
		NoteType:  in.NoteType,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.db.CreateNote(ctx, note); err != nil {
		return nil, err
	}
	s.record(ctx, types.ActivityNoteCreated, note.ID, types.EntityNote, map[string]string{
		"title":  note.Title,
		"target": note.EntityID(),
	})
	s.publish(EventNoteChanged, note)
	return note, nil
}

// UpdateNote replaces the title and content of a note.
func (s *Service) UpdateNote(ctx context.Context, id, title, content string) (*types.UserNote, error) {
	if id == "" {
		return nil, fmt.Errorf("note id is required: %w", types.ErrInvalidInput)
	}
	note, err := s.db.UpdateNote(ctx, id, title, content)
	if err != nil {
		return nil, err
	}
	s.record(ctx, types.ActivityNoteUpdated, id, types.EntityNote, nil)
	s.publish(EventNoteChanged, note)
	return note, nil
}

// DeleteNote removes a note.
func (s *Service) DeleteNote(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("note id is required: %w", types.ErrInvalidInput)
	}
	if err := s.db.DeleteNote(ctx, id); err != nil {
		return err
	}
	s.record(ctx, types.ActivityNoteDeleted, id, types.EntityNote, nil)
	s.publish(EventNoteChanged, map[string]string{"id": id, "action": "deleted"})
	return nil
}

func (s *Service) NotesByVideo(ctx context.Context, videoID string) ([]types.UserNote, error) {
	if videoID == "" {
		return nil, fmt.Errorf("video id is required: %w", types.ErrInvalidInput)
	}
	return s.db.NotesByVideo(ctx, videoID)
}

func (s *Service) NotesByCourse(ctx context.Context, courseID string) ([]types.UserNote, error) {
	if courseID == "" {
		return nil, fmt.Errorf("course id is required: %w", types.ErrInvalidInput)
	}
	return s.db.NotesByCourse(ctx, courseID)
}

func (s *Service) AllNotes(ctx context.Context) ([]types.UserNote, error) {
	return s.db.AllNotes(ctx)
}

// CreateBookmark stores a bookmark at a position in a video.
func (s *Service) CreateBookmark(ctx context.Context, videoID string, timestamp float64, title, description string) (*types.VideoBookmark, error) {
	b := &types.VideoBookmark{
		ID:          uuid.NewString(),
		VideoID:     videoID,
		Timestamp:   timestamp,
		Title:       title,
		Description: types.StringPtr(description),
		CreatedAt:   time.Now(),
	}
	if err := s.db.CreateBookmark(ctx, b); err != nil {
		return nil, err
	}
	s.record(ctx, types.ActivityBookmarkCreated, b.ID, types.EntityBookmark, map[string]any{
		"video_id":  videoID,
		"timestamp": timestamp,
	})
	s.publish(EventBookmarkChanged, b)
	return b, nil
}

// DeleteBookmark removes a bookmark.
func (s *Service) DeleteBookmark(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("bookmark id is required: %w", types.ErrInvalidInput)
	}
	if err := s.db.DeleteBookmark(ctx, id); err != nil {
		return err
	}
	s.record(ctx, types.ActivityBookmarkDeleted, id, types.EntityBookmark, nil)
	s.publish(EventBookmarkChanged, map[string]string{"id": id, "action": "deleted"})
	return nil
}

// Bookmarks returns the bookmarks of a video, or all bookmarks when
// videoID is empty.
func (s *Service) Bookmarks(ctx context.Context, videoID string) ([]types.VideoBookmark, error) {
	if videoID == "" {
		return s.db.AllBookmarks(ctx)
	}
	return s.db.BookmarksByVideo(ctx, videoID)
}

// SetSetting stores a setting. An empty type means string.
func (s *Service) SetSetting(ctx context.Context, key, value, settingType string) (*types.UserSetting, error) {
	if key == "" {
		return nil, fmt.Errorf("setting key is required: %w", types.ErrInvalidInput)
	}
	return s.db.SetSetting(ctx, key, value, settingType)
}

func (s *Service) GetSetting(ctx context.Context, key string) (*types.UserSetting, error) {
	if key == "" {
		return nil, fmt.Errorf("setting key is required: %w", types.ErrInvalidInput)
	}
	return s.db.GetSetting(ctx, key)
}

func (s *Service) AllSettings(ctx context.Context) ([]types.UserSetting, error) {
	return s.db.AllSettings(ctx)
}

// InitDefaultSettings inserts the default settings that are missing and
// returns how many were added.
func (s *Service) InitDefaultSettings(ctx context.Context) (int, error) {
	return s.db.EnsureDefaultSettings(ctx)
}

func (s *Service) RecentActivity(ctx context.Context, limit int) ([]types.ActivityLog, error) {
	return s.db.RecentActivity(ctx, limit)
}

func (s *Service) ActivityByType(ctx context.Context, activityType string, limit int) ([]types.ActivityLog, error) {
	if activityType == "" {
		return nil, fmt.Errorf("activity type is required: %w", types.ErrInvalidInput)
	}
	return s.db.ActivityByType(ctx, activityType, limit)
}

func (s *Service) ActivitySince(ctx context.Context, since time.Time, limit int) ([]types.ActivityLog, error) {
	return s.db.ActivitySince(ctx, since, limit)
}

// LogActivity appends an activity entry on explicit request. Unlike the
// entries written alongside other operations, failures are returned.
func (s *Service) LogActivity(ctx context.Context, activityType, entityID, entityType, details string) (*types.ActivityLog, error) {
	entry := &types.ActivityLog{
		ID:           uuid.NewString(),
		ActivityType: activityType,
		EntityID:     entityID,
		EntityType:   entityType,
		Details:      types.StringPtr(details),
		CreatedAt:    time.Now(),
	}
	if err := s.activity.LogActivity(ctx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}
