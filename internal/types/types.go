// Package types defines the entities of the course library: courses, modules,
// videos and the user data attached to them (progress, notes, bookmarks,
// settings and the activity log).
package types

import (
	"fmt"
	"time"
)

// Course is a top-level content grouping, one per scanned root subdirectory
// (or synthesized for loose videos found directly under a root).
type Course struct {
	ID           string     `json:"id" yaml:"id"`
	Name         string     `json:"name" yaml:"name"`
	Path         string     `json:"path" yaml:"path"` // unique
	CreatedAt    time.Time  `json:"created_at" yaml:"created_at"`
	LastAccessed *time.Time `json:"last_accessed,omitempty" yaml:"last_accessed,omitempty"`
}

// Validate checks if the Course has valid field values.
func (c *Course) Validate() error {
	if c.ID == "" {
		return fmt.Errorf("course id is required")
	}
	if c.Name == "" {
		return fmt.Errorf("course name is required")
	}
	if c.Path == "" {
		return fmt.Errorf("course path is required")
	}
	return nil
}

// Module groups the videos sharing one immediate parent directory.
type Module struct {
	ID         string    `json:"id" yaml:"id"`
	CourseID   string    `json:"course_id" yaml:"course_id"`
	Name       string    `json:"name" yaml:"name"`
	Path       string    `json:"path" yaml:"path"`
	OrderIndex int       `json:"order_index" yaml:"order_index"`
	CreatedAt  time.Time `json:"created_at" yaml:"created_at"`
}

// Validate checks if the Module has valid field values.
func (m *Module) Validate() error {
	if m.ID == "" {
		return fmt.Errorf("module id is required")
	}
	if m.CourseID == "" {
		return fmt.Errorf("module course_id is required")
	}
	if m.Name == "" {
		return fmt.Errorf("module name is required")
	}
	if m.OrderIndex < 0 {
		return fmt.Errorf("module order_index must be non-negative (got %d)", m.OrderIndex)
	}
	return nil
}

// Video is a single video file. CourseID is denormalized from the module.
type Video struct {
	ID         string   `json:"id" yaml:"id"`
	ModuleID   string   `json:"module_id" yaml:"module_id"`
	CourseID   string   `json:"course_id" yaml:"course_id"`
	Name       string   `json:"name" yaml:"name"` // file name without extension
	Path       string   `json:"path" yaml:"path"` // unique
	Duration   *float64 `json:"duration,omitempty" yaml:"duration,omitempty"`
	FileSize   *int64   `json:"file_size,omitempty" yaml:"file_size,omitempty"`
	OrderIndex int      `json:"order_index" yaml:"order_index"`
}

// Validate checks if the Video has valid field values.
func (v *Video) Validate() error {
	if v.ID == "" {
		return fmt.Errorf("video id is required")
	}
	if v.ModuleID == "" || v.CourseID == "" {
		return fmt.Errorf("video %s must reference a module and a course", v.ID)
	}
	if v.Path == "" {
		return fmt.Errorf("video path is required")
	}
	if v.OrderIndex < 0 {
		return fmt.Errorf("video order_index must be non-negative (got %d)", v.OrderIndex)
	}
	if v.Duration != nil && *v.Duration < 0 {
		return fmt.Errorf("video duration must be non-negative (got %v)", *v.Duration)
	}
	return nil
}

// VideoProgress is the single record tracking playback position and
// completion for one video.
type VideoProgress struct {
	ID          string    `json:"id" yaml:"id"`
	VideoID     string    `json:"video_id" yaml:"video_id"`
	CurrentTime float64   `json:"current_time" yaml:"current_time"`
	Duration    float64   `json:"duration" yaml:"duration"`
	Completed   bool      `json:"completed" yaml:"completed"`
	LastWatched time.Time `json:"last_watched" yaml:"last_watched"`
	WatchCount  int       `json:"watch_count" yaml:"watch_count"`
}

// Validate checks if the VideoProgress has valid field values.
func (p *VideoProgress) Validate() error {
	if p.ID == "" {
		return fmt.Errorf("progress id is required")
	}
	if p.VideoID == "" {
		return fmt.Errorf("progress video_id is required")
	}
	if p.CurrentTime < 0 {
		return fmt.Errorf("current_time must be non-negative (got %v)", p.CurrentTime)
	}
	if p.Duration < 0 {
		return fmt.Errorf("duration must be non-negative (got %v)", p.Duration)
	}
	if p.WatchCount < 0 {
		return fmt.Errorf("watch_count must be non-negative (got %d)", p.WatchCount)
	}
	return nil
}

// VideoWithProgress pairs a video with its progress row.
type VideoWithProgress struct {
	Video    Video          `json:"video" yaml:"video"`
	Progress *VideoProgress `json:"progress,omitempty" yaml:"progress,omitempty"`
}

// CourseStats holds completion counts for one course.
type CourseStats struct {
	CourseID   string `json:"course_id" yaml:"course_id"`
	Total      int    `json:"total" yaml:"total"`
	Completed  int    `json:"completed" yaml:"completed"`
	InProgress int    `json:"in_progress" yaml:"in_progress"`
}

// Percent returns the completed share of the course in the range 0-100.
func (s CourseStats) Percent() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.Completed) * 100 / float64(s.Total)
}

// Note types.
const (
	NoteGeneral   = "note"
	NoteTimestamp = "timestamp"
	NoteSummary   = "summary"
)

// UserNote is a free-form note attached to a video, course or module.
type UserNote struct {
	ID        string    `json:"id" yaml:"id"`
	VideoID   *string   `json:"video_id,omitempty" yaml:"video_id,omitempty"`
	CourseID  *string   `json:"course_id,omitempty" yaml:"course_id,omitempty"`
	ModuleID  *string   `json:"module_id,omitempty" yaml:"module_id,omitempty"`
	Timestamp *float64  `json:"timestamp,omitempty" yaml:"timestamp,omitempty"`
	Title     string    `json:"title" yaml:"title"`
	Content   string    `json:"content" yaml:"content"`
	NoteType  string    `json:"note_type" yaml:"note_type"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
	UpdatedAt time.Time `json:"updated_at" yaml:"updated_at"`
}

// Validate checks if the UserNote has valid field values.
func (n *UserNote) Validate() error {
	if n.ID == "" {
		return fmt.Errorf("note id is required")
	}
	if n.Title == "" {
		return fmt.Errorf("note title is required")
	}
	if n.Timestamp != nil && *n.Timestamp < 0 {
		return fmt.Errorf("note timestamp must be non-negative (got %v)", *n.Timestamp)
	}
	if n.VideoID == nil && n.CourseID == nil && n.ModuleID == nil {
		return fmt.Errorf("note must reference a video, course or module")
	}
	return nil
}

// EntityID returns the id of the most specific entity the note is attached to.
func (n *UserNote) EntityID() string {
	switch {
	case n.VideoID != nil:
		return *n.VideoID
	case n.ModuleID != nil:
		return *n.ModuleID
	case n.CourseID != nil:
		return *n.CourseID
	}
	return ""
}

// VideoBookmark marks a position inside a video.
type VideoBookmark struct {
	ID          string    `json:"id" yaml:"id"`
	VideoID     string    `json:"video_id" yaml:"video_id"`
	Timestamp   float64   `json:"timestamp" yaml:"timestamp"`
	Title       string    `json:"title" yaml:"title"`
	Description *string   `json:"description,omitempty" yaml:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at" yaml:"created_at"`
}

// Validate checks if the VideoBookmark has valid field values.
func (b *VideoBookmark) Validate() error {
	if b.ID == "" {
		return fmt.Errorf("bookmark id is required")
	}
	if b.VideoID == "" {
		return fmt.Errorf("bookmark video_id is required")
	}
	if b.Title == "" {
		return fmt.Errorf("bookmark title is required")
	}
	if b.Timestamp < 0 {
		return fmt.Errorf("bookmark timestamp must be non-negative (got %v)", b.Timestamp)
	}
	return nil
}

// Setting types.
const (
	SettingString  = "string"
	SettingNumber  = "number"
	SettingBoolean = "boolean"
	SettingJSON    = "json"
)

// UserSetting is a typed key/value preference.
type UserSetting struct {
	ID          string    `json:"id" yaml:"id"`
	Key         string    `json:"key" yaml:"key"` // unique
	Value       string    `json:"value" yaml:"value"`
	SettingType string    `json:"setting_type" yaml:"setting_type"`
	UpdatedAt   time.Time `json:"updated_at" yaml:"updated_at"`
}

// Validate checks if the UserSetting has valid field values.
func (s *UserSetting) Validate() error {
	if s.ID == "" {
		return fmt.Errorf("setting id is required")
	}
	if s.Key == "" {
		return fmt.Errorf("setting key is required")
	}
	switch s.SettingType {
	case SettingString, SettingNumber, SettingBoolean, SettingJSON:
	default:
		return fmt.Errorf("unknown setting type %q", s.SettingType)
	}
	return nil
}

// Activity types written by the application.
const (
	ActivityCourseScanned   = "course_scanned"
	ActivityVideoCompleted  = "video_completed"
	ActivityVideoReset      = "video_incomplete"
	ActivityVideoPlayed     = "video_played"
	ActivityNoteCreated     = "note_created"
	ActivityNoteUpdated     = "note_updated"
	ActivityNoteDeleted     = "note_deleted"
	ActivityBookmarkCreated = "bookmark_created"
	ActivityBookmarkDeleted = "bookmark_deleted"
)

// Entity types referenced from the activity log.
const (
	EntityCourse   = "course"
	EntityModule   = "module"
	EntityVideo    = "video"
	EntityNote     = "note"
	EntityBookmark = "bookmark"
)

// ActivityLog is one append-only activity entry.
type ActivityLog struct {
	ID           string    `json:"id" yaml:"id"`
	ActivityType string    `json:"activity_type" yaml:"activity_type"`
	EntityID     string    `json:"entity_id" yaml:"entity_id"`
	EntityType   string    `json:"entity_type" yaml:"entity_type"`
	Details      *string   `json:"details,omitempty" yaml:"details,omitempty"`
	CreatedAt    time.Time `json:"created_at" yaml:"created_at"`
}

// Validate checks if the ActivityLog has valid field values.
func (a *ActivityLog) Validate() error {
	if a.ID == "" {
		return fmt.Errorf("activity id is required")
	}
	if a.ActivityType == "" {
		return fmt.Errorf("activity_type is required")
	}
	if a.EntityType == "" {
		return fmt.Errorf("entity_type is required")
	}
	return nil
}

// StringPtr returns a pointer to s, or nil when s is empty.
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
