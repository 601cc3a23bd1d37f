// Package app is the command layer shared by the CLI and the HTTP server.
//
// Service translates requests into store, scanner, tracker and player calls.
// Every operation returns an entity, a list or an error; Message converts
// errors into the text shown at the boundary. Activity log writes made on
// behalf of another operation are best-effort: a failure is logged and
// never fails the operation it describes.
package app

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/reprodlocal/reprod/internal/player"
	"github.com/reprodlocal/reprod/internal/progress"
	"github.com/reprodlocal/reprod/internal/scanner"
	"github.com/reprodlocal/reprod/internal/store"
	"github.com/reprodlocal/reprod/internal/types"
)

// EventType names a change published to subscribers.
type EventType string

const (
	EventCourseScanned   EventType = "course_scanned"
	EventProgressUpdated EventType = "progress_updated"
	EventVideoCompleted  EventType = "video_completed"
	EventNoteChanged     EventType = "note_changed"
	EventBookmarkChanged EventType = "bookmark_changed"
)

// Event is a change notification.
type Event struct {
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data,omitempty"`
}

// Publisher receives events. Publish must not block.
type Publisher interface {
	Publish(Event)
}

// ActivityWriter appends activity log entries.
type ActivityWriter interface {
	LogActivity(ctx context.Context, a *types.ActivityLog) error
}

// Options wires a Service.
type Options struct {
	Scan     scanner.Options
	Progress progress.Options

	// Roots are the candidate directories for ScanDefaultRoots; missing
	// ones are ignored.
	Roots []string

	Launcher  player.Launcher
	Publisher Publisher

	// Activity overrides where activity entries are written. Defaults to
	// the store.
	Activity ActivityWriter

	Logger *zap.SugaredLogger
}

// Service implements every command over one store handle.
type Service struct {
	db       *store.DB
	scanner  *scanner.Scanner
	tracker  *progress.Tracker
	player   *player.Player
	activity ActivityWriter
	roots    []string

	eventsMu sync.RWMutex
	events   Publisher

	log *zap.SugaredLogger
}

// New creates a Service over db.
func New(db *store.DB, opts Options) *Service {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	if opts.Scan.Logger == nil {
		opts.Scan.Logger = log.Named("scanner")
	}
	activity := opts.Activity
	if activity == nil {
		activity = db
	}
	return &Service{
		db:       db,
		scanner:  scanner.New(db, opts.Scan),
		tracker:  progress.New(db, opts.Progress),
		player:   player.New(opts.Launcher, log.Named("player")),
		activity: activity,
		events:   opts.Publisher,
		roots:    opts.Roots,
		log:      log,
	}
}

// SetPublisher replaces the event publisher. Nil disables events.
func (s *Service) SetPublisher(p Publisher) {
	s.eventsMu.Lock()
	defer s.eventsMu.Unlock()
	s.events = p
}

// Store exposes the underlying store handle.
func (s *Service) Store() *store.DB {
	return s.db
}

// Scanner exposes the scanner, used by the watcher for per-course rescans.
func (s *Service) Scanner() *scanner.Scanner {
	return s.scanner
}

// Roots returns the configured candidate roots.
func (s *Service) Roots() []string {
	return s.roots
}

func (s *Service) publish(t EventType, data any) {
	s.eventsMu.RLock()
	p := s.events
	s.eventsMu.RUnlock()
	if p == nil {
		return
	}
	p.Publish(Event{Type: t, Timestamp: time.Now(), Data: data})
}

// record writes an activity entry on behalf of another operation. Failures
// are logged and dropped.
func (s *Service) record(ctx context.Context, activityType, entityID, entityType string, details any) {
	entry := &types.ActivityLog{
		ID:           uuid.NewString(),
		ActivityType: activityType,
		EntityID:     entityID,
		EntityType:   entityType,
		CreatedAt:    time.Now(),
	}
	if details != nil {
		if b, err := json.Marshal(details); err == nil {
			entry.Details = types.StringPtr(string(b))
		}
	}
	if err := s.activity.LogActivity(ctx, entry); err != nil {
		s.log.Warnw("Failed to record activity", "type", activityType, "entity", entityID, "error", err)
	}
}
