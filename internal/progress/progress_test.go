package progress

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/reprodlocal/reprod/internal/store"
	"github.com/reprodlocal/reprod/internal/types"
)

func setupTracker(t *testing.T, opts Options) (*Tracker, *store.DB, []types.Video) {
	t.Helper()
	ctx := context.Background()

	db, err := store.Open(ctx, filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("store.Open() failed: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	course := types.Course{ID: "c1", Name: "Go", Path: "/lib/go", CreatedAt: time.Now()}
	if err := db.UpsertCourse(ctx, &course); err != nil {
		t.Fatalf("UpsertCourse() failed: %v", err)
	}
	module := types.Module{ID: "m1", CourseID: "c1", Name: "Lessons", Path: "/lib/go", CreatedAt: time.Now()}
	if err := db.UpsertModule(ctx, &module); err != nil {
		t.Fatalf("UpsertModule() failed: %v", err)
	}
	var videos []types.Video
	for i, name := range []string{"a", "b", "c"} {
		v := types.Video{ID: "v-" + name, ModuleID: "m1", CourseID: "c1", Name: name, Path: "/lib/go/" + name + ".mp4", OrderIndex: i}
		if err := db.UpsertVideo(ctx, &v); err != nil {
			t.Fatalf("UpsertVideo() failed: %v", err)
		}
		videos = append(videos, v)
	}

	return New(db, opts), db, videos
}

func TestUpdate_InsertsThenUpdates(t *testing.T) {
	ctx := context.Background()
	tr, _, videos := setupTracker(t, Options{})
	id := videos[0].ID

	first, err := tr.Update(ctx, id, 10, 100, false)
	if err != nil {
		t.Fatalf("Update() failed: %v", err)
	}
	second, err := tr.Update(ctx, id, 40, 100, false)
	if err != nil {
		t.Fatalf("Update() failed: %v", err)
	}

	if first.ID != second.ID {
		t.Errorf("progress id changed: %s -> %s", first.ID, second.ID)
	}
	if second.CurrentTime != 40 || second.WatchCount != 1 {
		t.Errorf("progress = %+v, want position 40 within one watch", second)
	}
	if StateOf(second) != InProgress {
		t.Errorf("state = %s, want %s", StateOf(second), InProgress)
	}
}

func TestUpdate_AutoCompleteAndClamp(t *testing.T) {
	ctx := context.Background()
	tr, _, videos := setupTracker(t, Options{CompleteRatio: 0.9})

	p, err := tr.Update(ctx, videos[0].ID, 150, 100, false)
	if err != nil {
		t.Fatalf("Update() failed: %v", err)
	}
	if p.CurrentTime != 100 {
		t.Errorf("position = %v, want clamped to 100", p.CurrentTime)
	}
	if !p.Completed {
		t.Error("video past the completion ratio should be complete")
	}

	p, err = tr.Update(ctx, videos[1].ID, 50, 100, false)
	if err != nil {
		t.Fatalf("Update() failed: %v", err)
	}
	if p.Completed {
		t.Error("video at 50% should not be complete")
	}
}

func TestUpdate_SessionGapCountsWatches(t *testing.T) {
	ctx := context.Background()
	tr, _, videos := setupTracker(t, Options{SessionGap: time.Minute})
	id := videos[0].ID

	clock := time.Now()
	tr.now = func() time.Time { return clock }

	if _, err := tr.Update(ctx, id, 5, 100, false); err != nil {
		t.Fatalf("Update() failed: %v", err)
	}
	clock = clock.Add(10 * time.Second)
	if _, err := tr.Update(ctx, id, 15, 100, false); err != nil {
		t.Fatalf("Update() failed: %v", err)
	}
	clock = clock.Add(2 * time.Hour)
	p, err := tr.Update(ctx, id, 1, 100, false)
	if err != nil {
		t.Fatalf("Update() failed: %v", err)
	}
	if p.WatchCount != 2 {
		t.Errorf("watch_count = %d, want 2", p.WatchCount)
	}
}

func TestUpdate_InvalidInput(t *testing.T) {
	ctx := context.Background()
	tr, _, videos := setupTracker(t, Options{})

	tests := []struct {
		name     string
		videoID  string
		current  float64
		duration float64
	}{
		{"empty id", "", 1, 1},
		{"negative position", videos[0].ID, -1, 10},
		{"negative duration", videos[0].ID, 1, -10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tr.Update(ctx, tt.videoID, tt.current, tt.duration, false)
			if !types.IsInvalidInput(err) {
				t.Errorf("Update() error = %v, want InvalidInput", err)
			}
		})
	}

	if _, err := tr.Update(ctx, "ghost", 1, 10, false); !types.IsNotFound(err) {
		t.Errorf("Update(ghost) error = %v, want NotFound", err)
	}
}

func TestCourseStats(t *testing.T) {
	ctx := context.Background()
	tr, _, videos := setupTracker(t, Options{CompleteRatio: 0})

	if _, err := tr.MarkCompleted(ctx, videos[0].ID, true); err != nil {
		t.Fatalf("MarkCompleted() failed: %v", err)
	}
	if _, err := tr.Update(ctx, videos[1].ID, 30, 100, false); err != nil {
		t.Fatalf("Update() failed: %v", err)
	}

	stats, err := tr.CourseStats(ctx, "c1")
	if err != nil {
		t.Fatalf("CourseStats() failed: %v", err)
	}
	if stats.Total != 3 || stats.Completed != 1 || stats.InProgress != 1 {
		t.Errorf("stats = %+v, want (3, 1, 1)", stats)
	}
}

func TestStateAndPercent(t *testing.T) {
	tests := []struct {
		name    string
		p       *types.VideoProgress
		state   State
		percent float64
	}{
		{"nil", nil, NotStarted, 0},
		{"zero", &types.VideoProgress{Duration: 100}, NotStarted, 0},
		{"half", &types.VideoProgress{CurrentTime: 50, Duration: 100}, InProgress, 50},
		{"unknown duration", &types.VideoProgress{CurrentTime: 50}, InProgress, 0},
		{"done", &types.VideoProgress{Completed: true}, Completed, 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StateOf(tt.p); got != tt.state {
				t.Errorf("StateOf() = %s, want %s", got, tt.state)
			}
			if got := Percent(tt.p); got != tt.percent {
				t.Errorf("Percent() = %v, want %v", got, tt.percent)
			}
		})
	}
}
