package store

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/reprodlocal/reprod/internal/types"
)

// testDBPath returns a temporary path for test databases
func testDBPath(t *testing.T) string {
	tmpDir := t.TempDir()
	return filepath.Join(tmpDir, "test.db")
}

// setupTestDB opens a migrated database that is closed with the test.
func setupTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(context.Background(), testDBPath(t))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

// seedCourse stores one course with one module holding n videos.
func seedCourse(t *testing.T, db *DB, name string, n int) (types.Course, types.Module, []types.Video) {
	t.Helper()
	ctx := context.Background()
	now := time.Now()

	course := types.Course{ID: "c-" + name, Name: name, Path: "/lib/" + name, CreatedAt: now}
	if err := db.UpsertCourse(ctx, &course); err != nil {
		t.Fatalf("UpsertCourse() failed: %v", err)
	}
	module := types.Module{ID: "m-" + name, CourseID: course.ID, Name: "Lessons", Path: course.Path, CreatedAt: now}
	if err := db.UpsertModule(ctx, &module); err != nil {
		t.Fatalf("UpsertModule() failed: %v", err)
	}

	var videos []types.Video
	for i := 0; i < n; i++ {
		v := types.Video{
			ID:         fmt.Sprintf("v-%s-%d", name, i),
			ModuleID:   module.ID,
			CourseID:   course.ID,
			Name:       fmt.Sprintf("%02d", i),
			Path:       fmt.Sprintf("%s/%02d.mp4", course.Path, i),
			OrderIndex: i,
		}
		if err := db.UpsertVideo(ctx, &v); err != nil {
			t.Fatalf("UpsertVideo() failed: %v", err)
		}
		videos = append(videos, v)
	}
	return course, module, videos
}

func TestOpen_CreatesSchema(t *testing.T) {
	db := setupTestDB(t)

	tables := []string{
		"courses", "modules", "videos", "video_progress",
		"user_notes", "video_bookmarks", "user_settings", "activity_log", "schema_version",
	}
	for _, table := range tables {
		var count int
		query := `SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?`
		if err := db.conn.QueryRow(query, table).Scan(&count); err != nil {
			t.Fatalf("Failed to query table %s: %v", table, err)
		}
		if count != 1 {
			t.Errorf("Table %s does not exist", table)
		}
	}

	version, err := db.CurrentVersion(context.Background())
	if err != nil {
		t.Fatalf("CurrentVersion() failed: %v", err)
	}
	if version != SchemaVersion {
		t.Errorf("version = %d, want %d", version, SchemaVersion)
	}
}

func TestMigrate_Idempotent(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)

	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("second Migrate() failed: %v", err)
	}
	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("third Migrate() failed: %v", err)
	}

	var stamps int
	if err := db.conn.QueryRow("SELECT COUNT(*) FROM schema_version").Scan(&stamps); err != nil {
		t.Fatalf("count schema_version: %v", err)
	}
	if stamps != len(migrations) {
		t.Errorf("schema_version rows = %d, want %d", stamps, len(migrations))
	}
}

func TestMigrate_ReopenKeepsData(t *testing.T) {
	ctx := context.Background()
	path := testDBPath(t)

	db, err := Open(ctx, path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	seedCourse(t, db, "go", 2)
	if err := db.Close(); err != nil {
		t.Fatalf("Close() failed: %v", err)
	}

	db, err = Open(ctx, path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer db.Close()

	counts, err := db.Counts(ctx)
	if err != nil {
		t.Fatalf("Counts() failed: %v", err)
	}
	if counts.Courses != 1 || counts.Videos != 2 {
		t.Errorf("counts = %+v, want 1 course and 2 videos", counts)
	}
}

func TestMigrate_FromVersionOne(t *testing.T) {
	ctx := context.Background()
	path := testDBPath(t)

	db, err := openConn(ctx, path)
	if err != nil {
		t.Fatalf("openConn() failed: %v", err)
	}
	defer db.Close()

	if err := db.migrateTo(ctx, 1); err != nil {
		t.Fatalf("migrateTo(1) failed: %v", err)
	}

	now := formatTime(time.Now())
	seed := []string{
		`INSERT INTO courses (id, name, path, created_at) VALUES ('c1', 'Go', '/lib/go', '` + now + `')`,
		`INSERT INTO modules (id, course_id, name, path, order_index, created_at) VALUES ('m1', 'c1', 'Lessons', '/lib/go', 0, '` + now + `')`,
		`INSERT INTO videos (id, module_id, course_id, name, path, order_index) VALUES ('v1', 'm1', 'c1', 'intro', '/lib/go/intro.mp4', 0)`,
		`INSERT INTO video_progress (id, video_id, position, duration, completed, last_watched) VALUES ('p1', 'v1', 10, 100, 0, '` + now + `')`,
		`INSERT INTO video_progress (id, video_id, position, duration, completed, last_watched) VALUES ('p2', 'v1', 20, 100, 0, '` + now + `')`,
	}
	for _, stmt := range seed {
		if _, err := db.conn.Exec(stmt); err != nil {
			t.Fatalf("seed v1 data: %v", err)
		}
	}

	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("Migrate() from v1 failed: %v", err)
	}

	version, err := db.CurrentVersion(ctx)
	if err != nil {
		t.Fatalf("CurrentVersion() failed: %v", err)
	}
	if version != 2 {
		t.Errorf("version = %d, want 2", version)
	}

	course, err := db.CourseByID(ctx, "c1")
	if err != nil {
		t.Fatalf("CourseByID() after migration failed: %v", err)
	}
	if course.Name != "Go" {
		t.Errorf("course name = %q, want Go", course.Name)
	}

	p, err := db.GetProgress(ctx, "v1")
	if err != nil {
		t.Fatalf("GetProgress() failed: %v", err)
	}
	if p == nil || p.ID != "p2" || p.CurrentTime != 20 {
		t.Errorf("progress = %+v, want newest row p2 at 20s", p)
	}
	if p != nil && p.WatchCount != 1 {
		t.Errorf("watch_count = %d, want default 1", p.WatchCount)
	}
}

func TestMigrate_RejectsNewerDatabase(t *testing.T) {
	ctx := context.Background()
	path := testDBPath(t)

	db, err := Open(ctx, path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	if _, err := db.conn.Exec(
		"INSERT INTO schema_version (version, name, applied_at) VALUES (?, 'future', ?)",
		SchemaVersion+1, formatTime(time.Now()),
	); err != nil {
		t.Fatalf("stamp future version: %v", err)
	}
	_ = db.Close()

	if _, err := Open(ctx, path); err == nil {
		t.Fatal("Open() should fail for a database from a newer build")
	}
}

func TestAllCourses_Ordering(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)

	seedCourse(t, db, "beta", 0)
	seedCourse(t, db, "alpha", 0)
	gamma, _, _ := seedCourse(t, db, "gamma", 0)

	if err := db.UpdateCourseLastAccessed(ctx, gamma.ID); err != nil {
		t.Fatalf("UpdateCourseLastAccessed() failed: %v", err)
	}

	courses, err := db.AllCourses(ctx)
	if err != nil {
		t.Fatalf("AllCourses() failed: %v", err)
	}
	var names []string
	for _, c := range courses {
		names = append(names, c.Name)
	}
	want := []string{"gamma", "alpha", "beta"}
	if fmt.Sprint(names) != fmt.Sprint(want) {
		t.Errorf("order = %v, want %v", names, want)
	}
	if courses[0].LastAccessed == nil {
		t.Error("last_accessed was not stored")
	}

	if err := db.UpdateCourseLastAccessed(ctx, "missing"); !types.IsNotFound(err) {
		t.Errorf("UpdateCourseLastAccessed(missing) error = %v, want NotFound", err)
	}
}

func TestUpsertVideo_DuplicatePathIsConstraint(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	_, module, videos := seedCourse(t, db, "go", 1)

	dup := types.Video{
		ID:       "other",
		ModuleID: module.ID,
		CourseID: module.CourseID,
		Name:     "dup",
		Path:     videos[0].Path,
	}
	err := db.UpsertVideo(ctx, &dup)
	if !types.IsConstraint(err) {
		t.Fatalf("UpsertVideo(duplicate path) error = %v, want constraint", err)
	}
}

func TestUpsertModule_OrphanIsConstraint(t *testing.T) {
	db := setupTestDB(t)

	orphan := types.Module{ID: "m", CourseID: "nope", Name: "x", Path: "/x", CreatedAt: time.Now()}
	err := db.UpsertModule(context.Background(), &orphan)
	if !types.IsConstraint(err) {
		t.Fatalf("UpsertModule(orphan) error = %v, want constraint", err)
	}
}

func TestMarkCompleted_CreatesSingleRow(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	_, _, videos := seedCourse(t, db, "go", 1)
	videoID := videos[0].ID

	for i := 0; i < 2; i++ {
		p, err := db.MarkCompleted(ctx, videoID, true)
		if err != nil {
			t.Fatalf("MarkCompleted() #%d failed: %v", i, err)
		}
		if !p.Completed {
			t.Errorf("MarkCompleted() #%d returned completed=false", i)
		}
	}

	assertProgressRows(t, db, videoID, 1)

	p, err := db.GetProgress(ctx, videoID)
	if err != nil {
		t.Fatalf("GetProgress() failed: %v", err)
	}
	if !p.Completed {
		t.Error("completed = false, want true")
	}
	if p.CurrentTime != CompletedSentinel || p.Duration != CompletedSentinel {
		t.Errorf("position/duration = %v/%v, want sentinel %v", p.CurrentTime, p.Duration, CompletedSentinel)
	}
}

func TestMarkCompleted_ThenIncomplete(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	_, _, videos := seedCourse(t, db, "go", 1)
	videoID := videos[0].ID

	first, err := db.MarkCompleted(ctx, videoID, true)
	if err != nil {
		t.Fatalf("MarkCompleted(true) failed: %v", err)
	}
	time.Sleep(5 * time.Millisecond)
	second, err := db.MarkCompleted(ctx, videoID, false)
	if err != nil {
		t.Fatalf("MarkCompleted(false) failed: %v", err)
	}

	assertProgressRows(t, db, videoID, 1)

	if second.ID != first.ID {
		t.Errorf("progress id changed from %s to %s", first.ID, second.ID)
	}
	if second.Completed {
		t.Error("completed = true after marking incomplete")
	}
	if second.CurrentTime != first.CurrentTime || second.Duration != first.Duration {
		t.Errorf("position/duration changed: %v/%v -> %v/%v",
			first.CurrentTime, first.Duration, second.CurrentTime, second.Duration)
	}
	if !second.LastWatched.After(first.LastWatched) {
		t.Errorf("last_watched not refreshed: %v -> %v", first.LastWatched, second.LastWatched)
	}
}

func TestMarkCompleted_IncompleteWithoutRow(t *testing.T) {
	db := setupTestDB(t)
	_, _, videos := seedCourse(t, db, "go", 1)

	p, err := db.MarkCompleted(context.Background(), videos[0].ID, false)
	if err != nil {
		t.Fatalf("MarkCompleted(false) failed: %v", err)
	}
	if p.Completed || p.CurrentTime != 0 || p.Duration != 0 {
		t.Errorf("progress = %+v, want zeroed incomplete row", p)
	}
}

func TestMarkCompleted_MissingVideo(t *testing.T) {
	db := setupTestDB(t)

	_, err := db.MarkCompleted(context.Background(), "ghost", true)
	if !types.IsNotFound(err) {
		t.Errorf("MarkCompleted(ghost) error = %v, want NotFound", err)
	}
}

func TestUpsertProgress_UpdatesInPlace(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	_, _, videos := seedCourse(t, db, "go", 1)
	videoID := videos[0].ID

	p1 := &types.VideoProgress{ID: "first", VideoID: videoID, CurrentTime: 10, Duration: 60, LastWatched: time.Now(), WatchCount: 1}
	if err := db.UpsertProgress(ctx, p1); err != nil {
		t.Fatalf("UpsertProgress() failed: %v", err)
	}
	p2 := &types.VideoProgress{ID: "second", VideoID: videoID, CurrentTime: 30, Duration: 60, LastWatched: time.Now(), WatchCount: 2}
	if err := db.UpsertProgress(ctx, p2); err != nil {
		t.Fatalf("UpsertProgress() failed: %v", err)
	}

	assertProgressRows(t, db, videoID, 1)
	if p2.ID != "first" {
		t.Errorf("stored id = %q, want existing id %q", p2.ID, "first")
	}

	got, err := db.GetProgress(ctx, videoID)
	if err != nil {
		t.Fatalf("GetProgress() failed: %v", err)
	}
	if got.CurrentTime != 30 || got.WatchCount != 2 {
		t.Errorf("progress = %+v, want position 30 and watch_count 2", got)
	}
}

func TestCourseStats(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	course, _, videos := seedCourse(t, db, "go", 5)

	// 2 completed, 1 in progress, 1 touched at zero, 1 untouched
	for _, v := range videos[:2] {
		if _, err := db.MarkCompleted(ctx, v.ID, true); err != nil {
			t.Fatalf("MarkCompleted() failed: %v", err)
		}
	}
	inProgress := &types.VideoProgress{VideoID: videos[2].ID, CurrentTime: 42, Duration: 100, LastWatched: time.Now(), WatchCount: 1}
	if err := db.UpsertProgress(ctx, inProgress); err != nil {
		t.Fatalf("UpsertProgress() failed: %v", err)
	}
	if _, err := db.MarkCompleted(ctx, videos[3].ID, false); err != nil {
		t.Fatalf("MarkCompleted(false) failed: %v", err)
	}

	stats, err := db.CourseStats(ctx, course.ID)
	if err != nil {
		t.Fatalf("CourseStats() failed: %v", err)
	}
	if stats.Total != 5 || stats.Completed != 2 || stats.InProgress != 1 {
		t.Errorf("stats = %+v, want (5, 2, 1)", stats)
	}

	if _, err := db.CourseStats(ctx, "missing"); !types.IsNotFound(err) {
		t.Errorf("CourseStats(missing) error = %v, want NotFound", err)
	}
}

func TestCompletedAndIncompleteVideos(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	course, _, videos := seedCourse(t, db, "go", 3)
	seedCourse(t, db, "rust", 2)

	if _, err := db.MarkCompleted(ctx, videos[1].ID, true); err != nil {
		t.Fatalf("MarkCompleted() failed: %v", err)
	}

	done, err := db.CompletedVideos(ctx, course.ID)
	if err != nil {
		t.Fatalf("CompletedVideos() failed: %v", err)
	}
	if len(done) != 1 || done[0].Video.ID != videos[1].ID || done[0].Progress == nil {
		t.Errorf("CompletedVideos() = %+v, want only %s", done, videos[1].ID)
	}

	todo, err := db.IncompleteVideos(ctx, course.ID)
	if err != nil {
		t.Fatalf("IncompleteVideos() failed: %v", err)
	}
	if len(todo) != 2 {
		t.Errorf("IncompleteVideos(course) = %d videos, want 2", len(todo))
	}

	all, err := db.IncompleteVideos(ctx, "")
	if err != nil {
		t.Fatalf("IncompleteVideos(all) failed: %v", err)
	}
	if len(all) != 4 {
		t.Errorf("IncompleteVideos(all) = %d videos, want 4", len(all))
	}
}

func TestRecentVideos(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	_, _, videos := seedCourse(t, db, "go", 3)

	base := time.Now().Add(-time.Hour)
	for i, v := range videos {
		p := &types.VideoProgress{VideoID: v.ID, CurrentTime: 5, Duration: 50, LastWatched: base.Add(time.Duration(i) * time.Minute), WatchCount: 1}
		if err := db.UpsertProgress(ctx, p); err != nil {
			t.Fatalf("UpsertProgress() failed: %v", err)
		}
	}
	if _, err := db.MarkCompleted(ctx, videos[2].ID, true); err != nil {
		t.Fatalf("MarkCompleted() failed: %v", err)
	}

	recent, err := db.RecentVideos(ctx, 10)
	if err != nil {
		t.Fatalf("RecentVideos() failed: %v", err)
	}
	if len(recent) != 2 {
		t.Fatalf("RecentVideos() returned %d, want 2 incomplete", len(recent))
	}
	if recent[0].Video.ID != videos[1].ID {
		t.Errorf("first recent = %s, want %s", recent[0].Video.ID, videos[1].ID)
	}
}

func TestDeleteCourse_Cascades(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	course, _, videos := seedCourse(t, db, "go", 2)

	if _, err := db.MarkCompleted(ctx, videos[0].ID, true); err != nil {
		t.Fatalf("MarkCompleted() failed: %v", err)
	}
	note := &types.UserNote{ID: "n1", VideoID: &videos[0].ID, Title: "t", Content: "c", CreatedAt: time.Now(), UpdatedAt: time.Now()}
	if err := db.CreateNote(ctx, note); err != nil {
		t.Fatalf("CreateNote() failed: %v", err)
	}
	bm := &types.VideoBookmark{ID: "b1", VideoID: videos[0].ID, Timestamp: 3, Title: "here", CreatedAt: time.Now()}
	if err := db.CreateBookmark(ctx, bm); err != nil {
		t.Fatalf("CreateBookmark() failed: %v", err)
	}

	if err := db.DeleteCourse(ctx, course.ID); err != nil {
		t.Fatalf("DeleteCourse() failed: %v", err)
	}

	counts, err := db.Counts(ctx)
	if err != nil {
		t.Fatalf("Counts() failed: %v", err)
	}
	if counts != (Counts{}) {
		t.Errorf("counts after delete = %+v, want all zero", counts)
	}
}

func TestPruneCourse(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	course, module, videos := seedCourse(t, db, "go", 3)

	removed, err := db.PruneCourse(ctx, course.ID, []string{module.ID}, []string{videos[0].ID})
	if err != nil {
		t.Fatalf("PruneCourse() failed: %v", err)
	}
	if removed != 2 {
		t.Errorf("removed = %d, want 2", removed)
	}

	left, err := db.VideosOfCourse(ctx, course.ID)
	if err != nil {
		t.Fatalf("VideosOfCourse() failed: %v", err)
	}
	if len(left) != 1 || left[0].ID != videos[0].ID {
		t.Errorf("remaining videos = %+v", left)
	}
}

func TestNotes_Ordering(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	course, _, videos := seedCourse(t, db, "go", 1)
	videoID := videos[0].ID

	at := func(f float64) *float64 { return &f }
	base := time.Now()
	notes := []types.UserNote{
		{ID: "late", VideoID: &videoID, Timestamp: at(90), Title: "late", CreatedAt: base},
		{ID: "early-b", VideoID: &videoID, Timestamp: at(10), Title: "early b", CreatedAt: base.Add(time.Second)},
		{ID: "early-a", VideoID: &videoID, Timestamp: at(10), Title: "early a", CreatedAt: base},
	}
	for i := range notes {
		notes[i].UpdatedAt = notes[i].CreatedAt
		if err := db.CreateNote(ctx, &notes[i]); err != nil {
			t.Fatalf("CreateNote() failed: %v", err)
		}
	}
	courseNote := types.UserNote{ID: "course", CourseID: &course.ID, Title: "summary", CreatedAt: base, UpdatedAt: base}
	if err := db.CreateNote(ctx, &courseNote); err != nil {
		t.Fatalf("CreateNote() failed: %v", err)
	}

	got, err := db.NotesByVideo(ctx, videoID)
	if err != nil {
		t.Fatalf("NotesByVideo() failed: %v", err)
	}
	var ids []string
	for _, n := range got {
		ids = append(ids, n.ID)
	}
	want := []string{"early-a", "early-b", "late"}
	if fmt.Sprint(ids) != fmt.Sprint(want) {
		t.Errorf("NotesByVideo() order = %v, want %v", ids, want)
	}
	if got[0].NoteType != types.NoteGeneral {
		t.Errorf("default note type = %q, want %q", got[0].NoteType, types.NoteGeneral)
	}

	byCourse, err := db.NotesByCourse(ctx, course.ID)
	if err != nil {
		t.Fatalf("NotesByCourse() failed: %v", err)
	}
	if len(byCourse) != 4 {
		t.Errorf("NotesByCourse() = %d notes, want 4", len(byCourse))
	}
}

func TestNotes_UpdateDelete(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	_, _, videos := seedCourse(t, db, "go", 1)

	created := time.Now().Add(-time.Minute)
	note := &types.UserNote{ID: "n1", VideoID: &videos[0].ID, Title: "old", Content: "old", CreatedAt: created, UpdatedAt: created}
	if err := db.CreateNote(ctx, note); err != nil {
		t.Fatalf("CreateNote() failed: %v", err)
	}

	updated, err := db.UpdateNote(ctx, "n1", "new", "body")
	if err != nil {
		t.Fatalf("UpdateNote() failed: %v", err)
	}
	if updated.Title != "new" || updated.Content != "body" {
		t.Errorf("updated note = %+v", updated)
	}
	if !updated.UpdatedAt.After(created) {
		t.Error("updated_at was not bumped")
	}

	if err := db.DeleteNote(ctx, "n1"); err != nil {
		t.Fatalf("DeleteNote() failed: %v", err)
	}
	if err := db.DeleteNote(ctx, "n1"); !types.IsNotFound(err) {
		t.Errorf("second DeleteNote() error = %v, want NotFound", err)
	}
	if _, err := db.UpdateNote(ctx, "n1", "x", "y"); !types.IsNotFound(err) {
		t.Errorf("UpdateNote(deleted) error = %v, want NotFound", err)
	}
}

func TestBookmarks_Ordering(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	_, _, videos := seedCourse(t, db, "go", 1)

	for i, ts := range []float64{120, 5, 60} {
		b := &types.VideoBookmark{ID: fmt.Sprintf("b%d", i), VideoID: videos[0].ID, Timestamp: ts, Title: "mark", CreatedAt: time.Now()}
		if err := db.CreateBookmark(ctx, b); err != nil {
			t.Fatalf("CreateBookmark() failed: %v", err)
		}
	}

	got, err := db.BookmarksByVideo(ctx, videos[0].ID)
	if err != nil {
		t.Fatalf("BookmarksByVideo() failed: %v", err)
	}
	if len(got) != 3 || got[0].Timestamp != 5 || got[2].Timestamp != 120 {
		t.Errorf("bookmarks = %+v, want ordered by timestamp", got)
	}

	orphan := &types.VideoBookmark{ID: "x", VideoID: "ghost", Title: "x", CreatedAt: time.Now()}
	if err := db.CreateBookmark(ctx, orphan); !types.IsConstraint(err) {
		t.Errorf("CreateBookmark(orphan) error = %v, want constraint", err)
	}
}

func TestSettings(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)

	inserted, err := db.EnsureDefaultSettings(ctx)
	if err != nil {
		t.Fatalf("EnsureDefaultSettings() failed: %v", err)
	}
	if inserted != len(DefaultSettings) {
		t.Errorf("inserted = %d, want %d", inserted, len(DefaultSettings))
	}

	if _, err := db.SetSetting(ctx, "theme", "light", types.SettingString); err != nil {
		t.Fatalf("SetSetting() failed: %v", err)
	}

	inserted, err = db.EnsureDefaultSettings(ctx)
	if err != nil {
		t.Fatalf("EnsureDefaultSettings() second call failed: %v", err)
	}
	if inserted != 0 {
		t.Errorf("second EnsureDefaultSettings() inserted %d, want 0", inserted)
	}

	theme, err := db.GetSetting(ctx, "theme")
	if err != nil {
		t.Fatalf("GetSetting() failed: %v", err)
	}
	if theme.Value != "light" {
		t.Errorf("theme = %q, want user value to survive defaults", theme.Value)
	}

	all, err := db.AllSettings(ctx)
	if err != nil {
		t.Fatalf("AllSettings() failed: %v", err)
	}
	if len(all) != len(DefaultSettings) {
		t.Errorf("AllSettings() = %d, want %d", len(all), len(DefaultSettings))
	}
	for i := 1; i < len(all); i++ {
		if all[i-1].Key > all[i].Key {
			t.Errorf("settings not ordered by key: %s before %s", all[i-1].Key, all[i].Key)
		}
	}

	if _, err := db.GetSetting(ctx, "nope"); !types.IsNotFound(err) {
		t.Errorf("GetSetting(nope) error = %v, want NotFound", err)
	}
	if _, err := db.SetSetting(ctx, "x", "1", "color"); !errors.Is(err, types.ErrInvalidInput) {
		t.Errorf("SetSetting(bad type) error = %v, want InvalidInput", err)
	}
}

func TestActivity(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)

	base := time.Now().Add(-time.Hour)
	entries := []struct {
		typ string
		at  time.Time
	}{
		{types.ActivityNoteCreated, base},
		{types.ActivityVideoCompleted, base.Add(10 * time.Minute)},
		{types.ActivityNoteCreated, base.Add(20 * time.Minute)},
	}
	for i, e := range entries {
		a := &types.ActivityLog{
			ID:           fmt.Sprintf("a%d", i),
			ActivityType: e.typ,
			EntityID:     "x",
			EntityType:   types.EntityNote,
			CreatedAt:    e.at,
		}
		if err := db.LogActivity(ctx, a); err != nil {
			t.Fatalf("LogActivity() failed: %v", err)
		}
	}

	recent, err := db.RecentActivity(ctx, 2)
	if err != nil {
		t.Fatalf("RecentActivity() failed: %v", err)
	}
	if len(recent) != 2 || recent[0].ID != "a2" || recent[1].ID != "a1" {
		t.Errorf("RecentActivity() = %+v, want a2, a1", recent)
	}

	notes, err := db.ActivityByType(ctx, types.ActivityNoteCreated, 10)
	if err != nil {
		t.Fatalf("ActivityByType() failed: %v", err)
	}
	if len(notes) != 2 {
		t.Errorf("ActivityByType() = %d entries, want 2", len(notes))
	}

	since, err := db.ActivitySince(ctx, base.Add(5*time.Minute), 10)
	if err != nil {
		t.Fatalf("ActivitySince() failed: %v", err)
	}
	if len(since) != 2 {
		t.Errorf("ActivitySince() = %d entries, want 2", len(since))
	}
}

func assertProgressRows(t *testing.T, db *DB, videoID string, want int) {
	t.Helper()
	var n int
	if err := db.conn.QueryRow("SELECT COUNT(*) FROM video_progress WHERE video_id = ?", videoID).Scan(&n); err != nil {
		t.Fatalf("count progress rows: %v", err)
	}
	if n != want {
		t.Errorf("progress rows for %s = %d, want %d", videoID, n, want)
	}
}

func TestConnectionPragmas_SurviveReconnect(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)

	// No idle connections: every statement below runs on a fresh connection.
	db.conn.SetMaxIdleConns(0)

	for i := 0; i < 3; i++ {
		var fk, timeout int
		if err := db.conn.QueryRowContext(ctx, "PRAGMA foreign_keys").Scan(&fk); err != nil {
			t.Fatalf("read foreign_keys: %v", err)
		}
		if err := db.conn.QueryRowContext(ctx, "PRAGMA busy_timeout").Scan(&timeout); err != nil {
			t.Fatalf("read busy_timeout: %v", err)
		}
		if fk != 1 || timeout != 5000 {
			t.Errorf("connection %d: foreign_keys = %d, busy_timeout = %d, want 1 and 5000", i, fk, timeout)
		}
	}

	course, _, videos := seedCourse(t, db, "Go", 2)
	if err := db.DeleteCourse(ctx, course.ID); err != nil {
		t.Fatalf("DeleteCourse() failed: %v", err)
	}
	if _, err := db.VideoByID(ctx, videos[0].ID); !types.IsNotFound(err) {
		t.Errorf("video survived course delete on a new connection, err = %v", err)
	}
}
