package export

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/reprodlocal/reprod/internal/store"
	"github.com/reprodlocal/reprod/internal/types"
)

func setupLibrary(t *testing.T) *store.DB {
	t.Helper()
	ctx := context.Background()

	db, err := store.Open(ctx, filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("store.Open() failed: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	now := time.Now()
	course := types.Course{ID: "c1", Name: "Rust", Path: "/lib/rust", CreatedAt: now}
	module := types.Module{ID: "m1", CourseID: "c1", Name: "Ownership", Path: "/lib/rust/own", CreatedAt: now}
	if err := db.UpsertCourse(ctx, &course); err != nil {
		t.Fatalf("UpsertCourse() failed: %v", err)
	}
	if err := db.UpsertModule(ctx, &module); err != nil {
		t.Fatalf("UpsertModule() failed: %v", err)
	}
	for i, name := range []string{"borrow", "move"} {
		v := types.Video{ID: "v-" + name, ModuleID: "m1", CourseID: "c1", Name: name, Path: "/lib/rust/own/" + name + ".mkv", OrderIndex: i}
		if err := db.UpsertVideo(ctx, &v); err != nil {
			t.Fatalf("UpsertVideo() failed: %v", err)
		}
	}
	if _, err := db.MarkCompleted(ctx, "v-borrow", true); err != nil {
		t.Fatalf("MarkCompleted() failed: %v", err)
	}
	note := types.UserNote{ID: "n1", CourseID: types.StringPtr("c1"), Title: "Lifetimes", CreatedAt: now, UpdatedAt: now}
	if err := db.CreateNote(ctx, &note); err != nil {
		t.Fatalf("CreateNote() failed: %v", err)
	}
	return db
}

func TestBuild(t *testing.T) {
	lib, err := Build(context.Background(), setupLibrary(t))
	if err != nil {
		t.Fatalf("Build() failed: %v", err)
	}
	if len(lib.Courses) != 1 {
		t.Fatalf("courses = %d, want 1", len(lib.Courses))
	}
	c := lib.Courses[0]
	if c.Stats.Total != 2 || c.Stats.Completed != 1 {
		t.Errorf("stats = %+v", c.Stats)
	}
	videos := c.Modules[0].Videos
	if len(videos) != 2 {
		t.Fatalf("videos = %d, want 2", len(videos))
	}
	if videos[0].Progress == nil || !videos[0].Progress.Completed {
		t.Errorf("first video progress = %+v, want completed", videos[0].Progress)
	}
	if videos[1].Progress != nil {
		t.Errorf("unwatched video has progress %+v", videos[1].Progress)
	}
	if len(lib.Notes) != 1 {
		t.Errorf("notes = %d, want 1", len(lib.Notes))
	}
}

func TestWrite_Formats(t *testing.T) {
	lib, err := Build(context.Background(), setupLibrary(t))
	if err != nil {
		t.Fatalf("Build() failed: %v", err)
	}

	var js bytes.Buffer
	if err := Write(&js, lib, FormatJSON); err != nil {
		t.Fatalf("Write(json) failed: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(js.Bytes(), &decoded); err != nil {
		t.Fatalf("json output does not parse: %v", err)
	}
	courses := decoded["courses"].([]any)
	if courses[0].(map[string]any)["name"] != "Rust" {
		t.Errorf("json course = %v, want flattened name", courses[0])
	}

	var ym bytes.Buffer
	if err := Write(&ym, lib, FormatYAML); err != nil {
		t.Fatalf("Write(yaml) failed: %v", err)
	}
	var node map[string]any
	if err := yaml.Unmarshal(ym.Bytes(), &node); err != nil {
		t.Fatalf("yaml output does not parse: %v", err)
	}
	if !strings.Contains(ym.String(), "name: Rust") {
		t.Errorf("yaml output missing inline course name:\n%s", ym.String())
	}

	if err := Write(&js, lib, "xml"); !types.IsInvalidInput(err) {
		t.Errorf("Write(xml) error = %v, want InvalidInput", err)
	}
}
