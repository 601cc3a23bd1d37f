package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

func TestDefault_Validates(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", t.TempDir())

	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() failed: %v", err)
	}
	if cfg.Database.Path == "" || filepath.Base(cfg.Database.Path) != "reprod.db" {
		t.Errorf("database path = %q, want a resolved reprod.db", cfg.Database.Path)
	}
	if !cfg.Scan.ReuseIDs {
		t.Error("scan.reuse_ids should default to true")
	}
}

func TestValidate_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"ratio above one", func(c *Config) { c.Progress.CompleteRatio = 1.5 }},
		{"negative ratio", func(c *Config) { c.Progress.CompleteRatio = -0.1 }},
		{"unknown level", func(c *Config) { c.Log.Level = "chatty" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.Database.Path = "/tmp/x.db"
			tt.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Validate() should fail")
			}
		})
	}
}

func TestWriteThenLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "reprod.toml")

	want := Default()
	want.Database.Path = filepath.Join(dir, "lib.db")
	want.Scan.Roots = []string{filepath.Join(dir, "courses")}
	want.Progress.SessionGap = 45 * time.Minute
	want.UI.Color = false

	if err := Write(path, want); err != nil {
		t.Fatalf("Write() failed: %v", err)
	}
	if err := Write(path, want); err == nil {
		t.Error("Write() should not overwrite an existing file")
	}

	got, used, err := Load(path)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if used != path {
		t.Errorf("config used = %q, want %q", used, path)
	}
	if got.Database.Path != want.Database.Path {
		t.Errorf("database.path = %q, want %q", got.Database.Path, want.Database.Path)
	}
	if !reflect.DeepEqual(got.Scan.Roots, want.Scan.Roots) {
		t.Errorf("scan.roots = %v, want %v", got.Scan.Roots, want.Scan.Roots)
	}
	if got.Progress.SessionGap != want.Progress.SessionGap {
		t.Errorf("progress.session_gap = %v, want %v", got.Progress.SessionGap, want.Progress.SessionGap)
	}
	if got.UI.Color {
		t.Error("ui.color = true, want false")
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "reprod.toml")
	if err := os.WriteFile(path, []byte("[database]\npath = \"/tmp/file.db\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("REPROD_LOG_LEVEL", "debug")
	t.Setenv("REPROD_SCAN_REUSE_IDS", "false")

	cfg, _, err := Load(path)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("log.level = %q, want debug", cfg.Log.Level)
	}
	if cfg.Scan.ReuseIDs {
		t.Error("scan.reuse_ids should be overridden to false")
	}
	if cfg.Database.Path != "/tmp/file.db" {
		t.Errorf("database.path = %q, want file value", cfg.Database.Path)
	}
	if cfg.Watch.Debounce != 2*time.Second {
		t.Errorf("watch.debounce = %v, want default 2s", cfg.Watch.Debounce)
	}
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	if _, _, err := Load(filepath.Join(t.TempDir(), "absent.toml")); err == nil {
		t.Error("Load() should fail for a missing explicit config file")
	}
}

func TestExpandHome(t *testing.T) {
	t.Setenv("HOME", "/home/tester")
	if got := expandHome("~/Courses"); got != "/home/tester/Courses" {
		t.Errorf("expandHome() = %q", got)
	}
	if got := expandHome("/abs"); got != "/abs" {
		t.Errorf("expandHome(/abs) = %q", got)
	}
}
