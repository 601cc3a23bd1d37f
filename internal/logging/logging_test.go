package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    zapcore.Level
		wantErr bool
	}{
		{"", zapcore.InfoLevel, false},
		{"DEBUG", zapcore.DebugLevel, false},
		{"warning", zapcore.WarnLevel, false},
		{"error", zapcore.ErrorLevel, false},
		{"loud", zapcore.InfoLevel, true},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseLevel(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNew_WritesFileSink(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "reprod.log")
	log, err := New(Options{Level: "debug", File: path, MaxSizeMB: 1})
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	log.Infow("Scanned course", "course", "Go")
	_ = log.Sync()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(data), `"course":"Go"`) {
		t.Errorf("log file = %q, want structured course field", data)
	}
}

func TestNew_InvalidLevel(t *testing.T) {
	if _, err := New(Options{Level: "nope"}); err == nil {
		t.Error("New() should reject an unknown level")
	}
}

func TestOrNop(t *testing.T) {
	if OrNop(nil) == nil {
		t.Error("OrNop(nil) returned nil")
	}
}
