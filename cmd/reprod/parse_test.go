package main

import (
	"testing"
	"time"

	"github.com/reprodlocal/reprod/internal/types"
)

func TestParsePosition(t *testing.T) {
	tests := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"95.5", 95.5, true},
		{"1:35", 95, true},
		{"1:02:03", 3723, true},
		{"1m35s", 95, true},
		{" 10 ", 10, true},
		{"-3", 0, false},
		{"1:2:3:4", 0, false},
		{"a:10", 0, false},
		{"soon", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parsePosition(tt.in)
			if tt.ok {
				if err != nil {
					t.Fatalf("parsePosition(%q) failed: %v", tt.in, err)
				}
				if got != tt.want {
					t.Errorf("parsePosition(%q) = %v, want %v", tt.in, got, tt.want)
				}
				return
			}
			if !types.IsInvalidInput(err) {
				t.Errorf("parsePosition(%q) error = %v, want InvalidInput", tt.in, err)
			}
		})
	}
}

func TestParseSince(t *testing.T) {
	now := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		in   string
		want time.Time
	}{
		{"2024-03-01T08:30:00Z", time.Date(2024, 3, 1, 8, 30, 0, 0, time.UTC)},
		{"2024-03-10", time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)},
		{"36h", now.Add(-36 * time.Hour)},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseSince(tt.in, now)
			if err != nil {
				t.Fatalf("parseSince(%q) failed: %v", tt.in, err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("parseSince(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}

	t.Run("natural language", func(t *testing.T) {
		got, err := parseSince("yesterday", now)
		if err != nil {
			t.Fatalf("parseSince(yesterday) failed: %v", err)
		}
		if !got.Before(now) || now.Sub(got) > 48*time.Hour {
			t.Errorf("parseSince(yesterday) = %v, want within the previous day of %v", got, now)
		}
	})

	for _, bad := range []string{"", "gibberish words"} {
		if _, err := parseSince(bad, now); !types.IsInvalidInput(err) {
			t.Errorf("parseSince(%q) error = %v, want InvalidInput", bad, err)
		}
	}
}
