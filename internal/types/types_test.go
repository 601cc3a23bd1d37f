package types

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestVideo_Validate(t *testing.T) {
	neg := -1.0

	tests := []struct {
		name    string
		video   Video
		wantErr bool
		errMsg  string
	}{
		{
			name:  "valid video",
			video: Video{ID: "v1", ModuleID: "m1", CourseID: "c1", Name: "intro", Path: "/c/intro.mp4"},
		},
		{
			name:    "missing id",
			video:   Video{ModuleID: "m1", CourseID: "c1", Path: "/c/intro.mp4"},
			wantErr: true,
			errMsg:  "video id is required",
		},
		{
			name:    "missing module",
			video:   Video{ID: "v1", CourseID: "c1", Path: "/c/intro.mp4"},
			wantErr: true,
			errMsg:  "must reference a module and a course",
		},
		{
			name:    "negative order",
			video:   Video{ID: "v1", ModuleID: "m1", CourseID: "c1", Path: "/c/intro.mp4", OrderIndex: -1},
			wantErr: true,
			errMsg:  "order_index must be non-negative",
		},
		{
			name:    "negative duration",
			video:   Video{ID: "v1", ModuleID: "m1", CourseID: "c1", Path: "/c/intro.mp4", Duration: &neg},
			wantErr: true,
			errMsg:  "duration must be non-negative",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.video.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr && !strings.Contains(err.Error(), tt.errMsg) {
				t.Errorf("Validate() error = %q, want substring %q", err, tt.errMsg)
			}
		})
	}
}

func TestUserNote_Validate(t *testing.T) {
	note := UserNote{ID: "n1", Title: "loose"}
	if err := note.Validate(); err == nil {
		t.Error("expected error for note without any owner")
	}

	note.CourseID = StringPtr("c1")
	if err := note.Validate(); err != nil {
		t.Errorf("Validate() failed: %v", err)
	}
	if got := note.EntityID(); got != "c1" {
		t.Errorf("EntityID() = %q, want c1", got)
	}

	note.VideoID = StringPtr("v1")
	if got := note.EntityID(); got != "v1" {
		t.Errorf("EntityID() = %q, want v1 (most specific owner)", got)
	}
}

func TestUserSetting_Validate(t *testing.T) {
	s := UserSetting{ID: "s1", Key: "theme", Value: "dark", SettingType: SettingString}
	if err := s.Validate(); err != nil {
		t.Errorf("Validate() failed: %v", err)
	}

	s.SettingType = "color"
	if err := s.Validate(); err == nil {
		t.Error("expected error for unknown setting type")
	}
}

func TestCourseStats_Percent(t *testing.T) {
	if got := (CourseStats{}).Percent(); got != 0 {
		t.Errorf("Percent() of empty course = %v, want 0", got)
	}
	if got := (CourseStats{Total: 4, Completed: 1}).Percent(); got != 25 {
		t.Errorf("Percent() = %v, want 25", got)
	}
}

func TestErrorHelpers(t *testing.T) {
	wrapped := fmt.Errorf("course %s: %w", "abc", ErrNotFound)
	if !IsNotFound(wrapped) {
		t.Error("IsNotFound() should see through wrapping")
	}
	if IsConstraint(wrapped) {
		t.Error("IsConstraint() should be false for ErrNotFound")
	}
	if !IsInvalidInput(fmt.Errorf("x: %w", ErrInvalidInput)) {
		t.Error("IsInvalidInput() should be true")
	}
	if !IsIOFailure(errors.Join(errors.New("permission denied"), ErrIOFailure)) {
		t.Error("IsIOFailure() should be true for joined errors")
	}
}
