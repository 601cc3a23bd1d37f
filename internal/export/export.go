// Package export writes the whole library with progress and user data as
// JSON or YAML.
package export

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/reprodlocal/reprod/internal/types"
)

// Formats accepted by Write.
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// Source is the read side of the store used for an export.
type Source interface {
	AllCourses(ctx context.Context) ([]types.Course, error)
	ModulesOfCourse(ctx context.Context, courseID string) ([]types.Module, error)
	VideosOfModule(ctx context.Context, moduleID string) ([]types.Video, error)
	AllProgress(ctx context.Context) (map[string]types.VideoProgress, error)
	CourseStats(ctx context.Context, courseID string) (types.CourseStats, error)
	AllNotes(ctx context.Context) ([]types.UserNote, error)
	AllBookmarks(ctx context.Context) ([]types.VideoBookmark, error)
	AllSettings(ctx context.Context) ([]types.UserSetting, error)
}

// Library is the exported document.
type Library struct {
	ExportedAt time.Time             `json:"exported_at" yaml:"exported_at"`
	Courses    []Course              `json:"courses" yaml:"courses"`
	Notes      []types.UserNote      `json:"notes" yaml:"notes"`
	Bookmarks  []types.VideoBookmark `json:"bookmarks" yaml:"bookmarks"`
	Settings   []types.UserSetting   `json:"settings" yaml:"settings"`
}

type Course struct {
	types.Course `yaml:",inline"`
	Stats        types.CourseStats `json:"stats" yaml:"stats"`
	Modules      []Module          `json:"modules" yaml:"modules"`
}

type Module struct {
	types.Module `yaml:",inline"`
	Videos       []types.VideoWithProgress `json:"videos" yaml:"videos"`
}

// Build reads the full library from src.
func Build(ctx context.Context, src Source) (*Library, error) {
	courses, err := src.AllCourses(ctx)
	if err != nil {
		return nil, err
	}
	progress, err := src.AllProgress(ctx)
	if err != nil {
		return nil, err
	}

	lib := &Library{ExportedAt: time.Now().UTC(), Courses: make([]Course, 0, len(courses))}
	for _, c := range courses {
		stats, err := src.CourseStats(ctx, c.ID)
		if err != nil {
			return nil, err
		}
		modules, err := src.ModulesOfCourse(ctx, c.ID)
		if err != nil {
			return nil, err
		}
		out := Course{Course: c, Stats: stats, Modules: make([]Module, 0, len(modules))}
		for _, m := range modules {
			videos, err := src.VideosOfModule(ctx, m.ID)
			if err != nil {
				return nil, err
			}
			em := Module{Module: m, Videos: make([]types.VideoWithProgress, 0, len(videos))}
			for _, v := range videos {
				vp := types.VideoWithProgress{Video: v}
				if p, ok := progress[v.ID]; ok {
					vp.Progress = &p
				}
				em.Videos = append(em.Videos, vp)
			}
			out.Modules = append(out.Modules, em)
		}
		lib.Courses = append(lib.Courses, out)
	}

	if lib.Notes, err = src.AllNotes(ctx); err != nil {
		return nil, err
	}
	if lib.Bookmarks, err = src.AllBookmarks(ctx); err != nil {
		return nil, err
	}
	if lib.Settings, err = src.AllSettings(ctx); err != nil {
		return nil, err
	}
	return lib, nil
}

// Write encodes lib to w in the given format.
func Write(w io.Writer, lib *Library, format string) error {
	switch strings.ToLower(format) {
	case FormatJSON, "":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(lib); err != nil {
			return fmt.Errorf("failed to encode json: %w", err)
		}
		return nil
	case FormatYAML, "yml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(lib); err != nil {
			return fmt.Errorf("failed to encode yaml: %w", err)
		}
		return enc.Close()
	default:
		return fmt.Errorf("unsupported export format %q: %w", format, types.ErrInvalidInput)
	}
}
