package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/reprodlocal/reprod/internal/scanner"
	"github.com/reprodlocal/reprod/internal/types"
)

// ScanDefaultRoots scans every configured root that exists. Roots that
// fail are logged and skipped.
func (s *Service) ScanDefaultRoots(ctx context.Context) ([]types.Course, error) {
	roots := scanner.ExistingRoots(s.roots)
	if len(roots) == 0 {
		s.log.Infow("No scan roots found", "candidates", len(s.roots))
		return []types.Course{}, nil
	}
	courses, err := s.scanner.RescanCourses(ctx, roots)
	if err != nil {
		return nil, err
	}
	s.afterScan(ctx, courses)
	return courses, nil
}

// ScanDirectory scans a user-chosen directory.
func (s *Service) ScanDirectory(ctx context.Context, path string) ([]types.Course, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("directory path is required: %w", types.ErrInvalidInput)
	}
	courses, err := s.scanner.ScanDirectory(ctx, path)
	if err != nil {
		return nil, err
	}
	s.afterScan(ctx, courses)
	return courses, nil
}

// ScanCourse rescans a single course directory.
func (s *Service) ScanCourse(ctx context.Context, path string) (types.Course, error) {
	if strings.TrimSpace(path) == "" {
		return types.Course{}, fmt.Errorf("course path is required: %w", types.ErrInvalidInput)
	}
	course, err := s.scanner.ScanCourseDirectory(ctx, path)
	if err != nil {
		return types.Course{}, err
	}
	s.afterScan(ctx, []types.Course{course})
	return course, nil
}

func (s *Service) afterScan(ctx context.Context, courses []types.Course) {
	for _, c := range courses {
		s.record(ctx, types.ActivityCourseScanned, c.ID, types.EntityCourse, map[string]string{
			"name": c.Name,
			"path": c.Path,
		})
		s.publish(EventCourseScanned, c)
	}
}

// ListCourses returns all courses, most recently accessed first.
func (s *Service) ListCourses(ctx context.Context) ([]types.Course, error) {
	return s.db.AllCourses(ctx)
}

// Course returns one course.
func (s *Service) Course(ctx context.Context, courseID string) (*types.Course, error) {
	if courseID == "" {
		return nil, fmt.Errorf("course id is required: %w", types.ErrInvalidInput)
	}
	return s.db.CourseByID(ctx, courseID)
}

// CourseModules returns the modules of a course in order.
func (s *Service) CourseModules(ctx context.Context, courseID string) ([]types.Module, error) {
	if courseID == "" {
		return nil, fmt.Errorf("course id is required: %w", types.ErrInvalidInput)
	}
	return s.db.ModulesOfCourse(ctx, courseID)
}

// ModuleVideos returns the videos of a module in order.
func (s *Service) ModuleVideos(ctx context.Context, moduleID string) ([]types.Video, error) {
	if moduleID == "" {
		return nil, fmt.Errorf("module id is required: %w", types.ErrInvalidInput)
	}
	return s.db.VideosOfModule(ctx, moduleID)
}

// VideoByPath looks a video up by its file path.
func (s *Service) VideoByPath(ctx context.Context, path string) (*types.Video, error) {
	if path == "" {
		return nil, fmt.Errorf("video path is required: %w", types.ErrInvalidInput)
	}
	return s.db.VideoByPath(ctx, path)
}

// TouchCourse records that a course was opened.
func (s *Service) TouchCourse(ctx context.Context, courseID string) error {
	if courseID == "" {
		return fmt.Errorf("course id is required: %w", types.ErrInvalidInput)
	}
	return s.db.UpdateCourseLastAccessed(ctx, courseID)
}

// DeleteCourse removes a course with its modules, videos and progress.
func (s *Service) DeleteCourse(ctx context.Context, courseID string) error {
	if courseID == "" {
		return fmt.Errorf("course id is required: %w", types.ErrInvalidInput)
	}
	return s.db.DeleteCourse(ctx, courseID)
}

// RemoveCourseByPath deletes the course stored for a directory, used when
// the directory disappears from disk.
func (s *Service) RemoveCourseByPath(ctx context.Context, path string) error {
	if path == "" {
		return fmt.Errorf("course path is required: %w", types.ErrInvalidInput)
	}
	course, err := s.db.CourseByPath(ctx, path)
	if err != nil {
		return err
	}
	return s.db.DeleteCourse(ctx, course.ID)
}
