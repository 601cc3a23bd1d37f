// Package scanner turns directory trees into courses, modules and videos.
//
// Every immediate subdirectory of a scan root is a course. Inside a course,
// each directory that directly holds at least one video becomes a module,
// so module boundaries are filesystem directory boundaries. Videos sitting
// directly under the root are gathered into one synthesized course.
//
// A symbolic link directly under a scan root is resolved, so a linked course
// folder or video is scanned like a real one. Walks inside a course never
// follow links. An unreadable entry inside a course is
// logged and skipped; a course that fails as a whole is logged and left out
// of the result while its siblings proceed.
package scanner

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/reprodlocal/reprod/internal/types"
)

// Names given to courses and modules that cannot be named after a directory.
const (
	UntitledCourse   = "Untitled Course"
	RootCourseName   = "Course"
	CourseRootModule = "Lessons"
	RootVideosModule = "Videos"
	FallbackModule   = "Module"
)

// Store is the persistence the scanner writes through.
type Store interface {
	UpsertCourse(ctx context.Context, c *types.Course) error
	UpsertModule(ctx context.Context, m *types.Module) error
	UpsertVideo(ctx context.Context, v *types.Video) error
	CourseByPath(ctx context.Context, path string) (*types.Course, error)
	ModuleByPath(ctx context.Context, courseID, path string) (*types.Module, error)
	ModulesOfCourse(ctx context.Context, courseID string) ([]types.Module, error)
	VideoByPath(ctx context.Context, path string) (*types.Video, error)
	DeleteCourse(ctx context.Context, courseID string) error
	DeleteVideoByPath(ctx context.Context, path string) (bool, error)
	PruneCourse(ctx context.Context, courseID string, keepModules, keepVideos []string) (int, error)
}

// Options configures a Scanner.
type Options struct {
	// ReuseIDs keeps the ids of courses, modules and videos already stored
	// for the same paths, so progress and notes survive a rescan, and prunes
	// entries that disappeared from disk. When false every scan replaces the
	// course at that path with fresh ids.
	ReuseIDs bool

	// ExcludeDirs are directory names skipped during walks.
	ExcludeDirs []string

	Logger *zap.SugaredLogger
}

// Scanner classifies directory trees and persists the result.
type Scanner struct {
	store   Store
	reuse   bool
	exclude map[string]bool
	log     *zap.SugaredLogger
	now     func() time.Time
}

// New creates a Scanner writing to store.
func New(store Store, opts Options) *Scanner {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	exclude := make(map[string]bool, len(opts.ExcludeDirs))
	for _, name := range opts.ExcludeDirs {
		if name = strings.TrimSpace(name); name != "" {
			exclude[name] = true
		}
	}
	return &Scanner{
		store:   store,
		reuse:   opts.ReuseIDs,
		exclude: exclude,
		log:     log,
		now:     time.Now,
	}
}

// videoFile is one classified file found during a walk.
type videoFile struct {
	path string
	dir  string
	name string
	size *int64
}

// ScanDirectory scans root: each immediate subdirectory becomes a course and
// videos directly under root form one extra course named after root.
//
// root must be an existing directory. Courses that fail are logged and
// omitted; the returned slice holds the courses that were stored.
func (s *Scanner) ScanDirectory(ctx context.Context, root string) ([]types.Course, error) {
	root = filepath.Clean(root)

	info, err := os.Stat(root)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("directory %s: %w", root, types.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w: %w", root, types.ErrIOFailure, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory: %w", root, types.ErrInvalidInput)
	}

	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w: %w", root, types.ErrIOFailure, err)
	}

	s.log.Infow("Scanning directory", "root", root, "entries", len(entries), "reuse_ids", s.reuse)

	var courses []types.Course
	var rootVideos []videoFile

	for _, entry := range entries {
		path := filepath.Join(root, entry.Name())

		if entry.Type()&fs.ModeSymlink != 0 {
			target, err := os.Stat(path)
			if err != nil {
				s.log.Warnw("Skipping broken link", "path", path, "error", err)
				continue
			}
			entry = fs.FileInfoToDirEntry(linkInfo{FileInfo: target, name: entry.Name()})
		}

		switch {
		case entry.IsDir():
			if s.exclude[entry.Name()] {
				continue
			}
			course, err := s.ScanCourseDirectory(ctx, path)
			if err != nil {
				s.log.Warnw("Skipping course directory", "path", path, "error", err)
				continue
			}
			courses = append(courses, course)
		case entry.Type().IsRegular() && IsVideo(entry.Name()):
			rootVideos = append(rootVideos, s.classifyFile(path, entry))
		}
	}

	if len(rootVideos) > 0 {
		name := filepath.Base(root)
		if name == "" || name == "." || name == string(filepath.Separator) {
			name = RootCourseName
		}
		groups := map[string][]videoFile{root: rootVideos}
		course, err := s.persistCourse(ctx, root, name, groups, func(string) string { return RootVideosModule })
		if err != nil {
			s.log.Warnw("Skipping root videos", "root", root, "error", err)
		} else {
			courses = append(courses, course)
		}
	} else if err := s.dropRootCourse(ctx, root); err != nil {
		s.log.Warnw("Failed to remove root videos course", "root", root, "error", err)
	}

	s.log.Infow("Scan complete", "root", root, "courses", len(courses))
	return courses, nil
}

// dropRootCourse deletes the course synthesized from videos directly under
// root once none are left. A course at root whose modules live in
// subdirectories was scanned as a course folder and is kept.
func (s *Scanner) dropRootCourse(ctx context.Context, root string) error {
	existing, err := s.store.CourseByPath(ctx, root)
	if types.IsNotFound(err) {
		return nil
	}
	if err != nil {
		return err
	}
	modules, err := s.store.ModulesOfCourse(ctx, existing.ID)
	if err != nil {
		return err
	}
	if len(modules) == 0 {
		return nil
	}
	for _, m := range modules {
		if m.Path != root {
			return nil
		}
	}
	if err := s.store.DeleteCourse(ctx, existing.ID); err != nil {
		return err
	}
	s.log.Infow("Removed course of root videos missing from disk", "root", root, "course", existing.ID)
	return nil
}

// linkInfo reports a link target under the link's own name.
type linkInfo struct {
	fs.FileInfo
	name string
}

func (l linkInfo) Name() string { return l.name }

// ScanCourseDirectory classifies the tree under path as a single course.
//
// Every directory directly holding videos becomes a module: "Lessons" for
// the course root, otherwise the directory's name. Modules are ordered by
// path and videos by file name. A tree without videos still yields a course.
func (s *Scanner) ScanCourseDirectory(ctx context.Context, path string) (types.Course, error) {
	path = filepath.Clean(path)

	files, err := s.walkVideos(path)
	if err != nil {
		return types.Course{}, err
	}

	groups := make(map[string][]videoFile)
	for _, f := range files {
		groups[f.dir] = append(groups[f.dir], f)
	}

	name := filepath.Base(path)
	if name == "" || name == "." || name == string(filepath.Separator) {
		name = UntitledCourse
	}

	moduleName := func(dir string) string {
		if dir == path {
			return CourseRootModule
		}
		if base := filepath.Base(dir); base != "" && base != "." {
			return base
		}
		return FallbackModule
	}

	return s.persistCourse(ctx, path, name, groups, moduleName)
}

// RescanCourses scans every root in turn and concatenates the results.
// Roots that cannot be scanned are logged and skipped.
func (s *Scanner) RescanCourses(ctx context.Context, roots []string) ([]types.Course, error) {
	var all []types.Course
	for _, root := range roots {
		courses, err := s.ScanDirectory(ctx, root)
		if err != nil {
			s.log.Warnw("Skipping scan root", "root", root, "error", err)
			continue
		}
		all = append(all, courses...)
	}
	return all, nil
}

// walkVideos collects the video files under root without following links.
// Only a failure on root itself is returned; other unreadable entries are
// logged and skipped.
func (s *Scanner) walkVideos(root string) ([]videoFile, error) {
	var files []videoFile

	walkRoot := root
	if info, err := os.Lstat(root); err == nil && info.Mode()&fs.ModeSymlink != 0 {
		resolved, err := filepath.EvalSymlinks(root)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve %s: %w: %w", root, types.ErrIOFailure, err)
		}
		walkRoot = resolved
	}

	err := filepath.WalkDir(walkRoot, func(path string, d fs.DirEntry, walkErr error) error {
		if walkRoot != root {
			rel, err := filepath.Rel(walkRoot, path)
			if err != nil {
				return err
			}
			path = filepath.Join(root, rel)
		}
		if walkErr != nil {
			if path == root {
				return fmt.Errorf("failed to read %s: %w: %w", root, types.ErrIOFailure, walkErr)
			}
			s.log.Warnw("Skipping unreadable entry", "path", path, "error", walkErr)
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			if path != root && s.exclude[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}

		if !d.Type().IsRegular() || !IsVideo(d.Name()) {
			return nil
		}

		files = append(files, s.classifyFile(path, d))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}

func (s *Scanner) classifyFile(path string, d fs.DirEntry) videoFile {
	f := videoFile{
		path: path,
		dir:  filepath.Dir(path),
		name: d.Name(),
	}
	if info, err := d.Info(); err == nil {
		size := info.Size()
		f.size = &size
	} else {
		s.log.Debugw("Could not stat video", "path", path, "error", err)
	}
	return f
}

// persistCourse writes a course and its modules and videos. groups maps a
// module directory to the videos it directly holds.
func (s *Scanner) persistCourse(
	ctx context.Context,
	path, name string,
	groups map[string][]videoFile,
	moduleName func(dir string) string,
) (types.Course, error) {
	course := types.Course{
		ID:        uuid.NewString(),
		Name:      name,
		Path:      path,
		CreatedAt: s.now(),
	}

	existing, err := s.store.CourseByPath(ctx, path)
	switch {
	case err == nil && s.reuse:
		course.ID = existing.ID
		course.CreatedAt = existing.CreatedAt
		course.LastAccessed = existing.LastAccessed
	case err == nil:
		if err := s.store.DeleteCourse(ctx, existing.ID); err != nil {
			return types.Course{}, fmt.Errorf("failed to replace course %s: %w", path, err)
		}
		s.log.Debugw("Replaced previous scan of course", "path", path, "old_id", existing.ID)
	case !types.IsNotFound(err):
		return types.Course{}, err
	}

	if err := s.store.UpsertCourse(ctx, &course); err != nil {
		return types.Course{}, err
	}

	dirs := make([]string, 0, len(groups))
	for dir := range groups {
		dirs = append(dirs, dir)
	}
	sort.Strings(dirs)

	var keepModules, keepVideos []string

	for order, dir := range dirs {
		module := types.Module{
			ID:         uuid.NewString(),
			CourseID:   course.ID,
			Name:       moduleName(dir),
			Path:       dir,
			OrderIndex: order,
			CreatedAt:  s.now(),
		}
		if s.reuse {
			if prev, err := s.store.ModuleByPath(ctx, course.ID, dir); err == nil {
				module.ID = prev.ID
				module.CreatedAt = prev.CreatedAt
			}
		}
		if err := s.store.UpsertModule(ctx, &module); err != nil {
			return types.Course{}, err
		}
		keepModules = append(keepModules, module.ID)

		files := groups[dir]
		sort.SliceStable(files, func(i, j int) bool { return files[i].name < files[j].name })

		for i, f := range files {
			video := types.Video{
				ID:         uuid.NewString(),
				ModuleID:   module.ID,
				CourseID:   course.ID,
				Name:       videoName(f.path),
				Path:       f.path,
				FileSize:   f.size,
				OrderIndex: i,
			}
			if video.Name == "" {
				video.Name = f.name
			}

			if s.reuse {
				if prev, err := s.store.VideoByPath(ctx, f.path); err == nil {
					video.ID = prev.ID
					video.Duration = prev.Duration
				}
			} else if removed, err := s.store.DeleteVideoByPath(ctx, f.path); err != nil {
				return types.Course{}, err
			} else if removed {
				s.log.Debugw("Replaced video stored under another course", "path", f.path)
			}

			if err := s.store.UpsertVideo(ctx, &video); err != nil {
				return types.Course{}, err
			}
			keepVideos = append(keepVideos, video.ID)
		}
	}

	if s.reuse && existing != nil {
		removed, err := s.store.PruneCourse(ctx, course.ID, keepModules, keepVideos)
		if err != nil {
			return types.Course{}, err
		}
		if removed > 0 {
			s.log.Infow("Pruned videos missing from disk", "course", course.Name, "removed", removed)
		}
	}

	s.log.Debugw("Stored course", "name", course.Name, "modules", len(keepModules), "videos", len(keepVideos))
	return course, nil
}
