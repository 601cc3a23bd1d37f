// Package watch keeps the library in sync with scan roots on disk.
//
// The daemon:
//  1. Scans every root once on start
//  2. Watches each root and all directories below it
//  3. Queues the course directory (or root) touched by each change
//  4. Rescans queued targets once they have been quiet for the debounce
//     interval
//
// fsnotify watches are not recursive, so directories created while running
// are added as their create events arrive.
package watch

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/reprodlocal/reprod/internal/scanner"
	"github.com/reprodlocal/reprod/internal/types"
)

// Rescanner applies changes found on disk to the library.
type Rescanner interface {
	ScanDirectory(ctx context.Context, root string) ([]types.Course, error)
	ScanCourse(ctx context.Context, path string) (types.Course, error)
	RemoveCourseByPath(ctx context.Context, path string) error
}

// Config holds configuration for the daemon.
type Config struct {
	// Debounce is how long a target must stay quiet before it is rescanned.
	Debounce time.Duration

	// ExcludeDirs are directory names never watched.
	ExcludeDirs []string

	// SkipInitialScan starts watching without a full scan.
	SkipInitialScan bool

	Logger *zap.SugaredLogger
}

// DefaultConfig returns the defaults.
func DefaultConfig() *Config {
	return &Config{Debounce: 2 * time.Second}
}

type targetKind int

const (
	targetCourse targetKind = iota
	targetRoot
)

type target struct {
	path string
	root string
	kind targetKind
}

type pending struct {
	target   target
	queuedAt time.Time
}

// Daemon watches scan roots and rescans what changed.
type Daemon struct {
	rescanner Rescanner
	roots     []string
	config    *Config
	log       *zap.SugaredLogger
	exclude   map[string]bool

	watcher       *fsnotify.Watcher
	changeQueue   map[string]pending
	changeQueueMu sync.Mutex

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	now    func() time.Time
}

// New creates a daemon for the given roots. Use Start to begin watching.
func New(r Rescanner, roots []string, config *Config) (*Daemon, error) {
	if r == nil {
		return nil, fmt.Errorf("rescanner cannot be nil")
	}
	if len(roots) == 0 {
		return nil, fmt.Errorf("at least one root is required: %w", types.ErrInvalidInput)
	}
	if config == nil {
		config = DefaultConfig()
	}
	if config.Debounce <= 0 {
		config.Debounce = DefaultConfig().Debounce
	}
	log := config.Logger
	if log == nil {
		log = zap.NewNop().Sugar()
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	clean := make([]string, len(roots))
	for i, r := range roots {
		clean[i] = filepath.Clean(r)
	}
	exclude := make(map[string]bool, len(config.ExcludeDirs))
	for _, name := range config.ExcludeDirs {
		exclude[name] = true
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Daemon{
		rescanner:   r,
		roots:       clean,
		config:      config,
		log:         log,
		exclude:     exclude,
		watcher:     watcher,
		changeQueue: make(map[string]pending),
		ctx:         ctx,
		cancel:      cancel,
		now:         time.Now,
	}, nil
}

// Start scans and watches the roots. It blocks until ctx is cancelled or
// Stop is called.
func (d *Daemon) Start(ctx context.Context) error {
	d.log.Infow("Starting watcher", "roots", d.roots, "debounce", d.config.Debounce)

	if !d.config.SkipInitialScan {
		d.PerformFullScan(ctx)
	}

	watched := 0
	for _, root := range d.roots {
		n, err := d.addTree(root)
		if err != nil {
			d.log.Warnw("Failed to watch root", "root", root, "error", err)
			continue
		}
		watched += n
	}
	if watched == 0 {
		d.cancel()
		_ = d.watcher.Close()
		return fmt.Errorf("no watchable roots: %w", types.ErrNotFound)
	}
	d.log.Infow("Watching directories", "count", watched)

	d.wg.Add(2)
	go d.watchFileEvents()
	go d.processChangeQueue()

	select {
	case <-ctx.Done():
		d.log.Infow("Shutdown signal received")
		return d.Stop()
	case <-d.ctx.Done():
		return nil
	}
}

// Stop shuts the daemon down and waits for in-flight rescans.
func (d *Daemon) Stop() error {
	d.cancel()
	if err := d.watcher.Close(); err != nil {
		d.log.Debugw("Error closing watcher", "error", err)
	}
	d.wg.Wait()
	d.log.Infow("Watcher stopped")
	return nil
}

// PerformFullScan scans every root. Failing roots are logged and skipped.
func (d *Daemon) PerformFullScan(ctx context.Context) {
	for _, root := range d.roots {
		courses, err := d.rescanner.ScanDirectory(ctx, root)
		if err != nil {
			d.log.Warnw("Failed to scan root", "root", root, "error", err)
			continue
		}
		d.log.Infow("Scanned root", "root", root, "courses", len(courses))
	}
}

// addTree watches dir and every directory below it, without following
// links. It returns the number of directories added.
func (d *Daemon) addTree(dir string) (int, error) {
	added := 0
	err := filepath.WalkDir(dir, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			if path == dir {
				return err
			}
			return nil
		}
		if !entry.IsDir() {
			return nil
		}
		if path != dir && d.exclude[entry.Name()] {
			return filepath.SkipDir
		}
		if err := d.watcher.Add(path); err != nil {
			d.log.Warnw("Failed to watch directory", "path", path, "error", err)
			return nil
		}
		added++
		return nil
	})
	return added, err
}

// watchFileEvents monitors filesystem events and queues changes.
func (d *Daemon) watchFileEvents() {
	defer d.wg.Done()

	for {
		select {
		case <-d.ctx.Done():
			return

		case event, ok := <-d.watcher.Events:
			if !ok {
				return
			}
			d.handleEvent(event)

		case err, ok := <-d.watcher.Errors:
			if !ok {
				return
			}
			d.log.Warnw("Watcher error", "error", err)
		}
	}
}

func (d *Daemon) handleEvent(event fsnotify.Event) {
	if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
		return
	}

	isDir := false
	if event.Has(fsnotify.Create) {
		if info, err := os.Lstat(event.Name); err == nil && info.IsDir() {
			isDir = true
			if d.exclude[filepath.Base(event.Name)] {
				return
			}
			if _, err := d.addTree(event.Name); err != nil {
				d.log.Debugw("Failed to watch new directory", "path", event.Name, "error", err)
			}
		}
	}

	// Writes and creates of plain files only matter for videos. Removed
	// paths cannot be told apart, so they are always considered.
	removed := event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename)
	if !removed && !isDir && !scanner.IsVideo(event.Name) {
		return
	}

	t, ok := d.resolve(event.Name)
	if !ok {
		return
	}
	d.log.Debugw("File event", "op", event.Op.String(), "path", event.Name, "target", t.path)
	d.queueChange(t)
}

// resolve maps a changed path to what must be rescanned: the course
// directory containing it, or the root itself for entries directly under
// it.
func (d *Daemon) resolve(path string) (target, bool) {
	path = filepath.Clean(path)
	for _, root := range d.roots {
		rel, err := filepath.Rel(root, path)
		if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			continue
		}
		parts := strings.Split(rel, string(filepath.Separator))
		if d.exclude[parts[0]] {
			return target{}, false
		}
		if len(parts) == 1 && scanner.IsVideo(path) {
			return target{path: root, root: root, kind: targetRoot}, true
		}
		return target{path: filepath.Join(root, parts[0]), root: root, kind: targetCourse}, true
	}
	return target{}, false
}

// queueChange records a target, restarting its quiet period.
func (d *Daemon) queueChange(t target) {
	d.changeQueueMu.Lock()
	defer d.changeQueueMu.Unlock()

	d.changeQueue[t.path] = pending{target: t, queuedAt: d.now()}
}

// processChangeQueue drains quiet targets on every tick.
func (d *Daemon) processChangeQueue() {
	defer d.wg.Done()

	interval := d.config.Debounce / 2
	if interval < 10*time.Millisecond {
		interval = 10 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-d.ctx.Done():
			return
		case <-ticker.C:
			d.processPendingChanges(d.ctx)
		}
	}
}

// processPendingChanges rescans targets that have been quiet for long
// enough, one at a time.
func (d *Daemon) processPendingChanges(ctx context.Context) int {
	d.changeQueueMu.Lock()
	now := d.now()
	var ready []target
	for key, p := range d.changeQueue {
		if now.Sub(p.queuedAt) < d.config.Debounce {
			continue
		}
		ready = append(ready, p.target)
		delete(d.changeQueue, key)
	}
	d.changeQueueMu.Unlock()

	for _, t := range ready {
		d.rescan(ctx, t)
	}
	return len(ready)
}

func (d *Daemon) rescan(ctx context.Context, t target) {
	if t.kind == targetRoot {
		if _, err := d.rescanner.ScanDirectory(ctx, t.path); err != nil {
			d.log.Warnw("Failed to rescan root", "root", t.path, "error", err)
		}
		return
	}

	info, err := os.Stat(t.path)
	switch {
	case os.IsNotExist(err):
		d.log.Infow("Course directory removed", "path", t.path)
		if err := d.rescanner.RemoveCourseByPath(ctx, t.path); err != nil && !types.IsNotFound(err) {
			d.log.Warnw("Failed to remove course", "path", t.path, "error", err)
		}
	case err != nil:
		d.log.Warnw("Failed to stat course directory", "path", t.path, "error", err)
	case !info.IsDir():
		// A non-video file directly under the root.
	default:
		course, err := d.rescanner.ScanCourse(ctx, t.path)
		if err != nil {
			d.log.Warnw("Failed to rescan course", "path", t.path, "error", err)
			return
		}
		d.log.Infow("Rescanned course", "course", course.Name, "path", t.path)
	}
}

// Pending returns the number of queued targets.
func (d *Daemon) Pending() int {
	d.changeQueueMu.Lock()
	defer d.changeQueueMu.Unlock()
	return len(d.changeQueue)
}
