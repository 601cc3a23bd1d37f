// Package player hands videos to the operating system's default handler.
//
// There is no playback control over the external program: pause, resume and
// seek only update the reported status, and no position or duration flows
// back into the library.
package player

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"sync"

	"go.uber.org/zap"

	"github.com/reprodlocal/reprod/internal/types"
)

// Process is a launched handler that can be stopped.
type Process interface {
	Kill() error
}

// Launcher starts an external handler for a file.
type Launcher interface {
	Launch(ctx context.Context, path string) (Process, error)
}

// OSLauncher opens files with xdg-open, open or "cmd /C start" depending on
// the platform.
type OSLauncher struct {
	// GOOS overrides runtime.GOOS when set.
	GOOS string
}

// Command returns the command that opens path on the launcher's platform.
func (l OSLauncher) Command(path string) *exec.Cmd {
	goos := l.GOOS
	if goos == "" {
		goos = runtime.GOOS
	}
	switch goos {
	case "windows":
		return exec.Command("cmd", "/C", "start", "", path)
	case "darwin":
		return exec.Command("open", path)
	default:
		return exec.Command("xdg-open", path)
	}
}

// Launch starts the handler and reaps it in the background.
func (l OSLauncher) Launch(_ context.Context, path string) (Process, error) {
	cmd := l.Command(path)
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start player for %s: %w", path, err)
	}
	go func() { _ = cmd.Wait() }()
	return cmd.Process, nil
}

// Status is the reported player state.
type Status struct {
	IsPlaying   bool    `json:"is_playing"`
	CurrentTime float64 `json:"current_time"`
	Duration    float64 `json:"duration"`
	Volume      float64 `json:"volume"`
	File        string  `json:"file,omitempty"`
}

// Player tracks the file handed to the launcher.
type Player struct {
	mu       sync.Mutex
	launcher Launcher
	log      *zap.SugaredLogger

	process     Process
	file        string
	playing     bool
	currentTime float64
	duration    float64
	volume      float64
}

// New creates a Player. A nil launcher uses OSLauncher.
func New(launcher Launcher, log *zap.SugaredLogger) *Player {
	if launcher == nil {
		launcher = OSLauncher{}
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Player{launcher: launcher, log: log, volume: 1.0}
}

// Play stops any previous playback and opens path, optionally noting a
// start position.
func (p *Player) Play(ctx context.Context, path string, startTime float64) error {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("video file %s: %w", path, types.ErrNotFound)
		}
		return fmt.Errorf("failed to stat %s: %w: %w", path, types.ErrIOFailure, err)
	}
	if startTime < 0 {
		return fmt.Errorf("start time must be non-negative: %w", types.ErrInvalidInput)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.stopLocked()

	proc, err := p.launcher.Launch(ctx, path)
	if err != nil {
		return err
	}

	p.process = proc
	p.file = path
	p.playing = true
	p.currentTime = startTime
	p.log.Infow("Playing video", "path", path, "start", startTime)
	return nil
}

// Pause marks playback as paused.
func (p *Player) Pause() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.playing = false
	p.log.Debugw("Pause requested; external player is not controlled")
}

// Resume marks playback as running when a file is open.
func (p *Player) Resume() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.playing = p.file != ""
	p.log.Debugw("Resume requested; external player is not controlled")
}

// Seek records a new position.
func (p *Player) Seek(seconds float64) error {
	if seconds < 0 {
		return fmt.Errorf("seek position must be non-negative: %w", types.ErrInvalidInput)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.currentTime = seconds
	return nil
}

// Stop kills the launched handler if it is still running.
func (p *Player) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopLocked()
}

func (p *Player) stopLocked() {
	if p.process != nil {
		if err := p.process.Kill(); err != nil {
			p.log.Debugw("Player process already gone", "error", err)
		}
		p.process = nil
	}
	p.file = ""
	p.playing = false
	p.currentTime = 0
}

// SetVolume sets the volume, clamped to [0, 1].
func (p *Player) SetVolume(v float64) float64 {
	switch {
	case v < 0:
		v = 0
	case v > 1:
		v = 1
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.volume = v
	return v
}

// Status reports the current state.
func (p *Player) Status() Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Status{
		IsPlaying:   p.playing,
		CurrentTime: p.currentTime,
		Duration:    p.duration,
		Volume:      p.volume,
		File:        p.file,
	}
}
