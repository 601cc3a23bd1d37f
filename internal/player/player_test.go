package player

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/reprodlocal/reprod/internal/types"
)

type fakeProcess struct{ killed bool }

func (f *fakeProcess) Kill() error {
	f.killed = true
	return nil
}

type fakeLauncher struct {
	launched []string
	procs    []*fakeProcess
	err      error
}

func (f *fakeLauncher) Launch(_ context.Context, path string) (Process, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.launched = append(f.launched, path)
	proc := &fakeProcess{}
	f.procs = append(f.procs, proc)
	return proc, nil
}

func videoFile(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	return path
}

func TestPlay_LaunchesAndReplaces(t *testing.T) {
	ctx := context.Background()
	launcher := &fakeLauncher{}
	p := New(launcher, nil)

	first := videoFile(t, "a.mp4")
	second := videoFile(t, "b.mp4")

	if err := p.Play(ctx, first, 12); err != nil {
		t.Fatalf("Play() failed: %v", err)
	}
	status := p.Status()
	if !status.IsPlaying || status.CurrentTime != 12 || status.File != first {
		t.Errorf("status = %+v", status)
	}

	if err := p.Play(ctx, second, 0); err != nil {
		t.Fatalf("Play() failed: %v", err)
	}
	if !launcher.procs[0].killed {
		t.Error("previous player process was not stopped")
	}
	if len(launcher.launched) != 2 {
		t.Errorf("launched = %v, want two launches", launcher.launched)
	}
}

func TestPlay_MissingFile(t *testing.T) {
	p := New(&fakeLauncher{}, nil)
	err := p.Play(context.Background(), filepath.Join(t.TempDir(), "nope.mp4"), 0)
	if !types.IsNotFound(err) {
		t.Errorf("Play(missing) error = %v, want NotFound", err)
	}
}

func TestPlay_LaunchError(t *testing.T) {
	p := New(&fakeLauncher{err: errors.New("no handler")}, nil)
	if err := p.Play(context.Background(), videoFile(t, "a.mp4"), 0); err == nil {
		t.Fatal("Play() should surface launcher errors")
	}
	if p.Status().IsPlaying {
		t.Error("status should not be playing after a failed launch")
	}
}

func TestStopPauseResumeSeek(t *testing.T) {
	ctx := context.Background()
	launcher := &fakeLauncher{}
	p := New(launcher, nil)

	if err := p.Play(ctx, videoFile(t, "a.mp4"), 0); err != nil {
		t.Fatalf("Play() failed: %v", err)
	}

	p.Pause()
	if p.Status().IsPlaying {
		t.Error("Pause() did not pause")
	}
	p.Resume()
	if !p.Status().IsPlaying {
		t.Error("Resume() did not resume")
	}
	if err := p.Seek(30); err != nil {
		t.Fatalf("Seek() failed: %v", err)
	}
	if got := p.Status().CurrentTime; got != 30 {
		t.Errorf("current time = %v, want 30", got)
	}
	if err := p.Seek(-1); !types.IsInvalidInput(err) {
		t.Errorf("Seek(-1) error = %v, want InvalidInput", err)
	}

	p.Stop()
	status := p.Status()
	if status.IsPlaying || status.File != "" || status.CurrentTime != 0 {
		t.Errorf("status after Stop() = %+v", status)
	}
	if !launcher.procs[0].killed {
		t.Error("Stop() did not kill the process")
	}

	p.Resume()
	if p.Status().IsPlaying {
		t.Error("Resume() without a file should not play")
	}
}

func TestSetVolume_Clamps(t *testing.T) {
	p := New(&fakeLauncher{}, nil)
	if got := p.Status().Volume; got != 1 {
		t.Errorf("default volume = %v, want 1", got)
	}
	for in, want := range map[float64]float64{-0.5: 0, 0.3: 0.3, 4: 1} {
		if got := p.SetVolume(in); got != want {
			t.Errorf("SetVolume(%v) = %v, want %v", in, got, want)
		}
	}
}

func TestOSLauncher_Command(t *testing.T) {
	tests := []struct {
		goos string
		want []string
	}{
		{"linux", []string{"xdg-open", "/v.mp4"}},
		{"darwin", []string{"open", "/v.mp4"}},
		{"windows", []string{"cmd", "/C", "start", "", "/v.mp4"}},
	}
	for _, tt := range tests {
		t.Run(tt.goos, func(t *testing.T) {
			cmd := OSLauncher{GOOS: tt.goos}.Command("/v.mp4")
			if len(cmd.Args) != len(tt.want) {
				t.Fatalf("args = %q, want %q", cmd.Args, tt.want)
			}
			for i := range tt.want {
				if cmd.Args[i] != tt.want[i] {
					t.Errorf("args[%d] = %q, want %q", i, cmd.Args[i], tt.want[i])
				}
			}
		})
	}
}
