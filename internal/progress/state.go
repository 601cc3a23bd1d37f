package progress

import "github.com/reprodlocal/reprod/internal/types"

// State is the derived completion state of a video.
type State string

const (
	NotStarted State = "not_started"
	InProgress State = "in_progress"
	Completed  State = "completed"
)

// StateOf derives the state from a progress row; nil means not started.
func StateOf(p *types.VideoProgress) State {
	switch {
	case p == nil:
		return NotStarted
	case p.Completed:
		return Completed
	case p.CurrentTime > 0:
		return InProgress
	default:
		return NotStarted
	}
}

// Percent returns how far into the video the row is, 0-100.
func Percent(p *types.VideoProgress) float64 {
	if p == nil {
		return 0
	}
	if p.Completed {
		return 100
	}
	if p.Duration <= 0 {
		return 0
	}
	pct := p.CurrentTime * 100 / p.Duration
	if pct > 100 {
		return 100
	}
	return pct
}
