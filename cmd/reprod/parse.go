package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"

	"github.com/reprodlocal/reprod/internal/types"
)

// parsePosition reads a playback position given as seconds ("95.5"), a
// clock ("1:35", "1:02:03") or a Go duration ("1m35s").
func parsePosition(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		if v < 0 {
			return 0, fmt.Errorf("position %q must be non-negative: %w", s, types.ErrInvalidInput)
		}
		return v, nil
	}
	if strings.Contains(s, ":") {
		parts := strings.Split(s, ":")
		if len(parts) > 3 {
			return 0, fmt.Errorf("invalid position %q: %w", s, types.ErrInvalidInput)
		}
		var total float64
		for _, part := range parts {
			n, err := strconv.ParseFloat(part, 64)
			if err != nil || n < 0 {
				return 0, fmt.Errorf("invalid position %q: %w", s, types.ErrInvalidInput)
			}
			total = total*60 + n
		}
		return total, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil || d < 0 {
		return 0, fmt.Errorf("invalid position %q: %w", s, types.ErrInvalidInput)
	}
	return d.Seconds(), nil
}

// parseSince reads a point in time given as RFC 3339, a date, a duration
// back from now ("36h") or an English expression ("yesterday", "last week").
func parseSince(s string, now time.Time) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty time: %w", types.ErrInvalidInput)
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	if t, err := time.ParseInLocation("2006-01-02", s, now.Location()); err == nil {
		return t, nil
	}
	if d, err := time.ParseDuration(s); err == nil && d >= 0 {
		return now.Add(-d), nil
	}

	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)
	r, err := w.Parse(s, now)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse time %q: %w: %w", s, types.ErrInvalidInput, err)
	}
	if r == nil {
		return time.Time{}, fmt.Errorf("unrecognized time %q: %w", s, types.ErrInvalidInput)
	}
	return r.Time, nil
}
