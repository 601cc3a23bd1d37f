// Package ui renders styled terminal output for the CLI.
package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

var (
	accentStyle = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#0B6E99", Dark: "#5EEBFF"}).Bold(true)
	passStyle   = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#1E7F4F", Dark: "#67F0A8"}).Bold(true)
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#9A6700", Dark: "#FFC857"}).Bold(true)
	failStyle   = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#B42318", Dark: "#FF6F91"}).Bold(true)
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#6B7280", Dark: "#8B95A7"})
	headerStyle = lipgloss.NewStyle().Bold(true).Underline(true)
)

// Init disables colors when color is false or NO_COLOR is set.
func Init(color bool) {
	if !color || termenv.EnvNoColor() {
		lipgloss.SetColorProfile(termenv.Ascii)
	}
}

func RenderAccent(s string) string { return accentStyle.Render(s) }
func RenderPass(s string) string   { return passStyle.Render(s) }
func RenderWarn(s string) string   { return warnStyle.Render(s) }
func RenderFail(s string) string   { return failStyle.Render(s) }
func RenderMuted(s string) string  { return mutedStyle.Render(s) }
func RenderHeader(s string) string { return headerStyle.Render(s) }

// ProgressBar draws pct (0-100) as a bar of width cells.
func ProgressBar(pct float64, width int) string {
	if width <= 0 {
		return ""
	}
	switch {
	case pct < 0:
		pct = 0
	case pct > 100:
		pct = 100
	}
	filled := int(pct / 100 * float64(width))
	bar := strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
	if filled == width {
		return passStyle.Render(bar)
	}
	return accentStyle.Render(bar)
}
