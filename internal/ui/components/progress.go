// Package components provides UI components for cstui.
package components

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/lipgloss"
)

// ProgressBar shows score time against the estimated score length.
type ProgressBar struct {
	progress progress.Model
	elapsed  time.Duration
	duration time.Duration
	width    int

	TimeStyle lipgloss.Style
}

// NewProgressBar creates a new progress bar with default styling.
func NewProgressBar() ProgressBar {
	p := progress.New(
		progress.WithoutPercentage(),
		progress.WithSolidFill("#7571F9"),
		progress.WithFillCharacters('█', '░'),
	)

	return ProgressBar{
		progress:  p,
		width:     40,
		TimeStyle: lipgloss.NewStyle().Foreground(lipgloss.Color("#A0A0A0")),
	}
}

// SetWidth sets the total width available for the progress bar.
func (p *ProgressBar) SetWidth(width int) {
	p.width = width
}

// SetElapsed sets the current score time.
func (p *ProgressBar) SetElapsed(d time.Duration) {
	p.elapsed = d
}

// SetDuration sets the score length. Zero means unknown.
func (p *ProgressBar) SetDuration(d time.Duration) {
	p.duration = d
}

// Percent returns the filled fraction of the bar.
func (p ProgressBar) Percent() float64 {
	if p.duration <= 0 {
		return 0
	}
	return min(1, max(0, float64(p.elapsed)/float64(p.duration)))
}

// View renders the bar with times on either side.
// Format: "01:23 ██████░░░░ 03:45"
func (p ProgressBar) View() string {
	elapsedStr := formatDuration(p.elapsed)
	durationStr := "--:--"
	if p.duration > 0 {
		durationStr = formatDuration(p.duration)
	}

	bar := p.progress
	bar.Width = max(5, p.width-len(elapsedStr)-len(durationStr)-2)

	return fmt.Sprintf("%s %s %s",
		p.TimeStyle.Render(elapsedStr),
		bar.ViewAs(p.Percent()),
		p.TimeStyle.Render(durationStr),
	)
}

// formatDuration formats a duration as MM:SS.
func formatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int(d.Seconds())
	return fmt.Sprintf("%02d:%02d", total/60, total%60)
}
