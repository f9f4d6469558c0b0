package ui

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/dewi-tim/csoundtui/internal/csound"
	"github.com/dewi-tim/csoundtui/internal/player"
)

const (
	// Minimum dimensions
	minWidth  = 60
	minHeight = 15

	// Panel proportions
	libraryWidthPercent = 30

	// Rows taken by the info and progress panels
	infoHeight     = 7
	progressHeight = 4

	// How long an error stays in the footer
	errorTimeout = 5 * time.Second
)

// sparkBlocks are the levels of the graph sparkline.
var sparkBlocks = []rune("▁▂▃▄▅▆▇█")

// View renders the entire UI.
func (m Model) View() string {
	if m.quitting {
		return "Goodbye!\n"
	}

	// Handle small terminal
	if m.width < minWidth || m.height < minHeight {
		return m.renderTooSmall()
	}

	libraryWidth, rightWidth, bodyHeight := m.layout()

	// Build the main layout
	mainContent := lipgloss.JoinHorizontal(
		lipgloss.Top,
		m.renderLibrary(libraryWidth, bodyHeight),
		" ",
		m.renderRightPane(rightWidth, bodyHeight),
	)

	// Add footer
	footer := m.renderFooter()

	mainView := lipgloss.JoinVertical(lipgloss.Left, mainContent, footer)

	// Render help overlay if visible
	if m.helpPopup.Visible() {
		return m.renderHelpOverlay(mainView)
	}

	return mainView
}

// renderHelpOverlay renders the help popup on top of the main view.
func (m Model) renderHelpOverlay(mainView string) string {
	// Get the popup content
	popup := m.helpPopup.View()

	// Calculate popup dimensions
	popupLines := strings.Split(popup, "\n")
	popupHeight := len(popupLines)
	popupWidth := 0
	for _, line := range popupLines {
		if w := lipgloss.Width(line); w > popupWidth {
			popupWidth = w
		}
	}

	// Calculate position to center the popup
	mainLines := strings.Split(mainView, "\n")
	mainHeight := len(mainLines)

	startY := (mainHeight - popupHeight) / 2
	if startY < 0 {
		startY = 0
	}
	startX := (m.width - popupWidth) / 2
	if startX < 0 {
		startX = 0
	}

	// Create a new view with the popup overlaid
	result := make([]string, mainHeight)
	for i, line := range mainLines {
		// Ensure line is wide enough
		lineWidth := lipgloss.Width(line)
		if lineWidth < m.width {
			line = line + strings.Repeat(" ", m.width-lineWidth)
		}

		// Check if this line overlaps with the popup
		popupLineIdx := i - startY
		if popupLineIdx >= 0 && popupLineIdx < len(popupLines) {
			popupLine := popupLines[popupLineIdx]
			popupLineWidth := lipgloss.Width(popupLine)

			// Build the overlaid line
			// Left part (before popup)
			var newLine strings.Builder
			if startX > 0 {
				// Get characters before popup
				newLine.WriteString(truncateToWidth(line, startX))
			}
			// Popup content
			newLine.WriteString(popupLine)
			// Right part (after popup)
			rightStart := startX + popupLineWidth
			if rightStart < m.width {
				remaining := substringFromWidth(line, rightStart)
				newLine.WriteString(remaining)
			}
			result[i] = newLine.String()
		} else {
			result[i] = line
		}
	}

	return strings.Join(result, "\n")
}

// truncateToWidth truncates a string to fit within a given visual width.
func truncateToWidth(s string, width int) string {
	if width <= 0 {
		return ""
	}
	currentWidth := 0
	var result strings.Builder
	for _, r := range s {
		runeWidth := lipgloss.Width(string(r))
		if currentWidth+runeWidth > width {
			// Pad with spaces if needed
			for currentWidth < width {
				result.WriteRune(' ')
				currentWidth++
			}
			break
		}
		result.WriteRune(r)
		currentWidth += runeWidth
	}
	// Pad if string was too short
	for currentWidth < width {
		result.WriteRune(' ')
		currentWidth++
	}
	return result.String()
}

// substringFromWidth returns the portion of a string starting from a given visual width.
func substringFromWidth(s string, startWidth int) string {
	currentWidth := 0
	for i, r := range s {
		runeWidth := lipgloss.Width(string(r))
		if currentWidth >= startWidth {
			return s[i:]
		}
		currentWidth += runeWidth
	}
	return ""
}

// layout returns the widths of the two columns and the height of the body.
func (m Model) layout() (libraryWidth, rightWidth, bodyHeight int) {
	libraryWidth = m.width * libraryWidthPercent / 100
	rightWidth = m.width - libraryWidth - 1
	bodyHeight = m.height - 2 // footer and input line
	return libraryWidth, rightWidth, bodyHeight
}

// logHeight returns the outer height of the message panel.
func (m Model) logHeight(bodyHeight int) int {
	return max(4, bodyHeight-infoHeight-progressHeight)
}

// renderTooSmall renders a message when the terminal is too small.
func (m Model) renderTooSmall() string {
	msg := fmt.Sprintf("Terminal too small\nNeed at least %dx%d\nCurrent: %dx%d",
		minWidth, minHeight, m.width, m.height)
	return lipgloss.NewStyle().
		Foreground(ColorTextMuted).
		Render(msg)
}

// renderLibrary renders the left library panel.
func (m Model) renderLibrary(width, height int) string {
	focused := m.focus == FocusLibrary
	return m.styles.RenderPanel("Library", m.browser.View(), focused, width, height)
}

// renderRightPane renders the message log, piece info and progress.
func (m Model) renderRightPane(width, height int) string {
	logHeight := m.logHeight(height)

	messages := m.renderMessages(width, logHeight)
	info := m.renderInfo(width, height-logHeight-progressHeight)
	progress := m.renderProgress(width)

	return lipgloss.JoinVertical(lipgloss.Left, messages, info, progress)
}

// renderMessages renders the engine message panel.
func (m Model) renderMessages(width, height int) string {
	focused := m.focus == FocusMessages
	title := "Messages"
	if !m.live.log.Following() {
		title += " (scrolled)"
	}
	return m.styles.RenderPanel(title, m.live.log.View(), focused, width, height)
}

// renderInfo renders the loaded piece and the engine state.
func (m Model) renderInfo(width, height int) string {
	var content strings.Builder
	info := m.live.playback

	field := func(label, value string) {
		content.WriteString(m.styles.TextMuted.Render(label+":") + " " + m.styles.Text.Render(value) + "\n")
	}

	if info.Piece == nil {
		content.WriteString(m.styles.TextMuted.Render("No piece loaded"))
		content.WriteString("\n")
		content.WriteString(m.styles.TextMuted.Render("Select a .csd or .orc file from the library"))
	} else {
		piece := info.Piece
		content.WriteString(fmt.Sprintf("%s %s %s\n",
			m.styles.TextMuted.Render("Piece:"),
			m.styles.TextBold.Render(piece.Name),
			m.styles.TextMuted.Render("("+piece.Kind.String()+")")))
		if piece.Options != "" {
			field("Options", piece.Options)
		}
		if n := len(m.live.files); n > 0 {
			field("Files", strings.Join(m.live.files, ", "))
		}
		if g := m.live.graph; g != nil {
			name := m.live.graphName
			if name == "" {
				name = g.Caption
			}
			content.WriteString(m.styles.TextMuted.Render(name+": ") + m.styles.Graph.Render(sparkline(g.Samples, width-6-len(name))) + "\n")
		}
		if bp := m.live.bp; bp != nil {
			content.WriteString(m.styles.Error.Render(breakpointText(bp)))
			content.WriteString(m.styles.TextMuted.Render("  c: continue"))
		}
	}

	style := lipgloss.NewStyle().
		Width(width - 2).
		Height(max(1, height-1)).
		MaxHeight(max(1, height)).
		Padding(0, 1)

	return style.Render(strings.TrimRight(content.String(), "\n"))
}

// renderProgress renders the progress bar and performance status.
func (m Model) renderProgress(width int) string {
	var content strings.Builder
	info := m.live.playback

	var statusStyle lipgloss.Style
	var statusIcon string

	switch info.State {
	case player.StatePlaying:
		statusStyle = m.styles.StatusPlaying
		statusIcon = ">"
	case player.StateStopping:
		statusStyle = m.styles.StatusStopping
		statusIcon = ".."
	default:
		statusStyle = m.styles.StatusStopped
		statusIcon = "[]"
	}

	detail := fmt.Sprintf(" | score %.2f", info.ScoreTime)
	if info.State == player.StateStopped && info.Piece != nil && info.Steps > 0 {
		detail += fmt.Sprintf(" | status %d", info.Status)
	}
	if info.Underruns > 0 || info.Overruns > 0 {
		detail += fmt.Sprintf(" | xruns %d/%d", info.Underruns, info.Overruns)
	}

	content.WriteString(fmt.Sprintf("%s %s%s\n",
		statusStyle.Render(statusIcon),
		statusStyle.Render(info.State.String()),
		m.styles.TextMuted.Render(detail)))

	m.progress.SetWidth(width - 6)
	m.progress.SetElapsed(info.Position())
	m.progress.SetDuration(info.Duration())
	content.WriteString(m.progress.View())

	style := lipgloss.NewStyle().
		Width(width - 2).
		Padding(0, 1).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(ColorMuted)

	return style.Render(content.String())
}

// renderFooter renders the score event input, errors and key hints.
func (m Model) renderFooter() string {
	if m.inputting {
		return m.input.View()
	}

	var content strings.Builder

	if m.live.lastErr != "" && time.Since(m.live.errTime) < errorTimeout {
		content.WriteString(m.styles.Error.Render("Error: " + m.live.lastErr))
		content.WriteString("  ")
	}
	if !m.showHints {
		return content.String()
	}

	hint := func(k, desc string) {
		content.WriteString(m.styles.FooterKey.Render(k))
		content.WriteString(m.styles.FooterDesc.Render(":" + desc + " "))
	}

	switch m.focus {
	case FocusLibrary:
		hint("Enter", "play")
		hint("r", "rescan")
		hint("Tab", "messages")
	case FocusMessages:
		hint("Enter", "restart")
		hint("G", "follow")
		hint("Tab", "library")
	}
	content.WriteString(m.styles.FooterSep.Render("│ "))

	hint("s", "stop")
	hint("e", "event")
	if m.live.bp != nil {
		hint("c", "continue")
	}
	hint("?", "help")
	hint("q", "quit")

	return strings.TrimRight(content.String(), " ")
}

// sparkline draws samples scaled to their absolute maximum in width cells.
func sparkline(samples []float64, width int) string {
	if len(samples) == 0 || width <= 0 {
		return ""
	}
	width = min(width, len(samples))

	peak := 0.0
	for _, v := range samples {
		peak = max(peak, math.Abs(v))
	}

	var b strings.Builder
	per := float64(len(samples)) / float64(width)
	for i := 0; i < width; i++ {
		lo, hi := int(float64(i)*per), int(float64(i+1)*per)
		level := 0.0
		for _, v := range samples[lo:max(hi, lo+1)] {
			level = max(level, math.Abs(v))
		}
		idx := 0
		if peak > 0 {
			idx = int(level / peak * float64(len(sparkBlocks)-1))
		}
		b.WriteRune(sparkBlocks[idx])
	}
	return b.String()
}

// breakpointText describes the instrument a breakpoint stopped in.
func breakpointText(bp *csound.BreakpointInfo) string {
	text := "Breakpoint"
	if in := bp.Instrument; in != nil {
		text += fmt.Sprintf(" instr %g at %.3f", in.P1, in.P2)
		if in.Line > 0 {
			text += fmt.Sprintf(" line %d", in.Line)
		}
	}
	if op := bp.CurrentOpcode; op != nil {
		text += " in " + op.Name
	}
	if n := len(bp.Variables); n > 0 {
		text += fmt.Sprintf(" (%d vars)", n)
	}
	return text
}
