package components

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/dewi-tim/csoundtui/internal/csound"
)

// MessageLogKeyMap defines key bindings for scrolling the log.
type MessageLogKeyMap struct {
	Up       key.Binding
	Down     key.Binding
	PageUp   key.Binding
	PageDown key.Binding
	Top      key.Binding
	Bottom   key.Binding
	Clear    key.Binding
}

// DefaultMessageLogKeyMap returns the default message log key bindings.
func DefaultMessageLogKeyMap() MessageLogKeyMap {
	return MessageLogKeyMap{
		Up: key.NewBinding(
			key.WithKeys("k", "up"),
			key.WithHelp("k/up", "scroll up"),
		),
		Down: key.NewBinding(
			key.WithKeys("j", "down"),
			key.WithHelp("j/down", "scroll down"),
		),
		PageUp: key.NewBinding(
			key.WithKeys("pgup", "ctrl+u"),
			key.WithHelp("pgup", "page up"),
		),
		PageDown: key.NewBinding(
			key.WithKeys("pgdown", "ctrl+d"),
			key.WithHelp("pgdn", "page down"),
		),
		Top: key.NewBinding(
			key.WithKeys("g", "home"),
			key.WithHelp("g", "top"),
		),
		Bottom: key.NewBinding(
			key.WithKeys("G", "end"),
			key.WithHelp("G", "follow"),
		),
		Clear: key.NewBinding(
			key.WithKeys("D"),
			key.WithHelp("D", "clear"),
		),
	}
}

// Terminal colors for the Csound foreground and background codes, indexed
// by the low bits of the code.
var (
	messageForeground = [8]lipgloss.Color{"0", "1", "2", "3", "4", "5", "6", "7"}
	messageBackground = [8]lipgloss.Color{"0", "1", "2", "208", "4", "5", "6", "8"}
)

// AttributeStyle returns the style for a Csound message attribute mask.
// Explicit colors win over the per-type defaults.
func AttributeStyle(a csound.Attributes) lipgloss.Style {
	style := lipgloss.NewStyle()

	switch a.Type() {
	case csound.MsgError:
		style = style.Foreground(lipgloss.Color("#FF5555")).Bold(true)
	case csound.MsgWarning:
		style = style.Foreground(lipgloss.Color("#FFA500"))
	case csound.MsgRealtime:
		style = style.Foreground(lipgloss.Color("#A0A0A0"))
	case csound.MsgOrch:
		style = style.Foreground(lipgloss.Color("#99CCFF"))
	}

	if fg := a.Foreground(); fg != 0 {
		style = style.Foreground(messageForeground[fg&0x7])
	}
	if bg := a.Background(); bg != 0 {
		style = style.Background(messageBackground[(bg>>4)&0x7])
	}
	if a.Bold() {
		style = style.Bold(true)
	}
	if a.Underline() {
		style = style.Underline(true)
	}
	return style
}

type logLine struct {
	attrs csound.Attributes
	text  string
}

// MessageLog shows engine messages with their attributes. Csound prints
// lines in fragments; text is buffered until a newline arrives.
type MessageLog struct {
	viewport viewport.Model
	lines    []logLine
	partial  strings.Builder
	attrs    csound.Attributes
	maxLines int
	follow   bool
	focused  bool
	keyMap   MessageLogKeyMap
}

// NewMessageLog creates a log keeping at most maxLines lines.
func NewMessageLog(maxLines int) *MessageLog {
	if maxLines <= 0 {
		maxLines = 500
	}
	return &MessageLog{
		viewport: viewport.New(40, 10),
		maxLines: maxLines,
		follow:   true,
		keyMap:   DefaultMessageLogKeyMap(),
	}
}

// Append adds message text printed with attributes.
func (l *MessageLog) Append(attributes int, text string) {
	for {
		i := strings.IndexByte(text, '\n')
		if i < 0 {
			break
		}
		if l.partial.Len() == 0 {
			l.attrs = csound.Attributes(attributes)
		}
		l.partial.WriteString(text[:i])
		l.push(logLine{attrs: l.attrs, text: l.partial.String()})
		l.partial.Reset()
		text = text[i+1:]
	}
	if text != "" {
		if l.partial.Len() == 0 {
			l.attrs = csound.Attributes(attributes)
		}
		l.partial.WriteString(text)
	}
	l.refresh()
}

// Note adds a line written by cstui itself.
func (l *MessageLog) Note(text string) {
	l.push(logLine{attrs: csound.MsgRealtime, text: text})
	l.refresh()
}

func (l *MessageLog) push(line logLine) {
	l.lines = append(l.lines, line)
	if over := len(l.lines) - l.maxLines; over > 0 {
		l.lines = append(l.lines[:0], l.lines[over:]...)
	}
}

// Clear removes every line.
func (l *MessageLog) Clear() {
	l.lines = l.lines[:0]
	l.partial.Reset()
	l.refresh()
}

// Len returns the number of complete lines.
func (l *MessageLog) Len() int {
	return len(l.lines)
}

// Lines returns the plain text of every complete line.
func (l *MessageLog) Lines() []string {
	out := make([]string, len(l.lines))
	for i, line := range l.lines {
		out[i] = line.text
	}
	return out
}

func (l *MessageLog) refresh() {
	var b strings.Builder
	for i, line := range l.lines {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(AttributeStyle(line.attrs).Render(line.text))
	}
	if l.partial.Len() > 0 {
		if len(l.lines) > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(AttributeStyle(l.attrs).Render(l.partial.String()))
	}
	l.viewport.SetContent(b.String())
	if l.follow {
		l.viewport.GotoBottom()
	}
}

// Update handles scrolling keys when focused.
func (l *MessageLog) Update(msg tea.Msg) (*MessageLog, tea.Cmd) {
	km, ok := msg.(tea.KeyMsg)
	if !ok || !l.focused {
		return l, nil
	}

	switch {
	case key.Matches(km, l.keyMap.Up):
		l.viewport.ScrollUp(1)
	case key.Matches(km, l.keyMap.Down):
		l.viewport.ScrollDown(1)
	case key.Matches(km, l.keyMap.PageUp):
		l.viewport.PageUp()
	case key.Matches(km, l.keyMap.PageDown):
		l.viewport.PageDown()
	case key.Matches(km, l.keyMap.Top):
		l.viewport.GotoTop()
	case key.Matches(km, l.keyMap.Bottom):
		l.viewport.GotoBottom()
	case key.Matches(km, l.keyMap.Clear):
		l.Clear()
	}
	// Scrolling back to the end resumes following new output.
	l.follow = l.viewport.AtBottom()
	return l, nil
}

// View renders the visible part of the log.
func (l *MessageLog) View() string {
	return l.viewport.View()
}

// SetSize sets the log dimensions.
func (l *MessageLog) SetSize(width, height int) {
	l.viewport.Width = width
	l.viewport.Height = height
	if l.follow {
		l.viewport.GotoBottom()
	}
}

// Focus sets the log as focused.
func (l *MessageLog) Focus() {
	l.focused = true
}

// Blur removes focus from the log.
func (l *MessageLog) Blur() {
	l.focused = false
}

// Following reports whether the log scrolls with new output.
func (l *MessageLog) Following() bool {
	return l.follow
}
