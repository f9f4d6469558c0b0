package components

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// HelpSection is one titled group of bindings in the help popup.
type HelpSection struct {
	Title    string
	Bindings []key.Binding
}

// HelpPopup is a help overlay listing the key bindings of every panel.
type HelpPopup struct {
	viewport viewport.Model
	sections []HelpSection
	visible  bool
	width    int
	height   int

	// Styles
	borderStyle   lipgloss.Style
	titleStyle    lipgloss.Style
	categoryStyle lipgloss.Style
	keyStyle      lipgloss.Style
	descStyle     lipgloss.Style
	footerStyle   lipgloss.Style
}

// HelpKeyMap defines key bindings for the help popup.
type HelpKeyMap struct {
	Up       key.Binding
	Down     key.Binding
	PageUp   key.Binding
	PageDown key.Binding
	Close    key.Binding
}

// DefaultHelpKeyMap returns the default help popup key bindings.
func DefaultHelpKeyMap() HelpKeyMap {
	return HelpKeyMap{
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
		Close: key.NewBinding(
			key.WithKeys("?", "esc", "enter", "q"),
			key.WithHelp("?/esc/enter", "close"),
		),
	}
}

// Help returns the library browser bindings as a help section.
func (k LibBrowserKeyMap) Help() HelpSection {
	return HelpSection{Title: "Library", Bindings: []key.Binding{
		k.Up, k.Down, k.PageUp, k.PageDown, k.GoToTop, k.GoToBottom, k.Enter, k.Back, k.Rescan,
	}}
}

// Help returns the message log bindings as a help section.
func (k MessageLogKeyMap) Help() HelpSection {
	return HelpSection{Title: "Messages", Bindings: []key.Binding{
		k.Up, k.Down, k.PageUp, k.PageDown, k.Top, k.Bottom, k.Clear,
	}}
}

// NewHelpPopup creates a hidden popup listing sections.
func NewHelpPopup(sections ...HelpSection) HelpPopup {
	vp := viewport.New(50, 20)
	vp.MouseWheelEnabled = true

	return HelpPopup{
		viewport: vp,
		sections: sections,
		width:    60,
		height:   24,
		borderStyle: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#7571F9")),
		titleStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#7571F9")).
			Bold(true),
		categoryStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFA500")).
			Bold(true),
		keyStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#7571F9")).
			Bold(true),
		descStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")),
		footerStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#A0A0A0")).
			Italic(true),
	}
}

// Update scrolls or closes the popup.
func (h HelpPopup) Update(msg tea.Msg) (HelpPopup, tea.Cmd) {
	km, ok := msg.(tea.KeyMsg)
	if !h.visible || !ok {
		return h, nil
	}

	keyMap := DefaultHelpKeyMap()
	switch {
	case key.Matches(km, keyMap.Close):
		h.Hide()
	case key.Matches(km, keyMap.Up):
		h.viewport.ScrollUp(1)
	case key.Matches(km, keyMap.Down):
		h.viewport.ScrollDown(1)
	case key.Matches(km, keyMap.PageUp):
		h.viewport.PageUp()
	case key.Matches(km, keyMap.PageDown):
		h.viewport.PageDown()
	}
	return h, nil
}

// View renders the popup box, or nothing when hidden.
func (h HelpPopup) View() string {
	if !h.visible {
		return ""
	}

	boxWidth, boxHeight := h.boxSize()
	h.viewport.Width = boxWidth - 4
	h.viewport.Height = boxHeight - 4
	h.viewport.SetContent(h.content())

	footer := lipgloss.NewStyle().
		Width(boxWidth - 4).
		Align(lipgloss.Center).
		Render(h.footerStyle.Render("? or esc to close"))

	box := h.borderStyle.
		Width(boxWidth).
		Height(boxHeight).
		Render(lipgloss.JoinVertical(lipgloss.Left, h.viewport.View(), "", footer))

	// Title over the middle of the top border.
	title := []rune(h.titleStyle.Render(" cstui keys "))
	lines := strings.Split(box, "\n")
	top := []rune(lines[0])
	if at := (len(top) - len(title)) / 2; at > 2 {
		copy(top[at:], title)
		lines[0] = string(top)
	}
	return strings.Join(lines, "\n")
}

// boxSize keeps the box within 70% by 80% of the screen, clamped to a
// readable minimum.
func (h HelpPopup) boxSize() (width, height int) {
	width = min(60, max(40, h.width*70/100))
	height = min(30, max(15, h.height*80/100))
	return width, height
}

// content lists every enabled binding with its help text.
func (h HelpPopup) content() string {
	var b strings.Builder
	keyCell := lipgloss.NewStyle().Width(14)

	for i, section := range h.sections {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(h.categoryStyle.Render(section.Title))
		b.WriteString("\n")
		for _, binding := range section.Bindings {
			if !binding.Enabled() {
				continue
			}
			help := binding.Help()
			b.WriteString(keyCell.Render(h.keyStyle.Render(help.Key)))
			b.WriteString(h.descStyle.Render(help.Desc))
			b.WriteString("\n")
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

// Lines returns the plain help text, one binding per line.
func (h HelpPopup) Lines() []string {
	var lines []string
	for _, section := range h.sections {
		for _, binding := range section.Bindings {
			if binding.Enabled() {
				lines = append(lines, binding.Help().Key+" "+binding.Help().Desc)
			}
		}
	}
	return lines
}

// SetSize sets the screen size the popup is centered in.
func (h *HelpPopup) SetSize(width, height int) {
	h.width = width
	h.height = height
}

// Show makes the help popup visible.
func (h *HelpPopup) Show() {
	h.visible = true
	h.viewport.GotoTop()
}

// Hide makes the help popup invisible.
func (h *HelpPopup) Hide() {
	h.visible = false
}

// Visible returns whether the help popup is visible.
func (h HelpPopup) Visible() bool {
	return h.visible
}

// Toggle toggles the visibility of the help popup.
func (h *HelpPopup) Toggle() {
	if h.visible {
		h.Hide()
	} else {
		h.Show()
	}
}
