package ui

import (
	"errors"
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/dewi-tim/csoundtui/internal/ui/components"
)

// errNoSelection is reported when play is pressed with nothing loaded.
var errNoSelection = errors.New("select a piece in the library")

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	// Engine callbacks write into m.live.
	if m.loop != nil && m.loop.Handle(msg) {
		return m, nil
	}

	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.helpPopup.SetSize(msg.Width, msg.Height)
		m.updateComponentSizes()
		return m, nil

	case tea.KeyMsg:
		return m.handleKeyMsg(msg)

	case components.LibBrowserScanCompleteMsg:
		if msg.Err != nil {
			m.live.setError(msg.Err)
		} else {
			m.live.log.Note(fmt.Sprintf("library: %d pieces", msg.PieceCount))
		}
		var cmd tea.Cmd
		m.browser, cmd = m.browser.Update(msg)
		cmds = append(cmds, cmd)

	case components.LibPieceSelectedMsg:
		m.play(msg)

	default:
		// Cursor blinks
		if m.inputting {
			var cmd tea.Cmd
			m.input, cmd = m.input.Update(msg)
			cmds = append(cmds, cmd)
		}
	}

	return m, tea.Batch(cmds...)
}

func (m Model) play(msg components.LibPieceSelectedMsg) {
	m.live.bp = nil
	m.live.graph = nil
	m.live.files = nil
	m.live.log.Note("loading " + msg.Piece.Path())

	err := m.player.Play(msg.Piece)
	m.live.playback = m.player.Info()
	if err != nil {
		m.live.setError(err)
	}
}

// handleKeyMsg processes keyboard input.
func (m Model) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// The help popup consumes every key while it is visible.
	if m.helpPopup.Visible() {
		var cmd tea.Cmd
		m.helpPopup, cmd = m.helpPopup.Update(msg)
		return m, cmd
	}

	if m.inputting {
		return m.handleInputKey(msg)
	}

	// Global key bindings (work regardless of focus)
	switch {
	case key.Matches(msg, m.keyMap.Quit):
		m.quitting = true
		return m, tea.Quit

	case key.Matches(msg, m.keyMap.Help):
		m.helpPopup.Toggle()
		return m, nil

	case key.Matches(msg, m.keyMap.Stop):
		m.player.Stop()
		m.live.playback = m.player.Info()
		return m, nil

	case key.Matches(msg, m.keyMap.ScoreEvent):
		m.inputting = true
		return m, m.input.Focus()

	case key.Matches(msg, m.keyMap.Continue):
		if m.live.bp != nil {
			m.live.bp = nil
			m.player.Continue()
		}
		return m, nil

	case key.Matches(msg, m.keyMap.TabFocus):
		if m.focus == FocusLibrary {
			m.focus = FocusMessages
			m.browser.Blur()
			m.live.log.Focus()
		} else {
			m.focus = FocusLibrary
			m.live.log.Blur()
			m.browser.Focus()
		}
		return m, nil
	}

	// Enter in the message log restarts the current piece.
	if m.focus == FocusMessages && key.Matches(msg, m.keyMap.Play) {
		if piece := m.player.Info().Piece; piece != nil {
			m.play(components.LibPieceSelectedMsg{Piece: *piece})
		} else {
			m.live.setError(errNoSelection)
		}
		return m, nil
	}

	var cmd tea.Cmd
	switch m.focus {
	case FocusLibrary:
		m.browser, cmd = m.browser.Update(msg)
	case FocusMessages:
		m.live.log, cmd = m.live.log.Update(msg)
	}
	return m, cmd
}

// handleInputKey edits the score event line.
func (m Model) handleInputKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keyMap.Cancel):
		m.inputting = false
		m.input.Blur()
		m.input.Reset()
		return m, nil

	case key.Matches(msg, m.keyMap.Send):
		line := m.input.Value()
		m.inputting = false
		m.input.Blur()
		m.input.Reset()
		if err := m.player.Send(line); err != nil {
			m.live.setError(err)
		} else {
			m.live.log.Note("> " + line)
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// updateComponentSizes updates component sizes based on window dimensions.
func (m *Model) updateComponentSizes() {
	if m.width < minWidth || m.height < minHeight {
		return
	}
	libraryWidth, rightWidth, bodyHeight := m.layout()

	// Panel border (2) and title (1)
	m.browser.SetSize(libraryWidth-2, bodyHeight-3)
	m.live.log.SetSize(rightWidth-2, m.logHeight(bodyHeight)-3)
	m.input.Width = m.width - len(m.input.Prompt) - 2
}
