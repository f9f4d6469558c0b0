package ui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/dewi-tim/csoundtui/internal/bridge"
	"github.com/dewi-tim/csoundtui/internal/config"
	"github.com/dewi-tim/csoundtui/internal/csound"
	"github.com/dewi-tim/csoundtui/internal/host"
	"github.com/dewi-tim/csoundtui/internal/library"
	"github.com/dewi-tim/csoundtui/internal/player"
	"github.com/dewi-tim/csoundtui/internal/ui/components"
)

// Focus represents which panel is currently focused.
type Focus int

const (
	FocusLibrary Focus = iota
	FocusMessages
)

// maxFileOpens is how many opened files the info panel remembers.
const maxFileOpens = 4

// live holds the state written by engine handlers. Handlers run inside
// Update through the loop, after the Model value they see was copied, so
// the state is shared through a pointer.
type live struct {
	log       *components.MessageLog
	playback  player.PlaybackInfo
	graph     *csound.WindowData
	graphName string
	bp        *csound.BreakpointInfo
	files     []string
	lastErr   string
	errTime   time.Time
}

func (l *live) setError(err error) {
	l.lastErr = err.Error()
	l.errTime = time.Now()
}

// Model is the main Bubbletea model for cstui.
type Model struct {
	// Window dimensions
	width  int
	height int

	// Focus management
	focus Focus

	// UI Components
	browser   *components.LibBrowser
	progress  components.ProgressBar
	helpPopup components.HelpPopup
	input     textinput.Model

	// Key bindings
	keyMap KeyMap

	// UI state
	inputting bool
	showHints bool
	quitting  bool

	loop    *host.TeaLoop
	player  *player.Player
	live    *live
	initial *library.Piece

	// Styles
	styles Styles
}

// New creates the model. Engine callbacks are delivered through loop,
// which must be attached to the program running the model.
func New(lib *library.Library, loop *host.TeaLoop, proc *bridge.Process, opts player.Options, cfg config.UI) Model {
	st := &live{log: components.NewMessageLog(cfg.MessageLines)}

	input := textinput.New()
	input.Prompt = "score> "
	input.Placeholder = "i1 0 2 0.5"
	input.CharLimit = 256

	keyMap := DefaultKeyMap()
	browser := components.NewLibBrowser(lib)
	sections := append(keyMap.HelpSections(),
		browser.KeyMap().Help(),
		components.DefaultMessageLogKeyMap().Help(),
	)

	m := Model{
		focus:     FocusLibrary,
		browser:   browser,
		progress:  components.NewProgressBar(),
		helpPopup: components.NewHelpPopup(sections...),
		input:     input,
		keyMap:    keyMap,
		showHints: !cfg.HideHints,
		loop:      loop,
		live:      st,
		styles:    DefaultStyles(),
	}
	m.player = player.New(proc, opts, m.handlers())
	m.browser.Focus()
	return m
}

// handlers returns the player callbacks writing into the shared state.
func (m Model) handlers() player.Handlers {
	st := m.live
	return player.Handlers{
		Message: st.log.Append,
		FileOpen: func(path string, _ int, forWriting, _ bool) {
			if forWriting {
				path += " (w)"
			}
			st.files = append(st.files, path)
			if over := len(st.files) - maxFileOpens; over > 0 {
				st.files = st.files[over:]
			}
		},
		MakeGraph: func(w *csound.WindowData, name string) {
			st.graph = w.Snapshot()
			st.graphName = name
		},
		DrawGraph: func(w *csound.WindowData) {
			st.graph = w.Snapshot()
		},
		KillGraph: func(w *csound.WindowData) {
			if st.graph != nil && st.graph.ID == w.ID {
				st.graph = nil
				st.graphName = ""
			}
		},
		Breakpoint: func(info *csound.BreakpointInfo) {
			st.bp = info
			if info.Instrument != nil {
				st.log.Note(fmt.Sprintf("breakpoint: instr %g at %.3f", info.Instrument.P1, info.Instrument.P2))
			}
		},
		Progress: func(info player.PlaybackInfo) {
			st.playback = info
		},
		Finished: func(info player.PlaybackInfo) {
			st.playback = info
			st.bp = nil
			st.log.Note(fmt.Sprintf("performance ended (%d)", info.Status))
		},
	}
}

// WithPiece returns a model that plays piece once it starts.
func (m Model) WithPiece(piece library.Piece) Model {
	m.initial = &piece
	return m
}

// Init returns the initial command to run.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.browser.Init()}
	if piece := m.initial; piece != nil {
		cmds = append(cmds, func() tea.Msg {
			return components.LibPieceSelectedMsg{Piece: *piece}
		})
	}
	return tea.Batch(cmds...)
}

// Close stops the current performance and releases its instance.
func (m Model) Close() error {
	return m.player.Close()
}

// Width returns the current window width.
func (m Model) Width() int {
	return m.width
}

// Height returns the current window height.
func (m Model) Height() int {
	return m.height
}

// Focus returns the currently focused panel.
func (m Model) Focus() Focus {
	return m.focus
}

// Playback returns the last reported playback state.
func (m Model) Playback() player.PlaybackInfo {
	return m.live.playback
}

// Messages returns the lines of the message log.
func (m Model) Messages() []string {
	return m.live.log.Lines()
}

// Player returns the player performing pieces.
func (m Model) Player() *player.Player {
	return m.player
}
