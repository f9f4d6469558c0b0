package bridge

import "github.com/dewi-tim/csoundtui/internal/csound"

// Mode says whether score and performance requests run immediately or are
// queued for the performance thread.
type Mode int

const (
	// Synchronous calls the engine directly. It is the initial mode and is
	// restored at the end of every background run.
	Synchronous Mode = iota
	// Deferred queues requests while a background run is active.
	Deferred
)

// String returns a human-readable name for the mode.
func (m Mode) String() string {
	switch m {
	case Synchronous:
		return "Synchronous"
	case Deferred:
		return "Deferred"
	default:
		return "Unknown"
	}
}

// eventHandler executes or queues the requests that are unsafe to issue
// while the engine is performing on another thread.
type eventHandler interface {
	mode() Mode
	stop()
	inputMessage(text string)
	compileOrc(text string) int
	readScore(text string) int
	scoreEvent(eventType byte, pfields []float64) int
}

type synchronousHandler struct {
	engine csound.Engine
}

func (h synchronousHandler) mode() Mode { return Synchronous }

func (h synchronousHandler) stop() { h.engine.Stop() }

func (h synchronousHandler) inputMessage(text string) { h.engine.InputMessage(text) }

func (h synchronousHandler) compileOrc(text string) int { return h.engine.CompileOrc(text) }

func (h synchronousHandler) readScore(text string) int { return h.engine.ReadScore(text) }

func (h synchronousHandler) scoreEvent(eventType byte, pfields []float64) int {
	return h.engine.ScoreEvent(eventType, pfields)
}

// deferredHandler queues commands. The engine's result is not observable,
// so queued requests report success.
type deferredHandler struct {
	commands *commandQueue
}

func (h deferredHandler) mode() Mode { return Deferred }

func (h deferredHandler) stop() {
	h.commands.push(Command{Kind: CommandStop})
}

func (h deferredHandler) inputMessage(text string) {
	h.commands.push(Command{Kind: CommandInputMessage, Text: text})
}

func (h deferredHandler) compileOrc(text string) int {
	h.commands.push(Command{Kind: CommandCompileOrc, Text: text})
	return csound.StatusSuccess
}

func (h deferredHandler) readScore(text string) int {
	h.commands.push(Command{Kind: CommandReadScore, Text: text})
	return csound.StatusSuccess
}

func (h deferredHandler) scoreEvent(eventType byte, pfields []float64) int {
	h.commands.push(Command{
		Kind:      CommandScoreEvent,
		EventType: eventType,
		PFields:   append([]float64(nil), pfields...),
	})
	return csound.StatusSuccess
}
