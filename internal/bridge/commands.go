package bridge

import (
	"fmt"

	"github.com/dewi-tim/csoundtui/internal/csound"
	"github.com/dewi-tim/csoundtui/internal/queue"
)

// CommandKind identifies a deferred command.
type CommandKind int

const (
	// CommandStop ends the run. Commands queued behind it are discarded.
	CommandStop CommandKind = iota
	// CommandInputMessage sends Text as a line-event statement.
	CommandInputMessage
	// CommandCompileOrc compiles Text as an orchestra fragment.
	CommandCompileOrc
	// CommandReadScore reads Text as score.
	CommandReadScore
	// CommandScoreEvent sends an event of EventType with PFields.
	CommandScoreEvent
)

// String returns a human-readable name for the command kind.
func (k CommandKind) String() string {
	switch k {
	case CommandStop:
		return "Stop"
	case CommandInputMessage:
		return "InputMessage"
	case CommandCompileOrc:
		return "CompileOrc"
	case CommandReadScore:
		return "ReadScore"
	case CommandScoreEvent:
		return "ScoreEvent"
	default:
		return "Unknown"
	}
}

// Command is a request queued while a background performance runs. It
// owns copies of its arguments.
type Command struct {
	Kind      CommandKind
	Text      string
	EventType byte
	PFields   []float64
}

// String formats the command for logs.
func (c Command) String() string {
	switch c.Kind {
	case CommandStop:
		return "Stop"
	case CommandScoreEvent:
		return fmt.Sprintf("ScoreEvent(%c, %v)", c.EventType, c.PFields)
	default:
		return fmt.Sprintf("%s(%q)", c.Kind, c.Text)
	}
}

// execute runs c against e and reports whether the run must end.
func (c Command) execute(e csound.Engine) bool {
	switch c.Kind {
	case CommandStop:
		e.Stop()
		return true
	case CommandInputMessage:
		e.InputMessage(c.Text)
	case CommandCompileOrc:
		if status := e.CompileOrc(c.Text); status != csound.StatusSuccess {
			log.Warningf("deferred CompileOrc returned %d", status)
		}
	case CommandReadScore:
		if status := e.ReadScore(c.Text); status != csound.StatusSuccess {
			log.Warningf("deferred ReadScore returned %d", status)
		}
	case CommandScoreEvent:
		if status := e.ScoreEvent(c.EventType, c.PFields); status != csound.StatusSuccess {
			log.Warningf("deferred ScoreEvent returned %d", status)
		}
	}
	return false
}

// commandQueue holds the deferred commands of one background run.
type commandQueue struct {
	q *queue.Queue[Command]
}

func newCommandQueue() *commandQueue {
	return &commandQueue{q: queue.New[Command]()}
}

func (cq *commandQueue) push(c Command) {
	cq.q.Push(c)
}

// drain executes queued commands in order until the queue is empty or a
// Stop has executed, and reports whether a Stop was seen. Failures of
// individual commands do not affect the others.
func (cq *commandQueue) drain(e csound.Engine) (stopped bool) {
	cq.q.Drain(func(c Command) bool {
		stopped = c.execute(e)
		return !stopped
	})
	return stopped
}

// discard drops every queued command and returns how many there were.
func (cq *commandQueue) discard() int {
	return cq.q.Drain(func(Command) bool { return true })
}
