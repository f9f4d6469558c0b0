package host

import (
	"sync"
	"sync/atomic"

	tea "github.com/charmbracelet/bubbletea"
)

// Sender delivers messages to a running bubbletea program.
// *tea.Program satisfies it.
type Sender interface {
	Send(msg tea.Msg)
}

type flushMsg struct{}

// TeaLoop is a Loop whose main context is a bubbletea Update function.
//
// Posting schedules one flushMsg; the model's Update passes every message
// to Handle, which runs the pending functions. tea.Program.Send blocks
// until the program reads the message, so the send happens on its own
// goroutine and at most one is in flight.
type TeaLoop struct {
	pump      *Pump
	scheduled atomic.Bool

	mu     sync.Mutex
	sender Sender
}

// NewTeaLoop creates a loop that is not yet attached to a program.
func NewTeaLoop() *TeaLoop {
	l := &TeaLoop{}
	l.pump = NewPump(l.wake)
	return l
}

// Attach connects the loop to a program. Functions posted earlier are
// scheduled immediately.
func (l *TeaLoop) Attach(s Sender) {
	l.mu.Lock()
	l.sender = s
	l.mu.Unlock()
	if l.pump.Pending() > 0 {
		l.wake()
	}
}

// Post queues fn.
func (l *TeaLoop) Post(fn func()) {
	l.pump.Post(fn)
}

func (l *TeaLoop) wake() {
	l.mu.Lock()
	s := l.sender
	l.mu.Unlock()
	if s == nil {
		// Attach schedules whatever is pending.
		return
	}
	if !l.scheduled.CompareAndSwap(false, true) {
		return
	}
	go s.Send(flushMsg{})
}

// Handle runs pending functions if msg is the loop's flush message and
// reports whether it was.
func (l *TeaLoop) Handle(msg tea.Msg) bool {
	if _, ok := msg.(flushMsg); !ok {
		return false
	}
	// Clear before flushing so a post made during the flush schedules
	// another one.
	l.scheduled.Store(false)
	l.pump.Flush()
	return true
}

var _ Loop = (*TeaLoop)(nil)
