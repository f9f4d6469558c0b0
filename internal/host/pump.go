package host

import (
	"sync"

	"github.com/dewi-tim/csoundtui/internal/queue"
)

// Pump is a Loop flushed explicitly by the owner of the main context.
type Pump struct {
	fns    *queue.Queue[func()]
	notify func()
	mu     sync.Mutex
}

// NewPump creates a pump. notify, if non-nil, is called after every Post
// and must not block.
func NewPump(notify func()) *Pump {
	return &Pump{
		fns:    queue.New[func()](),
		notify: notify,
	}
}

// Post queues fn.
func (p *Pump) Post(fn func()) {
	p.fns.Push(fn)
	if p.notify != nil {
		p.notify()
	}
}

// Flush runs every pending function in FIFO order, including ones posted
// while it runs, and returns how many ran. A panicking function is logged
// and skipped. Flush must not be called from a posted function.
func (p *Pump) Flush() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.fns.Drain(func(fn func()) bool {
		run(fn)
		return true
	})
}

// Pending returns the number of queued functions.
func (p *Pump) Pending() int {
	return p.fns.Len()
}

func run(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("host callable panicked: %v", r)
		}
	}()
	fn()
}

var _ Loop = (*Pump)(nil)
