package bridge

import (
	"sync/atomic"

	"github.com/dewi-tim/csoundtui/internal/host"
	"github.com/dewi-tim/csoundtui/internal/queue"
)

// Channel carries payloads of one callback kind from the engine thread to
// a host callable.
//
// Push and Signal may be called from any goroutine and never block. Drain
// runs on the host loop. Signals coalesce: one pending drain is posted no
// matter how many payloads arrive before it runs, and that drain delivers
// all of them.
type Channel[T any] struct {
	contract *Contract[T]
	fn       host.Func
	loop     host.Loop
	observe  func(Kind, []any)

	events  *queue.Queue[T]
	pending atomic.Bool
	closed  atomic.Bool
	drainFn func()
}

func newChannel[T any](c *Contract[T], loop host.Loop, fn host.Func, observe func(Kind, []any)) *Channel[T] {
	ch := &Channel[T]{
		contract: c,
		fn:       fn,
		loop:     loop,
		observe:  observe,
		events:   queue.New[T](),
	}
	ch.drainFn = func() { ch.Drain() }
	return ch
}

// Push queues a payload.
func (ch *Channel[T]) Push(v T) {
	ch.events.Push(v)
}

// Signal schedules a drain on the host loop unless one is already pending.
func (ch *Channel[T]) Signal() {
	if ch.pending.CompareAndSwap(false, true) {
		ch.loop.Post(ch.drainFn)
	}
}

// Emit pushes v and signals.
func (ch *Channel[T]) Emit(v T) {
	ch.Push(v)
	ch.Signal()
}

// Drain delivers every queued payload in order and returns how many there
// were. Each payload is passed to the host callable once, then released.
// After Close, payloads are released without being delivered.
func (ch *Channel[T]) Drain() int {
	// Clear first: a payload pushed after this point either gets popped
	// below or posts a new drain.
	ch.pending.Store(false)

	n := 0
	for {
		v, ok := ch.events.Pop()
		if !ok {
			return n
		}
		n++
		ch.deliver(v)
	}
}

func (ch *Channel[T]) deliver(v T) {
	if ch.contract.Release != nil {
		defer ch.contract.Release(&v)
	}
	if ch.closed.Load() {
		return
	}

	args := ch.contract.Args(v)
	if ch.observe != nil {
		ch.observe(ch.contract.Kind, args)
	}

	defer func() {
		if r := recover(); r != nil {
			log.Errorf("%s callback panicked: %v", ch.contract.Kind, r)
		}
	}()
	ch.fn(args...)
}

// Close stops delivery. Payloads still queued, and any pushed later by a
// callback already in flight, are released on the next drain.
func (ch *Channel[T]) Close() {
	if ch.closed.Swap(true) {
		return
	}
	ch.Signal()
}

// Closed reports whether Close has been called.
func (ch *Channel[T]) Closed() bool {
	return ch.closed.Load()
}

// Len returns the number of queued payloads.
func (ch *Channel[T]) Len() int {
	return ch.events.Len()
}
