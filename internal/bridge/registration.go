package bridge

import (
	"sync"
	"sync/atomic"

	"github.com/dewi-tim/csoundtui/internal/host"
)

// binding is the kind-independent view of a slot.
type binding interface {
	bind(loop host.Loop, fn host.Func, observe func(Kind, []any))
	unbind()
	bound() bool
}

// slot holds the single registration of one callback kind.
//
// The engine callback is attached once, on first bind, and forwards to
// whichever channel is live. Rebinding swaps the live channel before
// closing the old one, so an event fired after the swap can only reach
// the new callable.
type slot[T any] struct {
	contract *Contract[T]
	attach   func(emit func(T))

	mu       sync.Mutex
	attached bool
	live     atomic.Pointer[Channel[T]]
}

func newSlot[T any](c *Contract[T], attach func(emit func(T))) *slot[T] {
	return &slot[T]{contract: c, attach: attach}
}

// emit runs on the engine thread.
func (s *slot[T]) emit(v T) {
	if ch := s.live.Load(); ch != nil {
		ch.Emit(v)
		return
	}
	if s.contract.Release != nil {
		s.contract.Release(&v)
	}
}

func (s *slot[T]) bind(loop host.Loop, fn host.Func, observe func(Kind, []any)) {
	if fn == nil {
		s.unbind()
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	old := s.live.Swap(newChannel(s.contract, loop, fn, observe))
	if !s.attached {
		s.attach(s.emit)
		s.attached = true
	}
	if old != nil {
		old.Close()
	}
	log.Debugf("bound %s callback", s.contract.Kind)
}

func (s *slot[T]) unbind() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.attached {
		s.attach(nil)
		s.attached = false
	}
	if old := s.live.Swap(nil); old != nil {
		old.Close()
		log.Debugf("unbound %s callback", s.contract.Kind)
	}
}

func (s *slot[T]) bound() bool {
	return s.live.Load() != nil
}

// channel returns the live channel, or nil.
func (s *slot[T]) channel() *Channel[T] {
	return s.live.Load()
}
