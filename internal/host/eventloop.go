package host

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrStopped is returned by Do once the loop has stopped.
var ErrStopped = errors.New("host: event loop stopped")

type result struct {
	value any
	err   error
}

// EventLoop is a Loop run by a single goroutine. Posts wake the loop
// through a one-slot channel, so any number of posts between two wakes
// cost a single flush.
type EventLoop struct {
	pump *Pump
	wake chan struct{}
	quit chan struct{}
	done chan struct{}

	stopOnce sync.Once
	runOnce  sync.Once
}

// NewEventLoop creates a stopped loop. Call Run or Start.
func NewEventLoop() *EventLoop {
	l := &EventLoop{
		wake: make(chan struct{}, 1),
		quit: make(chan struct{}),
		done: make(chan struct{}),
	}
	l.pump = NewPump(l.signal)
	return l
}

func (l *EventLoop) signal() {
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// Post queues fn.
func (l *EventLoop) Post(fn func()) {
	l.pump.Post(fn)
}

// Run processes posted functions on the calling goroutine until Stop is
// called or ctx is done. Functions pending at Stop are run before Run
// returns. Run may only be called once.
func (l *EventLoop) Run(ctx context.Context) error {
	err := errors.New("host: event loop already ran")
	l.runOnce.Do(func() {
		defer close(l.done)
		err = l.loop(ctx)
	})
	return err
}

func (l *EventLoop) loop(ctx context.Context) error {
	for {
		select {
		case <-l.wake:
			l.pump.Flush()
		case <-l.quit:
			l.pump.Flush()
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Start runs the loop on a new goroutine.
func (l *EventLoop) Start() {
	go func() {
		if err := l.Run(context.Background()); err != nil {
			log.Errorf("event loop: %s", err)
		}
	}()
}

// Stop ends the loop. It does not wait; use Done for that.
func (l *EventLoop) Stop() {
	l.stopOnce.Do(func() { close(l.quit) })
}

// Done is closed once Run has returned.
func (l *EventLoop) Done() <-chan struct{} {
	return l.done
}

// Do runs fn on the loop and waits for its result. A panic in fn is
// returned as an error. Do must not be called from the loop itself.
func (l *EventLoop) Do(fn func() any) (any, error) {
	ch := make(chan result, 1)
	l.Post(func() {
		var r result
		defer func() {
			if p := recover(); p != nil {
				r.err = fmt.Errorf("host: %v", p)
			}
			ch <- r
		}()
		r.value = fn()
	})

	select {
	case r := <-ch:
		return r.value, r.err
	case <-l.done:
		// The final flush may still have run it.
		select {
		case r := <-ch:
			return r.value, r.err
		default:
			return nil, ErrStopped
		}
	}
}

var _ Loop = (*EventLoop)(nil)
