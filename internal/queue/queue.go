// Package queue provides an unbounded lock-free FIFO for handing values
// from real-time threads to a single consumer.
package queue

import "sync/atomic"

type node[T any] struct {
	next  atomic.Pointer[node[T]]
	value T
}

// Queue is an unbounded multi-producer, single-consumer FIFO.
//
// Push may be called from any goroutine and never blocks. Pop, Drain and
// Empty must only be called from one consumer goroutine at a time.
//
// A value is visible to Pop once the Push that added it has returned.
// While a Push is still in flight Pop may report the queue as empty, so
// producers that need the consumer to notice a value must signal it after
// Push returns.
type Queue[T any] struct {
	head atomic.Pointer[node[T]] // most recently pushed node
	tail *node[T]                // consumer-owned sentinel
	size atomic.Int64
}

// New creates an empty queue.
func New[T any]() *Queue[T] {
	q := &Queue[T]{}
	stub := &node[T]{}
	q.head.Store(stub)
	q.tail = stub
	return q
}

// Push appends v to the queue.
func (q *Queue[T]) Push(v T) {
	n := &node[T]{value: v}
	prev := q.head.Swap(n)
	prev.next.Store(n)
	q.size.Add(1)
}

// Pop removes and returns the oldest value. ok is false if nothing is
// available.
func (q *Queue[T]) Pop() (v T, ok bool) {
	next := q.tail.next.Load()
	if next == nil {
		return v, false
	}
	v = next.value
	// next becomes the new sentinel; drop its value so the queue does not
	// keep it reachable.
	var zero T
	next.value = zero
	q.tail = next
	q.size.Add(-1)
	return v, true
}

// Drain pops values until the queue is empty, calling fn for each.
// Drain stops early if fn returns false. It returns the number of values
// handed to fn.
func (q *Queue[T]) Drain(fn func(T) bool) int {
	n := 0
	for {
		v, ok := q.Pop()
		if !ok {
			return n
		}
		n++
		if !fn(v) {
			return n
		}
	}
}

// Empty reports whether Pop would currently return nothing.
func (q *Queue[T]) Empty() bool {
	return q.tail.next.Load() == nil
}

// Len returns an approximate count of queued values. It is exact when no
// Push or Pop is in progress.
func (q *Queue[T]) Len() int {
	n := q.size.Load()
	if n < 0 {
		return 0
	}
	return int(n)
}
