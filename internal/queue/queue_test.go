package queue

import (
	"sync"
	"testing"
)

func TestQueueFIFO(t *testing.T) {
	q := New[int]()

	if !q.Empty() {
		t.Fatal("Expected new queue to be empty")
	}
	if _, ok := q.Pop(); ok {
		t.Fatal("Expected Pop on empty queue to fail")
	}

	for i := 0; i < 100; i++ {
		q.Push(i)
	}
	if q.Len() != 100 {
		t.Errorf("Expected length 100, got %d", q.Len())
	}

	for i := 0; i < 100; i++ {
		v, ok := q.Pop()
		if !ok {
			t.Fatalf("Pop %d: queue unexpectedly empty", i)
		}
		if v != i {
			t.Fatalf("Pop %d: expected %d, got %d", i, i, v)
		}
	}
	if !q.Empty() || q.Len() != 0 {
		t.Error("Expected queue to be empty after popping everything")
	}
}

func TestQueueDrainStopsEarly(t *testing.T) {
	q := New[string]()
	for _, s := range []string{"a", "b", "stop", "c"} {
		q.Push(s)
	}

	var seen []string
	n := q.Drain(func(s string) bool {
		seen = append(seen, s)
		return s != "stop"
	})

	if n != 3 {
		t.Errorf("Expected 3 values drained, got %d", n)
	}
	if len(seen) != 3 || seen[2] != "stop" {
		t.Errorf("Unexpected drain order: %v", seen)
	}
	if v, ok := q.Pop(); !ok || v != "c" {
		t.Errorf("Expected remaining value c, got %q (ok=%v)", v, ok)
	}
}

func TestQueueConcurrentProducers(t *testing.T) {
	const producers = 8
	const perProducer = 5000

	q := New[[2]int]()
	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				q.Push([2]int{p, i})
			}
		}(p)
	}

	// Consume concurrently with the producers; per-producer order must hold.
	next := make([]int, producers)
	total := 0
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	for total < producers*perProducer {
		v, ok := q.Pop()
		if !ok {
			select {
			case <-done:
				if q.Empty() {
					t.Fatalf("Queue drained early: got %d of %d values", total, producers*perProducer)
				}
			default:
			}
			continue
		}
		if v[1] != next[v[0]] {
			t.Fatalf("Producer %d: expected sequence %d, got %d", v[0], next[v[0]], v[1])
		}
		next[v[0]]++
		total++
	}
}
