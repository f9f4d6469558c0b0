package bridge

import (
	"testing"

	"github.com/dewi-tim/csoundtui/internal/host"
)

type tracked struct {
	id int
}

func trackingContract(released []int) *Contract[tracked] {
	return &Contract[tracked]{
		Kind: KindMessage,
		Args: func(v tracked) []any { return []any{v.id} },
		Release: func(v *tracked) {
			released[v.id]++
		},
	}
}

func TestChannelFIFO(t *testing.T) {
	const n = 1000
	pump := host.NewPump(nil)
	var got []int
	ch := newChannel(trackingContract(make([]int, n)), pump, func(args ...any) {
		got = append(got, args[0].(int))
	}, nil)

	for i := 0; i < n; i++ {
		ch.Emit(tracked{id: i})
	}
	pump.Flush()

	if len(got) != n {
		t.Fatalf("Expected %d invocations, got %d", n, len(got))
	}
	for i, v := range got {
		if v != i {
			t.Fatalf("Invocation %d: expected %d, got %d", i, i, v)
		}
	}
	if ch.Len() != 0 {
		t.Errorf("Expected empty channel, %d left", ch.Len())
	}
}

func TestChannelFIFOWithConcurrentProducer(t *testing.T) {
	const n = 20000
	released := make([]int, n)
	pump := host.NewPump(nil)
	var got []int
	ch := newChannel(trackingContract(released), pump, func(args ...any) {
		got = append(got, args[0].(int))
	}, nil)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < n; i++ {
			ch.Emit(tracked{id: i})
		}
	}()

	// Drain on this goroutine while the producer is still pushing.
	for running := true; running; {
		select {
		case <-done:
			running = false
		default:
		}
		pump.Flush()
	}
	pump.Flush()

	if len(got) != n {
		t.Fatalf("Expected %d invocations, got %d", n, len(got))
	}
	for i, v := range got {
		if v != i {
			t.Fatalf("Invocation %d: expected %d, got %d", i, i, v)
		}
	}
	for id, count := range released {
		if count != 1 {
			t.Fatalf("Payload %d released %d times", id, count)
		}
	}
	if pump.Pending() != 0 || ch.Len() != 0 {
		t.Errorf("Expected nothing left, %d drains and %d payloads pending", pump.Pending(), ch.Len())
	}
}

func TestChannelSignalCoalesces(t *testing.T) {
	pump := host.NewPump(nil)
	calls := 0
	ch := newChannel(trackingContract(make([]int, 3)), pump, func(...any) { calls++ }, nil)

	for i := 0; i < 3; i++ {
		ch.Emit(tracked{id: i})
	}
	if pump.Pending() != 1 {
		t.Errorf("Expected one pending drain, got %d", pump.Pending())
	}

	pump.Flush()
	if calls != 3 {
		t.Errorf("Expected one drain to deliver all 3 payloads, got %d", calls)
	}

	// After a drain, the next signal posts again.
	ch.Emit(tracked{id: 0})
	if pump.Pending() != 1 {
		t.Errorf("Expected a new drain after the previous one ran, got %d", pump.Pending())
	}
}

func TestChannelPushDuringDrain(t *testing.T) {
	pump := host.NewPump(nil)
	var ch *Channel[tracked]
	var got []int
	ch = newChannel(trackingContract(make([]int, 2)), pump, func(args ...any) {
		id := args[0].(int)
		got = append(got, id)
		if id == 0 {
			ch.Emit(tracked{id: 1})
		}
	}, nil)

	ch.Emit(tracked{id: 0})
	pump.Flush()

	if len(got) != 2 || got[0] != 0 || got[1] != 1 {
		t.Errorf("Expected [0 1], got %v", got)
	}
}

func TestChannelReleasesExactlyOnce(t *testing.T) {
	const cycles = 10000
	released := make([]int, cycles)
	pump := host.NewPump(nil)
	invoked := 0
	ch := newChannel(trackingContract(released), pump, func(...any) { invoked++ }, nil)

	for i := 0; i < cycles; i++ {
		ch.Emit(tracked{id: i})
		pump.Flush()
	}

	if invoked != cycles {
		t.Errorf("Expected %d invocations, got %d", cycles, invoked)
	}
	for id, n := range released {
		if n != 1 {
			t.Fatalf("Payload %d released %d times", id, n)
		}
	}
}

func TestChannelCloseReleasesWithoutInvoking(t *testing.T) {
	released := make([]int, 4)
	pump := host.NewPump(nil)
	invoked := 0
	ch := newChannel(trackingContract(released), pump, func(...any) { invoked++ }, nil)

	ch.Push(tracked{id: 0})
	ch.Push(tracked{id: 1})
	ch.Close()
	// A callback already in flight may still push after Close.
	ch.Emit(tracked{id: 2})
	pump.Flush()

	if invoked != 0 {
		t.Errorf("Expected no invocations after Close, got %d", invoked)
	}
	for id, n := range released[:3] {
		if n != 1 {
			t.Errorf("Payload %d released %d times", id, n)
		}
	}
	if !ch.Closed() {
		t.Error("Expected channel to report closed")
	}
}

func TestChannelRecoversCallablePanic(t *testing.T) {
	released := make([]int, 2)
	pump := host.NewPump(nil)
	var got []int
	ch := newChannel(trackingContract(released), pump, func(args ...any) {
		id := args[0].(int)
		if id == 0 {
			panic("host error")
		}
		got = append(got, id)
	}, nil)

	ch.Emit(tracked{id: 0})
	ch.Emit(tracked{id: 1})
	pump.Flush()

	if len(got) != 1 || got[0] != 1 {
		t.Errorf("Expected delivery to continue after a panic, got %v", got)
	}
	if released[0] != 1 || released[1] != 1 {
		t.Errorf("Expected both payloads released once, got %v", released)
	}
}

func TestContractArgsMatchKindArity(t *testing.T) {
	args := map[Kind][]any{
		messageContract.Kind:    messageContract.Args(MessageEvent{}),
		fileOpenContract.Kind:   fileOpenContract.Args(FileOpenEvent{}),
		makeGraphContract.Kind:  makeGraphContract.Args(GraphEvent{}),
		drawGraphContract.Kind:  drawGraphContract.Args(GraphEvent{}),
		killGraphContract.Kind:  killGraphContract.Args(GraphEvent{}),
		breakpointContract.Kind: breakpointContract.Args(BreakpointEvent{}),
	}
	if len(args) != int(numKinds) {
		t.Fatalf("Expected one contract per kind, got %d", len(args))
	}
	for k, a := range args {
		if len(a) != k.Arity() {
			t.Errorf("%s: Args returned %d values, arity is %d", k, len(a), k.Arity())
		}
	}

	want := map[Kind]int{
		KindMessage:    2,
		KindFileOpen:   4,
		KindMakeGraph:  2,
		KindDrawGraph:  1,
		KindKillGraph:  1,
		KindBreakpoint: 1,
	}
	for k, n := range want {
		if k.Arity() != n {
			t.Errorf("%s: expected arity %d, got %d", k, n, k.Arity())
		}
	}
	if Kind(-1).Arity() != 0 || numKinds.Arity() != 0 {
		t.Error("Expected unknown kinds to have arity 0")
	}
}

func TestParseKind(t *testing.T) {
	for _, k := range Kinds() {
		got, ok := ParseKind(k.String())
		if !ok || got != k {
			t.Errorf("ParseKind(%q) = %v, %v", k.String(), got, ok)
		}
	}
	if _, ok := ParseKind("nope"); ok {
		t.Error("Expected unknown name to fail")
	}
}
