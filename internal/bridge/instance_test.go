package bridge

import (
	"errors"
	"testing"

	"github.com/dewi-tim/csoundtui/internal/csound"
	"github.com/dewi-tim/csoundtui/internal/csound/csoundtest"
	"github.com/dewi-tim/csoundtui/internal/host"
)

type message struct {
	attributes int
	text       string
}

func newTestInstance(t *testing.T, f *csoundtest.Fake) (*Instance, *host.Pump) {
	t.Helper()
	pump := host.NewPump(nil)
	p := NewProcess(pump, csoundtest.Factory(f), (&csoundtest.DefaultMessages{}).Install)
	in, err := p.Create(nil)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	return in, pump
}

func TestMessageScenario(t *testing.T) {
	f := csoundtest.New(1)
	in, pump := newTestInstance(t, f)

	var got []message
	if err := in.SetMessageCallback(OnMessage(func(attributes int, text string) {
		got = append(got, message{attributes, text})
	})); err != nil {
		t.Fatalf("SetMessageCallback: %v", err)
	}

	f.EmitMessage(0, "a=1")
	f.EmitMessage(1, "warn")
	if len(got) != 0 {
		t.Fatal("Expected nothing delivered before the host drains")
	}
	pump.Flush()

	want := []message{{0, "a=1"}, {1, "warn"}}
	if len(got) != len(want) {
		t.Fatalf("Expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Call %d: expected %v, got %v", i, want[i], got[i])
		}
	}
	if ch := in.message.channel(); ch.Len() != 0 {
		t.Errorf("Expected empty channel, %d left", ch.Len())
	}
}

func TestRebindReachesOnlyNewCallable(t *testing.T) {
	f := csoundtest.New(1)
	in, pump := newTestInstance(t, f)

	var old, current []string
	in.SetMessageCallback(OnMessage(func(_ int, text string) { old = append(old, text) }))
	first := in.message.channel()
	in.SetMessageCallback(OnMessage(func(_ int, text string) { current = append(current, text) }))

	f.EmitMessage(0, "after rebind")
	pump.Flush()

	if len(old) != 0 {
		t.Errorf("Old callable received %v", old)
	}
	if len(current) != 1 || current[0] != "after rebind" {
		t.Errorf("New callable received %v", current)
	}
	if !first.Closed() {
		t.Error("Expected previous channel to be closed")
	}
	if n := f.Count("SetMessageCallback"); n != 1 {
		t.Errorf("Expected the engine callback to be attached once, got %d", n)
	}
}

func TestUnbindWithNil(t *testing.T) {
	f := csoundtest.New(1)
	in, pump := newTestInstance(t, f)

	called := false
	in.SetFileOpenCallback(OnFileOpen(func(string, int, bool, bool) { called = true }))
	if !in.Bound(KindFileOpen) {
		t.Fatal("Expected file-open to be bound")
	}

	if err := in.SetFileOpenCallback(nil); err != nil {
		t.Fatalf("Unbind: %v", err)
	}
	if in.Bound(KindFileOpen) {
		t.Error("Expected file-open to be unbound")
	}
	if f.EmitFileOpen("out.wav", csound.FileWave, true, false) {
		t.Error("Expected engine callback to be detached")
	}
	pump.Flush()
	if called {
		t.Error("Unbound callable was invoked")
	}

	// Unbinding twice is a no-op.
	if err := in.SetFileOpenCallback(nil); err != nil {
		t.Errorf("Second unbind: %v", err)
	}
}

func TestFileOpenContract(t *testing.T) {
	f := csoundtest.New(1)
	in, pump := newTestInstance(t, f)

	var got FileOpenEvent
	in.SetFileOpenCallback(OnFileOpen(func(path string, fileType int, forWriting, temporary bool) {
		got = FileOpenEvent{path, fileType, forWriting, temporary}
	}))
	f.EmitFileOpen("test.wav", csound.FileWave, true, false)
	pump.Flush()

	want := FileOpenEvent{"test.wav", csound.FileWave, true, false}
	if got != want {
		t.Errorf("Expected %+v, got %+v", want, got)
	}
}

func TestGraphPayloadIsCopiedAndReleased(t *testing.T) {
	f := csoundtest.New(1)
	in, pump := newTestInstance(t, f)

	var kept *csound.WindowData
	var name string
	var samples []float64
	in.SetMakeGraphCallback(OnMakeGraph(func(w *csound.WindowData, n string) {
		kept, name = w, n
		samples = append(samples, w.Samples...)
	}))

	engineSamples := []float64{0.5, -0.5, 1}
	f.EmitMakeGraph(&csound.WindowData{ID: 3, Caption: "ftable 1", Samples: engineSamples}, "ftable 1")
	// The engine reuses its memory once the callback returns.
	engineSamples[0] = 42
	pump.Flush()

	if name != "ftable 1" || kept.ID != 3 {
		t.Errorf("Unexpected graph: %+v %q", kept, name)
	}
	if len(samples) != 3 || samples[0] != 0.5 {
		t.Errorf("Expected samples captured at fire time, got %v", samples)
	}
	if kept.Samples != nil {
		t.Error("Expected pooled samples to be released after delivery")
	}
}

func TestDrawAndKillGraph(t *testing.T) {
	f := csoundtest.New(1)
	in, pump := newTestInstance(t, f)

	var drawn, killed []uintptr
	in.SetDrawGraphCallback(OnGraph(func(w *csound.WindowData) { drawn = append(drawn, w.ID) }))
	in.SetKillGraphCallback(OnGraph(func(w *csound.WindowData) { killed = append(killed, w.ID) }))

	f.EmitDrawGraph(&csound.WindowData{ID: 1})
	f.EmitDrawGraph(&csound.WindowData{ID: 1})
	f.EmitKillGraph(&csound.WindowData{ID: 1})
	pump.Flush()

	if len(drawn) != 2 || len(killed) != 1 {
		t.Errorf("Expected 2 draws and 1 kill, got %v %v", drawn, killed)
	}
}

func TestBreakpointGoesThroughChannel(t *testing.T) {
	f := csoundtest.New(1)
	in, pump := newTestInstance(t, f)

	var got *csound.BreakpointInfo
	in.SetBreakpointCallback(OnBreakpoint(func(info *csound.BreakpointInfo) { got = info }))

	info := &csound.BreakpointInfo{Instrument: &csound.DebugInstrument{P1: 1, Line: 12}}
	f.EmitBreakpoint(info)
	if got != nil {
		t.Fatal("Breakpoint was delivered on the engine thread")
	}
	pump.Flush()
	if got != info {
		t.Errorf("Expected breakpoint info to be delivered, got %+v", got)
	}
}

func TestSetCallbackUnknownKind(t *testing.T) {
	in, _ := newTestInstance(t, csoundtest.New(1))
	if err := in.SetCallback(Kind(99), func(...any) {}); !errors.Is(err, ErrUnknownKind) {
		t.Errorf("Expected ErrUnknownKind, got %v", err)
	}
}

func TestSynchronousDispatch(t *testing.T) {
	f := csoundtest.New(1)
	in, _ := newTestInstance(t, f)

	if in.Mode() != Synchronous {
		t.Fatalf("Expected initial mode Synchronous, got %s", in.Mode())
	}

	in.CompileOrc("instr 1\nendin")
	in.ReadScore("i1 0 1")
	in.InputMessage("i1 0 1")
	if status := in.ScoreEvent("i", []float64{1, 0, 1}); status != csound.StatusSuccess {
		t.Errorf("ScoreEvent returned %d", status)
	}
	in.Stop()

	want := []string{"CompileOrc", "ReadScore", "InputMessage", "ScoreEvent", "Stop"}
	calls := f.Calls(want...)
	if len(calls) != len(want) {
		t.Fatalf("Expected %v, got %v", want, calls)
	}
	for i, c := range calls {
		if c.Name != want[i] {
			t.Errorf("Call %d: expected %s, got %s", i, want[i], c.Name)
		}
	}
}

func TestScoreEventRejectsBadType(t *testing.T) {
	f := csoundtest.New(1)
	in, _ := newTestInstance(t, f)

	for _, typ := range []string{"", "ii"} {
		if status := in.ScoreEvent(typ, []float64{1}); status != csound.StatusError {
			t.Errorf("ScoreEvent(%q): expected %d, got %d", typ, csound.StatusError, status)
		}
	}
	if n := f.Count("ScoreEvent"); n != 0 {
		t.Errorf("Expected no engine calls, got %d", n)
	}
}

func TestHostData(t *testing.T) {
	pump := host.NewPump(nil)
	p := NewProcess(pump, csoundtest.Factory(csoundtest.New(1)), (&csoundtest.DefaultMessages{}).Install)
	in, err := p.Create("piece.csd")
	if err != nil {
		t.Fatal(err)
	}
	if in.HostData() != "piece.csd" {
		t.Errorf("Unexpected host data %v", in.HostData())
	}
	in.SetHostData(42)
	if in.HostData() != 42 {
		t.Errorf("Unexpected host data %v", in.HostData())
	}
}

func TestDestroyReleasesRegistrations(t *testing.T) {
	f := csoundtest.New(1)
	in, pump := newTestInstance(t, f)

	in.SetMessageCallback(OnMessage(func(int, string) {}))
	in.SetDrawGraphCallback(OnGraph(func(*csound.WindowData) {}))
	msg := in.message.channel()

	if err := in.Destroy(); err != nil {
		t.Fatalf("Destroy: %v", err)
	}
	pump.Flush()

	if !msg.Closed() {
		t.Error("Expected message channel to be closed")
	}
	for _, k := range Kinds() {
		if in.Bound(k) {
			t.Errorf("%s still bound after Destroy", k)
		}
	}
	if !f.Destroyed() {
		t.Error("Expected engine to be destroyed")
	}
	if len(in.process.Instances()) != 0 {
		t.Error("Expected instance to be unregistered")
	}
	if err := in.SetMessageCallback(OnMessage(func(int, string) {})); !errors.Is(err, ErrDestroyed) {
		t.Errorf("Expected ErrDestroyed, got %v", err)
	}
	if err := in.Destroy(); err != nil {
		t.Errorf("Second Destroy: %v", err)
	}
}

type recorded struct {
	kind Kind
	args []any
}

type memRecorder struct {
	events []recorded
}

func (r *memRecorder) Record(kind Kind, args []any) error {
	r.events = append(r.events, recorded{kind, args})
	return nil
}

func TestRecorderObservesDeliveredEvents(t *testing.T) {
	f := csoundtest.New(1)
	in, pump := newTestInstance(t, f)

	rec := &memRecorder{}
	in.SetRecorder(rec)
	in.SetMessageCallback(OnMessage(func(int, string) {}))

	f.EmitMessage(csound.MsgWarning, "careful")
	pump.Flush()

	if len(rec.events) != 1 {
		t.Fatalf("Expected 1 recorded event, got %d", len(rec.events))
	}
	ev := rec.events[0]
	if ev.kind != KindMessage || ev.args[0] != csound.MsgWarning || ev.args[1] != "careful" {
		t.Errorf("Unexpected record %+v", ev)
	}
}

func TestRequestsAfterDestroyRefused(t *testing.T) {
	f := csoundtest.New(1)
	in, _ := newTestInstance(t, f)
	if err := in.Destroy(); err != nil {
		t.Fatalf("Destroy: %v", err)
	}
	if !in.Destroyed() {
		t.Fatal("Expected the instance to report destroyed")
	}

	statuses := map[string]int{
		"ScoreEvent":   in.ScoreEvent("i", []float64{1, 0, 1}),
		"ReadScore":    in.ReadScore("i1 0 1"),
		"CompileOrc":   in.CompileOrc("instr 1\nendin"),
		"CompileCsd":   in.CompileCsd("piece.csd"),
		"SetOption":    in.SetOption("-odac"),
		"Start":        in.Start(),
		"PerformKsmps": in.PerformKsmps(),
		"Cleanup":      in.Cleanup(),
	}
	for name, status := range statuses {
		if status != csound.StatusError {
			t.Errorf("%s: expected StatusError, got %d", name, status)
		}
	}
	in.InputMessage("i1 0 1")
	in.Stop()
	in.DebugContinue()
	in.Message("late")

	if calls := f.Calls(); len(calls) == 0 || calls[len(calls)-1].Name != "Destroy" {
		t.Errorf("Expected no engine calls after Destroy, got %v", calls)
	}
}
