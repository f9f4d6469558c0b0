package bridge

import (
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/dewi-tim/csoundtui/internal/csound"
	"github.com/dewi-tim/csoundtui/internal/csound/csoundtest"
)

// holdAt pauses the fake inside step n until release is called.
func holdAt(f *csoundtest.Fake, n int) (reached <-chan struct{}, release func()) {
	r := make(chan struct{})
	proceed := make(chan struct{})
	f.OnStep = func(step int) {
		if step == n {
			close(r)
			<-proceed
		}
	}
	var once sync.Once
	return r, func() { once.Do(func() { close(proceed) }) }
}

func waitFor(t *testing.T, ch <-chan struct{}) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(5 * time.Second):
		t.Fatal("Timed out waiting for the performance thread")
	}
}

func scoreEvents(f *csoundtest.Fake) [][]float64 {
	var out [][]float64
	for _, c := range f.Calls("ScoreEvent") {
		out = append(out, c.Args[1].([]float64))
	}
	return out
}

func TestDeferredCommandOrdering(t *testing.T) {
	f := csoundtest.New(0)
	in, pump := newTestInstance(t, f)
	reached, release := holdAt(f, 1)
	defer release()

	var statuses []int
	if err := in.PerformAsync(OnStatus(func(s int) { statuses = append(statuses, s) })); err != nil {
		t.Fatalf("PerformAsync: %v", err)
	}
	waitFor(t, reached)

	if in.Mode() != Deferred {
		t.Errorf("Expected Deferred mode during the run, got %s", in.Mode())
	}
	for _, p1 := range []float64{1, 2, 3} {
		if status := in.ScoreEvent("i", []float64{p1, 0, 1}); status != csound.StatusSuccess {
			t.Errorf("Deferred ScoreEvent returned %d", status)
		}
	}
	if n := f.Count("ScoreEvent"); n != 0 {
		t.Fatalf("Expected commands to be queued, engine saw %d", n)
	}
	in.Stop()
	release()
	in.Wait()
	pump.Flush()

	want := [][]float64{{1, 0, 1}, {2, 0, 1}, {3, 0, 1}}
	if got := scoreEvents(f); !reflect.DeepEqual(got, want) {
		t.Errorf("Expected %v, got %v", want, got)
	}
	if len(statuses) != 1 {
		t.Errorf("Expected onComplete once, got %d", len(statuses))
	}
}

func TestScoreEventScenario(t *testing.T) {
	f := csoundtest.New(0)
	in, _ := newTestInstance(t, f)
	reached, release := holdAt(f, 1)
	defer release()

	in.PerformAsync(OnStatus(func(int) {}))
	waitFor(t, reached)

	pfields := []float64{1, 0, 1}
	in.ScoreEvent("i", pfields)
	// The caller may reuse its slice once the call returns.
	pfields[0] = 99
	in.Stop()
	release()
	in.Wait()

	calls := f.Calls("ScoreEvent")
	if len(calls) != 1 {
		t.Fatalf("Expected exactly one event, got %v", calls)
	}
	if calls[0].Args[0].(byte) != 'i' {
		t.Errorf("Expected type 'i', got %q", calls[0].Args[0])
	}
	if got := calls[0].Args[1].([]float64); !reflect.DeepEqual(got, []float64{1, 0, 1}) {
		t.Errorf("Expected [1 0 1], got %v", got)
	}
}

func TestStopPrecedence(t *testing.T) {
	f := csoundtest.New(0)
	in, _ := newTestInstance(t, f)
	reached, release := holdAt(f, 1)
	defer release()

	in.PerformAsync(OnStatus(func(int) {}))
	waitFor(t, reached)

	in.ScoreEvent("i", []float64{1, 0, 1})
	in.Stop()
	in.ScoreEvent("i", []float64{2, 0, 1})
	in.ReadScore("i3 0 1")
	release()
	in.Wait()

	if got := scoreEvents(f); !reflect.DeepEqual(got, [][]float64{{1, 0, 1}}) {
		t.Errorf("Expected only the event before Stop, got %v", got)
	}
	if n := f.Count("ReadScore"); n != 0 {
		t.Errorf("Expected ReadScore after Stop to be discarded, got %d", n)
	}
	if steps := f.StepCount(); steps != 1 {
		t.Errorf("Expected the run to end after the first step, got %d steps", steps)
	}
}

func TestModeRestoredAfterRun(t *testing.T) {
	tests := []struct {
		name   string
		steps  int
		end    int
		stop   bool
		status int
	}{
		{"natural end", 3, 1, false, 1},
		{"engine error", 2, csound.StatusPerformance, false, csound.StatusPerformance},
		{"stop", 0, 1, true, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := csoundtest.New(tt.steps)
			f.EndStatus = tt.end
			in, pump := newTestInstance(t, f)

			var release func()
			if tt.stop {
				_, release = holdAt(f, 1)
				defer release()
			}

			var statuses []int
			in.PerformAsync(OnStatus(func(s int) { statuses = append(statuses, s) }))
			if tt.stop {
				in.Stop()
				release()
			}
			in.Wait()
			pump.Flush()

			if len(statuses) != 1 || statuses[0] != tt.status {
				t.Errorf("Expected onComplete(%d) once, got %v", tt.status, statuses)
			}
			if in.Mode() != Synchronous {
				t.Fatalf("Expected Synchronous after the run, got %s", in.Mode())
			}
			if in.Performing() {
				t.Error("Expected no active run")
			}

			before := f.Count("ScoreEvent")
			in.ScoreEvent("i", []float64{1, 0, 1})
			if f.Count("ScoreEvent") != before+1 {
				t.Error("Expected ScoreEvent to reach the engine immediately")
			}
		})
	}
}

func TestPerformKsmpsAsyncPostsEveryStep(t *testing.T) {
	f := csoundtest.New(5)
	in, pump := newTestInstance(t, f)

	steps := 0
	var order []string
	err := in.PerformKsmpsAsync(
		func(...any) { steps++; order = append(order, "step") },
		OnStatus(func(int) { order = append(order, "complete") }),
	)
	if err != nil {
		t.Fatalf("PerformKsmpsAsync: %v", err)
	}
	in.Wait()
	pump.Flush()

	if steps != 5 {
		t.Errorf("Expected 5 step notifications, got %d", steps)
	}
	if order[len(order)-1] != "complete" {
		t.Errorf("Expected completion last, got %v", order)
	}
}

func TestSecondRunRejected(t *testing.T) {
	f := csoundtest.New(0)
	in, _ := newTestInstance(t, f)
	reached, release := holdAt(f, 1)
	defer release()

	if err := in.PerformAsync(OnStatus(func(int) {})); err != nil {
		t.Fatal(err)
	}
	waitFor(t, reached)

	if err := in.PerformAsync(OnStatus(func(int) {})); !errors.Is(err, ErrAlreadyPerforming) {
		t.Errorf("Expected ErrAlreadyPerforming, got %v", err)
	}
	if status := in.PerformKsmps(); status != csound.StatusError {
		t.Errorf("Expected synchronous step to be refused, got %d", status)
	}
	if err := in.Destroy(); !errors.Is(err, ErrAlreadyPerforming) {
		t.Errorf("Expected Destroy to be refused, got %v", err)
	}

	in.Stop()
	release()
	in.Wait()
	if err := in.Destroy(); err != nil {
		t.Errorf("Destroy after run: %v", err)
	}
}

func TestRunRequiresCallbacks(t *testing.T) {
	in, _ := newTestInstance(t, csoundtest.New(1))

	if err := in.PerformAsync(nil); !errors.Is(err, ErrNoCallback) {
		t.Errorf("Expected ErrNoCallback, got %v", err)
	}
	if err := in.PerformKsmpsAsync(nil, OnStatus(func(int) {})); !errors.Is(err, ErrNoCallback) {
		t.Errorf("Expected ErrNoCallback, got %v", err)
	}
	if in.Performing() {
		t.Error("Expected no run to start")
	}

	in.Destroy()
	if err := in.PerformAsync(OnStatus(func(int) {})); !errors.Is(err, ErrDestroyed) {
		t.Errorf("Expected ErrDestroyed, got %v", err)
	}
}

type vectorSink struct {
	vectors  [][]float64
	channels int
}

func (s *vectorSink) WriteVector(samples []float64, channels int) {
	s.vectors = append(s.vectors, append([]float64(nil), samples...))
	s.channels = channels
}

func TestOutputSinkReceivesEveryVector(t *testing.T) {
	f := csoundtest.New(3)
	f.Output = []float64{0.1, 0.2}
	in, _ := newTestInstance(t, f)

	sink := &vectorSink{}
	in.SetOutputSink(sink)
	in.PerformAsync(OnStatus(func(int) {}))
	in.Wait()

	if len(sink.vectors) != 3 {
		t.Fatalf("Expected 3 vectors, got %d", len(sink.vectors))
	}
	if sink.channels != 2 || !reflect.DeepEqual(sink.vectors[0], []float64{0.1, 0.2}) {
		t.Errorf("Unexpected output %v on %d channels", sink.vectors[0], sink.channels)
	}
}

func TestMessagesDuringRunReachHost(t *testing.T) {
	f := csoundtest.New(3)
	f.OnStep = func(step int) {
		f.EmitMessage(0, "step")
	}
	in, pump := newTestInstance(t, f)

	count := 0
	in.SetMessageCallback(OnMessage(func(_ int, text string) { count++ }))
	in.PerformAsync(OnStatus(func(int) {}))
	in.Wait()
	pump.Flush()

	if count != 3 {
		t.Errorf("Expected 3 messages, got %d", count)
	}
}

// inlineLoop runs posted functions on the posting goroutine.
type inlineLoop struct{}

func (inlineLoop) Post(fn func()) { fn() }

func TestFinalDrainBlocksSynchronousRequests(t *testing.T) {
	f := csoundtest.New(2)
	inA := make(chan struct{})
	releaseA := make(chan struct{})
	f.OnScoreEvent = func(_ byte, pfields []float64) {
		if pfields[0] == 1 {
			close(inA)
			<-releaseA
		}
	}
	p := NewProcess(inlineLoop{}, csoundtest.Factory(f), (&csoundtest.DefaultMessages{}).Install)
	in, err := p.Create(nil)
	if err != nil {
		t.Fatal(err)
	}

	// Queued after the last step's drain, so only the final drain runs it.
	onStep := func(...any) {
		if f.StepCount() == 2 {
			in.ScoreEvent("i", []float64{1, 0, 1})
		}
	}
	if err := in.PerformKsmpsAsync(onStep, OnStatus(func(int) {})); err != nil {
		t.Fatalf("PerformKsmpsAsync: %v", err)
	}
	waitFor(t, inA)

	bDone := make(chan struct{})
	go func() {
		in.ScoreEvent("i", []float64{2, 0, 1})
		close(bDone)
	}()
	select {
	case <-bDone:
		t.Error("Synchronous request reached the engine during the final drain")
	case <-time.After(50 * time.Millisecond):
	}

	close(releaseA)
	waitFor(t, bDone)
	in.Wait()

	want := [][]float64{{1, 0, 1}, {2, 0, 1}}
	if got := scoreEvents(f); !reflect.DeepEqual(got, want) {
		t.Errorf("Expected %v, got %v", want, got)
	}
	if in.Mode() != Synchronous {
		t.Errorf("Expected Synchronous after the run, got %s", in.Mode())
	}
}
