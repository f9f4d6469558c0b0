package player

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/dewi-tim/csoundtui/internal/bridge"
	"github.com/dewi-tim/csoundtui/internal/config"
	"github.com/dewi-tim/csoundtui/internal/csound"
	"github.com/dewi-tim/csoundtui/internal/csound/csoundtest"
	"github.com/dewi-tim/csoundtui/internal/host"
	"github.com/dewi-tim/csoundtui/internal/library"
	"github.com/dewi-tim/csoundtui/internal/record"
)

var drone = library.Piece{
	Name:   "drone",
	Kind:   library.KindSplit,
	Orc:    "drone.orc",
	Sco:    "drone.sco",
	Length: 4,
}

type harness struct {
	pump     *host.Pump
	player   *Player
	messages []string
	finished []PlaybackInfo
}

func newHarness(t *testing.T, opts Options, fakes ...*csoundtest.Fake) *harness {
	t.Helper()
	h := &harness{pump: host.NewPump(nil)}
	proc := bridge.NewProcess(h.pump, csoundtest.Factory(fakes...), (&csoundtest.DefaultMessages{}).Install)
	h.player = New(proc, opts, Handlers{
		Message:  func(_ int, text string) { h.messages = append(h.messages, text) },
		Finished: func(info PlaybackInfo) { h.finished = append(h.finished, info) },
	})
	t.Cleanup(func() { h.player.Close() })
	return h
}

func TestPlayToEnd(t *testing.T) {
	f := csoundtest.New(5)
	h := newHarness(t, Options{Engine: config.Engine{Options: []string{"-d"}, MessageLevel: 7}}, f)

	if err := h.player.Play(drone); err != nil {
		t.Fatalf("Play: %v", err)
	}
	if h.player.Info().State != StatePlaying {
		t.Errorf("Expected Playing, got %s", h.player.Info().State)
	}
	h.player.Wait()
	h.pump.Flush()

	if len(h.finished) != 1 {
		t.Fatalf("Expected one Finished call, got %d", len(h.finished))
	}
	info := h.finished[0]
	if info.State != StateStopped || info.Status != 1 || info.Steps != 5 {
		t.Errorf("Unexpected final info %+v", info)
	}
	if info.Piece == nil || info.Piece.Name != "drone" || info.ScoreTime != 5 {
		t.Errorf("Unexpected piece info %+v", info)
	}

	var names []string
	for _, c := range f.Calls("SetOption", "CompileArgs", "Start", "Cleanup") {
		names = append(names, c.Name)
	}
	want := []string{"SetOption", "CompileArgs", "Start", "Cleanup"}
	if !reflect.DeepEqual(names, want) {
		t.Errorf("Expected calls %v, got %v", want, names)
	}
	if f.MessageLevel() != 7 {
		t.Errorf("Expected message level 7, got %d", f.MessageLevel())
	}
	args := f.Calls("CompileArgs")[0].Args[0]
	if !reflect.DeepEqual(args, []string{"csound", "drone.orc", "drone.sco"}) {
		t.Errorf("Unexpected compile args %v", args)
	}
}

func TestCompileFailureKeepsMessages(t *testing.T) {
	f := csoundtest.New(1)
	f.CompileStatus = csound.StatusError
	h := newHarness(t, Options{}, f)

	f.OnStep = func(int) { t.Error("Performance started after a failed compile") }
	err := h.player.Play(drone)
	if !errors.Is(err, ErrCompile) || !errors.Is(err, csound.ErrGeneric) {
		t.Fatalf("Expected compile error, got %v", err)
	}

	f.EmitMessage(csound.MsgError, "error: syntax error, unexpected T_IDENT\n")
	h.pump.Flush()
	if len(h.messages) != 1 {
		t.Errorf("Expected the compile error to be delivered, got %v", h.messages)
	}
	if h.player.Info().State != StateStopped || h.player.Instance() == nil {
		t.Errorf("Expected a stopped, loaded piece, got %+v", h.player.Info())
	}
}

func TestStopAfterQueuedEvent(t *testing.T) {
	f := csoundtest.New(0)
	h := newHarness(t, Options{}, f)

	if err := h.player.Play(drone); err != nil {
		t.Fatal(err)
	}
	if status := h.player.ScoreEvent("i", []float64{1, 0, 1}); status != csound.StatusSuccess {
		t.Errorf("ScoreEvent: %d", status)
	}
	if err := h.player.Play(drone); !errors.Is(err, bridge.ErrAlreadyPerforming) {
		t.Errorf("Expected ErrAlreadyPerforming, got %v", err)
	}
	h.player.Stop()
	if h.player.Info().State != StateStopping {
		t.Errorf("Expected Stopping, got %s", h.player.Info().State)
	}
	h.player.Wait()
	h.pump.Flush()

	if f.Count("ScoreEvent") != 1 {
		t.Errorf("Expected the queued event to run before stop, got %v", f.Calls("ScoreEvent"))
	}
	if len(h.finished) != 1 || h.finished[0].State != StateStopped {
		t.Errorf("Unexpected finish %+v", h.finished)
	}
}

func TestPlayReplacesFinishedPiece(t *testing.T) {
	first, second := csoundtest.New(1), csoundtest.New(1)
	h := newHarness(t, Options{}, first, second)

	for i := 0; i < 2; i++ {
		if err := h.player.Play(drone); err != nil {
			t.Fatalf("Play %d: %v", i, err)
		}
		h.player.Wait()
		h.pump.Flush()
	}

	if !first.Destroyed() || second.Destroyed() {
		t.Errorf("Expected only the first instance destroyed")
	}
	if len(h.finished) != 2 {
		t.Errorf("Expected two finished performances, got %d", len(h.finished))
	}
}

func TestNothingLoaded(t *testing.T) {
	h := newHarness(t, Options{})

	if status := h.player.ScoreEvent("i", []float64{1}); status != csound.StatusError {
		t.Errorf("Expected StatusError, got %d", status)
	}
	if err := h.player.InputMessage("i1 0 1"); !errors.Is(err, ErrNothingLoaded) {
		t.Errorf("Expected ErrNothingLoaded, got %v", err)
	}
	h.player.Stop()
	h.player.Continue()
}

func TestRecording(t *testing.T) {
	dir := t.TempDir()
	f := csoundtest.New(3)
	f.OnStep = func(step int) {
		if step == 1 {
			f.EmitMessage(0, "SECTION 1:\n")
		}
	}
	h := newHarness(t, Options{Record: config.Record{Dir: dir}}, f)

	if err := h.player.Play(drone); err != nil {
		t.Fatal(err)
	}
	h.player.Wait()
	h.pump.Flush()

	files, err := filepath.Glob(filepath.Join(dir, "drone-*.cbor"))
	if err != nil || len(files) != 1 {
		t.Fatalf("Expected one recording, got %v (%v)", files, err)
	}
	file, err := os.Open(files[0])
	if err != nil {
		t.Fatal(err)
	}
	defer file.Close()

	r, err := record.NewReader(file)
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	var texts []string
	err = r.Replay(func(ev record.Event) error {
		_, args, err := ev.Args()
		if err == nil {
			texts = append(texts, args[1].(string))
		}
		return err
	})
	if err != nil {
		t.Fatalf("Replay: %v", err)
	}
	if !reflect.DeepEqual(texts, []string{"SECTION 1:\n"}) {
		t.Errorf("Unexpected recorded messages %q", texts)
	}
}
