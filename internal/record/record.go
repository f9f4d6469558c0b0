// Package record captures delivered engine callbacks as a CBOR sequence
// and reads them back.
package record

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/dewi-tim/csoundtui/internal/bridge"
	"github.com/dewi-tim/csoundtui/internal/csound"
	"github.com/fxamacker/cbor/v2"
)

// Version is the format version written in every header.
const Version = 1

var (
	ErrBadHeader  = errors.New("record: missing or unsupported header")
	ErrBadEvent   = errors.New("record: malformed event")
	ErrUnknownArg = errors.New("record: unexpected argument type")
)

var encMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("record: failed to create CBOR enc mode: %v", err))
	}
	encMode = em
}

// Header is the first item of a recording.
type Header struct {
	Version int    `cbor:"1,keyasint"`
	Piece   string `cbor:"2,keyasint,omitempty"`
	Started int64  `cbor:"3,keyasint"` // unix nanoseconds
}

// Event is one delivered callback. Exactly one payload field is set,
// matching Kind.
type Event struct {
	Seq     uint64      `cbor:"1,keyasint"`
	Offset  int64       `cbor:"2,keyasint"` // nanoseconds since Header.Started
	Kind    string      `cbor:"3,keyasint"`
	Message *Message    `cbor:"4,keyasint,omitempty"`
	File    *FileOpen   `cbor:"5,keyasint,omitempty"`
	Graph   *Graph      `cbor:"6,keyasint,omitempty"`
	Debug   *Breakpoint `cbor:"7,keyasint,omitempty"`
}

type Message struct {
	Attributes int    `cbor:"1,keyasint"`
	Text       string `cbor:"2,keyasint"`
}

type FileOpen struct {
	Path       string `cbor:"1,keyasint"`
	Type       int    `cbor:"2,keyasint"`
	ForWriting bool   `cbor:"3,keyasint"`
	Temporary  bool   `cbor:"4,keyasint"`
}

// Graph is a recorded graph window.
type Graph struct {
	Name     string    `cbor:"1,keyasint,omitempty"`
	ID       uint64    `cbor:"2,keyasint"`
	Caption  string    `cbor:"3,keyasint,omitempty"`
	Samples  []float64 `cbor:"4,keyasint,omitempty"`
	Polarity int       `cbor:"5,keyasint"`
	Max      float64   `cbor:"6,keyasint"`
	Min      float64   `cbor:"7,keyasint"`
	AbsMax   float64   `cbor:"8,keyasint"`
	OAbsMax  float64   `cbor:"9,keyasint"`
}

func newGraph(w *csound.WindowData, name string) *Graph {
	g := &Graph{Name: name}
	if w != nil {
		g.ID = uint64(w.ID)
		g.Caption = w.Caption
		g.Samples = append([]float64(nil), w.Samples...)
		g.Polarity = w.Polarity
		g.Max, g.Min = w.Max, w.Min
		g.AbsMax, g.OAbsMax = w.AbsMax, w.OAbsMax
	}
	return g
}

// Window converts g back to the form host callables receive.
func (g *Graph) Window() *csound.WindowData {
	return &csound.WindowData{
		ID:       uintptr(g.ID),
		Caption:  g.Caption,
		Samples:  g.Samples,
		Polarity: g.Polarity,
		Max:      g.Max,
		Min:      g.Min,
		AbsMax:   g.AbsMax,
		OAbsMax:  g.OAbsMax,
	}
}

type Breakpoint struct {
	Info *csound.BreakpointInfo `cbor:"1,keyasint"`
}

// Writer appends events to a recording. It implements bridge.Recorder.
type Writer struct {
	mu      sync.Mutex
	enc     *cbor.Encoder
	started time.Time
	seq     uint64
	now     func() time.Time
}

// NewWriter writes a header for piece to w and returns a Writer.
func NewWriter(w io.Writer, piece string) (*Writer, error) {
	rw := &Writer{
		enc: encMode.NewEncoder(w),
		now: time.Now,
	}
	rw.started = rw.now()
	if err := rw.enc.Encode(Header{Version: Version, Piece: piece, Started: rw.started.UnixNano()}); err != nil {
		return nil, fmt.Errorf("record: writing header: %w", err)
	}
	return rw, nil
}

// Record encodes one delivered callback.
func (w *Writer) Record(kind bridge.Kind, args []any) error {
	ev, err := eventFromArgs(kind, args)
	if err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	w.seq++
	ev.Seq = w.seq
	ev.Offset = w.now().Sub(w.started).Nanoseconds()
	return w.enc.Encode(ev)
}

// Count returns the number of events written.
func (w *Writer) Count() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.seq
}

func eventFromArgs(kind bridge.Kind, args []any) (Event, error) {
	if len(args) != kind.Arity() {
		return Event{}, fmt.Errorf("%w: %s with %d arguments", ErrBadEvent, kind, len(args))
	}
	ev := Event{Kind: kind.String()}

	ok := false
	switch kind {
	case bridge.KindMessage:
		attributes, ok1 := args[0].(int)
		text, ok2 := args[1].(string)
		ok = ok1 && ok2
		ev.Message = &Message{Attributes: attributes, Text: text}
	case bridge.KindFileOpen:
		path, ok1 := args[0].(string)
		fileType, ok2 := args[1].(int)
		forWriting, ok3 := args[2].(bool)
		temporary, ok4 := args[3].(bool)
		ok = ok1 && ok2 && ok3 && ok4
		ev.File = &FileOpen{Path: path, Type: fileType, ForWriting: forWriting, Temporary: temporary}
	case bridge.KindMakeGraph:
		w, ok1 := args[0].(*csound.WindowData)
		name, ok2 := args[1].(string)
		ok = ok1 && ok2
		ev.Graph = newGraph(w, name)
	case bridge.KindDrawGraph, bridge.KindKillGraph:
		var w *csound.WindowData
		w, ok = args[0].(*csound.WindowData)
		ev.Graph = newGraph(w, "")
	case bridge.KindBreakpoint:
		var info *csound.BreakpointInfo
		info, ok = args[0].(*csound.BreakpointInfo)
		ev.Debug = &Breakpoint{Info: info}
	}
	if !ok {
		return Event{}, fmt.Errorf("%w in %s event", ErrUnknownArg, kind)
	}
	return ev, nil
}

// Args rebuilds the host arguments the event was delivered with.
func (ev Event) Args() (bridge.Kind, []any, error) {
	kind, ok := bridge.ParseKind(ev.Kind)
	if !ok {
		return 0, nil, fmt.Errorf("%w: unknown kind %q", ErrBadEvent, ev.Kind)
	}

	switch {
	case kind == bridge.KindMessage && ev.Message != nil:
		return kind, []any{ev.Message.Attributes, ev.Message.Text}, nil
	case kind == bridge.KindFileOpen && ev.File != nil:
		return kind, []any{ev.File.Path, ev.File.Type, ev.File.ForWriting, ev.File.Temporary}, nil
	case kind == bridge.KindMakeGraph && ev.Graph != nil:
		return kind, []any{ev.Graph.Window(), ev.Graph.Name}, nil
	case (kind == bridge.KindDrawGraph || kind == bridge.KindKillGraph) && ev.Graph != nil:
		return kind, []any{ev.Graph.Window()}, nil
	case kind == bridge.KindBreakpoint && ev.Debug != nil:
		return kind, []any{ev.Debug.Info}, nil
	}
	return 0, nil, fmt.Errorf("%w: %s event without payload", ErrBadEvent, ev.Kind)
}

// Reader reads a recording.
type Reader struct {
	dec    *cbor.Decoder
	Header Header
}

// NewReader reads and checks the header.
func NewReader(r io.Reader) (*Reader, error) {
	rr := &Reader{dec: cbor.NewDecoder(r)}
	if err := rr.dec.Decode(&rr.Header); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadHeader, err)
	}
	if rr.Header.Version != Version {
		return nil, fmt.Errorf("%w: version %d", ErrBadHeader, rr.Header.Version)
	}
	return rr, nil
}

// Next returns the next event, or io.EOF at the end of the recording.
func (r *Reader) Next() (Event, error) {
	var ev Event
	if err := r.dec.Decode(&ev); err != nil {
		if errors.Is(err, io.EOF) {
			return Event{}, io.EOF
		}
		return Event{}, fmt.Errorf("%w: %v", ErrBadEvent, err)
	}
	return ev, nil
}

// Replay calls fn for every event in order. It stops at the first error
// from fn.
func (r *Reader) Replay(fn func(Event) error) error {
	for {
		ev, err := r.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if err := fn(ev); err != nil {
			return err
		}
	}
}
