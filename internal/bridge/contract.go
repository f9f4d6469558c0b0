package bridge

import (
	"sync"

	"github.com/dewi-tim/csoundtui/internal/csound"
	"github.com/dewi-tim/csoundtui/internal/host"
)

// Kind identifies an engine callback.
type Kind int

const (
	// KindMessage delivers (attributes int, text string).
	KindMessage Kind = iota
	// KindFileOpen delivers (path string, type int, forWriting bool, temporary bool).
	KindFileOpen
	// KindMakeGraph delivers (graph *csound.WindowData, name string).
	KindMakeGraph
	// KindDrawGraph delivers (graph *csound.WindowData).
	KindDrawGraph
	// KindKillGraph delivers (graph *csound.WindowData).
	KindKillGraph
	// KindBreakpoint delivers (info *csound.BreakpointInfo).
	KindBreakpoint

	numKinds
)

var kindNames = [numKinds]string{
	KindMessage:    "message",
	KindFileOpen:   "file-open",
	KindMakeGraph:  "make-graph",
	KindDrawGraph:  "draw-graph",
	KindKillGraph:  "kill-graph",
	KindBreakpoint: "breakpoint",
}

// kindArity is the only record of each callback's argument count.
var kindArity = [numKinds]int{
	KindMessage:    2,
	KindFileOpen:   4,
	KindMakeGraph:  2,
	KindDrawGraph:  1,
	KindKillGraph:  1,
	KindBreakpoint: 1,
}

// String returns the callback name.
func (k Kind) String() string {
	if k < 0 || k >= numKinds {
		return "unknown"
	}
	return kindNames[k]
}

// Arity returns the number of arguments the callback is invoked with.
func (k Kind) Arity() int {
	if k < 0 || k >= numKinds {
		return 0
	}
	return kindArity[k]
}

// ParseKind returns the Kind with the given name.
func ParseKind(name string) (Kind, bool) {
	for k, n := range kindNames {
		if n == name {
			return Kind(k), true
		}
	}
	return 0, false
}

// Kinds returns every callback kind.
func Kinds() []Kind {
	kinds := make([]Kind, numKinds)
	for i := range kinds {
		kinds[i] = Kind(i)
	}
	return kinds
}

// MessageEvent is a fully formatted engine message.
type MessageEvent struct {
	Attributes int
	Text       string
}

// FileOpenEvent reports a file opened by the engine.
type FileOpenEvent struct {
	Path       string
	Type       int
	ForWriting bool
	Temporary  bool
}

// GraphEvent carries a copy of a graph window. The sample buffer is pooled
// and goes back to the pool once the event has been delivered.
type GraphEvent struct {
	Window *csound.WindowData
	Name   string

	buf *[]float64
}

// BreakpointEvent carries the debugger state captured when the engine
// stopped at a breakpoint.
type BreakpointEvent struct {
	Info *csound.BreakpointInfo
}

// Contract describes how one callback kind moves from the engine thread to
// a host callable.
type Contract[T any] struct {
	// Kind fixes the callback name and the length of every tuple Args
	// returns (Kind.Arity).
	Kind Kind
	// Attach registers emit as the engine callback. A nil emit unregisters.
	// emit runs on the engine thread and must capture everything it needs
	// before returning.
	Attach func(e csound.Engine, emit func(T))
	// Args converts a payload into host arguments. It only runs on the
	// host context.
	Args func(T) []any
	// Release frees payload-owned memory after delivery. Optional.
	Release func(*T)
}

var messageContract = &Contract[MessageEvent]{
	Kind: KindMessage,
	Attach: func(e csound.Engine, emit func(MessageEvent)) {
		if emit == nil {
			e.SetMessageCallback(nil)
			return
		}
		e.SetMessageCallback(func(attributes int, text string) {
			emit(MessageEvent{Attributes: attributes, Text: text})
		})
	},
	Args: func(ev MessageEvent) []any {
		return []any{ev.Attributes, ev.Text}
	},
}

var fileOpenContract = &Contract[FileOpenEvent]{
	Kind: KindFileOpen,
	Attach: func(e csound.Engine, emit func(FileOpenEvent)) {
		if emit == nil {
			e.SetFileOpenCallback(nil)
			return
		}
		e.SetFileOpenCallback(func(path string, fileType int, forWriting, temporary bool) {
			emit(FileOpenEvent{Path: path, Type: fileType, ForWriting: forWriting, Temporary: temporary})
		})
	},
	Args: func(ev FileOpenEvent) []any {
		return []any{ev.Path, ev.Type, ev.ForWriting, ev.Temporary}
	},
}

var makeGraphContract = &Contract[GraphEvent]{
	Kind: KindMakeGraph,
	Attach: func(e csound.Engine, emit func(GraphEvent)) {
		if emit == nil {
			e.SetMakeGraphCallback(nil)
			return
		}
		e.SetMakeGraphCallback(func(w *csound.WindowData, name string) {
			emit(captureGraph(w, name))
		})
	},
	Args: func(ev GraphEvent) []any {
		return []any{ev.Window, ev.Name}
	},
	Release: releaseGraph,
}

var drawGraphContract = &Contract[GraphEvent]{
	Kind: KindDrawGraph,
	Attach: func(e csound.Engine, emit func(GraphEvent)) {
		if emit == nil {
			e.SetDrawGraphCallback(nil)
			return
		}
		e.SetDrawGraphCallback(func(w *csound.WindowData) {
			emit(captureGraph(w, ""))
		})
	},
	Args: func(ev GraphEvent) []any {
		return []any{ev.Window}
	},
	Release: releaseGraph,
}

var killGraphContract = &Contract[GraphEvent]{
	Kind: KindKillGraph,
	Attach: func(e csound.Engine, emit func(GraphEvent)) {
		if emit == nil {
			e.SetKillGraphCallback(nil)
			return
		}
		e.SetKillGraphCallback(func(w *csound.WindowData) {
			emit(captureGraph(w, ""))
		})
	},
	Args: func(ev GraphEvent) []any {
		return []any{ev.Window}
	},
	Release: releaseGraph,
}

var breakpointContract = &Contract[BreakpointEvent]{
	Kind: KindBreakpoint,
	Attach: func(e csound.Engine, emit func(BreakpointEvent)) {
		if emit == nil {
			e.SetBreakpointCallback(nil)
			return
		}
		e.SetBreakpointCallback(func(info *csound.BreakpointInfo) {
			emit(BreakpointEvent{Info: info})
		})
	},
	Args: func(ev BreakpointEvent) []any {
		return []any{ev.Info}
	},
}

var samplePool = sync.Pool{
	New: func() any {
		s := make([]float64, 0, 1024)
		return &s
	},
}

// captureGraph copies w, including its samples, into a pooled buffer.
func captureGraph(w *csound.WindowData, name string) GraphEvent {
	if w == nil {
		return GraphEvent{Name: name}
	}
	buf := samplePool.Get().(*[]float64)
	*buf = append((*buf)[:0], w.Samples...)

	c := *w
	c.Samples = *buf
	return GraphEvent{Window: &c, Name: name, buf: buf}
}

// releaseGraph returns the sample buffer to the pool. A host callable that
// kept the window sees empty samples afterwards rather than reused memory.
func releaseGraph(ev *GraphEvent) {
	if ev.buf == nil {
		return
	}
	if ev.Window != nil {
		ev.Window.Samples = nil
	}
	*ev.buf = (*ev.buf)[:0]
	samplePool.Put(ev.buf)
	ev.buf = nil
}

// Typed adapters for host callables.

// OnMessage adapts fn to the message contract.
func OnMessage(fn func(attributes int, text string)) host.Func {
	return func(args ...any) {
		fn(args[0].(int), args[1].(string))
	}
}

// OnFileOpen adapts fn to the file-open contract.
func OnFileOpen(fn func(path string, fileType int, forWriting, temporary bool)) host.Func {
	return func(args ...any) {
		fn(args[0].(string), args[1].(int), args[2].(bool), args[3].(bool))
	}
}

// OnMakeGraph adapts fn to the make-graph contract. The window is only
// valid during the call; use Snapshot to keep it.
func OnMakeGraph(fn func(w *csound.WindowData, name string)) host.Func {
	return func(args ...any) {
		fn(args[0].(*csound.WindowData), args[1].(string))
	}
}

// OnGraph adapts fn to the draw-graph and kill-graph contracts.
func OnGraph(fn func(w *csound.WindowData)) host.Func {
	return func(args ...any) {
		fn(args[0].(*csound.WindowData))
	}
}

// OnBreakpoint adapts fn to the breakpoint contract.
func OnBreakpoint(fn func(info *csound.BreakpointInfo)) host.Func {
	return func(args ...any) {
		fn(args[0].(*csound.BreakpointInfo))
	}
}

// OnStatus adapts fn to the completion callback of a background run.
func OnStatus(fn func(status int)) host.Func {
	return func(args ...any) {
		fn(args[0].(int))
	}
}
