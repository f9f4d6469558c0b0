// Package bridge connects Csound engines to a single-threaded host.
//
// Engine callbacks fire on the engine thread. The bridge captures their
// arguments, queues them on a lock-free channel and posts a drain to the
// host loop, which invokes the bound host callable once per event, in
// order. Background performances run on their own goroutine; requests that
// are unsafe to make while the engine is stepping are queued and executed
// between audio vectors.
package bridge

import (
	"errors"
	"sync"
	"sync/atomic"

	"github.com/dewi-tim/csoundtui/internal/csound"
	"github.com/dewi-tim/csoundtui/internal/host"
	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("cstui.bridge")

var (
	ErrDestroyed         = errors.New("bridge: instance destroyed")
	ErrAlreadyPerforming = errors.New("bridge: performance already running")
	ErrNoCallback        = errors.New("bridge: callback required")
	ErrUnknownKind       = errors.New("bridge: unknown callback kind")
	ErrClosed            = errors.New("bridge: process closed")
)

// OutputSink receives every audio vector of a background performance on
// the performance thread. It must not block.
type OutputSink interface {
	WriteVector(samples []float64, channels int)
}

// Recorder observes every callback event as it is delivered.
type Recorder interface {
	Record(kind Kind, args []any) error
}

// Instance is one engine plus its binding-side state.
type Instance struct {
	id      uint64
	engine  csound.Engine
	process *Process
	loop    host.Loop

	mu        sync.Mutex
	hostData  any
	destroyed bool
	running   bool
	runDone   chan struct{}
	sink      OutputSink
	recorder  Recorder

	handlerMu sync.RWMutex
	handler   eventHandler

	interrupted atomic.Bool

	message    *slot[MessageEvent]
	fileOpen   *slot[FileOpenEvent]
	makeGraph  *slot[GraphEvent]
	drawGraph  *slot[GraphEvent]
	killGraph  *slot[GraphEvent]
	breakpoint *slot[BreakpointEvent]
	slots      [numKinds]binding
}

func newInstance(id uint64, e csound.Engine, p *Process, hostData any) *Instance {
	in := &Instance{
		id:       id,
		engine:   e,
		process:  p,
		loop:     p.loop,
		hostData: hostData,
		handler:  synchronousHandler{engine: e},
	}

	in.message = engineSlot(messageContract, e)
	in.fileOpen = engineSlot(fileOpenContract, e)
	in.makeGraph = engineSlot(makeGraphContract, e)
	in.drawGraph = engineSlot(drawGraphContract, e)
	in.killGraph = engineSlot(killGraphContract, e)
	in.breakpoint = engineSlot(breakpointContract, e)

	in.slots = [numKinds]binding{
		KindMessage:    in.message,
		KindFileOpen:   in.fileOpen,
		KindMakeGraph:  in.makeGraph,
		KindDrawGraph:  in.drawGraph,
		KindKillGraph:  in.killGraph,
		KindBreakpoint: in.breakpoint,
	}
	return in
}

func engineSlot[T any](c *Contract[T], e csound.Engine) *slot[T] {
	return newSlot(c, func(emit func(T)) { c.Attach(e, emit) })
}

// ID returns the instance's process-unique id.
func (in *Instance) ID() uint64 { return in.id }

// Engine returns the underlying engine for pass-through queries such as
// sample rate, channels and tables. It must not be used for score or
// performance requests while a background run is active.
func (in *Instance) Engine() csound.Engine { return in.engine }

// HostData returns the value supplied at creation or by SetHostData.
func (in *Instance) HostData() any {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.hostData
}

// SetHostData replaces the host data.
func (in *Instance) SetHostData(v any) {
	in.mu.Lock()
	in.hostData = v
	in.mu.Unlock()
}

// Mode returns the current dispatch mode.
func (in *Instance) Mode() Mode {
	in.handlerMu.RLock()
	defer in.handlerMu.RUnlock()
	return in.handler.mode()
}

// Performing reports whether a background run is active.
func (in *Instance) Performing() bool {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.running
}

// Destroy releases every callback registration and then the engine. It
// fails while a background run is active.
func (in *Instance) Destroy() error {
	in.mu.Lock()
	if in.destroyed {
		in.mu.Unlock()
		return nil
	}
	if in.running {
		in.mu.Unlock()
		return ErrAlreadyPerforming
	}
	in.destroyed = true
	in.mu.Unlock()

	for _, b := range in.slots {
		b.unbind()
	}
	in.engine.Destroy()
	in.process.remove(in.id)
	log.Infof("destroyed instance %d", in.id)
	return nil
}

// Callback registration

// SetCallback binds fn to a callback kind, replacing any previous binding.
// A nil fn unbinds.
func (in *Instance) SetCallback(kind Kind, fn host.Func) error {
	if kind < 0 || kind >= numKinds {
		return ErrUnknownKind
	}
	in.mu.Lock()
	destroyed := in.destroyed
	in.mu.Unlock()
	if destroyed {
		return ErrDestroyed
	}
	in.slots[kind].bind(in.loop, fn, in.observe)
	return nil
}

// Bound reports whether a callable is bound to kind.
func (in *Instance) Bound(kind Kind) bool {
	if kind < 0 || kind >= numKinds {
		return false
	}
	return in.slots[kind].bound()
}

// SetMessageCallback binds fn(attributes int, text string).
func (in *Instance) SetMessageCallback(fn host.Func) error {
	return in.SetCallback(KindMessage, fn)
}

// SetFileOpenCallback binds fn(path string, type int, forWriting, temporary bool).
func (in *Instance) SetFileOpenCallback(fn host.Func) error {
	return in.SetCallback(KindFileOpen, fn)
}

// SetMakeGraphCallback binds fn(graph *csound.WindowData, name string).
func (in *Instance) SetMakeGraphCallback(fn host.Func) error {
	return in.SetCallback(KindMakeGraph, fn)
}

// SetDrawGraphCallback binds fn(graph *csound.WindowData).
func (in *Instance) SetDrawGraphCallback(fn host.Func) error {
	return in.SetCallback(KindDrawGraph, fn)
}

// SetKillGraphCallback binds fn(graph *csound.WindowData).
func (in *Instance) SetKillGraphCallback(fn host.Func) error {
	return in.SetCallback(KindKillGraph, fn)
}

// SetBreakpointCallback binds fn(info *csound.BreakpointInfo).
func (in *Instance) SetBreakpointCallback(fn host.Func) error {
	return in.SetCallback(KindBreakpoint, fn)
}

// SetIsGraphable tells the engine whether graph callbacks are wanted and
// returns the previous setting.
func (in *Instance) SetIsGraphable(graphable bool) bool {
	return in.engine.SetIsGraphable(graphable)
}

// SetOutputSink sets the sink fed by background runs started afterwards.
func (in *Instance) SetOutputSink(s OutputSink) {
	in.mu.Lock()
	in.sink = s
	in.mu.Unlock()
}

// SetRecorder sets the recorder that observes delivered events.
func (in *Instance) SetRecorder(r Recorder) {
	in.mu.Lock()
	in.recorder = r
	in.mu.Unlock()
}

func (in *Instance) observe(kind Kind, args []any) {
	in.mu.Lock()
	r := in.recorder
	in.mu.Unlock()
	if r == nil {
		return
	}
	if err := r.Record(kind, args); err != nil {
		log.Warningf("recording %s event: %s", kind, err)
	}
}

// Destroyed reports whether Destroy has run. Every engine request on a
// destroyed instance is refused with csound.StatusError or ignored.
func (in *Instance) Destroyed() bool {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.destroyed
}

// idle reports whether synchronous performance calls may reach the engine.
func (in *Instance) idle() bool {
	in.mu.Lock()
	defer in.mu.Unlock()
	return !in.destroyed && !in.running
}

// Compilation and synchronous performance

// SetOption passes one command-line option to the engine before Start.
func (in *Instance) SetOption(option string) int {
	if in.Destroyed() {
		return csound.StatusError
	}
	return in.engine.SetOption(option)
}

// EvalCode compiles and runs orchestra code and returns the value it
// passes to the return opcode.
func (in *Instance) EvalCode(code string) float64 {
	if in.Destroyed() {
		return 0
	}
	return in.engine.EvalCode(code)
}

// CompileCsd compiles the CSD file at path.
func (in *Instance) CompileCsd(path string) int {
	if in.Destroyed() {
		return csound.StatusError
	}
	return in.engine.CompileCsd(path)
}

// CompileArgs compiles from command-line arguments, args[0] being the
// program name.
func (in *Instance) CompileArgs(args []string) int {
	if in.Destroyed() {
		return csound.StatusError
	}
	return in.engine.CompileArgs(args)
}

// Start prepares the engine for performance.
func (in *Instance) Start() int {
	if !in.idle() {
		return csound.StatusError
	}
	return in.engine.Start()
}

// Perform renders the whole score on the calling goroutine.
func (in *Instance) Perform() int {
	if !in.idle() {
		return csound.StatusError
	}
	return in.engine.Perform()
}

// PerformKsmps renders one audio vector on the calling goroutine.
func (in *Instance) PerformKsmps() int {
	if !in.idle() {
		return csound.StatusError
	}
	return in.engine.PerformKsmps()
}

// PerformBuffer renders one host buffer on the calling goroutine.
func (in *Instance) PerformBuffer() int {
	if !in.idle() {
		return csound.StatusError
	}
	return in.engine.PerformBuffer()
}

// Cleanup closes engine output after a performance.
func (in *Instance) Cleanup() int {
	if !in.idle() {
		return csound.StatusError
	}
	return in.engine.Cleanup()
}

// Reset returns the engine to its freshly created state.
func (in *Instance) Reset() {
	if !in.idle() {
		log.Warningf("instance %d: Reset ignored during performance or after destroy", in.id)
		return
	}
	in.engine.Reset()
}

// Requests that depend on the dispatch mode

// Stop ends the performance. During a background run it is queued and
// takes effect after the current audio vector.
func (in *Instance) Stop() {
	if in.Destroyed() {
		return
	}
	in.handlerMu.RLock()
	defer in.handlerMu.RUnlock()
	in.handler.stop()
}

// InputMessage sends a line-event score statement.
func (in *Instance) InputMessage(statement string) {
	if in.Destroyed() {
		return
	}
	in.handlerMu.RLock()
	defer in.handlerMu.RUnlock()
	in.handler.inputMessage(statement)
}

// CompileOrc compiles an orchestra fragment.
func (in *Instance) CompileOrc(orchestra string) int {
	if in.Destroyed() {
		return csound.StatusError
	}
	in.handlerMu.RLock()
	defer in.handlerMu.RUnlock()
	return in.handler.compileOrc(orchestra)
}

// ReadScore reads score text.
func (in *Instance) ReadScore(score string) int {
	if in.Destroyed() {
		return csound.StatusError
	}
	in.handlerMu.RLock()
	defer in.handlerMu.RUnlock()
	return in.handler.readScore(score)
}

// ScoreEvent sends a score event. eventType must be exactly one character
// ("i", "f", "e", ...); anything else returns csound.StatusError without
// touching the engine. pfields is copied if the event is queued.
func (in *Instance) ScoreEvent(eventType string, pfields []float64) int {
	if len(eventType) != 1 || in.Destroyed() {
		return csound.StatusError
	}
	in.handlerMu.RLock()
	defer in.handlerMu.RUnlock()
	return in.handler.scoreEvent(eventType[0], pfields)
}

// Messages

// Message prints text through the engine's message system.
func (in *Instance) Message(text string) {
	in.MessageS(csound.MsgDefault, text)
}

// MessageS prints text with message attributes.
func (in *Instance) MessageS(attributes int, text string) {
	if in.Destroyed() {
		return
	}
	in.engine.Message(attributes, text)
}

// MessageLevel returns the engine's message level bit mask.
func (in *Instance) MessageLevel() int {
	if in.Destroyed() {
		return 0
	}
	return in.engine.MessageLevel()
}

// SetMessageLevel sets the engine's message level bit mask.
func (in *Instance) SetMessageLevel(level int) {
	if in.Destroyed() {
		return
	}
	in.engine.SetMessageLevel(level)
}

// Debugger

// debug runs a debugger request unless the instance is destroyed.
func (in *Instance) debug(request func(e csound.Engine)) {
	if in.Destroyed() {
		return
	}
	request(in.engine)
}

// DebuggerInit enables the engine's debugger. It must precede the
// breakpoint calls.
func (in *Instance) DebuggerInit() { in.debug(csound.Engine.DebuggerInit) }

// DebuggerClean disables the debugger and drops every breakpoint.
func (in *Instance) DebuggerClean() { in.debug(csound.Engine.DebuggerClean) }

// SetInstrumentBreakpoint pauses the performance when instrument is
// active, skipping the first skip control cycles.
func (in *Instance) SetInstrumentBreakpoint(instrument float64, skip int) {
	in.debug(func(e csound.Engine) { e.SetInstrumentBreakpoint(instrument, skip) })
}

// RemoveInstrumentBreakpoint removes the breakpoint on instrument.
func (in *Instance) RemoveInstrumentBreakpoint(instrument float64) {
	in.debug(func(e csound.Engine) { e.RemoveInstrumentBreakpoint(instrument) })
}

// ClearBreakpoints removes every breakpoint.
func (in *Instance) ClearBreakpoints() { in.debug(csound.Engine.ClearBreakpoints) }

// DebugContinue resumes a performance paused at a breakpoint.
func (in *Instance) DebugContinue() { in.debug(csound.Engine.DebugContinue) }

// DebugStop pauses the performance at the next control cycle.
func (in *Instance) DebugStop() { in.debug(csound.Engine.DebugStop) }
