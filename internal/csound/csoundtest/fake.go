// Package csoundtest provides a scriptable in-memory csound.Engine.
package csoundtest

import (
	"fmt"
	"sync"

	"github.com/dewi-tim/csoundtui/internal/csound"
)

// Call is one recorded engine call.
type Call struct {
	Name string
	Args []any
}

func (c Call) String() string {
	return fmt.Sprintf("%s%v", c.Name, c.Args)
}

// Fake is a csound.Engine that records calls instead of making sound.
//
// PerformKsmps counts steps and returns EndStatus once Steps steps have run
// or Stop has been called. Steps <= 0 runs until Stop. All methods are safe
// for concurrent use.
type Fake struct {
	mu sync.Mutex

	// Steps is the number of PerformKsmps calls before the score ends.
	Steps int
	// EndStatus is returned by PerformKsmps once the performance is over.
	EndStatus int
	// OnStep, if set, runs on the calling goroutine inside every
	// PerformKsmps, before the step result is decided.
	OnStep func(step int)
	// OnScoreEvent, if set, runs on the calling goroutine inside every
	// ScoreEvent, before the call is recorded.
	OnScoreEvent func(eventType byte, pfields []float64)
	// Output is copied by Spout.
	Output []float64
	// CompileStatus is returned by the compile calls.
	CompileStatus int

	calls     []Call
	step      int
	stopped   bool
	destroyed bool
	level     int
	graphable bool
	scoreTime float64
	channels  map[string]float64
	tables    map[int][]float64

	message    csound.MessageFunc
	fileOpen   csound.FileOpenFunc
	makeGraph  csound.MakeGraphFunc
	drawGraph  csound.GraphFunc
	killGraph  csound.GraphFunc
	breakpoint csound.BreakpointFunc
}

// New returns a Fake that ends after steps steps with status 1.
func New(steps int) *Fake {
	return &Fake{Steps: steps, EndStatus: 1}
}

// Factory returns a csound.Factory producing the given fakes in order, and
// an error once they run out.
func Factory(fakes ...*Fake) csound.Factory {
	var mu sync.Mutex
	return func() (csound.Engine, error) {
		mu.Lock()
		defer mu.Unlock()
		if len(fakes) == 0 {
			return nil, csound.ErrMemory
		}
		f := fakes[0]
		fakes = fakes[1:]
		return f, nil
	}
}

func (f *Fake) record(name string, args ...any) {
	f.mu.Lock()
	f.calls = append(f.calls, Call{Name: name, Args: args})
	f.mu.Unlock()
}

// Calls returns the recorded calls, optionally filtered by name.
func (f *Fake) Calls(names ...string) []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(names) == 0 {
		return append([]Call(nil), f.calls...)
	}
	var out []Call
	for _, c := range f.calls {
		for _, n := range names {
			if c.Name == n {
				out = append(out, c)
				break
			}
		}
	}
	return out
}

// Count returns how many times name was called.
func (f *Fake) Count(name string) int {
	return len(f.Calls(name))
}

// StepCount returns the number of PerformKsmps calls so far.
func (f *Fake) StepCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.step
}

// Destroyed reports whether Destroy was called.
func (f *Fake) Destroyed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.destroyed
}

func (f *Fake) Destroy() {
	f.mu.Lock()
	f.destroyed = true
	f.message, f.fileOpen, f.breakpoint = nil, nil, nil
	f.makeGraph, f.drawGraph, f.killGraph = nil, nil, nil
	f.mu.Unlock()
	f.record("Destroy")
}

// Performer

func (f *Fake) SetOption(option string) int {
	f.record("SetOption", option)
	return csound.StatusSuccess
}

func (f *Fake) CompileOrc(orchestra string) int {
	f.record("CompileOrc", orchestra)
	return f.compileStatus()
}

func (f *Fake) EvalCode(code string) float64 {
	f.record("EvalCode", code)
	return 0
}

func (f *Fake) CompileCsd(path string) int {
	f.record("CompileCsd", path)
	return f.compileStatus()
}

func (f *Fake) CompileArgs(args []string) int {
	f.record("CompileArgs", append([]string(nil), args...))
	return f.compileStatus()
}

func (f *Fake) compileStatus() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.CompileStatus
}

func (f *Fake) Start() int {
	f.record("Start")
	return csound.StatusSuccess
}

func (f *Fake) PerformKsmps() int {
	f.mu.Lock()
	f.step++
	step := f.step
	hook := f.OnStep
	f.mu.Unlock()

	if hook != nil {
		hook(step)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.scoreTime = float64(step)
	if f.stopped || (f.Steps > 0 && step >= f.Steps) {
		return f.EndStatus
	}
	return 0
}

func (f *Fake) Perform() int {
	f.record("Perform")
	for {
		if status := f.PerformKsmps(); status != 0 {
			return status
		}
	}
}

func (f *Fake) PerformBuffer() int {
	f.record("PerformBuffer")
	return f.PerformKsmps()
}

func (f *Fake) Stop() {
	f.mu.Lock()
	f.stopped = true
	f.mu.Unlock()
	f.record("Stop")
}

func (f *Fake) Cleanup() int {
	f.record("Cleanup")
	return csound.StatusSuccess
}

func (f *Fake) Reset() {
	f.mu.Lock()
	f.step = 0
	f.stopped = false
	f.scoreTime = 0
	f.mu.Unlock()
	f.record("Reset")
}

// Scorer

func (f *Fake) ReadScore(score string) int {
	f.record("ReadScore", score)
	return csound.StatusSuccess
}

func (f *Fake) InputMessage(statement string) {
	f.record("InputMessage", statement)
}

func (f *Fake) ScoreEvent(eventType byte, pfields []float64) int {
	f.mu.Lock()
	hook := f.OnScoreEvent
	f.mu.Unlock()
	if hook != nil {
		hook(eventType, pfields)
	}
	f.record("ScoreEvent", eventType, append([]float64(nil), pfields...))
	return csound.StatusSuccess
}

func (f *Fake) ScoreTime() float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.scoreTime
}

func (f *Fake) RewindScore() {
	f.mu.Lock()
	f.scoreTime = 0
	f.mu.Unlock()
	f.record("RewindScore")
}

// Messenger

// Message delivers text to the registered message callback, as Csound does.
func (f *Fake) Message(attributes int, text string) {
	f.record("Message", attributes, text)
	f.EmitMessage(attributes, text)
}

func (f *Fake) MessageLevel() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.level
}

func (f *Fake) SetMessageLevel(level int) {
	f.mu.Lock()
	f.level = level
	f.mu.Unlock()
}

// Inspector

func (f *Fake) Sr() float64               { return 44100 }
func (f *Fake) Kr() float64               { return 4410 }
func (f *Fake) Ksmps() int                { return 10 }
func (f *Fake) Nchnls() int               { return 2 }
func (f *Fake) NchnlsInput() int          { return 1 }
func (f *Fake) ZeroDBFS() float64         { return 1 }
func (f *Fake) CurrentTimeSamples() int64 { return int64(f.StepCount() * 10) }

func (f *Fake) Spout(dst []float64) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return copy(dst, f.Output)
}

func (f *Fake) ControlChannel(name string) (float64, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.channels[name]
	if !ok {
		return 0, csound.StatusError
	}
	return v, csound.StatusSuccess
}

func (f *Fake) SetControlChannel(name string, value float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.channels == nil {
		f.channels = make(map[string]float64)
	}
	f.channels[name] = value
}

// SetTable installs function table n.
func (f *Fake) SetTable(n int, values []float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.tables == nil {
		f.tables = make(map[int][]float64)
	}
	f.tables[n] = append([]float64(nil), values...)
}

func (f *Fake) TableLength(table int) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tables[table]
	if !ok {
		return -1
	}
	return len(t)
}

func (f *Fake) TableGet(table, index int) float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	t := f.tables[table]
	if index < 0 || index >= len(t) {
		return 0
	}
	return t[index]
}

func (f *Fake) TableSet(table, index int, value float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t := f.tables[table]
	if index >= 0 && index < len(t) {
		t[index] = value
	}
}

func (f *Fake) Opcodes() ([]csound.OpcodeEntry, int) {
	entries := []csound.OpcodeEntry{
		{Name: "oscili", OutputTypes: "a", InputTypes: "kkjo"},
		{Name: "outs", InputTypes: "aa"},
	}
	return entries, len(entries)
}

func (f *Fake) Channels() ([]csound.ChannelInfo, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var infos []csound.ChannelInfo
	for name := range f.channels {
		infos = append(infos, csound.ChannelInfo{
			Name: name,
			Type: csound.ChannelControl | csound.ChannelInput | csound.ChannelOutput,
		})
	}
	return infos, len(infos)
}

// Callbacks

func (f *Fake) SetMessageCallback(fn csound.MessageFunc) {
	f.mu.Lock()
	f.message = fn
	f.mu.Unlock()
	f.record("SetMessageCallback", fn != nil)
}

func (f *Fake) SetFileOpenCallback(fn csound.FileOpenFunc) {
	f.mu.Lock()
	f.fileOpen = fn
	f.mu.Unlock()
	f.record("SetFileOpenCallback", fn != nil)
}

func (f *Fake) SetIsGraphable(graphable bool) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	prev := f.graphable
	f.graphable = graphable
	return prev
}

func (f *Fake) SetMakeGraphCallback(fn csound.MakeGraphFunc) {
	f.mu.Lock()
	f.makeGraph = fn
	f.mu.Unlock()
	f.record("SetMakeGraphCallback", fn != nil)
}

func (f *Fake) SetDrawGraphCallback(fn csound.GraphFunc) {
	f.mu.Lock()
	f.drawGraph = fn
	f.mu.Unlock()
	f.record("SetDrawGraphCallback", fn != nil)
}

func (f *Fake) SetKillGraphCallback(fn csound.GraphFunc) {
	f.mu.Lock()
	f.killGraph = fn
	f.mu.Unlock()
	f.record("SetKillGraphCallback", fn != nil)
}

func (f *Fake) SetBreakpointCallback(fn csound.BreakpointFunc) {
	f.mu.Lock()
	f.breakpoint = fn
	f.mu.Unlock()
	f.record("SetBreakpointCallback", fn != nil)
}

// Debugger

func (f *Fake) DebuggerInit()  { f.record("DebuggerInit") }
func (f *Fake) DebuggerClean() { f.record("DebuggerClean") }

func (f *Fake) SetInstrumentBreakpoint(instrument float64, skip int) {
	f.record("SetInstrumentBreakpoint", instrument, skip)
}

func (f *Fake) RemoveInstrumentBreakpoint(instrument float64) {
	f.record("RemoveInstrumentBreakpoint", instrument)
}

func (f *Fake) ClearBreakpoints() { f.record("ClearBreakpoints") }
func (f *Fake) DebugContinue()    { f.record("DebugContinue") }
func (f *Fake) DebugStop()        { f.record("DebugStop") }

// Emit helpers fire the registered callback, if any, on the calling
// goroutine. They report whether a callback was registered.

func (f *Fake) EmitMessage(attributes int, text string) bool {
	f.mu.Lock()
	fn := f.message
	f.mu.Unlock()
	if fn == nil {
		return false
	}
	fn(attributes, text)
	return true
}

func (f *Fake) EmitFileOpen(path string, fileType int, forWriting, temporary bool) bool {
	f.mu.Lock()
	fn := f.fileOpen
	f.mu.Unlock()
	if fn == nil {
		return false
	}
	fn(path, fileType, forWriting, temporary)
	return true
}

func (f *Fake) EmitMakeGraph(w *csound.WindowData, name string) bool {
	f.mu.Lock()
	fn := f.makeGraph
	f.mu.Unlock()
	if fn == nil {
		return false
	}
	fn(w, name)
	return true
}

func (f *Fake) EmitDrawGraph(w *csound.WindowData) bool {
	f.mu.Lock()
	fn := f.drawGraph
	f.mu.Unlock()
	if fn == nil {
		return false
	}
	fn(w)
	return true
}

func (f *Fake) EmitKillGraph(w *csound.WindowData) bool {
	f.mu.Lock()
	fn := f.killGraph
	f.mu.Unlock()
	if fn == nil {
		return false
	}
	fn(w)
	return true
}

func (f *Fake) EmitBreakpoint(info *csound.BreakpointInfo) bool {
	f.mu.Lock()
	fn := f.breakpoint
	f.mu.Unlock()
	if fn == nil {
		return false
	}
	fn(info)
	return true
}

var _ csound.Engine = (*Fake)(nil)

// DefaultMessages stands in for the process-wide default message callback.
type DefaultMessages struct {
	mu sync.Mutex
	fn csound.MessageFunc
}

// Install matches csound.DefaultMessageInstaller.
func (d *DefaultMessages) Install(fn csound.MessageFunc) {
	d.mu.Lock()
	d.fn = fn
	d.mu.Unlock()
}

// Installed reports whether a callback is registered.
func (d *DefaultMessages) Installed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.fn != nil
}

// Emit fires the registered callback, if any.
func (d *DefaultMessages) Emit(attributes int, text string) bool {
	d.mu.Lock()
	fn := d.fn
	d.mu.Unlock()
	if fn == nil {
		return false
	}
	fn(attributes, text)
	return true
}
