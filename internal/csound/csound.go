// Package csound describes the Csound engine as seen by the binding layer
// and provides a cgo implementation of it (build tag "csound").
package csound

import (
	"errors"
	"fmt"
)

// Status codes returned by Csound entry points.
const (
	StatusSuccess        = 0
	StatusError          = -1
	StatusInitialization = -2
	StatusPerformance    = -3
	StatusMemory         = -4
	StatusSignal         = -5
)

// Errors corresponding to Csound status codes.
var (
	ErrGeneric        = errors.New("csound: error")
	ErrInitialization = errors.New("csound: initialization error")
	ErrPerformance    = errors.New("csound: performance error")
	ErrMemory         = errors.New("csound: memory allocation failed")
	ErrSignal         = errors.New("csound: terminated by signal")

	// ErrUnavailable is returned by New when the binary was built without
	// the csound build tag.
	ErrUnavailable = errors.New("csound: built without libcsound support")
)

// CodeError converts a Csound status code to an error.
// Non-negative codes are not errors.
func CodeError(code int) error {
	switch {
	case code >= 0:
		return nil
	case code == StatusError:
		return ErrGeneric
	case code == StatusInitialization:
		return ErrInitialization
	case code == StatusPerformance:
		return ErrPerformance
	case code == StatusMemory:
		return ErrMemory
	case code == StatusSignal:
		return ErrSignal
	default:
		return fmt.Errorf("csound: unknown status %d", code)
	}
}

// Callback signatures accepted by an Engine. Every callback runs on
// whatever thread the engine fires it from, usually the performance
// thread. Pointer arguments are only valid for the duration of the call.
type (
	MessageFunc    func(attributes int, text string)
	FileOpenFunc   func(path string, fileType int, forWriting, temporary bool)
	MakeGraphFunc  func(window *WindowData, name string)
	GraphFunc      func(window *WindowData)
	BreakpointFunc func(info *BreakpointInfo)
)

// Performer covers compilation and performance control.
type Performer interface {
	// SetOption passes a single command-line style option.
	SetOption(option string) int
	// CompileOrc compiles an orchestra fragment.
	CompileOrc(orchestra string) int
	// EvalCode compiles and runs global code, returning its return value.
	EvalCode(code string) float64
	// CompileCsd compiles a .csd file.
	CompileCsd(path string) int
	// CompileArgs compiles from command-line style arguments.
	CompileArgs(args []string) int
	// Start prepares the engine for performance.
	Start() int
	// PerformKsmps renders one audio vector. It returns 0 while the
	// performance should continue and a non-zero value once the score has
	// ended or an error occurred.
	PerformKsmps() int
	// Perform renders the whole score.
	Perform() int
	// PerformBuffer renders one host buffer.
	PerformBuffer() int
	// Stop asks a running performance to end.
	Stop()
	// Cleanup closes output and prints statistics.
	Cleanup() int
	// Reset returns the engine to its freshly created state.
	Reset()
}

// Scorer covers score and real-time event input.
type Scorer interface {
	ReadScore(score string) int
	InputMessage(statement string)
	ScoreEvent(eventType byte, pfields []float64) int
	ScoreTime() float64
	RewindScore()
}

// Messenger covers the message system.
type Messenger interface {
	// Message prints text through the engine with the given attributes.
	Message(attributes int, text string)
	MessageLevel() int
	SetMessageLevel(level int)
}

// Inspector covers simple pass-through queries.
type Inspector interface {
	Sr() float64
	Kr() float64
	Ksmps() int
	Nchnls() int
	NchnlsInput() int
	ZeroDBFS() float64
	CurrentTimeSamples() int64
	// Spout copies the most recent output vector into dst and returns the
	// number of samples copied.
	Spout(dst []float64) int
	ControlChannel(name string) (float64, int)
	SetControlChannel(name string, value float64)
	TableLength(table int) int
	TableGet(table, index int) float64
	TableSet(table, index int, value float64)
	Opcodes() ([]OpcodeEntry, int)
	Channels() ([]ChannelInfo, int)
}

// Callbacks covers the registration points for engine callbacks.
// Passing nil unregisters.
type Callbacks interface {
	SetMessageCallback(fn MessageFunc)
	SetFileOpenCallback(fn FileOpenFunc)
	SetIsGraphable(graphable bool) bool
	SetMakeGraphCallback(fn MakeGraphFunc)
	SetDrawGraphCallback(fn GraphFunc)
	SetKillGraphCallback(fn GraphFunc)
	SetBreakpointCallback(fn BreakpointFunc)
}

// Debugger covers the instrument debugger.
type Debugger interface {
	DebuggerInit()
	DebuggerClean()
	SetInstrumentBreakpoint(instrument float64, skip int)
	RemoveInstrumentBreakpoint(instrument float64)
	ClearBreakpoints()
	DebugContinue()
	DebugStop()
}

// Engine is one Csound instance.
type Engine interface {
	Performer
	Scorer
	Messenger
	Inspector
	Callbacks
	Debugger

	// Destroy releases the instance. The engine must not be used after.
	Destroy()
}

// Factory creates engines.
type Factory func() (Engine, error)

// DefaultMessageInstaller registers the process-wide message callback used
// before an instance-specific one exists. Passing nil unregisters.
type DefaultMessageInstaller func(fn MessageFunc)
