//go:build csound

package csound

/*
#cgo CFLAGS: -DUSE_DOUBLE
#cgo linux LDFLAGS: -lcsound64 -lm -lpthread
#cgo darwin LDFLAGS: -F/Library/Frameworks -framework CsoundLib64

#include <csound/csound.h>
#include <csound/cwindow.h>
#include <csound/csdebug.h>
#include <stdarg.h>
#include <stdint.h>
#include <stdio.h>
#include <stdlib.h>

// Go callbacks (native_export.go).
extern void goMessageCallback(uintptr_t id, int attributes, char *text);
extern void goDefaultMessageCallback(int attributes, char *text);
extern void goFileOpenCallback(uintptr_t id, char *path, int type, int forWriting, int temporary);
extern void goMakeGraphCallback(uintptr_t id, WINDAT *window, char *name);
extern void goDrawGraphCallback(uintptr_t id, WINDAT *window);
extern void goKillGraphCallback(uintptr_t id, WINDAT *window);
extern void goBreakpointCallback(uintptr_t id, debug_bkpt_info_t *info);

static uintptr_t cs_id(CSOUND *csound) {
	return (uintptr_t)csoundGetHostData(csound);
}

static CSOUND *cs_create(uintptr_t id) {
	return csoundCreate((void *)id);
}

// cs_vformat resolves a printf-style message into a heap string so that no
// va_list ever leaves the engine thread. The caller frees the result.
static char *cs_vformat(const char *format, va_list args) {
	va_list copy;
	va_copy(copy, args);
	int length = vsnprintf(NULL, 0, format, copy) + 1;
	va_end(copy);
	if (length <= 0)
		return NULL;
	char *text = (char *)malloc(length);
	if (text)
		vsnprintf(text, length, format, args);
	return text;
}

static void cs_message(CSOUND *csound, int attributes, const char *format, va_list args) {
	char *text = cs_vformat(format, args);
	if (!text)
		return;
	goMessageCallback(cs_id(csound), attributes, text);
	free(text);
}

static void cs_default_message(CSOUND *csound, int attributes, const char *format, va_list args) {
	char *text = cs_vformat(format, args);
	if (!text)
		return;
	goDefaultMessageCallback(attributes, text);
	free(text);
}

static void cs_file_open(CSOUND *csound, const char *path, int type, int forWriting, int temporary) {
	goFileOpenCallback(cs_id(csound), (char *)path, type, forWriting, temporary);
}

static void cs_make_graph(CSOUND *csound, WINDAT *window, const char *name) {
	goMakeGraphCallback(cs_id(csound), window, (char *)name);
}

static void cs_draw_graph(CSOUND *csound, WINDAT *window) {
	goDrawGraphCallback(cs_id(csound), window);
}

static void cs_kill_graph(CSOUND *csound, WINDAT *window) {
	goKillGraphCallback(cs_id(csound), window);
}

static void cs_breakpoint(CSOUND *csound, debug_bkpt_info_t *info, void *userdata) {
	goBreakpointCallback(cs_id(csound), info);
}

static void cs_set_message_callback(CSOUND *csound, int on) {
	csoundSetMessageCallback(csound, on ? cs_message : NULL);
}

static void cs_set_default_message_callback(int on) {
	csoundSetDefaultMessageCallback(on ? cs_default_message : NULL);
}

static void cs_set_file_open_callback(CSOUND *csound, int on) {
	csoundSetFileOpenCallback(csound, on ? cs_file_open : NULL);
}

static void cs_set_make_graph_callback(CSOUND *csound, int on) {
	csoundSetMakeGraphCallback(csound, on ? cs_make_graph : NULL);
}

static void cs_set_draw_graph_callback(CSOUND *csound, int on) {
	csoundSetDrawGraphCallback(csound, on ? cs_draw_graph : NULL);
}

static void cs_set_kill_graph_callback(CSOUND *csound, int on) {
	csoundSetKillGraphCallback(csound, on ? cs_kill_graph : NULL);
}

static void cs_set_breakpoint_callback(CSOUND *csound, int on) {
	csoundSetBreakpointCallback(csound, on ? cs_breakpoint : NULL, NULL);
}

static void cs_message_s(CSOUND *csound, int attributes, const char *text) {
	csoundMessageS(csound, attributes, "%s", text);
}

static int cs_compile_args(CSOUND *csound, int argc, char **argv) {
	return csoundCompileArgs(csound, argc, (const char **)argv);
}
*/
import "C"
import (
	"sync"
	"sync/atomic"
	"unsafe"
)

// Live engines keyed by the id stored as Csound host data. Trampolines use
// it to get from a CSOUND pointer back to the Go engine.
var (
	engineRegistry   = make(map[uintptr]*nativeEngine)
	engineRegistryMu sync.RWMutex
	nextEngineID     uintptr = 1

	initOnce sync.Once

	defaultMessage atomic.Pointer[MessageFunc]
)

func lookupEngine(id uintptr) *nativeEngine {
	engineRegistryMu.RLock()
	defer engineRegistryMu.RUnlock()
	return engineRegistry[id]
}

// nativeEngine wraps a CSOUND instance.
type nativeEngine struct {
	// mu is held for reading around every call into libcsound and for
	// writing by Destroy, which sets cs to nil.
	mu sync.RWMutex
	cs *C.CSOUND
	id uintptr

	message    atomic.Pointer[MessageFunc]
	fileOpen   atomic.Pointer[FileOpenFunc]
	makeGraph  atomic.Pointer[MakeGraphFunc]
	drawGraph  atomic.Pointer[GraphFunc]
	killGraph  atomic.Pointer[GraphFunc]
	breakpoint atomic.Pointer[BreakpointFunc]
}

// New creates a Csound instance. Csound's own signal handlers are disabled;
// the process registry handles SIGINT and SIGTERM instead.
func New() (Engine, error) {
	initOnce.Do(func() {
		C.csoundInitialize(C.CSOUNDINIT_NO_SIGNAL_HANDLER)
	})

	engineRegistryMu.Lock()
	id := nextEngineID
	nextEngineID++
	engineRegistryMu.Unlock()

	cs := C.cs_create(C.uintptr_t(id))
	if cs == nil {
		return nil, ErrMemory
	}

	e := &nativeEngine{cs: cs, id: id}
	engineRegistryMu.Lock()
	engineRegistry[id] = e
	engineRegistryMu.Unlock()
	return e, nil
}

// SetDefaultMessageCallback installs the process-wide message callback.
func SetDefaultMessageCallback(fn MessageFunc) {
	if fn == nil {
		C.cs_set_default_message_callback(0)
		defaultMessage.Store(nil)
		return
	}
	defaultMessage.Store(&fn)
	C.cs_set_default_message_callback(1)
}

// Version returns the Csound version number (e.g. 6180 for 6.18.0).
func Version() int {
	return int(C.csoundGetVersion())
}

// APIVersion returns the Csound API version number.
func APIVersion() int {
	return int(C.csoundGetAPIVersion())
}

// SetGlobalEnv sets a global environment variable read by Csound.
func SetGlobalEnv(name, value string) int {
	cname := C.CString(name)
	defer C.free(unsafe.Pointer(cname))
	cvalue := C.CString(value)
	defer C.free(unsafe.Pointer(cvalue))
	return int(C.csoundSetGlobalEnv(cname, cvalue))
}

// acquire read-locks the engine and returns the CSOUND pointer, which is
// nil once Destroy has run. Callers must release.
func (e *nativeEngine) acquire() *C.CSOUND {
	e.mu.RLock()
	return e.cs
}

func (e *nativeEngine) release() { e.mu.RUnlock() }

func (e *nativeEngine) Destroy() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.cs == nil {
		return
	}
	C.csoundDestroy(e.cs)
	e.cs = nil

	engineRegistryMu.Lock()
	delete(engineRegistry, e.id)
	engineRegistryMu.Unlock()
}

func (e *nativeEngine) SetOption(option string) int {
	cs := e.acquire()
	defer e.release()
	if cs == nil {
		return StatusError
	}
	coption := C.CString(option)
	defer C.free(unsafe.Pointer(coption))
	return int(C.csoundSetOption(cs, coption))
}

func (e *nativeEngine) CompileOrc(orchestra string) int {
	cs := e.acquire()
	defer e.release()
	if cs == nil {
		return StatusError
	}
	corc := C.CString(orchestra)
	defer C.free(unsafe.Pointer(corc))
	return int(C.csoundCompileOrc(cs, corc))
}

func (e *nativeEngine) EvalCode(code string) float64 {
	cs := e.acquire()
	defer e.release()
	if cs == nil {
		return 0
	}
	ccode := C.CString(code)
	defer C.free(unsafe.Pointer(ccode))
	return float64(C.csoundEvalCode(cs, ccode))
}

func (e *nativeEngine) CompileCsd(path string) int {
	cs := e.acquire()
	defer e.release()
	if cs == nil {
		return StatusError
	}
	cpath := C.CString(path)
	defer C.free(unsafe.Pointer(cpath))
	return int(C.csoundCompileCsd(cs, cpath))
}

func (e *nativeEngine) CompileArgs(args []string) int {
	cs := e.acquire()
	defer e.release()
	if cs == nil || len(args) == 0 {
		return StatusError
	}
	argv := (**C.char)(C.malloc(C.size_t(len(args)) * C.size_t(unsafe.Sizeof((*C.char)(nil)))))
	defer C.free(unsafe.Pointer(argv))
	items := unsafe.Slice(argv, len(args))
	for i, arg := range args {
		items[i] = C.CString(arg)
	}
	defer func() {
		for _, item := range items {
			C.free(unsafe.Pointer(item))
		}
	}()
	return int(C.cs_compile_args(cs, C.int(len(args)), argv))
}

// status runs a status-returning call, or reports StatusError once the
// engine is destroyed.
func (e *nativeEngine) status(call func(cs *C.CSOUND) C.int) int {
	cs := e.acquire()
	defer e.release()
	if cs == nil {
		return StatusError
	}
	return int(call(cs))
}

// do runs call unless the engine is destroyed.
func (e *nativeEngine) do(call func(cs *C.CSOUND)) {
	cs := e.acquire()
	defer e.release()
	if cs != nil {
		call(cs)
	}
}

func (e *nativeEngine) Start() int {
	return e.status(func(cs *C.CSOUND) C.int { return C.csoundStart(cs) })
}

func (e *nativeEngine) PerformKsmps() int {
	return e.status(func(cs *C.CSOUND) C.int { return C.csoundPerformKsmps(cs) })
}

func (e *nativeEngine) Perform() int {
	return e.status(func(cs *C.CSOUND) C.int { return C.csoundPerform(cs) })
}

func (e *nativeEngine) PerformBuffer() int {
	return e.status(func(cs *C.CSOUND) C.int { return C.csoundPerformBuffer(cs) })
}

func (e *nativeEngine) Cleanup() int {
	return e.status(func(cs *C.CSOUND) C.int { return C.csoundCleanup(cs) })
}

func (e *nativeEngine) Stop()  { e.do(func(cs *C.CSOUND) { C.csoundStop(cs) }) }
func (e *nativeEngine) Reset() { e.do(func(cs *C.CSOUND) { C.csoundReset(cs) }) }

func (e *nativeEngine) ReadScore(score string) int {
	cscore := C.CString(score)
	defer C.free(unsafe.Pointer(cscore))
	return e.status(func(cs *C.CSOUND) C.int { return C.csoundReadScore(cs, cscore) })
}

func (e *nativeEngine) InputMessage(statement string) {
	cstatement := C.CString(statement)
	defer C.free(unsafe.Pointer(cstatement))
	e.do(func(cs *C.CSOUND) { C.csoundInputMessage(cs, cstatement) })
}

func (e *nativeEngine) ScoreEvent(eventType byte, pfields []float64) int {
	var p *C.MYFLT
	if len(pfields) > 0 {
		p = (*C.MYFLT)(unsafe.Pointer(&pfields[0]))
	}
	return e.status(func(cs *C.CSOUND) C.int {
		return C.csoundScoreEvent(cs, C.char(eventType), p, C.long(len(pfields)))
	})
}

func (e *nativeEngine) ScoreTime() float64 {
	cs := e.acquire()
	defer e.release()
	if cs == nil {
		return 0
	}
	return float64(C.csoundGetScoreTime(cs))
}

func (e *nativeEngine) RewindScore() { e.do(func(cs *C.CSOUND) { C.csoundRewindScore(cs) }) }

func (e *nativeEngine) Message(attributes int, text string) {
	ctext := C.CString(text)
	defer C.free(unsafe.Pointer(ctext))
	e.do(func(cs *C.CSOUND) { C.cs_message_s(cs, C.int(attributes), ctext) })
}

func (e *nativeEngine) MessageLevel() int {
	return e.status(func(cs *C.CSOUND) C.int { return C.csoundGetMessageLevel(cs) })
}

func (e *nativeEngine) SetMessageLevel(level int) {
	e.do(func(cs *C.CSOUND) { C.csoundSetMessageLevel(cs, C.int(level)) })
}

// number reads a numeric property, or zero once the engine is destroyed.
func (e *nativeEngine) number(get func(cs *C.CSOUND) float64) float64 {
	cs := e.acquire()
	defer e.release()
	if cs == nil {
		return 0
	}
	return get(cs)
}

func (e *nativeEngine) Sr() float64 {
	return e.number(func(cs *C.CSOUND) float64 { return float64(C.csoundGetSr(cs)) })
}

func (e *nativeEngine) Kr() float64 {
	return e.number(func(cs *C.CSOUND) float64 { return float64(C.csoundGetKr(cs)) })
}

func (e *nativeEngine) Ksmps() int {
	return int(e.number(func(cs *C.CSOUND) float64 { return float64(C.csoundGetKsmps(cs)) }))
}

func (e *nativeEngine) Nchnls() int {
	return int(e.number(func(cs *C.CSOUND) float64 { return float64(C.csoundGetNchnls(cs)) }))
}

func (e *nativeEngine) NchnlsInput() int {
	return int(e.number(func(cs *C.CSOUND) float64 { return float64(C.csoundGetNchnlsInput(cs)) }))
}

func (e *nativeEngine) ZeroDBFS() float64 {
	return e.number(func(cs *C.CSOUND) float64 { return float64(C.csoundGet0dBFS(cs)) })
}

func (e *nativeEngine) CurrentTimeSamples() int64 {
	cs := e.acquire()
	defer e.release()
	if cs == nil {
		return 0
	}
	return int64(C.csoundGetCurrentTimeSamples(cs))
}

func (e *nativeEngine) Spout(dst []float64) int {
	cs := e.acquire()
	defer e.release()
	if cs == nil {
		return 0
	}
	spout := C.csoundGetSpout(cs)
	if spout == nil {
		return 0
	}
	n := int(C.csoundGetKsmps(cs)) * int(C.csoundGetNchnls(cs))
	src := unsafe.Slice((*float64)(unsafe.Pointer(spout)), n)
	return copy(dst, src)
}

func (e *nativeEngine) ControlChannel(name string) (float64, int) {
	cs := e.acquire()
	defer e.release()
	if cs == nil {
		return 0, StatusError
	}
	cname := C.CString(name)
	defer C.free(unsafe.Pointer(cname))
	var status C.int
	value := C.csoundGetControlChannel(cs, cname, &status)
	return float64(value), int(status)
}

func (e *nativeEngine) SetControlChannel(name string, value float64) {
	cname := C.CString(name)
	defer C.free(unsafe.Pointer(cname))
	e.do(func(cs *C.CSOUND) { C.csoundSetControlChannel(cs, cname, C.MYFLT(value)) })
}

func (e *nativeEngine) TableLength(table int) int {
	cs := e.acquire()
	defer e.release()
	if cs == nil {
		return -1
	}
	return int(C.csoundTableLength(cs, C.int(table)))
}

func (e *nativeEngine) TableGet(table, index int) float64 {
	return e.number(func(cs *C.CSOUND) float64 {
		return float64(C.csoundTableGet(cs, C.int(table), C.int(index)))
	})
}

func (e *nativeEngine) TableSet(table, index int, value float64) {
	e.do(func(cs *C.CSOUND) { C.csoundTableSet(cs, C.int(table), C.int(index), C.MYFLT(value)) })
}

func (e *nativeEngine) Opcodes() ([]OpcodeEntry, int) {
	cs := e.acquire()
	defer e.release()
	if cs == nil {
		return nil, StatusError
	}
	var list *C.opcodeListEntry
	n := int(C.csoundNewOpcodeList(cs, &list))
	if list == nil || n < 0 {
		return nil, n
	}
	defer C.csoundDisposeOpcodeList(cs, list)

	items := unsafe.Slice(list, n)
	entries := make([]OpcodeEntry, n)
	for i, item := range items {
		entries[i] = OpcodeEntry{
			Name:        goStringOrEmpty(item.opname),
			OutputTypes: goStringOrEmpty(item.outypes),
			InputTypes:  goStringOrEmpty(item.intypes),
			Flags:       int(item.flags),
		}
	}
	return entries, n
}

func (e *nativeEngine) Channels() ([]ChannelInfo, int) {
	cs := e.acquire()
	defer e.release()
	if cs == nil {
		return nil, StatusError
	}
	var list *C.controlChannelInfo_t
	n := int(C.csoundListChannels(cs, &list))
	if list == nil || n < 0 {
		return nil, n
	}
	defer C.csoundDeleteChannelList(cs, list)

	items := unsafe.Slice(list, n)
	infos := make([]ChannelInfo, n)
	for i, item := range items {
		infos[i] = ChannelInfo{
			Name: goStringOrEmpty(item.name),
			Type: int(item._type),
			Hints: ChannelHints{
				Behavior:   int(item.hints.behav),
				Default:    float64(item.hints.dflt),
				Min:        float64(item.hints.min),
				Max:        float64(item.hints.max),
				X:          int(item.hints.x),
				Y:          int(item.hints.y),
				Width:      int(item.hints.width),
				Height:     int(item.hints.height),
				Attributes: goStringOrEmpty(item.hints.attributes),
			},
		}
	}
	return infos, n
}

func (e *nativeEngine) SetMessageCallback(fn MessageFunc) {
	if fn == nil {
		e.do(func(cs *C.CSOUND) { C.cs_set_message_callback(cs, 0) })
		e.message.Store(nil)
		return
	}
	e.message.Store(&fn)
	e.do(func(cs *C.CSOUND) { C.cs_set_message_callback(cs, 1) })
}

func (e *nativeEngine) SetFileOpenCallback(fn FileOpenFunc) {
	if fn == nil {
		e.do(func(cs *C.CSOUND) { C.cs_set_file_open_callback(cs, 0) })
		e.fileOpen.Store(nil)
		return
	}
	e.fileOpen.Store(&fn)
	e.do(func(cs *C.CSOUND) { C.cs_set_file_open_callback(cs, 1) })
}

func (e *nativeEngine) SetIsGraphable(graphable bool) bool {
	cs := e.acquire()
	defer e.release()
	if cs == nil {
		return false
	}
	flag := C.int(0)
	if graphable {
		flag = 1
	}
	return C.csoundSetIsGraphable(cs, flag) != 0
}

func (e *nativeEngine) SetMakeGraphCallback(fn MakeGraphFunc) {
	if fn == nil {
		e.do(func(cs *C.CSOUND) { C.cs_set_make_graph_callback(cs, 0) })
		e.makeGraph.Store(nil)
		return
	}
	e.makeGraph.Store(&fn)
	e.do(func(cs *C.CSOUND) { C.cs_set_make_graph_callback(cs, 1) })
}

func (e *nativeEngine) SetDrawGraphCallback(fn GraphFunc) {
	if fn == nil {
		e.do(func(cs *C.CSOUND) { C.cs_set_draw_graph_callback(cs, 0) })
		e.drawGraph.Store(nil)
		return
	}
	e.drawGraph.Store(&fn)
	e.do(func(cs *C.CSOUND) { C.cs_set_draw_graph_callback(cs, 1) })
}

func (e *nativeEngine) SetKillGraphCallback(fn GraphFunc) {
	if fn == nil {
		e.do(func(cs *C.CSOUND) { C.cs_set_kill_graph_callback(cs, 0) })
		e.killGraph.Store(nil)
		return
	}
	e.killGraph.Store(&fn)
	e.do(func(cs *C.CSOUND) { C.cs_set_kill_graph_callback(cs, 1) })
}

func (e *nativeEngine) SetBreakpointCallback(fn BreakpointFunc) {
	if fn == nil {
		e.do(func(cs *C.CSOUND) { C.cs_set_breakpoint_callback(cs, 0) })
		e.breakpoint.Store(nil)
		return
	}
	e.breakpoint.Store(&fn)
	e.do(func(cs *C.CSOUND) { C.cs_set_breakpoint_callback(cs, 1) })
}

func (e *nativeEngine) DebuggerInit()  { e.do(func(cs *C.CSOUND) { C.csoundDebuggerInit(cs) }) }
func (e *nativeEngine) DebuggerClean() { e.do(func(cs *C.CSOUND) { C.csoundDebuggerClean(cs) }) }

func (e *nativeEngine) SetInstrumentBreakpoint(instrument float64, skip int) {
	e.do(func(cs *C.CSOUND) {
		C.csoundSetInstrumentBreakpoint(cs, C.MYFLT(instrument), C.int(skip))
	})
}

func (e *nativeEngine) RemoveInstrumentBreakpoint(instrument float64) {
	e.do(func(cs *C.CSOUND) { C.csoundRemoveInstrumentBreakpoint(cs, C.MYFLT(instrument)) })
}

func (e *nativeEngine) ClearBreakpoints() { e.do(func(cs *C.CSOUND) { C.csoundClearBreakpoints(cs) }) }
func (e *nativeEngine) DebugContinue()    { e.do(func(cs *C.CSOUND) { C.csoundDebugContinue(cs) }) }
func (e *nativeEngine) DebugStop()        { e.do(func(cs *C.CSOUND) { C.csoundDebugStop(cs) }) }

func goStringOrEmpty(s *C.char) string {
	if s == nil {
		return ""
	}
	return C.GoString(s)
}

var _ Engine = (*nativeEngine)(nil)
