//go:build csound

package csound

/*
#cgo CFLAGS: -DUSE_DOUBLE
#include <csound/csound.h>
#include <csound/cwindow.h>
#include <csound/csdebug.h>
#include <stdint.h>
*/
import "C"
import "unsafe"

//export goMessageCallback
func goMessageCallback(id C.uintptr_t, attributes C.int, text *C.char) {
	e := lookupEngine(uintptr(id))
	if e == nil {
		return
	}
	if fn := e.message.Load(); fn != nil {
		(*fn)(int(attributes), C.GoString(text))
	}
}

//export goDefaultMessageCallback
func goDefaultMessageCallback(attributes C.int, text *C.char) {
	if fn := defaultMessage.Load(); fn != nil {
		(*fn)(int(attributes), C.GoString(text))
	}
}

//export goFileOpenCallback
func goFileOpenCallback(id C.uintptr_t, path *C.char, fileType, forWriting, temporary C.int) {
	e := lookupEngine(uintptr(id))
	if e == nil {
		return
	}
	if fn := e.fileOpen.Load(); fn != nil {
		(*fn)(goStringOrEmpty(path), int(fileType), forWriting != 0, temporary != 0)
	}
}

//export goMakeGraphCallback
func goMakeGraphCallback(id C.uintptr_t, window *C.WINDAT, name *C.char) {
	e := lookupEngine(uintptr(id))
	if e == nil {
		return
	}
	if fn := e.makeGraph.Load(); fn != nil {
		(*fn)(windowData(window), goStringOrEmpty(name))
	}
}

//export goDrawGraphCallback
func goDrawGraphCallback(id C.uintptr_t, window *C.WINDAT) {
	e := lookupEngine(uintptr(id))
	if e == nil {
		return
	}
	if fn := e.drawGraph.Load(); fn != nil {
		(*fn)(windowData(window))
	}
}

//export goKillGraphCallback
func goKillGraphCallback(id C.uintptr_t, window *C.WINDAT) {
	e := lookupEngine(uintptr(id))
	if e == nil {
		return
	}
	if fn := e.killGraph.Load(); fn != nil {
		(*fn)(windowData(window))
	}
}

//export goBreakpointCallback
func goBreakpointCallback(id C.uintptr_t, info *C.debug_bkpt_info_t) {
	e := lookupEngine(uintptr(id))
	if e == nil {
		return
	}
	if fn := e.breakpoint.Load(); fn != nil {
		(*fn)(breakpointInfo(info))
	}
}

// windowData wraps a WINDAT. Samples aliases engine memory and must be
// copied before the callback returns.
func windowData(w *C.WINDAT) *WindowData {
	if w == nil {
		return nil
	}
	d := &WindowData{
		ID:       uintptr(w.windid),
		Caption:  C.GoString(&w.caption[0]),
		Polarity: int(w.polarity),
		Max:      float64(w.max),
		Min:      float64(w.min),
		AbsMax:   float64(w.absmax),
		OAbsMax:  float64(w.oabsmax),
	}
	if w.fdata != nil && w.npts > 0 {
		d.Samples = unsafe.Slice((*float64)(unsafe.Pointer(w.fdata)), int(w.npts))
	}
	return d
}

func debugInstrument(i *C.debug_instr_t) DebugInstrument {
	return DebugInstrument{
		P1:       float64(i.p1),
		P2:       float64(i.p2),
		P3:       float64(i.p3),
		KCounter: uint64(i.kcounter),
		Line:     int(i.line),
	}
}

func breakpointInfo(info *C.debug_bkpt_info_t) *BreakpointInfo {
	if info == nil {
		return nil
	}
	b := &BreakpointInfo{}
	if info.breakpointInstr != nil {
		instr := debugInstrument(info.breakpointInstr)
		b.Instrument = &instr
	}
	for v := info.instrVarList; v != nil; v = v.next {
		variable := DebugVariable{
			Name:     goStringOrEmpty(v.name),
			TypeName: goStringOrEmpty(v.typeName),
		}
		if v.data != nil {
			switch variable.TypeName {
			case "i", "k", "c", "r":
				variable.Value = float64(*(*C.MYFLT)(v.data))
			case "S":
				variable.Value = C.GoString(*(**C.char)(v.data))
			}
		}
		b.Variables = append(b.Variables, variable)
	}
	for i := info.instrListHead; i != nil; i = i.next {
		b.Instruments = append(b.Instruments, debugInstrument(i))
	}
	if op := info.currentOpcode; op != nil {
		b.CurrentOpcode = &DebugOpcode{
			Name: C.GoString(&op.opname[0]),
			Line: int(op.line),
		}
	}
	return b
}
