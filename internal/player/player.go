package player

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/dewi-tim/csoundtui/internal/audio"
	"github.com/dewi-tim/csoundtui/internal/bridge"
	"github.com/dewi-tim/csoundtui/internal/config"
	"github.com/dewi-tim/csoundtui/internal/csound"
	"github.com/dewi-tim/csoundtui/internal/library"
	"github.com/dewi-tim/csoundtui/internal/record"
	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("cstui.player")

var (
	ErrNothingLoaded = errors.New("player: no piece loaded")
	ErrCompile       = errors.New("player: compile failed")
	ErrStart         = errors.New("player: start failed")
)

// progressInterval is how much audio is rendered between progress reports.
const progressInterval = 50 * time.Millisecond

// Options configure every performance.
type Options struct {
	Engine config.Engine
	Audio  config.Audio
	Record config.Record
}

// Handlers receive engine events on the host loop. Nil handlers are not
// bound.
type Handlers struct {
	Message    func(attributes int, text string)
	FileOpen   func(path string, fileType int, forWriting, temporary bool)
	MakeGraph  func(w *csound.WindowData, name string)
	DrawGraph  func(w *csound.WindowData)
	KillGraph  func(w *csound.WindowData)
	Breakpoint func(info *csound.BreakpointInfo)

	// Progress is called periodically while a piece performs.
	Progress func(info PlaybackInfo)
	// Finished is called once a performance has ended.
	Finished func(info PlaybackInfo)
}

// Player performs one piece at a time, each on a fresh instance.
//
// Play, Stop and the handlers run on the host loop. Stop, ScoreEvent and
// InputMessage may also be called from other goroutines.
type Player struct {
	mu sync.Mutex

	proc     *bridge.Process
	opts     Options
	handlers Handlers

	device  *audio.Device
	in      *bridge.Instance
	sink    *audio.Sink
	rec     *record.Writer
	recFile *os.File

	info        PlaybackInfo
	reportEvery int
}

// New creates a player creating instances from proc.
func New(proc *bridge.Process, opts Options, handlers Handlers) *Player {
	return &Player{
		proc:     proc,
		opts:     opts,
		handlers: handlers,
	}
}

// Play compiles piece on a new instance and starts a background
// performance. The previous piece, if any, is unloaded first.
func (p *Player) Play(piece library.Piece) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.in != nil && p.in.Performing() {
		return bridge.ErrAlreadyPerforming
	}
	p.unloadLocked()

	in, err := p.proc.Create(&piece)
	if err != nil {
		return err
	}
	// The instance stays loaded on failure so its messages are delivered.
	p.in = in
	p.info = PlaybackInfo{
		Piece:  &piece,
		Length: piece.Length,
	}
	if err := p.load(in, piece); err != nil {
		p.closeOutputsLocked()
		return err
	}

	p.info.State = StatePlaying
	p.reportEvery = max(1, int(in.Engine().Kr()*progressInterval.Seconds()))

	onStep := func(...any) { p.onStep(in) }
	onComplete := bridge.OnStatus(func(status int) { p.onComplete(in, status) })
	if err := in.PerformKsmpsAsync(onStep, onComplete); err != nil {
		p.info.State = StateStopped
		p.closeOutputsLocked()
		return err
	}
	log.Infof("playing %s", piece.Path())
	return nil
}

// load binds callbacks, applies options, compiles and starts piece.
func (p *Player) load(in *bridge.Instance, piece library.Piece) error {
	p.bind(in)

	for _, option := range p.options() {
		if err := csound.CodeError(in.SetOption(option)); err != nil {
			log.Warningf("option %q rejected: %s", option, err)
		}
	}
	if p.opts.Engine.MessageLevel != 0 {
		in.SetMessageLevel(p.opts.Engine.MessageLevel)
	}
	if len(p.opts.Engine.Breakpoints) > 0 {
		in.DebuggerInit()
		for _, instr := range p.opts.Engine.Breakpoints {
			in.SetInstrumentBreakpoint(instr, 0)
		}
	}

	if err := csound.CodeError(in.CompileArgs(piece.Args())); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrCompile, piece.Path(), err)
	}
	if err := csound.CodeError(in.Start()); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrStart, piece.Path(), err)
	}

	if p.opts.Audio.Enabled {
		if err := p.startAudio(in); err != nil {
			log.Warningf("audio output unavailable: %s", err)
		}
	}

	if p.opts.Record.Dir != "" {
		if err := p.startRecording(in, piece); err != nil {
			log.Warningf("recording disabled: %s", err)
		}
	}
	return nil
}

func (p *Player) options() []string {
	options := append([]string(nil), p.opts.Engine.Options...)
	if p.opts.Audio.Enabled {
		options = append(options, "--nosound")
	}
	return options
}

func (p *Player) bind(in *bridge.Instance) {
	h := p.handlers
	if h.Message != nil {
		in.SetMessageCallback(bridge.OnMessage(h.Message))
	}
	if h.FileOpen != nil {
		in.SetFileOpenCallback(bridge.OnFileOpen(h.FileOpen))
	}
	if p.opts.Engine.Graphs {
		in.SetIsGraphable(true)
		if h.MakeGraph != nil {
			in.SetMakeGraphCallback(bridge.OnMakeGraph(h.MakeGraph))
		}
		if h.DrawGraph != nil {
			in.SetDrawGraphCallback(bridge.OnGraph(h.DrawGraph))
		}
		if h.KillGraph != nil {
			in.SetKillGraphCallback(bridge.OnGraph(h.KillGraph))
		}
	}
	if h.Breakpoint != nil && len(p.opts.Engine.Breakpoints) > 0 {
		in.SetBreakpointCallback(bridge.OnBreakpoint(h.Breakpoint))
	}
}

func (p *Player) startAudio(in *bridge.Instance) error {
	e := in.Engine()
	sr, channels := int(e.Sr()), e.Nchnls()
	if p.device == nil {
		device, err := audio.OpenDevice(sr, channels, p.opts.Audio.Latency.Duration)
		if err != nil {
			return err
		}
		p.device = device
	}
	sink, err := p.device.NewSink(sr, channels, e.ZeroDBFS())
	if err != nil {
		return err
	}
	p.sink = sink
	in.SetOutputSink(sink)
	sink.Start()
	return nil
}

func (p *Player) startRecording(in *bridge.Instance, piece library.Piece) error {
	if err := os.MkdirAll(p.opts.Record.Dir, 0o755); err != nil {
		return err
	}
	name := fmt.Sprintf("%s-%s.cbor", piece.Name, time.Now().Format("20060102-150405"))
	f, err := os.Create(filepath.Join(p.opts.Record.Dir, name))
	if err != nil {
		return err
	}
	w, err := record.NewWriter(f, piece.Path())
	if err != nil {
		f.Close()
		return err
	}
	p.rec = w
	p.recFile = f
	in.SetRecorder(w)
	log.Infof("recording events to %s", f.Name())
	return nil
}

func (p *Player) onStep(in *bridge.Instance) {
	p.mu.Lock()
	if p.in != in {
		p.mu.Unlock()
		return
	}
	p.info.Steps++
	if p.info.Steps%p.reportEvery != 0 {
		p.mu.Unlock()
		return
	}
	p.updateLocked()
	info := p.info
	p.mu.Unlock()

	if p.handlers.Progress != nil {
		p.handlers.Progress(info)
	}
}

func (p *Player) onComplete(in *bridge.Instance, status int) {
	p.mu.Lock()
	if p.in != in {
		p.mu.Unlock()
		return
	}
	p.updateLocked()
	p.info.State = StateStopped
	p.info.Status = status
	p.in.Cleanup()
	p.closeOutputsLocked()
	info := p.info
	p.mu.Unlock()

	if err := csound.CodeError(status); err != nil {
		log.Warningf("performance ended: %s", err)
	} else {
		log.Infof("performance ended with status %d", status)
	}
	if p.handlers.Finished != nil {
		p.handlers.Finished(info)
	}
}

func (p *Player) updateLocked() {
	p.info.ScoreTime = p.in.Engine().ScoreTime()
	if p.sink != nil {
		stats := p.sink.Stats()
		p.info.Overruns = stats.Overruns
		p.info.Underruns = stats.Underruns
	}
}

// Stop asks the current performance to end.
func (p *Player) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.in == nil || p.info.State != StatePlaying {
		return
	}
	p.in.Stop()
	p.info.State = StateStopping
}

// ScoreEvent sends a real-time score event to the current piece.
func (p *Player) ScoreEvent(eventType string, pfields []float64) int {
	in := p.Instance()
	if in == nil {
		return csound.StatusError
	}
	return in.ScoreEvent(eventType, pfields)
}

// InputMessage sends a score line to the current piece.
func (p *Player) InputMessage(statement string) error {
	in := p.Instance()
	if in == nil {
		return ErrNothingLoaded
	}
	in.InputMessage(statement)
	return nil
}

// Continue resumes a performance halted at a breakpoint.
func (p *Player) Continue() {
	if in := p.Instance(); in != nil {
		in.DebugContinue()
	}
}

// Instance returns the instance of the loaded piece, or nil.
func (p *Player) Instance() *bridge.Instance {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.in
}

// Info returns current playback information.
func (p *Player) Info() PlaybackInfo {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.info
}

// Wait blocks until the current performance, if any, has ended.
func (p *Player) Wait() {
	if in := p.Instance(); in != nil {
		in.Wait()
	}
}

func (p *Player) unloadLocked() {
	if p.in == nil {
		return
	}
	if p.in.Performing() {
		p.in.Stop()
		p.in.Wait()
	}
	p.closeOutputsLocked()
	if len(p.opts.Engine.Breakpoints) > 0 {
		p.in.DebuggerClean()
	}
	if err := p.in.Destroy(); err != nil {
		log.Errorf("destroying instance: %s", err)
	}
	p.in = nil
	p.info = PlaybackInfo{}
}

func (p *Player) closeOutputsLocked() {
	if p.sink != nil {
		if err := p.sink.Close(); err != nil {
			log.Warningf("closing audio output: %s", err)
		}
		p.sink = nil
	}
	if p.recFile != nil {
		if p.in != nil {
			p.in.SetRecorder(nil)
		}
		log.Infof("recorded %d events", p.rec.Count())
		if err := p.recFile.Close(); err != nil {
			log.Warningf("closing recording: %s", err)
		}
		p.recFile = nil
		p.rec = nil
	}
}

// Close stops and unloads the current piece.
func (p *Player) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.unloadLocked()
	return nil
}
