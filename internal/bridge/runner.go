package bridge

import (
	"runtime"

	"github.com/dewi-tim/csoundtui/internal/csound"
	"github.com/dewi-tim/csoundtui/internal/host"
)

// PerformAsync runs the performance on a background goroutine and posts
// onComplete(status int) to the host loop once it ends.
func (in *Instance) PerformAsync(onComplete host.Func) error {
	if onComplete == nil {
		return ErrNoCallback
	}
	return in.startRun(nil, onComplete)
}

// PerformKsmpsAsync is PerformAsync with onStep() posted after every audio
// vector.
func (in *Instance) PerformKsmpsAsync(onStep, onComplete host.Func) error {
	if onStep == nil || onComplete == nil {
		return ErrNoCallback
	}
	return in.startRun(onStep, onComplete)
}

// Wait blocks until the active background run, if any, has finished.
func (in *Instance) Wait() {
	in.mu.Lock()
	done := in.runDone
	in.mu.Unlock()
	if done != nil {
		<-done
	}
}

func (in *Instance) startRun(onStep, onComplete host.Func) error {
	in.mu.Lock()
	if in.destroyed {
		in.mu.Unlock()
		return ErrDestroyed
	}
	if in.running {
		in.mu.Unlock()
		return ErrAlreadyPerforming
	}
	// The process counts the run before it becomes visible, so an
	// interrupt from here on is deferred until the run ends.
	in.interrupted.Store(false)
	in.process.runStarted()
	in.running = true
	done := make(chan struct{})
	in.runDone = done
	sink := in.sink
	in.mu.Unlock()

	commands := newCommandQueue()
	in.handlerMu.Lock()
	in.handler = deferredHandler{commands: commands}
	in.handlerMu.Unlock()

	r := &run{
		in:         in,
		commands:   commands,
		sink:       sink,
		onStep:     onStep,
		onComplete: onComplete,
		done:       done,
	}
	go r.loop()
	log.Infof("instance %d: background performance started", in.id)
	return nil
}

// interrupt asks an active run to end at the next step boundary.
func (in *Instance) interrupt() {
	in.interrupted.Store(true)
}

type run struct {
	in         *Instance
	commands   *commandQueue
	sink       OutputSink
	onStep     host.Func
	onComplete host.Func
	done       chan struct{}
}

func (r *run) loop() {
	// The engine is driven from one OS thread for the whole run.
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	e := r.in.engine
	var out []float64
	var channels int
	if r.sink != nil {
		channels = e.Nchnls()
		out = make([]float64, e.Ksmps()*channels)
	}

	var status int
	stopped := false
	for {
		status = e.PerformKsmps()
		if r.sink != nil {
			n := e.Spout(out)
			r.sink.WriteVector(out[:n], channels)
		}
		if r.commands.drain(e) {
			stopped = true
		}
		if r.onStep != nil {
			host.PostFunc(r.in.loop, r.onStep)
		}
		if stopped || status != 0 {
			break
		}
		if r.in.interrupted.Load() {
			e.Stop()
			status = csound.StatusSignal
			break
		}
	}

	// The final drain runs under the dispatch write lock and Synchronous is
	// restored only after it. Requests made meanwhile wait for the lock and
	// then reach the engine after every queued command.
	r.in.handlerMu.Lock()
	if !stopped {
		stopped = r.commands.drain(e)
	}
	if stopped {
		if n := r.commands.discard(); n > 0 {
			log.Debugf("instance %d: discarded %d commands after stop", r.in.id, n)
		}
	}
	r.in.handler = synchronousHandler{engine: e}
	r.in.handlerMu.Unlock()

	r.in.mu.Lock()
	r.in.running = false
	r.in.mu.Unlock()

	log.Infof("instance %d: background performance ended with status %d", r.in.id, status)
	host.PostFunc(r.in.loop, r.onComplete, status)
	close(r.done)
	r.in.process.runFinished()
}
