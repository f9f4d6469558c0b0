package bridge

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"sync"
	"syscall"

	"github.com/dewi-tim/csoundtui/internal/csound"
	"github.com/dewi-tim/csoundtui/internal/host"
)

// Process owns every Instance of the program together with the state that
// is not tied to any one of them: the default message callback and the
// handling of interrupt signals.
//
// While background performances are running, SIGINT and SIGTERM stop them
// instead of ending the program; once the last one has completed, the
// signal is handed to the NotifyInterrupted callback.
type Process struct {
	loop    host.Loop
	factory csound.Factory

	defaultMessage *slot[MessageEvent]

	mu          sync.Mutex
	instances   map[uint64]*Instance
	nextID      uint64
	performing  int
	pending     os.Signal
	onInterrupt func(os.Signal)
	closed      bool
}

// NewProcess creates the registry. Host callables run on loop. A nil
// factory uses csound.New and a nil installer uses
// csound.SetDefaultMessageCallback.
func NewProcess(loop host.Loop, factory csound.Factory, installer csound.DefaultMessageInstaller) *Process {
	if factory == nil {
		factory = csound.New
	}
	if installer == nil {
		installer = csound.SetDefaultMessageCallback
	}

	p := &Process{
		loop:      loop,
		factory:   factory,
		instances: make(map[uint64]*Instance),
		nextID:    1,
	}
	p.defaultMessage = newSlot(messageContract, func(emit func(MessageEvent)) {
		if emit == nil {
			installer(nil)
			return
		}
		installer(func(attributes int, text string) {
			emit(MessageEvent{Attributes: attributes, Text: text})
		})
	})
	return p
}

// Create makes a new engine instance carrying hostData.
func (p *Process) Create(hostData any) (*Instance, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, ErrClosed
	}
	id := p.nextID
	p.nextID++
	p.mu.Unlock()

	e, err := p.factory()
	if err != nil {
		return nil, fmt.Errorf("creating csound instance: %w", err)
	}

	in := newInstance(id, e, p, hostData)
	p.mu.Lock()
	p.instances[id] = in
	p.mu.Unlock()

	log.Infof("created instance %d", id)
	return in, nil
}

// Instances returns the live instances ordered by id.
func (p *Process) Instances() []*Instance {
	p.mu.Lock()
	defer p.mu.Unlock()

	list := make([]*Instance, 0, len(p.instances))
	for _, in := range p.instances {
		list = append(list, in)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].id < list[j].id })
	return list
}

func (p *Process) remove(id uint64) {
	p.mu.Lock()
	delete(p.instances, id)
	p.mu.Unlock()
}

// SetDefaultMessageCallback binds fn(attributes int, text string) to
// messages that no instance callback receives, such as those printed
// before an instance exists. A nil fn unbinds.
func (p *Process) SetDefaultMessageCallback(fn host.Func) {
	p.defaultMessage.bind(p.loop, fn, nil)
}

// Performing returns the number of active background runs.
func (p *Process) Performing() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.performing
}

// NotifyInterrupted sets the function run on the host loop when an
// interrupt can no longer be absorbed by stopping performances.
func (p *Process) NotifyInterrupted(fn func(os.Signal)) {
	p.mu.Lock()
	p.onInterrupt = fn
	p.mu.Unlock()
}

// Interrupt handles sig. If background performances are running they are
// told to stop and the signal is delivered after the last one completes;
// otherwise it is delivered right away. It reports whether delivery was
// deferred.
func (p *Process) Interrupt(sig os.Signal) bool {
	p.mu.Lock()
	if p.performing == 0 {
		fn := p.onInterrupt
		p.mu.Unlock()
		p.deliver(fn, sig)
		return false
	}
	p.pending = sig
	running := make([]*Instance, 0, len(p.instances))
	for _, in := range p.instances {
		running = append(running, in)
	}
	p.mu.Unlock()

	for _, in := range running {
		if in.Performing() {
			in.interrupt()
		}
	}
	log.Noticef("received %s, stopping performances", sig)
	return true
}

func (p *Process) deliver(fn func(os.Signal), sig os.Signal) {
	if fn == nil {
		return
	}
	p.loop.Post(func() { fn(sig) })
}

// WatchSignals routes SIGINT and SIGTERM to Interrupt until ctx is done.
func (p *Process) WatchSignals(ctx context.Context) {
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		defer signal.Stop(signals)
		for {
			select {
			case sig := <-signals:
				p.Interrupt(sig)
			case <-ctx.Done():
				return
			}
		}
	}()
}

func (p *Process) runStarted() {
	p.mu.Lock()
	p.performing++
	p.mu.Unlock()
}

func (p *Process) runFinished() {
	p.mu.Lock()
	p.performing--
	var sig os.Signal
	var fn func(os.Signal)
	if p.performing == 0 && p.pending != nil {
		sig, fn = p.pending, p.onInterrupt
		p.pending = nil
	}
	p.mu.Unlock()

	if sig != nil {
		p.deliver(fn, sig)
	}
}

// Close stops every background run, waits for them, destroys every
// instance and unbinds the default message callback.
func (p *Process) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.mu.Unlock()

	for _, in := range p.Instances() {
		if in.Performing() {
			in.Stop()
			in.Wait()
		}
		if err := in.Destroy(); err != nil {
			return fmt.Errorf("destroying instance %d: %w", in.id, err)
		}
	}
	p.defaultMessage.unbind()
	log.Info("process closed")
	return nil
}
