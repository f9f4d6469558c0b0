// Package audio plays engine output through the system audio device.
package audio

import "sync/atomic"

// Ring is a lock-free single-producer, single-consumer sample buffer.
// Write is called from the performance thread and Read from the audio
// device callback.
type Ring struct {
	data     []float32
	mask     uint64
	readPos  atomic.Uint64
	writePos atomic.Uint64

	overruns  atomic.Uint64
	underruns atomic.Uint64
}

// Stats reports ring health.
type Stats struct {
	Overruns  uint64
	Underruns uint64
	Buffered  int
	Capacity  int
}

// NewRing creates a ring holding at least minSize samples.
func NewRing(minSize int) *Ring {
	size := nextPowerOf2(uint64(minSize))
	return &Ring{
		data: make([]float32, size),
		mask: size - 1,
	}
}

func nextPowerOf2(n uint64) uint64 {
	if n < 2 {
		return 2
	}
	p := uint64(1)
	for p < n {
		p <<= 1
	}
	return p
}

// Write appends as many samples as fit and returns how many were written.
// Samples that do not fit are dropped and counted as an overrun.
func (r *Ring) Write(samples []float32) int {
	w := r.writePos.Load()
	free := uint64(len(r.data)) - (w - r.readPos.Load())
	n := uint64(len(samples))
	if n > free {
		n = free
		r.overruns.Add(1)
	}
	for i := uint64(0); i < n; i++ {
		r.data[(w+i)&r.mask] = samples[i]
	}
	r.writePos.Store(w + n)
	return int(n)
}

// Read fills out with buffered samples and returns how many were read.
// A short read is counted as an underrun.
func (r *Ring) Read(out []float32) int {
	rd := r.readPos.Load()
	avail := r.writePos.Load() - rd
	n := uint64(len(out))
	if n > avail {
		n = avail
		r.underruns.Add(1)
	}
	for i := uint64(0); i < n; i++ {
		out[i] = r.data[(rd+i)&r.mask]
	}
	r.readPos.Store(rd + n)
	return int(n)
}

// Buffered returns the number of samples waiting to be read.
func (r *Ring) Buffered() int {
	return int(r.writePos.Load() - r.readPos.Load())
}

// Stats returns a snapshot of the ring counters.
func (r *Ring) Stats() Stats {
	return Stats{
		Overruns:  r.overruns.Load(),
		Underruns: r.underruns.Load(),
		Buffered:  r.Buffered(),
		Capacity:  len(r.data),
	}
}
