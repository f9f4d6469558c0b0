package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"
	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("cstui.audio")

var (
	ErrChannelMismatch = errors.New("audio: unsupported channel count")
	ErrRateMismatch    = errors.New("audio: sample rate does not match the device")
)

// Stream converts engine vectors to interleaved float32 little-endian PCM.
// WriteVector is the producer side and Read the consumer side.
type Stream struct {
	ring     *Ring
	channels int
	scale    float64

	conv []float32
	out  []float32
}

// NewStream creates a stream buffering about latency of audio. Samples are
// divided by zeroDBFS so full scale maps to 1.0.
func NewStream(sampleRate, channels int, zeroDBFS float64, latency time.Duration) *Stream {
	if zeroDBFS <= 0 {
		zeroDBFS = 1
	}
	frames := int(float64(sampleRate) * latency.Seconds())
	return &Stream{
		ring:     NewRing(frames * channels * 4),
		channels: channels,
		scale:    1 / zeroDBFS,
	}
}

// WriteVector queues one engine output vector. It never blocks; samples
// that do not fit are dropped.
func (s *Stream) WriteVector(samples []float64, channels int) {
	if channels != s.channels {
		return
	}
	if cap(s.conv) < len(samples) {
		s.conv = make([]float32, len(samples))
	}
	conv := s.conv[:len(samples)]
	for i, v := range samples {
		conv[i] = float32(v * s.scale)
	}
	s.ring.Write(conv)
}

// Read implements io.Reader for the audio device. Missing samples are
// rendered as silence.
func (s *Stream) Read(p []byte) (int, error) {
	n := len(p) / 4
	if cap(s.out) < n {
		s.out = make([]float32, n)
	}
	out := s.out[:n]
	got := s.ring.Read(out)
	for i := got; i < n; i++ {
		out[i] = 0
	}
	for i, v := range out {
		binary.LittleEndian.PutUint32(p[i*4:], math.Float32bits(v))
	}
	return n * 4, nil
}

// Stats returns the ring counters.
func (s *Stream) Stats() Stats {
	return s.ring.Stats()
}

// Device is the audio output device. Only one may be opened per process;
// every Sink created from it must match its format.
type Device struct {
	ctx        *oto.Context
	sampleRate int
	channels   int
	latency    time.Duration
}

// OpenDevice opens the default output device.
func OpenDevice(sampleRate, channels int, latency time.Duration) (*Device, error) {
	if channels < 1 || channels > 2 {
		return nil, fmt.Errorf("%w: %d", ErrChannelMismatch, channels)
	}

	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: channels,
		Format:       oto.FormatFloat32LE,
		BufferSize:   latency,
	})
	if err != nil {
		return nil, fmt.Errorf("opening audio device: %w", err)
	}
	<-ready

	log.Infof("audio device open: %d Hz, %d channels", sampleRate, channels)
	return &Device{
		ctx:        ctx,
		sampleRate: sampleRate,
		channels:   channels,
		latency:    latency,
	}, nil
}

// Format returns the device sample rate and channel count.
func (d *Device) Format() (sampleRate, channels int) {
	return d.sampleRate, d.channels
}

// NewSink creates a sink for a performance with the given format.
func (d *Device) NewSink(sampleRate, channels int, zeroDBFS float64) (*Sink, error) {
	if sampleRate != d.sampleRate {
		return nil, fmt.Errorf("%w: %d Hz, device runs at %d Hz", ErrRateMismatch, sampleRate, d.sampleRate)
	}
	if channels != d.channels {
		return nil, fmt.Errorf("%w: %d, device has %d", ErrChannelMismatch, channels, d.channels)
	}

	s := &Sink{Stream: NewStream(sampleRate, channels, zeroDBFS, d.latency)}
	s.player = d.ctx.NewPlayer(s.Stream)
	return s, nil
}

// Sink plays a Stream on the device. It is the OutputSink of one
// performance.
type Sink struct {
	*Stream

	player *oto.Player
	mu     sync.Mutex
}

// Start begins playback.
func (s *Sink) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.player != nil && !s.player.IsPlaying() {
		s.player.Play()
	}
}

// Close stops playback and releases the player.
func (s *Sink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.player == nil {
		return nil
	}
	err := s.player.Close()
	s.player = nil
	stats := s.Stats()
	log.Debugf("audio closed: %d overruns, %d underruns", stats.Overruns, stats.Underruns)
	return err
}
