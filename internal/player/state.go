// Package player performs library pieces on bridge instances.
package player

import (
	"time"

	"github.com/dewi-tim/csoundtui/internal/library"
)

// PlayState represents the current performance state.
type PlayState int

const (
	// StateStopped indicates nothing is performing.
	StateStopped PlayState = iota
	// StatePlaying indicates a background performance is running.
	StatePlaying
	// StateStopping indicates a stop was requested and the run has not
	// ended yet.
	StateStopping
)

// String returns a human-readable name for the play state.
func (s PlayState) String() string {
	switch s {
	case StateStopped:
		return "Stopped"
	case StatePlaying:
		return "Playing"
	case StateStopping:
		return "Stopping"
	default:
		return "Unknown"
	}
}

// PlaybackInfo contains information about the current performance.
type PlaybackInfo struct {
	State PlayState
	Piece *library.Piece

	// ScoreTime is the engine's score position in seconds.
	ScoreTime float64
	// Length is the estimated score length, 0 if unknown.
	Length float64
	// Steps is the number of audio vectors rendered.
	Steps int

	// Status is the final performance status once the run has ended.
	Status int

	// Audio output statistics, zero without an output sink.
	Overruns  uint64
	Underruns uint64
}

// Position returns the score time as a duration.
func (i *PlaybackInfo) Position() time.Duration {
	return time.Duration(i.ScoreTime * float64(time.Second))
}

// Duration returns the estimated score length as a duration.
func (i *PlaybackInfo) Duration() time.Duration {
	return time.Duration(i.Length * float64(time.Second))
}

// Progress returns the performance progress as a value between 0.0 and
// 1.0, or 0 when the length is unknown.
func (i *PlaybackInfo) Progress() float64 {
	if i.Length <= 0 {
		return 0.0
	}
	progress := i.ScoreTime / i.Length
	if progress > 1.0 {
		return 1.0
	}
	if progress < 0.0 {
		return 0.0
	}
	return progress
}
