package csound

import (
	"errors"
	"testing"
)

func TestCodeError(t *testing.T) {
	tests := []struct {
		code int
		want error
	}{
		{StatusSuccess, nil},
		{1, nil},
		{StatusError, ErrGeneric},
		{StatusInitialization, ErrInitialization},
		{StatusPerformance, ErrPerformance},
		{StatusMemory, ErrMemory},
		{StatusSignal, ErrSignal},
	}
	for _, tt := range tests {
		if got := CodeError(tt.code); !errors.Is(got, tt.want) {
			t.Errorf("CodeError(%d) = %v, want %v", tt.code, got, tt.want)
		}
	}

	if err := CodeError(-42); err == nil {
		t.Error("Expected an error for unknown negative status")
	}
}

func TestAttributes(t *testing.T) {
	a := Attributes(MsgWarning | MsgFgRed | MsgFgBold | MsgBgBlue)

	if a.Type() != MsgWarning {
		t.Errorf("Type: got %#x", a.Type())
	}
	if a.Foreground() != MsgFgRed {
		t.Errorf("Foreground: got %#x", a.Foreground())
	}
	if a.Background() != MsgBgBlue {
		t.Errorf("Background: got %#x", a.Background())
	}
	if !a.Bold() || a.Underline() {
		t.Errorf("Bold/Underline: got %v/%v", a.Bold(), a.Underline())
	}

	if plain := Attributes(0); plain.Foreground() != 0 || plain.Background() != 0 || plain.Type() != MsgDefault {
		t.Error("Expected zero attributes to carry no color or type")
	}
}

func TestWindowDataSnapshot(t *testing.T) {
	w := &WindowData{ID: 7, Caption: "ftable 1", Samples: []float64{1, 2, 3}, Max: 3}
	c := w.Snapshot()
	w.Samples[0] = 99

	if c.Samples[0] != 1 {
		t.Error("Snapshot shares sample memory with the original")
	}
	if c.ID != 7 || c.Caption != "ftable 1" || c.Max != 3 {
		t.Errorf("Snapshot lost fields: %+v", c)
	}
	if (*WindowData)(nil).Snapshot() != nil {
		t.Error("Expected nil snapshot of nil window")
	}
}
