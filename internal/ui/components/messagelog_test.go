package components

import (
	"reflect"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/dewi-tim/csoundtui/internal/csound"
)

func TestMessageLogFragments(t *testing.T) {
	l := NewMessageLog(10)
	l.Append(csound.MsgOrch, "new alloc ")
	l.Append(csound.MsgError, "for instr 1\n")
	l.Append(csound.MsgError, "error: bad\npartial")

	want := []string{"new alloc for instr 1", "error: bad"}
	if !reflect.DeepEqual(l.Lines(), want) {
		t.Errorf("Expected %q, got %q", want, l.Lines())
	}
	// A line keeps the attributes of its first fragment.
	if l.lines[0].attrs.Type() != csound.MsgOrch || l.lines[1].attrs.Type() != csound.MsgError {
		t.Errorf("Unexpected attributes %v", l.lines)
	}

	l.Append(0, "\n")
	if l.Len() != 3 || l.Lines()[2] != "partial" {
		t.Errorf("Expected the partial line to complete, got %q", l.Lines())
	}
}

func TestMessageLogLimit(t *testing.T) {
	l := NewMessageLog(2)
	for _, s := range []string{"one", "two", "three"} {
		l.Note(s)
	}
	if want := []string{"two", "three"}; !reflect.DeepEqual(l.Lines(), want) {
		t.Errorf("Expected %q, got %q", want, l.Lines())
	}

	l.Focus()
	l.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("D")})
	if l.Len() != 0 {
		t.Errorf("Expected clear, got %q", l.Lines())
	}
}

func TestAttributeStyle(t *testing.T) {
	if !AttributeStyle(csound.MsgError).GetBold() {
		t.Error("Expected errors to be bold")
	}
	if AttributeStyle(csound.MsgDefault).GetBold() {
		t.Error("Expected plain messages not to be bold")
	}

	s := AttributeStyle(csound.MsgWarning | csound.MsgFgRed | csound.MsgFgUnderline | csound.MsgBgBlue)
	if s.GetForeground() != messageForeground[1] {
		t.Errorf("Expected explicit red, got %v", s.GetForeground())
	}
	if s.GetBackground() != messageBackground[4] {
		t.Errorf("Expected blue background, got %v", s.GetBackground())
	}
	if !s.GetUnderline() {
		t.Error("Expected underline")
	}
}

func TestProgressPercent(t *testing.T) {
	p := NewProgressBar()
	if p.Percent() != 0 {
		t.Errorf("Expected 0 with unknown duration, got %f", p.Percent())
	}
	p.SetDuration(4e9)
	p.SetElapsed(1e9)
	if p.Percent() != 0.25 {
		t.Errorf("Expected 0.25, got %f", p.Percent())
	}
	p.SetElapsed(5e9)
	if p.Percent() != 1 {
		t.Errorf("Expected a full bar past the end, got %f", p.Percent())
	}
}
