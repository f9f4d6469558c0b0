package main

import (
	"strings"
	"testing"

	"github.com/dewi-tim/csoundtui/internal/csound"
)

func TestWriteMessageKeepsNewlines(t *testing.T) {
	var b strings.Builder
	writeMessage(&b, csound.MsgWarning, "WARNING: one\n\ntwo\n")
	if got := b.String(); strings.Count(got, "\n") != 3 || !strings.Contains(got, "WARNING: one") || !strings.HasSuffix(got, "\n") {
		t.Errorf("Unexpected output %q", got)
	}
}
