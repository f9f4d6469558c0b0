package library

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

const trappedCSD = `<CsoundSynthesizer>
<CsOptions>
-odac -d ; realtime
-m0
</CsOptions>
<CsInstruments>
instr 1
endin
</CsInstruments>
<CsScore>
i1 0 1
</CsScore>
</CsoundSynthesizer>
`

func writeFiles(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		path := filepath.Join(root, name)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

func TestScan(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"trapped.csd":        trappedCSD,
		"etudes/drone.orc":   "instr 1\nendin\n",
		"etudes/drone.sco":   "i1 0 1\n",
		"etudes/lonely.orc":  "instr 1\nendin\n",
		"etudes/notes.txt":   "not a piece",
		"shadow/both.csd":    "",
		"shadow/both.orc":    "",
		".hidden/secret.csd": "",
	})

	l := New(root)
	n, err := l.Scan()
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if n != 4 || l.PieceCount() != 4 {
		t.Fatalf("Expected 4 pieces, got %d", n)
	}

	if groups := l.Groups(); !reflect.DeepEqual(groups, []string{"", "etudes", "shadow"}) {
		t.Errorf("Unexpected groups %q", groups)
	}

	etudes := l.Pieces("etudes")
	if len(etudes) != 2 {
		t.Fatalf("Expected 2 etudes, got %v", etudes)
	}
	drone := etudes[0]
	if drone.Name != "drone" || drone.Kind != KindSplit || drone.Sco == "" {
		t.Errorf("Unexpected drone %+v", drone)
	}
	if lonely := etudes[1]; lonely.Kind != KindOrchestra {
		t.Errorf("Expected orchestra-only piece, got %s", lonely.Kind)
	}

	both := l.Pieces("shadow")[0]
	if both.Kind != KindUnified || both.Orc != "" {
		t.Errorf("Expected .csd to shadow .orc, got %+v", both)
	}

	trapped, ok := l.Find(filepath.Join(root, "trapped.csd"))
	if !ok {
		t.Fatal("Expected to find trapped.csd")
	}
	if trapped.Options != "-odac -d -m0" {
		t.Errorf("Unexpected options %q", trapped.Options)
	}
	if trapped.Length != 1 || drone.Length != 1 {
		t.Errorf("Unexpected lengths %v, %v", trapped.Length, drone.Length)
	}
}

func TestPieceArgs(t *testing.T) {
	split := Piece{Kind: KindSplit, Orc: "a.orc", Sco: "a.sco"}
	if got := split.Args("-n"); !reflect.DeepEqual(got, []string{"csound", "-n", "a.orc", "a.sco"}) {
		t.Errorf("Unexpected args %v", got)
	}

	unified := Piece{Kind: KindUnified, CSD: "a.csd"}
	if got := unified.Args(); !reflect.DeepEqual(got, []string{"csound", "a.csd"}) {
		t.Errorf("Unexpected args %v", got)
	}
	if unified.Path() != "a.csd" || split.Path() != "a.orc" {
		t.Error("Unexpected main file")
	}
}

func TestOpen(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"drone.orc": "",
		"drone.sco": "",
	})

	p, ok := Open(filepath.Join(root, "drone.orc"))
	if !ok || p.Kind != KindSplit || p.Sco != filepath.Join(root, "drone.sco") {
		t.Errorf("Unexpected piece %+v", p)
	}
	if _, ok := Open(filepath.Join(root, "drone.wav")); ok {
		t.Error("Expected non-Csound file to be rejected")
	}
}
