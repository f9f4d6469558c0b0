package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, FileName)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, `
[library]
dir = "pieces"

[engine]
options = ["-d", "-m0"]
message-level = 7
graphs = true
breakpoints = [1, 2.5]

[audio]
enabled = true
latency = "20ms"

[log]
verbosity = 2
file = "cstui.log"
`)

	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if c.Library.Dir != "pieces" {
		t.Errorf("Library.Dir: %q", c.Library.Dir)
	}
	if !reflect.DeepEqual(c.Engine.Options, []string{"-d", "-m0"}) {
		t.Errorf("Engine.Options: %v", c.Engine.Options)
	}
	if c.Engine.MessageLevel != 7 || !c.Engine.Graphs {
		t.Errorf("Engine: %+v", c.Engine)
	}
	if !reflect.DeepEqual(c.Engine.Breakpoints, []float64{1, 2.5}) {
		t.Errorf("Engine.Breakpoints: %v", c.Engine.Breakpoints)
	}
	if !c.Audio.Enabled || c.Audio.Latency.Duration != 20*time.Millisecond {
		t.Errorf("Audio: %+v", c.Audio)
	}
	if c.Log.Verbosity != 2 || c.Log.File != "cstui.log" {
		t.Errorf("Log: %+v", c.Log)
	}
	// Unset values get defaults.
	if c.UI.MessageLines != 500 {
		t.Errorf("UI.MessageLines: %d", c.UI.MessageLines)
	}
	if c.Path != path {
		t.Errorf("Path: %q", c.Path)
	}
}

func TestLoadInvalid(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "[audio]\nlatency = \"soon\"\n")
	if _, err := Load(path); err == nil {
		t.Error("Expected an error for an invalid duration")
	}
}

func TestFindFallsBackToDefaults(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("HOME", t.TempDir())

	c, err := Find(t.TempDir())
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if !reflect.DeepEqual(c, Default()) {
		t.Errorf("Expected defaults, got %+v", c)
	}
}

func TestFindPrefersLocalFile(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "[ui]\nmessage-lines = 42\n")

	c, err := Find(dir)
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if c.UI.MessageLines != 42 {
		t.Errorf("Expected local file to be used, got %+v", c.UI)
	}
}
