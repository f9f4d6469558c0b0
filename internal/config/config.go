// Package config handles cstui.toml configuration.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// FileName is the name of the configuration file.
const FileName = "cstui.toml"

// Config is the cstui configuration.
type Config struct {
	Library Library `toml:"library"`
	Engine  Engine  `toml:"engine"`
	Audio   Audio   `toml:"audio"`
	Log     Log     `toml:"log"`
	Record  Record  `toml:"record"`
	UI      UI      `toml:"ui"`

	// Path is the file the configuration was read from (set at load time).
	Path string `toml:"-"`
}

// Library configures where pieces are found.
type Library struct {
	Dir string `toml:"dir"`
}

// Engine configures each Csound instance.
type Engine struct {
	// Options are passed to SetOption before compiling, e.g. "-d".
	Options      []string `toml:"options"`
	MessageLevel int      `toml:"message-level"`
	Graphs       bool     `toml:"graphs"`

	// Breakpoints, if any, enable the instrument debugger and break on
	// these instrument numbers.
	Breakpoints []float64 `toml:"breakpoints"`
}

// Audio configures device output. When enabled, the engine runs with
// --nosound and its output vectors are played through the device instead.
type Audio struct {
	Enabled bool     `toml:"enabled"`
	Latency Duration `toml:"latency"`
}

// Log configures logging.
type Log struct {
	Verbosity int    `toml:"verbosity"`
	File      string `toml:"file"`
}

// Record configures event capture.
type Record struct {
	// Dir receives one .cbor file per performance. Empty disables it.
	Dir string `toml:"dir"`
}

// UI configures the terminal interface.
type UI struct {
	MessageLines int  `toml:"message-lines"`
	HideHints    bool `toml:"hide-hints"`
}

// Duration is a time.Duration read from a string such as "50ms".
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	c := &Config{}
	c.applyDefaults()
	return c
}

func (c *Config) applyDefaults() {
	if c.Library.Dir == "" {
		c.Library.Dir = "."
	}
	if c.Audio.Latency.Duration <= 0 {
		c.Audio.Latency.Duration = 50 * time.Millisecond
	}
	if c.UI.MessageLines <= 0 {
		c.UI.MessageLines = 500
	}
}

// Load parses the configuration file at path.
func Load(path string) (*Config, error) {
	var c Config
	if _, err := toml.DecodeFile(path, &c); err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}
	c.Path = path
	c.applyDefaults()
	return &c, nil
}

// Find loads cstui.toml from dir, falling back to the user configuration
// directory. If neither exists the defaults are returned.
func Find(dir string) (*Config, error) {
	candidates := []string{filepath.Join(dir, FileName)}
	if userDir, err := os.UserConfigDir(); err == nil {
		candidates = append(candidates, filepath.Join(userDir, "cstui", FileName))
	}

	for _, path := range candidates {
		_, err := os.Stat(path)
		if err == nil {
			return Load(path)
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("cannot stat %s: %w", path, err)
		}
	}
	return Default(), nil
}
