// Command cstui browses and performs Csound pieces from the terminal.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/tliron/commonlog"

	"github.com/dewi-tim/csoundtui/internal/bridge"
	"github.com/dewi-tim/csoundtui/internal/config"
	"github.com/dewi-tim/csoundtui/internal/host"
	"github.com/dewi-tim/csoundtui/internal/library"
	"github.com/dewi-tim/csoundtui/internal/player"
	"github.com/dewi-tim/csoundtui/internal/ui"

	_ "github.com/tliron/commonlog/simple"
)

var log = commonlog.GetLogger("cstui")

func main() {
	configPath := flag.String("config", "", "Configuration file (default: ./cstui.toml or the user config dir)")
	libraryDir := flag.String("library", "", "Directory of .csd/.orc/.sco pieces")
	headless := flag.Bool("headless", false, "Perform the piece without the TUI, printing messages")
	audio := flag.Bool("audio", false, "Play output vectors through the audio device")
	nosound := flag.Bool("nosound", false, "Disable audio device output")
	recordDir := flag.String("record", "", "Record callback events to this directory")
	messageLevel := flag.Int("m", 0, "Csound message level")
	verbosity := flag.Int("v", 0, "Log verbosity")
	logFile := flag.String("log", "", "Log file")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: cstui [options] [piece.csd | piece.orc | dir]\n")
		fmt.Fprintf(os.Stderr, "       cstui replay [-timed] recording.cbor\n")
		fmt.Fprintf(os.Stderr, "       cstui opcodes\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  cstui -library ~/csound        # Browse a library\n")
		fmt.Fprintf(os.Stderr, "  cstui -headless drone.csd      # Perform one piece, score lines on stdin\n")
		fmt.Fprintf(os.Stderr, "  cstui replay drone-20260101-120000.cbor\n")
	}
	flag.Parse()

	args := flag.Args()
	if len(args) > 0 {
		switch args[0] {
		case "replay":
			os.Exit(runReplay(args[1:]))
		case "opcodes":
			os.Exit(runOpcodes())
		}
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	// Flags override the configuration file.
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "library":
			cfg.Library.Dir = *libraryDir
		case "audio":
			cfg.Audio.Enabled = *audio
		case "record":
			cfg.Record.Dir = *recordDir
		case "m":
			cfg.Engine.MessageLevel = *messageLevel
		case "v":
			cfg.Log.Verbosity = *verbosity
		case "log":
			cfg.Log.File = *logFile
		}
	})
	if *nosound {
		cfg.Audio.Enabled = false
	}

	var piece *library.Piece
	if len(args) > 0 {
		if info, err := os.Stat(args[0]); err == nil && info.IsDir() {
			cfg.Library.Dir = args[0]
		} else if p, ok := library.Open(args[0]); ok {
			piece = &p
		} else {
			fmt.Fprintf(os.Stderr, "Error: %s is not a .csd or .orc file\n", args[0])
			os.Exit(1)
		}
	}

	configureLogging(cfg.Log, *headless)
	if cfg.Path != "" {
		log.Infof("configuration: %s", cfg.Path)
	}

	opts := player.Options{
		Engine: cfg.Engine,
		Audio:  cfg.Audio,
		Record: cfg.Record,
	}

	if *headless {
		if piece == nil {
			fmt.Fprintln(os.Stderr, "Error: -headless needs a piece")
			os.Exit(2)
		}
		os.Exit(runHeadless(*piece, opts))
	}

	if err := runTUI(cfg, opts, piece); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.Load(path)
	}
	dir, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	return config.Find(dir)
}

// configureLogging sends logs to the configured file. The TUI owns the
// terminal, so without a file its logs go to the temp directory.
func configureLogging(c config.Log, headless bool) {
	path := c.File
	if path == "" && !headless {
		path = filepath.Join(os.TempDir(), "cstui.log")
	}
	if path == "" {
		commonlog.Configure(c.Verbosity, nil)
		return
	}
	commonlog.Configure(c.Verbosity, &path)
}

func runTUI(cfg *config.Config, opts player.Options, piece *library.Piece) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	loop := host.NewTeaLoop()
	proc := bridge.NewProcess(loop, nil, nil)
	defer proc.Close()

	lib := library.New(cfg.Library.Dir)
	model := ui.New(lib, loop, proc, opts, cfg.UI)
	if piece != nil {
		model = model.WithPiece(*piece)
	}

	program := tea.NewProgram(model, tea.WithAltScreen(), tea.WithoutSignalHandler())
	loop.Attach(program)

	proc.NotifyInterrupted(func(sig os.Signal) {
		log.Noticef("quitting on %s", sig)
		program.Quit()
	})
	proc.WatchSignals(ctx)

	final, err := program.Run()
	if m, ok := final.(ui.Model); ok {
		if cerr := m.Close(); cerr != nil {
			log.Errorf("closing player: %s", cerr)
		}
	}
	return err
}
