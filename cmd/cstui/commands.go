package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/dewi-tim/csoundtui/internal/bridge"
	"github.com/dewi-tim/csoundtui/internal/csound"
	"github.com/dewi-tim/csoundtui/internal/host"
	"github.com/dewi-tim/csoundtui/internal/record"
)

// runReplay prints a recording made with -record through the same
// callback adapters a live performance uses.
func runReplay(args []string) int {
	fs := flag.NewFlagSet("replay", flag.ExitOnError)
	timed := fs.Bool("timed", false, "Wait between events as they were delivered")
	fs.Parse(args)

	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Usage: cstui replay [-timed] recording.cbor")
		return 2
	}

	f, err := os.Open(fs.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	defer f.Close()

	r, err := record.NewReader(bufio.NewReader(f))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	out := bufio.NewWriter(os.Stdout)
	defer out.Flush()

	started := time.Unix(0, r.Header.Started)
	fmt.Fprintf(out, "# %s, recorded %s\n", r.Header.Piece, started.Format(time.DateTime))

	handlers := map[bridge.Kind]host.Func{
		bridge.KindMessage: bridge.OnMessage(func(attributes int, text string) {
			writeMessage(out, csound.Attributes(attributes), text)
		}),
		bridge.KindFileOpen: bridge.OnFileOpen(func(path string, fileType int, forWriting, temporary bool) {
			mode := "read"
			if forWriting {
				mode = "write"
			}
			fmt.Fprintf(out, "[file] %s (%s, type %d)\n", path, mode, fileType)
		}),
		bridge.KindMakeGraph: bridge.OnMakeGraph(func(w *csound.WindowData, name string) {
			fmt.Fprintf(out, "[graph] %s: %s, %d points\n", name, w.Caption, len(w.Samples))
		}),
		bridge.KindDrawGraph: bridge.OnGraph(func(w *csound.WindowData) {
			fmt.Fprintf(out, "[draw] %s: max %g min %g\n", w.Caption, w.Max, w.Min)
		}),
		bridge.KindKillGraph: bridge.OnGraph(func(w *csound.WindowData) {
			fmt.Fprintf(out, "[kill] %s\n", w.Caption)
		}),
		bridge.KindBreakpoint: bridge.OnBreakpoint(func(info *csound.BreakpointInfo) {
			if in := info.Instrument; in != nil {
				fmt.Fprintf(out, "[break] instr %g at %.3f, %d variables\n", in.P1, in.P2, len(info.Variables))
			}
		}),
	}

	var last time.Duration
	err = r.Replay(func(ev record.Event) error {
		kind, args, err := ev.Args()
		if err != nil {
			return err
		}
		if at := time.Duration(ev.Offset); *timed && at > last {
			out.Flush()
			time.Sleep(at - last)
			last = at
		}
		handlers[kind](args...)
		return nil
	})
	if err != nil {
		out.Flush()
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

// runOpcodes lists the opcodes the engine knows.
func runOpcodes() int {
	e, err := csound.New()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	defer e.Destroy()

	entries, status := e.Opcodes()
	if err := csound.CodeError(status); err != nil {
		fmt.Fprintf(os.Stderr, "Error: listing opcodes: %v\n", err)
		return 1
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Name != entries[j].Name {
			return entries[i].Name < entries[j].Name
		}
		return entries[i].InputTypes < entries[j].InputTypes
	})

	out := bufio.NewWriter(os.Stdout)
	defer out.Flush()
	for _, op := range entries {
		fmt.Fprintf(out, "%-24s %-8s %s\n", op.Name, op.OutputTypes, op.InputTypes)
	}
	return 0
}
