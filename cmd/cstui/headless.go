package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dewi-tim/csoundtui/internal/bridge"
	"github.com/dewi-tim/csoundtui/internal/csound"
	"github.com/dewi-tim/csoundtui/internal/host"
	"github.com/dewi-tim/csoundtui/internal/library"
	"github.com/dewi-tim/csoundtui/internal/player"
	"github.com/dewi-tim/csoundtui/internal/ui/components"
)

// runHeadless performs piece with the event loop on the main goroutine.
// Lines read from stdin are sent to the performance as score events.
func runHeadless(piece library.Piece, opts player.Options) int {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	loop := host.NewEventLoop()
	proc := bridge.NewProcess(loop, nil, nil)
	defer proc.Close()

	out := bufio.NewWriter(os.Stdout)
	defer out.Flush()
	printMessage := func(attributes int, text string) {
		writeMessage(out, csound.Attributes(attributes), text)
		out.Flush()
	}
	proc.SetDefaultMessageCallback(bridge.OnMessage(printMessage))

	exit := 0
	var p *player.Player
	p = player.New(proc, opts, player.Handlers{
		Message: printMessage,
		Breakpoint: func(info *csound.BreakpointInfo) {
			if in := info.Instrument; in != nil {
				fmt.Fprintf(out, "breakpoint: instr %g at %.3f, continuing\n", in.P1, in.P2)
			}
			// Nobody can step through a breakpoint here.
			p.Continue()
		},
		Finished: func(info player.PlaybackInfo) {
			if csound.CodeError(info.Status) != nil {
				exit = 1
			}
			loop.Stop()
		},
	})
	defer p.Close()

	proc.NotifyInterrupted(func(os.Signal) {
		exit = 130
		loop.Stop()
	})
	proc.WatchSignals(ctx)

	if err := p.Play(piece); err != nil {
		// Deliver whatever the engine printed before failing.
		loop.Stop()
		loop.Run(ctx)
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	go readEvents(os.Stdin, p)

	if err := loop.Run(ctx); err != nil {
		log.Errorf("event loop: %s", err)
		return 1
	}
	return exit
}

// readEvents sends each line of r to p until r is exhausted.
func readEvents(r io.Reader, p *player.Player) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if err := p.Send(line); err != nil {
			log.Warningf("%q: %s", line, err)
		}
	}
}

// writeMessage prints message text with its attribute style. Each line is
// styled on its own so newlines are left as they are.
func writeMessage(w io.Writer, attrs csound.Attributes, text string) {
	style := components.AttributeStyle(attrs)
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		if i > 0 {
			io.WriteString(w, "\n")
		}
		if line != "" {
			io.WriteString(w, style.Render(line))
		}
	}
}
