package player

import (
	"errors"
	"strconv"
	"strings"

	"github.com/dewi-tim/csoundtui/internal/csound"
)

var ErrEmptyEvent = errors.New("player: empty score line")

// ParseEvent splits a numeric score statement such as "i1 0 2 440" or
// "i 1 0 2" into its type and p-fields. ok is false for statements that
// need the score parser, such as named instruments or strings.
func ParseEvent(line string) (eventType string, pfields []float64, ok bool) {
	line = strings.TrimSpace(line)
	if i := strings.Index(line, ";"); i >= 0 {
		line = strings.TrimSpace(line[:i])
	}
	if line == "" || !strings.ContainsRune("ifeaq", rune(line[0])) {
		return "", nil, false
	}

	for _, field := range strings.Fields(line[1:]) {
		v, err := strconv.ParseFloat(field, 64)
		if err != nil {
			return "", nil, false
		}
		pfields = append(pfields, v)
	}
	return line[:1], pfields, true
}

// Send delivers one score line to the current piece: numeric statements as
// score events, anything else through the score parser.
func (p *Player) Send(line string) error {
	line = strings.TrimSpace(line)
	if line == "" {
		return ErrEmptyEvent
	}
	if p.Instance() == nil {
		return ErrNothingLoaded
	}
	if eventType, pfields, ok := ParseEvent(line); ok {
		return csound.CodeError(p.ScoreEvent(eventType, pfields))
	}
	return p.InputMessage(line)
}
