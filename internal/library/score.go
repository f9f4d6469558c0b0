package library

import (
	"bufio"
	"io"
	"os"
	"strconv"
	"strings"
)

// scoreLength estimates the length of a score in beats from its i and f0
// statements. Tempo statements are ignored. With section set, only lines
// inside <CsScore> are read.
func scoreLength(r io.Reader, section bool) float64 {
	inside := !section
	var (
		offset, sectionEnd float64
		lastP2, lastP3     float64
		haveLast           bool
	)

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		if i := strings.Index(line, ";"); i >= 0 {
			line = line[:i]
		}
		line = strings.TrimSpace(line)

		if section {
			switch {
			case strings.HasPrefix(line, "<CsScore"):
				inside = true
				continue
			case strings.HasPrefix(line, "</CsScore>"):
				inside = false
				continue
			}
		}
		if !inside || line == "" {
			continue
		}

		op, fields := line[0], strings.Fields(line[1:])
		switch op {
		case 'i':
			if len(fields) < 3 {
				continue
			}
			p2, ok := scoreField(fields[1], lastP2+lastP3, lastP2, haveLast)
			if !ok {
				continue
			}
			p3, ok := scoreField(fields[2], lastP3, lastP3, haveLast)
			if !ok {
				continue
			}
			lastP2, lastP3, haveLast = p2, p3, true
			if p3 < 0 {
				// Held notes run until turned off.
				p3 = 0
			}
			sectionEnd = max(sectionEnd, p2+p3)

		case 'f':
			if len(fields) < 2 || (fields[0] != "0" && fields[0] != "0.0") {
				continue
			}
			if p2, err := strconv.ParseFloat(fields[1], 64); err == nil {
				sectionEnd = max(sectionEnd, p2)
			}

		case 's':
			offset += sectionEnd
			sectionEnd = 0
			haveLast = false

		case 'e':
			return offset + sectionEnd
		}
	}
	return offset + sectionEnd
}

// scoreField parses one p-field, resolving the + and . carry symbols.
func scoreField(field string, plus, carry float64, haveLast bool) (float64, bool) {
	switch field {
	case "+":
		return plus, haveLast
	case ".":
		return carry, haveLast
	}
	v, err := strconv.ParseFloat(field, 64)
	return v, err == nil
}

func fileScoreLength(path string, section bool) float64 {
	f, err := os.Open(path)
	if err != nil {
		return 0
	}
	defer f.Close()
	return scoreLength(f, section)
}
