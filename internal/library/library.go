// Package library indexes Csound pieces on disk.
package library

import (
	"bufio"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// PieceKind describes how a piece is stored.
type PieceKind int

const (
	// KindUnified is a single .csd file.
	KindUnified PieceKind = iota
	// KindSplit is an .orc with a .sco of the same name.
	KindSplit
	// KindOrchestra is an .orc without a score.
	KindOrchestra
)

// String returns a human-readable name for the piece kind.
func (k PieceKind) String() string {
	switch k {
	case KindUnified:
		return "csd"
	case KindSplit:
		return "orc+sco"
	case KindOrchestra:
		return "orc"
	default:
		return "unknown"
	}
}

// Piece is one playable piece.
type Piece struct {
	Name  string // file name without extension
	Group string // directory relative to the library root
	Kind  PieceKind

	CSD string
	Orc string
	Sco string

	// Options is the content of the <CsOptions> section of a .csd.
	Options string
	// Length is the estimated score length in beats, 0 if unknown.
	Length float64
}

// Path returns the main file of the piece.
func (p Piece) Path() string {
	if p.Kind == KindUnified {
		return p.CSD
	}
	return p.Orc
}

// Args returns command-line style arguments for compiling the piece.
func (p Piece) Args(options ...string) []string {
	args := append([]string{"csound"}, options...)
	switch p.Kind {
	case KindUnified:
		args = append(args, p.CSD)
	case KindSplit:
		args = append(args, p.Orc, p.Sco)
	default:
		args = append(args, p.Orc)
	}
	return args
}

// Group is a directory of pieces.
type Group struct {
	Name   string
	Pieces []Piece
}

// Library is an index of the pieces under a root directory.
type Library struct {
	mu     sync.RWMutex
	root   string
	groups map[string]*Group
	pieces []Piece // Flat list for quick access
}

// New creates a new library rooted at the given directory.
func New(root string) *Library {
	return &Library{
		root:   root,
		groups: make(map[string]*Group),
	}
}

// Root returns the library root directory.
func (l *Library) Root() string {
	return l.root
}

type stemFiles struct {
	csd, orc, sco string
}

// Scan indexes every piece under the root and returns how many it found.
func (l *Library) Scan() (int, error) {
	files := make(map[string]*stemFiles)

	err := filepath.WalkDir(l.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // Skip files we can't access
		}
		if d.IsDir() {
			if path != l.root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}

		ext := strings.ToLower(filepath.Ext(path))
		stem := strings.TrimSuffix(path, filepath.Ext(path))
		f := files[stem]
		if f == nil {
			f = &stemFiles{}
		}
		switch ext {
		case ".csd":
			f.csd = path
		case ".orc":
			f.orc = path
		case ".sco":
			f.sco = path
		default:
			return nil
		}
		files[stem] = f
		return nil
	})
	if err != nil {
		return 0, err
	}

	groups := make(map[string]*Group)
	var pieces []Piece
	for stem, f := range files {
		p, ok := l.newPiece(stem, f)
		if !ok {
			continue
		}
		pieces = append(pieces, p)

		g, ok := groups[p.Group]
		if !ok {
			g = &Group{Name: p.Group}
			groups[p.Group] = g
		}
		g.Pieces = append(g.Pieces, p)
	}

	for _, g := range groups {
		sort.Slice(g.Pieces, func(i, j int) bool { return g.Pieces[i].Name < g.Pieces[j].Name })
	}
	sort.Slice(pieces, func(i, j int) bool {
		if pieces[i].Group != pieces[j].Group {
			return pieces[i].Group < pieces[j].Group
		}
		return pieces[i].Name < pieces[j].Name
	})

	l.mu.Lock()
	l.groups = groups
	l.pieces = pieces
	l.mu.Unlock()
	return len(pieces), nil
}

func (l *Library) newPiece(stem string, f *stemFiles) (Piece, bool) {
	p := Piece{
		Name: filepath.Base(stem),
		CSD:  f.csd,
		Orc:  f.orc,
		Sco:  f.sco,
	}
	switch {
	case f.csd != "":
		p.Kind = KindUnified
		p.Options = readOptions(f.csd)
		p.Length = fileScoreLength(f.csd, true)
		// A .csd shadows an .orc/.sco pair of the same name.
		p.Orc, p.Sco = "", ""
	case f.orc != "" && f.sco != "":
		p.Kind = KindSplit
		p.Length = fileScoreLength(f.sco, false)
	case f.orc != "":
		p.Kind = KindOrchestra
	default:
		return Piece{}, false
	}

	rel, err := filepath.Rel(l.root, filepath.Dir(stem))
	if err != nil || rel == "." {
		rel = ""
	}
	p.Group = rel
	return p, true
}

// readOptions returns the <CsOptions> section of a .csd, joined into one
// line.
func readOptions(path string) string {
	f, err := os.Open(path)
	if err != nil {
		return ""
	}
	defer f.Close()

	var options []string
	inside := false
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case strings.HasPrefix(line, "<CsOptions>"):
			inside = true
			line = strings.TrimPrefix(line, "<CsOptions>")
		case strings.HasPrefix(line, "</CsOptions>"):
			return strings.Join(options, " ")
		}
		if !inside {
			continue
		}
		if i := strings.Index(line, "</CsOptions>"); i >= 0 {
			options = appendOption(options, line[:i])
			return strings.Join(options, " ")
		}
		options = appendOption(options, line)
	}
	return strings.Join(options, " ")
}

func appendOption(options []string, line string) []string {
	if i := strings.Index(line, ";"); i >= 0 {
		line = line[:i]
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return options
	}
	return append(options, line)
}

// Groups returns the sorted group names.
func (l *Library) Groups() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()

	names := make([]string, 0, len(l.groups))
	for name := range l.groups {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Pieces returns the pieces of a group.
func (l *Library) Pieces(group string) []Piece {
	l.mu.RLock()
	defer l.mu.RUnlock()

	g, ok := l.groups[group]
	if !ok {
		return nil
	}
	return append([]Piece(nil), g.Pieces...)
}

// AllPieces returns every piece, sorted by group and name.
func (l *Library) AllPieces() []Piece {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return append([]Piece(nil), l.pieces...)
}

// PieceCount returns the total number of pieces.
func (l *Library) PieceCount() int {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return len(l.pieces)
}

// Find returns the piece whose main file is path.
func (l *Library) Find(path string) (Piece, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	for _, p := range l.pieces {
		if p.Path() == path {
			return p, true
		}
	}
	return Piece{}, false
}

// Open describes a single file as a piece without scanning a library.
func Open(path string) (Piece, bool) {
	ext := strings.ToLower(filepath.Ext(path))
	stem := strings.TrimSuffix(path, filepath.Ext(path))
	f := &stemFiles{}
	switch ext {
	case ".csd":
		f.csd = path
	case ".orc":
		f.orc = path
		if _, err := os.Stat(stem + ".sco"); err == nil {
			f.sco = stem + ".sco"
		}
	default:
		return Piece{}, false
	}
	l := New(filepath.Dir(path))
	return l.newPiece(stem, f)
}
