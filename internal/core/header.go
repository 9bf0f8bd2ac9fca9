package core

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"

	"github.com/JonMunkholm/brokerstatements/internal/sheet"
)

// MaxHeaderRun is the longest run of adjacent cells joined when a header is
// split across cells.
const MaxHeaderRun = 3

// Position locates a resolved column. Row is the header row that matched.
type Position struct {
	Row int
	Col int
}

// HeaderMapping resolves column ids to physical positions for one table.
// Optional columns that did not match are absent from the map.
type HeaderMapping map[ColumnID]Position

// Has reports whether the column was resolved.
func (m HeaderMapping) Has(id ColumnID) bool {
	_, ok := m[id]
	return ok
}

var dashReplacer = strings.NewReplacer(
	"‐", "-", "‑", "-", "‒", "-",
	"–", "-", "—", "-", "−", "-",
)

// normalize prepares text for header and marker comparison: compatibility
// normalization, case folding, ё as е, dash variants as '-', and runs of
// whitespace (including non-breaking spaces and line breaks) as one space.
func normalize(s string) string {
	s = norm.NFKC.String(s)
	s = cases.Fold().String(s)
	s = strings.ReplaceAll(s, "ё", "е")
	s = dashReplacer.Replace(s)
	return strings.Join(strings.Fields(s), " ")
}

// phraseMatches reports whether every word of p occurs in text in order,
// each after the end of the previous one. text must be normalized.
func phraseMatches(text string, p Phrase) bool {
	if text == "" {
		return false
	}
	rest := text
	for _, w := range p {
		w = normalize(w)
		i := strings.Index(rest, w)
		if i < 0 {
			return false
		}
		rest = rest[i+len(w):]
	}
	return true
}

// headerGrid is the normalized text of a header region.
type headerGrid struct {
	first int        // sheet row of texts[0]
	texts [][]string // [row][col]
	width int
}

func newHeaderGrid(sh *sheet.Sheet, first, rows int) headerGrid {
	g := headerGrid{first: first, texts: make([][]string, rows)}
	for r := 0; r < rows; r++ {
		cells := sh.Row(first + r)
		line := make([]string, len(cells))
		for c, cell := range cells {
			line[c] = normalize(cell.String())
		}
		g.texts[r] = line
		if len(line) > g.width {
			g.width = len(line)
		}
	}
	return g
}

func (g headerGrid) text(r, c int) string {
	if c < len(g.texts[r]) {
		return g.texts[r][c]
	}
	return ""
}

// find locates the first position where p matches, skipping claimed columns.
// Single cells are tried first, then horizontal runs, then vertical stacks.
func (g headerGrid) find(p Phrase, claimed map[int]bool) (Position, bool) {
	for r := range g.texts {
		for c := 0; c < g.width; c++ {
			if !claimed[c] && phraseMatches(g.text(r, c), p) {
				return Position{Row: g.first + r, Col: c}, true
			}
		}
	}

	for n := 2; n <= MaxHeaderRun; n++ {
		for r := range g.texts {
			for c := 0; c+n <= g.width; c++ {
				if claimed[c] {
					continue
				}
				run, ok := g.run(r, c, n)
				if ok && phraseMatches(run, p) {
					return Position{Row: g.first + r, Col: c}, true
				}
			}
		}
	}

	if len(g.texts) > 1 {
		for c := 0; c < g.width; c++ {
			if claimed[c] {
				continue
			}
			var parts []string
			top := -1
			for r := range g.texts {
				if t := g.text(r, c); t != "" {
					if top < 0 {
						top = r
					}
					parts = append(parts, t)
				}
			}
			if len(parts) > 1 && phraseMatches(strings.Join(parts, " "), p) {
				return Position{Row: g.first + top, Col: c}, true
			}
		}
	}

	return Position{}, false
}

// run joins n adjacent non-blank cells starting at (r, c).
func (g headerGrid) run(r, c, n int) (string, bool) {
	parts := make([]string, 0, n)
	for i := 0; i < n; i++ {
		t := g.text(r, c+i)
		if t == "" {
			return "", false
		}
		parts = append(parts, t)
	}
	return strings.Join(parts, " "), true
}

// MatchHeader resolves cols against the header rows [first, first+rows) of sh.
//
// Columns are resolved in declaration order and a physical column claimed by
// one descriptor is not offered to later ones. A required column that does
// not match returns *MissingColumnError.
func MatchHeader(table string, sh *sheet.Sheet, first, rows int, cols []Column) (HeaderMapping, error) {
	g := newHeaderGrid(sh, first, rows)
	mapping := make(HeaderMapping, len(cols))
	claimed := make(map[int]bool, len(cols))

	for _, col := range cols {
		found := false
		for _, p := range col.Candidates {
			if pos, ok := g.find(p, claimed); ok {
				mapping[col.ID] = pos
				claimed[pos.Col] = true
				found = true
				break
			}
		}
		if !found && col.Required {
			return nil, &MissingColumnError{Table: table, Column: col.ID, Candidates: col.Candidates}
		}
	}
	return mapping, nil
}

// HeaderConflict describes two descriptors whose phrases match the same cell.
type HeaderConflict struct {
	First, Second ColumnID
	Position      Position
}

// HeaderConflicts lists cells of a header region that match phrases of more
// than one descriptor. Overlaps resolved by declaration order (a later
// descriptor whose phrase is contained in an earlier one's header) are
// reported too; format tests use this to review vocabularies.
func HeaderConflicts(sh *sheet.Sheet, first, rows int, cols []Column) []HeaderConflict {
	g := newHeaderGrid(sh, first, rows)

	var out []HeaderConflict
	for r := range g.texts {
		for c := 0; c < g.width; c++ {
			text := g.text(r, c)
			var owner ColumnID
			for _, col := range cols {
				if !anyPhraseMatches(text, col.Candidates) {
					continue
				}
				if owner == "" {
					owner = col.ID
					continue
				}
				out = append(out, HeaderConflict{
					First:    owner,
					Second:   col.ID,
					Position: Position{Row: g.first + r, Col: c},
				})
			}
		}
	}
	return out
}

func anyPhraseMatches(text string, ps []Phrase) bool {
	for _, p := range ps {
		if phraseMatches(text, p) {
			return true
		}
	}
	return false
}
