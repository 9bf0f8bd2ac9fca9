package core

import (
	"fmt"
	"strings"

	"github.com/JonMunkholm/brokerstatements/internal/sheet"
)

// MatchPolicy controls how a marker is compared with cell text. Both sides
// are normalized first.
type MatchPolicy int

const (
	MatchEquals MatchPolicy = iota
	MatchPrefix
	MatchContains
)

func (p MatchPolicy) matches(text, marker string) bool {
	switch p {
	case MatchPrefix:
		return strings.HasPrefix(text, marker)
	case MatchContains:
		return strings.Contains(text, marker)
	default:
		return text == marker
	}
}

// Layout describes where a table sits in a statement and which columns it has.
type Layout struct {
	// Name identifies the table in errors and logs.
	Name string
	// Sheet restricts the search to one worksheet. Empty searches all
	// worksheets in order and uses the first that contains Start.
	Sheet string
	// Start is the section title above the header. Empty means the header
	// is the first non-blank row of the sheet.
	Start      string
	StartMatch MatchPolicy
	// End is the footer text that terminates the table. Empty means the
	// table ends at the first blank row.
	End      string
	EndMatch MatchPolicy
	// HeaderRows is the number of header rows below the title (default 1).
	HeaderRows int
	// RowsPerRecord groups physical rows into one record (default 1).
	RowsPerRecord int
	Columns       []Column
}

func (l *Layout) headerRows() int {
	if l.HeaderRows <= 0 {
		return 1
	}
	return l.HeaderRows
}

func (l *Layout) rowsPerRecord() int {
	if l.RowsPerRecord <= 0 {
		return 1
	}
	return l.RowsPerRecord
}

func (l *Layout) validate() error {
	if strings.TrimSpace(l.Name) == "" {
		return fmt.Errorf("layout with empty name")
	}
	if l.HeaderRows < 0 || l.RowsPerRecord < 0 {
		return fmt.Errorf("table %q: negative row counts", l.Name)
	}
	return validateColumns(l.Name, l.Columns)
}

// Region is the located span of a table. Data rows are [DataStart, DataEnd).
type Region struct {
	Sheet       *sheet.Sheet
	TitleRow    int // -1 when the layout has no start marker
	HeaderStart int
	HeaderRows  int
	DataStart   int
	DataEnd     int
	// EndFound is false when the end marker never appeared and the span
	// runs to the last row of the sheet.
	EndFound bool
}

// Locate finds the table described by l in wb.
//
// It returns ErrTableNotLocatable when the start marker is not present.
// When the end marker never appears, the table extends to the last row of the
// sheet. Blank-row termination is left to the extractor since it depends on
// the resolved header.
func Locate(wb *sheet.Workbook, l *Layout) (Region, error) {
	sheets := wb.Sheets
	if l.Sheet != "" {
		sh, ok := wb.Sheet(l.Sheet)
		if !ok {
			return Region{}, ErrTableNotLocatable
		}
		sheets = []*sheet.Sheet{sh}
	}

	for _, sh := range sheets {
		if reg, ok := locateIn(sh, l); ok {
			return reg, nil
		}
	}
	return Region{}, ErrTableNotLocatable
}

func locateIn(sh *sheet.Sheet, l *Layout) (Region, bool) {
	reg := Region{Sheet: sh, TitleRow: -1, HeaderRows: l.headerRows()}

	if l.Start == "" {
		first := -1
		for r := 0; r < sh.RowCount(); r++ {
			if !sh.IsBlankRow(r) {
				first = r
				break
			}
		}
		if first < 0 {
			return Region{}, false
		}
		reg.HeaderStart = first
	} else {
		title := findRow(sh, 0, normalize(l.Start), l.StartMatch)
		if title < 0 {
			return Region{}, false
		}
		reg.TitleRow = title
		reg.HeaderStart = title + 1
	}

	reg.DataStart = min(reg.HeaderStart+reg.HeaderRows, sh.RowCount())
	reg.DataEnd = sh.RowCount()
	if l.End != "" {
		if end := findRow(sh, reg.DataStart, normalize(l.End), l.EndMatch); end >= 0 {
			reg.DataEnd = end
			reg.EndFound = true
		}
	}
	return reg, true
}

// findRow returns the first row at or after from with a cell matching marker.
func findRow(sh *sheet.Sheet, from int, marker string, policy MatchPolicy) int {
	for r := from; r < sh.RowCount(); r++ {
		for _, cell := range sh.Row(r) {
			if cell.Kind != sheet.Text {
				continue
			}
			if policy.matches(normalize(cell.Text), marker) {
				return r
			}
		}
	}
	return -1
}
