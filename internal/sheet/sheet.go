// Package sheet provides the in-memory spreadsheet model consumed by the
// extraction engine, plus loaders for xlsx, xls and csv documents.
//
// A Workbook is a list of named worksheets. Each worksheet is a ragged 2-D
// grid of typed cells. Formula cells carry their last evaluated value, so the
// engine never needs to know whether a value was typed in or computed.
package sheet

import (
	"strconv"
	"strings"
)

// Kind is the type of value held by a cell.
type Kind int

const (
	Blank Kind = iota
	Text
	Number
)

func (k Kind) String() string {
	switch k {
	case Text:
		return "text"
	case Number:
		return "number"
	default:
		return "blank"
	}
}

// Cell is a single spreadsheet cell.
type Cell struct {
	Kind   Kind
	Text   string  // Raw text for Text cells
	Number float64 // Value for Number cells
}

// TextCell returns a Text cell, or a Blank cell when s is empty.
func TextCell(s string) Cell {
	if s == "" {
		return Cell{}
	}
	return Cell{Kind: Text, Text: s}
}

// NumberCell returns a Number cell.
func NumberCell(f float64) Cell {
	return Cell{Kind: Number, Number: f}
}

// IsBlank reports whether the cell has no value or only whitespace.
func (c Cell) IsBlank() bool {
	switch c.Kind {
	case Number:
		return false
	case Text:
		return strings.TrimSpace(c.Text) == ""
	default:
		return true
	}
}

// String renders the cell as text. Integral numbers are printed without a
// fractional part so that "5" and 5.0 look the same to header matching.
func (c Cell) String() string {
	switch c.Kind {
	case Text:
		return c.Text
	case Number:
		return strconv.FormatFloat(c.Number, 'f', -1, 64)
	default:
		return ""
	}
}

// Sheet is one named worksheet.
type Sheet struct {
	Name string
	rows [][]Cell
}

// New creates a worksheet from a grid of cells. The grid is not copied.
func New(name string, rows [][]Cell) *Sheet {
	return &Sheet{Name: name, rows: rows}
}

// RowCount returns the number of physical rows, including trailing blanks.
func (s *Sheet) RowCount() int {
	return len(s.rows)
}

// ColumnCount returns the number of cells stored for the given row.
func (s *Sheet) ColumnCount(row int) int {
	if row < 0 || row >= len(s.rows) {
		return 0
	}
	return len(s.rows[row])
}

// Row returns the cells of a row. Out-of-range rows are empty.
func (s *Sheet) Row(row int) []Cell {
	if row < 0 || row >= len(s.rows) {
		return nil
	}
	return s.rows[row]
}

// Cell returns the cell at (row, col). Out-of-range lookups return a blank cell.
func (s *Sheet) Cell(row, col int) Cell {
	if row < 0 || row >= len(s.rows) {
		return Cell{}
	}
	r := s.rows[row]
	if col < 0 || col >= len(r) {
		return Cell{}
	}
	return r[col]
}

// IsBlankRow reports whether every cell in the row is blank.
func (s *Sheet) IsBlankRow(row int) bool {
	for _, c := range s.Row(row) {
		if !c.IsBlank() {
			return false
		}
	}
	return true
}

// Workbook is a whole spreadsheet document.
type Workbook struct {
	Name   string
	Sheets []*Sheet
}

// Sheet looks up a worksheet by name, ignoring case and surrounding spaces.
func (w *Workbook) Sheet(name string) (*Sheet, bool) {
	want := strings.TrimSpace(name)
	for _, s := range w.Sheets {
		if strings.EqualFold(strings.TrimSpace(s.Name), want) {
			return s, true
		}
	}
	return nil, false
}

// First returns the first worksheet, or nil for an empty workbook.
func (w *Workbook) First() *Sheet {
	if len(w.Sheets) == 0 {
		return nil
	}
	return w.Sheets[0]
}

// SheetNames lists worksheet names in document order.
func (w *Workbook) SheetNames() []string {
	names := make([]string, len(w.Sheets))
	for i, s := range w.Sheets {
		names[i] = s.Name
	}
	return names
}
