package core

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrTableNotLocatable means the table's start marker is not in the
	// statement. It is not a failure: the table yields no records.
	ErrTableNotLocatable = errors.New("table not locatable")

	// ErrInvalidState is returned when a table lifecycle step is called out
	// of order.
	ErrInvalidState = errors.New("invalid table state")

	// ErrUnknownFormat is returned for a format key that is not registered.
	ErrUnknownFormat = errors.New("unknown statement format")

	// ErrUndetectableFormat is returned when no registered format recognizes
	// a workbook.
	ErrUndetectableFormat = errors.New("statement format could not be detected")

	// ErrAmbiguousFormat is returned when more than one registered format
	// recognizes a workbook.
	ErrAmbiguousFormat = errors.New("statement format is ambiguous")
)

// AmbiguousFormatError lists the formats that all recognized one workbook.
type AmbiguousFormatError struct {
	Keys []string
}

func (e *AmbiguousFormatError) Error() string {
	return fmt.Sprintf("%v: matches %s", ErrAmbiguousFormat, strings.Join(e.Keys, ", "))
}

func (e *AmbiguousFormatError) Unwrap() error { return ErrAmbiguousFormat }

// MissingColumnError reports a required column whose header never matched.
type MissingColumnError struct {
	Table      string
	Column     ColumnID
	Candidates []Phrase
}

func (e *MissingColumnError) Error() string {
	phrases := make([]string, len(e.Candidates))
	for i, p := range e.Candidates {
		phrases[i] = fmt.Sprintf("%q", p.String())
	}
	return fmt.Sprintf("table %q: missing required column %s (looked for %s)",
		e.Table, e.Column, strings.Join(phrases, ", "))
}

// MalformedCellError reports a cell that could not be coerced to its
// column's type. Row is the zero-based sheet row.
type MalformedCellError struct {
	Table  string
	Row    int
	Column ColumnID
	Raw    string
	Type   ColumnType
	Err    error
}

func (e *MalformedCellError) Error() string {
	msg := fmt.Sprintf("table %q row %d column %s: malformed cell %q, expected %s",
		e.Table, e.Row+1, e.Column, e.Raw, e.Type)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *MalformedCellError) Unwrap() error { return e.Err }

// UnrecognizedCategoryError reports a discriminant value (instrument kind,
// trade direction) outside the set a mapper understands. Mappers create it
// with UnrecognizedCategory; the extractor fills in table and row.
type UnrecognizedCategoryError struct {
	Table  string
	Row    int
	Column ColumnID
	Value  string
}

func (e *UnrecognizedCategoryError) Error() string {
	return fmt.Sprintf("table %q row %d column %s: unrecognized category %q",
		e.Table, e.Row+1, e.Column, e.Value)
}

// UnrecognizedCategory is returned by mappers for unknown discriminant values.
func UnrecognizedCategory(column ColumnID, value string) error {
	return &UnrecognizedCategoryError{Column: column, Value: value}
}

// PartialRowGroupError reports a multi-row record cut off by the end of the
// table.
type PartialRowGroupError struct {
	Table string
	Row   int
	Want  int
	Got   int
}

func (e *PartialRowGroupError) Error() string {
	return fmt.Sprintf("table %q row %d: partial row group, %d of %d rows before table end",
		e.Table, e.Row+1, e.Got, e.Want)
}

// RowError wraps any other mapping failure with its table and row.
type RowError struct {
	Table string
	Row   int
	Err   error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("table %q row %d: %v", e.Table, e.Row+1, e.Err)
}

func (e *RowError) Unwrap() error { return e.Err }

// TableError is one failed table of a statement. ParseStatement joins these
// with errors.Join; records of other tables are still returned.
type TableError struct {
	Format string
	Table  string
	Err    error
}

func (e *TableError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Format, e.Table, e.Err)
}

func (e *TableError) Unwrap() error { return e.Err }

// TableErrors flattens a joined statement error into its table errors.
func TableErrors(err error) []*TableError {
	if err == nil {
		return nil
	}

	var out []*TableError
	var walk func(error)
	walk = func(e error) {
		if te, ok := e.(*TableError); ok {
			out = append(out, te)
			return
		}
		if j, ok := e.(interface{ Unwrap() []error }); ok {
			for _, inner := range j.Unwrap() {
				walk(inner)
			}
			return
		}
		if inner := errors.Unwrap(e); inner != nil {
			walk(inner)
		}
	}
	walk(err)
	return out
}
