package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// TableState is the lifecycle position of one table extraction.
//
//	Unlocated -> Located -> HeaderResolved -> Extracting -> Done
//	Unlocated -> Absent
//	Located, Extracting -> Aborted
type TableState int

const (
	StateUnlocated TableState = iota
	StateLocated
	StateHeaderResolved
	StateExtracting
	StateDone
	StateAbsent
	StateAborted
)

func (s TableState) String() string {
	switch s {
	case StateUnlocated:
		return "unlocated"
	case StateLocated:
		return "located"
	case StateHeaderResolved:
		return "header_resolved"
	case StateExtracting:
		return "extracting"
	case StateDone:
		return "done"
	case StateAbsent:
		return "absent"
	case StateAborted:
		return "aborted"
	default:
		return fmt.Sprintf("TableState(%d)", int(s))
	}
}

// Terminal reports whether no further transitions are possible.
func (s TableState) Terminal() bool {
	return s == StateDone || s == StateAbsent || s == StateAborted
}

// Mapper turns one extracted row into zero or more records. It runs while the
// row is valid and must not keep it.
type Mapper[T any] func(ctx context.Context, st *Statement, row Row) ([]T, error)

// TableSpec binds a table layout to the mapper of its rows.
type TableSpec[T any] struct {
	Layout Layout
	Map    Mapper[T]
}

// Producer returns a producer that extracts this table from a statement.
func (s *TableSpec[T]) Producer() Producer[T] {
	return func(ctx context.Context, st *Statement) ([]T, error) {
		return NewExtraction(st, s).Run(ctx)
	}
}

// Extraction is one table instance of one statement. It is not reusable:
// every statement parse builds fresh extractions and states only move forward.
type Extraction[T any] struct {
	spec *TableSpec[T]
	st   *Statement
	log  *slog.Logger

	state   TableState
	region  Region
	header  HeaderMapping
	records []T
	err     error
}

// NewExtraction prepares an extraction of spec from st.
func NewExtraction[T any](st *Statement, spec *TableSpec[T]) *Extraction[T] {
	return &Extraction[T]{
		spec: spec,
		st:   st,
		log:  st.logger().With("table", spec.Layout.Name),
	}
}

func (e *Extraction[T]) State() TableState     { return e.state }
func (e *Extraction[T]) Region() Region        { return e.region }
func (e *Extraction[T]) Header() HeaderMapping { return e.header }
func (e *Extraction[T]) Err() error            { return e.err }

func (e *Extraction[T]) transition(to TableState) {
	e.log.Debug("table state", "from", e.state, "to", to)
	e.state = to
}

func (e *Extraction[T]) expect(s TableState) error {
	if e.state != s {
		return fmt.Errorf("%w: table %q is %s, want %s", ErrInvalidState, e.spec.Layout.Name, e.state, s)
	}
	return nil
}

func (e *Extraction[T]) abort(err error) error {
	e.err = err
	e.records = nil
	e.transition(StateAborted)
	return err
}

// Locate finds the table region. A missing start marker moves the table to
// Absent and returns ErrTableNotLocatable.
func (e *Extraction[T]) Locate() error {
	if err := e.expect(StateUnlocated); err != nil {
		return err
	}

	region, err := Locate(e.st.Workbook, &e.spec.Layout)
	if errors.Is(err, ErrTableNotLocatable) {
		e.transition(StateAbsent)
		return err
	}
	if err != nil {
		return e.abort(err)
	}

	e.region = region
	if e.spec.Layout.End != "" && !region.EndFound {
		e.log.Debug("end marker not found, table runs to last row",
			"end", e.spec.Layout.End, "last_row", region.DataEnd)
	}
	e.transition(StateLocated)
	return nil
}

// ResolveHeader matches the column descriptors against the header rows.
func (e *Extraction[T]) ResolveHeader() error {
	if err := e.expect(StateLocated); err != nil {
		return err
	}

	l := &e.spec.Layout
	header, err := MatchHeader(l.Name, e.region.Sheet, e.region.HeaderStart, e.region.HeaderRows, l.Columns)
	if err != nil {
		return e.abort(err)
	}
	e.header = header
	e.transition(StateHeaderResolved)
	return nil
}

// Extract reads and maps every row. The whole table is buffered; on error no
// records are returned.
func (e *Extraction[T]) Extract(ctx context.Context) ([]T, error) {
	if err := e.expect(StateHeaderResolved); err != nil {
		return nil, err
	}
	e.transition(StateExtracting)

	l := &e.spec.Layout
	x := &extractor{
		table:   l.Name,
		region:  e.region,
		header:  e.header,
		columns: l.Columns,
		coerce:  e.st.coercer(),
	}

	err := x.each(func(row Row) error {
		recs, err := e.spec.Map(ctx, e.st, row)
		if err != nil {
			return e.rowError(row, err)
		}
		e.records = append(e.records, recs...)
		return nil
	}, l.rowsPerRecord())
	if err != nil {
		return nil, e.abort(err)
	}

	e.transition(StateDone)
	return e.records, nil
}

// Run drives the extraction to a terminal state. An absent table yields no
// records and no error.
func (e *Extraction[T]) Run(ctx context.Context) ([]T, error) {
	if err := e.Locate(); err != nil {
		if errors.Is(err, ErrTableNotLocatable) {
			return nil, nil
		}
		return nil, err
	}
	if err := e.ResolveHeader(); err != nil {
		return nil, err
	}
	return e.Extract(ctx)
}

// rowError attaches table and row context to a mapper failure.
func (e *Extraction[T]) rowError(row Row, err error) error {
	var uc *UnrecognizedCategoryError
	if errors.As(err, &uc) {
		out := *uc
		out.Table = e.spec.Layout.Name
		out.Row = row.Index()
		return &out
	}
	var mc *MalformedCellError
	if errors.As(err, &mc) {
		return err
	}
	return &RowError{Table: e.spec.Layout.Name, Row: row.Index(), Err: err}
}
