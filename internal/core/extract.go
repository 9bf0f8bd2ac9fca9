package core

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Row is the coerced values of one record. For multi-row records, the
// accessors read the first physical row and Line gives access to the others.
// A Row is only valid while the mapper runs.
type Row struct {
	index  int
	values map[ColumnID]Value
	lines  []Row
}

// Index is the zero-based sheet row of the record's first line.
func (r Row) Index() int { return r.index }

// Value returns the coerced value of a column; unresolved or blank columns
// give an empty value.
func (r Row) Value(id ColumnID) Value { return r.values[id] }

// Has reports whether the column holds a non-empty value.
func (r Row) Has(id ColumnID) bool { return r.values[id].Kind != ValueEmpty }

// Err returns the coercion error of a DeferErrors column, or nil.
func (r Row) Err(id ColumnID) error { return r.values[id].Err }

// Text returns the trimmed cell text, or "" when empty.
func (r Row) Text(id ColumnID) string { return r.values[id].Raw }

// Int returns an integer column, or 0 when empty.
func (r Row) Int(id ColumnID) int { return int(r.values[id].Int) }

// Int64 returns a long integer column, or 0 when empty.
func (r Row) Int64(id ColumnID) int64 { return r.values[id].Int }

// Decimal returns a numeric column, or zero when empty.
func (r Row) Decimal(id ColumnID) decimal.Decimal {
	return r.DecimalOr(id, decimal.Zero)
}

// DecimalOr returns a numeric column, or def when empty.
func (r Row) DecimalOr(id ColumnID, def decimal.Decimal) decimal.Decimal {
	v := r.values[id]
	if v.Kind != ValueDecimal && v.Kind != ValueInt {
		return def
	}
	return v.Decimal
}

// Time returns a timestamp column, or the zero time when empty.
func (r Row) Time(id ColumnID) time.Time { return r.values[id].Time }

// Lines is the number of physical rows in the record.
func (r Row) Lines() int {
	if len(r.lines) == 0 {
		return 1
	}
	return len(r.lines)
}

// Line returns the i-th physical row of a multi-row record.
func (r Row) Line(i int) Row {
	if len(r.lines) == 0 {
		if i == 0 {
			return r
		}
		return Row{index: r.index + i}
	}
	if i < 0 || i >= len(r.lines) {
		return Row{index: r.index + i}
	}
	return r.lines[i]
}

// extractor reads rows of a located table through a resolved header.
type extractor struct {
	table   string
	region  Region
	header  HeaderMapping
	columns []Column
	coerce  coercer
}

// readLine coerces the resolved columns of one physical row.
func (x *extractor) readLine(r int) (Row, error) {
	row := Row{index: r, values: make(map[ColumnID]Value, len(x.columns))}
	for _, col := range x.columns {
		pos, ok := x.header[col.ID]
		if !ok {
			continue
		}
		cell := x.region.Sheet.Cell(r, pos.Col)
		v, err := x.coerce.coerce(cell, col.Type)
		if err != nil {
			mce := &MalformedCellError{
				Table:  x.table,
				Row:    r,
				Column: col.ID,
				Raw:    cell.String(),
				Type:   col.Type,
				Err:    err,
			}
			if !col.DeferErrors {
				return Row{}, mce
			}
			v = Value{Kind: ValueInvalid, Raw: strings.TrimSpace(cell.String()), Err: mce}
		}
		row.values[col.ID] = v
	}
	return row, nil
}

func anyRequiredColumn(cols []Column) bool {
	for _, c := range cols {
		if c.Required {
			return true
		}
	}
	return false
}

// isBlankLine reports whether every required column of row r is empty.
// Tables without required columns look at all resolved columns.
func (x *extractor) isBlankLine(r int) bool {
	hasRequired := anyRequiredColumn(x.columns)
	for _, col := range x.columns {
		pos, ok := x.header[col.ID]
		if !ok || (hasRequired && !col.Required) {
			continue
		}
		if !x.region.Sheet.Cell(r, pos.Col).IsBlank() {
			return false
		}
	}
	return true
}

// each calls fn for every record between DataStart and the table end.
// The table ends at DataEnd or at the first blank record, whichever is first.
func (x *extractor) each(fn func(Row) error, rowsPerRecord int) error {
	for r := x.region.DataStart; r < x.region.DataEnd; r += rowsPerRecord {
		if x.isBlankLine(r) {
			return nil
		}
		if r+rowsPerRecord > x.region.DataEnd {
			return &PartialRowGroupError{
				Table: x.table,
				Row:   r,
				Want:  rowsPerRecord,
				Got:   x.region.DataEnd - r,
			}
		}

		first, err := x.readLine(r)
		if err != nil {
			return err
		}
		if rowsPerRecord > 1 {
			first.lines = make([]Row, rowsPerRecord)
			first.lines[0] = Row{index: r, values: first.values}
			for i := 1; i < rowsPerRecord; i++ {
				line, err := x.readLine(r + i)
				if err != nil {
					return err
				}
				first.lines[i] = line
			}
		}

		if err := fn(first); err != nil {
			return err
		}
	}
	return nil
}
