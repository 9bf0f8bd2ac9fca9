package sheet

import (
	"fmt"
	"strings"
)

// FromRows builds a worksheet from plain Go values.
//
// Accepted values: nil (blank), string (text; empty string is blank), Cell,
// all signed/unsigned integer kinds, float32 and float64 (numbers).
// Anything else is rendered with fmt and stored as text.
func FromRows(name string, rows [][]any) *Sheet {
	grid := make([][]Cell, len(rows))
	for i, row := range rows {
		cells := make([]Cell, len(row))
		for j, v := range row {
			cells[j] = toCell(v)
		}
		grid[i] = cells
	}
	return New(name, grid)
}

// NewWorkbook bundles worksheets into a workbook.
func NewWorkbook(name string, sheets ...*Sheet) *Workbook {
	return &Workbook{Name: name, Sheets: sheets}
}

func toCell(v any) Cell {
	switch x := v.(type) {
	case nil:
		return Cell{}
	case Cell:
		return x
	case string:
		return TextCell(x)
	case int:
		return NumberCell(float64(x))
	case int8:
		return NumberCell(float64(x))
	case int16:
		return NumberCell(float64(x))
	case int32:
		return NumberCell(float64(x))
	case int64:
		return NumberCell(float64(x))
	case uint:
		return NumberCell(float64(x))
	case uint8:
		return NumberCell(float64(x))
	case uint16:
		return NumberCell(float64(x))
	case uint32:
		return NumberCell(float64(x))
	case uint64:
		return NumberCell(float64(x))
	case float32:
		return NumberCell(float64(x))
	case float64:
		return NumberCell(x)
	case bool:
		return TextCell(strings.ToUpper(fmt.Sprint(x)))
	default:
		return TextCell(fmt.Sprint(x))
	}
}
