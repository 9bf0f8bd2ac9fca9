package sheet

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ReadXLSX loads an Office Open XML workbook.
//
// Cells are typed from the stored cell type rather than from their text:
// shared, inline and formula strings stay text even when they look numeric,
// while numeric cells (including evaluated formulas) become numbers. Raw
// values are read so that dates arrive as Excel serial numbers.
func ReadXLSX(r io.Reader) (*Workbook, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open xlsx: %w", err)
	}
	defer f.Close()

	wb := &Workbook{}
	for _, name := range f.GetSheetList() {
		rows, err := f.GetRows(name, excelize.Options{RawCellValue: true})
		if err != nil {
			return nil, fmt.Errorf("read sheet %q: %w", name, err)
		}

		grid := make([][]Cell, len(rows))
		for i, row := range rows {
			cells := make([]Cell, len(row))
			for j, raw := range row {
				if raw == "" {
					continue
				}
				ref, err := excelize.CoordinatesToCellName(j+1, i+1)
				if err != nil {
					return nil, fmt.Errorf("sheet %q: %w", name, err)
				}
				typ, err := f.GetCellType(name, ref)
				if err != nil {
					return nil, fmt.Errorf("sheet %q cell %s: %w", name, ref, err)
				}
				cells[j] = xlsxCell(typ, raw)
			}
			grid[i] = cells
		}
		wb.Sheets = append(wb.Sheets, New(name, grid))
	}
	return wb, nil
}

func xlsxCell(typ excelize.CellType, raw string) Cell {
	switch typ {
	case excelize.CellTypeNumber, excelize.CellTypeUnset:
		if f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64); err == nil {
			return NumberCell(f)
		}
	}
	return TextCell(raw)
}
