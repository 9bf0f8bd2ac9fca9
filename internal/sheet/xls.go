package sheet

import (
	"errors"
	"fmt"
	"io"

	"github.com/extrame/xls"
)

// ReadXLS loads a legacy BIFF (.xls) workbook.
//
// The xls reader exposes every cell as formatted text, so all non-empty
// cells are stored as Text and typed later by column coercion.
func ReadXLS(r io.ReadSeeker) (*Workbook, error) {
	book, err := xls.OpenReader(r, "utf-8")
	if err != nil {
		return nil, fmt.Errorf("open xls: %w", err)
	}
	if book.NumSheets() == 0 {
		return nil, errors.New("open xls: no sheets found")
	}

	wb := &Workbook{}
	for i := 0; i < book.NumSheets(); i++ {
		ws := book.GetSheet(i)
		if ws == nil {
			continue
		}

		grid := make([][]Cell, int(ws.MaxRow)+1)
		for r := 0; r <= int(ws.MaxRow); r++ {
			row := ws.Row(r)
			if row == nil {
				continue
			}
			cells := make([]Cell, row.LastCol())
			for c := row.FirstCol(); c < row.LastCol(); c++ {
				cells[c] = TextCell(row.Col(c))
			}
			grid[r] = cells
		}
		wb.Sheets = append(wb.Sheets, New(ws.Name, grid))
	}
	return wb, nil
}
