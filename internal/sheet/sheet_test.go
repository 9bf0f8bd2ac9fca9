package sheet

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/charmap"
)

func TestCellString(t *testing.T) {
	tests := []struct {
		name string
		cell Cell
		want string
	}{
		{"blank", Cell{}, ""},
		{"text", TextCell("Итого"), "Итого"},
		{"integral number", NumberCell(5), "5"},
		{"fraction", NumberCell(12.25), "12.25"},
		{"negative", NumberCell(-3), "-3"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.cell.String())
		})
	}
}

func TestCellIsBlank(t *testing.T) {
	assert.True(t, Cell{}.IsBlank())
	assert.True(t, TextCell("   ").IsBlank())
	assert.True(t, TextCell("").IsBlank())
	assert.False(t, TextCell("x").IsBlank())
	assert.False(t, NumberCell(0).IsBlank())
}

func TestSheetOutOfRange(t *testing.T) {
	s := FromRows("s", [][]any{
		{"a", 1},
		{nil},
	})

	assert.Equal(t, 2, s.RowCount())
	assert.Equal(t, Text, s.Cell(0, 0).Kind)
	assert.Equal(t, Number, s.Cell(0, 1).Kind)
	assert.Equal(t, Blank, s.Cell(0, 7).Kind)
	assert.Equal(t, Blank, s.Cell(-1, 0).Kind)
	assert.Equal(t, Blank, s.Cell(99, 0).Kind)
	assert.True(t, s.IsBlankRow(1))
	assert.True(t, s.IsBlankRow(99))
	assert.False(t, s.IsBlankRow(0))
}

func TestWorkbookSheetLookup(t *testing.T) {
	wb := NewWorkbook("book", FromRows("Сделки", nil), FromRows("Деньги", nil))

	s, ok := wb.Sheet(" деньги ")
	require.True(t, ok)
	assert.Equal(t, "Деньги", s.Name)

	_, ok = wb.Sheet("missing")
	assert.False(t, ok)

	assert.Equal(t, "Сделки", wb.First().Name)
	assert.Equal(t, []string{"Сделки", "Деньги"}, wb.SheetNames())
	assert.Nil(t, NewWorkbook("empty").First())
}

func TestSniff(t *testing.T) {
	assert.Equal(t, FormatXLSX, Sniff([]byte("PK\x03\x04rest")))
	assert.Equal(t, FormatXLS, Sniff([]byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1, 0}))
	assert.Equal(t, FormatCSV, Sniff([]byte("a;b;c")))
}

func TestOpenEmpty(t *testing.T) {
	_, err := Open("x.csv", nil)
	assert.ErrorIs(t, err, ErrEmptyDocument)
}

func TestReadXLSXKeepsCellTypes(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()

	const s = "Sheet1"
	require.NoError(t, f.SetCellValue(s, "A1", "Контракт"))
	require.NoError(t, f.SetCellValue(s, "C1", "Сумма"))
	require.NoError(t, f.SetCellValue(s, "A2", "007"))
	require.NoError(t, f.SetCellValue(s, "C2", 1234.5))
	require.NoError(t, f.SetCellValue(s, "D2", 42))

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)

	wb, err := Open("report.xlsx", buf.Bytes())
	require.NoError(t, err)
	require.Len(t, wb.Sheets, 1)
	assert.Equal(t, "report.xlsx", wb.Name)

	sh := wb.First()
	assert.Equal(t, "Контракт", sh.Cell(0, 0).Text)
	assert.Equal(t, Blank, sh.Cell(0, 1).Kind)

	// numeric-looking strings stay text
	assert.Equal(t, Text, sh.Cell(1, 0).Kind)
	assert.Equal(t, "007", sh.Cell(1, 0).Text)

	assert.Equal(t, Number, sh.Cell(1, 2).Kind)
	assert.InDelta(t, 1234.5, sh.Cell(1, 2).Number, 1e-9)
	assert.Equal(t, "42", sh.Cell(1, 3).String())
}

func TestReadCSV(t *testing.T) {
	t.Run("utf-8 with bom and semicolons", func(t *testing.T) {
		data := append([]byte{0xEF, 0xBB, 0xBF}, []byte("Дата;Сумма\n01.02.2023;\"1 000,50\"\n")...)

		wb, err := Open("statement.csv", data)
		require.NoError(t, err)

		sh := wb.First()
		assert.Equal(t, "statement", sh.Name)
		assert.Equal(t, "Дата", sh.Cell(0, 0).Text)
		assert.Equal(t, "1 000,50", sh.Cell(1, 1).Text)
	})

	t.Run("windows-1251", func(t *testing.T) {
		enc, err := charmap.Windows1251.NewEncoder().String("Валюта,Остаток\nRUR,10\n")
		require.NoError(t, err)

		wb, err := Open("cash.csv", []byte(enc))
		require.NoError(t, err)

		sh := wb.First()
		assert.Equal(t, "Валюта", sh.Cell(0, 0).Text)
		assert.Equal(t, "Остаток", sh.Cell(0, 1).Text)
		assert.Equal(t, "10", sh.Cell(1, 1).Text)
	})

	t.Run("excel text wrapper", func(t *testing.T) {
		wb, err := Open("ids.csv", []byte("id\n=\"00123\"\n"))
		require.NoError(t, err)
		assert.Equal(t, "00123", wb.First().Cell(1, 0).Text)
	})
}
