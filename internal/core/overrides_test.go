package core

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/brokerstatements/internal/sheet"
)

// registerOverrideFormat registers a fresh layout so that overrides do not leak
// into layouts shared by other tests.
func registerOverrideFormat(t *testing.T) *TableSpec[flow] {
	t.Helper()
	Clear()
	t.Cleanup(Clear)

	spec := flowSpec()
	Register(Format{
		Key:     "ov",
		Broker:  "Тест",
		Layouts: []*Layout{&spec.Layout},
		Tables:  absentTables(),
	})
	return spec
}

const overridesYAML = `
formats:
  ov:
    portfolio_marker: "Счет"
    tables:
      cash_moves:
        start: "Операции с денежными средствами"
        header_rows: 1
        columns:
          VALUE:
            - ["сумма", "руб"]
            - ["итого", "операции"]
`

func TestApplyOverrides(t *testing.T) {
	spec := registerOverrideFormat(t)

	ov, err := ParseOverrides([]byte(overridesYAML))
	require.NoError(t, err)
	require.NoError(t, ApplyOverrides(ov))

	f, _ := Get("ov")
	assert.Equal(t, "Счет", f.PortfolioMarker)
	assert.Equal(t, "Операции с денежными средствами", spec.Layout.Start)
	assert.Equal(t, "Итого", spec.Layout.End, "unset fields are kept")

	value := spec.Layout.Columns[2]
	require.Len(t, value.Candidates, 3)
	assert.Equal(t, Phrase{"сумма"}, value.Candidates[0])
	assert.Equal(t, Phrase{"итого", "операции"}, value.Candidates[2])

	st := &Statement{Workbook: sheet.NewWorkbook("x", sheet.FromRows("s", [][]any{
		{"Операции с денежными средствами"},
		{"Дата", "Операция", "Итого по операции"},
		{"01.02.2023", "Зачисление", 10},
	}))}
	recs, err := NewExtraction(st, spec).Run(context.Background())
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "10", recs[0].Value.String())
}

func TestApplyOverrides_AllOrNothing(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"unknown format", "formats:\n  nope:\n    portfolio_marker: x\n"},
		{"unknown table", "formats:\n  ov:\n    tables:\n      trades:\n        start: x\n"},
		{"unknown column", "formats:\n  ov:\n    portfolio_marker: x\n    tables:\n      cash_moves:\n        start: x\n        columns:\n          PRICE: [[\"цена\"]]\n"},
		{"empty phrase", "formats:\n  ov:\n    tables:\n      cash_moves:\n        columns:\n          VALUE: [[]]\n"},
		{"bad header rows", "formats:\n  ov:\n    tables:\n      cash_moves:\n        header_rows: 0\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec := registerOverrideFormat(t)

			ov, err := ParseOverrides([]byte(tt.yaml))
			require.NoError(t, err)
			assert.Error(t, ApplyOverrides(ov))

			f, _ := Get("ov")
			assert.Empty(t, f.PortfolioMarker)
			assert.Equal(t, "Движение денежных средств", spec.Layout.Start)
			assert.Len(t, spec.Layout.Columns[2].Candidates, 1)
		})
	}
}

func TestParseOverrides(t *testing.T) {
	ov, err := ParseOverrides(nil)
	require.NoError(t, err)
	assert.Empty(t, ov.Formats)

	_, err = ParseOverrides([]byte("formats:\n  ov:\n    colour: red\n"))
	assert.Error(t, err, "unknown keys are rejected")
}

func TestLoadOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "overrides.yaml")
	require.NoError(t, os.WriteFile(path, []byte(overridesYAML), 0o600))

	ov, err := LoadOverrides(path)
	require.NoError(t, err)
	assert.Contains(t, ov.Formats, "ov")

	_, err = LoadOverrides(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
