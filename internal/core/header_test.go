package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/brokerstatements/internal/sheet"
)

func headerSheet(rows ...[]any) *sheet.Sheet {
	return sheet.FromRows("s", rows)
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"  Кол-во  ", "кол-во"},
		{"КОЛ–ВО", "кол-во"},
		{"Дата и\nвремя", "дата и время"},
		{"Счёт", "счет"},
		{"ＡＢＣ", "abc"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, normalize(tt.in), tt.in)
	}
}

func TestPhraseMatches(t *testing.T) {
	assert.True(t, phraseMatches(normalize("Комиссия торговой системы, руб."), Phrase{"комиссия", "торговой"}))
	assert.False(t, phraseMatches(normalize("Торговая комиссия"), Phrase{"комиссия", "торговая"}), "words must be in order")
	assert.True(t, phraseMatches(normalize("Покупка/Продажа"), Phrase{"покупка", "продажа"}))
	assert.False(t, phraseMatches("", Phrase{"x"}))
}

func TestMatchHeader_DistinctColumnsAnyOrder(t *testing.T) {
	cols := []Column{
		Col("DATE", TypeTimestamp, "дата"),
		Col("VALUE", TypeDecimal, "сумма"),
		Col("CURRENCY", TypeText, "валюта"),
	}
	headers := []string{"Дата", "Сумма", "Валюта"}

	perms := [][]int{{0, 1, 2}, {0, 2, 1}, {1, 0, 2}, {1, 2, 0}, {2, 0, 1}, {2, 1, 0}}
	for _, perm := range perms {
		row := make([]any, 3)
		for pos, h := range perm {
			row[pos] = headers[h]
		}

		m, err := MatchHeader("t", headerSheet(row), 0, 1, cols)
		require.NoError(t, err)

		seen := map[int]bool{}
		for i, col := range cols {
			p, ok := m[col.ID]
			require.True(t, ok, col.ID)
			assert.Equal(t, headers[i], row[p.Col], "perm %v", perm)
			seen[p.Col] = true
		}
		assert.Len(t, seen, 3)
	}
}

func TestMatchHeader_DeclarationOrderClaimsColumns(t *testing.T) {
	sh := headerSheet([]any{"Контракт", "Вид контракта"})
	cols := []Column{
		Col("TYPE", TypeText, "вид контракта"),
		Col("CONTRACT", TypeText, "контракт"),
	}

	m, err := MatchHeader("t", sh, 0, 1, cols)
	require.NoError(t, err)
	assert.Equal(t, 1, m["TYPE"].Col)
	assert.Equal(t, 0, m["CONTRACT"].Col)

	// the same vocabulary is flagged for review
	conflicts := HeaderConflicts(sh, 0, 1, cols)
	require.Len(t, conflicts, 1)
	assert.Equal(t, ColumnID("TYPE"), conflicts[0].First)
	assert.Equal(t, ColumnID("CONTRACT"), conflicts[0].Second)
	assert.Equal(t, Position{Row: 0, Col: 1}, conflicts[0].Position)
}

func TestMatchHeader_CandidatePriority(t *testing.T) {
	sh := headerSheet([]any{"Цена", "Цена, пункты"})
	cols := []Column{
		Col("QUOTE", TypeDecimal, "цена", "пункты").Or("цена"),
	}

	m, err := MatchHeader("t", sh, 0, 1, cols)
	require.NoError(t, err)
	assert.Equal(t, 1, m["QUOTE"].Col, "first candidate wins over a later one matching earlier")
}

func TestMatchHeader_SplitAcrossCells(t *testing.T) {
	sh := headerSheet([]any{"Номер", "Комиссия", "торговой системы", "Комиссия брокера"})
	cols := []Column{
		Col("MARKET", TypeDecimal, "комиссия торговой системы"),
		Col("BROKER", TypeDecimal, "комиссия брокера"),
	}

	m, err := MatchHeader("t", sh, 0, 1, cols)
	require.NoError(t, err)
	assert.Equal(t, 1, m["MARKET"].Col)
	assert.Equal(t, 3, m["BROKER"].Col)
}

func TestMatchHeader_MultiRowHeader(t *testing.T) {
	sh := headerSheet(
		[]any{"ПОЗИЦИЯ ПО ДЕНЕЖНЫМ СРЕДСТВАМ"},
		[]any{"Исходящий", "Код"},
		[]any{"остаток", "валюты"},
	)
	cols := []Column{
		Col("VALUE", TypeCurrency, "исходящий остаток"),
		Col("CURRENCY", TypeText, "код валюты"),
	}

	m, err := MatchHeader("cash", sh, 1, 2, cols)
	require.NoError(t, err)
	assert.Equal(t, Position{Row: 1, Col: 0}, m["VALUE"])
	assert.Equal(t, Position{Row: 1, Col: 1}, m["CURRENCY"])
}

func TestMatchHeader_Missing(t *testing.T) {
	sh := headerSheet([]any{"Дата", "Сумма"})

	_, err := MatchHeader("cash", sh, 0, 1, []Column{
		Col("DATE", TypeTimestamp, "дата"),
		Col("CURRENCY", TypeText, "валюта").Or("код валюты"),
	})

	var mce *MissingColumnError
	require.ErrorAs(t, err, &mce)
	assert.Equal(t, "cash", mce.Table)
	assert.Equal(t, ColumnID("CURRENCY"), mce.Column)
	assert.Len(t, mce.Candidates, 2)
	assert.Contains(t, err.Error(), `"код валюты"`)

	m, err := MatchHeader("cash", sh, 0, 1, []Column{
		Col("DATE", TypeTimestamp, "дата"),
		Col("CURRENCY", TypeText, "валюта").Optional(),
	})
	require.NoError(t, err)
	assert.True(t, m.Has("DATE"))
	assert.False(t, m.Has("CURRENCY"))
}

func TestValidateColumns(t *testing.T) {
	assert.NoError(t, validateColumns("t", []Column{Col("A", TypeText, "a")}))
	assert.Error(t, validateColumns("t", nil))
	assert.Error(t, validateColumns("t", []Column{Col("", TypeText, "a")}))
	assert.Error(t, validateColumns("t", []Column{Col("A", TypeText, "a"), Col("A", TypeText, "b")}))
	assert.Error(t, validateColumns("t", []Column{Col("A", TypeText)}))
	assert.Error(t, validateColumns("t", []Column{Col("A", TypeText, " ")}))
	assert.Error(t, validateColumns("t", []Column{{ID: "A"}}))
}

func TestColumnOrDoesNotAlias(t *testing.T) {
	base := Col("A", TypeText, "a")
	x := base.Or("x")
	y := base.Or("y")

	assert.Len(t, base.Candidates, 1)
	assert.Equal(t, Phrase{"x"}, x.Candidates[1])
	assert.Equal(t, Phrase{"y"}, y.Candidates[1])
}
