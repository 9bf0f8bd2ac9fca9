package core

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/brokerstatements/internal/sheet"
)

func TestParseDecimal(t *testing.T) {
	tests := []struct {
		name string
		nf   NumberFormat
		in   string
		want string
	}{
		{"ru grouped", NumberFormatRU, "1 234,56", "1234.56"},
		{"ru nbsp grouped", NumberFormatRU, "1 234 567,5", "1234567.5"},
		{"ru dot decimal", NumberFormatRU, "1234.56", "1234.56"},
		{"ru dot groups comma decimal", NumberFormatRU, "1.234,56", "1234.56"},
		{"ru comma groups dot decimal", NumberFormatRU, "1,234.56", "1234.56"},
		{"ru dot groups", NumberFormatRU, "1.000.000", "1000000"},
		{"apostrophe groups", NumberFormatRU, "1'000'000,25", "1000000.25"},
		{"parentheses", NumberFormatRU, "(100,5)", "-100.5"},
		{"trailing minus", NumberFormatRU, "100-", "-100"},
		{"unicode minus", NumberFormatRU, "−5", "-5"},
		{"plus sign", NumberFormatRU, "+12", "12"},
		{"en grouped", NumberFormatEN, "1,234.56", "1234.56"},
		{"en comma groups only", NumberFormatEN, "1,234", "1234"},
		{"en strict dot", NumberFormatEN, "0.5", "0.5"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.nf.ParseDecimal(tt.in)
			require.NoError(t, err)
			assert.True(t, decimal.RequireFromString(tt.want).Equal(got), "got %s", got)
		})
	}
}

func TestParseDecimal_Invalid(t *testing.T) {
	for _, in := range []string{"", "  ", "abc", "1e5", "12,3,4.5.6", "-", "()"} {
		_, err := NumberFormatRU.ParseDecimal(in)
		assert.ErrorIs(t, err, errNotNumber, in)
	}
}

func TestParseCurrency(t *testing.T) {
	tests := []struct {
		nf   NumberFormat
		in   string
		want string
	}{
		{NumberFormatRU, "1 234,56 руб.", "1234.56"},
		{NumberFormatRU, "USD 12.5", "12.5"},
		{NumberFormatRU, "-1 000 RUB", "-1000"},
		{NumberFormatEN, "$1,234.56", "1234.56"},
		{NumberFormatEN, "€ 7", "7"},
		{NumberFormatRU, "1 000 р.", "1000"},
		{NumberFormatRU, "15руб", "15"},
		{NumberFormatRU, "руб. 5,5", "5.5"},
		{NumberFormatRU, "100 rub", "100"},
	}
	for _, tt := range tests {
		got, err := tt.nf.ParseCurrency(tt.in)
		require.NoError(t, err, tt.in)
		assert.True(t, decimal.RequireFromString(tt.want).Equal(got), "%s: got %s", tt.in, got)
	}

	for _, in := range []string{"руб.", "1e3", "12 шт 34", "1O0", "12 USD 34", "1 000 штук", "USDRUB 5", "5 р.р."} {
		_, err := NumberFormatRU.ParseCurrency(in)
		assert.ErrorIs(t, err, errNotNumber, in)
	}
}

func TestParseTimestamp(t *testing.T) {
	msk := time.FixedZone("MSK", 3*60*60)

	got, err := ParseTimestamp(sheet.TextCell("15.03.2023  18:45:00"), nil, msk)
	require.NoError(t, err)
	assert.True(t, time.Date(2023, 3, 15, 18, 45, 0, 0, msk).Equal(got))

	got, err = ParseTimestamp(sheet.TextCell("2023-03-15"), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2023, 3, 15, 0, 0, 0, 0, time.UTC), got)

	got, err = ParseTimestamp(sheet.TextCell("15/03/2023"), []string{"02/01/2006"}, time.UTC)
	require.NoError(t, err)
	assert.Equal(t, 15, got.Day())

	_, err = ParseTimestamp(sheet.TextCell("15/03/2023"), nil, time.UTC)
	assert.ErrorIs(t, err, errNotDateTime)
}

func TestParseTimestamp_ExcelSerial(t *testing.T) {
	msk := time.FixedZone("MSK", 3*60*60)

	got, err := ParseTimestamp(sheet.NumberCell(45000.5), nil, msk)
	require.NoError(t, err)
	assert.True(t, time.Date(2023, 3, 15, 12, 0, 0, 0, msk).Equal(got), "got %s", got)
}

func TestCoerce(t *testing.T) {
	c := coercer{numbers: NumberFormatRU, loc: time.UTC}

	v, err := c.coerce(sheet.Cell{}, TypeDecimal)
	require.NoError(t, err)
	assert.Equal(t, ValueEmpty, v.Kind)

	v, err = c.coerce(sheet.TextCell(" 007 "), TypeText)
	require.NoError(t, err)
	assert.Equal(t, "007", v.Text)

	v, err = c.coerce(sheet.NumberCell(3), TypeInt)
	require.NoError(t, err)
	assert.Equal(t, int64(3), v.Int)

	v, err = c.coerce(sheet.TextCell("12 345 678 901"), TypeInt64)
	require.NoError(t, err)
	assert.Equal(t, int64(12345678901), v.Int)

	_, err = c.coerce(sheet.TextCell("1,5"), TypeInt)
	assert.ErrorIs(t, err, errNotInteger)

	v, err = c.coerce(sheet.NumberCell(0.1), TypeDecimal)
	require.NoError(t, err)
	assert.Equal(t, "0.1", v.Decimal.String())
	assert.Equal(t, "0.1", v.Raw)

	v, err = c.coerce(sheet.TextCell("5,00 руб."), TypeCurrency)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(5).Equal(v.Decimal))

	_, err = c.coerce(sheet.TextCell("n/a"), TypeTimestamp)
	assert.ErrorIs(t, err, errNotDateTime)
}
