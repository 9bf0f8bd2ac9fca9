package formats

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/JonMunkholm/brokerstatements/internal/core"
)

func TestNormalizeCurrency(t *testing.T) {
	tests := []struct {
		raw    string
		want   string
		wantOK bool
	}{
		{"RUB", "RUB", true},
		{"rur", "RUB", true},
		{" руб. ", "RUB", true},
		{"Российский  рубль", "RUB", true},
		{"Доллар США", "USD", true},
		{"usd", "USD", true},
		{"Китайский юань", "CNY", true},
		{"", "", false},
		{"US", "", false},
		{"USD1", "", false},
		{"Золото", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, ok := NormalizeCurrency(tt.raw)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseDirection(t *testing.T) {
	for raw, want := range map[string]direction{
		"покупка": buy,
		" Купля ": buy,
		"BUY":     buy,
		"Продажа": sell,
		"sell":    sell,
	} {
		got, ok := parseDirection(raw)
		assert.True(t, ok, raw)
		assert.Equal(t, want, got, raw)
	}

	_, ok := parseDirection("погашение")
	assert.False(t, ok)
}

func TestDirectionSigns(t *testing.T) {
	v := decimal.NewFromInt(150)

	assert.Equal(t, 3, buy.count(3))
	assert.Equal(t, -3, sell.count(3))
	assert.True(t, buy.cash(v).Equal(decimal.NewFromInt(-150)))
	assert.True(t, sell.cash(v).Equal(v))
}

func TestCommission(t *testing.T) {
	got := commission(decimal.RequireFromString("1.5"), decimal.RequireFromString("2.5"))
	assert.True(t, got.Equal(decimal.NewFromInt(-4)))

	assert.True(t, commission(decimal.Zero, decimal.Zero).IsZero())
	assert.True(t, commission().IsZero())
}

func TestRegisteredFormats(t *testing.T) {
	for _, key := range []string{"psb", "uralsib", "sber-transactions"} {
		f, ok := core.Get(key)
		if assert.True(t, ok, key) {
			assert.Equal(t, moscow, f.Location, key)
			assert.NotNil(t, f.Detect, key)
		}
	}
}
