package formats

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// moscow is the time zone of Russian broker statements. A fixed offset keeps
// parsing independent of the host's tz database.
var moscow = time.FixedZone("MSK", 3*60*60)

// currencyAliases maps legacy and spelled-out currency names to ISO codes.
var currencyAliases = map[string]string{
	"RUR":                "RUB",
	"РУБ":                "RUB",
	"РУБ.":               "RUB",
	"РУБЛЬ":              "RUB",
	"РОССИЙСКИЙ РУБЛЬ":   "RUB",
	"ДОЛЛАР США":         "USD",
	"ДОЛЛ. США":          "USD",
	"ЕВРО":               "EUR",
	"КИТАЙСКИЙ ЮАНЬ":     "CNY",
	"ЮАНЬ":               "CNY",
	"ГОНКОНГСКИЙ ДОЛЛАР": "HKD",
	"ФУНТ СТЕРЛИНГОВ":    "GBP",
	"ШВЕЙЦАРСКИЙ ФРАНК":  "CHF",
}

// NormalizeCurrency converts a currency cell to an ISO 4217 code.
// Returns false if the text is neither a known alias nor three Latin letters.
func NormalizeCurrency(raw string) (string, bool) {
	s := strings.ToUpper(strings.Join(strings.Fields(raw), " "))
	if iso, ok := currencyAliases[s]; ok {
		return iso, true
	}
	if len(s) != 3 {
		return "", false
	}
	for _, r := range s {
		if r < 'A' || r > 'Z' {
			return "", false
		}
	}
	return s, true
}

// direction is the side of a trade: +1 buy, -1 sell.
type direction int

const (
	buy  direction = 1
	sell direction = -1
)

// parseDirection reads a trade direction cell.
func parseDirection(raw string) (direction, bool) {
	s := strings.TrimSpace(raw)
	switch {
	case strings.EqualFold(s, "покупка"), strings.EqualFold(s, "купля"), strings.EqualFold(s, "buy"):
		return buy, true
	case strings.EqualFold(s, "продажа"), strings.EqualFold(s, "sell"):
		return sell, true
	}
	return 0, false
}

// count signs a quantity: positive when buying.
func (d direction) count(n int) int {
	return int(d) * n
}

// cash signs an amount paid or received: negative when buying.
func (d direction) cash(v decimal.Decimal) decimal.Decimal {
	if d == buy {
		return v.Neg()
	}
	return v
}

// commission is the negated sum of commission components, the cash effect
// of the fees charged.
func commission(parts ...decimal.Decimal) decimal.Decimal {
	return decimal.Sum(decimal.Zero, parts...).Neg()
}
