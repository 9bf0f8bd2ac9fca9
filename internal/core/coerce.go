package core

// coerce.go converts raw cells into typed values.
//
// Statements mix locale conventions: Russian brokers write "1 234,56" while
// exports re-saved by spreadsheet tools may carry "1234.56" or real numeric
// cells. NumberFormat captures the preferred convention per format and still
// accepts the unambiguous alternatives.

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/JonMunkholm/brokerstatements/internal/sheet"
)

var (
	errNotNumber   = errors.New("invalid number")
	errNotInteger  = errors.New("not an integer")
	errNotDateTime = errors.New("invalid date")
)

// NumberFormat describes how numbers are written in text cells.
type NumberFormat struct {
	// Decimal is the preferred decimal separator, '.' or ','.
	Decimal rune
	// Groups are digit grouping characters removed before parsing, besides
	// whitespace which is always removed.
	Groups []rune
	// AcceptOtherDecimal treats a single occurrence of the other separator
	// as a decimal point ("12.5" in a comma-decimal format).
	AcceptOtherDecimal bool
}

var (
	// NumberFormatRU reads "1 234,56" and also "1234.56".
	NumberFormatRU = NumberFormat{Decimal: ',', Groups: []rune{'\'', '’'}, AcceptOtherDecimal: true}
	// NumberFormatEN reads "1,234.56".
	NumberFormatEN = NumberFormat{Decimal: '.', Groups: []rune{'\'', '’'}}
)

// ParseDecimal parses a number written in this format. It accepts a leading
// or trailing minus sign and accounting negatives in parentheses.
func (nf NumberFormat) ParseDecimal(raw string) (decimal.Decimal, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return decimal.Zero, errNotNumber
	}

	neg := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		neg = true
		s = s[1 : len(s)-1]
	}
	s = strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) || containsRune(nf.Groups, r) {
			return -1
		}
		if r == '−' {
			return '-'
		}
		return r
	}, s)
	if strings.HasSuffix(s, "-") {
		neg = !neg
		s = strings.TrimSuffix(s, "-")
	}
	if strings.HasPrefix(s, "-") {
		neg = !neg
		s = s[1:]
	}
	s = strings.TrimPrefix(s, "+")

	s = nf.normalizeSeparators(s)

	d, err := decimal.NewFromString(s)
	if err != nil || s == "" || strings.ContainsAny(s, "eE") {
		return decimal.Zero, fmt.Errorf("%w: %q", errNotNumber, raw)
	}
	if neg {
		d = d.Neg()
	}
	return d, nil
}

// normalizeSeparators rewrites s so that '.' is the only separator left and
// marks the decimal point.
func (nf NumberFormat) normalizeSeparators(s string) string {
	dots := strings.Count(s, ".")
	commas := strings.Count(s, ",")

	switch {
	case dots > 0 && commas > 0:
		// the right-most separator is the decimal point
		if strings.LastIndex(s, ".") > strings.LastIndex(s, ",") {
			return strings.ReplaceAll(s, ",", "")
		}
		s = strings.ReplaceAll(s, ".", "")
		return strings.Replace(s, ",", ".", 1)
	case commas > 0:
		if commas == 1 && (nf.Decimal == ',' || nf.AcceptOtherDecimal) {
			return strings.Replace(s, ",", ".", 1)
		}
		return strings.ReplaceAll(s, ",", "")
	case dots > 1:
		return strings.ReplaceAll(s, ".", "")
	case dots == 1 && nf.Decimal == ',' && !nf.AcceptOtherDecimal:
		return strings.ReplaceAll(s, ".", "")
	default:
		return s
	}
}

// ParseCurrency parses an amount that may carry a currency symbol or code,
// as in "1 234,56 руб." or "$1,234.56". A code is only recognized before or
// after the number; any other letter makes the cell malformed.
func (nf NumberFormat) ParseCurrency(raw string) (decimal.Decimal, error) {
	s := strings.Map(func(r rune) rune {
		if unicode.Is(unicode.Sc, r) {
			return ' '
		}
		return r
	}, raw)
	s = trimCurrencyCode(strings.TrimSpace(s))

	d, err := nf.ParseDecimal(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", errNotNumber, raw)
	}
	return d, nil
}

// trimCurrencyCode removes one currency code from each end of s.
func trimCurrencyCode(s string) string {
	// leading: "USD 12.5", "руб. 100"
	end := 0
	for end < len(s) {
		r, size := utf8.DecodeRuneInString(s[end:])
		if !unicode.IsLetter(r) {
			break
		}
		end += size
	}
	if isCurrencyCode(s[:end]) {
		s = strings.TrimSpace(strings.TrimPrefix(s[end:], "."))
	}

	// trailing: "1 000 RUB", "1 234,56 руб."
	body := strings.TrimSuffix(s, ".")
	start := len(body)
	for start > 0 {
		r, size := utf8.DecodeLastRuneInString(body[:start])
		if !unicode.IsLetter(r) {
			break
		}
		start -= size
	}
	if isCurrencyCode(body[start:]) {
		s = strings.TrimSpace(body[:start])
	}
	return s
}

var rubleAbbreviations = map[string]bool{"руб": true, "р": true}

// isCurrencyCode reports whether word is a three-letter ISO code or a ruble
// abbreviation.
func isCurrencyCode(word string) bool {
	if rubleAbbreviations[strings.ToLower(word)] {
		return true
	}
	if len(word) != 3 {
		return false
	}
	for _, r := range word {
		if r > unicode.MaxASCII || !unicode.IsLetter(r) {
			return false
		}
	}
	return true
}

func containsRune(rs []rune, r rune) bool {
	for _, x := range rs {
		if x == r {
			return true
		}
	}
	return false
}

// DefaultTimeLayouts are tried when a format declares none.
var DefaultTimeLayouts = []string{
	"02.01.2006 15:04:05",
	"02.01.2006 15:04",
	"02.01.2006",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// ParseTimestamp reads a date/time cell. Numeric cells are Excel serial
// dates; text cells must match one of layouts in loc.
func ParseTimestamp(cell sheet.Cell, layouts []string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	if len(layouts) == 0 {
		layouts = DefaultTimeLayouts
	}

	if cell.Kind == sheet.Number {
		t, err := excelize.ExcelDateToTime(cell.Number, false)
		if err != nil {
			return time.Time{}, fmt.Errorf("%w: %v", errNotDateTime, err)
		}
		return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, loc), nil
	}

	s := strings.Join(strings.Fields(cell.Text), " ")
	for _, layout := range layouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", errNotDateTime, cell.Text)
}

// ValueKind is the kind of a coerced value.
type ValueKind int

const (
	ValueEmpty ValueKind = iota
	ValueText
	ValueInt
	ValueDecimal
	ValueTime
	// ValueInvalid is a cell of a DeferErrors column that failed coercion.
	ValueInvalid
)

// Value is a coerced cell. Raw keeps the original text for error messages.
type Value struct {
	Kind    ValueKind
	Raw     string
	Text    string
	Int     int64
	Decimal decimal.Decimal
	Time    time.Time
	Err     error // set for ValueInvalid
}

// coercer converts cells using the settings of one statement format.
type coercer struct {
	numbers NumberFormat
	layouts []string
	loc     *time.Location
}

func (c coercer) coerce(cell sheet.Cell, typ ColumnType) (Value, error) {
	if cell.IsBlank() {
		return Value{Kind: ValueEmpty}, nil
	}
	raw := strings.TrimSpace(cell.String())

	switch typ {
	case TypeText:
		return Value{Kind: ValueText, Raw: raw, Text: raw}, nil

	case TypeInt, TypeInt64:
		d, err := c.number(cell, TypeDecimal)
		if err != nil {
			return Value{}, err
		}
		if !d.IsInteger() {
			return Value{}, errNotInteger
		}
		return Value{Kind: ValueInt, Raw: raw, Int: d.IntPart(), Decimal: d}, nil

	case TypeDecimal, TypeCurrency:
		d, err := c.number(cell, typ)
		if err != nil {
			return Value{}, err
		}
		return Value{Kind: ValueDecimal, Raw: raw, Decimal: d}, nil

	case TypeTimestamp:
		t, err := ParseTimestamp(cell, c.layouts, c.loc)
		if err != nil {
			return Value{}, err
		}
		return Value{Kind: ValueTime, Raw: raw, Time: t}, nil

	default:
		return Value{}, fmt.Errorf("unsupported column type %s", typ)
	}
}

func (c coercer) number(cell sheet.Cell, typ ColumnType) (decimal.Decimal, error) {
	if cell.Kind == sheet.Number {
		return decimal.NewFromFloat(cell.Number), nil
	}
	if typ == TypeCurrency {
		return c.numbers.ParseCurrency(cell.Text)
	}
	return c.numbers.ParseDecimal(cell.Text)
}
