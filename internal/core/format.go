package core

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/brokerstatements/internal/domain"
	"github.com/JonMunkholm/brokerstatements/internal/registry"
	"github.com/JonMunkholm/brokerstatements/internal/sheet"
)

// Producer yields every record of one kind from a statement.
type Producer[T any] func(ctx context.Context, st *Statement) ([]T, error)

// Absent is the producer of a record kind a format never reports. It yields
// no records without looking at the statement.
func Absent[T any]() Producer[T] {
	return func(context.Context, *Statement) ([]T, error) { return nil, nil }
}

// Concat runs several producers of the same kind in order. A failing producer
// does not discard the records of the others; errors are joined.
func Concat[T any](ps ...Producer[T]) Producer[T] {
	return func(ctx context.Context, st *Statement) ([]T, error) {
		var (
			out  []T
			errs []error
		)
		for _, p := range ps {
			recs, err := p(ctx, st)
			if err != nil {
				errs = append(errs, err)
				continue
			}
			out = append(out, recs...)
		}
		return out, errors.Join(errs...)
	}
}

// Distinct drops records whose key was already produced, keeping the first.
// Formats use it when one instrument appears on many rows of a table.
func Distinct[T any, K comparable](p Producer[T], key func(T) K) Producer[T] {
	return func(ctx context.Context, st *Statement) ([]T, error) {
		recs, err := p(ctx, st)
		if err != nil {
			return nil, err
		}
		seen := make(map[K]bool, len(recs))
		out := recs[:0]
		for _, r := range recs {
			k := key(r)
			if seen[k] {
				continue
			}
			seen[k] = true
			out = append(out, r)
		}
		return out, nil
	}
}

// Tables declares a producer for every record kind. Kinds a format does not
// report must be set to Absent explicitly.
type Tables struct {
	PortfolioProperties    Producer[domain.PortfolioProperty]
	PortfolioCash          Producer[domain.PortfolioCash]
	CashFlows              Producer[domain.EventCashFlow]
	Securities             Producer[domain.Security]
	Transactions           Producer[domain.Transaction]
	SecurityEventCashFlows Producer[domain.SecurityEventCashFlow]
	SecurityQuotes         Producer[domain.SecurityQuote]
	ForeignExchangeRates   Producer[domain.ForeignExchangeRate]
}

func (t Tables) missing() []string {
	var out []string
	check := func(name string, isNil bool) {
		if isNil {
			out = append(out, name)
		}
	}
	check("PortfolioProperties", t.PortfolioProperties == nil)
	check("PortfolioCash", t.PortfolioCash == nil)
	check("CashFlows", t.CashFlows == nil)
	check("Securities", t.Securities == nil)
	check("Transactions", t.Transactions == nil)
	check("SecurityEventCashFlows", t.SecurityEventCashFlows == nil)
	check("SecurityQuotes", t.SecurityQuotes == nil)
	check("ForeignExchangeRates", t.ForeignExchangeRates == nil)
	return out
}

// Format is the declarative definition of one broker statement format.
type Format struct {
	Key    string // Unique identifier: "psb"
	Broker string // Display group: "ПСБ"
	Label  string // Display name

	// Detect reports whether a workbook is in this format. Nil means the
	// format is only used when requested by key.
	Detect func(*sheet.Workbook) bool

	// PortfolioMarker is the label next to the account number, used when
	// the caller does not supply a portfolio.
	PortfolioMarker string

	Location     *time.Location
	NumberFormat NumberFormat
	TimeLayouts  []string

	// Layouts lists the table layouts used by Tables so that they can be
	// validated at registration and adjusted by overrides.
	Layouts []*Layout
	Tables  Tables
}

// DetectText returns a detector that looks for any of the phrases in the
// first rows of every worksheet. Matching is normalized and by substring.
func DetectText(phrases ...string) func(*sheet.Workbook) bool {
	norm := make([]string, len(phrases))
	for i, p := range phrases {
		norm[i] = normalize(p)
	}
	return func(wb *sheet.Workbook) bool {
		return findText(wb, detectRows, func(text string) bool {
			for _, p := range norm {
				if strings.Contains(text, p) {
					return true
				}
			}
			return false
		}) != ""
	}
}

// detectRows bounds how far detectors and the portfolio lookup scan.
const detectRows = 40

// DetectAll returns a detector that accepts a workbook only when every one
// of detectors does.
func DetectAll(detectors ...func(*sheet.Workbook) bool) func(*sheet.Workbook) bool {
	return func(wb *sheet.Workbook) bool {
		for _, d := range detectors {
			if !d(wb) {
				return false
			}
		}
		return len(detectors) > 0
	}
}

// DetectSections returns a detector that accepts a workbook containing the
// section title of any of layouts. Layouts without a title are ignored.
// Titles are read at detection time, so overrides apply.
func DetectSections(layouts ...*Layout) func(*sheet.Workbook) bool {
	return func(wb *sheet.Workbook) bool {
		for _, l := range layouts {
			if l.Start == "" {
				continue
			}
			if _, err := Locate(wb, l); err == nil {
				return true
			}
		}
		return false
	}
}

// DetectHeader returns a detector that accepts a workbook when one of the top
// rows of a worksheet resolves every required column of cols.
func DetectHeader(cols []Column) func(*sheet.Workbook) bool {
	return func(wb *sheet.Workbook) bool {
		for _, sh := range wb.Sheets {
			for r := 0; r < min(detectRows, sh.RowCount()); r++ {
				if sh.IsBlankRow(r) {
					continue
				}
				if _, err := MatchHeader("detect", sh, r, 1, cols); err == nil {
					return true
				}
			}
		}
		return false
	}
}

// findText returns the first normalized cell text in the top rows of wb
// accepted by match.
func findText(wb *sheet.Workbook, rows int, match func(string) bool) string {
	for _, sh := range wb.Sheets {
		for r := 0; r < min(rows, sh.RowCount()); r++ {
			for _, c := range sh.Row(r) {
				if c.IsBlank() {
					continue
				}
				if t := normalize(c.String()); match(t) {
					return t
				}
			}
		}
	}
	return ""
}

// findPortfolio reads the account number next to marker: the rest of the
// marker cell ("Договор: 12345") or the next non-blank cell to the right.
func findPortfolio(wb *sheet.Workbook, marker string) string {
	m := normalize(marker)
	if m == "" {
		return ""
	}
	for _, sh := range wb.Sheets {
		for r := 0; r < min(detectRows, sh.RowCount()); r++ {
			row := sh.Row(r)
			for c, cell := range row {
				if cell.Kind != sheet.Text {
					continue
				}
				text := strings.Join(strings.Fields(cell.Text), " ")
				if !strings.HasPrefix(normalize(text), m) {
					continue
				}
				if rest := strings.Trim(afterMarker(text, m), " :№#"); rest != "" {
					return rest
				}
				for _, next := range row[c+1:] {
					if !next.IsBlank() {
						return strings.TrimSpace(next.String())
					}
				}
			}
		}
	}
	return ""
}

// afterMarker returns the part of text following a normalized marker prefix.
func afterMarker(text, marker string) string {
	words := len(strings.Fields(marker))
	fields := strings.Fields(text)
	if len(fields) <= words {
		return ""
	}
	return strings.Join(fields[words:], " ")
}

// Statement is one statement being parsed. Mappers receive it with every row.
type Statement struct {
	ID        uuid.UUID
	Name      string
	Portfolio string
	Date      time.Time
	Workbook  *sheet.Workbook
	Format    *Format
	Registrar registry.Registrar
	Logger    *slog.Logger
}

func (st *Statement) logger() *slog.Logger {
	if st.Logger != nil {
		return st.Logger
	}
	return slog.Default()
}

func (st *Statement) coercer() coercer {
	c := coercer{numbers: NumberFormatRU, loc: time.UTC}
	if st.Format == nil {
		return c
	}
	if st.Format.NumberFormat.Decimal != 0 {
		c.numbers = st.Format.NumberFormat
	}
	if st.Format.Location != nil {
		c.loc = st.Format.Location
	}
	c.layouts = st.Format.TimeLayouts
	return c
}
