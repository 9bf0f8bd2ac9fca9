package core

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/brokerstatements/internal/domain"
	"github.com/JonMunkholm/brokerstatements/internal/registry"
	"github.com/JonMunkholm/brokerstatements/internal/sheet"
)

// StatementInput is one statement to parse.
type StatementInput struct {
	Name     string
	Workbook *sheet.Workbook
	// Format is a registered key. Empty detects the format.
	Format string
	// Portfolio overrides the account number found in the statement.
	Portfolio string
	// DefaultPortfolio is used when neither Portfolio nor the statement
	// provides one.
	DefaultPortfolio string
	// Date stamps records whose table carries no date. Only its calendar
	// day is used, as midnight in the format's zone. Zero means today.
	Date      time.Time
	Registrar registry.Registrar
	Logger    *slog.Logger
}

// TableOutcome summarizes one record kind of a parsed statement.
type TableOutcome struct {
	Table   string `json:"table"`
	Records int    `json:"records"`
	Error   string `json:"error,omitempty"`
}

// Result holds every record of a statement, grouped by kind, in sheet order.
type Result struct {
	StatementID uuid.UUID `json:"statementId"`
	Name        string    `json:"name"`
	Format      string    `json:"format"`
	Portfolio   string    `json:"portfolio"`

	PortfolioProperties    []domain.PortfolioProperty     `json:"portfolioProperties"`
	PortfolioCash          []domain.PortfolioCash         `json:"portfolioCash"`
	CashFlows              []domain.EventCashFlow         `json:"cashFlows"`
	Securities             []domain.Security              `json:"securities"`
	Transactions           []domain.Transaction           `json:"-"`
	SecurityEventCashFlows []domain.SecurityEventCashFlow `json:"securityEventCashFlows"`
	SecurityQuotes         []domain.SecurityQuote         `json:"securityQuotes"`
	ForeignExchangeRates   []domain.ForeignExchangeRate   `json:"foreignExchangeRates"`

	Tables []TableOutcome `json:"tables"`
}

// RecordCount is the total number of records of all kinds.
func (r *Result) RecordCount() int {
	return len(r.PortfolioProperties) + len(r.PortfolioCash) + len(r.CashFlows) +
		len(r.Securities) + len(r.Transactions) + len(r.SecurityEventCashFlows) +
		len(r.SecurityQuotes) + len(r.ForeignExchangeRates)
}

// MarshalJSON tags every transaction with its kind.
func (r *Result) MarshalJSON() ([]byte, error) {
	type plain Result
	return json.Marshal(struct {
		*plain
		Transactions []domain.Tagged `json:"transactions"`
	}{(*plain)(r), domain.TagAll(r.Transactions)})
}

// Table names used in TableError and TableOutcome.
const (
	TablePortfolioProperties    = "portfolio_properties"
	TablePortfolioCash          = "portfolio_cash"
	TableCashFlows              = "cash_flows"
	TableSecurities             = "securities"
	TableTransactions           = "transactions"
	TableSecurityEventCashFlows = "security_event_cash_flows"
	TableSecurityQuotes         = "security_quotes"
	TableForeignExchangeRates   = "foreign_exchange_rates"
)

// ResolveFormat returns the format named by key, or detects it when key is
// empty.
func ResolveFormat(key string, wb *sheet.Workbook) (*Format, error) {
	if key != "" {
		f, ok := Get(key)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownFormat, key)
		}
		return f, nil
	}
	return Detect(wb)
}

// statementDay returns midnight in loc of the calendar day of date, or of
// today when date is zero.
func statementDay(date time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	if date.IsZero() {
		date = time.Now().In(loc)
	}
	y, m, d := date.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

// ParseStatement extracts every table of a statement.
//
// A failing table does not stop the others: its error is wrapped in a
// *TableError and all table errors are joined into the returned error, while
// the Result still carries the records of the tables that succeeded. The
// returned Result is nil only when the format cannot be resolved or the
// context is already done.
func ParseStatement(ctx context.Context, in StatementInput) (*Result, error) {
	if in.Workbook == nil {
		return nil, errors.New("parse statement: no workbook")
	}
	if in.Registrar == nil {
		return nil, errors.New("parse statement: no security registrar")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := ResolveFormat(in.Format, in.Workbook)
	if err != nil {
		return nil, err
	}

	st := &Statement{
		ID:        uuid.New(),
		Name:      in.Name,
		Portfolio: in.Portfolio,
		Date:      in.Date,
		Workbook:  in.Workbook,
		Format:    f,
		Registrar: in.Registrar,
	}
	if st.Portfolio == "" {
		st.Portfolio = findPortfolio(in.Workbook, f.PortfolioMarker)
	}
	if st.Portfolio == "" {
		st.Portfolio = in.DefaultPortfolio
	}
	st.Date = statementDay(in.Date, f.Location)

	log := in.Logger
	if log == nil {
		log = slog.Default()
	}
	st.Logger = log.With("statement_id", st.ID.String(), "format", f.Key, "file", in.Name)
	st.Logger.Info("parsing statement", "portfolio", st.Portfolio)

	res := &Result{
		StatementID: st.ID,
		Name:        in.Name,
		Format:      f.Key,
		Portfolio:   st.Portfolio,
	}

	p := &statementRun{ctx: ctx, st: st, res: res}
	runTable(p, TablePortfolioProperties, f.Tables.PortfolioProperties, &res.PortfolioProperties)
	runTable(p, TablePortfolioCash, f.Tables.PortfolioCash, &res.PortfolioCash)
	runTable(p, TableCashFlows, f.Tables.CashFlows, &res.CashFlows)
	runTable(p, TableSecurities, f.Tables.Securities, &res.Securities)
	runTable(p, TableTransactions, f.Tables.Transactions, &res.Transactions)
	runTable(p, TableSecurityEventCashFlows, f.Tables.SecurityEventCashFlows, &res.SecurityEventCashFlows)
	runTable(p, TableSecurityQuotes, f.Tables.SecurityQuotes, &res.SecurityQuotes)
	runTable(p, TableForeignExchangeRates, f.Tables.ForeignExchangeRates, &res.ForeignExchangeRates)

	st.Logger.Info("statement parsed",
		"records", res.RecordCount(),
		"failed_tables", len(p.errs),
	)
	return res, errors.Join(p.errs...)
}

type statementRun struct {
	ctx  context.Context
	st   *Statement
	res  *Result
	errs []error
}

// runTable runs one producer and records its outcome. The context is checked
// between tables only; a table in progress always runs to completion.
func runTable[T any](p *statementRun, name string, prod Producer[T], dst *[]T) {
	outcome := TableOutcome{Table: name}
	defer func() { p.res.Tables = append(p.res.Tables, outcome) }()

	// absent and failed kinds serialize as [] rather than null
	if *dst == nil {
		*dst = []T{}
	}

	if err := p.ctx.Err(); err != nil {
		p.fail(name, err, &outcome)
		return
	}

	recs, err := prod(p.ctx, p.st)
	*dst = append(*dst, recs...)
	outcome.Records = len(recs)
	if err != nil {
		p.fail(name, err, &outcome)
		return
	}
	p.st.Logger.Info("table extracted", "table", name, "records", len(recs))
}

func (p *statementRun) fail(name string, err error, outcome *TableOutcome) {
	te := &TableError{Format: p.st.Format.Key, Table: name, Err: err}
	outcome.Error = err.Error()
	p.errs = append(p.errs, te)
	p.st.Logger.Warn("table aborted", "table", name, "error", err)
}
