package formats

import (
	"context"
	"fmt"
	"strings"

	"github.com/JonMunkholm/brokerstatements/internal/core"
	"github.com/JonMunkholm/brokerstatements/internal/domain"
	"github.com/JonMunkholm/brokerstatements/internal/registry"
)

func init() {
	registerSberTransactions()
}

const (
	sberPortfolio        core.ColumnID = "PORTFOLIO"
	sberTradeID          core.ColumnID = "TRADE_ID"
	sberDateTime         core.ColumnID = "DATE_TIME"
	sberSecurity         core.ColumnID = "SECURITY"
	sberSecurityName     core.ColumnID = "SECURITY_NAME"
	sberSecurityType     core.ColumnID = "SECURITY_TYPE"
	sberMarket           core.ColumnID = "MARKET"
	sberDirection        core.ColumnID = "DIRECTION"
	sberCount            core.ColumnID = "COUNT"
	sberValue            core.ColumnID = "VALUE"
	sberAccruedInterest  core.ColumnID = "ACCRUED_INTEREST"
	sberCurrency         core.ColumnID = "CURRENCY"
	sberMarketCommission core.ColumnID = "MARKET_COMMISSION"
	sberBankCommission   core.ColumnID = "BANK_COMMISSION"
)

// sberTradeColumns are the columns of the trade export, a flat sheet with
// one trade per row and no section title.
var sberTradeColumns = []core.Column{
	core.Col(sberPortfolio, core.TypeText, "номер договора").Optional(),
	core.Col(sberTradeID, core.TypeText, "номер сделки"),
	core.Col(sberDateTime, core.TypeTimestamp, "дата заключения").Or("дата расчетов"),
	core.Col(sberSecurity, core.TypeText, "код финансового инструмента"),
	core.Col(sberSecurityName, core.TypeText, "наименование").Optional(),
	core.Col(sberSecurityType, core.TypeText, "тип финансового инструмента").Or("тип инструмента"),
	core.Col(sberMarket, core.TypeText, "тип рынка").Optional(),
	core.Col(sberDirection, core.TypeText, "операция"),
	core.Col(sberCount, core.TypeInt, "количество"),
	core.Col(sberValue, core.TypeDecimal, "объем сделки").Or("сумма сделки"),
	core.Col(sberAccruedInterest, core.TypeDecimal, "нкд").Optional(),
	core.Col(sberCurrency, core.TypeText, "валюта"),
	core.Col(sberMarketCommission, core.TypeDecimal, "комиссия торговой системы"),
	core.Col(sberBankCommission, core.TypeDecimal, "комиссия банка").Or("комиссия брокера"),
}

var sberTransactions = core.TableSpec[domain.Transaction]{
	Layout: core.Layout{
		Name:    "trades",
		Columns: sberTradeColumns,
	},
	Map: mapSberTransaction,
}

// sberSecurities declares the instruments traded in the export. The same
// sheet is read again with only the instrument columns.
var sberSecurities = core.TableSpec[domain.Security]{
	Layout: core.Layout{
		Name: "securities",
		Columns: []core.Column{
			core.Col(sberSecurity, core.TypeText, "код финансового инструмента"),
			core.Col(sberSecurityName, core.TypeText, "наименование").Optional(),
			core.Col(sberSecurityType, core.TypeText, "тип финансового инструмента").Or("тип инструмента"),
			core.Col(sberMarket, core.TypeText, "тип рынка").Optional(),
		},
	},
	Map: mapSberSecurity,
}

// sberSecurityTypes maps the instrument type column to security types.
var sberSecurityTypes = map[string]domain.SecurityType{
	"акция":                   domain.SecurityStock,
	"акция обыкновенная":      domain.SecurityStock,
	"акция привилегированная": domain.SecurityStock,
	"депозитарная расписка":   domain.SecurityStock,
	"пай":                     domain.SecurityStock,
	"облигация":               domain.SecurityBond,
	"еврооблигация":           domain.SecurityBond,
}

// isCurrencyMarket reports whether the row is a currency exchange trade.
func isCurrencyMarket(row core.Row) bool {
	return strings.Contains(strings.ToLower(row.Text(sberMarket)), "валютный")
}

func securityTypeOf(row core.Row) (domain.SecurityType, error) {
	if isCurrencyMarket(row) {
		return domain.SecurityCurrency, nil
	}
	raw := row.Text(sberSecurityType)
	t, ok := sberSecurityTypes[strings.ToLower(strings.Join(strings.Fields(raw), " "))]
	if !ok {
		return "", core.UnrecognizedCategory(sberSecurityType, raw)
	}
	return t, nil
}

func declareSberSecurity(ctx context.Context, st *core.Statement, row core.Row, typ domain.SecurityType) (int, error) {
	code := row.Text(sberSecurity)
	var (
		id  int
		err error
	)
	if typ == domain.SecurityCurrency {
		id, err = st.Registrar.DeclareCurrencyPair(ctx, code)
	} else {
		id, err = st.Registrar.DeclareSecurity(ctx, code)
	}
	if err != nil {
		return 0, fmt.Errorf("declare %s %q: %w", typ, code, err)
	}
	return id, nil
}

func mapSberSecurity(ctx context.Context, st *core.Statement, row core.Row) ([]domain.Security, error) {
	typ, err := securityTypeOf(row)
	if err != nil {
		return nil, err
	}
	id, err := declareSberSecurity(ctx, st, row, typ)
	if err != nil {
		return nil, err
	}

	code := row.Text(sberSecurity)
	sec := domain.Security{ID: id, Type: typ, Name: row.Text(sberSecurityName)}
	if registry.IsISIN(code) {
		sec.ISIN = strings.ToUpper(code)
	} else {
		sec.Ticker = code
	}

	sec, err = domain.NewSecurity(sec)
	if err != nil {
		return nil, err
	}
	return []domain.Security{sec}, nil
}

func mapSberTransaction(ctx context.Context, st *core.Statement, row core.Row) ([]domain.Transaction, error) {
	dir, ok := parseDirection(row.Text(sberDirection))
	if !ok {
		return nil, core.UnrecognizedCategory(sberDirection, row.Text(sberDirection))
	}
	currency, ok := NormalizeCurrency(row.Text(sberCurrency))
	if !ok {
		return nil, core.UnrecognizedCategory(sberCurrency, row.Text(sberCurrency))
	}
	typ, err := securityTypeOf(row)
	if err != nil {
		return nil, err
	}
	security, err := declareSberSecurity(ctx, st, row, typ)
	if err != nil {
		return nil, err
	}

	portfolio := st.Portfolio
	if row.Has(sberPortfolio) {
		portfolio = row.Text(sberPortfolio)
	}
	fee := commission(row.Decimal(sberMarketCommission), row.Decimal(sberBankCommission))

	var tx domain.Transaction
	if typ == domain.SecurityCurrency {
		tx, err = domain.NewForeignExchangeTransaction(domain.ForeignExchangeTransaction{
			Portfolio:          portfolio,
			TradeID:            row.Text(sberTradeID),
			Timestamp:          row.Time(sberDateTime),
			Security:           security,
			Count:              dir.count(row.Int(sberCount)),
			Value:              dir.cash(row.Decimal(sberValue)),
			Commission:         fee,
			ValueCurrency:      currency,
			CommissionCurrency: domain.RUB,
		})
	} else {
		tx, err = domain.NewSecurityTransaction(domain.SecurityTransaction{
			Portfolio:          portfolio,
			TradeID:            row.Text(sberTradeID),
			Timestamp:          row.Time(sberDateTime),
			Security:           security,
			Count:              dir.count(row.Int(sberCount)),
			Value:              dir.cash(row.Decimal(sberValue)),
			AccruedInterest:    dir.cash(row.Decimal(sberAccruedInterest)),
			Commission:         fee,
			ValueCurrency:      currency,
			CommissionCurrency: domain.RUB,
		})
	}
	if err != nil {
		return nil, err
	}
	return []domain.Transaction{tx}, nil
}

func registerSberTransactions() {
	core.Register(core.Format{
		Key:          "sber-transactions",
		Broker:       "Сбербанк",
		Label:        "Выгрузка сделок",
		Detect:       core.DetectHeader(sberTradeColumns),
		Location:     moscow,
		NumberFormat: core.NumberFormatRU,
		Layouts:      []*core.Layout{&sberSecurities.Layout, &sberTransactions.Layout},
		Tables: core.Tables{
			PortfolioProperties: core.Absent[domain.PortfolioProperty](),
			PortfolioCash:       core.Absent[domain.PortfolioCash](),
			CashFlows:           core.Absent[domain.EventCashFlow](),
			Securities: core.Distinct(sberSecurities.Producer(), func(s domain.Security) int {
				return s.ID
			}),
			Transactions:           sberTransactions.Producer(),
			SecurityEventCashFlows: core.Absent[domain.SecurityEventCashFlow](),
			SecurityQuotes:         core.Absent[domain.SecurityQuote](),
			ForeignExchangeRates:   core.Absent[domain.ForeignExchangeRate](),
		},
	})
}
