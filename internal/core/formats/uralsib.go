package formats

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/JonMunkholm/brokerstatements/internal/core"
	"github.com/JonMunkholm/brokerstatements/internal/domain"
)

func init() {
	registerUralsib()
}

const (
	uralsibBalance  core.ColumnID = "VALUE"
	uralsibCurrency core.ColumnID = "CURRENCY"
	uralsibRate     core.ColumnID = "RATE"
	uralsibUnits    core.ColumnID = "UNITS"
)

// uralsibCash has a two-row header ("Исходящий" over "остаток") and no
// footer; it ends at the first blank row.
var uralsibCash = core.TableSpec[domain.PortfolioCash]{
	Layout: core.Layout{
		Name:       "cash",
		Start:      "ПОЗИЦИЯ ПО ДЕНЕЖНЫМ СРЕДСТВАМ",
		HeaderRows: 2,
		Columns: []core.Column{
			core.Col(uralsibBalance, core.TypeCurrency, "исходящий остаток"),
			core.Col(uralsibCurrency, core.TypeText, "код валюты"),
		},
	},
	Map: mapUralsibCash,
}

func mapUralsibCash(_ context.Context, st *core.Statement, row core.Row) ([]domain.PortfolioCash, error) {
	currency, ok := NormalizeCurrency(row.Text(uralsibCurrency))
	if !ok {
		return nil, core.UnrecognizedCategory(uralsibCurrency, row.Text(uralsibCurrency))
	}

	cash, err := domain.NewPortfolioCash(domain.PortfolioCash{
		Portfolio: st.Portfolio,
		Section:   "all", // the statement does not split cash by venue
		Value:     row.Decimal(uralsibBalance),
		Currency:  currency,
		Timestamp: st.Date,
	})
	if err != nil {
		return nil, err
	}
	return []domain.PortfolioCash{cash}, nil
}

// uralsibRates lists the central bank rates used for the statement date.
var uralsibRates = core.TableSpec[domain.ForeignExchangeRate]{
	Layout: core.Layout{
		Name:       "exchange_rates",
		Start:      "Курсы валют ЦБ РФ",
		StartMatch: core.MatchPrefix,
		Columns: []core.Column{
			core.Col(uralsibCurrency, core.TypeText, "код валюты").Or("валюта"),
			core.Col(uralsibRate, core.TypeDecimal, "курс"),
			core.Col(uralsibUnits, core.TypeInt, "единиц").Optional(),
		},
	},
	Map: mapUralsibRate,
}

func mapUralsibRate(_ context.Context, st *core.Statement, row core.Row) ([]domain.ForeignExchangeRate, error) {
	currency, ok := NormalizeCurrency(row.Text(uralsibCurrency))
	if !ok {
		return nil, core.UnrecognizedCategory(uralsibCurrency, row.Text(uralsibCurrency))
	}
	if currency == domain.RUB {
		return nil, nil
	}

	rate := row.Decimal(uralsibRate)
	if units := row.Int(uralsibUnits); units > 1 {
		rate = rate.Div(decimal.NewFromInt(int64(units)))
	}

	fx, err := domain.NewForeignExchangeRate(domain.ForeignExchangeRate{
		Date:         st.Date,
		CurrencyPair: currency + domain.RUB,
		Rate:         rate,
	})
	if err != nil {
		return nil, err
	}
	return []domain.ForeignExchangeRate{fx}, nil
}

// uralsibDetect requires the broker name and one of the section titles.
var uralsibDetect = core.DetectAll(
	core.DetectText("УРАЛСИБ"),
	core.DetectSections(&uralsibCash.Layout, &uralsibRates.Layout),
)

func registerUralsib() {
	core.Register(core.Format{
		Key:             "uralsib",
		Broker:          "Уралсиб",
		Label:           "Отчет брокера",
		Detect:          uralsibDetect,
		PortfolioMarker: "Номер договора",
		Location:        moscow,
		NumberFormat:    core.NumberFormatRU,
		Layouts:         []*core.Layout{&uralsibCash.Layout, &uralsibRates.Layout},
		Tables: core.Tables{
			PortfolioProperties:    core.Absent[domain.PortfolioProperty](),
			PortfolioCash:          uralsibCash.Producer(),
			CashFlows:              core.Absent[domain.EventCashFlow](),
			Securities:             core.Absent[domain.Security](),
			Transactions:           core.Absent[domain.Transaction](),
			SecurityEventCashFlows: core.Absent[domain.SecurityEventCashFlow](),
			SecurityQuotes:         core.Absent[domain.SecurityQuote](),
			ForeignExchangeRates:   uralsibRates.Producer(),
		},
	})
}
