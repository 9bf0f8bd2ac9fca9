package formats

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/JonMunkholm/brokerstatements/internal/core"
	"github.com/JonMunkholm/brokerstatements/internal/domain"
)

func init() {
	registerPsb()
}

const (
	psbDateTime         core.ColumnID = "DATE_TIME"
	psbTradeID          core.ColumnID = "TRADE_ID"
	psbType             core.ColumnID = "TYPE"
	psbContract         core.ColumnID = "CONTRACT"
	psbDirection        core.ColumnID = "DIRECTION"
	psbCount            core.ColumnID = "COUNT"
	psbQuote            core.ColumnID = "QUOTE"
	psbValue            core.ColumnID = "VALUE"
	psbMarketCommission core.ColumnID = "MARKET_COMMISSION"
	psbBrokerCommission core.ColumnID = "BROKER_COMMISSION"

	psbMarket   core.ColumnID = "MARKET"
	psbCurrency core.ColumnID = "CURRENCY"
	psbBalance  core.ColumnID = "BALANCE"
)

// psbExpirations is the futures and options expiration table of the
// derivatives market section.
var psbExpirations = core.TableSpec[domain.Transaction]{
	Layout: core.Layout{
		Name:     "derivative_expirations",
		Start:    "Исполнение контрактов",
		End:      "Итого",
		EndMatch: core.MatchPrefix,
		Columns: []core.Column{
			core.Col(psbDateTime, core.TypeTimestamp, "дата и время"),
			core.Col(psbTradeID, core.TypeInt64, "номер сделки"),
			// before CONTRACT, whose phrase is part of this header
			core.Col(psbType, core.TypeText, "вид контракта"),
			core.Col(psbContract, core.TypeText, "контракт"),
			core.Col(psbDirection, core.TypeText, "покупка", "продажа"),
			core.Col(psbCount, core.TypeInt, "кол-во").Or("количество"),
			// options rows may carry placeholders here
			core.Col(psbQuote, core.TypeDecimal, "цена", "пункты").Lenient(),
			core.Col(psbValue, core.TypeDecimal, "сумма").Lenient(),
			core.Col(psbMarketCommission, core.TypeDecimal, "комиссия торговой системы"),
			core.Col(psbBrokerCommission, core.TypeDecimal, "комиссия брокера"),
		},
	},
	Map: mapPsbExpiration,
}

func mapPsbExpiration(ctx context.Context, st *core.Statement, row core.Row) ([]domain.Transaction, error) {
	dir, ok := parseDirection(row.Text(psbDirection))
	if !ok {
		return nil, core.UnrecognizedCategory(psbDirection, row.Text(psbDirection))
	}
	count := row.Int(psbCount)

	var value, points decimal.Decimal
	switch strings.ToLower(row.Text(psbType)) {
	case "фьючерс":
		for _, id := range []core.ColumnID{psbValue, psbQuote} {
			if err := row.Err(id); err != nil {
				return nil, err
			}
		}
		value = row.Decimal(psbValue)
		points = row.Decimal(psbQuote).Mul(decimal.NewFromInt(int64(count)))
	case "опцион":
		// settles without a cash value
	default:
		return nil, core.UnrecognizedCategory(psbType, row.Text(psbType))
	}

	security, err := st.Registrar.DeclareDerivative(ctx, row.Text(psbContract))
	if err != nil {
		return nil, fmt.Errorf("declare derivative: %w", err)
	}

	tx, err := domain.NewDerivativeTransaction(domain.DerivativeTransaction{
		Portfolio:          st.Portfolio,
		TradeID:            strconv.FormatInt(row.Int64(psbTradeID), 10),
		Timestamp:          row.Time(psbDateTime),
		Security:           security,
		Count:              dir.count(count),
		ValueInPoints:      dir.cash(points),
		Value:              dir.cash(value),
		Commission:         commission(row.Decimal(psbMarketCommission), row.Decimal(psbBrokerCommission)),
		ValueCurrency:      domain.RUB, // the derivatives market settles in rubles only
		CommissionCurrency: domain.RUB,
	})
	if err != nil {
		return nil, err
	}
	return []domain.Transaction{tx}, nil
}

// psbCash is the closing cash position per trading venue and currency.
var psbCash = core.TableSpec[domain.PortfolioCash]{
	Layout: core.Layout{
		Name:  "cash",
		Start: "Денежная позиция",
		Columns: []core.Column{
			core.Col(psbMarket, core.TypeText, "торговая площадка").Optional(),
			core.Col(psbCurrency, core.TypeText, "валюта"),
			core.Col(psbBalance, core.TypeCurrency, "остаток на конец периода").Or("исходящий остаток"),
		},
	},
	Map: mapPsbCash,
}

func mapPsbCash(_ context.Context, st *core.Statement, row core.Row) ([]domain.PortfolioCash, error) {
	currency, ok := NormalizeCurrency(row.Text(psbCurrency))
	if !ok {
		return nil, core.UnrecognizedCategory(psbCurrency, row.Text(psbCurrency))
	}
	section := "all"
	if row.Has(psbMarket) {
		section = row.Text(psbMarket)
	}

	cash, err := domain.NewPortfolioCash(domain.PortfolioCash{
		Portfolio: st.Portfolio,
		Section:   section,
		Value:     row.Decimal(psbBalance),
		Currency:  currency,
		Timestamp: st.Date,
	})
	if err != nil {
		return nil, err
	}
	return []domain.PortfolioCash{cash}, nil
}

// psbDetect requires the broker name and one of the section titles.
var psbDetect = core.DetectAll(
	core.DetectText("Промсвязьбанк"),
	core.DetectSections(&psbExpirations.Layout, &psbCash.Layout),
)

func registerPsb() {
	core.Register(core.Format{
		Key:             "psb",
		Broker:          "ПСБ",
		Label:           "Отчет брокера (срочный рынок)",
		Detect:          psbDetect,
		PortfolioMarker: "Договор",
		Location:        moscow,
		NumberFormat:    core.NumberFormatRU,
		Layouts:         []*core.Layout{&psbExpirations.Layout, &psbCash.Layout},
		Tables: core.Tables{
			PortfolioProperties:    core.Absent[domain.PortfolioProperty](),
			PortfolioCash:          psbCash.Producer(),
			CashFlows:              core.Absent[domain.EventCashFlow](),
			Securities:             core.Absent[domain.Security](),
			Transactions:           psbExpirations.Producer(),
			SecurityEventCashFlows: core.Absent[domain.SecurityEventCashFlow](),
			SecurityQuotes:         core.Absent[domain.SecurityQuote](),
			ForeignExchangeRates:   core.Absent[domain.ForeignExchangeRate](),
		},
	})
}
