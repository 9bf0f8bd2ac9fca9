package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionKind tags the concrete type behind a Transaction.
type TransactionKind string

const (
	KindSecurity   TransactionKind = "security"
	KindDerivative TransactionKind = "derivative"
	KindFX         TransactionKind = "fx"
)

// Transaction is any trade record. The three implementations share portfolio,
// trade id, timestamp and security, and differ in their value fields.
type Transaction interface {
	Kind() TransactionKind
	Key() TradeKey
}

// TradeKey identifies a trade within a portfolio.
type TradeKey struct {
	Portfolio string `json:"portfolio"`
	TradeID   string `json:"tradeId"`
}

// SecurityTransaction is a stock or bond trade. Count is positive for buys
// and negative for sells; Value and Commission are signed cash effects.
type SecurityTransaction struct {
	Portfolio          string          `json:"portfolio" validate:"required"`
	TradeID            string          `json:"tradeId" validate:"required"`
	Timestamp          time.Time       `json:"timestamp" validate:"required"`
	Security           int             `json:"security" validate:"gt=0"`
	Count              int             `json:"count" validate:"ne=0"`
	Value              decimal.Decimal `json:"value"`
	AccruedInterest    decimal.Decimal `json:"accruedInterest"`
	Commission         decimal.Decimal `json:"commission"`
	ValueCurrency      string          `json:"valueCurrency" validate:"required,len=3,uppercase"`
	CommissionCurrency string          `json:"commissionCurrency" validate:"required,len=3,uppercase"`
}

func NewSecurityTransaction(t SecurityTransaction) (SecurityTransaction, error) {
	return check("security transaction", t)
}

func (t SecurityTransaction) Kind() TransactionKind { return KindSecurity }
func (t SecurityTransaction) Key() TradeKey {
	return TradeKey{Portfolio: t.Portfolio, TradeID: t.TradeID}
}

// DerivativeTransaction is a futures or option trade or expiration.
// ValueInPoints is the contract value in quote points; Value is in currency.
type DerivativeTransaction struct {
	Portfolio          string          `json:"portfolio" validate:"required"`
	TradeID            string          `json:"tradeId" validate:"required"`
	Timestamp          time.Time       `json:"timestamp" validate:"required"`
	Security           int             `json:"security" validate:"gt=0"`
	Count              int             `json:"count"`
	ValueInPoints      decimal.Decimal `json:"valueInPoints"`
	Value              decimal.Decimal `json:"value"`
	Commission         decimal.Decimal `json:"commission"`
	ValueCurrency      string          `json:"valueCurrency" validate:"required,len=3,uppercase"`
	CommissionCurrency string          `json:"commissionCurrency" validate:"required,len=3,uppercase"`
}

func NewDerivativeTransaction(t DerivativeTransaction) (DerivativeTransaction, error) {
	return check("derivative transaction", t)
}

func (t DerivativeTransaction) Kind() TransactionKind { return KindDerivative }
func (t DerivativeTransaction) Key() TradeKey {
	return TradeKey{Portfolio: t.Portfolio, TradeID: t.TradeID}
}

// ForeignExchangeTransaction is a currency conversion trade. Security is the
// registry id of the currency pair.
type ForeignExchangeTransaction struct {
	Portfolio          string          `json:"portfolio" validate:"required"`
	TradeID            string          `json:"tradeId" validate:"required"`
	Timestamp          time.Time       `json:"timestamp" validate:"required"`
	Security           int             `json:"security" validate:"gt=0"`
	Count              int             `json:"count" validate:"ne=0"`
	Value              decimal.Decimal `json:"value"`
	Commission         decimal.Decimal `json:"commission"`
	ValueCurrency      string          `json:"valueCurrency" validate:"required,len=3,uppercase"`
	CommissionCurrency string          `json:"commissionCurrency" validate:"required,len=3,uppercase"`
}

func NewForeignExchangeTransaction(t ForeignExchangeTransaction) (ForeignExchangeTransaction, error) {
	return check("fx transaction", t)
}

func (t ForeignExchangeTransaction) Kind() TransactionKind { return KindFX }
func (t ForeignExchangeTransaction) Key() TradeKey {
	return TradeKey{Portfolio: t.Portfolio, TradeID: t.TradeID}
}

// Tagged pairs a transaction with its kind for JSON output, where the
// concrete type would otherwise be lost.
type Tagged struct {
	Kind   TransactionKind `json:"kind"`
	Record Transaction     `json:"record"`
}

// TagAll wraps every transaction with its kind.
func TagAll(txs []Transaction) []Tagged {
	out := make([]Tagged, len(txs))
	for i, t := range txs {
		out[i] = Tagged{Kind: t.Kind(), Record: t}
	}
	return out
}
