package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// PortfolioProperty is a named scalar reported for a portfolio, such as the
// total assets valuation on the statement date.
type PortfolioProperty struct {
	Portfolio string    `json:"portfolio" validate:"required"`
	Property  string    `json:"property" validate:"required"`
	Value     string    `json:"value" validate:"required"`
	Timestamp time.Time `json:"timestamp" validate:"required"`
}

func NewPortfolioProperty(p PortfolioProperty) (PortfolioProperty, error) {
	return check("portfolio property", p)
}

// PortfolioCash is a cash balance in one currency.
type PortfolioCash struct {
	Portfolio string          `json:"portfolio" validate:"required"`
	Section   string          `json:"section" validate:"required"`
	Value     decimal.Decimal `json:"value"`
	Currency  string          `json:"currency" validate:"required,len=3,uppercase"`
	Timestamp time.Time       `json:"timestamp"`
}

func NewPortfolioCash(c PortfolioCash) (PortfolioCash, error) {
	return check("portfolio cash", c)
}

// CashFlowType classifies cash movements that are not trades.
type CashFlowType string

const (
	CashFlowDeposit    CashFlowType = "deposit"
	CashFlowWithdrawal CashFlowType = "withdrawal"
	CashFlowTax        CashFlowType = "tax"
	CashFlowFee        CashFlowType = "fee"
	CashFlowDividend   CashFlowType = "dividend"
	CashFlowCoupon     CashFlowType = "coupon"
	CashFlowAmortize   CashFlowType = "amortization"
	CashFlowRedemption CashFlowType = "redemption"
	CashFlowVariation  CashFlowType = "variation_margin"
)

// EventCashFlow is a portfolio-level cash movement.
type EventCashFlow struct {
	Portfolio   string          `json:"portfolio" validate:"required"`
	Timestamp   time.Time       `json:"timestamp" validate:"required"`
	Type        CashFlowType    `json:"type" validate:"required"`
	Value       decimal.Decimal `json:"value"`
	Currency    string          `json:"currency" validate:"required,len=3,uppercase"`
	Description string          `json:"description,omitempty"`
}

func NewEventCashFlow(e EventCashFlow) (EventCashFlow, error) {
	return check("cash flow", e)
}

// SecurityType distinguishes instrument classes.
type SecurityType string

const (
	SecurityStock      SecurityType = "stock"
	SecurityBond       SecurityType = "bond"
	SecurityDerivative SecurityType = "derivative"
	SecurityCurrency   SecurityType = "currency_pair"
	SecurityOther      SecurityType = "other"
)

// Security is a declared instrument. ID is assigned by the security registry.
type Security struct {
	ID     int          `json:"id" validate:"gt=0"`
	Type   SecurityType `json:"type" validate:"required"`
	ISIN   string       `json:"isin,omitempty" validate:"omitempty,len=12,alphanum,uppercase"`
	Ticker string       `json:"ticker,omitempty"`
	Name   string       `json:"name,omitempty" validate:"required_without_all=ISIN Ticker"`
}

func NewSecurity(s Security) (Security, error) {
	return check("security", s)
}

// SecurityEventCashFlow is a cash flow tied to an instrument: coupon,
// dividend, amortization, redemption or derivative variation margin.
type SecurityEventCashFlow struct {
	Portfolio string          `json:"portfolio" validate:"required"`
	Timestamp time.Time       `json:"timestamp" validate:"required"`
	Security  int             `json:"security" validate:"gt=0"`
	Count     int             `json:"count" validate:"gte=0"`
	Type      CashFlowType    `json:"type" validate:"required"`
	Value     decimal.Decimal `json:"value"`
	Currency  string          `json:"currency" validate:"required,len=3,uppercase"`
}

func NewSecurityEventCashFlow(e SecurityEventCashFlow) (SecurityEventCashFlow, error) {
	return check("security cash flow", e)
}

// SecurityQuote is a stored market quote for an instrument.
type SecurityQuote struct {
	Security        int             `json:"security" validate:"gt=0"`
	Timestamp       time.Time       `json:"timestamp" validate:"required"`
	Quote           decimal.Decimal `json:"quote" validate:"gte=0"`
	Price           decimal.Decimal `json:"price" validate:"gte=0"`
	AccruedInterest decimal.Decimal `json:"accruedInterest" validate:"gte=0"`
	Currency        string          `json:"currency,omitempty" validate:"omitempty,len=3,uppercase"`
}

func NewSecurityQuote(q SecurityQuote) (SecurityQuote, error) {
	return check("security quote", q)
}

// ForeignExchangeRate is an official exchange rate for a currency pair,
// for example USDRUB.
type ForeignExchangeRate struct {
	Date         time.Time       `json:"date" validate:"required"`
	CurrencyPair string          `json:"currencyPair" validate:"required,len=6,uppercase"`
	Rate         decimal.Decimal `json:"rate" validate:"gt=0"`
}

func NewForeignExchangeRate(r ForeignExchangeRate) (ForeignExchangeRate, error) {
	return check("exchange rate", r)
}
