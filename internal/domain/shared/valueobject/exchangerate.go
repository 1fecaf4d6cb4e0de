package valueobject

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// RateType distinguishes which kind of published rate is being used
type RateType string

const (
	RateTypeSpot    RateType = "SPOT"
	RateTypeAverage RateType = "AVERAGE"
	RateTypeClosing RateType = "CLOSING"
)

// IsValid checks if the rate type is valid
func (t RateType) IsValid() bool {
	switch t {
	case RateTypeSpot, RateTypeAverage, RateTypeClosing:
		return true
	}
	return false
}

// String returns the string representation of RateType
func (t RateType) String() string {
	return string(t)
}

// ExchangeRate is a value object describing a conversion rate between
// two currencies as of a date. NoConversion marks the identity rate
// used when source and target currencies are the same.
type ExchangeRate struct {
	From         Currency        `json:"from"`
	To           Currency        `json:"to"`
	Rate         decimal.Decimal `json:"rate"`
	AsOf         time.Time       `json:"as_of"`
	Type         RateType        `json:"type"`
	NoConversion bool            `json:"no_conversion"`
}

// NewExchangeRate creates a validated ExchangeRate
func NewExchangeRate(from, to Currency, rate decimal.Decimal, asOf time.Time, rateType RateType) (ExchangeRate, error) {
	if !from.IsValid() {
		return ExchangeRate{}, fmt.Errorf("invalid source currency: %q", from)
	}
	if !to.IsValid() {
		return ExchangeRate{}, fmt.Errorf("invalid target currency: %q", to)
	}
	if !rate.IsPositive() {
		return ExchangeRate{}, fmt.Errorf("exchange rate must be positive, got %s", rate)
	}
	if !rateType.IsValid() {
		return ExchangeRate{}, fmt.Errorf("invalid rate type: %q", rateType)
	}
	return ExchangeRate{
		From:         from,
		To:           to,
		Rate:         rate,
		AsOf:         asOf,
		Type:         rateType,
		NoConversion: from == to,
	}, nil
}

// IdentityRate returns the no-conversion rate for a currency
func IdentityRate(currency Currency) ExchangeRate {
	return ExchangeRate{
		From:         currency,
		To:           currency,
		Rate:         decimal.NewFromInt(1),
		AsOf:         time.Now(),
		Type:         RateTypeSpot,
		NoConversion: true,
	}
}

// Convert converts a Money in the source currency to the target
// currency, banker-rounded to monetary precision.
func (r ExchangeRate) Convert(m Money) (Money, error) {
	if m.Currency() != r.From {
		return Money{}, fmt.Errorf("rate converts %s to %s, cannot apply to %s amount: %w",
			r.From, r.To, m.Currency(), ErrCurrencyMismatch)
	}
	if r.NoConversion {
		return m.RoundBank(), nil
	}
	converted := m.Amount().Mul(r.Rate)
	return Money{amount: Round2(converted), currency: r.To}, nil
}

// RateProvider supplies the best-matching exchange rate for a currency
// pair as of a date. Implementations live in the infrastructure layer.
type RateProvider interface {
	RateFor(ctx context.Context, from, to Currency, asOf time.Time, rateType RateType) (ExchangeRate, error)
}
