package models

import (
	"time"

	"github.com/finledger/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// ExchangeRateModel is the persistence model for published exchange
// rates. Rates are not tenant-scoped; they come from a market feed.
type ExchangeRateModel struct {
	BaseModel
	FromCurrency string               `gorm:"type:varchar(3);not null;uniqueIndex:idx_rate_pair_date,priority:1"`
	ToCurrency   string               `gorm:"type:varchar(3);not null;uniqueIndex:idx_rate_pair_date,priority:2"`
	Type         valueobject.RateType `gorm:"type:varchar(10);not null;uniqueIndex:idx_rate_pair_date,priority:3"`
	AsOf         time.Time            `gorm:"not null;uniqueIndex:idx_rate_pair_date,priority:4"`
	Rate         decimal.Decimal      `gorm:"type:decimal(18,8);not null"`
}

// TableName returns the table name for GORM
func (ExchangeRateModel) TableName() string {
	return "exchange_rates"
}

// ToDomain converts the persistence model to a domain ExchangeRate.
func (m *ExchangeRateModel) ToDomain() valueobject.ExchangeRate {
	return valueobject.ExchangeRate{
		From:         valueobject.Currency(m.FromCurrency),
		To:           valueobject.Currency(m.ToCurrency),
		Rate:         m.Rate,
		AsOf:         m.AsOf,
		Type:         m.Type,
		NoConversion: m.FromCurrency == m.ToCurrency,
	}
}

// FromDomain populates the persistence model from a domain ExchangeRate.
func (m *ExchangeRateModel) FromDomain(r valueobject.ExchangeRate) {
	m.FromCurrency = string(r.From)
	m.ToCurrency = string(r.To)
	m.Type = r.Type
	m.AsOf = r.AsOf
	m.Rate = r.Rate
}
