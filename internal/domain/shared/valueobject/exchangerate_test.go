package valueobject

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewExchangeRate(t *testing.T) {
	asOf := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)

	t.Run("creates valid rate", func(t *testing.T) {
		r, err := NewExchangeRate(USD, AED, decimal.NewFromFloat(3.6725), asOf, RateTypeSpot)
		require.NoError(t, err)
		assert.Equal(t, USD, r.From)
		assert.Equal(t, AED, r.To)
		assert.False(t, r.NoConversion)
	})

	t.Run("marks identity pairs", func(t *testing.T) {
		r, err := NewExchangeRate(AED, AED, decimal.NewFromInt(1), asOf, RateTypeSpot)
		require.NoError(t, err)
		assert.True(t, r.NoConversion)
	})

	t.Run("rejects invalid currencies", func(t *testing.T) {
		_, err := NewExchangeRate("usd", AED, decimal.NewFromInt(1), asOf, RateTypeSpot)
		assert.Error(t, err)

		_, err = NewExchangeRate(USD, "dirham", decimal.NewFromInt(1), asOf, RateTypeSpot)
		assert.Error(t, err)
	})

	t.Run("rejects non-positive rate", func(t *testing.T) {
		_, err := NewExchangeRate(USD, AED, decimal.Zero, asOf, RateTypeSpot)
		assert.Error(t, err)

		_, err = NewExchangeRate(USD, AED, decimal.NewFromInt(-1), asOf, RateTypeSpot)
		assert.Error(t, err)
	})

	t.Run("rejects unknown rate type", func(t *testing.T) {
		_, err := NewExchangeRate(USD, AED, decimal.NewFromInt(1), asOf, RateType("GUESS"))
		assert.Error(t, err)
	})
}

func TestIdentityRate(t *testing.T) {
	r := IdentityRate(AED)
	assert.True(t, r.NoConversion)
	assert.Equal(t, AED, r.From)
	assert.Equal(t, AED, r.To)
	assert.True(t, r.Rate.Equal(decimal.NewFromInt(1)))
}

func TestExchangeRateConvert(t *testing.T) {
	asOf := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)

	t.Run("converts and rounds", func(t *testing.T) {
		r, err := NewExchangeRate(USD, AED, decimal.NewFromFloat(3.6725), asOf, RateTypeSpot)
		require.NoError(t, err)

		converted, err := r.Convert(MustMoney(decimal.NewFromInt(100), USD))
		require.NoError(t, err)
		assert.Equal(t, AED, converted.Currency())
		// 100 * 3.6725 = 367.25
		assert.Equal(t, "367.25", converted.Amount().String())
	})

	t.Run("identity conversion keeps amount", func(t *testing.T) {
		r := IdentityRate(AED)
		converted, err := r.Convert(MustMoney(decimal.RequireFromString("1050.00"), AED))
		require.NoError(t, err)
		assert.True(t, converted.Amount().Equal(decimal.RequireFromString("1050")))
	})

	t.Run("rejects wrong source currency", func(t *testing.T) {
		r, err := NewExchangeRate(USD, AED, decimal.NewFromFloat(3.6725), asOf, RateTypeSpot)
		require.NoError(t, err)

		_, err = r.Convert(MustMoney(decimal.NewFromInt(100), EUR))
		assert.Error(t, err)
		assert.ErrorIs(t, err, ErrCurrencyMismatch)
	})
}

func TestRateTypeIsValid(t *testing.T) {
	assert.True(t, RateTypeSpot.IsValid())
	assert.True(t, RateTypeAverage.IsValid())
	assert.True(t, RateTypeClosing.IsValid())
	assert.False(t, RateType("FORWARD").IsValid())
}
