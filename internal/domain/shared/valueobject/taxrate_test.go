package valueobject

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTaxRate(t *testing.T) {
	t.Run("creates valid rate", func(t *testing.T) {
		r, err := NewTaxRate("STD", decimal.NewFromFloat(0.05), "AE", TaxCategoryStandard)
		require.NoError(t, err)
		assert.Equal(t, "STD", r.Code)
		assert.Equal(t, "AE", r.Jurisdiction)
	})

	t.Run("rejects empty code", func(t *testing.T) {
		_, err := NewTaxRate("", decimal.NewFromFloat(0.05), "AE", TaxCategoryStandard)
		assert.Error(t, err)
	})

	t.Run("rejects negative rate", func(t *testing.T) {
		_, err := NewTaxRate("STD", decimal.NewFromFloat(-0.05), "AE", TaxCategoryStandard)
		assert.Error(t, err)
	})

	t.Run("rejects rate above one", func(t *testing.T) {
		_, err := NewTaxRate("STD", decimal.NewFromFloat(1.5), "AE", TaxCategoryStandard)
		assert.Error(t, err)
	})

	t.Run("rejects empty jurisdiction", func(t *testing.T) {
		_, err := NewTaxRate("STD", decimal.NewFromFloat(0.05), "", TaxCategoryStandard)
		assert.Error(t, err)
	})

	t.Run("rejects unknown category", func(t *testing.T) {
		_, err := NewTaxRate("STD", decimal.NewFromFloat(0.05), "AE", TaxCategory("WEIRD"))
		assert.Error(t, err)
	})
}

func TestTaxRateCharges(t *testing.T) {
	tests := []struct {
		name     string
		rate     decimal.Decimal
		category TaxCategory
		charges  bool
	}{
		{"standard positive", decimal.NewFromFloat(0.05), TaxCategoryStandard, true},
		{"standard zero rate", decimal.Zero, TaxCategoryStandard, false},
		{"zero rated", decimal.Zero, TaxCategoryZero, false},
		{"exempt", decimal.Zero, TaxCategoryExempt, false},
		{"reverse charge", decimal.Zero, TaxCategoryReverseCharge, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := NewTaxRate("T", tt.rate, "AE", tt.category)
			require.NoError(t, err)
			assert.Equal(t, tt.charges, r.Charges())
		})
	}
}

func TestTaxRateApply(t *testing.T) {
	t.Run("standard rate charges tax", func(t *testing.T) {
		r, err := NewTaxRate("STD", decimal.NewFromFloat(0.05), "AE", TaxCategoryStandard)
		require.NoError(t, err)

		tax := r.Apply(MustMoney(decimal.NewFromInt(1000), AED))
		assert.Equal(t, "50", tax.Amount().String())
		assert.Equal(t, AED, tax.Currency())
	})

	t.Run("tax is banker rounded", func(t *testing.T) {
		r, err := NewTaxRate("STD", decimal.NewFromFloat(0.05), "AE", TaxCategoryStandard)
		require.NoError(t, err)

		// 10.50 * 0.05 = 0.525, ties to even cent
		tax := r.Apply(MustMoney(decimal.RequireFromString("10.50"), AED))
		assert.Equal(t, "0.52", tax.Amount().String())
	})

	t.Run("reverse charge yields zero", func(t *testing.T) {
		r, err := NewTaxRate("RC", decimal.Zero, "AE", TaxCategoryReverseCharge)
		require.NoError(t, err)

		tax := r.Apply(MustMoney(decimal.NewFromInt(1000), USD))
		assert.True(t, tax.IsZero())
		assert.Equal(t, USD, tax.Currency())
	})
}

func newTestSchedule(t *testing.T) TaxSchedule {
	t.Helper()
	std, err := NewTaxRate("STD", decimal.NewFromFloat(0.05), "AE", TaxCategoryStandard)
	require.NoError(t, err)
	zero, err := NewTaxRate("ZERO", decimal.Zero, "AE", TaxCategoryZero)
	require.NoError(t, err)
	s, err := NewTaxSchedule("AE", std, zero)
	require.NoError(t, err)
	return s
}

func TestNewTaxSchedule(t *testing.T) {
	t.Run("rejects rate from another jurisdiction", func(t *testing.T) {
		foreign, err := NewTaxRate("STD", decimal.NewFromFloat(0.15), "SA", TaxCategoryStandard)
		require.NoError(t, err)
		_, err = NewTaxSchedule("AE", foreign)
		assert.Error(t, err)
	})

	t.Run("rejects duplicate codes", func(t *testing.T) {
		a, err := NewTaxRate("STD", decimal.NewFromFloat(0.05), "AE", TaxCategoryStandard)
		require.NoError(t, err)
		b, err := NewTaxRate("STD", decimal.Zero, "AE", TaxCategoryZero)
		require.NoError(t, err)
		_, err = NewTaxSchedule("AE", a, b)
		assert.Error(t, err)
	})
}

func TestTaxScheduleRateFor(t *testing.T) {
	s := newTestSchedule(t)

	r, ok := s.RateFor("STD")
	assert.True(t, ok)
	assert.Equal(t, "STD", r.Code)

	_, ok = s.RateFor("MISSING")
	assert.False(t, ok)
}

func TestTaxRegistryLookup(t *testing.T) {
	registry := NewTaxRegistry(newTestSchedule(t))

	t.Run("resolves known rate", func(t *testing.T) {
		r, err := registry.Lookup("AE", "STD")
		require.NoError(t, err)
		assert.True(t, r.Rate.Equal(decimal.NewFromFloat(0.05)))
	})

	t.Run("fails on unknown jurisdiction", func(t *testing.T) {
		_, err := registry.Lookup("FR", "STD")
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "no tax schedule")
	})

	t.Run("fails on unknown code", func(t *testing.T) {
		_, err := registry.Lookup("AE", "NOPE")
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "no tax rate")
	})
}
