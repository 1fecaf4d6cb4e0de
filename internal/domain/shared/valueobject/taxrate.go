package valueobject

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// TaxCategory classifies how a tax rate behaves when applied
type TaxCategory string

const (
	TaxCategoryStandard      TaxCategory = "STANDARD"       // Rate applied on the net amount
	TaxCategoryZero          TaxCategory = "ZERO"           // Taxable at 0% (reported, not charged)
	TaxCategoryExempt        TaxCategory = "EXEMPT"         // Outside the scope of tax
	TaxCategoryReverseCharge TaxCategory = "REVERSE_CHARGE" // Buyer self-accounts; nothing charged on the document
)

// IsValid checks if the tax category is valid
func (c TaxCategory) IsValid() bool {
	switch c {
	case TaxCategoryStandard, TaxCategoryZero, TaxCategoryExempt, TaxCategoryReverseCharge:
		return true
	}
	return false
}

// String returns the string representation of TaxCategory
func (c TaxCategory) String() string {
	return string(c)
}

// TaxRate is a value object describing a tax rate within a jurisdiction.
// The rate is a fraction in [0, 1]; tax is always computed in the
// document's own currency.
type TaxRate struct {
	Code         string          `json:"code"`
	Rate         decimal.Decimal `json:"rate"`
	Jurisdiction string          `json:"jurisdiction"`
	Category     TaxCategory     `json:"category"`
}

// NewTaxRate creates a validated TaxRate
func NewTaxRate(code string, rate decimal.Decimal, jurisdiction string, category TaxCategory) (TaxRate, error) {
	if code == "" {
		return TaxRate{}, fmt.Errorf("tax rate code cannot be empty")
	}
	if rate.IsNegative() || rate.GreaterThan(decimal.NewFromInt(1)) {
		return TaxRate{}, fmt.Errorf("tax rate must be within [0, 1], got %s", rate)
	}
	if jurisdiction == "" {
		return TaxRate{}, fmt.Errorf("tax rate jurisdiction cannot be empty")
	}
	if !category.IsValid() {
		return TaxRate{}, fmt.Errorf("invalid tax category: %q", category)
	}
	return TaxRate{Code: code, Rate: rate, Jurisdiction: jurisdiction, Category: category}, nil
}

// Charges reports whether applying this rate produces a tax amount on
// the document. Zero-rated, exempt and reverse-charge lines carry no tax.
func (t TaxRate) Charges() bool {
	return t.Category == TaxCategoryStandard && t.Rate.IsPositive()
}

// Apply computes the banker-rounded tax for a net amount, in the
// amount's own currency.
func (t TaxRate) Apply(amount Money) Money {
	if !t.Charges() {
		return Zero(amount.Currency())
	}
	return amount.Multiply(t.Rate).RoundBank()
}

// TaxSchedule is the set of tax rates available in one jurisdiction,
// keyed by rate code.
type TaxSchedule struct {
	jurisdiction string
	rates        map[string]TaxRate
}

// NewTaxSchedule builds a schedule from rates belonging to one jurisdiction
func NewTaxSchedule(jurisdiction string, rates ...TaxRate) (TaxSchedule, error) {
	if jurisdiction == "" {
		return TaxSchedule{}, fmt.Errorf("schedule jurisdiction cannot be empty")
	}
	indexed := make(map[string]TaxRate, len(rates))
	for _, r := range rates {
		if r.Jurisdiction != jurisdiction {
			return TaxSchedule{}, fmt.Errorf("rate %s belongs to jurisdiction %s, not %s", r.Code, r.Jurisdiction, jurisdiction)
		}
		if _, dup := indexed[r.Code]; dup {
			return TaxSchedule{}, fmt.Errorf("duplicate rate code %s in schedule %s", r.Code, jurisdiction)
		}
		indexed[r.Code] = r
	}
	return TaxSchedule{jurisdiction: jurisdiction, rates: indexed}, nil
}

// Jurisdiction returns the jurisdiction the schedule covers
func (s TaxSchedule) Jurisdiction() string {
	return s.jurisdiction
}

// RateFor returns the rate for a code, if present
func (s TaxSchedule) RateFor(code string) (TaxRate, bool) {
	r, ok := s.rates[code]
	return r, ok
}

// TaxRegistry dispatches jurisdiction to its tax schedule. Rate selection
// goes through the registry instead of string comparisons at call sites.
type TaxRegistry struct {
	schedules map[string]TaxSchedule
}

// NewTaxRegistry builds a registry from schedules
func NewTaxRegistry(schedules ...TaxSchedule) *TaxRegistry {
	indexed := make(map[string]TaxSchedule, len(schedules))
	for _, s := range schedules {
		indexed[s.jurisdiction] = s
	}
	return &TaxRegistry{schedules: indexed}
}

// ScheduleFor returns the schedule for a jurisdiction, if registered
func (r *TaxRegistry) ScheduleFor(jurisdiction string) (TaxSchedule, bool) {
	s, ok := r.schedules[jurisdiction]
	return s, ok
}

// Lookup resolves a rate code within a jurisdiction, failing loudly on
// an unknown jurisdiction or code.
func (r *TaxRegistry) Lookup(jurisdiction, code string) (TaxRate, error) {
	schedule, ok := r.schedules[jurisdiction]
	if !ok {
		return TaxRate{}, fmt.Errorf("no tax schedule registered for jurisdiction %q", jurisdiction)
	}
	rate, ok := schedule.RateFor(code)
	if !ok {
		return TaxRate{}, fmt.Errorf("no tax rate %q in jurisdiction %q", code, jurisdiction)
	}
	return rate, nil
}
