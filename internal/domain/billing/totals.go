package billing

import (
	"fmt"

	"github.com/finledger/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// Totals is the derived monetary summary of one document. Subtotal,
// Tax, Total, Paid and Balance are in the document's own currency;
// the Base* figures are in the process base currency.
type Totals struct {
	Currency     valueobject.Currency
	BaseCurrency valueobject.Currency
	Subtotal     decimal.Decimal
	Tax          decimal.Decimal
	Total        decimal.Decimal
	Paid         decimal.Decimal
	Balance      decimal.Decimal
	BaseSubtotal decimal.Decimal
	BaseTax      decimal.Decimal
	BaseTotal    decimal.Decimal
	Rate         valueobject.ExchangeRate
	Rejections   []LineRejection
}

// Calculation is one memoized totals pass over a document. The caller
// constructs it per request with the rate it wants applied; the pass
// runs once and every accessor reuses the same result. Derived totals
// are never cached on the document itself.
type Calculation struct {
	doc  *Document
	base valueobject.Currency
	rate valueobject.ExchangeRate

	done   bool
	totals Totals
	err    error
}

// NewCalculation prepares a totals pass for a document. The rate must
// convert the document currency to the base currency; for same-currency
// documents pass the identity rate.
func NewCalculation(doc *Document, baseCurrency valueobject.Currency, rate valueobject.ExchangeRate) *Calculation {
	return &Calculation{doc: doc, base: baseCurrency, rate: rate}
}

// Totals runs the pass once and returns the memoized result on every
// subsequent call.
func (c *Calculation) Totals() (Totals, error) {
	if !c.done {
		c.totals, c.err = c.compute()
		c.done = true
	}
	return c.totals, c.err
}

// compute performs the tax-then-exchange totals derivation:
// per-line amounts and tax are rounded and summed in the document's
// own currency, and only the aggregate figures are converted. Base tax
// is derived as BaseTotal - BaseSubtotal rather than converted on its
// own, which keeps the posted entry balanced to the cent.
func (c *Calculation) compute() (Totals, error) {
	doc := c.doc
	valid, rejections := doc.ValidLines()
	if len(valid) == 0 {
		return Totals{}, &EmptyDocumentError{DocumentID: doc.ID, Rejections: rejections}
	}

	if doc.Currency != c.base {
		if c.rate.From != doc.Currency || c.rate.To != c.base {
			return Totals{}, fmt.Errorf("rate converts %s to %s, document needs %s to %s",
				c.rate.From, c.rate.To, doc.Currency, c.base)
		}
	}

	subtotal := decimal.Zero
	tax := decimal.Zero
	for _, line := range valid {
		lineAmount := valueobject.Round2(line.Quantity.Mul(line.UnitPrice))
		lineTax := valueobject.Round2(lineAmount.Mul(line.TaxRate))
		subtotal = subtotal.Add(lineAmount)
		tax = tax.Add(lineTax)
	}
	total := subtotal.Add(tax)

	t := Totals{
		Currency:     doc.Currency,
		BaseCurrency: c.base,
		Subtotal:     subtotal,
		Tax:          tax,
		Total:        total,
		Paid:         doc.PaidAmount,
		Balance:      total.Sub(doc.PaidAmount),
		Rate:         c.rate,
		Rejections:   rejections,
	}

	if doc.Currency == c.base {
		t.BaseSubtotal = subtotal
		t.BaseTax = tax
		t.BaseTotal = total
		t.Rate = valueobject.IdentityRate(doc.Currency)
		return t, nil
	}

	baseTotal, err := c.rate.Convert(valueobject.MustMoney(total, doc.Currency))
	if err != nil {
		return Totals{}, err
	}
	baseSubtotal, err := c.rate.Convert(valueobject.MustMoney(subtotal, doc.Currency))
	if err != nil {
		return Totals{}, err
	}
	t.BaseTotal = baseTotal.Amount()
	t.BaseSubtotal = baseSubtotal.Amount()
	t.BaseTax = t.BaseTotal.Sub(t.BaseSubtotal)
	return t, nil
}
