package payment

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OverAllocationLimit names which bound an allocation attempt exceeded
type OverAllocationLimit string

const (
	OverAllocationLimitInvoiceBalance OverAllocationLimit = "INVOICE_BALANCE"
	OverAllocationLimitPaymentTotal   OverAllocationLimit = "PAYMENT_TOTAL"
)

// OverAllocationError signals that an allocation would exceed either
// the invoice's outstanding balance or the payment's remaining total.
// No partial allocation is applied.
type OverAllocationError struct {
	Limit     OverAllocationLimit
	Requested decimal.Decimal
	Available decimal.Decimal
}

// Error implements the error interface
func (e *OverAllocationError) Error() string {
	switch e.Limit {
	case OverAllocationLimitInvoiceBalance:
		return fmt.Sprintf("allocation %s exceeds invoice balance %s", e.Requested, e.Available)
	case OverAllocationLimitPaymentTotal:
		return fmt.Sprintf("allocation %s exceeds unallocated payment amount %s", e.Requested, e.Available)
	}
	return fmt.Sprintf("allocation %s exceeds available amount %s", e.Requested, e.Available)
}

// InvoiceNotPostedError signals an allocation attempt against an
// invoice that has not reached the ledger yet.
type InvoiceNotPostedError struct {
	InvoiceID uuid.UUID
}

// Error implements the error interface
func (e *InvoiceNotPostedError) Error() string {
	return fmt.Sprintf("invoice %s is not posted; allocation requires a posted invoice", e.InvoiceID)
}
