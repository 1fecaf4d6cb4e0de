package payment

import (
	"fmt"
	"time"

	"github.com/finledger/backend/internal/domain/shared"
	"github.com/finledger/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentType distinguishes money received from money paid out
type PaymentType string

const (
	PaymentTypeReceipt      PaymentType = "RECEIPT"      // Money received from a customer
	PaymentTypeDisbursement PaymentType = "DISBURSEMENT" // Money paid to a supplier
)

// IsValid checks if the payment type is valid
func (t PaymentType) IsValid() bool {
	return t == PaymentTypeReceipt || t == PaymentTypeDisbursement
}

// String returns the string representation of PaymentType
func (t PaymentType) String() string {
	return string(t)
}

// PaymentState is the lifecycle of a payment
type PaymentState string

const (
	PaymentStateDraft     PaymentState = "DRAFT"
	PaymentStateConfirmed PaymentState = "CONFIRMED" // Funds confirmed, allocations allowed
	PaymentStateAllocated PaymentState = "ALLOCATED" // Fully allocated to invoices
	PaymentStateCancelled PaymentState = "CANCELLED"
)

// IsValid checks if the state is a valid PaymentState
func (s PaymentState) IsValid() bool {
	switch s {
	case PaymentStateDraft, PaymentStateConfirmed, PaymentStateAllocated, PaymentStateCancelled:
		return true
	}
	return false
}

// String returns the string representation of PaymentState
func (s PaymentState) String() string {
	return string(s)
}

// CanAllocate returns true if allocations can be made in this state
func (s PaymentState) CanAllocate() bool {
	return s == PaymentStateConfirmed
}

// IsTerminal returns true if the payment is in a terminal state
func (s PaymentState) IsTerminal() bool {
	return s == PaymentStateAllocated || s == PaymentStateCancelled
}

// PaymentAllocation assigns part of a payment to one invoice. Amount
// is stored in the invoice's currency; Rate is the invoice-to-payment
// conversion captured at allocation time for audit, which may differ
// from the rate the invoice was posted at.
type PaymentAllocation struct {
	ID                uuid.UUID            `json:"id"`
	PaymentID         uuid.UUID            `json:"payment_id"`
	InvoiceID         uuid.UUID            `json:"invoice_id"`
	InvoiceNumber     string               `json:"invoice_number"`
	Amount            decimal.Decimal      `json:"amount"`
	InvoiceCurrency   valueobject.Currency `json:"invoice_currency"`
	Rate              decimal.Decimal      `json:"rate"`
	AmountInPayCcy    decimal.Decimal      `json:"amount_in_payment_currency"`
	AllocatedAt       time.Time            `json:"allocated_at"`
}

// Payment is the aggregate root for money received or paid. It owns
// its allocations; an allocation never outlives its payment.
type Payment struct {
	shared.TenantAggregateRoot
	PaymentNumber   string
	Type            PaymentType
	PartyID         uuid.UUID
	PartyName       string
	PaymentDate     time.Time
	TotalAmount     decimal.Decimal
	Currency        valueobject.Currency
	BankAccountCode string
	State           PaymentState
	AllocatedAmount decimal.Decimal // In payment currency
	Allocations     []PaymentAllocation
	PostedAt        *time.Time
	JournalEntryID  *uuid.UUID
	CancelledAt     *time.Time
	CancelReason    string
}

// NewPayment creates a draft payment
func NewPayment(
	tenantID uuid.UUID,
	paymentNumber string,
	paymentType PaymentType,
	partyID uuid.UUID,
	partyName string,
	amount valueobject.Money,
	bankAccountCode string,
	paymentDate time.Time,
) (*Payment, error) {
	if paymentNumber == "" {
		return nil, shared.NewDomainError("INVALID_PAYMENT_NUMBER", "Payment number cannot be empty")
	}
	if len(paymentNumber) > 50 {
		return nil, shared.NewDomainError("INVALID_PAYMENT_NUMBER", "Payment number cannot exceed 50 characters")
	}
	if !paymentType.IsValid() {
		return nil, shared.NewDomainError("INVALID_PAYMENT_TYPE", "Payment type is not valid")
	}
	if partyID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_PARTY", "Party ID cannot be empty")
	}
	if partyName == "" {
		return nil, shared.NewDomainError("INVALID_PARTY_NAME", "Party name cannot be empty")
	}
	if !amount.IsPositive() {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Payment amount must be positive")
	}
	if bankAccountCode == "" {
		return nil, shared.NewDomainError("INVALID_BANK_ACCOUNT", "Bank account code cannot be empty")
	}
	if paymentDate.IsZero() {
		return nil, shared.NewDomainError("INVALID_PAYMENT_DATE", "Payment date is required")
	}

	p := &Payment{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		PaymentNumber:       paymentNumber,
		Type:                paymentType,
		PartyID:             partyID,
		PartyName:           partyName,
		PaymentDate:         paymentDate,
		TotalAmount:         amount.Amount(),
		Currency:            amount.Currency(),
		BankAccountCode:     bankAccountCode,
		State:               PaymentStateDraft,
		AllocatedAmount:     decimal.Zero,
		Allocations:         make([]PaymentAllocation, 0),
	}
	p.AddDomainEvent(NewPaymentCreatedEvent(p))
	return p, nil
}

// Confirm confirms receipt of funds and opens the payment for allocation
func (p *Payment) Confirm() error {
	if p.State != PaymentStateDraft {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot confirm a %s payment", p.State))
	}
	p.State = PaymentStateConfirmed
	p.UpdatedAt = time.Now()
	p.IncrementVersion()
	p.AddDomainEvent(NewPaymentConfirmedEvent(p))
	return nil
}

// UnallocatedAmount returns the payment-currency amount not yet
// assigned to any invoice.
func (p *Payment) UnallocatedAmount() decimal.Decimal {
	return p.TotalAmount.Sub(p.AllocatedAmount)
}

// Allocate assigns part of the payment to an invoice. amount is in the
// invoice's currency; rate converts invoice currency to the payment
// currency and is captured on the allocation for audit.
func (p *Payment) Allocate(invoiceID uuid.UUID, invoiceNumber string, amount valueobject.Money, rate valueobject.ExchangeRate) (*PaymentAllocation, error) {
	if !p.State.CanAllocate() {
		return nil, shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot allocate a %s payment", p.State))
	}
	if invoiceID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_INVOICE", "Invoice ID cannot be empty")
	}
	if !amount.IsPositive() {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Allocation amount must be positive")
	}

	inPaymentCcy, err := rate.Convert(amount)
	if err != nil {
		return nil, err
	}
	if inPaymentCcy.Currency() != p.Currency {
		return nil, shared.NewDomainError("INVALID_RATE", fmt.Sprintf("Rate converts to %s, payment currency is %s", inPaymentCcy.Currency(), p.Currency))
	}
	if inPaymentCcy.Amount().GreaterThan(p.UnallocatedAmount()) {
		return nil, &OverAllocationError{
			Limit:     OverAllocationLimitPaymentTotal,
			Requested: inPaymentCcy.Amount(),
			Available: p.UnallocatedAmount(),
		}
	}

	for _, a := range p.Allocations {
		if a.InvoiceID == invoiceID {
			return nil, shared.NewDomainError("ALREADY_ALLOCATED", fmt.Sprintf("Payment already allocated to invoice %s", invoiceNumber))
		}
	}

	allocation := PaymentAllocation{
		ID:              uuid.New(),
		PaymentID:       p.ID,
		InvoiceID:       invoiceID,
		InvoiceNumber:   invoiceNumber,
		Amount:          amount.Amount(),
		InvoiceCurrency: amount.Currency(),
		Rate:            rate.Rate,
		AmountInPayCcy:  inPaymentCcy.Amount(),
		AllocatedAt:     time.Now(),
	}
	p.Allocations = append(p.Allocations, allocation)
	p.AllocatedAmount = p.AllocatedAmount.Add(inPaymentCcy.Amount())

	if p.UnallocatedAmount().IsZero() {
		p.State = PaymentStateAllocated
	}
	p.UpdatedAt = time.Now()
	p.IncrementVersion()
	p.AddDomainEvent(NewPaymentAllocatedEvent(p, &allocation))

	return &allocation, nil
}

// RemoveAllocation backs an allocation out, restoring the unallocated
// amount. A fully allocated payment reopens for allocation.
func (p *Payment) RemoveAllocation(allocationID uuid.UUID) error {
	for i := range p.Allocations {
		if p.Allocations[i].ID != allocationID {
			continue
		}
		removed := p.Allocations[i]
		p.Allocations = append(p.Allocations[:i], p.Allocations[i+1:]...)
		p.AllocatedAmount = p.AllocatedAmount.Sub(removed.AmountInPayCcy)
		if p.State == PaymentStateAllocated {
			p.State = PaymentStateConfirmed
		}
		p.UpdatedAt = time.Now()
		p.IncrementVersion()
		return nil
	}
	return shared.NewDomainError("ALLOCATION_NOT_FOUND", "Allocation not found on this payment")
}

// MarkPosted records the journal entry posted for this payment
func (p *Payment) MarkPosted(entryID uuid.UUID) error {
	if entryID == uuid.Nil {
		return shared.NewDomainError("INVALID_ENTRY", "Journal entry ID cannot be empty")
	}
	if p.JournalEntryID != nil {
		return shared.NewDomainError("ALREADY_POSTED", "Payment is already posted")
	}
	now := time.Now()
	p.PostedAt = &now
	p.JournalEntryID = &entryID
	p.UpdatedAt = now
	p.IncrementVersion()
	return nil
}

// IsPosted returns true once the payment's own journal entry exists
func (p *Payment) IsPosted() bool {
	return p.JournalEntryID != nil
}

// Cancel cancels a payment that has no allocations
func (p *Payment) Cancel(reason string) error {
	if p.State.IsTerminal() {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot cancel a %s payment", p.State))
	}
	if len(p.Allocations) > 0 {
		return shared.NewDomainError("HAS_ALLOCATIONS", "Cannot cancel a payment with existing allocations")
	}
	if reason == "" {
		return shared.NewDomainError("INVALID_REASON", "Cancel reason is required")
	}

	now := time.Now()
	p.State = PaymentStateCancelled
	p.CancelledAt = &now
	p.CancelReason = reason
	p.UpdatedAt = now
	p.IncrementVersion()
	return nil
}

// AllocationForInvoice returns the allocation against an invoice, if any
func (p *Payment) AllocationForInvoice(invoiceID uuid.UUID) *PaymentAllocation {
	for i := range p.Allocations {
		if p.Allocations[i].InvoiceID == invoiceID {
			return &p.Allocations[i]
		}
	}
	return nil
}
