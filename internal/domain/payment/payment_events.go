package payment

import (
	"github.com/finledger/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Event type constants for the Payment aggregate
const (
	EventTypePaymentCreated   = "payment.created"
	EventTypePaymentConfirmed = "payment.confirmed"
	EventTypePaymentAllocated = "payment.allocated"

	aggregateTypePayment = "Payment"
)

// PaymentCreatedEvent is raised when a payment is created
type PaymentCreatedEvent struct {
	shared.BaseDomainEvent
	PaymentNumber string          `json:"payment_number"`
	Amount        decimal.Decimal `json:"amount"`
}

// NewPaymentCreatedEvent creates a PaymentCreatedEvent
func NewPaymentCreatedEvent(p *Payment) *PaymentCreatedEvent {
	return &PaymentCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePaymentCreated, aggregateTypePayment, p.ID, p.TenantID),
		PaymentNumber:   p.PaymentNumber,
		Amount:          p.TotalAmount,
	}
}

// PaymentConfirmedEvent is raised when funds are confirmed
type PaymentConfirmedEvent struct {
	shared.BaseDomainEvent
	PaymentNumber string `json:"payment_number"`
}

// NewPaymentConfirmedEvent creates a PaymentConfirmedEvent
func NewPaymentConfirmedEvent(p *Payment) *PaymentConfirmedEvent {
	return &PaymentConfirmedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePaymentConfirmed, aggregateTypePayment, p.ID, p.TenantID),
		PaymentNumber:   p.PaymentNumber,
	}
}

// PaymentAllocatedEvent is raised when part of a payment is assigned
// to an invoice
type PaymentAllocatedEvent struct {
	shared.BaseDomainEvent
	PaymentNumber string          `json:"payment_number"`
	InvoiceID     uuid.UUID       `json:"invoice_id"`
	Amount        decimal.Decimal `json:"amount"`
}

// NewPaymentAllocatedEvent creates a PaymentAllocatedEvent
func NewPaymentAllocatedEvent(p *Payment, a *PaymentAllocation) *PaymentAllocatedEvent {
	return &PaymentAllocatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePaymentAllocated, aggregateTypePayment, p.ID, p.TenantID),
		PaymentNumber:   p.PaymentNumber,
		InvoiceID:       a.InvoiceID,
		Amount:          a.Amount,
	}
}
