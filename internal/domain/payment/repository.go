package payment

import (
	"context"

	"github.com/finledger/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// PaymentFilter defines filtering options for payment queries
type PaymentFilter struct {
	shared.Filter
	Type    *PaymentType
	PartyID *uuid.UUID
	State   *PaymentState
}

// PaymentRepository defines the interface for payment persistence
type PaymentRepository interface {
	// FindByIDForTenant finds a payment with its allocations for a tenant
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*Payment, error)

	// FindByNumber finds a payment by number for a tenant
	FindByNumber(ctx context.Context, tenantID uuid.UUID, paymentNumber string) (*Payment, error)

	// FindAllForTenant finds payments for a tenant with filtering
	FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter PaymentFilter) ([]Payment, error)

	// FindByInvoice finds payments holding an allocation against an invoice
	FindByInvoice(ctx context.Context, tenantID, invoiceID uuid.UUID) ([]Payment, error)

	// Save creates or updates a payment and its allocations
	Save(ctx context.Context, payment *Payment) error

	// SaveWithLock saves with optimistic locking (version compare-and-set)
	SaveWithLock(ctx context.Context, payment *Payment) error

	// GeneratePaymentNumber generates a unique payment number for a tenant
	GeneratePaymentNumber(ctx context.Context, tenantID uuid.UUID) (string, error)
}
