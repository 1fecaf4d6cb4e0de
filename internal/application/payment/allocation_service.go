package payment

import (
	"context"
	"fmt"
	"time"

	"github.com/finledger/backend/internal/domain/billing"
	"github.com/finledger/backend/internal/domain/ledger"
	"github.com/finledger/backend/internal/domain/payment"
	"github.com/finledger/backend/internal/domain/shared"
	"github.com/finledger/backend/internal/domain/shared/valueobject"
	"github.com/finledger/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// AllocationService matches payments against outstanding invoices and
// posts the payment's own journal entry on first allocation.
type AllocationService struct {
	payments     payment.PaymentRepository
	documents    billing.DocumentRepository
	entries      ledger.JournalEntryRepository
	resolver     *ledger.AccountResolver
	rates        valueobject.RateProvider
	baseCurrency valueobject.Currency
	logger       *zap.Logger
}

// NewAllocationService creates a new AllocationService
func NewAllocationService(
	payments payment.PaymentRepository,
	documents billing.DocumentRepository,
	entries ledger.JournalEntryRepository,
	resolver *ledger.AccountResolver,
	rates valueobject.RateProvider,
	baseCurrency valueobject.Currency,
	logger *zap.Logger,
) *AllocationService {
	return &AllocationService{
		payments:     payments,
		documents:    documents,
		entries:      entries,
		resolver:     resolver,
		rates:        rates,
		baseCurrency: baseCurrency,
		logger:       logger,
	}
}

// CreatePaymentRequest represents a request to record a payment
type CreatePaymentRequest struct {
	TenantID        uuid.UUID
	PaymentNumber   string
	Type            payment.PaymentType
	PartyID         uuid.UUID
	PartyName       string
	Amount          decimal.Decimal
	Currency        valueobject.Currency
	BankAccountCode string
	PaymentDate     time.Time
}

// CreatePaymentResult reports the created payment
type CreatePaymentResult struct {
	PaymentID     uuid.UUID `json:"payment_id"`
	PaymentNumber string    `json:"payment_number"`
}

// CreatePayment records a draft payment
func (s *AllocationService) CreatePayment(ctx context.Context, req CreatePaymentRequest) (*CreatePaymentResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "payment", "create")
	defer span.End()

	telemetry.SetAttributes(span,
		telemetry.SpanAttrAmount, req.Amount.String(),
		telemetry.SpanAttrCurrency, string(req.Currency),
	)

	paymentNumber := req.PaymentNumber
	if paymentNumber == "" {
		generated, err := s.payments.GeneratePaymentNumber(ctx, req.TenantID)
		if err != nil {
			telemetry.RecordError(span, err)
			return nil, fmt.Errorf("failed to generate payment number: %w", err)
		}
		paymentNumber = generated
	}

	amount, err := valueobject.NewMoney(req.Amount, req.Currency)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	pay, err := payment.NewPayment(
		req.TenantID, paymentNumber, req.Type,
		req.PartyID, req.PartyName, amount,
		req.BankAccountCode, req.PaymentDate,
	)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	if err := s.payments.Save(ctx, pay); err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to save payment: %w", err)
	}

	return &CreatePaymentResult{PaymentID: pay.ID, PaymentNumber: paymentNumber}, nil
}

// Confirm confirms receipt of funds, opening the payment for allocation
func (s *AllocationService) Confirm(ctx context.Context, tenantID, paymentID uuid.UUID) error {
	ctx, span := telemetry.StartServiceSpan(ctx, "payment", "confirm")
	defer span.End()

	telemetry.SetAttribute(span, telemetry.SpanAttrPaymentID, paymentID.String())

	pay, err := s.loadPayment(ctx, tenantID, paymentID)
	if err != nil {
		telemetry.RecordError(span, err)
		return err
	}
	if err := pay.Confirm(); err != nil {
		telemetry.RecordError(span, err)
		return err
	}
	if err := s.payments.SaveWithLock(ctx, pay); err != nil {
		telemetry.RecordError(span, err)
		return fmt.Errorf("failed to save payment: %w", err)
	}
	return nil
}

// AllocateRequest represents a request to allocate part of a payment
// to one invoice. Amount is in the invoice's currency.
type AllocateRequest struct {
	TenantID  uuid.UUID
	PaymentID uuid.UUID
	InvoiceID uuid.UUID
	Amount    decimal.Decimal
}

// AllocateResult reports the applied allocation and the invoice's
// fresh settlement state.
type AllocateResult struct {
	AllocationID   uuid.UUID             `json:"allocation_id"`
	InvoiceBalance decimal.Decimal       `json:"invoice_balance"`
	PaymentStatus  billing.PaymentStatus `json:"payment_status"`
	EntryID        *uuid.UUID            `json:"entry_id,omitempty"`
}

// Allocate assigns part of a payment to an invoice. The invoice
// balance is recomputed at allocation time, never read from a cached
// figure. The first allocation also posts the payment's own journal
// entry, idempotently keyed on the payment.
func (s *AllocationService) Allocate(ctx context.Context, req AllocateRequest) (*AllocateResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "payment", "allocate")
	defer span.End()

	telemetry.SetAttributes(span,
		telemetry.SpanAttrPaymentID, req.PaymentID.String(),
		telemetry.SpanAttrInvoiceID, req.InvoiceID.String(),
		telemetry.SpanAttrAmount, req.Amount.String(),
	)

	pay, err := s.loadPayment(ctx, req.TenantID, req.PaymentID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	invoice, err := s.documents.FindByIDForTenant(ctx, req.TenantID, req.InvoiceID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to get invoice: %w", err)
	}
	if invoice == nil {
		err := shared.NewDomainError("INVOICE_NOT_FOUND", "Invoice not found")
		telemetry.RecordError(span, err)
		return nil, err
	}
	if !invoice.IsPosted() {
		err := &payment.InvoiceNotPostedError{InvoiceID: invoice.ID}
		telemetry.RecordError(span, err)
		return nil, err
	}

	// Fresh balance at allocation time, in the invoice's own currency
	totals, err := s.invoiceTotals(ctx, invoice)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if req.Amount.GreaterThan(totals.Balance) {
		err := &payment.OverAllocationError{
			Limit:     payment.OverAllocationLimitInvoiceBalance,
			Requested: req.Amount,
			Available: totals.Balance,
		}
		telemetry.RecordError(span, err)
		return nil, err
	}

	amount, err := valueobject.NewMoney(req.Amount, invoice.Currency)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	// Invoice-to-payment conversion, captured on the allocation for
	// audit. Distinct from the rate the invoice was posted at.
	rate := valueobject.IdentityRate(invoice.Currency)
	if invoice.Currency != pay.Currency {
		fetched, err := s.rates.RateFor(ctx, invoice.Currency, pay.Currency, pay.PaymentDate, valueobject.RateTypeSpot)
		if err != nil {
			telemetry.RecordError(span, err)
			return nil, fmt.Errorf("failed to get exchange rate: %w", err)
		}
		rate = fetched
	}

	allocation, err := pay.Allocate(invoice.ID, invoice.DocumentNumber, amount, rate)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	if err := invoice.ApplyAllocation(req.Amount, totals.Total); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	if err := s.payments.SaveWithLock(ctx, pay); err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to save payment: %w", err)
	}
	if err := s.documents.SaveWithLock(ctx, invoice); err != nil {
		// The payment side is already persisted; back the allocation
		// out so the two aggregates cannot disagree about what settled
		s.compensateAllocation(ctx, pay, allocation.ID)
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to save invoice: %w", err)
	}

	entryID, err := s.postPaymentEntry(ctx, pay)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	telemetry.AddEvent(span, "allocation_applied",
		"allocation_id", allocation.ID.String(),
		"invoice_balance", totals.Total.Sub(invoice.PaidAmount).String(),
	)

	return &AllocateResult{
		AllocationID:   allocation.ID,
		InvoiceBalance: totals.Total.Sub(invoice.PaidAmount),
		PaymentStatus:  invoice.PaymentStatus,
		EntryID:        entryID,
	}, nil
}

// GetPayment loads a payment for a tenant
func (s *AllocationService) GetPayment(ctx context.Context, tenantID, paymentID uuid.UUID) (*payment.Payment, error) {
	return s.loadPayment(ctx, tenantID, paymentID)
}

func (s *AllocationService) loadPayment(ctx context.Context, tenantID, paymentID uuid.UUID) (*payment.Payment, error) {
	pay, err := s.payments.FindByIDForTenant(ctx, tenantID, paymentID)
	if err != nil {
		return nil, fmt.Errorf("failed to get payment: %w", err)
	}
	if pay == nil {
		return nil, shared.NewDomainError("PAYMENT_NOT_FOUND", "Payment not found")
	}
	return pay, nil
}

// compensateAllocation removes a just-saved allocation after the
// invoice side failed to persist. Failure here leaves the payment
// over-allocated and is loud in the log; the invoice itself was not
// changed.
func (s *AllocationService) compensateAllocation(ctx context.Context, pay *payment.Payment, allocationID uuid.UUID) {
	if err := pay.RemoveAllocation(allocationID); err != nil {
		s.logger.Error("failed to remove allocation during rollback",
			zap.String("payment_id", pay.ID.String()),
			zap.String("allocation_id", allocationID.String()),
			zap.Error(err),
		)
		return
	}
	if err := s.payments.SaveWithLock(ctx, pay); err != nil {
		s.logger.Error("failed to save payment during allocation rollback",
			zap.String("payment_id", pay.ID.String()),
			zap.String("allocation_id", allocationID.String()),
			zap.Error(err),
		)
	}
}

// invoiceTotals recomputes the invoice's totals with the rate captured
// at posting time, so the balance checked here matches the posted figures.
func (s *AllocationService) invoiceTotals(ctx context.Context, invoice *billing.Document) (billing.Totals, error) {
	rate := valueobject.IdentityRate(invoice.Currency)
	if invoice.Currency != s.baseCurrency && invoice.PostingRate.IsPositive() {
		captured, err := valueobject.NewExchangeRate(invoice.Currency, s.baseCurrency, invoice.PostingRate, *invoice.PostedAt, valueobject.RateTypeSpot)
		if err != nil {
			return billing.Totals{}, err
		}
		rate = captured
	}
	calc := billing.NewCalculation(invoice, s.baseCurrency, rate)
	return calc.Totals()
}

// postPaymentEntry posts the payment's own journal entry once, in the
// base currency: debit the bank account and credit AR for receipts,
// the mirror for disbursements. Keyed on (PAYMENT, payment ID), so
// repeat allocations reuse the first entry.
func (s *AllocationService) postPaymentEntry(ctx context.Context, pay *payment.Payment) (*uuid.UUID, error) {
	existing, err := s.entries.FindBySource(ctx, pay.TenantID, ledger.JournalSourcePayment, pay.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to look up payment entry: %w", err)
	}
	if existing != nil {
		return &existing.ID, nil
	}

	var counterpartRole ledger.AccountRole
	if pay.Type == payment.PaymentTypeReceipt {
		counterpartRole = ledger.RoleAccountsReceivable
	} else {
		counterpartRole = ledger.RoleAccountsPayable
	}
	counterpart, err := s.resolver.Resolve(ctx, pay.TenantID, counterpartRole, "")
	if err != nil {
		return nil, err
	}

	// Foreign-currency payments convert to the base currency at the
	// payment date so the ledger stays single-currency
	amount := pay.TotalAmount
	if pay.Currency != s.baseCurrency {
		rate, err := s.rates.RateFor(ctx, pay.Currency, s.baseCurrency, pay.PaymentDate, valueobject.RateTypeSpot)
		if err != nil {
			return nil, fmt.Errorf("failed to get exchange rate: %w", err)
		}
		paid, err := valueobject.NewMoney(pay.TotalAmount, pay.Currency)
		if err != nil {
			return nil, err
		}
		converted, err := rate.Convert(paid)
		if err != nil {
			return nil, err
		}
		amount = converted.Amount()
	}

	var lines []ledger.JournalLine
	if pay.Type == payment.PaymentTypeReceipt {
		lines = []ledger.JournalLine{
			ledger.NewDebitLine(pay.BankAccountCode, amount),
			ledger.NewCreditLine(counterpart.Code, amount),
		}
	} else {
		lines = []ledger.JournalLine{
			ledger.NewDebitLine(counterpart.Code, amount),
			ledger.NewCreditLine(pay.BankAccountCode, amount),
		}
	}

	entryNumber, err := s.entries.GenerateEntryNumber(ctx, pay.TenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to generate entry number: %w", err)
	}

	memo := fmt.Sprintf("%s %s", pay.Type, pay.PaymentNumber)
	entry, err := ledger.NewJournalEntry(
		pay.TenantID, entryNumber, time.Now(), s.baseCurrency, memo,
		ledger.JournalSourcePayment, pay.ID, lines,
	)
	if err != nil {
		s.logger.Error("failed to construct payment journal entry",
			zap.String("payment_id", pay.ID.String()),
			zap.String("payment_number", pay.PaymentNumber),
			zap.Error(err),
		)
		return nil, err
	}
	if err := entry.MarkPosted(); err != nil {
		return nil, err
	}
	if err := s.entries.Save(ctx, entry); err != nil {
		return nil, fmt.Errorf("failed to save payment entry: %w", err)
	}

	if err := pay.MarkPosted(entry.ID); err == nil {
		if err := s.payments.SaveWithLock(ctx, pay); err != nil {
			return nil, fmt.Errorf("failed to save payment: %w", err)
		}
	}

	return &entry.ID, nil
}
