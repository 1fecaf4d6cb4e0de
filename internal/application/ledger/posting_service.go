package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/finledger/backend/internal/domain/billing"
	"github.com/finledger/backend/internal/domain/ledger"
	"github.com/finledger/backend/internal/domain/shared"
	"github.com/finledger/backend/internal/domain/shared/valueobject"
	"github.com/finledger/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// PostingService turns approved documents into balanced, posted
// journal entries. Posting is idempotent: a document posts exactly
// once, and repeat calls report success without touching the ledger.
type PostingService struct {
	documents    billing.DocumentRepository
	entries      ledger.JournalEntryRepository
	resolver     *ledger.AccountResolver
	rates        valueobject.RateProvider
	baseCurrency valueobject.Currency
	logger       *zap.Logger
}

// NewPostingService creates a new PostingService
func NewPostingService(
	documents billing.DocumentRepository,
	entries ledger.JournalEntryRepository,
	resolver *ledger.AccountResolver,
	rates valueobject.RateProvider,
	baseCurrency valueobject.Currency,
	logger *zap.Logger,
) *PostingService {
	return &PostingService{
		documents:    documents,
		entries:      entries,
		resolver:     resolver,
		rates:        rates,
		baseCurrency: baseCurrency,
		logger:       logger,
	}
}

// PostRequest identifies the document to post
type PostRequest struct {
	TenantID   uuid.UUID
	DocumentID uuid.UUID
}

// PostResult reports the posted entry. AlreadyPosted is true when the
// document had posted before this call; that is success, not an error.
type PostResult struct {
	EntryID       uuid.UUID       `json:"entry_id"`
	EntryNumber   string          `json:"entry_number"`
	AlreadyPosted bool            `json:"already_posted"`
	Total         decimal.Decimal `json:"total"`
	BaseTotal     decimal.Decimal `json:"base_total"`
	Rate          decimal.Decimal `json:"rate"`
}

// Post builds a balanced journal entry from the document's totals and
// persists it. Preconditions run in a fixed order: valid lines first,
// then a non-zero total, then the idempotency check, then approval
// state. The first failing precondition is the one reported.
func (s *PostingService) Post(ctx context.Context, req PostRequest) (*PostResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "ledger", "post")
	defer span.End()

	telemetry.SetAttributes(span,
		telemetry.SpanAttrDocumentID, req.DocumentID.String(),
	)

	doc, err := s.documents.FindByIDForTenant(ctx, req.TenantID, req.DocumentID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to get document: %w", err)
	}
	if doc == nil {
		err := shared.NewDomainError("DOCUMENT_NOT_FOUND", "Document not found")
		telemetry.RecordError(span, err)
		return nil, err
	}

	totals, err := s.computeTotals(ctx, doc)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if totals.Total.IsZero() {
		err := &billing.ZeroTotalError{DocumentID: doc.ID}
		telemetry.RecordError(span, err)
		return nil, err
	}

	// Idempotency: an already-posted document is success, ledger untouched
	if doc.IsPosted() {
		existing, err := s.entries.FindBySource(ctx, req.TenantID, ledger.JournalSourceDocument, doc.ID)
		if err != nil {
			telemetry.RecordError(span, err)
			return nil, fmt.Errorf("failed to look up existing entry: %w", err)
		}
		if existing == nil {
			err := shared.NewDomainError("MISSING_ENTRY", "Document is marked posted but its journal entry is missing")
			s.logger.Error("posted document has no journal entry",
				zap.String("document_id", doc.ID.String()),
				zap.String("document_number", doc.DocumentNumber),
			)
			telemetry.RecordError(span, err)
			return nil, err
		}
		return &PostResult{
			EntryID:       existing.ID,
			EntryNumber:   existing.EntryNumber,
			AlreadyPosted: true,
			Total:         totals.Total,
			BaseTotal:     doc.BaseCurrencyTotal,
			Rate:          doc.PostingRate,
		}, nil
	}

	if doc.ApprovalStatus != billing.ApprovalStatusApproved {
		err := shared.NewDomainError("NOT_APPROVED", fmt.Sprintf("Cannot post a %s document", doc.ApprovalStatus))
		telemetry.RecordError(span, err)
		return nil, err
	}

	lines, err := s.buildLines(ctx, doc, totals)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	entryNumber, err := s.entries.GenerateEntryNumber(ctx, req.TenantID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to generate entry number: %w", err)
	}

	memo := fmt.Sprintf("%s %s", doc.Type, doc.DocumentNumber)
	entry, err := ledger.NewJournalEntry(
		req.TenantID, entryNumber, time.Now(), totals.BaseCurrency, memo,
		ledger.JournalSourceDocument, doc.ID, lines,
	)
	if err != nil {
		// An unbalanced entry here is a construction bug, never user input
		var unbalanced *ledger.UnbalancedEntryError
		if errors.As(err, &unbalanced) {
			s.logger.Error("constructed journal entry does not balance",
				zap.String("document_id", doc.ID.String()),
				zap.String("document_number", doc.DocumentNumber),
				zap.String("debits", unbalanced.Debits.String()),
				zap.String("credits", unbalanced.Credits.String()),
			)
		}
		telemetry.RecordError(span, err)
		return nil, err
	}
	if err := entry.MarkPosted(); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	if err := s.entries.Save(ctx, entry); err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to save journal entry: %w", err)
	}

	if err := doc.MarkPosted(entry.ID, totals.Rate.Rate, totals.BaseTotal); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if err := s.documents.SaveWithLock(ctx, doc); err != nil {
		// A concurrent poster won the compare-and-set; report its entry
		if errors.Is(err, shared.ErrConcurrencyConflict) {
			winner, lookupErr := s.entries.FindBySource(ctx, req.TenantID, ledger.JournalSourceDocument, doc.ID)
			if lookupErr == nil && winner != nil {
				return &PostResult{
					EntryID:       winner.ID,
					EntryNumber:   winner.EntryNumber,
					AlreadyPosted: true,
					Total:         totals.Total,
					BaseTotal:     totals.BaseTotal,
					Rate:          totals.Rate.Rate,
				}, nil
			}
		}
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to save document: %w", err)
	}

	telemetry.AddEvent(span, "document_posted",
		telemetry.SpanAttrEntryNumber, entryNumber,
		telemetry.SpanAttrAmount, totals.Total.String(),
	)

	return &PostResult{
		EntryID:     entry.ID,
		EntryNumber: entryNumber,
		Total:       totals.Total,
		BaseTotal:   totals.BaseTotal,
		Rate:        totals.Rate.Rate,
	}, nil
}

// ReverseRequest identifies the posted entry to reverse
type ReverseRequest struct {
	TenantID uuid.UUID
	EntryID  uuid.UUID
}

// ReverseResult reports the reversal entry
type ReverseResult struct {
	EntryID         uuid.UUID `json:"entry_id"`
	EntryNumber     string    `json:"entry_number"`
	ReversedEntryID uuid.UUID `json:"reversed_entry_id"`
	AlreadyReversed bool      `json:"already_reversed"`
}

// Reverse posts a new entry that exactly negates a posted one. The
// original is never modified; reversing an already-reversed entry
// reports the existing reversal.
func (s *PostingService) Reverse(ctx context.Context, req ReverseRequest) (*ReverseResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "ledger", "reverse")
	defer span.End()

	telemetry.SetAttributes(span,
		telemetry.SpanAttrEntryID, req.EntryID.String(),
	)

	original, err := s.entries.FindByIDForTenant(ctx, req.TenantID, req.EntryID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to get journal entry: %w", err)
	}
	if original == nil {
		err := shared.NewDomainError("ENTRY_NOT_FOUND", "Journal entry not found")
		telemetry.RecordError(span, err)
		return nil, err
	}

	// Idempotency: one reversal per entry
	existing, err := s.entries.FindBySource(ctx, req.TenantID, ledger.JournalSourceReversal, original.ID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to look up existing reversal: %w", err)
	}
	if existing != nil {
		return &ReverseResult{
			EntryID:         existing.ID,
			EntryNumber:     existing.EntryNumber,
			ReversedEntryID: original.ID,
			AlreadyReversed: true,
		}, nil
	}

	entryNumber, err := s.entries.GenerateEntryNumber(ctx, req.TenantID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to generate entry number: %w", err)
	}

	reversal, err := original.Reverse(entryNumber, time.Now())
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if err := reversal.MarkPosted(); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	if err := s.entries.Save(ctx, reversal); err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to save reversal entry: %w", err)
	}

	telemetry.AddEvent(span, "entry_reversed",
		telemetry.SpanAttrEntryNumber, entryNumber,
	)

	return &ReverseResult{
		EntryID:         reversal.ID,
		EntryNumber:     entryNumber,
		ReversedEntryID: original.ID,
	}, nil
}

// ComputeTotals runs one memoized totals pass for a document and
// returns the result without posting anything.
func (s *PostingService) ComputeTotals(ctx context.Context, tenantID, documentID uuid.UUID) (*billing.Totals, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "ledger", "compute_totals")
	defer span.End()

	doc, err := s.documents.FindByIDForTenant(ctx, tenantID, documentID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to get document: %w", err)
	}
	if doc == nil {
		err := shared.NewDomainError("DOCUMENT_NOT_FOUND", "Document not found")
		telemetry.RecordError(span, err)
		return nil, err
	}

	totals, err := s.computeTotals(ctx, doc)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	return &totals, nil
}

// GetEntry returns a journal entry with its lines
func (s *PostingService) GetEntry(ctx context.Context, tenantID, entryID uuid.UUID) (*ledger.JournalEntry, error) {
	entry, err := s.entries.FindByIDForTenant(ctx, tenantID, entryID)
	if err != nil {
		return nil, fmt.Errorf("failed to get journal entry: %w", err)
	}
	if entry == nil {
		return nil, shared.NewDomainError("ENTRY_NOT_FOUND", "Journal entry not found")
	}
	return entry, nil
}

// ListEntries returns the most recent journal entries for a tenant
func (s *PostingService) ListEntries(ctx context.Context, tenantID uuid.UUID, limit int) ([]ledger.JournalEntry, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	entries, err := s.entries.FindAllForTenant(ctx, tenantID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list journal entries: %w", err)
	}
	return entries, nil
}

// computeTotals resolves the document's rate and runs one calculation
// pass. Documents already posted reuse their captured posting rate so
// the figures stay reproducible.
func (s *PostingService) computeTotals(ctx context.Context, doc *billing.Document) (billing.Totals, error) {
	rate := valueobject.IdentityRate(doc.Currency)
	if doc.Currency != s.baseCurrency {
		if doc.IsPosted() && doc.PostingRate.IsPositive() {
			captured, err := valueobject.NewExchangeRate(doc.Currency, s.baseCurrency, doc.PostingRate, *doc.PostedAt, valueobject.RateTypeSpot)
			if err != nil {
				return billing.Totals{}, err
			}
			rate = captured
		} else {
			fetched, err := s.rates.RateFor(ctx, doc.Currency, s.baseCurrency, doc.IssueDate, valueobject.RateTypeSpot)
			if err != nil {
				return billing.Totals{}, fmt.Errorf("failed to get exchange rate: %w", err)
			}
			rate = fetched
		}
	}

	calc := billing.NewCalculation(doc, s.baseCurrency, rate)
	return calc.Totals()
}

// buildLines constructs the double-entry legs for a document in the
// base currency, using the converted totals so the entry balances to
// the cent. Receivables debit AR for the gross total and credit
// revenue and output tax; payables mirror that against AP, expense and
// input tax. The tax leg is omitted when the document carries no tax.
func (s *PostingService) buildLines(ctx context.Context, doc *billing.Document, totals billing.Totals) ([]ledger.JournalLine, error) {
	if doc.Type.IsReceivable() {
		ar, err := s.resolver.Resolve(ctx, doc.TenantID, ledger.RoleAccountsReceivable, doc.Jurisdiction)
		if err != nil {
			return nil, err
		}
		revenue, err := s.resolver.Resolve(ctx, doc.TenantID, ledger.RoleRevenue, doc.Jurisdiction)
		if err != nil {
			return nil, err
		}
		lines := []ledger.JournalLine{
			ledger.NewDebitLine(ar.Code, totals.BaseTotal),
			ledger.NewCreditLine(revenue.Code, totals.BaseSubtotal),
		}
		if totals.BaseTax.IsPositive() {
			taxOut, err := s.resolver.Resolve(ctx, doc.TenantID, ledger.RoleTaxOutput, doc.Jurisdiction)
			if err != nil {
				return nil, err
			}
			lines = append(lines, ledger.NewCreditLine(taxOut.Code, totals.BaseTax))
		}
		return lines, nil
	}

	ap, err := s.resolver.Resolve(ctx, doc.TenantID, ledger.RoleAccountsPayable, doc.Jurisdiction)
	if err != nil {
		return nil, err
	}
	expense, err := s.resolver.Resolve(ctx, doc.TenantID, ledger.RoleExpense, doc.Jurisdiction)
	if err != nil {
		return nil, err
	}
	lines := []ledger.JournalLine{
		ledger.NewDebitLine(expense.Code, totals.BaseSubtotal),
		ledger.NewCreditLine(ap.Code, totals.BaseTotal),
	}
	if totals.BaseTax.IsPositive() {
		taxIn, err := s.resolver.Resolve(ctx, doc.TenantID, ledger.RoleTaxInput, doc.Jurisdiction)
		if err != nil {
			return nil, err
		}
		lines = append(lines, ledger.NewDebitLine(taxIn.Code, totals.BaseTax))
	}
	return lines, nil
}
