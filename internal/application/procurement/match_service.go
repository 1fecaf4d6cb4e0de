package procurement

import (
	"context"
	"fmt"

	"github.com/finledger/backend/internal/domain/billing"
	"github.com/finledger/backend/internal/domain/procurement"
	"github.com/finledger/backend/internal/domain/shared"
	"github.com/finledger/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// MatchService runs the three-way match over vendor bills and manages
// the resolution lifecycle of the issues it raises.
type MatchService struct {
	documents billing.DocumentRepository
	orders    procurement.PurchaseOrderRepository
	receipts  procurement.GoodsReceiptRepository
	issues    procurement.MatchingIssueRepository
	matcher   *procurement.Matcher
	logger    *zap.Logger
}

// NewMatchService creates a new MatchService
func NewMatchService(
	documents billing.DocumentRepository,
	orders procurement.PurchaseOrderRepository,
	receipts procurement.GoodsReceiptRepository,
	issues procurement.MatchingIssueRepository,
	matcher *procurement.Matcher,
	logger *zap.Logger,
) *MatchService {
	return &MatchService{
		documents: documents,
		orders:    orders,
		receipts:  receipts,
		issues:    issues,
		matcher:   matcher,
		logger:    logger,
	}
}

// RunMatchRequest identifies the vendor bill to match
type RunMatchRequest struct {
	TenantID uuid.UUID
	BillID   uuid.UUID
}

// RunMatchResult reports the match outcome
type RunMatchResult struct {
	Result      *procurement.ThreeWayMatchResult `json:"result"`
	MatchStatus billing.MatchStatus              `json:"match_status"`
	Superseded  int                              `json:"superseded"`
}

// RunMatch compares the vendor bill's lines against its purchase order
// and goods receipt. Re-running supersedes the bill's previously open
// issues instead of duplicating them; resolved issues stay untouched.
func (s *MatchService) RunMatch(ctx context.Context, req RunMatchRequest) (*RunMatchResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "match", "run")
	defer span.End()

	telemetry.SetAttribute(span, telemetry.SpanAttrBillID, req.BillID.String())

	bill, err := s.documents.FindByIDForTenant(ctx, req.TenantID, req.BillID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to get vendor bill: %w", err)
	}
	if bill == nil {
		err := shared.NewDomainError("BILL_NOT_FOUND", "Vendor bill not found")
		telemetry.RecordError(span, err)
		return nil, err
	}

	var order *procurement.PurchaseOrder
	if bill.PurchaseOrderID != nil {
		order, err = s.orders.FindByIDForTenant(ctx, req.TenantID, *bill.PurchaseOrderID)
		if err != nil {
			telemetry.RecordError(span, err)
			return nil, fmt.Errorf("failed to get purchase order: %w", err)
		}
	}
	var receipt *procurement.GoodsReceipt
	if bill.GoodsReceiptID != nil {
		receipt, err = s.receipts.FindByIDForTenant(ctx, req.TenantID, *bill.GoodsReceiptID)
		if err != nil {
			telemetry.RecordError(span, err)
			return nil, fmt.Errorf("failed to get goods receipt: %w", err)
		}
	}

	result, err := s.matcher.Match(bill, order, receipt)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	superseded, err := s.supersedeOpenIssues(ctx, req.TenantID, bill.ID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	for _, issue := range result.Issues {
		if err := s.issues.Save(ctx, issue); err != nil {
			telemetry.RecordError(span, err)
			return nil, fmt.Errorf("failed to save matching issue: %w", err)
		}
	}

	status := billing.MatchStatusException
	if result.WithinTolerance {
		status = billing.MatchStatusMatched
	}
	if err := bill.SetMatchStatus(status); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if err := s.documents.SaveWithLock(ctx, bill); err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to save vendor bill: %w", err)
	}

	telemetry.SetAttributes(span,
		telemetry.SpanAttrMatchStatus, string(status),
		"matched_lines", result.MatchedLines,
		"total_lines", result.TotalLines,
		"issues", len(result.Issues),
	)

	s.logger.Info("three-way match completed",
		zap.String("bill_id", bill.ID.String()),
		zap.String("match_status", string(status)),
		zap.Int("matched_lines", result.MatchedLines),
		zap.Int("total_lines", result.TotalLines),
		zap.Int("issues", len(result.Issues)),
		zap.Int("superseded", superseded),
	)

	return &RunMatchResult{Result: result, MatchStatus: status, Superseded: superseded}, nil
}

// ResolveIssueRequest represents a request to resolve a matching issue
type ResolveIssueRequest struct {
	TenantID   uuid.UUID
	IssueID    uuid.UUID
	ResolverID uuid.UUID
	Notes      string
}

// ResolveIssue closes one open matching issue with a mandatory note.
// When the bill's last open issue resolves, the bill itself stays
// EXCEPTION; approval checks open issues, not the status label.
func (s *MatchService) ResolveIssue(ctx context.Context, req ResolveIssueRequest) error {
	ctx, span := telemetry.StartServiceSpan(ctx, "match", "resolve_issue")
	defer span.End()

	issue, err := s.issues.FindByIDForTenant(ctx, req.TenantID, req.IssueID)
	if err != nil {
		telemetry.RecordError(span, err)
		return fmt.Errorf("failed to get matching issue: %w", err)
	}
	if issue == nil {
		err := shared.NewDomainError("ISSUE_NOT_FOUND", "Matching issue not found")
		telemetry.RecordError(span, err)
		return err
	}

	if err := issue.Resolve(req.ResolverID, req.Notes); err != nil {
		telemetry.RecordError(span, err)
		return err
	}
	if err := s.issues.Save(ctx, issue); err != nil {
		telemetry.RecordError(span, err)
		return fmt.Errorf("failed to save matching issue: %w", err)
	}
	return nil
}

// ListIssues lists all issues recorded against a vendor bill
func (s *MatchService) ListIssues(ctx context.Context, tenantID, billID uuid.UUID) ([]*procurement.MatchingIssue, error) {
	return s.issues.FindByBill(ctx, tenantID, billID)
}

// TolerancePct exposes the configured tolerance for callers rendering it
func (s *MatchService) TolerancePct() decimal.Decimal {
	return s.matcher.TolerancePct()
}

func (s *MatchService) supersedeOpenIssues(ctx context.Context, tenantID, billID uuid.UUID) (int, error) {
	open, err := s.issues.FindOpenByBill(ctx, tenantID, billID)
	if err != nil {
		return 0, fmt.Errorf("failed to list open issues: %w", err)
	}
	for _, issue := range open {
		if err := issue.Supersede(); err != nil {
			return 0, err
		}
		if err := s.issues.Save(ctx, issue); err != nil {
			return 0, fmt.Errorf("failed to supersede issue: %w", err)
		}
	}
	return len(open), nil
}
