package billing

import (
	"fmt"
	"time"

	"github.com/finledger/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// ApprovalDecision is the outcome recorded on an approval record
type ApprovalDecision string

const (
	ApprovalDecisionPending  ApprovalDecision = "PENDING"
	ApprovalDecisionApproved ApprovalDecision = "APPROVED"
	ApprovalDecisionRejected ApprovalDecision = "REJECTED"
)

// IsValid checks if the decision is valid
func (d ApprovalDecision) IsValid() bool {
	return d == ApprovalDecisionPending || d == ApprovalDecisionApproved || d == ApprovalDecisionRejected
}

// String returns the string representation of ApprovalDecision
func (d ApprovalDecision) String() string {
	return string(d)
}

// IsTerminal returns true once the record can no longer change
func (d ApprovalDecision) IsTerminal() bool {
	return d == ApprovalDecisionApproved || d == ApprovalDecisionRejected
}

// ApprovalRecord is the audit trail of one approval request for a
// document. It is created on submit, becomes terminal on approve or
// reject, and is immutable once the document posts.
type ApprovalRecord struct {
	shared.TenantAggregateRoot
	DocumentID  uuid.UUID
	Level       int
	Decision    ApprovalDecision
	ApproverID  *uuid.UUID
	Comments    string
	SubmittedAt time.Time
	DecidedAt   *time.Time
}

// NewApprovalRecord creates a pending approval record for a document
func NewApprovalRecord(tenantID, documentID uuid.UUID, level int) (*ApprovalRecord, error) {
	if documentID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_DOCUMENT", "Document ID cannot be empty")
	}
	if level < 1 {
		return nil, shared.NewDomainError("INVALID_LEVEL", "Approval level must be at least 1")
	}
	return &ApprovalRecord{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		DocumentID:          documentID,
		Level:               level,
		Decision:            ApprovalDecisionPending,
		SubmittedAt:         time.Now(),
	}, nil
}

// Approve records an approval decision
func (r *ApprovalRecord) Approve(approverID uuid.UUID, comments string) error {
	return r.decide(ApprovalDecisionApproved, approverID, comments)
}

// Reject records a rejection decision
func (r *ApprovalRecord) Reject(approverID uuid.UUID, comments string) error {
	return r.decide(ApprovalDecisionRejected, approverID, comments)
}

func (r *ApprovalRecord) decide(decision ApprovalDecision, approverID uuid.UUID, comments string) error {
	if r.Decision.IsTerminal() {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Approval record is already %s", r.Decision))
	}
	if approverID == uuid.Nil {
		return shared.NewDomainError("INVALID_APPROVER", "Approver ID cannot be empty")
	}

	now := time.Now()
	r.Decision = decision
	r.ApproverID = &approverID
	r.Comments = comments
	r.DecidedAt = &now
	r.UpdatedAt = now
	r.IncrementVersion()
	return nil
}

// IsPending returns true while no decision was recorded
func (r *ApprovalRecord) IsPending() bool {
	return r.Decision == ApprovalDecisionPending
}
