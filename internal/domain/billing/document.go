package billing

import (
	"fmt"
	"strings"
	"time"

	"github.com/finledger/backend/internal/domain/shared"
	"github.com/finledger/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DocumentType represents the commercial document kind
type DocumentType string

const (
	DocumentTypeARInvoice  DocumentType = "AR_INVOICE"  // Customer invoice (receivable)
	DocumentTypeAPInvoice  DocumentType = "AP_INVOICE"  // Supplier invoice (payable)
	DocumentTypeVendorBill DocumentType = "VENDOR_BILL" // Supplier bill subject to three-way match
)

// IsValid checks if the document type is valid
func (t DocumentType) IsValid() bool {
	switch t {
	case DocumentTypeARInvoice, DocumentTypeAPInvoice, DocumentTypeVendorBill:
		return true
	}
	return false
}

// String returns the string representation of DocumentType
func (t DocumentType) String() string {
	return string(t)
}

// IsReceivable returns true for documents owed to us by a customer
func (t DocumentType) IsReceivable() bool {
	return t == DocumentTypeARInvoice
}

// IsPayable returns true for documents we owe to a supplier
func (t DocumentType) IsPayable() bool {
	return t == DocumentTypeAPInvoice || t == DocumentTypeVendorBill
}

// ApprovalStatus governs the document approval lifecycle.
// PENDING_APPROVAL is the single canonical pending state.
type ApprovalStatus string

const (
	ApprovalStatusDraft           ApprovalStatus = "DRAFT"
	ApprovalStatusPendingApproval ApprovalStatus = "PENDING_APPROVAL"
	ApprovalStatusApproved        ApprovalStatus = "APPROVED"
	ApprovalStatusRejected        ApprovalStatus = "REJECTED"
	ApprovalStatusPosted          ApprovalStatus = "POSTED"
)

// IsValid checks if the status is a valid ApprovalStatus
func (s ApprovalStatus) IsValid() bool {
	switch s {
	case ApprovalStatusDraft, ApprovalStatusPendingApproval, ApprovalStatusApproved,
		ApprovalStatusRejected, ApprovalStatusPosted:
		return true
	}
	return false
}

// String returns the string representation of ApprovalStatus
func (s ApprovalStatus) String() string {
	return string(s)
}

// IsTerminal returns true once no further approval transition is possible
func (s ApprovalStatus) IsTerminal() bool {
	return s == ApprovalStatusPosted
}

// CanTransitionTo reports whether the approval state machine allows the move.
// POSTED is reachable only through the ledger poster, never assigned directly.
func (s ApprovalStatus) CanTransitionTo(next ApprovalStatus) bool {
	switch s {
	case ApprovalStatusDraft:
		return next == ApprovalStatusPendingApproval
	case ApprovalStatusPendingApproval:
		return next == ApprovalStatusApproved || next == ApprovalStatusRejected
	case ApprovalStatusApproved:
		return next == ApprovalStatusPosted
	case ApprovalStatusRejected:
		return next == ApprovalStatusDraft
	}
	return false
}

// PostingStatus tracks whether the document has reached the ledger
type PostingStatus string

const (
	PostingStatusUnposted  PostingStatus = "UNPOSTED"
	PostingStatusPosted    PostingStatus = "POSTED"
	PostingStatusCancelled PostingStatus = "CANCELLED"
)

// IsValid checks if the posting status is valid
func (s PostingStatus) IsValid() bool {
	switch s {
	case PostingStatusUnposted, PostingStatusPosted, PostingStatusCancelled:
		return true
	}
	return false
}

// String returns the string representation of PostingStatus
func (s PostingStatus) String() string {
	return string(s)
}

// PaymentStatus tracks settlement progress against the document balance
type PaymentStatus string

const (
	PaymentStatusUnpaid  PaymentStatus = "UNPAID"
	PaymentStatusPartial PaymentStatus = "PARTIAL"
	PaymentStatusPaid    PaymentStatus = "PAID"
)

// IsValid checks if the payment status is valid
func (s PaymentStatus) IsValid() bool {
	return s == PaymentStatusUnpaid || s == PaymentStatusPartial || s == PaymentStatusPaid
}

// String returns the string representation of PaymentStatus
func (s PaymentStatus) String() string {
	return string(s)
}

// MatchStatus tracks the three-way match outcome for vendor bills
type MatchStatus string

const (
	MatchStatusNotMatched MatchStatus = "NOT_MATCHED" // Match has not been run yet
	MatchStatusMatched    MatchStatus = "MATCHED"     // All lines within tolerance
	MatchStatusException  MatchStatus = "EXCEPTION"   // Open matching issues exist
)

// IsValid checks if the match status is valid
func (s MatchStatus) IsValid() bool {
	return s == MatchStatusNotMatched || s == MatchStatusMatched || s == MatchStatusException
}

// String returns the string representation of MatchStatus
func (s MatchStatus) String() string {
	return string(s)
}

// LineItem is a line on a commercial document. Quantity and unit price
// are entered in the document's own currency; TaxRate is a snapshot of
// the jurisdiction rate at entry time.
type LineItem struct {
	ID            uuid.UUID       `json:"id"`
	LineNo        int             `json:"line_no"`
	Description   string          `json:"description"`
	Quantity      decimal.Decimal `json:"quantity"`
	UnitPrice     decimal.Decimal `json:"unit_price"`
	TaxRateCode   string          `json:"tax_rate_code,omitempty"`
	TaxRate       decimal.Decimal `json:"tax_rate"`
	AccountCode   string          `json:"account_code,omitempty"`
	POLineID      *uuid.UUID      `json:"po_line_id,omitempty"`
	ReceiptLineID *uuid.UUID      `json:"receipt_line_id,omitempty"`
}

// NewLineItem creates a line item with a generated ID
func NewLineItem(lineNo int, description string, quantity, unitPrice, taxRate decimal.Decimal) LineItem {
	return LineItem{
		ID:          uuid.New(),
		LineNo:      lineNo,
		Description: description,
		Quantity:    quantity,
		UnitPrice:   unitPrice,
		TaxRate:     taxRate,
	}
}

// rejectionReason returns why this line cannot take part in totals,
// or "" when the line is valid.
func (li LineItem) rejectionReason() string {
	if strings.TrimSpace(li.Description) == "" {
		return "description is empty"
	}
	if li.Quantity.IsNegative() {
		return "quantity is negative"
	}
	if li.Quantity.IsZero() {
		return "quantity is zero"
	}
	if li.UnitPrice.IsNegative() {
		return "unit price is negative"
	}
	if li.TaxRate.IsNegative() || li.TaxRate.GreaterThan(decimal.NewFromInt(1)) {
		return "tax rate is outside [0, 1]"
	}
	return ""
}

// IsValid reports whether the line can take part in totals
func (li LineItem) IsValid() bool {
	return li.rejectionReason() == ""
}

// LineRejection records a line excluded from a calculation pass, with
// the reason it was excluded. Rejections are always surfaced to the
// caller, never silently dropped.
type LineRejection struct {
	Index  int    `json:"index"`
	Reason string `json:"reason"`
}

// Document is the commercial document aggregate root (invoice or
// vendor bill). It owns its line items and is the only mutator of its
// own settlement state.
type Document struct {
	shared.TenantAggregateRoot
	DocumentNumber  string
	Type            DocumentType
	PartyID         uuid.UUID
	PartyName       string
	Currency        valueobject.Currency
	Jurisdiction    string
	IssueDate       time.Time
	DueDate         *time.Time
	ApprovalStatus  ApprovalStatus
	PostingStatus   PostingStatus
	PaymentStatus   PaymentStatus
	MatchStatus     MatchStatus
	Lines           []LineItem
	PaidAmount      decimal.Decimal
	PurchaseOrderID *uuid.UUID
	GoodsReceiptID  *uuid.UUID

	// Posting audit trail, written once by the ledger poster
	PostedAt          *time.Time
	PostingRate       decimal.Decimal
	BaseCurrencyTotal decimal.Decimal
	JournalEntryID    *uuid.UUID
}

// NewDocument creates a new draft document. A document whose lines all
// fail validation is rejected at construction so it can never be
// persisted empty.
func NewDocument(
	tenantID uuid.UUID,
	documentNumber string,
	docType DocumentType,
	partyID uuid.UUID,
	partyName string,
	currency valueobject.Currency,
	jurisdiction string,
	issueDate time.Time,
	dueDate *time.Time,
	lines []LineItem,
) (*Document, error) {
	if documentNumber == "" {
		return nil, shared.NewDomainError("INVALID_DOCUMENT_NUMBER", "Document number cannot be empty")
	}
	if len(documentNumber) > 50 {
		return nil, shared.NewDomainError("INVALID_DOCUMENT_NUMBER", "Document number cannot exceed 50 characters")
	}
	if !docType.IsValid() {
		return nil, shared.NewDomainError("INVALID_DOCUMENT_TYPE", "Document type is not valid")
	}
	if partyID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_PARTY", "Party ID cannot be empty")
	}
	if partyName == "" {
		return nil, shared.NewDomainError("INVALID_PARTY_NAME", "Party name cannot be empty")
	}
	if !currency.IsValid() {
		return nil, shared.NewDomainError("INVALID_CURRENCY", fmt.Sprintf("Invalid currency code %q", currency))
	}
	if jurisdiction == "" {
		return nil, shared.NewDomainError("INVALID_JURISDICTION", "Tax jurisdiction cannot be empty")
	}
	if issueDate.IsZero() {
		return nil, shared.NewDomainError("INVALID_ISSUE_DATE", "Issue date is required")
	}

	doc := &Document{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		DocumentNumber:      documentNumber,
		Type:                docType,
		PartyID:             partyID,
		PartyName:           partyName,
		Currency:            currency,
		Jurisdiction:        jurisdiction,
		IssueDate:           issueDate,
		DueDate:             dueDate,
		ApprovalStatus:      ApprovalStatusDraft,
		PostingStatus:       PostingStatusUnposted,
		PaymentStatus:       PaymentStatusUnpaid,
		MatchStatus:         MatchStatusNotMatched,
		Lines:               lines,
		PaidAmount:          decimal.Zero,
		PostingRate:         decimal.Zero,
		BaseCurrencyTotal:   decimal.Zero,
	}

	valid, rejections := doc.ValidLines()
	if len(valid) == 0 {
		return nil, &EmptyDocumentError{DocumentID: doc.ID, Rejections: rejections}
	}

	doc.AddDomainEvent(NewDocumentCreatedEvent(doc))

	return doc, nil
}

// ValidLines partitions the document lines into those usable for totals
// and rejections describing every excluded line.
func (d *Document) ValidLines() ([]LineItem, []LineRejection) {
	valid := make([]LineItem, 0, len(d.Lines))
	var rejections []LineRejection
	for i, line := range d.Lines {
		if reason := line.rejectionReason(); reason != "" {
			rejections = append(rejections, LineRejection{Index: i, Reason: reason})
			continue
		}
		valid = append(valid, line)
	}
	return valid, rejections
}

// AddLine appends a line to a draft document
func (d *Document) AddLine(line LineItem) error {
	if d.ApprovalStatus != ApprovalStatusDraft {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot add lines to a %s document", d.ApprovalStatus))
	}
	line.LineNo = len(d.Lines) + 1
	if line.ID == uuid.Nil {
		line.ID = uuid.New()
	}
	d.Lines = append(d.Lines, line)
	d.UpdatedAt = time.Now()
	d.IncrementVersion()
	return nil
}

// SubmitForApproval moves the document from DRAFT to PENDING_APPROVAL.
// At least one valid line is required.
func (d *Document) SubmitForApproval() error {
	if !d.ApprovalStatus.CanTransitionTo(ApprovalStatusPendingApproval) {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot submit a %s document for approval", d.ApprovalStatus))
	}
	valid, rejections := d.ValidLines()
	if len(valid) == 0 {
		return &EmptyDocumentError{DocumentID: d.ID, Rejections: rejections}
	}

	d.ApprovalStatus = ApprovalStatusPendingApproval
	d.UpdatedAt = time.Now()
	d.IncrementVersion()
	d.AddDomainEvent(NewDocumentSubmittedEvent(d))
	return nil
}

// Approve moves a pending document to APPROVED. Authorization of the
// approver is the caller's responsibility; only state legality is
// enforced here.
func (d *Document) Approve(approverID uuid.UUID) error {
	if approverID == uuid.Nil {
		return shared.NewDomainError("INVALID_APPROVER", "Approver ID cannot be empty")
	}
	if !d.ApprovalStatus.CanTransitionTo(ApprovalStatusApproved) {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot approve a %s document", d.ApprovalStatus))
	}

	d.ApprovalStatus = ApprovalStatusApproved
	d.UpdatedAt = time.Now()
	d.IncrementVersion()
	d.AddDomainEvent(NewDocumentApprovedEvent(d, approverID))
	return nil
}

// Reject moves a pending document to REJECTED. A rejected document can
// be returned to draft and resubmitted.
func (d *Document) Reject(approverID uuid.UUID) error {
	if approverID == uuid.Nil {
		return shared.NewDomainError("INVALID_APPROVER", "Approver ID cannot be empty")
	}
	if !d.ApprovalStatus.CanTransitionTo(ApprovalStatusRejected) {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot reject a %s document", d.ApprovalStatus))
	}

	d.ApprovalStatus = ApprovalStatusRejected
	d.UpdatedAt = time.Now()
	d.IncrementVersion()
	d.AddDomainEvent(NewDocumentRejectedEvent(d, approverID))
	return nil
}

// ReturnToDraft reopens a rejected document for editing
func (d *Document) ReturnToDraft() error {
	if !d.ApprovalStatus.CanTransitionTo(ApprovalStatusDraft) {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot return a %s document to draft", d.ApprovalStatus))
	}
	d.ApprovalStatus = ApprovalStatusDraft
	d.UpdatedAt = time.Now()
	d.IncrementVersion()
	return nil
}

// SetMatchStatus records the three-way match outcome on a vendor bill
func (d *Document) SetMatchStatus(status MatchStatus) error {
	if d.Type != DocumentTypeVendorBill {
		return shared.NewDomainError("INVALID_DOCUMENT_TYPE", "Match status applies to vendor bills only")
	}
	if !status.IsValid() {
		return shared.NewDomainError("INVALID_MATCH_STATUS", fmt.Sprintf("Invalid match status %q", status))
	}
	d.MatchStatus = status
	d.UpdatedAt = time.Now()
	d.IncrementVersion()
	return nil
}

// MarkPosted records the result of a successful ledger posting.
// Only the ledger poster calls this; the POSTED approval state is
// never assigned directly.
func (d *Document) MarkPosted(entryID uuid.UUID, rate decimal.Decimal, baseCurrencyTotal decimal.Decimal) error {
	if d.PostingStatus == PostingStatusPosted {
		return shared.NewDomainError("ALREADY_POSTED", "Document is already posted")
	}
	if d.PostingStatus == PostingStatusCancelled {
		return shared.NewDomainError("INVALID_STATE", "Cannot post a cancelled document")
	}
	if !d.ApprovalStatus.CanTransitionTo(ApprovalStatusPosted) {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot post a %s document", d.ApprovalStatus))
	}
	if entryID == uuid.Nil {
		return shared.NewDomainError("INVALID_ENTRY", "Journal entry ID cannot be empty")
	}

	now := time.Now()
	d.PostingStatus = PostingStatusPosted
	d.ApprovalStatus = ApprovalStatusPosted
	d.PostedAt = &now
	d.PostingRate = rate
	d.BaseCurrencyTotal = baseCurrencyTotal
	d.JournalEntryID = &entryID
	d.UpdatedAt = now
	d.IncrementVersion()
	d.AddDomainEvent(NewDocumentPostedEvent(d))
	return nil
}

// ApplyAllocation records settled amount against the document and
// recomputes the payment status from the fresh balance.
func (d *Document) ApplyAllocation(amount decimal.Decimal, total decimal.Decimal) error {
	if d.PostingStatus != PostingStatusPosted {
		return shared.NewDomainError("NOT_POSTED", "Cannot allocate against an unposted document")
	}
	if !amount.IsPositive() {
		return shared.NewDomainError("INVALID_AMOUNT", "Allocation amount must be positive")
	}
	balance := total.Sub(d.PaidAmount)
	if amount.GreaterThan(balance) {
		return shared.NewDomainError("EXCEEDS_BALANCE", fmt.Sprintf("Allocation %s exceeds outstanding balance %s", amount, balance))
	}

	d.PaidAmount = d.PaidAmount.Add(amount)
	if d.PaidAmount.GreaterThanOrEqual(total) {
		d.PaymentStatus = PaymentStatusPaid
		d.AddDomainEvent(NewDocumentPaidEvent(d))
	} else {
		d.PaymentStatus = PaymentStatusPartial
	}
	d.UpdatedAt = time.Now()
	d.IncrementVersion()
	return nil
}

// Cancel voids an unposted document
func (d *Document) Cancel() error {
	if d.PostingStatus == PostingStatusPosted {
		return shared.NewDomainError("INVALID_STATE", "Cannot cancel a posted document; reverse the journal entry instead")
	}
	if d.PostingStatus == PostingStatusCancelled {
		return shared.NewDomainError("INVALID_STATE", "Document is already cancelled")
	}
	d.PostingStatus = PostingStatusCancelled
	d.UpdatedAt = time.Now()
	d.IncrementVersion()
	return nil
}

// IsPosted returns true once the document reached the ledger
func (d *Document) IsPosted() bool {
	return d.PostingStatus == PostingStatusPosted
}

// IsFullyPaid returns true when the document balance reached zero
func (d *Document) IsFullyPaid() bool {
	return d.PaymentStatus == PaymentStatusPaid
}
