package procurement

import (
	"fmt"
	"time"

	"github.com/finledger/backend/internal/domain/billing"
	"github.com/finledger/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MatchLineStatus is the outcome for one vendor bill line
type MatchLineStatus string

const (
	// MatchLineStatusMatched means both price and quantity are within tolerance
	MatchLineStatusMatched MatchLineStatus = "MATCHED"
	// MatchLineStatusVariance means a linked line exceeded tolerance
	MatchLineStatusVariance MatchLineStatus = "VARIANCE"
	// MatchLineStatusUnmatched means the line has no PO or receipt link.
	// Unmatched is a distinct category, not a variance.
	MatchLineStatusUnmatched MatchLineStatus = "UNMATCHED"
)

// String returns the string representation of MatchLineStatus
func (s MatchLineStatus) String() string {
	return string(s)
}

// VarianceType identifies which commercial term diverged
type VarianceType string

const (
	VarianceTypePrice    VarianceType = "PRICE"
	VarianceTypeQuantity VarianceType = "QUANTITY"
)

// IssueType classifies a matching issue
type IssueType string

const (
	IssueTypePriceVariance    IssueType = "PRICE_VARIANCE"
	IssueTypeQuantityVariance IssueType = "QUANTITY_VARIANCE"
	IssueTypeNoPO             IssueType = "NO_PO"
	IssueTypeNoGR             IssueType = "NO_GR"
)

// IsValid checks if the issue type is valid
func (t IssueType) IsValid() bool {
	switch t {
	case IssueTypePriceVariance, IssueTypeQuantityVariance, IssueTypeNoPO, IssueTypeNoGR:
		return true
	}
	return false
}

// String returns the string representation of IssueType
func (t IssueType) String() string {
	return string(t)
}

// IssueSeverity grades a variance by its magnitude relative to tolerance
type IssueSeverity string

const (
	IssueSeverityLow      IssueSeverity = "LOW"
	IssueSeverityMedium   IssueSeverity = "MEDIUM"
	IssueSeverityHigh     IssueSeverity = "HIGH"
	IssueSeverityCritical IssueSeverity = "CRITICAL"
)

// String returns the string representation of IssueSeverity
func (s IssueSeverity) String() string {
	return string(s)
}

// SeverityFor grades a variance percentage against the tolerance it
// exceeded. Bands are multiples of tolerance: under 2x is LOW, under
// 5x is MEDIUM, under 10x is HIGH, anything beyond is CRITICAL.
func SeverityFor(variancePct, tolerancePct decimal.Decimal) IssueSeverity {
	if !tolerancePct.IsPositive() {
		return IssueSeverityCritical
	}
	ratio := variancePct.Div(tolerancePct)
	switch {
	case ratio.LessThan(decimal.NewFromInt(2)):
		return IssueSeverityLow
	case ratio.LessThan(decimal.NewFromInt(5)):
		return IssueSeverityMedium
	case ratio.LessThan(decimal.NewFromInt(10)):
		return IssueSeverityHigh
	default:
		return IssueSeverityCritical
	}
}

// IssueStatus is the resolution lifecycle of a matching issue
type IssueStatus string

const (
	IssueStatusOpen       IssueStatus = "OPEN"
	IssueStatusResolved   IssueStatus = "RESOLVED"
	IssueStatusSuperseded IssueStatus = "SUPERSEDED" // Replaced by a newer match run
)

// IsValid checks if the status is a valid IssueStatus
func (s IssueStatus) IsValid() bool {
	return s == IssueStatusOpen || s == IssueStatusResolved || s == IssueStatusSuperseded
}

// String returns the string representation of IssueStatus
func (s IssueStatus) String() string {
	return string(s)
}

// MatchingIssue is a persisted match exception requiring explicit
// resolution before the vendor bill can be approved. It is a recorded
// business fact, not an error.
type MatchingIssue struct {
	shared.TenantAggregateRoot
	BillID      uuid.UUID
	BillLineID  uuid.UUID
	BillLineNo  int
	Type        IssueType
	Severity    IssueSeverity
	Expected    decimal.Decimal
	Actual      decimal.Decimal
	Delta       decimal.Decimal
	VariancePct decimal.Decimal
	Status      IssueStatus
	ResolvedBy  *uuid.UUID
	ResolvedAt  *time.Time
	Notes       string
}

// NewMatchingIssue creates an open matching issue
func NewMatchingIssue(
	tenantID, billID, billLineID uuid.UUID,
	billLineNo int,
	issueType IssueType,
	severity IssueSeverity,
	expected, actual, variancePct decimal.Decimal,
) *MatchingIssue {
	return &MatchingIssue{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		BillID:              billID,
		BillLineID:          billLineID,
		BillLineNo:          billLineNo,
		Type:                issueType,
		Severity:            severity,
		Expected:            expected,
		Actual:              actual,
		Delta:               actual.Sub(expected),
		VariancePct:         variancePct,
		Status:              IssueStatusOpen,
	}
}

// Resolve closes the issue with the resolver and a mandatory note
func (mi *MatchingIssue) Resolve(resolverID uuid.UUID, notes string) error {
	if mi.Status != IssueStatusOpen {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot resolve a %s issue", mi.Status))
	}
	if resolverID == uuid.Nil {
		return shared.NewDomainError("INVALID_RESOLVER", "Resolver ID cannot be empty")
	}
	if notes == "" {
		return shared.NewDomainError("INVALID_NOTES", "Resolution notes are required")
	}
	now := time.Now()
	mi.Status = IssueStatusResolved
	mi.ResolvedBy = &resolverID
	mi.ResolvedAt = &now
	mi.Notes = notes
	mi.UpdatedAt = now
	mi.IncrementVersion()
	return nil
}

// Supersede marks the issue replaced by a newer match run. Superseded
// issues no longer block approval.
func (mi *MatchingIssue) Supersede() error {
	if mi.Status != IssueStatusOpen {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot supersede a %s issue", mi.Status))
	}
	mi.Status = IssueStatusSuperseded
	mi.UpdatedAt = time.Now()
	mi.IncrementVersion()
	return nil
}

// IsOpen returns true while the issue still blocks approval
func (mi *MatchingIssue) IsOpen() bool {
	return mi.Status == IssueStatusOpen
}

// Variance describes one out-of-tolerance comparison on a bill line
type Variance struct {
	LineNo      int             `json:"line_no"`
	Type        VarianceType    `json:"type"`
	Expected    decimal.Decimal `json:"expected"`
	Actual      decimal.Decimal `json:"actual"`
	Delta       decimal.Decimal `json:"delta"`
	VariancePct decimal.Decimal `json:"variance_pct"`
}

// MatchLineResult is the outcome for one bill line
type MatchLineResult struct {
	BillLineID uuid.UUID       `json:"bill_line_id"`
	LineNo     int             `json:"line_no"`
	Status     MatchLineStatus `json:"status"`
}

// ThreeWayMatchResult is the outcome of matching one vendor bill
// against its purchase order and goods receipt.
type ThreeWayMatchResult struct {
	BillID          uuid.UUID         `json:"bill_id"`
	MatchedLines    int               `json:"matched_lines"`
	TotalLines      int               `json:"total_lines"`
	LineResults     []MatchLineResult `json:"line_results"`
	Variances       []Variance        `json:"variances"`
	Issues          []*MatchingIssue  `json:"issues"`
	WithinTolerance bool              `json:"within_tolerance"`
}

// Matcher is the three-way match engine. Tolerance is a percentage,
// e.g. 5 means price or quantity may diverge up to 5% before a line
// becomes a variance.
type Matcher struct {
	tolerancePct decimal.Decimal
}

// NewMatcher creates a matcher with the given tolerance percentage
func NewMatcher(tolerancePct decimal.Decimal) (*Matcher, error) {
	if tolerancePct.IsNegative() {
		return nil, shared.NewDomainError("INVALID_TOLERANCE", "Match tolerance cannot be negative")
	}
	return &Matcher{tolerancePct: tolerancePct}, nil
}

// TolerancePct returns the configured tolerance percentage
func (m *Matcher) TolerancePct() decimal.Decimal {
	return m.tolerancePct
}

var hundred = decimal.NewFromInt(100)

// Match compares every line of a vendor bill against the purchase
// order's agreed price and the goods receipt's received quantity.
// po and receipt may be nil, in which case every line is UNMATCHED.
// WithinTolerance is true only if every line is MATCHED.
func (m *Matcher) Match(bill *billing.Document, po *PurchaseOrder, receipt *GoodsReceipt) (*ThreeWayMatchResult, error) {
	if bill == nil {
		return nil, shared.NewDomainError("INVALID_BILL", "Vendor bill is required")
	}
	if bill.Type != billing.DocumentTypeVendorBill {
		return nil, shared.NewDomainError("INVALID_DOCUMENT_TYPE", fmt.Sprintf("Three-way match applies to vendor bills, got %s", bill.Type))
	}

	result := &ThreeWayMatchResult{
		BillID:      bill.ID,
		TotalLines:  len(bill.Lines),
		LineResults: make([]MatchLineResult, 0, len(bill.Lines)),
	}

	for _, line := range bill.Lines {
		status := m.matchLine(bill, line, po, receipt, result)
		result.LineResults = append(result.LineResults, MatchLineResult{
			BillLineID: line.ID,
			LineNo:     line.LineNo,
			Status:     status,
		})
		if status == MatchLineStatusMatched {
			result.MatchedLines++
		}
	}

	result.WithinTolerance = result.MatchedLines == result.TotalLines
	return result, nil
}

// matchLine evaluates one bill line, appending variances and issues to
// the result, and returns the line status.
func (m *Matcher) matchLine(bill *billing.Document, line billing.LineItem, po *PurchaseOrder, receipt *GoodsReceipt, result *ThreeWayMatchResult) MatchLineStatus {
	var poLine *POLine
	if po != nil && line.POLineID != nil {
		poLine = po.LineByID(*line.POLineID)
	}
	var receiptLine *ReceiptLine
	if receipt != nil && line.ReceiptLineID != nil {
		receiptLine = receipt.LineByID(*line.ReceiptLineID)
	}

	// A missing link is a distinct category, always an issue
	if poLine == nil {
		result.Issues = append(result.Issues, NewMatchingIssue(
			bill.TenantID, bill.ID, line.ID, line.LineNo,
			IssueTypeNoPO, IssueSeverityHigh,
			decimal.Zero, decimal.Zero, decimal.Zero,
		))
		return MatchLineStatusUnmatched
	}
	if receiptLine == nil {
		result.Issues = append(result.Issues, NewMatchingIssue(
			bill.TenantID, bill.ID, line.ID, line.LineNo,
			IssueTypeNoGR, IssueSeverityHigh,
			decimal.Zero, decimal.Zero, decimal.Zero,
		))
		return MatchLineStatusUnmatched
	}

	status := MatchLineStatusMatched

	// A zero expected value has no finite percentage; any non-zero
	// billed value against it counts as a full variance
	if pct, ok := deviationPct(line.UnitPrice, poLine.UnitPrice); ok && pct.GreaterThan(m.tolerancePct) {
		status = MatchLineStatusVariance
		result.Variances = append(result.Variances, Variance{
			LineNo:      line.LineNo,
			Type:        VarianceTypePrice,
			Expected:    poLine.UnitPrice,
			Actual:      line.UnitPrice,
			Delta:       line.UnitPrice.Sub(poLine.UnitPrice),
			VariancePct: pct,
		})
		result.Issues = append(result.Issues, NewMatchingIssue(
			bill.TenantID, bill.ID, line.ID, line.LineNo,
			IssueTypePriceVariance, SeverityFor(pct, m.tolerancePct),
			poLine.UnitPrice, line.UnitPrice, pct,
		))
	}

	if pct, ok := deviationPct(line.Quantity, receiptLine.ReceivedQuantity); ok && pct.GreaterThan(m.tolerancePct) {
		status = MatchLineStatusVariance
		result.Variances = append(result.Variances, Variance{
			LineNo:      line.LineNo,
			Type:        VarianceTypeQuantity,
			Expected:    receiptLine.ReceivedQuantity,
			Actual:      line.Quantity,
			Delta:       line.Quantity.Sub(receiptLine.ReceivedQuantity),
			VariancePct: pct,
		})
		result.Issues = append(result.Issues, NewMatchingIssue(
			bill.TenantID, bill.ID, line.ID, line.LineNo,
			IssueTypeQuantityVariance, SeverityFor(pct, m.tolerancePct),
			receiptLine.ReceivedQuantity, line.Quantity, pct,
		))
	}

	return status
}

// deviationPct returns the percentage deviation of actual from expected.
// With a zero expected value the deviation is reported as 100% when the
// actual differs, which lands in the CRITICAL severity band against any
// sane tolerance. Equal values report no deviation at all.
func deviationPct(actual, expected decimal.Decimal) (decimal.Decimal, bool) {
	if actual.Equal(expected) {
		return decimal.Zero, false
	}
	if !expected.IsPositive() {
		return hundred, true
	}
	return actual.Sub(expected).Abs().Div(expected).Mul(hundred), true
}
