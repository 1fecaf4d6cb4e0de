package procurement

import (
	"fmt"
	"time"

	"github.com/finledger/backend/internal/domain/shared"
	"github.com/finledger/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PurchaseOrderStatus is the lifecycle of a purchase order
type PurchaseOrderStatus string

const (
	PurchaseOrderStatusOpen      PurchaseOrderStatus = "OPEN"
	PurchaseOrderStatusReceived  PurchaseOrderStatus = "RECEIVED"
	PurchaseOrderStatusClosed    PurchaseOrderStatus = "CLOSED"
	PurchaseOrderStatusCancelled PurchaseOrderStatus = "CANCELLED"
)

// IsValid checks if the status is a valid PurchaseOrderStatus
func (s PurchaseOrderStatus) IsValid() bool {
	switch s {
	case PurchaseOrderStatusOpen, PurchaseOrderStatusReceived,
		PurchaseOrderStatusClosed, PurchaseOrderStatusCancelled:
		return true
	}
	return false
}

// String returns the string representation of PurchaseOrderStatus
func (s PurchaseOrderStatus) String() string {
	return string(s)
}

// POLine is a line on a purchase order. OrderedQuantity and UnitPrice
// are the agreed commercial terms the three-way match compares against.
type POLine struct {
	ID              uuid.UUID       `json:"id"`
	LineNo          int             `json:"line_no"`
	Description     string          `json:"description"`
	OrderedQuantity decimal.Decimal `json:"ordered_quantity"`
	UnitPrice       decimal.Decimal `json:"unit_price"`
}

// NewPOLine creates a purchase order line with a generated ID
func NewPOLine(lineNo int, description string, orderedQuantity, unitPrice decimal.Decimal) POLine {
	return POLine{
		ID:              uuid.New(),
		LineNo:          lineNo,
		Description:     description,
		OrderedQuantity: orderedQuantity,
		UnitPrice:       unitPrice,
	}
}

// PurchaseOrder is the aggregate root for an order placed with a supplier
type PurchaseOrder struct {
	shared.TenantAggregateRoot
	OrderNumber string
	SupplierID  uuid.UUID
	Supplier    string
	Currency    valueobject.Currency
	OrderDate   time.Time
	Status      PurchaseOrderStatus
	Lines       []POLine
}

// NewPurchaseOrder creates an open purchase order
func NewPurchaseOrder(
	tenantID uuid.UUID,
	orderNumber string,
	supplierID uuid.UUID,
	supplier string,
	currency valueobject.Currency,
	orderDate time.Time,
	lines []POLine,
) (*PurchaseOrder, error) {
	if orderNumber == "" {
		return nil, shared.NewDomainError("INVALID_ORDER_NUMBER", "Order number cannot be empty")
	}
	if supplierID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_SUPPLIER", "Supplier ID cannot be empty")
	}
	if supplier == "" {
		return nil, shared.NewDomainError("INVALID_SUPPLIER_NAME", "Supplier name cannot be empty")
	}
	if !currency.IsValid() {
		return nil, shared.NewDomainError("INVALID_CURRENCY", fmt.Sprintf("Invalid currency code %q", currency))
	}
	if orderDate.IsZero() {
		return nil, shared.NewDomainError("INVALID_ORDER_DATE", "Order date is required")
	}
	if len(lines) == 0 {
		return nil, shared.NewDomainError("EMPTY_ORDER", "Purchase order must have at least one line")
	}
	for i, line := range lines {
		if line.Description == "" {
			return nil, shared.NewDomainError("INVALID_LINE", fmt.Sprintf("Line %d: description cannot be empty", i+1))
		}
		if !line.OrderedQuantity.IsPositive() {
			return nil, shared.NewDomainError("INVALID_LINE", fmt.Sprintf("Line %d: ordered quantity must be positive", i+1))
		}
		if line.UnitPrice.IsNegative() {
			return nil, shared.NewDomainError("INVALID_LINE", fmt.Sprintf("Line %d: unit price cannot be negative", i+1))
		}
	}

	return &PurchaseOrder{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		OrderNumber:         orderNumber,
		SupplierID:          supplierID,
		Supplier:            supplier,
		Currency:            currency,
		OrderDate:           orderDate,
		Status:              PurchaseOrderStatusOpen,
		Lines:               lines,
	}, nil
}

// LineByID returns the purchase order line with the given ID, if any
func (po *PurchaseOrder) LineByID(lineID uuid.UUID) *POLine {
	for i := range po.Lines {
		if po.Lines[i].ID == lineID {
			return &po.Lines[i]
		}
	}
	return nil
}

// MarkReceived records that goods against this order have arrived
func (po *PurchaseOrder) MarkReceived() error {
	if po.Status != PurchaseOrderStatusOpen {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot receive against a %s order", po.Status))
	}
	po.Status = PurchaseOrderStatusReceived
	po.UpdatedAt = time.Now()
	po.IncrementVersion()
	return nil
}

// Close closes a fully billed order
func (po *PurchaseOrder) Close() error {
	if po.Status == PurchaseOrderStatusClosed || po.Status == PurchaseOrderStatusCancelled {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot close a %s order", po.Status))
	}
	po.Status = PurchaseOrderStatusClosed
	po.UpdatedAt = time.Now()
	po.IncrementVersion()
	return nil
}
