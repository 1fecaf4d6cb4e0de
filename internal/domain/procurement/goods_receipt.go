package procurement

import (
	"fmt"
	"time"

	"github.com/finledger/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ReceiptLine records goods received against one purchase order line
type ReceiptLine struct {
	ID               uuid.UUID       `json:"id"`
	LineNo           int             `json:"line_no"`
	POLineID         uuid.UUID       `json:"po_line_id"`
	ReceivedQuantity decimal.Decimal `json:"received_quantity"`
}

// NewReceiptLine creates a receipt line with a generated ID
func NewReceiptLine(lineNo int, poLineID uuid.UUID, receivedQuantity decimal.Decimal) ReceiptLine {
	return ReceiptLine{
		ID:               uuid.New(),
		LineNo:           lineNo,
		POLineID:         poLineID,
		ReceivedQuantity: receivedQuantity,
	}
}

// GoodsReceipt is the aggregate root recording physical receipt of
// goods against a purchase order.
type GoodsReceipt struct {
	shared.TenantAggregateRoot
	ReceiptNumber   string
	PurchaseOrderID uuid.UUID
	ReceivedDate    time.Time
	ReceivedBy      string
	Lines           []ReceiptLine
}

// NewGoodsReceipt creates a goods receipt
func NewGoodsReceipt(
	tenantID uuid.UUID,
	receiptNumber string,
	purchaseOrderID uuid.UUID,
	receivedDate time.Time,
	receivedBy string,
	lines []ReceiptLine,
) (*GoodsReceipt, error) {
	if receiptNumber == "" {
		return nil, shared.NewDomainError("INVALID_RECEIPT_NUMBER", "Receipt number cannot be empty")
	}
	if purchaseOrderID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_ORDER", "Purchase order ID cannot be empty")
	}
	if receivedDate.IsZero() {
		return nil, shared.NewDomainError("INVALID_RECEIPT_DATE", "Received date is required")
	}
	if len(lines) == 0 {
		return nil, shared.NewDomainError("EMPTY_RECEIPT", "Goods receipt must have at least one line")
	}
	for i, line := range lines {
		if line.POLineID == uuid.Nil {
			return nil, shared.NewDomainError("INVALID_LINE", fmt.Sprintf("Line %d: purchase order line reference is required", i+1))
		}
		if !line.ReceivedQuantity.IsPositive() {
			return nil, shared.NewDomainError("INVALID_LINE", fmt.Sprintf("Line %d: received quantity must be positive", i+1))
		}
	}

	return &GoodsReceipt{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		ReceiptNumber:       receiptNumber,
		PurchaseOrderID:     purchaseOrderID,
		ReceivedDate:        receivedDate,
		ReceivedBy:          receivedBy,
		Lines:               lines,
	}, nil
}

// LineByID returns the receipt line with the given ID, if any
func (gr *GoodsReceipt) LineByID(lineID uuid.UUID) *ReceiptLine {
	for i := range gr.Lines {
		if gr.Lines[i].ID == lineID {
			return &gr.Lines[i]
		}
	}
	return nil
}

// ReceivedForPOLine sums received quantity across receipt lines that
// reference one purchase order line.
func (gr *GoodsReceipt) ReceivedForPOLine(poLineID uuid.UUID) decimal.Decimal {
	total := decimal.Zero
	for _, line := range gr.Lines {
		if line.POLineID == poLineID {
			total = total.Add(line.ReceivedQuantity)
		}
	}
	return total
}
