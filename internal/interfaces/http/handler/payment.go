package handler

import (
	"time"

	apppayment "github.com/finledger/backend/internal/application/payment"
	"github.com/finledger/backend/internal/domain/payment"
	"github.com/finledger/backend/internal/domain/shared/valueobject"
	"github.com/finledger/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentHandler exposes payment recording and allocation over HTTP
type PaymentHandler struct {
	BaseHandler
	service *apppayment.AllocationService
}

// NewPaymentHandler creates a payment handler
func NewPaymentHandler(service *apppayment.AllocationService) *PaymentHandler {
	return &PaymentHandler{service: service}
}

// CreatePaymentRequest is the payload for recording a payment
type CreatePaymentRequest struct {
	PaymentNumber   string    `json:"payment_number"`
	Type            string    `json:"type" binding:"required"`
	PartyID         string    `json:"party_id" binding:"required,uuid"`
	PartyName       string    `json:"party_name" binding:"required"`
	Amount          string    `json:"amount" binding:"required,decimalstr"`
	Currency        string    `json:"currency" binding:"required,len=3"`
	BankAccountCode string    `json:"bank_account_code" binding:"required"`
	PaymentDate     time.Time `json:"payment_date" binding:"required"`
}

// AllocateRequest is the payload for allocating a payment to an invoice
type AllocateRequest struct {
	InvoiceID string `json:"invoice_id" binding:"required,uuid"`
	Amount    string `json:"amount" binding:"required,decimalstr"`
}

// PaymentResponse is the HTTP shape of a payment
type PaymentResponse struct {
	ID              string                      `json:"id"`
	PaymentNumber   string                      `json:"payment_number"`
	Type            string                      `json:"type"`
	PartyID         string                      `json:"party_id"`
	PartyName       string                      `json:"party_name"`
	PaymentDate     time.Time                   `json:"payment_date"`
	TotalAmount     decimal.Decimal             `json:"total_amount"`
	Currency        string                      `json:"currency"`
	BankAccountCode string                      `json:"bank_account_code"`
	State           string                      `json:"state"`
	AllocatedAmount decimal.Decimal             `json:"allocated_amount"`
	Allocations     []payment.PaymentAllocation `json:"allocations"`
	PostedAt        *time.Time                  `json:"posted_at,omitempty"`
	JournalEntryID  *string                     `json:"journal_entry_id,omitempty"`
	Version         int                         `json:"version"`
	CreatedAt       time.Time                   `json:"created_at"`
	UpdatedAt       time.Time                   `json:"updated_at"`
}

func toPaymentResponse(p *payment.Payment) PaymentResponse {
	resp := PaymentResponse{
		ID:              p.ID.String(),
		PaymentNumber:   p.PaymentNumber,
		Type:            p.Type.String(),
		PartyID:         p.PartyID.String(),
		PartyName:       p.PartyName,
		PaymentDate:     p.PaymentDate,
		TotalAmount:     p.TotalAmount,
		Currency:        p.Currency.String(),
		BankAccountCode: p.BankAccountCode,
		State:           p.State.String(),
		AllocatedAmount: p.AllocatedAmount,
		Allocations:     p.Allocations,
		PostedAt:        p.PostedAt,
		Version:         p.Version,
		CreatedAt:       p.CreatedAt,
		UpdatedAt:       p.UpdatedAt,
	}
	if p.JournalEntryID != nil {
		s := p.JournalEntryID.String()
		resp.JournalEntryID = &s
	}
	return resp
}

// RegisterRoutes registers payment and allocation routes
func (h *PaymentHandler) RegisterRoutes(rg *gin.RouterGroup) {
	payments := rg.Group("/payments")
	{
		payments.POST("", h.Create)
		payments.GET("/:id", h.Get)
		payments.POST("/:id/confirm", h.Confirm)
		payments.POST("/:id/allocations", h.Allocate)
	}
}

// Create handles POST /payments
func (h *PaymentHandler) Create(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	var req CreatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	partyID, err := uuid.Parse(req.PartyID)
	if err != nil {
		h.BadRequest(c, "Invalid party ID")
		return
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		h.BadRequest(c, "Invalid amount: "+req.Amount)
		return
	}

	result, err := h.service.CreatePayment(c.Request.Context(), apppayment.CreatePaymentRequest{
		TenantID:        tenantID,
		PaymentNumber:   req.PaymentNumber,
		Type:            payment.PaymentType(req.Type),
		PartyID:         partyID,
		PartyName:       req.PartyName,
		Amount:          amount,
		Currency:        valueobject.Currency(req.Currency),
		BankAccountCode: req.BankAccountCode,
		PaymentDate:     req.PaymentDate,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, result)
}

// Get handles GET /payments/:id
func (h *PaymentHandler) Get(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	var idReq dto.IDRequest
	if err := c.ShouldBindUri(&idReq); err != nil {
		h.BadRequest(c, "Invalid payment ID")
		return
	}
	paymentID, _ := uuid.Parse(idReq.ID)

	p, err := h.service.GetPayment(c.Request.Context(), tenantID, paymentID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, toPaymentResponse(p))
}

// Confirm handles POST /payments/:id/confirm
func (h *PaymentHandler) Confirm(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	var idReq dto.IDRequest
	if err := c.ShouldBindUri(&idReq); err != nil {
		h.BadRequest(c, "Invalid payment ID")
		return
	}
	paymentID, _ := uuid.Parse(idReq.ID)

	if err := h.service.Confirm(c.Request.Context(), tenantID, paymentID); err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, gin.H{"payment_id": paymentID, "state": payment.PaymentStateConfirmed})
}

// Allocate handles POST /payments/:id/allocations
func (h *PaymentHandler) Allocate(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	var idReq dto.IDRequest
	if err := c.ShouldBindUri(&idReq); err != nil {
		h.BadRequest(c, "Invalid payment ID")
		return
	}
	paymentID, _ := uuid.Parse(idReq.ID)

	var req AllocateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "Invalid request body: "+err.Error())
		return
	}
	invoiceID, err := uuid.Parse(req.InvoiceID)
	if err != nil {
		h.BadRequest(c, "Invalid invoice ID")
		return
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		h.BadRequest(c, "Invalid amount: "+req.Amount)
		return
	}

	result, err := h.service.Allocate(c.Request.Context(), apppayment.AllocateRequest{
		TenantID:  tenantID,
		PaymentID: paymentID,
		InvoiceID: invoiceID,
		Amount:    amount,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, result)
}
