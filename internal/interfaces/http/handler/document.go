package handler

import (
	"net/http"
	"time"

	appbilling "github.com/finledger/backend/internal/application/billing"
	"github.com/finledger/backend/internal/domain/billing"
	"github.com/finledger/backend/internal/domain/shared"
	"github.com/finledger/backend/internal/domain/shared/valueobject"
	"github.com/finledger/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DocumentHandler exposes the commercial document lifecycle over HTTP
type DocumentHandler struct {
	BaseHandler
	service *appbilling.DocumentService
}

// NewDocumentHandler creates a document handler
func NewDocumentHandler(service *appbilling.DocumentService) *DocumentHandler {
	return &DocumentHandler{service: service}
}

// CreateDocumentRequest is the payload for creating a document
type CreateDocumentRequest struct {
	DocumentNumber  string              `json:"document_number"`
	Type            string              `json:"type" binding:"required"`
	PartyID         string              `json:"party_id" binding:"required,uuid"`
	PartyName       string              `json:"party_name" binding:"required"`
	Currency        string              `json:"currency" binding:"required,len=3"`
	Jurisdiction    string              `json:"jurisdiction" binding:"required"`
	IssueDate       time.Time           `json:"issue_date" binding:"required"`
	DueDate         *time.Time          `json:"due_date"`
	PurchaseOrderID *string             `json:"purchase_order_id" binding:"omitempty,uuid"`
	GoodsReceiptID  *string             `json:"goods_receipt_id" binding:"omitempty,uuid"`
	Lines           []DocumentLineInput `json:"lines" binding:"required,min=1,dive"`
}

// DocumentLineInput is one line of a create request. Quantity, price
// and tax rate arrive as strings so no precision is lost in transit.
type DocumentLineInput struct {
	Description   string  `json:"description" binding:"required"`
	Quantity      string  `json:"quantity" binding:"required,decimalstr"`
	UnitPrice     string  `json:"unit_price" binding:"required,decimalstr"`
	TaxRateCode   string  `json:"tax_rate_code"`
	AccountCode   string  `json:"account_code"`
	POLineID      *string `json:"po_line_id" binding:"omitempty,uuid"`
	ReceiptLineID *string `json:"receipt_line_id" binding:"omitempty,uuid"`
}

// DecisionRequest is the payload for approve and reject
type DecisionRequest struct {
	Comments string `json:"comments"`
}

// DocumentResponse is the HTTP shape of a document
type DocumentResponse struct {
	ID                string                 `json:"id"`
	DocumentNumber    string                 `json:"document_number"`
	Type              string                 `json:"type"`
	PartyID           string                 `json:"party_id"`
	PartyName         string                 `json:"party_name"`
	Currency          string                 `json:"currency"`
	Jurisdiction      string                 `json:"jurisdiction"`
	IssueDate         time.Time              `json:"issue_date"`
	DueDate           *time.Time             `json:"due_date,omitempty"`
	ApprovalStatus    string                 `json:"approval_status"`
	PostingStatus     string                 `json:"posting_status"`
	PaymentStatus     string                 `json:"payment_status"`
	MatchStatus       string                 `json:"match_status"`
	Lines             []billing.LineItem     `json:"lines"`
	PaidAmount        decimal.Decimal        `json:"paid_amount"`
	PurchaseOrderID   *string                `json:"purchase_order_id,omitempty"`
	GoodsReceiptID    *string                `json:"goods_receipt_id,omitempty"`
	PostedAt          *time.Time             `json:"posted_at,omitempty"`
	PostingRate       decimal.Decimal        `json:"posting_rate"`
	BaseCurrencyTotal decimal.Decimal        `json:"base_currency_total"`
	JournalEntryID    *string                `json:"journal_entry_id,omitempty"`
	Version           int                    `json:"version"`
	CreatedAt         time.Time              `json:"created_at"`
	UpdatedAt         time.Time              `json:"updated_at"`
}

// TotalsResponse is the HTTP shape of a totals calculation
type TotalsResponse struct {
	Currency     string                  `json:"currency"`
	BaseCurrency string                  `json:"base_currency"`
	Subtotal     decimal.Decimal         `json:"subtotal"`
	Tax          decimal.Decimal         `json:"tax"`
	Total        decimal.Decimal         `json:"total"`
	Paid         decimal.Decimal         `json:"paid"`
	Balance      decimal.Decimal         `json:"balance"`
	BaseSubtotal decimal.Decimal         `json:"base_subtotal"`
	BaseTax      decimal.Decimal         `json:"base_tax"`
	BaseTotal    decimal.Decimal         `json:"base_total"`
	Rate         decimal.Decimal         `json:"rate"`
	Rejections   []billing.LineRejection `json:"rejections,omitempty"`
}

func toDocumentResponse(doc *billing.Document) DocumentResponse {
	resp := DocumentResponse{
		ID:                doc.ID.String(),
		DocumentNumber:    doc.DocumentNumber,
		Type:              doc.Type.String(),
		PartyID:           doc.PartyID.String(),
		PartyName:         doc.PartyName,
		Currency:          doc.Currency.String(),
		Jurisdiction:      doc.Jurisdiction,
		IssueDate:         doc.IssueDate,
		DueDate:           doc.DueDate,
		ApprovalStatus:    doc.ApprovalStatus.String(),
		PostingStatus:     doc.PostingStatus.String(),
		PaymentStatus:     doc.PaymentStatus.String(),
		MatchStatus:       doc.MatchStatus.String(),
		Lines:             doc.Lines,
		PaidAmount:        doc.PaidAmount,
		PostedAt:          doc.PostedAt,
		PostingRate:       doc.PostingRate,
		BaseCurrencyTotal: doc.BaseCurrencyTotal,
		Version:           doc.Version,
		CreatedAt:         doc.CreatedAt,
		UpdatedAt:         doc.UpdatedAt,
	}
	if doc.PurchaseOrderID != nil {
		s := doc.PurchaseOrderID.String()
		resp.PurchaseOrderID = &s
	}
	if doc.GoodsReceiptID != nil {
		s := doc.GoodsReceiptID.String()
		resp.GoodsReceiptID = &s
	}
	if doc.JournalEntryID != nil {
		s := doc.JournalEntryID.String()
		resp.JournalEntryID = &s
	}
	return resp
}

func toTotalsResponse(t *billing.Totals) TotalsResponse {
	return TotalsResponse{
		Currency:     t.Currency.String(),
		BaseCurrency: t.BaseCurrency.String(),
		Subtotal:     t.Subtotal,
		Tax:          t.Tax,
		Total:        t.Total,
		Paid:         t.Paid,
		Balance:      t.Balance,
		BaseSubtotal: t.BaseSubtotal,
		BaseTax:      t.BaseTax,
		BaseTotal:    t.BaseTotal,
		Rate:         t.Rate.Rate,
		Rejections:   t.Rejections,
	}
}

// RegisterRoutes registers document lifecycle routes
func (h *DocumentHandler) RegisterRoutes(rg *gin.RouterGroup) {
	documents := rg.Group("/documents")
	{
		documents.POST("", h.Create)
		documents.GET("", h.List)
		documents.GET("/:id", h.Get)
		documents.POST("/:id/submit", h.Submit)
		documents.POST("/:id/approve", h.Approve)
		documents.POST("/:id/reject", h.Reject)
		documents.POST("/:id/return", h.ReturnToDraft)
	}
}

// Create handles POST /documents
func (h *DocumentHandler) Create(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	var req CreateDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	partyID, err := uuid.Parse(req.PartyID)
	if err != nil {
		h.BadRequest(c, "Invalid party ID")
		return
	}

	svcReq := appbilling.CreateDocumentRequest{
		TenantID:       tenantID,
		DocumentNumber: req.DocumentNumber,
		Type:           billing.DocumentType(req.Type),
		PartyID:        partyID,
		PartyName:      req.PartyName,
		Currency:       valueobject.Currency(req.Currency),
		Jurisdiction:   req.Jurisdiction,
		IssueDate:      req.IssueDate,
		DueDate:        req.DueDate,
	}
	if req.PurchaseOrderID != nil {
		id, err := uuid.Parse(*req.PurchaseOrderID)
		if err != nil {
			h.BadRequest(c, "Invalid purchase order ID")
			return
		}
		svcReq.PurchaseOrderID = &id
	}
	if req.GoodsReceiptID != nil {
		id, err := uuid.Parse(*req.GoodsReceiptID)
		if err != nil {
			h.BadRequest(c, "Invalid goods receipt ID")
			return
		}
		svcReq.GoodsReceiptID = &id
	}

	for _, line := range req.Lines {
		quantity, err := decimal.NewFromString(line.Quantity)
		if err != nil {
			h.Error(c, http.StatusBadRequest, dto.ErrCodeInvalidInput, "Invalid quantity: "+line.Quantity)
			return
		}
		unitPrice, err := decimal.NewFromString(line.UnitPrice)
		if err != nil {
			h.Error(c, http.StatusBadRequest, dto.ErrCodeInvalidInput, "Invalid unit price: "+line.UnitPrice)
			return
		}
		item := appbilling.LineItemRequest{
			Description: line.Description,
			Quantity:    quantity,
			UnitPrice:   unitPrice,
			TaxRateCode: line.TaxRateCode,
			AccountCode: line.AccountCode,
		}
		if line.POLineID != nil {
			id, err := uuid.Parse(*line.POLineID)
			if err != nil {
				h.BadRequest(c, "Invalid PO line ID")
				return
			}
			item.POLineID = &id
		}
		if line.ReceiptLineID != nil {
			id, err := uuid.Parse(*line.ReceiptLineID)
			if err != nil {
				h.BadRequest(c, "Invalid receipt line ID")
				return
			}
			item.ReceiptLineID = &id
		}
		svcReq.Lines = append(svcReq.Lines, item)
	}

	result, err := h.service.CreateDocument(c.Request.Context(), svcReq)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, result)
}

// Get handles GET /documents/:id
func (h *DocumentHandler) Get(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	var idReq dto.IDRequest
	if err := c.ShouldBindUri(&idReq); err != nil {
		h.BadRequest(c, "Invalid document ID")
		return
	}
	documentID, _ := uuid.Parse(idReq.ID)

	doc, err := h.service.GetDocument(c.Request.Context(), tenantID, documentID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, toDocumentResponse(doc))
}

// List handles GET /documents
func (h *DocumentHandler) List(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	listReq := dto.DefaultListRequest()
	if err := c.ShouldBindQuery(&listReq); err != nil {
		h.BadRequest(c, "Invalid query parameters: "+err.Error())
		return
	}
	if listReq.Page == 0 {
		listReq.Page = 1
	}
	if listReq.PageSize == 0 {
		listReq.PageSize = 20
	}

	filter := billing.DocumentFilter{
		Filter: shared.Filter{
			Page:     listReq.Page,
			PageSize: listReq.PageSize,
			OrderBy:  listReq.OrderBy,
			OrderDir: listReq.OrderDir,
		},
	}
	if v := c.Query("type"); v != "" {
		t := billing.DocumentType(v)
		filter.Type = &t
	}
	if v := c.Query("party_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			h.BadRequest(c, "Invalid party_id filter")
			return
		}
		filter.PartyID = &id
	}
	if v := c.Query("approval_status"); v != "" {
		s := billing.ApprovalStatus(v)
		filter.ApprovalStatus = &s
	}
	if v := c.Query("posting_status"); v != "" {
		s := billing.PostingStatus(v)
		filter.PostingStatus = &s
	}
	if v := c.Query("payment_status"); v != "" {
		s := billing.PaymentStatus(v)
		filter.PaymentStatus = &s
	}

	docs, err := h.service.ListDocuments(c.Request.Context(), tenantID, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	responses := make([]DocumentResponse, 0, len(docs))
	for i := range docs {
		responses = append(responses, toDocumentResponse(&docs[i]))
	}
	c.JSON(http.StatusOK, dto.NewSuccessResponseWithMeta(responses, listReq.Page, listReq.PageSize, len(responses)))
}

// Submit handles POST /documents/:id/submit
func (h *DocumentHandler) Submit(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	var idReq dto.IDRequest
	if err := c.ShouldBindUri(&idReq); err != nil {
		h.BadRequest(c, "Invalid document ID")
		return
	}
	documentID, _ := uuid.Parse(idReq.ID)

	if err := h.service.Submit(c.Request.Context(), tenantID, documentID); err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, gin.H{"document_id": documentID, "approval_status": billing.ApprovalStatusPendingApproval})
}

// Approve handles POST /documents/:id/approve
func (h *DocumentHandler) Approve(c *gin.Context) {
	h.decide(c, true)
}

// Reject handles POST /documents/:id/reject
func (h *DocumentHandler) Reject(c *gin.Context) {
	h.decide(c, false)
}

func (h *DocumentHandler) decide(c *gin.Context, approve bool) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	approverID, err := getActorID(c)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	var idReq dto.IDRequest
	if err := c.ShouldBindUri(&idReq); err != nil {
		h.BadRequest(c, "Invalid document ID")
		return
	}
	documentID, _ := uuid.Parse(idReq.ID)

	var req DecisionRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			h.BadRequest(c, "Invalid request body: "+err.Error())
			return
		}
	}

	svcReq := appbilling.DecisionRequest{
		TenantID:   tenantID,
		DocumentID: documentID,
		ApproverID: approverID,
		Comments:   req.Comments,
	}

	if approve {
		err = h.service.Approve(c.Request.Context(), svcReq)
	} else {
		err = h.service.Reject(c.Request.Context(), svcReq)
	}
	if err != nil {
		h.HandleError(c, err)
		return
	}

	status := billing.ApprovalStatusApproved
	if !approve {
		status = billing.ApprovalStatusRejected
	}
	h.Success(c, gin.H{"document_id": documentID, "approval_status": status})
}

// ReturnToDraft handles POST /documents/:id/return
func (h *DocumentHandler) ReturnToDraft(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	var idReq dto.IDRequest
	if err := c.ShouldBindUri(&idReq); err != nil {
		h.BadRequest(c, "Invalid document ID")
		return
	}
	documentID, _ := uuid.Parse(idReq.ID)

	if err := h.service.ReturnToDraft(c.Request.Context(), tenantID, documentID); err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, gin.H{"document_id": documentID, "approval_status": billing.ApprovalStatusDraft})
}
