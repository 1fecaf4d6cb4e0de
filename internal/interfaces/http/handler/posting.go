package handler

import (
	"strconv"
	"time"

	appledger "github.com/finledger/backend/internal/application/ledger"
	"github.com/finledger/backend/internal/domain/ledger"
	"github.com/finledger/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// PostingHandler exposes ledger posting and reversal over HTTP
type PostingHandler struct {
	BaseHandler
	service *appledger.PostingService
}

// NewPostingHandler creates a posting handler
func NewPostingHandler(service *appledger.PostingService) *PostingHandler {
	return &PostingHandler{service: service}
}

// JournalEntryResponse is the HTTP shape of a journal entry
type JournalEntryResponse struct {
	ID           string               `json:"id"`
	EntryNumber  string               `json:"entry_number"`
	EntryDate    time.Time            `json:"entry_date"`
	Currency     string               `json:"currency"`
	Memo         string               `json:"memo,omitempty"`
	Posted       bool                 `json:"posted"`
	PostedAt     *time.Time           `json:"posted_at,omitempty"`
	ReversalOfID *string              `json:"reversal_of_id,omitempty"`
	SourceType   string               `json:"source_type"`
	SourceID     string               `json:"source_id"`
	Lines        []ledger.JournalLine `json:"lines"`
}

func toJournalEntryResponse(entry *ledger.JournalEntry) JournalEntryResponse {
	resp := JournalEntryResponse{
		ID:          entry.ID.String(),
		EntryNumber: entry.EntryNumber,
		EntryDate:   entry.EntryDate,
		Currency:    entry.Currency.String(),
		Memo:        entry.Memo,
		Posted:      entry.Posted,
		PostedAt:    entry.PostedAt,
		SourceType:  entry.SourceType.String(),
		SourceID:    entry.SourceID.String(),
		Lines:       entry.Lines,
	}
	if entry.ReversalOfID != nil {
		s := entry.ReversalOfID.String()
		resp.ReversalOfID = &s
	}
	return resp
}

// RegisterRoutes registers posting and journal entry routes
func (h *PostingHandler) RegisterRoutes(rg *gin.RouterGroup) {
	documents := rg.Group("/documents")
	{
		documents.POST("/:id/post", h.Post)
		documents.GET("/:id/totals", h.Totals)
	}
	entries := rg.Group("/journal-entries")
	{
		entries.GET("", h.List)
		entries.GET("/:id", h.Get)
		entries.POST("/:id/reverse", h.Reverse)
	}
}

// Post handles POST /documents/:id/post
func (h *PostingHandler) Post(c *gin.Context) {
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

	result, err := h.service.Post(c.Request.Context(), appledger.PostRequest{
		TenantID:   tenantID,
		DocumentID: documentID,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	if result.AlreadyPosted {
		h.Success(c, result)
		return
	}
	h.Created(c, result)
}

// Totals handles GET /documents/:id/totals
func (h *PostingHandler) Totals(c *gin.Context) {
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

	totals, err := h.service.ComputeTotals(c.Request.Context(), tenantID, documentID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, toTotalsResponse(totals))
}

// Get handles GET /journal-entries/:id
func (h *PostingHandler) Get(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	var idReq dto.IDRequest
	if err := c.ShouldBindUri(&idReq); err != nil {
		h.BadRequest(c, "Invalid entry ID")
		return
	}
	entryID, _ := uuid.Parse(idReq.ID)

	entry, err := h.service.GetEntry(c.Request.Context(), tenantID, entryID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, toJournalEntryResponse(entry))
}

// List handles GET /journal-entries
func (h *PostingHandler) List(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	limit := 100
	if v := c.Query("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 1 {
			h.BadRequest(c, "Invalid limit")
			return
		}
		limit = parsed
	}

	entries, err := h.service.ListEntries(c.Request.Context(), tenantID, limit)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	responses := make([]JournalEntryResponse, 0, len(entries))
	for i := range entries {
		responses = append(responses, toJournalEntryResponse(&entries[i]))
	}
	h.Success(c, responses)
}

// Reverse handles POST /journal-entries/:id/reverse
func (h *PostingHandler) Reverse(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	var idReq dto.IDRequest
	if err := c.ShouldBindUri(&idReq); err != nil {
		h.BadRequest(c, "Invalid entry ID")
		return
	}
	entryID, _ := uuid.Parse(idReq.ID)

	result, err := h.service.Reverse(c.Request.Context(), appledger.ReverseRequest{
		TenantID: tenantID,
		EntryID:  entryID,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	if result.AlreadyReversed {
		h.Success(c, result)
		return
	}
	h.Created(c, result)
}
