package handler

import (
	"time"

	appprocurement "github.com/finledger/backend/internal/application/procurement"
	"github.com/finledger/backend/internal/domain/procurement"
	"github.com/finledger/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MatchHandler exposes the three-way match engine over HTTP
type MatchHandler struct {
	BaseHandler
	service *appprocurement.MatchService
}

// NewMatchHandler creates a match handler
func NewMatchHandler(service *appprocurement.MatchService) *MatchHandler {
	return &MatchHandler{service: service}
}

// ResolveIssueRequest is the payload for resolving a matching issue
type ResolveIssueRequest struct {
	Notes string `json:"notes" binding:"required"`
}

// MatchingIssueResponse is the HTTP shape of a matching issue
type MatchingIssueResponse struct {
	ID          string          `json:"id"`
	BillID      string          `json:"bill_id"`
	BillLineID  string          `json:"bill_line_id"`
	BillLineNo  int             `json:"bill_line_no"`
	Type        string          `json:"type"`
	Severity    string          `json:"severity"`
	Expected    decimal.Decimal `json:"expected"`
	Actual      decimal.Decimal `json:"actual"`
	Delta       decimal.Decimal `json:"delta"`
	VariancePct decimal.Decimal `json:"variance_pct"`
	Status      string          `json:"status"`
	ResolvedBy  *string         `json:"resolved_by,omitempty"`
	ResolvedAt  *time.Time      `json:"resolved_at,omitempty"`
	Notes       string          `json:"notes,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

func toMatchingIssueResponse(issue *procurement.MatchingIssue) MatchingIssueResponse {
	resp := MatchingIssueResponse{
		ID:          issue.ID.String(),
		BillID:      issue.BillID.String(),
		BillLineID:  issue.BillLineID.String(),
		BillLineNo:  issue.BillLineNo,
		Type:        string(issue.Type),
		Severity:    issue.Severity.String(),
		Expected:    issue.Expected,
		Actual:      issue.Actual,
		Delta:       issue.Delta,
		VariancePct: issue.VariancePct,
		Status:      string(issue.Status),
		ResolvedAt:  issue.ResolvedAt,
		Notes:       issue.Notes,
		CreatedAt:   issue.CreatedAt,
	}
	if issue.ResolvedBy != nil {
		s := issue.ResolvedBy.String()
		resp.ResolvedBy = &s
	}
	return resp
}

// RegisterRoutes registers three-way match routes
func (h *MatchHandler) RegisterRoutes(rg *gin.RouterGroup) {
	bills := rg.Group("/bills")
	{
		bills.POST("/:id/match", h.Run)
		bills.GET("/:id/issues", h.ListIssues)
	}
	issues := rg.Group("/issues")
	{
		issues.POST("/:id/resolve", h.ResolveIssue)
	}
}

// Run handles POST /bills/:id/match
func (h *MatchHandler) Run(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	var idReq dto.IDRequest
	if err := c.ShouldBindUri(&idReq); err != nil {
		h.BadRequest(c, "Invalid bill ID")
		return
	}
	billID, _ := uuid.Parse(idReq.ID)

	result, err := h.service.RunMatch(c.Request.Context(), appprocurement.RunMatchRequest{
		TenantID: tenantID,
		BillID:   billID,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, result)
}

// ListIssues handles GET /bills/:id/issues
func (h *MatchHandler) ListIssues(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	var idReq dto.IDRequest
	if err := c.ShouldBindUri(&idReq); err != nil {
		h.BadRequest(c, "Invalid bill ID")
		return
	}
	billID, _ := uuid.Parse(idReq.ID)

	issues, err := h.service.ListIssues(c.Request.Context(), tenantID, billID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	responses := make([]MatchingIssueResponse, 0, len(issues))
	for _, issue := range issues {
		responses = append(responses, toMatchingIssueResponse(issue))
	}
	h.Success(c, responses)
}

// ResolveIssue handles POST /issues/:id/resolve
func (h *MatchHandler) ResolveIssue(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	resolverID, err := getActorID(c)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	var idReq dto.IDRequest
	if err := c.ShouldBindUri(&idReq); err != nil {
		h.BadRequest(c, "Invalid issue ID")
		return
	}
	issueID, _ := uuid.Parse(idReq.ID)

	var req ResolveIssueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	if err := h.service.ResolveIssue(c.Request.Context(), appprocurement.ResolveIssueRequest{
		TenantID:   tenantID,
		IssueID:    issueID,
		ResolverID: resolverID,
		Notes:      req.Notes,
	}); err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, gin.H{"issue_id": issueID, "status": procurement.IssueStatusResolved})
}
