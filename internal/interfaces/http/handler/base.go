package handler

import (
	"errors"
	"net/http"

	"github.com/finledger/backend/internal/domain/billing"
	"github.com/finledger/backend/internal/domain/ledger"
	"github.com/finledger/backend/internal/domain/payment"
	"github.com/finledger/backend/internal/domain/shared"
	"github.com/finledger/backend/internal/interfaces/http/dto"
	"github.com/finledger/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// BaseHandler provides common handler utilities
type BaseHandler struct{}

// getRequestID extracts the request ID from the context
func getRequestID(c *gin.Context) string {
	if id := c.GetString("request_id"); id != "" {
		return id
	}
	return c.GetHeader("X-Request-ID")
}

// getTenantID extracts the tenant ID resolved by the Tenant middleware
func getTenantID(c *gin.Context) (uuid.UUID, error) {
	tenantID, ok := middleware.GetTenantID(c)
	if !ok {
		return uuid.Nil, errors.New("tenant ID not found in context")
	}
	return tenantID, nil
}

// getActorID extracts the acting user from the X-User-ID header
func getActorID(c *gin.Context) (uuid.UUID, error) {
	header := c.GetHeader("X-User-ID")
	if header == "" {
		return uuid.Nil, errors.New("X-User-ID header is required")
	}
	return uuid.Parse(header)
}

// Success sends a success response
func (h *BaseHandler) Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(data))
}

// Created sends a 201 created response
func (h *BaseHandler) Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, dto.NewSuccessResponse(data))
}

// Error sends an error response with the given status code
func (h *BaseHandler) Error(c *gin.Context, statusCode int, code, message string) {
	c.JSON(statusCode, dto.NewErrorResponseWithRequestID(code, message, getRequestID(c)))
}

// BadRequest sends a 400 bad request response
func (h *BaseHandler) BadRequest(c *gin.Context, message string) {
	h.Error(c, http.StatusBadRequest, dto.ErrCodeBadRequest, message)
}

// NotFound sends a 404 not found response
func (h *BaseHandler) NotFound(c *gin.Context, message string) {
	h.Error(c, http.StatusNotFound, dto.ErrCodeNotFound, message)
}

// HandleError converts domain and application errors to HTTP responses.
// Typed errors carry structured detail; DomainError codes are mapped
// through the standard code table; anything else is a 500.
func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	if err == nil {
		return
	}

	requestID := getRequestID(c)

	var overAlloc *payment.OverAllocationError
	if errors.As(err, &overAlloc) {
		c.JSON(http.StatusUnprocessableEntity, dto.NewErrorResponseWithRequestID(
			dto.ErrCodeOverAllocation, overAlloc.Error(), requestID))
		return
	}

	var notPosted *payment.InvoiceNotPostedError
	if errors.As(err, &notPosted) {
		c.JSON(http.StatusUnprocessableEntity, dto.NewErrorResponseWithRequestID(
			dto.ErrCodeNotPosted, notPosted.Error(), requestID))
		return
	}

	var empty *billing.EmptyDocumentError
	if errors.As(err, &empty) {
		c.JSON(http.StatusUnprocessableEntity, dto.NewErrorResponseWithRequestID(
			dto.ErrCodeEmptyDocument, empty.Error(), requestID))
		return
	}

	var zero *billing.ZeroTotalError
	if errors.As(err, &zero) {
		c.JSON(http.StatusUnprocessableEntity, dto.NewErrorResponseWithRequestID(
			dto.ErrCodeZeroTotal, zero.Error(), requestID))
		return
	}

	var missingAccount *ledger.MissingAccountError
	if errors.As(err, &missingAccount) {
		c.JSON(http.StatusUnprocessableEntity, dto.NewErrorResponseWithRequestID(
			dto.ErrCodeMissingAccount, missingAccount.Error(), requestID))
		return
	}

	var unbalanced *ledger.UnbalancedEntryError
	if errors.As(err, &unbalanced) {
		// Invariant violation, never user input
		c.JSON(http.StatusInternalServerError, dto.NewErrorResponseWithRequestID(
			dto.ErrCodeInternal, "Posting failed due to an internal accounting error", requestID))
		return
	}

	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		code := domainErr.Code
		status := http.StatusUnprocessableEntity
		switch {
		case code == "DOCUMENT_NOT_FOUND", code == "PAYMENT_NOT_FOUND",
			code == "INVOICE_NOT_FOUND", code == "BILL_NOT_FOUND",
			code == "ISSUE_NOT_FOUND", code == "ENTRY_NOT_FOUND", code == "NOT_FOUND":
			code, status = dto.ErrCodeNotFound, http.StatusNotFound
		default:
			code = dto.NormalizeErrorCode(code)
			status = dto.GetHTTPStatus(code)
		}
		c.JSON(status, dto.NewErrorResponseWithRequestID(code, domainErr.Message, requestID))
		return
	}

	c.JSON(http.StatusInternalServerError, dto.NewErrorResponseWithRequestID(
		dto.ErrCodeInternal, "An unexpected error occurred", requestID))
}
