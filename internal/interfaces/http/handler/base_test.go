package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/finledger/backend/internal/domain/billing"
	"github.com/finledger/backend/internal/domain/ledger"
	"github.com/finledger/backend/internal/domain/payment"
	"github.com/finledger/backend/internal/domain/shared"
	"github.com/finledger/backend/internal/interfaces/http/dto"
	"github.com/finledger/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestContext(t *testing.T) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest("GET", "/", nil)
	return c, w
}

func decodeResponse(t *testing.T, w *httptest.ResponseRecorder) dto.Response {
	t.Helper()
	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestGetRequestID(t *testing.T) {
	tests := []struct {
		name       string
		setup      func(*gin.Context)
		expectedID string
	}{
		{
			name: "from context string",
			setup: func(c *gin.Context) {
				c.Set("request_id", "ctx-request-id")
			},
			expectedID: "ctx-request-id",
		},
		{
			name: "from header when context empty",
			setup: func(c *gin.Context) {
				c.Request.Header.Set("X-Request-ID", "header-request-id")
			},
			expectedID: "header-request-id",
		},
		{
			name:       "empty when not set",
			setup:      func(c *gin.Context) {},
			expectedID: "",
		},
		{
			name: "context takes precedence over header",
			setup: func(c *gin.Context) {
				c.Set("request_id", "ctx-id")
				c.Request.Header.Set("X-Request-ID", "header-id")
			},
			expectedID: "ctx-id",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newTestContext(t)
			tt.setup(c)

			assert.Equal(t, tt.expectedID, getRequestID(c))
		})
	}
}

func TestGetTenantID(t *testing.T) {
	t.Run("returns tenant set by middleware", func(t *testing.T) {
		c, _ := newTestContext(t)
		tenantID := uuid.New()
		c.Set(middleware.TenantIDKey, tenantID)

		got, err := getTenantID(c)

		assert.NoError(t, err)
		assert.Equal(t, tenantID, got)
	})

	t.Run("errors when absent", func(t *testing.T) {
		c, _ := newTestContext(t)

		_, err := getTenantID(c)

		assert.Error(t, err)
	})
}

func TestGetActorID(t *testing.T) {
	t.Run("parses X-User-ID header", func(t *testing.T) {
		c, _ := newTestContext(t)
		actorID := uuid.New()
		c.Request.Header.Set("X-User-ID", actorID.String())

		got, err := getActorID(c)

		assert.NoError(t, err)
		assert.Equal(t, actorID, got)
	})

	t.Run("errors on missing header", func(t *testing.T) {
		c, _ := newTestContext(t)

		_, err := getActorID(c)

		assert.Error(t, err)
	})

	t.Run("errors on malformed header", func(t *testing.T) {
		c, _ := newTestContext(t)
		c.Request.Header.Set("X-User-ID", "not-a-uuid")

		_, err := getActorID(c)

		assert.Error(t, err)
	})
}

func TestBaseHandlerSuccess(t *testing.T) {
	h := &BaseHandler{}
	c, w := newTestContext(t)

	h.Success(c, map[string]string{"key": "value"})

	assert.Equal(t, http.StatusOK, w.Code)
	resp := decodeResponse(t, w)
	assert.True(t, resp.Success)
}

func TestBaseHandlerCreated(t *testing.T) {
	h := &BaseHandler{}
	c, w := newTestContext(t)

	h.Created(c, map[string]string{"id": "123"})

	assert.Equal(t, http.StatusCreated, w.Code)
	resp := decodeResponse(t, w)
	assert.True(t, resp.Success)
}

func TestBaseHandlerErrorMethods(t *testing.T) {
	tests := []struct {
		name         string
		method       func(*BaseHandler, *gin.Context)
		expectedCode int
		expectedErr  string
	}{
		{
			name: "BadRequest",
			method: func(h *BaseHandler, c *gin.Context) {
				h.BadRequest(c, "Invalid request")
			},
			expectedCode: http.StatusBadRequest,
			expectedErr:  dto.ErrCodeBadRequest,
		},
		{
			name: "NotFound",
			method: func(h *BaseHandler, c *gin.Context) {
				h.NotFound(c, "Resource not found")
			},
			expectedCode: http.StatusNotFound,
			expectedErr:  dto.ErrCodeNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := &BaseHandler{}
			c, w := newTestContext(t)

			tt.method(h, c)

			assert.Equal(t, tt.expectedCode, w.Code)
			resp := decodeResponse(t, w)
			assert.False(t, resp.Success)
			assert.Equal(t, tt.expectedErr, resp.Error.Code)
		})
	}
}

func TestBaseHandlerErrorCarriesRequestID(t *testing.T) {
	h := &BaseHandler{}
	c, w := newTestContext(t)
	c.Set("request_id", "test-request-123")

	h.BadRequest(c, "Invalid request")

	resp := decodeResponse(t, w)
	assert.Equal(t, "test-request-123", resp.Error.RequestID)
}

func TestBaseHandlerHandleError(t *testing.T) {
	h := &BaseHandler{}

	t.Run("nil error writes nothing", func(t *testing.T) {
		c, w := newTestContext(t)

		h.HandleError(c, nil)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Empty(t, w.Body.Bytes())
	})

	t.Run("over-allocation is 422", func(t *testing.T) {
		c, w := newTestContext(t)

		h.HandleError(c, &payment.OverAllocationError{
			Limit:     payment.OverAllocationLimitInvoiceBalance,
			Requested: decimal.NewFromInt(1100),
			Available: decimal.NewFromInt(1050),
		})

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		resp := decodeResponse(t, w)
		assert.Equal(t, dto.ErrCodeOverAllocation, resp.Error.Code)
		assert.Contains(t, resp.Error.Message, "exceeds invoice balance")
	})

	t.Run("invoice not posted is 422", func(t *testing.T) {
		c, w := newTestContext(t)

		h.HandleError(c, &payment.InvoiceNotPostedError{InvoiceID: uuid.New()})

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		resp := decodeResponse(t, w)
		assert.Equal(t, dto.ErrCodeNotPosted, resp.Error.Code)
	})

	t.Run("empty document is 422", func(t *testing.T) {
		c, w := newTestContext(t)

		h.HandleError(c, &billing.EmptyDocumentError{DocumentID: uuid.New()})

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		resp := decodeResponse(t, w)
		assert.Equal(t, dto.ErrCodeEmptyDocument, resp.Error.Code)
	})

	t.Run("zero total is 422", func(t *testing.T) {
		c, w := newTestContext(t)

		h.HandleError(c, &billing.ZeroTotalError{DocumentID: uuid.New()})

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		resp := decodeResponse(t, w)
		assert.Equal(t, dto.ErrCodeZeroTotal, resp.Error.Code)
	})

	t.Run("missing account is 422", func(t *testing.T) {
		c, w := newTestContext(t)

		h.HandleError(c, &ledger.MissingAccountError{Role: ledger.RoleTaxOutput, Jurisdiction: "AE"})

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		resp := decodeResponse(t, w)
		assert.Equal(t, dto.ErrCodeMissingAccount, resp.Error.Code)
		assert.Contains(t, resp.Error.Message, "TAX_OUTPUT")
	})

	t.Run("unbalanced entry is an internal error", func(t *testing.T) {
		c, w := newTestContext(t)

		h.HandleError(c, &ledger.UnbalancedEntryError{
			EntryNumber: "JE-2026-000001",
			Debits:      decimal.NewFromInt(100),
			Credits:     decimal.NewFromInt(90),
		})

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		resp := decodeResponse(t, w)
		assert.Equal(t, dto.ErrCodeInternal, resp.Error.Code)
		// The unbalanced amounts never leak to the client
		assert.NotContains(t, resp.Error.Message, "JE-2026-000001")
	})

	t.Run("lookup failure codes map to 404", func(t *testing.T) {
		for _, code := range []string{
			"DOCUMENT_NOT_FOUND", "PAYMENT_NOT_FOUND", "INVOICE_NOT_FOUND",
			"BILL_NOT_FOUND", "ISSUE_NOT_FOUND", "ENTRY_NOT_FOUND", "NOT_FOUND",
		} {
			c, w := newTestContext(t)

			h.HandleError(c, shared.NewDomainError(code, "missing"))

			assert.Equal(t, http.StatusNotFound, w.Code, code)
			resp := decodeResponse(t, w)
			assert.Equal(t, dto.ErrCodeNotFound, resp.Error.Code, code)
		}
	})

	t.Run("domain codes map through the standard table", func(t *testing.T) {
		tests := []struct {
			code         string
			expectedCode string
			expectedHTTP int
		}{
			{"NOT_APPROVED", dto.ErrCodeNotApproved, http.StatusUnprocessableEntity},
			{"NOT_MATCHED", dto.ErrCodeNotMatched, http.StatusUnprocessableEntity},
			{"ALREADY_POSTED", dto.ErrCodeConflict, http.StatusConflict},
			{"DUPLICATE_DOCUMENT_NUMBER", dto.ErrCodeAlreadyExists, http.StatusConflict},
			{"CONCURRENCY_CONFLICT", dto.ErrCodeConcurrencyConflict, http.StatusConflict},
			{"INVALID_CURRENCY", dto.ErrCodeInvalidInput, http.StatusBadRequest},
			{"INVALID_STATE", dto.ErrCodeInvalidState, http.StatusUnprocessableEntity},
		}

		for _, tt := range tests {
			c, w := newTestContext(t)

			h.HandleError(c, shared.NewDomainError(tt.code, "domain failure"))

			assert.Equal(t, tt.expectedHTTP, w.Code, tt.code)
			resp := decodeResponse(t, w)
			assert.Equal(t, tt.expectedCode, resp.Error.Code, tt.code)
		}
	})

	t.Run("wrapped domain error unwraps", func(t *testing.T) {
		c, w := newTestContext(t)

		wrapped := fmt.Errorf("loading document: %w", shared.NewDomainError("DOCUMENT_NOT_FOUND", "missing"))
		h.HandleError(c, wrapped)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("unknown error is 500", func(t *testing.T) {
		c, w := newTestContext(t)

		h.HandleError(c, assert.AnError)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		resp := decodeResponse(t, w)
		assert.Equal(t, dto.ErrCodeInternal, resp.Error.Code)
		assert.Equal(t, "An unexpected error occurred", resp.Error.Message)
	})

	t.Run("error response carries request id", func(t *testing.T) {
		c, w := newTestContext(t)
		c.Set("request_id", "err-req-789")

		h.HandleError(c, shared.NewDomainError("NOT_APPROVED", "not approved"))

		resp := decodeResponse(t, w)
		assert.Equal(t, "err-req-789", resp.Error.RequestID)
	})
}
