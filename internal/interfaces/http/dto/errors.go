package dto

import (
	"net/http"
	"strings"
)

// Error code constants organized by category
// Format: ERR_<CATEGORY>_<DESCRIPTION>

// General error codes
const (
	ErrCodeUnknown  = "ERR_UNKNOWN"
	ErrCodeInternal = "ERR_INTERNAL"
)

// Input error codes
const (
	ErrCodeBadRequest   = "ERR_BAD_REQUEST"
	ErrCodeInvalidInput = "ERR_INVALID_INPUT"
	ErrCodeValidation   = "ERR_VALIDATION"
)

// Resource error codes
const (
	ErrCodeNotFound            = "ERR_NOT_FOUND"
	ErrCodeAlreadyExists       = "ERR_ALREADY_EXISTS"
	ErrCodeConflict            = "ERR_CONFLICT"
	ErrCodeConcurrencyConflict = "ERR_CONCURRENCY_CONFLICT"
)

// Business rule error codes
const (
	ErrCodeInvalidState   = "ERR_INVALID_STATE"
	ErrCodeBusinessRule   = "ERR_BUSINESS_RULE"
	ErrCodeNotApproved    = "ERR_NOT_APPROVED"
	ErrCodeNotMatched     = "ERR_NOT_MATCHED"
	ErrCodeNotPosted      = "ERR_NOT_POSTED"
	ErrCodeEmptyDocument  = "ERR_EMPTY_DOCUMENT"
	ErrCodeZeroTotal      = "ERR_ZERO_TOTAL"
	ErrCodeOverAllocation = "ERR_OVER_ALLOCATION"
	ErrCodeMissingAccount = "ERR_MISSING_ACCOUNT"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeUnknown:  http.StatusInternalServerError,
	ErrCodeInternal: http.StatusInternalServerError,

	ErrCodeBadRequest:   http.StatusBadRequest,
	ErrCodeInvalidInput: http.StatusBadRequest,
	ErrCodeValidation:   http.StatusBadRequest,

	ErrCodeNotFound:            http.StatusNotFound,
	ErrCodeAlreadyExists:       http.StatusConflict,
	ErrCodeConflict:            http.StatusConflict,
	ErrCodeConcurrencyConflict: http.StatusConflict,

	// Business rule violations -> 422 Unprocessable Entity
	ErrCodeInvalidState:   http.StatusUnprocessableEntity,
	ErrCodeBusinessRule:   http.StatusUnprocessableEntity,
	ErrCodeNotApproved:    http.StatusUnprocessableEntity,
	ErrCodeNotMatched:     http.StatusUnprocessableEntity,
	ErrCodeNotPosted:      http.StatusUnprocessableEntity,
	ErrCodeEmptyDocument:  http.StatusUnprocessableEntity,
	ErrCodeZeroTotal:      http.StatusUnprocessableEntity,
	ErrCodeOverAllocation: http.StatusUnprocessableEntity,
	ErrCodeMissingAccount: http.StatusUnprocessableEntity,
}

// GetHTTPStatus returns the HTTP status code for an error code.
// Returns 500 Internal Server Error if the error code is not found.
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// DomainErrorCodeMapping maps domain error codes to standardized codes
var DomainErrorCodeMapping = map[string]string{
	"NOT_FOUND":                 ErrCodeNotFound,
	"ALREADY_EXISTS":            ErrCodeAlreadyExists,
	"DUPLICATE_NUMBER":          ErrCodeAlreadyExists,
	"DUPLICATE_DOCUMENT_NUMBER": ErrCodeAlreadyExists,
	"INVALID_INPUT":             ErrCodeInvalidInput,
	"INVALID_STATE":             ErrCodeInvalidState,
	"CONCURRENCY_CONFLICT":      ErrCodeConcurrencyConflict,
	"NOT_APPROVED":              ErrCodeNotApproved,
	"NOT_MATCHED":               ErrCodeNotMatched,
	"OPEN_MATCHING_ISSUES":      ErrCodeNotMatched,
	"NOT_POSTED":                ErrCodeNotPosted,
	"ALREADY_POSTED":            ErrCodeConflict,
	"ALREADY_ALLOCATED":         ErrCodeConflict,
	"HAS_ALLOCATIONS":           ErrCodeInvalidState,
	"EMPTY_ORDER":               ErrCodeInvalidInput,
	"EMPTY_RECEIPT":             ErrCodeInvalidInput,
	"EXCEEDS_BALANCE":           ErrCodeBusinessRule,
	"MISSING_ENTRY":             ErrCodeInternal,
	"BAD_REQUEST":               ErrCodeBadRequest,
	"INTERNAL_ERROR":            ErrCodeInternal,
}

// NormalizeErrorCode converts a domain error code to the standardized
// format. Codes already in the new format, and codes with no mapping,
// are returned as-is.
func NormalizeErrorCode(code string) string {
	if newCode, ok := DomainErrorCodeMapping[code]; ok {
		return newCode
	}
	// Domain validation codes all share the INVALID_ prefix
	if strings.HasPrefix(code, "INVALID_") {
		return ErrCodeInvalidInput
	}
	return code
}
