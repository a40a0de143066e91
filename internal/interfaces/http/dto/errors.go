package dto

import (
	"net/http"

	"github.com/logistics/settlement/internal/domain/settlement"
	"github.com/logistics/settlement/internal/domain/shared"
	"github.com/logistics/settlement/internal/domain/shared/valueobject"
)

// Transport-level error codes. Domain codes pass through unchanged.
const (
	ErrCodeInternal         = "INTERNAL_ERROR"
	ErrCodeValidation       = "VALIDATION_ERROR"
	ErrCodeBadRequest       = "BAD_REQUEST"
	ErrCodeInvalidJSON      = "INVALID_JSON"
	ErrCodeRequestTooLarge  = "REQUEST_TOO_LARGE"
	ErrCodeRouteNotFound    = "ROUTE_NOT_FOUND"
	ErrCodeMethodNotAllowed = "METHOD_NOT_ALLOWED"
	ErrCodeRateLimited      = "RATE_LIMITED"
	ErrCodeForbidden        = "FORBIDDEN"
	ErrCodeSyncInProgress   = "SYNC_IN_PROGRESS"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeInternal:         http.StatusInternalServerError,
	ErrCodeValidation:       http.StatusBadRequest,
	ErrCodeBadRequest:       http.StatusBadRequest,
	ErrCodeInvalidJSON:      http.StatusBadRequest,
	ErrCodeRequestTooLarge:  http.StatusRequestEntityTooLarge,
	ErrCodeRouteNotFound:    http.StatusNotFound,
	ErrCodeMethodNotAllowed: http.StatusMethodNotAllowed,
	ErrCodeRateLimited:      http.StatusTooManyRequests,
	ErrCodeForbidden:        http.StatusForbidden,
	ErrCodeSyncInProgress:   http.StatusConflict,

	shared.CodeNotFound:               http.StatusNotFound,
	shared.CodeInvalidInput:           http.StatusBadRequest,
	shared.CodeInvalidState:           http.StatusUnprocessableEntity,
	shared.CodeConcurrentModification: http.StatusConflict,
	valueobject.ErrCodeInvalidAmount:  http.StatusBadRequest,

	settlement.ErrCodeInsufficientUnallocated: http.StatusUnprocessableEntity,
	settlement.ErrCodeInsufficientOutstanding: http.StatusUnprocessableEntity,
	settlement.ErrCodeCurrencyMismatch:        http.StatusUnprocessableEntity,
	settlement.ErrCodeMissingExchangeRate:     http.StatusUnprocessableEntity,
	settlement.ErrCodeDirectionMismatch:       http.StatusUnprocessableEntity,
	settlement.ErrCodePartnerMismatch:         http.StatusUnprocessableEntity,
	settlement.ErrCodeAlreadyReversed:         http.StatusUnprocessableEntity,
}

// GetHTTPStatus returns the HTTP status code for an error code.
// Unknown codes, PROVIDER_UNAVAILABLE included, map to 500.
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}
