package dto

import (
	"net/http"

	"github.com/agrodash/backend/internal/domain/shared"
)

// Transport-only error codes. Domain codes come from the shared package and
// are rendered unchanged.
const (
	ErrCodeBadRequest  = "BAD_REQUEST"
	ErrCodeRateLimited = "RATE_LIMITED"
	ErrCodeRouteAbsent = "ROUTE_NOT_FOUND"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	shared.CodeValidation:          http.StatusBadRequest,
	shared.CodeInvalidInput:        http.StatusBadRequest,
	shared.CodeNotFound:            http.StatusNotFound,
	shared.CodeUnsupportedCurrency: http.StatusUnprocessableEntity,
	shared.CodeUnknownHarvest:      http.StatusUnprocessableEntity,
	shared.CodeDataFetch:           http.StatusBadGateway,
	shared.CodeTimeout:             http.StatusGatewayTimeout,
	shared.CodeInternal:            http.StatusInternalServerError,

	ErrCodeBadRequest:  http.StatusBadRequest,
	ErrCodeRateLimited: http.StatusTooManyRequests,
	ErrCodeRouteAbsent: http.StatusNotFound,
}

// GetHTTPStatus returns the HTTP status code for an error code
// Returns 500 Internal Server Error if the error code is not found
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// ErrorResponse is the error envelope. Error and Details are always present.
type ErrorResponse struct {
	Success   bool     `json:"success"`
	Error     string   `json:"error"`
	Code      string   `json:"code"`
	Details   []string `json:"details"`
	RequestID string   `json:"request_id,omitempty"`
}

// NewErrorResponse creates an error envelope
func NewErrorResponse(code, message, requestID string, details ...string) ErrorResponse {
	if details == nil {
		details = []string{}
	}
	return ErrorResponse{
		Success:   false,
		Error:     message,
		Code:      code,
		Details:   details,
		RequestID: requestID,
	}
}

// FromDomainError renders a domain error as an envelope and its status
func FromDomainError(err *shared.DomainError, requestID string) (int, ErrorResponse) {
	return GetHTTPStatus(err.Code), NewErrorResponse(err.Code, err.Message, requestID, err.Details...)
}
