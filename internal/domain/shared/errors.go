package shared

import "errors"

// Error codes shared by every bounded context.
const (
	CodeNotFound            = "NOT_FOUND"
	CodeInvalidInput        = "INVALID_INPUT"
	CodeValidation          = "VALIDATION_ERROR"
	CodeDataFetch           = "DATA_FETCH_ERROR"
	CodeUnsupportedCurrency = "UNSUPPORTED_CURRENCY"
	CodeUnknownHarvest      = "UNKNOWN_HARVEST"
	CodeTimeout             = "TIMEOUT"
	CodeInternal            = "INTERNAL_ERROR"
)

// DomainError represents a domain-level error
type DomainError struct {
	Code    string   `json:"code"`
	Message string   `json:"message"`
	Details []string `json:"details,omitempty"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// Is reports whether target is a DomainError with the same code.
func (e *DomainError) Is(target error) bool {
	var other *DomainError
	if !errors.As(target, &other) {
		return false
	}
	return e.Code == other.Code
}

// WithDetails returns a copy of the error carrying the given details.
func (e *DomainError) WithDetails(details ...string) *DomainError {
	cp := *e
	cp.Details = append(append([]string(nil), e.Details...), details...)
	return &cp
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Common domain errors
var (
	ErrNotFound            = NewDomainError(CodeNotFound, "Resource not found")
	ErrInvalidInput        = NewDomainError(CodeInvalidInput, "Invalid input provided")
	ErrValidation          = NewDomainError(CodeValidation, "Request validation failed")
	ErrDataFetch           = NewDomainError(CodeDataFetch, "Required input data could not be fetched")
	ErrUnsupportedCurrency = NewDomainError(CodeUnsupportedCurrency, "Currency is not supported")
	ErrUnknownHarvest      = NewDomainError(CodeUnknownHarvest, "Harvest period is not registered")
	ErrTimeout             = NewDomainError(CodeTimeout, "Operation timed out")
)
