package projection

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/agrodash/backend/internal/domain/shared"
)

// ValidationError rejects a request or input before any computation.
type ValidationError struct {
	Field   string
	Message string
}

// NewValidationError creates a ValidationError for a field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

func (e *ValidationError) Error() string {
	return e.Message
}

func (e *ValidationError) Unwrap() error {
	return shared.ErrValidation
}

// DomainError converts the error for transport layers.
func (e *ValidationError) DomainError() *shared.DomainError {
	return shared.NewDomainError(shared.CodeValidation, e.Message).WithDetails("field=" + e.Field)
}

// DataFetchError means a collaborator registry failed or returned malformed data.
// It always aborts the whole run.
type DataFetchError struct {
	Source string
	Err    error
}

// NewDataFetchError wraps a collaborator failure.
func NewDataFetchError(source string, err error) *DataFetchError {
	return &DataFetchError{Source: source, Err: err}
}

func (e *DataFetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.Source, e.Err)
}

func (e *DataFetchError) Unwrap() []error {
	return []error{shared.ErrDataFetch, e.Err}
}

// Timeout reports whether the fetch was cut by the run deadline.
func (e *DataFetchError) Timeout() bool {
	return errors.Is(e.Err, context.DeadlineExceeded)
}

// DomainError converts the error for transport layers.
func (e *DataFetchError) DomainError() *shared.DomainError {
	if e.Timeout() {
		return shared.NewDomainError(shared.CodeTimeout, "timed out fetching projection inputs").
			WithDetails("source=" + e.Source)
	}
	return shared.NewDomainError(shared.CodeDataFetch, "failed to fetch projection inputs").
		WithDetails("source="+e.Source, e.Err.Error())
}

// CurrencyError is a scoped failure: the affected record is excluded and the run continues.
type CurrencyError struct {
	RecordID uuid.UUID
	Code     string
	Err      error
}

func (e *CurrencyError) Error() string {
	return fmt.Sprintf("record %s: currency %q: %v", e.RecordID, e.Code, e.Err)
}

func (e *CurrencyError) Unwrap() []error {
	return []error{shared.ErrUnsupportedCurrency, e.Err}
}

// Exclusion records an input left out of a run and why.
type Exclusion struct {
	RecordID  uuid.UUID `json:"record_id"`
	Kind      string    `json:"kind"`
	HarvestID uuid.UUID `json:"harvest_id"`
	Reason    string    `json:"reason"`
}

// Exclusion kinds.
const (
	ExclusionDebtInstrument = "debt_instrument"
	ExclusionLineItem       = "line_item"
)
