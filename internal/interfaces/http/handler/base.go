package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/agrodash/backend/internal/domain/shared"
	"github.com/agrodash/backend/internal/interfaces/http/dto"
	"github.com/agrodash/backend/internal/interfaces/http/middleware"
)

// domainConverter is implemented by errors that carry their own transport code
type domainConverter interface {
	DomainError() *shared.DomainError
}

// BaseHandler provides common handler utilities
type BaseHandler struct{}

// Success sends a 200 response wrapping data
func (h *BaseHandler) Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(data, middleware.GetRequestID(c)))
}

// NoContent sends a 204 no content response
func (h *BaseHandler) NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// Error sends an error envelope, deriving the status from the code
func (h *BaseHandler) Error(c *gin.Context, code, message string, details ...string) {
	c.JSON(dto.GetHTTPStatus(code), dto.NewErrorResponse(code, message, middleware.GetRequestID(c), details...))
}

// ValidationError sends a 400 with one detail per failed field
func (h *BaseHandler) ValidationError(c *gin.Context, message string, details ...string) {
	h.Error(c, shared.CodeValidation, message, details...)
}

// HandleError converts domain errors to HTTP responses. Anything else is a 500
// whose message does not leak internals.
func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	requestID := middleware.GetRequestID(c)

	var conv domainConverter
	if errors.As(err, &conv) {
		status, body := dto.FromDomainError(conv.DomainError(), requestID)
		c.JSON(status, body)
		return
	}

	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		status, body := dto.FromDomainError(domainErr, requestID)
		c.JSON(status, body)
		return
	}

	c.JSON(http.StatusInternalServerError, dto.NewErrorResponse(
		shared.CodeInternal,
		"An unexpected error occurred",
		requestID,
	))
}
