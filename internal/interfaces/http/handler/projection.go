package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	projectionapp "github.com/agrodash/backend/internal/application/projection"
	"github.com/agrodash/backend/internal/domain/report"
	"github.com/agrodash/backend/internal/interfaces/http/dto"
	"github.com/agrodash/backend/internal/interfaces/http/middleware"
)

// ProjectionRunner is the part of the projection service the handler drives
type ProjectionRunner interface {
	Run(ctx context.Context, req projectionapp.RunRequest) (*report.ConsolidatedReport, error)
	Compare(ctx context.Context, organizationID, scenarioID uuid.UUID) (*report.ScenarioComparison, error)
	InvalidateCache(ctx context.Context, organizationID uuid.UUID) error
}

// ProjectionHandler serves the consolidated projection endpoints
type ProjectionHandler struct {
	BaseHandler
	service ProjectionRunner
}

// NewProjectionHandler creates a new ProjectionHandler
func NewProjectionHandler(service ProjectionRunner) *ProjectionHandler {
	return &ProjectionHandler{service: service}
}

// bindQuery parses the query and rejects a missing or malformed
// organization_id and a nil scenario_id. It writes the error response itself
// and returns false.
func (h *ProjectionHandler) bindQuery(c *gin.Context) (dto.ProjectionQuery, bool) {
	var q dto.ProjectionQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.ValidationError(c, "Invalid query parameters", middleware.ValidationDetails(err)...)
		return q, false
	}
	if q.Organization() == uuid.Nil {
		h.ValidationError(c, "organization_id is required", "organization_id: is required")
		return q, false
	}
	if s := q.Scenario(); s != nil && *s == uuid.Nil {
		h.ValidationError(c, "scenario_id must not be the nil uuid", "scenario_id: nil uuid")
		return q, false
	}
	return q, true
}

func (h *ProjectionHandler) run(c *gin.Context) (*report.ConsolidatedReport, bool) {
	q, ok := h.bindQuery(c)
	if !ok {
		return nil, false
	}
	return h.runQuery(c, q)
}

func (h *ProjectionHandler) runQuery(c *gin.Context, q dto.ProjectionQuery) (*report.ConsolidatedReport, bool) {
	rep, err := h.service.Run(c.Request.Context(), projectionapp.RunRequest{
		OrganizationID: q.Organization(),
		ScenarioID:     q.Scenario(),
		ProjectionID:   q.Projection(),
	})
	if err != nil {
		h.HandleError(c, err)
		return nil, false
	}
	return rep, true
}

// GetReport returns the full consolidated report
func (h *ProjectionHandler) GetReport(c *gin.Context) {
	if rep, ok := h.run(c); ok {
		h.Success(c, rep)
	}
}

// GetDebtPosition returns the debt position and indicators of the report
func (h *ProjectionHandler) GetDebtPosition(c *gin.Context) {
	if rep, ok := h.run(c); ok {
		h.Success(c, dto.NewDebtPositionResponse(rep))
	}
}

// GetCashFlow returns the cash-flow section of the report, as JSON or,
// with format=csv, as a CSV attachment.
func (h *ProjectionHandler) GetCashFlow(c *gin.Context) {
	q, ok := h.bindQuery(c)
	if !ok {
		return
	}
	rep, ok := h.runQuery(c, q)
	if !ok {
		return
	}
	if !q.CSV() {
		h.Success(c, dto.NewCashFlowResponse(rep))
		return
	}

	body, err := dto.CashFlowCSV(rep)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="cash-flow-%s.csv"`, rep.OrganizationID))
	c.Data(http.StatusOK, "text/csv; charset=utf-8", body)
}

// Compare returns the per-harvest deltas between the baseline and a scenario
func (h *ProjectionHandler) Compare(c *gin.Context) {
	q, ok := h.bindQuery(c)
	if !ok {
		return
	}
	scenarioID := q.Scenario()
	if scenarioID == nil {
		h.ValidationError(c, "scenario_id is required", "scenario_id: is required")
		return
	}

	cmp, err := h.service.Compare(c.Request.Context(), q.Organization(), *scenarioID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, cmp)
}

// InvalidateCache drops the cached reports of the organization
func (h *ProjectionHandler) InvalidateCache(c *gin.Context) {
	q, ok := h.bindQuery(c)
	if !ok {
		return
	}
	if err := h.service.InvalidateCache(c.Request.Context(), q.Organization()); err != nil {
		h.HandleError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
