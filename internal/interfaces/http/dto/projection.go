package dto

import (
	"time"

	"github.com/google/uuid"

	"github.com/agrodash/backend/internal/domain/projection"
	"github.com/agrodash/backend/internal/domain/report"
	"github.com/agrodash/backend/internal/domain/shared/valueobject"
)

// ProjectionQuery is the query string of the projection endpoints. Both the
// snake_case and the camelCase spelling of each parameter are accepted; the
// snake_case one wins when both are sent.
type ProjectionQuery struct {
	OrganizationID      string `form:"organization_id" binding:"omitempty,uuid"`
	OrganizationIDCamel string `form:"organizationId" binding:"omitempty,uuid"`
	ScenarioID          string `form:"scenario_id" binding:"omitempty,uuid"`
	ScenarioIDCamel     string `form:"scenarioId" binding:"omitempty,uuid"`
	ProjectionID        string `form:"projection_id" binding:"omitempty,uuid"`
	ProjectionIDCamel   string `form:"projectionId" binding:"omitempty,uuid"`
	Format              string `form:"format" binding:"omitempty,oneof=json csv"`
}

// CSV reports whether the caller asked for a CSV rendering
func (q ProjectionQuery) CSV() bool {
	return q.Format == "csv"
}

// Organization returns the organization id, uuid.Nil when absent
func (q ProjectionQuery) Organization() uuid.UUID {
	if id := parseFirst(q.OrganizationID, q.OrganizationIDCamel); id != nil {
		return *id
	}
	return uuid.Nil
}

// Scenario returns the scenario id, nil for the baseline. An explicit nil
// uuid is returned as sent so it can be rejected.
func (q ProjectionQuery) Scenario() *uuid.UUID {
	return parseFirst(q.ScenarioID, q.ScenarioIDCamel)
}

// Projection returns the caller's correlation id, if any
func (q ProjectionQuery) Projection() *uuid.UUID {
	return parseFirst(q.ProjectionID, q.ProjectionIDCamel)
}

// parseFirst returns the first parameter that was sent, nil when none was.
func parseFirst(values ...string) *uuid.UUID {
	for _, v := range values {
		if v == "" {
			continue
		}
		if id, err := uuid.Parse(v); err == nil {
			return &id
		}
	}
	return nil
}

// ReportHeader identifies the run a partial response was cut from.
type ReportHeader struct {
	OrganizationID   uuid.UUID            `json:"organization_id"`
	ScenarioID       *uuid.UUID           `json:"scenario_id,omitempty"`
	ProjectionID     *uuid.UUID           `json:"projection_id,omitempty"`
	InputDataVersion string               `json:"input_data_version"`
	Currency         valueobject.Currency `json:"currency"`
	GeneratedAt      time.Time            `json:"generated_at"`

	HarvestPeriods []projection.HarvestPeriod `json:"harvest_periods"`
}

// DebtPositionResponse is the debt slice of a report.
type DebtPositionResponse struct {
	ReportHeader
	DebtPosition   *projection.ConsolidatedDebtPosition `json:"debt_position"`
	DebtIndicators report.DebtIndicatorsSection         `json:"debt_indicators"`
}

// CashFlowResponse is the cash-flow slice of a report.
type CashFlowResponse struct {
	ReportHeader
	CashFlow report.CashFlowSection `json:"cash_flow"`
	Excluded []projection.Exclusion `json:"excluded"`
}

func headerOf(r *report.ConsolidatedReport) ReportHeader {
	return ReportHeader{
		OrganizationID:   r.OrganizationID,
		ScenarioID:       r.ScenarioID,
		ProjectionID:     r.ProjectionID,
		InputDataVersion: r.InputDataVersion,
		Currency:         r.Currency,
		GeneratedAt:      r.GeneratedAt,
		HarvestPeriods:   r.HarvestPeriods,
	}
}

// NewDebtPositionResponse cuts the debt slice out of a report
func NewDebtPositionResponse(r *report.ConsolidatedReport) DebtPositionResponse {
	return DebtPositionResponse{
		ReportHeader:   headerOf(r),
		DebtPosition:   r.DebtPosition,
		DebtIndicators: r.DebtIndicators,
	}
}

// NewCashFlowResponse cuts the cash-flow slice out of a report
func NewCashFlowResponse(r *report.ConsolidatedReport) CashFlowResponse {
	return CashFlowResponse{
		ReportHeader: headerOf(r),
		CashFlow:     r.CashFlow,
		Excluded:     exclusionsOfKind(r.Excluded, projection.ExclusionLineItem),
	}
}

func exclusionsOfKind(all []projection.Exclusion, kind string) []projection.Exclusion {
	out := make([]projection.Exclusion, 0)
	for _, e := range all {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}
