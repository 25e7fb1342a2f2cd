package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	projectionapp "github.com/agrodash/backend/internal/application/projection"
	"github.com/agrodash/backend/internal/domain/projection"
	"github.com/agrodash/backend/internal/domain/report"
	"github.com/agrodash/backend/internal/domain/shared"
	"github.com/agrodash/backend/internal/interfaces/http/middleware"
)

// MockProjectionRunner implements ProjectionRunner for testing
type MockProjectionRunner struct {
	mock.Mock
}

func (m *MockProjectionRunner) Run(ctx context.Context, req projectionapp.RunRequest) (*report.ConsolidatedReport, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*report.ConsolidatedReport), args.Error(1)
}

func (m *MockProjectionRunner) Compare(ctx context.Context, organizationID, scenarioID uuid.UUID) (*report.ScenarioComparison, error) {
	args := m.Called(ctx, organizationID, scenarioID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*report.ScenarioComparison), args.Error(1)
}

func (m *MockProjectionRunner) InvalidateCache(ctx context.Context, organizationID uuid.UUID) error {
	args := m.Called(ctx, organizationID)
	return args.Error(0)
}

var (
	testOrgID      = uuid.MustParse("6f1c2a9e-3b7d-4e58-9a0c-1d2e3f405162")
	testScenarioID = uuid.MustParse("0b9d8c7e-6f5a-4b3c-8d2e-1f0a9b8c7d6e")
	testHarvestID  = uuid.MustParse("a1b2c3d4-e5f6-4a5b-8c7d-9e0f1a2b3c4d")
)

func newProjectionRouter(runner ProjectionRunner) *gin.Engine {
	middleware.SetupValidator()
	h := NewProjectionHandler(runner)
	r := gin.New()
	r.Use(middleware.RequestID())
	g := r.Group("/api/v1/projections")
	g.GET("/report", h.GetReport)
	g.GET("/debt-position", h.GetDebtPosition)
	g.GET("/cash-flow", h.GetCashFlow)
	g.GET("/compare", h.Compare)
	g.DELETE("/cache", h.InvalidateCache)
	return r
}

func sampleReport() *report.ConsolidatedReport {
	return &report.ConsolidatedReport{
		OrganizationID:   testOrgID,
		InputDataVersion: "3f9a0c1b2d4e5f60",
		Currency:         "ARS",
		GeneratedAt:      time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		HarvestPeriods:   []projection.HarvestPeriod{{ID: testHarvestID, Name: "2025/26", StartYear: 2025, EndYear: 2026}},
		DebtPosition: &projection.ConsolidatedDebtPosition{
			Currency:   "ARS",
			GrandTotal: decimal.NewFromInt(600000),
			Excluded: []projection.Exclusion{
				{RecordID: uuid.New(), Kind: projection.ExclusionDebtInstrument, Reason: "unsupported currency"},
			},
		},
		CashFlow: report.CashFlowSection{
			PerHarvest: []projection.CashFlowSnapshot{{HarvestID: testHarvestID}},
		},
		Excluded: []projection.Exclusion{
			{RecordID: uuid.New(), Kind: projection.ExclusionDebtInstrument, Reason: "unsupported currency"},
			{RecordID: uuid.New(), Kind: projection.ExclusionLineItem, Reason: "unknown harvest"},
		},
	}
}

func serve(r *gin.Engine, method, target string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(method, target, nil))
	return w
}

func TestProjectionHandler_MissingOrganization(t *testing.T) {
	runner := new(MockProjectionRunner)
	r := newProjectionRouter(runner)

	for _, target := range []string{
		"/api/v1/projections/report",
		"/api/v1/projections/debt-position?scenario_id=" + testScenarioID.String(),
		"/api/v1/projections/cash-flow",
		"/api/v1/projections/compare?scenarioId=" + testScenarioID.String(),
	} {
		w := serve(r, http.MethodGet, target)

		assert.Equal(t, http.StatusBadRequest, w.Code, target)
		resp := decodeError(t, w)
		assert.Equal(t, shared.CodeValidation, resp.Code)
		assert.Equal(t, "organization_id is required", resp.Error)
		assert.NotEmpty(t, resp.RequestID)
	}

	w := serve(r, http.MethodDelete, "/api/v1/projections/cache")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	runner.AssertNotCalled(t, "Run", mock.Anything, mock.Anything)
	runner.AssertNotCalled(t, "Compare", mock.Anything, mock.Anything, mock.Anything)
	runner.AssertNotCalled(t, "InvalidateCache", mock.Anything, mock.Anything)
}

func TestProjectionHandler_MalformedIDs(t *testing.T) {
	runner := new(MockProjectionRunner)
	r := newProjectionRouter(runner)

	w := serve(r, http.MethodGet, "/api/v1/projections/report?organization_id=farm-7&scenario_id=dry")

	assert.Equal(t, http.StatusBadRequest, w.Code)
	resp := decodeError(t, w)
	assert.Equal(t, shared.CodeValidation, resp.Code)
	assert.ElementsMatch(t, []string{
		"organization_id: must be a valid UUID",
		"scenario_id: must be a valid UUID",
	}, resp.Details)
	runner.AssertNotCalled(t, "Run", mock.Anything, mock.Anything)
}

func TestProjectionHandler_NilScenario(t *testing.T) {
	runner := new(MockProjectionRunner)
	r := newProjectionRouter(runner)

	for _, target := range []string{
		"/api/v1/projections/report?organization_id=" + testOrgID.String() + "&scenario_id=" + uuid.Nil.String(),
		"/api/v1/projections/compare?organizationId=" + testOrgID.String() + "&scenarioId=" + uuid.Nil.String(),
	} {
		w := serve(r, http.MethodGet, target)

		assert.Equal(t, http.StatusBadRequest, w.Code, target)
		resp := decodeError(t, w)
		assert.Equal(t, shared.CodeValidation, resp.Code)
		assert.Equal(t, []string{"scenario_id: nil uuid"}, resp.Details)
	}
	runner.AssertNotCalled(t, "Run", mock.Anything, mock.Anything)
	runner.AssertNotCalled(t, "Compare", mock.Anything, mock.Anything, mock.Anything)
}

func TestProjectionHandler_GetReport(t *testing.T) {
	runner := new(MockProjectionRunner)
	projectionID := uuid.New()
	runner.On("Run", mock.Anything, projectionapp.RunRequest{
		OrganizationID: testOrgID,
		ScenarioID:     &testScenarioID,
		ProjectionID:   &projectionID,
	}).Return(sampleReport(), nil).Once()
	r := newProjectionRouter(runner)

	w := serve(r, http.MethodGet, "/api/v1/projections/report?organizationId="+testOrgID.String()+
		"&scenarioId="+testScenarioID.String()+"&projection_id="+projectionID.String())

	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Success bool `json:"success"`
		Data    struct {
			OrganizationID   uuid.UUID `json:"organization_id"`
			InputDataVersion string    `json:"input_data_version"`
			Excluded         []any     `json:"excluded"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, testOrgID, resp.Data.OrganizationID)
	assert.Equal(t, "3f9a0c1b2d4e5f60", resp.Data.InputDataVersion)
	assert.Len(t, resp.Data.Excluded, 2)
	runner.AssertExpectations(t)
}

func TestProjectionHandler_SnakeCaseWins(t *testing.T) {
	runner := new(MockProjectionRunner)
	other := uuid.New()
	runner.On("Run", mock.Anything, projectionapp.RunRequest{OrganizationID: testOrgID}).
		Return(sampleReport(), nil).Once()
	r := newProjectionRouter(runner)

	w := serve(r, http.MethodGet, "/api/v1/projections/report?organization_id="+testOrgID.String()+
		"&organizationId="+other.String())

	assert.Equal(t, http.StatusOK, w.Code)
	runner.AssertExpectations(t)
}

func TestProjectionHandler_Slices(t *testing.T) {
	runner := new(MockProjectionRunner)
	runner.On("Run", mock.Anything, mock.AnythingOfType("projection.RunRequest")).Return(sampleReport(), nil)
	r := newProjectionRouter(runner)

	t.Run("debt position", func(t *testing.T) {
		w := serve(r, http.MethodGet, "/api/v1/projections/debt-position?organization_id="+testOrgID.String())
		require.Equal(t, http.StatusOK, w.Code)

		var resp struct {
			Data map[string]json.RawMessage `json:"data"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Contains(t, resp.Data, "debt_position")
		assert.Contains(t, resp.Data, "debt_indicators")
		assert.Contains(t, resp.Data, "harvest_periods")
		assert.NotContains(t, resp.Data, "cash_flow")
	})

	t.Run("cash flow keeps only line item exclusions", func(t *testing.T) {
		w := serve(r, http.MethodGet, "/api/v1/projections/cash-flow?organization_id="+testOrgID.String())
		require.Equal(t, http.StatusOK, w.Code)

		var resp struct {
			Data struct {
				CashFlow json.RawMessage        `json:"cash_flow"`
				Excluded []projection.Exclusion `json:"excluded"`
			} `json:"data"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.NotEmpty(t, resp.Data.CashFlow)
		require.Len(t, resp.Data.Excluded, 1)
		assert.Equal(t, projection.ExclusionLineItem, resp.Data.Excluded[0].Kind)
	})
}

func TestProjectionHandler_CashFlowCSV(t *testing.T) {
	runner := new(MockProjectionRunner)
	runner.On("Run", mock.Anything, mock.AnythingOfType("projection.RunRequest")).Return(sampleReport(), nil)
	r := newProjectionRouter(runner)

	w := serve(r, http.MethodGet, "/api/v1/projections/cash-flow?format=csv&organization_id="+testOrgID.String())
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/csv; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "cash-flow-"+testOrgID.String()+".csv")
	lines := strings.Split(strings.TrimSpace(w.Body.String()), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "harvest,currency,"))
	assert.True(t, strings.HasPrefix(lines[1], ",ARS,0.00,"))
}

func TestProjectionHandler_UnknownFormat(t *testing.T) {
	runner := new(MockProjectionRunner)
	r := newProjectionRouter(runner)

	w := serve(r, http.MethodGet, "/api/v1/projections/cash-flow?format=xlsx&organization_id="+testOrgID.String())
	assert.Equal(t, http.StatusBadRequest, w.Code)
	runner.AssertNotCalled(t, "Run", mock.Anything, mock.Anything)
}

func TestProjectionHandler_ServiceErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"scenario not found", shared.ErrNotFound.WithDetails("scenario_id=" + testScenarioID.String()), http.StatusNotFound, shared.CodeNotFound},
		{"registry failure", projection.NewDataFetchError("debt_registry", errors.New("connection reset")), http.StatusBadGateway, shared.CodeDataFetch},
		{"registry timeout", projection.NewDataFetchError("asset_registry", context.DeadlineExceeded), http.StatusGatewayTimeout, shared.CodeTimeout},
		{"unexpected", errors.New("boom"), http.StatusInternalServerError, shared.CodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := new(MockProjectionRunner)
			runner.On("Run", mock.Anything, mock.Anything).Return(nil, tt.err)
			r := newProjectionRouter(runner)

			w := serve(r, http.MethodGet, "/api/v1/projections/report?organization_id="+testOrgID.String()+
				"&scenario_id="+testScenarioID.String())

			assert.Equal(t, tt.wantStatus, w.Code)
			resp := decodeError(t, w)
			assert.Equal(t, tt.wantCode, resp.Code)
			assert.NotNil(t, resp.Details)
		})
	}
}

func TestProjectionHandler_Compare(t *testing.T) {
	t.Run("requires scenario", func(t *testing.T) {
		runner := new(MockProjectionRunner)
		r := newProjectionRouter(runner)

		w := serve(r, http.MethodGet, "/api/v1/projections/compare?organization_id="+testOrgID.String())

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "scenario_id is required", decodeError(t, w).Error)
		runner.AssertNotCalled(t, "Compare", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("returns deltas", func(t *testing.T) {
		runner := new(MockProjectionRunner)
		runner.On("Compare", mock.Anything, testOrgID, testScenarioID).Return(&report.ScenarioComparison{
			OrganizationID: testOrgID,
			ScenarioID:     testScenarioID,
			ScenarioName:   "Dry year",
			PerHarvest: []report.HarvestDelta{{
				HarvestID:    testHarvestID,
				RevenueDelta: decimal.NewFromInt(-100000),
			}},
		}, nil).Once()
		r := newProjectionRouter(runner)

		w := serve(r, http.MethodGet, "/api/v1/projections/compare?organization_id="+testOrgID.String()+
			"&scenario_id="+testScenarioID.String())

		require.Equal(t, http.StatusOK, w.Code)
		var resp struct {
			Data report.ScenarioComparison `json:"data"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "Dry year", resp.Data.ScenarioName)
		require.Len(t, resp.Data.PerHarvest, 1)
		assert.True(t, resp.Data.PerHarvest[0].RevenueDelta.Equal(decimal.NewFromInt(-100000)))
		runner.AssertExpectations(t)
	})
}

func TestProjectionHandler_InvalidateCache(t *testing.T) {
	runner := new(MockProjectionRunner)
	runner.On("InvalidateCache", mock.Anything, testOrgID).Return(nil).Once()
	r := newProjectionRouter(runner)

	w := serve(r, http.MethodDelete, "/api/v1/projections/cache?organization_id="+testOrgID.String())

	assert.Equal(t, http.StatusNoContent, w.Code)
	runner.AssertExpectations(t)
}
