package report

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/agrodash/backend/internal/domain/projection"
	"github.com/agrodash/backend/internal/domain/shared/valueobject"
)

// ConsolidatedReport is the joined read model of a projection run. Every
// per-harvest slice follows HarvestPeriods order.
type ConsolidatedReport struct {
	OrganizationID   uuid.UUID            `json:"organization_id"`
	ScenarioID       *uuid.UUID           `json:"scenario_id,omitempty"`
	ScenarioName     string               `json:"scenario_name,omitempty"`
	ProjectionID     *uuid.UUID           `json:"projection_id,omitempty"`
	InputDataVersion string               `json:"input_data_version"`
	Currency         valueobject.Currency `json:"currency"`
	GeneratedAt      time.Time            `json:"generated_at"`

	HarvestPeriods  []projection.HarvestPeriod           `json:"harvest_periods"`
	DebtPosition    *projection.ConsolidatedDebtPosition `json:"debt_position"`
	CashFlow        CashFlowSection                      `json:"cash_flow"`
	IncomeStatement IncomeStatementSection               `json:"income_statement"`
	BalanceSheet    BalanceSheetSection                  `json:"balance_sheet"`
	DebtIndicators  DebtIndicatorsSection                `json:"debt_indicators"`
	Excluded        []projection.Exclusion               `json:"excluded"`
}

// CashFlowSection holds the projected cash flow.
type CashFlowSection struct {
	OpeningBalance decimal.Decimal               `json:"opening_balance"`
	PerHarvest     []projection.CashFlowSnapshot `json:"per_harvest"`
}

// IncomeStatementSection holds the derived income statements.
type IncomeStatementSection struct {
	PerHarvest []projection.IncomeStatementLine `json:"per_harvest"`
}

// BalanceSheetSection holds the derived balance sheets.
type BalanceSheetSection struct {
	PerHarvest []projection.BalanceSheetLine `json:"per_harvest"`
}

// DebtIndicatorsSection holds the leverage indicators.
type DebtIndicatorsSection struct {
	PerHarvest []projection.DebtIndicators `json:"per_harvest"`
}

// HarvestDelta compares one harvest between the baseline and a scenario.
type HarvestDelta struct {
	HarvestID              uuid.UUID       `json:"harvest_id"`
	HarvestName            string          `json:"harvest_name"`
	BaselineRevenue        decimal.Decimal `json:"baseline_revenue"`
	ScenarioRevenue        decimal.Decimal `json:"scenario_revenue"`
	RevenueDelta           decimal.Decimal `json:"revenue_delta"`
	BaselineNetIncome      decimal.Decimal `json:"baseline_net_income"`
	ScenarioNetIncome      decimal.Decimal `json:"scenario_net_income"`
	NetIncomeDelta         decimal.Decimal `json:"net_income_delta"`
	BaselineCumulativeCash decimal.Decimal `json:"baseline_cumulative_cash"`
	ScenarioCumulativeCash decimal.Decimal `json:"scenario_cumulative_cash"`
	CumulativeCashDelta    decimal.Decimal `json:"cumulative_cash_delta"`
	BaselineTotalDebt      decimal.Decimal `json:"baseline_total_debt"`
	ScenarioTotalDebt      decimal.Decimal `json:"scenario_total_debt"`
	TotalDebtDelta         decimal.Decimal `json:"total_debt_delta"`
}

// ScenarioComparison is the per-harvest difference between two runs.
type ScenarioComparison struct {
	OrganizationID uuid.UUID            `json:"organization_id"`
	ScenarioID     uuid.UUID            `json:"scenario_id"`
	ScenarioName   string               `json:"scenario_name"`
	Currency       valueobject.Currency `json:"currency"`
	PerHarvest     []HarvestDelta       `json:"per_harvest"`
}

// CacheKey identifies a memoized report. A nil ScenarioID is the baseline run.
type CacheKey struct {
	OrganizationID   uuid.UUID
	ScenarioID       uuid.UUID
	InputDataVersion string
}

// String renders the key as org:scenario:version.
func (k CacheKey) String() string {
	scenario := "baseline"
	if k.ScenarioID != uuid.Nil {
		scenario = k.ScenarioID.String()
	}
	return fmt.Sprintf("%s:%s:%s", k.OrganizationID, scenario, k.InputDataVersion)
}

// ReportCache memoizes consolidated reports.
type ReportCache interface {
	// Get returns the cached report; ok is false on a miss
	Get(ctx context.Context, key CacheKey) (report *ConsolidatedReport, ok bool, err error)

	// Set stores a report for ttl
	Set(ctx context.Context, key CacheKey, report *ConsolidatedReport, ttl time.Duration) error

	// InvalidateOrganization drops every cached report of an organization
	InvalidateOrganization(ctx context.Context, organizationID uuid.UUID) error
}

// ReportArchive keeps an immutable copy of every freshly computed report.
type ReportArchive interface {
	// Put stores rep under key. Storing a key twice keeps the first copy.
	Put(ctx context.Context, key CacheKey, report *ConsolidatedReport) error
}
