package projection

import (
	"context"

	"github.com/google/uuid"
)

// HarvestRegistry lists the harvest periods of an organization.
type HarvestRegistry interface {
	// ListPeriods returns the periods ordered by start year
	ListPeriods(ctx context.Context, organizationID uuid.UUID) ([]HarvestPeriod, error)
}

// DebtRegistry lists debt instruments.
type DebtRegistry interface {
	// ListInstruments returns the organization's instruments, optionally of one category
	ListInstruments(ctx context.Context, organizationID uuid.UUID, category *DebtCategory) ([]DebtInstrument, error)
}

// RevenueExpenseRegistry lists cash-flow line items.
type RevenueExpenseRegistry interface {
	// ListLineItems returns every revenue, expense, investment and financing line
	ListLineItems(ctx context.Context, organizationID uuid.UUID) ([]CashFlowLineItem, error)
}

// ScenarioRegistry loads scenarios.
type ScenarioRegistry interface {
	// Get returns the scenario, or an error wrapping shared.ErrNotFound
	Get(ctx context.Context, scenarioID uuid.UUID) (*Scenario, error)
}

// AssetRegistry supplies balance sheet inputs.
type AssetRegistry interface {
	// GetValues returns the asset values of one harvest; missing rows yield zero values
	GetValues(ctx context.Context, organizationID, harvestID uuid.UUID) (AssetValues, error)
}

// DataVersionSource fingerprints the inputs of an organization. The version
// changes whenever any source record of the organization changes.
type DataVersionSource interface {
	InputDataVersion(ctx context.Context, organizationID uuid.UUID) (string, error)
}
