package models

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/agrodash/backend/internal/domain/projection"
)

// HarvestPeriodModel is a crop year of an organization.
type HarvestPeriodModel struct {
	BaseModel
	OrganizationID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_harvest_periods_org_start"`
	Name           string    `gorm:"type:varchar(20);not null"`
	StartYear      int       `gorm:"not null;uniqueIndex:idx_harvest_periods_org_start"`
	EndYear        int       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (HarvestPeriodModel) TableName() string {
	return "harvest_periods"
}

// ToDomain converts the model to a domain HarvestPeriod
func (m *HarvestPeriodModel) ToDomain() projection.HarvestPeriod {
	return projection.HarvestPeriod{
		ID:        m.ID,
		Name:      m.Name,
		StartYear: m.StartYear,
		EndYear:   m.EndYear,
	}
}

// DebtInstrumentModel is a debt with its payment schedule. Category and
// currency are stored as entered and validated by the consolidator.
type DebtInstrumentModel struct {
	BaseModel
	OrganizationID uuid.UUID          `gorm:"type:uuid;not null;index"`
	Category       string             `gorm:"type:varchar(20);not null;index"`
	Creditor       string             `gorm:"type:varchar(200);not null"`
	Currency       string             `gorm:"type:varchar(10);not null;default:''"`
	Principal      decimal.Decimal    `gorm:"type:numeric(18,2);not null;default:0"`
	InterestRate   decimal.Decimal    `gorm:"type:numeric(9,4);not null;default:0"`
	Payments       []DebtPaymentModel `gorm:"foreignKey:InstrumentID;constraint:OnDelete:CASCADE"`
}

// TableName returns the table name for GORM
func (DebtInstrumentModel) TableName() string {
	return "debt_instruments"
}

// DebtPaymentModel is the amount of an instrument due in one harvest.
type DebtPaymentModel struct {
	ChildModel
	InstrumentID uuid.UUID       `gorm:"type:uuid;not null;index"`
	Amount       decimal.Decimal `gorm:"type:numeric(18,2);not null"`
}

// TableName returns the table name for GORM
func (DebtPaymentModel) TableName() string {
	return "debt_payments"
}

// ToDomain converts the model to a domain DebtInstrument
func (m *DebtInstrumentModel) ToDomain() projection.DebtInstrument {
	payments := make(map[uuid.UUID]decimal.Decimal, len(m.Payments))
	for _, p := range m.Payments {
		payments[p.HarvestID] = payments[p.HarvestID].Add(p.Amount)
	}
	return projection.DebtInstrument{
		ID:             m.ID,
		OrganizationID: m.OrganizationID,
		Category:       projection.DebtCategory(m.Category),
		Creditor:       m.Creditor,
		Currency:       m.Currency,
		Principal:      m.Principal,
		InterestRate:   m.InterestRate,
		Payments:       payments,
		CreatedAt:      m.CreatedAt,
	}
}

// CashFlowItemModel is a revenue, expense, investment or financing line.
type CashFlowItemModel struct {
	BaseModel
	OrganizationID uuid.UUID            `gorm:"type:uuid;not null;index"`
	Category       string               `gorm:"type:varchar(20);not null"`
	Subcategory    string               `gorm:"type:varchar(50);not null;default:''"`
	Driver         string               `gorm:"type:varchar(20);not null;default:''"`
	Currency       string               `gorm:"type:varchar(10);not null;default:''"`
	Description    string               `gorm:"type:varchar(255)"`
	Values         []CashFlowValueModel `gorm:"foreignKey:ItemID;constraint:OnDelete:CASCADE"`
}

// TableName returns the table name for GORM
func (CashFlowItemModel) TableName() string {
	return "cash_flow_items"
}

// CashFlowValueModel is the amount of a line in one harvest.
type CashFlowValueModel struct {
	ChildModel
	ItemID uuid.UUID       `gorm:"type:uuid;not null;index"`
	Amount decimal.Decimal `gorm:"type:numeric(18,2);not null"`
}

// TableName returns the table name for GORM
func (CashFlowValueModel) TableName() string {
	return "cash_flow_values"
}

// ToDomain converts the model to a domain CashFlowLineItem
func (m *CashFlowItemModel) ToDomain() projection.CashFlowLineItem {
	amounts := make(map[uuid.UUID]decimal.Decimal, len(m.Values))
	for _, v := range m.Values {
		amounts[v.HarvestID] = amounts[v.HarvestID].Add(v.Amount)
	}
	return projection.CashFlowLineItem{
		ID:          m.ID,
		Category:    projection.FlowCategory(m.Category),
		Subcategory: m.Subcategory,
		Driver:      projection.ValueKind(m.Driver),
		Currency:    m.Currency,
		Amounts:     amounts,
	}
}

// ScenarioModel is a named what-if overlay.
type ScenarioModel struct {
	BaseModel
	OrganizationID uuid.UUID                 `gorm:"type:uuid;not null;index"`
	Name           string                    `gorm:"type:varchar(100);not null"`
	Description    string                    `gorm:"type:text"`
	IsBaseline     bool                      `gorm:"not null;default:false"`
	Adjustments    []ScenarioAdjustmentModel `gorm:"foreignKey:ScenarioID;constraint:OnDelete:CASCADE"`
}

// TableName returns the table name for GORM
func (ScenarioModel) TableName() string {
	return "scenarios"
}

// ScenarioAdjustmentModel holds the multipliers and dollar rate of one harvest.
type ScenarioAdjustmentModel struct {
	ChildModel
	ScenarioID             uuid.UUID       `gorm:"type:uuid;not null;index"`
	AreaMultiplier         decimal.Decimal `gorm:"type:numeric(9,4);not null;default:1"`
	ProductivityMultiplier decimal.Decimal `gorm:"type:numeric(9,4);not null;default:1"`
	CostMultiplier         decimal.Decimal `gorm:"type:numeric(9,4);not null;default:1"`
	ExchangeRate           decimal.Decimal `gorm:"type:numeric(12,4);not null;default:0"`
}

// TableName returns the table name for GORM
func (ScenarioAdjustmentModel) TableName() string {
	return "scenario_adjustments"
}

// ToDomain converts the model to a domain Scenario
func (m *ScenarioModel) ToDomain() *projection.Scenario {
	adjustments := make(map[uuid.UUID]projection.HarvestAdjustment, len(m.Adjustments))
	for _, a := range m.Adjustments {
		adjustments[a.HarvestID] = projection.HarvestAdjustment{
			AreaMultiplier:         a.AreaMultiplier,
			ProductivityMultiplier: a.ProductivityMultiplier,
			CostMultiplier:         a.CostMultiplier,
			ExchangeRate:           a.ExchangeRate,
		}
	}
	return &projection.Scenario{
		ID:             m.ID,
		OrganizationID: m.OrganizationID,
		Name:           m.Name,
		IsBaseline:     m.IsBaseline,
		Adjustments:    adjustments,
	}
}

// AssetValueModel holds the balance sheet inputs of one harvest.
type AssetValueModel struct {
	BaseModel
	OrganizationID   uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_asset_values_org_harvest"`
	HarvestID        uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_asset_values_org_harvest"`
	Inventories      decimal.Decimal `gorm:"type:numeric(18,2);not null;default:0"`
	Receivables      decimal.Decimal `gorm:"type:numeric(18,2);not null;default:0"`
	PropertyValue    decimal.Decimal `gorm:"type:numeric(18,2);not null;default:0"`
	ImprovementValue decimal.Decimal `gorm:"type:numeric(18,2);not null;default:0"`
}

// TableName returns the table name for GORM
func (AssetValueModel) TableName() string {
	return "asset_values"
}

// ToDomain converts the model to domain AssetValues
func (m *AssetValueModel) ToDomain() projection.AssetValues {
	return projection.AssetValues{
		HarvestID:        m.HarvestID,
		Inventories:      m.Inventories,
		Receivables:      m.Receivables,
		PropertyValue:    m.PropertyValue,
		ImprovementValue: m.ImprovementValue,
	}
}

// All lists every model, in creation order, for AutoMigrate in tests and
// development databases.
func All() []any {
	return []any{
		&HarvestPeriodModel{},
		&DebtInstrumentModel{},
		&DebtPaymentModel{},
		&CashFlowItemModel{},
		&CashFlowValueModel{},
		&ScenarioModel{},
		&ScenarioAdjustmentModel{},
		&AssetValueModel{},
	}
}
