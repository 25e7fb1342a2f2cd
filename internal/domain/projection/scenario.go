package projection

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ValueKind tells a scenario which multiplier scales a value.
type ValueKind string

const (
	KindArea            ValueKind = "area"
	KindProductivity    ValueKind = "productivity"
	KindCost            ValueKind = "cost"
	KindCurrencyRevenue ValueKind = "currency_revenue"
	KindFixed           ValueKind = "fixed"
)

// IsValid reports whether k is a known kind.
func (k ValueKind) IsValid() bool {
	switch k {
	case KindArea, KindProductivity, KindCost, KindCurrencyRevenue, KindFixed:
		return true
	}
	return false
}

// HarvestAdjustment holds the what-if multipliers for one harvest. Multipliers
// apply as stored, so zero removes the value (a fallow harvest). ExchangeRate
// quotes one US dollar in the normalization currency; zero means no override.
type HarvestAdjustment struct {
	AreaMultiplier         decimal.Decimal `json:"area_multiplier"`
	ProductivityMultiplier decimal.Decimal `json:"productivity_multiplier"`
	CostMultiplier         decimal.Decimal `json:"cost_multiplier"`
	ExchangeRate           decimal.Decimal `json:"exchange_rate"`
}

func (a HarvestAdjustment) factor(kind ValueKind) decimal.Decimal {
	switch kind {
	case KindArea:
		return a.AreaMultiplier
	case KindProductivity, KindCurrencyRevenue:
		return a.ProductivityMultiplier
	case KindCost:
		return a.CostMultiplier
	}
	return decimal.NewFromInt(1)
}

// Scenario is a named set of per-harvest adjustments. Scenarios never modify
// the values they adjust.
type Scenario struct {
	ID             uuid.UUID                       `json:"id"`
	OrganizationID uuid.UUID                       `json:"organization_id"`
	Name           string                          `json:"name"`
	IsBaseline     bool                            `json:"is_baseline"`
	Adjustments    map[uuid.UUID]HarvestAdjustment `json:"adjustments"`
}

// IsIdentity reports whether applying the scenario changes nothing.
// A nil scenario and the baseline scenario are both identities.
func (s *Scenario) IsIdentity() bool {
	return s == nil || s.IsBaseline
}

// Validate checks that every adjusted harvest is on the axis and that no
// multiplier or rate is negative.
func (s *Scenario) Validate(axis *HarvestAxis) error {
	if s == nil {
		return nil
	}
	if _, err := BindPerHarvest(axis, s.Adjustments); err != nil {
		return err
	}
	for harvestID, adj := range s.Adjustments {
		for _, v := range []decimal.Decimal{adj.AreaMultiplier, adj.ProductivityMultiplier, adj.CostMultiplier, adj.ExchangeRate} {
			if v.IsNegative() {
				return NewValidationError("adjustments",
					"scenario "+s.ID.String()+" has a negative adjustment for harvest "+harvestID.String())
			}
		}
	}
	return nil
}

// ScenarioOverlay applies a scenario at read time.
type ScenarioOverlay struct {
	scenario *Scenario
}

// NewScenarioOverlay creates an overlay. A nil scenario yields the identity overlay.
func NewScenarioOverlay(s *Scenario) *ScenarioOverlay {
	return &ScenarioOverlay{scenario: s}
}

// Multiplier returns the quantity factor for a value of the given kind.
func (o *ScenarioOverlay) Multiplier(harvestID uuid.UUID, kind ValueKind) decimal.Decimal {
	if o.scenario.IsIdentity() {
		return decimal.NewFromInt(1)
	}
	adj, ok := o.scenario.Adjustments[harvestID]
	if !ok {
		return decimal.NewFromInt(1)
	}
	return adj.factor(kind)
}

// ExchangeRate returns the scenario dollar rate of a harvest, if it overrides
// the reference rate.
func (o *ScenarioOverlay) ExchangeRate(harvestID uuid.UUID) (decimal.Decimal, bool) {
	if o.scenario.IsIdentity() {
		return decimal.Decimal{}, false
	}
	adj, ok := o.scenario.Adjustments[harvestID]
	if !ok || !adj.ExchangeRate.IsPositive() {
		return decimal.Decimal{}, false
	}
	return adj.ExchangeRate, true
}

// Apply adjusts a single baseline value. Quantity multipliers come first; a
// currency-denominated revenue is then converted with the scenario exchange
// rate, as the last step, when the harvest has one.
func (o *ScenarioOverlay) Apply(base decimal.Decimal, harvestID uuid.UUID, kind ValueKind) decimal.Decimal {
	v := base.Mul(o.Multiplier(harvestID, kind))
	if kind != KindCurrencyRevenue {
		return v
	}
	if rate, ok := o.ExchangeRate(harvestID); ok {
		v = v.Mul(rate)
	}
	return v
}

// AdjustLineItems returns scaled copies of the items. Foreign amounts keep
// their currency: the rate step is left to a normalizer built with
// CurrencyNormalizer.WithScenario, which keeps the exchange rate last.
func (o *ScenarioOverlay) AdjustLineItems(items []CashFlowLineItem) []CashFlowLineItem {
	out := make([]CashFlowLineItem, len(items))
	for i, item := range items {
		adjusted := item
		adjusted.Amounts = make(map[uuid.UUID]decimal.Decimal, len(item.Amounts))
		kind := item.Kind()
		if kind == KindCurrencyRevenue {
			kind = KindProductivity
		}
		for harvestID, amount := range item.Amounts {
			adjusted.Amounts[harvestID] = o.Apply(amount, harvestID, kind)
		}
		out[i] = adjusted
	}
	return out
}
