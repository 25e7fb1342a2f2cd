package projection

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScenarioOverlay_Apply(t *testing.T) {
	harvest := uuid.New()
	scenario := &Scenario{
		ID:   uuid.New(),
		Name: "dry year",
		Adjustments: map[uuid.UUID]HarvestAdjustment{
			harvest: {
				AreaMultiplier:         dec("0.9"),
				ProductivityMultiplier: dec("1.1"),
				CostMultiplier:         dec("1.2"),
				ExchangeRate:           dec("6"),
			},
		},
	}
	overlay := NewScenarioOverlay(scenario)

	tests := []struct {
		name string
		kind ValueKind
		base string
		want string
	}{
		{name: "productivity-proportional revenue", kind: KindProductivity, base: "1000000", want: "1100000"},
		{name: "area", kind: KindArea, base: "1000", want: "900"},
		{name: "cost", kind: KindCost, base: "500", want: "600"},
		{name: "fixed values untouched", kind: KindFixed, base: "500", want: "500"},
		{name: "foreign revenue gets the rate last", kind: KindCurrencyRevenue, base: "100", want: "660"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := overlay.Apply(dec(tt.base), harvest, tt.kind)
			assert.True(t, got.Equal(dec(tt.want)), "got %s", got)
		})
	}

	t.Run("idempotent", func(t *testing.T) {
		first := overlay.Apply(dec("1234.56"), harvest, KindCost)
		second := overlay.Apply(dec("1234.56"), harvest, KindCost)
		assert.True(t, first.Equal(second))
	})

	t.Run("harvest without adjustment is identity", func(t *testing.T) {
		got := overlay.Apply(dec("10"), uuid.New(), KindProductivity)
		assert.True(t, got.Equal(dec("10")))
	})

	t.Run("zero multiplier is applied as stored", func(t *testing.T) {
		fallow := HarvestAdjustment{
			AreaMultiplier:         decimal.Zero,
			ProductivityMultiplier: dec("1"),
			CostMultiplier:         dec("1.5"),
		}
		o := NewScenarioOverlay(&Scenario{Adjustments: map[uuid.UUID]HarvestAdjustment{harvest: fallow}})
		assert.True(t, o.Apply(dec("100"), harvest, KindArea).IsZero())
		assert.True(t, o.Apply(dec("10"), harvest, KindCost).Equal(dec("15")))
		assert.True(t, o.Apply(dec("10"), harvest, KindProductivity).Equal(dec("10")))
	})
}

func TestScenarioOverlay_Identity(t *testing.T) {
	harvest := uuid.New()
	adjustments := map[uuid.UUID]HarvestAdjustment{harvest: {ProductivityMultiplier: dec("2"), ExchangeRate: dec("9")}}

	for name, s := range map[string]*Scenario{
		"no scenario": nil,
		"baseline":    {ID: uuid.New(), IsBaseline: true, Adjustments: adjustments},
	} {
		t.Run(name, func(t *testing.T) {
			o := NewScenarioOverlay(s)
			for _, kind := range []ValueKind{KindArea, KindProductivity, KindCost, KindCurrencyRevenue} {
				assert.True(t, o.Apply(dec("123.45"), harvest, kind).Equal(dec("123.45")))
			}
		})
	}
}

func TestScenarioOverlay_AdjustLineItems(t *testing.T) {
	harvest := uuid.New()
	o := NewScenarioOverlay(&Scenario{Adjustments: map[uuid.UUID]HarvestAdjustment{
		harvest: {ProductivityMultiplier: dec("1.1"), CostMultiplier: dec("2"), AreaMultiplier: dec("3")},
	}})

	revenue := CashFlowLineItem{ID: uuid.New(), Category: CategoryOperatingIn, Currency: "BRL",
		Amounts: map[uuid.UUID]decimal.Decimal{harvest: dec("1000")}}
	expense := CashFlowLineItem{ID: uuid.New(), Category: CategoryOperatingOut, Currency: "BRL",
		Amounts: map[uuid.UUID]decimal.Decimal{harvest: dec("100")}}
	lease := CashFlowLineItem{ID: uuid.New(), Category: CategoryOperatingOut, Driver: KindArea, Currency: "BRL",
		Amounts: map[uuid.UUID]decimal.Decimal{harvest: dec("10")}}
	loan := CashFlowLineItem{ID: uuid.New(), Category: CategoryFinancing, Currency: "BRL",
		Amounts: map[uuid.UUID]decimal.Decimal{harvest: dec("-50")}}

	exportUSD := CashFlowLineItem{ID: uuid.New(), Category: CategoryOperatingIn, Driver: KindCurrencyRevenue, Currency: "USD",
		Amounts: map[uuid.UUID]decimal.Decimal{harvest: dec("100")}}

	baseline := []CashFlowLineItem{revenue, expense, lease, loan, exportUSD}
	adjusted := o.AdjustLineItems(baseline)

	require.Len(t, adjusted, 5)
	assert.True(t, adjusted[0].Amounts[harvest].Equal(dec("1100")))
	assert.True(t, adjusted[1].Amounts[harvest].Equal(dec("200")))
	assert.True(t, adjusted[2].Amounts[harvest].Equal(dec("30")))
	assert.True(t, adjusted[3].Amounts[harvest].Equal(dec("-50")))
	assert.True(t, adjusted[4].Amounts[harvest].Equal(dec("110")), "dollar amounts are converted later by the normalizer")
	assert.Equal(t, "USD", adjusted[4].Currency)

	assert.True(t, baseline[0].Amounts[harvest].Equal(dec("1000")), "baseline must not be mutated")
	assert.True(t, revenue.Amounts[harvest].Equal(dec("1000")))

	again := o.AdjustLineItems(baseline)
	for i := range adjusted {
		assert.True(t, again[i].Amounts[harvest].Equal(adjusted[i].Amounts[harvest]))
	}
}

func TestScenarioOverlay_FallowHarvest(t *testing.T) {
	harvest := uuid.New()
	o := NewScenarioOverlay(&Scenario{ID: uuid.New(), Adjustments: map[uuid.UUID]HarvestAdjustment{
		harvest: {AreaMultiplier: decimal.Zero, ProductivityMultiplier: decimal.Zero, CostMultiplier: decimal.Zero},
	}})
	items := []CashFlowLineItem{
		{ID: uuid.New(), Category: CategoryOperatingIn, Currency: "BRL", Amounts: map[uuid.UUID]decimal.Decimal{harvest: dec("1000")}},
		{ID: uuid.New(), Category: CategoryOperatingOut, Currency: "BRL", Amounts: map[uuid.UUID]decimal.Decimal{harvest: dec("400")}},
		{ID: uuid.New(), Category: CategoryFinancing, Currency: "BRL", Amounts: map[uuid.UUID]decimal.Decimal{harvest: dec("-80")}},
	}

	adjusted := o.AdjustLineItems(items)

	assert.True(t, adjusted[0].Amounts[harvest].IsZero())
	assert.True(t, adjusted[1].Amounts[harvest].IsZero())
	assert.True(t, adjusted[2].Amounts[harvest].Equal(dec("-80")), "financing flows are fixed")
}

func TestScenarioOverlay_ExchangeRate(t *testing.T) {
	withRate, withoutRate := uuid.New(), uuid.New()
	adjustments := map[uuid.UUID]HarvestAdjustment{
		withRate:    {AreaMultiplier: dec("1"), ProductivityMultiplier: dec("1"), CostMultiplier: dec("1"), ExchangeRate: dec("5.4")},
		withoutRate: {AreaMultiplier: dec("1"), ProductivityMultiplier: dec("1"), CostMultiplier: dec("1")},
	}

	rate, ok := NewScenarioOverlay(&Scenario{Adjustments: adjustments}).ExchangeRate(withRate)
	require.True(t, ok)
	assert.True(t, rate.Equal(dec("5.4")))

	_, ok = NewScenarioOverlay(&Scenario{Adjustments: adjustments}).ExchangeRate(withoutRate)
	assert.False(t, ok)
	_, ok = NewScenarioOverlay(&Scenario{IsBaseline: true, Adjustments: adjustments}).ExchangeRate(withRate)
	assert.False(t, ok)
}

func TestScenario_Validate(t *testing.T) {
	axis := newTestAxis(t, 2024)

	t.Run("unknown harvest", func(t *testing.T) {
		s := &Scenario{ID: uuid.New(), Adjustments: map[uuid.UUID]HarvestAdjustment{uuid.New(): {}}}
		assert.Error(t, s.Validate(axis))
	})

	t.Run("negative multiplier", func(t *testing.T) {
		s := &Scenario{ID: uuid.New(), Adjustments: map[uuid.UUID]HarvestAdjustment{
			axis.At(0).ID: {CostMultiplier: decimal.NewFromInt(-1)},
		}}
		assert.Error(t, s.Validate(axis))
	})

	t.Run("nil scenario", func(t *testing.T) {
		var s *Scenario
		assert.NoError(t, s.Validate(axis))
	})
}
