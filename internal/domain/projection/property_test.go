package projection

import (
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const propertyRounds = 50

func fakeAmount(f *gofakeit.Faker, lo, hi float64) decimal.Decimal {
	return decimal.NewFromFloat(f.Float64Range(lo, hi)).Round(2)
}

func fakeInstruments(f *gofakeit.Faker, axis *HarvestAxis) []DebtInstrument {
	creditors := make([]string, f.IntRange(1, 15))
	for i := range creditors {
		creditors[i] = f.Company()
	}
	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	out := make([]DebtInstrument, f.IntRange(1, 30))
	for i := range out {
		payments := map[uuid.UUID]decimal.Decimal{}
		for _, id := range axis.IDs() {
			if f.Bool() {
				payments[id] = fakeAmount(f, 1000, 500000)
			}
		}
		out[i] = DebtInstrument{
			ID:           uuid.New(),
			Category:     DebtCategories[f.IntRange(0, len(DebtCategories)-1)],
			Creditor:     creditors[f.IntRange(0, len(creditors)-1)],
			Currency:     f.RandomString([]string{"BRL", "USD", ""}),
			Principal:    fakeAmount(f, 10000, 5000000),
			InterestRate: fakeAmount(f, 0, 0.25),
			Payments:     payments,
			CreatedAt:    created.Add(time.Duration(i) * time.Hour),
		}
	}
	return out
}

func fakeLineItems(f *gofakeit.Faker, axis *HarvestAxis) []CashFlowLineItem {
	categories := []FlowCategory{CategoryOperatingIn, CategoryOperatingOut, CategoryInvestment, CategoryFinancing}
	out := make([]CashFlowLineItem, f.IntRange(1, 25))
	for i := range out {
		category := categories[f.IntRange(0, len(categories)-1)]
		amounts := map[uuid.UUID]decimal.Decimal{}
		for _, id := range axis.IDs() {
			v := fakeAmount(f, 0, 800000)
			if category == CategoryInvestment || category == CategoryFinancing {
				if f.Bool() {
					v = v.Neg()
				}
			}
			amounts[id] = v
		}
		out[i] = CashFlowLineItem{
			ID:          uuid.New(),
			Category:    category,
			Subcategory: f.RandomString([]string{"soy", "corn", "seeds", "lease", "sales_tax", "income_tax", ""}),
			Currency:    f.RandomString([]string{"BRL", "USD"}),
			Amounts:     amounts,
		}
	}
	return out
}

func TestProperty_CreditorRankingSumsToTotal(t *testing.T) {
	f := gofakeit.New(42)
	axis := newTestAxis(t, 2024, 2025, 2026, 2027)
	consolidator := NewDebtConsolidator(newTestNormalizer(t), DefaultTopCreditors)

	for round := range propertyRounds {
		pos := consolidator.Consolidate(fakeInstruments(f, axis), axis)

		require.Empty(t, pos.Excluded, "round %d", round)
		assert.LessOrEqual(t, len(pos.CreditorRanking), DefaultTopCreditors+1)

		sum := decimal.Zero
		for i, share := range pos.CreditorRanking {
			sum = sum.Add(share.Value)
			if i > 0 && !share.IsOthers {
				assert.True(t, pos.CreditorRanking[i-1].Value.GreaterThanOrEqual(share.Value), "round %d: ranking not descending", round)
			}
			if share.IsOthers {
				assert.Equal(t, len(pos.CreditorRanking)-1, i, "others bucket must be last")
				assert.Equal(t, OthersLabel(share.BucketedCount), share.Creditor)
			}
		}
		if pos.GrandTotal.IsZero() {
			assert.Empty(t, pos.CreditorRanking)
			continue
		}
		assertDecimalNear(t, pos.GrandTotal, sum, "round", round)
	}
}

func TestProperty_DebtTotalsAgree(t *testing.T) {
	f := gofakeit.New(7)
	axis := newTestAxis(t, 2023, 2024, 2025)
	consolidator := NewDebtConsolidator(newTestNormalizer(t), DefaultTopCreditors)

	for range propertyRounds {
		pos := consolidator.Consolidate(fakeInstruments(f, axis), axis)

		perHarvest, byCategory := decimal.Zero, decimal.Zero
		for _, h := range pos.PerHarvest {
			perHarvest = perHarvest.Add(h.Total)
			harvestCategories := decimal.Zero
			for _, v := range h.ByCategory {
				harvestCategories = harvestCategories.Add(v)
			}
			assert.True(t, h.Total.Equal(harvestCategories))
		}
		for _, v := range pos.CategoryTotals {
			byCategory = byCategory.Add(v)
		}
		assert.True(t, pos.GrandTotal.Equal(perHarvest))
		assert.True(t, pos.GrandTotal.Equal(byCategory))
	}
}

func TestProperty_CumulativeBalanceIsRunningSum(t *testing.T) {
	f := gofakeit.New(2026)
	axis := newTestAxis(t, 2025, 2026, 2027, 2028, 2029)

	for range propertyRounds {
		opening := fakeAmount(f, -100000, 100000)
		projector := NewCashFlowProjector(newTestNormalizer(t), WithOpeningBalance(opening))

		snapshots, excluded := projector.Project(fakeLineItems(f, axis), axis)
		require.Empty(t, excluded)
		require.Len(t, snapshots, axis.Len())

		running := opening
		for i, s := range snapshots {
			assert.Equal(t, axis.At(i).ID, s.HarvestID)
			assert.True(t, s.OpeningBalance.Equal(running))
			running = running.Add(s.NetFlow)
			assert.True(t, s.CumulativeBalance.Equal(running))
			assert.Equal(t, running.IsNegative(), s.FundingGap)
		}
	}
}

func TestProperty_BalanceSheetBalances(t *testing.T) {
	f := gofakeit.New(99)
	axis := newTestAxis(t, 2024, 2025, 2026)
	normalizer := newTestNormalizer(t)

	for range propertyRounds {
		debt := NewDebtConsolidator(normalizer, DefaultTopCreditors).Consolidate(fakeInstruments(f, axis), axis)
		cashFlow, _ := NewCashFlowProjector(normalizer).Project(fakeLineItems(f, axis), axis)
		assets := map[uuid.UUID]AssetValues{}
		for _, id := range axis.IDs() {
			assets[id] = AssetValues{
				HarvestID:     id,
				PropertyValue: fakeAmount(f, 0, 10000000),
				Inventories:   fakeAmount(f, 0, 300000),
			}
		}

		statements, err := NewStatementDeriver(normalizer).Derive(axis, debt, cashFlow, assets)
		require.NoError(t, err)

		for _, line := range statements.BalanceSheet {
			assert.True(t, line.TotalAssets.Equal(line.Liabilities.Add(line.Equity)))
		}
	}
}

func TestProperty_IdentityScenarioChangesNothing(t *testing.T) {
	f := gofakeit.New(3)
	axis := newTestAxis(t, 2025, 2026)
	baseline := &Scenario{ID: uuid.New(), Name: "Baseline", IsBaseline: true, Adjustments: map[uuid.UUID]HarvestAdjustment{
		axis.At(0).ID: {ProductivityMultiplier: dec("0.5"), ExchangeRate: dec("9")},
	}}

	for _, s := range []*Scenario{nil, baseline} {
		items := fakeLineItems(f, axis)
		adjusted := NewScenarioOverlay(s).AdjustLineItems(items)

		require.Len(t, adjusted, len(items))
		for i := range items {
			for id, v := range items[i].Amounts {
				assert.True(t, adjusted[i].Amounts[id].Equal(v))
			}
		}
	}
}
