package projection

import (
	"github.com/shopspring/decimal"
)

// WeightedInterestRate is the average annual rate (percent) of bank
// instruments weighted by normalized principal. Zero without bank principal.
func WeightedInterestRate(instruments []normalizedInstrument) decimal.Decimal {
	weighted, weight := decimal.Zero, decimal.Zero
	for _, n := range instruments {
		if n.source.Category != DebtBank || !n.principal.IsPositive() {
			continue
		}
		weighted = weighted.Add(n.source.InterestRate.Mul(n.principal))
		weight = weight.Add(n.principal)
	}
	if weight.IsZero() {
		return decimal.Zero
	}
	return weighted.Div(weight)
}

// EstimateDebtService fills EstimatedInterest on every harvest: the bank debt
// scheduled in the previous harvest times the weighted rate. The first harvest
// has no predecessor and uses its own bank debt.
func EstimateDebtService(pos *ConsolidatedDebtPosition) {
	rate := pos.WeightedInterestRate.Div(decimal.NewFromInt(100))
	for i := range pos.PerHarvest {
		base := pos.PerHarvest[i].ByCategory[DebtBank]
		if i > 0 {
			base = pos.PerHarvest[i-1].ByCategory[DebtBank]
		}
		pos.PerHarvest[i].EstimatedInterest = base.Mul(rate)
	}
}
