package projection

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/agrodash/backend/internal/domain/shared/valueobject"
)

// DebtIndicators are leverage ratios for one harvest. Ratios with a zero
// denominator are zero.
type DebtIndicators struct {
	HarvestID           uuid.UUID       `json:"harvest_id"`
	HarvestName         string          `json:"harvest_name"`
	TotalDebt           decimal.Decimal `json:"total_debt"`
	LiquidAssets        decimal.Decimal `json:"liquid_assets"`
	NetDebt             decimal.Decimal `json:"net_debt"`
	TotalDebtUSD        decimal.Decimal `json:"total_debt_usd"`
	NetDebtUSD          decimal.Decimal `json:"net_debt_usd"`
	LoanToValue         decimal.Decimal `json:"loan_to_value"`
	DebtToRevenue       decimal.Decimal `json:"debt_to_revenue"`
	DebtToEBITDA        decimal.Decimal `json:"debt_to_ebitda"`
	NetDebtToRevenue    decimal.Decimal `json:"net_debt_to_revenue"`
	NetDebtToEBITDA     decimal.Decimal `json:"net_debt_to_ebitda"`
	NetDebtReduction    decimal.Decimal `json:"net_debt_reduction"`
	NetDebtReductionPct decimal.Decimal `json:"net_debt_reduction_pct"`
}

// DeriveDebtIndicators computes the indicators of one harvest. previous is the
// prior harvest's indicators, nil for the first harvest.
func (d *StatementDeriver) DeriveDebtIndicators(
	debt HarvestDebt,
	income IncomeStatementLine,
	balance BalanceSheetLine,
	previous *DebtIndicators,
) DebtIndicators {
	ind := DebtIndicators{
		HarvestID:    debt.HarvestID,
		HarvestName:  debt.HarvestName,
		TotalDebt:    debt.Total,
		LiquidAssets: balance.CurrentAssets,
	}
	ind.NetDebt = ind.TotalDebt.Sub(ind.LiquidAssets)
	ind.TotalDebtUSD = d.toUSD(ind.TotalDebt, debt.HarvestID)
	ind.NetDebtUSD = d.toUSD(ind.NetDebt, debt.HarvestID)
	ind.LoanToValue = percentOf(debt.ByCategory[DebtLand], balance.PropertyValue)
	ind.DebtToRevenue = safeDiv(ind.TotalDebt, income.Revenue)
	ind.DebtToEBITDA = safeDiv(ind.TotalDebt, income.EBITDA)
	ind.NetDebtToRevenue = safeDiv(ind.NetDebt, income.Revenue)
	ind.NetDebtToEBITDA = safeDiv(ind.NetDebt, income.EBITDA)

	if previous != nil {
		ind.NetDebtReduction = previous.NetDebt.Sub(ind.NetDebt)
		ind.NetDebtReductionPct = percentOf(ind.NetDebtReduction, previous.NetDebt.Abs())
	}
	return ind
}

// toUSD converts a normalized amount into dollars at the harvest rate, or
// returns zero when no dollar rate is configured.
func (d *StatementDeriver) toUSD(v decimal.Decimal, harvestID uuid.UUID) decimal.Decimal {
	if d.normalizer == nil {
		return decimal.Zero
	}
	rate, err := d.normalizer.RateFor(harvestID, valueobject.USD)
	if err != nil {
		return decimal.Zero
	}
	m, err := Convert(valueobject.MustNewMoney(v, d.normalizer.Target()), valueobject.USD, rate)
	if err != nil {
		return decimal.Zero
	}
	return m.Amount()
}
