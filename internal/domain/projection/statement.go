package projection

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Outflow subcategories with a dedicated income statement line. Every other
// operating outflow subcategory is an operating expense.
const (
	SubcategorySalesTax  = "sales_tax"
	SubcategoryIncomeTax = "income_tax"
)

// costOfGoodsSubcategories are operating outflows tied to producing what is sold.
var costOfGoodsSubcategories = map[string]struct{}{
	"agricultural": {},
	"livestock":    {},
	"seeds":        {},
	"fertilizers":  {},
	"chemicals":    {},
	"harvesting":   {},
	"freight":      {},
}

// IsCostOfGoods reports whether an outflow subcategory maps to cost of goods.
func IsCostOfGoods(subcategory string) bool {
	_, ok := costOfGoodsSubcategories[subcategory]
	return ok
}

// AssetValues are externally supplied balances for one harvest, in the
// normalization currency.
type AssetValues struct {
	HarvestID        uuid.UUID       `json:"harvest_id"`
	Inventories      decimal.Decimal `json:"inventories"`
	Receivables      decimal.Decimal `json:"receivables"`
	PropertyValue    decimal.Decimal `json:"property_value"`
	ImprovementValue decimal.Decimal `json:"improvement_value"`
}

// IncomeStatementLine is the accrual-style view of one harvest.
type IncomeStatementLine struct {
	HarvestID        uuid.UUID       `json:"harvest_id"`
	HarvestName      string          `json:"harvest_name"`
	Revenue          decimal.Decimal `json:"revenue"`
	SalesTaxes       decimal.Decimal `json:"sales_taxes"`
	NetRevenue       decimal.Decimal `json:"net_revenue"`
	CostOfGoods      decimal.Decimal `json:"cost_of_goods"`
	GrossProfit      decimal.Decimal `json:"gross_profit"`
	OperatingExpense decimal.Decimal `json:"operating_expense"`
	EBITDA           decimal.Decimal `json:"ebitda"`
	EBITDAMargin     decimal.Decimal `json:"ebitda_margin"`
	FinancialResult  decimal.Decimal `json:"financial_result"`
	PreTaxIncome     decimal.Decimal `json:"pre_tax_income"`
	IncomeTax        decimal.Decimal `json:"income_tax"`
	NetIncome        decimal.Decimal `json:"net_income"`
	NetMargin        decimal.Decimal `json:"net_margin"`
}

// BalanceSheetLine is the position at the end of one harvest. Equity is the
// difference between assets and liabilities, not a retained-earnings ledger.
type BalanceSheetLine struct {
	HarvestID        uuid.UUID                        `json:"harvest_id"`
	HarvestName      string                           `json:"harvest_name"`
	Cash             decimal.Decimal                  `json:"cash"`
	Inventories      decimal.Decimal                  `json:"inventories"`
	Receivables      decimal.Decimal                  `json:"receivables"`
	CurrentAssets    decimal.Decimal                  `json:"current_assets"`
	PropertyValue    decimal.Decimal                  `json:"property_value"`
	ImprovementValue decimal.Decimal                  `json:"improvement_value"`
	NonCurrentAssets decimal.Decimal                  `json:"non_current_assets"`
	TotalAssets      decimal.Decimal                  `json:"total_assets"`
	Liabilities      decimal.Decimal                  `json:"liabilities"`
	LiabilitiesBy    map[DebtCategory]decimal.Decimal `json:"liabilities_by_category"`
	Equity           decimal.Decimal                  `json:"equity"`
}

// Statements is the joined per-harvest output of a StatementDeriver.
type Statements struct {
	IncomeStatement []IncomeStatementLine `json:"income_statement"`
	BalanceSheet    []BalanceSheetLine    `json:"balance_sheet"`
	Indicators      []DebtIndicators      `json:"indicators"`
}

// StatementDeriver reclassifies cash-flow and debt results into statements.
//
// Mapping from cash flow to the income statement:
//   - operating inflow: revenue
//   - outflow "sales_tax": sales taxes, deducted to reach net revenue
//   - outflow in the cost-of-goods set (agricultural, livestock, seeds,
//     fertilizers, chemicals, harvesting, freight): cost of goods
//   - outflow "income_tax": income tax, below pre-tax income
//   - any other outflow: operating expense
//   - financing flow: financial result
//
// Investment flow stays out of the income statement.
type StatementDeriver struct {
	normalizer *CurrencyNormalizer
}

// NewStatementDeriver creates a deriver. The normalizer is used for the
// dollar-denominated debt indicators.
func NewStatementDeriver(normalizer *CurrencyNormalizer) *StatementDeriver {
	return &StatementDeriver{normalizer: normalizer}
}

// DeriveIncomeStatement maps one cash-flow snapshot.
func (d *StatementDeriver) DeriveIncomeStatement(s CashFlowSnapshot) IncomeStatementLine {
	line := IncomeStatementLine{
		HarvestID:       s.HarvestID,
		HarvestName:     s.HarvestName,
		Revenue:         s.OperatingInflow,
		FinancialResult: s.FinancingFlow,
	}
	for subcategory, v := range s.Outflows {
		switch {
		case subcategory == SubcategorySalesTax:
			line.SalesTaxes = line.SalesTaxes.Add(v)
		case subcategory == SubcategoryIncomeTax:
			line.IncomeTax = line.IncomeTax.Add(v)
		case IsCostOfGoods(subcategory):
			line.CostOfGoods = line.CostOfGoods.Add(v)
		default:
			line.OperatingExpense = line.OperatingExpense.Add(v)
		}
	}

	line.NetRevenue = line.Revenue.Sub(line.SalesTaxes)
	line.GrossProfit = line.NetRevenue.Sub(line.CostOfGoods)
	line.EBITDA = line.GrossProfit.Sub(line.OperatingExpense)
	line.PreTaxIncome = line.EBITDA.Add(line.FinancialResult)
	line.NetIncome = line.PreTaxIncome.Sub(line.IncomeTax)
	line.EBITDAMargin = percentOf(line.EBITDA, line.NetRevenue)
	line.NetMargin = percentOf(line.NetIncome, line.NetRevenue)
	return line
}

// DeriveBalanceSheet builds the balance sheet of one harvest.
func (d *StatementDeriver) DeriveBalanceSheet(debt HarvestDebt, s CashFlowSnapshot, assets AssetValues) BalanceSheetLine {
	line := BalanceSheetLine{
		HarvestID:        s.HarvestID,
		HarvestName:      s.HarvestName,
		Cash:             s.CumulativeBalance,
		Inventories:      assets.Inventories,
		Receivables:      assets.Receivables,
		PropertyValue:    assets.PropertyValue,
		ImprovementValue: assets.ImprovementValue,
		Liabilities:      debt.Total,
		LiabilitiesBy:    make(map[DebtCategory]decimal.Decimal, len(debt.ByCategory)),
	}
	for c, v := range debt.ByCategory {
		line.LiabilitiesBy[c] = v
	}
	line.CurrentAssets = line.Cash.Add(line.Inventories).Add(line.Receivables)
	line.NonCurrentAssets = line.PropertyValue.Add(line.ImprovementValue)
	line.TotalAssets = line.CurrentAssets.Add(line.NonCurrentAssets)
	line.Equity = line.TotalAssets.Sub(line.Liabilities)
	return line
}

// Derive joins the debt position and the cash flow on the harvest axis and
// derives every statement. Both inputs must cover exactly the axis harvests.
func (d *StatementDeriver) Derive(
	axis *HarvestAxis,
	debt *ConsolidatedDebtPosition,
	cashFlow []CashFlowSnapshot,
	assets map[uuid.UUID]AssetValues,
) (*Statements, error) {
	if len(cashFlow) != axis.Len() || len(debt.PerHarvest) != axis.Len() {
		return nil, fmt.Errorf("statement join: axis has %d harvests, cash flow %d, debt %d",
			axis.Len(), len(cashFlow), len(debt.PerHarvest))
	}

	out := &Statements{
		IncomeStatement: make([]IncomeStatementLine, 0, axis.Len()),
		BalanceSheet:    make([]BalanceSheetLine, 0, axis.Len()),
		Indicators:      make([]DebtIndicators, 0, axis.Len()),
	}
	var previous *DebtIndicators
	for i, p := range axis.Periods() {
		snapshot := cashFlow[i]
		harvestDebt := debt.PerHarvest[i]
		if snapshot.HarvestID != p.ID || harvestDebt.HarvestID != p.ID {
			return nil, fmt.Errorf("statement join: harvest %s out of order at position %d", p.ID, i)
		}

		income := d.DeriveIncomeStatement(snapshot)
		balance := d.DeriveBalanceSheet(harvestDebt, snapshot, assets[p.ID])
		indicators := d.DeriveDebtIndicators(harvestDebt, income, balance, previous)

		out.IncomeStatement = append(out.IncomeStatement, income)
		out.BalanceSheet = append(out.BalanceSheet, balance)
		out.Indicators = append(out.Indicators, indicators)
		previous = &out.Indicators[len(out.Indicators)-1]
	}
	return out, nil
}

// safeDiv returns a/b, or zero when b is zero.
func safeDiv(a, b decimal.Decimal) decimal.Decimal {
	if b.IsZero() {
		return decimal.Zero
	}
	return a.Div(b)
}

func percentOf(a, b decimal.Decimal) decimal.Decimal {
	return safeDiv(a, b).Mul(decimal.NewFromInt(100))
}
