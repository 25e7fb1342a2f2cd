package dto

import (
	"fmt"

	"github.com/gocarina/gocsv"

	"github.com/agrodash/backend/internal/domain/report"
)

// CashFlowCSVRow is one harvest line of the cash-flow export. Amounts are
// fixed to two decimals in the report currency.
type CashFlowCSVRow struct {
	Harvest           string `csv:"harvest"`
	Currency          string `csv:"currency"`
	OperatingInflow   string `csv:"operating_inflow"`
	OperatingOutflow  string `csv:"operating_outflow"`
	OperatingFlow     string `csv:"operating_flow"`
	InvestmentFlow    string `csv:"investment_flow"`
	FinancingFlow     string `csv:"financing_flow"`
	NetFlow           string `csv:"net_flow"`
	OpeningBalance    string `csv:"opening_balance"`
	CumulativeBalance string `csv:"cumulative_balance"`
	FundingGap        bool   `csv:"funding_gap"`
	BelowMinimumCash  bool   `csv:"below_minimum_cash"`
}

// CashFlowCSV renders the per-harvest cash flow of r as CSV with a header row.
func CashFlowCSV(r *report.ConsolidatedReport) ([]byte, error) {
	rows := make([]*CashFlowCSVRow, 0, len(r.CashFlow.PerHarvest))
	for _, s := range r.CashFlow.PerHarvest {
		rows = append(rows, &CashFlowCSVRow{
			Harvest:           s.HarvestName,
			Currency:          string(r.Currency),
			OperatingInflow:   s.OperatingInflow.StringFixed(2),
			OperatingOutflow:  s.OperatingOutflow.StringFixed(2),
			OperatingFlow:     s.OperatingFlow.StringFixed(2),
			InvestmentFlow:    s.InvestmentFlow.StringFixed(2),
			FinancingFlow:     s.FinancingFlow.StringFixed(2),
			NetFlow:           s.NetFlow.StringFixed(2),
			OpeningBalance:    s.OpeningBalance.StringFixed(2),
			CumulativeBalance: s.CumulativeBalance.StringFixed(2),
			FundingGap:        s.FundingGap,
			BelowMinimumCash:  s.BelowMinimumCash,
		})
	}
	out, err := gocsv.MarshalBytes(&rows)
	if err != nil {
		return nil, fmt.Errorf("error writing cash flow CSV: %w", err)
	}
	return out, nil
}
