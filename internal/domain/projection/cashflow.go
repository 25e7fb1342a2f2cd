package projection

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/agrodash/backend/internal/domain/shared/valueobject"
)

// FlowCategory groups cash-flow line items.
type FlowCategory string

const (
	CategoryOperatingIn  FlowCategory = "operating_in"
	CategoryOperatingOut FlowCategory = "operating_out"
	CategoryInvestment   FlowCategory = "investment"
	CategoryFinancing    FlowCategory = "financing"
)

// IsValid reports whether c is a known category.
func (c FlowCategory) IsValid() bool {
	switch c {
	case CategoryOperatingIn, CategoryOperatingOut, CategoryInvestment, CategoryFinancing:
		return true
	}
	return false
}

// DefaultSubcategory is used for line items without a subcategory.
const DefaultSubcategory = "other"

// CashFlowLineItem is one revenue, expense, investment or financing line.
// Operating amounts are magnitudes; investment and financing amounts are signed
// (outflows negative). Amounts are in Currency.
type CashFlowLineItem struct {
	ID          uuid.UUID                     `json:"id"`
	Category    FlowCategory                  `json:"category"`
	Subcategory string                        `json:"subcategory"`
	Driver      ValueKind                     `json:"driver,omitempty"`
	Currency    string                        `json:"currency"`
	Amounts     map[uuid.UUID]decimal.Decimal `json:"amounts"`
}

// Kind returns how scenarios scale the item. Revenue follows productivity and
// operating expense follows cost unless the item declares its own driver.
func (li CashFlowLineItem) Kind() ValueKind {
	if li.Driver.IsValid() {
		return li.Driver
	}
	switch li.Category {
	case CategoryOperatingIn:
		return KindProductivity
	case CategoryOperatingOut:
		return KindCost
	default:
		return KindFixed
	}
}

// SubcategoryKey returns the canonical subcategory used in breakdowns.
func (li CashFlowLineItem) SubcategoryKey() string {
	s := strings.ToLower(strings.TrimSpace(li.Subcategory))
	if s == "" {
		return DefaultSubcategory
	}
	return s
}

// CashFlowSnapshot is the cash-flow result for one harvest, in the
// normalization currency.
type CashFlowSnapshot struct {
	HarvestID         uuid.UUID                  `json:"harvest_id"`
	HarvestName       string                     `json:"harvest_name"`
	OperatingInflow   decimal.Decimal            `json:"operating_inflow"`
	OperatingOutflow  decimal.Decimal            `json:"operating_outflow"`
	OperatingFlow     decimal.Decimal            `json:"operating_flow"`
	InvestmentFlow    decimal.Decimal            `json:"investment_flow"`
	FinancingFlow     decimal.Decimal            `json:"financing_flow"`
	NetFlow           decimal.Decimal            `json:"net_flow"`
	OpeningBalance    decimal.Decimal            `json:"opening_balance"`
	CumulativeBalance decimal.Decimal            `json:"cumulative_balance"`
	FundingGap        bool                       `json:"funding_gap"`
	BelowMinimumCash  bool                       `json:"below_minimum_cash"`
	Inflows           map[string]decimal.Decimal `json:"inflows"`
	Outflows          map[string]decimal.Decimal `json:"outflows"`
	Investments       map[string]decimal.Decimal `json:"investments"`
	Financing         map[string]decimal.Decimal `json:"financing"`
}

func newCashFlowSnapshot(p HarvestPeriod) CashFlowSnapshot {
	return CashFlowSnapshot{
		HarvestID:   p.ID,
		HarvestName: p.Name,
		Inflows:     map[string]decimal.Decimal{},
		Outflows:    map[string]decimal.Decimal{},
		Investments: map[string]decimal.Decimal{},
		Financing:   map[string]decimal.Decimal{},
	}
}

func (s *CashFlowSnapshot) add(category FlowCategory, subcategory string, v decimal.Decimal) {
	var bucket map[string]decimal.Decimal
	switch category {
	case CategoryOperatingIn:
		s.OperatingInflow = s.OperatingInflow.Add(v)
		bucket = s.Inflows
	case CategoryOperatingOut:
		s.OperatingOutflow = s.OperatingOutflow.Add(v)
		bucket = s.Outflows
	case CategoryInvestment:
		s.InvestmentFlow = s.InvestmentFlow.Add(v)
		bucket = s.Investments
	case CategoryFinancing:
		s.FinancingFlow = s.FinancingFlow.Add(v)
		bucket = s.Financing
	default:
		return
	}
	bucket[subcategory] = bucket[subcategory].Add(v)
}

// CashFlowProjector builds the per-harvest cash-flow schedule.
type CashFlowProjector struct {
	normalizer     *CurrencyNormalizer
	openingBalance decimal.Decimal
	minimumCash    decimal.Decimal
}

// ProjectorOption configures a CashFlowProjector.
type ProjectorOption func(*CashFlowProjector)

// WithOpeningBalance sets the balance carried into the first harvest.
func WithOpeningBalance(v decimal.Decimal) ProjectorOption {
	return func(p *CashFlowProjector) {
		p.openingBalance = v
	}
}

// WithMinimumCash sets the balance below which a harvest is flagged.
func WithMinimumCash(v decimal.Decimal) ProjectorOption {
	return func(p *CashFlowProjector) {
		p.minimumCash = v
	}
}

// NewCashFlowProjector creates a projector. The opening balance defaults to zero.
func NewCashFlowProjector(normalizer *CurrencyNormalizer, opts ...ProjectorOption) *CashFlowProjector {
	p := &CashFlowProjector{normalizer: normalizer}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Project returns one snapshot per harvest in axis order, together with the
// line items or amounts that had to be left out.
//
// Harvests are walked strictly in chronological order: each cumulative balance
// is the previous one plus the harvest's net flow. Negative balances are kept
// and flagged as funding gaps.
func (p *CashFlowProjector) Project(items []CashFlowLineItem, axis *HarvestAxis) ([]CashFlowSnapshot, []Exclusion) {
	snapshots := make([]CashFlowSnapshot, axis.Len())
	for i := range snapshots {
		snapshots[i] = newCashFlowSnapshot(axis.At(i))
	}

	var excluded []Exclusion
	for _, item := range items {
		excluded = append(excluded, p.accumulate(item, axis, snapshots)...)
	}

	balance := p.openingBalance
	for i := range snapshots {
		s := &snapshots[i]
		s.OperatingFlow = s.OperatingInflow.Sub(s.OperatingOutflow)
		s.NetFlow = s.OperatingFlow.Add(s.InvestmentFlow).Add(s.FinancingFlow)
		s.OpeningBalance = balance
		balance = balance.Add(s.NetFlow)
		s.CumulativeBalance = balance
		s.FundingGap = balance.IsNegative()
		s.BelowMinimumCash = balance.LessThan(p.minimumCash)
	}

	return snapshots, excluded
}

func (p *CashFlowProjector) accumulate(item CashFlowLineItem, axis *HarvestAxis, snapshots []CashFlowSnapshot) []Exclusion {
	if !item.Category.IsValid() {
		return []Exclusion{{RecordID: item.ID, Kind: ExclusionLineItem,
			Reason: fmt.Sprintf("unknown category %q", item.Category)}}
	}

	amounts, err := BindPerHarvest(axis, item.Amounts)
	if err != nil {
		return []Exclusion{{RecordID: item.ID, Kind: ExclusionLineItem, Reason: err.Error()}}
	}

	currency, err := p.normalizer.ResolveCurrency(item.Currency)
	if err != nil {
		cerr := &CurrencyError{RecordID: item.ID, Code: item.Currency, Err: err}
		return []Exclusion{{RecordID: item.ID, Kind: ExclusionLineItem, Reason: cerr.Error()}}
	}

	var excluded []Exclusion
	subcategory := item.SubcategoryKey()
	for i := range snapshots {
		harvestID := snapshots[i].HarvestID
		raw, ok := amounts.Get(harvestID)
		if !ok || raw.IsZero() {
			continue
		}
		normalized, err := p.normalizer.Normalize(valueobject.MustNewMoney(raw, currency), harvestID)
		if err != nil {
			cerr := &CurrencyError{RecordID: item.ID, Code: string(currency), Err: err}
			excluded = append(excluded, Exclusion{RecordID: item.ID, Kind: ExclusionLineItem,
				HarvestID: harvestID, Reason: cerr.Error()})
			continue
		}
		snapshots[i].add(item.Category, subcategory, normalized.Amount())
	}
	return excluded
}
