package projection

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"

	"github.com/agrodash/backend/internal/domain/shared/valueobject"
)

// DebtCategory classifies a debt instrument.
type DebtCategory string

const (
	DebtBank     DebtCategory = "BANK"
	DebtLand     DebtCategory = "LAND"
	DebtSupplier DebtCategory = "SUPPLIER"
)

// DebtCategories lists the categories in reporting order.
var DebtCategories = []DebtCategory{DebtBank, DebtLand, DebtSupplier}

// ParseDebtCategory parses a category code.
func ParseDebtCategory(s string) (DebtCategory, error) {
	c := DebtCategory(strings.ToUpper(strings.TrimSpace(s)))
	switch c {
	case DebtBank, DebtLand, DebtSupplier:
		return c, nil
	}
	return "", fmt.Errorf("unknown debt category %q", s)
}

// DefaultTopCreditors is the number of creditors ranked individually.
const DefaultTopCreditors = 8

// OthersLabel names the bucket holding the creditors beyond the top N.
func OthersLabel(k int) string {
	return fmt.Sprintf("OTHERS (%d)", k)
}

// DebtInstrument is a debt as entered by the organization. Payments are in
// Currency and keyed by harvest id.
type DebtInstrument struct {
	ID             uuid.UUID                     `json:"id"`
	OrganizationID uuid.UUID                     `json:"organization_id"`
	Category       DebtCategory                  `json:"category"`
	Creditor       string                        `json:"creditor"`
	Currency       string                        `json:"currency"`
	Principal      decimal.Decimal               `json:"principal"`
	InterestRate   decimal.Decimal               `json:"interest_rate"`
	Payments       map[uuid.UUID]decimal.Decimal `json:"payments"`
	CreatedAt      time.Time                     `json:"created_at"`
}

// CreditorShare is one line of a creditor ranking.
type CreditorShare struct {
	Creditor        string          `json:"creditor"`
	Value           decimal.Decimal `json:"value"`
	Percentage      decimal.Decimal `json:"percentage"`
	InstrumentCount int             `json:"instrument_count"`
	IsOthers        bool            `json:"is_others"`
	BucketedCount   int             `json:"bucketed_count,omitempty"`
}

// HarvestDebt is the consolidated debt scheduled in one harvest.
type HarvestDebt struct {
	HarvestID         uuid.UUID                        `json:"harvest_id"`
	HarvestName       string                           `json:"harvest_name"`
	ByCategory        map[DebtCategory]decimal.Decimal `json:"by_category"`
	Total             decimal.Decimal                  `json:"total"`
	EstimatedInterest decimal.Decimal                  `json:"estimated_interest"`
	CreditorRanking   []CreditorShare                  `json:"creditor_ranking"`
}

// ConsolidatedDebtPosition aggregates every instrument over the harvest axis,
// in the normalization currency.
type ConsolidatedDebtPosition struct {
	Currency             valueobject.Currency             `json:"currency"`
	PerHarvest           []HarvestDebt                    `json:"per_harvest"`
	CategoryTotals       map[DebtCategory]decimal.Decimal `json:"category_totals"`
	GrandTotal           decimal.Decimal                  `json:"grand_total"`
	CreditorRanking      []CreditorShare                  `json:"creditor_ranking"`
	WeightedInterestRate decimal.Decimal                  `json:"weighted_interest_rate"`
	Excluded             []Exclusion                      `json:"excluded"`
}

// Harvest returns the entry for a harvest id.
func (p *ConsolidatedDebtPosition) Harvest(id uuid.UUID) (HarvestDebt, bool) {
	for _, h := range p.PerHarvest {
		if h.HarvestID == id {
			return h, true
		}
	}
	return HarvestDebt{}, false
}

// DebtConsolidator aggregates debt instruments and ranks creditors.
type DebtConsolidator struct {
	normalizer   *CurrencyNormalizer
	topCreditors int
}

// NewDebtConsolidator creates a consolidator. topCreditors <= 0 means DefaultTopCreditors.
func NewDebtConsolidator(normalizer *CurrencyNormalizer, topCreditors int) *DebtConsolidator {
	if topCreditors <= 0 {
		topCreditors = DefaultTopCreditors
	}
	return &DebtConsolidator{normalizer: normalizer, topCreditors: topCreditors}
}

// normalizedInstrument is an instrument whose whole schedule converted cleanly.
type normalizedInstrument struct {
	source    DebtInstrument
	payments  map[uuid.UUID]decimal.Decimal
	principal decimal.Decimal
}

// Consolidate builds the debt position. An instrument with an unsupported
// currency, a missing rate or an unknown harvest is excluded as a whole and
// reported in Excluded; the rest are consolidated.
//
// Creditor exposure is each creditor's share of total normalized principal
// applied to the grand total, so the ranking reflects the full schedule even
// for harvests where a creditor has no payment.
func (c *DebtConsolidator) Consolidate(instruments []DebtInstrument, axis *HarvestAxis) *ConsolidatedDebtPosition {
	pos := &ConsolidatedDebtPosition{
		Currency:        c.normalizer.Target(),
		PerHarvest:      make([]HarvestDebt, axis.Len()),
		CategoryTotals:  zeroCategories(),
		CreditorRanking: []CreditorShare{},
		Excluded:        []Exclusion{},
	}
	for i := range pos.PerHarvest {
		p := axis.At(i)
		pos.PerHarvest[i] = HarvestDebt{
			HarvestID:       p.ID,
			HarvestName:     p.Name,
			ByCategory:      zeroCategories(),
			CreditorRanking: []CreditorShare{},
		}
	}

	var accepted []normalizedInstrument
	for _, inst := range instruments {
		n, excl := c.normalize(inst, axis)
		if excl != nil {
			pos.Excluded = append(pos.Excluded, *excl)
			continue
		}
		accepted = append(accepted, n)
	}

	for _, n := range accepted {
		for i := range pos.PerHarvest {
			h := &pos.PerHarvest[i]
			v, ok := n.payments[h.HarvestID]
			if !ok {
				continue
			}
			h.ByCategory[n.source.Category] = h.ByCategory[n.source.Category].Add(v)
			h.Total = h.Total.Add(v)
			pos.CategoryTotals[n.source.Category] = pos.CategoryTotals[n.source.Category].Add(v)
			pos.GrandTotal = pos.GrandTotal.Add(v)
		}
	}

	exposures := creditorExposures(accepted)
	pos.CreditorRanking = rankCreditors(exposures, pos.GrandTotal, c.topCreditors)
	for i := range pos.PerHarvest {
		pos.PerHarvest[i].CreditorRanking = rankCreditors(exposures, pos.PerHarvest[i].Total, c.topCreditors)
	}

	pos.WeightedInterestRate = WeightedInterestRate(accepted)
	EstimateDebtService(pos)
	return pos
}

func (c *DebtConsolidator) normalize(inst DebtInstrument, axis *HarvestAxis) (normalizedInstrument, *Exclusion) {
	exclude := func(harvestID uuid.UUID, reason string) *Exclusion {
		return &Exclusion{RecordID: inst.ID, Kind: ExclusionDebtInstrument, HarvestID: harvestID, Reason: reason}
	}

	category, err := ParseDebtCategory(string(inst.Category))
	if err != nil {
		return normalizedInstrument{}, exclude(uuid.Nil, err.Error())
	}
	schedule, err := BindPerHarvest(axis, inst.Payments)
	if err != nil {
		return normalizedInstrument{}, exclude(uuid.Nil, err.Error())
	}
	currency, err := c.normalizer.ResolveCurrency(inst.Currency)
	if err != nil {
		cerr := &CurrencyError{RecordID: inst.ID, Code: inst.Currency, Err: err}
		return normalizedInstrument{}, exclude(uuid.Nil, cerr.Error())
	}

	n := normalizedInstrument{source: inst, payments: make(map[uuid.UUID]decimal.Decimal, schedule.Len())}
	n.source.Category = category
	n.source.Creditor = creditorName(inst.Creditor)
	scheduled := decimal.Zero
	for _, harvestID := range axis.IDs() {
		raw, ok := schedule.Get(harvestID)
		if !ok || raw.IsZero() {
			continue
		}
		m, err := c.normalizer.Normalize(valueobject.MustNewMoney(raw, currency), harvestID)
		if err != nil {
			cerr := &CurrencyError{RecordID: inst.ID, Code: string(currency), Err: err}
			return normalizedInstrument{}, exclude(harvestID, cerr.Error())
		}
		n.payments[harvestID] = m.Amount()
		scheduled = scheduled.Add(m.Amount())
	}

	if inst.Principal.IsZero() {
		n.principal = scheduled
		return n, nil
	}
	principal, err := c.normalizer.NormalizeAtReference(valueobject.MustNewMoney(inst.Principal, currency))
	if err != nil {
		cerr := &CurrencyError{RecordID: inst.ID, Code: string(currency), Err: err}
		return normalizedInstrument{}, exclude(uuid.Nil, cerr.Error())
	}
	n.principal = principal.Amount()
	return n, nil
}

// creditorExposure is a creditor's normalized principal, the principal of all
// creditors (pool) and the tie-break keys of its earliest instrument. The
// creditor is labelled with the spelling of that instrument.
type creditorExposure struct {
	name            string
	principal       decimal.Decimal
	pool            decimal.Decimal
	instrumentCount int
	firstCreatedAt  time.Time
	firstID         uuid.UUID
}

func creditorExposures(instruments []normalizedInstrument) []creditorExposure {
	fold := cases.Fold()
	byKey := map[string]*creditorExposure{}
	var order []string
	total := decimal.Zero
	for _, n := range instruments {
		key := creditorKey(fold, n.source.Creditor)
		e, ok := byKey[key]
		if !ok {
			e = &creditorExposure{name: n.source.Creditor, firstCreatedAt: n.source.CreatedAt, firstID: n.source.ID}
			byKey[key] = e
			order = append(order, key)
		}
		e.principal = e.principal.Add(n.principal)
		e.instrumentCount++
		if earlier(n.source.CreatedAt, n.source.ID, e.firstCreatedAt, e.firstID) {
			e.name = n.source.Creditor
			e.firstCreatedAt = n.source.CreatedAt
			e.firstID = n.source.ID
		}
		total = total.Add(n.principal)
	}

	out := make([]creditorExposure, 0, len(order))
	for _, key := range order {
		e := *byKey[key]
		e.pool = total
		out = append(out, e)
	}
	return out
}

// rankCreditors applies each creditor's principal share to total, sorts the
// result and buckets everything past topN. A zero total yields an empty list.
func rankCreditors(exposures []creditorExposure, total decimal.Decimal, topN int) []CreditorShare {
	if total.IsZero() || len(exposures) == 0 {
		return []CreditorShare{}
	}

	type ranked struct {
		exposure creditorExposure
		value    decimal.Decimal
	}
	rows := make([]ranked, 0, len(exposures))
	for _, e := range exposures {
		if e.pool.IsZero() || e.principal.IsZero() {
			continue
		}
		rows = append(rows, ranked{exposure: e, value: e.principal.Mul(total).Div(e.pool)})
	}
	if len(rows) == 0 {
		return []CreditorShare{}
	}

	sort.SliceStable(rows, func(i, j int) bool {
		if !rows[i].value.Equal(rows[j].value) {
			return rows[i].value.GreaterThan(rows[j].value)
		}
		a, b := rows[i].exposure, rows[j].exposure
		if !a.firstCreatedAt.Equal(b.firstCreatedAt) || a.firstID != b.firstID {
			return earlier(a.firstCreatedAt, a.firstID, b.firstCreatedAt, b.firstID)
		}
		return a.name < b.name
	})

	hundred := decimal.NewFromInt(100)
	out := make([]CreditorShare, 0, topN+1)
	for i := 0; i < len(rows) && i < topN; i++ {
		out = append(out, CreditorShare{
			Creditor:        rows[i].exposure.name,
			Value:           rows[i].value,
			Percentage:      rows[i].value.Mul(hundred).Div(total),
			InstrumentCount: rows[i].exposure.instrumentCount,
		})
	}

	if len(rows) > topN {
		rest := rows[topN:]
		others := CreditorShare{Creditor: OthersLabel(len(rest)), IsOthers: true, BucketedCount: len(rest)}
		for _, r := range rest {
			others.Value = others.Value.Add(r.value)
			others.InstrumentCount += r.exposure.instrumentCount
		}
		others.Percentage = others.Value.Mul(hundred).Div(total)
		out = append(out, others)
	}
	return out
}

// earlier orders by creation time, then id.
func earlier(at time.Time, id uuid.UUID, otherAt time.Time, otherID uuid.UUID) bool {
	if !at.Equal(otherAt) {
		return at.Before(otherAt)
	}
	return id.String() < otherID.String()
}

func creditorName(s string) string {
	name := strings.TrimSpace(s)
	if name == "" {
		return "UNSPECIFIED"
	}
	return name
}

// creditorKey identifies a creditor regardless of case and inner spacing,
// so "Banco do Brasil" and "BANCO  DO BRASIL" rank as one.
func creditorKey(fold cases.Caser, name string) string {
	return fold.String(strings.Join(strings.Fields(name), " "))
}

func zeroCategories() map[DebtCategory]decimal.Decimal {
	m := make(map[DebtCategory]decimal.Decimal, len(DebtCategories))
	for _, c := range DebtCategories {
		m[c] = decimal.Zero
	}
	return m
}
