// Package seed generates realistic projection inputs for demos, load tests
// and local development.
package seed

import (
	"context"
	"fmt"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/agrodash/backend/internal/domain/projection"
	"github.com/agrodash/backend/internal/infrastructure/persistence/models"
)

// Options sizes a generated organization. Zero fields take the defaults of
// DefaultOptions.
type Options struct {
	Seed        uint64
	FirstYear   int
	Harvests    int
	Creditors   int
	Instruments int
	LineItems   int
	Scenarios   int
	// ForeignShare is the probability that an instrument or line item is in USD
	ForeignShare float64
}

// DefaultOptions returns a mid-sized farm with five harvests
func DefaultOptions() Options {
	return Options{
		FirstYear:    time.Now().Year() - 1,
		Harvests:     5,
		Creditors:    12,
		Instruments:  25,
		LineItems:    30,
		Scenarios:    2,
		ForeignShare: 0.3,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.FirstYear == 0 {
		o.FirstYear = d.FirstYear
	}
	if o.Harvests <= 0 {
		o.Harvests = d.Harvests
	}
	if o.Creditors <= 0 {
		o.Creditors = d.Creditors
	}
	if o.Instruments <= 0 {
		o.Instruments = d.Instruments
	}
	if o.LineItems <= 0 {
		o.LineItems = d.LineItems
	}
	if o.Scenarios < 0 {
		o.Scenarios = 0
	}
	if o.ForeignShare < 0 || o.ForeignShare > 1 {
		o.ForeignShare = d.ForeignShare
	}
	return o
}

// Dataset is one organization's generated inputs
type Dataset struct {
	OrganizationID uuid.UUID
	Harvests       []models.HarvestPeriodModel
	Instruments    []models.DebtInstrumentModel
	LineItems      []models.CashFlowItemModel
	Scenarios      []models.ScenarioModel
	Assets         []models.AssetValueModel
}

var subcategories = map[projection.FlowCategory][]string{
	projection.CategoryOperatingIn:  {"soy", "corn", "cotton", "cattle", "other_revenue"},
	projection.CategoryOperatingOut: {"seeds", "fertilizers", "chemicals", "harvesting", "freight", "lease", "payroll", "sales_tax", "income_tax"},
	projection.CategoryInvestment:   {"land", "machinery", "improvements"},
	projection.CategoryFinancing:    {"new_credit", "amortization"},
}

// Generate builds a dataset. The same seed and options always produce the same
// amounts, names and harvests; ids are random.
func Generate(organizationID uuid.UUID, opts Options) *Dataset {
	opts = opts.withDefaults()
	f := gofakeit.New(opts.Seed)

	d := &Dataset{OrganizationID: organizationID}
	for i := range opts.Harvests {
		year := opts.FirstYear + i
		h := models.HarvestPeriodModel{
			OrganizationID: organizationID,
			Name:           fmt.Sprintf("%d/%02d", year, (year+1)%100),
			StartYear:      year,
			EndYear:        year + 1,
		}
		h.ID = uuid.New()
		d.Harvests = append(d.Harvests, h)
	}

	creditors := make([]string, opts.Creditors)
	for i := range creditors {
		creditors[i] = f.Company()
	}
	for range opts.Instruments {
		d.Instruments = append(d.Instruments, d.instrument(f, opts, creditors))
	}

	categories := []projection.FlowCategory{
		projection.CategoryOperatingIn, projection.CategoryOperatingOut,
		projection.CategoryInvestment, projection.CategoryFinancing,
	}
	for i := range opts.LineItems {
		d.LineItems = append(d.LineItems, d.lineItem(f, opts, categories[i%len(categories)]))
	}

	for i := range opts.Scenarios {
		d.Scenarios = append(d.Scenarios, d.scenario(f, i))
	}

	property := amount(f, 2_000_000, 40_000_000)
	for _, h := range d.Harvests {
		d.Assets = append(d.Assets, models.AssetValueModel{
			OrganizationID:   organizationID,
			HarvestID:        h.ID,
			Inventories:      amount(f, 50_000, 2_000_000),
			Receivables:      amount(f, 0, 1_500_000),
			PropertyValue:    property,
			ImprovementValue: amount(f, 100_000, 3_000_000),
		})
		// land appreciates between harvests
		property = property.Mul(decimal.NewFromFloat(f.Float64Range(1.0, 1.08))).Round(2)
	}
	return d
}

func (d *Dataset) instrument(f *gofakeit.Faker, opts Options, creditors []string) models.DebtInstrumentModel {
	category := projection.DebtCategories[f.IntRange(0, len(projection.DebtCategories)-1)]
	currency := "BRL"
	if f.Float64() < opts.ForeignShare {
		currency = "USD"
	}

	m := models.DebtInstrumentModel{
		OrganizationID: d.OrganizationID,
		Category:       string(category),
		Creditor:       creditors[f.IntRange(0, len(creditors)-1)],
		Currency:       currency,
		InterestRate:   decimal.NewFromFloat(f.Float64Range(0.04, 0.18)).Round(4),
	}
	m.ID = uuid.New()

	// an instrument runs from a random harvest to the end of the horizon
	start := f.IntRange(0, len(d.Harvests)-1)
	for _, h := range d.Harvests[start:] {
		p := models.DebtPaymentModel{InstrumentID: m.ID, Amount: amount(f, 20_000, 900_000)}
		p.HarvestID = h.ID
		m.Payments = append(m.Payments, p)
		m.Principal = m.Principal.Add(p.Amount)
	}
	return m
}

func (d *Dataset) lineItem(f *gofakeit.Faker, opts Options, category projection.FlowCategory) models.CashFlowItemModel {
	names := subcategories[category]
	subcategory := names[f.IntRange(0, len(names)-1)]
	currency := "BRL"
	if category == projection.CategoryOperatingIn && f.Float64() < opts.ForeignShare {
		currency = "USD"
	}

	m := models.CashFlowItemModel{
		OrganizationID: d.OrganizationID,
		Category:       string(category),
		Subcategory:    subcategory,
		Currency:       currency,
		Description:    f.ProductName(),
	}
	if currency == "USD" {
		m.Driver = string(projection.KindCurrencyRevenue)
	}
	m.ID = uuid.New()

	for _, h := range d.Harvests {
		v := amount(f, 10_000, 3_000_000)
		switch {
		case category == projection.CategoryInvestment,
			category == projection.CategoryFinancing && subcategory == "amortization":
			v = v.Neg()
		}
		p := models.CashFlowValueModel{ItemID: m.ID, Amount: v}
		p.HarvestID = h.ID
		m.Values = append(m.Values, p)
	}
	return m
}

func (d *Dataset) scenario(f *gofakeit.Faker, n int) models.ScenarioModel {
	m := models.ScenarioModel{
		OrganizationID: d.OrganizationID,
		Name:           fmt.Sprintf("%s %d", f.RandomString([]string{"Drought", "Price rally", "Devaluation", "Expansion"}), n+1),
		Description:    f.Sentence(8),
	}
	m.ID = uuid.New()
	for _, h := range d.Harvests {
		a := models.ScenarioAdjustmentModel{
			ScenarioID:             m.ID,
			AreaMultiplier:         multiplier(f, 0.9, 1.2),
			ProductivityMultiplier: multiplier(f, 0.6, 1.15),
			CostMultiplier:         multiplier(f, 0.95, 1.3),
			ExchangeRate:           decimal.NewFromFloat(f.Float64Range(4.8, 7.5)).Round(4),
		}
		a.HarvestID = h.ID
		m.Adjustments = append(m.Adjustments, a)
	}
	return m
}

// Insert writes the dataset in one transaction. Associations are created
// with their parents.
func (d *Dataset) Insert(ctx context.Context, db *gorm.DB) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		batches := []struct {
			name  string
			value any
			empty bool
		}{
			{"harvest periods", &d.Harvests, len(d.Harvests) == 0},
			{"debt instruments", &d.Instruments, len(d.Instruments) == 0},
			{"cash flow items", &d.LineItems, len(d.LineItems) == 0},
			{"scenarios", &d.Scenarios, len(d.Scenarios) == 0},
			{"asset values", &d.Assets, len(d.Assets) == 0},
		}
		for _, b := range batches {
			if b.empty {
				continue
			}
			if err := tx.CreateInBatches(b.value, 100).Error; err != nil {
				return fmt.Errorf("insert %s: %w", b.name, err)
			}
		}
		return nil
	})
}

func amount(f *gofakeit.Faker, lo, hi float64) decimal.Decimal {
	return decimal.NewFromFloat(f.Float64Range(lo, hi)).Round(2)
}

func multiplier(f *gofakeit.Faker, lo, hi float64) decimal.Decimal {
	return decimal.NewFromFloat(f.Float64Range(lo, hi)).Round(4)
}
