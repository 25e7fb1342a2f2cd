package projection

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/agrodash/backend/internal/domain/shared/valueobject"
)

// ErrNoRate is returned when no exchange rate is known for a currency pair.
var ErrNoRate = errors.New("no exchange rate for currency")

// ExchangeRate quotes one unit of Base in units of Quote.
type ExchangeRate struct {
	Base  valueobject.Currency `json:"base"`
	Quote valueobject.Currency `json:"quote"`
	Value decimal.Decimal      `json:"value"`
}

// NewExchangeRate builds a rate. Rates must be strictly positive.
func NewExchangeRate(base, quote valueobject.Currency, value decimal.Decimal) (ExchangeRate, error) {
	if !value.IsPositive() {
		return ExchangeRate{}, fmt.Errorf("exchange rate %s/%s must be positive, got %s", base, quote, value)
	}
	return ExchangeRate{Base: base, Quote: quote, Value: value}, nil
}

// Inverse returns the rate quoted the other way around.
func (r ExchangeRate) Inverse() ExchangeRate {
	return ExchangeRate{Base: r.Quote, Quote: r.Base, Value: decimal.NewFromInt(1).Div(r.Value)}
}

// Convert converts amount into the target currency. It multiplies by the rate
// when converting from the base currency and divides when converting from the
// quote currency. Sign and zero pass through unchanged.
func Convert(amount valueobject.Money, to valueobject.Currency, rate ExchangeRate) (valueobject.Money, error) {
	from := amount.Currency()
	if from == to {
		return amount, nil
	}
	if !rate.Value.IsPositive() {
		return valueobject.Money{}, fmt.Errorf("%w: %s/%s has non-positive value", ErrNoRate, rate.Base, rate.Quote)
	}

	switch {
	case from == rate.Base && to == rate.Quote:
		return valueobject.NewMoney(amount.Amount().Mul(rate.Value), to)
	case from == rate.Quote && to == rate.Base:
		return valueobject.NewMoney(amount.Amount().Div(rate.Value), to)
	default:
		return valueobject.Money{}, fmt.Errorf("%w: rate %s/%s cannot convert %s to %s",
			ErrNoRate, rate.Base, rate.Quote, from, to)
	}
}

// CurrencyNormalizer converts amounts into the normalization currency.
// Reference rates apply unless a scenario supplies a per-harvest rate.
type CurrencyNormalizer struct {
	target     valueobject.Currency
	reference  map[valueobject.Currency]decimal.Decimal
	aliases    map[string]valueobject.Currency
	perHarvest map[uuid.UUID]map[valueobject.Currency]decimal.Decimal
}

// NewCurrencyNormalizer creates a normalizer. reference holds the value of one
// unit of each foreign currency in the target currency. aliases maps raw codes
// (compared trimmed and upper-cased) to a supported currency; an alias for the
// empty code is how a missing currency gets a default.
func NewCurrencyNormalizer(
	target valueobject.Currency,
	reference map[valueobject.Currency]decimal.Decimal,
	aliases map[string]valueobject.Currency,
) (*CurrencyNormalizer, error) {
	if !target.IsValid() {
		return nil, fmt.Errorf("normalization currency %q: %w", target, valueobject.ErrUnknownCurrency)
	}

	n := &CurrencyNormalizer{
		target:     target,
		reference:  make(map[valueobject.Currency]decimal.Decimal, len(reference)),
		aliases:    make(map[string]valueobject.Currency, len(aliases)),
		perHarvest: map[uuid.UUID]map[valueobject.Currency]decimal.Decimal{},
	}
	for c, v := range reference {
		if !c.IsValid() {
			return nil, fmt.Errorf("reference rate for %q: %w", c, valueobject.ErrUnknownCurrency)
		}
		if !v.IsPositive() {
			return nil, fmt.Errorf("reference rate for %s must be positive, got %s", c, v)
		}
		n.reference[c] = v
	}
	for raw, c := range aliases {
		if !c.IsValid() {
			return nil, fmt.Errorf("alias %q points to %q: %w", raw, c, valueobject.ErrUnknownCurrency)
		}
		n.aliases[normalizeCode(raw)] = c
	}
	return n, nil
}

// Target returns the normalization currency.
func (n *CurrencyNormalizer) Target() valueobject.Currency {
	return n.target
}

// ResolveCurrency maps a raw currency code to a supported currency.
func (n *CurrencyNormalizer) ResolveCurrency(code string) (valueobject.Currency, error) {
	if c, ok := n.aliases[normalizeCode(code)]; ok {
		return c, nil
	}
	return valueobject.ParseCurrency(code)
}

// WithScenario returns a normalizer whose per-harvest US dollar rates come from
// the scenario's adjustments. The receiver is not modified.
func (n *CurrencyNormalizer) WithScenario(s *Scenario) *CurrencyNormalizer {
	cp := &CurrencyNormalizer{
		target:     n.target,
		reference:  n.reference,
		aliases:    n.aliases,
		perHarvest: make(map[uuid.UUID]map[valueobject.Currency]decimal.Decimal),
	}
	if s.IsIdentity() || n.target == valueobject.USD {
		return cp
	}
	overlay := NewScenarioOverlay(s)
	for harvestID := range s.Adjustments {
		if rate, ok := overlay.ExchangeRate(harvestID); ok {
			cp.perHarvest[harvestID] = map[valueobject.Currency]decimal.Decimal{valueobject.USD: rate}
		}
	}
	return cp
}

// ReferenceRate returns the configured rate of c into the target currency.
func (n *CurrencyNormalizer) ReferenceRate(c valueobject.Currency) (ExchangeRate, error) {
	if c == n.target {
		return ExchangeRate{Base: c, Quote: c, Value: decimal.NewFromInt(1)}, nil
	}
	v, ok := n.reference[c]
	if !ok {
		return ExchangeRate{}, fmt.Errorf("%w %s", ErrNoRate, c)
	}
	return ExchangeRate{Base: c, Quote: n.target, Value: v}, nil
}

// RateFor returns the rate of c into the target currency for one harvest.
func (n *CurrencyNormalizer) RateFor(harvestID uuid.UUID, c valueobject.Currency) (ExchangeRate, error) {
	if rates, ok := n.perHarvest[harvestID]; ok {
		if v, ok := rates[c]; ok {
			return ExchangeRate{Base: c, Quote: n.target, Value: v}, nil
		}
	}
	return n.ReferenceRate(c)
}

// Normalize converts an amount scheduled in a harvest into the target currency.
func (n *CurrencyNormalizer) Normalize(amount valueobject.Money, harvestID uuid.UUID) (valueobject.Money, error) {
	rate, err := n.RateFor(harvestID, amount.Currency())
	if err != nil {
		return valueobject.Money{}, err
	}
	return Convert(amount, n.target, rate)
}

// NormalizeAtReference converts an amount not tied to a harvest.
func (n *CurrencyNormalizer) NormalizeAtReference(amount valueobject.Money) (valueobject.Money, error) {
	rate, err := n.ReferenceRate(amount.Currency())
	if err != nil {
		return valueobject.Money{}, err
	}
	return Convert(amount, n.target, rate)
}

func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
