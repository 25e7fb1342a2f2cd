// Package valueobject holds the currency and money types shared by the
// projection engine.
package valueobject

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Currency is an ISO 4217 code
type Currency string

const (
	BRL Currency = "BRL"
	USD Currency = "USD"
	EUR Currency = "EUR"
)

// DefaultCurrency is the normalization currency unless configured otherwise
const DefaultCurrency = BRL

// ErrUnknownCurrency is returned when a currency code is not recognized.
var ErrUnknownCurrency = errors.New("unknown currency code")

var knownCurrencies = map[Currency]struct{}{
	BRL: {},
	USD: {},
	EUR: {},
}

// ParseCurrency normalizes a raw code and checks it is known.
// Empty codes are rejected; callers decide on defaults explicitly.
func ParseCurrency(code string) (Currency, error) {
	c := Currency(strings.ToUpper(strings.TrimSpace(code)))
	if !c.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownCurrency, code)
	}
	return c, nil
}

// IsValid reports whether the currency is known.
func (c Currency) IsValid() bool {
	_, ok := knownCurrencies[c]
	return ok
}

// Money is an amount tagged with its currency. Operations return new values.
type Money struct {
	amount   decimal.Decimal
	currency Currency
}

// NewMoney tags amount with a known currency
func NewMoney(amount decimal.Decimal, currency Currency) (Money, error) {
	if !currency.IsValid() {
		return Money{}, fmt.Errorf("%w: %q", ErrUnknownCurrency, currency)
	}
	return Money{amount: amount, currency: currency}, nil
}

// MustNewMoney is NewMoney for currencies already validated by the caller.
func MustNewMoney(amount decimal.Decimal, currency Currency) Money {
	m, err := NewMoney(amount, currency)
	if err != nil {
		panic(err)
	}
	return m
}

// Amount returns the decimal amount
func (m Money) Amount() decimal.Decimal { return m.amount }

// Currency returns the currency the amount is expressed in
func (m Money) Currency() Currency { return m.currency }

// String renders the amount with two decimals and the currency code
func (m Money) String() string {
	return m.amount.StringFixed(2) + " " + string(m.currency)
}

type moneyJSON struct {
	Amount   decimal.Decimal `json:"amount"`
	Currency Currency        `json:"currency"`
}

// MarshalJSON writes the amount as a decimal string
func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(moneyJSON{Amount: m.amount, Currency: m.currency})
}

// UnmarshalJSON reads what MarshalJSON writes. Cached reports round-trip through it.
func (m *Money) UnmarshalJSON(data []byte) error {
	var v moneyJSON
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	m.amount = v.Amount
	m.currency = v.Currency
	return nil
}
