package valueobject

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCurrency(t *testing.T) {
	tests := []struct {
		name    string
		code    string
		want    Currency
		wantErr bool
	}{
		{name: "upper case", code: "BRL", want: BRL},
		{name: "lower case with spaces", code: " usd ", want: USD},
		{name: "euro", code: "EUR", want: EUR},
		{name: "empty is not defaulted", code: "", wantErr: true},
		{name: "unknown code", code: "XYZ", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseCurrency(tt.code)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnknownCurrency)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewMoney(t *testing.T) {
	m, err := NewMoney(decimal.NewFromFloat(100.50), BRL)
	require.NoError(t, err)
	assert.Equal(t, BRL, m.Currency())
	assert.True(t, m.Amount().Equal(decimal.NewFromFloat(100.50)))

	for _, code := range []Currency{"", "XYZ", "brl"} {
		_, err := NewMoney(decimal.NewFromInt(1), code)
		assert.ErrorIs(t, err, ErrUnknownCurrency, "code %q", code)
	}
	assert.Panics(t, func() { MustNewMoney(decimal.NewFromInt(1), "") })
}

func TestMoney_String(t *testing.T) {
	assert.Equal(t, "-1000.50 USD", MustNewMoney(decimal.RequireFromString("-1000.5"), USD).String())
	assert.Equal(t, "0.00 BRL", MustNewMoney(decimal.Zero, BRL).String())
}

func TestMoney_JSON(t *testing.T) {
	m := MustNewMoney(decimal.RequireFromString("99.99"), BRL)

	data, err := json.Marshal(m)
	require.NoError(t, err)
	assert.JSONEq(t, `{"amount":"99.99","currency":"BRL"}`, string(data))

	var back Money
	require.NoError(t, json.Unmarshal(data, &back))
	assert.True(t, back.Amount().Equal(m.Amount()))
	assert.Equal(t, m.Currency(), back.Currency())
	assert.Equal(t, "99.99 BRL", back.String())

	assert.Error(t, json.Unmarshal([]byte(`{"amount":"lots","currency":"BRL"}`), &back))
}
