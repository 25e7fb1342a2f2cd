package projection

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/agrodash/backend/internal/domain/shared/valueobject"
)

var tolerance = decimal.RequireFromString("0.000001")

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func newTestAxis(t *testing.T, startYears ...int) *HarvestAxis {
	t.Helper()
	periods := make([]HarvestPeriod, len(startYears))
	for i, y := range startYears {
		periods[i] = HarvestPeriod{
			ID:        uuid.New(),
			Name:      fmt.Sprintf("%d/%02d", y, (y+1)%100),
			StartYear: y,
			EndYear:   y + 1,
		}
	}
	axis, err := NewHarvestAxis(periods)
	require.NoError(t, err)
	return axis
}

func newTestNormalizer(t *testing.T) *CurrencyNormalizer {
	t.Helper()
	n, err := NewCurrencyNormalizer(
		valueobject.BRL,
		map[valueobject.Currency]decimal.Decimal{valueobject.USD: dec("5.70")},
		map[string]valueobject.Currency{"": valueobject.BRL},
	)
	require.NoError(t, err)
	return n
}

func assertDecimalNear(t *testing.T, want, got decimal.Decimal, msgAndArgs ...any) {
	t.Helper()
	diff := want.Sub(got).Abs()
	require.Truef(t, diff.LessThanOrEqual(tolerance), "want %s, got %s (diff %s) %v", want, got, diff, msgAndArgs)
}
