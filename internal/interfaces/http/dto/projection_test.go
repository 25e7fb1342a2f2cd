package dto

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agrodash/backend/internal/domain/projection"
	"github.com/agrodash/backend/internal/domain/report"
	"github.com/agrodash/backend/internal/domain/shared/valueobject"
)

func TestProjectionQuery(t *testing.T) {
	org := uuid.New()
	other := uuid.New()
	scenario := uuid.New()

	t.Run("camelCase spelling", func(t *testing.T) {
		q := ProjectionQuery{OrganizationIDCamel: org.String(), ScenarioIDCamel: scenario.String()}

		assert.Equal(t, org, q.Organization())
		require.NotNil(t, q.Scenario())
		assert.Equal(t, scenario, *q.Scenario())
		assert.Nil(t, q.Projection())
	})

	t.Run("snake_case wins over camelCase", func(t *testing.T) {
		q := ProjectionQuery{OrganizationID: org.String(), OrganizationIDCamel: other.String()}

		assert.Equal(t, org, q.Organization())
	})

	t.Run("absent values", func(t *testing.T) {
		q := ProjectionQuery{}

		assert.Equal(t, uuid.Nil, q.Organization())
		assert.Nil(t, q.Scenario())
	})

	t.Run("explicit nil scenario is kept", func(t *testing.T) {
		q := ProjectionQuery{OrganizationID: org.String(), ScenarioID: uuid.Nil.String()}

		require.NotNil(t, q.Scenario())
		assert.Equal(t, uuid.Nil, *q.Scenario())
	})
}

func TestPartialResponses(t *testing.T) {
	projectionID := uuid.New()
	h1 := projection.HarvestPeriod{ID: uuid.New(), Name: "2024/25", StartYear: 2024, EndYear: 2025}
	rep := &report.ConsolidatedReport{
		OrganizationID:   uuid.New(),
		ProjectionID:     &projectionID,
		InputDataVersion: "abc",
		Currency:         valueobject.BRL,
		GeneratedAt:      time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		HarvestPeriods:   []projection.HarvestPeriod{h1},
		DebtPosition:     &projection.ConsolidatedDebtPosition{},
		Excluded: []projection.Exclusion{
			{RecordID: uuid.New(), Kind: projection.ExclusionDebtInstrument, Reason: "unsupported currency"},
			{RecordID: uuid.New(), Kind: projection.ExclusionLineItem, Reason: "unknown harvest"},
		},
	}

	debt := NewDebtPositionResponse(rep)
	assert.Equal(t, rep.OrganizationID, debt.OrganizationID)
	assert.Equal(t, &projectionID, debt.ProjectionID)
	assert.Equal(t, "abc", debt.InputDataVersion)
	assert.Same(t, rep.DebtPosition, debt.DebtPosition)

	cash := NewCashFlowResponse(rep)
	assert.Equal(t, []projection.HarvestPeriod{h1}, cash.HarvestPeriods)
	require.Len(t, cash.Excluded, 1)
	assert.Equal(t, projection.ExclusionLineItem, cash.Excluded[0].Kind)
}
