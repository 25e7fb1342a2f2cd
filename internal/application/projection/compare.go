package projection

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/agrodash/backend/internal/domain/projection"
	"github.com/agrodash/backend/internal/domain/report"
)

var errAxisChanged = errors.New("harvest periods changed between baseline and scenario runs")

// Compare runs the baseline and the scenario concurrently and returns the
// per-harvest difference between them.
func (s *Service) Compare(ctx context.Context, organizationID, scenarioID uuid.UUID) (*report.ScenarioComparison, error) {
	req := RunRequest{OrganizationID: organizationID, ScenarioID: &scenarioID}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	var baseline, scenario *report.ConsolidatedReport
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		baseline, err = s.Run(gctx, RunRequest{OrganizationID: organizationID})
		return err
	})
	g.Go(func() error {
		var err error
		scenario, err = s.Run(gctx, req)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return diffReports(baseline, scenario)
}

func diffReports(baseline, scenario *report.ConsolidatedReport) (*report.ScenarioComparison, error) {
	if len(baseline.HarvestPeriods) != len(scenario.HarvestPeriods) {
		return nil, projection.NewDataFetchError(SourceHarvests, errAxisChanged)
	}

	out := &report.ScenarioComparison{
		OrganizationID: scenario.OrganizationID,
		ScenarioName:   scenario.ScenarioName,
		Currency:       scenario.Currency,
		PerHarvest:     make([]report.HarvestDelta, 0, len(scenario.HarvestPeriods)),
	}
	if scenario.ScenarioID != nil {
		out.ScenarioID = *scenario.ScenarioID
	}

	for i, period := range scenario.HarvestPeriods {
		if baseline.HarvestPeriods[i].ID != period.ID {
			return nil, projection.NewDataFetchError(SourceHarvests, errAxisChanged)
		}
		bi, si := baseline.IncomeStatement.PerHarvest[i], scenario.IncomeStatement.PerHarvest[i]
		bc, sc := baseline.CashFlow.PerHarvest[i], scenario.CashFlow.PerHarvest[i]
		bd, sd := baseline.DebtPosition.PerHarvest[i], scenario.DebtPosition.PerHarvest[i]

		out.PerHarvest = append(out.PerHarvest, report.HarvestDelta{
			HarvestID:              period.ID,
			HarvestName:            period.Name,
			BaselineRevenue:        bi.Revenue,
			ScenarioRevenue:        si.Revenue,
			RevenueDelta:           si.Revenue.Sub(bi.Revenue),
			BaselineNetIncome:      bi.NetIncome,
			ScenarioNetIncome:      si.NetIncome,
			NetIncomeDelta:         si.NetIncome.Sub(bi.NetIncome),
			BaselineCumulativeCash: bc.CumulativeBalance,
			ScenarioCumulativeCash: sc.CumulativeBalance,
			CumulativeCashDelta:    sc.CumulativeBalance.Sub(bc.CumulativeBalance),
			BaselineTotalDebt:      bd.Total,
			ScenarioTotalDebt:      sd.Total,
			TotalDebtDelta:         sd.Total.Sub(bd.Total),
		})
	}
	return out, nil
}
