package projection

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/agrodash/backend/internal/domain/projection"
	"github.com/agrodash/backend/internal/domain/report"
	"github.com/agrodash/backend/internal/domain/shared"
	"github.com/agrodash/backend/internal/infrastructure/logger"
	"github.com/agrodash/backend/internal/infrastructure/telemetry"
)

// Collaborator source names used in DataFetchError and logs.
const (
	SourceHarvests    = "harvest_registry"
	SourceDebts       = "debt_registry"
	SourceLineItems   = "revenue_expense_registry"
	SourceScenarios   = "scenario_registry"
	SourceAssets      = "asset_registry"
	SourceDataVersion = "data_version"
)

// assetFetchConcurrency bounds parallel per-harvest asset lookups.
const assetFetchConcurrency = 4

// Registries groups the read-only collaborators of a run.
type Registries struct {
	Harvests  projection.HarvestRegistry
	Debts     projection.DebtRegistry
	LineItems projection.RevenueExpenseRegistry
	Scenarios projection.ScenarioRegistry
	Assets    projection.AssetRegistry
	Versions  projection.DataVersionSource
}

// Config holds the run settings.
type Config struct {
	FetchTimeout   time.Duration
	CacheTTL       time.Duration
	TopCreditors   int
	OpeningBalance decimal.Decimal
	MinimumCash    decimal.Decimal
}

// RunRequest selects what to compute. ScenarioID nil means the baseline.
// ProjectionID is echoed back to label the report.
type RunRequest struct {
	OrganizationID uuid.UUID
	ScenarioID     *uuid.UUID
	ProjectionID   *uuid.UUID
}

// Validate rejects requests that cannot be computed.
func (r RunRequest) Validate() error {
	if r.OrganizationID == uuid.Nil {
		return projection.NewValidationError("organization_id", "organization_id is required")
	}
	if r.ScenarioID != nil && *r.ScenarioID == uuid.Nil {
		return projection.NewValidationError("scenario_id", "scenario_id must not be the nil uuid")
	}
	return nil
}

// Service orchestrates a projection run: it fetches every input against one
// harvest axis, consolidates debt and projects cash flow concurrently, then
// derives the statements once both are done.
type Service struct {
	registries Registries
	normalizer *projection.CurrencyNormalizer
	cache      report.ReportCache
	archive    report.ReportArchive
	metrics    *telemetry.ProjectionMetrics
	logger     *zap.Logger
	cfg        Config
	now        func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithCache enables report memoization.
func WithCache(cache report.ReportCache) Option {
	return func(s *Service) {
		s.cache = cache
	}
}

// WithArchive snapshots every freshly computed report. Archive failures
// are logged and never fail the run.
func WithArchive(archive report.ReportArchive) Option {
	return func(s *Service) {
		s.archive = archive
	}
}

// WithMetrics records run metrics.
func WithMetrics(m *telemetry.ProjectionMetrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithClock overrides the clock used for GeneratedAt.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// NewService creates a new projection Service
func NewService(
	registries Registries,
	normalizer *projection.CurrencyNormalizer,
	cfg Config,
	zapLogger *zap.Logger,
	opts ...Option,
) *Service {
	if zapLogger == nil {
		zapLogger = zap.NewNop()
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = 10 * time.Second
	}
	s := &Service{
		registries: registries,
		normalizer: normalizer,
		cfg:        cfg,
		logger:     zapLogger,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run computes the consolidated report of an organization.
func (s *Service) Run(ctx context.Context, req RunRequest) (*report.ConsolidatedReport, error) {
	started := time.Now()
	rep, cacheHit, err := s.run(ctx, req)
	s.metrics.RecordRun(ctx, outcomeOf(err), cacheHit, time.Since(started))
	return rep, err
}

func (s *Service) run(ctx context.Context, req RunRequest) (*report.ConsolidatedReport, bool, error) {
	if err := req.Validate(); err != nil {
		return nil, false, err
	}

	ctx, span := telemetry.StartSpan(ctx, "projection.run",
		"organization_id", req.OrganizationID,
		"scenario_id", scenarioLabel(req.ScenarioID),
	)
	defer span.End()

	ctx = logger.WithOrganizationID(ctx, req.OrganizationID.String())
	log := logger.WithLogger(ctx, s.logger).With(zap.String("scenario_id", scenarioLabel(req.ScenarioID)))

	fetchCtx, cancel := context.WithTimeout(ctx, s.cfg.FetchTimeout)
	defer cancel()

	version, err := fetch(fetchCtx, SourceDataVersion, func(ctx context.Context) (string, error) {
		return s.registries.Versions.InputDataVersion(ctx, req.OrganizationID)
	})
	if err != nil {
		log.Error("Failed to resolve input data version", zap.Error(err))
		telemetry.Fail(span, err)
		return nil, false, err
	}

	key := report.CacheKey{OrganizationID: req.OrganizationID, InputDataVersion: version}
	if req.ScenarioID != nil {
		key.ScenarioID = *req.ScenarioID
	}
	if cached, ok := s.cacheGet(ctx, key, log); ok {
		telemetry.Annotate(span, "cache_hit", true)
		cp := *cached
		cp.ProjectionID = req.ProjectionID
		return &cp, true, nil
	}

	in, err := s.fetchInputs(fetchCtx, req)
	if err != nil {
		log.Error("Projection inputs unavailable, aborting run", zap.Error(err))
		telemetry.Fail(span, err)
		return nil, false, err
	}

	rep, err := s.compute(ctx, req, in, log)
	if err != nil {
		log.Error("Projection computation failed", zap.Error(err))
		telemetry.Fail(span, err)
		return nil, false, err
	}
	rep.InputDataVersion = version

	s.cacheSet(ctx, key, rep, log)
	if s.archive != nil {
		if err := s.archive.Put(ctx, key, rep); err != nil {
			log.Warn("Report archive write failed", zap.Error(err))
		}
	}
	telemetry.Annotate(span,
		"harvests", len(rep.HarvestPeriods),
		"excluded", len(rep.Excluded),
		"grand_total", rep.DebtPosition.GrandTotal,
	)
	log.Info("Projection computed",
		zap.Int("harvests", len(rep.HarvestPeriods)),
		zap.Int("excluded", len(rep.Excluded)),
		zap.String("input_data_version", version),
	)
	return rep, false, nil
}

// runInputs is everything a run reads, already validated against the axis.
type runInputs struct {
	axis        *projection.HarvestAxis
	instruments []projection.DebtInstrument
	lineItems   []projection.CashFlowLineItem
	scenario    *projection.Scenario
	assets      map[uuid.UUID]projection.AssetValues
}

func (s *Service) fetchInputs(ctx context.Context, req RunRequest) (*runInputs, error) {
	in := &runInputs{}
	var periods []projection.HarvestPeriod

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		periods, err = fetch(gctx, SourceHarvests, func(ctx context.Context) ([]projection.HarvestPeriod, error) {
			return s.registries.Harvests.ListPeriods(ctx, req.OrganizationID)
		})
		return err
	})
	g.Go(func() error {
		var err error
		in.instruments, err = fetch(gctx, SourceDebts, func(ctx context.Context) ([]projection.DebtInstrument, error) {
			return s.registries.Debts.ListInstruments(ctx, req.OrganizationID, nil)
		})
		return err
	})
	g.Go(func() error {
		var err error
		in.lineItems, err = fetch(gctx, SourceLineItems, func(ctx context.Context) ([]projection.CashFlowLineItem, error) {
			return s.registries.LineItems.ListLineItems(ctx, req.OrganizationID)
		})
		return err
	})
	if req.ScenarioID != nil {
		g.Go(func() error {
			var err error
			in.scenario, err = s.fetchScenario(gctx, req.OrganizationID, *req.ScenarioID)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	axis, err := projection.NewHarvestAxis(periods)
	if err != nil {
		return nil, projection.NewDataFetchError(SourceHarvests, err)
	}
	in.axis = axis

	if err := in.scenario.Validate(axis); err != nil {
		return nil, projection.NewDataFetchError(SourceScenarios, err)
	}

	in.assets, err = s.fetchAssets(ctx, req.OrganizationID, axis)
	if err != nil {
		return nil, err
	}
	return in, nil
}

func (s *Service) fetchScenario(ctx context.Context, organizationID, scenarioID uuid.UUID) (*projection.Scenario, error) {
	scenario, err := fetch(ctx, SourceScenarios, func(ctx context.Context) (*projection.Scenario, error) {
		return s.registries.Scenarios.Get(ctx, scenarioID)
	})
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.ErrNotFound.WithDetails("scenario_id=" + scenarioID.String())
		}
		return nil, err
	}
	if scenario == nil {
		return nil, shared.ErrNotFound.WithDetails("scenario_id=" + scenarioID.String())
	}
	// the input data version only covers the organization's own scenarios
	if scenario.OrganizationID != organizationID {
		return nil, projection.NewValidationError("scenario_id", "scenario does not belong to the organization")
	}
	return scenario, nil
}

func (s *Service) fetchAssets(ctx context.Context, organizationID uuid.UUID, axis *projection.HarvestAxis) (map[uuid.UUID]projection.AssetValues, error) {
	values := make([]projection.AssetValues, axis.Len())

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(assetFetchConcurrency)
	for i, harvestID := range axis.IDs() {
		g.Go(func() error {
			v, err := fetch(gctx, SourceAssets, func(ctx context.Context) (projection.AssetValues, error) {
				return s.registries.Assets.GetValues(ctx, organizationID, harvestID)
			})
			if err != nil {
				return err
			}
			v.HarvestID = harvestID
			values[i] = v
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make(map[uuid.UUID]projection.AssetValues, len(values))
	for _, v := range values {
		out[v.HarvestID] = v
	}
	return out, nil
}

func (s *Service) compute(ctx context.Context, req RunRequest, in *runInputs, log *logger.ContextLogger) (*report.ConsolidatedReport, error) {
	normalizer := s.normalizer.WithScenario(in.scenario)
	overlay := projection.NewScenarioOverlay(in.scenario)

	var (
		debt           *projection.ConsolidatedDebtPosition
		cashFlow       []projection.CashFlowSnapshot
		cashExclusions []projection.Exclusion
	)

	var g errgroup.Group
	g.Go(func() error {
		telemetry.Profile(ctx, "consolidate_debt", func(ctx context.Context) {
			_, span := telemetry.StartSpan(ctx, "projection.consolidate_debt")
			defer span.End()
			debt = projection.NewDebtConsolidator(normalizer, s.cfg.TopCreditors).Consolidate(in.instruments, in.axis)
		})
		return nil
	})
	g.Go(func() error {
		telemetry.Profile(ctx, "project_cash_flow", func(ctx context.Context) {
			_, span := telemetry.StartSpan(ctx, "projection.project_cash_flow")
			defer span.End()
			adjusted := overlay.AdjustLineItems(in.lineItems)
			projector := projection.NewCashFlowProjector(normalizer,
				projection.WithOpeningBalance(s.cfg.OpeningBalance),
				projection.WithMinimumCash(s.cfg.MinimumCash),
			)
			cashFlow, cashExclusions = projector.Project(adjusted, in.axis)
		})
		return nil
	})
	_ = g.Wait()

	statements, err := projection.NewStatementDeriver(normalizer).Derive(in.axis, debt, cashFlow, in.assets)
	if err != nil {
		return nil, fmt.Errorf("derive statements: %w", err)
	}

	excluded := append(append([]projection.Exclusion{}, debt.Excluded...), cashExclusions...)
	s.logExclusions(ctx, excluded, log)

	rep := &report.ConsolidatedReport{
		OrganizationID:  req.OrganizationID,
		ScenarioID:      req.ScenarioID,
		ProjectionID:    req.ProjectionID,
		Currency:        normalizer.Target(),
		GeneratedAt:     s.now().UTC(),
		HarvestPeriods:  in.axis.Periods(),
		DebtPosition:    debt,
		CashFlow:        report.CashFlowSection{OpeningBalance: s.cfg.OpeningBalance, PerHarvest: cashFlow},
		IncomeStatement: report.IncomeStatementSection{PerHarvest: statements.IncomeStatement},
		BalanceSheet:    report.BalanceSheetSection{PerHarvest: statements.BalanceSheet},
		DebtIndicators:  report.DebtIndicatorsSection{PerHarvest: statements.Indicators},
		Excluded:        excluded,
	}
	if in.scenario != nil {
		rep.ScenarioName = in.scenario.Name
	}
	return rep, nil
}

func (s *Service) logExclusions(ctx context.Context, excluded []projection.Exclusion, log *logger.ContextLogger) {
	counts := map[string]int{}
	for _, e := range excluded {
		counts[e.Kind]++
		fields := []zap.Field{
			zap.String("kind", e.Kind),
			zap.String("reason", e.Reason),
		}
		if e.Kind == projection.ExclusionDebtInstrument {
			fields = append(fields, zap.String("instrument_id", e.RecordID.String()))
		} else {
			fields = append(fields, zap.String("line_item_id", e.RecordID.String()))
		}
		if e.HarvestID != uuid.Nil {
			fields = append(fields, zap.String("harvest_id", e.HarvestID.String()))
		}
		log.Warn("Input excluded from projection", fields...)
	}
	for kind, n := range counts {
		s.metrics.RecordExclusions(ctx, kind, n)
	}
}

// InvalidateCache drops the cached reports of an organization.
func (s *Service) InvalidateCache(ctx context.Context, organizationID uuid.UUID) error {
	if organizationID == uuid.Nil {
		return projection.NewValidationError("organization_id", "organization_id is required")
	}
	if s.cache == nil {
		return nil
	}
	if err := s.cache.InvalidateOrganization(ctx, organizationID); err != nil {
		return fmt.Errorf("invalidate projection cache: %w", err)
	}
	ctx = logger.WithOrganizationID(ctx, organizationID.String())
	logger.WithLogger(ctx, s.logger).Info("Projection cache invalidated")
	return nil
}

func (s *Service) cacheGet(ctx context.Context, key report.CacheKey, log *logger.ContextLogger) (*report.ConsolidatedReport, bool) {
	if s.cache == nil {
		return nil, false
	}
	rep, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		log.Warn("Projection cache read failed, recomputing", zap.Error(err))
		return nil, false
	}
	return rep, ok
}

func (s *Service) cacheSet(ctx context.Context, key report.CacheKey, rep *report.ConsolidatedReport, log *logger.ContextLogger) {
	if s.cache == nil || s.cfg.CacheTTL <= 0 {
		return
	}
	if err := s.cache.Set(ctx, key, rep, s.cfg.CacheTTL); err != nil {
		log.Warn("Projection cache write failed", zap.Error(err))
	}
}

// fetch calls a collaborator and gives up as soon as ctx is done, even when
// the collaborator ignores cancellation. Failures become DataFetchError.
func fetch[T any](ctx context.Context, source string, fn func(context.Context) (T, error)) (T, error) {
	type result struct {
		value T
		err   error
	}
	done := make(chan result, 1)
	go func() {
		v, err := fn(ctx)
		done <- result{value: v, err: err}
	}()

	var zero T
	select {
	case <-ctx.Done():
		return zero, projection.NewDataFetchError(source, ctx.Err())
	case r := <-done:
		if r.err != nil {
			return zero, projection.NewDataFetchError(source, r.err)
		}
		return r.value, nil
	}
}

func outcomeOf(err error) string {
	var verr *projection.ValidationError
	var ferr *projection.DataFetchError
	switch {
	case err == nil:
		return telemetry.OutcomeSuccess
	case errors.As(err, &verr), errors.Is(err, shared.ErrNotFound):
		return telemetry.OutcomeValidation
	case errors.As(err, &ferr) && ferr.Timeout():
		return telemetry.OutcomeTimeout
	case errors.As(err, &ferr):
		return telemetry.OutcomeFetchError
	default:
		return telemetry.OutcomeError
	}
}

func scenarioLabel(id *uuid.UUID) string {
	if id == nil {
		return "baseline"
	}
	return id.String()
}
