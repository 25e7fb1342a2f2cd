package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/metric"
)

// Run outcomes used as metric labels.
const (
	OutcomeSuccess    = "success"
	OutcomeValidation = "validation_error"
	OutcomeFetchError = "fetch_error"
	OutcomeTimeout    = "timeout"
	OutcomeError      = "error"
)

// ProjectionMetrics records projection run metrics. A nil *ProjectionMetrics
// is valid and records nothing.
type ProjectionMetrics struct {
	runs        *Counter
	runDuration *Histogram
	exclusions  *Counter
}

// NewProjectionMetrics creates the projection instruments on the given meter.
func NewProjectionMetrics(meter metric.Meter) (*ProjectionMetrics, error) {
	if meter == nil {
		return nil, ErrMeterNil
	}

	runs, err := NewCounter(meter, "agrodash_projection_runs_total", "Projection runs by outcome", "{runs}")
	if err != nil {
		return nil, err
	}
	runDuration, err := NewHistogram(meter, HistogramOpts{
		Name:        "agrodash_projection_run_duration_seconds",
		Description: "Projection run latency including input fetch",
		Unit:        "s",
		Buckets:     runDurationBuckets,
	})
	if err != nil {
		return nil, err
	}
	exclusions, err := NewCounter(meter, "agrodash_projection_exclusions_total",
		"Input records left out of a run because of scoped failures", "{records}")
	if err != nil {
		return nil, err
	}

	return &ProjectionMetrics{runs: runs, runDuration: runDuration, exclusions: exclusions}, nil
}

// RecordRun records one run with its outcome and whether it was served from cache.
func (m *ProjectionMetrics) RecordRun(ctx context.Context, outcome string, cacheHit bool, d time.Duration) {
	if m == nil {
		return
	}
	m.runs.Inc(ctx, AttrOutcome.String(outcome), AttrCacheHit.Bool(cacheHit))
	m.runDuration.RecordDuration(ctx, d, AttrOutcome.String(outcome), AttrCacheHit.Bool(cacheHit))
}

// RecordExclusions records records excluded from a run.
func (m *ProjectionMetrics) RecordExclusions(ctx context.Context, kind string, count int) {
	if m == nil || count == 0 {
		return
	}
	m.exclusions.Add(ctx, int64(count), AttrExclusionKind.String(kind))
}
