// Package telemetry wires OpenTelemetry tracing, metrics and log export for
// the projection service. Disabled signals fall back to no-op providers.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"time"

	otelpyroscope "github.com/grafana/otel-profiling-go"
	"go.opentelemetry.io/contrib/bridges/otelzap"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploggrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/log/global"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.37.0"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const defaultExportInterval = 30 * time.Second

// Options selects which signals are exported and where.
type Options struct {
	Tracing        bool
	Metrics        bool
	Logs           bool
	SpanProfiles   bool // label CPU profiles with the active span id
	Endpoint       string
	Insecure       bool
	SamplingRatio  float64
	ExportInterval time.Duration
	ServiceName    string
	ServiceVersion string
}

// Providers owns the SDK providers installed as globals by Setup.
type Providers struct {
	tracer *sdktrace.TracerProvider
	meter  *sdkmetric.MeterProvider
	logs   *sdklog.LoggerProvider
	logger *zap.Logger
}

// Setup installs the enabled providers globally. With every signal off it
// returns a Providers whose Meter and LogCore are no-ops.
func Setup(ctx context.Context, opts Options, logger *zap.Logger) (*Providers, error) {
	p := &Providers{logger: logger}
	if !opts.Tracing && !opts.Metrics && !opts.Logs {
		logger.Info("Telemetry disabled")
		return p, nil
	}

	res, err := newResource(opts.ServiceName, opts.ServiceVersion)
	if err != nil {
		return nil, err
	}

	if opts.Tracing {
		if p.tracer, err = newTracerProvider(ctx, opts, res); err != nil {
			return nil, err
		}
		if opts.SpanProfiles {
			otel.SetTracerProvider(otelpyroscope.NewTracerProvider(p.tracer))
		} else {
			otel.SetTracerProvider(p.tracer)
		}
		otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
			propagation.TraceContext{}, propagation.Baggage{},
		))
	}
	if opts.Metrics {
		if p.meter, err = newMeterProvider(ctx, opts, res); err != nil {
			_ = p.Shutdown(ctx)
			return nil, err
		}
		otel.SetMeterProvider(p.meter)
	}
	if opts.Logs {
		if p.logs, err = newLoggerProvider(ctx, opts, res); err != nil {
			_ = p.Shutdown(ctx)
			return nil, err
		}
		global.SetLoggerProvider(p.logs)
	}

	logger.Info("Telemetry exporting",
		zap.String("endpoint", opts.Endpoint),
		zap.Bool("tracing", opts.Tracing),
		zap.Bool("metrics", opts.Metrics),
		zap.Bool("logs", opts.Logs),
		zap.Float64("sampling_ratio", opts.SamplingRatio),
	)
	return p, nil
}

func newTracerProvider(ctx context.Context, opts Options, res *resource.Resource) (*sdktrace.TracerProvider, error) {
	exporterOpts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(opts.Endpoint)}
	if opts.Insecure {
		exporterOpts = append(exporterOpts, otlptracegrpc.WithInsecure())
	}
	exporter, err := otlptracegrpc.New(ctx, exporterOpts...)
	if err != nil {
		return nil, fmt.Errorf("create trace exporter: %w", err)
	}
	return sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sampler(opts.SamplingRatio)),
	), nil
}

func newMeterProvider(ctx context.Context, opts Options, res *resource.Resource) (*sdkmetric.MeterProvider, error) {
	exporterOpts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithEndpoint(opts.Endpoint)}
	if opts.Insecure {
		exporterOpts = append(exporterOpts, otlpmetricgrpc.WithInsecure())
	}
	exporter, err := otlpmetricgrpc.New(ctx, exporterOpts...)
	if err != nil {
		return nil, fmt.Errorf("create metric exporter: %w", err)
	}
	interval := opts.ExportInterval
	if interval <= 0 {
		interval = defaultExportInterval
	}
	return sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(interval))),
	), nil
}

func newLoggerProvider(ctx context.Context, opts Options, res *resource.Resource) (*sdklog.LoggerProvider, error) {
	exporterOpts := []otlploggrpc.Option{otlploggrpc.WithEndpoint(opts.Endpoint)}
	if opts.Insecure {
		exporterOpts = append(exporterOpts, otlploggrpc.WithInsecure())
	}
	exporter, err := otlploggrpc.New(ctx, exporterOpts...)
	if err != nil {
		return nil, fmt.Errorf("create log exporter: %w", err)
	}
	return sdklog.NewLoggerProvider(
		sdklog.WithResource(res),
		sdklog.WithProcessor(sdklog.NewBatchProcessor(exporter)),
	), nil
}

// sampler keeps whole traces: a sampled parent always samples its children.
func sampler(ratio float64) sdktrace.Sampler {
	if ratio >= 1 {
		return sdktrace.AlwaysSample()
	}
	if ratio <= 0 {
		return sdktrace.NeverSample()
	}
	return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(ratio))
}

func newResource(service, version string) (*resource.Resource, error) {
	if version == "" {
		version = "dev"
	}
	res, err := resource.Merge(resource.Default(), resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(service),
		semconv.ServiceVersion(version),
	))
	if err != nil {
		return nil, fmt.Errorf("build telemetry resource: %w", err)
	}
	return res, nil
}

// MetricsEnabled reports whether meters from Meter export anywhere.
func (p *Providers) MetricsEnabled() bool { return p.meter != nil }

// TracingEnabled reports whether spans are exported.
func (p *Providers) TracingEnabled() bool { return p.tracer != nil }

// Meter returns a meter from the installed provider, or a no-op one.
func (p *Providers) Meter(name string) metric.Meter {
	if p.meter == nil {
		return otel.GetMeterProvider().Meter(name)
	}
	return p.meter.Meter(name)
}

// LogsEnabled reports whether LogCore exports records.
func (p *Providers) LogsEnabled() bool { return p.logs != nil }

// LogCore returns a zap core exporting entries at or above level through
// the OTLP log pipeline, for use with zapcore.NewTee. Without log export
// it returns a no-op core.
func (p *Providers) LogCore(name string, level zapcore.Level) zapcore.Core {
	if p.logs == nil {
		return zapcore.NewNopCore()
	}
	core := otelzap.NewCore(name, otelzap.WithLoggerProvider(p.logs))
	filtered, err := zapcore.NewIncreaseLevelCore(core, level)
	if err != nil {
		return core
	}
	return filtered
}

// Bridge returns logger teeing its entries into LogCore.
func (p *Providers) Bridge(logger *zap.Logger, name string, level zapcore.Level) *zap.Logger {
	if p.logs == nil {
		return logger
	}
	return logger.WithOptions(zap.WrapCore(func(c zapcore.Core) zapcore.Core {
		return zapcore.NewTee(c, p.LogCore(name, level))
	}))
}

// Shutdown flushes metrics, then spans, then logs.
func (p *Providers) Shutdown(ctx context.Context) error {
	var errs []error
	if p.meter != nil {
		if err := p.meter.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("meter provider: %w", err))
		}
	}
	if p.tracer != nil {
		if err := p.tracer.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("tracer provider: %w", err))
		}
	}
	if p.logs != nil {
		if err := p.logs.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("logger provider: %w", err))
		}
	}
	if err := errors.Join(errs...); err != nil {
		p.logger.Warn("Telemetry shutdown incomplete", zap.Error(err))
		return err
	}
	return nil
}
