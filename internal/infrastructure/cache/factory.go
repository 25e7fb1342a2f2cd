package cache

import (
	"context"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/agrodash/backend/internal/domain/report"
	"github.com/agrodash/backend/internal/infrastructure/config"
)

// Cache backends accepted by ReportCacheFactory.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// ReportCache is a report.ReportCache that owns resources.
type ReportCache interface {
	report.ReportCache
	io.Closer
}

// ReportCacheFactory creates the report cache selected by configuration
type ReportCacheFactory struct {
	backend               string
	redisConfig           config.RedisConfig
	cleanupInterval       time.Duration
	logger                *zap.Logger
	allowInMemoryFallback bool
}

// ReportCacheFactoryOption is a functional option for configuring the factory
type ReportCacheFactoryOption func(*ReportCacheFactory)

// WithLogger sets the logger for the factory
func WithLogger(logger *zap.Logger) ReportCacheFactoryOption {
	return func(f *ReportCacheFactory) {
		f.logger = logger
	}
}

// WithInMemoryFallback controls whether an unreachable Redis degrades to the
// in-memory cache. Default is true.
func WithInMemoryFallback(allow bool) ReportCacheFactoryOption {
	return func(f *ReportCacheFactory) {
		f.allowInMemoryFallback = allow
	}
}

// NewReportCacheFactory creates a new factory
func NewReportCacheFactory(backend string, redisCfg config.RedisConfig, opts ...ReportCacheFactoryOption) *ReportCacheFactory {
	f := &ReportCacheFactory{
		backend:               backend,
		redisConfig:           redisCfg,
		cleanupInterval:       time.Minute,
		logger:                zap.NewNop(),
		allowInMemoryFallback: true,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Create returns the configured cache
func (f *ReportCacheFactory) Create(ctx context.Context) (ReportCache, error) {
	switch f.backend {
	case "", BackendMemory:
		f.logger.Info("Using in-memory projection cache")
		return NewInMemoryReportCache(f.cleanupInterval), nil
	case BackendRedis:
	default:
		return nil, fmt.Errorf("unknown cache backend %q", f.backend)
	}

	c, err := NewRedisReportCache(ctx, RedisConfig{
		Host:     f.redisConfig.Host,
		Port:     f.redisConfig.Port,
		Password: f.redisConfig.Password,
		DB:       f.redisConfig.DB,
	})
	if err == nil {
		f.logger.Info("Using Redis projection cache",
			zap.String("host", f.redisConfig.Host),
			zap.Int("port", f.redisConfig.Port),
		)
		return c, nil
	}
	if !f.allowInMemoryFallback {
		return nil, fmt.Errorf("redis cache unavailable: %w", err)
	}

	f.logger.Warn("Redis unavailable, falling back to in-memory projection cache. "+
		"Cached reports will not be shared between instances.",
		zap.Error(err),
	)
	return NewInMemoryReportCache(f.cleanupInterval), nil
}
