package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/agrodash/backend/internal/domain/report"
)

// DefaultReportKeyPrefix namespaces projection reports in Redis.
const DefaultReportKeyPrefix = "agrodash:projection:"

const scanBatch = 100

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// RedisReportCache stores reports as JSON so that every instance of the
// service shares one cache.
type RedisReportCache struct {
	client    *redis.Client
	keyPrefix string
}

// NewRedisReportCache connects to Redis and verifies the connection
func NewRedisReportCache(ctx context.Context, cfg RedisConfig) (*RedisReportCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewRedisReportCacheWithClient(client, ""), nil
}

// NewRedisReportCacheWithClient wraps an existing client
func NewRedisReportCacheWithClient(client *redis.Client, keyPrefix string) *RedisReportCache {
	if keyPrefix == "" {
		keyPrefix = DefaultReportKeyPrefix
	}
	return &RedisReportCache{client: client, keyPrefix: keyPrefix}
}

func (c *RedisReportCache) key(k report.CacheKey) string {
	return c.keyPrefix + k.String()
}

// Get loads and decodes a report
func (c *RedisReportCache) Get(ctx context.Context, key report.CacheKey) (*report.ConsolidatedReport, bool, error) {
	data, err := c.client.Get(ctx, c.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read cached report: %w", err)
	}

	var rep report.ConsolidatedReport
	if err := json.Unmarshal(data, &rep); err != nil {
		return nil, false, fmt.Errorf("failed to decode cached report: %w", err)
	}
	return &rep, true, nil
}

// Set encodes and stores a report with a TTL
func (c *RedisReportCache) Set(ctx context.Context, key report.CacheKey, rep *report.ConsolidatedReport, ttl time.Duration) error {
	data, err := json.Marshal(rep)
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	if err := c.client.Set(ctx, c.key(key), data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache report: %w", err)
	}
	return nil
}

// InvalidateOrganization deletes the organization's keys in SCAN batches
func (c *RedisReportCache) InvalidateOrganization(ctx context.Context, organizationID uuid.UUID) error {
	pattern := c.keyPrefix + organizationID.String() + ":*"

	var cursor uint64
	for {
		keys, next, err := c.client.Scan(ctx, cursor, pattern, scanBatch).Result()
		if err != nil {
			return fmt.Errorf("failed to scan cached reports: %w", err)
		}
		if len(keys) > 0 {
			if err := c.client.Del(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("failed to delete cached reports: %w", err)
			}
		}
		if next == 0 {
			return nil
		}
		cursor = next
	}
}

// Ping checks the connection; used by the readiness probe
func (c *RedisReportCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close closes the Redis client
func (c *RedisReportCache) Close() error {
	return c.client.Close()
}

var _ report.ReportCache = (*RedisReportCache)(nil)
