package cache

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agrodash/backend/internal/infrastructure/config"
)

// unreachableRedis points at a port nothing listens on.
var unreachableRedis = config.RedisConfig{Host: "127.0.0.1", Port: 1}

func TestReportCacheFactory_Memory(t *testing.T) {
	c, err := NewReportCacheFactory(BackendMemory, config.RedisConfig{}).Create(context.Background())
	require.NoError(t, err)
	defer c.Close()

	assert.IsType(t, &InMemoryReportCache{}, c)
}

func TestReportCacheFactory_RedisFallsBackToMemory(t *testing.T) {
	c, err := NewReportCacheFactory(BackendRedis, unreachableRedis).Create(context.Background())
	require.NoError(t, err)
	defer c.Close()

	assert.IsType(t, &InMemoryReportCache{}, c)
}

func TestReportCacheFactory_RedisRequired(t *testing.T) {
	_, err := NewReportCacheFactory(BackendRedis, unreachableRedis, WithInMemoryFallback(false)).Create(context.Background())
	assert.Error(t, err)
}

func TestReportCacheFactory_UnknownBackend(t *testing.T) {
	_, err := NewReportCacheFactory("memcached", config.RedisConfig{}).Create(context.Background())
	assert.ErrorContains(t, err, "memcached")
}
