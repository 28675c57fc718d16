package di

import (
	"strconv"
	"testing"
	"time"

	"CreditRisk/pkg/cache"
	"CreditRisk/pkg/config"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProvideCacheService_RedisPoolFromConfig(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg, err := config.Default()
	require.NoError(t, err)
	cfg.Cache.Backend = "redis"
	cfg.Cache.Redis.Host = mr.Host()
	port, err := strconv.Atoi(mr.Port())
	require.NoError(t, err)
	cfg.Cache.Redis.Port = port
	cfg.Cache.Redis.PoolSize = 7
	cfg.Cache.Redis.MinIdleConns = 0
	cfg.Cache.Redis.PoolTimeout = 2 * time.Second

	svc, err := ProvideCacheService(cfg)
	require.NoError(t, err)
	defer svc.Close()

	rc, ok := svc.(*cache.RedisCache)
	require.True(t, ok)
	opts := rc.Client().Options()
	assert.Equal(t, 7, opts.PoolSize)
	assert.Equal(t, 0, opts.MinIdleConns)
	assert.Equal(t, 2*time.Second, opts.PoolTimeout)
}

func TestProvideCacheService_Backends(t *testing.T) {
	cfg, err := config.Default()
	require.NoError(t, err)

	cfg.Cache.Backend = "none"
	svc, err := ProvideCacheService(cfg)
	require.NoError(t, err)
	assert.Nil(t, svc)

	cfg.Cache.Backend = "memory"
	cfg.Cache.MemoryCleanup = time.Second
	svc, err = ProvideCacheService(cfg)
	require.NoError(t, err)
	_, ok := svc.(*cache.MemoryCache)
	assert.True(t, ok)
	require.NoError(t, svc.Close())
}
