package redis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alijeyrad/hairai_backend/config"
)

func TestOptionsDefaults(t *testing.T) {
	opts := Options(config.RedisConfig{Addr: "localhost:6379"})

	assert.Equal(t, "localhost:6379", opts.Addr)
	assert.Equal(t, defaultPoolSize, opts.PoolSize)
	assert.Equal(t, defaultMinIdleConns, opts.MinIdleConns)
	assert.Equal(t, 5*time.Second, opts.DialTimeout)
	assert.Equal(t, 3*time.Second, opts.ReadTimeout)
	assert.Equal(t, 3*time.Second, opts.WriteTimeout)
}

func TestOptionsOverrides(t *testing.T) {
	opts := Options(config.RedisConfig{
		Addr:               "cache:6380",
		DB:                 2,
		PoolSize:           40,
		MinIdleConns:       5,
		DialTimeoutSeconds: 1,
		ReadTimeoutSeconds: 7,
	})

	assert.Equal(t, 2, opts.DB)
	assert.Equal(t, 40, opts.PoolSize)
	assert.Equal(t, 5, opts.MinIdleConns)
	assert.Equal(t, time.Second, opts.DialTimeout)
	assert.Equal(t, 7*time.Second, opts.ReadTimeout)
	assert.Equal(t, 3*time.Second, opts.WriteTimeout)
}

func TestNewRequiresAddr(t *testing.T) {
	_, err := New(context.Background(), config.RedisConfig{})
	require.Error(t, err)
}
