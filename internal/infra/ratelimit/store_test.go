package ratelimit

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewStore_AlwaysReturnsStorage(t *testing.T) {
	assert.NotNil(t, NewStore(RedisConfig{}), "expected memory store when redis addr empty")
	assert.NotNil(t, NewStore(RedisConfig{Addr: "127.0.0.1:1", DB: 0}), "expected fallback store when redis is down")
}

func TestNewStore_UsesRedisWhenReachable(t *testing.T) {
	mr := miniredis.RunT(t)

	store := NewStore(RedisConfig{Addr: mr.Addr()})
	require.NotNil(t, store)
	require.NoError(t, store.Set("limiter-key", []byte("1"), time.Minute))

	assert.True(t, mr.Exists("limiter-key"), "value should land in redis, not memory")
}
