package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"homeserve/config"
)

func TestRedisIdempotencyStore_RoundTrip(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}

	s := NewRedisIdempotencyStore(config.RedisConfig{Addr: addr})
	defer s.Close()
	ctx := context.Background()

	key := uuid.NewString()
	got, err := s.Get(ctx, key)
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, s.Set(ctx, key, []byte(`{"id":"b1"}`), time.Minute))

	got, err = s.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, []byte(`{"id":"b1"}`), got)
}
