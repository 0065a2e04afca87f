package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"homeserve/config"
	"homeserve/internal/store"
)

// RedisIdempotencyStore keeps idempotency records in Redis so a multi-node
// deployment of the reference service shares one replay history.
type RedisIdempotencyStore struct {
	client *redis.Client
}

func NewRedisIdempotencyStore(cfg config.RedisConfig) *RedisIdempotencyStore {
	return &RedisIdempotencyStore{
		client: redis.NewClient(&redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB}),
	}
}

func (s *RedisIdempotencyStore) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := s.client.Get(ctx, idempotencyKey(key)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}
	return data, nil
}

func (s *RedisIdempotencyStore) Set(ctx context.Context, key string, payload []byte, ttl time.Duration) error {
	return s.client.Set(ctx, idempotencyKey(key), payload, ttl).Err()
}

func (s *RedisIdempotencyStore) Close() error {
	return s.client.Close()
}

func idempotencyKey(key string) string {
	return "idempotency:booking:" + key
}

var _ store.IdempotencyStore = (*RedisIdempotencyStore)(nil)
