package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisKey is the key used when none is configured.
const DefaultRedisKey = "bodymetrics_db_v1"

// RedisBlob stores the document under a single Redis key.
type RedisBlob struct {
	client redis.UniversalClient
	key    string
}

// NewRedisBlob returns a blob stored at key.
func NewRedisBlob(client redis.UniversalClient, key string) *RedisBlob {
	if key == "" {
		key = DefaultRedisKey
	}
	return &RedisBlob{client: client, key: key}
}

func (r *RedisBlob) Load(ctx context.Context) ([]byte, error) {
	data, err := r.client.Get(ctx, r.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", r.key, err)
	}
	return data, nil
}

func (r *RedisBlob) Save(ctx context.Context, data []byte) error {
	if err := r.client.Set(ctx, r.key, data, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", r.key, err)
	}
	return nil
}

func (r *RedisBlob) Delete(ctx context.Context) error {
	if err := r.client.Del(ctx, r.key).Err(); err != nil {
		return fmt.Errorf("redis del %s: %w", r.key, err)
	}
	return nil
}
