package storage

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	soldKeyPrefix     = "sold:"
	idempotencyKeyTTL = 24 * time.Hour
)

type RedisAdapter struct {
	client *redis.Client
}

func NewRedisAdapter(client *redis.Client) *RedisAdapter {
	return &RedisAdapter{client: client}
}

func (r *RedisAdapter) SetIdempotency(ctx context.Context, key string) (bool, error) {
	ok, err := r.client.SetNX(ctx, key, 1, idempotencyKeyTTL).Result()
	if err != nil {
		return false, err
	}

	return ok, nil
}

func (r *RedisAdapter) ClearIdempotency(ctx context.Context, key string) error {
	return r.client.Del(ctx, key).Err()
}

func (r *RedisAdapter) RecordSale(ctx context.Context, productID int64, quantity int) (int64, error) {
	return r.client.IncrBy(ctx, soldKey(productID), int64(quantity)).Result()
}

func (r *RedisAdapter) SoldUnits(ctx context.Context, productID int64) (int64, error) {
	n, err := r.client.Get(ctx, soldKey(productID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return n, err
}

func soldKey(productID int64) string {
	return soldKeyPrefix + strconv.FormatInt(productID, 10)
}
