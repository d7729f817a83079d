package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultRedisTimeout = 3 * time.Second

// RedisBackend stores each key as a plain Redis string under a prefix, so a
// team can point several devices at one shared store.
type RedisBackend struct {
	client  *redis.Client
	prefix  string
	timeout time.Duration
}

// NewRedisBackend connects to addr and verifies the connection.
func NewRedisBackend(addr, prefix string) (*RedisBackend, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	b := &RedisBackend{client: client, prefix: prefix, timeout: defaultRedisTimeout}
	ctx, cancel := b.ctx()
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("store: connect redis %s: %w", addr, err)
	}
	return b, nil
}

func (b *RedisBackend) ctx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), b.timeout)
}

func (b *RedisBackend) Get(key string) ([]byte, error) {
	ctx, cancel := b.ctx()
	defer cancel()
	val, err := b.client.Get(ctx, b.prefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return val, nil
}

func (b *RedisBackend) Set(key string, value []byte) error {
	ctx, cancel := b.ctx()
	defer cancel()
	return b.client.Set(ctx, b.prefix+key, value, 0).Err()
}

func (b *RedisBackend) Delete(key string) error {
	ctx, cancel := b.ctx()
	defer cancel()
	return b.client.Del(ctx, b.prefix+key).Err()
}

// Close releases the connection pool.
func (b *RedisBackend) Close() error {
	return b.client.Close()
}
