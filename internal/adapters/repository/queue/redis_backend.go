package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/trebuchet-org/txq/internal/domain"
)

// RedisOptions configures the redis backend
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

// RedisBackend stores records as plain redis string values
type RedisBackend struct {
	client *redis.Client
	prefix string
}

// NewRedisBackend connects to redis and verifies the connection
func NewRedisBackend(opts RedisOptions) (*RedisBackend, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisBackend{client: client, prefix: opts.Prefix}, nil
}

func (b *RedisBackend) key(key string) string {
	if b.prefix == "" {
		return key
	}
	return fmt.Sprintf("%s:%s", b.prefix, key)
}

// Read returns the stored record
func (b *RedisBackend) Read(ctx context.Context, key string) ([]byte, error) {
	data, err := b.client.Get(ctx, b.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrRecordNotFound
	}
	if err != nil {
		return nil, err
	}
	return data, nil
}

// Write stores the record without expiry
func (b *RedisBackend) Write(ctx context.Context, key string, data []byte) error {
	return b.client.Set(ctx, b.key(key), data, 0).Err()
}

// Delete removes the record
func (b *RedisBackend) Delete(ctx context.Context, key string) error {
	return b.client.Del(ctx, b.key(key)).Err()
}

// Close closes the connection pool
func (b *RedisBackend) Close() error {
	return b.client.Close()
}
