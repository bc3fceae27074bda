package queue

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/trebuchet-org/txq/internal/domain/config"
)

// RecordKey is the fixed namespace the queue record is stored under
const RecordKey = "txq/queue"

// Backend is a durable key-value store for whole records.
// Read returns domain.ErrRecordNotFound when nothing is stored under key.
type Backend interface {
	Read(ctx context.Context, key string) ([]byte, error)
	Write(ctx context.Context, key string, data []byte) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// OpenBackend opens the backend selected by the store configuration
func OpenBackend(cfg config.StoreConfig, dataDir string) (Backend, error) {
	path := cfg.Path
	switch cfg.Backend {
	case "", config.StoreBackendFile:
		if path == "" {
			path = dataDir
		}
		return NewFileBackend(path), nil
	case config.StoreBackendPebble:
		if path == "" {
			path = filepath.Join(dataDir, "queue.db")
		}
		return NewPebbleBackend(path, 0)
	case config.StoreBackendRedis:
		return NewRedisBackend(RedisOptions{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			Prefix:   cfg.RedisPrefix,
		})
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}
}
