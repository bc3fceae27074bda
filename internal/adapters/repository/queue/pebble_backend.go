package queue

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"github.com/cockroachdb/pebble"
	"github.com/trebuchet-org/txq/internal/domain"
)

// Value format: [version (8 bytes)] [timestamp (8 bytes)] [data]
const valueHeaderSize = 16

// PebbleBackend stores records in an embedded pebble database
type PebbleBackend struct {
	db *pebble.DB
}

// NewPebbleBackend opens (or creates) a pebble database at path.
// cacheSizeMB of 0 uses an 8MB block cache.
func NewPebbleBackend(path string, cacheSizeMB int) (*PebbleBackend, error) {
	if cacheSizeMB <= 0 {
		cacheSizeMB = 8
	}
	cache := pebble.NewCache(int64(cacheSizeMB * 1024 * 1024))
	defer cache.Unref()

	db, err := pebble.Open(path, &pebble.Options{
		Cache: cache,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open pebble store at %s: %w", path, err)
	}

	return &PebbleBackend{db: db}, nil
}

// Read returns the record payload without its header
func (b *PebbleBackend) Read(_ context.Context, key string) ([]byte, error) {
	res, closer, err := b.db.Get([]byte(key))
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, domain.ErrRecordNotFound
	}
	if err != nil {
		return nil, err
	}
	defer closer.Close()

	if len(res) < valueHeaderSize {
		return nil, fmt.Errorf("truncated value for %s", key)
	}

	data := make([]byte, len(res)-valueHeaderSize)
	copy(data, res[valueHeaderSize:])
	return data, nil
}

// Write stores the payload with a version and timestamp header
func (b *PebbleBackend) Write(_ context.Context, key string, data []byte) error {
	value := make([]byte, valueHeaderSize+len(data))
	binary.BigEndian.PutUint64(value[:8], uint64(RecordVersion))
	binary.BigEndian.PutUint64(value[8:16], uint64(time.Now().UnixNano()))
	copy(value[valueHeaderSize:], data)

	return b.db.Set([]byte(key), value, pebble.Sync)
}

// Delete removes the record
func (b *PebbleBackend) Delete(_ context.Context, key string) error {
	return b.db.Delete([]byte(key), pebble.Sync)
}

// Close closes the database
func (b *PebbleBackend) Close() error {
	return b.db.Close()
}
