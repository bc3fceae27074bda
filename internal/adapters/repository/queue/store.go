// Package queue persists the transaction queue as a single versioned record.
package queue

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/trebuchet-org/txq/internal/domain"
	"github.com/trebuchet-org/txq/internal/domain/config"
	"github.com/trebuchet-org/txq/internal/domain/models"
	"github.com/trebuchet-org/txq/internal/usecase"
)

// DefaultRetention is how long terminal entries are kept before cleanup
const DefaultRetention = usecase.DefaultRetention

// Store is the best-effort persistent queue store. None of its operations
// return errors: failures are logged and the caller's in-memory state stays
// authoritative.
type Store struct {
	backend   Backend
	log       *slog.Logger
	retention time.Duration

	mu       sync.Mutex
	txs      []*models.QueueTransaction
	activeID string
}

var _ usecase.QueueStore = (*Store)(nil)

// NewStore creates a store on top of a backend
func NewStore(backend Backend, log *slog.Logger, retention time.Duration) *Store {
	if log == nil {
		log = slog.Default()
	}
	if retention <= 0 {
		retention = DefaultRetention
	}
	return &Store{
		backend:   backend,
		log:       log.With("component", "queue-store"),
		retention: retention,
	}
}

// NewStoreFromConfig opens the configured backend and wraps it in a Store
func NewStoreFromConfig(cfg *config.RuntimeConfig, log *slog.Logger) (*Store, error) {
	backend, err := OpenBackend(cfg.Store, cfg.DataDir)
	if err != nil {
		return nil, err
	}
	return NewStore(backend, log, cfg.Store.Retention), nil
}

// Load reads the persisted queue. Missing or corrupt data yields an empty queue.
func (s *Store) Load(ctx context.Context) ([]*models.QueueTransaction, string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	txs, activeID := s.read(ctx)
	s.txs = txs
	s.activeID = activeID
	return cloneAll(txs), activeID
}

// Save persists the full transaction list
func (s *Store) Save(ctx context.Context, txs []*models.QueueTransaction) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.txs = cloneAll(txs)
	s.write(ctx)
}

// SaveActiveID persists the active transaction pointer; "" clears it
func (s *Store) SaveActiveID(ctx context.Context, id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.activeID = id
	s.write(ctx)
}

// CleanupStale removes terminal entries older than the retention window and
// returns how many were removed
func (s *Store) CleanupStale(ctx context.Context, now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	txs, activeID := s.read(ctx)
	cutoff := now.Add(-s.retention)

	kept := make([]*models.QueueTransaction, 0, len(txs))
	removed := 0
	for _, tx := range txs {
		if tx.Status.IsPrunable() && tx.UpdatedAt.Before(cutoff) {
			if tx.ID == activeID {
				activeID = ""
			}
			removed++
			continue
		}
		kept = append(kept, tx)
	}

	s.txs = kept
	s.activeID = activeID
	if removed > 0 {
		s.log.Debug("pruned stale transactions", "removed", removed, "retention", s.retention)
		s.write(ctx)
	}
	return removed
}

// Close releases the backend
func (s *Store) Close() error {
	return s.backend.Close()
}

func (s *Store) read(ctx context.Context) ([]*models.QueueTransaction, string) {
	data, err := s.backend.Read(ctx, RecordKey)
	if errors.Is(err, domain.ErrRecordNotFound) {
		return []*models.QueueTransaction{}, ""
	}
	if err != nil {
		s.log.Warn("failed to read queue, starting empty", "error", err)
		return []*models.QueueTransaction{}, ""
	}

	txs, activeID, err := decodeRecord(data)
	if err != nil {
		s.log.Warn("corrupt queue record, starting empty", "error", err)
		return []*models.QueueTransaction{}, ""
	}
	return txs, activeID
}

func (s *Store) write(ctx context.Context) {
	data, err := encodeRecord(s.txs, s.activeID)
	if err != nil {
		s.log.Warn("failed to encode queue", "error", err)
		return
	}
	if err := s.backend.Write(ctx, RecordKey, data); err != nil {
		s.log.Warn("failed to persist queue", "error", err)
	}
}

func cloneAll(txs []*models.QueueTransaction) []*models.QueueTransaction {
	out := make([]*models.QueueTransaction, len(txs))
	for i, tx := range txs {
		out[i] = tx.Clone()
	}
	return out
}
