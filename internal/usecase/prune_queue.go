package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/samber/lo"
	"github.com/trebuchet-org/txq/internal/domain/config"
	"github.com/trebuchet-org/txq/internal/domain/models"
)

// DefaultRetention keeps terminal transactions for a day
const DefaultRetention = 24 * time.Hour

// PruneQueueParams contains parameters for pruning the queue
type PruneQueueParams struct {
	Now    time.Time
	DryRun bool // If true, only collect items without removing them
}

// PruneQueueResult contains the result of pruning the queue
type PruneQueueResult struct {
	Candidates []*models.QueueTransaction
	Removed    int
	Retention  time.Duration
}

// PruneQueue removes terminal transactions older than the retention window
type PruneQueue struct {
	store     QueueStore
	retention time.Duration
	progress  ProgressSink
}

// NewPruneQueue creates a new PruneQueue use case
func NewPruneQueue(store QueueStore, cfg *config.RuntimeConfig, progress ProgressSink) *PruneQueue {
	if progress == nil {
		progress = NopProgress{}
	}
	retention := DefaultRetention
	if cfg != nil && cfg.Store.Retention > 0 {
		retention = cfg.Store.Retention
	}
	return &PruneQueue{
		store:     store,
		retention: retention,
		progress:  progress,
	}
}

// Run executes the prune queue use case
func (uc *PruneQueue) Run(ctx context.Context, params PruneQueueParams) (*PruneQueueResult, error) {
	now := params.Now
	if now.IsZero() {
		now = time.Now()
	}

	uc.progress.OnProgress(ctx, ProgressEvent{
		Stage:   "collect_items",
		Message: "Checking queue for stale transactions",
		Spinner: true,
	})

	txs, _ := uc.store.Load(ctx)
	cutoff := now.Add(-uc.retention)
	candidates := lo.Filter(txs, func(tx *models.QueueTransaction, _ int) bool {
		return tx.Status.IsPrunable() && tx.UpdatedAt.Before(cutoff)
	})

	result := &PruneQueueResult{Candidates: candidates, Retention: uc.retention}
	if len(candidates) == 0 || params.DryRun {
		return result, nil
	}

	uc.progress.OnProgress(ctx, ProgressEvent{
		Stage:   "execute_prune",
		Message: fmt.Sprintf("Pruning %d transactions", len(candidates)),
		Spinner: true,
	})

	result.Removed = uc.store.CleanupStale(ctx, now)
	return result, nil
}
