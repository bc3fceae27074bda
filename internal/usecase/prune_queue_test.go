package usecase_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trebuchet-org/txq/internal/domain/config"
	"github.com/trebuchet-org/txq/internal/domain/models"
	"github.com/trebuchet-org/txq/internal/usecase"
)

func TestPruneQueue(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC)

	old := models.NewQueueTransaction(models.Draft{Title: "old"}, now.Add(-48*time.Hour))
	old.Status = models.StatusCompleted
	oldPending := models.NewQueueTransaction(models.Draft{Title: "old pending"}, now.Add(-48*time.Hour))
	fresh := models.NewQueueTransaction(models.Draft{Title: "fresh"}, now.Add(-time.Hour))
	fresh.Status = models.StatusFailed

	t.Run("dry run only collects", func(t *testing.T) {
		store := &memoryStore{txs: []*models.QueueTransaction{old, oldPending, fresh}, pruned: 1}
		progress := &MockProgressSink{}
		uc := usecase.NewPruneQueue(store, &config.RuntimeConfig{}, progress)

		result, err := uc.Run(ctx, usecase.PruneQueueParams{Now: now, DryRun: true})
		require.NoError(t, err)
		require.Len(t, result.Candidates, 1)
		assert.Equal(t, "old", result.Candidates[0].Title)
		assert.Equal(t, 0, result.Removed)
		assert.Equal(t, usecase.DefaultRetention, result.Retention)
		assert.Equal(t, []string{"collect_items"}, progress.stages())
	})

	t.Run("prunes through the store", func(t *testing.T) {
		store := &memoryStore{txs: []*models.QueueTransaction{old, oldPending, fresh}, pruned: 1}
		uc := usecase.NewPruneQueue(store, nil, nil)

		result, err := uc.Run(ctx, usecase.PruneQueueParams{Now: now})
		require.NoError(t, err)
		assert.Equal(t, 1, result.Removed)
	})

	t.Run("custom retention", func(t *testing.T) {
		store := &memoryStore{txs: []*models.QueueTransaction{old, oldPending, fresh}}
		uc := usecase.NewPruneQueue(store, &config.RuntimeConfig{Store: config.StoreConfig{Retention: 30 * time.Minute}}, nil)

		result, err := uc.Run(ctx, usecase.PruneQueueParams{Now: now, DryRun: true})
		require.NoError(t, err)
		assert.Len(t, result.Candidates, 2)
	})
}
