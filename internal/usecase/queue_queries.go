package usecase

import (
	"github.com/samber/lo"
	"github.com/trebuchet-org/txq/internal/domain/models"
)

// PendingCount counts transactions that are pending or executing
func PendingCount(txs []*models.QueueTransaction) int {
	return lo.CountBy(txs, func(tx *models.QueueTransaction) bool {
		return tx.Status == models.StatusPending || tx.Status == models.StatusExecuting
	})
}

// ByStatus filters transactions by status, preserving order
func ByStatus(txs []*models.QueueTransaction, status models.Status) []*models.QueueTransaction {
	return lo.Filter(txs, func(tx *models.QueueTransaction, _ int) bool {
		return tx.Status == status
	})
}

// ByType filters transactions by type, preserving order
func ByType(txs []*models.QueueTransaction, txType models.TransactionType) []*models.QueueTransaction {
	return lo.Filter(txs, func(tx *models.QueueTransaction, _ int) bool {
		return tx.Type == txType
	})
}

// ActiveTransaction returns the transaction with the active id, or nil
func ActiveTransaction(txs []*models.QueueTransaction, activeID string) *models.QueueTransaction {
	if activeID == "" {
		return nil
	}
	tx, ok := lo.Find(txs, func(tx *models.QueueTransaction) bool {
		return tx.ID == activeID
	})
	if !ok {
		return nil
	}
	return tx
}

// StatusCounts tallies transactions per status
func StatusCounts(txs []*models.QueueTransaction) map[models.Status]int {
	return lo.CountValuesBy(txs, func(tx *models.QueueTransaction) models.Status {
		return tx.Status
	})
}
