package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"sync"
	"time"

	"github.com/samber/lo"
	"github.com/trebuchet-org/txq/internal/domain"
	"github.com/trebuchet-org/txq/internal/domain/models"
)

// MsgInterrupted is recorded for transactions found executing at startup
const MsgInterrupted = "Execution was interrupted before submission"

// Snapshot is an immutable copy of the controller state
type Snapshot struct {
	Transactions        []*models.QueueTransaction
	ActiveTransactionID string
	IsExecuting         bool
}

// Patch holds the fields Update may change. Nil fields are left untouched.
type Patch struct {
	Title          *string
	Subtitle       *string
	ABI            *string
	Args           []any
	Value          *big.Int
	GasLimit       *big.Int
	Approval       *models.ApprovalConfig
	Status         *models.Status
	Error          *string
	TxHash         *string
	ApprovalTxHash *string
}

// QueueController owns the transaction queue for a session. Every mutation
// is persisted and broadcast to subscribers. Execution commands are
// serialized by the isExecuting flag: a second run is rejected, not queued.
type QueueController struct {
	store    QueueStore
	executor Executor
	log      *slog.Logger
	progress ProgressSink
	now      Clock

	mu           sync.Mutex
	transactions []*models.QueueTransaction
	activeID     string
	isExecuting  bool

	subMu       sync.Mutex
	subscribers map[int]func(Snapshot)
	nextSubID   int
}

// NewQueueController creates a controller. Call Init to load persisted state.
func NewQueueController(
	store QueueStore,
	executor Executor,
	log *slog.Logger,
	progress ProgressSink,
) *QueueController {
	if progress == nil {
		progress = NopProgress{}
	}
	if log == nil {
		log = slog.Default()
	}
	return &QueueController{
		store:        store,
		executor:     executor,
		log:          log.With("component", "queue"),
		progress:     progress,
		now:          time.Now,
		transactions: []*models.QueueTransaction{},
		subscribers:  make(map[int]func(Snapshot)),
	}
}

// WithClock replaces the time source used for timestamps
func (c *QueueController) WithClock(now Clock) *QueueController {
	c.now = now
	return c
}

// InitParams controls how the persisted queue is loaded
type InitParams struct {
	// SkipCleanup leaves stale entries in place, for callers that prune
	// them explicitly
	SkipCleanup bool
}

// Init prunes stale entries and loads the persisted queue. Entries left
// executing by an earlier session are settled: completed when a hash was
// recorded, failed otherwise.
func (c *QueueController) Init(ctx context.Context, params InitParams) {
	pruned := 0
	if !params.SkipCleanup {
		pruned = c.store.CleanupStale(ctx, c.now())
	}
	txs, activeID := c.store.Load(ctx)

	c.mutate(ctx, func() {
		now := c.now()
		for _, tx := range txs {
			if tx.Status != models.StatusExecuting {
				continue
			}
			if tx.TxHash != "" {
				tx.Status = models.StatusCompleted
			} else {
				tx.Status = models.StatusFailed
				tx.Error = MsgInterrupted
			}
			tx.UpdatedAt = now
		}
		c.transactions = txs
		c.activeID = activeID
		if c.find(activeID) == nil {
			c.activeID = ""
		}
	})

	c.log.Debug("queue loaded", "transactions", len(txs), "pruned", pruned)
}

// Subscribe registers fn to receive a snapshot after every change
func (c *QueueController) Subscribe(fn func(Snapshot)) (unsubscribe func()) {
	c.subMu.Lock()
	defer c.subMu.Unlock()

	id := c.nextSubID
	c.nextSubID++
	c.subscribers[id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			c.subMu.Lock()
			defer c.subMu.Unlock()
			delete(c.subscribers, id)
		})
	}
}

// Snapshot returns a copy of the current state
func (c *QueueController) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// IsExecuting reports whether an execution command is in flight
func (c *QueueController) IsExecuting() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.isExecuting
}

// Get returns a copy of the transaction with the given id
func (c *QueueController) Get(id string) (*models.QueueTransaction, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	tx := c.find(id)
	if tx == nil {
		return nil, fmt.Errorf("transaction %s: %w", id, domain.ErrNotFound)
	}
	return tx.Clone(), nil
}

// Add queues one or more drafts at the end of the list and returns the id of
// the first one. The first new transaction becomes active if none is.
func (c *QueueController) Add(ctx context.Context, drafts ...models.Draft) string {
	if len(drafts) == 0 {
		return ""
	}

	var firstID string
	c.mutate(ctx, func() {
		now := c.now()
		for i, d := range drafts {
			tx := models.NewQueueTransaction(d, now)
			if i == 0 {
				firstID = tx.ID
			}
			c.transactions = append(c.transactions, tx)
		}
		if c.activeID == "" {
			c.activeID = firstID
		}
	})

	c.log.Debug("transactions added", "count", len(drafts), "first", firstID)
	return firstID
}

// Update merges patch into a transaction. Unknown ids are ignored; a status
// change must be a valid transition.
func (c *QueueController) Update(ctx context.Context, id string, patch Patch) error {
	var err error
	c.mutate(ctx, func() {
		tx := c.find(id)
		if tx == nil {
			return
		}
		if patch.Status != nil {
			// executing is only entered through the execution commands
			if *patch.Status == models.StatusExecuting && tx.Status != models.StatusExecuting {
				err = fmt.Errorf("%w: use an execute command", domain.ErrInvalidTransition)
				return
			}
			if err = models.ValidateTransition(tx.Status, *patch.Status); err != nil {
				return
			}
		}
		applyPatch(tx, patch)
		tx.UpdatedAt = c.now()
	})
	return err
}

// Remove deletes a transaction, clearing the active pointer if it was active
func (c *QueueController) Remove(ctx context.Context, id string) {
	c.RemoveMany(ctx, []string{id})
}

// RemoveMany deletes every listed transaction
func (c *QueueController) RemoveMany(ctx context.Context, ids []string) {
	drop := lo.SliceToMap(ids, func(id string) (string, bool) { return id, true })
	c.mutate(ctx, func() {
		c.removeWhere(func(tx *models.QueueTransaction) bool { return drop[tx.ID] })
	})
}

// ClearCompleted removes completed and failed transactions
func (c *QueueController) ClearCompleted(ctx context.Context) {
	c.mutate(ctx, func() {
		c.removeWhere(func(tx *models.QueueTransaction) bool {
			return tx.Status == models.StatusCompleted || tx.Status == models.StatusFailed
		})
	})
}

// ClearAll empties the queue
func (c *QueueController) ClearAll(ctx context.Context) {
	c.mutate(ctx, func() {
		c.transactions = []*models.QueueTransaction{}
		c.activeID = ""
	})
}

// Retry resets a failed transaction to pending
func (c *QueueController) Retry(ctx context.Context, id string) {
	c.mutate(ctx, func() {
		tx := c.find(id)
		if tx == nil || tx.Status != models.StatusFailed {
			return
		}
		tx.Status = models.StatusPending
		tx.Error = ""
		tx.TxHash = ""
		tx.ApprovalTxHash = ""
		tx.UpdatedAt = c.now()
		if c.activeID == "" {
			c.activeID = id
		}
	})
}

// Cancel removes a transaction that has not started executing
func (c *QueueController) Cancel(ctx context.Context, id string) error {
	var err error
	c.mutate(ctx, func() {
		tx := c.find(id)
		if tx == nil {
			return
		}
		if err = models.ValidateTransition(tx.Status, models.StatusCancelled); err != nil {
			return
		}
		c.removeWhere(func(t *models.QueueTransaction) bool { return t.ID == id })
	})
	return err
}

// Reorder puts the listed ids first, in the given order. Transactions not
// listed follow in their previous relative order.
func (c *QueueController) Reorder(ctx context.Context, orderedIDs []string) {
	c.mutate(ctx, func() {
		byID := lo.KeyBy(c.transactions, func(tx *models.QueueTransaction) string { return tx.ID })
		placed := make(map[string]bool, len(orderedIDs))

		next := make([]*models.QueueTransaction, 0, len(c.transactions))
		for _, id := range orderedIDs {
			tx, ok := byID[id]
			if !ok || placed[id] {
				continue
			}
			placed[id] = true
			next = append(next, tx)
		}
		for _, tx := range c.transactions {
			if !placed[tx.ID] {
				next = append(next, tx)
			}
		}
		c.transactions = next
	})
}

// MoveUp swaps a transaction with its predecessor
func (c *QueueController) MoveUp(ctx context.Context, id string) {
	c.move(ctx, id, -1)
}

// MoveDown swaps a transaction with its successor
func (c *QueueController) MoveDown(ctx context.Context, id string) {
	c.move(ctx, id, 1)
}

func (c *QueueController) move(ctx context.Context, id string, delta int) {
	c.mutate(ctx, func() {
		i := c.indexOf(id)
		j := i + delta
		if i < 0 || j < 0 || j >= len(c.transactions) {
			return
		}
		c.transactions[i], c.transactions[j] = c.transactions[j], c.transactions[i]
	})
}

// ExecuteOne executes a single transaction. Execution failures are recorded
// on the transaction; the returned error only reports guard violations.
func (c *QueueController) ExecuteOne(ctx context.Context, id, signer string) (models.ExecutionResult, error) {
	var (
		run *models.QueueTransaction
		err error
	)
	c.mutate(ctx, func() {
		if c.isExecuting {
			err = domain.ErrExecutionInProgress
			return
		}
		tx := c.find(id)
		if tx == nil {
			err = fmt.Errorf("transaction %s: %w", id, domain.ErrNotFound)
			return
		}
		if err = models.ValidateTransition(tx.Status, models.StatusExecuting); err != nil {
			return
		}
		c.isExecuting = true
		c.startLocked(tx)
		run = tx.Clone()
	})
	if err != nil {
		return models.ExecutionResult{}, err
	}

	c.progress.OnProgress(ctx, ProgressEvent{Stage: string(StageItemStarting), Current: 1, Total: 1, Message: run.Title, Metadata: run})
	result := c.executor.Execute(ctx, run, signer)

	c.mutate(ctx, func() {
		c.applyResultLocked(id, result)
		c.isExecuting = false
		c.activeID = ""
	})
	return result, nil
}

// ExecuteBatch executes the given transactions strictly one after another
// in the given order. Each item is marked executing right before it runs
// and its result is applied as soon as it finishes. Unknown ids and items
// that cannot execute are left out.
func (c *QueueController) ExecuteBatch(ctx context.Context, ids []string, signer string) ([]models.BatchItemResult, error) {
	var (
		runs []*models.QueueTransaction
		err  error
	)
	c.mutate(ctx, func() {
		if c.isExecuting {
			err = domain.ErrExecutionInProgress
			return
		}
		for _, id := range lo.Uniq(ids) {
			tx := c.find(id)
			if tx == nil || models.ValidateTransition(tx.Status, models.StatusExecuting) != nil {
				continue
			}
			runs = append(runs, tx.Clone())
		}
		if len(runs) > 0 {
			c.isExecuting = true
		}
	})
	if err != nil || len(runs) == 0 {
		return nil, err
	}

	total := len(runs)
	started := 0
	hooks := &SequenceHooks{
		OnItemStart: func(id string) (*models.QueueTransaction, bool) {
			var run *models.QueueTransaction
			c.mutate(ctx, func() {
				tx := c.find(id)
				if tx == nil || models.ValidateTransition(tx.Status, models.StatusExecuting) != nil {
					return
				}
				c.startLocked(tx)
				run = tx.Clone()
			})
			started++
			if run == nil {
				c.log.Debug("skipping batch item", "tx", id)
				return nil, false
			}
			c.progress.OnProgress(ctx, ProgressEvent{Stage: string(StageItemStarting), Current: started, Total: total, Message: run.Title, Metadata: run})
			return run, true
		},
		OnItemDone: func(item models.BatchItemResult) {
			c.mutate(ctx, func() {
				c.applyResultLocked(item.ID, item.Result)
			})
		},
	}

	results := c.executor.ExecuteSequential(ctx, runs, signer, hooks)

	c.mutate(ctx, func() {
		c.isExecuting = false
		c.activeID = ""
	})
	return results, nil
}

// ExecuteAll executes every pending or failed transaction in list order
func (c *QueueController) ExecuteAll(ctx context.Context, signer string) ([]models.BatchItemResult, error) {
	c.mu.Lock()
	ids := lo.FilterMap(c.transactions, func(tx *models.QueueTransaction, _ int) (string, bool) {
		return tx.ID, tx.Status == models.StatusPending || tx.Status == models.StatusFailed
	})
	c.mu.Unlock()

	return c.ExecuteBatch(ctx, ids, signer)
}

// Query helpers over the current state

// PendingCount counts pending and executing transactions
func (c *QueueController) PendingCount() int {
	return PendingCount(c.Snapshot().Transactions)
}

// ByStatus returns transactions in the given status
func (c *QueueController) ByStatus(status models.Status) []*models.QueueTransaction {
	return ByStatus(c.Snapshot().Transactions, status)
}

// ByType returns transactions of the given type
func (c *QueueController) ByType(txType models.TransactionType) []*models.QueueTransaction {
	return ByType(c.Snapshot().Transactions, txType)
}

// ActiveTransaction returns the active transaction, or nil
func (c *QueueController) ActiveTransaction() *models.QueueTransaction {
	snap := c.Snapshot()
	return ActiveTransaction(snap.Transactions, snap.ActiveTransactionID)
}

// mutate runs fn under the state lock, persists the result and notifies
// subscribers. The lock is never held across chain calls.
func (c *QueueController) mutate(ctx context.Context, fn func()) {
	c.mu.Lock()
	fn()
	c.store.Save(ctx, c.transactions)
	c.store.SaveActiveID(ctx, c.activeID)
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.notify(snap)
}

func (c *QueueController) notify(snap Snapshot) {
	c.subMu.Lock()
	subs := lo.Values(c.subscribers)
	c.subMu.Unlock()

	for _, fn := range subs {
		fn(snap)
	}
}

func (c *QueueController) snapshotLocked() Snapshot {
	return Snapshot{
		Transactions:        lo.Map(c.transactions, func(tx *models.QueueTransaction, _ int) *models.QueueTransaction { return tx.Clone() }),
		ActiveTransactionID: c.activeID,
		IsExecuting:         c.isExecuting,
	}
}

func (c *QueueController) startLocked(tx *models.QueueTransaction) {
	tx.Status = models.StatusExecuting
	tx.Error = ""
	tx.TxHash = ""
	tx.UpdatedAt = c.now()
	c.activeID = tx.ID
}

// applyResultLocked records an execution result on a transaction that is
// still executing. Anything else has been changed meanwhile and is left alone.
func (c *QueueController) applyResultLocked(id string, result models.ExecutionResult) {
	tx := c.find(id)
	if tx == nil || tx.Status != models.StatusExecuting {
		return
	}
	if result.ApprovalTxHash != "" {
		tx.ApprovalTxHash = result.ApprovalTxHash
	}
	if result.Success {
		tx.Status = models.StatusCompleted
		tx.TxHash = result.TxHash
		tx.Error = ""
	} else {
		tx.Status = models.StatusFailed
		tx.Error = result.Error
	}
	tx.UpdatedAt = c.now()
}

func (c *QueueController) removeWhere(pred func(tx *models.QueueTransaction) bool) {
	c.transactions = lo.Reject(c.transactions, func(tx *models.QueueTransaction, _ int) bool {
		if pred(tx) {
			if tx.ID == c.activeID {
				c.activeID = ""
			}
			return true
		}
		return false
	})
}

func (c *QueueController) find(id string) *models.QueueTransaction {
	if i := c.indexOf(id); i >= 0 {
		return c.transactions[i]
	}
	return nil
}

func (c *QueueController) indexOf(id string) int {
	if id == "" {
		return -1
	}
	_, i, ok := lo.FindIndexOf(c.transactions, func(tx *models.QueueTransaction) bool { return tx.ID == id })
	if !ok {
		return -1
	}
	return i
}

func applyPatch(tx *models.QueueTransaction, p Patch) {
	if p.Title != nil {
		tx.Title = *p.Title
	}
	if p.Subtitle != nil {
		tx.Subtitle = *p.Subtitle
	}
	if p.ABI != nil {
		tx.ABI = *p.ABI
	}
	if p.Args != nil {
		tx.Args = models.Draft{Args: p.Args}.Clone().Args
	}
	if p.Value != nil {
		tx.Value = new(big.Int).Set(p.Value)
	}
	if p.GasLimit != nil {
		tx.GasLimit = new(big.Int).Set(p.GasLimit)
	}
	if p.Approval != nil {
		tx.Approval = models.Draft{Approval: p.Approval}.Clone().Approval
	}
	if p.Status != nil {
		tx.Status = *p.Status
	}
	if p.Error != nil {
		tx.Error = *p.Error
	}
	if p.TxHash != nil {
		tx.TxHash = *p.TxHash
	}
	if p.ApprovalTxHash != nil {
		tx.ApprovalTxHash = *p.ApprovalTxHash
	}
}
