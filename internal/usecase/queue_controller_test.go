package usecase_test

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/trebuchet-org/txq/internal/domain"
	"github.com/trebuchet-org/txq/internal/domain/models"
	"github.com/trebuchet-org/txq/internal/usecase"
)

func depositDraft(title string, amount int64) models.Draft {
	return models.Draft{
		Title:           title,
		ChainID:         1,
		Type:            models.TransactionTypeDeposit,
		ContractAddress: vaultAddr,
		FunctionName:    "deposit",
		ABI:             vaultABI,
		Args:            []any{big.NewInt(amount), signerAddr},
	}
}

// amountArg matches deposit calls by their amount argument
func amountArg(amount int64) any {
	return mock.MatchedBy(func(call models.PreparedCall) bool {
		v, ok := call.Args[0].(*big.Int)
		return ok && v.Int64() == amount
	})
}

type controllerFixture struct {
	chain      *MockChainClient
	store      *memoryStore
	controller *usecase.QueueController
}

func newController(t *testing.T) *controllerFixture {
	t.Helper()
	chain := new(MockChainClient)
	store := &memoryStore{}
	executor, _ := newExecutor(chain, nil)
	controller := usecase.NewQueueController(store, executor, nil, nil)
	controller.Init(context.Background(), usecase.InitParams{})
	return &controllerFixture{chain: chain, store: store, controller: controller}
}

func (f *controllerFixture) ids() []string {
	var ids []string
	for _, tx := range f.controller.Snapshot().Transactions {
		ids = append(ids, tx.ID)
	}
	return ids
}

func (f *controllerFixture) status(t *testing.T, id string) models.Status {
	t.Helper()
	tx, err := f.controller.Get(id)
	require.NoError(t, err)
	return tx.Status
}

func TestQueueController_Add(t *testing.T) {
	ctx := context.Background()
	f := newController(t)

	first := f.controller.Add(ctx, depositDraft("approve", 1), depositDraft("deposit", 2))
	require.NotEmpty(t, first)

	snap := f.controller.Snapshot()
	require.Len(t, snap.Transactions, 2)
	assert.Equal(t, first, snap.Transactions[0].ID)
	assert.Equal(t, first, snap.ActiveTransactionID)
	assert.Equal(t, models.StatusPending, snap.Transactions[1].Status)

	// A later add keeps the existing active transaction
	f.controller.Add(ctx, depositDraft("later", 3))
	assert.Equal(t, first, f.controller.Snapshot().ActiveTransactionID)

	// Persisted after every mutation
	persisted, active := f.store.persisted()
	assert.Len(t, persisted, 3)
	assert.Equal(t, first, active)

	assert.Empty(t, f.controller.Add(ctx))
}

func TestQueueController_Update(t *testing.T) {
	ctx := context.Background()
	f := newController(t)
	clock := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	f.controller.WithClock(func() time.Time { return clock })

	id := f.controller.Add(ctx, depositDraft("deposit", 1))
	clock = clock.Add(time.Minute)

	title := "Deposit 1 USDC"
	require.NoError(t, f.controller.Update(ctx, id, usecase.Patch{Title: &title, GasLimit: big.NewInt(50_000)}))

	tx, err := f.controller.Get(id)
	require.NoError(t, err)
	assert.Equal(t, title, tx.Title)
	assert.Equal(t, int64(50_000), tx.GasLimit.Int64())
	assert.Equal(t, clock, tx.UpdatedAt)
	assert.True(t, tx.CreatedAt.Before(tx.UpdatedAt))

	t.Run("unknown id is a no-op", func(t *testing.T) {
		assert.NoError(t, f.controller.Update(ctx, "missing", usecase.Patch{Title: &title}))
	})

	t.Run("invalid status change is rejected", func(t *testing.T) {
		completed := models.StatusCompleted
		err := f.controller.Update(ctx, id, usecase.Patch{Status: &completed})
		assert.True(t, errors.Is(err, domain.ErrInvalidTransition))
	})

	t.Run("executing only via execute commands", func(t *testing.T) {
		executing := models.StatusExecuting
		err := f.controller.Update(ctx, id, usecase.Patch{Status: &executing})
		assert.True(t, errors.Is(err, domain.ErrInvalidTransition))
		assert.Equal(t, models.StatusPending, f.status(t, id))
	})
}

func TestQueueController_RemoveAndClear(t *testing.T) {
	ctx := context.Background()
	f := newController(t)

	a := f.controller.Add(ctx, depositDraft("a", 1))
	b := f.controller.Add(ctx, depositDraft("b", 2))
	c := f.controller.Add(ctx, depositDraft("c", 3))

	f.controller.Remove(ctx, a)
	assert.Equal(t, []string{b, c}, f.ids())
	assert.Empty(t, f.controller.Snapshot().ActiveTransactionID)

	f.controller.Remove(ctx, "missing")
	assert.Len(t, f.ids(), 2)

	f.controller.RemoveMany(ctx, []string{b, c})
	assert.Empty(t, f.ids())

	f.controller.Add(ctx, depositDraft("d", 4), depositDraft("e", 5))
	f.controller.ClearAll(ctx)
	assert.Empty(t, f.ids())
	assert.Empty(t, f.controller.Snapshot().ActiveTransactionID)
}

func TestQueueController_ClearCompleted(t *testing.T) {
	ctx := context.Background()
	f := newController(t)

	f.chain.On("Simulate", mock.Anything, mock.Anything).Return(nil)
	f.chain.On("Write", mock.Anything, amountArg(1)).Return("0x01", nil)
	f.chain.On("Write", mock.Anything, amountArg(2)).Return("", errors.New("reverted"))

	done := f.controller.Add(ctx, depositDraft("done", 1))
	failed := f.controller.Add(ctx, depositDraft("failed", 2))
	pending := f.controller.Add(ctx, depositDraft("pending", 3))

	_, err := f.controller.ExecuteBatch(ctx, []string{done, failed}, signerAddr)
	require.NoError(t, err)

	f.controller.ClearCompleted(ctx)
	assert.Equal(t, []string{pending}, f.ids())
}

func TestQueueController_RetryAndCancel(t *testing.T) {
	ctx := context.Background()
	f := newController(t)

	f.chain.On("Simulate", mock.Anything, mock.Anything).Return(errors.New("execution reverted: paused"))

	id := f.controller.Add(ctx, depositDraft("deposit", 1))
	result, err := f.controller.ExecuteOne(ctx, id, signerAddr)
	require.NoError(t, err)
	assert.False(t, result.Success)

	tx, _ := f.controller.Get(id)
	assert.Equal(t, models.StatusFailed, tx.Status)
	assert.Equal(t, "execution reverted: paused", tx.Error)
	assert.Empty(t, f.controller.Snapshot().ActiveTransactionID)

	f.controller.Retry(ctx, id)
	tx, _ = f.controller.Get(id)
	assert.Equal(t, models.StatusPending, tx.Status)
	assert.Empty(t, tx.Error)
	assert.Empty(t, tx.TxHash)
	assert.Equal(t, id, f.controller.Snapshot().ActiveTransactionID)

	// Retry on a pending transaction changes nothing
	f.controller.Retry(ctx, id)
	assert.Equal(t, models.StatusPending, f.status(t, id))

	require.NoError(t, f.controller.Cancel(ctx, id))
	assert.Empty(t, f.ids())
	assert.NoError(t, f.controller.Cancel(ctx, "missing"))
}

func TestQueueController_CancelCompleted(t *testing.T) {
	ctx := context.Background()
	f := newController(t)

	f.chain.On("Simulate", mock.Anything, mock.Anything).Return(nil)
	f.chain.On("Write", mock.Anything, mock.Anything).Return("0xabc", nil)

	id := f.controller.Add(ctx, depositDraft("deposit", 1))
	_, err := f.controller.ExecuteOne(ctx, id, signerAddr)
	require.NoError(t, err)

	err = f.controller.Cancel(ctx, id)
	assert.True(t, errors.Is(err, domain.ErrInvalidTransition))
	assert.Equal(t, []string{id}, f.ids())
}

func TestQueueController_Reorder(t *testing.T) {
	ctx := context.Background()
	f := newController(t)

	a := f.controller.Add(ctx, depositDraft("a", 1))
	b := f.controller.Add(ctx, depositDraft("b", 2))
	c := f.controller.Add(ctx, depositDraft("c", 3))
	d := f.controller.Add(ctx, depositDraft("d", 4))

	f.controller.Reorder(ctx, []string{c, a})
	assert.Equal(t, []string{c, a, b, d}, f.ids())

	// Unknown and duplicate ids are ignored, nothing is dropped
	f.controller.Reorder(ctx, []string{d, "missing", d, b})
	assert.Equal(t, []string{d, b, c, a}, f.ids())

	persisted, _ := f.store.persisted()
	require.Len(t, persisted, 4)
	assert.Equal(t, d, persisted[0].ID)
}

func TestQueueController_Move(t *testing.T) {
	ctx := context.Background()
	f := newController(t)

	a := f.controller.Add(ctx, depositDraft("a", 1))
	b := f.controller.Add(ctx, depositDraft("b", 2))
	c := f.controller.Add(ctx, depositDraft("c", 3))

	f.controller.MoveUp(ctx, a)
	assert.Equal(t, []string{a, b, c}, f.ids())

	f.controller.MoveDown(ctx, c)
	assert.Equal(t, []string{a, b, c}, f.ids())

	f.controller.MoveDown(ctx, a)
	assert.Equal(t, []string{b, a, c}, f.ids())

	f.controller.MoveUp(ctx, c)
	assert.Equal(t, []string{b, c, a}, f.ids())

	f.controller.MoveUp(ctx, "missing")
	assert.Equal(t, []string{b, c, a}, f.ids())
}

func TestQueueController_ExecuteOne(t *testing.T) {
	ctx := context.Background()

	t.Run("deposit completes with hash", func(t *testing.T) {
		f := newController(t)
		f.chain.On("Simulate", mock.Anything, callTo("deposit")).Return(nil)
		f.chain.On("Write", mock.Anything, callTo("deposit")).Return("0xabc", nil)

		id := f.controller.Add(ctx, depositDraft("deposit", 10))
		result, err := f.controller.ExecuteOne(ctx, id, signerAddr)
		require.NoError(t, err)
		assert.True(t, result.Success)

		tx, _ := f.controller.Get(id)
		assert.Equal(t, models.StatusCompleted, tx.Status)
		assert.Equal(t, "0xabc", tx.TxHash)
		assert.False(t, f.controller.IsExecuting())
		assert.Empty(t, f.controller.Snapshot().ActiveTransactionID)

		persisted, _ := f.store.persisted()
		assert.Equal(t, models.StatusCompleted, persisted[0].Status)
	})

	t.Run("insufficient allowance revert fails", func(t *testing.T) {
		f := newController(t)
		f.chain.On("Simulate", mock.Anything, mock.Anything).
			Return(errors.New("execution reverted: ERC20: insufficient allowance"))

		id := f.controller.Add(ctx, depositDraft("deposit", 10))
		_, err := f.controller.ExecuteOne(ctx, id, signerAddr)
		require.NoError(t, err)

		tx, _ := f.controller.Get(id)
		assert.Equal(t, models.StatusFailed, tx.Status)
		assert.Equal(t, usecase.MsgInsufficientFunds, tx.Error)
		assert.Empty(t, tx.TxHash)
	})

	t.Run("completed never runs again", func(t *testing.T) {
		f := newController(t)
		f.chain.On("Simulate", mock.Anything, mock.Anything).Return(nil)
		f.chain.On("Write", mock.Anything, mock.Anything).Return("0xabc", nil).Once()

		id := f.controller.Add(ctx, depositDraft("deposit", 10))
		_, err := f.controller.ExecuteOne(ctx, id, signerAddr)
		require.NoError(t, err)

		_, err = f.controller.ExecuteOne(ctx, id, signerAddr)
		assert.True(t, errors.Is(err, domain.ErrInvalidTransition))

		results, err := f.controller.ExecuteBatch(ctx, []string{id}, signerAddr)
		require.NoError(t, err)
		assert.Empty(t, results)

		f.controller.Retry(ctx, id)
		assert.Equal(t, models.StatusCompleted, f.status(t, id))
		f.chain.AssertNumberOfCalls(t, "Write", 1)
	})

	t.Run("unknown id", func(t *testing.T) {
		f := newController(t)
		_, err := f.controller.ExecuteOne(ctx, "missing", signerAddr)
		assert.True(t, errors.Is(err, domain.ErrNotFound))
	})
}

func TestQueueController_ExecuteAll(t *testing.T) {
	ctx := context.Background()
	f := newController(t)

	f.chain.On("Simulate", mock.Anything, mock.Anything).Return(nil)
	f.chain.On("Write", mock.Anything, amountArg(1)).Return("0x01", nil)
	f.chain.On("Write", mock.Anything, amountArg(2)).Return("", errors.New("nonce too low")).Once()
	f.chain.On("Write", mock.Anything, amountArg(2)).Return("0x02", nil)
	f.chain.On("Write", mock.Anything, amountArg(3)).Return("0x03", nil)

	a := f.controller.Add(ctx, depositDraft("a", 1))
	b := f.controller.Add(ctx, depositDraft("b", 2))
	c := f.controller.Add(ctx, depositDraft("c", 3))

	results, err := f.controller.ExecuteAll(ctx, signerAddr)
	require.NoError(t, err)
	require.Len(t, results, 3)

	snap := f.controller.Snapshot()
	require.Len(t, snap.Transactions, 3)
	assert.Equal(t, []models.Status{models.StatusCompleted, models.StatusFailed, models.StatusCompleted}, []models.Status{
		f.status(t, a), f.status(t, b), f.status(t, c),
	})
	assert.Equal(t, "0x01", snap.Transactions[0].TxHash)
	assert.Equal(t, "nonce too low", snap.Transactions[1].Error)
	assert.Empty(t, snap.Transactions[1].TxHash)
	assert.Equal(t, "0x03", snap.Transactions[2].TxHash)
	assert.False(t, snap.IsExecuting)
	assert.Empty(t, snap.ActiveTransactionID)

	// A second run only picks up the failed item
	results, err = f.controller.ExecuteAll(ctx, signerAddr)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, b, results[0].ID)
	assert.Equal(t, models.StatusCompleted, f.status(t, b))
}

func TestQueueController_SingleInFlight(t *testing.T) {
	ctx := context.Background()
	f := newController(t)

	release := make(chan struct{})
	entered := make(chan struct{})
	var maxExecuting int
	var mu sync.Mutex

	unsubscribe := f.controller.Subscribe(func(s usecase.Snapshot) {
		n := len(usecase.ByStatus(s.Transactions, models.StatusExecuting))
		mu.Lock()
		if n > maxExecuting {
			maxExecuting = n
		}
		mu.Unlock()
	})
	defer unsubscribe()

	f.chain.On("Simulate", mock.Anything, amountArg(1)).Run(func(mock.Arguments) {
		close(entered)
		<-release
	}).Return(nil)
	f.chain.On("Simulate", mock.Anything, mock.Anything).Return(nil)
	f.chain.On("Write", mock.Anything, mock.Anything).Return("0xhash", nil)

	f.controller.Add(ctx, depositDraft("a", 1), depositDraft("b", 2), depositDraft("c", 3))

	done := make(chan error, 1)
	go func() {
		_, err := f.controller.ExecuteAll(ctx, signerAddr)
		done <- err
	}()
	<-entered

	assert.True(t, f.controller.IsExecuting())
	_, err := f.controller.ExecuteAll(ctx, signerAddr)
	assert.True(t, errors.Is(err, domain.ErrExecutionInProgress))
	_, err = f.controller.ExecuteOne(ctx, f.ids()[1], signerAddr)
	assert.True(t, errors.Is(err, domain.ErrExecutionInProgress))

	// Items after the running one have not been flipped yet
	assert.Equal(t, 1, len(f.controller.ByStatus(models.StatusExecuting)))
	assert.Equal(t, 3, f.controller.PendingCount())

	close(release)
	require.NoError(t, <-done)

	assert.Equal(t, 1, maxExecuting)
	assert.Len(t, f.controller.ByStatus(models.StatusCompleted), 3)
	assert.Equal(t, 0, f.controller.PendingCount())
}

func TestQueueController_RemovedMidBatchIsSkipped(t *testing.T) {
	ctx := context.Background()
	f := newController(t)

	a := f.controller.Add(ctx, depositDraft("a", 1))
	b := f.controller.Add(ctx, depositDraft("b", 2))

	f.chain.On("Simulate", mock.Anything, amountArg(1)).Run(func(mock.Arguments) {
		f.controller.Remove(ctx, b)
	}).Return(nil)
	f.chain.On("Write", mock.Anything, mock.Anything).Return("0xhash", nil)

	results, err := f.controller.ExecuteBatch(ctx, []string{a, b}, signerAddr)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.True(t, results[0].Result.Success)
	assert.False(t, results[1].Result.Success)
	assert.Equal(t, []string{a}, f.ids())
	f.chain.AssertNumberOfCalls(t, "Write", 1)
}

func TestQueueController_Subscribe(t *testing.T) {
	ctx := context.Background()
	f := newController(t)

	var snapshots []usecase.Snapshot
	unsubscribe := f.controller.Subscribe(func(s usecase.Snapshot) {
		snapshots = append(snapshots, s)
	})

	id := f.controller.Add(ctx, depositDraft("a", 1))
	require.Len(t, snapshots, 1)
	require.Len(t, snapshots[0].Transactions, 1)
	assert.Equal(t, id, snapshots[0].ActiveTransactionID)

	// Snapshots are copies
	snapshots[0].Transactions[0].Title = "changed"
	tx, _ := f.controller.Get(id)
	assert.Equal(t, "a", tx.Title)

	unsubscribe()
	unsubscribe()
	f.controller.Remove(ctx, id)
	assert.Len(t, snapshots, 1)
}

func TestQueueController_InitSettlesInterrupted(t *testing.T) {
	ctx := context.Background()
	now := time.Now()

	submitted := models.NewQueueTransaction(depositDraft("submitted", 1), now)
	submitted.Status = models.StatusExecuting
	submitted.TxHash = "0xabc"
	interrupted := models.NewQueueTransaction(depositDraft("interrupted", 2), now)
	interrupted.Status = models.StatusExecuting
	pending := models.NewQueueTransaction(depositDraft("pending", 3), now)

	store := &memoryStore{
		txs:      []*models.QueueTransaction{submitted, interrupted, pending},
		activeID: "gone",
	}
	executor, _ := newExecutor(new(MockChainClient), nil)
	controller := usecase.NewQueueController(store, executor, nil, nil)
	controller.Init(ctx, usecase.InitParams{})

	snap := controller.Snapshot()
	require.Len(t, snap.Transactions, 3)
	assert.Equal(t, models.StatusCompleted, snap.Transactions[0].Status)
	assert.Equal(t, models.StatusFailed, snap.Transactions[1].Status)
	assert.Equal(t, usecase.MsgInterrupted, snap.Transactions[1].Error)
	assert.Equal(t, models.StatusPending, snap.Transactions[2].Status)
	assert.Empty(t, snap.ActiveTransactionID)
}

func TestQueueController_Queries(t *testing.T) {
	ctx := context.Background()
	f := newController(t)

	withdraw := depositDraft("withdraw", 1)
	withdraw.Type = models.TransactionTypeWithdraw
	first := f.controller.Add(ctx, depositDraft("a", 1), withdraw)

	assert.Equal(t, 2, f.controller.PendingCount())
	assert.Len(t, f.controller.ByType(models.TransactionTypeWithdraw), 1)
	assert.Len(t, f.controller.ByType(models.TransactionTypeDeposit), 1)
	require.NotNil(t, f.controller.ActiveTransaction())
	assert.Equal(t, first, f.controller.ActiveTransaction().ID)

	f.controller.Remove(ctx, first)
	assert.Nil(t, f.controller.ActiveTransaction())
}

func TestQueueController_InitCleanup(t *testing.T) {
	ctx := context.Background()
	executor, _ := newExecutor(new(MockChainClient), nil)

	t.Run("prunes by default", func(t *testing.T) {
		store := &memoryStore{}
		usecase.NewQueueController(store, executor, nil, nil).Init(ctx, usecase.InitParams{})
		assert.Equal(t, 1, store.cleanups)
	})

	t.Run("skip cleanup keeps stale entries", func(t *testing.T) {
		stale := models.NewQueueTransaction(depositDraft("stale", 1), time.Now().Add(-48*time.Hour))
		stale.Status = models.StatusCompleted
		store := &memoryStore{txs: []*models.QueueTransaction{stale}}

		controller := usecase.NewQueueController(store, executor, nil, nil)
		controller.Init(ctx, usecase.InitParams{SkipCleanup: true})

		assert.Equal(t, 0, store.cleanups)
		require.Len(t, controller.Snapshot().Transactions, 1)
		assert.Equal(t, stale.ID, controller.Snapshot().Transactions[0].ID)
	})
}
