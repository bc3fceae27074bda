package usecase

import (
	"context"
	"math/big"
	"time"

	"github.com/trebuchet-org/txq/internal/domain/models"
)

// ChainClient talks to the target chain. Signing is resolved by the
// implementation from PreparedCall.From.
type ChainClient interface {
	// Simulate dry-runs the call; a nil error means it would succeed
	Simulate(ctx context.Context, call models.PreparedCall) error
	// Write signs and submits the call and returns the transaction hash
	Write(ctx context.Context, call models.PreparedCall) (string, error)
	// ReadContract performs a read-only call and returns the decoded outputs
	ReadContract(ctx context.Context, call models.ReadCall) ([]any, error)
	// EstimateGas returns the gas the call is expected to use
	EstimateGas(ctx context.Context, call models.PreparedCall) (uint64, error)
}

// QueueStore persists the queue. Implementations never fail the caller;
// errors are logged and swallowed.
type QueueStore interface {
	Load(ctx context.Context) ([]*models.QueueTransaction, string)
	Save(ctx context.Context, txs []*models.QueueTransaction)
	SaveActiveID(ctx context.Context, id string)
	CleanupStale(ctx context.Context, now time.Time) int
}

// Executor is the transaction execution service used by the controller
type Executor interface {
	Prepare(tx *models.QueueTransaction, signer string) (*models.PreparedCall, error)
	CheckApprovalNeeded(ctx context.Context, tx *models.QueueTransaction, signer string) *models.ApprovalRequest
	ExecuteApproval(ctx context.Context, req *models.ApprovalRequest, signer string) models.ExecutionResult
	Execute(ctx context.Context, tx *models.QueueTransaction, signer string) models.ExecutionResult
	ExecuteSequential(ctx context.Context, txs []*models.QueueTransaction, signer string, hooks *SequenceHooks) []models.BatchItemResult
	EstimateGas(ctx context.Context, tx *models.QueueTransaction, signer string) *big.Int
}

// SequenceHooks observe a sequential run item by item. OnItemStart returns
// the current version of the transaction to execute, or false to skip it.
type SequenceHooks struct {
	OnItemStart func(id string) (*models.QueueTransaction, bool)
	OnItemDone  func(item models.BatchItemResult)
}

// Clock returns the current time
type Clock func() time.Time

// Sleeper waits for d or until ctx is done
type Sleeper func(ctx context.Context, d time.Duration) error

// ContextSleep is the default Sleeper
func ContextSleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// InteractiveSelector handles user interaction
type InteractiveSelector interface {
	SelectTransaction(ctx context.Context, txs []*models.QueueTransaction, prompt string) (*models.QueueTransaction, error)
	SelectTransactions(ctx context.Context, txs []*models.QueueTransaction, title string) ([]*models.QueueTransaction, error)
	Confirm(prompt string, defaultValue bool) (bool, error)
}

// Progress tracking interfaces

// ProgressEvent represents a progress update
type ProgressEvent struct {
	Stage    string
	Current  int
	Total    int
	Message  string
	Spinner  bool
	Metadata any
}

// ProgressSink receives progress events
type ProgressSink interface {
	OnProgress(ctx context.Context, event ProgressEvent)
	Info(message string)
	Error(message string)
}

// NopProgress is a no-op implementation of ProgressSink
type NopProgress struct{}

func (NopProgress) OnProgress(context.Context, ProgressEvent) {}
func (NopProgress) Info(string)                               {}
func (NopProgress) Error(string)                              {}

// ExecutionStage represents a stage in the execution process
type ExecutionStage string

const (
	StageItemStarting ExecutionStage = "item_starting"
	StageApproving    ExecutionStage = "approving"
	StageSimulating   ExecutionStage = "simulating"
	StageSubmitting   ExecutionStage = "submitting"
	StageCompleted    ExecutionStage = "completed"
	StageFailed       ExecutionStage = "failed"
)
