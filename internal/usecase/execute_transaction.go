package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"time"

	"github.com/trebuchet-org/txq/internal/domain"
	"github.com/trebuchet-org/txq/internal/domain/config"
	"github.com/trebuchet-org/txq/internal/domain/models"
)

const (
	// DefaultGasLimit is used when a transaction carries no explicit limit
	DefaultGasLimit uint64 = 300_000

	// DefaultItemDelay separates consecutive submissions from one account
	DefaultItemDelay = time.Second

	// GasBufferPercent is applied to simulation-based gas estimates
	GasBufferPercent = 120

	// approvalBufferPercent is applied to the required allowance when approving
	approvalBufferPercent = 110
)

// User-facing failure messages
const (
	MsgInsufficientFunds = "Insufficient balance or allowance"
	MsgUserRejected      = "Transaction was rejected by user"
	MsgGasIssue          = "Transaction failed due to gas issues"
)

// ErrItemSkipped is reported for batch items that were no longer runnable
// when their turn came
var ErrItemSkipped = errors.New("skipped: transaction is no longer runnable")

// ERC20ABI covers the allowance calls made by the executor
const ERC20ABI = `[
	{"type":"function","name":"allowance","stateMutability":"view","inputs":[{"name":"owner","type":"address"},{"name":"spender","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"approve","stateMutability":"nonpayable","inputs":[{"name":"spender","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]}
]`

// TransactionExecutor submits queued transactions to the chain. It holds no
// per-run state and is safe to call concurrently.
type TransactionExecutor struct {
	chain      ChainClient
	log        *slog.Logger
	progress   ProgressSink
	defaultGas uint64
	itemDelay  time.Duration
	sleep      Sleeper
}

var _ Executor = (*TransactionExecutor)(nil)

// NewTransactionExecutor creates a new executor
func NewTransactionExecutor(
	chain ChainClient,
	cfg *config.RuntimeConfig,
	log *slog.Logger,
	progress ProgressSink,
) *TransactionExecutor {
	if progress == nil {
		progress = NopProgress{}
	}
	if log == nil {
		log = slog.Default()
	}
	e := &TransactionExecutor{
		chain:      chain,
		log:        log.With("component", "executor"),
		progress:   progress,
		defaultGas: DefaultGasLimit,
		itemDelay:  DefaultItemDelay,
		sleep:      ContextSleep,
	}
	if cfg != nil {
		if cfg.DefaultGas > 0 {
			e.defaultGas = cfg.DefaultGas
		}
		if cfg.ItemDelay > 0 {
			e.itemDelay = cfg.ItemDelay
		}
	}
	return e
}

// WithSleeper replaces the wait used between batch items
func (e *TransactionExecutor) WithSleeper(sleep Sleeper) *TransactionExecutor {
	e.sleep = sleep
	return e
}

// Prepare validates the call data of a transaction and derives value and gas
func (e *TransactionExecutor) Prepare(tx *models.QueueTransaction, signer string) (*models.PreparedCall, error) {
	switch {
	case tx.ContractAddress == "":
		return nil, &domain.MissingFieldError{Field: "contractAddress"}
	case tx.FunctionName == "":
		return nil, &domain.MissingFieldError{Field: "functionName"}
	case tx.Args == nil:
		return nil, &domain.MissingFieldError{Field: "args"}
	case strings.TrimSpace(tx.ABI) == "":
		return nil, &domain.MissingFieldError{Field: "abi"}
	case tx.ChainID == 0:
		return nil, &domain.MissingFieldError{Field: "chainId"}
	}

	value := big.NewInt(0)
	if tx.Value != nil {
		value = new(big.Int).Set(tx.Value)
	}
	gas := new(big.Int).SetUint64(e.defaultGas)
	if tx.GasLimit != nil && tx.GasLimit.Sign() > 0 {
		gas = new(big.Int).Set(tx.GasLimit)
	}

	return &models.PreparedCall{
		ChainID:      tx.ChainID,
		From:         signer,
		Address:      tx.ContractAddress,
		ABI:          tx.ABI,
		FunctionName: tx.FunctionName,
		Args:         tx.Args,
		Value:        value,
		Gas:          gas,
	}, nil
}

// CheckApprovalNeeded returns the allowance the signer still has to grant
// before tx can run, or nil. A failed allowance read is reported as zero
// allowance so the caller approves rather than risking the call.
func (e *TransactionExecutor) CheckApprovalNeeded(ctx context.Context, tx *models.QueueTransaction, signer string) *models.ApprovalRequest {
	if tx.IsApproval() || tx.Approval == nil || tx.Approval.Amount == nil || tx.Approval.Amount.Sign() <= 0 {
		return nil
	}

	req := &models.ApprovalRequest{
		ChainID:           tx.ChainID,
		Token:             tx.Approval.Token,
		Spender:           tx.Approval.Spender,
		Owner:             signer,
		RequiredAllowance: new(big.Int).Set(tx.Approval.Amount),
		CurrentAllowance:  big.NewInt(0),
	}

	out, err := e.chain.ReadContract(ctx, models.ReadCall{
		ChainID:      tx.ChainID,
		Address:      tx.Approval.Token,
		ABI:          ERC20ABI,
		FunctionName: "allowance",
		Args:         []any{signer, tx.Approval.Spender},
	})
	if err != nil {
		e.log.Warn("allowance check failed, assuming approval is needed", "tx", tx.ID, "token", tx.Approval.Token, "error", err)
		return req
	}

	current, ok := firstBigInt(out)
	if !ok {
		e.log.Warn("unexpected allowance result, assuming approval is needed", "tx", tx.ID, "result", out)
		return req
	}
	if current.Cmp(req.RequiredAllowance) >= 0 {
		return nil
	}

	req.CurrentAllowance = current
	return req
}

// ExecuteApproval approves the spender for 110% of the required allowance
func (e *TransactionExecutor) ExecuteApproval(ctx context.Context, req *models.ApprovalRequest, signer string) models.ExecutionResult {
	amount := new(big.Int).Mul(req.RequiredAllowance, big.NewInt(approvalBufferPercent))
	amount.Div(amount, big.NewInt(100))

	e.progress.OnProgress(ctx, ProgressEvent{
		Stage:    string(StageApproving),
		Message:  fmt.Sprintf("Approving %s for %s", req.Spender, amount),
		Spinner:  true,
		Metadata: req,
	})

	hash, err := e.chain.Write(ctx, models.PreparedCall{
		ChainID:      req.ChainID,
		From:         signer,
		Address:      req.Token,
		ABI:          ERC20ABI,
		FunctionName: "approve",
		Args:         []any{req.Spender, amount},
		Value:        big.NewInt(0),
		Gas:          new(big.Int).SetUint64(e.defaultGas),
	})
	if err != nil {
		e.log.Debug("approval failed", "token", req.Token, "spender", req.Spender, "error", err)
		return models.ExecutionResult{Error: MapExecutionError(err)}
	}

	e.log.Debug("approval submitted", "token", req.Token, "spender", req.Spender, "hash", hash)
	return models.ExecutionResult{Success: true, TxHash: hash}
}

// Execute runs a single transaction: approval when required, then simulate,
// then submit. It returns as soon as the submission is accepted.
func (e *TransactionExecutor) Execute(ctx context.Context, tx *models.QueueTransaction, signer string) models.ExecutionResult {
	call, err := e.Prepare(tx, signer)
	if err != nil {
		return e.fail(ctx, tx, models.ExecutionResult{Error: err.Error()})
	}

	var result models.ExecutionResult
	if !tx.IsApproval() {
		if req := e.CheckApprovalNeeded(ctx, tx, signer); req != nil {
			approval := e.ExecuteApproval(ctx, req, signer)
			if !approval.Success {
				return e.fail(ctx, tx, models.ExecutionResult{Error: approval.Error})
			}
			result.ApprovalTxHash = approval.TxHash
		}
	}

	e.progress.OnProgress(ctx, ProgressEvent{
		Stage:    string(StageSimulating),
		Message:  tx.Title,
		Spinner:  true,
		Metadata: tx,
	})
	if err := e.chain.Simulate(ctx, *call); err != nil {
		e.log.Debug("simulation failed", "tx", tx.ID, "error", err)
		result.Error = MapExecutionError(err)
		return e.fail(ctx, tx, result)
	}

	e.progress.OnProgress(ctx, ProgressEvent{
		Stage:    string(StageSubmitting),
		Message:  tx.Title,
		Spinner:  true,
		Metadata: tx,
	})
	hash, err := e.chain.Write(ctx, *call)
	if err != nil {
		e.log.Debug("submission failed", "tx", tx.ID, "error", err)
		result.Error = MapExecutionError(err)
		return e.fail(ctx, tx, result)
	}

	result.Success = true
	result.TxHash = hash
	e.progress.OnProgress(ctx, ProgressEvent{
		Stage:    string(StageCompleted),
		Message:  fmt.Sprintf("%s submitted: %s", tx.Title, hash),
		Metadata: tx,
	})
	return result
}

func (e *TransactionExecutor) fail(ctx context.Context, tx *models.QueueTransaction, result models.ExecutionResult) models.ExecutionResult {
	result.Success = false
	e.progress.OnProgress(ctx, ProgressEvent{
		Stage:    string(StageFailed),
		Message:  fmt.Sprintf("%s: %s", tx.Title, result.Error),
		Metadata: tx,
	})
	return result
}

// ExecuteSequential executes txs one at a time in order, pausing between
// items. A failed item never stops the rest. When ctx is cancelled the
// remaining items are reported as failed without being started.
func (e *TransactionExecutor) ExecuteSequential(ctx context.Context, txs []*models.QueueTransaction, signer string, hooks *SequenceHooks) []models.BatchItemResult {
	results := make([]models.BatchItemResult, 0, len(txs))

	for i, tx := range txs {
		if i > 0 {
			if err := e.sleep(ctx, e.itemDelay); err != nil {
				return e.abandon(results, txs[i:], err, hooks)
			}
		}
		if err := ctx.Err(); err != nil {
			return e.abandon(results, txs[i:], err, hooks)
		}

		current := tx
		if hooks != nil && hooks.OnItemStart != nil {
			latest, ok := hooks.OnItemStart(tx.ID)
			if !ok {
				item := models.BatchItemResult{ID: tx.ID, Result: models.ExecutionResult{Error: ErrItemSkipped.Error()}}
				results = append(results, item)
				if hooks.OnItemDone != nil {
					hooks.OnItemDone(item)
				}
				continue
			}
			if latest != nil {
				current = latest
			}
		}

		item := models.BatchItemResult{ID: tx.ID, Result: e.Execute(ctx, current, signer)}
		results = append(results, item)

		if hooks != nil && hooks.OnItemDone != nil {
			hooks.OnItemDone(item)
		}
	}

	return results
}

func (e *TransactionExecutor) abandon(results []models.BatchItemResult, rest []*models.QueueTransaction, err error, hooks *SequenceHooks) []models.BatchItemResult {
	for _, tx := range rest {
		item := models.BatchItemResult{ID: tx.ID, Result: models.ExecutionResult{Error: err.Error()}}
		results = append(results, item)
		if hooks != nil && hooks.OnItemDone != nil {
			hooks.OnItemDone(item)
		}
	}
	return results
}

// EstimateGas returns a buffered gas estimate, falling back to the default
// gas floor when estimation is not possible
func (e *TransactionExecutor) EstimateGas(ctx context.Context, tx *models.QueueTransaction, signer string) *big.Int {
	fallback := new(big.Int).SetUint64(e.defaultGas)

	call, err := e.Prepare(tx, signer)
	if err != nil {
		return fallback
	}

	estimate, err := e.chain.EstimateGas(ctx, *call)
	if err != nil || estimate == 0 {
		e.log.Debug("gas estimation failed, using default", "tx", tx.ID, "error", err)
		return fallback
	}

	buffered := new(big.Int).SetUint64(estimate)
	buffered.Mul(buffered, big.NewInt(GasBufferPercent))
	buffered.Div(buffered, big.NewInt(100))
	return buffered
}

// MapExecutionError turns chain and signer errors into short user-facing
// messages. Unknown errors pass through unchanged.
func MapExecutionError(err error) string {
	if err == nil {
		return ""
	}

	var missing *domain.MissingFieldError
	if errors.As(err, &missing) {
		return missing.Error()
	}

	msg := err.Error()
	lower := strings.ToLower(msg)

	switch {
	case strings.Contains(lower, "insufficient") &&
		(strings.Contains(lower, "balance") || strings.Contains(lower, "allowance") || strings.Contains(lower, "funds")),
		strings.Contains(lower, "exceeds balance"),
		strings.Contains(lower, "exceeds allowance"):
		return MsgInsufficientFunds
	case strings.Contains(lower, "user rejected"),
		strings.Contains(lower, "user denied"),
		strings.Contains(lower, "rejected by user"):
		return MsgUserRejected
	case strings.Contains(lower, "gas"):
		return MsgGasIssue
	}
	return msg
}

func firstBigInt(out []any) (*big.Int, bool) {
	if len(out) == 0 {
		return nil, false
	}
	switch v := out[0].(type) {
	case *big.Int:
		if v == nil {
			return nil, false
		}
		return v, true
	case uint64:
		return new(big.Int).SetUint64(v), true
	}
	return nil, false
}
