package models

import (
	"math/big"
	"strings"
	"time"

	"github.com/google/uuid"
)

// TransactionType tags the category of an on-chain action. It is a display
// hint only; execution is driven by the call data.
type TransactionType string

const (
	TransactionTypeApprove  TransactionType = "approve"
	TransactionTypeDeposit  TransactionType = "deposit"
	TransactionTypeWithdraw TransactionType = "withdraw"
	TransactionTypeMint     TransactionType = "mint"
	TransactionTypeRedeem   TransactionType = "redeem"
	TransactionTypeTransfer TransactionType = "transfer"
)

// ApprovalConfig declares the ERC-20 allowance a transaction depends on
type ApprovalConfig struct {
	Token   string   `json:"token" yaml:"token"`
	Spender string   `json:"spender" yaml:"spender"`
	Amount  *big.Int `json:"amount" yaml:"amount"`
}

// Draft is the caller-supplied body of a transaction, before it is queued
type Draft struct {
	Title    string          `json:"title" yaml:"title"`
	Subtitle string          `json:"subtitle,omitempty" yaml:"subtitle,omitempty"`
	ChainID  uint64          `json:"chainId" yaml:"chainId"`
	Type     TransactionType `json:"type" yaml:"type"`

	// Call data
	ContractAddress string   `json:"contractAddress" yaml:"contractAddress"`
	FunctionName    string   `json:"functionName" yaml:"functionName"`
	ABI             string   `json:"abi" yaml:"abi"`
	Args            []any    `json:"args" yaml:"args"`
	Value           *big.Int `json:"value,omitempty" yaml:"value,omitempty"`
	GasLimit        *big.Int `json:"gasLimit,omitempty" yaml:"gasLimit,omitempty"`

	// Token display metadata, informational only
	TokenAddress     string   `json:"tokenAddress,omitempty" yaml:"tokenAddress,omitempty"`
	TokenDecimals    uint8    `json:"tokenDecimals,omitempty" yaml:"tokenDecimals,omitempty"`
	TokenAmount      *big.Int `json:"tokenAmount,omitempty" yaml:"tokenAmount,omitempty"`
	TokenSymbol      string   `json:"tokenSymbol,omitempty" yaml:"tokenSymbol,omitempty"`
	TokenOutAddress  string   `json:"tokenOutAddress,omitempty" yaml:"tokenOutAddress,omitempty"`
	TokenOutDecimals uint8    `json:"tokenOutDecimals,omitempty" yaml:"tokenOutDecimals,omitempty"`
	TokenOutAmount   *big.Int `json:"tokenOutAmount,omitempty" yaml:"tokenOutAmount,omitempty"`
	TokenOutSymbol   string   `json:"tokenOutSymbol,omitempty" yaml:"tokenOutSymbol,omitempty"`

	// Approval is checked and granted before the call when set
	Approval *ApprovalConfig `json:"approval,omitempty" yaml:"approval,omitempty"`
}

// QueueTransaction is one user-intended on-chain action awaiting or having
// undergone execution
type QueueTransaction struct {
	ID string `json:"id"`
	Draft

	Status         Status    `json:"status"`
	Error          string    `json:"error,omitempty"`
	TxHash         string    `json:"txHash,omitempty"`
	ApprovalTxHash string    `json:"approvalTxHash,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// NewQueueTransaction creates a pending transaction from a draft. Call data
// is not validated here so a transaction can be queued before it is complete.
func NewQueueTransaction(draft Draft, now time.Time) *QueueTransaction {
	return &QueueTransaction{
		ID:        uuid.NewString(),
		Draft:     draft.Clone(),
		Status:    StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// IsApproval reports whether the transaction is itself an approval
func (t *QueueTransaction) IsApproval() bool {
	return t.Type == TransactionTypeApprove
}

// Clone returns a deep copy
func (t *QueueTransaction) Clone() *QueueTransaction {
	if t == nil {
		return nil
	}
	c := *t
	c.Draft = t.Draft.Clone()
	return &c
}

// Clone returns a deep copy of the draft
func (d Draft) Clone() Draft {
	c := d
	c.Value = copyInt(d.Value)
	c.GasLimit = copyInt(d.GasLimit)
	c.TokenAmount = copyInt(d.TokenAmount)
	c.TokenOutAmount = copyInt(d.TokenOutAmount)
	if d.Args != nil {
		c.Args = cloneArg(d.Args).([]any)
	}
	if d.Approval != nil {
		approval := *d.Approval
		approval.Amount = copyInt(d.Approval.Amount)
		c.Approval = &approval
	}
	return c
}

// WithTokenApproval derives an approval requirement from token metadata for
// deposit and mint drafts, with the target contract as spender. Drafts that
// already declare an approval, or lack token metadata, are returned as is.
func WithTokenApproval(d Draft) Draft {
	if d.Approval != nil || d.TokenAddress == "" || d.TokenAmount == nil {
		return d
	}
	switch TransactionType(strings.ToLower(string(d.Type))) {
	case TransactionTypeDeposit, TransactionTypeMint:
	default:
		return d
	}
	d.Approval = &ApprovalConfig{
		Token:   d.TokenAddress,
		Spender: d.ContractAddress,
		Amount:  new(big.Int).Set(d.TokenAmount),
	}
	return d
}

// cloneArg copies integers and nested argument containers so a clone can be
// mutated without touching the original
func cloneArg(arg any) any {
	switch v := arg.(type) {
	case *big.Int:
		return copyInt(v)
	case []any:
		if v == nil {
			return v
		}
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = cloneArg(item)
		}
		return out
	case map[string]any:
		if v == nil {
			return v
		}
		out := make(map[string]any, len(v))
		for k, item := range v {
			out[k] = cloneArg(item)
		}
		return out
	case []byte:
		return append([]byte(nil), v...)
	default:
		return arg
	}
}

func copyInt(v *big.Int) *big.Int {
	if v == nil {
		return nil
	}
	return new(big.Int).Set(v)
}
