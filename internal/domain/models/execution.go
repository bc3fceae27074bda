package models

import "math/big"

// PreparedCall is a validated contract call ready for simulation or submission
type PreparedCall struct {
	ChainID      uint64
	From         string
	Address      string
	ABI          string
	FunctionName string
	Args         []any
	Value        *big.Int
	Gas          *big.Int
}

// ReadCall is a read-only contract call
type ReadCall struct {
	ChainID      uint64
	Address      string
	ABI          string
	FunctionName string
	Args         []any
}

// ApprovalRequest describes an allowance that must be granted before a
// transaction can execute
type ApprovalRequest struct {
	ChainID           uint64   `json:"chainId"`
	Token             string   `json:"token"`
	Spender           string   `json:"spender"`
	Owner             string   `json:"owner"`
	RequiredAllowance *big.Int `json:"requiredAllowance"`
	CurrentAllowance  *big.Int `json:"currentAllowance"`
}

// ExecutionResult is the uniform outcome of an executor operation
type ExecutionResult struct {
	Success        bool   `json:"success"`
	TxHash         string `json:"txHash,omitempty"`
	ApprovalTxHash string `json:"approvalTxHash,omitempty"`
	Error          string `json:"error,omitempty"`
}

// BatchItemResult pairs a transaction id with its execution result
type BatchItemResult struct {
	ID     string          `json:"id"`
	Result ExecutionResult `json:"result"`
}
