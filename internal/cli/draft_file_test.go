package cli

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trebuchet-org/txq/internal/domain/models"
)

const depositYAML = `
title: Deposit USDC
chainId: 8453
type: Deposit
contractAddress: "0x2222222222222222222222222222222222222222"
functionName: deposit
abi:
  - type: function
    name: deposit
    inputs:
      - {name: assets, type: uint256}
      - {name: receiver, type: address}
args: ["115792089237316195423570985008687907853269984665640564039457584007913129639935", "0x1111111111111111111111111111111111111111"]
value: 0
gasLimit: 0x3d090
tokenAddress: "0x3333333333333333333333333333333333333333"
tokenAmount: "1500000"
tokenDecimals: 6
tokenSymbol: USDC
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestReadDrafts_YAML(t *testing.T) {
	drafts, err := readDrafts(writeFile(t, "deposit.yaml", depositYAML), nil)
	require.NoError(t, err)
	require.Len(t, drafts, 1)

	d := drafts[0]
	assert.Equal(t, "Deposit USDC", d.Title)
	assert.Equal(t, uint64(8453), d.ChainID)
	assert.Equal(t, models.TransactionTypeDeposit, d.Type)
	assert.Equal(t, int64(0), d.Value.Int64())
	assert.Equal(t, int64(250_000), d.GasLimit.Int64())
	assert.Equal(t, int64(1_500_000), d.TokenAmount.Int64())
	assert.Equal(t, uint8(6), d.TokenDecimals)
	assert.Nil(t, d.Approval)
	assert.Contains(t, d.ABI, `"name":"deposit"`)
	require.Len(t, d.Args, 2)
	assert.Equal(t, "0x1111111111111111111111111111111111111111", d.Args[1])
}

func TestReadDrafts_JSONList(t *testing.T) {
	content := `[
		{"title": "Approve", "chainId": 1, "type": "approve", "abi": "[]", "args": [18446744073709551616]},
		{"title": "Deposit", "chainId": 1, "type": "deposit",
		 "approval": {"token": "0x3333333333333333333333333333333333333333", "spender": "0x2222222222222222222222222222222222222222", "amount": "1000"}}
	]`
	drafts, err := readDrafts(writeFile(t, "batch.json", content), nil)
	require.NoError(t, err)
	require.Len(t, drafts, 2)

	assert.Equal(t, "[]", drafts[0].ABI)
	assert.Equal(t, "18446744073709551616", drafts[0].Args[0].(interface{ String() string }).String())
	require.NotNil(t, drafts[1].Approval)
	assert.Equal(t, int64(1000), drafts[1].Approval.Amount.Int64())
	assert.Nil(t, drafts[1].Value)
}

func TestReadDrafts_Stdin(t *testing.T) {
	drafts, err := readDrafts("-", strings.NewReader(`- {title: one}
- {title: two}`))
	require.NoError(t, err)
	require.Len(t, drafts, 2)
	assert.Equal(t, "two", drafts[1].Title)
}

func TestReadDrafts_Errors(t *testing.T) {
	tests := map[string]struct {
		name    string
		content string
		want    string
	}{
		"missing title": {"tx.yaml", "chainId: 1", "title is required"},
		"bad integer":   {"tx.yaml", "title: x\nvalue: lots", "invalid integer"},
		"empty list":    {"tx.json", "[]", "contains no transactions"},
		"bad json":      {"tx.json", "{", "failed to parse"},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := readDrafts(writeFile(t, tt.name, tt.content), nil)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}

	_, err := readDrafts(filepath.Join(t.TempDir(), "missing.yaml"), nil)
	assert.Error(t, err)
}
