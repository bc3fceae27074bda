package signer

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trebuchet-org/txq/internal/domain"
)

// Anvil's first default account
const (
	anvilKey     = "0xac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"
	anvilAddress = "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"
)

func TestNewPrivateKeySigner(t *testing.T) {
	s, err := NewPrivateKeySigner(anvilKey)
	require.NoError(t, err)
	assert.Equal(t, common.HexToAddress(anvilAddress), s.Address())

	_, err = NewPrivateKeySigner("")
	assert.Error(t, err)

	_, err = NewPrivateKeySigner("0xnothex")
	assert.ErrorContains(t, err, "invalid private key")
}

func TestPrivateKeySigner_SignTx(t *testing.T) {
	s, err := NewPrivateKeySigner(anvilKey)
	require.NoError(t, err)

	chainID := big.NewInt(31337)
	to := common.HexToAddress("0x2222222222222222222222222222222222222222")
	tx := ethtypes.NewTx(&ethtypes.DynamicFeeTx{
		ChainID:   chainID,
		Nonce:     1,
		GasTipCap: big.NewInt(1),
		GasFeeCap: big.NewInt(2),
		Gas:       21000,
		To:        &to,
		Value:     big.NewInt(0),
	})

	signed, err := s.SignTx(tx, chainID)
	require.NoError(t, err)

	sender, err := ethtypes.Sender(ethtypes.LatestSignerForChainID(chainID), signed)
	require.NoError(t, err)
	assert.Equal(t, s.Address(), sender)
}

func TestRegistry(t *testing.T) {
	s, err := NewPrivateKeySigner(anvilKey)
	require.NoError(t, err)

	empty := NewRegistry()
	_, err = empty.Default()
	assert.ErrorIs(t, err, domain.ErrSignerNotFound)

	r := NewRegistry(s)

	got, err := r.Lookup("0xf39fd6e51aad88f6f4ce6ab8827279cfffb92266")
	require.NoError(t, err)
	assert.Equal(t, s.Address(), got.Address())

	_, err = r.Lookup("0x2222222222222222222222222222222222222222")
	assert.ErrorIs(t, err, domain.ErrSignerNotFound)

	_, err = r.Lookup("not-an-address")
	assert.ErrorIs(t, err, domain.ErrInvalidAddress)

	def, err := r.Default()
	require.NoError(t, err)
	assert.Equal(t, s.Address(), def.Address())
}
