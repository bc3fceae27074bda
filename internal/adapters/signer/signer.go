// Package signer provides transaction signers for the chain client.
package signer

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/trebuchet-org/txq/internal/domain"
)

// Signer signs transactions for a single account
type Signer interface {
	Address() common.Address
	SignTx(tx *ethtypes.Transaction, chainID *big.Int) (*ethtypes.Transaction, error)
}

// PrivateKeySigner signs with an in-memory secp256k1 key
type PrivateKeySigner struct {
	key     *ecdsa.PrivateKey
	address common.Address
}

var _ Signer = (*PrivateKeySigner)(nil)

// NewPrivateKeySigner parses a hex private key, with or without 0x prefix
func NewPrivateKeySigner(hexKey string) (*PrivateKeySigner, error) {
	hexKey = strings.TrimPrefix(strings.TrimSpace(hexKey), "0x")
	if hexKey == "" {
		return nil, errors.New("empty private key")
	}

	key, err := crypto.HexToECDSA(hexKey)
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}

	pub, ok := key.Public().(*ecdsa.PublicKey)
	if !ok {
		return nil, errors.New("cannot assign public key to ECDSA")
	}

	return &PrivateKeySigner{key: key, address: crypto.PubkeyToAddress(*pub)}, nil
}

// Address returns the signer's account address
func (s *PrivateKeySigner) Address() common.Address {
	return s.address
}

// SignTx signs tx with the latest signer for chainID
func (s *PrivateKeySigner) SignTx(tx *ethtypes.Transaction, chainID *big.Int) (*ethtypes.Transaction, error) {
	signed, err := ethtypes.SignTx(tx, ethtypes.LatestSignerForChainID(chainID), s.key)
	if err != nil {
		return nil, fmt.Errorf("failed to sign transaction: %w", err)
	}
	return signed, nil
}

// Registry resolves signers by account address
type Registry struct {
	mu      sync.RWMutex
	signers map[common.Address]Signer
}

// NewRegistry creates a registry holding the given signers
func NewRegistry(signers ...Signer) *Registry {
	r := &Registry{signers: make(map[common.Address]Signer)}
	for _, s := range signers {
		r.Register(s)
	}
	return r
}

// Register adds or replaces the signer for its address
func (r *Registry) Register(s Signer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.signers[s.Address()] = s
}

// Lookup returns the signer for a hex address
func (r *Registry) Lookup(address string) (Signer, error) {
	if !common.IsHexAddress(address) {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidAddress, address)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.signers[common.HexToAddress(address)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrSignerNotFound, address)
	}
	return s, nil
}

// Default returns the only registered signer. It fails when none or
// several are registered.
func (r *Registry) Default() (Signer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(r.signers) != 1 {
		return nil, fmt.Errorf("%w: %d signers configured", domain.ErrSignerNotFound, len(r.signers))
	}
	for _, s := range r.signers {
		return s, nil
	}
	return nil, domain.ErrSignerNotFound
}
