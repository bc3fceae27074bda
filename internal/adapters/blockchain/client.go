// Package blockchain implements the chain client on top of go-ethereum.
package blockchain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/trebuchet-org/txq/internal/adapters/signer"
	"github.com/trebuchet-org/txq/internal/domain"
	"github.com/trebuchet-org/txq/internal/domain/config"
	"github.com/trebuchet-org/txq/internal/domain/models"
	"github.com/trebuchet-org/txq/internal/usecase"
)

// EthClient implements usecase.ChainClient against a JSON-RPC endpoint.
// The connection is opened lazily on the first chain call.
type EthClient struct {
	network *config.Network
	signers *signer.Registry
	log     *slog.Logger

	mu      sync.Mutex
	client  *ethclient.Client
	chainID *big.Int
}

var _ usecase.ChainClient = (*EthClient)(nil)

// NewEthClient creates a client for the configured network
func NewEthClient(cfg *config.RuntimeConfig, signers *signer.Registry, log *slog.Logger) *EthClient {
	if log == nil {
		log = slog.Default()
	}
	return &EthClient{
		network: cfg.Network,
		signers: signers,
		log:     log.With("component", "eth-client"),
	}
}

// connect dials the RPC endpoint and verifies the chain ID
func (c *EthClient) connect(ctx context.Context) (*ethclient.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.client != nil {
		return c.client, nil
	}
	if c.network == nil || c.network.RPCURL == "" {
		return nil, fmt.Errorf("no network configured: use --network or TXQ_NETWORK")
	}

	client, err := ethclient.DialContext(ctx, c.network.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RPC: %w", err)
	}

	networkChainID, err := client.ChainID(ctx)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to get chain ID: %w", err)
	}
	if c.network.ChainID != 0 && networkChainID.Uint64() != c.network.ChainID {
		client.Close()
		return nil, fmt.Errorf("chain ID mismatch: expected %d, got %d", c.network.ChainID, networkChainID.Uint64())
	}

	c.log.Debug("connected", "network", c.network.Name, "chain_id", networkChainID)
	c.client = client
	c.chainID = networkChainID
	return client, nil
}

// Close releases the RPC connection
func (c *EthClient) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.client != nil {
		c.client.Close()
		c.client = nil
	}
}

// Simulate dry-runs the call against the pending state
func (c *EthClient) Simulate(ctx context.Context, call models.PreparedCall) error {
	client, msg, err := c.callMsg(ctx, call.ChainID, call.From, call.Address, call.ABI, call.FunctionName, call.Args, call.Value, call.Gas)
	if err != nil {
		return err
	}

	if _, err := client.PendingCallContract(ctx, msg); err != nil {
		return decodeRevert(err)
	}
	return nil
}

// Write signs and submits the call
func (c *EthClient) Write(ctx context.Context, call models.PreparedCall) (string, error) {
	client, msg, err := c.callMsg(ctx, call.ChainID, call.From, call.Address, call.ABI, call.FunctionName, call.Args, call.Value, call.Gas)
	if err != nil {
		return "", err
	}

	s, err := c.signers.Lookup(call.From)
	if err != nil {
		return "", err
	}

	nonce, err := client.PendingNonceAt(ctx, s.Address())
	if err != nil {
		return "", fmt.Errorf("failed to get nonce: %w", err)
	}

	tx, err := c.buildTx(ctx, client, nonce, msg)
	if err != nil {
		return "", err
	}

	signed, err := s.SignTx(tx, c.chainID)
	if err != nil {
		return "", err
	}

	if err := client.SendTransaction(ctx, signed); err != nil {
		return "", decodeRevert(err)
	}

	c.log.Debug("transaction sent", "hash", signed.Hash().Hex(), "nonce", nonce, "function", call.FunctionName)
	return signed.Hash().Hex(), nil
}

// ReadContract performs an eth_call and unpacks the method outputs
func (c *EthClient) ReadContract(ctx context.Context, call models.ReadCall) ([]any, error) {
	client, err := c.connect(ctx)
	if err != nil {
		return nil, err
	}
	if err := c.checkChain(call.ChainID); err != nil {
		return nil, err
	}

	method, data, err := packCall(call.ABI, call.FunctionName, call.Args)
	if err != nil {
		return nil, err
	}

	to := common.HexToAddress(call.Address)
	out, err := client.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, nil)
	if err != nil {
		return nil, decodeRevert(err)
	}

	values, err := method.Outputs.Unpack(out)
	if err != nil {
		return nil, fmt.Errorf("failed to unpack %s result: %w", call.FunctionName, err)
	}
	return values, nil
}

// EstimateGas asks the node for a gas estimate
func (c *EthClient) EstimateGas(ctx context.Context, call models.PreparedCall) (uint64, error) {
	client, msg, err := c.callMsg(ctx, call.ChainID, call.From, call.Address, call.ABI, call.FunctionName, call.Args, call.Value, nil)
	if err != nil {
		return 0, err
	}

	gas, err := client.EstimateGas(ctx, msg)
	if err != nil {
		return 0, decodeRevert(err)
	}
	return gas, nil
}

func (c *EthClient) callMsg(ctx context.Context, chainID uint64, from, address, abiJSON, fn string, args []any, value, gas *big.Int) (*ethclient.Client, ethereum.CallMsg, error) {
	client, err := c.connect(ctx)
	if err != nil {
		return nil, ethereum.CallMsg{}, err
	}
	if err := c.checkChain(chainID); err != nil {
		return nil, ethereum.CallMsg{}, err
	}
	if !common.IsHexAddress(address) {
		return nil, ethereum.CallMsg{}, fmt.Errorf("%w: %q", domain.ErrInvalidAddress, address)
	}
	if !common.IsHexAddress(from) {
		return nil, ethereum.CallMsg{}, fmt.Errorf("%w: signer %q", domain.ErrInvalidAddress, from)
	}

	_, data, err := packCall(abiJSON, fn, args)
	if err != nil {
		return nil, ethereum.CallMsg{}, err
	}

	to := common.HexToAddress(address)
	msg := ethereum.CallMsg{
		From:  common.HexToAddress(from),
		To:    &to,
		Value: value,
		Data:  data,
	}
	if gas != nil && gas.IsUint64() {
		msg.Gas = gas.Uint64()
	}
	return client, msg, nil
}

func (c *EthClient) checkChain(chainID uint64) error {
	if chainID != 0 && c.chainID != nil && c.chainID.Uint64() != chainID {
		return fmt.Errorf("transaction targets chain %d but connected to %d", chainID, c.chainID.Uint64())
	}
	return nil
}

// buildTx uses EIP-1559 fees when the head block has a base fee
func (c *EthClient) buildTx(ctx context.Context, client *ethclient.Client, nonce uint64, msg ethereum.CallMsg) (*ethtypes.Transaction, error) {
	value := msg.Value
	if value == nil {
		value = new(big.Int)
	}

	head, err := client.HeaderByNumber(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get latest header: %w", err)
	}

	if head.BaseFee != nil {
		tip, err := client.SuggestGasTipCap(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to get gas tip cap: %w", err)
		}
		feeCap := new(big.Int).Mul(head.BaseFee, big.NewInt(2))
		feeCap.Add(feeCap, tip)

		return ethtypes.NewTx(&ethtypes.DynamicFeeTx{
			ChainID:   c.chainID,
			Nonce:     nonce,
			GasTipCap: tip,
			GasFeeCap: feeCap,
			Gas:       msg.Gas,
			To:        msg.To,
			Value:     value,
			Data:      msg.Data,
		}), nil
	}

	gasPrice, err := client.SuggestGasPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get gas price: %w", err)
	}
	return ethtypes.NewTx(&ethtypes.LegacyTx{
		Nonce:    nonce,
		GasPrice: gasPrice,
		Gas:      msg.Gas,
		To:       msg.To,
		Value:    value,
		Data:     msg.Data,
	}), nil
}

// packCall parses the ABI fragment and encodes the call data
func packCall(abiJSON, fn string, args []any) (abi.Method, []byte, error) {
	parsed, err := abi.JSON(strings.NewReader(abiJSON))
	if err != nil {
		return abi.Method{}, nil, fmt.Errorf("failed to parse ABI: %w", err)
	}

	method, ok := parsed.Methods[fn]
	if !ok {
		return abi.Method{}, nil, fmt.Errorf("function %s not found in ABI", fn)
	}

	coerced, err := CoerceArgs(method.Inputs, args)
	if err != nil {
		return abi.Method{}, nil, fmt.Errorf("invalid arguments for %s: %w", fn, err)
	}

	data, err := parsed.Pack(fn, coerced...)
	if err != nil {
		return abi.Method{}, nil, fmt.Errorf("failed to pack %s: %w", fn, err)
	}
	return method, data, nil
}

// decodeRevert extracts the revert reason carried in JSON-RPC error data
func decodeRevert(err error) error {
	var dataErr rpc.DataError
	if !errors.As(err, &dataErr) {
		return err
	}

	hexData, ok := dataErr.ErrorData().(string)
	if !ok {
		return err
	}
	data, decodeErr := hexutil.Decode(hexData)
	if decodeErr != nil || len(data) == 0 {
		return err
	}

	reason, unpackErr := abi.UnpackRevert(data)
	if unpackErr != nil {
		return &domain.RevertError{Data: hexData}
	}
	return &domain.RevertError{Reason: reason, Data: hexData}
}
