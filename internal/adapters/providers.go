package adapters

import (
	"log/slog"

	"github.com/google/wire"
	"github.com/trebuchet-org/txq/internal/adapters/blockchain"
	"github.com/trebuchet-org/txq/internal/adapters/interactive"
	"github.com/trebuchet-org/txq/internal/adapters/repository/queue"
	"github.com/trebuchet-org/txq/internal/adapters/signer"
	"github.com/trebuchet-org/txq/internal/domain/config"
	"github.com/trebuchet-org/txq/internal/usecase"
)

// ProvideQueueStore opens the configured store backend
func ProvideQueueStore(cfg *config.RuntimeConfig, log *slog.Logger) (*queue.Store, func(), error) {
	store, err := queue.NewStoreFromConfig(cfg, log)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		if err := store.Close(); err != nil {
			log.Warn("failed to close queue store", "error", err)
		}
	}
	return store, cleanup, nil
}

// ProvideSignerRegistry registers the private key configured for the
// selected network, if any
func ProvideSignerRegistry(cfg *config.RuntimeConfig) (*signer.Registry, error) {
	registry := signer.NewRegistry()
	if cfg.Network == nil || cfg.Network.PrivateKey == "" {
		return registry, nil
	}

	s, err := signer.NewPrivateKeySigner(cfg.Network.PrivateKey)
	if err != nil {
		return nil, err
	}
	registry.Register(s)
	return registry, nil
}

// ProvideEthClient creates the chain client and closes it on cleanup
func ProvideEthClient(cfg *config.RuntimeConfig, signers *signer.Registry, log *slog.Logger) (*blockchain.EthClient, func()) {
	client := blockchain.NewEthClient(cfg, signers, log)
	return client, client.Close
}

// StoreSet provides the persistent queue store
var StoreSet = wire.NewSet(
	ProvideQueueStore,
	wire.Bind(new(usecase.QueueStore), new(*queue.Store)),
)

// BlockchainSet provides blockchain-based implementations
var BlockchainSet = wire.NewSet(
	ProvideSignerRegistry,
	ProvideEthClient,
	wire.Bind(new(usecase.ChainClient), new(*blockchain.EthClient)),
)

// InteractiveSet provides interactive implementations
var InteractiveSet = wire.NewSet(
	interactive.NewSelectorAdapter,
	wire.Bind(new(usecase.InteractiveSelector), new(*interactive.SelectorAdapter)),
)

// AllAdapters includes all adapter sets
var AllAdapters = wire.NewSet(
	StoreSet,
	BlockchainSet,
	InteractiveSet,
)
