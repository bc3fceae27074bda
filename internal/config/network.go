package config

import (
	"fmt"
	"os"
	"sort"

	"github.com/trebuchet-org/txq/internal/domain"
	"github.com/trebuchet-org/txq/internal/domain/config"
)

// NetworkResolver resolves network names to configurations
type NetworkResolver struct {
	networks map[string]config.Network
}

// NewNetworkResolver creates a new network resolver
func NewNetworkResolver(networks map[string]config.Network) *NetworkResolver {
	return &NetworkResolver{networks: networks}
}

// Resolve resolves a network name to its configuration
func (r *NetworkResolver) Resolve(networkName string) (*config.Network, error) {
	n, ok := r.networks[networkName]
	if !ok {
		return nil, fmt.Errorf("%w: '%s' not found in %s [networks]", domain.ErrUnknownNetwork, networkName, FileName)
	}

	rpcURL, err := expand(n.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("network %s rpc_url: %w", networkName, err)
	}
	if rpcURL == "" {
		return nil, fmt.Errorf("network '%s' has no rpc_url", networkName)
	}
	key, err := expand(n.PrivateKey)
	if err != nil {
		return nil, fmt.Errorf("network %s private_key: %w", networkName, err)
	}

	n.Name = networkName
	n.RPCURL = rpcURL
	n.PrivateKey = key
	n.ExplorerURL = os.ExpandEnv(n.ExplorerURL)
	if n.ExplorerURL == "" {
		n.ExplorerURL = getExplorerURL(n.ChainID)
	}
	return &n, nil
}

// Names returns the configured network names, sorted
func (r *NetworkResolver) Names() []string {
	names := make([]string, 0, len(r.networks))
	for name := range r.networks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// getExplorerURL returns a default explorer URL for well-known chains
func getExplorerURL(chainID uint64) string {
	switch chainID {
	case 1:
		return "https://etherscan.io"
	case 11155111:
		return "https://sepolia.etherscan.io"
	case 10:
		return "https://optimistic.etherscan.io"
	case 137:
		return "https://polygonscan.com"
	case 8453:
		return "https://basescan.org"
	case 84532:
		return "https://sepolia.basescan.org"
	case 42161:
		return "https://arbiscan.io"
	case 43114:
		return "https://snowtrace.io"
	case 56:
		return "https://bscscan.com"
	case 324:
		return "https://explorer.zksync.io"
	case 42220:
		return "https://celoscan.io"
	default:
		return ""
	}
}
