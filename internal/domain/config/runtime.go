package config

import (
	"time"
)

// RuntimeConfig represents the complete runtime configuration
// This is injected into use cases and contains all resolved settings
type RuntimeConfig struct {
	// Core settings
	ProjectRoot string
	DataDir     string

	// Context settings
	Network  *Network           // nil if not specified
	Networks map[string]Network // every network declared in txq.toml

	// Execution settings
	Debug          bool
	NonInteractive bool
	JSON           bool // Output in JSON format
	Timeout        time.Duration

	// Executor tuning
	DefaultGas uint64
	ItemDelay  time.Duration

	// Persistence
	Store StoreConfig
}

// Network represents network configuration
type Network struct {
	ChainID     uint64 `json:"chainId" toml:"chain_id"`
	Name        string `json:"name" toml:"-"`
	RPCURL      string `json:"rpcUrl" toml:"rpc_url"`
	ExplorerURL string `json:"explorerUrl,omitempty" toml:"explorer_url"`
	PrivateKey  string `json:"-" toml:"private_key"`
}

// StoreBackend selects where the queue record is persisted
type StoreBackend string

const (
	StoreBackendFile   StoreBackend = "file"
	StoreBackendPebble StoreBackend = "pebble"
	StoreBackendRedis  StoreBackend = "redis"
)

// StoreConfig configures the persistent queue store
type StoreConfig struct {
	Backend   StoreBackend
	Path      string // file or pebble directory
	Retention time.Duration

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisPrefix   string
}
