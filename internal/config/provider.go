package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/trebuchet-org/txq/internal/domain/config"
)

// Provider creates RuntimeConfig for Wire dependency injection
func Provider(v *viper.Viper) (*config.RuntimeConfig, error) {
	projectRoot := v.GetString("project_root")
	if projectRoot == "" {
		var err error
		projectRoot, err = FindProjectRoot()
		if err != nil {
			return nil, fmt.Errorf("failed to find project root: %w", err)
		}
	}

	loadEnvFiles(projectRoot)

	dataDir := v.GetString("data_dir")
	if !filepath.IsAbs(dataDir) {
		dataDir = filepath.Join(projectRoot, dataDir)
	}

	cfg := &config.RuntimeConfig{
		ProjectRoot:    projectRoot,
		DataDir:        dataDir,
		Debug:          v.GetBool("debug"),
		NonInteractive: v.GetBool("non_interactive"),
		JSON:           v.GetBool("json"),
		Timeout:        v.GetDuration("timeout"),
		DefaultGas:     v.GetUint64("executor.default_gas"),
		ItemDelay:      v.GetDuration("executor.item_delay"),
		Store: config.StoreConfig{
			Backend:       config.StoreBackend(v.GetString("store.backend")),
			Path:          v.GetString("store.path"),
			Retention:     v.GetDuration("store.retention"),
			RedisAddr:     v.GetString("store.redis_addr"),
			RedisPassword: v.GetString("store.redis_password"),
			RedisDB:       v.GetInt("store.redis_db"),
			RedisPrefix:   v.GetString("store.redis_prefix"),
		},
	}

	networks, err := loadTxqFile(projectRoot)
	if err != nil {
		return nil, err
	}
	cfg.Networks = networks

	// Resolve network if specified
	if networkName := v.GetString("network"); networkName != "" {
		network, err := NewNetworkResolver(networks).Resolve(networkName)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve network %s: %w", networkName, err)
		}
		if key := v.GetString("private_key"); key != "" {
			network.PrivateKey = key
		}
		cfg.Network = network
	}

	return cfg, nil
}

// FindProjectRoot walks up from the current directory to find txq.toml.
// Without one, the current directory is the project root.
func FindProjectRoot() (string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", err
	}

	dir := cwd
	for {
		if _, err := os.Stat(filepath.Join(dir, FileName)); err == nil {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return cwd, nil
		}
		dir = parent
	}
}

// SetupViper creates and configures a viper instance
func SetupViper(projectRoot string, cmd *cobra.Command) *viper.Viper {
	v := viper.New()

	// Set up environment variables
	v.SetEnvPrefix("TXQ")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))

	// Set defaults
	v.SetDefault("data_dir", ".txq")
	v.SetDefault("network", "")
	v.SetDefault("private_key", "")
	v.SetDefault("timeout", "5m")
	v.SetDefault("debug", false)
	v.SetDefault("non_interactive", false)
	v.SetDefault("json", false)
	v.SetDefault("project_root", projectRoot)
	v.SetDefault("store.backend", string(config.StoreBackendFile))
	v.SetDefault("store.path", "")
	v.SetDefault("store.retention", "24h")
	v.SetDefault("store.redis_addr", "localhost:6379")
	v.SetDefault("store.redis_password", "")
	v.SetDefault("store.redis_db", 0)
	v.SetDefault("store.redis_prefix", "txq")
	v.SetDefault("executor.default_gas", 300000)
	v.SetDefault("executor.item_delay", "1s")

	// Optional local overrides, e.g. .txq/config.json
	dataDir := ".txq"
	if f := cmd.Flags().Lookup("data-dir"); f != nil && f.Value.String() != "" {
		dataDir = f.Value.String()
	}
	if !filepath.IsAbs(dataDir) {
		dataDir = filepath.Join(projectRoot, dataDir)
	}
	v.SetConfigName("config")
	v.SetConfigType("json")
	v.AddConfigPath(dataDir)

	// Try to read config file (ignore error if not found)
	_ = v.ReadInConfig()

	// Flags are bound by their config key name (non-interactive -> non_interactive)
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		key := strings.ReplaceAll(f.Name, "-", "_")
		if err := v.BindPFlag(key, f); err != nil {
			panic(err)
		}
	})

	return v
}
