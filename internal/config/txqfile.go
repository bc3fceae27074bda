package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"github.com/trebuchet-org/txq/internal/domain/config"
)

// FileName is the project configuration file
const FileName = "txq.toml"

// TxqTOML represents the raw txq.toml structure
type TxqTOML struct {
	Networks map[string]config.Network `toml:"networks"`
}

// envVarPattern matches ${VAR_NAME} patterns in TOML values
var envVarPattern = regexp.MustCompile(`^\$\{([A-Za-z_][A-Za-z0-9_]*)\}$`)

// DetectEnvVar checks if a raw TOML value is a simple ${VAR_NAME} reference.
// Returns the variable name and true if the value is a pure env var reference.
func DetectEnvVar(rawValue string) (string, bool) {
	matches := envVarPattern.FindStringSubmatch(rawValue)
	if len(matches) == 2 {
		return matches[1], true
	}
	return "", false
}

// loadEnvFiles loads .env and .env.local from the project root. Values
// already set in the environment win.
func loadEnvFiles(projectRoot string) {
	envFiles := []string{
		filepath.Join(projectRoot, ".env"),
		filepath.Join(projectRoot, ".env.local"),
	}

	for _, envFile := range envFiles {
		if _, err := os.Stat(envFile); err == nil {
			if err := godotenv.Load(envFile); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: Failed to load %s: %v\n", envFile, err)
			}
		}
	}
}

// loadTxqFile parses txq.toml. Env references stay unexpanded until a
// network is resolved. A missing file yields no networks.
func loadTxqFile(projectRoot string) (map[string]config.Network, error) {
	path := filepath.Join(projectRoot, FileName)

	var raw TxqTOML
	if _, err := toml.DecodeFile(path, &raw); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return map[string]config.Network{}, nil
		}
		return nil, fmt.Errorf("failed to parse %s: %w", FileName, err)
	}

	networks := make(map[string]config.Network, len(raw.Networks))
	for name, n := range raw.Networks {
		n.Name = name
		networks[name] = n
	}
	return networks, nil
}

// expand resolves env references; a bare ${VAR} must be set
func expand(raw string) (string, error) {
	if name, ok := DetectEnvVar(raw); ok {
		value, set := os.LookupEnv(name)
		if !set {
			return "", fmt.Errorf("environment variable %s is not set", name)
		}
		return value, nil
	}
	return os.ExpandEnv(raw), nil
}
