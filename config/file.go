package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// LoadFile loads wallet configuration from a .conf file.
// Format: key = value (one per line, # for comments)
func LoadFile(path string) (map[string]string, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return make(map[string]string), nil
		}
		return nil, err
	}
	defer file.Close()

	values := make(map[string]string)
	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("line %d: invalid format (expected key = value)", lineNum)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		// Remove quotes if present
		if len(value) >= 2 {
			if (value[0] == '"' && value[len(value)-1] == '"') ||
				(value[0] == '\'' && value[len(value)-1] == '\'') {
				value = value[1 : len(value)-1]
			}
		}

		values[key] = value
	}

	return values, scanner.Err()
}

// ApplyFileConfig applies file configuration to a Config struct.
func ApplyFileConfig(cfg *Config, values map[string]string) error {
	for key, value := range values {
		if err := setConfigValue(cfg, key, value); err != nil {
			return fmt.Errorf("config key %q: %w", key, err)
		}
	}
	return nil
}

// setConfigValue sets a config value by key.
func setConfigValue(cfg *Config, key, value string) error {
	switch key {
	// Core
	case "network":
		cfg.Network = strings.ToLower(value)
	case "datadir":
		cfg.DataDir = value

	// RPC endpoints
	case "rpc.sepolia":
		cfg.RPC.Sepolia = value
	case "rpc.mainnet":
		cfg.RPC.Mainnet = value

	// Gateway
	case "gateway.timeout":
		d, err := time.ParseDuration(value)
		if err != nil {
			return err
		}
		cfg.Gateway.Timeout = d
	case "gateway.historypages":
		n, err := strconv.Atoi(value)
		if err != nil {
			return err
		}
		cfg.Gateway.HistoryPages = n
	case "gateway.pollinterval":
		d, err := time.ParseDuration(value)
		if err != nil {
			return err
		}
		cfg.Gateway.PollInterval = d

	// Sync
	case "sync.balanceinterval":
		d, err := time.ParseDuration(value)
		if err != nil {
			return err
		}
		cfg.Sync.BalanceInterval = d
	case "sync.historyretries":
		n, err := strconv.Atoi(value)
		if err != nil {
			return err
		}
		cfg.Sync.HistoryRetries = n
	case "sync.confirmtimeout":
		d, err := time.ParseDuration(value)
		if err != nil {
			return err
		}
		cfg.Sync.ConfirmTimeout = d

	// Logging
	case "log.level":
		cfg.Log.Level = value
	case "log.file":
		cfg.Log.File = value
	case "log.json":
		cfg.Log.JSON = parseBool(value)

	default:
		// Unknown keys are ignored
	}
	return nil
}

// parseBool parses a boolean value.
func parseBool(s string) bool {
	s = strings.ToLower(s)
	return s == "true" || s == "1" || s == "yes" || s == "on"
}

// WriteDefaultConfig writes a default wallet configuration file.
func WriteDefaultConfig(path string) error {
	content := `# Klingwallet Configuration

# Network selected on first start: sepolia or mainnet.
# The last network chosen in the wallet is remembered and takes precedence.
network = ` + DefaultNetwork + `

# Data directory (default: ~/.klingwallet)
# datadir = ~/.klingwallet

# ============================================================================
# RPC Endpoints
# ============================================================================

# Transfer history needs a provider that serves alchemy_getAssetTransfers.
# rpc.sepolia = https://eth-sepolia.g.alchemy.com/v2/<key>
# rpc.mainnet = https://eth-mainnet.g.alchemy.com/v2/<key>

# ============================================================================
# Gateway
# ============================================================================

gateway.timeout = ` + DefaultGatewayTimeout.String() + `
gateway.historypages = ` + strconv.Itoa(DefaultHistoryPages) + `
gateway.pollinterval = ` + DefaultPollInterval.String() + `

# ============================================================================
# Sync
# ============================================================================

sync.balanceinterval = ` + DefaultBalanceInterval.String() + `
sync.historyretries = ` + strconv.Itoa(DefaultHistoryRetries) + `
# Set to 0 to disable watching sent transactions for a receipt.
sync.confirmtimeout = ` + DefaultConfirmTimeout.String() + `

# ============================================================================
# Logging
# ============================================================================

log.level = info
# log.file =
log.json = false
`
	return os.WriteFile(path, []byte(content), 0644)
}
