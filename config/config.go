// Package config handles application configuration.
//
// Settings are resolved in order: built-in defaults, the config file
// (<datadir>/klingwallet.conf), environment variables, then command-line flags.
package config

import (
	"os"
	"path/filepath"
	"runtime"
	"time"
)

// Config holds wallet runtime configuration.
type Config struct {
	// Core
	Network string `conf:"network"` // network id selected at startup
	DataDir string `conf:"datadir"`

	// Per-network RPC endpoint overrides
	RPC RPCConfig

	// Chain gateway
	Gateway GatewayConfig

	// Sync scheduling
	Sync SyncConfig

	// Logging
	Log LogConfig
}

// RPCConfig overrides the built-in RPC endpoints. Empty keeps the default.
type RPCConfig struct {
	Sepolia string `conf:"rpc.sepolia"`
	Mainnet string `conf:"rpc.mainnet"`
}

// GatewayConfig holds chain endpoint client settings.
type GatewayConfig struct {
	Timeout      time.Duration `conf:"gateway.timeout"`      // per-request HTTP timeout
	HistoryPages int           `conf:"gateway.historypages"` // max pages per transfer query
	PollInterval time.Duration `conf:"gateway.pollinterval"` // receipt polling interval
}

// SyncConfig holds refresh policy settings.
type SyncConfig struct {
	BalanceInterval time.Duration `conf:"sync.balanceinterval"`
	HistoryRetries  int           `conf:"sync.historyretries"`
	ConfirmTimeout  time.Duration `conf:"sync.confirmtimeout"` // 0 disables confirmation watching
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `conf:"log.level"`
	File  string `conf:"log.file"`
	JSON  bool   `conf:"log.json"`
}

// =============================================================================
// Directory helpers
// =============================================================================

// DefaultDataDir returns the platform-specific default data directory.
//
//	Linux:   ~/.klingwallet
//	macOS:   ~/Library/Application Support/Klingwallet
//	Windows: %APPDATA%\Klingwallet
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".klingwallet"
	}
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "Klingwallet")
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData != "" {
			return filepath.Join(appData, "Klingwallet")
		}
		return filepath.Join(home, "AppData", "Roaming", "Klingwallet")
	default:
		return filepath.Join(home, ".klingwallet")
	}
}

// SettingsDir returns the settings database directory.
func (c *Config) SettingsDir() string {
	return filepath.Join(c.DataDir, "settings")
}

// LogsDir returns the logs directory.
func (c *Config) LogsDir() string {
	return filepath.Join(c.DataDir, "logs")
}

// ConfigFile returns the config file path.
func (c *Config) ConfigFile() string {
	return filepath.Join(c.DataDir, "klingwallet.conf")
}
