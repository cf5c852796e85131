package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix prefixes every environment override, e.g. KLINGWALLET_LOG_LEVEL.
const EnvPrefix = "KLINGWALLET"

// envOverrides mirrors the settings that may be set from the environment.
// Unset variables leave the current value untouched.
type envOverrides struct {
	Network         string        `envconfig:"NETWORK"`
	DataDir         string        `envconfig:"DATADIR"`
	SepoliaRPC      string        `envconfig:"SEPOLIA_RPC_URL"`
	MainnetRPC      string        `envconfig:"MAINNET_RPC_URL"`
	GatewayTimeout  time.Duration `envconfig:"GATEWAY_TIMEOUT"`
	BalanceInterval time.Duration `envconfig:"BALANCE_INTERVAL"`
	ConfirmTimeout  time.Duration `envconfig:"CONFIRM_TIMEOUT"`
	LogLevel        string        `envconfig:"LOG_LEVEL"`
	LogFile         string        `envconfig:"LOG_FILE"`
	LogJSON         bool          `envconfig:"LOG_JSON"`
}

// ApplyEnv applies KLINGWALLET_* environment variables to cfg.
func ApplyEnv(cfg *Config) error {
	env := envOverrides{
		Network:         cfg.Network,
		DataDir:         cfg.DataDir,
		SepoliaRPC:      cfg.RPC.Sepolia,
		MainnetRPC:      cfg.RPC.Mainnet,
		GatewayTimeout:  cfg.Gateway.Timeout,
		BalanceInterval: cfg.Sync.BalanceInterval,
		ConfirmTimeout:  cfg.Sync.ConfirmTimeout,
		LogLevel:        cfg.Log.Level,
		LogFile:         cfg.Log.File,
		LogJSON:         cfg.Log.JSON,
	}
	if err := envconfig.Process(EnvPrefix, &env); err != nil {
		return fmt.Errorf("failed to process environment: %w", err)
	}

	cfg.Network = env.Network
	cfg.DataDir = env.DataDir
	cfg.RPC.Sepolia = env.SepoliaRPC
	cfg.RPC.Mainnet = env.MainnetRPC
	cfg.Gateway.Timeout = env.GatewayTimeout
	cfg.Sync.BalanceInterval = env.BalanceInterval
	cfg.Sync.ConfirmTimeout = env.ConfirmTimeout
	cfg.Log.Level = env.LogLevel
	cfg.Log.File = env.LogFile
	cfg.Log.JSON = env.LogJSON
	return nil
}
