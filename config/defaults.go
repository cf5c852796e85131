package config

import "time"

// Default values.
const (
	DefaultNetwork         = "sepolia"
	DefaultGatewayTimeout  = 10 * time.Second
	DefaultHistoryPages    = 5
	DefaultPollInterval    = 4 * time.Second
	DefaultBalanceInterval = 30 * time.Second
	DefaultHistoryRetries  = 3
	DefaultConfirmTimeout  = 2 * time.Minute
)

// Default returns the default wallet configuration.
func Default() *Config {
	return &Config{
		Network: DefaultNetwork,
		DataDir: DefaultDataDir(),
		Gateway: GatewayConfig{
			Timeout:      DefaultGatewayTimeout,
			HistoryPages: DefaultHistoryPages,
			PollInterval: DefaultPollInterval,
		},
		Sync: SyncConfig{
			BalanceInterval: DefaultBalanceInterval,
			HistoryRetries:  DefaultHistoryRetries,
			ConfirmTimeout:  DefaultConfirmTimeout,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}
