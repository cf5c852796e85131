package config

import (
	"fmt"
	"net/url"
)

// Validate checks runtime config for obvious operator mistakes.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}
	if cfg.Network == "" {
		return fmt.Errorf("network must not be empty")
	}
	for key, endpoint := range map[string]string{
		"rpc.sepolia": cfg.RPC.Sepolia,
		"rpc.mainnet": cfg.RPC.Mainnet,
	} {
		if endpoint == "" {
			continue
		}
		u, err := url.Parse(endpoint)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("%s must be an http(s) URL, got %q", key, endpoint)
		}
	}
	if cfg.Gateway.Timeout <= 0 {
		return fmt.Errorf("gateway.timeout must be positive")
	}
	if cfg.Gateway.HistoryPages < 1 {
		return fmt.Errorf("gateway.historypages must be at least 1")
	}
	if cfg.Gateway.PollInterval <= 0 {
		return fmt.Errorf("gateway.pollinterval must be positive")
	}
	if cfg.Sync.BalanceInterval <= 0 {
		return fmt.Errorf("sync.balanceinterval must be positive")
	}
	if cfg.Sync.HistoryRetries < 0 {
		return fmt.Errorf("sync.historyretries must not be negative")
	}
	if cfg.Sync.ConfirmTimeout < 0 {
		return fmt.Errorf("sync.confirmtimeout must not be negative")
	}
	return nil
}
