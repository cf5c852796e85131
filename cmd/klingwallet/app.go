package main

import (
	"fmt"
	"os"
	"sync"

	"github.com/Klingon-tech/klingwallet/config"
	"github.com/Klingon-tech/klingwallet/internal/gateway"
	"github.com/Klingon-tech/klingwallet/internal/network"
	"github.com/Klingon-tech/klingwallet/internal/scheduler"
	"github.com/Klingon-tech/klingwallet/internal/session"
	"github.com/Klingon-tech/klingwallet/internal/storage"
)

// app wires the configured components for one command invocation.
type app struct {
	cfg  *config.Config
	db   *storage.BadgerDB
	sess *session.Session

	closeOnce sync.Once
}

func newApp(cfg *config.Config, explicitNetwork bool) (*app, error) {
	registry, err := network.NewRegistry(cfg.Network, network.Defaults(map[string]string{
		network.Sepolia: cfg.RPC.Sepolia,
		network.Mainnet: cfg.RPC.Mainnet,
	})...)
	if err != nil {
		return nil, err
	}

	db, err := storage.NewBadger(cfg.SettingsDir())
	if err != nil {
		return nil, fmt.Errorf("open settings: %w", err)
	}

	gw := gateway.New(gateway.Config{
		Timeout:      cfg.Gateway.Timeout,
		HistoryPages: cfg.Gateway.HistoryPages,
		PollInterval: cfg.Gateway.PollInterval,
	})

	sess, err := session.New(session.Config{
		Sync: scheduler.Config{
			BalanceInterval: cfg.Sync.BalanceInterval,
			HistoryRetries:  cfg.Sync.HistoryRetries,
		},
		ConfirmTimeout: cfg.Sync.ConfirmTimeout,
	}, session.Deps{
		Registry: registry,
		Gateway:  gw,
		Settings: storage.NewSettingsStore(db),
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	if explicitNetwork {
		if err := sess.SwitchNetwork(cfg.Network); err != nil {
			sess.Close()
			db.Close()
			return nil, err
		}
	}

	return &app{cfg: cfg, db: db, sess: sess}, nil
}

func (a *app) close() {
	a.closeOnce.Do(func() {
		a.sess.Close()
		if err := a.db.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: close settings: %v\n", err)
		}
	})
}

// fatal releases the app before exiting.
func (a *app) fatal(format string, args ...interface{}) {
	a.close()
	fatal(format, args...)
}
