package session

import (
	"context"

	"github.com/Klingon-tech/klingwallet/internal/network"
	"github.com/Klingon-tech/klingwallet/internal/wallet"
	"github.com/Klingon-tech/klingwallet/pkg/types"
)

// Generate starts a new account creation. Nothing changes until the
// returned value is passed to Commit; the caller shows the phrase first.
func (s *Session) Generate() (*wallet.PendingAccountCreation, error) {
	return wallet.Generate()
}

// Commit connects the account of a generated phrase, logging out any
// account connected before.
func (s *Session) Commit(pending *wallet.PendingAccountCreation) error {
	acct, err := pending.Commit()
	if err != nil {
		return err
	}
	return s.connect(acct)
}

// ImportFromPhrase connects the account derived from a recovery phrase.
// Invalid input leaves the current session untouched.
func (s *Session) ImportFromPhrase(phrase string) error {
	acct, err := wallet.DeriveFromPhrase(phrase)
	if err != nil {
		return err
	}
	return s.connect(acct)
}

// ImportFromPrivateKey connects the account of a raw hex private key.
// Invalid input leaves the current session untouched.
func (s *Session) ImportFromPrivateKey(hexKey string) error {
	acct, err := wallet.ImportFromPrivateKey(hexKey)
	if err != nil {
		return err
	}
	return s.connect(acct)
}

func (s *Session) connect(acct *wallet.Account) error {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	net := s.registry.Current()
	signer, err := wallet.BindSigner(acct, net)
	if err != nil {
		acct.Zero()
		return err
	}

	s.sched.Stop()

	s.mu.Lock()
	if s.account != nil {
		s.logger.Info().Str("address", s.account.Address.Hex()).Msg("Logging out previous account")
		s.endEpochLocked()
		s.account.Zero()
	}
	s.account = acct
	s.signer = signer
	s.state = StateConnected
	ctx := s.beginEpochLocked()
	s.balance = types.Balance{Network: net.ID}
	s.txs = nil
	s.txStale = false
	s.local = make(map[string]struct{})
	epoch := s.epoch
	s.mu.Unlock()

	s.logger.Info().
		Str("address", acct.Address.Hex()).
		Str("network", net.ID).
		Uint64("epoch", epoch).
		Msg("Wallet connected")

	s.sched.Start(ctx)
	return nil
}

// SwitchNetwork makes id the current network. An unknown id fails with
// network.ErrUnknownNetwork and changes nothing. While connected, in-flight
// refreshes of the previous network are cancelled and their results
// discarded; cached balance and history are kept but marked stale.
func (s *Session) SwitchNetwork(id string) error {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	desc, err := s.registry.Get(id)
	if err != nil {
		return err
	}

	var (
		signer    *wallet.Signer
		connected = s.IsConnected()
	)
	if connected {
		s.mu.Lock()
		signer, err = wallet.BindSigner(s.account, desc)
		s.mu.Unlock()
		if err != nil {
			return err
		}
		s.sched.Stop()
	}

	// Network, epoch and signer change together under mu: a snapshot
	// always sees a signer bound to its descriptor.
	var ctx context.Context
	s.mu.Lock()
	if _, err := s.registry.SwitchCurrent(id); err != nil {
		ctx = s.epochCtx
		s.mu.Unlock()
		if connected {
			s.sched.Start(ctx)
		}
		return err
	}
	if connected {
		s.endEpochLocked()
		ctx = s.beginEpochLocked()
		s.signer = signer
		s.balance.Stale = true
		s.txStale = true
		s.local = make(map[string]struct{})
	}
	s.mu.Unlock()

	s.persistNetwork(desc)
	s.logger.Info().Str("network", desc.ID).Uint64("chain_id", desc.ChainID).Msg("Switched network")

	if connected {
		s.sched.Start(ctx)
	}
	return nil
}

func (s *Session) persistNetwork(desc network.Descriptor) {
	settings, err := s.settings.Load()
	if err != nil {
		s.logger.Warn().Err(err).Msg("Could not load settings, overwriting")
	}
	settings.Network = desc.ID
	if err := s.settings.Save(settings); err != nil {
		s.logger.Warn().Err(err).Str("network", desc.ID).Msg("Could not save network selection")
	}
}

// Logout disconnects the account, zeroes its secrets and drops all cached
// state. Logging out while disconnected is a no-op.
func (s *Session) Logout() {
	s.opMu.Lock()
	defer s.opMu.Unlock()
	s.logout()
}

func (s *Session) logout() {
	s.sched.Stop()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.account == nil {
		return
	}
	addr := s.account.Address.Hex()
	s.endEpochLocked()
	s.account.Zero()
	s.account = nil
	s.signer = nil
	s.state = StateDisconnected
	s.balance = types.Balance{}
	s.txs = nil
	s.txStale = false
	s.local = make(map[string]struct{})
	s.logger.Info().Str("address", addr).Msg("Wallet disconnected")
}

// Reset logs out, clears stored preferences and returns to the default
// network.
func (s *Session) Reset() error {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	s.logout()
	if _, err := s.registry.SwitchCurrent(s.defaultNetwork); err != nil {
		return err
	}
	if err := s.settings.Clear(); err != nil {
		return err
	}
	s.logger.Info().Msg("Wallet reset")
	return nil
}

// beginEpochLocked starts a new epoch and returns its context.
func (s *Session) beginEpochLocked() context.Context {
	s.epoch++
	s.epochCtx, s.epochCancel = context.WithCancel(context.Background())
	return s.epochCtx
}

// endEpochLocked cancels the current epoch. Results tagged with it are
// discarded from here on.
func (s *Session) endEpochLocked() {
	if s.epochCancel != nil {
		s.epochCancel()
		s.epochCancel = nil
	}
	s.epoch++
}
