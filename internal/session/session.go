// Package session is the wallet core a front end drives: it owns the
// connected account, the network selection, the cached balance and history,
// and the send flow.
//
// A Session is either disconnected or connected to exactly one account on
// exactly one network. Each connected period (connect, or a network switch)
// is an epoch with its own context; ending the epoch cancels its in-flight
// calls, and any result that arrives late is discarded.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/Klingon-tech/klingwallet/internal/gateway"
	klog "github.com/Klingon-tech/klingwallet/internal/log"
	"github.com/Klingon-tech/klingwallet/internal/network"
	"github.com/Klingon-tech/klingwallet/internal/scheduler"
	"github.com/Klingon-tech/klingwallet/internal/storage"
	"github.com/Klingon-tech/klingwallet/internal/wallet"
	"github.com/Klingon-tech/klingwallet/pkg/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

// State is the connection state of a Session.
type State string

const (
	StateDisconnected State = "disconnected"
	StateConnected    State = "connected"
)

// SettingsStore persists user preferences.
type SettingsStore interface {
	Load() (storage.Settings, error)
	Save(storage.Settings) error
	Clear() error
}

// Config holds session settings.
type Config struct {
	Sync scheduler.Config
	// ConfirmTimeout bounds the background receipt watch after a send.
	// Zero disables it.
	ConfirmTimeout time.Duration
}

// Deps are the collaborators of a Session.
type Deps struct {
	Registry *network.Registry
	Gateway  gateway.Gateway
	// Settings is optional; nil keeps preferences in memory only.
	Settings SettingsStore
}

type refreshKind int

const (
	kindBalance refreshKind = iota
	kindHistory
	numKinds
)

func (k refreshKind) String() string {
	if k == kindBalance {
		return "balance"
	}
	return "history"
}

// Session is safe for concurrent use.
type Session struct {
	cfg            Config
	registry       *network.Registry
	gw             gateway.Gateway
	settings       SettingsStore
	defaultNetwork string
	sched          *scheduler.Scheduler
	flights        singleflight.Group
	logger         zerolog.Logger

	// opMu serializes connect, switch, logout and reset, including the
	// scheduler restarts they perform. Refreshes and sends never take it.
	opMu sync.Mutex
	// watches tracks background confirmation watches.
	watches sync.WaitGroup

	// mu guards everything below. It is never held across I/O.
	mu          sync.Mutex
	state       State
	account     *wallet.Account
	signer      *wallet.Signer
	epoch       uint64
	epochCtx    context.Context
	epochCancel context.CancelFunc
	nextSeq     [numKinds]uint64
	appliedSeq  [numKinds]uint64
	balance     types.Balance
	txs         []types.Transaction
	txStale     bool
	// local holds hashes of entries created by Send that the history
	// endpoint has not returned yet (lowercase hex).
	local map[string]struct{}
}

// New creates a disconnected session. The last network saved in the
// settings store, if any, becomes current.
func New(cfg Config, deps Deps) (*Session, error) {
	if deps.Registry == nil {
		return nil, errors.New("session: registry is required")
	}
	if deps.Gateway == nil {
		return nil, errors.New("session: gateway is required")
	}
	s := &Session{
		cfg:            cfg,
		registry:       deps.Registry,
		gw:             deps.Gateway,
		settings:       deps.Settings,
		defaultNetwork: deps.Registry.Current().ID,
		logger:         klog.Session,
		state:          StateDisconnected,
		local:          make(map[string]struct{}),
	}
	if s.settings == nil {
		s.settings = newMemorySettings()
	}
	s.sched = scheduler.New(s, cfg.Sync)
	s.restoreNetwork()
	return s, nil
}

func (s *Session) restoreNetwork() {
	saved, err := s.settings.Load()
	if err != nil {
		s.logger.Warn().Err(err).Msg("Could not load settings, using defaults")
		return
	}
	if saved.Network == "" {
		return
	}
	if _, err := s.registry.SwitchCurrent(saved.Network); err != nil {
		s.logger.Warn().Err(err).Str("network", saved.Network).Msg("Saved network is not available")
		return
	}
	s.logger.Debug().Str("network", saved.Network).Msg("Restored last network")
}

// Close disconnects and waits for background work to finish.
func (s *Session) Close() {
	s.Logout()
	s.watches.Wait()
}

// State returns the connection state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// IsConnected reports whether an account is connected.
func (s *Session) IsConnected() bool {
	return s.State() == StateConnected
}

// Address returns the connected address, false when disconnected.
func (s *Session) Address() (common.Address, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.account == nil {
		return common.Address{}, false
	}
	return s.account.Address, true
}

// Phrase returns the recovery phrase of the connected account, empty for
// raw key imports or when disconnected.
func (s *Session) Phrase() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.account == nil {
		return ""
	}
	return s.account.Phrase
}

// Network returns the current network.
func (s *Session) Network() network.Descriptor {
	return s.registry.Current()
}

// Networks returns all selectable networks.
func (s *Session) Networks() []network.Descriptor {
	return s.registry.List()
}

// Balance returns a copy of the cached balance. It is unknown until the
// first successful refresh, and stale after a network switch until the
// next one.
func (s *Session) Balance() types.Balance {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.balance.Copy()
}

// Transactions returns a copy of the cached history, newest first, with
// local pending entries at the head.
func (s *Session) Transactions() []types.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]types.Transaction, len(s.txs))
	copy(out, s.txs)
	return out
}

// TransactionsStale reports whether the cached history belongs to a
// previous network selection.
func (s *Session) TransactionsStale() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.txStale
}

// Settings returns the stored preferences.
func (s *Session) Settings() (storage.Settings, error) {
	return s.settings.Load()
}

// UpdateSettings stores preferences. The network field always reflects the
// current network; use SwitchNetwork to change it.
func (s *Session) UpdateSettings(settings storage.Settings) error {
	settings.Network = s.registry.Current().ID
	return s.settings.Save(settings)
}

// epochSnapshot is the connected state a background operation runs against.
type epochSnapshot struct {
	epoch   uint64
	ctx     context.Context
	address common.Address
	signer  *wallet.Signer
	net     network.Descriptor
	balance types.Balance
}

func (s *Session) snapshot() (epochSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateConnected {
		return epochSnapshot{}, ErrNotConnected
	}
	return epochSnapshot{
		epoch:   s.epoch,
		ctx:     s.epochCtx,
		address: s.account.Address,
		signer:  s.signer,
		net:     s.registry.Current(),
		balance: s.balance.Copy(),
	}, nil
}

// memorySettings is the SettingsStore used when none is supplied.
type memorySettings struct {
	mu sync.Mutex
	s  storage.Settings
}

func newMemorySettings() *memorySettings {
	return &memorySettings{s: storage.DefaultSettings()}
}

func (m *memorySettings) Load() (storage.Settings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.s, nil
}

func (m *memorySettings) Save(s storage.Settings) error {
	if err := s.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.s = s
	return nil
}

func (m *memorySettings) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.s = storage.DefaultSettings()
	return nil
}
