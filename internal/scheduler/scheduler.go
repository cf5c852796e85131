// Package scheduler drives periodic and event-triggered refreshes of the
// wallet's balance and transaction history.
package scheduler

import (
	"context"
	"sync"
	"time"

	klog "github.com/Klingon-tech/klingwallet/internal/log"
)

// Refresher performs the actual refreshes. Both methods must be safe to
// call concurrently.
type Refresher interface {
	RefreshBalance(ctx context.Context) error
	RefreshTransactions(ctx context.Context) error
}

// Config holds the refresh policy.
type Config struct {
	// BalanceInterval is the period of balance refreshes.
	BalanceInterval time.Duration
	// HistoryRetries is how many times a failed initial history refresh
	// is retried.
	HistoryRetries int
	// RetryBackoff is the delay before the first retry; it doubles on
	// every further attempt.
	RetryBackoff time.Duration
}

// DefaultConfig returns the default refresh policy.
func DefaultConfig() Config {
	return Config{
		BalanceInterval: 30 * time.Second,
		HistoryRetries:  3,
		RetryBackoff:    2 * time.Second,
	}
}

// Scheduler runs one refresh cycle at a time. History is not polled; it is
// refreshed on Start and on Trigger.
type Scheduler struct {
	refresher Refresher
	cfg       Config

	// lifecycle serializes Start and Stop.
	lifecycle sync.Mutex
	wg        sync.WaitGroup

	mu      sync.Mutex
	cancel  context.CancelFunc
	trigger chan struct{}
	running bool
}

// New creates a scheduler. Zero fields of cfg take their defaults.
func New(refresher Refresher, cfg Config) *Scheduler {
	def := DefaultConfig()
	if cfg.BalanceInterval <= 0 {
		cfg.BalanceInterval = def.BalanceInterval
	}
	if cfg.HistoryRetries < 0 {
		cfg.HistoryRetries = 0
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = def.RetryBackoff
	}
	return &Scheduler{refresher: refresher, cfg: cfg}
}

// Start begins a run bound to ctx: an immediate balance and history
// refresh, then balance refreshes every BalanceInterval. A run already in
// progress is stopped first.
func (s *Scheduler) Start(ctx context.Context) {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()
	s.stop()

	s.mu.Lock()
	defer s.mu.Unlock()

	runCtx, cancel := context.WithCancel(ctx)
	trigger := make(chan struct{}, 1)
	s.cancel = cancel
	s.trigger = trigger
	s.running = true

	s.wg.Add(2)
	go s.balanceLoop(runCtx)
	go s.historyLoop(runCtx, trigger)

	klog.Sync.Debug().Dur("balance_interval", s.cfg.BalanceInterval).Msg("Scheduler started")
}

// Stop cancels the current run and waits for its goroutines, so no timer
// of that run fires afterwards. Stop is a no-op when not running.
func (s *Scheduler) Stop() {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()
	s.stop()
}

func (s *Scheduler) stop() {
	s.mu.Lock()
	cancel := s.cancel
	s.cancel = nil
	s.trigger = nil
	s.running = false
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	s.wg.Wait()
	klog.Sync.Debug().Msg("Scheduler stopped")
}

// Trigger queues a one-shot refresh of balance and history. Triggers that
// arrive while one is queued are coalesced.
func (s *Scheduler) Trigger() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.trigger == nil {
		return
	}
	select {
	case s.trigger <- struct{}{}:
	default:
	}
}

// Running reports whether a run is active.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *Scheduler) balanceLoop(ctx context.Context) {
	defer s.wg.Done()

	s.refreshBalance(ctx)

	ticker := time.NewTicker(s.cfg.BalanceInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.refreshBalance(ctx)
		}
	}
}

func (s *Scheduler) historyLoop(ctx context.Context, trigger <-chan struct{}) {
	defer s.wg.Done()

	s.refreshHistoryWithRetry(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-trigger:
			s.refreshBalance(ctx)
			s.refreshHistory(ctx)
		}
	}
}

func (s *Scheduler) refreshBalance(ctx context.Context) {
	if err := s.refresher.RefreshBalance(ctx); err != nil && ctx.Err() == nil {
		klog.Sync.Warn().Err(err).Msg("Balance refresh failed")
	}
}

func (s *Scheduler) refreshHistory(ctx context.Context) bool {
	err := s.refresher.RefreshTransactions(ctx)
	if err != nil && ctx.Err() == nil {
		klog.Sync.Warn().Err(err).Msg("History refresh failed")
	}
	return err == nil
}

// refreshHistoryWithRetry retries a failed history refresh with
// exponential backoff, up to HistoryRetries extra attempts.
func (s *Scheduler) refreshHistoryWithRetry(ctx context.Context) {
	delay := s.cfg.RetryBackoff
	for attempt := 0; ; attempt++ {
		if s.refreshHistory(ctx) || ctx.Err() != nil || attempt >= s.cfg.HistoryRetries {
			return
		}
		klog.Sync.Debug().Int("attempt", attempt+1).Dur("delay", delay).Msg("Retrying history refresh")

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
		delay *= 2
	}
}
