package session

import (
	"context"
	"errors"
	"math/big"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Klingon-tech/klingwallet/internal/gateway"
	"github.com/Klingon-tech/klingwallet/internal/network"
	"github.com/Klingon-tech/klingwallet/pkg/types"
)

func TestRefreshBalance_Coalesces(t *testing.T) {
	gw := newFakeGateway()
	s := connectedSession(t, gw)

	var entered atomic.Int32
	release := make(chan struct{})
	gw.setBalanceFn(func(ctx context.Context, net network.Descriptor) (*big.Int, error) {
		entered.Add(1)
		<-release
		return ether(2), nil
	})

	const callers = 5
	var wg sync.WaitGroup
	errs := make(chan error, callers)
	wg.Add(1)
	go func() {
		defer wg.Done()
		errs <- s.RefreshBalance(context.Background())
	}()
	waitFor(t, "first refresh in flight", func() bool { return entered.Load() == 1 })
	for i := 1; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- s.RefreshBalance(context.Background())
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Errorf("RefreshBalance() error: %v", err)
		}
	}
	if n := entered.Load(); n != 1 {
		t.Errorf("gateway balance calls = %d, want 1", n)
	}
	if got := s.Balance().Wei; got.Cmp(ether(2)) != 0 {
		t.Errorf("Balance().Wei = %s, want %s", got, ether(2))
	}
}

// waitApplied waits until a refresh of kind has landed.
func waitApplied(t *testing.T, s *Session, kind refreshKind) {
	t.Helper()
	waitFor(t, kind.String()+" applied", func() bool {
		s.mu.Lock()
		defer s.mu.Unlock()
		return s.appliedSeq[kind] > 0
	})
}

func TestRefreshTransactions_Coalesces(t *testing.T) {
	gw := newFakeGateway()
	s := connectedSession(t, gw)
	waitApplied(t, s, kindHistory)

	var entered atomic.Int32
	release := make(chan struct{})
	gw.setHistoryFn(func(ctx context.Context, net network.Descriptor) ([]gateway.RawTransfer, error) {
		entered.Add(1)
		<-release
		return []gateway.RawTransfer{
			rawTransfer("0xaa", testRecipient, testAddress, "0x10", ""),
		}, nil
	})

	const callers = 5
	var wg sync.WaitGroup
	errs := make(chan error, callers)
	wg.Add(1)
	go func() {
		defer wg.Done()
		errs <- s.RefreshTransactions(context.Background())
	}()
	waitFor(t, "first history refresh in flight", func() bool { return entered.Load() == 1 })
	for i := 1; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- s.RefreshTransactions(context.Background())
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Errorf("RefreshTransactions() error: %v", err)
		}
	}
	if n := entered.Load(); n != 1 {
		t.Errorf("gateway history calls = %d, want 1", n)
	}
	if n := len(s.Transactions()); n != 1 {
		t.Errorf("Transactions() len = %d, want 1", n)
	}
}

func TestRefreshBalance_CallerCancel(t *testing.T) {
	gw := newFakeGateway()
	s := connectedSession(t, gw)

	release := make(chan struct{})
	defer close(release)
	gw.setBalanceFn(func(ctx context.Context, net network.Descriptor) (*big.Int, error) {
		<-release
		return ether(2), nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := s.RefreshBalance(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("RefreshBalance() error = %v, want DeadlineExceeded", err)
	}
}

func TestRefreshBalance_FailureKeepsCache(t *testing.T) {
	gw := newFakeGateway()
	s := connectedSession(t, gw)
	before := s.Balance()

	gw.setBalanceFn(func(ctx context.Context, net network.Descriptor) (*big.Int, error) {
		return nil, errors.New("endpoint down")
	})
	if err := s.RefreshBalance(context.Background()); err == nil {
		t.Fatal("RefreshBalance() should fail")
	}
	after := s.Balance()
	if after.Wei.Cmp(before.Wei) != 0 || after.Network != before.Network {
		t.Errorf("Balance() = %+v, want unchanged %+v", after, before)
	}
}

func TestRefreshBalance_StaleSeqDiscarded(t *testing.T) {
	gw := newFakeGateway()
	s := connectedSession(t, gw)

	var calls atomic.Int32
	entered := make(chan struct{})
	release := make(chan struct{})
	gw.setBalanceFn(func(ctx context.Context, net network.Descriptor) (*big.Int, error) {
		if calls.Add(1) == 1 {
			close(entered)
			<-release
			return ether(7), nil
		}
		return ether(3), nil
	})

	snap, err := s.snapshot()
	if err != nil {
		t.Fatalf("snapshot() error: %v", err)
	}
	older := make(chan error, 1)
	go func() { older <- s.refreshBalance(snap) }()
	<-entered

	if err := s.refreshBalance(snap); err != nil {
		t.Fatalf("newer refreshBalance() error: %v", err)
	}
	close(release)
	if err := <-older; !errors.Is(err, errStale) {
		t.Errorf("older refreshBalance() error = %v, want errStale", err)
	}
	if got := s.Balance().Wei; got.Cmp(ether(3)) != 0 {
		t.Errorf("Balance().Wei = %s, want %s from the newer refresh", got, ether(3))
	}
}

func TestRefreshBalance_SwitchDiscardsInFlight(t *testing.T) {
	gw := newFakeGateway()
	s := connectedSession(t, gw)

	entered := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	gw.setBalanceFn(func(ctx context.Context, net network.Descriptor) (*big.Int, error) {
		if net.ID == network.Sepolia {
			once.Do(func() { close(entered) })
			// Ignore cancellation to model a response already on the wire.
			<-release
			return ether(5), nil
		}
		return ether(2), nil
	})

	done := make(chan error, 1)
	go func() { done <- s.RefreshBalance(context.Background()) }()
	<-entered

	if err := s.SwitchNetwork(network.Mainnet); err != nil {
		t.Fatalf("SwitchNetwork() error: %v", err)
	}
	waitFor(t, "mainnet balance", func() bool {
		b := s.Balance()
		return b.Network == network.Mainnet && !b.Stale
	})

	close(release)
	if err := <-done; err != nil {
		t.Errorf("RefreshBalance() error = %v, want nil for a discarded result", err)
	}
	bal := s.Balance()
	if bal.Network != network.Mainnet || bal.Wei.Cmp(ether(2)) != 0 {
		t.Errorf("Balance() = %+v, want 2 ETH on mainnet", bal)
	}
}

func rawTransfer(hash, from, to, block, ts string) gateway.RawTransfer {
	r := gateway.RawTransfer{
		Hash:     hash,
		From:     from,
		To:       to,
		BlockNum: block,
		Value:    "0.5",
		Asset:    "ETH",
		Category: gateway.CategoryExternal,
	}
	r.Metadata.BlockTimestamp = ts
	return r
}

func TestRefreshTransactions_Normalizes(t *testing.T) {
	gw := newFakeGateway()
	self := strings.ToLower(testAddress)
	gw.transfers[network.Sepolia] = []gateway.RawTransfer{
		rawTransfer("0xaa", testRecipient, self, "0x10", "2024-01-01T00:00:00.000Z"),
		rawTransfer("0xbb", self, testRecipient, "0x20", "2024-01-02T00:00:00.000Z"),
		rawTransfer("0xaa", testRecipient, self, "0x10", "2024-01-01T00:00:00.000Z"),
		rawTransfer("", testRecipient, self, "0x30", ""),
	}
	s := connectedSession(t, gw)
	waitFor(t, "history", func() bool { return len(s.Transactions()) > 0 })

	txs := s.Transactions()
	if len(txs) != 2 {
		t.Fatalf("Transactions() len = %d, want 2", len(txs))
	}
	if txs[0].Hash != "0xbb" || txs[1].Hash != "0xaa" {
		t.Errorf("order = [%s %s], want [0xbb 0xaa]", txs[0].Hash, txs[1].Hash)
	}
	if txs[0].Direction != types.DirectionSent {
		t.Errorf("txs[0].Direction = %s, want %s", txs[0].Direction, types.DirectionSent)
	}
	if txs[1].Direction != types.DirectionReceived {
		t.Errorf("txs[1].Direction = %s, want %s", txs[1].Direction, types.DirectionReceived)
	}
	if gw.count("head") == 0 {
		t.Error("history refresh should fetch the head for timestamp approximation")
	}
}

func TestRefreshTransactions_Empty(t *testing.T) {
	gw := newFakeGateway()
	s := connectedSession(t, gw)

	if err := s.RefreshTransactions(context.Background()); err != nil {
		t.Fatalf("RefreshTransactions() error: %v", err)
	}
	if n := len(s.Transactions()); n != 0 {
		t.Errorf("Transactions() len = %d, want 0", n)
	}
	if !s.IsConnected() {
		t.Error("empty history must not change the session state")
	}
}

func TestRefreshTransactions_FailureKeepsCache(t *testing.T) {
	gw := newFakeGateway()
	gw.transfers[network.Sepolia] = []gateway.RawTransfer{
		rawTransfer("0xaa", testRecipient, testAddress, "0x10", ""),
	}
	s := connectedSession(t, gw)
	waitFor(t, "history", func() bool { return len(s.Transactions()) == 1 })

	gw.mu.Lock()
	gw.historyErr = errors.New("endpoint down")
	gw.mu.Unlock()

	if err := s.RefreshTransactions(context.Background()); err == nil {
		t.Fatal("RefreshTransactions() should fail")
	}
	if n := len(s.Transactions()); n != 1 {
		t.Errorf("Transactions() len = %d, want cached 1", n)
	}
}

func TestReconcile_KeepsLocalUntilReturned(t *testing.T) {
	gw := newFakeGateway()
	gw.transfers[network.Sepolia] = []gateway.RawTransfer{
		rawTransfer("0xaa", testRecipient, testAddress, "0x10", ""),
	}
	s := connectedSession(t, gw)
	waitFor(t, "history", func() bool { return len(s.Transactions()) == 1 })

	res, err := s.Send(context.Background(), SendRequest{To: testRecipient, Amount: "0.1"})
	if err != nil {
		t.Fatalf("Send() error: %v", err)
	}
	hash := res.Hash.Hex()

	if err := s.RefreshTransactions(context.Background()); err != nil {
		t.Fatalf("RefreshTransactions() error: %v", err)
	}
	txs := s.Transactions()
	if len(txs) != 2 || txs[0].Hash != hash || txs[0].Status != types.TxPending {
		t.Fatalf("Transactions() = %+v, want pending %s at head", txs, hash)
	}

	gw.mu.Lock()
	gw.transfers[network.Sepolia] = append(gw.transfers[network.Sepolia],
		rawTransfer(strings.ToLower(hash), testAddress, testRecipient, "0x11", ""))
	gw.mu.Unlock()

	waitFor(t, "endpoint to return the sent transaction", func() bool {
		if err := s.RefreshTransactions(context.Background()); err != nil {
			t.Fatalf("RefreshTransactions() error: %v", err)
		}
		return !s.Transactions()[0].IsPending()
	})
	txs = s.Transactions()
	if len(txs) != 2 {
		t.Fatalf("Transactions() len = %d, want 2", len(txs))
	}
	if !strings.EqualFold(txs[0].Hash, hash) || txs[0].Status != types.TxSuccess {
		t.Errorf("txs[0] = %+v, want settled %s", txs[0], hash)
	}
}
