package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Klingon-tech/klingwallet/internal/normalize"
	"github.com/Klingon-tech/klingwallet/pkg/types"
)

// errStale marks a result that arrived after its epoch ended or after a
// newer result of the same kind was applied.
var errStale = errors.New("stale result")

// RefreshBalance fetches the balance of the connected account on the
// current network. Concurrent calls within one epoch share a single
// gateway call. On failure the cached balance is left as it was.
func (s *Session) RefreshBalance(ctx context.Context) error {
	return s.refresh(ctx, kindBalance, s.refreshBalance)
}

// RefreshTransactions fetches and normalizes the transfer history of the
// connected account on the current network. Local pending entries the
// endpoint does not know yet stay at the head of the list.
func (s *Session) RefreshTransactions(ctx context.Context) error {
	return s.refresh(ctx, kindHistory, s.refreshHistory)
}

func (s *Session) refresh(ctx context.Context, kind refreshKind, fn func(epochSnapshot) error) error {
	snap, err := s.snapshot()
	if err != nil {
		return err
	}
	key := fmt.Sprintf("%s/%d", kind, snap.epoch)
	ch := s.flights.DoChan(key, func() (interface{}, error) {
		return nil, fn(snap)
	})
	select {
	case <-ctx.Done():
		return ctx.Err()
	case res := <-ch:
		if errors.Is(res.Err, errStale) {
			return nil
		}
		return res.Err
	}
}

// beginRefresh hands out the sequence number of a new refresh of kind.
func (s *Session) beginRefresh(kind refreshKind) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextSeq[kind]++
	return s.nextSeq[kind]
}

// acceptLocked reports whether a result of (epoch, seq) may be applied,
// recording seq as the latest applied one when it may.
func (s *Session) acceptLocked(kind refreshKind, epoch, seq uint64) bool {
	if s.state != StateConnected || s.epoch != epoch || seq <= s.appliedSeq[kind] {
		return false
	}
	s.appliedSeq[kind] = seq
	return true
}

func (s *Session) refreshBalance(snap epochSnapshot) error {
	seq := s.beginRefresh(kindBalance)
	wei, err := s.gw.GetBalance(snap.ctx, snap.address, snap.net)
	if err != nil {
		if snap.ctx.Err() != nil {
			return errStale
		}
		s.logger.Warn().Err(err).Str("network", snap.net.ID).Msg("Balance refresh failed")
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.acceptLocked(kindBalance, snap.epoch, seq) {
		s.logger.Debug().Uint64("epoch", snap.epoch).Uint64("seq", seq).Msg("Discarding stale balance")
		return errStale
	}
	s.balance = types.Balance{
		Network:   snap.net.ID,
		Wei:       wei,
		UpdatedAt: time.Now(),
	}
	s.logger.Debug().
		Str("network", snap.net.ID).
		Str("balance", types.FormatEther(wei)).
		Msg("Balance updated")
	return nil
}

func (s *Session) refreshHistory(snap epochSnapshot) error {
	seq := s.beginRefresh(kindHistory)

	opts := normalize.Options{Self: snap.address, Network: snap.net}
	if head, err := s.gw.GetHead(snap.ctx, snap.net); err == nil {
		opts.Head = &head
	} else if snap.ctx.Err() == nil {
		s.logger.Debug().Err(err).Str("network", snap.net.ID).Msg("No head for timestamp approximation")
	}

	raws, err := s.gw.GetTransferHistory(snap.ctx, snap.address, snap.net)
	if err != nil {
		if snap.ctx.Err() != nil {
			return errStale
		}
		s.logger.Warn().Err(err).Str("network", snap.net.ID).Msg("History refresh failed")
		return err
	}
	txs := normalize.NormalizeAll(raws, opts)

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.acceptLocked(kindHistory, snap.epoch, seq) {
		s.logger.Debug().Uint64("epoch", snap.epoch).Uint64("seq", seq).Msg("Discarding stale history")
		return errStale
	}
	s.txs = s.reconcileLocked(txs)
	s.txStale = false
	s.logger.Debug().
		Str("network", snap.net.ID).
		Int("count", len(s.txs)).
		Msg("History updated")
	return nil
}

// reconcileLocked merges fetched history with local entries. A local entry
// is dropped once the endpoint returns its hash; until then it stays ahead
// of the fetched list.
func (s *Session) reconcileLocked(fetched []types.Transaction) []types.Transaction {
	if len(s.local) == 0 {
		return fetched
	}
	known := make(map[string]struct{}, len(fetched))
	for _, tx := range fetched {
		known[strings.ToLower(tx.Hash)] = struct{}{}
	}
	out := make([]types.Transaction, 0, len(s.local)+len(fetched))
	for _, tx := range s.txs {
		key := strings.ToLower(tx.Hash)
		if _, ok := s.local[key]; !ok {
			continue
		}
		if _, ok := known[key]; ok {
			delete(s.local, key)
			continue
		}
		out = append(out, tx)
	}
	return append(out, fetched...)
}

// applyReceipt updates a local entry with the outcome of its receipt.
func (s *Session) applyReceipt(epoch uint64, receipt types.Transaction) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.epoch != epoch {
		return false
	}
	for i := range s.txs {
		if !strings.EqualFold(s.txs[i].Hash, receipt.Hash) {
			continue
		}
		tx := s.txs[i]
		tx.Status = receipt.Status
		tx.BlockNumber = receipt.BlockNumber
		if receipt.GasUsed != "" {
			tx.GasUsed = receipt.GasUsed
		}
		if receipt.GasPrice != "" {
			tx.GasPrice = receipt.GasPrice
		}
		s.txs[i] = tx
		return true
	}
	return false
}
