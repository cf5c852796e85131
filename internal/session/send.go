package session

import (
	"context"
	"math/big"
	"strings"
	"time"

	"github.com/Klingon-tech/klingwallet/internal/network"
	"github.com/Klingon-tech/klingwallet/pkg/types"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/params"
)

// FeeTier selects the priority fee relative to the endpoint's suggestion.
type FeeTier string

const (
	FeeSlow     FeeTier = "slow"
	FeeStandard FeeTier = "standard"
	FeeFast     FeeTier = "fast"
)

// tipPercent returns the share of the suggested tip the tier pays.
func (t FeeTier) tipPercent() (int64, bool) {
	switch t {
	case FeeSlow:
		return 80, true
	case FeeStandard, "":
		return 100, true
	case FeeFast:
		return 150, true
	default:
		return 0, false
	}
}

// SendRequest is a native currency transfer as entered by the user.
type SendRequest struct {
	To string
	// Amount is a decimal ether amount, e.g. "0.05".
	Amount  string
	FeeTier FeeTier
}

// SendResult describes a broadcast transfer.
type SendResult struct {
	Hash common.Hash
	// Transaction is the pending entry added to the history.
	Transaction types.Transaction
}

// Send validates req against the connected account, then prices, signs and
// broadcasts the transfer on the current network. Validation failures are
// *ValidationError and make no network call. Later failures are *SendError
// and leave the history unchanged.
func (s *Session) Send(ctx context.Context, req SendRequest) (SendResult, error) {
	snap, err := s.snapshot()
	if err != nil {
		return SendResult{}, err
	}

	to, amount, pct, err := validateSend(req, snap)
	if err != nil {
		return SendResult{}, err
	}

	fee, err := s.gw.GetFeeEstimate(ctx, snap.net)
	if err != nil {
		return SendResult{}, &SendError{Stage: StageFeeEstimate, Err: err}
	}
	nonce, err := s.gw.GetNonce(ctx, snap.address, snap.net)
	if err != nil {
		return SendResult{}, &SendError{Stage: StageNonce, Err: err}
	}

	tip := new(big.Int).Mul(fee.PriorityFee, big.NewInt(pct))
	tip.Div(tip, big.NewInt(100))
	feeCap := new(big.Int).Mul(fee.BaseFee, big.NewInt(2))
	feeCap.Add(feeCap, tip)

	tx := ethtypes.NewTx(&ethtypes.DynamicFeeTx{
		ChainID:   snap.signer.ChainID(),
		Nonce:     nonce,
		GasTipCap: tip,
		GasFeeCap: feeCap,
		Gas:       params.TxGas,
		To:        &to,
		Value:     amount,
	})
	signed, err := snap.signer.SignTx(tx)
	if err != nil {
		return SendResult{}, &SendError{Stage: StageSign, Err: err}
	}

	hash, err := s.gw.Broadcast(ctx, snap.net, signed)
	if err != nil {
		return SendResult{}, &SendError{Stage: StageBroadcast, Err: err}
	}

	now := time.Now()
	entry := types.Transaction{
		Hash:      hash.Hex(),
		From:      snap.address.Hex(),
		To:        to.Hex(),
		Value:     types.FormatEther(amount),
		Asset:     snap.net.CurrencySymbol,
		Status:    types.TxPending,
		Direction: types.DirectionSent,
		Timestamp: &now,
		GasPrice:  feeCap.String(),
	}

	s.logger.Info().
		Str("hash", entry.Hash).
		Str("to", entry.To).
		Str("value", entry.Value).
		Str("network", snap.net.ID).
		Uint64("nonce", nonce).
		Msg("Transaction broadcast")

	watch := s.cfg.ConfirmTimeout > 0
	if !s.recordPending(snap.epoch, entry, watch) {
		s.logger.Debug().Str("hash", entry.Hash).Msg("Session moved on, pending entry not recorded")
		return SendResult{Hash: hash, Transaction: entry}, nil
	}

	s.sched.Trigger()
	if watch {
		go s.watchConfirmation(snap, hash)
	}
	return SendResult{Hash: hash, Transaction: entry}, nil
}

func validateSend(req SendRequest, snap epochSnapshot) (common.Address, *big.Int, int64, error) {
	to, err := types.ParseAddress(strings.TrimSpace(req.To))
	if err != nil {
		return common.Address{}, nil, 0, &ValidationError{Field: "to", Reason: err.Error(), Err: ErrInvalidAddress}
	}
	amount, err := types.ParseEther(strings.TrimSpace(req.Amount))
	if err != nil {
		return common.Address{}, nil, 0, &ValidationError{Field: "amount", Reason: err.Error(), Err: ErrInvalidAmount}
	}
	if amount.Sign() <= 0 {
		return common.Address{}, nil, 0, &ValidationError{Field: "amount", Reason: "must be positive", Err: ErrInvalidAmount}
	}
	pct, ok := req.FeeTier.tipPercent()
	if !ok {
		return common.Address{}, nil, 0, &ValidationError{Field: "fee tier", Reason: string(req.FeeTier), Err: ErrInvalidFeeTier}
	}
	if !spendable(snap.balance, snap.net, amount) {
		return common.Address{}, nil, 0, &ValidationError{
			Field:  "amount",
			Reason: "exceeds balance " + snap.balance.Ether() + " " + snap.net.CurrencySymbol,
			Err:    ErrInsufficientBalance,
		}
	}
	return to, amount, pct, nil
}

// spendable reports whether amount is covered by a fresh balance of net.
// An unknown or stale balance covers nothing.
func spendable(bal types.Balance, net network.Descriptor, amount *big.Int) bool {
	if !bal.Known() || bal.Stale || bal.Network != net.ID {
		return false
	}
	return amount.Cmp(bal.Wei) <= 0
}

// recordPending puts entry at the head of the history if epoch is still
// current. With watch set it also registers a confirmation watch; the
// caller must then start watchConfirmation.
//
// Registering under mu orders every watches.Add before the epoch change
// that Logout makes under mu, so Close never waits concurrently with Add.
func (s *Session) recordPending(epoch uint64, entry types.Transaction, watch bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateConnected || s.epoch != epoch {
		return false
	}
	s.txs = append([]types.Transaction{entry}, s.txs...)
	s.local[strings.ToLower(entry.Hash)] = struct{}{}
	if watch {
		s.watches.Add(1)
	}
	return true
}

// watchConfirmation waits for the receipt of hash and applies it while the
// epoch of snap lasts.
func (s *Session) watchConfirmation(snap epochSnapshot, hash common.Hash) {
	defer s.watches.Done()

	receipt, err := s.gw.WaitForConfirmation(snap.ctx, snap.net, hash, s.cfg.ConfirmTimeout)
	if err != nil {
		if snap.ctx.Err() == nil {
			s.logger.Warn().Err(err).Str("hash", hash.Hex()).Msg("Confirmation watch failed")
		}
		return
	}
	if !receipt.Status.IsTerminal() {
		s.logger.Debug().Str("hash", hash.Hex()).Msg("Transaction still pending after confirm timeout")
		return
	}
	if !s.applyReceipt(snap.epoch, receipt) {
		return
	}
	s.logger.Info().
		Str("hash", hash.Hex()).
		Str("status", string(receipt.Status)).
		Msg("Transaction confirmed")
	s.sched.Trigger()
}
