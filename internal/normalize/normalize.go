// Package normalize turns raw transfer records from the history endpoint
// into the wallet's uniform Transaction model.
package normalize

import (
	"math/big"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/Klingon-tech/klingwallet/internal/gateway"
	klog "github.com/Klingon-tech/klingwallet/internal/log"
	"github.com/Klingon-tech/klingwallet/internal/network"
	"github.com/Klingon-tech/klingwallet/pkg/types"
	"github.com/ethereum/go-ethereum/common"
)

// Options carries the context a record is normalized against.
type Options struct {
	// Self is the wallet address; it decides the direction.
	Self common.Address
	// Network supplies the block time for timestamp approximation.
	Network network.Descriptor
	// Head anchors timestamp approximation. Nil disables it.
	Head *gateway.Head
}

// Normalize converts one raw record. The second result is false when the
// record has no hash and was dropped.
func Normalize(raw gateway.RawTransfer, opts Options) (types.Transaction, bool) {
	if strings.TrimSpace(raw.Hash) == "" {
		klog.Normalize.Debug().
			Str("network", opts.Network.ID).
			Str("block", raw.BlockNum).
			Str("category", raw.Category).
			Msg("Dropping transfer without hash")
		return types.Transaction{}, false
	}

	tx := types.Transaction{
		Hash:      raw.Hash,
		From:      raw.From,
		To:        raw.To,
		Value:     value(raw),
		Asset:     raw.Asset,
		Status:    types.TxSuccess,
		Direction: types.DirectionReceived,
	}
	if types.SameAddress(raw.From, opts.Self.Hex()) {
		tx.Direction = types.DirectionSent
	}

	block, hasBlock := parseHexUint(raw.BlockNum)
	if hasBlock {
		tx.BlockNumber = &block
	}
	tx.Timestamp = timestamp(raw, block, hasBlock, opts)

	return tx, true
}

// value prefers the exact integer amount scaled by the token decimals, then
// the provider's textual value, then "0".
func value(raw gateway.RawTransfer) string {
	if raw.RawContract.Value != "" && raw.RawContract.Decimal != "" {
		amount, okAmount := parseHexBig(raw.RawContract.Value)
		decimals, okDecimals := parseHexUint(raw.RawContract.Decimal)
		if okAmount && okDecimals && decimals <= 77 {
			return types.FormatUnits(amount, int(decimals))
		}
	}
	if v := raw.Value.String(); v != "" {
		return v
	}
	return "0"
}

// timestamp uses the record's block timestamp when present, else
// approximates from the head anchor, else returns nil.
func timestamp(raw gateway.RawTransfer, block uint64, hasBlock bool, opts Options) *time.Time {
	if s := raw.Metadata.BlockTimestamp; s != "" {
		if ts, err := time.Parse(time.RFC3339Nano, s); err == nil {
			ts = ts.UTC()
			return &ts
		}
	}
	head := opts.Head
	if !hasBlock || head == nil || head.Timestamp.IsZero() || opts.Network.BlockTime <= 0 || block > head.Number {
		return nil
	}
	behind := time.Duration(head.Number-block) * opts.Network.BlockTime
	ts := head.Timestamp.Add(-behind).UTC()
	return &ts
}

// NormalizeAll normalizes raws, keeps the first record per hash and orders
// the result newest first.
func NormalizeAll(raws []gateway.RawTransfer, opts Options) []types.Transaction {
	out := make([]types.Transaction, 0, len(raws))
	seen := make(map[string]struct{}, len(raws))
	for _, raw := range raws {
		tx, ok := Normalize(raw, opts)
		if !ok {
			continue
		}
		key := strings.ToLower(tx.Hash)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, tx)
	}
	Sort(out)
	return out
}

// Sort orders txs newest first. Records with a block number come first,
// by block then timestamp; records with only a timestamp follow, by
// timestamp; records with neither keep their arrival order at the end.
func Sort(txs []types.Transaction) {
	slices.SortStableFunc(txs, compareNewest)
}

// compareNewest is a lexicographic comparison on (has block, block,
// has timestamp, timestamp), all descending, so it is a consistent order
// for any mix of keys.
func compareNewest(a, b types.Transaction) int {
	if c := compareOptional(a.BlockNumber != nil, b.BlockNumber != nil); c != 0 {
		return c
	}
	if a.BlockNumber != nil && *a.BlockNumber != *b.BlockNumber {
		if *a.BlockNumber > *b.BlockNumber {
			return -1
		}
		return 1
	}
	if c := compareOptional(a.Timestamp != nil, b.Timestamp != nil); c != 0 {
		return c
	}
	if a.Timestamp != nil && !a.Timestamp.Equal(*b.Timestamp) {
		if a.Timestamp.After(*b.Timestamp) {
			return -1
		}
		return 1
	}
	return 0
}

// compareOptional puts present keys before missing ones.
func compareOptional(aHas, bHas bool) int {
	switch {
	case aHas == bHas:
		return 0
	case aHas:
		return -1
	default:
		return 1
	}
}

func parseHexUint(s string) (uint64, bool) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "0x") && !strings.HasPrefix(s, "0X") {
		return 0, false
	}
	n, err := strconv.ParseUint(s[2:], 16, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

func parseHexBig(s string) (*big.Int, bool) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "0x") && !strings.HasPrefix(s, "0X") {
		return nil, false
	}
	if s[2:] == "" {
		return new(big.Int), true
	}
	return new(big.Int).SetString(s[2:], 16)
}
