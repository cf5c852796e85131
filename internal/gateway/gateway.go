// Package gateway is the wallet's only path to the chain: balance, fee,
// nonce and history reads, raw transaction broadcast, and receipt polling
// against a network's JSON-RPC endpoint.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/Klingon-tech/klingwallet/internal/network"
	"github.com/Klingon-tech/klingwallet/pkg/types"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
)

var (
	// ErrMalformed is returned when the endpoint answers with a payload
	// that does not have the expected shape.
	ErrMalformed = errors.New("malformed response")
	// ErrNoBaseFee is returned for blocks without an EIP-1559 base fee.
	ErrNoBaseFee = errors.New("latest block has no base fee")
)

// DefaultPriorityFee is used when the endpoint cannot suggest a tip (1 gwei).
var DefaultPriorityFee = big.NewInt(1_000_000_000)

// Gateway talks to a network's chain endpoint. Implementations never retry;
// every failure is returned as a *GatewayError.
type Gateway interface {
	GetBalance(ctx context.Context, addr common.Address, net network.Descriptor) (*big.Int, error)
	GetFeeEstimate(ctx context.Context, net network.Descriptor) (FeeEstimate, error)
	GetTransferHistory(ctx context.Context, addr common.Address, net network.Descriptor) ([]RawTransfer, error)
	GetHead(ctx context.Context, net network.Descriptor) (Head, error)
	GetNonce(ctx context.Context, addr common.Address, net network.Descriptor) (uint64, error)
	Broadcast(ctx context.Context, net network.Descriptor, tx *ethtypes.Transaction) (common.Hash, error)
	WaitForConfirmation(ctx context.Context, net network.Descriptor, hash common.Hash, timeout time.Duration) (types.Transaction, error)
}

// FeeEstimate is a fresh EIP-1559 fee suggestion.
type FeeEstimate struct {
	BaseFee     *big.Int
	PriorityFee *big.Int
}

// Head is the latest block, used to anchor timestamp approximation.
type Head struct {
	Number    uint64
	Timestamp time.Time
	BaseFee   *big.Int
}

// GatewayError wraps any failure talking to the chain endpoint.
type GatewayError struct {
	Op      string
	Network string
	Err     error
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("gateway %s on %s: %v", e.Op, e.Network, e.Err)
}

func (e *GatewayError) Unwrap() error {
	return e.Err
}

func wrap(op string, net network.Descriptor, err error) error {
	if err == nil {
		return nil
	}
	return &GatewayError{Op: op, Network: net.ID, Err: err}
}
