package gateway

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	klog "github.com/Klingon-tech/klingwallet/internal/log"
	"github.com/Klingon-tech/klingwallet/internal/network"
	"github.com/Klingon-tech/klingwallet/internal/rpcclient"
	"github.com/Klingon-tech/klingwallet/pkg/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
)

// Config holds RPCGateway settings.
type Config struct {
	Timeout      time.Duration // per HTTP request
	HistoryPages int           // max pages per history direction
	PollInterval time.Duration // receipt polling interval
}

// DefaultConfig returns the default gateway settings.
func DefaultConfig() Config {
	return Config{
		Timeout:      10 * time.Second,
		HistoryPages: 5,
		PollInterval: 4 * time.Second,
	}
}

// RPCGateway implements Gateway over JSON-RPC. One client is kept per
// endpoint URL.
type RPCGateway struct {
	cfg Config

	mu      sync.Mutex
	clients map[string]*rpcclient.Client
}

// New creates an RPCGateway. Zero fields of cfg take their defaults.
func New(cfg Config) *RPCGateway {
	def := DefaultConfig()
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.HistoryPages <= 0 {
		cfg.HistoryPages = def.HistoryPages
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = def.PollInterval
	}
	return &RPCGateway{
		cfg:     cfg,
		clients: make(map[string]*rpcclient.Client),
	}
}

var _ Gateway = (*RPCGateway)(nil)

func (g *RPCGateway) client(net network.Descriptor) *rpcclient.Client {
	g.mu.Lock()
	defer g.mu.Unlock()
	c, ok := g.clients[net.RPCEndpoint]
	if !ok {
		c = rpcclient.NewWithTimeout(net.RPCEndpoint, g.cfg.Timeout)
		g.clients[net.RPCEndpoint] = c
	}
	return c
}

// GetBalance returns the latest native balance of addr in wei.
func (g *RPCGateway) GetBalance(ctx context.Context, addr common.Address, net network.Descriptor) (*big.Int, error) {
	var bal *hexutil.Big
	if err := g.client(net).CallContext(ctx, "eth_getBalance", []interface{}{addr.Hex(), "latest"}, &bal); err != nil {
		return nil, wrap("get balance", net, err)
	}
	if bal == nil {
		return nil, wrap("get balance", net, ErrMalformed)
	}
	return bal.ToInt(), nil
}

// rpcBlock is the subset of a block header the wallet reads.
type rpcBlock struct {
	Number        *hexutil.Uint64 `json:"number"`
	Timestamp     hexutil.Uint64  `json:"timestamp"`
	BaseFeePerGas *hexutil.Big    `json:"baseFeePerGas"`
}

// GetHead returns the latest block header.
func (g *RPCGateway) GetHead(ctx context.Context, net network.Descriptor) (Head, error) {
	head, err := g.head(ctx, net)
	return head, wrap("get head", net, err)
}

func (g *RPCGateway) head(ctx context.Context, net network.Descriptor) (Head, error) {
	var block *rpcBlock
	if err := g.client(net).CallContext(ctx, "eth_getBlockByNumber", []interface{}{"latest", false}, &block); err != nil {
		return Head{}, err
	}
	if block == nil || block.Number == nil {
		return Head{}, ErrMalformed
	}
	head := Head{
		Number:    uint64(*block.Number),
		Timestamp: time.Unix(int64(block.Timestamp), 0).UTC(),
	}
	if block.BaseFeePerGas != nil {
		head.BaseFee = block.BaseFeePerGas.ToInt()
	}
	return head, nil
}

// GetFeeEstimate returns the latest base fee and a suggested tip. The tip
// falls back to DefaultPriorityFee when the endpoint lacks
// eth_maxPriorityFeePerGas.
func (g *RPCGateway) GetFeeEstimate(ctx context.Context, net network.Descriptor) (FeeEstimate, error) {
	head, err := g.head(ctx, net)
	if err != nil {
		return FeeEstimate{}, wrap("fee estimate", net, err)
	}
	if head.BaseFee == nil {
		return FeeEstimate{}, wrap("fee estimate", net, ErrNoBaseFee)
	}

	var tip *hexutil.Big
	err = g.client(net).CallContext(ctx, "eth_maxPriorityFeePerGas", nil, &tip)
	var rpcErr *rpcclient.RPCError
	switch {
	case errors.As(err, &rpcErr) && rpcErr.Code == rpcclient.CodeMethodNotFound:
		klog.Gateway.Debug().Str("network", net.ID).Msg("eth_maxPriorityFeePerGas unsupported, using default tip")
		tip = (*hexutil.Big)(new(big.Int).Set(DefaultPriorityFee))
	case err != nil:
		return FeeEstimate{}, wrap("fee estimate", net, err)
	case tip == nil:
		return FeeEstimate{}, wrap("fee estimate", net, ErrMalformed)
	}

	return FeeEstimate{BaseFee: head.BaseFee, PriorityFee: tip.ToInt()}, nil
}

// GetNonce returns the next nonce for addr, counting pending transactions.
func (g *RPCGateway) GetNonce(ctx context.Context, addr common.Address, net network.Descriptor) (uint64, error) {
	var nonce *hexutil.Uint64
	if err := g.client(net).CallContext(ctx, "eth_getTransactionCount", []interface{}{addr.Hex(), "pending"}, &nonce); err != nil {
		return 0, wrap("get nonce", net, err)
	}
	if nonce == nil {
		return 0, wrap("get nonce", net, ErrMalformed)
	}
	return uint64(*nonce), nil
}

// Broadcast submits a signed transaction and returns its hash without
// waiting for inclusion.
func (g *RPCGateway) Broadcast(ctx context.Context, net network.Descriptor, tx *ethtypes.Transaction) (common.Hash, error) {
	raw, err := tx.MarshalBinary()
	if err != nil {
		return common.Hash{}, wrap("broadcast", net, fmt.Errorf("encode transaction: %w", err))
	}

	var hash *common.Hash
	if err := g.client(net).CallContext(ctx, "eth_sendRawTransaction", []interface{}{hexutil.Encode(raw)}, &hash); err != nil {
		return common.Hash{}, wrap("broadcast", net, err)
	}
	if hash == nil {
		return tx.Hash(), nil
	}
	if *hash != tx.Hash() {
		klog.Gateway.Warn().
			Str("network", net.ID).
			Str("local", tx.Hash().Hex()).
			Str("remote", hash.Hex()).
			Msg("Endpoint returned a different transaction hash")
	}
	return *hash, nil
}

// GetTransferHistory returns asset transfers sent from and received by addr,
// following page keys up to the configured page limit per direction.
func (g *RPCGateway) GetTransferHistory(ctx context.Context, addr common.Address, net network.Descriptor) ([]RawTransfer, error) {
	var all []RawTransfer
	for _, direction := range []string{"fromAddress", "toAddress"} {
		pageKey := ""
		for page := 0; page < g.cfg.HistoryPages; page++ {
			var res *transfersPage
			params := []interface{}{transfersQuery(direction, addr.Hex(), pageKey)}
			if err := g.client(net).CallContext(ctx, "alchemy_getAssetTransfers", params, &res); err != nil {
				return nil, wrap("transfer history", net, err)
			}
			if res == nil {
				break
			}
			all = append(all, res.Transfers...)
			if res.PageKey == "" {
				break
			}
			pageKey = res.PageKey
		}
	}
	if all == nil {
		all = []RawTransfer{}
	}
	return all, nil
}

// rpcReceipt is the subset of a receipt the wallet reads.
type rpcReceipt struct {
	Status            hexutil.Uint64 `json:"status"`
	BlockNumber       hexutil.Uint64 `json:"blockNumber"`
	GasUsed           hexutil.Uint64 `json:"gasUsed"`
	EffectiveGasPrice *hexutil.Big   `json:"effectiveGasPrice"`
	From              string         `json:"from"`
	To                string         `json:"to"`
}

// WaitForConfirmation polls for the receipt of hash until it appears or
// timeout elapses. On timeout the transaction is returned as pending with a
// nil error. Cancelling ctx returns ctx.Err().
func (g *RPCGateway) WaitForConfirmation(ctx context.Context, net network.Descriptor, hash common.Hash, timeout time.Duration) (types.Transaction, error) {
	pending := types.Transaction{Hash: hash.Hex(), Status: types.TxPending}

	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(g.cfg.PollInterval)
	defer ticker.Stop()

	for {
		var rcpt *rpcReceipt
		err := g.client(net).CallContext(waitCtx, "eth_getTransactionReceipt", []interface{}{hash.Hex()}, &rcpt)
		switch {
		case ctx.Err() != nil:
			return pending, wrap("wait confirmation", net, ctx.Err())
		case waitCtx.Err() != nil:
			return pending, nil
		case err != nil:
			return pending, wrap("wait confirmation", net, err)
		case rcpt != nil:
			return receiptTransaction(hash, rcpt), nil
		}

		select {
		case <-ctx.Done():
			return pending, wrap("wait confirmation", net, ctx.Err())
		case <-waitCtx.Done():
			return pending, nil
		case <-ticker.C:
		}
	}
}

func receiptTransaction(hash common.Hash, rcpt *rpcReceipt) types.Transaction {
	tx := types.Transaction{
		Hash:    hash.Hex(),
		From:    strings.ToLower(rcpt.From),
		To:      strings.ToLower(rcpt.To),
		Status:  types.TxFailed,
		GasUsed: fmt.Sprintf("%d", uint64(rcpt.GasUsed)),
	}
	if rcpt.Status == 1 {
		tx.Status = types.TxSuccess
	}
	block := uint64(rcpt.BlockNumber)
	tx.BlockNumber = &block
	if rcpt.EffectiveGasPrice != nil {
		tx.GasPrice = rcpt.EffectiveGasPrice.ToInt().String()
	}
	return tx
}
