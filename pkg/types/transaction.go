package types

import (
	"time"
)

// TxStatus is the settlement state of a transaction.
type TxStatus string

const (
	TxPending TxStatus = "pending"
	TxSuccess TxStatus = "success"
	TxFailed  TxStatus = "failed"
)

// IsTerminal reports whether the status will not change any more.
func (s TxStatus) IsTerminal() bool {
	return s == TxSuccess || s == TxFailed
}

// Direction is a transaction's direction relative to the wallet address.
type Direction string

const (
	DirectionSent     Direction = "sent"
	DirectionReceived Direction = "received"
)

// Transaction is the canonical, read-through view of a chain transfer.
// The chain is authoritative; this is a cache entry.
type Transaction struct {
	Hash        string     `json:"hash"`
	From        string     `json:"from"`
	To          string     `json:"to"`
	Value       string     `json:"value"`           // decimal amount
	Asset       string     `json:"asset,omitempty"` // e.g. "ETH", "USDC"
	Status      TxStatus   `json:"status"`
	Direction   Direction  `json:"type"`
	Timestamp   *time.Time `json:"timestamp,omitempty"`
	BlockNumber *uint64    `json:"block_number,omitempty"`
	GasPrice    string     `json:"gas_price,omitempty"`
	GasUsed     string     `json:"gas_used,omitempty"`
}

// IsPending reports whether the entry is a not-yet-settled local submission.
func (t *Transaction) IsPending() bool {
	return t.Status == TxPending
}
