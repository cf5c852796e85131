// Package network is the catalog of EVM networks the wallet can talk to
// and tracks which one is current.
package network

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrUnknownNetwork is returned for ids that are not registered.
var ErrUnknownNetwork = errors.New("unknown network")

// Descriptor describes one EVM network. Descriptors are immutable once
// registered.
type Descriptor struct {
	ID              string
	DisplayName     string
	ChainID         uint64
	RPCEndpoint     string
	CurrencySymbol  string
	ExplorerBaseURL string
	// BlockTime is the average block interval, used to approximate
	// timestamps of records that carry only a block number.
	BlockTime time.Duration
}

// TxURL returns the explorer page of a transaction.
func (d Descriptor) TxURL(hash string) string {
	return strings.TrimRight(d.ExplorerBaseURL, "/") + "/tx/" + hash
}

// AddressURL returns the explorer page of an address.
func (d Descriptor) AddressURL(addr string) string {
	return strings.TrimRight(d.ExplorerBaseURL, "/") + "/address/" + addr
}

func (d Descriptor) validate() error {
	if d.ID == "" {
		return fmt.Errorf("network id must not be empty")
	}
	if d.ChainID == 0 {
		return fmt.Errorf("network %s: chain id must not be zero", d.ID)
	}
	if d.RPCEndpoint == "" {
		return fmt.Errorf("network %s: rpc endpoint must not be empty", d.ID)
	}
	return nil
}

// Well-known network ids.
const (
	Sepolia = "sepolia"
	Mainnet = "mainnet"
)

// Default public RPC endpoints.
const (
	DefaultSepoliaRPC = "https://eth-sepolia.blockpi.io/v1/rpc/public"
	DefaultMainnetRPC = "https://eth-mainnet.blockpi.io/v1/rpc/public"
)

// Defaults returns the built-in networks, Sepolia first. Non-empty entries
// in rpcOverrides (keyed by network id) replace the default endpoint.
func Defaults(rpcOverrides map[string]string) []Descriptor {
	descs := []Descriptor{
		{
			ID:              Sepolia,
			DisplayName:     "Sepolia Testnet",
			ChainID:         11155111,
			RPCEndpoint:     DefaultSepoliaRPC,
			CurrencySymbol:  "ETH",
			ExplorerBaseURL: "https://sepolia.etherscan.io",
			BlockTime:       12 * time.Second,
		},
		{
			ID:              Mainnet,
			DisplayName:     "Ethereum Mainnet",
			ChainID:         1,
			RPCEndpoint:     DefaultMainnetRPC,
			CurrencySymbol:  "ETH",
			ExplorerBaseURL: "https://etherscan.io",
			BlockTime:       12 * time.Second,
		},
	}
	for i := range descs {
		if url := rpcOverrides[descs[i].ID]; url != "" {
			descs[i].RPCEndpoint = url
		}
	}
	return descs
}
