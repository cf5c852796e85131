package gateway

import (
	"encoding/json"
	"strings"
)

// Asset transfer categories requested from the history endpoint.
const (
	CategoryExternal = "external"
	CategoryInternal = "internal"
	CategoryERC20    = "erc20"
)

// RawTransfer is one record of alchemy_getAssetTransfers, as returned.
// Fields the provider may omit are left at their zero value.
type RawTransfer struct {
	BlockNum    string       `json:"blockNum"`
	UniqueID    string       `json:"uniqueId"`
	Hash        string       `json:"hash"`
	From        string       `json:"from"`
	To          string       `json:"to"`
	Value       json.Number  `json:"value"`
	Asset       string       `json:"asset"`
	Category    string       `json:"category"`
	RawContract RawContract  `json:"rawContract"`
	Metadata    TransferMeta `json:"metadata"`
}

// RawContract carries the integer amount and token decimals in hex.
type RawContract struct {
	Value   string `json:"value"`
	Address string `json:"address"`
	Decimal string `json:"decimal"`
}

// TransferMeta is the optional metadata block.
type TransferMeta struct {
	BlockTimestamp string `json:"blockTimestamp"`
}

// transfersPage is one page of alchemy_getAssetTransfers.
type transfersPage struct {
	Transfers []RawTransfer `json:"transfers"`
	PageKey   string        `json:"pageKey"`
}

// transfersQuery builds the request object for one direction.
func transfersQuery(direction, addr, pageKey string) map[string]interface{} {
	q := map[string]interface{}{
		"fromBlock":    "0x0",
		"toBlock":      "latest",
		direction:      strings.ToLower(addr),
		"category":     []string{CategoryExternal, CategoryInternal, CategoryERC20},
		"withMetadata": true,
		"order":        "desc",
	}
	if pageKey != "" {
		q["pageKey"] = pageKey
	}
	return q
}
