// Package types defines the wallet's core domain types.
package types

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

var (
	ErrAddressFormat   = errors.New("address must be 0x followed by 40 hex characters")
	ErrAddressChecksum = errors.New("address checksum mismatch")
)

// ParseAddress validates a hex address. All-lowercase and all-uppercase
// forms are accepted as-is; mixed case must carry a valid EIP-55 checksum.
func ParseAddress(s string) (common.Address, error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "0x") && !strings.HasPrefix(s, "0X") {
		return common.Address{}, ErrAddressFormat
	}
	if !common.IsHexAddress(s) {
		return common.Address{}, ErrAddressFormat
	}
	addr := common.HexToAddress(s)
	body := s[2:]
	if body != strings.ToLower(body) && body != strings.ToUpper(body) {
		if addr.Hex()[2:] != body {
			return common.Address{}, fmt.Errorf("%w: %s", ErrAddressChecksum, s)
		}
	}
	return addr, nil
}

// SameAddress compares two hex addresses case-insensitively.
func SameAddress(a, b string) bool {
	return a != "" && strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}
