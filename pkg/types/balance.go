package types

import (
	"math/big"
	"time"
)

// Balance is a native-currency balance scoped to one (account, network) pair.
type Balance struct {
	Network   string    `json:"network"`
	Wei       *big.Int  `json:"wei"`
	UpdatedAt time.Time `json:"updated_at"`
	Stale     bool      `json:"stale"`
}

// Known reports whether the balance has ever been fetched.
func (b Balance) Known() bool {
	return b.Wei != nil
}

// Ether returns the balance formatted in ether, "0.0" when unknown.
func (b Balance) Ether() string {
	return FormatEther(b.Wei)
}

// Copy returns a deep copy safe to hand out to callers.
func (b Balance) Copy() Balance {
	if b.Wei != nil {
		b.Wei = new(big.Int).Set(b.Wei)
	}
	return b
}
