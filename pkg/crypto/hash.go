// Package crypto provides the cryptographic primitives used by the wallet:
// Keccak-256 hashing, secp256k1 keys and Ethereum address derivation.
package crypto

import (
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/crypto/sha3"
)

// Keccak256 computes the legacy Keccak-256 hash used by Ethereum.
func Keccak256(data ...[]byte) common.Hash {
	h := sha3.NewLegacyKeccak256()
	for _, d := range data {
		h.Write(d)
	}
	var out common.Hash
	copy(out[:], h.Sum(nil))
	return out
}

// AddressFromPubKey derives an Ethereum address from a public key.
// Address = Keccak256(uncompressed_pubkey[1:])[12:].
func AddressFromPubKey(pub *secp256k1.PublicKey) common.Address {
	raw := pub.SerializeUncompressed()
	h := Keccak256(raw[1:])
	return common.BytesToAddress(h[12:])
}
