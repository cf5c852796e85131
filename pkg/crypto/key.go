package crypto

import (
	"crypto/ecdsa"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

// PrivateKeySize is the length of a raw secp256k1 scalar.
const PrivateKeySize = 32

var (
	ErrKeyLength = errors.New("private key must be 32 bytes")
	ErrKeyRange  = errors.New("private key out of curve range")
	ErrKeyZeroed = errors.New("private key has been zeroed")
)

// PrivateKey wraps a secp256k1 private key.
type PrivateKey struct {
	key *secp256k1.PrivateKey
}

// GenerateKey creates a new random secp256k1 private key.
func GenerateKey() (*PrivateKey, error) {
	key, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		return nil, fmt.Errorf("generate key: %w", err)
	}
	return &PrivateKey{key: key}, nil
}

// PrivateKeyFromBytes creates a PrivateKey from a 32-byte scalar.
// The scalar must be in [1, n-1].
func PrivateKeyFromBytes(b []byte) (*PrivateKey, error) {
	if len(b) != PrivateKeySize {
		return nil, fmt.Errorf("%w, got %d", ErrKeyLength, len(b))
	}
	var s secp256k1.ModNScalar
	if overflow := s.SetByteSlice(b); overflow || s.IsZero() {
		return nil, ErrKeyRange
	}
	return &PrivateKey{key: secp256k1.NewPrivateKey(&s)}, nil
}

// PrivateKeyFromHex parses a hex scalar with or without a 0x prefix.
func PrivateKeyFromHex(s string) (*PrivateKey, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if len(s) != PrivateKeySize*2 {
		return nil, fmt.Errorf("%w, got %d hex chars", ErrKeyLength, len(s))
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("decode hex: %w", err)
	}
	defer clear(b)
	return PrivateKeyFromBytes(b)
}

// PublicKey returns the uncompressed 65-byte public key.
func (pk *PrivateKey) PublicKey() []byte {
	return pk.key.PubKey().SerializeUncompressed()
}

// Address returns the Ethereum address controlled by this key.
func (pk *PrivateKey) Address() common.Address {
	return AddressFromPubKey(pk.key.PubKey())
}

// Serialize returns the 32-byte private key scalar.
// Callers must clear the returned slice when done with it.
func (pk *PrivateKey) Serialize() []byte {
	return pk.key.Serialize()
}

// ToECDSA returns a go-ethereum compatible copy of the key for signing.
// The copy should be released with ZeroECDSA.
func (pk *PrivateKey) ToECDSA() (*ecdsa.PrivateKey, error) {
	if pk.IsZero() {
		return nil, ErrKeyZeroed
	}
	raw := pk.key.Serialize()
	defer clear(raw)
	return ethcrypto.ToECDSA(raw)
}

// IsZero reports whether the key has been wiped.
func (pk *PrivateKey) IsZero() bool {
	return pk == nil || pk.key == nil || pk.key.Key.IsZero()
}

// Zero securely zeroes the private key memory.
func (pk *PrivateKey) Zero() {
	if pk == nil || pk.key == nil {
		return
	}
	pk.key.Zero()
}

// ZeroECDSA wipes the scalar of a key obtained from ToECDSA.
func ZeroECDSA(k *ecdsa.PrivateKey) {
	if k == nil || k.D == nil {
		return
	}
	words := k.D.Bits()
	for i := range words {
		words[i] = 0
	}
	k.D.SetInt64(0)
}
