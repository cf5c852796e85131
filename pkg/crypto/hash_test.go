package crypto

import (
	"encoding/hex"
	"testing"
)

func TestKeccak256(t *testing.T) {
	tests := []struct {
		name  string
		input []byte
		want  string
	}{
		{
			name:  "empty input",
			input: []byte{},
			want:  "c5d2460186f7233c927e7db2dcc703c0e500b653ca82273b7bfad8045d85a470",
		},
		{
			name:  "transfer selector",
			input: []byte("transfer(address,uint256)"),
			want:  "a9059cbb2ab09eb219583f4a59a5d0623ade346d962bcd4e46b11da047c9049b",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Keccak256(tt.input)
			if hex.EncodeToString(got[:]) != tt.want {
				t.Errorf("Keccak256(%q) = %x, want %s", tt.input, got, tt.want)
			}
		})
	}
}

func TestKeccak256_MultiPart(t *testing.T) {
	whole := Keccak256([]byte("helloworld"))
	parts := Keccak256([]byte("hello"), []byte("world"))
	if whole != parts {
		t.Errorf("Keccak256 over parts = %x, want %x", parts, whole)
	}
}

func TestAddressFromPubKey(t *testing.T) {
	key, err := PrivateKeyFromHex(hardhatKey)
	if err != nil {
		t.Fatalf("PrivateKeyFromHex() error: %v", err)
	}
	if got := key.Address().Hex(); got != hardhatAddress {
		t.Errorf("Address() = %s, want %s", got, hardhatAddress)
	}
}
