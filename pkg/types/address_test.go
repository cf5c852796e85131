package types

import (
	"errors"
	"strings"
	"testing"
)

func TestParseAddress(t *testing.T) {
	const checksummed = "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"

	tests := []struct {
		name    string
		input   string
		wantErr error
	}{
		{"checksummed", checksummed, nil},
		{"lowercase", strings.ToLower(checksummed), nil},
		{"uppercase body", "0x" + strings.ToUpper(checksummed[2:]), nil},
		{"surrounding space", " " + checksummed + " ", nil},
		{"bad checksum", "0xF39Fd6e51aad88F6F4ce6aB8827279cffFb92266", ErrAddressChecksum},
		{"missing prefix", checksummed[2:], ErrAddressFormat},
		{"too short", "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb922", ErrAddressFormat},
		{"non hex", "0xInvalid", ErrAddressFormat},
		{"empty", "", ErrAddressFormat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			addr, err := ParseAddress(tt.input)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("ParseAddress(%q) error = %v, want %v", tt.input, err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseAddress(%q) error: %v", tt.input, err)
			}
			if addr.Hex() != checksummed {
				t.Errorf("ParseAddress(%q) = %s, want %s", tt.input, addr.Hex(), checksummed)
			}
		})
	}
}

func TestSameAddress(t *testing.T) {
	a := "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"
	if !SameAddress(a, strings.ToLower(a)) {
		t.Error("SameAddress should ignore case")
	}
	if SameAddress(a, "0x70997970C51812dc3A010C7d01b50e0d17dc79C8") {
		t.Error("SameAddress matched different addresses")
	}
	if SameAddress("", "") {
		t.Error("SameAddress should not match empty addresses")
	}
}
