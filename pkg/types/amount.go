package types

import (
	"errors"
	"fmt"
	"math/big"
	"strings"
)

// EtherDecimals is the number of decimals of the native currency (wei).
const EtherDecimals = 18

var (
	ErrEmptyAmount    = errors.New("empty amount")
	ErrNegativeAmount = errors.New("negative amount")
)

// FormatUnits converts raw base units to a decimal string without float
// precision loss. Trailing fractional zeros are trimmed ("1.5", "0.0").
func FormatUnits(v *big.Int, decimals int) string {
	if v == nil {
		return "0.0"
	}
	neg := v.Sign() < 0
	s := new(big.Int).Abs(v).String()
	if decimals <= 0 {
		if neg {
			return "-" + s
		}
		return s
	}

	for len(s) <= decimals {
		s = "0" + s
	}
	pos := len(s) - decimals
	whole, frac := s[:pos], strings.TrimRight(s[pos:], "0")
	if frac == "" {
		frac = "0"
	}
	out := whole + "." + frac
	if neg {
		out = "-" + out
	}
	return out
}

// ParseUnits converts a decimal string to raw base units.
func ParseUnits(s string, decimals int) (*big.Int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, ErrEmptyAmount
	}
	if strings.HasPrefix(s, "-") {
		return nil, ErrNegativeAmount
	}
	s = strings.TrimPrefix(s, "+")

	parts := strings.SplitN(s, ".", 2)
	wholeStr := parts[0]
	if wholeStr == "" {
		wholeStr = "0"
	}
	fracStr := ""
	if len(parts) == 2 {
		fracStr = parts[1]
		if len(fracStr) > decimals {
			return nil, fmt.Errorf("too many decimal places (max %d)", decimals)
		}
		if wholeStr == "0" && parts[0] == "" && fracStr == "" {
			return nil, fmt.Errorf("invalid amount %q", s)
		}
	}
	if !isDigits(wholeStr) {
		return nil, fmt.Errorf("invalid whole part %q", wholeStr)
	}
	if fracStr != "" && !isDigits(fracStr) {
		return nil, fmt.Errorf("invalid fractional part %q", fracStr)
	}

	fracStr += strings.Repeat("0", decimals-len(fracStr))
	v, ok := new(big.Int).SetString(wholeStr+fracStr, 10)
	if !ok {
		return nil, fmt.Errorf("invalid amount %q", s)
	}
	return v, nil
}

// FormatEther formats wei as an ether decimal string.
func FormatEther(wei *big.Int) string {
	return FormatUnits(wei, EtherDecimals)
}

// ParseEther parses an ether decimal string into wei.
func ParseEther(s string) (*big.Int, error) {
	return ParseUnits(s, EtherDecimals)
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
