package main

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/Klingon-tech/klingwallet/internal/network"
	"github.com/Klingon-tech/klingwallet/internal/storage"
	"github.com/Klingon-tech/klingwallet/pkg/types"
	"golang.org/x/term"
)

var stdin = bufio.NewReader(os.Stdin)

// readSecret reads a line without echo when stdin is a terminal.
func readSecret(prompt string) (string, error) {
	fd := int(syscall.Stdin)
	if !term.IsTerminal(fd) {
		return readLine("")
	}
	fmt.Fprint(os.Stderr, prompt)
	raw, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr) // newline after hidden input
	if err != nil {
		return "", err
	}
	defer clear(raw)
	return strings.TrimSpace(string(raw)), nil
}

func readLine(prompt string) (string, error) {
	if prompt != "" {
		fmt.Fprint(os.Stderr, prompt)
	}
	line, err := stdin.ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func isYes(answer string) bool {
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true
	}
	return false
}

// looksLikePhrase tells a recovery phrase from a hex key.
func looksLikePhrase(secret string) bool {
	return len(strings.Fields(secret)) > 1
}

func shortHex(s string) string {
	if len(s) <= 14 {
		return s
	}
	return s[:8] + "…" + s[len(s)-6:]
}

func formatTransaction(tx types.Transaction, n network.Descriptor) string {
	when := "unknown time    "
	if tx.Timestamp != nil {
		when = tx.Timestamp.Local().Format("2006-01-02 15:04")
	}
	asset := tx.Asset
	if asset == "" {
		asset = n.CurrencySymbol
	}
	counterparty := "to   " + shortHex(tx.To)
	if tx.Direction == types.DirectionReceived {
		counterparty = "from " + shortHex(tx.From)
	}
	return fmt.Sprintf("%s  %-8s  %14s %-5s  %s  %-7s  %s",
		when, tx.Direction, tx.Value, asset, counterparty, tx.Status, tx.Hash)
}

func printSettings(s storage.Settings, n network.Descriptor) {
	fmt.Printf("network      %s\n", n.ID)
	fmt.Printf("currency     %s\n", s.CurrencyDisplay)
	fmt.Printf("theme        %s\n", s.Theme)
	fmt.Printf("autolock     %t\n", s.AutoLock)
	fmt.Printf("locktimeout  %s\n", s.LockTimeout)
}

// applySetting sets one user-facing settings key.
func applySetting(s *storage.Settings, key, value string) error {
	switch strings.ToLower(strings.TrimSpace(key)) {
	case "theme":
		s.Theme = strings.ToLower(value)
	case "currency":
		s.CurrencyDisplay = strings.ToUpper(value)
	case "autolock":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("autolock: %w", err)
		}
		s.AutoLock = b
	case "locktimeout":
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("locktimeout: %w", err)
		}
		s.LockTimeout = d
	default:
		return fmt.Errorf("unknown setting %q", key)
	}
	return s.Validate()
}

func fatal(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}
