package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/Klingon-tech/klingwallet/internal/network"
	"github.com/Klingon-tech/klingwallet/internal/session"
	"github.com/Klingon-tech/klingwallet/pkg/types"
)

const commandTimeout = 30 * time.Second

// ── networks ────────────────────────────────────────────────────────────

func (a *app) cmdNetworks() {
	current := a.sess.Network().ID
	for _, n := range a.sess.Networks() {
		marker := " "
		if n.ID == current {
			marker = "*"
		}
		fmt.Printf("%s %-10s %-18s chain %-9d %s\n", marker, n.ID, n.DisplayName, n.ChainID, n.RPCEndpoint)
	}
}

func (a *app) cmdNetwork(args []string) {
	if len(args) != 1 {
		a.fatal("Usage: klingwallet network <id>")
	}
	if err := a.sess.SwitchNetwork(args[0]); err != nil {
		a.fatal("%v", err)
	}
	n := a.sess.Network()
	fmt.Printf("Network: %s (chain %d)\n", n.DisplayName, n.ChainID)
}

// ── new ─────────────────────────────────────────────────────────────────

func (a *app) cmdNew(args []string) {
	fs := flag.NewFlagSet("new", flag.ExitOnError)
	fs.Parse(args)

	pending, err := a.sess.Generate()
	if err != nil {
		a.fatal("generate: %v", err)
	}

	fmt.Println("Recovery phrase (write it down, it is shown only once):")
	fmt.Println()
	for i, w := range strings.Fields(pending.Phrase()) {
		fmt.Printf("  %2d. %s\n", i+1, w)
	}
	fmt.Println()
	fmt.Printf("Address: %s\n\n", pending.Address().Hex())

	answer, err := readLine("Type 'yes' once the phrase is stored safely: ")
	if err != nil || strings.TrimSpace(strings.ToLower(answer)) != "yes" {
		pending.Discard()
		a.fatal("wallet creation cancelled")
	}
	if err := a.sess.Commit(pending); err != nil {
		a.fatal("%v", err)
	}
	addr, _ := a.sess.Address()
	fmt.Printf("Wallet created: %s\n", addr.Hex())
}

// ── address ─────────────────────────────────────────────────────────────

func (a *app) cmdAddress(args []string) {
	fs := flag.NewFlagSet("address", flag.ExitOnError)
	fs.Parse(args)

	a.unlock()
	addr, _ := a.sess.Address()
	fmt.Println(addr.Hex())
	fmt.Println(a.sess.Network().AddressURL(addr.Hex()))
}

// ── balance ─────────────────────────────────────────────────────────────

func (a *app) cmdBalance(args []string) {
	fs := flag.NewFlagSet("balance", flag.ExitOnError)
	fs.Parse(args)

	a.unlock()
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()
	if err := a.sess.RefreshBalance(ctx); err != nil {
		a.fatal("balance: %v", err)
	}
	n := a.sess.Network()
	fmt.Printf("%s %s (%s)\n", a.sess.Balance().Ether(), n.CurrencySymbol, n.DisplayName)
}

// ── history ─────────────────────────────────────────────────────────────

func (a *app) cmdHistory(args []string) {
	fs := flag.NewFlagSet("history", flag.ExitOnError)
	limit := fs.Int("limit", 20, "Max entries to show (0 for all)")
	asJSON := fs.Bool("json", false, "Print JSON")
	fs.Parse(args)

	a.unlock()
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()
	if err := a.sess.RefreshTransactions(ctx); err != nil {
		a.fatal("history: %v", err)
	}

	txs := a.sess.Transactions()
	if *limit > 0 && len(txs) > *limit {
		txs = txs[:*limit]
	}
	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(txs); err != nil {
			a.fatal("encode: %v", err)
		}
		return
	}
	if len(txs) == 0 {
		fmt.Println("No transactions.")
		return
	}
	for _, tx := range txs {
		fmt.Println(formatTransaction(tx, a.sess.Network()))
	}
}

// ── send ────────────────────────────────────────────────────────────────

func (a *app) cmdSend(args []string) {
	fs := flag.NewFlagSet("send", flag.ExitOnError)
	to := fs.String("to", "", "Recipient address")
	amount := fs.String("amount", "", "Amount in ether (e.g. 0.05)")
	fee := fs.String("fee", string(session.FeeStandard), "Fee tier: slow, standard or fast")
	yes := fs.Bool("yes", false, "Skip the confirmation prompt")
	wait := fs.Bool("wait", false, "Wait for the transaction to be mined")
	fs.Parse(args)

	if *to == "" || *amount == "" {
		a.fatal("Usage: klingwallet send --to <addr> --amount <eth> [--fee slow|standard|fast]")
	}

	a.unlock()
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()
	if err := a.sess.RefreshBalance(ctx); err != nil {
		a.fatal("balance: %v", err)
	}

	n := a.sess.Network()
	if !*yes {
		prompt := fmt.Sprintf("Send %s %s to %s on %s? [y/N]: ", *amount, n.CurrencySymbol, *to, n.DisplayName)
		answer, err := readLine(prompt)
		if err != nil || !isYes(answer) {
			a.fatal("send cancelled")
		}
	}

	res, err := a.sess.Send(ctx, session.SendRequest{
		To:      *to,
		Amount:  *amount,
		FeeTier: session.FeeTier(*fee),
	})
	if err != nil {
		a.fatal("%s", describeSendError(err))
	}
	fmt.Printf("Submitted: %s\n", res.Hash.Hex())
	fmt.Println(n.TxURL(res.Hash.Hex()))

	if !*wait {
		return
	}
	if a.cfg.Sync.ConfirmTimeout <= 0 {
		a.fatal("--wait needs sync.confirmtimeout > 0")
	}
	status := a.waitForStatus(res.Hash.Hex(), a.cfg.Sync.ConfirmTimeout)
	fmt.Printf("Status: %s\n", status)
}

// waitForStatus polls the session cache until the entry for hash settles
// or timeout passes.
func (a *app) waitForStatus(hash string, timeout time.Duration) types.TxStatus {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		for _, tx := range a.sess.Transactions() {
			if strings.EqualFold(tx.Hash, hash) && tx.Status.IsTerminal() {
				return tx.Status
			}
		}
		time.Sleep(500 * time.Millisecond)
	}
	return types.TxPending
}

// ── watch ───────────────────────────────────────────────────────────────

func (a *app) cmdWatch(args []string) {
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	interval := fs.Duration("interval", time.Second, "How often to check for changes")
	fs.Parse(args)

	a.unlock()
	addr, _ := a.sess.Address()
	n := a.sess.Network()

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	if err := a.sess.RefreshTransactions(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: history: %v\n", err)
	}
	cancel()

	seen := make(map[string]types.TxStatus)
	for _, tx := range a.sess.Transactions() {
		seen[strings.ToLower(tx.Hash)] = tx.Status
	}
	fmt.Printf("Watching %s on %s (%d transactions), Ctrl-C to stop\n", addr.Hex(), n.DisplayName, len(seen))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	ticker := time.NewTicker(*interval)
	defer ticker.Stop()

	lastBalance := ""
	for {
		if bal := a.sess.Balance(); bal.Known() && bal.Ether() != lastBalance {
			lastBalance = bal.Ether()
			fmt.Printf("[%s] Balance: %s %s\n", time.Now().Format("15:04:05"), lastBalance, n.CurrencySymbol)
		}
		for _, tx := range a.sess.Transactions() {
			key := strings.ToLower(tx.Hash)
			if prev, ok := seen[key]; ok && prev == tx.Status {
				continue
			}
			seen[key] = tx.Status
			fmt.Println(formatTransaction(tx, n))
		}

		select {
		case <-sigCh:
			return
		case <-ticker.C:
		}
	}
}

// ── settings ────────────────────────────────────────────────────────────

func (a *app) cmdSettings(args []string) {
	current, err := a.sess.Settings()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
	}
	if len(args) == 0 {
		printSettings(current, a.sess.Network())
		return
	}
	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		if !ok {
			a.fatal("expected key=value, got %q", arg)
		}
		if err := applySetting(&current, key, value); err != nil {
			a.fatal("%v", err)
		}
	}
	if err := a.sess.UpdateSettings(current); err != nil {
		a.fatal("save settings: %v", err)
	}
	printSettings(current, a.sess.Network())
}

// ── reset ───────────────────────────────────────────────────────────────

func (a *app) cmdReset(args []string) {
	fs := flag.NewFlagSet("reset", flag.ExitOnError)
	yes := fs.Bool("yes", false, "Skip the confirmation prompt")
	fs.Parse(args)

	if !*yes {
		answer, err := readLine("Forget all stored preferences? [y/N]: ")
		if err != nil || !isYes(answer) {
			a.fatal("reset cancelled")
		}
	}
	if err := a.sess.Reset(); err != nil {
		a.fatal("reset: %v", err)
	}
	fmt.Println("Preferences cleared.")
}

// unlock asks for the recovery phrase or private key and connects it.
func (a *app) unlock() {
	secret, err := readSecret("Recovery phrase or private key: ")
	if err != nil {
		a.fatal("read secret: %v", err)
	}
	if looksLikePhrase(secret) {
		err = a.sess.ImportFromPhrase(secret)
	} else {
		err = a.sess.ImportFromPrivateKey(secret)
	}
	if err != nil {
		a.fatal("%v", err)
	}
}

func describeSendError(err error) string {
	var verr *session.ValidationError
	if errors.As(err, &verr) {
		return verr.Error()
	}
	var serr *session.SendError
	if errors.As(err, &serr) {
		return fmt.Sprintf("%s failed: %v", serr.Stage, serr.Err)
	}
	if errors.Is(err, network.ErrUnknownNetwork) {
		return "unknown network"
	}
	return err.Error()
}
