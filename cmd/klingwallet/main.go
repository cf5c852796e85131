// klingwallet is a command-line client for a non-custodial EVM wallet.
//
// Usage:
//
//	klingwallet [global flags] <command> [flags]
//	klingwallet --help
package main

import (
	"fmt"
	"os"

	"github.com/Klingon-tech/klingwallet/config"
	klog "github.com/Klingon-tech/klingwallet/internal/log"
)

var version = "0.1.0-dev"

func main() {
	flags, err := config.ParseFlags(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n\n", err)
		usage()
		os.Exit(1)
	}
	if flags.Help {
		usage()
		return
	}
	if flags.Version {
		fmt.Printf("klingwallet %s\n", version)
		return
	}
	if len(flags.Args) == 0 {
		usage()
		os.Exit(1)
	}

	cfg, err := config.Load(flags)
	if err != nil {
		fatal("%v", err)
	}
	if err := klog.Init(cfg.Log.Level, cfg.Log.JSON, cfg.Log.File); err != nil {
		fatal("init logging: %v", err)
	}

	cmd := flags.Args[0]
	cmdArgs := flags.Args[1:]
	if cmd == "help" {
		usage()
		return
	}

	a, err := newApp(cfg, flags.Network != "")
	if err != nil {
		fatal("%v", err)
	}
	defer a.close()

	switch cmd {
	case "networks":
		a.cmdNetworks()
	case "network":
		a.cmdNetwork(cmdArgs)
	case "new":
		a.cmdNew(cmdArgs)
	case "address":
		a.cmdAddress(cmdArgs)
	case "balance":
		a.cmdBalance(cmdArgs)
	case "history":
		a.cmdHistory(cmdArgs)
	case "send":
		a.cmdSend(cmdArgs)
	case "watch":
		a.cmdWatch(cmdArgs)
	case "settings":
		a.cmdSettings(cmdArgs)
	case "reset":
		a.cmdReset(cmdArgs)
	default:
		a.close()
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: klingwallet [global flags] <command> [flags]

Global flags:
  --network <id>      sepolia or mainnet (overrides and saves the last selection)
  --datadir <path>    Data directory (default: %s)
  --config, -c <path> Config file (default: <datadir>/klingwallet.conf)
  --log-level <lvl>   debug, info, warn or error
  --log-file <path>   Also write JSON logs to this file
  --log-json          Log JSON to stderr
  --version           Print version

Commands:
  networks                        List networks
  network <id>                    Select and remember a network
  new                             Create a new wallet and show its recovery phrase
  address                         Show the address of a phrase or key
  balance                         Show the balance on the current network
  history [--limit <n>] [--json]  Show transfer history
  send --to <addr> --amount <eth> [--fee slow|standard|fast] [--yes] [--wait]
                                  Send ether
  watch                           Stay connected and print balance and history changes
  settings [key=value ...]        Show or change preferences
                                  (theme, currency, autolock, locktimeout)
  reset                           Forget all stored preferences

Commands that need the wallet prompt for the recovery phrase or private key.
Secrets are held in memory for the duration of the command only.

Environment variables use the KLINGWALLET_ prefix, e.g. KLINGWALLET_SEPOLIA_RPC_URL.
Transfer history needs an endpoint that serves alchemy_getAssetTransfers.
`, config.DefaultDataDir())
}
