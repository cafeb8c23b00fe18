// Command ledgerctl is a thin demonstration and integration harness for
// the finledger library: a minimal CLI wiring together account
// management, transaction processing, journal persistence, auditing,
// and signing. It is a boundary, not core — see spec.md §6.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/finledger/finledger/pkg/config"
)

type handler func(cfg *config.Config, args []string) error

func commands() map[string]map[string]handler {
	return map[string]map[string]handler{
		"account": {
			"create": cmdAccountCreate,
			"list":   cmdAccountList,
		},
		"tx": {
			"add": cmdTxAdd,
		},
		"audit": {
			"verify":     cmdAuditVerify,
			"report":     cmdAuditReport,
			"checkpoint": cmdAuditCheckpoint,
		},
		"journal": {
			"list":   cmdJournalList,
			"export": cmdJournalExport,
		},
		"metrics": {
			"show": cmdMetricsShow,
		},
	}
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) == 0 {
		printUsage()
		return 1
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		return 2
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		return 2
	}

	verb := args[0]
	rest := args[1:]

	switch verb {
	case "balance":
		return dispatch(cmdBalance, cfg, rest)
	case "keygen":
		return dispatch(cmdKeygen, cfg, rest)
	case "sign":
		return dispatch(cmdSign, cfg, rest)
	case "verify":
		return dispatch(cmdVerify, cfg, rest)
	}

	groups := commands()
	group, ok := groups[verb]
	if !ok {
		fmt.Fprintf(os.Stderr, "error: unknown command %q\n", verb)
		printUsage()
		return 1
	}
	if len(rest) == 0 {
		fmt.Fprintf(os.Stderr, "error: %q requires a subcommand\n", verb)
		printUsage()
		return 1
	}
	sub, ok := group[rest[0]]
	if !ok {
		fmt.Fprintf(os.Stderr, "error: unknown subcommand %q %q\n", verb, rest[0])
		printUsage()
		return 1
	}
	return dispatch(sub, cfg, rest[1:])
}

func dispatch(h handler, cfg *config.Config, args []string) int {
	err := h(cfg, args)
	if err == nil {
		return 0
	}

	var de domainErr
	if errors.As(err, &de) {
		fmt.Fprintln(os.Stderr, "error:", de.err)
		return 2
	}
	fmt.Fprintln(os.Stderr, "usage error:", err)
	return 1
}

func printUsage() {
	fmt.Fprintln(os.Stderr, `usage: ledgerctl <command> [arguments]

commands:
  account create <name> <type> <currency>
  account list
  tx add --from A --to B --amount N --currency C [--memo M]
  balance <name>
  audit verify
  audit report
  audit checkpoint
  journal list
  journal export <file>
  metrics show
  keygen [--out file]
  sign --in file --key keyfile
  verify --in file --sig sigfile --key keyfile

configuration is read from FINLEDGER_* environment variables, see pkg/config.`)
}
