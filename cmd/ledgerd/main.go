// Command ledgerd runs a single-node ledger that executes component
// transactions and serves them over JSON-RPC and, optionally, gRPC.
package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
)

// Run using
//  go run ./cmd/ledgerd [flags]
//  go run ./cmd/ledgerd status --rpc-addr 127.0.0.1:3030

var (
	configFlag = cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "path of a YAML configuration file",
		EnvVars: []string{"LEDGERD_CONFIG"},
	}
	rpcAddrFlag = cli.StringFlag{
		Name:  "rpc-addr",
		Usage: "JSON-RPC listen address",
	}
	workersFlag = cli.IntFlag{
		Name:  "workers",
		Usage: "number of JSON-RPC requests served at once",
	}
	grpcAddrFlag = cli.StringFlag{
		Name:  "grpc-addr",
		Usage: "gRPC listen address, disabled if empty",
	}
	metricsAddrFlag = cli.StringFlag{
		Name:  "metrics-addr",
		Usage: "Prometheus /metrics listen address, disabled if empty",
	}
	backendFlag = cli.StringFlag{
		Name:  "ledger-backend",
		Usage: "ledger storage: memory or leveldb",
	}
	ledgerPathFlag = cli.StringFlag{
		Name:  "ledger-path",
		Usage: "directory of the leveldb ledger",
	}
	epochIntervalFlag = cli.DurationFlag{
		Name:  "epoch-interval",
		Usage: "how often the epoch advances",
	}
	setupFlag = cli.StringFlag{
		Name:  "setup",
		Usage: "bootstrap descriptor to run at startup, skipped if empty",
	}
	setupOutputFlag = cli.StringFlag{
		Name:  "setup-output",
		Usage: "where to write the addresses created by setup",
	}
	logLevelFlag = cli.StringFlag{
		Name:  "log-level",
		Usage: "debug, info, warn or error",
	}
	logFormatFlag = cli.StringFlag{
		Name:  "log-format",
		Usage: "text or json",
	}
)

func main() {
	app := &cli.App{
		Name:  "ledgerd",
		Usage: "single-node component ledger",
		Flags: []cli.Flag{
			&configFlag,
			&rpcAddrFlag,
			&workersFlag,
			&grpcAddrFlag,
			&metricsAddrFlag,
			&backendFlag,
			&ledgerPathFlag,
			&epochIntervalFlag,
			&setupFlag,
			&setupOutputFlag,
			&logLevelFlag,
			&logFormatFlag,
		},
		Action: runNode,
		Commands: []*cli.Command{
			&Status,
			&NewAccount,
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
