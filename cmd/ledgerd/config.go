package main

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/blockberries/ledgerd/config"
)

// loadConfig reads the configuration file and environment, then applies
// the flags that were set on the command line.
func loadConfig(ctx *cli.Context) (config.Config, error) {
	cfg, err := config.Load(ctx.String(configFlag.Name))
	if err != nil {
		return config.Config{}, err
	}
	if ctx.IsSet(rpcAddrFlag.Name) {
		cfg.RPC.Addr = ctx.String(rpcAddrFlag.Name)
	}
	if ctx.IsSet(workersFlag.Name) {
		cfg.RPC.Workers = ctx.Int(workersFlag.Name)
	}
	if ctx.IsSet(grpcAddrFlag.Name) {
		cfg.GRPC.Addr = ctx.String(grpcAddrFlag.Name)
	}
	if ctx.IsSet(metricsAddrFlag.Name) {
		cfg.Metrics.Addr = ctx.String(metricsAddrFlag.Name)
	}
	if ctx.IsSet(backendFlag.Name) {
		cfg.Ledger.Backend = ctx.String(backendFlag.Name)
	}
	if ctx.IsSet(ledgerPathFlag.Name) {
		cfg.Ledger.Path = ctx.String(ledgerPathFlag.Name)
	}
	if ctx.IsSet(epochIntervalFlag.Name) {
		cfg.Epoch.Interval = ctx.Duration(epochIntervalFlag.Name)
	}
	if ctx.IsSet(setupFlag.Name) {
		cfg.Setup.Path = ctx.String(setupFlag.Name)
	}
	if ctx.IsSet(setupOutputFlag.Name) {
		cfg.Setup.Output = ctx.String(setupOutputFlag.Name)
	}
	if ctx.IsSet(logLevelFlag.Name) {
		cfg.Log.Level = ctx.String(logLevelFlag.Name)
	}
	if ctx.IsSet(logFormatFlag.Name) {
		cfg.Log.Format = ctx.String(logFormatFlag.Name)
	}
	return cfg, cfg.Validate()
}

func newLogger(w io.Writer, cfg config.Log) (*slog.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(cfg.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}
	return slog.New(slog.NewTextHandler(w, opts)), nil
}
