package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"

	"github.com/blockberries/ledgerd"
	"github.com/blockberries/ledgerd/bootstrap"
	"github.com/blockberries/ledgerd/config"
	"github.com/blockberries/ledgerd/engine"
	"github.com/blockberries/ledgerd/example/gumball"
	"github.com/blockberries/ledgerd/example/kvstore"
	ledgerdgrpc "github.com/blockberries/ledgerd/grpc"
	"github.com/blockberries/ledgerd/jsonrpc"
	"github.com/blockberries/ledgerd/ledger/ldb"
	"github.com/blockberries/ledgerd/ledger/memory"
	"github.com/blockberries/ledgerd/metrics"
	"github.com/blockberries/ledgerd/server"
	"github.com/blockberries/ledgerd/state"
)

// node is the assembled process: ledger, state, engine and transports.
type node struct {
	cfg     config.Config
	logger  *slog.Logger
	metrics *metrics.Metrics
	state   *state.Manager
	server  *server.Server
	ticker  *state.Ticker
	close   func() error
}

func runNode(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	logger, err := newLogger(os.Stderr, cfg.Log)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	n, err := buildNode(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer n.Close()
	return n.run(ctx)
}

func openLedger(cfg config.Ledger, logger *slog.Logger) (ledgerd.Ledger, []state.Option, func() error, error) {
	if cfg.Backend != config.BackendLevelDB {
		return memory.New(), nil, func() error { return nil }, nil
	}
	l, err := ldb.Open(cfg.Path)
	if err != nil {
		return nil, nil, nil, err
	}
	counters, err := l.Counters(logger)
	if err != nil {
		l.Close()
		return nil, nil, nil, err
	}
	logger.Info("ledger opened", "path", cfg.Path, "epoch", counters.Epoch(), "nonce", counters.Nonce())
	opts := []state.Option{
		state.WithEpoch(counters.Epoch()),
		state.WithNonce(counters.Nonce()),
		state.WithObserver(counters),
	}
	return l, opts, l.Close, nil
}

// buildNode opens the ledger and runs setup. Nothing listens until run.
func buildNode(ctx context.Context, cfg config.Config, logger *slog.Logger) (*node, error) {
	l, opts, closeLedger, err := openLedger(cfg.Ledger, logger)
	if err != nil {
		return nil, err
	}
	if err := engine.Bootstrap(l); err != nil {
		closeLedger()
		return nil, err
	}

	m := metrics.New()
	st := state.New(l, append(opts, state.WithObserver(m))...)
	eng := engine.New(
		engine.WithBlueprints(gumball.Blueprint(), kvstore.Blueprint()),
		engine.WithLogger(logger),
	)

	if cfg.Setup.Path != "" {
		if err := runSetup(ctx, cfg.Setup, st, eng, logger); err != nil {
			closeLedger()
			return nil, err
		}
	}

	return &node{
		cfg:     cfg,
		logger:  logger,
		metrics: m,
		state:   st,
		server:  server.New(st, eng, server.WithLogger(logger), server.WithMetrics(m)),
		ticker:  state.NewTicker(st, cfg.Epoch.Interval, state.WithTickerLogger(logger)),
		close:   closeLedger,
	}, nil
}

func runSetup(ctx context.Context, cfg config.Setup, st *state.Manager, eng ledgerd.Engine, logger *slog.Logger) error {
	d, err := bootstrap.Load(cfg.Path)
	if err != nil {
		return err
	}
	reg, err := bootstrap.Run(ctx, st, eng, d, bootstrap.WithLogger(logger))
	if err != nil {
		return err
	}
	if cfg.Output == "" {
		return nil
	}
	if err := reg.WriteFile(cfg.Output); err != nil {
		return err
	}
	logger.Info("setup complete", "output", cfg.Output, "packages", len(reg.Packages), "components", len(reg.Components))
	return nil
}

// run serves until ctx ends or a transport fails.
func (n *node) run(ctx context.Context) error {
	n.ticker.Start()
	defer n.ticker.Stop()

	g, ctx := errgroup.WithContext(ctx)

	rpc := jsonrpc.NewServer(n.cfg.RPC.Addr, n.server,
		jsonrpc.WithWorkers(n.cfg.RPC.Workers),
		jsonrpc.WithMaxBodyBytes(n.cfg.RPC.MaxBodyBytes),
		jsonrpc.WithCORSOrigin(n.cfg.RPC.CORSAllowOrigin),
		jsonrpc.WithRateLimit(jsonrpc.RateLimit(n.cfg.RPC.RateLimit)),
		jsonrpc.WithLogger(n.logger),
		jsonrpc.WithMetrics(n.metrics),
	)
	g.Go(func() error { return rpc.Run(ctx) })

	if addr := n.cfg.GRPC.Addr; addr != "" {
		g.Go(func() error {
			n.logger.Info("grpc server listening", "addr", addr)
			return ledgerdgrpc.NewGRPCServer(n.server).Run(ctx, addr)
		})
	}

	if addr := n.cfg.Metrics.Addr; addr != "" {
		g.Go(func() error { return serveMetrics(ctx, addr, n.metrics, n.logger) })
	}

	err := g.Wait()
	epoch, nonce := n.state.Snapshot()
	n.logger.Info("node stopped", "epoch", epoch, "nonce", nonce)
	return err
}

func (n *node) Close() error {
	return n.close()
}

func serveMetrics(ctx context.Context, addr string, m *metrics.Metrics, logger *slog.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("metrics server listening", "addr", addr)
		err := srv.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		errCh <- err
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("metrics: shutdown: %w", err)
		}
		return <-errCh
	case err := <-errCh:
		return err
	}
}
