package main

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"

	"github.com/blockberries/ledgerd/bootstrap"
	"github.com/blockberries/ledgerd/config"
	"github.com/blockberries/ledgerd/types"
)

func quiet() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig(t *testing.T) config.Config {
	cfg := config.Default()
	cfg.RPC.Addr = "127.0.0.1:0"
	cfg.Setup.Output = filepath.Join(t.TempDir(), "registry.yaml")
	return cfg
}

func TestBuildNode_RunsSetup(t *testing.T) {
	dir := t.TempDir()
	descriptor := filepath.Join(dir, "setup.yaml")
	require.NoError(t, os.WriteFile(descriptor, []byte(`
packages:
  - name: GumballMachine
    call_new: true
    args: ["0.5"]
    components: [machine]
    resources: [gumballs]
  - name: KeyValueStore
`), 0o644))

	cfg := testConfig(t)
	cfg.Setup.Path = descriptor
	n, err := buildNode(context.Background(), cfg, quiet())
	require.NoError(t, err)
	defer n.Close()

	reg, err := bootstrap.ReadRegistry(cfg.Setup.Output)
	require.NoError(t, err)
	assert.Len(t, reg.Packages, 2)
	require.Contains(t, reg.Components, "machine")

	got, err := n.server.GetBalance(context.Background(), types.GetBalanceParams{Address: reg.Components["machine"]})
	require.NoError(t, err)
	assert.Equal(t, "100", got[reg.Resources["gumballs"]].String())
}

func TestBuildNode_LevelDBResumesNonce(t *testing.T) {
	cfg := testConfig(t)
	cfg.Ledger = config.Ledger{Backend: config.BackendLevelDB, Path: t.TempDir()}

	n, err := buildNode(context.Background(), cfg, quiet())
	require.NoError(t, err)
	_, err = n.server.NewAccount(context.Background())
	require.NoError(t, err)
	_, nonce := n.state.Snapshot()
	require.NoError(t, n.Close())

	n, err = buildNode(context.Background(), cfg, quiet())
	require.NoError(t, err)
	defer n.Close()
	_, resumed := n.state.Snapshot()
	assert.Equal(t, nonce, resumed)
}

func TestNode_RunStopsOnCancel(t *testing.T) {
	cfg := testConfig(t)
	cfg.GRPC.Addr = "127.0.0.1:0"
	cfg.Metrics.Addr = "127.0.0.1:0"
	n, err := buildNode(context.Background(), cfg, quiet())
	require.NoError(t, err)
	defer n.Close()

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- n.run(ctx) }()
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("node did not stop")
	}
}

func TestBuildNode_BadDescriptor(t *testing.T) {
	cfg := testConfig(t)
	cfg.Setup.Path = filepath.Join(t.TempDir(), "missing.yaml")
	_, err := buildNode(context.Background(), cfg, quiet())
	assert.Error(t, err)
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger, err := newLogger(&buf, config.Log{Level: "warn", Format: "json"})
	require.NoError(t, err)
	logger.Info("hidden")
	logger.Warn("shown", "k", 1)
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"msg":"shown"`)

	_, err = newLogger(&buf, config.Log{Level: "loud", Format: "text"})
	assert.Error(t, err)
}

func TestLoadConfig_FlagsOverride(t *testing.T) {
	var got config.Config
	app := &cli.App{
		Flags: []cli.Flag{&configFlag, &rpcAddrFlag, &workersFlag, &epochIntervalFlag, &backendFlag},
		Action: func(c *cli.Context) error {
			var err error
			got, err = loadConfig(c)
			return err
		},
	}
	require.NoError(t, app.Run([]string{"ledgerd", "--rpc-addr", "0.0.0.0:9", "--workers", "7", "--epoch-interval", "3s"}))
	assert.Equal(t, "0.0.0.0:9", got.RPC.Addr)
	assert.Equal(t, 7, got.RPC.Workers)
	assert.Equal(t, 3*time.Second, got.Epoch.Interval)
	assert.Equal(t, config.BackendMemory, got.Ledger.Backend)

	assert.Error(t, app.Run([]string{"ledgerd", "--ledger-backend", "tape"}))
}
