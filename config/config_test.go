package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "127.0.0.1:3030", cfg.RPC.Addr)
	assert.Equal(t, 4, cfg.RPC.Workers)
	assert.Equal(t, "*", cfg.RPC.CORSAllowOrigin)
	assert.Equal(t, BackendMemory, cfg.Ledger.Backend)
	assert.Equal(t, time.Minute, cfg.Epoch.Interval)
	assert.Empty(t, cfg.GRPC.Addr)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_MergesFileOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledgerd.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
rpc:
  workers: 8
  rateLimit:
    enabled: true
    burst: 5
grpc:
  addr: 127.0.0.1:9090
ledger:
  backend: leveldb
  path: /var/lib/ledgerd
epoch:
  interval: 5s
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:3030", cfg.RPC.Addr, "unset keys keep defaults")
	assert.Equal(t, 8, cfg.RPC.Workers)
	assert.True(t, cfg.RPC.RateLimit.Enabled)
	assert.Equal(t, float64(30), cfg.RPC.RateLimit.RPS)
	assert.Equal(t, 5, cfg.RPC.RateLimit.Burst)
	assert.Equal(t, "127.0.0.1:9090", cfg.GRPC.Addr)
	assert.Equal(t, BackendLevelDB, cfg.Ledger.Backend)
	assert.Equal(t, 5*time.Second, cfg.Epoch.Interval)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_ExplicitFalseOverridesDefault(t *testing.T) {
	cfg := Default()
	cfg.RPC.RateLimit.Enabled = true
	require.NoError(t, Parse(&cfg, []byte("rpc:\n  rateLimit:\n    enabled: false\n")))
	assert.False(t, cfg.RPC.RateLimit.Enabled)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoad_BadYAML(t *testing.T) {
	cfg := Default()
	assert.Error(t, Parse(&cfg, []byte("rpc: [")))
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("LEDGERD_RPC_ADDR", "0.0.0.0:4000")
	t.Setenv("LEDGERD_RPC_WORKERS", "2")
	t.Setenv("LEDGERD_RPC_RATE_LIMIT_ENABLED", "true")
	t.Setenv("LEDGERD_EPOCH_INTERVAL", "250ms")
	t.Setenv("LEDGERD_LOG_FORMAT", "json")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:4000", cfg.RPC.Addr)
	assert.Equal(t, 2, cfg.RPC.Workers)
	assert.True(t, cfg.RPC.RateLimit.Enabled)
	assert.Equal(t, 250*time.Millisecond, cfg.Epoch.Interval)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestEnvOverrides_Malformed(t *testing.T) {
	t.Setenv("LEDGERD_RPC_WORKERS", "many")
	_, err := Load("")
	assert.ErrorContains(t, err, "LEDGERD_RPC_WORKERS")
}

func TestValidate(t *testing.T) {
	cases := map[string]func(*Config){
		"unknown backend":      func(c *Config) { c.Ledger.Backend = "sqlite" },
		"leveldb without path": func(c *Config) { c.Ledger.Backend = BackendLevelDB },
		"no workers":           func(c *Config) { c.RPC.Workers = 0 },
		"zero interval":        func(c *Config) { c.Epoch.Interval = 0 },
		"bad log format":       func(c *Config) { c.Log.Format = "xml" },
		"empty rpc addr":       func(c *Config) { c.RPC.Addr = "" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := Default()
			mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
