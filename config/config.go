// Package config loads node configuration: defaults, then a YAML file,
// then LEDGERD_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Backends.
const (
	BackendMemory  = "memory"
	BackendLevelDB = "leveldb"
)

type Config struct {
	RPC     RPC
	GRPC    GRPC
	Metrics Metrics
	Ledger  Ledger
	Epoch   Epoch
	Setup   Setup
	Log     Log
}

type RPC struct {
	Addr            string
	Workers         int
	MaxBodyBytes    int64
	CORSAllowOrigin string
	RateLimit       RateLimit
}

type RateLimit struct {
	Enabled bool
	RPS     float64
	Burst   int
}

// GRPC is disabled when Addr is empty.
type GRPC struct {
	Addr string
}

// Metrics is disabled when Addr is empty.
type Metrics struct {
	Addr string
}

type Ledger struct {
	Backend string
	Path    string
}

type Epoch struct {
	Interval time.Duration
}

// Setup names the bootstrap descriptor and where to write the registry
// of created entities. An empty Path skips setup.
type Setup struct {
	Path   string
	Output string
}

type Log struct {
	Level  string
	Format string
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		RPC: RPC{
			Addr:            "127.0.0.1:3030",
			Workers:         4,
			MaxBodyBytes:    1 << 20,
			CORSAllowOrigin: "*",
			RateLimit:       RateLimit{Enabled: false, RPS: 30, Burst: 60},
		},
		Ledger: Ledger{Backend: BackendMemory},
		Epoch:  Epoch{Interval: 60 * time.Second},
		Setup:  Setup{Output: "setup.yaml"},
		Log:    Log{Level: "info", Format: "text"},
	}
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	switch c.Ledger.Backend {
	case BackendMemory:
	case BackendLevelDB:
		if c.Ledger.Path == "" {
			return errors.New("config: ledger.path is required for the leveldb backend")
		}
	default:
		return fmt.Errorf("config: unknown ledger backend %q", c.Ledger.Backend)
	}
	if c.RPC.Addr == "" {
		return errors.New("config: rpc.addr is empty")
	}
	if c.RPC.Workers <= 0 {
		return fmt.Errorf("config: rpc.workers must be positive, got %d", c.RPC.Workers)
	}
	if c.Epoch.Interval <= 0 {
		return fmt.Errorf("config: epoch.interval must be positive, got %s", c.Epoch.Interval)
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("config: unknown log format %q", c.Log.Format)
	}
	return nil
}

// file is the YAML shape. Pointers distinguish unset from zero.
type file struct {
	RPC struct {
		Addr            string `yaml:"addr"`
		Workers         int    `yaml:"workers"`
		MaxBodyBytes    int64  `yaml:"maxBodyBytes"`
		CORSAllowOrigin string `yaml:"corsAllowOrigin"`
		RateLimit       struct {
			Enabled *bool   `yaml:"enabled"`
			RPS     float64 `yaml:"rps"`
			Burst   int     `yaml:"burst"`
		} `yaml:"rateLimit"`
	} `yaml:"rpc"`
	GRPC struct {
		Addr string `yaml:"addr"`
	} `yaml:"grpc"`
	Metrics struct {
		Addr string `yaml:"addr"`
	} `yaml:"metrics"`
	Ledger struct {
		Backend string `yaml:"backend"`
		Path    string `yaml:"path"`
	} `yaml:"ledger"`
	Epoch struct {
		Interval time.Duration `yaml:"interval"`
	} `yaml:"epoch"`
	Setup struct {
		Path   string `yaml:"path"`
		Output string `yaml:"output"`
	} `yaml:"setup"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
}

// Load returns Default merged with the file at path, if path is not
// empty, and then with the environment.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("config: %w", err)
		}
		if err := Parse(&cfg, data); err != nil {
			return Config{}, err
		}
	}
	if err := ApplyEnvOverrides(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Parse merges the YAML document data into cfg.
func Parse(cfg *Config, data []byte) error {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("config: parse: %w", err)
	}
	merge(cfg, &f)
	return nil
}

func merge(dst *Config, src *file) {
	if src.RPC.Addr != "" {
		dst.RPC.Addr = src.RPC.Addr
	}
	if src.RPC.Workers != 0 {
		dst.RPC.Workers = src.RPC.Workers
	}
	if src.RPC.MaxBodyBytes != 0 {
		dst.RPC.MaxBodyBytes = src.RPC.MaxBodyBytes
	}
	if src.RPC.CORSAllowOrigin != "" {
		dst.RPC.CORSAllowOrigin = src.RPC.CORSAllowOrigin
	}
	if src.RPC.RateLimit.Enabled != nil {
		dst.RPC.RateLimit.Enabled = *src.RPC.RateLimit.Enabled
	}
	if src.RPC.RateLimit.RPS != 0 {
		dst.RPC.RateLimit.RPS = src.RPC.RateLimit.RPS
	}
	if src.RPC.RateLimit.Burst != 0 {
		dst.RPC.RateLimit.Burst = src.RPC.RateLimit.Burst
	}
	if src.GRPC.Addr != "" {
		dst.GRPC.Addr = src.GRPC.Addr
	}
	if src.Metrics.Addr != "" {
		dst.Metrics.Addr = src.Metrics.Addr
	}
	if src.Ledger.Backend != "" {
		dst.Ledger.Backend = src.Ledger.Backend
	}
	if src.Ledger.Path != "" {
		dst.Ledger.Path = src.Ledger.Path
	}
	if src.Epoch.Interval != 0 {
		dst.Epoch.Interval = src.Epoch.Interval
	}
	if src.Setup.Path != "" {
		dst.Setup.Path = src.Setup.Path
	}
	if src.Setup.Output != "" {
		dst.Setup.Output = src.Setup.Output
	}
	if src.Log.Level != "" {
		dst.Log.Level = src.Log.Level
	}
	if src.Log.Format != "" {
		dst.Log.Format = src.Log.Format
	}
}

// ApplyEnvOverrides applies LEDGERD_* variables to cfg. Unset or blank
// variables leave the setting alone; malformed values are errors.
func ApplyEnvOverrides(cfg *Config) error {
	str := func(name string, dst *string) {
		if v := strings.TrimSpace(os.Getenv(name)); v != "" {
			*dst = v
		}
	}
	str("LEDGERD_RPC_ADDR", &cfg.RPC.Addr)
	str("LEDGERD_RPC_CORS_ALLOW_ORIGIN", &cfg.RPC.CORSAllowOrigin)
	str("LEDGERD_GRPC_ADDR", &cfg.GRPC.Addr)
	str("LEDGERD_METRICS_ADDR", &cfg.Metrics.Addr)
	str("LEDGERD_LEDGER_BACKEND", &cfg.Ledger.Backend)
	str("LEDGERD_LEDGER_PATH", &cfg.Ledger.Path)
	str("LEDGERD_SETUP_PATH", &cfg.Setup.Path)
	str("LEDGERD_SETUP_OUTPUT", &cfg.Setup.Output)
	str("LEDGERD_LOG_LEVEL", &cfg.Log.Level)
	str("LEDGERD_LOG_FORMAT", &cfg.Log.Format)

	if v := strings.TrimSpace(os.Getenv("LEDGERD_RPC_WORKERS")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: LEDGERD_RPC_WORKERS: %w", err)
		}
		cfg.RPC.Workers = n
	}
	if v := strings.TrimSpace(os.Getenv("LEDGERD_RPC_RATE_LIMIT_ENABLED")); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("config: LEDGERD_RPC_RATE_LIMIT_ENABLED: %w", err)
		}
		cfg.RPC.RateLimit.Enabled = b
	}
	if v := strings.TrimSpace(os.Getenv("LEDGERD_RPC_RATE_LIMIT_RPS")); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("config: LEDGERD_RPC_RATE_LIMIT_RPS: %w", err)
		}
		cfg.RPC.RateLimit.RPS = f
	}
	if v := strings.TrimSpace(os.Getenv("LEDGERD_EPOCH_INTERVAL")); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("config: LEDGERD_EPOCH_INTERVAL: %w", err)
		}
		cfg.Epoch.Interval = d
	}
	return nil
}
