// Package engine is a reference transaction engine with native
// blueprints.
//
// Packages are published as manifests naming blueprints registered
// with the engine. Components, resources, vaults and lazy maps live in
// the ledger the executor is bound to; every transaction runs against
// a staging overlay that reaches the ledger only on success.
package engine

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/blockberries/ledgerd"
	"github.com/blockberries/ledgerd/sbor"
	"github.com/blockberries/ledgerd/types"
)

var _ ledgerd.Engine = (*Engine)(nil)

// Engine holds the blueprint registry and creates executors.
type Engine struct {
	mu         sync.RWMutex
	blueprints map[string]*Blueprint
	logger     *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithBlueprints registers additional blueprints.
func WithBlueprints(bps ...*Blueprint) Option {
	return func(e *Engine) {
		for _, bp := range bps {
			e.blueprints[bp.Name] = bp
		}
	}
}

// WithLogger sets the logger used for transaction tracing.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// New returns an engine with the system blueprints registered.
func New(opts ...Option) *Engine {
	e := &Engine{
		blueprints: map[string]*Blueprint{AccountBlueprint: accountBlueprint()},
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Register adds a blueprint after construction.
func (e *Engine) Register(bp *Blueprint) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.blueprints[bp.Name] = bp
}

func (e *Engine) blueprint(name string) (*Blueprint, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	bp, ok := e.blueprints[name]
	return bp, ok
}

// NewExecutor implements ledgerd.Engine.
func (e *Engine) NewExecutor(ledger ledgerd.Ledger, epoch, nonce uint64) ledgerd.Executor {
	return &Executor{engine: e, ledger: ledger, epoch: epoch, nonce: nonce}
}

// Manifest returns package code exporting the named blueprints.
func Manifest(blueprints ...string) []byte {
	return []byte(strings.Join(blueprints, "\n") + "\n")
}

// ParseManifest returns the blueprint names listed in package code,
// one per line. Blank lines and lines starting with '#' are ignored.
func ParseManifest(code []byte) []string {
	var names []string
	for _, line := range strings.Split(string(code), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		names = append(names, line)
	}
	return names
}

// Bootstrap installs the system package, the XRD resource and the
// system account into an empty ledger. It is a no-op on a ledger that
// already holds the system package.
func Bootstrap(ledger ledgerd.Ledger) error {
	if _, ok, err := ledger.Package(types.SystemPackage); err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	} else if ok {
		return nil
	}

	code := Manifest(AccountBlueprint)
	id, err := types.CodeIDOf(code)
	if err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}
	if err := ledger.PutPackage(types.SystemPackage, types.Package{
		Code:       code,
		CodeID:     id,
		Blueprints: []string{AccountBlueprint},
	}); err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}
	if err := ledger.PutResourceDef(types.XRDResourceDef, types.ResourceDef{
		Symbol: "XRD",
		Name:   "Radix",
	}); err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}

	// The system account holds XRD on behalf of the system key.
	genesis := types.HashOf([]byte("genesis"))
	vaults := types.Mid{Tx: genesis, Index: 0}
	vault := types.Vid{Tx: genesis, Index: 1}
	if err := ledger.PutVault(vault, types.Vault{Resource: types.XRDResourceDef}); err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}
	key, err := sbor.Encode(sbor.AddressValue(types.XRDResourceDef))
	if err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}
	val, err := sbor.Encode(sbor.VidValue(vault))
	if err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}
	if err := ledger.CreateLazyMap(vaults); err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}
	if err := ledger.PutLazyMapEntry(vaults, key, val); err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}
	state, err := sbor.Encode(accountState{key: SystemKey, vaults: vaults}.value())
	if err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}
	if err := ledger.PutComponent(types.SystemAccount, types.Component{
		Package:   types.SystemPackage,
		Blueprint: AccountBlueprint,
		State:     state,
	}); err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}
	return nil
}

// SystemKey controls the system account.
var SystemKey = func() types.Address {
	body := make([]byte, types.PublicKeyLen)
	body[0] = 0x02
	body[len(body)-1] = 0x01
	a, err := types.NewAddress(types.KindPublicKey, body)
	if err != nil {
		panic(err)
	}
	return a
}()
