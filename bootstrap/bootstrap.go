// Package bootstrap seeds a fresh ledger from a setup descriptor.
//
// A descriptor lists packages to publish and, optionally, instantiate:
//
//	packages:
//	  - name: GumballMachine
//	    call_new: true
//	    args: ["0.5"]
//	    components: [machine0]
//	    resources: [Gumballs]
//
// When path is empty the package code is a manifest exporting the
// blueprint called name. Every step runs under the state manager's
// exclusive handle and one executor, so the whole setup consumes a
// contiguous range of nonces.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/blockberries/ledgerd"
	"github.com/blockberries/ledgerd/engine"
	"github.com/blockberries/ledgerd/state"
	"github.com/blockberries/ledgerd/types"
)

// ErrCountMismatch is returned when instantiating a package produces a
// different number of components or resources than the descriptor names.
var ErrCountMismatch = errors.New("bootstrap: entity count mismatch")

// Package describes one package to publish.
type Package struct {
	Name       string   `yaml:"name" json:"name"`
	Path       string   `yaml:"path,omitempty" json:"path,omitempty"`
	CallNew    bool     `yaml:"call_new" json:"call_new"`
	Args       []string `yaml:"args,omitempty" json:"args,omitempty"`
	Components []string `yaml:"components,omitempty" json:"components,omitempty"`
	Resources  []string `yaml:"resources,omitempty" json:"resources,omitempty"`
}

// Descriptor is the setup file. JSON descriptors parse as YAML.
type Descriptor struct {
	Packages []Package `yaml:"packages" json:"packages"`

	// dir resolves relative package paths.
	dir string
}

// Parse decodes a descriptor. Relative paths resolve against the
// working directory.
func Parse(data []byte) (*Descriptor, error) {
	var d Descriptor
	if err := yaml.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("bootstrap: parse descriptor: %w", err)
	}
	for i, p := range d.Packages {
		if p.Name == "" {
			return nil, fmt.Errorf("bootstrap: package %d has no name", i)
		}
	}
	return &d, nil
}

// Load reads a descriptor file. Relative package paths resolve against
// the file's directory.
func Load(path string) (*Descriptor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: %w", err)
	}
	d, err := Parse(data)
	if err != nil {
		return nil, err
	}
	d.dir = filepath.Dir(path)
	return d, nil
}

func (d *Descriptor) code(p Package) ([]byte, error) {
	if p.Path == "" {
		return engine.Manifest(p.Name), nil
	}
	path := p.Path
	if !filepath.IsAbs(path) && d.dir != "" {
		path = filepath.Join(d.dir, path)
	}
	code, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: package %s: %w", p.Name, err)
	}
	return code, nil
}

// Registry records what setup created. Keys of the maps are the names
// given in the descriptor; values are address hex.
type Registry struct {
	AdminKey     string            `yaml:"admin_key"`
	AdminAccount string            `yaml:"admin_account"`
	Packages     map[string]string `yaml:"packages"`
	Components   map[string]string `yaml:"components"`
	Resources    map[string]string `yaml:"resources"`
}

func newRegistry() *Registry {
	return &Registry{
		Packages:   make(map[string]string),
		Components: make(map[string]string),
		Resources:  make(map[string]string),
	}
}

// WriteFile stores the registry as YAML.
func (r *Registry) WriteFile(path string) error {
	data, err := yaml.Marshal(r)
	if err != nil {
		return fmt.Errorf("bootstrap: encode registry: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}
	return nil
}

// ReadRegistry loads a registry written by WriteFile.
func ReadRegistry(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: %w", err)
	}
	r := newRegistry()
	if err := yaml.Unmarshal(data, r); err != nil {
		return nil, fmt.Errorf("bootstrap: decode registry: %w", err)
	}
	return r, nil
}

// Option configures Run.
type Option func(*runner)

// WithLogger sets the logger used to report created entities.
func WithLogger(logger *slog.Logger) Option {
	return func(r *runner) { r.logger = logger }
}

type runner struct {
	d      *Descriptor
	x      ledgerd.Executor
	logger *slog.Logger
	reg    *Registry
	admin  types.Address
	key    types.Address
}

// Run creates an admin account and publishes every package in d. The
// executor's nonce is committed even when setup fails.
func Run(ctx context.Context, st *state.Manager, eng ledgerd.Engine, d *Descriptor, opts ...Option) (*Registry, error) {
	r := &runner{d: d, logger: slog.Default(), reg: newRegistry()}
	for _, opt := range opts {
		opt(r)
	}

	err := st.WithTx(func(h *state.TxHandle) error {
		r.x = eng.NewExecutor(h.Ledger(), h.Epoch(), h.Nonce())
		defer func() { h.CommitNonce(r.x.Nonce()) }()
		return r.run(ctx)
	})
	if err != nil {
		return nil, err
	}
	return r.reg, nil
}

func (r *runner) run(ctx context.Context) error {
	r.key = r.x.NewPublicKey()
	admin, err := r.x.NewAccount(r.key)
	if err != nil {
		return fmt.Errorf("bootstrap: admin account: %w", err)
	}
	r.admin = admin
	r.reg.AdminKey = r.key.String()
	r.reg.AdminAccount = admin.String()
	r.logger.Info("admin account created", "key", r.reg.AdminKey, "account", r.reg.AdminAccount)

	for _, p := range r.d.Packages {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := r.setup(p); err != nil {
			return err
		}
	}
	return nil
}

func (r *runner) setup(p Package) error {
	code, err := r.d.code(p)
	if err != nil {
		return err
	}
	receipt, err := r.execute("publish "+p.Name, types.PublishPackage{Code: code})
	if err != nil {
		return err
	}
	packages, _, _ := receipt.Partition()
	if len(packages) != 1 {
		return fmt.Errorf("%w: package %s published %d packages", ErrCountMismatch, p.Name, len(packages))
	}
	pkg := packages[0]
	r.reg.Packages[p.Name] = pkg.String()
	r.logger.Info("package published", "name", p.Name, "address", pkg.String())

	if !p.CallNew {
		return nil
	}
	admin := r.admin
	receipt, err = r.execute("instantiate "+p.Name,
		types.CallFunction{Package: pkg, Blueprint: p.Name, Function: "new", Args: p.Args, Account: &admin},
		types.DropAllBucketRefs{},
		types.DepositAllBuckets{Account: admin},
	)
	if err != nil {
		return err
	}
	_, components, resources := receipt.Partition()
	if len(components) != len(p.Components) || len(resources) != len(p.Resources) {
		return fmt.Errorf("%w: %s created %d components and %d resources, descriptor names %d and %d",
			ErrCountMismatch, p.Name, len(components), len(resources), len(p.Components), len(p.Resources))
	}
	for i, name := range p.Resources {
		r.reg.Resources[name] = resources[i].String()
		r.logger.Info("resource instantiated", "name", name, "address", resources[i].String())
	}
	for i, name := range p.Components {
		r.reg.Components[name] = components[i].String()
		r.logger.Info("component instantiated", "name", name, "address", components[i].String())
	}
	return nil
}

func (r *runner) execute(step string, instructions ...types.Instruction) (*types.Receipt, error) {
	tx, err := r.x.Build(instructions, []types.Address{r.key})
	if err != nil {
		return nil, fmt.Errorf("bootstrap: %s: %w", step, &ledgerd.TransactionError{Stage: ledgerd.StageBuild, Err: err})
	}
	receipt, err := r.x.Run(tx)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: %s: %w", step, &ledgerd.TransactionError{Stage: ledgerd.StageRun, Err: err})
	}
	if i, err := receipt.FirstFailure(); err != nil {
		return nil, fmt.Errorf("bootstrap: %s: %w", step, &ledgerd.EngineError{Index: i, Err: err})
	}
	return receipt, nil
}

// Publish publishes code under the exclusive handle and returns the
// package address.
func Publish(st *state.Manager, eng ledgerd.Engine, code []byte) (types.Address, error) {
	var pkg types.Address
	err := st.WithTx(func(h *state.TxHandle) error {
		r := &runner{x: eng.NewExecutor(h.Ledger(), h.Epoch(), h.Nonce())}
		defer func() { h.CommitNonce(r.x.Nonce()) }()
		r.key = r.x.NewPublicKey()
		receipt, err := r.execute("publish", types.PublishPackage{Code: code})
		if err != nil {
			return err
		}
		packages, _, _ := receipt.Partition()
		if len(packages) != 1 {
			return fmt.Errorf("%w: published %d packages", ErrCountMismatch, len(packages))
		}
		pkg = packages[0]
		return nil
	})
	return pkg, err
}
