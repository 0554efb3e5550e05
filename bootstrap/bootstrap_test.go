package bootstrap_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blockberries/ledgerd/bootstrap"
	"github.com/blockberries/ledgerd/engine"
	"github.com/blockberries/ledgerd/example/gumball"
	"github.com/blockberries/ledgerd/example/kvstore"
	"github.com/blockberries/ledgerd/ledger/memory"
	"github.com/blockberries/ledgerd/state"
	"github.com/blockberries/ledgerd/types"
)

func newState(t *testing.T) (*state.Manager, *engine.Engine) {
	t.Helper()
	l := memory.New()
	require.NoError(t, engine.Bootstrap(l))
	return state.New(l), engine.New(engine.WithBlueprints(gumball.Blueprint(), kvstore.Blueprint()))
}

func quiet() bootstrap.Option {
	return bootstrap.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestParse(t *testing.T) {
	d, err := bootstrap.Parse([]byte(`
packages:
  - name: GumballMachine
    call_new: true
    args: ["0.5"]
    components: [machine]
    resources: [gumballs]
`))
	require.NoError(t, err)
	require.Len(t, d.Packages, 1)
	p := d.Packages[0]
	assert.Equal(t, "GumballMachine", p.Name)
	assert.True(t, p.CallNew)
	assert.Equal(t, []string{"0.5"}, p.Args)

	d, err = bootstrap.Parse([]byte(`{"packages":[{"name":"KeyValueStore","call_new":false}]}`))
	require.NoError(t, err)
	assert.Equal(t, "KeyValueStore", d.Packages[0].Name)

	_, err = bootstrap.Parse([]byte(`packages: [{path: x.wasm}]`))
	assert.ErrorContains(t, err, "no name")

	_, err = bootstrap.Parse([]byte(`packages: {`))
	assert.Error(t, err)
}

func TestRun(t *testing.T) {
	st, eng := newState(t)
	d, err := bootstrap.Parse([]byte(`
packages:
  - name: GumballMachine
    call_new: true
    args: ["2"]
    components: [machine]
    resources: [gumballs]
  - name: KeyValueStore
    call_new: true
    components: [store]
`))
	require.NoError(t, err)

	reg, err := bootstrap.Run(context.Background(), st, eng, d, quiet())
	require.NoError(t, err)

	admin, err := types.ParseAddress(reg.AdminAccount)
	require.NoError(t, err)
	assert.True(t, admin.IsComponent())
	key, err := types.ParseAddress(reg.AdminKey)
	require.NoError(t, err)
	assert.True(t, key.IsPublicKey())

	assert.Len(t, reg.Packages, 2)
	assert.Len(t, reg.Components, 2)
	assert.Len(t, reg.Resources, 1)
	for _, addr := range reg.Components {
		a, err := types.ParseAddress(addr)
		require.NoError(t, err)
		assert.True(t, a.IsComponent())
	}

	_, nonce := st.Snapshot()
	assert.Positive(t, nonce)
}

func TestRun_CountMismatchStillCommitsNonce(t *testing.T) {
	st, eng := newState(t)
	d, err := bootstrap.Parse([]byte(`
packages:
  - name: GumballMachine
    call_new: true
    args: ["1"]
    components: [a, b]
`))
	require.NoError(t, err)

	_, err = bootstrap.Run(context.Background(), st, eng, d, quiet())
	assert.ErrorIs(t, err, bootstrap.ErrCountMismatch)
	_, nonce := st.Snapshot()
	assert.Positive(t, nonce)
}

func TestRun_UnregisteredBlueprint(t *testing.T) {
	st, eng := newState(t)
	d, err := bootstrap.Parse([]byte(`packages: [{name: Oracle}]`))
	require.NoError(t, err)
	_, err = bootstrap.Run(context.Background(), st, eng, d, quiet())
	assert.ErrorContains(t, err, "publish Oracle")
}

func TestRun_Canceled(t *testing.T) {
	st, eng := newState(t)
	d, err := bootstrap.Parse([]byte(`packages: [{name: KeyValueStore}]`))
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = bootstrap.Run(ctx, st, eng, d, quiet())
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestLoad_RelativePaths(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "kv.manifest"), engine.Manifest(kvstore.Name), 0o644))
	descriptor := filepath.Join(dir, "setup.yaml")
	require.NoError(t, os.WriteFile(descriptor, []byte("packages:\n  - name: store\n    path: kv.manifest\n"), 0o644))

	d, err := bootstrap.Load(descriptor)
	require.NoError(t, err)

	st, eng := newState(t)
	reg, err := bootstrap.Run(context.Background(), st, eng, d, quiet())
	require.NoError(t, err)
	assert.Contains(t, reg.Packages, "store")

	_, err = bootstrap.Load(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}

func TestRegistry_RoundTrip(t *testing.T) {
	st, eng := newState(t)
	d, err := bootstrap.Parse([]byte(`packages: [{name: GumballMachine, call_new: true, args: ["1"], components: [m], resources: [g]}]`))
	require.NoError(t, err)
	reg, err := bootstrap.Run(context.Background(), st, eng, d, quiet())
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "registry.yaml")
	require.NoError(t, reg.WriteFile(path))
	back, err := bootstrap.ReadRegistry(path)
	require.NoError(t, err)
	assert.Equal(t, reg, back)
}

func TestPublish(t *testing.T) {
	st, eng := newState(t)
	pkg, err := bootstrap.Publish(st, eng, engine.Manifest(gumball.Name))
	require.NoError(t, err)
	assert.True(t, pkg.IsPackage())

	_, err = bootstrap.Publish(st, eng, nil)
	assert.Error(t, err)
}
