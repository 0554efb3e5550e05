package engine_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blockberries/ledgerd"
	"github.com/blockberries/ledgerd/engine"
	"github.com/blockberries/ledgerd/example/gumball"
	"github.com/blockberries/ledgerd/example/kvstore"
	"github.com/blockberries/ledgerd/formatter"
	"github.com/blockberries/ledgerd/ledger/memory"
	"github.com/blockberries/ledgerd/sbor"
	"github.com/blockberries/ledgerd/types"
)

// badge is a test blueprint that leaves a referenced bucket on the
// worktop.
func badge() *engine.Blueprint {
	return &engine.Blueprint{
		Name: "Badge",
		Functions: map[string]engine.Function{
			"new_ref": func(rt *engine.Runtime, _ engine.Args) (sbor.Value, error) {
				_, b, err := rt.NewResource("BDG", "Badge", types.NewDecimal(1))
				if err != nil {
					return nil, err
				}
				ref, err := rt.NewBucketRef(b)
				if err != nil {
					return nil, err
				}
				return sbor.RidValue(ref), nil
			},
			"boom": func(*engine.Runtime, engine.Args) (sbor.Value, error) {
				panic("boom")
			},
		},
	}
}

type fixture struct {
	t      *testing.T
	ledger *memory.Ledger
	x      ledgerd.Executor
	key    types.Address
	acct   types.Address
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	l := memory.New()
	require.NoError(t, engine.Bootstrap(l))
	e := engine.New(engine.WithBlueprints(gumball.Blueprint(), kvstore.Blueprint(), badge()))
	f := &fixture{t: t, ledger: l, x: e.NewExecutor(l, 0, 0)}
	f.key = f.x.NewPublicKey()
	acct, err := f.x.NewAccount(f.key)
	require.NoError(t, err)
	f.acct = acct
	return f
}

func (f *fixture) run(ins ...types.Instruction) *types.Receipt {
	f.t.Helper()
	tx, err := f.x.Build(ins, []types.Address{f.key})
	require.NoError(f.t, err)
	r, err := f.x.Run(tx)
	require.NoError(f.t, err)
	return r
}

func (f *fixture) publish(code []byte) types.Address {
	f.t.Helper()
	r := f.run(types.PublishPackage{Code: code})
	_, err := r.FirstFailure()
	require.NoError(f.t, err)
	pkgs, _, _ := r.Partition()
	require.Len(f.t, pkgs, 1)
	return pkgs[0]
}

func (f *fixture) balance(account, resource types.Address) string {
	f.t.Helper()
	r := f.run(types.CallMethod{Component: account, Method: "balance", Args: []string{resource.String()}})
	_, err := r.FirstFailure()
	require.NoError(f.t, err)
	v, err := sbor.Decode(r.Results[0].Output)
	require.NoError(f.t, err)
	d, err := sbor.AsDecimal(v)
	require.NoError(f.t, err)
	return d.String()
}

func TestNonceConsumption(t *testing.T) {
	l := memory.New()
	require.NoError(t, engine.Bootstrap(l))
	x := engine.New().NewExecutor(l, 3, 10)

	k1 := x.NewPublicKey()
	k2 := x.NewPublicKey()
	assert.True(t, k1.IsPublicKey())
	assert.NotEqual(t, k1, k2)
	assert.Equal(t, uint64(12), x.Nonce())

	_, err := x.Build(nil, []types.Address{k1})
	assert.ErrorIs(t, err, engine.ErrNoInstructions)
	_, err = x.Build([]types.Instruction{types.DropAllBucketRefs{}}, nil)
	assert.ErrorIs(t, err, engine.ErrNoSigners)
	_, err = x.Build([]types.Instruction{types.DropAllBucketRefs{}}, []types.Address{types.SystemAccount})
	assert.ErrorIs(t, err, engine.ErrInvalidSigner)
	assert.Equal(t, uint64(15), x.Nonce(), "failed builds consume a nonce")

	tx, err := x.Build([]types.Instruction{types.DropAllBucketRefs{}}, []types.Address{k1})
	require.NoError(t, err)
	assert.Equal(t, uint64(15), tx.Nonce)

	_, err = x.NewAccount(types.SystemAccount)
	assert.ErrorIs(t, err, engine.ErrInvalidSigner)
	assert.Equal(t, uint64(17), x.Nonce())
}

func TestBuild_InstructionKinds(t *testing.T) {
	x := engine.New().NewExecutor(memory.New(), 0, 0)
	key := x.NewPublicKey()
	for _, ins := range []types.Instruction{
		types.CallFunction{Package: types.SystemAccount, Blueprint: "A", Function: "f"},
		types.CallMethod{Component: types.SystemPackage, Method: "m"},
		types.DepositAllBuckets{Account: types.XRDResourceDef},
		types.PublishPackage{},
	} {
		_, err := x.Build([]types.Instruction{ins}, []types.Address{key})
		assert.Error(t, err, ins.String())
	}
}

func TestNewAccount_Funded(t *testing.T) {
	f := newFixture(t)
	assert.True(t, f.acct.IsComponent())
	assert.Equal(t, "1000000", f.balance(f.acct, types.XRDResourceDef))
}

func TestGumballMachine(t *testing.T) {
	f := newFixture(t)
	pkg := f.publish(gumball.Code)

	r := f.run(
		types.CallFunction{Package: pkg, Blueprint: gumball.Name, Function: "new", Args: []string{"0.5"}, Account: &f.acct},
		types.DropAllBucketRefs{},
		types.DepositAllBuckets{Account: f.acct},
	)
	_, err := r.FirstFailure()
	require.NoError(t, err)
	_, comps, resources := r.Partition()
	require.Len(t, comps, 1)
	require.Len(t, resources, 1)
	machine, gum := comps[0], resources[0]

	r = f.run(
		types.CallMethod{Component: machine, Method: "buy_gumball", Args: []string{"2," + types.XRDResourceDef.String()}, Account: &f.acct},
		types.DropAllBucketRefs{},
		types.DepositAllBuckets{Account: f.acct},
	)
	_, err = r.FirstFailure()
	require.NoError(t, err)
	out, err := formatter.FormatData(r.Results[0].Output, f.ledger, nil)
	require.NoError(t, err)
	assert.Equal(t, "(Bid(2), Bid(0))", out)
	assert.Equal(t, []string{"sold a gumball for 0.5"}, r.Logs)

	assert.Equal(t, "999999.5", f.balance(f.acct, types.XRDResourceDef))
	assert.Equal(t, "1", f.balance(f.acct, gum))

	r = f.run(types.CallMethod{Component: machine, Method: "get_price"})
	out, err = formatter.FormatData(r.Results[0].Output, f.ledger, nil)
	require.NoError(t, err)
	assert.Equal(t, "0.5", out)

	r = f.run(types.CallMethod{Component: machine, Method: "status"})
	var vaults []types.Vid
	_, err = formatter.FormatData(r.Results[0].Output, f.ledger, &vaults)
	require.NoError(t, err)
	require.Len(t, vaults, 2)
	v, ok := f.ledger.GetVault(vaults[1])
	require.True(t, ok)
	collected, err := v.Amount()
	require.NoError(t, err)
	assert.Equal(t, "0.5", collected.String())
}

func TestFailedInstructionLeavesLedgerUnchanged(t *testing.T) {
	f := newFixture(t)
	pkg := f.publish(gumball.Code)
	r := f.run(types.CallFunction{Package: pkg, Blueprint: gumball.Name, Function: "new", Args: []string{"5"}})
	_, comps, _ := r.Partition()
	machine := comps[0]

	// Not enough for a gumball: payment is withdrawn then the split fails.
	r = f.run(
		types.CallMethod{Component: machine, Method: "buy_gumball", Args: []string{"1," + types.XRDResourceDef.String()}, Account: &f.acct},
		types.DepositAllBuckets{Account: f.acct},
	)
	i, err := r.FirstFailure()
	assert.Equal(t, 0, i)
	assert.ErrorIs(t, err, engine.ErrInsufficientBalance)
	assert.Len(t, r.Results, 1, "remaining instructions are skipped")
	assert.Empty(t, r.NewEntities)
	assert.Equal(t, "1000000", f.balance(f.acct, types.XRDResourceDef))

	// Another key may not withdraw from the account.
	other := f.x.NewPublicKey()
	tx, err := f.x.Build([]types.Instruction{
		types.CallMethod{Component: f.acct, Method: "withdraw", Args: []string{"1", types.XRDResourceDef.String()}},
		types.DepositAllBuckets{Account: f.acct},
	}, []types.Address{other})
	require.NoError(t, err)
	r, err = f.x.Run(tx)
	require.NoError(t, err)
	_, err = r.FirstFailure()
	assert.ErrorIs(t, err, engine.ErrUnauthorized)
}

func TestRunRejections(t *testing.T) {
	f := newFixture(t)
	missing := types.DeriveAddress(types.KindComponent, []byte("missing"))

	tx, err := f.x.Build([]types.Instruction{types.CallMethod{Component: missing, Method: "balance"}}, []types.Address{f.key})
	require.NoError(t, err)
	_, err = f.x.Run(tx)
	assert.ErrorIs(t, err, engine.ErrComponentNotFound)

	tx, err = f.x.Build([]types.Instruction{
		types.CallFunction{Package: types.DeriveAddress(types.KindPackage, []byte("nope")), Blueprint: "B", Function: "f"},
	}, []types.Address{f.key})
	require.NoError(t, err)
	_, err = f.x.Run(tx)
	assert.ErrorIs(t, err, engine.ErrPackageNotFound)

	// A withdrawal never deposited leaves resources on the worktop.
	tx, err = f.x.Build([]types.Instruction{
		types.CallMethod{Component: f.acct, Method: "withdraw", Args: []string{"1", types.XRDResourceDef.String()}},
	}, []types.Address{f.key})
	require.NoError(t, err)
	_, err = f.x.Run(tx)
	assert.ErrorIs(t, err, engine.ErrUnaccounted)
	assert.Equal(t, "1000000", f.balance(f.acct, types.XRDResourceDef))
}

func TestBucketRefsBlockDeposit(t *testing.T) {
	f := newFixture(t)
	pkg := f.publish(engine.Manifest("Badge"))

	r := f.run(
		types.CallFunction{Package: pkg, Blueprint: "Badge", Function: "new_ref"},
		types.DepositAllBuckets{Account: f.acct},
	)
	_, err := r.FirstFailure()
	assert.ErrorIs(t, err, engine.ErrBucketReferenced)

	r = f.run(
		types.CallFunction{Package: pkg, Blueprint: "Badge", Function: "new_ref"},
		types.DropAllBucketRefs{},
		types.DepositAllBuckets{Account: f.acct},
	)
	_, err = r.FirstFailure()
	require.NoError(t, err)
	out, err := formatter.FormatData(r.Results[0].Output, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "Rid(0)", out)
}

func TestBlueprintPanicIsReported(t *testing.T) {
	f := newFixture(t)
	pkg := f.publish(engine.Manifest("Badge"))
	r := f.run(types.CallFunction{Package: pkg, Blueprint: "Badge", Function: "boom"})
	_, err := r.FirstFailure()
	assert.ErrorContains(t, err, "boom")
}

func TestPublish(t *testing.T) {
	f := newFixture(t)
	r := f.run(types.PublishPackage{Code: engine.Manifest("Unregistered")})
	_, err := r.FirstFailure()
	assert.ErrorIs(t, err, engine.ErrUnknownBlueprint)

	pkg := f.publish([]byte("# store\n" + kvstore.Name + "\n\n"))
	p, ok, err := f.ledger.Package(pkg)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []string{kvstore.Name}, p.Blueprints)
	want, err := types.CodeIDOf(p.Code)
	require.NoError(t, err)
	assert.True(t, want.Equals(p.CodeID))

	r = f.run(types.CallFunction{Package: pkg, Blueprint: gumball.Name, Function: "new", Args: []string{"1"}})
	_, err = r.FirstFailure()
	assert.ErrorIs(t, err, engine.ErrBlueprintNotFound)
}

func TestKeyValueStore(t *testing.T) {
	f := newFixture(t)
	pkg := f.publish(kvstore.Code)
	r := f.run(types.CallFunction{Package: pkg, Blueprint: kvstore.Name, Function: "new"})
	_, comps, _ := r.Partition()
	require.Len(t, comps, 1)
	store := comps[0]

	call := func(method string, args ...string) string {
		t.Helper()
		r := f.run(types.CallMethod{Component: store, Method: method, Args: args})
		_, err := r.FirstFailure()
		require.NoError(t, err)
		out, err := formatter.FormatData(r.Results[0].Output, f.ledger, nil)
		require.NoError(t, err)
		return out
	}

	assert.Equal(t, "None", call("put", "b", "2"))
	assert.Equal(t, "None", call("put", "a", "1"))
	assert.Equal(t, `Some("2")`, call("put", "b", "3"))
	assert.Equal(t, `Some("3")`, call("get", "b"))
	assert.Equal(t, "None", call("get", "zzz"))
	assert.Equal(t, "2", call("len"))

	c, ok := f.ledger.GetComponent(store)
	require.True(t, ok)
	state, err := c.State()
	require.NoError(t, err)
	text, err := formatter.FormatData(state, f.ledger, nil)
	require.NoError(t, err)
	assert.Contains(t, text, `{ "a" => "1", "b" => "3" }`)
	assert.Contains(t, text, "count: 2")
}

func TestBootstrap(t *testing.T) {
	l := memory.New()
	require.NoError(t, engine.Bootstrap(l))
	require.NoError(t, engine.Bootstrap(l))

	c, ok := l.GetComponent(types.SystemAccount)
	require.True(t, ok)
	state, err := c.State()
	require.NoError(t, err)
	var vaults []types.Vid
	_, err = formatter.FormatData(state, l, &vaults)
	require.NoError(t, err)
	require.Len(t, vaults, 1)
	v, ok := l.GetVault(vaults[0])
	require.True(t, ok)
	res, err := v.ResourceAddress()
	require.NoError(t, err)
	assert.Equal(t, types.XRDResourceDef, res)
}

func TestParseManifest(t *testing.T) {
	assert.Equal(t, []string{"A", "B"}, engine.ParseManifest([]byte(" A \n# c\n\nB")))
	assert.Empty(t, engine.ParseManifest([]byte("\n#x\n")))
}
