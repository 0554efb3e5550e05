package server_test

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blockberries/ledgerd"
	"github.com/blockberries/ledgerd/engine"
	"github.com/blockberries/ledgerd/ledger/memory"
	"github.com/blockberries/ledgerd/sbor"
	"github.com/blockberries/ledgerd/server"
	"github.com/blockberries/ledgerd/state"
	ledgerdtest "github.com/blockberries/ledgerd/testing"
	"github.com/blockberries/ledgerd/types"
)

func TestServer_Compliance(t *testing.T) {
	ledgerdtest.RunCompliance(t, func(t *testing.T) ledgerdtest.Fixture {
		h := ledgerdtest.NewHarness(t)
		return h.Fixture(h.Server)
	})
}

// odd returns outputs the formatter refuses to render.
func odd() *engine.Blueprint {
	return &engine.Blueprint{
		Name: "Odd",
		Functions: map[string]engine.Function{
			"new": func(rt *engine.Runtime, _ engine.Args) (sbor.Value, error) {
				addr, err := rt.NewComponent("Odd", sbor.Unit{})
				if err != nil {
					return nil, err
				}
				return sbor.AddressValue(addr), nil
			},
		},
		Methods: map[string]engine.Method{
			"weird": func(*engine.Runtime, *engine.Self, engine.Args) (sbor.Value, error) {
				return sbor.Custom{Tag: 0xee}, nil
			},
			"nothing": func(*engine.Runtime, *engine.Self, engine.Args) (sbor.Value, error) {
				return nil, nil
			},
		},
	}
}

func metricsText(t *testing.T, h *ledgerdtest.Harness) string {
	t.Helper()
	rec := httptest.NewRecorder()
	h.Metrics.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	return rec.Body.String()
}

func TestServer_NewAccountConsumesTwoNonces(t *testing.T) {
	h := ledgerdtest.NewHarness(t)
	before := h.Nonce()
	ledgerdtest.NewAccount(t, h.Server)
	assert.Equal(t, before+2, h.Nonce())
}

func TestServer_CallMethodDecodeFailure(t *testing.T) {
	h := ledgerdtest.NewHarness(t, odd())
	pkg := h.Publish(engine.Manifest("Odd"))
	acct := ledgerdtest.NewAccount(t, h.Server)
	comp := ledgerdtest.MustCallFunction(t, h.Server, acct, pkg, "Odd", "new").Components[0]

	_, err := ledgerdtest.CallMethod(h.Server, acct, comp, "weird")
	df, ok := ledgerd.AsDecodeFailure(err)
	require.True(t, ok, "got %v", err)
	assert.Equal(t, 0, df.Index)
	var de *sbor.DecodeError
	assert.ErrorAs(t, err, &de)
	assert.Contains(t, metricsText(t, h), `ledgerd_request_failures_total{stage="Formatting"} 1`)

	out, err := ledgerdtest.CallMethod(h.Server, acct, comp, "nothing")
	require.NoError(t, err)
	assert.NotNil(t, out)
	assert.Empty(t, out)
}

func TestServer_GetBalanceUnreadableState(t *testing.T) {
	h := ledgerdtest.NewHarness(t)
	broken := types.DeriveAddress(types.KindComponent, []byte("broken"))
	require.NoError(t, h.Ledger.PutComponent(broken, types.Component{
		Package:   h.Gumball,
		Blueprint: "GumballMachine",
		State:     []byte{0xff},
	}))
	_, err := h.Server.GetBalance(context.Background(), types.GetBalanceParams{Address: broken.String()})
	assert.ErrorIs(t, err, ledgerd.ErrBalanceUnavailable)
	assert.Contains(t, metricsText(t, h), `ledgerd_request_failures_total{stage="Formatting"} 1`)
}

func TestServer_GetBalanceSystemAccount(t *testing.T) {
	h := ledgerdtest.NewHarness(t)
	got := ledgerdtest.Balances(t, h.Server, types.SystemAccount.String())
	assert.Equal(t, map[string]string{types.XRDResourceDef.String(): "0"}, got)
}

func TestServer_ValidationFailuresAreCounted(t *testing.T) {
	h := ledgerdtest.NewHarness(t)
	_, err := h.Server.GetBalance(context.Background(), types.GetBalanceParams{Address: "xyz"})
	require.Error(t, err)
	text := metricsText(t, h)
	assert.Contains(t, text, `ledgerd_request_failures_total{stage="Validating"} 1`)
	assert.Contains(t, text, `ledgerd_rpc_requests_total{method="get_balance",outcome="error"} 1`)
}

func TestServer_Status(t *testing.T) {
	h := ledgerdtest.NewHarness(t)
	require.NoError(t, h.State.WithTx(func(tx *state.TxHandle) error {
		tx.AdvanceEpoch()
		return nil
	}))
	st, err := h.Server.Status(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(1), st.Epoch)
	assert.Equal(t, h.Nonce(), st.Nonce)
}

func TestServer_CanceledContext(t *testing.T) {
	h := ledgerdtest.NewHarness(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	before := h.Nonce()
	_, err := h.Server.NewAccount(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	_, err = h.Server.Status(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, before, h.Nonce())
}

func TestServer_EnginePanicReleasesLock(t *testing.T) {
	eng := &ledgerdtest.MockEngine{
		BuildFn: func(x *ledgerdtest.MockExecutor, _ []types.Instruction, _ []types.Address) (*types.Transaction, error) {
			x.Issue()
			panic("engine exploded")
		},
	}
	st := state.New(memory.New(), state.WithNonce(7))
	srv := server.New(st, eng)
	key := types.DeriveAddress(types.KindComponent, []byte("k"))

	_, err := srv.CallMethod(context.Background(), types.CallMethodParams{
		Address:        key.String(),
		Method:         "m",
		AccountAddress: key.String(),
		Key:            key.String(),
	})
	te, ok := ledgerd.AsTransaction(err)
	require.True(t, ok, "got %v", err)
	assert.Equal(t, ledgerd.StageRun, te.Stage)
	assert.ErrorContains(t, err, "engine exploded")

	done := make(chan struct{})
	go func() {
		defer close(done)
		st, err := srv.Status(context.Background())
		assert.NoError(t, err)
		assert.Equal(t, uint64(8), st.Nonce, "nonce issued before the panic is committed")
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("state lock still held after engine panic")
	}
}

func TestServer_CallFunctionPartitionsEntities(t *testing.T) {
	eng := &ledgerdtest.MockEngine{
		RunFn: func(_ *ledgerdtest.MockExecutor, tx *types.Transaction) (*types.Receipt, error) {
			return &types.Receipt{
				NewEntities: []types.Address{
					types.DeriveAddress(types.KindPackage, []byte("p")),
					types.DeriveAddress(types.KindResourceDef, []byte("r1")),
					types.DeriveAddress(types.KindComponent, []byte("c")),
					types.DeriveAddress(types.KindResourceDef, []byte("r2")),
				},
				Results: make([]types.CallResult, len(tx.Instructions)),
			}, nil
		},
	}
	srv := server.New(state.New(memory.New()), eng)
	key := types.DeriveAddress(types.KindComponent, []byte("k")).String()
	res, err := srv.CallFunction(context.Background(), types.CallFunctionParams{
		Address: types.DeriveAddress(types.KindPackage, []byte("x")).String(),
		Name:    "B", Function: "f", AccountAddress: key, Key: key,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{
		types.DeriveAddress(types.KindResourceDef, []byte("r1")).String(),
		types.DeriveAddress(types.KindResourceDef, []byte("r2")).String(),
	}, res.Resources)
	assert.Equal(t, []string{types.DeriveAddress(types.KindComponent, []byte("c")).String()}, res.Components)

	executed := eng.Executed()
	require.Len(t, executed, 1)
	ins := executed[0].Instructions
	require.Len(t, ins, 3)
	assert.IsType(t, types.CallFunction{}, ins[0])
	assert.Equal(t, types.DropAllBucketRefs{}, ins[1])
	assert.IsType(t, types.DepositAllBuckets{}, ins[2])
}

func TestServer_RunErrorIsTransactionError(t *testing.T) {
	boom := errors.New("cannot run")
	eng := &ledgerdtest.MockEngine{
		RunFn: func(*ledgerdtest.MockExecutor, *types.Transaction) (*types.Receipt, error) {
			return nil, boom
		},
	}
	st := state.New(memory.New())
	srv := server.New(st, eng)
	key := types.DeriveAddress(types.KindComponent, []byte("k")).String()
	_, err := srv.CallMethod(context.Background(), types.CallMethodParams{
		Address: key, Method: "m", AccountAddress: key, Key: key,
	})
	assert.ErrorIs(t, err, boom)
	te, ok := ledgerd.AsTransaction(err)
	require.True(t, ok)
	assert.Equal(t, ledgerd.StageRun, te.Stage)
	_, nonce := st.Snapshot()
	assert.Equal(t, uint64(1), nonce)
}

func TestServer_CallMethodResultsInOrder(t *testing.T) {
	refused := errors.New("method refused")
	cases := map[string]struct {
		first     types.CallResult
		wantIndex int
		decode    bool
	}{
		"decode failure before engine error": {first: types.CallResult{Output: []byte{0xff}}, wantIndex: 0, decode: true},
		"engine error after good output":     {first: types.CallResult{Output: sbor.MustEncode(sbor.U8(1))}, wantIndex: 1},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			eng := &ledgerdtest.MockEngine{
				RunFn: func(*ledgerdtest.MockExecutor, *types.Transaction) (*types.Receipt, error) {
					return &types.Receipt{Results: []types.CallResult{tc.first, {Err: refused}}}, nil
				},
			}
			srv := server.New(state.New(memory.New()), eng)
			key := types.DeriveAddress(types.KindComponent, []byte("k")).String()
			_, err := srv.CallMethod(context.Background(), types.CallMethodParams{
				Address: key, Method: "m", AccountAddress: key, Key: key,
			})
			if tc.decode {
				df, ok := ledgerd.AsDecodeFailure(err)
				require.True(t, ok, "got %v", err)
				assert.Equal(t, tc.wantIndex, df.Index)
				return
			}
			ee, ok := ledgerd.AsEngine(err)
			require.True(t, ok, "got %v", err)
			assert.Equal(t, tc.wantIndex, ee.Index)
			assert.ErrorIs(t, err, refused)
		})
	}
}
