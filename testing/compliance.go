package ledgerdtest

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/blockberries/ledgerd"
	"github.com/blockberries/ledgerd/example/gumball"
	"github.com/blockberries/ledgerd/example/kvstore"
	"github.com/blockberries/ledgerd/types"
)

// Fixture is what the compliance suite needs from a transport: a node
// and the addresses of the published example packages.
type Fixture struct {
	Node    ledgerd.Node
	Gumball types.Address
	KVStore types.Address
}

func status(t *testing.T, node ledgerd.Node) types.NodeStatus {
	t.Helper()
	st, err := node.Status(context.Background())
	if err != nil {
		t.Fatalf("Status failed: %v", err)
	}
	return st
}

// RunCompliance runs the node service contract against the node
// returned by factory. The factory should return a fresh node for each
// test.
func RunCompliance(t *testing.T, factory func(t *testing.T) Fixture) {
	t.Helper()
	xrd := types.XRDResourceDef.String()

	t.Run("new_account_funded", func(t *testing.T) {
		f := factory(t)
		acct := NewAccount(t, f.Node)
		if a, err := types.ParseAddress(acct.Address); err != nil || !a.IsComponent() {
			t.Fatalf("account %q is not a component address", acct.Address)
		}
		if k, err := types.ParseAddress(acct.Key); err != nil || !k.IsPublicKey() {
			t.Fatalf("key %q is not a public key", acct.Key)
		}
		got := Balances(t, f.Node, acct.Address)
		if len(got) != 1 || got[xrd] != "1000000" {
			t.Errorf("balances = %v, want {%s: 1000000}", got, xrd)
		}
	})

	t.Run("invalid_params_fail_before_ledger", func(t *testing.T) {
		f := factory(t)
		acct := NewAccount(t, f.Node)
		before := status(t, f.Node)
		ctx := context.Background()

		check := func(name, reason string, err error) {
			t.Helper()
			ip, ok := ledgerd.AsInvalidParams(err)
			if !ok {
				t.Errorf("%s: expected InvalidParamsError, got %v", name, err)
				return
			}
			if ip.Reason != reason {
				t.Errorf("%s: reason = %q, want %q", name, ip.Reason, reason)
			}
		}

		_, err := f.Node.CallFunction(ctx, types.CallFunctionParams{
			Address: "zz", Name: gumball.Name, Function: "new", AccountAddress: acct.Address, Key: acct.Key,
		})
		check("call_function package", ledgerd.ReasonPackageAddress, err)
		_, err = f.Node.CallFunction(ctx, types.CallFunctionParams{
			Address: f.Gumball.String(), Name: gumball.Name, Function: "new", AccountAddress: "02", Key: acct.Key,
		})
		check("call_function account", ledgerd.ReasonAccountAddress, err)
		_, err = f.Node.CallFunction(ctx, types.CallFunctionParams{
			Address: f.Gumball.String(), Name: gumball.Name, Function: "new", AccountAddress: acct.Address, Key: "",
		})
		check("call_function key", ledgerd.ReasonSignerKey, err)
		_, err = CallMethod(f.Node, acct, "not hex", "get_price")
		check("call_method component", ledgerd.ReasonComponentAddress, err)
		_, err = f.Node.GetBalance(ctx, types.GetBalanceParams{Address: "0"})
		check("get_balance address", ledgerd.ReasonComponentAddress, err)
		_, err = f.Node.GetBalance(ctx, types.GetBalanceParams{Address: f.Gumball.String()})
		check("get_balance kind", ledgerd.ReasonNotComponent, err)

		if after := status(t, f.Node); after.Nonce != before.Nonce {
			t.Errorf("nonce moved from %d to %d on rejected input", before.Nonce, after.Nonce)
		}
	})

	t.Run("gumball_round_trip", func(t *testing.T) {
		f := factory(t)
		acct := NewAccount(t, f.Node)
		res := MustCallFunction(t, f.Node, acct, f.Gumball, gumball.Name, "new", "0.5")
		if len(res.Components) != 1 || len(res.Resources) != 1 {
			t.Fatalf("new created %v", res)
		}
		machine, gum := res.Components[0], res.Resources[0]

		out := MustCallMethod(t, f.Node, acct, machine, "buy_gumball", "1,"+xrd)
		if len(out) != 1 || out[0] != "(Bid(2), Bid(0))" {
			t.Errorf("buy_gumball = %q", out)
		}
		if got := MustCallMethod(t, f.Node, acct, machine, "get_price"); len(got) != 1 || got[0] != "0.5" {
			t.Errorf("get_price = %q", got)
		}

		got := Balances(t, f.Node, acct.Address)
		if got[xrd] != "999999.5" || got[gum] != "1" {
			t.Errorf("account balances = %v", got)
		}
		got = Balances(t, f.Node, machine)
		if len(got) != 2 || got[xrd] != "0.5" || got[gum] != "99" {
			t.Errorf("machine balances = %v", got)
		}
	})

	t.Run("lazy_map_outputs", func(t *testing.T) {
		f := factory(t)
		acct := NewAccount(t, f.Node)
		res := MustCallFunction(t, f.Node, acct, f.KVStore, kvstore.Name, "new")
		if len(res.Components) != 1 || len(res.Resources) != 0 {
			t.Fatalf("new created %v", res)
		}
		store := res.Components[0]
		MustCallMethod(t, f.Node, acct, store, "put", "k", "v1")
		if got := MustCallMethod(t, f.Node, acct, store, "put", "k", "v2"); len(got) != 1 || got[0] != `Some("v1")` {
			t.Errorf("put = %q", got)
		}
		if got := MustCallMethod(t, f.Node, acct, store, "get", "missing"); len(got) != 1 || got[0] != "None" {
			t.Errorf("get = %q", got)
		}
		if got := Balances(t, f.Node, store); len(got) != 0 {
			t.Errorf("store holds no vaults, got %v", got)
		}
	})

	t.Run("missing_component_is_transaction_error", func(t *testing.T) {
		f := factory(t)
		acct := NewAccount(t, f.Node)
		before := status(t, f.Node)
		missing := types.DeriveAddress(types.KindComponent, []byte("missing")).String()
		_, err := CallMethod(f.Node, acct, missing, "get_price")
		if _, ok := ledgerd.AsTransaction(err); !ok {
			t.Errorf("expected TransactionError, got %v", err)
		}
		if _, ok := ledgerd.AsDecodeFailure(err); ok {
			t.Errorf("missing component reported as decode failure: %v", err)
		}
		if after := status(t, f.Node); after.Nonce <= before.Nonce {
			t.Errorf("failed transaction did not consume a nonce: %d -> %d", before.Nonce, after.Nonce)
		}
	})

	t.Run("wrong_kind_fails_build", func(t *testing.T) {
		f := factory(t)
		acct := NewAccount(t, f.Node)
		_, err := f.Node.CallFunction(context.Background(), types.CallFunctionParams{
			Address: acct.Address, Name: gumball.Name, Function: "new", AccountAddress: acct.Address, Key: acct.Key,
		})
		if _, ok := ledgerd.AsTransaction(err); !ok {
			t.Errorf("expected TransactionError, got %v", err)
		}
	})

	t.Run("engine_failure_leaves_ledger", func(t *testing.T) {
		f := factory(t)
		acct := NewAccount(t, f.Node)
		machine := MustCallFunction(t, f.Node, acct, f.Gumball, gumball.Name, "new", "5").Components[0]
		_, err := CallMethod(f.Node, acct, machine, "buy_gumball", "1,"+xrd)
		if _, ok := ledgerd.AsEngine(err); !ok {
			t.Errorf("expected EngineError, got %v", err)
		}
		if got := Balances(t, f.Node, acct.Address); got[xrd] != "1000000" {
			t.Errorf("failed call changed balances: %v", got)
		}
	})

	t.Run("balance_of_unknown_component", func(t *testing.T) {
		f := factory(t)
		missing := types.DeriveAddress(types.KindComponent, []byte("missing")).String()
		_, err := f.Node.GetBalance(context.Background(), types.GetBalanceParams{Address: missing})
		if !errors.Is(err, ledgerd.ErrBalanceUnavailable) {
			t.Errorf("expected ErrBalanceUnavailable, got %v", err)
		}
	})

	t.Run("nonce_monotonic_under_concurrency", func(t *testing.T) {
		f := factory(t)
		acct := NewAccount(t, f.Node)
		missing := types.DeriveAddress(types.KindComponent, []byte("missing")).String()
		before := status(t, f.Node)

		const n = 8
		var wg sync.WaitGroup
		errs := make(chan error, 2*n)
		for range n {
			wg.Add(2)
			go func() {
				defer wg.Done()
				_, err := f.Node.NewAccount(context.Background())
				errs <- err
			}()
			go func() {
				defer wg.Done()
				_, err := CallMethod(f.Node, acct, missing, "get_price")
				if err == nil {
					err = errors.New("call on missing component succeeded")
				} else {
					err = nil
				}
				errs <- err
			}()
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			if err != nil {
				t.Error(err)
			}
		}

		after := status(t, f.Node)
		if after.Nonce < before.Nonce+3*n {
			t.Errorf("nonce %d -> %d, want at least %d consumed", before.Nonce, after.Nonce, 3*n)
		}
		if after.Epoch < before.Epoch {
			t.Errorf("epoch went backwards: %d -> %d", before.Epoch, after.Epoch)
		}
	})
}
