package ledgerdtest

import (
	"context"
	"testing"

	"github.com/blockberries/ledgerd"
	"github.com/blockberries/ledgerd/bootstrap"
	"github.com/blockberries/ledgerd/engine"
	"github.com/blockberries/ledgerd/example/gumball"
	"github.com/blockberries/ledgerd/example/kvstore"
	"github.com/blockberries/ledgerd/ledger/memory"
	"github.com/blockberries/ledgerd/metrics"
	"github.com/blockberries/ledgerd/server"
	"github.com/blockberries/ledgerd/state"
	"github.com/blockberries/ledgerd/types"
)

// Harness runs a server over a bootstrapped in-memory ledger with the
// example blueprints published.
type Harness struct {
	t *testing.T

	Ledger  *memory.Ledger
	Engine  *engine.Engine
	State   *state.Manager
	Metrics *metrics.Metrics
	Server  *server.Server

	// Package addresses of the published example blueprints.
	Gumball types.Address
	KVStore types.Address
}

// NewHarness creates a harness. Extra blueprints are registered on the
// engine before anything is published.
func NewHarness(t *testing.T, blueprints ...*engine.Blueprint) *Harness {
	t.Helper()
	l := memory.New()
	if err := engine.Bootstrap(l); err != nil {
		t.Fatalf("bootstrap ledger: %v", err)
	}
	h := &Harness{
		t:       t,
		Ledger:  l,
		Engine:  engine.New(engine.WithBlueprints(append([]*engine.Blueprint{gumball.Blueprint(), kvstore.Blueprint()}, blueprints...)...)),
		Metrics: metrics.New(),
	}
	h.State = state.New(l, state.WithObserver(h.Metrics))
	h.Server = server.New(h.State, h.Engine, server.WithMetrics(h.Metrics))
	h.Gumball = h.Publish(gumball.Code)
	h.KVStore = h.Publish(kvstore.Code)
	return h
}

// Publish publishes code and returns the package address.
func (h *Harness) Publish(code []byte) types.Address {
	h.t.Helper()
	pkg, err := bootstrap.Publish(h.State, h.Engine, code)
	if err != nil {
		h.t.Fatalf("publish: %v", err)
	}
	return pkg
}

// Fixture describes the harness to transport-agnostic tests.
func (h *Harness) Fixture(node ledgerd.Node) Fixture {
	return Fixture{Node: node, Gumball: h.Gumball, KVStore: h.KVStore}
}

// Nonce returns the committed nonce.
func (h *Harness) Nonce() uint64 {
	_, n := h.State.Snapshot()
	return n
}

// Account is a key with the account it controls.
type Account struct {
	Key     string
	Address string
}

// NewAccount creates a funded account through node.
func NewAccount(t *testing.T, node ledgerd.Node) Account {
	t.Helper()
	res, err := node.NewAccount(context.Background())
	if err != nil {
		t.Fatalf("NewAccount failed: %v", err)
	}
	return Account{Key: res.Key, Address: res.Account}
}

// MustCallFunction calls a function and fails the test on error.
func MustCallFunction(t *testing.T, node ledgerd.Node, acct Account, pkg types.Address, blueprint, function string, args ...string) types.CallFunctionResult {
	t.Helper()
	res, err := node.CallFunction(context.Background(), types.CallFunctionParams{
		Address:        pkg.String(),
		Name:           blueprint,
		Function:       function,
		Args:           args,
		AccountAddress: acct.Address,
		Key:            acct.Key,
	})
	if err != nil {
		t.Fatalf("CallFunction %s::%s failed: %v", blueprint, function, err)
	}
	return res
}

// CallMethod calls a method on component as acct.
func CallMethod(node ledgerd.Node, acct Account, component, method string, args ...string) ([]string, error) {
	return node.CallMethod(context.Background(), types.CallMethodParams{
		Address:        component,
		Method:         method,
		Args:           args,
		AccountAddress: acct.Address,
		Key:            acct.Key,
	})
}

// MustCallMethod is CallMethod failing the test on error.
func MustCallMethod(t *testing.T, node ledgerd.Node, acct Account, component, method string, args ...string) []string {
	t.Helper()
	out, err := CallMethod(node, acct, component, method, args...)
	if err != nil {
		t.Fatalf("CallMethod %s failed: %v", method, err)
	}
	return out
}

// Balances returns the balances of address rendered as strings.
func Balances(t *testing.T, node ledgerd.Node, address string) map[string]string {
	t.Helper()
	b, err := node.GetBalance(context.Background(), types.GetBalanceParams{Address: address})
	if err != nil {
		t.Fatalf("GetBalance %s failed: %v", address, err)
	}
	out := make(map[string]string, len(b))
	for k, v := range b {
		out[k] = v.String()
	}
	return out
}
