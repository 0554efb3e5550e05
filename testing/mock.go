// Package ledgerdtest provides test utilities for the node service: a
// configurable mock engine, a harness over an in-memory ledger, and a
// compliance suite every ledgerd.Node transport should pass.
package ledgerdtest

import (
	"encoding/binary"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/blockberries/ledgerd"
	"github.com/blockberries/ledgerd/types"
)

// Compile-time interface checks.
var (
	_ ledgerd.Engine   = (*MockEngine)(nil)
	_ ledgerd.Executor = (*MockExecutor)(nil)
)

// MockEngine hands out MockExecutors. Handlers set on the engine are
// copied into every executor it creates; unset handlers fall back to
// defaults that issue nonces the way a real executor does.
type MockEngine struct {
	NewPublicKeyFn func(x *MockExecutor) types.Address
	NewAccountFn   func(x *MockExecutor, key types.Address) (types.Address, error)
	BuildFn        func(x *MockExecutor, instructions []types.Instruction, signers []types.Address) (*types.Transaction, error)
	RunFn          func(x *MockExecutor, tx *types.Transaction) (*types.Receipt, error)

	// Call counters (atomic for concurrent access).
	NewExecutorCalls atomic.Int64
	BuildCalls       atomic.Int64
	RunCalls         atomic.Int64

	mu       sync.Mutex
	executed []*types.Transaction
}

func (m *MockEngine) NewExecutor(ledger ledgerd.Ledger, epoch, nonce uint64) ledgerd.Executor {
	m.NewExecutorCalls.Add(1)
	return &MockExecutor{engine: m, Ledger: ledger, Epoch: epoch, nonce: nonce}
}

// Executed returns the transactions passed to Run, in order.
func (m *MockEngine) Executed() []*types.Transaction {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.executed)
}

// MockExecutor is the executor created by MockEngine.
type MockExecutor struct {
	engine *MockEngine
	Ledger ledgerd.Ledger
	Epoch  uint64
	nonce  uint64
}

// Issue consumes and returns the next nonce.
func (x *MockExecutor) Issue() uint64 {
	n := x.nonce
	x.nonce++
	return n
}

func (x *MockExecutor) Nonce() uint64 { return x.nonce }

func (x *MockExecutor) NewPublicKey() types.Address {
	if x.engine.NewPublicKeyFn != nil {
		return x.engine.NewPublicKeyFn(x)
	}
	body := make([]byte, types.PublicKeyLen)
	body[0] = 0x02
	binary.BigEndian.PutUint64(body[len(body)-8:], x.Issue())
	key, err := types.NewAddress(types.KindPublicKey, body)
	if err != nil {
		panic(err)
	}
	return key
}

func (x *MockExecutor) NewAccount(key types.Address) (types.Address, error) {
	if x.engine.NewAccountFn != nil {
		return x.engine.NewAccountFn(x, key)
	}
	x.Issue()
	return types.DeriveAddress(types.KindComponent, key.Bytes()), nil
}

func (x *MockExecutor) Build(instructions []types.Instruction, signers []types.Address) (*types.Transaction, error) {
	x.engine.BuildCalls.Add(1)
	if x.engine.BuildFn != nil {
		return x.engine.BuildFn(x, instructions, signers)
	}
	return &types.Transaction{
		Nonce:        x.Issue(),
		Instructions: slices.Clone(instructions),
		Signers:      slices.Clone(signers),
	}, nil
}

func (x *MockExecutor) Run(tx *types.Transaction) (*types.Receipt, error) {
	x.engine.RunCalls.Add(1)
	x.engine.mu.Lock()
	x.engine.executed = append(x.engine.executed, tx)
	x.engine.mu.Unlock()
	if x.engine.RunFn != nil {
		return x.engine.RunFn(x, tx)
	}
	return &types.Receipt{Results: make([]types.CallResult, len(tx.Instructions))}, nil
}
