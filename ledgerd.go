// Package ledgerd defines the boundary between the transaction node
// and its collaborators: the execution engine that builds and runs
// transactions, the ledger it runs them against, and the node service
// exposed to clients.
//
// The core [Node] interface is implemented by server.Server and by the
// transport clients in local and grpc.
package ledgerd

import (
	"context"

	"github.com/blockberries/ledgerd/types"
)

// Node is the service every transport exposes.
//
// The implementation guarantees the following:
//  1. Mutating calls (NewAccount, CallFunction, CallMethod) run one at a
//     time against the ledger and each consumes at least one nonce,
//     whether or not its transaction succeeds.
//  2. GetBalance and Status may run concurrently with each other and
//     observe a consistent ledger.
//  3. Malformed addresses or keys are rejected with an
//     *InvalidParamsError before any ledger access.
type Node interface {
	// NewAccount generates a public key and creates an account
	// component controlled by it.
	NewAccount(ctx context.Context) (types.NewAccountResult, error)

	// CallFunction calls a blueprint function, drops every bucket
	// reference, and deposits remaining buckets into the account.
	// It reports the resources and components the call created.
	CallFunction(ctx context.Context, req types.CallFunctionParams) (types.CallFunctionResult, error)

	// CallMethod calls a component method with the same deposit
	// epilogue as CallFunction and returns the canonical text of each
	// call output, in order.
	CallMethod(ctx context.Context, req types.CallMethodParams) ([]string, error)

	// GetBalance decodes a component's state and reports the amount in
	// every vault it references, keyed by resource address hex.
	GetBalance(ctx context.Context, req types.GetBalanceParams) (types.Balances, error)

	// Status reports the current epoch and nonce.
	Status(ctx context.Context) (types.NodeStatus, error)
}

//go:generate mockgen -destination=ledgerd_mocks.go -package=ledgerd github.com/blockberries/ledgerd Engine,Executor

// Engine creates executors bound to a ledger at a given epoch and
// nonce. An executor is used for exactly one request while the caller
// holds exclusive access to the ledger.
type Engine interface {
	NewExecutor(ledger Ledger, epoch, nonce uint64) Executor
}

// Executor builds and runs transactions.
//
// Every call that issues a nonce (NewPublicKey, NewAccount, Build)
// advances Nonce, including a Build that fails validation.
type Executor interface {
	NewPublicKey() types.Address
	NewAccount(key types.Address) (types.Address, error)
	Build(instructions []types.Instruction, signers []types.Address) (*types.Transaction, error)
	// Run executes tx. An error means the transaction could not run at
	// all and the ledger is unchanged. Per-instruction failures are
	// reported in the receipt instead; they also leave the ledger
	// unchanged.
	Run(tx *types.Transaction) (*types.Receipt, error)
	// Nonce returns the next nonce the executor would issue.
	Nonce() uint64
}

// LedgerReader is the read view used to decode ledger data.
type LedgerReader interface {
	GetComponent(addr types.Address) (Component, bool)
	GetVault(id types.Vid) (Vault, bool)
	GetLazyMap(id types.Mid) (LazyMap, bool)
}

// Component is a read handle on a component. State may fail when the
// backing store cannot be read.
type Component interface {
	State() ([]byte, error)
}

// Vault is a read handle on a vault.
type Vault interface {
	Amount() (types.Decimal, error)
	ResourceAddress() (types.Address, error)
}

// LazyMap is a read handle on a lazy map. Entries are ordered by key
// bytes.
type LazyMap interface {
	Entries() []types.LazyMapEntry
}

// SubstateStore is the record-level access the engine needs. The
// boolean result of a getter reports presence; the error reports a
// storage failure.
type SubstateStore interface {
	Package(addr types.Address) (types.Package, bool, error)
	ComponentSubstate(addr types.Address) (types.Component, bool, error)
	ResourceDef(addr types.Address) (types.ResourceDef, bool, error)
	VaultSubstate(id types.Vid) (types.Vault, bool, error)
	LazyMapEntry(id types.Mid, key []byte) ([]byte, bool, error)
	HasLazyMap(id types.Mid) (bool, error)

	PutPackage(addr types.Address, p types.Package) error
	PutComponent(addr types.Address, c types.Component) error
	PutResourceDef(addr types.Address, r types.ResourceDef) error
	PutVault(id types.Vid, v types.Vault) error
	CreateLazyMap(id types.Mid) error
	PutLazyMapEntry(id types.Mid, key, value []byte) error
}

// Ledger is a complete ledger backend.
type Ledger interface {
	LedgerReader
	SubstateStore
}
