package engine

import (
	"encoding/binary"
	"errors"
	"fmt"
	"slices"

	"github.com/blockberries/ledgerd"
	"github.com/blockberries/ledgerd/sbor"
	"github.com/blockberries/ledgerd/types"
)

var _ ledgerd.Executor = (*Executor)(nil)

// Executor builds and runs transactions against one ledger at a fixed
// epoch. It is not safe for concurrent use.
type Executor struct {
	engine *Engine
	ledger ledgerd.Ledger
	epoch  uint64
	nonce  uint64
}

func (x *Executor) Nonce() uint64 { return x.nonce }

func (x *Executor) issue() uint64 {
	n := x.nonce
	x.nonce++
	return n
}

func le64(n uint64) []byte { return binary.LittleEndian.AppendUint64(nil, n) }

// NewPublicKey derives a fresh compressed-form public key from the
// epoch and the next nonce.
func (x *Executor) NewPublicKey() types.Address {
	return types.DeriveAddress(types.KindPublicKey, []byte("public key"), le64(x.epoch), le64(x.issue()))
}

// NewAccount creates an account controlled by key by running a
// transaction that calls the account blueprint.
func (x *Executor) NewAccount(key types.Address) (types.Address, error) {
	tx, err := x.Build([]types.Instruction{
		types.CallFunction{
			Package:   types.SystemPackage,
			Blueprint: AccountBlueprint,
			Function:  "new",
			Args:      []string{key.String()},
		},
	}, []types.Address{key})
	if err != nil {
		return types.Address{}, err
	}
	receipt, err := x.Run(tx)
	if err != nil {
		return types.Address{}, err
	}
	if i, err := receipt.FirstFailure(); err != nil {
		return types.Address{}, fmt.Errorf("instruction %d: %w", i, err)
	}
	_, components, _ := receipt.Partition()
	if len(components) != 1 {
		return types.Address{}, fmt.Errorf("account creation produced %d components", len(components))
	}
	return components[0], nil
}

// Build stamps instructions with the next nonce. The nonce is consumed
// even when validation fails.
func (x *Executor) Build(instructions []types.Instruction, signers []types.Address) (*types.Transaction, error) {
	nonce := x.issue()
	if len(instructions) == 0 {
		return nil, ErrNoInstructions
	}
	if len(signers) == 0 {
		return nil, ErrNoSigners
	}
	for _, s := range signers {
		if !s.IsPublicKey() {
			return nil, fmt.Errorf("%w: %s", ErrInvalidSigner, s)
		}
	}
	for i, ins := range instructions {
		if err := validate(ins); err != nil {
			return nil, fmt.Errorf("instruction %d: %w", i, err)
		}
	}
	return &types.Transaction{
		Nonce:        nonce,
		Instructions: slices.Clone(instructions),
		Signers:      slices.Clone(signers),
	}, nil
}

func validate(ins types.Instruction) error {
	switch i := ins.(type) {
	case types.CallFunction:
		if !i.Package.IsPackage() {
			return fmt.Errorf("%w: %s is not a package", ErrInvalidArgument, i.Package)
		}
		if i.Blueprint == "" || i.Function == "" {
			return fmt.Errorf("%w: empty blueprint or function name", ErrInvalidArgument)
		}
		return validateAccount(i.Account)
	case types.CallMethod:
		if !i.Component.IsComponent() {
			return fmt.Errorf("%w: %s is not a component", ErrInvalidArgument, i.Component)
		}
		if i.Method == "" {
			return fmt.Errorf("%w: empty method name", ErrInvalidArgument)
		}
		return validateAccount(i.Account)
	case types.DepositAllBuckets:
		return validateAccount(&i.Account)
	case types.DropAllBucketRefs:
		return nil
	case types.PublishPackage:
		if len(i.Code) == 0 {
			return ErrEmptyCode
		}
		return nil
	default:
		return fmt.Errorf("%w: unknown instruction %T", ErrInvalidArgument, ins)
	}
}

func validateAccount(a *types.Address) error {
	if a != nil && !a.IsComponent() {
		return fmt.Errorf("%w: account %s is not a component", ErrInvalidArgument, a)
	}
	return nil
}

func txHash(epoch uint64, tx *types.Transaction) types.H256 {
	parts := [][]byte{le64(epoch), le64(tx.Nonce)}
	for _, ins := range tx.Instructions {
		parts = append(parts, []byte(ins.String()))
	}
	for _, s := range tx.Signers {
		parts = append(parts, s.Bytes())
	}
	return types.HashOf(parts...)
}

// Run executes tx. Entities referenced by the transaction must exist;
// otherwise the transaction is rejected. A failing instruction stops
// the run and is reported in the receipt. The ledger is written only
// when every instruction succeeds and no bucket is left holding
// resources.
func (x *Executor) Run(tx *types.Transaction) (*types.Receipt, error) {
	if tx == nil {
		return nil, errors.New("nil transaction")
	}
	hash := txHash(x.epoch, tx)
	t := newTrack(x.ledger)
	if err := precheck(t, tx); err != nil {
		return nil, err
	}

	rt := newRuntime(x.engine, t, tx, hash, x.epoch)
	receipt := &types.Receipt{TxHash: hash}
	failed := false
	for _, ins := range tx.Instructions {
		out, err := x.apply(rt, ins)
		receipt.Results = append(receipt.Results, types.CallResult{Output: out, Err: err})
		if err != nil {
			failed = true
			break
		}
	}
	receipt.Logs = rt.logs
	x.engine.logger.Debug("transaction run",
		"hash", hash,
		"nonce", tx.Nonce,
		"epoch", x.epoch,
		"instructions", len(tx.Instructions),
		"failed", failed,
	)
	if failed {
		return receipt, nil
	}
	if left := rt.remaining(); len(left) > 0 {
		return nil, fmt.Errorf("%w: %v", ErrUnaccounted, left)
	}
	if err := t.flush(); err != nil {
		return nil, fmt.Errorf("commit transaction %s: %w", hash, err)
	}
	receipt.NewEntities = rt.newEntities
	return receipt, nil
}

// precheck rejects transactions that reference missing entities.
func precheck(t *track, tx *types.Transaction) error {
	for _, ins := range tx.Instructions {
		var err error
		switch i := ins.(type) {
		case types.CallFunction:
			err = mustExistPackage(t, i.Package)
			if err == nil && i.Account != nil {
				err = mustExistComponent(t, *i.Account)
			}
		case types.CallMethod:
			err = mustExistComponent(t, i.Component)
			if err == nil && i.Account != nil {
				err = mustExistComponent(t, *i.Account)
			}
		case types.DepositAllBuckets:
			err = mustExistComponent(t, i.Account)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func mustExistPackage(t *track, addr types.Address) error {
	_, ok, err := t.pkg(addr)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrPackageNotFound, addr)
	}
	return nil
}

func mustExistComponent(t *track, addr types.Address) error {
	_, ok, err := t.component(addr)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrComponentNotFound, addr)
	}
	return nil
}

// apply runs one instruction. A panic inside blueprint code is
// reported as the instruction's error.
func (x *Executor) apply(rt *Runtime, ins types.Instruction) (out []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			out, err = nil, fmt.Errorf("blueprint panic: %v", r)
		}
	}()

	var v sbor.Value
	switch i := ins.(type) {
	case types.CallFunction:
		v, err = x.callFunction(rt, i)
	case types.CallMethod:
		v, err = x.callMethod(rt, i)
	case types.DropAllBucketRefs:
		rt.dropRefs()
	case types.DepositAllBuckets:
		err = depositAll(rt, i.Account)
	case types.PublishPackage:
		v, err = publish(rt, i.Code)
	default:
		err = fmt.Errorf("%w: unknown instruction %T", ErrInvalidArgument, ins)
	}
	if err != nil || v == nil {
		return nil, err
	}
	return sbor.Encode(v)
}

func (x *Executor) resolve(rt *Runtime, pkgAddr types.Address, name string) (*Blueprint, error) {
	p, ok, err := rt.track.pkg(pkgAddr)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrPackageNotFound, pkgAddr)
	}
	if !p.HasBlueprint(name) {
		return nil, fmt.Errorf("%w: %s in %s", ErrBlueprintNotFound, name, pkgAddr)
	}
	bp, ok := x.engine.blueprint(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownBlueprint, name)
	}
	return bp, nil
}

func (x *Executor) callFunction(rt *Runtime, i types.CallFunction) (sbor.Value, error) {
	bp, err := x.resolve(rt, i.Package, i.Blueprint)
	if err != nil {
		return nil, err
	}
	fn, ok := bp.Functions[i.Function]
	if !ok {
		return nil, fmt.Errorf("%w: %s::%s", ErrFunctionNotFound, i.Blueprint, i.Function)
	}
	rt.pkg, rt.account = i.Package, i.Account
	return fn(rt, Args{rt: rt, values: i.Args})
}

func (x *Executor) callMethod(rt *Runtime, i types.CallMethod) (sbor.Value, error) {
	c, ok, err := rt.track.component(i.Component)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrComponentNotFound, i.Component)
	}
	bp, err := x.resolve(rt, c.Package, c.Blueprint)
	if err != nil {
		return nil, err
	}
	m, ok := bp.Methods[i.Method]
	if !ok {
		return nil, fmt.Errorf("%w: %s::%s", ErrMethodNotFound, c.Blueprint, i.Method)
	}
	state, err := sbor.Decode(c.State)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadState, err)
	}
	rt.pkg, rt.account = c.Package, i.Account
	self := &Self{Address: i.Component, State: state}
	out, err := m(rt, self, Args{rt: rt, values: i.Args})
	if err != nil {
		return nil, err
	}
	data, err := sbor.Encode(self.State)
	if err != nil {
		return nil, fmt.Errorf("encode state: %w", err)
	}
	// Re-read: the method may have replaced the substate through the runtime.
	c, _, err = rt.track.component(i.Component)
	if err != nil {
		return nil, err
	}
	c.State = data
	rt.track.putComponent(i.Component, c)
	return out, nil
}

func depositAll(rt *Runtime, account types.Address) error {
	for id := range rt.nextBid {
		bid := types.Bid(id)
		b, ok := rt.buckets[bid]
		if !ok {
			continue
		}
		if b.amount.IsZero() {
			delete(rt.buckets, bid)
			continue
		}
		if err := depositToAccount(rt, account, bid); err != nil {
			return err
		}
	}
	return nil
}

func publish(rt *Runtime, code []byte) (sbor.Value, error) {
	names := ParseManifest(code)
	if len(names) == 0 {
		return nil, ErrEmptyCode
	}
	for _, name := range names {
		if _, ok := rt.engine.blueprint(name); !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownBlueprint, name)
		}
	}
	id, err := types.CodeIDOf(code)
	if err != nil {
		return nil, err
	}
	addr := rt.newAddress(types.KindPackage)
	rt.track.putPackage(addr, types.Package{Code: slices.Clone(code), CodeID: id, Blueprints: names})
	rt.Log("published package %s (%s)", addr, id)
	return sbor.AddressValue(addr), nil
}
