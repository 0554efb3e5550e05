package engine

import (
	"encoding/binary"
	"fmt"

	"github.com/blockberries/ledgerd/sbor"
	"github.com/blockberries/ledgerd/types"
)

type bucket struct {
	resource types.Address
	amount   types.Decimal
}

// Runtime is the API blueprints use while a transaction runs. All
// writes are staged and reach the ledger only if the whole
// transaction succeeds.
type Runtime struct {
	engine *Engine
	track  *track
	tx     *types.Transaction
	hash   types.H256
	epoch  uint64

	ids     uint32
	buckets map[types.Bid]*bucket
	nextBid uint32
	refs    map[types.Rid]types.Bid
	nextRid uint32

	newEntities []types.Address
	logs        []string

	// current call frame
	pkg     types.Address
	account *types.Address
}

func newRuntime(e *Engine, t *track, tx *types.Transaction, hash types.H256, epoch uint64) *Runtime {
	return &Runtime{
		engine:  e,
		track:   t,
		tx:      tx,
		hash:    hash,
		epoch:   epoch,
		buckets: make(map[types.Bid]*bucket),
		refs:    make(map[types.Rid]types.Bid),
	}
}

// Epoch returns the epoch the transaction runs in.
func (rt *Runtime) Epoch() uint64 { return rt.epoch }

// TxHash returns the hash of the running transaction.
func (rt *Runtime) TxHash() types.H256 { return rt.hash }

// IsSigner reports whether key signed the transaction.
func (rt *Runtime) IsSigner(key types.Address) bool { return rt.tx.HasSigner(key) }

// Log appends a line to the receipt.
func (rt *Runtime) Log(format string, args ...any) {
	rt.logs = append(rt.logs, fmt.Sprintf(format, args...))
}

func (rt *Runtime) nextID() uint32 {
	id := rt.ids
	rt.ids++
	return id
}

func (rt *Runtime) newAddress(kind types.AddressKind) types.Address {
	var idx [4]byte
	binary.LittleEndian.PutUint32(idx[:], rt.nextID())
	addr := types.DeriveAddress(kind, rt.hash[:], idx[:])
	rt.newEntities = append(rt.newEntities, addr)
	return addr
}

// NewResource defines a fungible resource and returns a bucket holding
// its entire initial supply.
func (rt *Runtime) NewResource(symbol, name string, supply types.Decimal) (types.Address, types.Bid, error) {
	if supply.IsNegative() {
		return types.Address{}, 0, ErrNegativeAmount
	}
	addr := rt.newAddress(types.KindResourceDef)
	rt.track.putResource(addr, types.ResourceDef{Symbol: symbol, Name: name, Supply: supply})
	return addr, rt.newBucket(addr, supply), nil
}

// NewVault creates an empty vault for resource.
func (rt *Runtime) NewVault(resource types.Address) (types.Vid, error) {
	if _, ok, err := rt.track.resource(resource); err != nil {
		return types.Vid{}, err
	} else if !ok {
		return types.Vid{}, fmt.Errorf("%w: %s", ErrResourceNotFound, resource)
	}
	id := types.Vid{Tx: rt.hash, Index: rt.nextID()}
	rt.track.putVault(id, types.Vault{Resource: resource})
	return id, nil
}

// NewComponent instantiates a blueprint of the calling package.
func (rt *Runtime) NewComponent(blueprint string, state sbor.Value) (types.Address, error) {
	p, ok, err := rt.track.pkg(rt.pkg)
	if err != nil {
		return types.Address{}, err
	}
	if !ok || !p.HasBlueprint(blueprint) {
		return types.Address{}, fmt.Errorf("%w: %s", ErrBlueprintNotFound, blueprint)
	}
	data, err := sbor.Encode(state)
	if err != nil {
		return types.Address{}, fmt.Errorf("encode state: %w", err)
	}
	addr := rt.newAddress(types.KindComponent)
	rt.track.putComponent(addr, types.Component{Package: rt.pkg, Blueprint: blueprint, State: data})
	return addr, nil
}

// NewLazyMap creates an empty lazy map.
func (rt *Runtime) NewLazyMap() types.Mid {
	id := types.Mid{Tx: rt.hash, Index: rt.nextID()}
	rt.track.createLazyMap(id)
	return id
}

// LazyMapGet looks up key in the map.
func (rt *Runtime) LazyMapGet(id types.Mid, key sbor.Value) (sbor.Value, bool, error) {
	if ok, err := rt.track.hasLazyMap(id); err != nil {
		return nil, false, err
	} else if !ok {
		return nil, false, fmt.Errorf("%w: %s", ErrLazyMapNotFound, id)
	}
	k, err := sbor.Encode(key)
	if err != nil {
		return nil, false, err
	}
	raw, ok, err := rt.track.lazyMapEntry(id, k)
	if err != nil || !ok {
		return nil, false, err
	}
	v, err := sbor.Decode(raw)
	if err != nil {
		return nil, false, err
	}
	return v, true, nil
}

// LazyMapPut sets key to value in the map.
func (rt *Runtime) LazyMapPut(id types.Mid, key, value sbor.Value) error {
	if ok, err := rt.track.hasLazyMap(id); err != nil {
		return err
	} else if !ok {
		return fmt.Errorf("%w: %s", ErrLazyMapNotFound, id)
	}
	k, err := sbor.Encode(key)
	if err != nil {
		return err
	}
	v, err := sbor.Encode(value)
	if err != nil {
		return err
	}
	rt.track.putLazyMapEntry(id, k, v)
	return nil
}

func (rt *Runtime) newBucket(resource types.Address, amount types.Decimal) types.Bid {
	id := types.Bid(rt.nextBid)
	rt.nextBid++
	rt.buckets[id] = &bucket{resource: resource, amount: amount}
	return id
}

func (rt *Runtime) bucket(id types.Bid) (*bucket, error) {
	b, ok := rt.buckets[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrBucketNotFound, id)
	}
	return b, nil
}

// BucketAmount returns the amount held by a bucket.
func (rt *Runtime) BucketAmount(id types.Bid) (types.Decimal, error) {
	b, err := rt.bucket(id)
	if err != nil {
		return types.Decimal{}, err
	}
	return b.amount, nil
}

// BucketResource returns the resource held by a bucket.
func (rt *Runtime) BucketResource(id types.Bid) (types.Address, error) {
	b, err := rt.bucket(id)
	if err != nil {
		return types.Address{}, err
	}
	return b.resource, nil
}

// Split moves amount out of a bucket into a new one.
func (rt *Runtime) Split(id types.Bid, amount types.Decimal) (types.Bid, error) {
	b, err := rt.bucket(id)
	if err != nil {
		return 0, err
	}
	rest, err := take(b.amount, amount)
	if err != nil {
		return 0, err
	}
	b.amount = rest
	return rt.newBucket(b.resource, amount), nil
}

// NewBucketRef creates a reference to a bucket. A referenced bucket
// cannot be deposited until its references are dropped.
func (rt *Runtime) NewBucketRef(id types.Bid) (types.Rid, error) {
	if _, err := rt.bucket(id); err != nil {
		return 0, err
	}
	ref := types.Rid(rt.nextRid)
	rt.nextRid++
	rt.refs[ref] = id
	return ref, nil
}

func (rt *Runtime) dropRefs() {
	clear(rt.refs)
}

func (rt *Runtime) referenced(id types.Bid) bool {
	for _, b := range rt.refs {
		if b == id {
			return true
		}
	}
	return false
}

// VaultAmount returns the amount held by a vault.
func (rt *Runtime) VaultAmount(id types.Vid) (types.Decimal, error) {
	v, ok, err := rt.track.vault(id)
	if err != nil {
		return types.Decimal{}, err
	}
	if !ok {
		return types.Decimal{}, fmt.Errorf("%w: %s", ErrVaultNotFound, id)
	}
	return v.Amount, nil
}

// Deposit empties a bucket into a vault of the same resource.
func (rt *Runtime) Deposit(vault types.Vid, id types.Bid) error {
	b, err := rt.bucket(id)
	if err != nil {
		return err
	}
	if rt.referenced(id) {
		return fmt.Errorf("%w: %s", ErrBucketReferenced, id)
	}
	v, ok, err := rt.track.vault(vault)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrVaultNotFound, vault)
	}
	if v.Resource != b.resource {
		return fmt.Errorf("%w: vault holds %s, bucket holds %s", ErrResourceMismatch, v.Resource, b.resource)
	}
	sum, err := v.Amount.Add(b.amount)
	if err != nil {
		return err
	}
	v.Amount = sum
	rt.track.putVault(vault, v)
	delete(rt.buckets, id)
	return nil
}

// Withdraw takes amount out of a vault into a new bucket.
func (rt *Runtime) Withdraw(vault types.Vid, amount types.Decimal) (types.Bid, error) {
	v, ok, err := rt.track.vault(vault)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrVaultNotFound, vault)
	}
	rest, err := take(v.Amount, amount)
	if err != nil {
		return 0, err
	}
	v.Amount = rest
	rt.track.putVault(vault, v)
	return rt.newBucket(v.Resource, amount), nil
}

// take returns have minus want, failing if want is negative or larger
// than have.
func take(have, want types.Decimal) (types.Decimal, error) {
	if want.IsNegative() {
		return types.Decimal{}, ErrNegativeAmount
	}
	if have.Cmp(want) < 0 {
		return types.Decimal{}, fmt.Errorf("%w: have %s, want %s", ErrInsufficientBalance, have, want)
	}
	return have.Sub(want)
}

// withdrawFromCaller withdraws from the account attached to the
// current call.
func (rt *Runtime) withdrawFromCaller(amount types.Decimal, resource types.Address) (types.Bid, error) {
	if rt.account == nil {
		return 0, ErrNoAccount
	}
	return withdrawFromAccount(rt, *rt.account, amount, resource)
}

// remaining returns the buckets still holding resources.
func (rt *Runtime) remaining() []types.Bid {
	var out []types.Bid
	for id := range rt.nextBid {
		b, ok := rt.buckets[types.Bid(id)]
		if ok && !b.amount.IsZero() {
			out = append(out, types.Bid(id))
		}
	}
	return out
}
