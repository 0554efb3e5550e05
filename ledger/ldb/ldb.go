// Package ldb stores the ledger in LevelDB.
//
// Every substate kind lives in its own table space: a key is one
// prefix byte followed by the entity's canonical bytes. Values are
// CBOR records.
package ldb

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"github.com/ipfs/go-cid"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/storage"
	"github.com/syndtr/goleveldb/leveldb/util"

	"github.com/blockberries/ledgerd"
	"github.com/blockberries/ledgerd/types"
)

var _ ledgerd.Ledger = (*Ledger)(nil)

type table byte

const (
	tablePackage   table = 'p'
	tableComponent table = 'c'
	tableResource  table = 'r'
	tableVault     table = 'v'
	tableLazyMap   table = 'm'
	tableEntry     table = 'e'
)

func key(t table, parts ...[]byte) []byte {
	n := 1
	for _, p := range parts {
		n += len(p)
	}
	k := make([]byte, 1, n)
	k[0] = byte(t)
	for _, p := range parts {
		k = append(k, p...)
	}
	return k
}

type packageRecord struct {
	Code       []byte   `cbor:"1,keyasint"`
	CodeID     []byte   `cbor:"2,keyasint"`
	Blueprints []string `cbor:"3,keyasint"`
}

type componentRecord struct {
	Package   []byte `cbor:"1,keyasint"`
	Blueprint string `cbor:"2,keyasint"`
	State     []byte `cbor:"3,keyasint"`
}

type resourceRecord struct {
	Symbol string `cbor:"1,keyasint"`
	Name   string `cbor:"2,keyasint"`
	Supply []byte `cbor:"3,keyasint"`
}

type vaultRecord struct {
	Resource []byte `cbor:"1,keyasint"`
	Amount   []byte `cbor:"2,keyasint"`
}

// Ledger is a LevelDB backed ledger.
type Ledger struct {
	db *leveldb.DB
}

// Open opens or creates a ledger at path.
func Open(path string) (*Ledger, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, fmt.Errorf("open ledger %s: %w", path, err)
	}
	return &Ledger{db: db}, nil
}

// OpenInMemory opens a ledger backed by memory storage.
func OpenInMemory() (*Ledger, error) {
	db, err := leveldb.Open(storage.NewMemStorage(), nil)
	if err != nil {
		return nil, fmt.Errorf("open in-memory ledger: %w", err)
	}
	return &Ledger{db: db}, nil
}

// Close releases the database.
func (l *Ledger) Close() error {
	return l.db.Close()
}

// load reads and decodes one record. A missing key is reported by the
// boolean result.
func (l *Ledger) load(k []byte, rec any) (bool, error) {
	data, err := l.db.Get(k, nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := cbor.Unmarshal(data, rec); err != nil {
		return false, fmt.Errorf("decode record %x: %w", k, err)
	}
	return true, nil
}

func (l *Ledger) store(k []byte, rec any) error {
	data, err := cbor.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode record %x: %w", k, err)
	}
	return l.db.Put(k, data, nil)
}

func (l *Ledger) Package(addr types.Address) (types.Package, bool, error) {
	var rec packageRecord
	ok, err := l.load(key(tablePackage, addr.Bytes()), &rec)
	if !ok || err != nil {
		return types.Package{}, false, err
	}
	id, err := cid.Cast(rec.CodeID)
	if err != nil {
		return types.Package{}, false, fmt.Errorf("package %s code id: %w", addr, err)
	}
	return types.Package{Code: rec.Code, CodeID: id, Blueprints: rec.Blueprints}, true, nil
}

func (l *Ledger) PutPackage(addr types.Address, p types.Package) error {
	return l.store(key(tablePackage, addr.Bytes()), packageRecord{
		Code:       p.Code,
		CodeID:     p.CodeID.Bytes(),
		Blueprints: p.Blueprints,
	})
}

func (l *Ledger) ComponentSubstate(addr types.Address) (types.Component, bool, error) {
	var rec componentRecord
	ok, err := l.load(key(tableComponent, addr.Bytes()), &rec)
	if !ok || err != nil {
		return types.Component{}, false, err
	}
	pkg, err := types.AddressFromBytes(rec.Package)
	if err != nil {
		return types.Component{}, false, fmt.Errorf("component %s: %w", addr, err)
	}
	return types.Component{Package: pkg, Blueprint: rec.Blueprint, State: rec.State}, true, nil
}

func (l *Ledger) PutComponent(addr types.Address, c types.Component) error {
	return l.store(key(tableComponent, addr.Bytes()), componentRecord{
		Package:   c.Package.Bytes(),
		Blueprint: c.Blueprint,
		State:     c.State,
	})
}

func (l *Ledger) ResourceDef(addr types.Address) (types.ResourceDef, bool, error) {
	var rec resourceRecord
	ok, err := l.load(key(tableResource, addr.Bytes()), &rec)
	if !ok || err != nil {
		return types.ResourceDef{}, false, err
	}
	supply, err := types.DecimalFromBytes(rec.Supply)
	if err != nil {
		return types.ResourceDef{}, false, fmt.Errorf("resource %s supply: %w", addr, err)
	}
	return types.ResourceDef{Symbol: rec.Symbol, Name: rec.Name, Supply: supply}, true, nil
}

func (l *Ledger) PutResourceDef(addr types.Address, r types.ResourceDef) error {
	return l.store(key(tableResource, addr.Bytes()), resourceRecord{
		Symbol: r.Symbol,
		Name:   r.Name,
		Supply: r.Supply.Bytes(),
	})
}

func (l *Ledger) VaultSubstate(id types.Vid) (types.Vault, bool, error) {
	var rec vaultRecord
	ok, err := l.load(key(tableVault, id.Bytes()), &rec)
	if !ok || err != nil {
		return types.Vault{}, false, err
	}
	v, err := rec.vault()
	if err != nil {
		return types.Vault{}, false, fmt.Errorf("vault %s: %w", id, err)
	}
	return v, true, nil
}

func (r vaultRecord) vault() (types.Vault, error) {
	res, err := types.AddressFromBytes(r.Resource)
	if err != nil {
		return types.Vault{}, err
	}
	amount, err := types.DecimalFromBytes(r.Amount)
	if err != nil {
		return types.Vault{}, err
	}
	return types.Vault{Resource: res, Amount: amount}, nil
}

func (l *Ledger) PutVault(id types.Vid, v types.Vault) error {
	return l.store(key(tableVault, id.Bytes()), vaultRecord{
		Resource: v.Resource.Bytes(),
		Amount:   v.Amount.Bytes(),
	})
}

func (l *Ledger) HasLazyMap(id types.Mid) (bool, error) {
	return l.db.Has(key(tableLazyMap, id.Bytes()), nil)
}

func (l *Ledger) CreateLazyMap(id types.Mid) error {
	return l.db.Put(key(tableLazyMap, id.Bytes()), nil, nil)
}

func (l *Ledger) LazyMapEntry(id types.Mid, k []byte) ([]byte, bool, error) {
	v, err := l.db.Get(key(tableEntry, id.Bytes(), k), nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return v, true, nil
}

// PutLazyMapEntry sets k in the map, creating the map if needed.
func (l *Ledger) PutLazyMapEntry(id types.Mid, k, value []byte) error {
	batch := new(leveldb.Batch)
	batch.Put(key(tableLazyMap, id.Bytes()), nil)
	batch.Put(key(tableEntry, id.Bytes(), k), value)
	return l.db.Write(batch, nil)
}

// Read handles. Component and vault handles defer the record read
// until the caller asks for a field, so those reads can fail.

type component struct {
	l    *Ledger
	addr types.Address
}

func (c component) State() ([]byte, error) {
	sub, ok, err := c.l.ComponentSubstate(c.addr)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("component %s: %w", c.addr, leveldb.ErrNotFound)
	}
	return sub.State, nil
}

type vault struct {
	l  *Ledger
	id types.Vid
}

func (v vault) read() (types.Vault, error) {
	sub, ok, err := v.l.VaultSubstate(v.id)
	if err != nil {
		return types.Vault{}, err
	}
	if !ok {
		return types.Vault{}, fmt.Errorf("vault %s: %w", v.id, leveldb.ErrNotFound)
	}
	return sub, nil
}

func (v vault) Amount() (types.Decimal, error) {
	sub, err := v.read()
	return sub.Amount, err
}

func (v vault) ResourceAddress() (types.Address, error) {
	sub, err := v.read()
	return sub.Resource, err
}

type lazyMap []types.LazyMapEntry

func (m lazyMap) Entries() []types.LazyMapEntry { return m }

func (l *Ledger) GetComponent(addr types.Address) (ledgerd.Component, bool) {
	ok, err := l.db.Has(key(tableComponent, addr.Bytes()), nil)
	if err != nil || !ok {
		return nil, false
	}
	return component{l: l, addr: addr}, true
}

func (l *Ledger) GetVault(id types.Vid) (ledgerd.Vault, bool) {
	ok, err := l.db.Has(key(tableVault, id.Bytes()), nil)
	if err != nil || !ok {
		return nil, false
	}
	return vault{l: l, id: id}, true
}

// GetLazyMap returns a snapshot of the map's entries in key order. A
// map whose entries cannot be iterated is reported as absent.
func (l *Ledger) GetLazyMap(id types.Mid) (ledgerd.LazyMap, bool) {
	ok, err := l.HasLazyMap(id)
	if err != nil || !ok {
		return nil, false
	}
	prefix := key(tableEntry, id.Bytes())
	it := l.db.NewIterator(util.BytesPrefix(prefix), nil)
	defer it.Release()

	var entries lazyMap
	for it.Next() {
		entries = append(entries, types.LazyMapEntry{
			Key:   bytes.Clone(it.Key()[len(prefix):]),
			Value: bytes.Clone(it.Value()),
		})
	}
	if it.Error() != nil {
		return nil, false
	}
	return entries, true
}
