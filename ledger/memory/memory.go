// Package memory provides an in-memory ledger.
package memory

import (
	"bytes"
	"sort"
	"sync"

	"github.com/blockberries/ledgerd"
	"github.com/blockberries/ledgerd/types"
)

var _ ledgerd.Ledger = (*Ledger)(nil)

// Ledger keeps every substate in maps. It is safe for concurrent use,
// although the node serializes writers through the state manager.
type Ledger struct {
	mu         sync.RWMutex
	packages   map[types.Address]types.Package
	components map[types.Address]types.Component
	resources  map[types.Address]types.ResourceDef
	vaults     map[types.Vid]types.Vault
	lazyMaps   map[types.Mid]map[string][]byte
}

// New returns an empty ledger.
func New() *Ledger {
	return &Ledger{
		packages:   make(map[types.Address]types.Package),
		components: make(map[types.Address]types.Component),
		resources:  make(map[types.Address]types.ResourceDef),
		vaults:     make(map[types.Vid]types.Vault),
		lazyMaps:   make(map[types.Mid]map[string][]byte),
	}
}

// component reads the ledger on every call so the handle sees later
// writes. Substates are never removed, so the entry is always present.
type component struct {
	l    *Ledger
	addr types.Address
}

func (c component) State() ([]byte, error) {
	c.l.mu.RLock()
	defer c.l.mu.RUnlock()
	return bytes.Clone(c.l.components[c.addr].State), nil
}

type vault struct {
	l  *Ledger
	id types.Vid
}

func (v vault) read() types.Vault {
	v.l.mu.RLock()
	defer v.l.mu.RUnlock()
	return v.l.vaults[v.id]
}

func (v vault) Amount() (types.Decimal, error)          { return v.read().Amount, nil }
func (v vault) ResourceAddress() (types.Address, error) { return v.read().Resource, nil }

type lazyMap []types.LazyMapEntry

func (m lazyMap) Entries() []types.LazyMapEntry { return m }

func (l *Ledger) GetComponent(addr types.Address) (ledgerd.Component, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if _, ok := l.components[addr]; !ok {
		return nil, false
	}
	return component{l: l, addr: addr}, true
}

func (l *Ledger) GetVault(id types.Vid) (ledgerd.Vault, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if _, ok := l.vaults[id]; !ok {
		return nil, false
	}
	return vault{l: l, id: id}, true
}

func (l *Ledger) GetLazyMap(id types.Mid) (ledgerd.LazyMap, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	m, ok := l.lazyMaps[id]
	if !ok {
		return nil, false
	}
	entries := make(lazyMap, 0, len(m))
	for k, v := range m {
		entries = append(entries, types.LazyMapEntry{Key: []byte(k), Value: bytes.Clone(v)})
	}
	sort.Slice(entries, func(i, j int) bool {
		return bytes.Compare(entries[i].Key, entries[j].Key) < 0
	})
	return entries, true
}

func (l *Ledger) Package(addr types.Address) (types.Package, bool, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	p, ok := l.packages[addr]
	return p, ok, nil
}

func (l *Ledger) ComponentSubstate(addr types.Address) (types.Component, bool, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	c, ok := l.components[addr]
	if ok {
		c.State = bytes.Clone(c.State)
	}
	return c, ok, nil
}

func (l *Ledger) ResourceDef(addr types.Address) (types.ResourceDef, bool, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	r, ok := l.resources[addr]
	return r, ok, nil
}

func (l *Ledger) VaultSubstate(id types.Vid) (types.Vault, bool, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	v, ok := l.vaults[id]
	return v, ok, nil
}

func (l *Ledger) LazyMapEntry(id types.Mid, key []byte) ([]byte, bool, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	m, ok := l.lazyMaps[id]
	if !ok {
		return nil, false, nil
	}
	v, ok := m[string(key)]
	return bytes.Clone(v), ok, nil
}

func (l *Ledger) HasLazyMap(id types.Mid) (bool, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.lazyMaps[id]
	return ok, nil
}

func (l *Ledger) PutPackage(addr types.Address, p types.Package) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.packages[addr] = p
	return nil
}

func (l *Ledger) PutComponent(addr types.Address, c types.Component) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	c.State = bytes.Clone(c.State)
	l.components[addr] = c
	return nil
}

func (l *Ledger) PutResourceDef(addr types.Address, r types.ResourceDef) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.resources[addr] = r
	return nil
}

func (l *Ledger) PutVault(id types.Vid, v types.Vault) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.vaults[id] = v
	return nil
}

func (l *Ledger) CreateLazyMap(id types.Mid) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.lazyMaps[id]; !ok {
		l.lazyMaps[id] = make(map[string][]byte)
	}
	return nil
}

// PutLazyMapEntry sets key in the map, creating the map if needed.
func (l *Ledger) PutLazyMapEntry(id types.Mid, key, value []byte) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	m, ok := l.lazyMaps[id]
	if !ok {
		m = make(map[string][]byte)
		l.lazyMaps[id] = m
	}
	m[string(key)] = bytes.Clone(value)
	return nil
}
