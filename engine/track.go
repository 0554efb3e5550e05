package engine

import (
	"bytes"

	"github.com/blockberries/ledgerd"
	"github.com/blockberries/ledgerd/types"
)

// track stages substate writes over a store. Reads see staged writes
// first. Nothing reaches the store until flush.
type track struct {
	store ledgerd.SubstateStore

	packages   map[types.Address]types.Package
	components map[types.Address]types.Component
	resources  map[types.Address]types.ResourceDef
	vaults     map[types.Vid]types.Vault
	lazyMaps   map[types.Mid]map[string][]byte

	// write order, so flush is deterministic
	order []func() error
}

func newTrack(store ledgerd.SubstateStore) *track {
	return &track{
		store:      store,
		packages:   make(map[types.Address]types.Package),
		components: make(map[types.Address]types.Component),
		resources:  make(map[types.Address]types.ResourceDef),
		vaults:     make(map[types.Vid]types.Vault),
		lazyMaps:   make(map[types.Mid]map[string][]byte),
	}
}

func (t *track) pkg(addr types.Address) (types.Package, bool, error) {
	if p, ok := t.packages[addr]; ok {
		return p, true, nil
	}
	return t.store.Package(addr)
}

func (t *track) component(addr types.Address) (types.Component, bool, error) {
	if c, ok := t.components[addr]; ok {
		return c, true, nil
	}
	return t.store.ComponentSubstate(addr)
}

func (t *track) resource(addr types.Address) (types.ResourceDef, bool, error) {
	if r, ok := t.resources[addr]; ok {
		return r, true, nil
	}
	return t.store.ResourceDef(addr)
}

func (t *track) vault(id types.Vid) (types.Vault, bool, error) {
	if v, ok := t.vaults[id]; ok {
		return v, true, nil
	}
	return t.store.VaultSubstate(id)
}

func (t *track) hasLazyMap(id types.Mid) (bool, error) {
	if _, ok := t.lazyMaps[id]; ok {
		return true, nil
	}
	return t.store.HasLazyMap(id)
}

func (t *track) lazyMapEntry(id types.Mid, key []byte) ([]byte, bool, error) {
	if m, ok := t.lazyMaps[id]; ok {
		if v, ok := m[string(key)]; ok {
			return v, true, nil
		}
	}
	return t.store.LazyMapEntry(id, key)
}

func (t *track) putPackage(addr types.Address, p types.Package) {
	if _, ok := t.packages[addr]; !ok {
		t.order = append(t.order, func() error { return t.store.PutPackage(addr, t.packages[addr]) })
	}
	t.packages[addr] = p
}

func (t *track) putComponent(addr types.Address, c types.Component) {
	if _, ok := t.components[addr]; !ok {
		t.order = append(t.order, func() error { return t.store.PutComponent(addr, t.components[addr]) })
	}
	t.components[addr] = c
}

func (t *track) putResource(addr types.Address, r types.ResourceDef) {
	if _, ok := t.resources[addr]; !ok {
		t.order = append(t.order, func() error { return t.store.PutResourceDef(addr, t.resources[addr]) })
	}
	t.resources[addr] = r
}

func (t *track) putVault(id types.Vid, v types.Vault) {
	if _, ok := t.vaults[id]; !ok {
		t.order = append(t.order, func() error { return t.store.PutVault(id, t.vaults[id]) })
	}
	t.vaults[id] = v
}

func (t *track) createLazyMap(id types.Mid) {
	if _, ok := t.lazyMaps[id]; ok {
		return
	}
	t.lazyMaps[id] = make(map[string][]byte)
	t.order = append(t.order, func() error { return t.store.CreateLazyMap(id) })
}

func (t *track) putLazyMapEntry(id types.Mid, key, value []byte) {
	m, ok := t.lazyMaps[id]
	if !ok {
		m = make(map[string][]byte)
		t.lazyMaps[id] = m
	}
	k := string(key)
	if _, ok := m[k]; !ok {
		t.order = append(t.order, func() error {
			return t.store.PutLazyMapEntry(id, []byte(k), t.lazyMaps[id][k])
		})
	}
	m[k] = bytes.Clone(value)
}

// flush writes every staged substate to the store, each once with its
// final value, in first-write order.
func (t *track) flush() error {
	for _, write := range t.order {
		if err := write(); err != nil {
			return err
		}
	}
	t.order = nil
	return nil
}
