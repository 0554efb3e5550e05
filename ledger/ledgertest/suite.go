// Package ledgertest holds a behavioral suite every ledger backend
// must pass.
package ledgertest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blockberries/ledgerd"
	"github.com/blockberries/ledgerd/types"
)

// RunSuite runs the backend suite. factory must return an empty
// ledger for every call.
func RunSuite(t *testing.T, factory func(t *testing.T) ledgerd.Ledger) {
	t.Helper()

	tx := types.HashOf([]byte("ledgertest"))
	comp := types.DeriveAddress(types.KindComponent, []byte("component"))
	pkg := types.DeriveAddress(types.KindPackage, []byte("package"))
	res := types.DeriveAddress(types.KindResourceDef, []byte("resource"))

	t.Run("missing_entities", func(t *testing.T) {
		l := factory(t)
		_, ok := l.GetComponent(comp)
		assert.False(t, ok)
		_, ok = l.GetVault(types.Vid{Tx: tx})
		assert.False(t, ok)
		_, ok = l.GetLazyMap(types.Mid{Tx: tx})
		assert.False(t, ok)

		_, ok, err := l.Package(pkg)
		require.NoError(t, err)
		assert.False(t, ok)
		_, ok, err = l.ResourceDef(res)
		require.NoError(t, err)
		assert.False(t, ok)
		_, ok, err = l.LazyMapEntry(types.Mid{Tx: tx}, []byte("k"))
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("package_round_trip", func(t *testing.T) {
		l := factory(t)
		code := []byte("Account\n")
		id, err := types.CodeIDOf(code)
		require.NoError(t, err)
		require.NoError(t, l.PutPackage(pkg, types.Package{Code: code, CodeID: id, Blueprints: []string{"Account"}}))

		got, ok, err := l.Package(pkg)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, code, got.Code)
		assert.True(t, got.CodeID.Equals(id))
		assert.True(t, got.HasBlueprint("Account"))
	})

	t.Run("component_state", func(t *testing.T) {
		l := factory(t)
		require.NoError(t, l.PutComponent(comp, types.Component{Package: pkg, Blueprint: "B", State: []byte{1, 2}}))

		c, ok := l.GetComponent(comp)
		require.True(t, ok)
		state, err := c.State()
		require.NoError(t, err)
		assert.Equal(t, []byte{1, 2}, state)

		sub, ok, err := l.ComponentSubstate(comp)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, pkg, sub.Package)
		assert.Equal(t, "B", sub.Blueprint)

		require.NoError(t, l.PutComponent(comp, types.Component{Package: pkg, Blueprint: "B", State: []byte{3}}))
		state, err = c.State()
		require.NoError(t, err)
		assert.Equal(t, []byte{3}, state, "handle observes the latest state")
	})

	t.Run("vault_and_resource", func(t *testing.T) {
		l := factory(t)
		supply := types.MustParseDecimal("1000.5")
		require.NoError(t, l.PutResourceDef(res, types.ResourceDef{Symbol: "T", Name: "Token", Supply: supply}))
		r, ok, err := l.ResourceDef(res)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, "Token", r.Name)
		assert.Equal(t, 0, r.Supply.Cmp(supply))

		id := types.Vid{Tx: tx, Index: 3}
		require.NoError(t, l.PutVault(id, types.Vault{Resource: res, Amount: types.NewDecimal(3)}))
		v, ok := l.GetVault(id)
		require.True(t, ok)
		amount, err := v.Amount()
		require.NoError(t, err)
		assert.Equal(t, "3", amount.String())
		addr, err := v.ResourceAddress()
		require.NoError(t, err)
		assert.Equal(t, res, addr)
	})

	t.Run("lazy_map_entries_sorted", func(t *testing.T) {
		l := factory(t)
		id := types.Mid{Tx: tx, Index: 1}
		other := types.Mid{Tx: tx, Index: 2}

		require.NoError(t, l.CreateLazyMap(id))
		m, ok := l.GetLazyMap(id)
		require.True(t, ok)
		assert.Empty(t, m.Entries())

		require.NoError(t, l.PutLazyMapEntry(id, []byte("b"), []byte("2")))
		require.NoError(t, l.PutLazyMapEntry(id, []byte("a"), []byte("1")))
		require.NoError(t, l.PutLazyMapEntry(id, []byte("b"), []byte("3")))
		require.NoError(t, l.PutLazyMapEntry(other, []byte("z"), []byte("9")))

		m, ok = l.GetLazyMap(id)
		require.True(t, ok)
		assert.Equal(t, []types.LazyMapEntry{
			{Key: []byte("a"), Value: []byte("1")},
			{Key: []byte("b"), Value: []byte("3")},
		}, m.Entries())

		v, ok, err := l.LazyMapEntry(other, []byte("z"))
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, []byte("9"), v)

		has, err := l.HasLazyMap(other)
		require.NoError(t, err)
		assert.True(t, has, "writing an entry creates the map")
	})
}
