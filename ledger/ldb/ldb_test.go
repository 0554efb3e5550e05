package ldb

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blockberries/ledgerd"
	"github.com/blockberries/ledgerd/ledger/ledgertest"
	"github.com/blockberries/ledgerd/types"
)

func openTemp(t *testing.T) *Ledger {
	t.Helper()
	l, err := Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() })
	return l
}

func TestLedger_OnDisk(t *testing.T) {
	ledgertest.RunSuite(t, func(t *testing.T) ledgerd.Ledger { return openTemp(t) })
}

func TestLedger_InMemory(t *testing.T) {
	ledgertest.RunSuite(t, func(t *testing.T) ledgerd.Ledger {
		l, err := OpenInMemory()
		require.NoError(t, err)
		t.Cleanup(func() { l.Close() })
		return l
	})
}

func TestLedger_Reopen(t *testing.T) {
	dir := t.TempDir()
	addr := types.DeriveAddress(types.KindComponent, []byte("persist"))

	l, err := Open(dir)
	require.NoError(t, err)
	require.NoError(t, l.PutComponent(addr, types.Component{Package: types.SystemPackage, Blueprint: "Account", State: []byte{7}}))
	require.NoError(t, l.Close())

	l, err = Open(dir)
	require.NoError(t, err)
	defer l.Close()
	c, ok := l.GetComponent(addr)
	require.True(t, ok)
	state, err := c.State()
	require.NoError(t, err)
	assert.Equal(t, []byte{7}, state)
}

func TestLedger_CorruptRecord(t *testing.T) {
	l := openTemp(t)
	id := types.Vid{Index: 1}
	require.NoError(t, l.db.Put(key(tableVault, id.Bytes()), []byte{0xff}, nil))

	v, ok := l.GetVault(id)
	require.True(t, ok)
	_, err := v.Amount()
	assert.Error(t, err)
	_, _, err = l.VaultSubstate(id)
	assert.Error(t, err)
}

func TestKeyLayout(t *testing.T) {
	id := types.Mid{Index: 2}
	k := key(tableEntry, id.Bytes(), []byte("x"))
	assert.Equal(t, byte(tableEntry), k[0])
	assert.Equal(t, 1+types.HandleLen+1, len(k))
}
