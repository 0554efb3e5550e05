package formatter_test

import (
	"errors"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blockberries/ledgerd"
	"github.com/blockberries/ledgerd/formatter"
	"github.com/blockberries/ledgerd/sbor"
	"github.com/blockberries/ledgerd/types"
)

type fakeMap []types.LazyMapEntry

func (m fakeMap) Entries() []types.LazyMapEntry { return m }

type fakeLedger struct {
	maps map[types.Mid]fakeMap
}

func (l *fakeLedger) GetComponent(types.Address) (ledgerd.Component, bool) { return nil, false }
func (l *fakeLedger) GetVault(types.Vid) (ledgerd.Vault, bool)             { return nil, false }
func (l *fakeLedger) GetLazyMap(id types.Mid) (ledgerd.LazyMap, bool) {
	m, ok := l.maps[id]
	if !ok {
		return nil, false
	}
	return m, true
}

var tx = types.HashOf([]byte("formatter"))

func vid(i uint32) types.Vid { return types.Vid{Tx: tx, Index: i} }

func TestFormat_NamedStruct(t *testing.T) {
	v := sbor.Struct{Fields: sbor.NamedFields{
		{Name: "amount", Value: sbor.DecimalValue(types.MustParseDecimal("5.0"))},
		{Name: "owner", Value: sbor.AddressValue(types.SystemAccount)},
	}}
	got, err := formatter.Format(v, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "Struct { amount: 5, owner: "+types.SystemAccount.String()+" }", got)
}

func TestFormat_Rendering(t *testing.T) {
	cases := []struct {
		name string
		in   sbor.Value
		want string
	}{
		{"unit", sbor.Unit{}, "()"},
		{"bool", sbor.Bool(false), "false"},
		{"ints", sbor.Tuple{Elems: []sbor.Value{sbor.I8(-1), sbor.U16(7), sbor.I64(-9), sbor.U64(10)}}, "(-1, 7, -9, 10)"},
		{"wide ints", sbor.Tuple{Elems: []sbor.Value{sbor.NewI128(-5), sbor.NewU128(6)}}, "(-5, 6)"},
		{"string", sbor.String(`say "hi"`), `"say "hi""`},
		{"unnamed struct", sbor.Struct{Fields: sbor.UnnamedFields{sbor.U8(1), sbor.String("a")}}, `Struct ( 1, "a" )`},
		{"unit struct", sbor.Struct{Fields: sbor.UnitFields{}}, "Struct "},
		{"enum", sbor.Enum{Index: 2, Fields: sbor.NamedFields{{Name: "x", Value: sbor.U32(3)}}}, "Enum::2 { x: 3 }"},
		{"unit enum", sbor.Enum{Index: 0, Fields: sbor.UnitFields{}}, "Enum::0 "},
		{"some", sbor.Option{Value: sbor.U8(4)}, "Some(4)"},
		{"none", sbor.Option{}, "None"},
		{"box", sbor.Box{Value: sbor.Bool(true)}, "Box(true)"},
		{"ok", sbor.Result{Ok: true, Value: sbor.Unit{}}, "Ok(())"},
		{"err", sbor.Result{Value: sbor.String("no")}, `Err("no")`},
		{"array", sbor.Array{ElemType: sbor.TypeU8, Elems: []sbor.Value{sbor.U8(1), sbor.U8(2)}}, "[1, 2]"},
		{"empty array", sbor.Array{ElemType: sbor.TypeU8}, "[]"},
		{"vec", sbor.Vec{ElemType: sbor.TypeU8, Elems: []sbor.Value{sbor.U8(1), sbor.U8(2)}}, "Vec { 1, 2 }"},
		{"empty vec", sbor.Vec{ElemType: sbor.TypeU8}, "Vec {  }"},
		{"tree set", sbor.TreeSet{ElemType: sbor.TypeString, Elems: []sbor.Value{sbor.String("b"), sbor.String("a")}}, `TreeSet { "b", "a" }`},
		{"hash set", sbor.HashSet{ElemType: sbor.TypeU8, Elems: []sbor.Value{sbor.U8(9)}}, "HashSet { 9 }"},
		{"tree map", sbor.TreeMap{KeyType: sbor.TypeString, ValueType: sbor.TypeU8, Entries: []sbor.MapEntry{
			{Key: sbor.String("a"), Value: sbor.U8(1)},
			{Key: sbor.String("b"), Value: sbor.U8(2)},
		}}, `TreeMap { "a" => 1, "b" => 2 }`},
		{"hash map", sbor.HashMap{KeyType: sbor.TypeU8, ValueType: sbor.TypeBool, Entries: []sbor.MapEntry{
			{Key: sbor.U8(1), Value: sbor.Bool(true)},
		}}, "HashMap { 1 => true }"},
		{"decimal", sbor.DecimalValue(types.MustParseDecimal("-12.50")), "-12.5"},
		{"big decimal", sbor.BigDecimalValue(types.NewBigDecimal(big.NewInt(3))), "3"},
		{"hash", sbor.H256Value(tx), tx.String()},
		{"bid", sbor.BidValue(4), "Bid(4)"},
		{"rid", sbor.RidValue(5), "Rid(5)"},
		{"vid", sbor.VidValue(vid(6)), "Vid(" + tx.String() + ", 6)"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := formatter.Format(tc.in, nil, nil)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestFormat_CollectsVaultsInPreOrder(t *testing.T) {
	v := sbor.Struct{Fields: sbor.NamedFields{
		{Name: "first", Value: sbor.VidValue(vid(1))},
		{Name: "nested", Value: sbor.Option{Value: sbor.Vec{ElemType: sbor.TypeVid, Elems: []sbor.Value{
			sbor.VidValue(vid(2)), sbor.VidValue(vid(3)),
		}}}},
		{Name: "map", Value: sbor.HashMap{KeyType: sbor.TypeVid, ValueType: sbor.TypeVid, Entries: []sbor.MapEntry{
			{Key: sbor.VidValue(vid(4)), Value: sbor.VidValue(vid(5))},
		}}},
		{Name: "again", Value: sbor.Box{Value: sbor.VidValue(vid(1))}},
	}}
	var vaults []types.Vid
	_, err := formatter.Format(v, nil, &vaults)
	require.NoError(t, err)
	assert.Equal(t, []types.Vid{vid(1), vid(2), vid(3), vid(4), vid(5), vid(1)}, vaults)
}

func TestFormat_LazyMap(t *testing.T) {
	present := types.Mid{Tx: tx, Index: 1}
	absent := types.Mid{Tx: tx, Index: 2}
	ledger := &fakeLedger{maps: map[types.Mid]fakeMap{
		present: {
			{Key: sbor.MustEncode(sbor.String("a")), Value: sbor.MustEncode(sbor.VidValue(vid(7)))},
			{Key: sbor.MustEncode(sbor.String("b")), Value: sbor.MustEncode(sbor.U32(2))},
		},
	}}

	var vaults []types.Vid
	got, err := formatter.Format(sbor.MidValue(present), ledger, &vaults)
	require.NoError(t, err)
	assert.Equal(t, present.String()+` { "a" => `+vid(7).String()+`, "b" => 2 }`, got)
	assert.Equal(t, []types.Vid{vid(7)}, vaults)

	got, err = formatter.Format(sbor.MidValue(absent), ledger, nil)
	require.NoError(t, err)
	assert.Equal(t, absent.String()+" {  }", got)

	got, err = formatter.Format(sbor.MidValue(present), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, present.String()+" {  }", got)
}

func TestFormat_LazyMapBadEntry(t *testing.T) {
	id := types.Mid{Tx: tx, Index: 9}
	ledger := &fakeLedger{maps: map[types.Mid]fakeMap{
		id: {{Key: []byte{0x0c, 9}, Value: sbor.MustEncode(sbor.Unit{})}},
	}}
	_, err := formatter.Format(sbor.MidValue(id), ledger, nil)
	var de *sbor.DecodeError
	require.True(t, errors.As(err, &de))
	assert.Equal(t, sbor.ErrUnderflow, de.Kind)
}

func TestFormat_LazyMapCycle(t *testing.T) {
	self := types.Mid{Tx: tx, Index: 20}
	a := types.Mid{Tx: tx, Index: 21}
	b := types.Mid{Tx: tx, Index: 22}
	ledger := &fakeLedger{maps: map[types.Mid]fakeMap{
		self: {{Key: sbor.MustEncode(sbor.String("k")), Value: sbor.MustEncode(sbor.MidValue(self))}},
		a:    {{Key: sbor.MustEncode(sbor.String("next")), Value: sbor.MustEncode(sbor.MidValue(b))}},
		b:    {{Key: sbor.MustEncode(sbor.String("next")), Value: sbor.MustEncode(sbor.MidValue(a))}},
	}}

	for _, id := range []types.Mid{self, a} {
		got, err := formatter.Format(sbor.MidValue(id), ledger, nil)
		assert.Empty(t, got)
		var de *sbor.DecodeError
		require.True(t, errors.As(err, &de), "map %s: got %v", id, err)
		assert.Equal(t, sbor.ErrInvalidCustomData, de.Kind)
		assert.Equal(t, sbor.TypeMid, de.Actual)
		assert.ErrorIs(t, err, formatter.ErrLazyMapCycle)
	}
}

func TestFormat_LazyMapSiblingsAreNotCycles(t *testing.T) {
	leaf := types.Mid{Tx: tx, Index: 30}
	ledger := &fakeLedger{maps: map[types.Mid]fakeMap{
		leaf: {{Key: sbor.MustEncode(sbor.U8(1)), Value: sbor.MustEncode(sbor.U8(2))}},
	}}
	got, err := formatter.Format(sbor.Tuple{Elems: []sbor.Value{sbor.MidValue(leaf), sbor.MidValue(leaf)}}, ledger, nil)
	require.NoError(t, err)
	body := leaf.String() + " { 1 => 2 }"
	assert.Equal(t, "("+body+", "+body+")", got)
}

func TestFormat_LazyMapChainDepth(t *testing.T) {
	maps := make(map[types.Mid]fakeMap)
	for i := range uint32(sbor.MaxDepth + 1) {
		next := types.Mid{Tx: tx, Index: 1000 + i + 1}
		maps[types.Mid{Tx: tx, Index: 1000 + i}] = fakeMap{
			{Key: sbor.MustEncode(sbor.U32(i)), Value: sbor.MustEncode(sbor.MidValue(next))},
		}
	}
	_, err := formatter.Format(sbor.MidValue(types.Mid{Tx: tx, Index: 1000}), &fakeLedger{maps: maps}, nil)
	var de *sbor.DecodeError
	require.True(t, errors.As(err, &de), "got %v", err)
	assert.Equal(t, sbor.ErrMaxDepth, de.Kind)
}

func TestFormat_CustomErrors(t *testing.T) {
	_, err := formatter.Format(sbor.Tuple{Elems: []sbor.Value{sbor.U8(1), sbor.Custom{Tag: 0xf0, Data: []byte{1}}}}, nil, nil)
	var de *sbor.DecodeError
	require.True(t, errors.As(err, &de))
	assert.Equal(t, sbor.ErrInvalidType, de.Kind)
	assert.Equal(t, byte(0xf0), de.Actual)

	_, err = formatter.Format(sbor.Custom{Tag: sbor.TypeAddress, Data: []byte{0x02, 0x01}}, nil, nil)
	require.True(t, errors.As(err, &de))
	assert.Equal(t, sbor.ErrInvalidCustomData, de.Kind)
	assert.Equal(t, sbor.TypeAddress, de.Actual)
}

func TestFormatData_Deterministic(t *testing.T) {
	data := sbor.MustEncode(sbor.Struct{Fields: sbor.NamedFields{
		{Name: "vaults", Value: sbor.TreeMap{KeyType: sbor.TypeAddress, ValueType: sbor.TypeVid, Entries: []sbor.MapEntry{
			{Key: sbor.AddressValue(types.XRDResourceDef), Value: sbor.VidValue(vid(1))},
		}}},
	}})

	var first, second []types.Vid
	a, err := formatter.FormatData(data, nil, &first)
	require.NoError(t, err)
	b, err := formatter.FormatData(data, nil, &second)
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Equal(t, first, second)

	_, err = formatter.FormatData(append(data, 0x00), nil, nil)
	assert.Error(t, err)
}
