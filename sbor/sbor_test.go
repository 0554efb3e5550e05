package sbor_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blockberries/ledgerd/sbor"
	"github.com/blockberries/ledgerd/types"
)

func requireKind(t *testing.T, err error, kind sbor.ErrorKind) *sbor.DecodeError {
	t.Helper()
	var de *sbor.DecodeError
	require.True(t, errors.As(err, &de), "want DecodeError, got %v", err)
	require.Equal(t, kind, de.Kind, de.Error())
	return de
}

func TestDecode_Primitives(t *testing.T) {
	cases := []struct {
		name string
		in   []byte
		want sbor.Value
	}{
		{"unit", []byte{0x00}, sbor.Unit{}},
		{"bool", []byte{0x01, 0x01}, sbor.Bool(true)},
		{"i8", []byte{0x02, 0xff}, sbor.I8(-1)},
		{"i16", []byte{0x03, 0x00, 0x80}, sbor.I16(-32768)},
		{"i32", []byte{0x04, 0x01, 0x00, 0x00, 0x00}, sbor.I32(1)},
		{"u16", []byte{0x08, 0x34, 0x12}, sbor.U16(0x1234)},
		{"u64", []byte{0x0a, 1, 0, 0, 0, 0, 0, 0, 0}, sbor.U64(1)},
		{"string", []byte{0x0c, 2, 0, 0, 0, 'h', 'i'}, sbor.String("hi")},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			v, err := sbor.Decode(tc.in)
			require.NoError(t, err)
			assert.Equal(t, tc.want, v)
		})
	}
}

func TestDecode_UnknownTag(t *testing.T) {
	for _, tag := range []byte{0x0d, 0x1f, 0x27, 0x35, 0x40, 0x7f} {
		v, n, err := sbor.DecodeNext([]byte{tag, 0x00, 0x00, 0x00})
		assert.Nil(t, v)
		de := requireKind(t, err, sbor.ErrInvalidType)
		assert.Equal(t, tag, de.Actual)
		assert.False(t, de.HasExpected)
		assert.Equal(t, 1, n, "only the tag byte is consumed")
	}
}

func TestDecode_ElementTypeMismatch(t *testing.T) {
	// Vec<U8> with a U16 element.
	in := []byte{0x30, 0x07, 1, 0, 0, 0, 0x08, 0x01, 0x00}
	_, err := sbor.Decode(in)
	de := requireKind(t, err, sbor.ErrInvalidType)
	assert.Equal(t, byte(0x08), de.Actual)
	assert.True(t, de.HasExpected)
	assert.Equal(t, sbor.TypeU8, de.Expected)
}

func TestDecode_Malformed(t *testing.T) {
	cases := []struct {
		name string
		in   []byte
		kind sbor.ErrorKind
	}{
		{"empty", nil, sbor.ErrUnderflow},
		{"truncated u32", []byte{0x09, 0x01, 0x02}, sbor.ErrUnderflow},
		{"string past end", []byte{0x0c, 10, 0, 0, 0, 'a'}, sbor.ErrUnderflow},
		{"huge vec count", []byte{0x30, 0x07, 0xff, 0xff, 0xff, 0xff}, sbor.ErrUnderflow},
		{"bad bool", []byte{0x01, 0x02}, sbor.ErrInvalidBool},
		{"bad option", []byte{0x20, 0x05, 0x00}, sbor.ErrInvalidIndex},
		{"bad result", []byte{0x26, 0x02, 0x00}, sbor.ErrInvalidIndex},
		{"bad utf8", []byte{0x0c, 1, 0, 0, 0, 0xff}, sbor.ErrInvalidUtf8},
		{"bad fields tag", []byte{0x24, 0x43}, sbor.ErrInvalidType},
		{"trailing", []byte{0x00, 0x00}, sbor.ErrNotAllBytesUsed},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := sbor.Decode(tc.in)
			requireKind(t, err, tc.kind)
		})
	}
}

func TestDecode_MaxDepth(t *testing.T) {
	var in []byte
	for i := 0; i < sbor.MaxDepth+1; i++ {
		in = append(in, sbor.TypeBox)
	}
	in = append(in, sbor.TypeUnit)
	_, err := sbor.Decode(in)
	requireKind(t, err, sbor.ErrMaxDepth)

	_, err = sbor.Decode(in[1:])
	require.NoError(t, err)
}

func sampleTree() sbor.Value {
	tx := types.HashOf([]byte("sample"))
	return sbor.Struct{Fields: sbor.NamedFields{
		{Name: "amount", Value: sbor.DecimalValue(types.NewDecimal(5))},
		{Name: "owner", Value: sbor.AddressValue(types.SystemAccount)},
		{Name: "big", Value: sbor.NewI128(-42)},
		{Name: "supply", Value: sbor.NewU128(1 << 60)},
		{Name: "tags", Value: sbor.Vec{ElemType: sbor.TypeString, Elems: []sbor.Value{sbor.String("a"), sbor.String("b")}}},
		{Name: "empty", Value: sbor.TreeSet{ElemType: sbor.TypeU32, Elems: []sbor.Value{}}},
		{Name: "pair", Value: sbor.Tuple{Elems: []sbor.Value{sbor.U8(1), sbor.Bool(false)}}},
		{Name: "maybe", Value: sbor.Option{Value: sbor.Box{Value: sbor.VidValue(types.Vid{Tx: tx, Index: 1})}}},
		{Name: "none", Value: sbor.Option{}},
		{Name: "res", Value: sbor.Result{Ok: false, Value: sbor.String("boom")}},
		{Name: "kind", Value: sbor.Enum{Index: 2, Fields: sbor.UnnamedFields{sbor.I64(-7)}}},
		{Name: "unit", Value: sbor.Enum{Index: 0, Fields: sbor.UnitFields{}}},
		{Name: "grid", Value: sbor.Array{ElemType: sbor.TypeI16, Elems: []sbor.Value{sbor.I16(1), sbor.I16(-1)}}},
		{Name: "index", Value: sbor.HashMap{KeyType: sbor.TypeString, ValueType: sbor.TypeVid, Entries: []sbor.MapEntry{
			{Key: sbor.String("x"), Value: sbor.VidValue(types.Vid{Tx: tx, Index: 2})},
		}}},
	}}
}

func TestEncodeDecode_Tree(t *testing.T) {
	want := sampleTree()
	data, err := sbor.Encode(want)
	require.NoError(t, err)

	got, err := sbor.Decode(data)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	again, err := sbor.Encode(got)
	require.NoError(t, err)
	assert.Equal(t, data, again)
}

func TestEncode_RejectsMismatchedElements(t *testing.T) {
	_, err := sbor.Encode(sbor.Vec{ElemType: sbor.TypeU8, Elems: []sbor.Value{sbor.U16(1)}})
	assert.Error(t, err)

	_, err = sbor.Encode(sbor.Custom{Tag: 0x10})
	assert.Error(t, err)
}

func TestI128_String(t *testing.T) {
	assert.Equal(t, "-42", sbor.NewI128(-42).String())
	assert.Equal(t, "42", sbor.NewU128(42).String())

	data := sbor.MustEncode(sbor.NewI128(-1))
	assert.Equal(t, byte(0xff), data[16])
	v, err := sbor.Decode(data)
	require.NoError(t, err)
	assert.Equal(t, "-1", v.(sbor.I128).String())
}

func TestParseCustom(t *testing.T) {
	d, err := sbor.AsDecimal(sbor.DecimalValue(types.MustParseDecimal("2.5")))
	require.NoError(t, err)
	assert.Equal(t, "2.5", d.String())

	a, err := sbor.AsAddress(sbor.AddressValue(types.XRDResourceDef))
	require.NoError(t, err)
	assert.Equal(t, types.XRDResourceDef, a)

	_, err = sbor.ParseCustom(sbor.Custom{Tag: sbor.TypeVid, Data: []byte{1, 2}})
	requireKind(t, err, sbor.ErrInvalidCustomData)

	_, err = sbor.ParseCustom(sbor.Custom{Tag: 0x99})
	requireKind(t, err, sbor.ErrInvalidType)

	_, err = sbor.AsVid(sbor.U8(1))
	assert.Error(t, err)
}

func TestField(t *testing.T) {
	v := sampleTree()
	f, err := sbor.Field(v, "owner")
	require.NoError(t, err)
	owner, err := sbor.AsAddress(f)
	require.NoError(t, err)
	assert.Equal(t, types.SystemAccount, owner)

	_, err = sbor.Field(v, "missing")
	assert.Error(t, err)
	_, err = sbor.Field(sbor.U8(1), "x")
	assert.Error(t, err)
}
