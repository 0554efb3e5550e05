// Package sbor implements the self-describing binary value format used
// for component state, call arguments and call results.
//
// Every value is a one-byte type tag followed by its payload. Decoding
// yields a tree of [Value]; the tree is a closed set of concrete types
// that callers match with a type switch.
package sbor

import (
	"github.com/holiman/uint256"
)

// Type tags.
const (
	TypeUnit   byte = 0x00
	TypeBool   byte = 0x01
	TypeI8     byte = 0x02
	TypeI16    byte = 0x03
	TypeI32    byte = 0x04
	TypeI64    byte = 0x05
	TypeI128   byte = 0x06
	TypeU8     byte = 0x07
	TypeU16    byte = 0x08
	TypeU32    byte = 0x09
	TypeU64    byte = 0x0a
	TypeU128   byte = 0x0b
	TypeString byte = 0x0c

	TypeOption byte = 0x20
	TypeBox    byte = 0x21
	TypeArray  byte = 0x22
	TypeTuple  byte = 0x23
	TypeStruct byte = 0x24
	TypeEnum   byte = 0x25
	TypeResult byte = 0x26

	TypeVec     byte = 0x30
	TypeTreeSet byte = 0x31
	TypeTreeMap byte = 0x32
	TypeHashSet byte = 0x33
	TypeHashMap byte = 0x34

	TypeFieldsNamed   byte = 0x40
	TypeFieldsUnnamed byte = 0x41
	TypeFieldsUnit    byte = 0x42

	// TypeCustomStart is the first tag of the custom range. Custom
	// payloads are opaque to the decoder.
	TypeCustomStart byte = 0x80
)

// Domain extension tags in the custom range.
const (
	TypeDecimal    byte = 0x80
	TypeBigDecimal byte = 0x81
	TypeAddress    byte = 0x82
	TypeH256       byte = 0x83
	TypeMid        byte = 0x84
	TypeBid        byte = 0x85
	TypeRid        byte = 0x86
	TypeVid        byte = 0x87
)

// Option and Result discriminators.
const (
	optionNone byte = 0x00
	optionSome byte = 0x01
	resultOk   byte = 0x00
	resultErr  byte = 0x01
)

// Value is a decoded value. The set of implementations is closed.
type Value interface {
	// Type returns the tag the value is encoded with.
	Type() byte
	sealed()
}

type (
	Unit   struct{}
	Bool   bool
	I8     int8
	I16    int16
	I32    int32
	I64    int64
	U8     uint8
	U16    uint16
	U32    uint32
	U64    uint64
	String string
)

// I128 holds a signed 128-bit integer sign-extended to 256 bits.
type I128 struct{ Int uint256.Int }

// U128 holds an unsigned 128-bit integer.
type U128 struct{ Int uint256.Int }

// Struct is a record with named, unnamed or no fields.
type Struct struct{ Fields Fields }

// Enum is one variant of an enumeration.
type Enum struct {
	Index  uint8
	Fields Fields
}

// Option holds Value, or nothing when Value is nil.
type Option struct{ Value Value }

// Box is a transparent single-owner indirection.
type Box struct{ Value Value }

// Result is Ok(Value) or Err(Value).
type Result struct {
	Ok    bool
	Value Value
}

// Array is a fixed-length homogeneous sequence.
type Array struct {
	ElemType byte
	Elems    []Value
}

// Tuple is a heterogeneous sequence.
type Tuple struct{ Elems []Value }

// Vec is a growable homogeneous sequence.
type Vec struct {
	ElemType byte
	Elems    []Value
}

// TreeSet keeps elements in decode order.
type TreeSet struct {
	ElemType byte
	Elems    []Value
}

// HashSet keeps elements in decode order.
type HashSet struct {
	ElemType byte
	Elems    []Value
}

// MapEntry is one key/value pair of a map.
type MapEntry struct {
	Key   Value
	Value Value
}

// TreeMap keeps entries in decode order.
type TreeMap struct {
	KeyType   byte
	ValueType byte
	Entries   []MapEntry
}

// HashMap keeps entries in decode order.
type HashMap struct {
	KeyType   byte
	ValueType byte
	Entries   []MapEntry
}

// Custom is a domain extension value with an opaque payload.
type Custom struct {
	Tag  byte
	Data []byte
}

func (Unit) Type() byte    { return TypeUnit }
func (Bool) Type() byte    { return TypeBool }
func (I8) Type() byte      { return TypeI8 }
func (I16) Type() byte     { return TypeI16 }
func (I32) Type() byte     { return TypeI32 }
func (I64) Type() byte     { return TypeI64 }
func (I128) Type() byte    { return TypeI128 }
func (U8) Type() byte      { return TypeU8 }
func (U16) Type() byte     { return TypeU16 }
func (U32) Type() byte     { return TypeU32 }
func (U64) Type() byte     { return TypeU64 }
func (U128) Type() byte    { return TypeU128 }
func (String) Type() byte  { return TypeString }
func (Struct) Type() byte  { return TypeStruct }
func (Enum) Type() byte    { return TypeEnum }
func (Option) Type() byte  { return TypeOption }
func (Box) Type() byte     { return TypeBox }
func (Result) Type() byte  { return TypeResult }
func (Array) Type() byte   { return TypeArray }
func (Tuple) Type() byte   { return TypeTuple }
func (Vec) Type() byte     { return TypeVec }
func (TreeSet) Type() byte { return TypeTreeSet }
func (HashSet) Type() byte { return TypeHashSet }
func (TreeMap) Type() byte { return TypeTreeMap }
func (HashMap) Type() byte { return TypeHashMap }
func (c Custom) Type() byte {
	return c.Tag
}

func (Unit) sealed()    {}
func (Bool) sealed()    {}
func (I8) sealed()      {}
func (I16) sealed()     {}
func (I32) sealed()     {}
func (I64) sealed()     {}
func (I128) sealed()    {}
func (U8) sealed()      {}
func (U16) sealed()     {}
func (U32) sealed()     {}
func (U64) sealed()     {}
func (U128) sealed()    {}
func (String) sealed()  {}
func (Struct) sealed()  {}
func (Enum) sealed()    {}
func (Option) sealed()  {}
func (Box) sealed()     {}
func (Result) sealed()  {}
func (Array) sealed()   {}
func (Tuple) sealed()   {}
func (Vec) sealed()     {}
func (TreeSet) sealed() {}
func (HashSet) sealed() {}
func (TreeMap) sealed() {}
func (HashMap) sealed() {}
func (Custom) sealed()  {}

// Fields is the body of a Struct or Enum.
type Fields interface {
	fieldsTag() byte
}

// NamedField is one name/value pair of NamedFields.
type NamedField struct {
	Name  string
	Value Value
}

type (
	NamedFields   []NamedField
	UnnamedFields []Value
	UnitFields    struct{}
)

func (NamedFields) fieldsTag() byte   { return TypeFieldsNamed }
func (UnnamedFields) fieldsTag() byte { return TypeFieldsUnnamed }
func (UnitFields) fieldsTag() byte    { return TypeFieldsUnit }

// NewI128 returns n as an I128.
func NewI128(n int64) I128 {
	var v I128
	if n < 0 {
		v.Int.SetUint64(uint64(-n))
		v.Int.Neg(&v.Int)
		return v
	}
	v.Int.SetUint64(uint64(n))
	return v
}

// NewU128 returns n as a U128.
func NewU128(n uint64) U128 {
	var v U128
	v.Int.SetUint64(n)
	return v
}

// String renders the signed value in base 10.
func (v I128) String() string {
	if v.Int.Sign() < 0 {
		return "-" + new(uint256.Int).Abs(&v.Int).Dec()
	}
	return v.Int.Dec()
}

func (v U128) String() string { return v.Int.Dec() }
