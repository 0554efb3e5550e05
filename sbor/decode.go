package sbor

import (
	"encoding/binary"
	"unicode/utf8"

	"github.com/holiman/uint256"
)

// MaxDepth bounds the nesting of composite values.
const MaxDepth = 64

// Decode decodes exactly one value from data. Trailing bytes are an
// error.
func Decode(data []byte) (Value, error) {
	v, n, err := DecodeNext(data)
	if err != nil {
		return nil, err
	}
	if n != len(data) {
		return nil, &DecodeError{Kind: ErrNotAllBytesUsed, Offset: n}
	}
	return v, nil
}

// DecodeNext decodes one value from the start of data and reports how
// many bytes it consumed.
func DecodeNext(data []byte) (Value, int, error) {
	d := decoder{data: data}
	v, err := d.value()
	if err != nil {
		return nil, d.pos, err
	}
	return v, d.pos, nil
}

type decoder struct {
	data  []byte
	pos   int
	depth int
}

func (d *decoder) underflow() error {
	return &DecodeError{Kind: ErrUnderflow, Offset: d.pos}
}

func (d *decoder) remaining() int { return len(d.data) - d.pos }

func (d *decoder) readByte() (byte, error) {
	if d.pos >= len(d.data) {
		return 0, d.underflow()
	}
	b := d.data[d.pos]
	d.pos++
	return b, nil
}

func (d *decoder) readBytes(n int) ([]byte, error) {
	if n < 0 || n > d.remaining() {
		return nil, d.underflow()
	}
	b := d.data[d.pos : d.pos+n]
	d.pos += n
	return b, nil
}

func (d *decoder) u16() (uint16, error) {
	b, err := d.readBytes(2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

func (d *decoder) u32() (uint32, error) {
	b, err := d.readBytes(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (d *decoder) u64() (uint64, error) {
	b, err := d.readBytes(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

// length reads a u32 count of items that each occupy at least min bytes.
func (d *decoder) length(minSize int) (int, error) {
	start := d.pos
	n, err := d.u32()
	if err != nil {
		return 0, err
	}
	if uint64(n)*uint64(minSize) > uint64(d.remaining()) {
		return 0, &DecodeError{Kind: ErrUnderflow, Offset: start}
	}
	return int(n), nil
}

// expectType reads a tag and checks it against the one required by
// the enclosing collection.
func (d *decoder) expectType(expected byte) error {
	at := d.pos
	t, err := d.readByte()
	if err != nil {
		return err
	}
	if t != expected {
		d.pos = at
		return &DecodeError{Kind: ErrInvalidType, Offset: at, Actual: t, Expected: expected, HasExpected: true}
	}
	return nil
}

func (d *decoder) value() (Value, error) {
	at := d.pos
	t, err := d.readByte()
	if err != nil {
		return nil, err
	}
	return d.valueOf(t, at)
}

func (d *decoder) enter() error {
	d.depth++
	if d.depth > MaxDepth {
		return &DecodeError{Kind: ErrMaxDepth, Offset: d.pos}
	}
	return nil
}

func (d *decoder) leave() { d.depth-- }

// valueOf decodes the payload of a value whose tag t was read at
// offset at.
func (d *decoder) valueOf(t byte, at int) (Value, error) {
	switch t {
	case TypeUnit:
		return Unit{}, nil
	case TypeBool:
		b, err := d.readByte()
		if err != nil {
			return nil, err
		}
		switch b {
		case 0:
			return Bool(false), nil
		case 1:
			return Bool(true), nil
		default:
			return nil, &DecodeError{Kind: ErrInvalidBool, Offset: d.pos - 1, Actual: b}
		}
	case TypeI8:
		b, err := d.readByte()
		return I8(int8(b)), err
	case TypeI16:
		n, err := d.u16()
		return I16(int16(n)), err
	case TypeI32:
		n, err := d.u32()
		return I32(int32(n)), err
	case TypeI64:
		n, err := d.u64()
		return I64(int64(n)), err
	case TypeI128:
		b, err := d.readBytes(16)
		if err != nil {
			return nil, err
		}
		var v I128
		setLE128(&v.Int, b, true)
		return v, nil
	case TypeU8:
		b, err := d.readByte()
		return U8(b), err
	case TypeU16:
		n, err := d.u16()
		return U16(n), err
	case TypeU32:
		n, err := d.u32()
		return U32(n), err
	case TypeU64:
		n, err := d.u64()
		return U64(n), err
	case TypeU128:
		b, err := d.readBytes(16)
		if err != nil {
			return nil, err
		}
		var v U128
		setLE128(&v.Int, b, false)
		return v, nil
	case TypeString:
		s, err := d.readString()
		if err != nil {
			return nil, err
		}
		return String(s), nil
	}

	if t >= TypeCustomStart {
		n, err := d.length(1)
		if err != nil {
			return nil, err
		}
		b, err := d.readBytes(n)
		if err != nil {
			return nil, err
		}
		return Custom{Tag: t, Data: append([]byte(nil), b...)}, nil
	}

	if !isComposite(t) {
		return nil, &DecodeError{Kind: ErrInvalidType, Offset: at, Actual: t}
	}
	if err := d.enter(); err != nil {
		return nil, err
	}
	defer d.leave()

	switch t {
	case TypeOption:
		disc, err := d.readByte()
		if err != nil {
			return nil, err
		}
		switch disc {
		case optionNone:
			return Option{}, nil
		case optionSome:
			v, err := d.value()
			if err != nil {
				return nil, err
			}
			return Option{Value: v}, nil
		default:
			return nil, &DecodeError{Kind: ErrInvalidIndex, Offset: d.pos - 1, Actual: disc}
		}
	case TypeBox:
		v, err := d.value()
		if err != nil {
			return nil, err
		}
		return Box{Value: v}, nil
	case TypeResult:
		disc, err := d.readByte()
		if err != nil {
			return nil, err
		}
		if disc != resultOk && disc != resultErr {
			return nil, &DecodeError{Kind: ErrInvalidIndex, Offset: d.pos - 1, Actual: disc}
		}
		v, err := d.value()
		if err != nil {
			return nil, err
		}
		return Result{Ok: disc == resultOk, Value: v}, nil
	case TypeArray, TypeVec, TypeTreeSet, TypeHashSet:
		elemType, elems, err := d.sequence()
		if err != nil {
			return nil, err
		}
		switch t {
		case TypeArray:
			return Array{ElemType: elemType, Elems: elems}, nil
		case TypeVec:
			return Vec{ElemType: elemType, Elems: elems}, nil
		case TypeTreeSet:
			return TreeSet{ElemType: elemType, Elems: elems}, nil
		default:
			return HashSet{ElemType: elemType, Elems: elems}, nil
		}
	case TypeTuple:
		elems, err := d.values()
		if err != nil {
			return nil, err
		}
		return Tuple{Elems: elems}, nil
	case TypeTreeMap, TypeHashMap:
		kt, vt, entries, err := d.mapEntries()
		if err != nil {
			return nil, err
		}
		if t == TypeTreeMap {
			return TreeMap{KeyType: kt, ValueType: vt, Entries: entries}, nil
		}
		return HashMap{KeyType: kt, ValueType: vt, Entries: entries}, nil
	case TypeStruct:
		f, err := d.fields()
		if err != nil {
			return nil, err
		}
		return Struct{Fields: f}, nil
	case TypeEnum:
		idx, err := d.readByte()
		if err != nil {
			return nil, err
		}
		f, err := d.fields()
		if err != nil {
			return nil, err
		}
		return Enum{Index: idx, Fields: f}, nil
	default:
		return nil, &DecodeError{Kind: ErrInvalidType, Offset: at, Actual: t}
	}
}

func isComposite(t byte) bool {
	switch t {
	case TypeOption, TypeBox, TypeResult, TypeArray, TypeTuple, TypeStruct, TypeEnum,
		TypeVec, TypeTreeSet, TypeTreeMap, TypeHashSet, TypeHashMap:
		return true
	default:
		return false
	}
}

func (d *decoder) readString() (string, error) {
	n, err := d.length(1)
	if err != nil {
		return "", err
	}
	at := d.pos
	b, err := d.readBytes(n)
	if err != nil {
		return "", err
	}
	if !utf8.Valid(b) {
		return "", &DecodeError{Kind: ErrInvalidUtf8, Offset: at}
	}
	return string(b), nil
}

// values decodes a u32 count followed by that many tagged values.
func (d *decoder) values() ([]Value, error) {
	n, err := d.length(1)
	if err != nil {
		return nil, err
	}
	out := make([]Value, 0, n)
	for i := 0; i < n; i++ {
		v, err := d.value()
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// sequence decodes an element tag, a count, and that many values each
// tagged with the element tag.
func (d *decoder) sequence() (byte, []Value, error) {
	elemType, err := d.readByte()
	if err != nil {
		return 0, nil, err
	}
	n, err := d.length(1)
	if err != nil {
		return 0, nil, err
	}
	out := make([]Value, 0, n)
	for i := 0; i < n; i++ {
		v, err := d.typed(elemType)
		if err != nil {
			return 0, nil, err
		}
		out = append(out, v)
	}
	return elemType, out, nil
}

func (d *decoder) typed(expected byte) (Value, error) {
	at := d.pos
	if err := d.expectType(expected); err != nil {
		return nil, err
	}
	return d.valueOf(expected, at)
}

func (d *decoder) mapEntries() (byte, byte, []MapEntry, error) {
	kt, err := d.readByte()
	if err != nil {
		return 0, 0, nil, err
	}
	vt, err := d.readByte()
	if err != nil {
		return 0, 0, nil, err
	}
	n, err := d.length(2)
	if err != nil {
		return 0, 0, nil, err
	}
	out := make([]MapEntry, 0, n)
	for i := 0; i < n; i++ {
		k, err := d.typed(kt)
		if err != nil {
			return 0, 0, nil, err
		}
		v, err := d.typed(vt)
		if err != nil {
			return 0, 0, nil, err
		}
		out = append(out, MapEntry{Key: k, Value: v})
	}
	return kt, vt, out, nil
}

func (d *decoder) fields() (Fields, error) {
	at := d.pos
	t, err := d.readByte()
	if err != nil {
		return nil, err
	}
	switch t {
	case TypeFieldsNamed:
		n, err := d.length(2)
		if err != nil {
			return nil, err
		}
		out := make(NamedFields, 0, n)
		for i := 0; i < n; i++ {
			name, err := d.readString()
			if err != nil {
				return nil, err
			}
			v, err := d.value()
			if err != nil {
				return nil, err
			}
			out = append(out, NamedField{Name: name, Value: v})
		}
		return out, nil
	case TypeFieldsUnnamed:
		vs, err := d.values()
		if err != nil {
			return nil, err
		}
		return UnnamedFields(vs), nil
	case TypeFieldsUnit:
		return UnitFields{}, nil
	default:
		return nil, &DecodeError{Kind: ErrInvalidType, Offset: at, Actual: t}
	}
}

// setLE128 loads 16 little-endian bytes into z, sign-extending when
// signed is set.
func setLE128(z *uint256.Int, b []byte, signed bool) {
	be := make([]byte, 16)
	for i := 0; i < 16; i++ {
		be[15-i] = b[i]
	}
	z.SetBytes(be)
	if signed && b[15]&0x80 != 0 {
		z.Sub(z, new(uint256.Int).Lsh(uint256.NewInt(1), 128))
	}
}
