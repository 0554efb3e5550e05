package sbor

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Encode returns the encoding of v.
func Encode(v Value) ([]byte, error) {
	return Append(nil, v)
}

// MustEncode is like Encode but panics on error. Use only for values
// built in code whose shape is known to be valid.
func MustEncode(v Value) []byte {
	b, err := Encode(v)
	if err != nil {
		panic(err)
	}
	return b
}

// Append appends the encoding of v to buf.
func Append(buf []byte, v Value) ([]byte, error) {
	e := encoder{buf: buf}
	if err := e.value(v, 0); err != nil {
		return nil, err
	}
	return e.buf, nil
}

type encoder struct {
	buf []byte
}

func (e *encoder) u32(n int) error {
	if n < 0 || uint64(n) > math.MaxUint32 {
		return fmt.Errorf("sbor: length %d out of range", n)
	}
	e.buf = binary.LittleEndian.AppendUint32(e.buf, uint32(n))
	return nil
}

func (e *encoder) str(s string) error {
	if err := e.u32(len(s)); err != nil {
		return err
	}
	e.buf = append(e.buf, s...)
	return nil
}

func (e *encoder) value(v Value, depth int) error {
	if v == nil {
		return fmt.Errorf("sbor: cannot encode nil value")
	}
	e.buf = append(e.buf, v.Type())
	return e.payload(v, depth)
}

func (e *encoder) payload(v Value, depth int) error {
	if depth > MaxDepth {
		return fmt.Errorf("sbor: nesting exceeds %d", MaxDepth)
	}
	switch x := v.(type) {
	case Unit:
	case Bool:
		if x {
			e.buf = append(e.buf, 1)
		} else {
			e.buf = append(e.buf, 0)
		}
	case I8:
		e.buf = append(e.buf, byte(x))
	case I16:
		e.buf = binary.LittleEndian.AppendUint16(e.buf, uint16(x))
	case I32:
		e.buf = binary.LittleEndian.AppendUint32(e.buf, uint32(x))
	case I64:
		e.buf = binary.LittleEndian.AppendUint64(e.buf, uint64(x))
	case I128:
		e.le128(x.Int.Bytes32())
	case U8:
		e.buf = append(e.buf, byte(x))
	case U16:
		e.buf = binary.LittleEndian.AppendUint16(e.buf, uint16(x))
	case U32:
		e.buf = binary.LittleEndian.AppendUint32(e.buf, uint32(x))
	case U64:
		e.buf = binary.LittleEndian.AppendUint64(e.buf, uint64(x))
	case U128:
		e.le128(x.Int.Bytes32())
	case String:
		return e.str(string(x))
	case Struct:
		return e.fields(x.Fields, depth)
	case Enum:
		e.buf = append(e.buf, x.Index)
		return e.fields(x.Fields, depth)
	case Option:
		if x.Value == nil {
			e.buf = append(e.buf, optionNone)
			return nil
		}
		e.buf = append(e.buf, optionSome)
		return e.value(x.Value, depth+1)
	case Box:
		return e.value(x.Value, depth+1)
	case Result:
		if x.Ok {
			e.buf = append(e.buf, resultOk)
		} else {
			e.buf = append(e.buf, resultErr)
		}
		return e.value(x.Value, depth+1)
	case Array:
		return e.sequence(x.ElemType, x.Elems, depth)
	case Vec:
		return e.sequence(x.ElemType, x.Elems, depth)
	case TreeSet:
		return e.sequence(x.ElemType, x.Elems, depth)
	case HashSet:
		return e.sequence(x.ElemType, x.Elems, depth)
	case Tuple:
		if err := e.u32(len(x.Elems)); err != nil {
			return err
		}
		for _, el := range x.Elems {
			if err := e.value(el, depth+1); err != nil {
				return err
			}
		}
	case TreeMap:
		return e.mapEntries(x.KeyType, x.ValueType, x.Entries, depth)
	case HashMap:
		return e.mapEntries(x.KeyType, x.ValueType, x.Entries, depth)
	case Custom:
		if x.Tag < TypeCustomStart {
			return fmt.Errorf("sbor: custom tag %#04x outside custom range", x.Tag)
		}
		if err := e.u32(len(x.Data)); err != nil {
			return err
		}
		e.buf = append(e.buf, x.Data...)
	default:
		return fmt.Errorf("sbor: cannot encode %T", v)
	}
	return nil
}

func (e *encoder) le128(be [32]byte) {
	for i := 31; i >= 16; i-- {
		e.buf = append(e.buf, be[i])
	}
}

func (e *encoder) sequence(elemType byte, elems []Value, depth int) error {
	e.buf = append(e.buf, elemType)
	if err := e.u32(len(elems)); err != nil {
		return err
	}
	for i, el := range elems {
		if el == nil || el.Type() != elemType {
			return fmt.Errorf("sbor: element %d does not have type %#04x", i, elemType)
		}
		if err := e.value(el, depth+1); err != nil {
			return err
		}
	}
	return nil
}

func (e *encoder) mapEntries(kt, vt byte, entries []MapEntry, depth int) error {
	e.buf = append(e.buf, kt, vt)
	if err := e.u32(len(entries)); err != nil {
		return err
	}
	for i, en := range entries {
		if en.Key == nil || en.Key.Type() != kt {
			return fmt.Errorf("sbor: key %d does not have type %#04x", i, kt)
		}
		if en.Value == nil || en.Value.Type() != vt {
			return fmt.Errorf("sbor: value %d does not have type %#04x", i, vt)
		}
		if err := e.value(en.Key, depth+1); err != nil {
			return err
		}
		if err := e.value(en.Value, depth+1); err != nil {
			return err
		}
	}
	return nil
}

func (e *encoder) fields(f Fields, depth int) error {
	if f == nil {
		f = UnitFields{}
	}
	e.buf = append(e.buf, f.fieldsTag())
	switch x := f.(type) {
	case NamedFields:
		if err := e.u32(len(x)); err != nil {
			return err
		}
		for _, nf := range x {
			if err := e.str(nf.Name); err != nil {
				return err
			}
			if err := e.value(nf.Value, depth+1); err != nil {
				return err
			}
		}
	case UnnamedFields:
		if err := e.u32(len(x)); err != nil {
			return err
		}
		for _, v := range x {
			if err := e.value(v, depth+1); err != nil {
				return err
			}
		}
	case UnitFields:
	default:
		return fmt.Errorf("sbor: cannot encode fields %T", f)
	}
	return nil
}
