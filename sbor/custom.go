package sbor

import (
	"fmt"

	"github.com/blockberries/ledgerd/types"
)

// Constructors for the domain extension values.

func DecimalValue(d types.Decimal) Custom       { return Custom{Tag: TypeDecimal, Data: d.Bytes()} }
func BigDecimalValue(d types.BigDecimal) Custom { return Custom{Tag: TypeBigDecimal, Data: d.Bytes()} }
func AddressValue(a types.Address) Custom       { return Custom{Tag: TypeAddress, Data: a.Bytes()} }
func H256Value(h types.H256) Custom             { return Custom{Tag: TypeH256, Data: h[:]} }
func MidValue(m types.Mid) Custom               { return Custom{Tag: TypeMid, Data: m.Bytes()} }
func BidValue(b types.Bid) Custom               { return Custom{Tag: TypeBid, Data: b.Bytes()} }
func RidValue(r types.Rid) Custom               { return Custom{Tag: TypeRid, Data: r.Bytes()} }
func VidValue(v types.Vid) Custom               { return Custom{Tag: TypeVid, Data: v.Bytes()} }

// ParseCustom interprets the payload of c according to its tag. It
// returns one of types.Decimal, types.BigDecimal, types.Address,
// types.H256, types.Mid, types.Bid, types.Rid or types.Vid.
func ParseCustom(c Custom) (any, error) {
	var (
		out any
		err error
	)
	switch c.Tag {
	case TypeDecimal:
		out, err = types.DecimalFromBytes(c.Data)
	case TypeBigDecimal:
		out, err = types.BigDecimalFromBytes(c.Data)
	case TypeAddress:
		out, err = types.AddressFromBytes(c.Data)
	case TypeH256:
		out, err = types.H256FromBytes(c.Data)
	case TypeMid:
		out, err = types.MidFromBytes(c.Data)
	case TypeBid:
		out, err = types.BidFromBytes(c.Data)
	case TypeRid:
		out, err = types.RidFromBytes(c.Data)
	case TypeVid:
		out, err = types.VidFromBytes(c.Data)
	default:
		return nil, InvalidType(c.Tag)
	}
	if err != nil {
		return nil, InvalidCustomData(c.Tag, err)
	}
	return out, nil
}

func asCustom[T any](v Value, tag byte) (T, error) {
	var zero T
	c, ok := v.(Custom)
	if !ok || c.Tag != tag {
		return zero, fmt.Errorf("sbor: want custom type %#04x, got %#04x", tag, typeOf(v))
	}
	parsed, err := ParseCustom(c)
	if err != nil {
		return zero, err
	}
	return parsed.(T), nil
}

func typeOf(v Value) byte {
	if v == nil {
		return TypeUnit
	}
	return v.Type()
}

func AsDecimal(v Value) (types.Decimal, error) { return asCustom[types.Decimal](v, TypeDecimal) }
func AsAddress(v Value) (types.Address, error) { return asCustom[types.Address](v, TypeAddress) }
func AsMid(v Value) (types.Mid, error)         { return asCustom[types.Mid](v, TypeMid) }
func AsVid(v Value) (types.Vid, error)         { return asCustom[types.Vid](v, TypeVid) }

// AsString returns the text of a String value.
func AsString(v Value) (string, error) {
	s, ok := v.(String)
	if !ok {
		return "", fmt.Errorf("sbor: want string, got %#04x", typeOf(v))
	}
	return string(s), nil
}

// Field returns the named field of a Struct with named fields.
func Field(v Value, name string) (Value, error) {
	s, ok := v.(Struct)
	if !ok {
		return nil, fmt.Errorf("sbor: want struct, got %#04x", typeOf(v))
	}
	named, ok := s.Fields.(NamedFields)
	if !ok {
		return nil, fmt.Errorf("sbor: struct has no named fields")
	}
	for _, f := range named {
		if f.Name == name {
			return f.Value, nil
		}
	}
	return nil, fmt.Errorf("sbor: struct has no field %q", name)
}
