package types

import (
	"encoding/hex"
	"errors"
	"fmt"
)

// AddressKind discriminates the entity an Address refers to. It is
// carried as the leading byte of the address encoding.
type AddressKind byte

const (
	KindPackage     AddressKind = 0x01
	KindComponent   AddressKind = 0x02
	KindResourceDef AddressKind = 0x03
	KindPublicKey   AddressKind = 0x04
)

const (
	// EntityAddressLen is the body length of package, component and
	// resource definition addresses.
	EntityAddressLen = 26
	// PublicKeyLen is the body length of a public key address.
	PublicKeyLen = 33
)

func (k AddressKind) String() string {
	switch k {
	case KindPackage:
		return "Package"
	case KindComponent:
		return "Component"
	case KindResourceDef:
		return "ResourceDef"
	case KindPublicKey:
		return "PublicKey"
	default:
		return fmt.Sprintf("unknown(%#x)", byte(k))
	}
}

func (k AddressKind) bodyLen() (int, bool) {
	switch k {
	case KindPackage, KindComponent, KindResourceDef:
		return EntityAddressLen, true
	case KindPublicKey:
		return PublicKeyLen, true
	default:
		return 0, false
	}
}

// ErrInvalidAddress is returned when address bytes or text do not
// follow the kind-prefixed layout.
var ErrInvalidAddress = errors.New("invalid address")

// Address identifies a ledger entity or a signer public key.
// The zero value is not a valid address.
type Address struct {
	kind AddressKind
	body [PublicKeyLen]byte
}

// NewAddress builds an address of the given kind from body bytes.
func NewAddress(kind AddressKind, body []byte) (Address, error) {
	n, ok := kind.bodyLen()
	if !ok {
		return Address{}, fmt.Errorf("%w: unknown kind %#x", ErrInvalidAddress, byte(kind))
	}
	if len(body) != n {
		return Address{}, fmt.Errorf("%w: %s body must be %d bytes, got %d", ErrInvalidAddress, kind, n, len(body))
	}
	a := Address{kind: kind}
	copy(a.body[:], body)
	return a, nil
}

// AddressFromBytes decodes the kind-prefixed byte form of an address.
func AddressFromBytes(b []byte) (Address, error) {
	if len(b) == 0 {
		return Address{}, fmt.Errorf("%w: empty", ErrInvalidAddress)
	}
	return NewAddress(AddressKind(b[0]), b[1:])
}

// ParseAddress decodes the canonical hex text of an address.
func ParseAddress(s string) (Address, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return Address{}, fmt.Errorf("%w: %v", ErrInvalidAddress, err)
	}
	return AddressFromBytes(b)
}

// MustParseAddress is like ParseAddress but panics on malformed input.
// Intended for constants and tests.
func MustParseAddress(s string) Address {
	a, err := ParseAddress(s)
	if err != nil {
		panic(err)
	}
	return a
}

func (a Address) Kind() AddressKind { return a.kind }

func (a Address) IsZero() bool { return a.kind == 0 }

func (a Address) IsPackage() bool     { return a.kind == KindPackage }
func (a Address) IsComponent() bool   { return a.kind == KindComponent }
func (a Address) IsResourceDef() bool { return a.kind == KindResourceDef }
func (a Address) IsPublicKey() bool   { return a.kind == KindPublicKey }

// Bytes returns the kind-prefixed byte form.
func (a Address) Bytes() []byte {
	n, ok := a.kind.bodyLen()
	if !ok {
		return nil
	}
	out := make([]byte, 1+n)
	out[0] = byte(a.kind)
	copy(out[1:], a.body[:n])
	return out
}

// String returns the canonical hex text.
func (a Address) String() string {
	return hex.EncodeToString(a.Bytes())
}

func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

func (a *Address) UnmarshalText(text []byte) error {
	parsed, err := ParseAddress(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// DeriveAddress returns an address whose body is taken from the
// Blake2b-256 digest of parts. Entity addresses keep the leading bytes
// of the digest; a public key is the digest behind a 0x02 compressed
// point prefix. It panics on an unknown kind.
func DeriveAddress(kind AddressKind, parts ...[]byte) Address {
	h := HashOf(parts...)
	a := Address{kind: kind}
	switch kind {
	case KindPackage, KindComponent, KindResourceDef:
		copy(a.body[:], h[:EntityAddressLen])
	case KindPublicKey:
		a.body[0] = 0x02
		copy(a.body[1:], h[:])
	default:
		panic(fmt.Sprintf("types: cannot derive address of kind %s", kind))
	}
	return a
}

// Well-known system addresses installed by ledger bootstrap.
var (
	SystemPackage  = systemAddress(KindPackage, 0x01)
	SystemAccount  = systemAddress(KindComponent, 0x02)
	XRDResourceDef = systemAddress(KindResourceDef, 0x04)
)

func systemAddress(kind AddressKind, last byte) Address {
	a := Address{kind: kind}
	a.body[EntityAddressLen-1] = last
	return a
}
