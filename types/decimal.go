package types

import (
	"errors"
	"fmt"
	"strings"

	"github.com/holiman/uint256"
)

// DecimalPlaces is the fixed number of fractional digits carried by
// Decimal and BigDecimal.
const DecimalPlaces = 18

// DecimalLen is the encoded length of a Decimal: a little-endian
// two's complement i128.
const DecimalLen = 16

var (
	// ErrDecimalOverflow is returned when a result does not fit in i128.
	ErrDecimalOverflow = errors.New("decimal overflow")
	// ErrInvalidDecimal is returned for malformed decimal text or bytes.
	ErrInvalidDecimal = errors.New("invalid decimal")
)

var (
	decimalScale = new(uint256.Int).Exp(uint256.NewInt(10), uint256.NewInt(DecimalPlaces))
	i128Max      = new(uint256.Int).Sub(new(uint256.Int).Lsh(uint256.NewInt(1), 127), uint256.NewInt(1))
	i128MinAbs   = new(uint256.Int).Lsh(uint256.NewInt(1), 127)
	two128       = new(uint256.Int).Lsh(uint256.NewInt(1), 128)
)

// Decimal is a signed fixed-point number with 18 fractional digits
// backed by a 128-bit integer. The value is held sign-extended to 256
// bits so uint256's two's complement helpers apply directly.
type Decimal struct {
	v uint256.Int
}

// ZeroDecimal is 0.
var ZeroDecimal = Decimal{}

// NewDecimal returns the whole number n as a Decimal.
func NewDecimal(n int64) Decimal {
	var d Decimal
	mag := uint64(n)
	if n < 0 {
		mag = uint64(-n)
	}
	d.v.Mul(uint256.NewInt(mag), decimalScale)
	if n < 0 {
		d.v.Neg(&d.v)
	}
	return d
}

// DecimalFromBytes decodes the 16-byte little-endian i128 form.
func DecimalFromBytes(b []byte) (Decimal, error) {
	if len(b) != DecimalLen {
		return Decimal{}, fmt.Errorf("%w: want %d bytes, got %d", ErrInvalidDecimal, DecimalLen, len(b))
	}
	be := make([]byte, DecimalLen)
	for i := range b {
		be[DecimalLen-1-i] = b[i]
	}
	var d Decimal
	d.v.SetBytes(be)
	if b[DecimalLen-1]&0x80 != 0 {
		d.v.Sub(&d.v, two128)
	}
	return d, nil
}

// ParseDecimal parses text such as "5", "-1.25" or "0.000000000000000001".
func ParseDecimal(s string) (Decimal, error) {
	neg := strings.HasPrefix(s, "-")
	body := strings.TrimPrefix(s, "-")
	whole, frac, _ := strings.Cut(body, ".")
	if whole == "" || !isDigits(whole) || (frac != "" && !isDigits(frac)) || strings.HasSuffix(body, ".") {
		return Decimal{}, fmt.Errorf("%w: %q", ErrInvalidDecimal, s)
	}
	if len(frac) > DecimalPlaces {
		return Decimal{}, fmt.Errorf("%w: %q has more than %d fractional digits", ErrInvalidDecimal, s, DecimalPlaces)
	}
	digits := strings.TrimLeft(whole+frac+strings.Repeat("0", DecimalPlaces-len(frac)), "0")
	if digits == "" {
		return Decimal{}, nil
	}
	var d Decimal
	if err := d.v.SetFromDecimal(digits); err != nil {
		return Decimal{}, fmt.Errorf("%w: %q: %v", ErrInvalidDecimal, s, err)
	}
	if d.v.Cmp(i128MinAbs) > 0 || (!neg && d.v.Cmp(i128Max) > 0) {
		return Decimal{}, fmt.Errorf("%w: %q", ErrDecimalOverflow, s)
	}
	if neg {
		d.v.Neg(&d.v)
	}
	return d, nil
}

// MustParseDecimal is like ParseDecimal but panics on error.
func MustParseDecimal(s string) Decimal {
	d, err := ParseDecimal(s)
	if err != nil {
		panic(err)
	}
	return d
}

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// Bytes returns the 16-byte little-endian i128 form.
func (d Decimal) Bytes() []byte {
	be := d.v.Bytes32()
	out := make([]byte, DecimalLen)
	for i := 0; i < DecimalLen; i++ {
		out[i] = be[31-i]
	}
	return out
}

func (d Decimal) IsZero() bool     { return d.v.IsZero() }
func (d Decimal) IsNegative() bool { return d.v.Sign() < 0 }

// Cmp compares d and o as signed values.
func (d Decimal) Cmp(o Decimal) int {
	switch {
	case d.v.Slt(&o.v):
		return -1
	case d.v.Sgt(&o.v):
		return 1
	default:
		return 0
	}
}

// Add returns d+o or ErrDecimalOverflow.
func (d Decimal) Add(o Decimal) (Decimal, error) {
	var r Decimal
	r.v.Add(&d.v, &o.v)
	return r.checked()
}

// Sub returns d-o or ErrDecimalOverflow.
func (d Decimal) Sub(o Decimal) (Decimal, error) {
	var r Decimal
	r.v.Sub(&d.v, &o.v)
	return r.checked()
}

func (d Decimal) checked() (Decimal, error) {
	if d.v.Sign() >= 0 {
		if d.v.Cmp(i128Max) > 0 {
			return Decimal{}, ErrDecimalOverflow
		}
		return d, nil
	}
	if new(uint256.Int).Abs(&d.v).Cmp(i128MinAbs) > 0 {
		return Decimal{}, ErrDecimalOverflow
	}
	return d, nil
}

// String renders the value with trailing fractional zeros removed,
// so 5.0 renders as "5".
func (d Decimal) String() string {
	abs := new(uint256.Int).Abs(&d.v)
	whole := new(uint256.Int).Div(abs, decimalScale)
	frac := new(uint256.Int).Mod(abs, decimalScale)
	return formatFixed(d.v.Sign() < 0, whole.Dec(), frac.Dec())
}

func formatFixed(neg bool, whole, frac string) string {
	var sb strings.Builder
	if neg {
		sb.WriteByte('-')
	}
	sb.WriteString(whole)
	if frac != "0" {
		frac = strings.Repeat("0", DecimalPlaces-len(frac)) + frac
		sb.WriteByte('.')
		sb.WriteString(strings.TrimRight(frac, "0"))
	}
	return sb.String()
}

// MarshalJSON renders the decimal as a bare JSON number.
func (d Decimal) MarshalJSON() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalJSON accepts a JSON number or a quoted decimal string.
func (d *Decimal) UnmarshalJSON(data []byte) error {
	parsed, err := ParseDecimal(strings.Trim(string(data), `"`))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
