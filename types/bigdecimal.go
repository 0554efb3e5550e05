package types

import "math/big"

var bigDecimalScale = new(big.Int).Exp(big.NewInt(10), big.NewInt(DecimalPlaces), nil)

// BigDecimal is an unbounded signed fixed-point number with 18
// fractional digits.
type BigDecimal struct {
	v *big.Int
}

// BigDecimalFromBytes decodes the little-endian two's complement form
// of any length. An empty slice is zero.
func BigDecimalFromBytes(b []byte) (BigDecimal, error) {
	be := make([]byte, len(b))
	for i := range b {
		be[len(b)-1-i] = b[i]
	}
	v := new(big.Int).SetBytes(be)
	if len(b) > 0 && b[len(b)-1]&0x80 != 0 {
		v.Sub(v, new(big.Int).Lsh(big.NewInt(1), uint(8*len(b))))
	}
	return BigDecimal{v: v}, nil
}

// NewBigDecimal returns the whole number n as a BigDecimal.
func NewBigDecimal(n *big.Int) BigDecimal {
	return BigDecimal{v: new(big.Int).Mul(n, bigDecimalScale)}
}

// Bytes returns the minimal little-endian two's complement form.
func (d BigDecimal) Bytes() []byte {
	v := d.value()
	if v.Sign() == 0 {
		return []byte{}
	}
	n := (v.BitLen() + 8) / 8
	tc := new(big.Int).Set(v)
	if v.Sign() < 0 {
		tc.Add(tc, new(big.Int).Lsh(big.NewInt(1), uint(8*n)))
	}
	be := tc.FillBytes(make([]byte, n))
	out := make([]byte, n)
	for i := range be {
		out[n-1-i] = be[i]
	}
	return out
}

func (d BigDecimal) value() *big.Int {
	if d.v == nil {
		return new(big.Int)
	}
	return d.v
}

func (d BigDecimal) String() string {
	v := d.value()
	abs := new(big.Int).Abs(v)
	whole, frac := new(big.Int).QuoRem(abs, bigDecimalScale, new(big.Int))
	return formatFixed(v.Sign() < 0, whole.String(), frac.String())
}
