package engine

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/blockberries/ledgerd/sbor"
	"github.com/blockberries/ledgerd/types"
)

// Function is a blueprint function. A nil result means the call
// returns nothing.
type Function func(rt *Runtime, args Args) (sbor.Value, error)

// Method is a blueprint method invoked on a component. Changes to
// self.State are persisted when the method returns without error.
type Method func(rt *Runtime, self *Self, args Args) (sbor.Value, error)

// Blueprint is a native component template.
type Blueprint struct {
	Name      string
	Functions map[string]Function
	Methods   map[string]Method
}

// Self is the component a method runs on.
type Self struct {
	Address types.Address
	State   sbor.Value
}

// Field returns a named field of the component state.
func (s *Self) Field(name string) (sbor.Value, error) {
	v, err := sbor.Field(s.State, name)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadState, err)
	}
	return v, nil
}

// Vid returns a vault-id field of the component state.
func (s *Self) Vid(name string) (types.Vid, error) {
	v, err := s.Field(name)
	if err != nil {
		return types.Vid{}, err
	}
	id, err := sbor.AsVid(v)
	if err != nil {
		return types.Vid{}, fmt.Errorf("%w: field %s: %v", ErrBadState, name, err)
	}
	return id, nil
}

// Mid returns a lazy-map-id field of the component state.
func (s *Self) Mid(name string) (types.Mid, error) {
	v, err := s.Field(name)
	if err != nil {
		return types.Mid{}, err
	}
	id, err := sbor.AsMid(v)
	if err != nil {
		return types.Mid{}, fmt.Errorf("%w: field %s: %v", ErrBadState, name, err)
	}
	return id, nil
}

// Decimal returns a decimal field of the component state.
func (s *Self) Decimal(name string) (types.Decimal, error) {
	v, err := s.Field(name)
	if err != nil {
		return types.Decimal{}, err
	}
	d, err := sbor.AsDecimal(v)
	if err != nil {
		return types.Decimal{}, fmt.Errorf("%w: field %s: %v", ErrBadState, name, err)
	}
	return d, nil
}

// Args are the textual arguments of a call.
type Args struct {
	rt     *Runtime
	values []string
}

func (a Args) Len() int { return len(a.values) }

func (a Args) get(i int) (string, error) {
	if i < 0 || i >= len(a.values) {
		return "", fmt.Errorf("%w: missing argument %d", ErrInvalidArgument, i)
	}
	return a.values[i], nil
}

func (a Args) String(i int) (string, error) { return a.get(i) }

func (a Args) Decimal(i int) (types.Decimal, error) {
	s, err := a.get(i)
	if err != nil {
		return types.Decimal{}, err
	}
	d, err := types.ParseDecimal(s)
	if err != nil {
		return types.Decimal{}, fmt.Errorf("%w: argument %d: %v", ErrInvalidArgument, i, err)
	}
	return d, nil
}

func (a Args) Address(i int) (types.Address, error) {
	s, err := a.get(i)
	if err != nil {
		return types.Address{}, err
	}
	addr, err := types.ParseAddress(s)
	if err != nil {
		return types.Address{}, fmt.Errorf("%w: argument %d: %v", ErrInvalidArgument, i, err)
	}
	return addr, nil
}

func (a Args) U32(i int) (uint32, error) {
	s, err := a.get(i)
	if err != nil {
		return 0, err
	}
	n, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("%w: argument %d: %v", ErrInvalidArgument, i, err)
	}
	return uint32(n), nil
}

// Bucket interprets argument i as "amount,resource" and withdraws
// that amount from the call's account into a new bucket.
func (a Args) Bucket(i int) (types.Bid, error) {
	s, err := a.get(i)
	if err != nil {
		return 0, err
	}
	amountText, resourceText, ok := strings.Cut(s, ",")
	if !ok {
		return 0, fmt.Errorf("%w: argument %d: want amount,resource", ErrInvalidArgument, i)
	}
	amount, err := types.ParseDecimal(amountText)
	if err != nil {
		return 0, fmt.Errorf("%w: argument %d: %v", ErrInvalidArgument, i, err)
	}
	resource, err := types.ParseAddress(resourceText)
	if err != nil || !resource.IsResourceDef() {
		return 0, fmt.Errorf("%w: argument %d: bad resource %q", ErrInvalidArgument, i, resourceText)
	}
	return a.rt.withdrawFromCaller(amount, resource)
}
