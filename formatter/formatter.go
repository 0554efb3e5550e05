// Package formatter renders decoded values as canonical text.
//
// Formatting resolves lazy maps through the ledger and records every
// vault it meets so callers can look up balances afterwards.
package formatter

import (
	"errors"
	"strconv"
	"strings"

	"github.com/blockberries/ledgerd"
	"github.com/blockberries/ledgerd/sbor"
	"github.com/blockberries/ledgerd/types"
)

// ErrLazyMapCycle is the cause reported when a lazy map is reached again
// while its own entries are being formatted.
var ErrLazyMapCycle = errors.New("lazy map refers to itself")

// FormatData decodes data and formats the result. See Format.
func FormatData(data []byte, ledger ledgerd.LedgerReader, vaults *[]types.Vid) (string, error) {
	v, err := sbor.Decode(data)
	if err != nil {
		return "", err
	}
	return Format(v, ledger, vaults)
}

// Format renders v. Every Vid encountered is appended to *vaults in
// pre-order. On error nothing is returned and *vaults may hold the
// vaults seen before the failure.
//
// ledger may be nil, in which case lazy maps render with empty bodies.
func Format(v sbor.Value, ledger ledgerd.LedgerReader, vaults *[]types.Vid) (string, error) {
	f := formatter{ledger: ledger, vaults: vaults}
	var sb strings.Builder
	if err := f.value(&sb, v); err != nil {
		return "", err
	}
	return sb.String(), nil
}

type formatter struct {
	ledger ledgerd.LedgerReader
	vaults *[]types.Vid

	// open holds the lazy maps whose entries are being formatted.
	open map[types.Mid]struct{}
}

func (f *formatter) value(sb *strings.Builder, v sbor.Value) error {
	switch x := v.(type) {
	case sbor.Unit:
		sb.WriteString("()")
	case sbor.Bool:
		sb.WriteString(strconv.FormatBool(bool(x)))
	case sbor.I8:
		sb.WriteString(strconv.FormatInt(int64(x), 10))
	case sbor.I16:
		sb.WriteString(strconv.FormatInt(int64(x), 10))
	case sbor.I32:
		sb.WriteString(strconv.FormatInt(int64(x), 10))
	case sbor.I64:
		sb.WriteString(strconv.FormatInt(int64(x), 10))
	case sbor.I128:
		sb.WriteString(x.String())
	case sbor.U8:
		sb.WriteString(strconv.FormatUint(uint64(x), 10))
	case sbor.U16:
		sb.WriteString(strconv.FormatUint(uint64(x), 10))
	case sbor.U32:
		sb.WriteString(strconv.FormatUint(uint64(x), 10))
	case sbor.U64:
		sb.WriteString(strconv.FormatUint(uint64(x), 10))
	case sbor.U128:
		sb.WriteString(x.String())
	case sbor.String:
		sb.WriteByte('"')
		sb.WriteString(string(x))
		sb.WriteByte('"')
	case sbor.Struct:
		sb.WriteString("Struct ")
		return f.fields(sb, x.Fields)
	case sbor.Enum:
		sb.WriteString("Enum::")
		sb.WriteString(strconv.Itoa(int(x.Index)))
		sb.WriteByte(' ')
		return f.fields(sb, x.Fields)
	case sbor.Option:
		if x.Value == nil {
			sb.WriteString("None")
			return nil
		}
		return f.wrapped(sb, "Some(", x.Value, ")")
	case sbor.Box:
		return f.wrapped(sb, "Box(", x.Value, ")")
	case sbor.Result:
		if x.Ok {
			return f.wrapped(sb, "Ok(", x.Value, ")")
		}
		return f.wrapped(sb, "Err(", x.Value, ")")
	case sbor.Array:
		return f.list(sb, "[", x.Elems, "]")
	case sbor.Tuple:
		return f.list(sb, "(", x.Elems, ")")
	case sbor.Vec:
		return f.list(sb, "Vec { ", x.Elems, " }")
	case sbor.TreeSet:
		return f.list(sb, "TreeSet { ", x.Elems, " }")
	case sbor.HashSet:
		return f.list(sb, "HashSet { ", x.Elems, " }")
	case sbor.TreeMap:
		return f.entries(sb, "TreeMap { ", x.Entries, " }")
	case sbor.HashMap:
		return f.entries(sb, "HashMap { ", x.Entries, " }")
	case sbor.Custom:
		return f.custom(sb, x)
	default:
		return sbor.InvalidType(typeOf(v))
	}
	return nil
}

func typeOf(v sbor.Value) byte {
	if v == nil {
		return sbor.TypeUnit
	}
	return v.Type()
}

func (f *formatter) wrapped(sb *strings.Builder, prefix string, v sbor.Value, suffix string) error {
	sb.WriteString(prefix)
	if err := f.value(sb, v); err != nil {
		return err
	}
	sb.WriteString(suffix)
	return nil
}

func (f *formatter) list(sb *strings.Builder, prefix string, elems []sbor.Value, suffix string) error {
	sb.WriteString(prefix)
	for i, el := range elems {
		if i > 0 {
			sb.WriteString(", ")
		}
		if err := f.value(sb, el); err != nil {
			return err
		}
	}
	sb.WriteString(suffix)
	return nil
}

func (f *formatter) entries(sb *strings.Builder, prefix string, entries []sbor.MapEntry, suffix string) error {
	sb.WriteString(prefix)
	for i, e := range entries {
		if i > 0 {
			sb.WriteString(", ")
		}
		if err := f.value(sb, e.Key); err != nil {
			return err
		}
		sb.WriteString(" => ")
		if err := f.value(sb, e.Value); err != nil {
			return err
		}
	}
	sb.WriteString(suffix)
	return nil
}

func (f *formatter) fields(sb *strings.Builder, fields sbor.Fields) error {
	switch x := fields.(type) {
	case sbor.NamedFields:
		sb.WriteString("{ ")
		for i, nf := range x {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(nf.Name)
			sb.WriteString(": ")
			if err := f.value(sb, nf.Value); err != nil {
				return err
			}
		}
		sb.WriteString(" }")
		return nil
	case sbor.UnnamedFields:
		return f.list(sb, "( ", x, " )")
	case sbor.UnitFields, nil:
		return nil
	default:
		return sbor.InvalidType(sbor.TypeFieldsUnit)
	}
}

func (f *formatter) custom(sb *strings.Builder, c sbor.Custom) error {
	parsed, err := sbor.ParseCustom(c)
	if err != nil {
		return err
	}
	switch x := parsed.(type) {
	case types.Decimal:
		sb.WriteString(x.String())
	case types.BigDecimal:
		sb.WriteString(x.String())
	case types.Address:
		sb.WriteString(x.String())
	case types.H256:
		sb.WriteString(x.String())
	case types.Bid:
		sb.WriteString(x.String())
	case types.Rid:
		sb.WriteString(x.String())
	case types.Vid:
		sb.WriteString(x.String())
		if f.vaults != nil {
			*f.vaults = append(*f.vaults, x)
		}
	case types.Mid:
		return f.lazyMap(sb, x)
	default:
		return sbor.InvalidType(c.Tag)
	}
	return nil
}

// lazyMap renders the map header followed by its entries, each key and
// value decoded from the raw bytes held by the ledger. Maps nested
// through their entries share the decoder's depth limit, and a map
// may not contain itself.
func (f *formatter) lazyMap(sb *strings.Builder, id types.Mid) error {
	sb.WriteString(id.String())
	sb.WriteString(" { ")
	if f.ledger != nil {
		if _, ok := f.open[id]; ok {
			return sbor.InvalidCustomData(sbor.TypeMid, ErrLazyMapCycle)
		}
		if len(f.open) >= sbor.MaxDepth {
			return &sbor.DecodeError{Kind: sbor.ErrMaxDepth}
		}
		if m, ok := f.ledger.GetLazyMap(id); ok {
			if f.open == nil {
				f.open = make(map[types.Mid]struct{})
			}
			f.open[id] = struct{}{}
			defer delete(f.open, id)
			for i, e := range m.Entries() {
				if i > 0 {
					sb.WriteString(", ")
				}
				if err := f.raw(sb, e.Key); err != nil {
					return err
				}
				sb.WriteString(" => ")
				if err := f.raw(sb, e.Value); err != nil {
					return err
				}
			}
		}
	}
	sb.WriteString(" }")
	return nil
}

func (f *formatter) raw(sb *strings.Builder, data []byte) error {
	v, err := sbor.Decode(data)
	if err != nil {
		return err
	}
	return f.value(sb, v)
}
