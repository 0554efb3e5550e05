// Package kvstore implements a key-value store blueprint backed by a
// lazy map. Keys and values are strings.
package kvstore

import (
	"github.com/blockberries/ledgerd/engine"
	"github.com/blockberries/ledgerd/sbor"
)

// Name is the blueprint name.
const Name = "KeyValueStore"

// Code is package code exporting the blueprint.
var Code = engine.Manifest(Name)

// Blueprint returns the key-value store blueprint.
func Blueprint() *engine.Blueprint {
	return &engine.Blueprint{
		Name: Name,
		Functions: map[string]engine.Function{
			"new": instantiate,
		},
		Methods: map[string]engine.Method{
			"put": put,
			"get": get,
			"len": length,
		},
	}
}

func instantiate(rt *engine.Runtime, _ engine.Args) (sbor.Value, error) {
	st := sbor.Struct{Fields: sbor.NamedFields{
		{Name: "entries", Value: sbor.MidValue(rt.NewLazyMap())},
		{Name: "count", Value: sbor.U32(0)},
	}}
	addr, err := rt.NewComponent(Name, st)
	if err != nil {
		return nil, err
	}
	return sbor.AddressValue(addr), nil
}

func put(rt *engine.Runtime, self *engine.Self, args engine.Args) (sbor.Value, error) {
	k, err := args.String(0)
	if err != nil {
		return nil, err
	}
	v, err := args.String(1)
	if err != nil {
		return nil, err
	}
	entries, err := self.Mid("entries")
	if err != nil {
		return nil, err
	}
	prev, existed, err := rt.LazyMapGet(entries, sbor.String(k))
	if err != nil {
		return nil, err
	}
	if err := rt.LazyMapPut(entries, sbor.String(k), sbor.String(v)); err != nil {
		return nil, err
	}
	if existed {
		return sbor.Option{Value: prev}, nil
	}
	count, err := self.Field("count")
	if err != nil {
		return nil, err
	}
	n, ok := count.(sbor.U32)
	if !ok {
		return nil, engine.ErrBadState
	}
	self.State = sbor.Struct{Fields: sbor.NamedFields{
		{Name: "entries", Value: sbor.MidValue(entries)},
		{Name: "count", Value: n + 1},
	}}
	return sbor.Option{}, nil
}

func get(rt *engine.Runtime, self *engine.Self, args engine.Args) (sbor.Value, error) {
	k, err := args.String(0)
	if err != nil {
		return nil, err
	}
	entries, err := self.Mid("entries")
	if err != nil {
		return nil, err
	}
	v, ok, err := rt.LazyMapGet(entries, sbor.String(k))
	if err != nil || !ok {
		return sbor.Option{}, err
	}
	return sbor.Option{Value: v}, nil
}

func length(_ *engine.Runtime, self *engine.Self, _ engine.Args) (sbor.Value, error) {
	return self.Field("count")
}
