package types

import (
	"fmt"

	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"
)

// Substates are the ledger-resident records the engine reads and
// writes. They are plain values; backends choose their own encoding.

// Package is published code together with the blueprints it exports.
type Package struct {
	Code       []byte
	CodeID     cid.Cid
	Blueprints []string
}

// HasBlueprint reports whether the package exports the named blueprint.
func (p Package) HasBlueprint(name string) bool {
	for _, b := range p.Blueprints {
		if b == name {
			return true
		}
	}
	return false
}

// Component is an instantiated blueprint with its encoded state.
type Component struct {
	Package   Address
	Blueprint string
	State     []byte
}

// ResourceDef describes a fungible resource.
type ResourceDef struct {
	Symbol string
	Name   string
	Supply Decimal
}

// Vault holds an amount of exactly one resource.
type Vault struct {
	Resource Address
	Amount   Decimal
}

// LazyMapEntry is one encoded key/value pair of a lazy map.
type LazyMapEntry struct {
	Key   []byte
	Value []byte
}

// CodeIDOf returns the content identifier of package code: a CIDv1
// with the raw codec over a SHA2-256 multihash.
func CodeIDOf(code []byte) (cid.Cid, error) {
	mh, err := multihash.Sum(code, multihash.SHA2_256, -1)
	if err != nil {
		return cid.Undef, fmt.Errorf("hash package code: %w", err)
	}
	return cid.NewCidV1(cid.Raw, mh), nil
}
