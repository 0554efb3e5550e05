package types

import (
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/blake2b"
)

// H256 is a 32-byte hash.
type H256 [32]byte

// HashOf returns the Blake2b-256 digest of the concatenation of parts.
func HashOf(parts ...[]byte) H256 {
	h, err := blake2b.New256(nil)
	if err != nil {
		// Only fails for oversized keys.
		panic(err)
	}
	for _, p := range parts {
		h.Write(p)
	}
	var out H256
	copy(out[:], h.Sum(nil))
	return out
}

// H256FromBytes copies exactly 32 bytes into an H256.
func H256FromBytes(b []byte) (H256, error) {
	var h H256
	if len(b) != len(h) {
		return h, fmt.Errorf("hash must be %d bytes, got %d", len(h), len(b))
	}
	copy(h[:], b)
	return h, nil
}

// ParseH256 decodes the hex text of a hash.
func ParseH256(s string) (H256, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return H256{}, fmt.Errorf("hash: %w", err)
	}
	return H256FromBytes(b)
}

func (h H256) String() string { return hex.EncodeToString(h[:]) }

func (h H256) IsZero() bool { return h == H256{} }
