package types

import (
	"encoding/binary"
	"fmt"
)

// Ledger-resident handles are named by the hash of the transaction
// that created them plus a per-transaction counter.

// Mid identifies a lazy map.
type Mid struct {
	Tx    H256
	Index uint32
}

// Vid identifies a vault.
type Vid struct {
	Tx    H256
	Index uint32
}

// Bid identifies a transient bucket within a transaction.
type Bid uint32

// Rid identifies a transient bucket reference within a transaction.
type Rid uint32

// HandleLen is the encoded length of a Mid or Vid.
const HandleLen = 36

func (m Mid) String() string { return fmt.Sprintf("Mid(%s, %d)", m.Tx, m.Index) }
func (v Vid) String() string { return fmt.Sprintf("Vid(%s, %d)", v.Tx, v.Index) }
func (b Bid) String() string { return fmt.Sprintf("Bid(%d)", uint32(b)) }
func (r Rid) String() string { return fmt.Sprintf("Rid(%d)", uint32(r)) }

func (m Mid) Bytes() []byte { return handleBytes(m.Tx, m.Index) }
func (v Vid) Bytes() []byte { return handleBytes(v.Tx, v.Index) }
func (b Bid) Bytes() []byte { return binary.LittleEndian.AppendUint32(nil, uint32(b)) }
func (r Rid) Bytes() []byte { return binary.LittleEndian.AppendUint32(nil, uint32(r)) }

func handleBytes(tx H256, idx uint32) []byte {
	out := make([]byte, 0, HandleLen)
	out = append(out, tx[:]...)
	return binary.LittleEndian.AppendUint32(out, idx)
}

func parseHandle(b []byte) (H256, uint32, error) {
	if len(b) != HandleLen {
		return H256{}, 0, fmt.Errorf("handle must be %d bytes, got %d", HandleLen, len(b))
	}
	var h H256
	copy(h[:], b[:32])
	return h, binary.LittleEndian.Uint32(b[32:]), nil
}

// MidFromBytes decodes the 36-byte form of a Mid.
func MidFromBytes(b []byte) (Mid, error) {
	h, idx, err := parseHandle(b)
	return Mid{Tx: h, Index: idx}, err
}

// VidFromBytes decodes the 36-byte form of a Vid.
func VidFromBytes(b []byte) (Vid, error) {
	h, idx, err := parseHandle(b)
	return Vid{Tx: h, Index: idx}, err
}

// BidFromBytes decodes the 4-byte form of a Bid.
func BidFromBytes(b []byte) (Bid, error) {
	if len(b) != 4 {
		return 0, fmt.Errorf("bucket id must be 4 bytes, got %d", len(b))
	}
	return Bid(binary.LittleEndian.Uint32(b)), nil
}

// RidFromBytes decodes the 4-byte form of a Rid.
func RidFromBytes(b []byte) (Rid, error) {
	if len(b) != 4 {
		return 0, fmt.Errorf("bucket ref id must be 4 bytes, got %d", len(b))
	}
	return Rid(binary.LittleEndian.Uint32(b)), nil
}
