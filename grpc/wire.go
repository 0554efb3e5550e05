// Package ledgerdgrpc serves the node service over gRPC.
//
// Messages are the cramberry-tagged structs from ledgerd/types plus the
// wrappers below; no protobuf code generation is involved. The codec is
// registered under the "ledgerd" content subtype and forced by the client.
package ledgerdgrpc

import (
	"fmt"
	"sort"

	"github.com/blockberries/cramberry/pkg/cramberry"
	"google.golang.org/grpc/encoding"

	"github.com/blockberries/ledgerd/types"
)

// Codec encodes node messages with cramberry.
type Codec struct{}

func (Codec) Name() string { return "ledgerd" }

func (Codec) Marshal(v any) ([]byte, error) {
	data, err := cramberry.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("ledgerd wire: encode %T: %w", v, err)
	}
	return data, nil
}

func (Codec) Unmarshal(data []byte, v any) error {
	if err := cramberry.Unmarshal(data, v); err != nil {
		return fmt.Errorf("ledgerd wire: decode %T: %w", v, err)
	}
	return nil
}

func init() {
	encoding.RegisterCodec(Codec{})
}

// Transport-specific wrapper types for node operations whose
// signatures don't map to a single request/response struct.

// NewAccountRequest is the (empty) request for NewAccount.
type NewAccountRequest struct{}

// StatusRequest is the (empty) request for Status.
type StatusRequest struct{}

// CallMethodResponse wraps the formatted outputs of CallMethod.
type CallMethodResponse struct {
	Outputs []string `cramberry:"1"`
}

// BalanceEntry is one resource balance. Amount is decimal text.
type BalanceEntry struct {
	Resource string `cramberry:"1"`
	Amount   string `cramberry:"2"`
}

// BalancesResponse carries balances ordered by resource.
type BalancesResponse struct {
	Entries []BalanceEntry `cramberry:"1"`
}

func balancesToWire(b types.Balances) *BalancesResponse {
	resp := &BalancesResponse{Entries: make([]BalanceEntry, 0, len(b))}
	for res, amount := range b {
		resp.Entries = append(resp.Entries, BalanceEntry{Resource: res, Amount: amount.String()})
	}
	sort.Slice(resp.Entries, func(i, j int) bool {
		return resp.Entries[i].Resource < resp.Entries[j].Resource
	})
	return resp
}

func balancesFromWire(resp *BalancesResponse) (types.Balances, error) {
	b := make(types.Balances, len(resp.Entries))
	for _, e := range resp.Entries {
		amount, err := types.ParseDecimal(e.Amount)
		if err != nil {
			return nil, fmt.Errorf("balance of %s: %w", e.Resource, err)
		}
		b[e.Resource] = amount
	}
	return b, nil
}
