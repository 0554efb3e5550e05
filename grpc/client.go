package ledgerdgrpc

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"

	"github.com/blockberries/ledgerd"
	"github.com/blockberries/ledgerd/types"
)

// Compile-time interface check.
var _ ledgerd.Node = (*Client)(nil)

// Client implements ledgerd.Node for a remote node over gRPC using
// cramberry serialization. Remote errors are rebuilt into the ledgerd
// error types.
type Client struct {
	cc *grpc.ClientConn
}

// Dial creates a client for the node at addr. The connection is
// established lazily on the first call.
func Dial(addr string, opts ...grpc.DialOption) (*Client, error) {
	opts = append(opts, grpc.WithDefaultCallOptions(
		grpc.ForceCodec(Codec{}),
	))
	cc, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("ledgerd client: dial %s: %w", addr, err)
	}
	return &Client{cc: cc}, nil
}

func (c *Client) Close() error {
	return c.cc.Close()
}

func (c *Client) invoke(ctx context.Context, method string, req, resp any) error {
	var trailer metadata.MD
	if err := c.cc.Invoke(ctx, fullMethod(method), req, resp, grpc.Trailer(&trailer)); err != nil {
		return fromStatus(err, trailer)
	}
	return nil
}

func (c *Client) NewAccount(ctx context.Context) (types.NewAccountResult, error) {
	resp := new(types.NewAccountResult)
	if err := c.invoke(ctx, "NewAccount", &NewAccountRequest{}, resp); err != nil {
		return types.NewAccountResult{}, err
	}
	return *resp, nil
}

func (c *Client) CallFunction(ctx context.Context, req types.CallFunctionParams) (types.CallFunctionResult, error) {
	resp := new(types.CallFunctionResult)
	if err := c.invoke(ctx, "CallFunction", &req, resp); err != nil {
		return types.CallFunctionResult{}, err
	}
	if resp.Resources == nil {
		resp.Resources = []string{}
	}
	if resp.Components == nil {
		resp.Components = []string{}
	}
	return *resp, nil
}

func (c *Client) CallMethod(ctx context.Context, req types.CallMethodParams) ([]string, error) {
	resp := new(CallMethodResponse)
	if err := c.invoke(ctx, "CallMethod", &req, resp); err != nil {
		return nil, err
	}
	if resp.Outputs == nil {
		return []string{}, nil
	}
	return resp.Outputs, nil
}

func (c *Client) GetBalance(ctx context.Context, req types.GetBalanceParams) (types.Balances, error) {
	resp := new(BalancesResponse)
	if err := c.invoke(ctx, "GetBalance", &req, resp); err != nil {
		return nil, err
	}
	return balancesFromWire(resp)
}

func (c *Client) Status(ctx context.Context) (types.NodeStatus, error) {
	resp := new(types.NodeStatus)
	if err := c.invoke(ctx, "Status", &StatusRequest{}, resp); err != nil {
		return types.NodeStatus{}, err
	}
	return *resp, nil
}
