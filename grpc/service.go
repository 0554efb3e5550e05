package ledgerdgrpc

import (
	"context"
	"fmt"

	"google.golang.org/grpc"

	"github.com/blockberries/ledgerd/types"
)

const serviceName = "ledgerd.v1.Node"

// NodeServiceServer is the server-side interface for the node gRPC service.
type NodeServiceServer interface {
	NewAccount(context.Context, *NewAccountRequest) (*types.NewAccountResult, error)
	CallFunction(context.Context, *types.CallFunctionParams) (*types.CallFunctionResult, error)
	CallMethod(context.Context, *types.CallMethodParams) (*CallMethodResponse, error)
	GetBalance(context.Context, *types.GetBalanceParams) (*BalancesResponse, error)
	Status(context.Context, *StatusRequest) (*types.NodeStatus, error)
}

// RegisterNodeServiceServer registers the NodeServiceServer on a gRPC server.
func RegisterNodeServiceServer(s *grpc.Server, srv NodeServiceServer) {
	s.RegisterService(&serviceDesc, srv)
}

// --- Handler functions ---

func handlerNewAccount(srv any, ctx context.Context, dec func(any) error, _ grpc.UnaryServerInterceptor) (any, error) {
	req := new(NewAccountRequest)
	if err := dec(req); err != nil {
		return nil, err
	}
	return srv.(NodeServiceServer).NewAccount(ctx, req)
}

func handlerCallFunction(srv any, ctx context.Context, dec func(any) error, _ grpc.UnaryServerInterceptor) (any, error) {
	req := new(types.CallFunctionParams)
	if err := dec(req); err != nil {
		return nil, err
	}
	return srv.(NodeServiceServer).CallFunction(ctx, req)
}

func handlerCallMethod(srv any, ctx context.Context, dec func(any) error, _ grpc.UnaryServerInterceptor) (any, error) {
	req := new(types.CallMethodParams)
	if err := dec(req); err != nil {
		return nil, err
	}
	return srv.(NodeServiceServer).CallMethod(ctx, req)
}

func handlerGetBalance(srv any, ctx context.Context, dec func(any) error, _ grpc.UnaryServerInterceptor) (any, error) {
	req := new(types.GetBalanceParams)
	if err := dec(req); err != nil {
		return nil, err
	}
	return srv.(NodeServiceServer).GetBalance(ctx, req)
}

func handlerStatus(srv any, ctx context.Context, dec func(any) error, _ grpc.UnaryServerInterceptor) (any, error) {
	req := new(StatusRequest)
	if err := dec(req); err != nil {
		return nil, err
	}
	return srv.(NodeServiceServer).Status(ctx, req)
}

// fullMethod builds the full gRPC method path.
func fullMethod(method string) string {
	return fmt.Sprintf("/%s/%s", serviceName, method)
}

// serviceDesc is the manual gRPC service descriptor for the node.
var serviceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*NodeServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "NewAccount", Handler: handlerNewAccount},
		{MethodName: "CallFunction", Handler: handlerCallFunction},
		{MethodName: "CallMethod", Handler: handlerCallMethod},
		{MethodName: "GetBalance", Handler: handlerGetBalance},
		{MethodName: "Status", Handler: handlerStatus},
	},
	Metadata: "ledgerd/v1/node.cram",
}
