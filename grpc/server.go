package ledgerdgrpc

import (
	"context"
	"net"

	"google.golang.org/grpc"

	"github.com/blockberries/ledgerd"
	"github.com/blockberries/ledgerd/types"
)

// Compile-time interface check.
var _ NodeServiceServer = (*GRPCServer)(nil)

// GRPCServer exposes a ledgerd.Node over gRPC. Requests are served on
// grpc-go's goroutines and contend on the node's state like any other
// client.
type GRPCServer struct {
	node ledgerd.Node
	gs   *grpc.Server
}

// NewGRPCServer creates a gRPC server for node.
func NewGRPCServer(node ledgerd.Node) *GRPCServer {
	return &GRPCServer{node: node}
}

// Register adds the node service to a gRPC server.
func (s *GRPCServer) Register(gs *grpc.Server) {
	RegisterNodeServiceServer(gs, s)
}

// Serve starts a gRPC server on lis and blocks until it stops.
func (s *GRPCServer) Serve(lis net.Listener, opts ...grpc.ServerOption) error {
	s.gs = grpc.NewServer(opts...)
	s.Register(s.gs)
	return s.gs.Serve(lis)
}

// Run serves on addr until ctx is done, then stops gracefully.
func (s *GRPCServer) Run(ctx context.Context, addr string, opts ...grpc.ServerOption) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	gs := grpc.NewServer(opts...)
	s.Register(gs)

	errCh := make(chan error, 1)
	go func() { errCh <- gs.Serve(lis) }()

	select {
	case <-ctx.Done():
		gs.GracefulStop()
		<-errCh
		return nil
	case err := <-errCh:
		return err
	}
}

// Stop gracefully stops a server started with Serve.
func (s *GRPCServer) Stop() {
	if s.gs != nil {
		s.gs.GracefulStop()
	}
}

// Node returns the node being served.
func (s *GRPCServer) Node() ledgerd.Node {
	return s.node
}

func (s *GRPCServer) NewAccount(ctx context.Context, _ *NewAccountRequest) (*types.NewAccountResult, error) {
	res, err := s.node.NewAccount(ctx)
	if err != nil {
		return nil, toStatus(ctx, err)
	}
	return &res, nil
}

func (s *GRPCServer) CallFunction(ctx context.Context, req *types.CallFunctionParams) (*types.CallFunctionResult, error) {
	res, err := s.node.CallFunction(ctx, *req)
	if err != nil {
		return nil, toStatus(ctx, err)
	}
	return &res, nil
}

func (s *GRPCServer) CallMethod(ctx context.Context, req *types.CallMethodParams) (*CallMethodResponse, error) {
	out, err := s.node.CallMethod(ctx, *req)
	if err != nil {
		return nil, toStatus(ctx, err)
	}
	return &CallMethodResponse{Outputs: out}, nil
}

func (s *GRPCServer) GetBalance(ctx context.Context, req *types.GetBalanceParams) (*BalancesResponse, error) {
	b, err := s.node.GetBalance(ctx, *req)
	if err != nil {
		return nil, toStatus(ctx, err)
	}
	return balancesToWire(b), nil
}

func (s *GRPCServer) Status(ctx context.Context, _ *StatusRequest) (*types.NodeStatus, error) {
	st, err := s.node.Status(ctx)
	if err != nil {
		return nil, toStatus(ctx, err)
	}
	return &st, nil
}
