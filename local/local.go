// Package local provides an in-process node connection.
//
// For clients compiled into the same binary as the node, this adapter
// calls the server directly with no serialization.
package local

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/blockberries/ledgerd"
	"github.com/blockberries/ledgerd/server"
	"github.com/blockberries/ledgerd/types"
)

// Compile-time interface check.
var _ ledgerd.Node = (*Connection)(nil)

// ErrClosed is returned by calls made after Close.
var ErrClosed = errors.New("local: connection closed")

// Connection is a ledgerd.Node backed by an in-process server.
type Connection struct {
	srv    *server.Server
	closed atomic.Bool
}

// NewConnection creates a connection to srv.
func NewConnection(srv *server.Server) *Connection {
	return &Connection{srv: srv}
}

func (c *Connection) check() error {
	if c.closed.Load() {
		return ErrClosed
	}
	return nil
}

func (c *Connection) NewAccount(ctx context.Context) (types.NewAccountResult, error) {
	if err := c.check(); err != nil {
		return types.NewAccountResult{}, err
	}
	return c.srv.NewAccount(ctx)
}

func (c *Connection) CallFunction(ctx context.Context, req types.CallFunctionParams) (types.CallFunctionResult, error) {
	if err := c.check(); err != nil {
		return types.CallFunctionResult{}, err
	}
	return c.srv.CallFunction(ctx, req)
}

func (c *Connection) CallMethod(ctx context.Context, req types.CallMethodParams) ([]string, error) {
	if err := c.check(); err != nil {
		return nil, err
	}
	return c.srv.CallMethod(ctx, req)
}

func (c *Connection) GetBalance(ctx context.Context, req types.GetBalanceParams) (types.Balances, error) {
	if err := c.check(); err != nil {
		return nil, err
	}
	return c.srv.GetBalance(ctx, req)
}

func (c *Connection) Status(ctx context.Context) (types.NodeStatus, error) {
	if err := c.check(); err != nil {
		return types.NodeStatus{}, err
	}
	return c.srv.Status(ctx)
}

// Close marks the connection closed. The server is left running.
func (c *Connection) Close() error {
	c.closed.Store(true)
	return nil
}

// Server returns the underlying server for direct access.
func (c *Connection) Server() *server.Server {
	return c.srv
}
