// Package server implements the node service on top of the shared
// ledger state and an execution engine.
//
// Every request walks a small stage machine (Validating, Acquiring,
// Executing or Reading, Formatting, Releasing, Responding, or Failed).
// The stage a request failed in is logged and counted.
package server

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/blockberries/ledgerd"
	"github.com/blockberries/ledgerd/formatter"
	"github.com/blockberries/ledgerd/metrics"
	"github.com/blockberries/ledgerd/state"
	"github.com/blockberries/ledgerd/types"
)

var _ ledgerd.Node = (*Server)(nil)

// Server serves the node operations. Mutating calls hold the state
// manager's exclusive handle; reads share it.
type Server struct {
	state   *state.Manager
	engine  ledgerd.Engine
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the server's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

// WithMetrics records request outcomes on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// New creates a server over st, executing transactions with engine.
func New(st *state.Manager, engine ledgerd.Engine, opts ...Option) *Server {
	s := &Server{
		state:  st,
		engine: engine,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// State returns the state manager the server runs against.
func (s *Server) State() *state.Manager { return s.state }

func (s *Server) begin(method string) *request {
	return newRequest(method, s.logger, s.metrics)
}

// transact runs fn with an executor bound to the exclusive handle. The
// executor's nonce is committed whatever fn returns, and a panic inside
// fn is reported as a failed transaction.
func (s *Server) transact(ctx context.Context, req *request, fn func(x ledgerd.Executor) error) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}
	req.advance(stageAcquiring)
	h := s.state.AcquireTx()
	defer func() {
		if err == nil {
			req.advance(stageReleasing)
		}
		h.Release()
	}()

	req.advance(stageExecuting)
	x := s.engine.NewExecutor(h.Ledger(), h.Epoch(), h.Nonce())
	defer func() { h.CommitNonce(x.Nonce()) }()
	defer func() {
		if r := recover(); r != nil {
			err = &ledgerd.TransactionError{Stage: ledgerd.StageRun, Err: fmt.Errorf("engine panic: %v", r)}
		}
	}()
	return fn(x)
}

// run builds and runs instructions. Failures recorded per instruction
// are left in the receipt.
func run(x ledgerd.Executor, instructions []types.Instruction, signer types.Address) (*types.Receipt, error) {
	tx, err := x.Build(instructions, []types.Address{signer})
	if err != nil {
		return nil, &ledgerd.TransactionError{Stage: ledgerd.StageBuild, Err: err}
	}
	receipt, err := x.Run(tx)
	if err != nil {
		return nil, &ledgerd.TransactionError{Stage: ledgerd.StageRun, Err: err}
	}
	return receipt, nil
}

// execute is run failing on the first instruction error in the receipt.
func execute(x ledgerd.Executor, instructions []types.Instruction, signer types.Address) (*types.Receipt, error) {
	receipt, err := run(x, instructions, signer)
	if err != nil {
		return nil, err
	}
	if i, err := receipt.FirstFailure(); err != nil {
		return receipt, &ledgerd.EngineError{Index: i, Err: err}
	}
	return receipt, nil
}

type callParams struct {
	target  types.Address
	account types.Address
	signer  types.Address
}

func parseCall(target, targetReason, account, key string) (callParams, error) {
	var (
		p   callParams
		err error
	)
	if p.target, err = types.ParseAddress(target); err != nil {
		return p, ledgerd.NewInvalidParams(targetReason, err)
	}
	if p.account, err = types.ParseAddress(account); err != nil {
		return p, ledgerd.NewInvalidParams(ledgerd.ReasonAccountAddress, err)
	}
	if p.signer, err = types.ParseAddress(key); err != nil {
		return p, ledgerd.NewInvalidParams(ledgerd.ReasonSignerKey, err)
	}
	return p, nil
}

func hexAll(addrs []types.Address) []string {
	out := make([]string, 0, len(addrs))
	for _, a := range addrs {
		out = append(out, a.String())
	}
	return out
}

// NewAccount generates a key and creates an account controlled by it.
func (s *Server) NewAccount(ctx context.Context) (res types.NewAccountResult, err error) {
	req := s.begin("new_account")
	defer func() { req.finish(err) }()

	err = s.transact(ctx, req, func(x ledgerd.Executor) error {
		key := x.NewPublicKey()
		account, err := x.NewAccount(key)
		if err != nil {
			return &ledgerd.TransactionError{Stage: ledgerd.StageRun, Err: err}
		}
		res = types.NewAccountResult{Key: key.String(), Account: account.String()}
		return nil
	})
	if err != nil {
		return types.NewAccountResult{}, err
	}
	return res, nil
}

// CallFunction calls a blueprint function, then drops every bucket
// reference and deposits the remaining buckets into the account.
func (s *Server) CallFunction(ctx context.Context, p types.CallFunctionParams) (res types.CallFunctionResult, err error) {
	req := s.begin("call_function")
	defer func() { req.finish(err) }()

	c, err := parseCall(p.Address, ledgerd.ReasonPackageAddress, p.AccountAddress, p.Key)
	if err != nil {
		return res, err
	}

	err = s.transact(ctx, req, func(x ledgerd.Executor) error {
		account := c.account
		receipt, err := execute(x, []types.Instruction{
			types.CallFunction{
				Package:   c.target,
				Blueprint: p.Name,
				Function:  p.Function,
				Args:      p.Args,
				Account:   &account,
			},
			types.DropAllBucketRefs{},
			types.DepositAllBuckets{Account: c.account},
		}, c.signer)
		if err != nil {
			return err
		}
		packages, components, resources := receipt.Partition()
		if len(packages) > 0 {
			s.logger.Info("call published packages", "packages", hexAll(packages))
		}
		res = types.CallFunctionResult{
			Resources:  hexAll(resources),
			Components: hexAll(components),
		}
		return nil
	})
	if err != nil {
		return types.CallFunctionResult{}, err
	}
	return res, nil
}

// CallMethod calls a component method with the same deposit epilogue
// as CallFunction and returns the canonical text of every output.
func (s *Server) CallMethod(ctx context.Context, p types.CallMethodParams) (out []string, err error) {
	req := s.begin("call_method")
	defer func() { req.finish(err) }()

	c, err := parseCall(p.Address, ledgerd.ReasonComponentAddress, p.AccountAddress, p.Key)
	if err != nil {
		return nil, err
	}

	var receipt *types.Receipt
	err = s.transact(ctx, req, func(x ledgerd.Executor) error {
		account := c.account
		r, err := run(x, []types.Instruction{
			types.CallMethod{
				Component: c.target,
				Method:    p.Method,
				Args:      p.Args,
				Account:   &account,
			},
			types.DropAllBucketRefs{},
			types.DepositAllBuckets{Account: c.account},
		}, c.signer)
		receipt = r
		return err
	})
	if err != nil {
		return nil, err
	}

	req.advance(stageFormatting)
	h := s.state.AcquireRead()
	defer h.Release()
	out = make([]string, 0, len(receipt.Results))
	for i, r := range receipt.Results {
		if r.Err != nil {
			return nil, &ledgerd.EngineError{Index: i, Err: r.Err}
		}
		if r.Output == nil {
			continue
		}
		var vaults []types.Vid
		text, err := formatter.FormatData(r.Output, h.Ledger(), &vaults)
		if err != nil {
			return nil, &ledgerd.DecodeFailure{Index: i, Err: err}
		}
		out = append(out, text)
	}
	return out, nil
}

// GetBalance reports the amount held in every vault reachable from a
// component's state, keyed by resource address.
func (s *Server) GetBalance(ctx context.Context, p types.GetBalanceParams) (res types.Balances, err error) {
	req := s.begin("get_balance")
	defer func() { req.finish(err) }()

	addr, err := types.ParseAddress(p.Address)
	if err != nil {
		return nil, ledgerd.NewInvalidParams(ledgerd.ReasonComponentAddress, err)
	}
	if !addr.IsComponent() {
		return nil, ledgerd.NewInvalidParams(ledgerd.ReasonNotComponent, nil)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	req.advance(stageAcquiring)
	h := s.state.AcquireRead()
	defer h.Release()
	req.advance(stageReading)
	ledger := h.Ledger()

	comp, ok := ledger.GetComponent(addr)
	if !ok {
		return nil, fmt.Errorf("%w: component %s not found", ledgerd.ErrBalanceUnavailable, addr)
	}
	data, err := comp.State()
	if err != nil {
		return nil, fmt.Errorf("%w: read state: %v", ledgerd.ErrBalanceUnavailable, err)
	}

	req.advance(stageFormatting)
	var vaults []types.Vid
	if _, err := formatter.FormatData(data, ledger, &vaults); err != nil {
		return nil, fmt.Errorf("%w: decode state: %v", ledgerd.ErrBalanceUnavailable, err)
	}
	res = make(types.Balances, len(vaults))
	for _, vid := range vaults {
		v, ok := ledger.GetVault(vid)
		if !ok {
			return nil, fmt.Errorf("%w: %s not found", ledgerd.ErrBalanceUnavailable, vid)
		}
		amount, err := v.Amount()
		if err != nil {
			return nil, fmt.Errorf("%w: %s amount: %v", ledgerd.ErrBalanceUnavailable, vid, err)
		}
		resource, err := v.ResourceAddress()
		if err != nil {
			return nil, fmt.Errorf("%w: %s resource: %v", ledgerd.ErrBalanceUnavailable, vid, err)
		}
		res[resource.String()] = amount
	}
	req.advance(stageReleasing)
	return res, nil
}

// Status reports the current epoch and nonce.
func (s *Server) Status(ctx context.Context) (st types.NodeStatus, err error) {
	req := s.begin("get_status")
	defer func() { req.finish(err) }()

	if err := ctx.Err(); err != nil {
		return st, err
	}
	req.advance(stageAcquiring)
	req.advance(stageReading)
	st.Epoch, st.Nonce = s.state.Snapshot()
	req.advance(stageReleasing)
	return st, nil
}
