package jsonrpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/blockberries/ledgerd"
	"github.com/blockberries/ledgerd/metrics"
)

// DefaultAddr is the listen address when none is configured.
const DefaultAddr = "127.0.0.1:3030"

// DefaultMaxBodyBytes bounds a request body.
const DefaultMaxBodyBytes int64 = 1 << 20

const shutdownTimeout = 5 * time.Second

// Server serves a node over JSON-RPC.
type Server struct {
	node       ledgerd.Node
	httpServer *http.Server
	pool       *WorkerPool

	workers      int
	maxBodyBytes int64
	corsOrigin   string
	limiter      *rateLimiter
	logger       *slog.Logger
	metrics      *metrics.Metrics

	seq atomic.Uint64
}

// Option configures a Server.
type Option func(*Server)

// WithWorkers sets the number of requests served at once.
func WithWorkers(n int) Option {
	return func(s *Server) { s.workers = n }
}

// WithMaxBodyBytes bounds the request body size.
func WithMaxBodyBytes(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxBodyBytes = n
		}
	}
}

// WithCORSOrigin sets Access-Control-Allow-Origin. "*" allows any
// origin; empty disables CORS headers.
func WithCORSOrigin(origin string) Option {
	return func(s *Server) { s.corsOrigin = origin }
}

// WithRateLimit limits requests per client address.
func WithRateLimit(cfg RateLimit) Option {
	return func(s *Server) { s.limiter = newRateLimiter(cfg) }
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// NewServer creates a server for node listening on addr, or DefaultAddr
// if addr is empty. Workers start immediately; Close stops them.
func NewServer(addr string, node ledgerd.Node, opts ...Option) *Server {
	if addr == "" {
		addr = DefaultAddr
	}
	s := &Server{
		node:         node,
		workers:      DefaultWorkers,
		maxBodyBytes: DefaultMaxBodyBytes,
		corsOrigin:   "*",
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.pool = NewWorkerPool(s.workers, 16*max(s.workers, 1), s.logger, s.metrics)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/rpc", s.handleRPC)
	mux.HandleFunc("/", s.handleRPC)
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Handler returns the HTTP handler of the server.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Run listens on the configured address and serves until ctx ends,
// then shuts down gracefully and stops the workers.
func (s *Server) Run(ctx context.Context) error {
	lis, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		s.pool.Stop()
		return fmt.Errorf("jsonrpc: listen: %w", err)
	}
	return s.Serve(ctx, lis)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, lis net.Listener) error {
	defer s.pool.Stop()
	s.logger.Info("json-rpc server listening", "addr", lis.Addr().String())

	errCh := make(chan error, 1)
	go func() {
		err := s.httpServer.Serve(lis)
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		errCh <- err
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			s.logger.Warn("json-rpc shutdown timed out, closing connections", "err", err)
			_ = s.httpServer.Close()
			<-errCh
			return err
		}
		return <-errCh
	case err := <-errCh:
		return err
	}
}

// Close stops the workers of a server that is not running.
func (s *Server) Close() {
	s.pool.Stop()
}

func (s *Server) applyCORS(w http.ResponseWriter) {
	if s.corsOrigin == "" {
		return
	}
	w.Header().Set("Access-Control-Allow-Origin", s.corsOrigin)
	if s.corsOrigin != "*" {
		w.Header().Set("Vary", "Origin")
	}
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Accept")
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.applyCORS(w)
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) handleRPC(w http.ResponseWriter, r *http.Request) {
	s.applyCORS(w)
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if !s.limiter.allow(clientKey(r), time.Now()) {
		http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.maxBodyBytes)
	var req rpcRequest
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(&req); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			http.Error(w, "request body too large", http.StatusRequestEntityTooLarge)
			return
		}
		writeRPC(w, rpcResponse{JSONRPC: version, Error: &rpcError{Code: CodeParseError, Message: msgParseError}})
		return
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		writeRPCInvalidRequest(w, req.ID)
		return
	}
	if req.JSONRPC != version || req.Method == "" {
		writeRPCInvalidRequest(w, req.ID)
		return
	}

	reqID := fmt.Sprintf("rpc_%d", s.seq.Add(1))
	started := time.Now()
	s.logger.Info("rpc request", "request_id", reqID, "method", req.Method, "rpc_id", string(req.ID))

	result, rpcErr := s.submit(r.Context(), req)
	if rpcErr != nil {
		s.logger.Error("rpc failed", "request_id", reqID, "method", req.Method, "rpc_code", rpcErr.Code, "latency_ms", time.Since(started).Milliseconds())
	} else {
		s.logger.Info("rpc response", "request_id", reqID, "method", req.Method, "latency_ms", time.Since(started).Milliseconds())
	}
	writeRPC(w, rpcResponse{
		JSONRPC: version,
		ID:      req.ID,
		Result:  result,
		Error:   rpcErr,
	})
}

// submit runs the request on the worker pool and waits for it.
func (s *Server) submit(ctx context.Context, req rpcRequest) (any, *rpcError) {
	done := make(chan struct{})
	var (
		result any
		rpcErr = &rpcError{Code: CodeInternalError, Message: msgInternal}
	)
	err := s.pool.Submit(ctx, func() {
		defer close(done)
		result, rpcErr = s.dispatch(ctx, req.Method, req.Params)
	})
	if errors.Is(err, ErrPoolStopped) {
		return nil, &rpcError{Code: CodeUnavailable, Message: msgShuttingDown}
	}
	if err != nil {
		return nil, errorFor(err)
	}
	select {
	case <-done:
		return result, rpcErr
	case <-ctx.Done():
		return nil, errorFor(ctx.Err())
	case <-s.pool.Done():
		// Stop returns once no worker runs, so the job has either
		// finished or was dropped from the queue.
		s.pool.Stop()
		select {
		case <-done:
			return result, rpcErr
		default:
			return nil, &rpcError{Code: CodeUnavailable, Message: msgShuttingDown}
		}
	}
}

func writeRPC(w http.ResponseWriter, resp rpcResponse) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

func writeRPCInvalidRequest(w http.ResponseWriter, id json.RawMessage) {
	writeRPC(w, rpcResponse{
		JSONRPC: version,
		ID:      id,
		Error:   &rpcError{Code: CodeInvalidRequest, Message: msgInvalidReq},
	})
}
