package server

import (
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/blockberries/ledgerd/metrics"
)

// requestStage is a state in the per-request state machine.
type requestStage uint32

const (
	// stageValidating: parsing textual parameters. No lock held.
	stageValidating requestStage = iota
	// stageAcquiring: waiting for a ledger handle.
	stageAcquiring
	// stageExecuting: building and running a transaction under the
	// exclusive handle.
	stageExecuting
	// stageReading: reading the ledger under a shared handle.
	stageReading
	// stageFormatting: rendering decoded values.
	stageFormatting
	// stageReleasing: the handle is being given up.
	stageReleasing
	// stageResponding: the result is ready. Terminal.
	stageResponding
	// stageFailed: the request failed. Terminal.
	stageFailed
)

func (s requestStage) String() string {
	switch s {
	case stageValidating:
		return "Validating"
	case stageAcquiring:
		return "Acquiring"
	case stageExecuting:
		return "Executing"
	case stageReading:
		return "Reading"
	case stageFormatting:
		return "Formatting"
	case stageReleasing:
		return "Releasing"
	case stageResponding:
		return "Responding"
	case stageFailed:
		return "Failed"
	default:
		return fmt.Sprintf("unknown(%d)", s)
	}
}

// transitions lists the legal successors of each non-terminal stage.
// Failed is reachable from every non-terminal stage.
var transitions = map[requestStage][]requestStage{
	stageValidating: {stageAcquiring},
	stageAcquiring:  {stageExecuting, stageReading},
	stageExecuting:  {stageReleasing},
	stageReading:    {stageFormatting, stageReleasing},
	stageFormatting: {stageReleasing, stageResponding},
	stageReleasing:  {stageFormatting, stageResponding},
}

func (s requestStage) terminal() bool {
	return s == stageResponding || s == stageFailed
}

func (s requestStage) allows(next requestStage) bool {
	if s.terminal() {
		return false
	}
	if next == stageFailed {
		return true
	}
	for _, n := range transitions[s] {
		if n == next {
			return true
		}
	}
	return false
}

// request tracks one call through its stages. Illegal transitions are
// programming errors and panic.
type request struct {
	method   string
	stage    atomic.Uint32
	failedAt requestStage
	start    time.Time
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

func newRequest(method string, logger *slog.Logger, m *metrics.Metrics) *request {
	return &request{
		method:  method,
		start:   time.Now(),
		logger:  logger,
		metrics: m,
	}
}

// Stage returns the current stage.
func (r *request) Stage() requestStage {
	return requestStage(r.stage.Load())
}

// advance moves the request to next.
func (r *request) advance(next requestStage) {
	cur := r.Stage()
	if !cur.allows(next) {
		panic(fmt.Sprintf("ledgerd/server: %s moved from %s to %s", r.method, cur, next))
	}
	if !r.stage.CompareAndSwap(uint32(cur), uint32(next)) {
		panic(fmt.Sprintf("ledgerd/server: %s raced leaving %s", r.method, cur))
	}
}

// finish moves the request to a terminal stage according to err and
// records the outcome.
func (r *request) finish(err error) {
	elapsed := time.Since(r.start)
	if err == nil {
		r.advance(stageResponding)
		r.metrics.ObserveRequest(r.method, "ok", elapsed)
		r.logger.Debug("request served", "method", r.method, "latency_ms", elapsed.Milliseconds())
		return
	}
	r.failedAt = r.Stage()
	r.advance(stageFailed)
	r.metrics.ObserveRequest(r.method, "error", elapsed)
	r.metrics.RequestFailed(r.failedAt.String())
	r.logger.Warn("request failed",
		"method", r.method,
		"stage", r.failedAt.String(),
		"latency_ms", elapsed.Milliseconds(),
		"err", err,
	)
}
