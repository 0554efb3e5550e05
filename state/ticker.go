package state

import (
	"log/slog"
	"sync"
	"time"
)

// DefaultEpochInterval is how often the epoch advances by default.
const DefaultEpochInterval = 60 * time.Second

// Ticker advances the epoch at a fixed interval until stopped.
type Ticker struct {
	m        *Manager
	interval time.Duration
	logger   *slog.Logger

	startOnce sync.Once
	stopOnce  sync.Once
	stop      chan struct{}
	done      chan struct{}
}

// TickerOption configures a Ticker.
type TickerOption func(*Ticker)

// WithTickerLogger sets the ticker's logger.
func WithTickerLogger(logger *slog.Logger) TickerOption {
	return func(t *Ticker) { t.logger = logger }
}

// NewTicker returns a stopped ticker for m. A non-positive interval
// selects DefaultEpochInterval.
func NewTicker(m *Manager, interval time.Duration, opts ...TickerOption) *Ticker {
	if interval <= 0 {
		interval = DefaultEpochInterval
	}
	t := &Ticker{
		m:        m,
		interval: interval,
		logger:   slog.Default(),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Start launches the ticker goroutine. Subsequent calls do nothing.
func (t *Ticker) Start() {
	t.startOnce.Do(func() { go t.run() })
}

// Stop signals the ticker and waits for it to exit. It is safe to call
// more than once, and before Start. A ticker stopped before Start never
// runs.
func (t *Ticker) Stop() {
	t.stopOnce.Do(func() { close(t.stop) })
	t.startOnce.Do(func() { close(t.done) })
	<-t.done
}

func (t *Ticker) run() {
	defer close(t.done)
	tick := time.NewTicker(t.interval)
	defer tick.Stop()
	for {
		select {
		case <-t.stop:
			return
		case <-tick.C:
			t.advance()
		}
	}
}

func (t *Ticker) advance() {
	h := t.m.AcquireTx()
	defer h.Release()
	epoch := h.AdvanceEpoch()
	t.logger.Debug("epoch advanced", "epoch", epoch)
}
