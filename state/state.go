// Package state owns the shared ledger together with the nonce and
// epoch counters.
//
// Access follows a single-writer, multiple-reader discipline. A
// transaction holds a TxHandle, which excludes every other handle; any
// number of ReadHandles may be held at once while no TxHandle is
// outstanding. Handles are released with Release, which is idempotent
// and meant to be deferred so a panic inside the critical section
// still unlocks the state.
package state

import (
	"fmt"
	"sync"

	"github.com/blockberries/ledgerd"
)

// Observer is notified of counter changes while the exclusive lock is
// held. *metrics.Metrics satisfies it.
type Observer interface {
	ObserveNonce(nonce uint64)
	ObserveEpoch(epoch uint64)
}

// Manager is the single owner of the ledger, nonce and epoch.
type Manager struct {
	mu     sync.RWMutex
	ledger ledgerd.Ledger
	epoch  uint64
	nonce  uint64
	obs    []Observer
}

// Option configures a Manager.
type Option func(*Manager)

// WithEpoch sets the starting epoch.
func WithEpoch(epoch uint64) Option {
	return func(m *Manager) { m.epoch = epoch }
}

// WithNonce sets the starting nonce.
func WithNonce(nonce uint64) Option {
	return func(m *Manager) { m.nonce = nonce }
}

// WithObserver registers an observer for nonce and epoch changes.
// Observers are called in registration order.
func WithObserver(obs Observer) Option {
	return func(m *Manager) { m.obs = append(m.obs, obs) }
}

// New returns a manager owning ledger.
func New(ledger ledgerd.Ledger, opts ...Option) *Manager {
	m := &Manager{ledger: ledger}
	for _, opt := range opts {
		opt(m)
	}
	for _, o := range m.obs {
		o.ObserveEpoch(m.epoch)
		o.ObserveNonce(m.nonce)
	}
	return m
}

// AcquireTx blocks until no other handle is outstanding and returns
// the exclusive handle.
func (m *Manager) AcquireTx() *TxHandle {
	m.mu.Lock()
	return &TxHandle{m: m, epoch: m.epoch, nonce: m.nonce}
}

// AcquireRead blocks while a TxHandle is outstanding and returns a
// shared handle.
func (m *Manager) AcquireRead() *ReadHandle {
	m.mu.RLock()
	return &ReadHandle{m: m}
}

// Snapshot returns the current epoch and nonce.
func (m *Manager) Snapshot() (epoch, nonce uint64) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.epoch, m.nonce
}

// WithTx runs fn holding the exclusive handle. The handle is released
// when fn returns or panics.
func (m *Manager) WithTx(fn func(h *TxHandle) error) error {
	h := m.AcquireTx()
	defer h.Release()
	return fn(h)
}

// WithRead runs fn holding a shared handle. The handle is released
// when fn returns or panics.
func (m *Manager) WithRead(fn func(h *ReadHandle) error) error {
	h := m.AcquireRead()
	defer h.Release()
	return fn(h)
}

// TxHandle grants exclusive access. Epoch and Nonce are the values
// current when the handle was acquired.
type TxHandle struct {
	m        *Manager
	epoch    uint64
	nonce    uint64
	released bool
}

func (h *TxHandle) check() {
	if h.released {
		panic("state: use of released transaction handle")
	}
}

func (h *TxHandle) Epoch() uint64 { return h.epoch }

func (h *TxHandle) Nonce() uint64 { return h.nonce }

// Ledger returns the ledger for mutation.
func (h *TxHandle) Ledger() ledgerd.Ledger {
	h.check()
	return h.m.ledger
}

// CommitNonce records the nonce observed after running a transaction.
// It must be called for every attempt, successful or not. The stored
// nonce never decreases.
func (h *TxHandle) CommitNonce(nonce uint64) {
	h.check()
	if nonce < h.m.nonce {
		panic(fmt.Sprintf("state: nonce moved backwards from %d to %d", h.m.nonce, nonce))
	}
	h.m.nonce = nonce
	h.nonce = nonce
	for _, o := range h.m.obs {
		o.ObserveNonce(nonce)
	}
}

// AdvanceEpoch increments the epoch and returns the new value.
func (h *TxHandle) AdvanceEpoch() uint64 {
	h.check()
	h.m.epoch++
	h.epoch = h.m.epoch
	for _, o := range h.m.obs {
		o.ObserveEpoch(h.epoch)
	}
	return h.epoch
}

// Release gives up exclusive access. Calling it again is a no-op.
func (h *TxHandle) Release() {
	if h.released {
		return
	}
	h.released = true
	h.m.mu.Unlock()
}

// ReadHandle grants shared read access.
type ReadHandle struct {
	m        *Manager
	released bool
}

// Ledger returns the read view of the ledger.
func (h *ReadHandle) Ledger() ledgerd.LedgerReader {
	if h.released {
		panic("state: use of released read handle")
	}
	return h.m.ledger
}

// Release gives up shared access. Calling it again is a no-op.
func (h *ReadHandle) Release() {
	if h.released {
		return
	}
	h.released = true
	h.m.mu.RUnlock()
}
