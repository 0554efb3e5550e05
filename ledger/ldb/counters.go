package ldb

import (
	"fmt"
	"log/slog"
	"sync"
)

var countersKey = []byte{'n'}

type countersRecord struct {
	Epoch uint64 `cbor:"1,keyasint"`
	Nonce uint64 `cbor:"2,keyasint"`
}

// Counters checkpoints the epoch and nonce in the ledger so a reopened
// ledger resumes where it stopped. It satisfies state.Observer.
type Counters struct {
	l      *Ledger
	logger *slog.Logger

	mu  sync.Mutex
	rec countersRecord
}

// Counters loads the stored counters. A ledger that never stored any
// starts at zero.
func (l *Ledger) Counters(logger *slog.Logger) (*Counters, error) {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Counters{l: l, logger: logger}
	if _, err := l.load(countersKey, &c.rec); err != nil {
		return nil, fmt.Errorf("load counters: %w", err)
	}
	return c, nil
}

func (c *Counters) Epoch() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rec.Epoch
}

func (c *Counters) Nonce() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rec.Nonce
}

func (c *Counters) ObserveEpoch(epoch uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if epoch == c.rec.Epoch {
		return
	}
	c.rec.Epoch = epoch
	c.save()
}

func (c *Counters) ObserveNonce(nonce uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if nonce == c.rec.Nonce {
		return
	}
	c.rec.Nonce = nonce
	c.save()
}

// save must be called with mu held. A failed write is logged; the next
// change writes the full record again.
func (c *Counters) save() {
	if err := c.l.store(countersKey, c.rec); err != nil {
		c.logger.Error("checkpoint counters failed", "epoch", c.rec.Epoch, "nonce", c.rec.Nonce, "err", err)
	}
}
