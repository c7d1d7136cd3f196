package server

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"
)

// DefaultPruneInterval is how often expired records are removed.
const DefaultPruneInterval = 10 * time.Minute

// PruneBackend removes records whose expiry is before now.
type PruneBackend interface {
	Prune(ctx context.Context, now time.Time) (int64, error)
}

// Pruner periodically deletes expired records.
type Pruner struct {
	backend  PruneBackend
	clock    Clock
	interval time.Duration
	logger   *slog.Logger

	runs    atomic.Uint64
	removed atomic.Int64
}

// NewPruner creates a pruner. A nil clock means SystemClock and a
// non-positive interval means DefaultPruneInterval.
func NewPruner(backend PruneBackend, clock Clock, interval time.Duration, logger *slog.Logger) *Pruner {
	if clock == nil {
		clock = SystemClock{}
	}
	if interval <= 0 {
		interval = DefaultPruneInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Pruner{backend: backend, clock: clock, interval: interval, logger: logger}
}

// Run prunes once per interval until ctx is cancelled. A failed pass is
// logged and retried on the next tick.
func (p *Pruner) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := p.PruneOnce(ctx); err != nil && ctx.Err() == nil {
				p.logger.Error("prune failed", "error", err)
			}
		}
	}
}

// PruneOnce runs a single pass and returns the number of records removed.
func (p *Pruner) PruneOnce(ctx context.Context) (int64, error) {
	n, err := p.backend.Prune(ctx, p.clock.Now())
	if err != nil {
		return 0, err
	}
	p.runs.Add(1)
	p.removed.Add(n)
	level := slog.LevelDebug
	if n > 0 {
		level = slog.LevelInfo
	}
	p.logger.Log(ctx, level, "pruned expired records", "count", n)
	return n, nil
}

// Runs returns the number of successful passes.
func (p *Pruner) Runs() uint64 {
	return p.runs.Load()
}

// Removed returns the total number of records removed.
func (p *Pruner) Removed() int64 {
	return p.removed.Load()
}
