package texop

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/gogpu/texquad"
)

// FlushStats summarizes one List.Flush.
type FlushStats struct {
	Chains       int
	Draws        int
	Meshes       int
	Quads        int
	Vertices     int
	FailedChains int
}

// LogValue implements slog.LogValuer.
func (s FlushStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("chains", s.Chains),
		slog.Int("draws", s.Draws),
		slog.Int("meshes", s.Meshes),
		slog.Int("quads", s.Quads),
		slog.Int("vertices", s.Vertices),
		slog.Int("failed", s.FailedChains),
	)
}

// ListOption configures a List.
type ListOption func(*listOptions)

type listOptions struct {
	pool *Pool
}

// WithPool recycles merged and flushed ops through p.
func WithPool(p *Pool) ListOption {
	return func(o *listOptions) {
		o.pool = p
	}
}

// List records ops in submission order and batches each new op against
// the one recorded just before it.
type List struct {
	caps   Caps
	pool   *Pool
	chains []*Chain
	closed bool
	merges int
}

// NewList returns an empty list batching under caps.
func NewList(caps Caps, opts ...ListOption) *List {
	var o listOptions
	for _, opt := range opts {
		opt(&o)
	}
	return &List{caps: caps, pool: o.pool}
}

// Pool returns the pool ops should be built from, possibly nil.
func (l *List) Pool() *Pool { return l.pool }

// Add records op. A merged op is released and recycled immediately, so the
// caller must not use op after Add returns.
func (l *List) Add(op *Op) error {
	if l.closed {
		return ErrListClosed
	}
	if op == nil {
		panic("texop: add of nil op")
	}
	if n := len(l.chains); n > 0 {
		last := l.chains[n-1]
		switch last.Tail().CombineIfPossible(op, l.caps) {
		case Merged:
			op.Release()
			l.pool.Put(op)
			l.merges++
			return nil
		case MayChain:
			last.Append(op)
			return nil
		}
	}
	l.chains = append(l.chains, NewChain(op))
	return nil
}

// Chains returns the recorded chains.
func (l *List) Chains() []*Chain { return l.chains }

// Merges returns how many added ops were merged away.
func (l *List) Merges() int { return l.merges }

// Close finalizes every op. Adding after Close fails with ErrListClosed.
func (l *List) Close() {
	if l.closed {
		return
	}
	for _, c := range l.chains {
		for _, op := range c.ops {
			op.Finalize()
		}
	}
	l.closed = true
}

// Flush closes the list if needed, prepares every chain against target
// and releases all ops. A failing chain does not stop later chains; the
// returned error joins every chain failure. The list is empty and open
// again afterwards.
func (l *List) Flush(target FlushTarget) (FlushStats, error) {
	l.Close()
	var stats FlushStats
	var errs []error
	for i, c := range l.chains {
		ds, err := c.PrepareDraws(target)
		stats.Chains++
		stats.Draws += ds.Draws
		stats.Meshes += ds.Meshes
		stats.Quads += ds.Quads
		stats.Vertices += ds.Vertices
		if err != nil {
			stats.FailedChains++
			errs = append(errs, fmt.Errorf("chain %d: %w", i, err))
		}
	}
	l.releaseAll()
	texquad.Logger().Debug("texop: flush", "stats", stats)
	return stats, errors.Join(errs...)
}

// Discard releases every recorded op without drawing. The list is empty
// and open again afterwards.
func (l *List) Discard() {
	l.releaseAll()
}

func (l *List) releaseAll() {
	for _, c := range l.chains {
		for _, op := range c.ops {
			op.Release()
			l.pool.Put(op)
		}
	}
	clear(l.chains)
	l.chains = l.chains[:0]
	l.closed = false
	l.merges = 0
}
