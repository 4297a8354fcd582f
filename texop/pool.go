package texop

import "sync"

// Pool recycles ops between flushes. A nil *Pool allocates a fresh op
// every time.
type Pool struct {
	ops sync.Pool
}

// NewPool returns an empty pool.
func NewPool() *Pool {
	return &Pool{ops: sync.Pool{New: func() any { return new(Op) }}}
}

func (p *Pool) get() *Op {
	if p == nil {
		return new(Op)
	}
	op := p.ops.Get().(*Op)
	op.reset()
	return op
}

// Put returns a released op to the pool. Putting an op that still holds
// proxies panics.
func (p *Pool) Put(op *Op) {
	if op.state != opReleased {
		panic("texop: pooled op was not released")
	}
	if p == nil {
		return
	}
	p.ops.Put(op)
}
