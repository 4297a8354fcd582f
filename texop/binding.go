package texop

import (
	"fmt"

	"github.com/gogpu/texquad/proxy"
)

// holdState is what an op currently owns on a proxy.
type holdState uint8

const (
	holdRef holdState = iota
	holdPendingRead
	holdReleased
)

func (s holdState) String() string {
	switch s {
	case holdRef:
		return "ref"
	case holdPendingRead:
		return "pending-read"
	default:
		return "released"
	}
}

// proxyHold owns either a plain ref or a pending read on one proxy.
type proxyHold struct {
	proxy *proxy.TextureProxy
	state holdState
}

// holdProxy takes a plain ref on p.
func holdProxy(p *proxy.TextureProxy) proxyHold {
	p.Ref()
	return proxyHold{proxy: p, state: holdRef}
}

// finalize converts the plain ref into a pending read.
func (h *proxyHold) finalize() {
	if h.state != holdRef {
		panic(fmt.Sprintf("texop: finalize of %v in state %v", h.proxy, h.state))
	}
	h.proxy.AddPendingRead()
	h.proxy.Unref()
	h.state = holdPendingRead
}

// release drops whatever the hold owns.
func (h *proxyHold) release() {
	switch h.state {
	case holdRef:
		h.proxy.Unref()
	case holdPendingRead:
		h.proxy.CompletedRead()
	default:
		panic(fmt.Sprintf("texop: double release of %v", h.proxy))
	}
	h.state = holdReleased
}

// binding is one texture of an op and how many consecutive quads sample it.
type binding struct {
	hold  proxyHold
	quads int
}

// bindingTable stores bindings with room for one inline. Nearly every op
// samples a single texture.
type bindingTable struct {
	first binding
	rest  []binding
	n     int
}

func (t *bindingTable) len() int { return t.n }

func (t *bindingTable) at(i int) *binding {
	if i == 0 {
		return &t.first
	}
	return &t.rest[i-1]
}

func (t *bindingTable) push(b binding) {
	if t.n == 0 {
		t.first = b
	} else {
		t.rest = append(t.rest, b)
	}
	t.n++
}

func (t *bindingTable) reset() {
	t.first = binding{}
	clear(t.rest)
	t.rest = t.rest[:0]
	t.n = 0
}

// each calls fn for every binding in order.
func (t *bindingTable) each(fn func(*binding)) {
	for i := range t.n {
		fn(t.at(i))
	}
}
