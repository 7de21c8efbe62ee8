package easyhttp

import "github.com/easyhttp-go/easyhttp/internal/pool"

// Interceptor observes and optionally rewrites a request/response pair as
// it passes through the chain. Implementations call chain.Proceed to
// continue, or return a Response/error directly to short-circuit.
type Interceptor func(chain Chain) (*Response, error)

// Chain exposes the current request to an Interceptor and lets it forward
// to the next link. These are call interceptors, run before any
// connection is acquired from the pool, so Connection is always nil.
type Chain interface {
	Request() *Request
	Connection() *pool.Connection
	Proceed(req *Request) (*Response, error)
}

// terminalFunc is invoked once the interceptor chain is exhausted; it performs
// the actual cache/network work via internal/engine.
type terminalFunc func(req *Request, conn *pool.Connection) (*Response, error)

// chainNode is one link of the interceptor chain. Each Proceed call builds
// a fresh chainNode bound to the next index, a direct translation of
// CallInterceptorChain::proceed advancing its iterator rather than mutating
// shared state in place.
type chainNode struct {
	interceptors []Interceptor
	index        int
	req          *Request
	conn         *pool.Connection
	terminal     terminalFunc
}

func (n *chainNode) Request() *Request           { return n.req }
func (n *chainNode) Connection() *pool.Connection { return n.conn }

func (n *chainNode) Proceed(req *Request) (*Response, error) {
	if n.index >= len(n.interceptors) {
		return n.terminal(req, n.conn)
	}
	next := &chainNode{
		interceptors: n.interceptors,
		index:        n.index + 1,
		req:          req,
		conn:         n.conn,
		terminal:     n.terminal,
	}
	return n.interceptors[n.index](next)
}

// runChain builds the first chainNode and proceeds through it. An empty
// interceptor list goes straight to terminal, matching
// executeAfterIntercept being called directly when no interceptors are
// registered.
func runChain(req *Request, conn *pool.Connection, interceptors []Interceptor, terminal terminalFunc) (*Response, error) {
	n := &chainNode{
		interceptors: interceptors,
		index:        0,
		req:          req,
		conn:         conn,
		terminal:     terminal,
	}
	return n.Proceed(req)
}
