// Package pool implements the connection pool: one http.Transport (and a
// small idle/in-use bookkeeping layer on top of it) per (scheme, host,
// port, proxy) endpoint key, generalized from the single shared
// http.Transport chproxy's reverseProxy built for its one upstream per
// cluster node.
package pool

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"net"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/easyhttp-go/easyhttp/log"
)

// Key identifies a pooled endpoint.
type Key struct {
	Scheme     string
	Host       string
	Port       uint16
	ProxyHost  string
	ProxyPort  uint16
}

// Connection wraps the transport used to reach one endpoint, plus the
// bookkeeping the engine needs to implement cancel-vs-close-before-EOF
// semantics: Remove on a cancelled read, leave untouched on a clean
// release.
type Connection struct {
	id        int64
	key       Key
	transport *http.Transport

	mu     sync.Mutex
	inUse  bool
	closed bool
	conns  []net.Conn
}

// trackConn records a dialed net.Conn so Remove can force it closed even
// while a response body is still being read from it — CloseIdleConnections
// alone only reaches connections the transport considers idle, which a
// cancelled-but-in-flight read is not.
func (c *Connection) trackConn(nc net.Conn) {
	c.mu.Lock()
	c.conns = append(c.conns, nc)
	c.mu.Unlock()
}

// ID returns a monotonically increasing identifier, unique within the
// Pool that created the Connection, used by tests to assert pool
// membership.
func (c *Connection) ID() int64 { return c.id }

// Transport returns the http.RoundTripper to issue requests through.
func (c *Connection) Transport() http.RoundTripper { return c.transport }

// InUse reports whether conn is still checked out (i.e. has not yet been
// Released or Removed). A Cancel arriving after a clean Release has
// already flipped this to false must no-op rather than evict an idle
// connection.
func (c *Connection) InUse() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inUse && !c.closed
}

func (c *Connection) markInUse() {
	c.mu.Lock()
	c.inUse = true
	c.mu.Unlock()
}

// Config configures dialing behavior for every Connection the Pool hands
// out. Zero-value fields fall back to the same defaults
// newReverseProxy used.
type Config struct {
	MaxIdleConns        int
	MaxIdleConnsPerHost int
	DialTimeout         time.Duration
	IdleConnTimeout     time.Duration
	TLSHandshakeTimeout time.Duration
	RootCAs             *x509.CertPool

	// DialRateLimit caps new-connection attempts per second to a given
	// endpoint, bounding reconnect storms against a host that is down.
	// Zero disables the limiter.
	DialRateLimit rate.Limit
}

func (c Config) withDefaults() Config {
	if c.MaxIdleConns == 0 {
		c.MaxIdleConns = 100
	}
	if c.MaxIdleConnsPerHost == 0 {
		c.MaxIdleConnsPerHost = 10
	}
	if c.DialTimeout == 0 {
		c.DialTimeout = 30 * time.Second
	}
	if c.IdleConnTimeout == 0 {
		c.IdleConnTimeout = 90 * time.Second
	}
	if c.TLSHandshakeTimeout == 0 {
		c.TLSHandshakeTimeout = 10 * time.Second
	}
	return c
}

// Pool hands out and reclaims Connections keyed by endpoint. It keeps idle
// connections per key so repeated calls to the same host reuse a
// transport instead of paying TLS/TCP setup again.
type Pool struct {
	cfg Config

	mu    sync.Mutex
	idle  map[Key][]*Connection
	all   map[int64]*Connection
	limit map[Key]*rate.Limiter

	nextID int64
}

// New returns a Pool. A zero Config is valid and uses the same defaults as
// chproxy's newReverseProxy.
func New(cfg Config) *Pool {
	return &Pool{
		cfg:   cfg.withDefaults(),
		idle:  make(map[Key][]*Connection),
		all:   make(map[int64]*Connection),
		limit: make(map[Key]*rate.Limiter),
	}
}

// Acquire returns an idle Connection for key if one exists, otherwise
// builds a new one. The returned Connection is marked in-use; callers must
// call Release or Remove exactly once when done with it.
func (p *Pool) Acquire(ctx context.Context, key Key) (*Connection, error) {
	p.mu.Lock()
	if conns := p.idle[key]; len(conns) > 0 {
		conn := conns[len(conns)-1]
		p.idle[key] = conns[:len(conns)-1]
		p.mu.Unlock()
		conn.markInUse()
		log.Debugf("pool: reusing connection %d for %s:%d", conn.id, key.Host, key.Port)
		return conn, nil
	}
	limiter := p.limiterFor(key)
	p.mu.Unlock()

	if limiter != nil {
		if err := limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	conn := p.newConnection(key)
	p.mu.Lock()
	p.all[conn.id] = conn
	p.mu.Unlock()
	conn.markInUse()
	log.Debugf("pool: dialing new connection %d for %s:%d", conn.id, key.Host, key.Port)
	return conn, nil
}

func (p *Pool) limiterFor(key Key) *rate.Limiter {
	if p.cfg.DialRateLimit <= 0 {
		return nil
	}
	l, ok := p.limit[key]
	if !ok {
		l = rate.NewLimiter(p.cfg.DialRateLimit, 1)
		p.limit[key] = l
	}
	return l
}

func (p *Pool) newConnection(key Key) *Connection {
	id := atomic.AddInt64(&p.nextID, 1)
	dialAddr := net.JoinHostPort(key.Host, portString(key.Port))
	if key.ProxyHost != "" {
		dialAddr = net.JoinHostPort(key.ProxyHost, portString(key.ProxyPort))
	}

	conn := &Connection{id: id, key: key}
	transport := &http.Transport{
		DialContext: func(ctx context.Context, network, _ string) (net.Conn, error) {
			dialer := &net.Dialer{Timeout: p.cfg.DialTimeout, KeepAlive: 30 * time.Second}
			nc, err := dialer.DialContext(ctx, network, dialAddr)
			if err != nil {
				return nil, err
			}
			conn.trackConn(nc)
			return nc, nil
		},
		MaxIdleConns:          p.cfg.MaxIdleConns,
		MaxIdleConnsPerHost:   p.cfg.MaxIdleConnsPerHost,
		IdleConnTimeout:       p.cfg.IdleConnTimeout,
		TLSHandshakeTimeout:   p.cfg.TLSHandshakeTimeout,
		ExpectContinueTimeout: 1 * time.Second,
	}
	if key.Scheme == "https" && p.cfg.RootCAs != nil {
		transport.TLSClientConfig = &tls.Config{RootCAs: p.cfg.RootCAs}
	}

	conn.transport = transport
	return conn
}

// Release returns conn to the idle pool for its key, to be reused by a
// later Acquire. Used on the clean-completion path: the caller read the
// response body to EOF and closed it.
func (p *Pool) Release(conn *Connection) {
	conn.mu.Lock()
	conn.inUse = false
	closed := conn.closed
	conn.mu.Unlock()
	if closed {
		return
	}
	p.mu.Lock()
	p.idle[conn.key] = append(p.idle[conn.key], conn)
	p.mu.Unlock()
}

// Remove evicts conn from the pool permanently and closes its idle
// connections. Used on the cancel-before-EOF path: the response body was
// closed while bytes were still in flight, so the underlying connection
// cannot be safely reused.
func (p *Pool) Remove(conn *Connection) {
	conn.mu.Lock()
	if conn.closed {
		conn.mu.Unlock()
		return
	}
	conn.closed = true
	tracked := conn.conns
	conn.conns = nil
	conn.mu.Unlock()

	conn.transport.CloseIdleConnections()
	for _, nc := range tracked {
		nc.Close()
	}

	p.mu.Lock()
	delete(p.all, conn.id)
	p.mu.Unlock()
	log.Debugf("pool: removed connection %d", conn.id)
}

// TotalCount returns the number of Connections currently tracked by the
// pool, idle or in-use.
func (p *Pool) TotalCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.all)
}

// Contains reports whether conn is still tracked by the pool (i.e. has not
// been Removed).
func (p *Pool) Contains(conn *Connection) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.all[conn.id]
	return ok
}

func portString(port uint16) string {
	return strconv.Itoa(int(port))
}
