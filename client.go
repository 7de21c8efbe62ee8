package easyhttp

import (
	"crypto/x509"
	"os"
	"path/filepath"
	"time"

	"github.com/easyhttp-go/easyhttp/internal/cachestore"
	"github.com/easyhttp-go/easyhttp/internal/coalesce"
	"github.com/easyhttp-go/easyhttp/internal/engine"
	"github.com/easyhttp-go/easyhttp/internal/pool"
)

// EasyHttp is the entry point: it holds the shared pool, cache store and
// interceptor chain every Call it creates runs through. Build one with
// NewBuilder and reuse it across many Calls; it is safe for concurrent
// use.
type EasyHttp struct {
	pool          *pool.Pool
	engine        *engine.Engine
	store         *cachestore.Store
	registry      coalesce.Registry
	evictor       *cachestore.Evictor
	interceptors  []Interceptor
	proxy         *Proxy
	authenticator Authenticator
	asyncExecutor *executorService
}

// NewCall creates a new, not-yet-started Call for req.
func (c *EasyHttp) NewCall(req *Request) Call {
	return newCall(c, req)
}

// Close stops the async executor service and closes the cache store and
// coalescing registry, if configured. Safe to call once, after no more
// Calls will be created.
func (c *EasyHttp) Close() error {
	c.asyncExecutor.stop()
	if c.evictor != nil {
		_ = c.evictor.Close()
	}
	if c.registry != nil {
		_ = c.registry.Close()
	}
	if c.store != nil {
		return c.store.Close()
	}
	return nil
}

// Builder configures and builds an EasyHttp client.
type Builder struct {
	cacheDir    string
	cacheMaxSize int64
	cacheExpire time.Duration

	poolCfg pool.Config
	pool    *pool.Pool

	interceptors []Interceptor

	proxy         *Proxy
	authenticator Authenticator

	connectTimeout time.Duration
	readTimeout    time.Duration
	writeTimeout   time.Duration

	rootCAs *x509.CertPool

	graceTime time.Duration
	registry  coalesce.Registry
}

func NewBuilder() *Builder {
	return &Builder{graceTime: 2 * time.Second}
}

// WithCache enables the persistent cache-metadata store at dir. A
// background sweep evicts least-recently-accessed entries down to maxSize
// bytes of payload and deletes entries not accessed within expire; a zero
// maxSize or expire disables that limit.
func (b *Builder) WithCache(dir string, maxSize int64, expire time.Duration) *Builder {
	b.cacheDir = dir
	b.cacheMaxSize = maxSize
	b.cacheExpire = expire
	return b
}

// WithConnectionPool replaces the default connection pool with p.
func (b *Builder) WithConnectionPool(p *pool.Pool) *Builder {
	b.pool = p
	return b
}

// AddInterceptor appends i to the interceptor chain, in registration
// order.
func (b *Builder) AddInterceptor(i Interceptor) *Builder {
	b.interceptors = append(b.interceptors, i)
	return b
}

func (b *Builder) WithProxy(p *Proxy) *Builder {
	b.proxy = p
	return b
}

// WithAuthenticator wires in a 401-challenge retry driver.
func (b *Builder) WithAuthenticator(a Authenticator) *Builder {
	b.authenticator = a
	return b
}

func (b *Builder) WithTimeouts(connect, read, write time.Duration) *Builder {
	b.connectTimeout = connect
	b.readTimeout = read
	b.writeTimeout = write
	return b
}

func (b *Builder) WithRootCAs(pool *x509.CertPool) *Builder {
	b.rootCAs = pool
	return b
}

// WithCoalescing wires a concurrent-request coalescing Registry; without
// one, Build uses an in-memory Registry whenever caching is enabled.
func (b *Builder) WithCoalescing(r coalesce.Registry) *Builder {
	b.registry = r
	return b
}

// Build constructs an EasyHttp. Caching is disabled unless WithCache was
// called; an Execution error is returned if the cache directories or
// cache-metadata store cannot be created/opened.
func (b *Builder) Build() (*EasyHttp, error) {
	p := b.pool
	if p == nil {
		cfg := b.poolCfg
		cfg.DialTimeout = b.connectTimeout
		cfg.RootCAs = b.rootCAs
		p = pool.New(cfg)
	}

	var store *cachestore.Store
	cacheDir := filepath.Join(b.cacheDir, "cache")
	tempDir := filepath.Join(b.cacheDir, "temp")
	if b.cacheDir != "" {
		if err := os.MkdirAll(cacheDir, 0700); err != nil {
			return nil, ExecutionErrorf(err, "cannot create cache directory")
		}
		if err := os.MkdirAll(tempDir, 0700); err != nil {
			return nil, ExecutionErrorf(err, "cannot create cache temp directory")
		}
		s, err := cachestore.Open(filepath.Join(b.cacheDir, "cache_metadata.db"))
		if err != nil {
			return nil, ExecutionErrorf(err, "cannot open cache store")
		}
		store = s
	}

	registry := b.registry
	if store != nil && registry == nil {
		registry = coalesce.NewInMemory(b.graceTime)
	}

	var evictor *cachestore.Evictor
	if store != nil && (b.cacheMaxSize > 0 || b.cacheExpire > 0) {
		evictor = cachestore.NewEvictor(store, cacheDir, b.cacheMaxSize, b.cacheExpire)
	}

	eng := engine.New(engine.Config{
		Pool:      p,
		Store:     store,
		Registry:  registry,
		CacheDir:  cacheDir,
		TempDir:   tempDir,
		GraceTime: b.graceTime,
	})

	return &EasyHttp{
		pool:          p,
		engine:        eng,
		store:         store,
		registry:      registry,
		evictor:       evictor,
		interceptors:  b.interceptors,
		proxy:         b.proxy,
		authenticator: b.authenticator,
		asyncExecutor: newExecutorService(),
	}, nil
}
