// Package engine implements the HTTP engine: the component that turns one
// (possibly cache-eligible) request into a Response, consulting
// internal/cachestore and internal/coalesce before falling back to the
// network through an internal/pool Connection.
package engine

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/easyhttp-go/easyhttp/internal/cachestore"
	"github.com/easyhttp-go/easyhttp/internal/coalesce"
	"github.com/easyhttp-go/easyhttp/internal/pool"
	"github.com/easyhttp-go/easyhttp/log"
)

// varyHeaders lists the request headers folded into the cache key,
// generalized from ClickHouse query params to a
// fixed small set rather than ClickHouse's query-param set.
var varyHeaders = []string{"Accept-Encoding", "Accept", "Authorization"}

// Request and Response are minimal request/response value types the
// engine operates on, decoupled from the root package's builder-based
// Request/Response so internal/engine has no import cycle back to it.
// The root package's executor translates to/from these at the boundary.
type Request struct {
	Method  string
	URL     string
	Headers http.Header
	Body    io.ReadCloser
	NoCache bool
	NoStore bool

	Scheme string
	Host   string
	Port   uint16
	Proxy  *pool.Key
}

type Response struct {
	Code          int
	Message       string
	Headers       http.Header
	Body          io.ReadCloser
	ContentLength int64

	CacheResponse   *Response
	NetworkResponse *Response

	SentRequestEpochSec      int64
	ReceivedResponseEpochSec int64

	conn *pool.Connection
}

// Connection exposes the pool.Connection a Response was served over, so
// the caller can Remove it on cancel-before-EOF or leave it be on a clean
// read-to-EOF.
func (r *Response) Connection() *pool.Connection { return r.conn }

// Config bundles the engine's dependencies.
type Config struct {
	Pool       *pool.Pool
	Store      *cachestore.Store
	Registry   coalesce.Registry
	CacheDir   string
	TempDir    string
	GraceTime  time.Duration
	HTTPClientTimeout time.Duration
}

// Engine executes requests against the cache and, when needed, the
// network.
type Engine struct {
	cfg Config
}

func New(cfg Config) *Engine {
	return &Engine{cfg: cfg}
}

func (e *Engine) cacheable(req *Request) bool {
	return !req.NoCache && (req.Method == http.MethodGet || req.Method == http.MethodHead)
}

func (e *Engine) key(req *Request) cachestore.Key {
	return cachestore.NewKey(req.Method, req.URL, req.Headers, varyHeaders)
}

// Execute runs req to completion: cache lookup, conditional revalidation
// or full network fetch, in that order.
func (e *Engine) Execute(ctx context.Context, req *Request) (*Response, error) {
	if e.cfg.Store == nil || !e.cacheable(req) {
		return e.fetch(ctx, req, nil)
	}

	key := e.key(req)
	if e.cfg.Registry != nil {
		deadline := time.Now().Add(e.cfg.GraceTime)
		for !e.cfg.Registry.IsDone(key.String()) && time.Now().Before(deadline) {
			time.Sleep(10 * time.Millisecond)
		}
		_ = e.cfg.Registry.Register(key.String())
		defer e.cfg.Registry.Unregister(key.String())
	}

	rec, found, err := e.cfg.Store.Get(key)
	if err != nil {
		log.Debugf("engine: cache read error for %s, treating as miss: %v", key, err)
		found = false
	}

	if found && e.isFresh(rec) {
		resp, err := e.responseFromRecord(req, rec, nil)
		if err == nil {
			_ = e.cfg.Store.Touch(key, time.Now().Unix())
			cached := *resp
			resp.CacheResponse = &cached
			return resp, nil
		}
		log.Debugf("engine: %v, treating as miss", err)
		_ = e.cfg.Store.Delete(key)
		found = false
	}

	if found {
		return e.revalidate(ctx, req, key, rec)
	}

	return e.fetchAndStore(ctx, req, key, nil)
}

func (e *Engine) isFresh(rec cachestore.Record) bool {
	cc := parseCacheControl(rec.Headers)
	if cc.NoCache || cc.NoStore {
		return false
	}
	if !cc.HasMaxAge {
		return false
	}
	age := time.Now().Unix() - rec.ReceivedResponseAtEpoch
	return age < int64(cc.MaxAgeSec)
}

// revalidate builds a conditional request from rec's validators and issues
// it. A 304 is promoted into a synthesized Response carrying both
// CacheResponse and NetworkResponse; any other status is a normal network
// response whose body, on success, replaces the stale cache entry.
func (e *Engine) revalidate(ctx context.Context, req *Request, key cachestore.Key, rec cachestore.Record) (*Response, error) {
	condHeaders := req.Headers.Clone()
	if etag := rec.Headers.Get("ETag"); etag != "" {
		condHeaders.Set("If-None-Match", etag)
	}
	if lm := rec.Headers.Get("Last-Modified"); lm != "" {
		condHeaders.Set("If-Modified-Since", lm)
	}
	condReq := &Request{
		Method: req.Method, URL: req.URL, Headers: condHeaders,
		Body: req.Body, NoCache: req.NoCache, NoStore: req.NoStore,
		Scheme: req.Scheme, Host: req.Host, Port: req.Port, Proxy: req.Proxy,
	}

	netResp, err := e.fetch(ctx, condReq, nil)
	if err != nil {
		return nil, err
	}

	if netResp.Code == http.StatusNotModified {
		_ = e.cfg.Store.Touch(key, time.Now().Unix())
		cacheResp, err := e.responseFromRecord(req, rec, nil)
		if err != nil {
			log.Debugf("engine: %v after 304, refetching", err)
			DrainBodyForCache(netResp)
			_ = e.cfg.Store.Delete(key)
			return e.fetchAndStore(ctx, req, key, nil)
		}
		promoted := *cacheResp
		promoted.CacheResponse = cacheResp
		promoted.NetworkResponse = netResp
		promoted.Code = netResp.Code
		promoted.Message = netResp.Message
		promoted.SentRequestEpochSec = netResp.SentRequestEpochSec
		promoted.ReceivedResponseEpochSec = netResp.ReceivedResponseEpochSec
		promoted.conn = netResp.conn
		return &promoted, nil
	}

	return e.storeAndReturn(req, key, netResp)
}

func (e *Engine) fetchAndStore(ctx context.Context, req *Request, key cachestore.Key, prior *Response) (*Response, error) {
	resp, err := e.fetch(ctx, req, prior)
	if err != nil {
		return nil, err
	}
	return e.storeAndReturn(req, key, resp)
}

// storeAndReturn streams resp's body through a PayloadWriter while handing
// the caller a tee'd reader, so the cache commit and the caller's read
// happen off the same bytes without the caller waiting on disk I/O.
func (e *Engine) storeAndReturn(req *Request, key cachestore.Key, resp *Response) (*Response, error) {
	if req.NoStore || resp.Code != http.StatusOK || e.cfg.Store == nil {
		return resp, nil
	}
	cc := parseCacheControl(resp.Headers)
	if cc.NoStore {
		return resp, nil
	}

	pw, err := cachestore.NewPayloadWriter(e.cfg.TempDir, e.cfg.CacheDir, key)
	if err != nil {
		log.Debugf("engine: cannot open payload writer, serving uncached: %v", err)
		return resp, nil
	}

	pr, pwriter := io.Pipe()
	teeReader := io.TeeReader(resp.Body, pwriter)
	origBody := resp.Body
	resp.Body = &teeBody{Reader: teeReader, closer: origBody, pipe: pwriter}

	go func() {
		defer pwriter.Close()
		n, copyErr := io.Copy(pw, pr)
		if copyErr != nil {
			pw.Rollback()
			_, _ = io.Copy(io.Discard, pr)
			return
		}
		size, err := pw.Commit()
		if err != nil {
			log.Debugf("engine: cache commit failed for %s: %v", key, err)
			return
		}
		rec := cachestore.Record{
			Key:                      key,
			StatusCode:               resp.Code,
			StatusMessage:            resp.Message,
			Headers:                  resp.Headers,
			PayloadSize:              size,
			SentRequestAtEpoch:       resp.SentRequestEpochSec,
			ReceivedResponseAtEpoch:  resp.ReceivedResponseEpochSec,
			LastAccessedAtEpoch:      resp.ReceivedResponseEpochSec,
		}
		if err := e.cfg.Store.Put(rec); err != nil {
			log.Debugf("engine: cache metadata write failed for %s: %v", key, err)
		}
		_ = n
	}()

	return resp, nil
}

// teeBody is the caller-facing body of a response being cached. Reading to
// EOF closes pipe so the cache writer commits; a read error or a Close
// before EOF closes pipe with an error so the cache writer rolls back.
type teeBody struct {
	io.Reader
	closer io.Closer
	pipe   *io.PipeWriter
}

func (t *teeBody) Read(p []byte) (int, error) {
	n, err := t.Reader.Read(p)
	if err == io.EOF {
		t.pipe.Close()
	} else if err != nil {
		t.pipe.CloseWithError(err)
	}
	return n, err
}

func (t *teeBody) Close() error {
	t.pipe.CloseWithError(io.ErrUnexpectedEOF)
	return t.closer.Close()
}

func (e *Engine) responseFromRecord(req *Request, rec cachestore.Record, conn *pool.Connection) (*Response, error) {
	path := cachestore.PayloadPath(e.cfg.CacheDir, rec.Key)
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("engine: cache payload missing for %s: %w", rec.Key, err)
	}
	return &Response{
		Code: rec.StatusCode, Message: rec.StatusMessage, Headers: rec.Headers.Clone(),
		Body: f, ContentLength: rec.PayloadSize,
		SentRequestEpochSec: rec.SentRequestAtEpoch, ReceivedResponseEpochSec: rec.ReceivedResponseAtEpoch,
		conn: conn,
	}, nil
}

// fetch dials/acquires a pooled Connection and issues req over it. prior
// is attached nowhere here — retry chaining is the executor's
// responsibility (it builds PriorResponse at the root-package level).
func (e *Engine) fetch(ctx context.Context, req *Request, _ *Response) (*Response, error) {
	key := pool.Key{Scheme: req.Scheme, Host: req.Host, Port: req.Port}
	if req.Proxy != nil {
		key.ProxyHost = req.Proxy.Host
		key.ProxyPort = req.Proxy.Port
	}

	conn, err := e.cfg.Pool.Acquire(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("engine: cannot acquire connection: %w", err)
	}

	sentAt := time.Now()
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, req.Body)
	if err != nil {
		e.cfg.Pool.Release(conn)
		return nil, fmt.Errorf("engine: invalid request: %w", err)
	}
	httpReq.Header = req.Headers.Clone()

	httpResp, err := conn.Transport().RoundTrip(httpReq)
	if err != nil {
		e.cfg.Pool.Remove(conn)
		return nil, err
	}
	receivedAt := time.Now()

	contentLength := httpResp.ContentLength
	if contentLength < 0 {
		if cl := httpResp.Header.Get("Content-Length"); cl != "" {
			if n, perr := strconv.ParseInt(cl, 10, 64); perr == nil {
				contentLength = n
			}
		}
	}

	return &Response{
		Code: httpResp.StatusCode, Message: httpResp.Status, Headers: httpResp.Header,
		Body: &poolAwareBody{ReadCloser: httpResp.Body, pool: e.cfg.Pool, conn: conn},
		ContentLength: contentLength,
		SentRequestEpochSec: sentAt.Unix(), ReceivedResponseEpochSec: receivedAt.Unix(),
		conn: conn,
	}, nil
}

// poolAwareBody implements the cancel-vs-release distinction at the
// single point both paths flow through: Close. A read to EOF followed by
// Close releases the connection for reuse; a Close before EOF removes it,
// since an HTTP/1.1 connection closed mid-response cannot be safely
// pipelined onto.
type poolAwareBody struct {
	io.ReadCloser
	pool *pool.Pool
	conn *pool.Connection

	mu     sync.Mutex
	atEOF  bool
	closed bool
}

func (b *poolAwareBody) Read(p []byte) (int, error) {
	n, err := b.ReadCloser.Read(p)
	if err == io.EOF {
		b.mu.Lock()
		b.atEOF = true
		b.mu.Unlock()
	}
	return n, err
}

func (b *poolAwareBody) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	atEOF := b.atEOF
	b.mu.Unlock()

	err := b.ReadCloser.Close()
	if atEOF {
		b.pool.Release(b.conn)
	} else {
		b.pool.Remove(b.conn)
	}
	return err
}

// DrainBodyForCache fully reads and discards resp's body, so a
// retry-superseded response's in-flight cache write (if any) completes
// instead of being abandoned mid-stream.
func DrainBodyForCache(resp *Response) {
	if resp == nil || resp.Body == nil {
		return
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
}

// Cancel unblocks any in-flight read on conn by closing its underlying
// connection (removing it from the pool), matching the engine-level
// cancellation hook executor.go's Cancel calls into.
func (e *Engine) Cancel(conn *pool.Connection) {
	if conn == nil {
		return
	}
	e.cfg.Pool.Remove(conn)
}
