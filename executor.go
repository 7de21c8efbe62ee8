package easyhttp

import (
	"context"
	"io"
	"sync"

	"github.com/easyhttp-go/easyhttp/internal/engine"
	"github.com/easyhttp-go/easyhttp/internal/pool"
)

// maxRetryCount bounds the engine-internal retry loop: six total
// attempts (retryCount 0 through 5); the check made before a seventh
// attempt raises Execution("too many retry request. 5 times."), per the
// resolved retry-count Open Question.
const maxRetryCount = 5

// executor drives one Call's interceptor chain and retry loop. Its
// {cancelled, conn, body} fields are guarded by mu exactly as
// HttpRequestExecutor guards its engine reference with a FastMutex, so a
// concurrent Cancel can always reach whatever is currently in flight.
type executor struct {
	client *EasyHttp
	req    *Request

	mu        sync.Mutex
	cancelled bool
	conn      *pool.Connection
	body      io.ReadCloser
}

func newExecutor(client *EasyHttp, req *Request) *executor {
	return &executor{client: client, req: req}
}

// execute runs the interceptor chain followed by the retry-bounded engine
// loop. Returns an Execution error once retryCount exceeds
// maxRetryCount.
func (e *executor) execute(ctx context.Context) (*Response, error) {
	return runChain(e.req, nil, e.client.interceptors, func(req *Request, _ *pool.Connection) (*Response, error) {
		return e.executeWithRetry(ctx, req, 0, nil)
	})
}

func (e *executor) executeWithRetry(ctx context.Context, req *Request, retryCount int, prior *Response) (*Response, error) {
	if e.isCancelled() {
		return nil, ExecutionError("cancelled")
	}
	if retryCount > maxRetryCount {
		return nil, ExecutionError("too many retry request. 5 times.")
	}

	engReq := toEngineRequest(req, e.client.proxy)
	engResp, err := e.client.engine.Execute(ctx, engReq)
	if err != nil {
		return nil, classifyError(err)
	}

	e.mu.Lock()
	e.conn = engResp.Connection()
	e.body = engResp.Body
	cancelled := e.cancelled
	e.mu.Unlock()
	if cancelled {
		engine.DrainBodyForCache(engResp)
		return nil, ExecutionError("cancelled")
	}

	resp := fromEngineResponse(req, engResp, prior)
	e.recordCacheMetric(req, resp)

	if next := e.retryRequestFor(req, resp); next != nil {
		retries.WithLabelValues(req.url.Host).Inc()
		engine.DrainBodyForCache(engResp)
		return e.executeWithRetry(ctx, next, retryCount+1, resp)
	}

	return resp, nil
}

func (e *executor) recordCacheMetric(req *Request, resp *Response) {
	host := req.url.Host
	if resp.IsFromCache() {
		cacheHits.WithLabelValues(host).Inc()
	} else {
		cacheMisses.WithLabelValues(host).Inc()
	}
	poolSize.WithLabelValues(host).Set(float64(e.client.pool.TotalCount()))
}

func (e *executor) isCancelled() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cancelled
}

// cancel snapshots the live connection under mu, then acts on it outside
// the lock, mirroring HttpRequestExecutor::cancel's split between
// "record cancellation" and "tear down the in-flight engine work". e.conn
// is never cleared once a response is produced, so a cancel arriving
// after the body was already read to EOF and released back to the pool
// (poolAwareBody.Close) must check InUse before evicting anything —
// otherwise it would force-remove a connection some other Call may
// already be reusing. The published response body, if any, is closed as
// well, so an unfinished cache write is rolled back rather than committed.
func (e *executor) cancel() {
	e.mu.Lock()
	e.cancelled = true
	conn := e.conn
	body := e.body
	e.mu.Unlock()

	if conn != nil && conn.InUse() {
		e.client.engine.Cancel(conn)
	}
	if body != nil {
		_ = body.Close()
	}
}
