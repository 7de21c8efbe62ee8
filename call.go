package easyhttp

import (
	"context"
	"sync"
)

// Call represents one request's execution, exactly once. A Call is
// obtained from EasyHttp.NewCall and must not be executed more than once,
// synchronously or asynchronously.
type Call interface {
	Execute() (*Response, error)
	ExecuteAsync(cb ResponseCallback) error
	Cancel() bool
	IsCancelled() bool
	Request() *Request
}

// call is the concrete Call. Its {executed, cancelled, executor} triple is
// guarded by mu exactly as CallInternal guards the same fields with a
// Poco::FastMutex.
type call struct {
	client *EasyHttp
	req    *Request

	mu       sync.Mutex
	executed bool
	cancelled bool
	exec     *executor
}

func newCall(client *EasyHttp, req *Request) *call {
	return &call{client: client, req: req}
}

func (c *call) Request() *Request { return c.req }

// Execute runs req synchronously. Calling Execute (or ExecuteAsync) a
// second time on the same Call returns an IllegalState error.
func (c *call) Execute() (*Response, error) {
	exec, err := c.start()
	if err != nil {
		return nil, err
	}
	return exec.execute(context.Background())
}

// ExecuteAsync submits req to the client's async executor service and
// returns immediately; cb is invoked exactly once, with either OnResponse
// or OnFailure. It runs on a worker goroutine, except when the client has
// been closed: then OnFailure is called with an IllegalState error before
// ExecuteAsync returns.
func (c *call) ExecuteAsync(cb ResponseCallback) error {
	if cb == nil {
		return IllegalArgumentError("callback must not be nil")
	}
	exec, err := c.start()
	if err != nil {
		return err
	}
	c.client.asyncExecutor.submit(asyncExecutionTask{
		call:     c,
		exec:     exec,
		callback: cb,
	})
	return nil
}

func (c *call) start() (*executor, error) {
	c.mu.Lock()
	if c.executed {
		c.mu.Unlock()
		return nil, IllegalStateError("call has already been executed")
	}
	c.executed = true
	c.exec = newExecutor(c.client, c.req)
	exec := c.exec
	alreadyCancelled := c.cancelled
	c.mu.Unlock()

	if alreadyCancelled {
		exec.cancel()
	}
	return exec, nil
}

// Cancel requests that the in-flight (or not-yet-started) execution stop.
// Returns false if the Call was already cancelled; true otherwise,
// including when Cancel races ahead of ExecuteAsync actually starting
// (the pending asyncExecutionTask checks IsCancelled before running).
func (c *call) Cancel() bool {
	c.mu.Lock()
	if c.cancelled {
		c.mu.Unlock()
		return false
	}
	c.cancelled = true
	exec := c.exec
	c.mu.Unlock()

	if exec != nil {
		exec.cancel()
	}
	return true
}

func (c *call) IsCancelled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cancelled
}
