package easyhttp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/easyhttp-go/easyhttp/internal/pool"
)

func TestRunChainEmptyGoesStraightToTerminal(t *testing.T) {
	req := mustRequest(t)
	called := false
	resp, err := runChain(req, nil, nil, func(r *Request, _ *pool.Connection) (*Response, error) {
		called = true
		return NewResponseBuilder().Request(r).Code(200).Build()
	})
	require.NoError(t, err)
	assert.True(t, called)
	assert.Equal(t, 200, resp.Code())
}

func TestRunChainInterceptorsRunInOrder(t *testing.T) {
	req := mustRequest(t)
	var order []int

	mk := func(n int) Interceptor {
		return func(chain Chain) (*Response, error) {
			order = append(order, n)
			return chain.Proceed(chain.Request())
		}
	}

	_, err := runChain(req, nil, []Interceptor{mk(1), mk(2), mk(3)}, func(r *Request, _ *pool.Connection) (*Response, error) {
		order = append(order, 99)
		return NewResponseBuilder().Request(r).Code(200).Build()
	})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3, 99}, order)
}

func TestRunChainInterceptorCanShortCircuit(t *testing.T) {
	req := mustRequest(t)
	terminalCalled := false

	shortCircuit := Interceptor(func(chain Chain) (*Response, error) {
		return NewResponseBuilder().Request(chain.Request()).Code(599).Build()
	})

	resp, err := runChain(req, nil, []Interceptor{shortCircuit}, func(r *Request, _ *pool.Connection) (*Response, error) {
		terminalCalled = true
		return NewResponseBuilder().Request(r).Code(200).Build()
	})
	require.NoError(t, err)
	assert.False(t, terminalCalled)
	assert.Equal(t, 599, resp.Code())
}

func TestRunChainInterceptorCanRewriteRequest(t *testing.T) {
	req, err := NewRequestBuilder().URL(mustParseURL(t, "http://example.com/")).Header("X-Original", "1").Build()
	require.NoError(t, err)

	rewrite := Interceptor(func(chain Chain) (*Response, error) {
		next, err := NewRequestBuilder().From(chain.Request()).Header("X-Rewritten", "1").Build()
		if err != nil {
			return nil, err
		}
		return chain.Proceed(next)
	})

	var seenHeader string
	_, err = runChain(req, nil, []Interceptor{rewrite}, func(r *Request, _ *pool.Connection) (*Response, error) {
		seenHeader = r.Header("X-Rewritten")
		return NewResponseBuilder().Request(r).Code(200).Build()
	})
	require.NoError(t, err)
	assert.Equal(t, "1", seenHeader)
}
