package easyhttp

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T) *EasyHttp {
	t.Helper()
	client, err := NewBuilder().Build()
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })
	return client
}

func TestCallExecuteTwiceFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(200)
	}))
	defer srv.Close()

	client := newTestClient(t)
	req, err := NewRequestBuilder().URLString(srv.URL)
	require.NoError(t, err)
	builtReq, err := req.Build()
	require.NoError(t, err)

	c := client.NewCall(builtReq)
	resp, err := c.Execute()
	require.NoError(t, err)
	resp.Body().Close()

	_, err = c.Execute()
	require.Error(t, err)
	assert.True(t, IsKind(err, KindIllegalState))
}

func TestCallCancelBeforeExecuteAsyncPreventsOnResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(200)
	}))
	defer srv.Close()

	client := newTestClient(t)
	req, err := NewRequestBuilder().URLString(srv.URL)
	require.NoError(t, err)
	builtReq, err := req.Build()
	require.NoError(t, err)

	c := client.NewCall(builtReq)
	assert.True(t, c.Cancel())
	assert.True(t, c.IsCancelled())

	done := make(chan struct{})
	var gotFailure error
	var gotResponse *Response
	err = c.ExecuteAsync(ResponseCallbackFunc{
		OnResponseFunc: func(resp *Response) { gotResponse = resp; close(done) },
		OnFailureFunc:  func(e error) { gotFailure = e; close(done) },
	})
	require.NoError(t, err)

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("callback never invoked")
	}

	assert.Nil(t, gotResponse)
	require.Error(t, gotFailure)
	assert.True(t, IsKind(gotFailure, KindExecution))
}

func TestCallCancelTwiceReturnsFalseSecondTime(t *testing.T) {
	client := newTestClient(t)
	req, err := NewRequestBuilder().URLString("http://example.com/")
	require.NoError(t, err)
	builtReq, err := req.Build()
	require.NoError(t, err)

	c := client.NewCall(builtReq)
	assert.True(t, c.Cancel())
	assert.False(t, c.Cancel())
}
