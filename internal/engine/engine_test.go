package engine

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/easyhttp-go/easyhttp/internal/cachestore"
	"github.com/easyhttp-go/easyhttp/internal/pool"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	dir := t.TempDir()
	store, err := cachestore.Open(filepath.Join(dir, "cache.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	cacheDir := filepath.Join(dir, "cache")
	tempDir := filepath.Join(dir, "temp")
	require.NoError(t, os.MkdirAll(cacheDir, 0700))
	require.NoError(t, os.MkdirAll(tempDir, 0700))

	return New(Config{
		Pool:      pool.New(pool.Config{}),
		Store:     store,
		CacheDir:  cacheDir,
		TempDir:   tempDir,
		GraceTime: time.Second,
	})
}

func requestFor(t *testing.T, srv *httptest.Server, method string) *Request {
	t.Helper()
	u, err := url.Parse(srv.URL)
	require.NoError(t, err)
	port, err := strconv.Atoi(u.Port())
	require.NoError(t, err)
	return &Request{
		Method:  method,
		URL:     srv.URL,
		Headers: http.Header{},
		Scheme:  u.Scheme,
		Host:    u.Hostname(),
		Port:    uint16(port),
	}
}

func TestExecuteCacheMissFetchesAndStores(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.Header().Set("Cache-Control", "max-age=60")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("payload"))
	}))
	defer srv.Close()

	e := newTestEngine(t)
	req := requestFor(t, srv, http.MethodGet)

	resp, err := e.Execute(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.Code)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, "payload", string(body))
	assert.EqualValues(t, 1, atomic.LoadInt32(&hits))

	assert.Eventually(t, func() bool {
		key := e.key(req)
		_, found, _ := e.cfg.Store.Get(key)
		return found
	}, time.Second, 10*time.Millisecond)
}

func TestExecuteServesFreshFromCacheWithoutNetworkHit(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.Header().Set("Cache-Control", "max-age=60")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("payload"))
	}))
	defer srv.Close()

	e := newTestEngine(t)
	req := requestFor(t, srv, http.MethodGet)

	resp, err := e.Execute(context.Background(), req)
	require.NoError(t, err)
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	key := e.key(req)
	require.Eventually(t, func() bool {
		_, found, _ := e.cfg.Store.Get(key)
		return found
	}, time.Second, 10*time.Millisecond)

	resp2, err := e.Execute(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp2.Code)
	body, _ := io.ReadAll(resp2.Body)
	resp2.Body.Close()
	assert.Equal(t, "payload", string(body))
	assert.EqualValues(t, 1, atomic.LoadInt32(&hits))
}

func TestExecuteRevalidatesStaleEntryAndPromotes304(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&hits, 1)
		w.Header().Set("ETag", `"v1"`)
		if n > 1 && r.Header.Get("If-None-Match") == `"v1"` {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("payload"))
	}))
	defer srv.Close()

	e := newTestEngine(t)
	req := requestFor(t, srv, http.MethodGet)

	resp, err := e.Execute(context.Background(), req)
	require.NoError(t, err)
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	key := e.key(req)
	require.Eventually(t, func() bool {
		_, found, _ := e.cfg.Store.Get(key)
		return found
	}, time.Second, 10*time.Millisecond)

	resp2, err := e.Execute(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotModified, resp2.Code)
	require.NotNil(t, resp2.CacheResponse)
	require.NotNil(t, resp2.NetworkResponse)
	assert.EqualValues(t, 2, atomic.LoadInt32(&hits))
}

func TestCancelRemovesConnectionFromPool(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("x"))
	}))
	defer srv.Close()

	e := newTestEngine(t)
	req := requestFor(t, srv, http.MethodGet)
	req.NoCache = true

	resp, err := e.Execute(context.Background(), req)
	require.NoError(t, err)
	conn := resp.Connection()
	require.NotNil(t, conn)
	assert.True(t, e.cfg.Pool.Contains(conn))

	e.Cancel(conn)
	assert.False(t, e.cfg.Pool.Contains(conn))
}
