package easyhttp

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustRequest(t *testing.T) *Request {
	t.Helper()
	req, err := NewRequestBuilder().URL(mustParseURL(t, "http://example.com/")).Build()
	require.NoError(t, err)
	return req
}

func TestResponseBuilderRequiresRequest(t *testing.T) {
	_, err := NewResponseBuilder().Code(200).Build()
	require.Error(t, err)
	assert.True(t, IsKind(err, KindIllegalArgument))
}

func TestResponseIsSuccessful(t *testing.T) {
	resp, err := NewResponseBuilder().Request(mustRequest(t)).Code(204).Build()
	require.NoError(t, err)
	assert.True(t, resp.IsSuccessful())

	resp, err = NewResponseBuilder().Request(mustRequest(t)).Code(404).Build()
	require.NoError(t, err)
	assert.False(t, resp.IsSuccessful())
}

func TestResponseCacheControlParsing(t *testing.T) {
	h := make(http.Header)
	h.Set("Cache-Control", "max-age=60, no-cache")
	resp, err := NewResponseBuilder().Request(mustRequest(t)).Headers(h).Build()
	require.NoError(t, err)

	cc := resp.CacheControl()
	assert.True(t, cc.HasMaxAge)
	assert.Equal(t, 60, cc.MaxAgeSec)
	assert.True(t, cc.NoCache)
}

func TestResponseIsFromCache(t *testing.T) {
	req := mustRequest(t)
	cached, err := NewResponseBuilder().Request(req).Code(200).Build()
	require.NoError(t, err)

	fromCache, err := NewResponseBuilder().Request(req).Code(200).CacheResponse(cached).Build()
	require.NoError(t, err)
	assert.True(t, fromCache.IsFromCache())

	network, err := NewResponseBuilder().Request(req).Code(304).Build()
	require.NoError(t, err)
	promoted, err := NewResponseBuilder().Request(req).Code(200).
		CacheResponse(cached).NetworkResponse(network).Build()
	require.NoError(t, err)
	assert.False(t, promoted.IsFromCache())
}
