package easyhttp

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestBuilderBuildRequiresURL(t *testing.T) {
	_, err := NewRequestBuilder().Build()
	require.Error(t, err)
	assert.True(t, IsKind(err, KindIllegalArgument))
}

func TestRequestBuilderDefaultsToGet(t *testing.T) {
	req, err := NewRequestBuilder().URL(mustParseURL(t, "http://example.com/")).Build()
	require.NoError(t, err)
	assert.Equal(t, "GET", req.Method())
}

func TestRequestBuilderFrom(t *testing.T) {
	orig, err := NewRequestBuilder().
		URL(mustParseURL(t, "http://example.com/a?x=1")).
		Header("X-Test", "1").
		NoCache(true).
		Build()
	require.NoError(t, err)

	clone, err := NewRequestBuilder().From(orig).Header("X-Test", "2").Build()
	require.NoError(t, err)

	assert.Equal(t, "1", orig.Header("X-Test"))
	assert.Equal(t, "2", clone.Header("X-Test"))
	assert.True(t, clone.NoCache())

	orig.URL().RawQuery = "mutated=1"
	assert.NotEqual(t, orig.URL().RawQuery, clone.URL().RawQuery)
}

func mustParseURL(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	return u
}
