package cachestore

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeyStringIsDeterministic(t *testing.T) {
	k1 := NewKey(http.MethodGet, "http://example.com/a", http.Header{"Accept-Encoding": {"gzip"}}, []string{"Accept-Encoding"})
	k2 := NewKey(http.MethodGet, "http://example.com/a", http.Header{"Accept-Encoding": {"gzip"}}, []string{"Accept-Encoding"})
	assert.Equal(t, k1.String(), k2.String())
}

func TestKeyStringDiffersOnVaryingHeader(t *testing.T) {
	k1 := NewKey(http.MethodGet, "http://example.com/a", http.Header{"Accept-Encoding": {"gzip"}}, []string{"Accept-Encoding"})
	k2 := NewKey(http.MethodGet, "http://example.com/a", http.Header{"Accept-Encoding": {"identity"}}, []string{"Accept-Encoding"})
	assert.NotEqual(t, k1.String(), k2.String())
}

func TestKeyStringDiffersOnURL(t *testing.T) {
	k1 := NewKey(http.MethodGet, "http://example.com/a", nil, nil)
	k2 := NewKey(http.MethodGet, "http://example.com/b", nil, nil)
	assert.NotEqual(t, k1.String(), k2.String())
}
