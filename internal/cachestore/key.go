// Package cachestore implements the persistent cache-metadata store: a
// CacheRecord keyed by a deterministic fingerprint of method, URL and a
// fixed set of varying request headers, backed by go.etcd.io/bbolt for its
// single-writer transactional semantics.
package cachestore

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
)

// schemaVersion is bumped on any backwards-incompatible change to the
// CacheRecord encoding, mirroring cacheVersion in chproxy's filesystem
// cache.
const schemaVersion = 1

// Key is the deterministic fingerprint identifying one cached entry,
// grounded on a similar Key type (method + URL + a fixed set of
// varying headers, hashed, rather than ClickHouse query params).
type Key struct {
	Method  string
	URL     string
	Varying string
}

// NewKey builds a Key from the method, absolute URL string and the
// relevant request headers, projecting only the headers named in
// varyNames (headers *outside* that list are not part of the identity of
// a cached response).
func NewKey(method, url string, headers http.Header, varyNames []string) Key {
	varying := ""
	for _, name := range varyNames {
		varying += name + "=" + headers.Get(name) + ";"
	}
	return Key{Method: method, URL: url, Varying: varying}
}

// String returns the hex-encoded first 16 bytes of the SHA-256 fingerprint,
// used as the bbolt key and as the on-disk payload file name.
func (k Key) String() string {
	s := fmt.Sprintf("V%d;M=%q;U=%q;Vary=%q", schemaVersion, k.Method, k.URL, k.Varying)
	h := sha256.Sum256([]byte(s))
	return hex.EncodeToString(h[:16])
}
