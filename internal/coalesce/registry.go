// Package coalesce implements concurrent-request coalescing (dogpile
// protection): while one caller is fetching a cache-key from the network,
// a second caller for the same key waits up to a grace period instead of
// starting a duplicate fetch, directly grounded on chproxy's
// cache.AsyncCache / TransactionRegistry machinery.
package coalesce

import "io"

// Registry tracks in-flight fetches by cache key string, mirroring
// cache.TransactionRegistry.
type Registry interface {
	io.Closer

	// Register records that key's network fetch is now in flight. A
	// second Register call for the same key before Unregister is a
	// no-op, matching an idempotent Register.
	Register(key string) error
	// Unregister marks key's fetch complete, whether it succeeded or
	// failed.
	Unregister(key string) error
	// IsDone reports whether key has no in-flight fetch.
	IsDone(key string) bool
}
