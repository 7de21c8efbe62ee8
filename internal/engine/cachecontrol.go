package engine

import (
	"net/http"
	"strconv"
	"strings"
)

// cacheControl is the engine-local subset of Cache-Control directives
// consulted for freshness decisions. It duplicates the root package's
// CacheControl type rather than importing it, since internal/engine must
// not depend on the root package (the root package depends on
// internal/engine, not the reverse).
type cacheControl struct {
	NoCache   bool
	NoStore   bool
	MaxAgeSec int
	HasMaxAge bool
}

func parseCacheControl(h http.Header) cacheControl {
	var cc cacheControl
	for _, part := range strings.Split(h.Get("Cache-Control"), ",") {
		part = strings.TrimSpace(part)
		lower := strings.ToLower(part)
		switch {
		case lower == "no-cache":
			cc.NoCache = true
		case lower == "no-store":
			cc.NoStore = true
		case strings.HasPrefix(lower, "max-age="):
			if v, err := strconv.Atoi(strings.TrimPrefix(lower, "max-age=")); err == nil {
				cc.MaxAgeSec = v
				cc.HasMaxAge = true
			}
		}
	}
	return cc
}
