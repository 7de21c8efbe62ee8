package easyhttp

import "net/http"

// Authenticator supplies credentials for a 401 challenge. WithAuthenticator
// on Builder wires one in; without one, 401 responses are never retried.
type Authenticator interface {
	// Authenticate returns a request to retry with credentials applied, or
	// nil to give up and surface the 401 as-is.
	Authenticate(resp *Response) *Request
}

var redirectCodes = map[int]bool{
	http.StatusMovedPermanently:  true,
	http.StatusFound:             true,
	http.StatusSeeOther:          true,
	http.StatusTemporaryRedirect: true,
	http.StatusPermanentRedirect: true,
}

// retryRequest maps resp to an optional follow-up Request, mirroring the
// engine-internal retry drivers this module follows: redirect
// following and (when an Authenticator is configured) an authentication
// challenge. Forced cache-revalidation misses (a 304 whose cached payload
// has vanished) are handled inside internal/engine's revalidation step,
// which refetches the original request without validators, rather than
// here.
func (e *executor) retryRequestFor(req *Request, resp *Response) *Request {
	if redirectCodes[resp.Code] {
		loc := resp.Header("Location")
		if loc == "" {
			return nil
		}
		nextURL, err := req.url.Parse(loc)
		if err != nil {
			return nil
		}
		b := NewRequestBuilder().From(req)
		b.URL(nextURL)
		if resp.Code == http.StatusSeeOther && req.method != http.MethodGet && req.method != http.MethodHead {
			b.Method(http.MethodGet).Body(nil)
		}
		next, err := b.Build()
		if err != nil {
			return nil
		}
		return next
	}

	if resp.Code == http.StatusUnauthorized && e.client.authenticator != nil && resp.Header("WWW-Authenticate") != "" {
		return e.client.authenticator.Authenticate(resp)
	}

	return nil
}
