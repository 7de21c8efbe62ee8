package easyhttp

import (
	"io"
	"net/http"
	"strconv"
	"strings"
)

// CacheControl captures the subset of Cache-Control directives the engine
// consults when deciding freshness and storability. It is parsed once per
// Response from the Cache-Control header and carried alongside it.
type CacheControl struct {
	NoCache     bool
	NoStore     bool
	MaxAgeSec   int
	HasMaxAge   bool
	Immutable   bool
}

func parseCacheControl(h http.Header) CacheControl {
	var cc CacheControl
	for _, part := range strings.Split(h.Get("Cache-Control"), ",") {
		part = strings.TrimSpace(part)
		lower := strings.ToLower(part)
		switch {
		case lower == "no-cache":
			cc.NoCache = true
		case lower == "no-store":
			cc.NoStore = true
		case lower == "immutable":
			cc.Immutable = true
		case strings.HasPrefix(lower, "max-age="):
			v, err := strconv.Atoi(strings.TrimPrefix(lower, "max-age="))
			if err == nil {
				cc.MaxAgeSec = v
				cc.HasMaxAge = true
			}
		}
	}
	return cc
}

// Response is immutable once built and safe to share across goroutines; its
// Body, if present, is a one-shot stream that the caller must read to EOF
// and Close (see Call.Cancel for why early-close matters).
type Response struct {
	request *Request

	code    int
	message string
	headers http.Header
	body    io.ReadCloser

	hasContentLength bool
	contentLength    int64

	cacheControl CacheControl

	priorResponse   *Response
	cacheResponse   *Response
	networkResponse *Response

	sentRequestEpochSec     int64
	receivedResponseEpochSec int64
}

func (r *Response) Request() *Request           { return r.request }
func (r *Response) Code() int                   { return r.code }
func (r *Response) Message() string             { return r.message }
func (r *Response) Headers() http.Header        { return r.headers.Clone() }
func (r *Response) Header(name string) string   { return r.headers.Get(name) }
func (r *Response) Body() io.ReadCloser         { return r.body }
func (r *Response) HasContentLength() bool      { return r.hasContentLength }
func (r *Response) ContentLength() int64        { return r.contentLength }
func (r *Response) CacheControl() CacheControl  { return r.cacheControl }
func (r *Response) PriorResponse() *Response    { return r.priorResponse }
func (r *Response) CacheResponse() *Response    { return r.cacheResponse }
func (r *Response) NetworkResponse() *Response  { return r.networkResponse }
func (r *Response) SentRequestEpochSec() int64  { return r.sentRequestEpochSec }
func (r *Response) ReceivedResponseEpochSec() int64 {
	return r.receivedResponseEpochSec
}

// IsSuccessful reports whether the status code is in [200, 300).
func (r *Response) IsSuccessful() bool { return r.code >= 200 && r.code < 300 }

// IsFromCache reports whether this Response was entirely satisfied from the
// cache, without contacting the network. A conditionally-revalidated (304)
// response is not "from cache" under this definition: it has a
// NetworkResponse, even though its body came from the cache payload.
func (r *Response) IsFromCache() bool {
	return r.cacheResponse != nil && r.networkResponse == nil
}

// ResponseBuilder builds a Response. Create one with NewResponseBuilder:
// the zero value has no header map, so Header and AddHeader cannot be
// used on it.
type ResponseBuilder struct {
	r Response
}

func NewResponseBuilder() *ResponseBuilder {
	b := &ResponseBuilder{}
	b.r.headers = make(http.Header)
	return b
}

// From seeds the builder from an existing Response, matching the
// Response::Builder(Response::Ptr) constructor this type is modeled on.
func (b *ResponseBuilder) From(resp *Response) *ResponseBuilder {
	b.r = *resp
	b.r.headers = resp.headers.Clone()
	return b
}

func (b *ResponseBuilder) Request(req *Request) *ResponseBuilder {
	b.r.request = req
	return b
}

func (b *ResponseBuilder) Code(code int) *ResponseBuilder {
	b.r.code = code
	return b
}

func (b *ResponseBuilder) Message(msg string) *ResponseBuilder {
	b.r.message = msg
	return b
}

func (b *ResponseBuilder) Header(name, value string) *ResponseBuilder {
	b.r.headers.Set(name, value)
	return b
}

func (b *ResponseBuilder) AddHeader(name, value string) *ResponseBuilder {
	b.r.headers.Add(name, value)
	return b
}

func (b *ResponseBuilder) Headers(h http.Header) *ResponseBuilder {
	b.r.headers = h.Clone()
	b.r.cacheControl = parseCacheControl(b.r.headers)
	return b
}

func (b *ResponseBuilder) Body(body io.ReadCloser) *ResponseBuilder {
	b.r.body = body
	return b
}

func (b *ResponseBuilder) ContentLength(n int64) *ResponseBuilder {
	b.r.hasContentLength = true
	b.r.contentLength = n
	return b
}

func (b *ResponseBuilder) PriorResponse(prior *Response) *ResponseBuilder {
	b.r.priorResponse = prior
	return b
}

func (b *ResponseBuilder) CacheResponse(cached *Response) *ResponseBuilder {
	b.r.cacheResponse = cached
	return b
}

func (b *ResponseBuilder) NetworkResponse(net *Response) *ResponseBuilder {
	b.r.networkResponse = net
	return b
}

func (b *ResponseBuilder) SentRequestEpochSec(sec int64) *ResponseBuilder {
	b.r.sentRequestEpochSec = sec
	return b
}

func (b *ResponseBuilder) ReceivedResponseEpochSec(sec int64) *ResponseBuilder {
	b.r.receivedResponseEpochSec = sec
	return b
}

// Build returns an IllegalArgument error if Request was never set — a
// Response with no originating Request cannot be chained for retry/cache
// bookkeeping.
func (b *ResponseBuilder) Build() (*Response, error) {
	if b.r.request == nil {
		return nil, IllegalArgumentError("response request must be set")
	}
	if b.r.headers == nil {
		b.r.headers = make(http.Header)
	}
	b.r.cacheControl = parseCacheControl(b.r.headers)
	out := b.r
	out.headers = b.r.headers.Clone()
	return &out, nil
}
