package easyhttp

import (
	"io"
	"net/http"
	"net/url"

	"github.com/mohae/deepcopy"
)

// Request is immutable once built. Build a new one (generally via
// Request.Builder.From) to change anything about it — conditional
// revalidation, redirect following, and retry all do this internally.
type Request struct {
	method  string
	url     *url.URL
	headers http.Header
	body    io.ReadCloser
	tag     interface{}

	// noCache, when set, forces the engine to skip the cache entirely for
	// this request, both for reads and for writes of its response.
	noCache bool
	// noStore, when set, forbids caching this request's response.
	noStore bool
}

func (r *Request) Method() string       { return r.method }
func (r *Request) URL() *url.URL        { return r.url }
func (r *Request) Headers() http.Header { return r.headers.Clone() }
func (r *Request) Header(name string) string {
	return r.headers.Get(name)
}
func (r *Request) Body() io.ReadCloser { return r.body }
func (r *Request) Tag() interface{}    { return r.tag }
func (r *Request) NoCache() bool       { return r.noCache }
func (r *Request) NoStore() bool       { return r.noStore }

// RequestBuilder builds a Request. The zero value is ready to use.
type RequestBuilder struct {
	method  string
	url     *url.URL
	headers http.Header
	body    io.ReadCloser
	tag     interface{}
	noCache bool
	noStore bool
}

// NewRequestBuilder returns an empty RequestBuilder.
func NewRequestBuilder() *RequestBuilder {
	return &RequestBuilder{method: http.MethodGet, headers: make(http.Header)}
}

// From seeds the builder with a deep copy of req, so the caller can derive a
// modified Request without mutating the original. Used internally to build
// conditional-revalidation and redirect-following requests.
func (b *RequestBuilder) From(req *Request) *RequestBuilder {
	b.method = req.method
	b.url = deepcopy.Copy(req.url).(*url.URL)
	b.headers = req.headers.Clone()
	b.body = req.body
	b.tag = req.tag
	b.noCache = req.noCache
	b.noStore = req.noStore
	return b
}

func (b *RequestBuilder) Method(method string) *RequestBuilder {
	b.method = method
	return b
}

func (b *RequestBuilder) Get() *RequestBuilder { return b.Method(http.MethodGet) }
func (b *RequestBuilder) Head() *RequestBuilder { return b.Method(http.MethodHead) }
func (b *RequestBuilder) Post(body io.ReadCloser) *RequestBuilder {
	b.body = body
	return b.Method(http.MethodPost)
}
func (b *RequestBuilder) Put(body io.ReadCloser) *RequestBuilder {
	b.body = body
	return b.Method(http.MethodPut)
}
func (b *RequestBuilder) Delete() *RequestBuilder { return b.Method(http.MethodDelete) }

func (b *RequestBuilder) URL(u *url.URL) *RequestBuilder {
	b.url = u
	return b
}

// URLString parses s and sets it as the request URL. Returns the parse
// error, if any, instead of panicking — malformed inputs at this boundary
// are the caller's mistake to see immediately.
func (b *RequestBuilder) URLString(s string) (*RequestBuilder, error) {
	u, err := url.Parse(s)
	if err != nil {
		return b, err
	}
	b.url = u
	return b, nil
}

func (b *RequestBuilder) Header(name, value string) *RequestBuilder {
	if b.headers == nil {
		b.headers = make(http.Header)
	}
	b.headers.Set(name, value)
	return b
}

func (b *RequestBuilder) AddHeader(name, value string) *RequestBuilder {
	if b.headers == nil {
		b.headers = make(http.Header)
	}
	b.headers.Add(name, value)
	return b
}

func (b *RequestBuilder) Headers(h http.Header) *RequestBuilder {
	b.headers = h.Clone()
	return b
}

func (b *RequestBuilder) Body(body io.ReadCloser) *RequestBuilder {
	b.body = body
	return b
}

func (b *RequestBuilder) Tag(tag interface{}) *RequestBuilder {
	b.tag = tag
	return b
}

func (b *RequestBuilder) NoCache(v bool) *RequestBuilder {
	b.noCache = v
	return b
}

func (b *RequestBuilder) NoStore(v bool) *RequestBuilder {
	b.noStore = v
	return b
}

// Build returns an IllegalArgument error if the URL was never set.
func (b *RequestBuilder) Build() (*Request, error) {
	if b.url == nil {
		return nil, IllegalArgumentError("request URL must be set")
	}
	headers := b.headers
	if headers == nil {
		headers = make(http.Header)
	}
	return &Request{
		method:  b.method,
		url:     b.url,
		headers: headers.Clone(),
		body:    b.body,
		tag:     b.tag,
		noCache: b.noCache,
		noStore: b.noStore,
	}, nil
}
