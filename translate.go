package easyhttp

import (
	"strconv"

	"github.com/easyhttp-go/easyhttp/internal/engine"
	"github.com/easyhttp-go/easyhttp/internal/pool"
)

func toEngineRequest(req *Request, proxy *Proxy) *engine.Request {
	scheme := req.url.Scheme
	host := req.url.Hostname()
	port := defaultPort(scheme)
	if p := req.url.Port(); p != "" {
		if n, err := strconv.Atoi(p); err == nil {
			port = uint16(n)
		}
	}

	er := &engine.Request{
		Method:  req.method,
		URL:     req.url.String(),
		Headers: req.headers.Clone(),
		Body:    req.body,
		NoCache: req.noCache,
		NoStore: req.noStore,
		Scheme:  scheme,
		Host:    host,
		Port:    port,
	}
	if proxy != nil {
		er.Proxy = &pool.Key{Host: proxy.Host, Port: proxy.Port}
	}
	return er
}

func defaultPort(scheme string) uint16 {
	if scheme == "https" {
		return 443
	}
	return 80
}

func fromEngineResponse(req *Request, er *engine.Response, prior *Response) *Response {
	b := NewResponseBuilder().
		Request(req).
		Code(er.Code).
		Message(er.Message).
		Headers(er.Headers).
		Body(er.Body).
		ContentLength(er.ContentLength).
		SentRequestEpochSec(er.SentRequestEpochSec).
		ReceivedResponseEpochSec(er.ReceivedResponseEpochSec)

	if prior != nil {
		b.PriorResponse(prior)
	}
	if er.CacheResponse != nil {
		cacheResp, _ := b2resp(req, er.CacheResponse)
		b.CacheResponse(cacheResp)
	}
	if er.NetworkResponse != nil {
		netResp, _ := b2resp(req, er.NetworkResponse)
		b.NetworkResponse(netResp)
	}

	resp, err := b.Build()
	if err != nil {
		// Request is always set above, so Build cannot fail here.
		panic(err)
	}
	return resp
}

func b2resp(req *Request, er *engine.Response) (*Response, error) {
	return NewResponseBuilder().
		Request(req).
		Code(er.Code).
		Message(er.Message).
		Headers(er.Headers).
		Body(er.Body).
		ContentLength(er.ContentLength).
		SentRequestEpochSec(er.SentRequestEpochSec).
		ReceivedResponseEpochSec(er.ReceivedResponseEpochSec).
		Build()
}
