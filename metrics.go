package easyhttp

import "github.com/prometheus/client_golang/prometheus"

// The prometheus collectors this package registers, declared as flat
// package-level vars in the style of chproxy's metrics.go. They are
// registered once in init and shared by every EasyHttp instance in the
// process.
var (
	cacheHits   = prometheus.NewCounterVec(prometheus.CounterOpts{Name: "easyhttp_cache_hits", Help: "Number of requests satisfied entirely from cache"}, []string{"host"})
	cacheMisses = prometheus.NewCounterVec(prometheus.CounterOpts{Name: "easyhttp_cache_misses", Help: "Number of requests that missed the cache"}, []string{"host"})
	retries     = prometheus.NewCounterVec(prometheus.CounterOpts{Name: "easyhttp_retries", Help: "Number of engine-internal retry attempts"}, []string{"host"})
	poolSize    = prometheus.NewGaugeVec(prometheus.GaugeOpts{Name: "easyhttp_pool_size", Help: "Number of connections currently tracked by the pool"}, []string{"host"})
	asyncQueue  = prometheus.NewGaugeVec(prometheus.GaugeOpts{Name: "easyhttp_async_queue_depth", Help: "Number of async execution tasks waiting or running"}, []string{})
)

func init() {
	prometheus.MustRegister(cacheHits, cacheMisses, retries, poolSize, asyncQueue)
}
