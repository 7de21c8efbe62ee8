package config

import (
	"time"

	"github.com/easyhttp-go/easyhttp"
	"github.com/easyhttp-go/easyhttp/internal/pool"
)

// ToBuilder translates a loaded Config into an easyhttp.Builder, the one
// seam where configuration plumbing touches the core: an actual CLI flag
// parser producing a Config is left to the caller.
func (c *Config) ToBuilder() *easyhttp.Builder {
	b := easyhttp.NewBuilder()

	if c.Cache.Dir != "" {
		b.WithCache(c.Cache.Dir, int64(c.Cache.MaxSize), time.Duration(c.Cache.Expire))
	}

	b.WithConnectionPool(pool.New(pool.Config{
		MaxIdleConns:        c.ConnectionPool.MaxIdleConns,
		MaxIdleConnsPerHost: c.ConnectionPool.MaxIdleConnsPerHost,
	}))

	if c.Proxy != nil {
		b.WithProxy(easyhttp.NewProxy(c.Proxy.Host, c.Proxy.Port))
	}

	b.WithTimeouts(
		time.Duration(c.Timeouts.Connect),
		time.Duration(c.Timeouts.Read),
		time.Duration(c.Timeouts.Write),
	)

	return b
}
