// Package clients constructs shared clients for external backends used by
// the core (currently just redis), kept separate from the packages that
// use them so config stays decoupled from any one backend's driver.
package clients

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisConfig configures the shared redis client used by
// internal/coalesce's redis-backed Registry.
type RedisConfig struct {
	Addresses []string
	Username  string
	Password  string
}

// NewRedisClient dials cfg and pings it once before returning, so
// misconfiguration surfaces at startup instead of on the first coalesce
// Register call.
func NewRedisClient(cfg RedisConfig) (redis.UniversalClient, error) {
	r := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs:    cfg.Addresses,
		Username: cfg.Username,
		Password: cfg.Password,
	})

	if err := r.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to reach redis: %w", err)
	}

	return r, nil
}
