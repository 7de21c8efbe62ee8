package coalesce

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/easyhttp-go/easyhttp/log"
)

// redisRegistry is a Registry backed by redis, for deployments that share
// one cache directory across multiple processes — grounded on
// cache/transaction_registry_redis.go, standardized on go-redis/v9 (the
// teacher mixes v8 and v9 imports across files; this module picks one).
type redisRegistry struct {
	client    redis.UniversalClient
	graceTime time.Duration
}

// NewRedis returns a Registry backed by client. graceTime is both the
// key TTL and the window a second caller waits before proceeding
// independently.
func NewRedis(client redis.UniversalClient, graceTime time.Duration) Registry {
	return &redisRegistry{client: client, graceTime: graceTime}
}

func (r *redisRegistry) Register(key string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	ok, err := r.client.SetNX(ctx, transactionKey(key), 1, r.graceTime).Result()
	if err != nil {
		return err
	}
	if !ok {
		log.Debugf("coalesce: key %s already registered", key)
	}
	return nil
}

func (r *redisRegistry) Unregister(key string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return r.client.Del(ctx, transactionKey(key)).Err()
}

func (r *redisRegistry) IsDone(key string) bool {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, err := r.client.Get(ctx, transactionKey(key)).Result()
	if errors.Is(err, redis.Nil) {
		return true
	}
	if err != nil {
		log.Errorf("coalesce: failed to fetch transaction status for key %s: %v", key, err)
		return true
	}
	return false
}

func (r *redisRegistry) Close() error {
	return r.client.Close()
}

func transactionKey(key string) string {
	return fmt.Sprintf("%s-transaction", key)
}
