// The redisutils package simplifies and automates recurring operations like
// connecting to, formatting for, and parsing from Redis.
package redisutils

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	ProdAddr = "localhost:6379"
	TestAddr = "localhost:6380"
)

// SetupClient() initializes a new Redis client for the specified address.
// An empty address defaults to ProdAddr.
func SetupClient(addr string) *redis.Client {
	if addr == "" {
		addr = ProdAddr
	}

	return redis.NewClient(&redis.Options{
		Addr: addr,
	})
}

// SetupTestClient() initializes a new Redis client for tests.
func SetupTestClient() *redis.Client {
	return SetupClient(TestAddr)
}

// Ping() returns an error if the Redis server can't be reached within timeout.
func Ping(cl *redis.Client, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return cl.Ping(ctx).Err()
}

// CleanupRedis() cleans up the Redis database between tests to ensure isolation.
func CleanupRedis(client *redis.Client) {
	client.FlushAll(context.Background())
}
