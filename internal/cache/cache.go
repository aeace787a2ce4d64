// Package cache provides the TTL key/value store backing result
// memoization. Two implementations ship: an in-process map for tests and
// single-node deployments, and a Redis client for shared deployments.
package cache

import (
	"context"
	"time"
)

// Store is a generic TTL key/value store. Get reports a miss (false)
// for absent or expired keys without error; errors are reserved for
// dependency faults.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}
