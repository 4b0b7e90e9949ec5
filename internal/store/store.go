// Package store defines the key/value persistence contract shared by the
// Redis-backed and embedded backends. All hash field values are strings;
// typed records are encoded and decoded by the callers.
package store

import "context"

// KeyType mirrors the Redis TYPE reply for the structures used here.
type KeyType string

const (
	TypeNone KeyType = "none"
	TypeHash KeyType = "hash"
	TypeSet  KeyType = "set"
	TypeZSet KeyType = "zset"
)

// Store is the uniform CRUD surface over the key/value backend.
// Implementations perform no retries; any I/O failure surfaces as an error.
type Store interface {
	Type(ctx context.Context, key string) (KeyType, error)
	HSet(ctx context.Context, key string, fields map[string]string) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	Exists(ctx context.Context, key string) (bool, error)
	Del(ctx context.Context, keys ...string) error

	SAdd(ctx context.Context, key string, members ...string) error
	SMembers(ctx context.Context, key string) ([]string, error)

	ZAdd(ctx context.Context, key string, score float64, member string) error
	// ZRange returns members ordered ascending by score between the given
	// ranks (inclusive, negative ranks count from the end, Redis semantics).
	ZRange(ctx context.Context, key string, start, stop int64) ([]string, error)

	// Scan walks the keyspace one page at a time. A returned cursor of "0"
	// means the iteration is complete.
	Scan(ctx context.Context, cursor string, match string, count int64) (next string, keys []string, err error)

	Pipeline() Pipeliner
}

// Pipeliner batches HGetAll reads into one round trip. Results come back in
// submission order; the first error aborts the batch. The batch is not
// transactional: each read is independent.
type Pipeliner interface {
	HGetAll(key string)
	Exec(ctx context.Context) ([]map[string]string, error)
}
