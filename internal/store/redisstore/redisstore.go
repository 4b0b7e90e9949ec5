// Package redisstore implements the store contract against a Redis server
// using go-redis. It is used both for a directly connected server and for
// hosted Redis-compatible services.
package redisstore

import (
	"context"

	"github.com/redis/go-redis/v9"

	"github.com/suPer8Hu/gopherchat/internal/store"
)

type Store struct {
	rdb *redis.Client
}

func New(addr, password string, db int) *Store {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return &Store{rdb: rdb}
}

// NewFromClient wraps an existing client (shared with the pub/sub bus).
func NewFromClient(rdb *redis.Client) *Store {
	return &Store{rdb: rdb}
}

func (s *Store) Client() *redis.Client { return s.rdb }

func (s *Store) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

func (s *Store) Close() error { return s.rdb.Close() }

func (s *Store) Type(ctx context.Context, key string) (store.KeyType, error) {
	t, err := s.rdb.Type(ctx, key).Result()
	if err != nil {
		return store.TypeNone, err
	}
	return store.KeyType(t), nil
}

func (s *Store) HSet(ctx context.Context, key string, fields map[string]string) error {
	if len(fields) == 0 {
		return nil
	}
	args := make([]any, 0, len(fields)*2)
	for f, v := range fields {
		args = append(args, f, v)
	}
	return s.rdb.HSet(ctx, key, args...).Err()
}

func (s *Store) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	return s.rdb.HGetAll(ctx, key).Result()
}

func (s *Store) Exists(ctx context.Context, key string) (bool, error) {
	n, err := s.rdb.Exists(ctx, key).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *Store) Del(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return s.rdb.Del(ctx, keys...).Err()
}

func (s *Store) SAdd(ctx context.Context, key string, members ...string) error {
	args := make([]any, len(members))
	for i, m := range members {
		args[i] = m
	}
	return s.rdb.SAdd(ctx, key, args...).Err()
}

func (s *Store) SMembers(ctx context.Context, key string) ([]string, error) {
	return s.rdb.SMembers(ctx, key).Result()
}

func (s *Store) ZAdd(ctx context.Context, key string, score float64, member string) error {
	return s.rdb.ZAdd(ctx, key, redis.Z{Score: score, Member: member}).Err()
}

func (s *Store) ZRange(ctx context.Context, key string, start, stop int64) ([]string, error) {
	return s.rdb.ZRange(ctx, key, start, stop).Result()
}

func (s *Store) Scan(ctx context.Context, cursor string, match string, count int64) (string, []string, error) {
	var cur uint64
	if cursor != "" && cursor != "0" {
		c, err := parseCursor(cursor)
		if err != nil {
			return "0", nil, err
		}
		cur = c
	}
	keys, next, err := s.rdb.Scan(ctx, cur, match, count).Result()
	if err != nil {
		return "0", nil, err
	}
	return formatCursor(next), keys, nil
}

func (s *Store) Pipeline() store.Pipeliner {
	return &pipeline{pipe: s.rdb.Pipeline()}
}

type pipeline struct {
	pipe redis.Pipeliner
	cmds []*redis.MapStringStringCmd
}

func (p *pipeline) HGetAll(key string) {
	p.cmds = append(p.cmds, p.pipe.HGetAll(context.Background(), key))
}

func (p *pipeline) Exec(ctx context.Context) ([]map[string]string, error) {
	if _, err := p.pipe.Exec(ctx); err != nil {
		return nil, err
	}
	out := make([]map[string]string, 0, len(p.cmds))
	for _, cmd := range p.cmds {
		res, err := cmd.Result()
		if err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	return out, nil
}
