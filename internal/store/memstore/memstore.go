// Package memstore is an embedded, in-process implementation of the store
// contract. It backs local development without a Redis server and doubles as
// the test double for the Redis-backed store, the way the observable behavior
// of both must stay interchangeable.
package memstore

import (
	"context"
	"fmt"
	"path"
	"sort"
	"sync"

	"github.com/suPer8Hu/gopherchat/internal/store"
)

type entry struct {
	kind store.KeyType
	hash map[string]string
	set  map[string]struct{}
	zset map[string]float64
}

type Store struct {
	mu   sync.RWMutex
	keys map[string]*entry
}

func New() *Store {
	return &Store{keys: make(map[string]*entry)}
}

func (s *Store) get(key string, kind store.KeyType) (*entry, error) {
	e, ok := s.keys[key]
	if !ok {
		return nil, nil
	}
	if e.kind != kind {
		return nil, fmt.Errorf("memstore: WRONGTYPE operation against key %q holding %s", key, e.kind)
	}
	return e, nil
}

func (s *Store) getOrCreate(key string, kind store.KeyType) (*entry, error) {
	e, err := s.get(key, kind)
	if err != nil {
		return nil, err
	}
	if e == nil {
		e = &entry{kind: kind}
		switch kind {
		case store.TypeHash:
			e.hash = make(map[string]string)
		case store.TypeSet:
			e.set = make(map[string]struct{})
		case store.TypeZSet:
			e.zset = make(map[string]float64)
		}
		s.keys[key] = e
	}
	return e, nil
}

func (s *Store) Type(ctx context.Context, key string) (store.KeyType, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.keys[key]
	if !ok {
		return store.TypeNone, nil
	}
	return e.kind, nil
}

func (s *Store) HSet(ctx context.Context, key string, fields map[string]string) error {
	if len(fields) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	e, err := s.getOrCreate(key, store.TypeHash)
	if err != nil {
		return err
	}
	for f, v := range fields {
		e.hash[f] = v
	}
	return nil
}

func (s *Store) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, err := s.get(key, store.TypeHash)
	if err != nil {
		return nil, err
	}
	out := make(map[string]string)
	if e != nil {
		for f, v := range e.hash {
			out[f] = v
		}
	}
	return out, nil
}

func (s *Store) Exists(ctx context.Context, key string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.keys[key]
	return ok, nil
}

func (s *Store) Del(ctx context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range keys {
		delete(s.keys, k)
	}
	return nil
}

func (s *Store) SAdd(ctx context.Context, key string, members ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, err := s.getOrCreate(key, store.TypeSet)
	if err != nil {
		return err
	}
	for _, m := range members {
		e.set[m] = struct{}{}
	}
	return nil
}

func (s *Store) SMembers(ctx context.Context, key string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, err := s.get(key, store.TypeSet)
	if err != nil {
		return nil, err
	}
	if e == nil {
		return []string{}, nil
	}
	out := make([]string, 0, len(e.set))
	for m := range e.set {
		out = append(out, m)
	}
	sort.Strings(out)
	return out, nil
}

func (s *Store) ZAdd(ctx context.Context, key string, score float64, member string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, err := s.getOrCreate(key, store.TypeZSet)
	if err != nil {
		return err
	}
	e.zset[member] = score
	return nil
}

func (s *Store) ZRange(ctx context.Context, key string, start, stop int64) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, err := s.get(key, store.TypeZSet)
	if err != nil {
		return nil, err
	}
	if e == nil {
		return []string{}, nil
	}

	type pair struct {
		member string
		score  float64
	}
	ordered := make([]pair, 0, len(e.zset))
	for m, sc := range e.zset {
		ordered = append(ordered, pair{m, sc})
	}
	// score ascending, member lexicographic on ties (Redis tie-break)
	sort.Slice(ordered, func(i, j int) bool {
		if ordered[i].score != ordered[j].score {
			return ordered[i].score < ordered[j].score
		}
		return ordered[i].member < ordered[j].member
	})

	n := int64(len(ordered))
	if start < 0 {
		start += n
	}
	if stop < 0 {
		stop += n
	}
	if start < 0 {
		start = 0
	}
	if start >= n || stop < start {
		return []string{}, nil
	}
	if stop >= n {
		stop = n - 1
	}
	out := make([]string, 0, stop-start+1)
	for _, p := range ordered[start : stop+1] {
		out = append(out, p.member)
	}
	return out, nil
}

// Scan returns all matching keys in one page; the backend holds the whole
// keyspace in memory so there is nothing to paginate.
func (s *Store) Scan(ctx context.Context, cursor string, match string, count int64) (string, []string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0)
	for k := range s.keys {
		if match != "" {
			ok, err := path.Match(match, k)
			if err != nil {
				return "0", nil, err
			}
			if !ok {
				continue
			}
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return "0", keys, nil
}

func (s *Store) Pipeline() store.Pipeliner {
	return &pipeline{s: s}
}

type pipeline struct {
	s    *Store
	keys []string
}

func (p *pipeline) HGetAll(key string) {
	p.keys = append(p.keys, key)
}

func (p *pipeline) Exec(ctx context.Context) ([]map[string]string, error) {
	out := make([]map[string]string, 0, len(p.keys))
	for _, k := range p.keys {
		res, err := p.s.HGetAll(ctx, k)
		if err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	return out, nil
}
