package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/noah-isme/curriculum-qa-api/internal/models"
	appErrors "github.com/noah-isme/curriculum-qa-api/pkg/errors"
)

// SessionStore persists session snapshots by id. Get returns ErrSessionNotFound for unknown ids.
// Expiry policy lives in the services; ttl only lets backends drop stale keys on their own.
type SessionStore[T any] interface {
	Get(ctx context.Context, id string) (*T, error)
	Put(ctx context.Context, id string, session *T, ttl time.Duration) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]*T, error)
}

// RemediationSessionStore holds remediation sessions.
type RemediationSessionStore = SessionStore[models.RemediationSession]

// DryRunStore holds dry-run sessions.
type DryRunStore = SessionStore[models.DryRunSession]

// MemorySessionStore is a mutex-guarded map that stores deep copies.
type MemorySessionStore[T any] struct {
	mu    sync.RWMutex
	items map[string][]byte
}

// NewMemorySessionStore constructs an empty in-memory store.
func NewMemorySessionStore[T any]() *MemorySessionStore[T] {
	return &MemorySessionStore[T]{items: make(map[string][]byte)}
}

func (s *MemorySessionStore[T]) Get(_ context.Context, id string) (*T, error) {
	s.mu.RLock()
	raw, ok := s.items[id]
	s.mu.RUnlock()
	if !ok {
		return nil, appErrors.ErrSessionNotFound
	}
	var out T
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", id, err)
	}
	return &out, nil
}

func (s *MemorySessionStore[T]) Put(_ context.Context, id string, session *T, _ time.Duration) error {
	raw, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("encode session %s: %w", id, err)
	}
	s.mu.Lock()
	s.items[id] = raw
	s.mu.Unlock()
	return nil
}

func (s *MemorySessionStore[T]) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	delete(s.items, id)
	s.mu.Unlock()
	return nil
}

// List returns every stored session ordered by id.
func (s *MemorySessionStore[T]) List(ctx context.Context) ([]*T, error) {
	s.mu.RLock()
	ids := make([]string, 0, len(s.items))
	for id := range s.items {
		ids = append(ids, id)
	}
	s.mu.RUnlock()
	sort.Strings(ids)

	out := make([]*T, 0, len(ids))
	for _, id := range ids {
		session, err := s.Get(ctx, id)
		if err != nil {
			if errors.Is(err, appErrors.ErrSessionNotFound) {
				continue
			}
			return nil, err
		}
		out = append(out, session)
	}
	return out, nil
}

// sessionCache is the subset of the Redis cache repository the Redis store needs.
type sessionCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Keys(ctx context.Context, pattern string) ([]string, error)
}

// RedisSessionStore keeps JSON session snapshots in Redis under prefix:kind:id.
type RedisSessionStore[T any] struct {
	cache  sessionCache
	prefix string
}

// NewRedisSessionStore constructs a Redis-backed store, e.g. kind "dryrun" or "remediation".
func NewRedisSessionStore[T any](cache sessionCache, keyPrefix, kind string) *RedisSessionStore[T] {
	if keyPrefix == "" {
		keyPrefix = "cqa"
	}
	return &RedisSessionStore[T]{cache: cache, prefix: keyPrefix + ":" + kind + ":"}
}

func (s *RedisSessionStore[T]) key(id string) string {
	return s.prefix + id
}

func (s *RedisSessionStore[T]) Get(ctx context.Context, id string) (*T, error) {
	var out T
	if err := s.cache.Get(ctx, s.key(id), &out); err != nil {
		if errors.Is(err, appErrors.ErrCacheMiss) {
			return nil, appErrors.ErrSessionNotFound
		}
		return nil, err
	}
	return &out, nil
}

// Put stores the session; a non-positive ttl keeps the key without expiry.
func (s *RedisSessionStore[T]) Put(ctx context.Context, id string, session *T, ttl time.Duration) error {
	if ttl < 0 {
		ttl = 0
	}
	return s.cache.Set(ctx, s.key(id), session, ttl)
}

func (s *RedisSessionStore[T]) Delete(ctx context.Context, id string) error {
	return s.cache.Delete(ctx, s.key(id))
}

func (s *RedisSessionStore[T]) List(ctx context.Context) ([]*T, error) {
	keys, err := s.cache.Keys(ctx, s.prefix+"*")
	if err != nil {
		return nil, err
	}
	sort.Strings(keys)
	out := make([]*T, 0, len(keys))
	for _, key := range keys {
		var session T
		if err := s.cache.Get(ctx, key, &session); err != nil {
			if errors.Is(err, appErrors.ErrCacheMiss) {
				continue
			}
			return nil, err
		}
		out = append(out, &session)
	}
	return out, nil
}
