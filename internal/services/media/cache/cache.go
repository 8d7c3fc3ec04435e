// Package cache memoizes orchestration results by fingerprint. Caching is an
// optimization only: every variant degrades to a miss rather than failing
package cache

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	perr "vidbrief/internal/platform/errors"
	"vidbrief/internal/platform/logger"
	"vidbrief/internal/services/media/domain"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Cache is the orchestrator's view of the store
type Cache interface {
	Get(ctx context.Context, fp domain.Fingerprint) (domain.CacheEntry, bool)
	Put(ctx context.Context, fp domain.Fingerprint, payload json.RawMessage, ttl time.Duration)
}

// Noop never hits
type Noop struct{}

// Get implements Cache
func (Noop) Get(context.Context, domain.Fingerprint) (domain.CacheEntry, bool) {
	return domain.CacheEntry{}, false
}

// Put implements Cache
func (Noop) Put(context.Context, domain.Fingerprint, json.RawMessage, time.Duration) {}

// DefaultMaxEntries bounds a Memory cache built with size <= 0
const DefaultMaxEntries = 1024

// Memory is a process local cache. Hits do not refresh an entry, so eviction
// drops the oldest write first
type Memory struct {
	lru *lru.Cache[domain.Fingerprint, domain.CacheEntry]
	now func() time.Time
	// mu orders expiry removal against writes so a fresh Put is never dropped
	mu sync.Mutex
}

// NewMemory builds a Memory cache; now defaults to time.Now
func NewMemory(size int, now func() time.Time) *Memory {
	if size <= 0 {
		size = DefaultMaxEntries
	}
	if now == nil {
		now = time.Now
	}
	c, _ := lru.New[domain.Fingerprint, domain.CacheEntry](size)
	return &Memory{lru: c, now: now}
}

// Get implements Cache
func (m *Memory) Get(_ context.Context, fp domain.Fingerprint) (domain.CacheEntry, bool) {
	e, ok := m.lru.Peek(fp)
	if !ok {
		return domain.CacheEntry{}, false
	}
	if !e.Expired(m.now()) {
		return e, true
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.lru.Peek(fp)
	if !ok {
		return domain.CacheEntry{}, false
	}
	if !cur.Expired(m.now()) {
		return cur, true
	}
	m.lru.Remove(fp)
	return domain.CacheEntry{}, false
}

// Put implements Cache. An existing entry is replaced whole
func (m *Memory) Put(_ context.Context, fp domain.Fingerprint, payload json.RawMessage, ttl time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lru.Remove(fp)
	m.lru.Add(fp, domain.CacheEntry{
		Fingerprint: fp,
		Payload:     append(json.RawMessage(nil), payload...),
		CreatedAt:   m.now(),
		TTL:         ttl,
	})
}

// Len reports the number of live and expired entries held
func (m *Memory) Len() int { return m.lru.Len() }

// Backend is a persistent store that may fail
type Backend interface {
	Load(ctx context.Context, fp domain.Fingerprint) (domain.CacheEntry, bool, error)
	Save(ctx context.Context, e domain.CacheEntry) error
}

// Store adapts a Backend to Cache, turning every backend error into a miss or
// a dropped write with a warning
type Store struct {
	b   Backend
	now func() time.Time
	log logger.Logger
}

// NewStore wraps b
func NewStore(b Backend, now func() time.Time) *Store {
	if now == nil {
		now = time.Now
	}
	return &Store{b: b, now: now, log: *logger.Named("cache")}
}

// Get implements Cache
func (s *Store) Get(ctx context.Context, fp domain.Fingerprint) (domain.CacheEntry, bool) {
	e, ok, err := s.b.Load(ctx, fp)
	if err != nil {
		s.warn(ctx, err, "get", fp)
		return domain.CacheEntry{}, false
	}
	if !ok || e.Expired(s.now()) {
		return domain.CacheEntry{}, false
	}
	return e, true
}

// Put implements Cache
func (s *Store) Put(ctx context.Context, fp domain.Fingerprint, payload json.RawMessage, ttl time.Duration) {
	err := s.b.Save(ctx, domain.CacheEntry{Fingerprint: fp, Payload: payload, CreatedAt: s.now(), TTL: ttl})
	if err != nil {
		s.warn(ctx, err, "put", fp)
	}
}

func (s *Store) warn(ctx context.Context, err error, op string, fp domain.Fingerprint) {
	wrapped := perr.Wrapf(err, perr.ErrorCodeCacheUnavailable, "cache %s degraded", op)
	logger.From(ctx, &s.log).Warn().Err(wrapped).Str("fingerprint", string(fp)).Str("kind", perr.ErrorCodeCacheUnavailable.Kind()).
		Bool("retryable", perr.IsRetryable(err)).Msg("cache unavailable")
}
