package cache

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/mastermhp/Live-Baz-sub000/internal/platform/resilience"
)

type entry[V any] struct {
	value     V
	expiresAt time.Time
}

// Store is an in-process TTL cache keyed by string. A zero TTL keeps entries
// until they are invalidated.
//
// Every invalidation bumps a generation counter. A load that started before
// the bump still returns its value to its callers but is not stored, and
// callers arriving after the bump start a fresh load.
type Store[V any] struct {
	ttl time.Duration
	now func() time.Time

	mu         sync.RWMutex
	entries    map[string]entry[V]
	generation uint64

	flight resilience.Flight[V]
}

func NewStore[V any](ttl time.Duration) *Store[V] {
	return &Store[V]{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]entry[V]),
	}
}

func (s *Store[V]) Get(key string) (V, bool) {
	var zero V

	s.mu.RLock()
	e, ok := s.entries[key]
	s.mu.RUnlock()
	if !ok {
		return zero, false
	}
	if s.expired(e) {
		s.mu.Lock()
		if current, still := s.entries[key]; still && s.expired(current) {
			delete(s.entries, key)
		}
		s.mu.Unlock()
		return zero, false
	}
	return e.value, true
}

func (s *Store[V]) Set(key string, value V) {
	s.mu.Lock()
	s.put(key, value)
	s.mu.Unlock()
}

// InvalidatePrefix drops every key starting with prefix. An empty prefix
// drops everything.
func (s *Store[V]) InvalidatePrefix(prefix string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.generation++
	for key := range s.entries {
		if strings.HasPrefix(key, prefix) {
			delete(s.entries, key)
		}
	}
}

// Len counts stored entries, expired ones included until they are read.
func (s *Store[V]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// GetOrLoad returns the cached value for key, or runs load once across
// concurrent callers and caches a successful result. Errors are never cached.
func (s *Store[V]) GetOrLoad(ctx context.Context, key string, load func(context.Context) (V, error)) (V, error) {
	if value, ok := s.Get(key); ok {
		return value, nil
	}

	s.mu.RLock()
	generation := s.generation
	s.mu.RUnlock()

	flightKey := strconv.FormatUint(generation, 10) + "|" + key
	value, _, err := s.flight.Do(flightKey, func() (V, error) {
		loaded, err := load(ctx)
		if err != nil {
			return loaded, err
		}

		s.mu.Lock()
		if s.generation == generation {
			s.put(key, loaded)
		}
		s.mu.Unlock()
		return loaded, nil
	})
	return value, err
}

func (s *Store[V]) put(key string, value V) {
	var expiresAt time.Time
	if s.ttl > 0 {
		expiresAt = s.now().Add(s.ttl)
	}
	s.entries[key] = entry[V]{value: value, expiresAt: expiresAt}
}

func (s *Store[V]) expired(e entry[V]) bool {
	return s.ttl > 0 && !e.expiresAt.After(s.now())
}
