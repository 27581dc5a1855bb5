package store

import (
	"container/list"
	"sync"
	"time"

	"github.com/i474232898/weather-dashboard/internal/weather"
)

// DefaultTTL is how long a payload is served before it is considered stale.
const DefaultTTL = 300 * time.Second

var _ weather.Cache = (*MemoryStore)(nil)

// entry is one cached payload plus its creation time.
type entry struct {
	key       string
	value     weather.WeatherPayload
	createdAt time.Time
}

// MemoryStore is a concurrency-safe in-memory TTL cache of weather payloads.
// When capacity is reached the least recently used entry is evicted.
type MemoryStore struct {
	mu sync.Mutex

	// key: LocationQuery.Key(), value: element holding *entry
	items map[string]*list.Element
	lru   *list.List

	ttl      time.Duration
	capacity int // 0 = unlimited
	now      func() time.Time
}

// Option customizes a MemoryStore.
type Option func(*MemoryStore)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *MemoryStore) { s.now = now }
}

// NewMemoryStore creates a new MemoryStore. A ttl <= 0 means DefaultTTL;
// a capacity <= 0 means unlimited.
func NewMemoryStore(ttl time.Duration, capacity int, opts ...Option) *MemoryStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if capacity < 0 {
		capacity = 0
	}
	s := &MemoryStore{
		items:    make(map[string]*list.Element),
		lru:      list.New(),
		ttl:      ttl,
		capacity: capacity,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get returns a copy of the payload for q if one exists and is younger than
// the TTL. A stale entry found on the way is dropped.
func (s *MemoryStore) Get(q weather.LocationQuery) (weather.WeatherPayload, bool) {
	key := q.Key()
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	el, ok := s.items[key]
	if !ok {
		return weather.WeatherPayload{}, false
	}
	e := el.Value.(*entry)
	if s.expired(e, now) {
		s.removeElement(el)
		return weather.WeatherPayload{}, false
	}
	s.lru.MoveToFront(el)
	return e.value.Clone(), true
}

// Put stores a copy of payload for q, replacing any existing entry and
// resetting its age.
func (s *MemoryStore) Put(q weather.LocationQuery, payload weather.WeatherPayload) {
	key := q.Key()
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	payload = payload.Clone()
	if el, ok := s.items[key]; ok {
		el.Value = &entry{key: key, value: payload, createdAt: now}
		s.lru.MoveToFront(el)
		return
	}

	s.items[key] = s.lru.PushFront(&entry{key: key, value: payload, createdAt: now})

	// Enforce capacity.
	for s.capacity > 0 && s.lru.Len() > s.capacity {
		s.removeElement(s.lru.Back())
	}
}

// Sweep removes every stale entry and returns how many were dropped.
func (s *MemoryStore) Sweep() int {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for el := s.lru.Back(); el != nil; {
		prev := el.Prev()
		if s.expired(el.Value.(*entry), now) {
			s.removeElement(el)
			removed++
		}
		el = prev
	}
	return removed
}

// Len returns the number of entries held, stale ones included.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lru.Len()
}

func (s *MemoryStore) expired(e *entry, now time.Time) bool {
	return now.Sub(e.createdAt) >= s.ttl
}

func (s *MemoryStore) removeElement(el *list.Element) {
	s.lru.Remove(el)
	delete(s.items, el.Value.(*entry).key)
}
