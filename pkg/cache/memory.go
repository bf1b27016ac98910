package cache

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is an in-process Store.
//
// It behaves like a table with a primary key on (endpoint, fingerprint): a
// key rejects inserts until its previous entry has been swept, whether that
// entry is still live or not.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[Key]Entry
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[Key]Entry),
	}
}

// Sweep deletes expired entries.
func (s *MemoryStore) Sweep(ctx context.Context, now time.Time) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var removed, freed int64
	for key, entry := range s.entries {
		if entry.IsExpired(now) {
			delete(s.entries, key)
			removed++
			freed += int64(len(entry.Body))
		}
	}
	CacheSize.WithLabelValues("memory").Sub(float64(freed))

	if removed > 0 {
		SweptEntries.WithLabelValues("memory").Add(float64(removed))
	}
	return removed, nil
}

// Lookup returns the live entry for the key.
func (s *MemoryStore) Lookup(ctx context.Context, endpoint, fingerprint string, now time.Time) (*Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	entry, ok := s.entries[Key{Endpoint: endpoint, Fingerprint: fingerprint}]
	s.mu.RUnlock()

	if !ok || entry.IsExpired(now) {
		CacheMisses.WithLabelValues("memory").Inc()
		return nil, ErrCacheMiss
	}

	CacheHits.WithLabelValues("memory").Inc()
	return &entry, nil
}

// Insert stores a copy of the entry.
func (s *MemoryStore) Insert(ctx context.Context, entry Entry) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	entry.Expiration = time.Unix(entry.Expiration.Unix(), 0)
	key := entry.Key()

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.entries[key]; exists {
		CacheErrors.WithLabelValues("memory", "insert").Inc()
		return ErrDuplicateEntry
	}
	s.entries[key] = entry

	CacheWrites.WithLabelValues("memory").Inc()
	CacheSize.WithLabelValues("memory").Add(float64(len(entry.Body)))
	return nil
}

// Len returns the number of stored entries, expired ones included.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
