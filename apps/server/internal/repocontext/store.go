package repocontext

import (
	"context"
	"sync"
)

// Store is the port the filter reads snapshots through. Get returns nil when
// no entry for the ref exists. Put replaces any previous entry wholesale.
type Store interface {
	Get(ctx context.Context, ref RepositoryRef) (*CacheEntry, error)
	Put(ctx context.Context, entry *CacheEntry) error
	Purge(ctx context.Context, ref RepositoryRef) error
}

// Compile-time check: *MemoryStore implements Store.
var _ Store = (*MemoryStore)(nil)

// MemoryStore is a single-slot in-memory Store: one plugin instance serves
// one configured repository, so a single entry with overwrite semantics is
// enough; this is deliberately not an LRU. The slot swap is atomic under
// the mutex; readers that already hold an entry keep their old snapshot.
type MemoryStore struct {
	mu    sync.RWMutex
	entry *CacheEntry
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Get returns the cached entry for ref, or nil when the slot is empty or
// holds a different repository.
func (s *MemoryStore) Get(_ context.Context, ref RepositoryRef) (*CacheEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.entry == nil || s.entry.Ref != ref {
		return nil, nil //nolint:nilnil // caller checks nil value to detect "absent"
	}
	return s.entry, nil
}

// Put replaces the slot with the given entry.
func (s *MemoryStore) Put(_ context.Context, entry *CacheEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entry = entry
	return nil
}

// Purge empties the slot if it holds the given ref.
func (s *MemoryStore) Purge(_ context.Context, ref RepositoryRef) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.entry != nil && s.entry.Ref == ref {
		s.entry = nil
	}
	return nil
}
