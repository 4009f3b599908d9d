package cache

import (
	"context"
	"errors"
	"sync"
)

const backendMemory = "memory"

var errStoreClosed = errors.New("store closed")

// MemoryStore keeps entries in process memory. Entries are lost on exit.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]Entry
	closed  bool
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]Entry)}
}

// Get retrieves a copy of the entry for key.
func (s *MemoryStore) Get(_ context.Context, key string) (entry *Entry, err error) {
	defer func() { recordGet(backendMemory, err) }()

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, storageErr(backendMemory, "get", key, errStoreClosed)
	}
	e, ok := s.entries[key]
	if !ok {
		return nil, ErrCacheMiss
	}
	e.Payload = append([]byte(nil), e.Payload...)
	return &e, nil
}

// Put stores a copy of entry under key.
func (s *MemoryStore) Put(_ context.Context, key string, entry *Entry) (err error) {
	defer func() { recordPut(backendMemory, err) }()

	if entry == nil {
		return storageErr(backendMemory, "put", key, errors.New("cache entry cannot be nil"))
	}
	e := *entry
	e.Payload = append([]byte(nil), entry.Payload...)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return storageErr(backendMemory, "put", key, errStoreClosed)
	}
	s.entries[key] = e
	return nil
}

// Delete removes the entry for key.
func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
	return nil
}

// Len returns the number of stored entries.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Ping fails once the store is closed.
func (s *MemoryStore) Ping(_ context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return storageErr(backendMemory, "ping", "", errStoreClosed)
	}
	return nil
}

// Close drops all entries.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.entries = nil
	return nil
}
