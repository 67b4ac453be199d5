package store

import (
	"sync"

	"github.com/heysubinoy/remotekv/pkg/kv"
)

// MemStore is an in-memory implementation of the kv.Store interface.
// A single mutex guards the whole map, so every operation is atomic with
// respect to every other one. Responses are built after the lock is released.
type MemStore struct {
	mu   sync.Mutex
	data map[string]string
}

// Compile-time check to ensure MemStore implements kv.Store.
var _ kv.Store = (*MemStore)(nil)

// NewMemStore creates and returns an empty MemStore.
func NewMemStore() *MemStore {
	return &MemStore{
		data: make(map[string]string),
	}
}

// Put stores a key-value pair, replacing any previous value.
// Always returns nil for in-memory operations.
func (s *MemStore) Put(key, value string) (kv.Response, error) {
	s.mu.Lock()
	s.data[key] = value
	s.mu.Unlock()

	return kv.PutOK(key, value), nil
}

// Get retrieves a value by key from the store.
func (s *MemStore) Get(key string) (kv.Response, error) {
	s.mu.Lock()
	val, ok := s.data[key]
	s.mu.Unlock()

	if !ok {
		return kv.NotFound(key), nil
	}
	return kv.GetOK(key, val), nil
}

// Delete removes a key from the store. Deleting an absent key is reported
// as not found rather than as a successful no-op.
func (s *MemStore) Delete(key string) (kv.Response, error) {
	s.mu.Lock()
	_, ok := s.data[key]
	if ok {
		delete(s.data, key)
	}
	s.mu.Unlock()

	if !ok {
		return kv.NotFound(key), nil
	}
	return kv.DeleteOK(key), nil
}

// Len returns the number of entries.
func (s *MemStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.data)
}

// Snapshot returns a copy of the current contents.
func (s *MemStore) Snapshot() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]string, len(s.data))
	for k, v := range s.data {
		out[k] = v
	}
	return out
}

// Restore replaces the contents with data.
func (s *MemStore) Restore(data map[string]string) {
	fresh := make(map[string]string, len(data))
	for k, v := range data {
		fresh[k] = v
	}

	s.mu.Lock()
	s.data = fresh
	s.mu.Unlock()
}
