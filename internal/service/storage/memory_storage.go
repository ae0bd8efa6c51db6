package storage

import (
	"sync"
)

// MemoryStorage is a generic in-memory store with dirty tracking.
// K is the key type, V the stored value type.
type MemoryStorage[K comparable, V any] struct {
	data  map[K]V
	mutex sync.RWMutex
	dirty map[K]struct{}
}

// NewMemoryStorage creates a new storage
func NewMemoryStorage[K comparable, V any]() *MemoryStorage[K, V] {
	return &MemoryStorage[K, V]{
		data:  make(map[K]V),
		dirty: make(map[K]struct{}),
	}
}

// Set adds or updates an object and marks it dirty
func (s *MemoryStorage[K, V]) Set(key K, value V) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.data[key] = value
	s.dirty[key] = struct{}{}
}

// Get returns an object by key
func (s *MemoryStorage[K, V]) Get(key K) (V, bool) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	value, exists := s.data[key]
	return value, exists
}

// Delete removes an object by key. The key stays dirty so the next flush sees
// the removal.
func (s *MemoryStorage[K, V]) Delete(key K) bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if _, exists := s.data[key]; !exists {
		return false
	}

	delete(s.data, key)
	s.dirty[key] = struct{}{}
	return true
}

// GetAll returns a copy of all objects
func (s *MemoryStorage[K, V]) GetAll() map[K]V {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	result := make(map[K]V, len(s.data))
	for k, v := range s.data {
		result[k] = v
	}
	return result
}

// GetAllValues returns all values as a slice
func (s *MemoryStorage[K, V]) GetAllValues() []V {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	result := make([]V, 0, len(s.data))
	for _, v := range s.data {
		result = append(result, v)
	}
	return result
}

// GetDirty returns dirty keys split into those still present and those deleted
// since the last TakeDirty. Flags are not cleared.
func (s *MemoryStorage[K, V]) GetDirty() (map[K]V, []K) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.splitDirty()
}

// TakeDirty returns the same split as GetDirty and clears every flag under one
// lock. Changes made afterwards mark their keys dirty again.
func (s *MemoryStorage[K, V]) TakeDirty() (map[K]V, []K) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	updated, deleted := s.splitDirty()
	clear(s.dirty)
	return updated, deleted
}

func (s *MemoryStorage[K, V]) splitDirty() (map[K]V, []K) {
	updated := make(map[K]V, len(s.dirty))
	var deleted []K
	for k := range s.dirty {
		if v, exists := s.data[k]; exists {
			updated[k] = v
		} else {
			deleted = append(deleted, k)
		}
	}
	return updated, deleted
}

// MarkDirty flags keys again after a failed flush. The next take reads their
// current state, so keys changed in the meantime are not rolled back.
func (s *MemoryStorage[K, V]) MarkDirty(keys []K) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	for _, k := range keys {
		s.dirty[k] = struct{}{}
	}
}

// ForEach calls fn for each object on a copy taken under the lock. Iteration
// stops when fn returns false.
func (s *MemoryStorage[K, V]) ForEach(fn func(key K, value V) bool) {
	for k, v := range s.GetAll() {
		if !fn(k, v) {
			break
		}
	}
}

// Count returns the number of objects
func (s *MemoryStorage[K, V]) Count() int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return len(s.data)
}
