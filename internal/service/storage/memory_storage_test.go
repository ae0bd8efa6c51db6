package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStorageDirtyTracking(t *testing.T) {
	s := NewMemoryStorage[string, int]()

	s.Set("a", 1)
	s.Set("b", 2)
	require.True(t, s.Delete("b"))
	assert.False(t, s.Delete("missing"))

	updated, deleted := s.GetDirty()
	assert.Equal(t, map[string]int{"a": 1}, updated)
	assert.Equal(t, []string{"b"}, deleted)

	updated, deleted = s.TakeDirty()
	assert.Equal(t, map[string]int{"a": 1}, updated)
	assert.Equal(t, []string{"b"}, deleted)
	updated, deleted = s.GetDirty()
	assert.Empty(t, updated)
	assert.Empty(t, deleted)

	s.Set("a", 3)
	updated, _ = s.GetDirty()
	assert.Equal(t, map[string]int{"a": 3}, updated)
}

func TestMemoryStorageMarkDirtyReadsCurrentState(t *testing.T) {
	s := NewMemoryStorage[string, int]()
	s.Set("a", 1)
	s.Set("b", 2)

	taken, _ := s.TakeDirty()
	require.Len(t, taken, 2)

	// Changed after the take, before the failed write is put back
	s.Set("a", 5)
	require.True(t, s.Delete("b"))
	s.MarkDirty([]string{"a", "b"})

	updated, deleted := s.TakeDirty()
	assert.Equal(t, map[string]int{"a": 5}, updated)
	assert.Equal(t, []string{"b"}, deleted)
}

func TestMemoryStorageReads(t *testing.T) {
	s := NewMemoryStorage[int, string]()
	s.Set(1, "one")
	s.Set(2, "two")

	v, ok := s.Get(1)
	assert.True(t, ok)
	assert.Equal(t, "one", v)
	_, ok = s.Get(3)
	assert.False(t, ok)

	assert.Equal(t, 2, s.Count())
	assert.ElementsMatch(t, []string{"one", "two"}, s.GetAllValues())

	all := s.GetAll()
	all[3] = "three"
	assert.Equal(t, 2, s.Count(), "GetAll returns a copy")

	visited := 0
	s.ForEach(func(int, string) bool {
		visited++
		return false
	})
	assert.Equal(t, 1, visited)
}
