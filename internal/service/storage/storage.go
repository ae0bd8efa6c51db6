package storage

// Storage is a keyed object store that remembers which keys changed since the
// last flush
type Storage[K comparable, V any] interface {
	Set(key K, value V)
	Get(key K) (V, bool)
	Delete(key K) bool
	GetAll() map[K]V
	GetAllValues() []V
	GetDirty() (updated map[K]V, deleted []K)
	TakeDirty() (updated map[K]V, deleted []K)
	MarkDirty(keys []K)
	ForEach(fn func(key K, value V) bool)
	Count() int
}

var _ Storage[string, int] = (*MemoryStorage[string, int])(nil)
