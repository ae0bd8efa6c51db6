package entity

import (
	"sort"
	"sync"

	"github.com/dhconnelly/rtreego"
	"github.com/paulmach/orb"
)

// pointTolerance is the side of the box indexed around each position, in degrees
const pointTolerance = 1e-9

// indexedEntity implements rtreego.Spatial for one entity position
type indexedEntity struct {
	id   string
	rect rtreego.Rect
}

func (e *indexedEntity) Bounds() rtreego.Rect {
	return e.rect
}

// SpatialIndex keeps live entity positions in an R-tree so the dashboard can
// answer viewport queries. Register it as an Observer.
type SpatialIndex struct {
	mu    sync.RWMutex
	tree  *rtreego.Rtree
	items map[string]*indexedEntity
}

func NewSpatialIndex() *SpatialIndex {
	return &SpatialIndex{
		tree:  rtreego.NewTree(2, 25, 50),
		items: make(map[string]*indexedEntity),
	}
}

func (s *SpatialIndex) OnEvent(e Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := e.Entity.EntityID
	if old, ok := s.items[id]; ok {
		s.tree.Delete(old)
		delete(s.items, id)
	}
	if e.Type == EntityPurged {
		return
	}

	p := e.Entity.Position
	item := &indexedEntity{id: id, rect: rtreego.Point{p.X(), p.Y()}.ToRect(pointTolerance)}
	s.tree.Insert(item)
	s.items[id] = item
}

// InBound returns the ids of entities whose position lies inside b, sorted
func (s *SpatialIndex) InBound(b orb.Bound) []string {
	w, h := b.Max.X()-b.Min.X(), b.Max.Y()-b.Min.Y()
	if w <= 0 || h <= 0 {
		return nil
	}
	rect, err := rtreego.NewRect(rtreego.Point{b.Min.X(), b.Min.Y()}, []float64{w, h})
	if err != nil {
		return nil
	}

	s.mu.RLock()
	results := s.tree.SearchIntersect(rect)
	s.mu.RUnlock()

	ids := make([]string, 0, len(results))
	for _, r := range results {
		ids = append(ids, r.(*indexedEntity).id)
	}
	sort.Strings(ids)
	return ids
}

func (s *SpatialIndex) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}
