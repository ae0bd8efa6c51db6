package entity

import (
	"testing"

	"deliverysim/internal/model"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
)

func TestSpatialIndexFollowsEntities(t *testing.T) {
	idx := NewSpatialIndex()
	a := NewAggregator(WithObserver(idx))

	a.Upsert(model.Observation{EntityID: "Red:1", Company: model.CompanyRed, Position: orb.Point{-117.20, 32.70}})
	a.Upsert(model.Observation{EntityID: "Blue:1", Company: model.CompanyBlue, Position: orb.Point{-117.10, 32.74}})

	west := orb.Bound{Min: orb.Point{-117.25, 32.65}, Max: orb.Point{-117.15, 32.75}}
	all := orb.Bound{Min: orb.Point{-118, 32}, Max: orb.Point{-117, 33}}

	assert.Equal(t, []string{"Red:1"}, idx.InBound(west))
	assert.Equal(t, []string{"Blue:1", "Red:1"}, idx.InBound(all))

	// Moving an entity replaces its indexed position
	a.Upsert(model.Observation{EntityID: "Blue:1", Company: model.CompanyBlue, Position: orb.Point{-117.18, 32.72}})
	assert.Equal(t, []string{"Blue:1", "Red:1"}, idx.InBound(west))
	assert.Equal(t, 2, idx.Len())

	a.Remove("Red:1")
	assert.Equal(t, []string{"Blue:1"}, idx.InBound(all))
	assert.Equal(t, 1, idx.Len())

	assert.Nil(t, idx.InBound(orb.Bound{}))
}
