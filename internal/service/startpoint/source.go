package startpoint

import (
	"context"
	"errors"

	"github.com/paulmach/orb"
)

// ErrNoStartPoints is returned when a source yields nothing usable
var ErrNoStartPoints = errors.New("no start points")

// Source supplies candidate route origins. It is read once per session.
type Source interface {
	QueryAll(ctx context.Context) ([]orb.Point, error)
}

// Candidate is a named start point as read from a file
type Candidate struct {
	Name  string
	Point orb.Point
}

func points(candidates []Candidate) []orb.Point {
	result := make([]orb.Point, len(candidates))
	for i, c := range candidates {
		result[i] = c.Point
	}
	return result
}

// StaticSource serves a fixed list
type StaticSource []orb.Point

func (s StaticSource) QueryAll(ctx context.Context) ([]orb.Point, error) {
	if len(s) == 0 {
		return nil, ErrNoStartPoints
	}
	return append([]orb.Point(nil), s...), nil
}
