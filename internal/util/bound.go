package util

import (
	"fmt"
	"strings"

	"github.com/paulmach/orb"
	"github.com/spf13/cast"
)

// ParseBound parses "xmin,ymin,xmax,ymax" into a bound with a non-zero area
func ParseBound(s string) (orb.Bound, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return orb.Bound{}, fmt.Errorf("bound %q: want xmin,ymin,xmax,ymax", s)
	}

	var v [4]float64
	for i, p := range parts {
		f, err := cast.ToFloat64E(strings.TrimSpace(p))
		if err != nil {
			return orb.Bound{}, fmt.Errorf("bound %q: %w", s, err)
		}
		v[i] = f
	}

	if v[0] >= v[2] || v[1] >= v[3] {
		return orb.Bound{}, fmt.Errorf("bound %q: min must be below max", s)
	}
	return orb.Bound{Min: orb.Point{v[0], v[1]}, Max: orb.Point{v[2], v[3]}}, nil
}
