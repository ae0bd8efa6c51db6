package routing

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/paulmach/orb"
)

type pairKey struct {
	origin, destination orb.Point
}

// CachingSolver memoizes successful solves of an inner Solver by exact
// origin/destination pair. Failures are not cached.
type CachingSolver struct {
	inner Solver
	cache *lru.Cache[pairKey, Solution]
}

func NewCachingSolver(inner Solver, size int) (*CachingSolver, error) {
	cache, err := lru.New[pairKey, Solution](size)
	if err != nil {
		return nil, fmt.Errorf("create route cache: %w", err)
	}
	return &CachingSolver{inner: inner, cache: cache}, nil
}

func (c *CachingSolver) Solve(ctx context.Context, origin, destination orb.Point) (Solution, error) {
	key := pairKey{origin, destination}
	if s, ok := c.cache.Get(key); ok {
		return s, nil
	}

	s, err := c.inner.Solve(ctx, origin, destination)
	if err != nil {
		return Solution{}, err
	}
	c.cache.Add(key, s)
	return s, nil
}

func (c *CachingSolver) Len() int {
	return c.cache.Len()
}
