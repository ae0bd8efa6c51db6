package routing

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDirectSolver(t *testing.T) {
	s := NewDirectSolver()
	sol, err := s.Solve(context.Background(), orb.Point{0, 0}, orb.Point{0.1, 0})
	require.NoError(t, err)

	assert.Len(t, sol.Path, s.Segments+1)
	assert.Equal(t, orb.Point{0, 0}, sol.Path[0])
	assert.InDelta(t, 11_119, sol.TotalLength, 5)
	assert.InDelta(t, s.NominalSpeed, sol.AverageSpeed(), 0.01)

	_, err = s.Solve(context.Background(), orb.Point{1, 1}, orb.Point{1, 1})
	assert.ErrorIs(t, err, ErrNoRoute)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = s.Solve(ctx, orb.Point{0, 0}, orb.Point{1, 0})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestORSSolver(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "/v2/directions/driving-car", r.URL.Path)
		assert.Equal(t, "secret", r.Header.Get("Authorization"))

		body, _ := io.ReadAll(r.Body)
		var req directionsRequest
		assert.NoError(t, json.Unmarshal(body, &req))
		assert.Equal(t, [][2]float64{{-120.2, 38.5}, {-126.453, 43.252}}, req.Coordinates)

		// First attempt fails with a retryable status
		if calls.Load() == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"routes":[{"summary":{"distance":1500.5,"duration":120},"geometry":"_p~iF~ps|U_ulLnnqC_mqNvxq` + "`" + `@"}]}`))
	}))
	defer srv.Close()

	s, err := NewORSSolver("secret", srv.URL, nil)
	require.NoError(t, err)

	sol, err := s.Solve(context.Background(), orb.Point{-120.2, 38.5}, orb.Point{-126.453, 43.252})
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
	assert.Len(t, sol.Path, 3)
	assert.InDelta(t, -120.2, sol.Path[0].Lon(), 1e-9)
	assert.InDelta(t, 38.5, sol.Path[0].Lat(), 1e-9)
	assert.Equal(t, 1500.5, sol.TotalLength)
	assert.Equal(t, 120*time.Second, sol.TotalDuration)
}

func TestORSSolverErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   error
	}{
		{"not found", http.StatusNotFound, `{"error":"unreachable"}`, ErrNoRoute},
		{"empty routes", http.StatusOK, `{"routes":[]}`, ErrNoRoute},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			s, err := NewORSSolver("k", srv.URL, nil)
			require.NoError(t, err)
			_, err = s.Solve(context.Background(), orb.Point{0, 0}, orb.Point{1, 1})
			assert.ErrorIs(t, err, tt.want)
		})
	}

	t.Run("client error is not retried", func(t *testing.T) {
		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusBadRequest)
		}))
		defer srv.Close()

		s, _ := NewORSSolver("k", srv.URL, nil)
		_, err := s.Solve(context.Background(), orb.Point{0, 0}, orb.Point{1, 1})
		var he *httpStatusError
		require.True(t, errors.As(err, &he))
		assert.Equal(t, http.StatusBadRequest, he.Code)
		assert.Equal(t, int32(1), calls.Load())
	})

	_, err := NewORSSolver("", "", nil)
	assert.Error(t, err)
}

type countingSolver struct {
	calls int
	err   error
}

func (c *countingSolver) Solve(ctx context.Context, origin, destination orb.Point) (Solution, error) {
	c.calls++
	if c.err != nil {
		return Solution{}, c.err
	}
	return Solution{Path: orb.LineString{origin, destination}, TotalLength: 1}, nil
}

func TestCachingSolver(t *testing.T) {
	inner := &countingSolver{}
	c, err := NewCachingSolver(inner, 2)
	require.NoError(t, err)

	a, b, d := orb.Point{0, 0}, orb.Point{1, 1}, orb.Point{2, 2}
	ctx := context.Background()

	_, _ = c.Solve(ctx, a, b)
	_, _ = c.Solve(ctx, a, b)
	assert.Equal(t, 1, inner.calls)

	_, _ = c.Solve(ctx, b, a)
	assert.Equal(t, 2, inner.calls, "direction matters")

	_, _ = c.Solve(ctx, a, d)
	assert.Equal(t, 2, c.Len(), "evicts beyond capacity")

	inner.err = ErrNoRoute
	_, err = c.Solve(ctx, d, a)
	assert.ErrorIs(t, err, ErrNoRoute)
	assert.Equal(t, 2, c.Len(), "failures are not cached")
}
