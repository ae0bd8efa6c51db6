package routing

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"deliverysim/internal/util"

	json "github.com/goccy/go-json"
	"github.com/paulmach/orb"
)

const defaultORSBaseURL = "https://api.openrouteservice.org"

// ORSSolver solves routes with the OpenRouteService directions API.
// It is safe for concurrent use.
type ORSSolver struct {
	session *http.Client
	apiKey  string
	baseURL string
	profile string
	logger  *slog.Logger
}

type httpStatusError struct {
	Code int
	Body string
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("code %d: %s", e.Code, e.Body)
}

func NewORSSolver(apiKey, baseURL string, logger *slog.Logger) (*ORSSolver, error) {
	if apiKey == "" {
		return nil, errors.New("ORS api key is empty")
	}
	if baseURL == "" {
		baseURL = defaultORSBaseURL
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &ORSSolver{
		session: &http.Client{Timeout: 10 * time.Second},
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		profile: "driving-car",
		logger:  logger,
	}, nil
}

type directionsRequest struct {
	Coordinates [][2]float64 `json:"coordinates"`
}

type directionsResponse struct {
	Routes []struct {
		Summary struct {
			Distance float64 `json:"distance"`
			Duration float64 `json:"duration"`
		} `json:"summary"`
		Geometry string `json:"geometry"`
	} `json:"routes"`
}

func (o *ORSSolver) Solve(ctx context.Context, origin, destination orb.Point) (Solution, error) {
	start := time.Now()

	payload, err := json.Marshal(directionsRequest{
		Coordinates: [][2]float64{{origin.Lon(), origin.Lat()}, {destination.Lon(), destination.Lat()}},
	})
	if err != nil {
		return Solution{}, fmt.Errorf("encode directions request: %w", err)
	}

	url := fmt.Sprintf("%s/v2/directions/%s", o.baseURL, o.profile)
	resp, err := o.doWithRetry(ctx, func() (*http.Request, error) {
		return o.newRequest(ctx, http.MethodPost, url, bytes.NewReader(payload))
	})
	if err != nil {
		var he *httpStatusError
		if errors.As(err, &he) && he.Code == http.StatusNotFound {
			return Solution{}, fmt.Errorf("%w: %v", ErrNoRoute, err)
		}
		return Solution{}, fmt.Errorf("ORS directions: %w", err)
	}
	defer resp.Body.Close()

	var body directionsResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Solution{}, fmt.Errorf("decode directions response: %w", err)
	}
	if len(body.Routes) == 0 {
		return Solution{}, ErrNoRoute
	}

	r := body.Routes[0]
	path, err := util.DecodePolyline(r.Geometry)
	if err != nil {
		return Solution{}, fmt.Errorf("decode route geometry: %w", err)
	}

	o.logger.Debug("ORS route solved",
		"points", len(path), "meters", r.Summary.Distance, "took", time.Since(start))

	return Solution{
		Path:          path,
		TotalLength:   r.Summary.Distance,
		TotalDuration: time.Duration(r.Summary.Duration * float64(time.Second)),
	}, nil
}

func (o *ORSSolver) newRequest(ctx context.Context, method, url string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Authorization", o.apiKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

func (o *ORSSolver) do(req *http.Request) (*http.Response, error) {
	resp, err := o.session.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		b, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, &httpStatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(b))}
	}
	return resp, nil
}

// doWithRetry retries network errors, 429 and 5xx responses with exponential
// backoff until ctx is done
func (o *ORSSolver) doWithRetry(ctx context.Context, makeReq func() (*http.Request, error)) (*http.Response, error) {
	const maxAttempts = 4
	backoff := 200 * time.Millisecond

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		req, err := makeReq()
		if err != nil {
			return nil, fmt.Errorf("make request: %w", err)
		}

		resp, err := o.do(req)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		retry := false
		var he *httpStatusError
		if errors.As(err, &he) {
			switch he.Code {
			case 429, 500, 502, 503, 504:
				retry = true
			}
		}
		var netErr net.Error
		if !retry && errors.As(err, &netErr) {
			retry = true
		}

		if !retry || attempt == maxAttempts {
			return nil, lastErr
		}

		o.logger.Debug("retrying ORS request", "attempt", attempt, "backoff", backoff, "err", err)
		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
		backoff *= 2
	}

	return nil, lastErr
}
