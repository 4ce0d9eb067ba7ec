// Package catalog is the HTTP client for the external movie catalog (TMDB).
// Every call is bounded by a timeout, an outbound rate limit and a circuit breaker.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/oggyb/movie-rating/internal/config"
	"github.com/oggyb/movie-rating/internal/metrics"
)

const breakerName = "tmdb-api"

var (
	ErrNotConfigured = errors.New("movie catalog API key not configured")
	ErrNotFound      = errors.New("movie not found in catalog")
)

// StatusError is a non-2xx catalog response.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("catalog responded with status %d", e.Code)
}

type Client struct {
	http    *http.Client
	baseURL string
	apiKey  string
	limiter *rate.Limiter
	cb      *gobreaker.CircuitBreaker[[]byte]
	log     *slog.Logger
}

func New(cfg *config.Config, log *slog.Logger) *Client {
	limit := rate.Inf
	burst := 1
	if cfg.Catalog.RateLimit > 0 {
		limit = rate.Limit(cfg.Catalog.RateLimit)
		burst = int(math.Max(1, math.Ceil(cfg.Catalog.RateLimit)))
	}

	metrics.CircuitBreakerState.WithLabelValues(breakerName).Set(0)

	c := &Client{
		http:    &http.Client{Timeout: cfg.Catalog.Timeout},
		baseURL: cfg.Catalog.BaseURL,
		apiKey:  cfg.Catalog.APIKey,
		limiter: rate.NewLimiter(limit, burst),
		log:     log,
	}

	c.cb = gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        breakerName,
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 10 {
				return counts.ConsecutiveFailures >= 5
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= 0.6
		},
		// A 404 or a caller that gave up says nothing about catalog health.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrNotFound) || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			c.log.Warn("catalog circuit breaker state change", "from", from.String(), "to", to.String())
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, from.String(), to.String()).Inc()
		},
	})

	return c
}

// Configured reports whether an API key is present.
func (c *Client) Configured() bool { return c.apiKey != "" }

// Movie fetches details for one catalog id. Unknown ids return ErrNotFound.
func (c *Client) Movie(ctx context.Context, id int64) (*MovieDetails, error) {
	var out MovieDetails
	if err := c.getJSON(ctx, "movie", "/movie/"+strconv.FormatInt(id, 10), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Search runs a free-text title search.
func (c *Client) Search(ctx context.Context, query string, page int) (*Page, error) {
	q := url.Values{}
	q.Set("query", query)
	q.Set("page", strconv.Itoa(page))

	var out Page
	if err := c.getJSON(ctx, "search", "/search/movie", q, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Popular(ctx context.Context, page int) (*Page, error) {
	return c.list(ctx, "popular", "/movie/popular", page)
}

func (c *Client) NowPlaying(ctx context.Context, page int) (*Page, error) {
	return c.list(ctx, "now_playing", "/movie/now_playing", page)
}

func (c *Client) list(ctx context.Context, endpoint, path string, page int) (*Page, error) {
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))

	var out Page
	if err := c.getJSON(ctx, endpoint, path, q, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) getJSON(ctx context.Context, endpoint, path string, q url.Values, dst any) error {
	body, err := c.get(ctx, endpoint, path, q)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return fmt.Errorf("decode catalog %s response: %w", endpoint, err)
	}
	return nil
}

func (c *Client) get(ctx context.Context, endpoint, path string, q url.Values) ([]byte, error) {
	if !c.Configured() {
		return nil, ErrNotConfigured
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("catalog rate limit: %w", err)
	}

	start := time.Now()
	body, err := c.cb.Execute(func() ([]byte, error) {
		return c.do(ctx, path, q)
	})
	metrics.RecordCatalogRequest(endpoint, time.Since(start), err)

	if err != nil {
		c.log.Debug("catalog request failed", "endpoint", endpoint, "err", err)
		return nil, err
	}
	return body, nil
}

func (c *Client) do(ctx context.Context, path string, q url.Values) ([]byte, error) {
	if q == nil {
		q = url.Values{}
	}
	q.Set("api_key", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build catalog request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "MovieRatingApp/1.0")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("catalog request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("read catalog response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrNotFound
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, &StatusError{Code: resp.StatusCode}
	}
	return body, nil
}

func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}
