// Package nhlapi provides a retrying HTTP client for the public NHL
// statistics APIs, with error classification, per-class backoff, and typed
// endpoint accessors.
package nhlapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"

	"github.com/pucklines/nhl-ingest/pkg/logging"
)

// Prometheus metrics for NHL API operations.
var (
	nhlRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nhl_requests_total",
		Help: "Total NHL API requests by endpoint and status",
	}, []string{"endpoint", "status"})

	nhlRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "nhl_request_duration_seconds",
		Help:    "NHL API request duration in seconds by endpoint",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10},
	}, []string{"endpoint"})

	nhlErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nhl_errors_total",
		Help: "Total NHL API errors by class",
	}, []string{"class"})

	nhlRetriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nhl_retries_total",
		Help: "Total number of retry attempts by error class",
	}, []string{"error_class"})

	nhlRetryBackoffSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "nhl_retry_backoff_seconds",
		Help:    "Backoff duration for retries by error class",
		Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60},
	}, []string{"error_class"})

	nhlRetryExhaustedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nhl_retry_exhausted_total",
		Help: "Total number of times retry attempts were exhausted by error class",
	}, []string{"error_class"})
)

// Config holds the client configuration.
type Config struct {
	// StatsBaseURL is the base URL of the stats REST API (team list, player
	// summary reports).
	StatsBaseURL string

	// WebBaseURL is the base URL of the web API (player landing documents).
	WebBaseURL string

	// MaxAttempts is the total number of attempts per request, including the
	// first one.
	MaxAttempts int

	// Timeout is the per-request HTTP timeout.
	Timeout time.Duration
}

// DefaultConfig returns a configuration pointing at the production NHL APIs.
func DefaultConfig() Config {
	return Config{
		StatsBaseURL: "https://api.nhle.com",
		WebBaseURL:   "https://api-web.nhle.com",
		MaxAttempts:  3,
		Timeout:      30 * time.Second,
	}
}

// Client is a retrying NHL API client. It is safe for concurrent use, though
// the scraper funnels all calls through the rate-limited scheduler anyway.
type Client struct {
	httpClient *http.Client
	cfg        Config
	logger     zerolog.Logger

	// sleep waits for the given backoff or fails early on context
	// cancellation. Replaced in tests to avoid real waits.
	sleep func(ctx context.Context, d time.Duration) error
}

// New creates a new NHL API client.
func New(cfg Config) *Client {
	def := DefaultConfig()
	if cfg.StatsBaseURL == "" {
		cfg.StatsBaseURL = def.StatsBaseURL
	}
	if cfg.WebBaseURL == "" {
		cfg.WebBaseURL = def.WebBaseURL
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = def.MaxAttempts
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}

	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		cfg:        cfg,
		logger:     logging.NewLogger("nhl-api"),
		sleep:      sleepContext,
	}
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}

func sleepContext(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

// getJSON performs a GET with classified retries and decodes the response
// body into v. Rate-limit responses (429/503) back off exponentially, other
// 5xx linearly; remaining statuses fail immediately. Transport-level errors
// are permanent: with no status to classify there is no retry budget worth
// spending on them.
func (c *Client) getJSON(ctx context.Context, rawURL string, v any) error {
	endpoint := rawURL
	if u, err := url.Parse(rawURL); err == nil {
		endpoint = u.Path
	}

	start := time.Now()
	defer func() {
		nhlRequestDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	}()

	var lastErr error

	for attempt := 0; attempt < c.cfg.MaxAttempts; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			nhlRequestsTotal.WithLabelValues(endpoint, "network_error").Inc()
			c.logger.Error().Err(err).Str("endpoint", endpoint).Msg("HTTP request failed")
			return fmt.Errorf("get %s: %w", rawURL, err)
		}

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			nhlRequestsTotal.WithLabelValues(endpoint, fmt.Sprintf("%d", resp.StatusCode)).Inc()
			err := json.NewDecoder(resp.Body).Decode(v)
			resp.Body.Close()
			if err != nil {
				return fmt.Errorf("decode %s: %w", rawURL, err)
			}
			if attempt > 0 {
				c.logger.Info().
					Str("endpoint", endpoint).
					Int("attempt", attempt+1).
					Msg("Request succeeded after retry")
			}
			return nil
		}

		resp.Body.Close()

		class := classifyStatus(resp.StatusCode)
		nhlErrorsTotal.WithLabelValues(string(class)).Inc()
		nhlRequestsTotal.WithLabelValues(endpoint, fmt.Sprintf("%d", resp.StatusCode)).Inc()

		apiErr := &APIError{StatusCode: resp.StatusCode, Class: class, URL: rawURL}

		if !shouldRetry(class) {
			c.logger.Warn().
				Str("endpoint", endpoint).
				Int("status", resp.StatusCode).
				Msg("Permanent NHL API error")
			return apiErr
		}

		lastErr = apiErr

		// No backoff after the final attempt.
		if attempt == c.cfg.MaxAttempts-1 {
			break
		}

		backoff := backoffFor(class, attempt)
		nhlRetriesTotal.WithLabelValues(string(class)).Inc()
		nhlRetryBackoffSeconds.WithLabelValues(string(class)).Observe(backoff.Seconds())

		c.logger.Warn().
			Str("endpoint", endpoint).
			Int("status", resp.StatusCode).
			Str("error_class", string(class)).
			Int("attempt", attempt+1).
			Int("max_attempts", c.cfg.MaxAttempts).
			Dur("backoff", backoff).
			Msg("Retrying request after backoff")

		if err := c.sleep(ctx, backoff); err != nil {
			return fmt.Errorf("backoff interrupted: %w", err)
		}
	}

	nhlRetryExhaustedTotal.WithLabelValues(string(lastErr.(*APIError).Class)).Inc()
	c.logger.Warn().
		Str("endpoint", endpoint).
		Int("max_attempts", c.cfg.MaxAttempts).
		Msg("Retry attempts exhausted")

	return fmt.Errorf("%w for %s: %v", ErrRetryExhausted, rawURL, lastErr)
}

// Teams fetches the full team list, including defunct franchises.
func (c *Client) Teams(ctx context.Context) ([]Team, error) {
	var out teamListResponse
	if err := c.getJSON(ctx, c.cfg.StatsBaseURL+"/stats/rest/en/team", &out); err != nil {
		return nil, err
	}
	return out.Data, nil
}

// PlayerSummaries fetches one page of the franchise player summary report for
// the given category.
func (c *Client) PlayerSummaries(ctx context.Context, category PlayerCategory, franchiseID, start, limit int) ([]PlayerSummary, error) {
	q := url.Values{}
	q.Set("cayenneExp", fmt.Sprintf("franchiseId=%d", franchiseID))
	q.Set("limit", fmt.Sprintf("%d", limit))
	q.Set("start", fmt.Sprintf("%d", start))

	u := fmt.Sprintf("%s/stats/rest/en/%s/summary?%s", c.cfg.StatsBaseURL, category, q.Encode())

	var out summaryResponse
	if err := c.getJSON(ctx, u, &out); err != nil {
		return nil, err
	}
	return out.Data, nil
}

// PlayerLanding fetches the detailed landing document for one player.
func (c *Client) PlayerLanding(ctx context.Context, playerID int) (*PlayerLanding, error) {
	u := fmt.Sprintf("%s/v1/player/%d/landing", c.cfg.WebBaseURL, playerID)

	var out PlayerLanding
	if err := c.getJSON(ctx, u, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
