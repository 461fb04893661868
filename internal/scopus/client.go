package scopus

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/AUMikkel/survey-scripts/internal/logging"
)

const (
	// BaseURL is the Elsevier API base URL.
	BaseURL = "https://api.elsevier.com"

	// DefaultTimeout is the default HTTP request timeout.
	DefaultTimeout = 60 * time.Second

	// DefaultRequestDelay is the minimum pause between two requests.
	DefaultRequestDelay = time.Second

	// MaxAttempts is the number of attempts made for one request.
	MaxAttempts = 3

	// RetryDelay is the fixed pause between attempts of one request.
	RetryDelay = 5 * time.Second

	// DefaultPageSize is the number of entries requested per search page.
	DefaultPageSize = 25

	// maxErrorBody bounds how much of an error body is kept in APIError.
	maxErrorBody = 200
)

// Client is a rate-limited HTTP client for the Scopus APIs.
//
// Every attempt, successful or not, is followed by the configured request
// delay before the next attempt starts. Requests are serialized by the
// limiter; a Client is meant to be driven by a single harvest loop.
type Client struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	apiKey     string
	baseURL    string
	pageSize   int
	retryDelay time.Duration
	logger     zerolog.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithAPIKey sets the API key sent as X-ELS-APIKey.
func WithAPIKey(key string) ClientOption {
	return func(c *Client) {
		c.apiKey = key
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithBaseURL sets a custom base URL (for testing).
func WithBaseURL(url string) ClientOption {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(url, "/")
	}
}

// WithPageSize sets the number of entries requested per search page.
func WithPageSize(n int) ClientOption {
	return func(c *Client) {
		if n > 0 {
			c.pageSize = n
		}
	}
}

// WithRequestDelay sets the minimum pause between requests.
// A zero delay disables pacing.
func WithRequestDelay(d time.Duration) ClientOption {
	return func(c *Client) {
		c.limiter = newLimiter(d)
	}
}

// WithRetryDelay overrides the pause between attempts (for testing).
func WithRetryDelay(d time.Duration) ClientOption {
	return func(c *Client) {
		c.retryDelay = d
	}
}

// WithLogger sets the logger used for request diagnostics.
func WithLogger(l zerolog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = l
	}
}

// NewClient creates a new Scopus API client.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: DefaultTimeout},
		limiter:    newLimiter(DefaultRequestDelay),
		baseURL:    BaseURL,
		pageSize:   DefaultPageSize,
		retryDelay: RetryDelay,
		logger:     logging.NewLogger("scopus"),
	}

	// Check for API key in environment
	if key := os.Getenv("SCOPUS_API_KEY"); key != "" {
		c.apiKey = key
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

func newLimiter(delay time.Duration) *rate.Limiter {
	if delay <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(delay), 1)
}

// pace empties the limiter as of now. rate.Limiter has no reset, so a
// fresh one is drained instead.
func (c *Client) pace() {
	c.limiter = rate.NewLimiter(c.limiter.Limit(), 1)
	c.limiter.Allow()
}

// PageSize returns the number of entries requested per search page.
func (c *Client) PageSize() int {
	return c.pageSize
}

// Get issues an authenticated GET and returns the response body.
//
// Non-success statuses and transport errors are retried up to MaxAttempts
// times, RetryDelay apart. When every attempt fails the returned error wraps
// ErrRetryExhausted and the last cause. Only context cancellation ends the
// loop early.
func (c *Client) Get(ctx context.Context, rawURL string, header http.Header) ([]byte, error) {
	var lastErr error
	for attempt := 1; attempt <= MaxAttempts; attempt++ {
		body, err := c.do(ctx, rawURL, header)
		if err == nil {
			requestsTotal.WithLabelValues("success").Inc()
			if attempt > 1 {
				c.logger.Info().Str("url", rawURL).Int("attempt", attempt).Msg("request succeeded after retry")
			}
			return body, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}

		lastErr = err
		requestsTotal.WithLabelValues("failure").Inc()
		c.logger.Warn().
			Err(err).
			Str("url", rawURL).
			Int("status_code", StatusCode(err)).
			Int("attempt", attempt).
			Int("max_attempts", MaxAttempts).
			Msg("request failed")

		if attempt == MaxAttempts {
			break
		}

		retriesTotal.Inc()
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(c.retryDelay):
		}
	}

	retryExhaustedTotal.Inc()
	return nil, fmt.Errorf("%w after %d attempts: %w", ErrRetryExhausted, MaxAttempts, lastErr)
}

// do performs a single attempt. It waits for the limiter's single token,
// and restarts the limiter empty once the attempt completes, so the next
// attempt starts one delay after this one finished.
func (c *Client) do(ctx context.Context, rawURL string, header http.Header) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}
	defer c.pace()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("X-ELS-APIKey", c.apiKey)
	}

	c.logger.Debug().Str("url", rawURL).Msg("request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNetworkError, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading body: %v", ErrNetworkError, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := strings.TrimSpace(string(body))
		if len(msg) > maxErrorBody {
			msg = msg[:maxErrorBody]
		}
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Message:    msg,
			URL:        rawURL,
		}
	}

	return body, nil
}
