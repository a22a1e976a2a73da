// Package client provides the sec-api.io HTTP client with retry, pacing and
// optional response caching.
package client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Sternrassler/sec-api-client/pkg/cache"
	"github.com/Sternrassler/sec-api-client/pkg/logging"
	"github.com/Sternrassler/sec-api-client/pkg/ratelimit"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	// Version is reported in the default User-Agent.
	Version = "0.1.0"

	// DefaultBaseURL is the sec-api.io API root.
	DefaultBaseURL = "https://api.sec-api.io"

	// DefaultUserAgent identifies this library.
	DefaultUserAgent = "sec-api-client/" + Version

	// DefaultTimeout bounds a single HTTP request.
	DefaultTimeout = 10 * time.Second

	// APIKeyEnvVar is consulted when no API key is configured.
	APIKeyEnvVar = "SECAPIO_API_KEY"

	// processingBody is what the extractor returns while a filing is still
	// being parsed on the server side.
	processingBody = "processing"

	// errorBodyLimit bounds how much of an error body ends up in messages.
	errorBodyLimit = 256
)

// Prometheus metrics for client operations.
var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "secapi_requests_total",
		Help: "Total sec-api.io requests by endpoint and status",
	}, []string{"endpoint", "status"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "secapi_request_duration_seconds",
		Help:    "sec-api.io request duration in seconds by endpoint",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
	}, []string{"endpoint"})

	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "secapi_errors_total",
		Help: "Total sec-api.io errors by class",
	}, []string{"class"})
)

// ErrorClass represents a classification of HTTP errors.
type ErrorClass string

const (
	// ErrorClassClient represents 4xx client errors other than 429.
	ErrorClassClient ErrorClass = "client"

	// ErrorClassServer represents 5xx server errors.
	ErrorClassServer ErrorClass = "server"

	// ErrorClassRateLimit represents 429 Too Many Requests.
	ErrorClassRateLimit ErrorClass = "rate_limit"

	// ErrorClassNetwork represents network/timeout errors.
	ErrorClassNetwork ErrorClass = "network"
)

// Client talks to the sec-api.io query and extractor APIs.
type Client struct {
	httpClient  *http.Client
	baseURL     *url.URL
	rateLimiter *ratelimit.Tracker
	cache       *cache.Manager
	config      Config
	logger      zerolog.Logger
}

// Config holds the client configuration.
type Config struct {
	// APIKey authenticates every call. Falls back to SECAPIO_API_KEY.
	APIKey string

	// BaseURL of the API (default https://api.sec-api.io)
	BaseURL string

	// UserAgent header sent with every request
	UserAgent string

	// Timeout per HTTP request
	Timeout time.Duration

	// Retry
	Retry RetryConfig

	// Redis enables the extractor response cache and shares 429 cooldowns
	// between processes. Optional.
	Redis    *redis.Client
	CacheTTL time.Duration

	// Pacing
	RequestsPerSecond float64 // Zero disables local pacing
	Burst             int
}

// DefaultConfig returns a safe default configuration.
func DefaultConfig(apiKey string) Config {
	return Config{
		APIKey:            apiKey,
		BaseURL:           DefaultBaseURL,
		UserAgent:         DefaultUserAgent,
		Timeout:           DefaultTimeout,
		Retry:             DefaultRetryConfig(),
		CacheTTL:          cache.DefaultTTL,
		RequestsPerSecond: 10,
		Burst:             10,
	}
}

// ResolveAPIKey returns value when it is non-blank, else the SECAPIO_API_KEY
// environment variable, else ErrAPIKeyNotSet.
func ResolveAPIKey(value string) (string, error) {
	if key := strings.TrimSpace(value); key != "" {
		return key, nil
	}
	if key := strings.TrimSpace(os.Getenv(APIKeyEnvVar)); key != "" {
		return key, nil
	}
	return "", fmt.Errorf("%w: no value provided and the environment variable %s is also not set",
		ErrAPIKeyNotSet, APIKeyEnvVar)
}

// New creates a new sec-api.io client.
func New(cfg Config) (*Client, error) {
	apiKey, err := ResolveAPIKey(cfg.APIKey)
	if err != nil {
		return nil, err
	}
	cfg.APIKey = apiKey

	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	baseURL, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if baseURL.Scheme != "http" && baseURL.Scheme != "https" {
		return nil, fmt.Errorf("base url must be http or https (got %q)", cfg.BaseURL)
	}

	if cfg.Timeout < 0 {
		return nil, fmt.Errorf("timeout must be >= 0 (got %v)", cfg.Timeout)
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	if cfg.Retry == (RetryConfig{}) {
		cfg.Retry = DefaultRetryConfig()
	}
	if err := cfg.Retry.Validate(); err != nil {
		return nil, fmt.Errorf("retry config: %w", err)
	}

	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = cache.DefaultTTL
	}

	logger := logging.NewLogger(logging.ComponentClient)

	rateLimiter := ratelimit.NewTracker(cfg.Redis, ratelimit.Config{
		RequestsPerSecond: cfg.RequestsPerSecond,
		Burst:             cfg.Burst,
	}, logger)

	var cacheManager *cache.Manager
	if cfg.Redis != nil {
		cacheManager = cache.NewManager(cfg.Redis)
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		baseURL:     baseURL,
		rateLimiter: rateLimiter,
		cache:       cacheManager,
		config:      cfg,
		logger:      logger,
	}, nil
}

// Do performs an HTTP request with pacing, caching, retry and error
// classification. Non-2xx responses are returned as *APIError; the response
// body has been consumed in that case.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	endpoint := req.URL.Path
	if endpoint == "" {
		endpoint = "/"
	}

	startTime := time.Now()
	defer func() {
		requestDuration.WithLabelValues(endpoint).Observe(time.Since(startTime).Seconds())
	}()

	// Step 1: Check Cache
	cacheable := c.cache != nil && req.Method == http.MethodGet
	cacheKey := cache.CacheKey{
		Endpoint:    endpoint,
		QueryParams: req.URL.Query(),
	}
	if cacheable {
		entry, err := c.cache.Get(ctx, cacheKey)
		switch {
		case err == nil:
			c.logger.Debug().Str("endpoint", endpoint).Msg("Serving response from cache")
			requestsTotal.WithLabelValues(endpoint, "cache_hit").Inc()
			return cache.EntryToResponse(entry), nil
		case !errors.Is(err, cache.ErrCacheMiss):
			c.logger.Warn().Err(err).Str("endpoint", endpoint).Msg("Cache get error")
		}
	}

	// Step 2: Set headers
	req.Header.Set("User-Agent", c.config.UserAgent)
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "*/*")
	}

	c.logger.Debug().
		Str("endpoint", endpoint).
		Str("method", req.Method).
		Msg("Executing sec-api.io request")

	// Step 3: Execute with pacing and retry
	var resp *http.Response
	retryErr := retryWithBackoff(ctx, c.config.Retry, c.logger, func() error {
		if err := c.rateLimiter.Wait(ctx); err != nil {
			return err
		}

		attempt, err := c.attemptRequest(req)
		if err != nil {
			return err
		}

		var reqErr error
		resp, reqErr = c.httpClient.Do(attempt)
		if reqErr != nil {
			resp = nil
			if ctx.Err() != nil {
				return ctx.Err()
			}
			reqErr = redactError(reqErr)
			c.logger.Error().Err(reqErr).Str("endpoint", endpoint).Msg("HTTP request failed")
			errorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
			requestsTotal.WithLabelValues(endpoint, "network_error").Inc()
			return &APIError{
				ErrorClass: ErrorClassNetwork,
				Message:    "request failed",
				Err:        reqErr,
			}
		}

		if err := c.rateLimiter.UpdateFromResponse(ctx, resp); err != nil {
			c.logger.Warn().Err(err).Msg("Failed to update rate limit state")
		}

		if resp.StatusCode >= 400 {
			apiErr := c.responseError(resp)
			resp = nil
			errorsTotal.WithLabelValues(string(apiErr.ErrorClass)).Inc()
			requestsTotal.WithLabelValues(endpoint, strconv.Itoa(apiErr.StatusCode)).Inc()

			c.logger.Warn().
				Str("endpoint", endpoint).
				Int("status", apiErr.StatusCode).
				Str("error_class", string(apiErr.ErrorClass)).
				Msg("sec-api.io request error")
			return apiErr
		}

		requestsTotal.WithLabelValues(endpoint, strconv.Itoa(resp.StatusCode)).Inc()
		return nil
	})
	if retryErr != nil {
		return nil, retryErr
	}

	// Step 4: Update Cache on success
	if cacheable && resp.StatusCode == http.StatusOK {
		c.storeResponse(ctx, cacheKey, resp)
	}

	return resp, nil
}

// attemptRequest returns a request that can be sent once, rewinding the body
// for retries.
func (c *Client) attemptRequest(req *http.Request) (*http.Request, error) {
	attempt := req.Clone(req.Context())
	if req.GetBody != nil {
		body, err := req.GetBody()
		if err != nil {
			return nil, fmt.Errorf("rewind request body: %w", err)
		}
		attempt.Body = body
	}
	return attempt, nil
}

// responseError converts a >= 400 response into an APIError and closes its body.
func (c *Client) responseError(resp *http.Response) *APIError {
	defer resp.Body.Close()
	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyLimit))

	message := resp.Status
	if text := strings.TrimSpace(string(snippet)); text != "" {
		message = fmt.Sprintf("%s: %s", resp.Status, text)
	}

	apiErr := &APIError{
		StatusCode: resp.StatusCode,
		ErrorClass: c.classifyError(resp, nil),
		Message:    message,
	}
	if apiErr.ErrorClass == ErrorClassRateLimit {
		apiErr.RetryAfter, _ = ratelimit.RetryAfter(resp.Header)
	}
	return apiErr
}

// storeResponse caches a successful response unless the API reported that
// the extraction is still in progress.
func (c *Client) storeResponse(ctx context.Context, key cache.CacheKey, resp *http.Response) {
	entry, err := cache.ResponseToEntry(resp, c.config.CacheTTL)
	if err != nil {
		c.logger.Warn().Err(err).Msg("Failed to create cache entry")
		return
	}
	if isProcessing(entry.Data) {
		c.logger.Debug().Str("endpoint", key.Endpoint).Msg("Extraction still processing, not caching")
		return
	}
	if err := c.cache.Set(ctx, key, entry); err != nil {
		c.logger.Warn().Err(err).Msg("Failed to cache response")
		return
	}
	c.logger.Debug().
		Str("endpoint", key.Endpoint).
		Dur("ttl", entry.TTL()).
		Msg("Cached response")
}

// classifyError categorizes an error for observability and handling.
func (c *Client) classifyError(resp *http.Response, err error) ErrorClass {
	if err != nil {
		return ErrorClassNetwork
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return ErrorClassRateLimit
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return ErrorClassClient
	case resp.StatusCode >= 500:
		return ErrorClassServer
	default:
		return ""
	}
}

// endpointURL resolves path against the base URL and attaches query.
func (c *Client) endpointURL(path string, query url.Values) string {
	u := *c.baseURL
	u.Path = strings.TrimRight(u.Path, "/") + path
	u.RawQuery = query.Encode()
	return u.String()
}

// Close releases idle connections.
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

// GetCache returns the response cache, or nil when no Redis is configured.
func (c *Client) GetCache() *cache.Manager {
	return c.cache
}

func isProcessing(body []byte) bool {
	return bytes.EqualFold(bytes.TrimSpace(body), []byte(processingBody))
}

// redactError strips the API token from URLs embedded in transport errors.
func redactError(err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		urlErr.URL = redactToken(urlErr.URL)
	}
	return err
}

func redactToken(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	q := u.Query()
	if q.Get("token") == "" {
		return raw
	}
	q.Set("token", "REDACTED")
	u.RawQuery = q.Encode()
	return u.String()
}
