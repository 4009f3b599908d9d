// Package client provides the WaniKani HTTP client: authenticated requests
// to the v2 API, conditional request headers, envelope parsing and typed
// errors. It does no caching of its own; see package cache.
package client

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Sternrassler/wanikani-client/pkg/logging"
	"github.com/Sternrassler/wanikani-client/pkg/ratelimit"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
	"lukechampine.com/blake3"
)

const (
	// DefaultBaseURL is the WaniKani v2 API root.
	DefaultBaseURL = "https://api.wanikani.com/v2"

	// DefaultRevision is the API revision sent in Wanikani-Revision.
	DefaultRevision = "20170710"

	// DefaultUserAgent identifies this library.
	DefaultUserAgent = "wanikani-client/0.2.0"
)

// Prometheus metrics for WaniKani client operations.
var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wanikani_requests_total",
		Help: "Total WaniKani requests by endpoint and status",
	}, []string{"endpoint", "status"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "wanikani_request_duration_seconds",
		Help:    "WaniKani request duration in seconds by endpoint",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10},
	}, []string{"endpoint"})

	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wanikani_errors_total",
		Help: "Total WaniKani errors by class",
	}, []string{"class"})

	conditionalRequestsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "wanikani_conditional_requests_total",
		Help: "Total requests sent with If-None-Match or If-Modified-Since",
	})
)

// Client is the WaniKani API client.
type Client struct {
	httpClient  *http.Client
	baseURL     *url.URL
	rateLimiter *ratelimit.Tracker
	config      Config
	fingerprint string
	logger      zerolog.Logger
}

// Config holds the client configuration.
type Config struct {
	// Token is the personal API token (REQUIRED).
	Token string

	// BaseURL is the API root, DefaultBaseURL unless testing.
	BaseURL string

	// Revision is sent as the Wanikani-Revision header.
	Revision string

	// UserAgent header.
	UserAgent string

	// Timeout bounds a whole request including reading the body.
	Timeout time.Duration

	// RateLimiter gates requests. When nil an in-memory tracker scoped to
	// the token is created.
	RateLimiter *ratelimit.Tracker

	// Transport is the base round tripper under the auth transport.
	// Nil means http.DefaultTransport.
	Transport http.RoundTripper
}

// DefaultConfig returns a default configuration for the given token.
func DefaultConfig(token string) Config {
	return Config{
		Token:     token,
		BaseURL:   DefaultBaseURL,
		Revision:  DefaultRevision,
		UserAgent: DefaultUserAgent,
		Timeout:   30 * time.Second,
	}
}

// New creates a new WaniKani client.
func New(cfg Config) (*Client, error) {
	if cfg.Token == "" {
		return nil, fmt.Errorf("api token is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Revision == "" {
		cfg.Revision = DefaultRevision
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("base url must be absolute (got %q)", cfg.BaseURL)
	}

	logger := logging.NewLogger(logging.ComponentClient)
	fingerprint := Fingerprint(cfg.Token)

	rateLimiter := cfg.RateLimiter
	if rateLimiter == nil {
		rateLimiter = ratelimit.NewTracker(nil, fingerprint, logger)
	}

	src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.Token})

	return &Client{
		httpClient: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: &oauth2.Transport{Source: src, Base: cfg.Transport},
		},
		baseURL:     base,
		rateLimiter: rateLimiter,
		config:      cfg,
		fingerprint: fingerprint,
		logger:      logger,
	}, nil
}

// Fingerprint returns a short, stable, non-reversible identifier for a
// token. Cache keys and rate limit state are scoped by it.
func Fingerprint(token string) string {
	sum := blake3.Sum256([]byte(token))
	return hex.EncodeToString(sum[:8])
}

// Request describes one API call.
type Request struct {
	// Method defaults to GET.
	Method string

	// Path is relative to the base URL, e.g. "subjects/440".
	Path string

	// Query parameters, forwarded unvalidated.
	Query url.Values

	// Validator from a previous response. Adds conditional headers when set.
	Validator Validator

	// Body is JSON-encoded when non-nil.
	Body any
}

// Response is a successful or not-modified API response.
type Response struct {
	StatusCode int
	URL        string

	// Body is the raw JSON body. Empty on 304.
	Body json.RawMessage

	// Validator is the new validator sent by the server.
	Validator Validator

	Header    http.Header
	FetchedAt time.Time
}

// Resource parses the body into its WaniKani envelope. A 304 has no body
// and yields a ParseError.
func (r *Response) Resource() (*Resource, error) {
	return ParseResource(r.URL, r.Body)
}

// NotModified reports whether the server answered 304.
func (r *Response) NotModified() bool {
	return r.StatusCode == http.StatusNotModified
}

// Do performs a request with rate limiting and error classification.
// It never retries.
func (c *Client) Do(ctx context.Context, r Request) (*Response, error) {
	method := r.Method
	if method == "" {
		method = http.MethodGet
	}
	target := c.URL(r.Path, r.Query)
	endpoint := EndpointLabel(r.Path)

	startTime := time.Now()
	defer func() {
		requestDuration.WithLabelValues(endpoint).Observe(time.Since(startTime).Seconds())
	}()

	// Step 1: Check rate limit
	allowed, wait, err := c.rateLimiter.ShouldAllowRequest(ctx)
	if err != nil {
		c.logger.Error().Err(err).Msg("Rate limit check failed")
		return nil, fmt.Errorf("rate limit check: %w", err)
	}
	if !allowed {
		requestsTotal.WithLabelValues(endpoint, "rate_limited").Inc()
		errorsTotal.WithLabelValues(string(ErrorClassRateLimit)).Inc()
		return nil, fmt.Errorf("%w: window resets in %s", ErrRateLimited, wait.Round(time.Second))
	}

	// Step 2: Build request
	var body io.Reader
	if r.Body != nil {
		encoded, err := json.Marshal(r.Body)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.config.UserAgent)
	req.Header.Set("Wanikani-Revision", c.config.Revision)
	if body != nil {
		req.Header.Set("Content-Type", "application/json; charset=utf-8")
	}

	// Step 3: Conditional headers
	if !r.Validator.IsZero() {
		r.Validator.Apply(req)
		conditionalRequestsTotal.Inc()
		c.logger.Debug().
			Str("endpoint", endpoint).
			Str("etag", r.Validator.ETag).
			Msg("Making conditional request")
	}

	// Step 4: Execute
	c.logger.Debug().
		Str("endpoint", endpoint).
		Str("method", method).
		Msg("Executing WaniKani request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error().Err(err).Str("endpoint", endpoint).Msg("HTTP request failed")
		errorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
		requestsTotal.WithLabelValues(endpoint, "network_error").Inc()
		return nil, &NetworkError{Method: method, URL: target, Err: err}
	}
	defer resp.Body.Close()

	if err := c.rateLimiter.UpdateFromHeaders(ctx, resp.Header); err != nil {
		c.logger.Warn().Err(err).Msg("Failed to update rate limit from headers")
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		errorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
		requestsTotal.WithLabelValues(endpoint, "network_error").Inc()
		return nil, &NetworkError{Method: method, URL: target, Err: fmt.Errorf("read body: %w", err)}
	}

	requestsTotal.WithLabelValues(endpoint, strconv.Itoa(resp.StatusCode)).Inc()

	// Step 5: Classify
	switch {
	case resp.StatusCode == http.StatusNotModified:
		c.logger.Debug().Str("endpoint", endpoint).Msg("304 Not Modified")
		return &Response{
			StatusCode: resp.StatusCode,
			URL:        target,
			Validator:  ValidatorFromHeader(resp.Header),
			Header:     resp.Header.Clone(),
			FetchedAt:  time.Now(),
		}, nil

	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		// Only well-formed JSON is required here; envelope checks happen
		// where the payload is typed.
		if !json.Valid(raw) {
			err := &ParseError{URL: target, Body: raw, Err: errors.New("invalid JSON")}
			errorsTotal.WithLabelValues(string(ErrorClassParse)).Inc()
			c.logger.Warn().Err(err).Str("endpoint", endpoint).Msg("Malformed WaniKani response")
			return nil, err
		}
		return &Response{
			StatusCode: resp.StatusCode,
			URL:        target,
			Body:       raw,
			Validator:  ValidatorFromHeader(resp.Header),
			Header:     resp.Header.Clone(),
			FetchedAt:  time.Now(),
		}, nil

	default:
		apiErr := newAPIError(resp.StatusCode, target, raw)
		errorsTotal.WithLabelValues(string(apiErr.Class)).Inc()
		c.logger.Warn().
			Str("endpoint", endpoint).
			Int("status", resp.StatusCode).
			Str("error_class", string(apiErr.Class)).
			Msg("WaniKani request error")
		return nil, apiErr
	}
}

// Get performs a GET request to an endpoint.
func (c *Client) Get(ctx context.Context, path string, query url.Values) (*Response, error) {
	return c.Do(ctx, Request{Path: path, Query: query})
}

// URL builds the absolute URL for a base-relative path.
func (c *Client) URL(path string, query url.Values) string {
	u := *c.baseURL
	u.Path = strings.TrimRight(u.Path, "/") + "/" + strings.TrimLeft(path, "/")
	u.RawQuery = query.Encode()
	return u.String()
}

// Resolve splits an absolute URL under the base URL, such as a collection's
// next_url, into a base-relative path and its query.
func (c *Client) Resolve(rawURL string) (string, url.Values, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", nil, fmt.Errorf("parse url: %w", err)
	}
	if u.Host != c.baseURL.Host {
		return "", nil, fmt.Errorf("url %q is not under %s", rawURL, c.baseURL)
	}
	basePath := strings.TrimRight(c.baseURL.Path, "/")
	if !strings.HasPrefix(u.Path, basePath+"/") {
		return "", nil, fmt.Errorf("url %q is not under %s", rawURL, c.baseURL)
	}
	return strings.TrimPrefix(u.Path, basePath+"/"), u.Query(), nil
}

// Fingerprint returns the token fingerprint of this client.
func (c *Client) Fingerprint() string {
	return c.fingerprint
}

// BaseURL returns the API root in use.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// Close releases idle connections.
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

// EndpointLabel collapses numeric path segments so that metric labels stay
// bounded: "subjects/440" becomes "subjects/{id}".
func EndpointLabel(path string) string {
	segments := strings.Split(strings.Trim(path, "/"), "/")
	for i, s := range segments {
		if s == "" {
			continue
		}
		if _, err := strconv.Atoi(s); err == nil {
			segments[i] = "{id}"
		}
	}
	return strings.Join(segments, "/")
}
