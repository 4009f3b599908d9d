// Package testutil provides testing utilities for the WaniKani client.
package testutil

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"time"
)

// APIPrefix is the path prefix the mock serves the API under.
const APIPrefix = "/v2"

// MockResponse defines the behavior for a mock endpoint response.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// RecordedRequest is a request as seen by the mock server.
type RecordedRequest struct {
	Method string
	Path   string
	Query  string
	Header http.Header
	Body   []byte
}

// MockWaniKani is a configurable mock WaniKani server for testing.
type MockWaniKani struct {
	server   *httptest.Server
	mu       sync.RWMutex
	handlers map[string]func(w http.ResponseWriter, r *http.Request)
	token    string

	// Tracking
	RequestCount     int
	ConditionalCount int
	Requests         []RecordedRequest
}

// NewMockWaniKani creates a new mock WaniKani server.
func NewMockWaniKani() *MockWaniKani {
	mock := &MockWaniKani{
		handlers: make(map[string]func(w http.ResponseWriter, r *http.Request)),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)

		mock.mu.Lock()
		mock.RequestCount++
		mock.Requests = append(mock.Requests, RecordedRequest{
			Method: r.Method,
			Path:   r.URL.Path,
			Query:  r.URL.RawQuery,
			Header: r.Header.Clone(),
			Body:   body,
		})

		// Track conditional requests
		if r.Header.Get("If-None-Match") != "" || r.Header.Get("If-Modified-Since") != "" {
			mock.ConditionalCount++
		}
		token := mock.token
		handler, exists := mock.handlers[r.Method+" "+r.URL.Path]
		if !exists {
			handler, exists = mock.handlers[r.URL.Path]
		}
		mock.mu.Unlock()

		if token != "" && r.Header.Get("Authorization") != "Bearer "+token {
			writeJSON(w, http.StatusUnauthorized, `{"error":"Unauthorized. Nice try.","code":401}`)
			return
		}

		if exists {
			handler(w, r)
			return
		}

		writeJSON(w, http.StatusNotFound, `{"error":"Not found","code":404}`)
	}))

	return mock
}

// URL returns the mock server URL.
func (m *MockWaniKani) URL() string {
	return m.server.URL
}

// BaseURL returns the API root to configure a client with.
func (m *MockWaniKani) BaseURL() string {
	return m.server.URL + APIPrefix
}

// Close shuts down the mock server.
func (m *MockWaniKani) Close() {
	m.server.Close()
}

// Reset clears all tracking counters.
func (m *MockWaniKani) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RequestCount = 0
	m.ConditionalCount = 0
	m.Requests = nil
}

// RequireToken makes every request without "Authorization: Bearer token"
// fail with 401.
func (m *MockWaniKani) RequireToken(token string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = token
}

// SetHandler sets a custom handler for an API path such as "/subjects".
// Prefix the path with a method ("PUT /user") to match only that method.
func (m *MockWaniKani) SetHandler(path string, handler func(w http.ResponseWriter, r *http.Request)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[apiPath(path)] = handler
}

// SetResponse configures a simple response for a path.
func (m *MockWaniKani) SetResponse(path string, resp MockResponse) {
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		if resp.Delay > 0 {
			time.Sleep(resp.Delay)
		}
		for key, value := range resp.Headers {
			w.Header().Set(key, value)
		}
		w.WriteHeader(resp.StatusCode)
		if resp.Body != "" {
			w.Write([]byte(resp.Body))
		}
	})
}

// GetRequestCount returns the number of requests made to the server.
func (m *MockWaniKani) GetRequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.RequestCount
}

// GetConditionalCount returns the number of conditional requests.
func (m *MockWaniKani) GetConditionalCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.ConditionalCount
}

// LastRequest returns the most recent request, or the zero value.
func (m *MockWaniKani) LastRequest() RecordedRequest {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if len(m.Requests) == 0 {
		return RecordedRequest{}
	}
	return m.Requests[len(m.Requests)-1]
}

// apiPath prefixes a path with APIPrefix, keeping an optional method.
func apiPath(path string) string {
	for i := 0; i < len(path); i++ {
		if path[i] == ' ' {
			return path[:i+1] + APIPrefix + path[i+1:]
		}
	}
	return APIPrefix + path
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	w.Write([]byte(body))
}

// VersionedResource serves a body that changes over time, answering 304 to
// requests carrying its current ETag or a matching If-Modified-Since.
type VersionedResource struct {
	mu       sync.Mutex
	version  int
	body     string
	modified time.Time
}

// NewVersionedResource creates a resource at version 1.
func NewVersionedResource(body string) *VersionedResource {
	return &VersionedResource{
		version:  1,
		body:     body,
		modified: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

// Update replaces the body and bumps the version.
func (v *VersionedResource) Update(body string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.version++
	v.body = body
	v.modified = v.modified.Add(time.Hour)
}

// ETag returns the current entity tag.
func (v *VersionedResource) ETag() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.etag()
}

func (v *VersionedResource) etag() string {
	return `W/"v` + strconv.Itoa(v.version) + `"`
}

// ServeHTTP implements http.Handler.
func (v *VersionedResource) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	v.mu.Lock()
	etag, body, modified := v.etag(), v.body, v.modified
	v.mu.Unlock()

	w.Header().Set("RateLimit-Limit", "60")
	w.Header().Set("RateLimit-Remaining", "59")
	w.Header().Set("RateLimit-Reset", strconv.FormatInt(time.Now().Add(time.Minute).Unix(), 10))

	if r.Header.Get("If-None-Match") == etag {
		w.Header().Set("ETag", etag)
		w.WriteHeader(http.StatusNotModified)
		return
	}
	if r.Header.Get("If-None-Match") == "" {
		if t, err := http.ParseTime(r.Header.Get("If-Modified-Since")); err == nil && !modified.After(t) {
			w.WriteHeader(http.StatusNotModified)
			return
		}
	}

	w.Header().Set("ETag", etag)
	w.Header().Set("Last-Modified", modified.Format(http.TimeFormat))
	writeJSON(w, http.StatusOK, body)
}

// NewHealthyResponse creates a standard 200 OK response.
func NewHealthyResponse(data string) MockResponse {
	return MockResponse{
		StatusCode: http.StatusOK,
		Body:       data,
		Headers: map[string]string{
			"RateLimit-Limit":     "60",
			"RateLimit-Remaining": "59",
			"RateLimit-Reset":     strconv.FormatInt(time.Now().Add(time.Minute).Unix(), 10),
			"ETag":                `W/"test-etag-123"`,
			"Content-Type":        "application/json; charset=utf-8",
		},
	}
}

// NewNotModifiedResponse creates a 304 Not Modified response.
func NewNotModifiedResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusNotModified,
		Headers: map[string]string{
			"RateLimit-Limit":     "60",
			"RateLimit-Remaining": "58",
			"RateLimit-Reset":     strconv.FormatInt(time.Now().Add(time.Minute).Unix(), 10),
		},
	}
}

// NewRateLimitResponse creates a 429 Too Many Requests response with an
// exhausted window.
func NewRateLimitResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusTooManyRequests,
		Body:       `{"error":"Rate limit exceeded","code":429}`,
		Headers: map[string]string{
			"RateLimit-Limit":     "60",
			"RateLimit-Remaining": "0",
			"RateLimit-Reset":     strconv.FormatInt(time.Now().Add(30*time.Second).Unix(), 10),
			"Content-Type":        "application/json; charset=utf-8",
		},
	}
}

// NewServerErrorResponse creates a 500 Internal Server Error response.
func NewServerErrorResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusInternalServerError,
		Body:       `{"error":"Internal server error","code":500}`,
		Headers: map[string]string{
			"Content-Type": "application/json; charset=utf-8",
		},
	}
}

// NewMalformedResponse creates a 200 response whose body is not JSON.
func NewMalformedResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusOK,
		Body:       `{"object": "user", "data": `,
		Headers: map[string]string{
			"Content-Type": "application/json; charset=utf-8",
		},
	}
}

// Resource renders a single resource envelope.
func Resource(object, path string, id int, data string) string {
	if id == 0 {
		return fmt.Sprintf(`{"object":%q,"url":"https://api.wanikani.com/v2/%s","data_updated_at":"2024-01-01T00:00:00.000000Z","data":%s}`,
			object, path, data)
	}
	return fmt.Sprintf(`{"id":%d,"object":%q,"url":"https://api.wanikani.com/v2/%s/%d","data_updated_at":"2024-01-01T00:00:00.000000Z","data":%s}`,
		id, object, path, id, data)
}

// Collection renders a collection envelope. next is the absolute next_url
// or "" for the last page.
func Collection(path string, next string, total int, items ...string) string {
	nextURL := "null"
	if next != "" {
		nextURL = strconv.Quote(next)
	}
	data := "["
	for i, item := range items {
		if i > 0 {
			data += ","
		}
		data += item
	}
	data += "]"
	return fmt.Sprintf(`{"object":"collection","url":"https://api.wanikani.com/v2/%s","pages":{"per_page":500,"next_url":%s,"previous_url":null},"total_count":%d,"data_updated_at":"2024-01-01T00:00:00.000000Z","data":%s}`,
		path, nextURL, total, data)
}
