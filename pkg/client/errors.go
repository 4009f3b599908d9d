package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// Common errors returned by the client.
var (
	// ErrUnauthorized matches API errors caused by a missing, invalid or
	// revoked token (401, 403).
	ErrUnauthorized = errors.New("invalid or unauthorized token")

	// ErrRateLimited matches 429 responses and requests refused locally
	// because the server-reported rate limit window is exhausted.
	ErrRateLimited = errors.New("rate limit exceeded")

	// ErrNotFound matches 404 responses.
	ErrNotFound = errors.New("resource not found")
)

// ErrorClass represents a classification of failed requests.
type ErrorClass string

const (
	// ErrorClassClient represents 4xx client errors other than auth and rate limit.
	ErrorClassClient ErrorClass = "client"

	// ErrorClassAuth represents 401 and 403 responses.
	ErrorClassAuth ErrorClass = "auth"

	// ErrorClassRateLimit represents 429 responses.
	ErrorClassRateLimit ErrorClass = "rate_limit"

	// ErrorClassServer represents 5xx server errors.
	ErrorClassServer ErrorClass = "server"

	// ErrorClassNetwork represents transport failures.
	ErrorClassNetwork ErrorClass = "network"

	// ErrorClassParse represents undecodable response bodies.
	ErrorClassParse ErrorClass = "parse"
)

// classifyStatus maps an HTTP status code to its error class.
func classifyStatus(status int) ErrorClass {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return ErrorClassAuth
	case status == http.StatusTooManyRequests:
		return ErrorClassRateLimit
	case status >= 400 && status < 500:
		return ErrorClassClient
	case status >= 500:
		return ErrorClassServer
	default:
		return ErrorClassClient
	}
}

// APIError is returned for any response that is neither a success nor a
// 304. The body is kept verbatim.
type APIError struct {
	StatusCode int
	Class      ErrorClass
	Message    string
	URL        string
	Body       []byte
}

// newAPIError builds an APIError, taking the message from WaniKani's
// {"error": "...", "code": N} body when there is one.
func newAPIError(status int, url string, body []byte) *APIError {
	msg := http.StatusText(status)
	var payload struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Error != "" {
		msg = payload.Error
	}
	return &APIError{
		StatusCode: status,
		Class:      classifyStatus(status),
		Message:    msg,
		URL:        url,
		Body:       body,
	}
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("wanikani %s error (status %d): %s", e.Class, e.StatusCode, e.Message)
}

// Is lets errors.Is match the class sentinels.
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrUnauthorized:
		return e.Class == ErrorClassAuth
	case ErrRateLimited:
		return e.Class == ErrorClassRateLimit
	case ErrNotFound:
		return e.StatusCode == http.StatusNotFound
	}
	return false
}

// NetworkError wraps a transport-level failure. It is never retried by the
// client; callers decide.
type NetworkError struct {
	Method string
	URL    string
	Err    error
}

// Error implements the error interface.
func (e *NetworkError) Error() string {
	return fmt.Sprintf("wanikani network error: %s %s: %v", e.Method, e.URL, e.Err)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *NetworkError) Unwrap() error {
	return e.Err
}

// Temporary reports that the failure is transient.
func (e *NetworkError) Temporary() bool {
	return true
}

// ParseError is returned when a response body is not valid JSON or lacks
// the fields every WaniKani envelope carries.
type ParseError struct {
	URL  string
	Body []byte
	Err  error
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	if e.URL == "" {
		return fmt.Sprintf("wanikani parse error: %v", e.Err)
	}
	return fmt.Sprintf("wanikani parse error: %s: %v", e.URL, e.Err)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *ParseError) Unwrap() error {
	return e.Err
}

// Class returns the error class of err, or "" when err is not one of the
// client's error types.
func Class(err error) ErrorClass {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Class
	}
	var netErr *NetworkError
	if errors.As(err, &netErr) {
		return ErrorClassNetwork
	}
	var parseErr *ParseError
	if errors.As(err, &parseErr) {
		return ErrorClassParse
	}
	if errors.Is(err, ErrRateLimited) {
		return ErrorClassRateLimit
	}
	return ""
}
