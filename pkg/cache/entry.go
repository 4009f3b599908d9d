package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Sternrassler/wanikani-client/pkg/client"
)

// Entry represents a cached WaniKani response.
type Entry struct {
	// Key is the cache key the entry is stored under.
	Key string `json:"key"`

	// URL is the request URL the payload was fetched from.
	URL string `json:"url"`

	// Payload is the response body.
	Payload json.RawMessage `json:"payload"`

	// ETag for conditional requests (If-None-Match)
	ETag string `json:"etag,omitempty"`

	// LastModified is the raw Last-Modified header (If-Modified-Since)
	LastModified string `json:"last_modified,omitempty"`

	// FetchedAt is when the payload was last downloaded.
	FetchedAt time.Time `json:"fetched_at"`
}

// Validator returns the conditional request validator of the entry.
func (e *Entry) Validator() client.Validator {
	return client.Validator{ETag: e.ETag, LastModified: e.LastModified}
}

// Resource parses the payload into its envelope.
func (e *Entry) Resource() (*client.Resource, error) {
	return client.ParseResource(e.URL, e.Payload)
}

func encodeEntry(e *Entry) ([]byte, error) {
	if e == nil {
		return nil, errors.New("cache entry cannot be nil")
	}
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("marshal cache entry: %w", err)
	}
	return data, nil
}

// decodeEntry rejects documents that cannot be served back to a caller.
func decodeEntry(data []byte) (*Entry, error) {
	var e Entry
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEntry, err)
	}
	if err := e.check(); err != nil {
		return nil, err
	}
	return &e, nil
}

func (e *Entry) check() error {
	if e.Key == "" {
		return fmt.Errorf("%w: missing key", ErrInvalidEntry)
	}
	if len(e.Payload) == 0 || !json.Valid(e.Payload) {
		return fmt.Errorf("%w: payload is not JSON", ErrInvalidEntry)
	}
	return nil
}
