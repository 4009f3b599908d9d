package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/Sternrassler/wanikani-client/pkg/client"
	"github.com/Sternrassler/wanikani-client/pkg/logging"
	"github.com/rs/zerolog"
)

// Fetcher sends one request to the API. *client.Client implements it.
type Fetcher interface {
	Do(ctx context.Context, r client.Request) (*client.Response, error)
}

// Status tells how a Fetch result was obtained.
type Status string

const (
	// StatusFresh means the server sent a new payload, which was stored.
	StatusFresh Status = "fresh"

	// StatusNotModified means the server confirmed the stored payload.
	StatusNotModified Status = "not_modified"
)

// Result is the outcome of a Fetch.
type Result struct {
	Entry  *Entry
	Status Status
}

// Payload returns the response body.
func (r *Result) Payload() json.RawMessage {
	return r.Entry.Payload
}

// Adapter mediates between the API client and a Store.
type Adapter struct {
	fetcher Fetcher
	store   Store
	scope   string
	logger  zerolog.Logger
	now     func() time.Time
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithScope sets the key scope. By default the fetcher's token fingerprint
// is used when it exposes one.
func WithScope(scope string) Option {
	return func(a *Adapter) { a.scope = scope }
}

// WithLogger sets the adapter logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(a *Adapter) { a.logger = logger }
}

// WithClock sets the clock used for FetchedAt.
func WithClock(now func() time.Time) Option {
	return func(a *Adapter) { a.now = now }
}

// NewAdapter creates a cache adapter. The store is owned by the caller.
func NewAdapter(fetcher Fetcher, store Store, opts ...Option) *Adapter {
	if fetcher == nil || store == nil {
		panic("cache adapter needs a fetcher and a store")
	}
	a := &Adapter{
		fetcher: fetcher,
		store:   store,
		logger:  logging.NewLogger(logging.ComponentCache),
		now:     time.Now,
	}
	if fp, ok := fetcher.(interface{ Fingerprint() string }); ok {
		a.scope = fp.Fingerprint()
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Store returns the underlying store.
func (a *Adapter) Store() Store {
	return a.store
}

// Key returns the cache key for an endpoint and its query parameters.
func (a *Adapter) Key(endpoint string, params url.Values) string {
	return CacheKey{Endpoint: endpoint, Params: params, Scope: a.scope}.String()
}

// Fetch returns the response for endpoint and params, revalidating any
// stored entry with a conditional request. It always contacts the server.
//
// Store failures are returned as *StorageError and API failures as the
// client's error types, unchanged.
func (a *Adapter) Fetch(ctx context.Context, endpoint string, params url.Values) (*Result, error) {
	key := a.Key(endpoint, params)

	// Step 1: Look up the stored entry
	cached, err := a.store.Get(ctx, key)
	switch {
	case err == nil:
	case errors.Is(err, ErrCacheMiss):
		cached = nil
	case errors.Is(err, ErrInvalidEntry):
		a.logger.Warn().Err(err).Str("key", key).Msg("Discarding unreadable cache entry")
		cached = nil
	default:
		return nil, err
	}

	// Step 2: Request, conditionally when we hold a validator
	req := client.Request{Path: endpoint, Query: params}
	if cached != nil {
		req.Validator = cached.Validator()
	}
	resp, err := a.fetcher.Do(ctx, req)
	if err != nil {
		return nil, err
	}

	// Step 3: Unchanged, serve the stored payload without writing
	if resp.NotModified() {
		if cached == nil || req.Validator.IsZero() {
			return nil, fmt.Errorf("%w: %s", ErrUnexpectedNotModified, key)
		}
		NotModifiedResponses.Inc()
		a.logger.Debug().Str("key", key).Msg("Cache entry revalidated")
		return &Result{Entry: cached, Status: StatusNotModified}, nil
	}

	// Step 4: Changed or new, upsert
	entry := &Entry{
		Key:          key,
		URL:          resp.URL,
		Payload:      resp.Body,
		ETag:         resp.Validator.ETag,
		LastModified: resp.Validator.LastModified,
		FetchedAt:    a.now(),
	}
	if err := a.store.Put(ctx, key, entry); err != nil {
		return nil, err
	}
	a.logger.Debug().
		Str("key", key).
		Bool("replaced", cached != nil).
		Msg("Cache entry stored")

	return &Result{Entry: entry, Status: StatusFresh}, nil
}

// Lookup reads the stored entry without contacting the server. It returns
// ErrCacheMiss when nothing is stored. Fetch never falls back to it.
func (a *Adapter) Lookup(ctx context.Context, endpoint string, params url.Values) (*Entry, error) {
	return a.store.Get(ctx, a.Key(endpoint, params))
}

// Invalidate removes the stored entry for endpoint and params.
func (a *Adapter) Invalidate(ctx context.Context, endpoint string, params url.Values) error {
	return a.store.Delete(ctx, a.Key(endpoint, params))
}
