package cache

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrCacheMiss indicates the requested key was not found in cache
	ErrCacheMiss = errors.New("cache miss")

	// ErrInvalidEntry indicates the cache entry is invalid or corrupted
	ErrInvalidEntry = errors.New("invalid cache entry")

	// ErrUnexpectedNotModified indicates a 304 for a request that carried
	// no validator.
	ErrUnexpectedNotModified = errors.New("304 Not Modified without a cached entry")
)

// Store is a document store holding at most one Entry per key.
// Implementations must be safe for concurrent use.
type Store interface {
	// Get returns the entry for key, ErrCacheMiss when there is none, or an
	// error wrapping ErrInvalidEntry when the stored document is unusable.
	Get(ctx context.Context, key string) (*Entry, error)

	// Put inserts or replaces the entry for key.
	Put(ctx context.Context, key string, entry *Entry) error

	// Delete removes the entry for key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Ping checks that the backend is reachable.
	Ping(ctx context.Context) error

	// Close releases the backend connection.
	Close() error
}

// StorageError reports a failure of the document store itself, as opposed to
// a network or API failure.
type StorageError struct {
	Backend string
	Op      string
	Key     string
	Err     error
}

// Error implements the error interface.
func (e *StorageError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("cache %s %s: %v", e.Backend, e.Op, e.Err)
	}
	return fmt.Sprintf("cache %s %s %q: %v", e.Backend, e.Op, e.Key, e.Err)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *StorageError) Unwrap() error {
	return e.Err
}

func storageErr(backend, op, key string, err error) error {
	return &StorageError{Backend: backend, Op: op, Key: key, Err: err}
}
