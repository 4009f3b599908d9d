package cache

import (
	"net/url"
	"strings"
)

// KeyPrefix starts every cache key.
const KeyPrefix = "wanikani"

// CacheKey represents a unique identifier for a cached WaniKani response.
type CacheKey struct {
	// Endpoint is the path relative to the API root (e.g., "subjects/440")
	Endpoint string

	// Params are the query parameters (e.g., {"levels": "1,2"})
	Params url.Values

	// Scope is the token fingerprint. Empty for unscoped keys.
	Scope string
}

// String generates a deterministic cache key string.
// Format: wanikani:endpoint?encoded-query:scope=fingerprint
//
// The endpoint is path-escaped with ':' escaped as well, and the query is
// the escaped url.Values encoding (names sorted, repeated values in order),
// so distinct requests never share a key.
//
// Example:
//
//	wanikani:assignments?subject_types=kanji:scope=9f2c6a0d41b7e3aa
func (k CacheKey) String() string {
	var b strings.Builder
	b.WriteString(KeyPrefix)

	endpoint := strings.Trim(k.Endpoint, "/")
	if endpoint != "" {
		b.WriteByte(':')
		b.WriteString(escapeEndpoint(endpoint))
	}

	if len(k.Params) > 0 {
		b.WriteByte('?')
		b.WriteString(k.Params.Encode())
	}

	if k.Scope != "" {
		b.WriteString(":scope=")
		b.WriteString(k.Scope)
	}

	return b.String()
}

func escapeEndpoint(endpoint string) string {
	escaped := (&url.URL{Path: endpoint}).EscapedPath()
	return strings.ReplaceAll(escaped, ":", "%3A")
}
