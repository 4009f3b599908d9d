// Package pagination walks WaniKani collections page by page.
//
// WaniKani collections are cursor paginated: every page carries
// pages.next_url, and the last page has none. Pages can therefore only be
// fetched one after the other. Each page goes through the cache adapter and
// is stored and revalidated as its own entry.
//
// Example usage:
//
//	walker := pagination.NewWalker(adapter, apiClient, pagination.DefaultConfig())
//	items, err := walker.Collect(ctx, "subjects", url.Values{"levels": {"1"}})
//
// The walker:
//   - Fetches the first page with the caller's parameters
//   - Resolves next_url back into an endpoint and query
//   - Stops at the last page, on the first error, or at MaxPages
//   - Refuses a next_url it has already visited
package pagination
