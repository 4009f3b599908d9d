// Package cache stores WaniKani responses in a document store and always
// revalidates them with conditional requests.
//
// The adapter never trusts a stored entry on its own. Every Fetch sends the
// request, carrying the stored ETag and Last-Modified values when an entry
// exists:
//
//   - 304 Not Modified: the stored payload is returned, nothing is written
//   - 200 OK: the entry is upserted and the fresh payload is returned
//
// # Basic Usage
//
//	store, err := cache.Open(ctx, "redis://localhost:6379/0")
//	if err != nil {
//		return err
//	}
//	defer store.Close()
//
//	c, _ := client.New(client.DefaultConfig(token))
//	adapter := cache.NewAdapter(c, store)
//
//	res, err := adapter.Fetch(ctx, "subjects/440", nil)
//	if err != nil {
//		return err
//	}
//	fmt.Println(res.Status, string(res.Payload()))
//
// # Stores
//
// Open selects a backend by URI scheme:
//
//   - redis://, rediss:// - RedisStore, one JSON document per key, no TTL
//   - leveldb://<path>    - LevelDBStore
//   - sqlite://<dsn>      - SQLStore on SQLite
//   - postgres://...      - SQLStore on Postgres
//   - memory://           - MemoryStore, for tests and one-shot tools
//
// Entries are never evicted. Every backend upserts, so there is at most one
// entry per key.
//
// # Keys
//
// Keys are derived from the escaped endpoint path and the escaped, sorted
// query parameters, scoped by a fingerprint of the API token:
//
//	wanikani:subjects?levels=1%2C2&types=kanji:scope=9f2c6a0d41b7e3aa
//
// # Metrics
//
//   - wanikani_cache_hits_total{backend}
//   - wanikani_cache_misses_total
//   - wanikani_cache_writes_total{backend}
//   - wanikani_cache_errors_total{backend,operation}
//   - wanikani_not_modified_total
package cache
