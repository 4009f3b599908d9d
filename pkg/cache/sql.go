package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

type sqlDialect string

const (
	dialectSQLite   sqlDialect = "sqlite"
	dialectPostgres sqlDialect = "postgres"
)

// SQLStore keeps entries in a cache_entries table on SQLite or Postgres.
type SQLStore struct {
	db      *sql.DB
	dialect sqlDialect
}

// OpenSQLite opens a SQLite-backed store. dsn can be a file path
// (e.g. /tmp/wanikani.db) or a SQLite DSN.
func OpenSQLite(ctx context.Context, dsn string) (*SQLStore, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		dsn = "wanikani-cache.db"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, storageErr(string(dialectSQLite), "open", "", err)
	}
	// SQLite allows one writer at a time
	db.SetMaxOpenConns(1)
	return newSQLStore(ctx, db, dialectSQLite)
}

// OpenPostgres opens a Postgres-backed store.
func OpenPostgres(ctx context.Context, dsn string) (*SQLStore, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return nil, storageErr(string(dialectPostgres), "open", "", errors.New("postgres dsn is required"))
	}
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, storageErr(string(dialectPostgres), "open", "", err)
	}
	return newSQLStore(ctx, db, dialectPostgres)
}

func newSQLStore(ctx context.Context, db *sql.DB, dialect sqlDialect) (*SQLStore, error) {
	s := &SQLStore{db: db, dialect: dialect}
	if err := s.init(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLStore) init(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return storageErr(s.backend(), "open", "", fmt.Errorf("ping: %w", err))
	}

	ddl := `
CREATE TABLE IF NOT EXISTS cache_entries (
	cache_key TEXT PRIMARY KEY,
	url TEXT NOT NULL,
	payload TEXT NOT NULL,
	etag TEXT NOT NULL DEFAULT '',
	last_modified TEXT NOT NULL DEFAULT '',
	fetched_at TIMESTAMP NOT NULL
);`
	if s.dialect == dialectPostgres {
		ddl = strings.Replace(ddl, "TIMESTAMP", "TIMESTAMPTZ", 1)
	}

	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return storageErr(s.backend(), "open", "", fmt.Errorf("initialize schema: %w", err))
	}
	return nil
}

func (s *SQLStore) backend() string {
	return string(s.dialect)
}

// Get retrieves a cache entry by key.
func (s *SQLStore) Get(ctx context.Context, key string) (entry *Entry, err error) {
	defer func() { recordGet(s.backend(), err) }()

	var (
		e       Entry
		payload string
	)
	row := s.db.QueryRowContext(ctx, s.bind(`
SELECT cache_key, url, payload, etag, last_modified, fetched_at
FROM cache_entries WHERE cache_key = ?`), key)
	err = row.Scan(&e.Key, &e.URL, &payload, &e.ETag, &e.LastModified, &e.FetchedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, storageErr(s.backend(), "get", key, err)
	}
	e.Payload = []byte(payload)
	if err := e.check(); err != nil {
		return nil, err
	}
	return &e, nil
}

// Put inserts or replaces the entry for key.
func (s *SQLStore) Put(ctx context.Context, key string, entry *Entry) (err error) {
	defer func() { recordPut(s.backend(), err) }()

	if entry == nil {
		return storageErr(s.backend(), "put", key, errors.New("cache entry cannot be nil"))
	}
	fetchedAt := entry.FetchedAt
	if fetchedAt.IsZero() {
		fetchedAt = time.Now()
	}

	_, err = s.db.ExecContext(ctx, s.bind(`
INSERT INTO cache_entries (cache_key, url, payload, etag, last_modified, fetched_at)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT (cache_key) DO UPDATE SET
	url = excluded.url,
	payload = excluded.payload,
	etag = excluded.etag,
	last_modified = excluded.last_modified,
	fetched_at = excluded.fetched_at`),
		key, entry.URL, string(entry.Payload), entry.ETag, entry.LastModified, fetchedAt.UTC(),
	)
	if err != nil {
		return storageErr(s.backend(), "put", key, err)
	}
	return nil
}

// Delete removes a cache entry.
func (s *SQLStore) Delete(ctx context.Context, key string) (err error) {
	defer func() { recordDelete(s.backend(), err) }()

	if _, err := s.db.ExecContext(ctx, s.bind(`DELETE FROM cache_entries WHERE cache_key = ?`), key); err != nil {
		return storageErr(s.backend(), "delete", key, err)
	}
	return nil
}

// Ping checks the database connection.
func (s *SQLStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return storageErr(s.backend(), "ping", "", err)
	}
	return nil
}

// Close closes the database.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

// bind rewrites ? placeholders to $n for Postgres.
func (s *SQLStore) bind(query string) string {
	if s.dialect != dialectPostgres {
		return query
	}
	var (
		b      strings.Builder
		argNum = 1
	)
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			b.WriteString(fmt.Sprintf("$%d", argNum))
			argNum++
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}
