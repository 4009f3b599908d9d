package cache

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/redis/go-redis/v9"
)

// DefaultURI is the store used when none is configured.
const DefaultURI = "redis://localhost:6379/0"

// Open connects to the store named by uri and checks that it is reachable.
// The scheme selects the backend; see the package documentation.
func Open(ctx context.Context, uri string) (Store, error) {
	if uri == "" {
		uri = DefaultURI
	}
	u, err := url.Parse(uri)
	if err != nil {
		return nil, fmt.Errorf("parse store uri: %w", err)
	}

	switch u.Scheme {
	case "redis", "rediss":
		opts, err := redis.ParseURL(uri)
		if err != nil {
			return nil, fmt.Errorf("parse redis uri: %w", err)
		}
		store := NewRedisStore(redis.NewClient(opts))
		if err := store.Ping(ctx); err != nil {
			_ = store.Close()
			return nil, err
		}
		return store, nil

	case "leveldb":
		path := strings.TrimPrefix(uri, "leveldb://")
		if path == "" {
			return nil, fmt.Errorf("leveldb store uri needs a path")
		}
		return OpenLevelDB(path)

	case "sqlite":
		return OpenSQLite(ctx, strings.TrimPrefix(uri, "sqlite://"))

	case "postgres", "postgresql":
		return OpenPostgres(ctx, uri)

	case "memory":
		return NewMemoryStore(), nil

	default:
		return nil, fmt.Errorf("unsupported store scheme %q", u.Scheme)
	}
}

// Backend returns the backend name of a store opened by this package.
func Backend(s Store) string {
	switch st := s.(type) {
	case *RedisStore:
		return backendRedis
	case *LevelDBStore:
		return backendLevelDB
	case *SQLStore:
		return st.backend()
	case *MemoryStore:
		return backendMemory
	default:
		return "custom"
	}
}
