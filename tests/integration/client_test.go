//go:build integration

package integration

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/Sternrassler/wanikani-client/internal/testutil"
	"github.com/Sternrassler/wanikani-client/pkg/cache"
	"github.com/Sternrassler/wanikani-client/pkg/client"
	"github.com/Sternrassler/wanikani-client/pkg/ratelimit"
	"github.com/Sternrassler/wanikani-client/pkg/wanikani"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	testToken = "integration-token"
	userData  = `{"id":"5a6a5234-a392-4a87-8f3f-33342afe8a42","username":"tester","level":4}`
)

// setupRedis creates a Redis container for integration testing.
func setupRedis(t *testing.T) (*redis.Client, func()) {
	t.Helper()

	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections"),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("Failed to start Redis container: %v", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}

	port, err := container.MappedPort(ctx, "6379")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr: host + ":" + port.Port(),
	})

	cleanup := func() {
		redisClient.Close()
		container.Terminate(ctx)
	}

	return redisClient, cleanup
}

// stack is one process worth of wiring against a shared Redis.
type stack struct {
	client  *client.Client
	store   *cache.RedisStore
	adapter *cache.Adapter
	session *wanikani.Session
}

func newStack(t *testing.T, redisClient *redis.Client, mock *testutil.MockWaniKani) *stack {
	t.Helper()

	cfg := client.DefaultConfig(testToken)
	cfg.BaseURL = mock.BaseURL()
	cfg.RateLimiter = ratelimit.NewTracker(redisClient, client.Fingerprint(testToken), zerolog.Nop())

	c, err := client.New(cfg)
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}

	store := cache.NewRedisStore(redisClient)
	adapter := cache.NewAdapter(c, store)
	return &stack{client: c, store: store, adapter: adapter, session: wanikani.NewSession(c, adapter)}
}

// TestFullRequestFlow tests the complete flow: rate limit gate, store lookup,
// request, store upsert, then a conditional request answered with 304.
func TestFullRequestFlow(t *testing.T) {
	redisClient, cleanup := setupRedis(t)
	defer cleanup()

	mock := testutil.NewMockWaniKani()
	defer mock.Close()
	mock.RequireToken(testToken)
	mock.SetHandler("/user", testutil.NewVersionedResource(testutil.Resource("user", "user", 0, userData)).ServeHTTP)

	s := newStack(t, redisClient, mock)
	ctx := context.Background()

	// Request 1: nothing stored, unconditional
	user, err := s.session.User(ctx)
	if err != nil {
		t.Fatalf("First request failed: %v", err)
	}
	if user.Data.Username != "tester" {
		t.Errorf("Expected username tester, got %q", user.Data.Username)
	}
	if mock.GetConditionalCount() != 0 {
		t.Errorf("First request must not be conditional")
	}

	key := s.adapter.Key("user", nil)
	ttl, err := redisClient.TTL(ctx, key).Result()
	if err != nil {
		t.Fatalf("TTL: %v", err)
	}
	if ttl != -1 {
		t.Errorf("Cache entries must not expire, got TTL %v", ttl)
	}

	// Request 2: stored, conditional, 304
	res, err := s.session.Fetch(ctx, "user", nil)
	if err != nil {
		t.Fatalf("Second request failed: %v", err)
	}
	if res.Status != cache.StatusNotModified {
		t.Errorf("Expected not_modified, got %s", res.Status)
	}
	if mock.GetRequestCount() != 2 || mock.GetConditionalCount() != 1 {
		t.Errorf("Expected 2 requests, 1 conditional; got %d, %d", mock.GetRequestCount(), mock.GetConditionalCount())
	}

	// Rate limit state from the response headers landed in Redis
	state, err := ratelimit.NewTracker(redisClient, client.Fingerprint(testToken), zerolog.Nop()).GetState(ctx)
	if err != nil {
		t.Fatalf("GetState: %v", err)
	}
	if state.Remaining != 59 {
		t.Errorf("Expected remaining 59, got %d", state.Remaining)
	}
}

// TestChangedResourceReplacesEntry tests that a 200 on revalidation
// overwrites the single stored entry.
func TestChangedResourceReplacesEntry(t *testing.T) {
	redisClient, cleanup := setupRedis(t)
	defer cleanup()

	mock := testutil.NewMockWaniKani()
	defer mock.Close()
	res := testutil.NewVersionedResource(testutil.Resource("user", "user", 0, userData))
	mock.SetHandler("/user", res.ServeHTTP)

	s := newStack(t, redisClient, mock)
	ctx := context.Background()

	if _, err := s.session.User(ctx); err != nil {
		t.Fatal(err)
	}
	res.Update(testutil.Resource("user", "user", 0, `{"id":"5a6a5234-a392-4a87-8f3f-33342afe8a42","username":"tester","level":5}`))

	user, err := s.session.User(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if user.Data.Level != 5 {
		t.Errorf("Expected level 5 after change, got %d", user.Data.Level)
	}

	entry, err := s.store.Get(ctx, s.adapter.Key("user", nil))
	if err != nil {
		t.Fatal(err)
	}
	if entry.ETag != res.ETag() {
		t.Errorf("Stored ETag = %q, want %q", entry.ETag, res.ETag())
	}

	keys, err := redisClient.Keys(ctx, cache.KeyPrefix+":user*").Result()
	if err != nil {
		t.Fatal(err)
	}
	if len(keys) != 1 {
		t.Errorf("Expected one entry for user, got %v", keys)
	}
}

// TestSharedCacheAcrossProcesses tests that a second client on the same
// Redis revalidates the first client's entry instead of downloading again.
func TestSharedCacheAcrossProcesses(t *testing.T) {
	redisClient, cleanup := setupRedis(t)
	defer cleanup()

	mock := testutil.NewMockWaniKani()
	defer mock.Close()
	mock.SetHandler("/summary", testutil.NewVersionedResource(
		testutil.Resource("report", "summary", 0, `{"lessons":[],"reviews":[],"next_reviews_at":null}`)).ServeHTTP)

	ctx := context.Background()
	if _, err := newStack(t, redisClient, mock).session.Summary(ctx); err != nil {
		t.Fatal(err)
	}
	if _, err := newStack(t, redisClient, mock).session.Summary(ctx); err != nil {
		t.Fatal(err)
	}

	if mock.GetConditionalCount() != 1 {
		t.Errorf("Expected the second process to revalidate, got %d conditional requests", mock.GetConditionalCount())
	}
}

// TestPaginationThroughRedis tests that every collection page is its own
// entry and is revalidated on the next walk.
func TestPaginationThroughRedis(t *testing.T) {
	redisClient, cleanup := setupRedis(t)
	defer cleanup()

	mock := testutil.NewMockWaniKani()
	defer mock.Close()
	base := mock.BaseURL() + "/subjects"
	kanji := func(id int) string { return testutil.Resource("kanji", "subjects", id, `{"level":1}`) }
	first := testutil.NewVersionedResource(testutil.Collection("subjects", base+"?page_after_id=2", 3, kanji(1), kanji(2)))
	second := testutil.NewVersionedResource(testutil.Collection("subjects", "", 3, kanji(3)))
	mock.SetHandler("/subjects", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("page_after_id") == "" {
			first.ServeHTTP(w, r)
			return
		}
		second.ServeHTTP(w, r)
	})

	s := newStack(t, redisClient, mock)
	ctx := context.Background()

	for round := 1; round <= 2; round++ {
		subjects, err := s.session.Subjects(ctx, wanikani.SubjectFilter{})
		if err != nil {
			t.Fatalf("Round %d: %v", round, err)
		}
		if len(subjects) != 3 {
			t.Errorf("Round %d: expected 3 subjects, got %d", round, len(subjects))
		}
	}

	if mock.GetRequestCount() != 4 || mock.GetConditionalCount() != 2 {
		t.Errorf("Expected 4 requests, 2 conditional; got %d, %d", mock.GetRequestCount(), mock.GetConditionalCount())
	}
}

// TestRateLimitBlock tests that an exhausted window reported to one client
// makes every client with the same token refuse requests locally.
func TestRateLimitBlock(t *testing.T) {
	redisClient, cleanup := setupRedis(t)
	defer cleanup()

	mock := testutil.NewMockWaniKani()
	defer mock.Close()
	mock.SetResponse("/user", testutil.NewRateLimitResponse())

	ctx := context.Background()
	_, err := newStack(t, redisClient, mock).session.User(ctx)
	if !errors.Is(err, client.ErrRateLimited) {
		t.Fatalf("Expected ErrRateLimited from the server, got %v", err)
	}

	// This request should be blocked before reaching the API
	_, err = newStack(t, redisClient, mock).session.User(ctx)
	if !errors.Is(err, client.ErrRateLimited) {
		t.Errorf("Expected local ErrRateLimited, got %v", err)
	}
	if mock.GetRequestCount() != 1 {
		t.Errorf("Expected 1 request to the API, got %d", mock.GetRequestCount())
	}
}

// TestNoRetryServerErrors tests that a 5xx fails once and leaves the stored
// entry untouched.
func TestNoRetryServerErrors(t *testing.T) {
	redisClient, cleanup := setupRedis(t)
	defer cleanup()

	mock := testutil.NewMockWaniKani()
	defer mock.Close()
	mock.SetHandler("/user", testutil.NewVersionedResource(testutil.Resource("user", "user", 0, userData)).ServeHTTP)

	s := newStack(t, redisClient, mock)
	ctx := context.Background()

	first, err := s.session.Fetch(ctx, "user", nil)
	if err != nil {
		t.Fatal(err)
	}

	mock.SetResponse("/user", testutil.NewServerErrorResponse())
	mock.Reset()

	_, err = s.session.User(ctx)
	if client.Class(err) != client.ErrorClassServer {
		t.Fatalf("Expected server error, got %v", err)
	}
	if mock.GetRequestCount() != 1 {
		t.Errorf("Expected exactly 1 request (no retries), got %d", mock.GetRequestCount())
	}

	entry, err := s.session.Lookup(ctx, "user", nil)
	if err != nil {
		t.Fatal(err)
	}
	if entry.ETag != first.Entry.ETag || string(entry.Payload) != string(first.Entry.Payload) {
		t.Error("Stored entry changed after a failed request")
	}
}

// TestStoreUnavailable tests that a store failure surfaces as a StorageError
// without contacting the API.
func TestStoreUnavailable(t *testing.T) {
	redisClient, cleanup := setupRedis(t)
	defer cleanup()

	mock := testutil.NewMockWaniKani()
	defer mock.Close()
	mock.SetResponse("/user", testutil.NewHealthyResponse(testutil.Resource("user", "user", 0, userData)))

	// The tracker keeps its own connection so only the store fails.
	cfg := client.DefaultConfig(testToken)
	cfg.BaseURL = mock.BaseURL()
	c, err := client.New(cfg)
	if err != nil {
		t.Fatal(err)
	}
	broken := redis.NewClient(&redis.Options{Addr: redisClient.Options().Addr})
	broken.Close()
	adapter := cache.NewAdapter(c, cache.NewRedisStore(broken))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err = adapter.Fetch(ctx, "user", nil)
	var storageErr *cache.StorageError
	if !errors.As(err, &storageErr) {
		t.Fatalf("Expected StorageError, got %v", err)
	}
	if mock.GetRequestCount() != 0 {
		t.Errorf("Expected no API request, got %d", mock.GetRequestCount())
	}
}
