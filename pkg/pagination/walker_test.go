package pagination

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"testing"

	"github.com/Sternrassler/wanikani-client/internal/testutil"
	"github.com/Sternrassler/wanikani-client/pkg/cache"
	"github.com/Sternrassler/wanikani-client/pkg/client"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	mock    *testutil.MockWaniKani
	client  *client.Client
	store   *cache.MemoryStore
	adapter *cache.Adapter
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	mock := testutil.NewMockWaniKani()
	t.Cleanup(mock.Close)

	cfg := client.DefaultConfig("token")
	cfg.BaseURL = mock.BaseURL()
	c, err := client.New(cfg)
	require.NoError(t, err)

	store := cache.NewMemoryStore()
	return &fixture{mock: mock, client: c, store: store, adapter: cache.NewAdapter(c, store)}
}

func subject(id int) string {
	return testutil.Resource("kanji", "subjects", id, `{"level":1}`)
}

// serveThreePages serves /subjects as three cursor pages.
func (f *fixture) serveThreePages() {
	base := f.mock.BaseURL() + "/subjects"
	pages := map[string]*testutil.VersionedResource{
		"":  testutil.NewVersionedResource(testutil.Collection("subjects", base+"?page_after_id=2", 5, subject(1), subject(2))),
		"2": testutil.NewVersionedResource(testutil.Collection("subjects", base+"?page_after_id=4", 5, subject(3), subject(4))),
		"4": testutil.NewVersionedResource(testutil.Collection("subjects", "", 5, subject(5))),
	}
	f.mock.SetHandler("/subjects", func(w http.ResponseWriter, r *http.Request) {
		pages[r.URL.Query().Get("page_after_id")].ServeHTTP(w, r)
	})
}

func TestWalk_FollowsNextURL(t *testing.T) {
	f := newFixture(t)
	f.serveThreePages()

	w := NewWalker(f.adapter, f.client, DefaultConfig())
	var numbers []int
	err := w.Walk(context.Background(), "subjects", nil, func(p *Page) error {
		numbers = append(numbers, p.Number)
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, numbers)
	assert.Equal(t, 3, f.mock.GetRequestCount())
	assert.Equal(t, 3, f.store.Len(), "every page is its own cache entry")
}

func TestCollect_AllItemsInOrder(t *testing.T) {
	f := newFixture(t)
	f.serveThreePages()

	items, err := NewWalker(f.adapter, f.client, DefaultConfig()).Collect(context.Background(), "subjects", nil)
	require.NoError(t, err)

	ids := make([]int, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.ID)
	}
	assert.Equal(t, []int{1, 2, 3, 4, 5}, ids)
}

func TestCollect_SecondWalkRevalidates(t *testing.T) {
	f := newFixture(t)
	f.serveThreePages()
	w := NewWalker(f.adapter, f.client, DefaultConfig())
	ctx := context.Background()

	_, err := w.Collect(ctx, "subjects", nil)
	require.NoError(t, err)

	var statuses []cache.Status
	err = w.Walk(ctx, "subjects", nil, func(p *Page) error {
		statuses = append(statuses, p.Status)
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, []cache.Status{cache.StatusNotModified, cache.StatusNotModified, cache.StatusNotModified}, statuses)
	assert.Equal(t, 3, f.mock.GetConditionalCount())
}

func TestWalk_MaxPages(t *testing.T) {
	f := newFixture(t)
	f.serveThreePages()

	cfg := DefaultConfig()
	cfg.MaxPages = 2
	items, err := NewWalker(f.adapter, f.client, cfg).Collect(context.Background(), "subjects", nil)

	require.NoError(t, err)
	assert.Len(t, items, 4)
	assert.Equal(t, 2, f.mock.GetRequestCount())
}

func TestWalk_CallbackErrorStops(t *testing.T) {
	f := newFixture(t)
	f.serveThreePages()

	stop := errors.New("stop")
	err := NewWalker(f.adapter, f.client, DefaultConfig()).Walk(context.Background(), "subjects", nil, func(p *Page) error {
		return stop
	})

	assert.ErrorIs(t, err, stop)
	assert.Equal(t, 1, f.mock.GetRequestCount())
}

func TestWalk_LoopDetected(t *testing.T) {
	f := newFixture(t)
	self := f.mock.BaseURL() + "/subjects"
	f.mock.SetResponse("/subjects", testutil.NewHealthyResponse(testutil.Collection("subjects", self, 1, subject(1))))

	_, err := NewWalker(f.adapter, f.client, DefaultConfig()).Collect(context.Background(), "subjects", nil)
	assert.ErrorIs(t, err, ErrPageLoop)
}

func TestWalk_NotACollection(t *testing.T) {
	f := newFixture(t)
	f.mock.SetResponse("/subjects/1", testutil.NewHealthyResponse(subject(1)))

	_, err := NewWalker(f.adapter, f.client, DefaultConfig()).Collect(context.Background(), "subjects/1", nil)
	var parseErr *client.ParseError
	assert.ErrorAs(t, err, &parseErr)
}

func TestWalk_ErrorOnLaterPage(t *testing.T) {
	f := newFixture(t)
	base := f.mock.BaseURL() + "/subjects"
	f.mock.SetHandler("/subjects", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("page_after_id") == "" {
			testutil.NewVersionedResource(testutil.Collection("subjects", base+"?page_after_id=1", 2, subject(1))).ServeHTTP(w, r)
			return
		}
		w.WriteHeader(500)
	})

	_, err := NewWalker(f.adapter, f.client, DefaultConfig()).Collect(context.Background(), "subjects", url.Values{})
	var apiErr *client.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, client.ErrorClassServer, apiErr.Class)
	assert.Contains(t, err.Error(), "page 2")
}
