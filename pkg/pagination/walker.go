package pagination

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/Sternrassler/wanikani-client/pkg/cache"
	"github.com/Sternrassler/wanikani-client/pkg/client"
	"github.com/rs/zerolog/log"
)

// ErrPageLoop is returned when a next_url points back at a visited page.
var ErrPageLoop = errors.New("pagination loop")

// Config holds walker configuration
type Config struct {
	// Timeout per page fetch. Zero means no per-page timeout.
	Timeout time.Duration

	// MaxPages stops the walk early. Zero means no limit.
	MaxPages int
}

// DefaultConfig returns the default walker configuration
func DefaultConfig() Config {
	return Config{
		Timeout: 30 * time.Second,
	}
}

// PageFetcher fetches one page. *cache.Adapter implements it.
type PageFetcher interface {
	Fetch(ctx context.Context, endpoint string, params url.Values) (*cache.Result, error)
}

// Resolver turns a next_url into an endpoint and query. *client.Client
// implements it.
type Resolver interface {
	Resolve(rawURL string) (string, url.Values, error)
}

// Page is one fetched collection page.
type Page struct {
	Number   int
	Endpoint string
	Params   url.Values
	Resource *client.Resource
	Status   cache.Status
}

// Walker follows next_url links through a collection
type Walker struct {
	fetcher  PageFetcher
	resolver Resolver
	config   Config
}

// NewWalker creates a new walker
func NewWalker(fetcher PageFetcher, resolver Resolver, config Config) *Walker {
	if config.Timeout < 0 {
		config.Timeout = 0
	}
	if config.MaxPages < 0 {
		config.MaxPages = 0
	}
	return &Walker{
		fetcher:  fetcher,
		resolver: resolver,
		config:   config,
	}
}

// Walk fetches the collection at endpoint and calls fn for every page in
// order. An error from fn stops the walk and is returned as is.
func (w *Walker) Walk(ctx context.Context, endpoint string, params url.Values, fn func(*Page) error) error {
	start := time.Now()
	visited := make(map[string]bool)

	for number := 1; ; number++ {
		if w.config.MaxPages > 0 && number > w.config.MaxPages {
			log.Debug().
				Str("endpoint", endpoint).
				Int("max_pages", w.config.MaxPages).
				Msg("Page limit reached")
			return nil
		}

		visitKey := cache.CacheKey{Endpoint: endpoint, Params: params}.String()
		if visited[visitKey] {
			return fmt.Errorf("%w: page %d of %s repeats an earlier page", ErrPageLoop, number, endpoint)
		}
		visited[visitKey] = true

		page, err := w.fetch(ctx, endpoint, params)
		if err != nil {
			return fmt.Errorf("fetch page %d of %s: %w", number, endpoint, err)
		}
		page.Number = number

		if err := fn(page); err != nil {
			return err
		}

		next := page.Resource.Next()
		if next == "" {
			log.Debug().
				Str("endpoint", page.Endpoint).
				Int("pages", number).
				Dur("duration", time.Since(start)).
				Msg("Walk complete")
			return nil
		}

		endpoint, params, err = w.resolver.Resolve(next)
		if err != nil {
			return fmt.Errorf("resolve next page of %s: %w", page.Endpoint, err)
		}
	}
}

func (w *Walker) fetch(ctx context.Context, endpoint string, params url.Values) (*Page, error) {
	if w.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.config.Timeout)
		defer cancel()
	}

	res, err := w.fetcher.Fetch(ctx, endpoint, params)
	if err != nil {
		return nil, err
	}
	resource, err := res.Entry.Resource()
	if err != nil {
		return nil, err
	}
	if !resource.IsCollection() {
		return nil, &client.ParseError{URL: res.Entry.URL, Err: fmt.Errorf("expected a collection, got %q", resource.Object)}
	}
	return &Page{
		Endpoint: endpoint,
		Params:   params,
		Resource: resource,
		Status:   res.Status,
	}, nil
}

// Collect walks the whole collection and returns the resources of all pages.
func (w *Walker) Collect(ctx context.Context, endpoint string, params url.Values) ([]client.Resource, error) {
	var items []client.Resource
	err := w.Walk(ctx, endpoint, params, func(p *Page) error {
		pageItems, err := p.Resource.Items()
		if err != nil {
			return err
		}
		items = append(items, pageItems...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return items, nil
}
