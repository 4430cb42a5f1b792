package httpfetch

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/user/recipe-service/internal/entity"
)

type scriptedFetcher struct {
	page  *entity.FetchedPage
	err   error
	calls int
}

func (f *scriptedFetcher) Fetch(ctx context.Context, url string) (*entity.FetchedPage, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	p := *f.page
	p.URL = url
	return &p, nil
}

type mapCache struct {
	mu    sync.Mutex
	pages map[string]entity.FetchedPage
}

func (c *mapCache) Get(ctx context.Context, url string) (*entity.FetchedPage, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.pages[url]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (c *mapCache) Put(ctx context.Context, page *entity.FetchedPage, expiry time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pages[page.URL] = *page
	return nil
}

func (c *mapCache) Invalidate(ctx context.Context, url string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.pages, url)
	return nil
}

func TestCachingFetcher(t *testing.T) {
	next := &scriptedFetcher{page: &entity.FetchedPage{HTML: "<p>hi</p>", Renderer: "http"}}
	cache := &mapCache{pages: map[string]entity.FetchedPage{}}
	f := NewCachingFetcher(next, cache, time.Hour, zap.NewNop())
	ctx := context.Background()

	first, err := f.Fetch(ctx, "https://example.com/a")
	require.NoError(t, err)
	assert.Equal(t, "http", first.Renderer)

	second, err := f.Fetch(ctx, "https://example.com/a")
	require.NoError(t, err)
	assert.Equal(t, "cache", second.Renderer)
	assert.Equal(t, "<p>hi</p>", second.HTML)
	assert.Equal(t, 1, next.calls)
}

func TestCachingFetcherDoesNotCacheFailures(t *testing.T) {
	next := &scriptedFetcher{err: entity.NewTransientError("slow", nil)}
	cache := &mapCache{pages: map[string]entity.FetchedPage{}}
	f := NewCachingFetcher(next, cache, time.Hour, zap.NewNop())

	_, err := f.Fetch(context.Background(), "https://example.com/a")
	assert.ErrorIs(t, err, entity.ErrTransient)
	assert.Empty(t, cache.pages)
}

func TestFallbackFetcher(t *testing.T) {
	browserPage := &entity.FetchedPage{HTML: "<h1>Rendered</h1>", Renderer: "browser"}
	tests := []struct {
		name          string
		primaryErr    error
		browserErr    error
		wantErr       error
		wantFallbacks int
	}{
		{"forbidden falls back", entity.NewAccessBlockedError("no", 403, nil), nil, nil, 1},
		{"rate limited falls back", entity.NewAccessBlockedError("slow down", 429, nil), nil, nil, 1},
		{"unauthorized does not", entity.NewAccessBlockedError("login", 401, nil), nil, entity.ErrAccessBlocked, 0},
		{"not found does not", entity.NewNotFoundError("gone", nil), nil, entity.ErrNotFound, 0},
		{"browser failure keeps original", entity.NewAccessBlockedError("no", 403, nil), errors.New("chrome crashed"), entity.ErrAccessBlocked, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			primary := &scriptedFetcher{err: tt.primaryErr}
			browser := &scriptedFetcher{page: browserPage, err: tt.browserErr}
			page, err := NewFallbackFetcher(primary, browser, zap.NewNop()).Fetch(context.Background(), "https://example.com")
			assert.Equal(t, tt.wantFallbacks, browser.calls)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "browser", page.Renderer)
			assert.Equal(t, 1, page.RetryCount)
		})
	}
}
