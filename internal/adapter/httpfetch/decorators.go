package httpfetch

import (
	"context"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/user/recipe-service/internal/entity"
	"github.com/user/recipe-service/internal/repository"
)

// CachingFetcher serves pages from a PageCache and stores fresh fetches in
// it. Cache failures never fail a fetch.
type CachingFetcher struct {
	next   repository.PageFetcher
	cache  repository.PageCache
	ttl    time.Duration
	logger *zap.Logger
}

func NewCachingFetcher(next repository.PageFetcher, cache repository.PageCache, ttl time.Duration, logger *zap.Logger) *CachingFetcher {
	return &CachingFetcher{next: next, cache: cache, ttl: ttl, logger: logger.Named("page_cache")}
}

func (c *CachingFetcher) Fetch(ctx context.Context, url string) (*entity.FetchedPage, error) {
	page, err := c.cache.Get(ctx, url)
	if err != nil {
		c.logger.Warn("Page cache read failed", zap.String("url", url), zap.Error(err))
	}
	if page != nil {
		page.Renderer = "cache"
		return page, nil
	}

	page, err = c.next.Fetch(ctx, url)
	if err != nil {
		return nil, err
	}
	if err := c.cache.Put(ctx, page, c.ttl); err != nil {
		c.logger.Warn("Page cache write failed", zap.String("url", url), zap.Error(err))
	}
	return page, nil
}

// FallbackFetcher re-fetches through a second fetcher, typically a headless
// browser, when the primary is refused with 403 or 429. It retries exactly
// once; content that merely looks blocked is never retried here.
type FallbackFetcher struct {
	primary  repository.PageFetcher
	fallback repository.PageFetcher
	logger   *zap.Logger
}

func NewFallbackFetcher(primary, fallback repository.PageFetcher, logger *zap.Logger) *FallbackFetcher {
	return &FallbackFetcher{primary: primary, fallback: fallback, logger: logger.Named("fallback_fetcher")}
}

func (f *FallbackFetcher) Fetch(ctx context.Context, url string) (*entity.FetchedPage, error) {
	page, err := f.primary.Fetch(ctx, url)
	if err == nil || !shouldFallback(err) {
		return page, err
	}
	f.logger.Info("Primary fetch refused, retrying with browser", zap.String("url", url), zap.Error(err))
	page, fbErr := f.fallback.Fetch(ctx, url)
	if fbErr != nil {
		f.logger.Warn("Browser fetch failed", zap.String("url", url), zap.Error(fbErr))
		// Report the original refusal; it carries the actionable suggestions.
		return nil, err
	}
	page.RetryCount++
	return page, nil
}

func shouldFallback(err error) bool {
	if !errors.Is(err, entity.ErrAccessBlocked) {
		return false
	}
	appErr, _ := entity.AsAppError(err)
	return appErr.StatusCode == http.StatusForbidden || appErr.StatusCode == http.StatusTooManyRequests
}
