package repository

import (
	"context"
	"time"

	"github.com/user/recipe-service/internal/entity"
)

// PageCache stores recently fetched pages so repeated extractions of the same
// URL skip the network.
type PageCache interface {
	// Get returns the cached page, or nil when absent.
	Get(ctx context.Context, url string) (*entity.FetchedPage, error)
	// Put caches page with the given expiry.
	Put(ctx context.Context, page *entity.FetchedPage, expiry time.Duration) error
	// Invalidate removes a cached page.
	Invalidate(ctx context.Context, url string) error
}
