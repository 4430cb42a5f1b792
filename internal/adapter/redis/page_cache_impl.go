package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/user/recipe-service/internal/entity"
	"github.com/user/recipe-service/pkg/utils"
)

const pageKeyPrefix = "page:"

// PageCacheImpl implements repository.PageCache on Redis. Pages are stored
// as JSON under a key derived from the URL hash.
type PageCacheImpl struct {
	client *redis.Client
}

// NewPageCache creates a new instance of PageCacheImpl.
func NewPageCache(client *redis.Client) *PageCacheImpl {
	return &PageCacheImpl{client: client}
}

func (r *PageCacheImpl) generateKey(url string) string {
	return fmt.Sprintf("%s%s", pageKeyPrefix, utils.HashURL(url))
}

// Get returns the cached page, or nil when there is none.
func (r *PageCacheImpl) Get(ctx context.Context, url string) (*entity.FetchedPage, error) {
	data, err := r.client.Get(ctx, r.generateKey(url)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("read cached page: %w", err)
	}
	var page entity.FetchedPage
	if err := json.Unmarshal(data, &page); err != nil {
		// A corrupt entry behaves like a miss; the next Put overwrites it.
		return nil, nil
	}
	return &page, nil
}

// Put stores the page with an expiry. SETEX sets value and TTL atomically.
func (r *PageCacheImpl) Put(ctx context.Context, page *entity.FetchedPage, expiry time.Duration) error {
	data, err := json.Marshal(page)
	if err != nil {
		return fmt.Errorf("encode page: %w", err)
	}
	return r.client.SetEx(ctx, r.generateKey(page.URL), data, expiry).Err()
}

// Invalidate removes a cached page.
func (r *PageCacheImpl) Invalidate(ctx context.Context, url string) error {
	return r.client.Del(ctx, r.generateKey(url)).Err()
}
