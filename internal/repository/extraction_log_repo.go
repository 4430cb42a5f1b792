package repository

import (
	"context"

	"github.com/user/recipe-service/internal/entity"
)

// ExtractionLogRepository records sources whose extraction failed.
type ExtractionLogRepository interface {
	// SaveOrUpdate creates or updates a failure record, incrementing the
	// attempt count on conflict.
	SaveOrUpdate(ctx context.Context, failure *entity.FailedExtraction) error
	// FindRecent retrieves the latest failures.
	FindRecent(ctx context.Context, limit int) ([]*entity.FailedExtraction, error)
	// Delete removes a record, typically after a later successful extraction.
	Delete(ctx context.Context, source string) error
}
