package repository

import (
	"context"

	"github.com/user/recipe-service/internal/entity"
)

// PendingRepository defines storage for recipes awaiting review.
type PendingRepository interface {
	// Create stores a new pending recipe. The id must be unused.
	Create(ctx context.Context, item *entity.PendingRecipe) error
	// Get returns a copy of the item, or an entity.ErrNotFound-class error.
	Get(ctx context.Context, id string) (*entity.PendingRecipe, error)
	// ListByStatus returns items with the status, newest first.
	ListByStatus(ctx context.Context, status entity.ValidationStatus, limit int) ([]*entity.PendingRecipe, error)
	// Transition atomically moves id from one status to another, applying
	// mutate to the stored item first. If the stored status is not from, the
	// store is left unchanged and an entity.ErrNotFound-class error returned.
	Transition(ctx context.Context, id string, from, to entity.ValidationStatus, mutate func(*entity.PendingRecipe) error) (*entity.PendingRecipe, error)
	// Counts returns the number of items per status.
	Counts(ctx context.Context) (entity.ValidationSummary, error)
}
