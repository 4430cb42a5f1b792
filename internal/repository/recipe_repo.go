package repository

import (
	"context"

	"github.com/user/recipe-service/internal/entity"
)

// RecipeRepository persists finalized (approved) recipes.
type RecipeRepository interface {
	// Save stores the recipe and returns its id.
	Save(ctx context.Context, recipe *entity.StoredRecipe) (string, error)
	// FindByID retrieves a stored recipe.
	FindByID(ctx context.Context, id string) (*entity.StoredRecipe, error)
}
