package usecase

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/user/recipe-service/internal/entity"
	"github.com/user/recipe-service/internal/repository"
	"github.com/user/recipe-service/internal/validation"
)

// Reviewer defines the human review operations over pending recipes.
type Reviewer interface {
	ListPending(ctx context.Context, limit int) ([]*entity.PendingRecipe, error)
	Get(ctx context.Context, id string) (*entity.PendingRecipe, error)
	Approve(ctx context.Context, id string, edits *entity.RecipeEdits) (*entity.PendingRecipe, error)
	Reject(ctx context.Context, id, reason string) (*entity.PendingRecipe, error)
	Summary(ctx context.Context) (entity.ValidationSummary, error)
}

type reviewUseCase struct {
	pipeline *validation.Pipeline
	recipes  repository.RecipeRepository
	logger   *zap.Logger
}

// NewReviewUseCase creates the review use case. When recipes is nil,
// approvals only change the review state.
func NewReviewUseCase(pipeline *validation.Pipeline, recipes repository.RecipeRepository, logger *zap.Logger) Reviewer {
	return &reviewUseCase{
		pipeline: pipeline,
		recipes:  recipes,
		logger:   logger.Named("review_usecase"),
	}
}

func (uc *reviewUseCase) ListPending(ctx context.Context, limit int) ([]*entity.PendingRecipe, error) {
	return uc.pipeline.ListPending(ctx, limit)
}

func (uc *reviewUseCase) Get(ctx context.Context, id string) (*entity.PendingRecipe, error) {
	return uc.pipeline.Get(ctx, id)
}

// Approve merges edits, approves the item and persists the final recipe. If
// persisting fails the item stays pending and can be approved again.
func (uc *reviewUseCase) Approve(ctx context.Context, id string, edits *entity.RecipeEdits) (*entity.PendingRecipe, error) {
	var finalize validation.Finalizer
	if uc.recipes != nil {
		finalize = uc.persist
	}
	item, err := uc.pipeline.ApproveAndFinalize(ctx, id, edits, finalize)
	if err != nil {
		uc.logger.Warn("Approval failed", zap.String("pending_id", id), zap.Error(err))
		return nil, err
	}
	uc.logger.Info("Recipe approved",
		zap.String("pending_id", id),
		zap.String("recipe_id", item.Metadata.FinalizedRecipeID),
		zap.Bool("rescored", item.Metadata.RescoredOnApproval),
	)
	return item, nil
}

func (uc *reviewUseCase) Reject(ctx context.Context, id, reason string) (*entity.PendingRecipe, error) {
	item, err := uc.pipeline.Reject(ctx, id, reason)
	if err != nil {
		return nil, err
	}
	uc.logger.Info("Recipe rejected", zap.String("pending_id", id), zap.String("reason", reason))
	return item, nil
}

func (uc *reviewUseCase) Summary(ctx context.Context) (entity.ValidationSummary, error) {
	return uc.pipeline.Summary(ctx)
}

func (uc *reviewUseCase) persist(ctx context.Context, item *entity.PendingRecipe) (string, error) {
	id, err := uc.recipes.Save(ctx, &entity.StoredRecipe{
		Owner:        item.Owner,
		CollectionID: item.Metadata.CollectionHint,
		PendingID:    item.ID,
		Recipe:       item.ParsedRecipe,
		CreatedAt:    time.Now().UTC(),
	})
	if err != nil {
		return "", fmt.Errorf("failed to save approved recipe: %w", err)
	}
	return id, nil
}
