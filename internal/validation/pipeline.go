package validation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/user/recipe-service/internal/entity"
	"github.com/user/recipe-service/internal/repository"
	"github.com/user/recipe-service/internal/scoring"
	"github.com/user/recipe-service/pkg/metrics"
)

const (
	DefaultListLimit = 20
	MaxListLimit     = 100
)

// Pipeline runs issue detection on new candidates and enforces the review
// state machine on top of a PendingRepository.
type Pipeline struct {
	store           repository.PendingRepository
	scorer          *scoring.Scorer
	logger          *zap.Logger
	reviewThreshold float64
	now             func() time.Time
}

// NewPipeline creates a pipeline. A non-positive reviewThreshold selects
// DefaultReviewThreshold.
func NewPipeline(store repository.PendingRepository, scorer *scoring.Scorer, logger *zap.Logger, reviewThreshold float64) *Pipeline {
	if reviewThreshold <= 0 {
		reviewThreshold = DefaultReviewThreshold
	}
	return &Pipeline{
		store:           store,
		scorer:          scorer,
		logger:          logger.Named("validation"),
		reviewThreshold: reviewThreshold,
		now:             time.Now,
	}
}

// Enqueue stores a scored candidate as a new pending recipe. The candidate is
// copied; later changes by the caller do not reach the store.
func (p *Pipeline) Enqueue(ctx context.Context, candidate *entity.ParsedRecipe, source, owner string, meta entity.ParsingMetadata) (*entity.PendingRecipe, error) {
	if candidate == nil {
		return nil, entity.NewStructuralError("cannot queue an empty candidate", nil)
	}
	recipe := candidate.Clone()
	if !recipe.ScoreIsCurrent() {
		p.scorer.Apply(recipe)
	}
	item := &entity.PendingRecipe{
		ID:               uuid.NewString(),
		ParsedRecipe:     recipe,
		OriginalSource:   source,
		ValidationStatus: entity.StatusPending,
		Issues:           DetectIssues(recipe, p.reviewThreshold),
		Metadata:         meta,
		CreatedAt:        p.now().UTC(),
		Owner:            owner,
	}
	if err := p.store.Create(ctx, item); err != nil {
		return nil, fmt.Errorf("store pending recipe: %w", err)
	}
	p.logger.Info("Queued recipe for review",
		zap.String("id", item.ID),
		zap.String("source", source),
		zap.Int("issues", len(item.Issues)),
		zap.Bool("has_errors", item.HasErrors()),
	)
	p.refreshGauge(ctx)
	return item.Clone(), nil
}

// ListPending returns pending items, newest first. limit is clamped to
// 1..MaxListLimit; zero or negative selects DefaultListLimit.
func (p *Pipeline) ListPending(ctx context.Context, limit int) ([]*entity.PendingRecipe, error) {
	switch {
	case limit <= 0:
		limit = DefaultListLimit
	case limit > MaxListLimit:
		limit = MaxListLimit
	}
	return p.store.ListByStatus(ctx, entity.StatusPending, limit)
}

// Get returns a pending recipe in any state.
func (p *Pipeline) Get(ctx context.Context, id string) (*entity.PendingRecipe, error) {
	return p.store.Get(ctx, id)
}

// Finalizer persists an approved recipe and returns its stored id. It runs
// inside the status transition: if it fails, the item stays pending.
type Finalizer func(ctx context.Context, item *entity.PendingRecipe) (string, error)

// Approve merges edits into the candidate, re-scores it if its content
// changed, and marks it approved. It returns the finalized item.
func (p *Pipeline) Approve(ctx context.Context, id string, edits *entity.RecipeEdits) (*entity.PendingRecipe, error) {
	return p.ApproveAndFinalize(ctx, id, edits, nil)
}

// ApproveAndFinalize is Approve with a persistence step that must succeed
// for the approval to take effect.
func (p *Pipeline) ApproveAndFinalize(ctx context.Context, id string, edits *entity.RecipeEdits, finalize Finalizer) (*entity.PendingRecipe, error) {
	if edits != nil {
		if err := validateEdits(edits); err != nil {
			return nil, err
		}
	}
	item, err := p.store.Transition(ctx, id, entity.StatusPending, entity.StatusApproved, func(item *entity.PendingRecipe) error {
		if item.ParsedRecipe == nil {
			item.ParsedRecipe = &entity.ParsedRecipe{}
		}
		edits.Apply(item.ParsedRecipe)
		if !item.ParsedRecipe.ScoreIsCurrent() {
			p.scorer.Apply(item.ParsedRecipe)
			item.Metadata.RescoredOnApproval = true
		}
		item.Issues = DetectIssues(item.ParsedRecipe, p.reviewThreshold)
		reviewed := p.now().UTC()
		item.Metadata.ReviewedAt = &reviewed
		if finalize != nil {
			recipeID, err := finalize(ctx, item)
			if err != nil {
				return fmt.Errorf("finalize recipe: %w", err)
			}
			item.Metadata.FinalizedRecipeID = recipeID
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	p.logger.Info("Approved pending recipe", zap.String("id", id), zap.Bool("edited", !edits.IsZero()))
	p.refreshGauge(ctx)
	return item, nil
}

// Reject marks the item rejected and records reason, which is required.
func (p *Pipeline) Reject(ctx context.Context, id, reason string) (*entity.PendingRecipe, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, entity.NewStructuralError("a rejection reason is required", nil)
	}
	item, err := p.store.Transition(ctx, id, entity.StatusPending, entity.StatusRejected, func(item *entity.PendingRecipe) error {
		item.Metadata.RejectionReason = reason
		reviewed := p.now().UTC()
		item.Metadata.ReviewedAt = &reviewed
		return nil
	})
	if err != nil {
		return nil, err
	}
	p.logger.Info("Rejected pending recipe", zap.String("id", id), zap.String("reason", reason))
	p.refreshGauge(ctx)
	return item, nil
}

// Summary counts items per validation status.
func (p *Pipeline) Summary(ctx context.Context) (entity.ValidationSummary, error) {
	return p.store.Counts(ctx)
}

func (p *Pipeline) refreshGauge(ctx context.Context) {
	s, err := p.store.Counts(ctx)
	if err != nil {
		p.logger.Warn("Failed to count pending recipes", zap.Error(err))
		return
	}
	metrics.PendingRecipes.WithLabelValues(string(entity.StatusPending)).Set(float64(s.Pending))
	metrics.PendingRecipes.WithLabelValues(string(entity.StatusApproved)).Set(float64(s.Approved))
	metrics.PendingRecipes.WithLabelValues(string(entity.StatusRejected)).Set(float64(s.Rejected))
}

func validateEdits(e *entity.RecipeEdits) error {
	if e.Title != nil && strings.TrimSpace(*e.Title) == "" {
		return entity.NewStructuralError("the edited title is empty", nil)
	}
	for name, v := range map[string]*int{"prep_time": e.PrepTime, "cook_time": e.CookTime, "total_time": e.TotalTime, "servings": e.Servings} {
		if v != nil && *v < 0 {
			return entity.NewStructuralError(name+" cannot be negative", nil)
		}
	}
	if e.Ingredients != nil {
		if err := e.Ingredients.Validate(); err != nil {
			return err
		}
	}
	if e.Instructions != nil {
		if err := e.Instructions.Validate(); err != nil {
			return err
		}
	}
	return nil
}
