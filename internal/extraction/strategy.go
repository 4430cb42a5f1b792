// Package extraction turns fetched pages, social posts and OCR text into
// recipe candidates through an ordered chain of strategies.
package extraction

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/user/recipe-service/internal/entity"
	"github.com/user/recipe-service/pkg/metrics"
)

// Strategy is one way of pulling a recipe out of a document.
type Strategy interface {
	Name() string
	Attempt(ctx context.Context, doc *Document) (*entity.ParsedRecipe, error)
}

// errIncomplete marks a candidate that lacks ingredients or instructions.
var errIncomplete = entity.NewExtractionError("no complete recipe found", nil)

// Outcome is the result of a successful chain run.
type Outcome struct {
	Recipe   *entity.ParsedRecipe
	Strategy string
	Tried    []string
}

// Chain tries strategies in order and returns the first acceptable result.
// Every strategy but the last must produce both ingredients and
// instructions; the last one's candidate is returned as is so the scorer can
// judge sparse output.
type Chain struct {
	strategies []Strategy
	logger     *zap.Logger
}

func NewChain(logger *zap.Logger, strategies ...Strategy) *Chain {
	return &Chain{strategies: strategies, logger: logger}
}

// Names lists the strategies in order.
func (c *Chain) Names() []string {
	names := make([]string, len(c.strategies))
	for i, s := range c.strategies {
		names[i] = s.Name()
	}
	return names
}

// Run executes the chain. Strategy failures are logged and swallowed; only
// when all strategies fail does Run return an error, which wraps the last
// failure and keeps its classification. Context cancellation stops the
// chain immediately.
func (c *Chain) Run(ctx context.Context, doc *Document) (*Outcome, error) {
	if len(c.strategies) == 0 {
		return nil, entity.NewExtractionError("no extraction strategies configured", nil)
	}
	var (
		lastErr error
		tried   []string
	)
	for i, s := range c.strategies {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		name := s.Name()
		tried = append(tried, name)
		final := i == len(c.strategies)-1

		recipe, err := s.Attempt(ctx, doc)
		if err == nil && recipe == nil {
			err = errIncomplete
		}
		if err == nil && !final && !recipe.HasContent() {
			err = errIncomplete
		}
		if err != nil {
			if isCancellation(ctx, err) {
				return nil, err
			}
			metrics.StrategyFailuresTotal.WithLabelValues(name).Inc()
			c.logger.Debug("extraction strategy failed",
				zap.String("strategy", name), zap.String("url", doc.URL), zap.Error(err))
			lastErr = fmt.Errorf("strategy %s: %w", name, err)
			continue
		}

		c.logger.Debug("extraction strategy succeeded", zap.String("strategy", name), zap.String("url", doc.URL))
		if recipe.SourceType == "" {
			recipe.SourceType = doc.SourceType
		}
		if recipe.SourceURL == "" {
			recipe.SourceURL = doc.URL
		}
		return &Outcome{Recipe: recipe, Strategy: name, Tried: tried}, nil
	}
	return nil, fmt.Errorf("all %d extraction strategies failed: %w", len(c.strategies), lastErr)
}

func isCancellation(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return true
	}
	return errors.Is(err, context.Canceled)
}
