package extraction

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/user/recipe-service/internal/entity"
)

type fakeStrategy struct {
	name   string
	recipe *entity.ParsedRecipe
	err    error
	calls  int
}

func (f *fakeStrategy) Name() string { return f.name }

func (f *fakeStrategy) Attempt(ctx context.Context, doc *Document) (*entity.ParsedRecipe, error) {
	f.calls++
	return f.recipe, f.err
}

func completeRecipe(title string) *entity.ParsedRecipe {
	return &entity.ParsedRecipe{
		Title:        title,
		Ingredients:  entity.FlatIngredients("1 egg"),
		Instructions: entity.StepInstructions("Boil the egg."),
	}
}

func TestChainStopsAtFirstCompleteResult(t *testing.T) {
	first := &fakeStrategy{name: "structured", recipe: completeRecipe("from metadata")}
	second := &fakeStrategy{name: "heuristic", recipe: completeRecipe("from selectors")}

	out, err := NewChain(zap.NewNop(), first, second).Run(context.Background(), &Document{URL: "https://example.com/r", SourceType: entity.SourceWebsite})
	require.NoError(t, err)
	assert.Equal(t, "structured", out.Strategy)
	assert.Equal(t, "from metadata", out.Recipe.Title)
	assert.Equal(t, []string{"structured"}, out.Tried)
	assert.Equal(t, 0, second.calls)
	assert.Equal(t, entity.SourceWebsite, out.Recipe.SourceType)
	assert.Equal(t, "https://example.com/r", out.Recipe.SourceURL)
}

func TestChainSkipsIncompleteNonFinalResults(t *testing.T) {
	partial := &fakeStrategy{name: "structured", recipe: &entity.ParsedRecipe{Title: "only a title"}}
	failing := &fakeStrategy{name: "site", err: errors.New("no layout")}
	last := &fakeStrategy{name: "heuristic", recipe: &entity.ParsedRecipe{Title: "sparse"}}

	out, err := NewChain(zap.NewNop(), partial, failing, last).Run(context.Background(), &Document{})
	require.NoError(t, err)
	assert.Equal(t, "heuristic", out.Strategy)
	assert.Equal(t, "sparse", out.Recipe.Title, "the final strategy's sparse result is returned as is")
	assert.Equal(t, []string{"structured", "site", "heuristic"}, out.Tried)
}

func TestChainAllFailReturnsLastError(t *testing.T) {
	lastErr := entity.NewTransientError("timed out", nil)
	chain := NewChain(zap.NewNop(),
		&fakeStrategy{name: "structured", err: entity.NewStructuralError("bad json", nil)},
		&fakeStrategy{name: "site", err: errors.New("no layout")},
		&fakeStrategy{name: "heuristic", err: lastErr},
	)

	out, err := chain.Run(context.Background(), &Document{})
	assert.Nil(t, out)
	require.Error(t, err)
	assert.True(t, errors.Is(err, entity.ErrTransient))
	assert.False(t, errors.Is(err, entity.ErrStructural))
	assert.Equal(t, entity.KindTransient, entity.KindOf(err))
}

func TestChainStopsOnCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	first := &fakeStrategy{name: "structured", err: context.Canceled}
	second := &fakeStrategy{name: "heuristic", recipe: completeRecipe("x")}
	cancel()

	_, err := NewChain(zap.NewNop(), first, second).Run(ctx, &Document{})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, second.calls)
}

func TestChainNames(t *testing.T) {
	chain := NewChain(zap.NewNop(), &fakeStrategy{name: "a"}, &fakeStrategy{name: "b"})
	assert.Equal(t, []string{"a", "b"}, chain.Names())
}
