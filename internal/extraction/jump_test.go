package extraction

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/recipe-service/internal/entity"
)

func TestJumpStrategyFollowsLink(t *testing.T) {
	page := `<html><body>
	<a href="#the-recipe" class="btn">Jump to Recipe</a>
	<p>A long story about my grandmother's kitchen and the summer we spent by the sea.</p>
	<ul><li>not an ingredient</li></ul>
	<div id="the-recipe">
	  <h2>Banana Bread</h2>
	  <h3>Ingredients</h3>
	  <ul><li>3 ripe bananas</li><li>1/3 cup melted butter</li><li>1 cup sugar</li></ul>
	  <h3>Instructions</h3>
	  <ol><li>Mash the bananas.</li><li>Stir in the butter and sugar.</li><li>Bake for one hour.</li></ol>
	</div>
	</body></html>`
	doc, err := NewHTMLDocument("https://example.com/banana", page, entity.SourceWebsite)
	require.NoError(t, err)

	r, err := NewJumpStrategy().Attempt(context.Background(), doc)
	require.NoError(t, err)
	assert.Equal(t, []string{"3 ripe bananas", "1/3 cup melted butter", "1 cup sugar"}, r.Ingredients.Flat)
	assert.Equal(t, []string{"Mash the bananas.", "Stir in the butter and sugar.", "Bake for one hour."}, r.Instructions.Steps)
}

func TestJumpStrategyMarkdownFallback(t *testing.T) {
	page := `<html><body>
	<a href="#recipe">Skip to the recipe</a>
	<section id="recipe">
	  <p><strong>Ingredients:</strong></p>
	  <p>- 2 cups rice<br>- 4 cups water</p>
	  <p><strong>Method</strong></p>
	  <p>1. Rinse the rice. 2. Boil the water. 3. Simmer covered for 18 minutes.</p>
	</section>
	</body></html>`
	doc, err := NewHTMLDocument("https://example.com/rice", page, entity.SourceWebsite)
	require.NoError(t, err)

	r, err := NewJumpStrategy().Attempt(context.Background(), doc)
	require.NoError(t, err)
	assert.Equal(t, []string{"2 cups rice", "4 cups water"}, r.Ingredients.Flat)
	assert.Equal(t, []string{"Rinse the rice.", "Boil the water.", "Simmer covered for 18 minutes."}, r.Instructions.Steps)
}

func TestJumpStrategyWithoutLink(t *testing.T) {
	doc, err := NewHTMLDocument("https://example.com", `<body><a href="#top">Back to top</a><div id="top"></div></body>`, entity.SourceWebsite)
	require.NoError(t, err)

	_, err = NewJumpStrategy().Attempt(context.Background(), doc)
	assert.True(t, errors.Is(err, entity.ErrExtraction))
}
