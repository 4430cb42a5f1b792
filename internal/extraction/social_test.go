package extraction

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/recipe-service/internal/entity"
)

const instagramPage = `<html><head>
<meta property="og:title" content="chef_anna on Instagram: &quot;Easy Garlic Noodles&quot;">
<meta property="og:description" content="chef_anna on Instagram: &quot;Easy Garlic Noodles Ingredients: 200g noodles, 4 cloves garlic, 2 tbsp soy sauce Method: 1. Boil the noodles. 2. Fry the garlic. 3. Toss together.
#noodles #dinner&quot;">
<meta property="og:image" content="https://cdn.example.com/p/noodles.jpg">
<meta property="og:video" content="https://cdn.example.com/v/noodles.mp4">
</head><body></body></html>`

func TestCaptionStrategy(t *testing.T) {
	doc, err := NewHTMLDocument("https://www.instagram.com/p/abc123/", instagramPage, entity.SourceSocial)
	require.NoError(t, err)

	r, err := NewCaptionStrategy().Attempt(context.Background(), doc)
	require.NoError(t, err)
	assert.Equal(t, "Easy Garlic Noodles", r.Title)
	assert.Equal(t, []string{"200g noodles", "4 cloves garlic", "2 tbsp soy sauce"}, r.Ingredients.Flat)
	assert.Equal(t, []string{"Boil the noodles.", "Fry the garlic.", "Toss together."}, r.Instructions.Steps)
	require.Len(t, r.Media.Items, 2)
	assert.Equal(t, entity.MediaThumbnail, r.Media.Items[0].Role)
	assert.Equal(t, "https://cdn.example.com/v/noodles.mp4", r.Media.VideoURL())
}

func TestCaptionStrategyWithoutRecipe(t *testing.T) {
	page := `<head><meta property="og:description" content="Sunset at the beach #nofilter"></head>`
	doc, err := NewHTMLDocument("https://www.tiktok.com/@someone/video/1", page, entity.SourceSocial)
	require.NoError(t, err)

	_, err = NewCaptionStrategy().Attempt(context.Background(), doc)
	assert.ErrorIs(t, err, entity.ErrExtraction)
}

func TestOCRStrategyWithHeadings(t *testing.T) {
	text := "Grandma's Scones\nServes 8\nIngredients\n2 cups flour\n1/2 cup butter\nMethod\n1. Rub butter into flour\n2. Bake 12 minutes"
	r, err := NewOCRStrategy().Attempt(context.Background(), NewTextDocument(text, entity.SourceImage))
	require.NoError(t, err)
	assert.Equal(t, "Grandma's Scones", r.Title)
	assert.Equal(t, []string{"2 cups flour", "1/2 cup butter"}, r.Ingredients.Flat)
	assert.Equal(t, []string{"Rub butter into flour.", "Bake 12 minutes."}, r.Instructions.Steps)
	require.NotNil(t, r.Servings)
	assert.Equal(t, 8, *r.Servings)
}

func TestOCRStrategyWithoutHeadings(t *testing.T) {
	r, err := NewOCRStrategy().Attempt(context.Background(), NewTextDocument("Quick Toast\ntoast the bread\nbutter it", entity.SourceImage))
	require.NoError(t, err)
	assert.Equal(t, "Quick Toast", r.Title)
	assert.True(t, r.Ingredients.IsEmpty())
	assert.Equal(t, []string{"Toast the bread.", "Butter it."}, r.Instructions.Steps)
}

func TestOCRStrategyEmptyText(t *testing.T) {
	_, err := NewOCRStrategy().Attempt(context.Background(), NewTextDocument("  \n ", entity.SourceImage))
	assert.ErrorIs(t, err, entity.ErrExtraction)
}
