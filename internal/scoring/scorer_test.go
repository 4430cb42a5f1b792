package scoring

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/recipe-service/internal/entity"
)

func intPtr(n int) *int { return &n }

func TestScoreEmptyAndFull(t *testing.T) {
	s := NewScorer()
	assert.Equal(t, 0.0, s.Score(&entity.ParsedRecipe{}))
	assert.Equal(t, 0.0, s.Score(nil))

	full := &entity.ParsedRecipe{
		Title:       "Lemon Cake",
		Description: "A bright cake.",
		Ingredients: entity.FlatIngredients(
			"250 g plain flour", "200 g caster sugar", "3 large eggs",
			"150 g unsalted butter", "2 unwaxed lemons, zested and juiced"),
		Instructions: entity.StepInstructions(
			"Heat the oven to 180C and line a 20cm tin with baking paper.",
			"Beat the butter and sugar together until pale and fluffy.",
			"Add the eggs one at a time, then fold in the flour and zest.",
			"Bake for 45 minutes, then drizzle with the lemon juice."),
		PrepTime: intPtr(15),
		Servings: intPtr(8),
	}
	assert.Equal(t, 1.0, s.Score(full))
}

func TestScoreMinimalCompleteRecipe(t *testing.T) {
	s := NewScorer()
	r := &entity.ParsedRecipe{
		Title:        "Pancakes",
		Ingredients:  entity.FlatIngredients("flour", "milk", "2 eggs", "sugar", "salt"),
		Instructions: entity.StepInstructions("Whisk.", "Rest.", "Fry.", "Serve."),
	}
	assert.Greater(t, s.Score(r), 0.8)

	r.Title = ""
	assert.Less(t, s.Score(r), 0.8)
}

func TestScoreTitleOnlyStaysLow(t *testing.T) {
	assert.LessOrEqual(t, NewScorer().Score(&entity.ParsedRecipe{Title: "Access denied"}), 0.25)
}

func TestScoreIsMonotonic(t *testing.T) {
	s := NewScorer()
	r := &entity.ParsedRecipe{Title: "Soup"}
	prev := s.Score(r)
	for i := 0; i < 8; i++ {
		r.Ingredients.Flat = append(r.Ingredients.Flat, fmt.Sprintf("%d carrots", i+1))
		next := s.Score(r)
		assert.GreaterOrEqual(t, next, prev, "appending ingredient %d lowered the score", i)
		prev = next
	}
	for i := 0; i < 8; i++ {
		r.Instructions.Steps = append(r.Instructions.Steps, "Simmer gently for ten minutes.")
		next := s.Score(r)
		assert.GreaterOrEqual(t, next, prev, "appending step %d lowered the score", i)
		prev = next
	}
}

func TestApplyRecordsFingerprint(t *testing.T) {
	s := NewScorer()
	r := &entity.ParsedRecipe{Title: "Toast", Ingredients: entity.FlatIngredients("bread")}
	score := s.Apply(r)
	require.NotNil(t, r.ConfidenceScore)
	assert.Equal(t, score, *r.ConfidenceScore)
	assert.True(t, r.ScoreIsCurrent())

	r.Ingredients.Flat = append(r.Ingredients.Flat, "butter")
	assert.False(t, r.ScoreIsCurrent())
}
