// Package scoring assigns confidence scores to extracted recipes and decides
// when sparse output means the source refused access.
package scoring

import (
	"math"
	"strings"
	"unicode/utf8"

	"github.com/user/recipe-service/internal/entity"
)

// Component weights. They sum to 1 and every term is non-decreasing in the
// amount of content, so appending ingredients or steps never lowers a score.
// The item counts carry most of the weight: a titled recipe with a full
// ingredient list and method scores above 0.8 without any optional metadata.
const (
	weightTitle            = 0.10
	weightDescription      = 0.05
	weightIngredientCount  = 0.35
	weightIngredientText   = 0.05
	weightInstructionCount = 0.35
	weightInstructionText  = 0.05
	weightTiming           = 0.03
	weightServings         = 0.02

	saturateIngredients     = 5
	saturateIngredientChars = 60
	saturateSteps           = 4
	saturateStepChars       = 120
)

// Scorer computes confidence scores.
type Scorer struct{}

func NewScorer() *Scorer {
	return &Scorer{}
}

// Score returns a value in [0, 1] for r.
func (s *Scorer) Score(r *entity.ParsedRecipe) float64 {
	if r == nil {
		return 0
	}
	var score float64
	if strings.TrimSpace(r.Title) != "" {
		score += weightTitle
	}
	if strings.TrimSpace(r.Description) != "" {
		score += weightDescription
	}
	score += weightIngredientCount * ratio(r.Ingredients.Count(), saturateIngredients)
	score += weightIngredientText * ratio(utf8.RuneCountInString(r.Ingredients.Text()), saturateIngredientChars)
	score += weightInstructionCount * ratio(r.Instructions.Count(), saturateSteps)
	score += weightInstructionText * ratio(utf8.RuneCountInString(r.Instructions.Text()), saturateStepChars)
	if r.PrepTime != nil || r.CookTime != nil || r.TotalTime != nil {
		score += weightTiming
	}
	if r.Servings != nil {
		score += weightServings
	}
	return math.Min(1, math.Round(score*1000)/1000)
}

// Apply scores r in place and records the content fingerprint the score
// belongs to.
func (s *Scorer) Apply(r *entity.ParsedRecipe) float64 {
	score := s.Score(r)
	r.ConfidenceScore = &score
	r.ScoredFingerprint = r.Fingerprint()
	return score
}

func ratio(n, saturate int) float64 {
	if n <= 0 {
		return 0
	}
	if n >= saturate {
		return 1
	}
	return float64(n) / float64(saturate)
}
