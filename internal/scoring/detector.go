package scoring

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/user/recipe-service/internal/entity"
)

const (
	DefaultBlockedThreshold = 0.25

	minIngredientChars  = 50
	minInstructionChars = 100
)

// denialPhrases appear on login walls, bot challenges and block pages.
var denialPhrases = []string{
	"access denied",
	"forbidden",
	"sign in to continue",
	"log in to continue",
	"login to continue",
	"subscribe to continue",
	"verify you are human",
	"are you a robot",
	"captcha",
	"enable javascript",
	"attention required",
	"cloudflare",
	"request blocked",
}

// Detector decides whether an extraction result came from a page that
// refused automated access.
type Detector struct {
	threshold float64
}

func NewDetector(threshold float64) *Detector {
	if threshold <= 0 {
		threshold = DefaultBlockedThreshold
	}
	return &Detector{threshold: threshold}
}

// IsLikelyBlocked is the sparse-content rule: a low score together with too
// little ingredient and instruction text.
func (d *Detector) IsLikelyBlocked(score float64, ingredientChars, instructionChars int) bool {
	return score <= d.threshold && ingredientChars < minIngredientChars && instructionChars < minInstructionChars
}

// Check returns an access-blocked error when r looks like the output of a
// blocked page. pageText is the visible text of the fetched page, used to
// name the indicator found; it may be empty.
func (d *Detector) Check(r *entity.ParsedRecipe, score float64, pageText string) error {
	ingredientChars := utf8.RuneCountInString(r.Ingredients.Text())
	instructionChars := utf8.RuneCountInString(r.Instructions.Text())
	if !d.IsLikelyBlocked(score, ingredientChars, instructionChars) {
		return nil
	}
	if phrase := DenialPhrase(pageText); phrase != "" {
		return entity.NewAccessBlockedError(
			fmt.Sprintf("the website appears to block automated access (page mentions %q)", phrase), 0, nil)
	}
	return entity.NewAccessBlockedError(
		"the website returned too little recipe content; it may be protected against automated access", 0, nil)
}

// DenialPhrase returns the first access-denial phrase found in text.
func DenialPhrase(text string) string {
	lower := strings.ToLower(text)
	for _, p := range denialPhrases {
		if strings.Contains(lower, p) {
			return p
		}
	}
	return ""
}
