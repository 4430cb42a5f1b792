package extraction

import (
	"regexp"
	"strings"

	"github.com/user/recipe-service/internal/entity"
	"github.com/user/recipe-service/internal/textnorm"
)

type sectionKind int

const (
	sectionPreamble sectionKind = iota
	sectionIngredients
	sectionSteps
	sectionIgnored
)

var (
	ingredientHeadingRe = regexp.MustCompile(`(?i)^(ingredients?|you('ll)? need|what you('ll)? need|shopping list)\b`)
	stepHeadingRe       = regexp.MustCompile(`(?i)^(instructions?|directions?|method|steps?|preparation|how to make( it)?)\b`)
	ignoredHeadingRe    = regexp.MustCompile(`(?i)^(notes?|nutrition|tips?|equipment|storage|substitutions?)\b`)
	markdownHeadingRe   = regexp.MustCompile(`^#{1,6}\s+`)
	markdownListRe      = regexp.MustCompile(`^(?:[-*+]\s+|\d{1,2}[.)]\s+)`)
	emphasisRe          = regexp.MustCompile(`[*_]{1,3}`)
)

// textSections is free text split by recognised section headings.
type textSections struct {
	Preamble    []string
	Ingredients []string
	Steps       []string
}

// parseSections splits captions, OCR output and Markdown into preamble,
// ingredients and steps using common section headings. A heading may carry
// content after a colon ("Ingredients: flour, sugar").
func parseSections(text string) textSections {
	var (
		out  textSections
		mode = sectionPreamble
	)
	for _, line := range textnorm.SplitLines(text) {
		if isHashtagLine(line) {
			continue
		}
		heading := strings.TrimSpace(emphasisRe.ReplaceAllString(markdownHeadingRe.ReplaceAllString(line, ""), ""))
		if kind, rest, ok := classifyHeading(heading); ok {
			mode = kind
			if rest != "" {
				out.add(mode, rest, true)
			}
			continue
		}
		out.add(mode, line, false)
	}
	return out
}

func classifyHeading(line string) (sectionKind, string, bool) {
	var kind sectionKind
	var loc []int
	switch {
	case ingredientHeadingRe.MatchString(line):
		kind, loc = sectionIngredients, ingredientHeadingRe.FindStringIndex(line)
	case stepHeadingRe.MatchString(line):
		kind, loc = sectionSteps, stepHeadingRe.FindStringIndex(line)
	case ignoredHeadingRe.MatchString(line):
		kind, loc = sectionIgnored, ignoredHeadingRe.FindStringIndex(line)
	default:
		return 0, "", false
	}
	rest := strings.TrimSpace(line[loc[1]:])
	lowerRest := strings.ToLower(rest)
	switch {
	case rest == "":
		return kind, "", true
	case rest[0] >= '0' && rest[0] <= '9', strings.HasPrefix(lowerRest, "time"):
		// "Step 1: ..." and "Preparation time: ..." are content, not headings.
		return 0, "", false
	case strings.HasPrefix(rest, ":"):
		return kind, strings.TrimSpace(rest[1:]), true
	case len(rest) < 20 && !strings.ContainsAny(rest, ".,"):
		// "Ingredients (serves 4)" and similar decorations.
		return kind, "", true
	}
	return 0, "", false
}

func (s *textSections) add(mode sectionKind, line string, inline bool) {
	item := strings.TrimSpace(markdownListRe.ReplaceAllString(textnorm.StripBullet(line), ""))
	item = strings.TrimSpace(emphasisRe.ReplaceAllString(item, ""))
	if item == "" {
		return
	}
	switch mode {
	case sectionPreamble:
		s.Preamble = append(s.Preamble, item)
	case sectionIngredients:
		if inline && strings.Contains(item, ",") {
			for _, part := range strings.Split(item, ",") {
				if p := strings.TrimSpace(part); p != "" {
					s.Ingredients = append(s.Ingredients, p)
				}
			}
			return
		}
		s.Ingredients = append(s.Ingredients, item)
	case sectionSteps:
		// Keep numbering so embedded "1. ... 2. ..." runs can still be split.
		s.Steps = append(s.Steps, strings.TrimSpace(emphasisRe.ReplaceAllString(line, "")))
	}
}

func isHashtagLine(line string) bool {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false
	}
	for _, f := range fields {
		if !strings.HasPrefix(f, "#") || len(f) < 2 || f[1] == '#' {
			return false
		}
	}
	return true
}

// recipeFromSections builds a candidate from parsed sections. The first
// short preamble line becomes the title unless title is already known.
func recipeFromSections(sec textSections, title string, sourceType entity.SourceType) *entity.ParsedRecipe {
	r := &entity.ParsedRecipe{Title: title, SourceType: sourceType}
	preamble := sec.Preamble
	if r.Title == "" && len(preamble) > 0 && len([]rune(preamble[0])) <= 100 {
		r.Title = preamble[0]
		preamble = preamble[1:]
	}
	r.Description = textnorm.CollapseWhitespace(strings.Join(preamble, " "))
	r.Ingredients = entity.FlatIngredients(textnorm.CleanIngredients(sec.Ingredients)...)
	r.Instructions = entity.StepInstructions(textnorm.NormalizeSteps(sec.Steps)...)
	for _, line := range append(append([]string{}, sec.Preamble...), sec.Ingredients...) {
		lower := strings.ToLower(line)
		if r.Servings == nil && (strings.Contains(lower, "serves") || strings.Contains(lower, "servings")) {
			r.Servings = textnorm.YieldPtr(line)
		}
	}
	return r
}
