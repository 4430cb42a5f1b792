package extraction

import (
	"context"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/user/recipe-service/internal/entity"
	"github.com/user/recipe-service/internal/textnorm"
)

// FallbackTitle is used when a page offers no title at all.
const FallbackTitle = "Recipe from Web"

// Selector ladders, most specific first. The first selector that matches
// anything wins.
var (
	ingredientSelectors = []string{
		".recipe-ingredient",
		".ingredient",
		`[itemprop="recipeIngredient"]`,
		".ingredients li",
		".recipe-ingredients li",
		".ingredient-list li",
	}
	instructionSelectors = []string{
		".recipe-instruction",
		".instruction",
		`[itemprop="recipeInstructions"]`,
		".instructions li",
		".directions li",
		".recipe-directions li",
		".method li",
	}
	descriptionSelectors = []string{
		".recipe-description",
		".description",
		`[itemprop="description"]`,
		".recipe-summary",
	}
	servingsSelectors = []string{
		".servings",
		".serves",
		".recipe-yield",
		`[itemprop="recipeYield"]`,
	}
)

func timeSelectors(kind string) []string {
	return []string{
		`[itemprop="` + kind + `Time"]`,
		"." + kind + "-time",
		"." + kind + "Time",
		"." + kind + "_time",
		`[class*="` + kind + `-time"]`,
	}
}

// HeuristicStrategy runs generic selector ladders over the whole page. It is
// the last resort and never fails on sparse content; the confidence scorer
// judges what it finds.
type HeuristicStrategy struct{}

func NewHeuristicStrategy() *HeuristicStrategy {
	return &HeuristicStrategy{}
}

func (s *HeuristicStrategy) Name() string { return "heuristic" }

func (s *HeuristicStrategy) Attempt(ctx context.Context, doc *Document) (*entity.ParsedRecipe, error) {
	if doc.Doc == nil {
		return nil, entity.NewExtractionError("no HTML document", nil)
	}
	return scrapeWithLadders(doc, doc.Doc.Selection), nil
}

// scrapeWithLadders applies the generic selector ladders within root.
func scrapeWithLadders(doc *Document, root *goquery.Selection) *entity.ParsedRecipe {
	r := &entity.ParsedRecipe{
		Title:      doc.Title(),
		SourceType: doc.SourceType,
		SourceURL:  doc.URL,
	}
	if r.Title == "" {
		r.Title = FallbackTitle
	}

	r.Ingredients = entity.FlatIngredients(textnorm.CleanIngredients(firstMatchTexts(root, ingredientSelectors))...)
	r.Instructions = entity.StepInstructions(textnorm.NormalizeSteps(instructionTexts(root))...)

	if desc := firstMatchText(root, descriptionSelectors); desc != "" {
		r.Description = desc
	} else {
		r.Description = textnorm.StripHTML(doc.MetaContent("og:description", "description"))
	}
	r.PrepTime = textnorm.DurationPtr(firstTimeValue(root, "prep"))
	r.CookTime = textnorm.DurationPtr(firstTimeValue(root, "cook"))
	r.TotalTime = textnorm.DurationPtr(firstTimeValue(root, "total"))
	if yield := firstMatchValue(root, servingsSelectors); yield != "" {
		r.Servings = textnorm.YieldPtr(yield)
	}
	r.Media.Items = SelectImages(doc, nil, recipeContainer(root))
	return r
}

func firstMatchTexts(root *goquery.Selection, selectors []string) []string {
	for _, sel := range selectors {
		if items := texts(leafMatches(root.Find(sel))); len(items) > 0 {
			return items
		}
	}
	return nil
}

// instructionTexts is firstMatchTexts for instructions, descending into
// list items when a container element matched.
func instructionTexts(root *goquery.Selection) []string {
	for _, sel := range instructionSelectors {
		found := root.Find(sel)
		if found.Length() == 1 && found.Find("li").Length() > 0 {
			found = found.Find("li")
		}
		if items := texts(leafMatches(found)); len(items) > 0 {
			return items
		}
	}
	return nil
}

// leafMatches drops matches that contain other matches, so a wrapper
// element and its children are not both reported.
func leafMatches(sel *goquery.Selection) *goquery.Selection {
	if sel.Length() < 2 {
		return sel
	}
	return sel.FilterFunction(func(_ int, s *goquery.Selection) bool {
		return s.Find("*").FilterSelection(sel).Length() == 0
	})
}

func firstMatchText(root *goquery.Selection, selectors []string) string {
	for _, sel := range selectors {
		if t := textnorm.CollapseWhitespace(root.Find(sel).First().Text()); t != "" {
			return t
		}
	}
	return ""
}

func firstMatchValue(root *goquery.Selection, selectors []string) string {
	for _, sel := range selectors {
		if v := itempropValue(root.Find(sel).First()); v != "" {
			return v
		}
	}
	return ""
}

func firstTimeValue(root *goquery.Selection, kind string) string {
	return firstMatchValue(root, timeSelectors(kind))
}

func recipeContainer(root *goquery.Selection) *goquery.Selection {
	for _, sel := range []string{`[itemtype*="schema.org/Recipe"]`, ".recipe", "article"} {
		if s := root.Find(sel).First(); s.Length() > 0 && s.Find("img").Length() > 0 {
			return s
		}
	}
	if root.Is("body, html") || root.Find("body").Length() > 0 {
		return nil
	}
	return root
}

// hasHeading reports whether text contains any of words, case-insensitively.
func hasHeading(text string, words []string) bool {
	t := strings.ToLower(textnorm.CollapseWhitespace(text))
	for _, w := range words {
		if strings.Contains(t, w) {
			return true
		}
	}
	return false
}
