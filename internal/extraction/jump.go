package extraction

import (
	"context"
	"regexp"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"

	"github.com/user/recipe-service/internal/entity"
	"github.com/user/recipe-service/internal/textnorm"
)

var (
	jumpLinkRe       = regexp.MustCompile(`(?i)\b(jump|skip|go|scroll)\s+(straight\s+)?to\s+(the\s+)?recipe\b|^\s*recipe\s*[↓⬇]|[↓⬇]\s*recipe`)
	markdownEscapeRe = regexp.MustCompile("\\\\([\\\\`*_{}\\[\\]()#+\\-.!|])")
)

var (
	ingredientHeadingWords = []string{"ingredient"}
	stepHeadingWords       = []string{"instruction", "direction", "method", "step", "preparation"}
)

// JumpStrategy follows an in-page "jump to recipe" link and extracts from
// the section it targets.
type JumpStrategy struct {
	converter *md.Converter
}

func NewJumpStrategy() *JumpStrategy {
	return &JumpStrategy{converter: md.NewConverter("", true, nil)}
}

func (s *JumpStrategy) Name() string { return "jump" }

func (s *JumpStrategy) Attempt(ctx context.Context, doc *Document) (*entity.ParsedRecipe, error) {
	if doc.Doc == nil {
		return nil, entity.NewExtractionError("no HTML document", nil)
	}
	section := findJumpTarget(doc.Doc)
	if section == nil {
		return nil, entity.NewExtractionError("no jump-to-recipe link", nil)
	}

	r := scrapeWithLadders(doc, section)
	if r.Ingredients.IsEmpty() {
		r.Ingredients = entity.FlatIngredients(textnorm.CleanIngredients(listAfterHeading(section, ingredientHeadingWords))...)
	}
	if r.Instructions.IsEmpty() {
		r.Instructions = entity.StepInstructions(textnorm.NormalizeSteps(listAfterHeading(section, stepHeadingWords))...)
	}
	if !r.HasContent() {
		s.fillFromMarkdown(r, section)
	}
	return r, nil
}

// fillFromMarkdown converts an unstructured section to Markdown and reads
// ingredients and steps from its headings.
func (s *JumpStrategy) fillFromMarkdown(r *entity.ParsedRecipe, section *goquery.Selection) {
	html, err := goquery.OuterHtml(section)
	if err != nil {
		return
	}
	markdown, err := s.converter.ConvertString(html)
	if err != nil {
		return
	}
	sec := parseSections(markdownEscapeRe.ReplaceAllString(markdown, "$1"))
	if r.Ingredients.IsEmpty() {
		r.Ingredients = entity.FlatIngredients(textnorm.CleanIngredients(sec.Ingredients)...)
	}
	if r.Instructions.IsEmpty() {
		r.Instructions = entity.StepInstructions(textnorm.NormalizeSteps(sec.Steps)...)
	}
}

// findJumpTarget returns the recipe section a jump link points at.
func findJumpTarget(doc *goquery.Document) *goquery.Selection {
	var target *goquery.Selection
	doc.Find("a[href^='#'], button[data-target^='#'], a[data-href^='#']").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		label := textnorm.CollapseWhitespace(a.Text())
		if title, ok := a.Attr("title"); ok && label == "" {
			label = title
		}
		if !jumpLinkRe.MatchString(label) {
			return true
		}
		ref := a.AttrOr("href", "")
		if !strings.HasPrefix(ref, "#") {
			ref = a.AttrOr("data-target", a.AttrOr("data-href", ""))
		}
		id := strings.TrimPrefix(ref, "#")
		if id == "" {
			return true
		}
		el := doc.Find(`[id="` + strings.ReplaceAll(id, `"`, `\"`) + `"]`).First()
		if el.Length() == 0 {
			el = doc.Find(`a[name="` + strings.ReplaceAll(id, `"`, `\"`) + `"]`).First()
		}
		if el.Length() == 0 {
			return true
		}
		target = expandSection(el)
		return false
	})
	return target
}

// expandSection widens an anchor-only target (an empty div or <a name>) to
// the content that follows it.
func expandSection(el *goquery.Selection) *goquery.Selection {
	const minSectionText = 80
	if len(textnorm.CollapseWhitespace(el.Text())) >= minSectionText {
		return el
	}
	if next := el.NextFiltered("*"); next.Length() > 0 && len(textnorm.CollapseWhitespace(next.Text())) >= minSectionText {
		return next
	}
	parent := el.Parent()
	for i := 0; i < 3 && parent.Length() > 0; i++ {
		if len(textnorm.CollapseWhitespace(parent.Text())) >= minSectionText {
			return parent
		}
		parent = parent.Parent()
	}
	return el
}

// listAfterHeading returns the items of the first list that follows a
// heading containing one of words.
func listAfterHeading(section *goquery.Selection, words []string) []string {
	var items []string
	section.Find("h2, h3, h4, h5, strong, p").EachWithBreak(func(_ int, h *goquery.Selection) bool {
		if len(h.Text()) > 60 || !hasHeading(h.Text(), words) {
			return true
		}
		list := h.NextAllFiltered("ul, ol").First()
		if list.Length() == 0 {
			list = h.Parent().NextAllFiltered("ul, ol").First()
		}
		if list.Length() == 0 {
			return true
		}
		items = texts(list.Find("li"))
		return len(items) == 0
	})
	return items
}
