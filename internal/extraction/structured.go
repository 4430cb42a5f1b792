package extraction

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/user/recipe-service/internal/entity"
	"github.com/user/recipe-service/internal/textnorm"
)

// recipeSchema describes the shapes a schema.org Recipe node may take in
// the wild. It only rejects nodes whose fields have impossible types; null
// is accepted everywhere since SEO plugins emit it for unset fields.
const recipeSchema = `{
  "type": "object",
  "properties": {
    "name": {"type": ["string", "array", "null"]},
    "description": {"type": ["string", "array", "null"]},
    "recipeIngredient": {"type": ["string", "array", "null"], "items": {"type": ["string", "object", "number", "null"]}},
    "ingredients": {"type": ["string", "array", "null"], "items": {"type": ["string", "object", "number", "null"]}},
    "recipeInstructions": {"type": ["string", "array", "object", "null"]},
    "recipeYield": {"type": ["string", "number", "array", "object", "null"]},
    "prepTime": {"type": ["string", "number", "null"]},
    "cookTime": {"type": ["string", "number", "null"]},
    "totalTime": {"type": ["string", "number", "null"]},
    "image": {"type": ["string", "array", "object", "null"]},
    "video": {"type": ["string", "array", "object", "null"]}
  }
}`

var (
	schemaOnce     sync.Once
	compiledSchema *jsonschema.Schema
	schemaErr      error
)

func loadRecipeSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource("recipe.json", strings.NewReader(recipeSchema)); err != nil {
			schemaErr = fmt.Errorf("add schema: %w", err)
			return
		}
		compiledSchema, schemaErr = compiler.Compile("recipe.json")
	})
	return compiledSchema, schemaErr
}

// StructuredStrategy reads schema.org Recipe metadata: JSON-LD first, then
// microdata.
type StructuredStrategy struct{}

func NewStructuredStrategy() *StructuredStrategy {
	return &StructuredStrategy{}
}

func (s *StructuredStrategy) Name() string { return "structured" }

func (s *StructuredStrategy) Attempt(ctx context.Context, doc *Document) (*entity.ParsedRecipe, error) {
	if doc.Doc == nil {
		return nil, entity.NewExtractionError("no HTML document", nil)
	}
	node, err := findJSONLDRecipe(doc.Doc)
	if err != nil {
		return nil, err
	}
	if node != nil {
		schema, err := loadRecipeSchema()
		if err != nil {
			return nil, fmt.Errorf("load recipe schema: %w", err)
		}
		if err := schema.Validate(node); err != nil {
			return nil, entity.NewStructuralError("structured recipe data is malformed", err)
		}
		return recipeFromJSONLD(doc, node), nil
	}
	if scope := doc.Doc.Find(`[itemtype*="schema.org/Recipe"]`).First(); scope.Length() > 0 {
		return recipeFromMicrodata(doc, scope), nil
	}
	return nil, entity.NewExtractionError("no structured recipe data", nil)
}

// findJSONLDRecipe returns the first Recipe node in any JSON-LD block.
// Blocks that fail to parse are skipped.
func findJSONLDRecipe(doc *goquery.Document) (map[string]any, error) {
	var (
		found    map[string]any
		parseErr error
	)
	doc.Find(`script[type="application/ld+json"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		raw := strings.TrimSpace(s.Text())
		if raw == "" {
			return true
		}
		var data any
		if err := json.Unmarshal([]byte(raw), &data); err != nil {
			// Some sites emit raw control characters inside strings.
			cleaned := strings.Map(func(r rune) rune {
				if r == '\n' || r == '\r' || r == '\t' {
					return ' '
				}
				return r
			}, raw)
			if err := json.Unmarshal([]byte(cleaned), &data); err != nil {
				parseErr = entity.NewStructuralError("structured recipe data is not valid JSON", err)
				return true
			}
		}
		found = findRecipeNode(data, 0)
		return found == nil
	})
	if found == nil && parseErr != nil {
		return nil, parseErr
	}
	return found, nil
}

func findRecipeNode(v any, depth int) map[string]any {
	if depth > 6 {
		return nil
	}
	switch t := v.(type) {
	case []any:
		for _, item := range t {
			if n := findRecipeNode(item, depth+1); n != nil {
				return n
			}
		}
	case map[string]any:
		if isRecipeType(t["@type"]) {
			return t
		}
		for _, key := range []string{"@graph", "mainEntity", "mainEntityOfPage", "itemListElement"} {
			if child, ok := t[key]; ok {
				if n := findRecipeNode(child, depth+1); n != nil {
					return n
				}
			}
		}
	}
	return nil
}

func isRecipeType(v any) bool {
	switch t := v.(type) {
	case string:
		return strings.EqualFold(t, "Recipe") || strings.HasSuffix(t, "/Recipe")
	case []any:
		for _, item := range t {
			if isRecipeType(item) {
				return true
			}
		}
	}
	return false
}

func recipeFromJSONLD(doc *Document, node map[string]any) *entity.ParsedRecipe {
	r := &entity.ParsedRecipe{
		Title:       textnorm.StripHTML(firstString(node["name"])),
		Description: textnorm.StripHTML(firstString(node["description"])),
		SourceType:  doc.SourceType,
		SourceURL:   doc.URL,
	}
	if n, ok := textnorm.ParseDurationValue(node["prepTime"]); ok {
		r.PrepTime = &n
	}
	if n, ok := textnorm.ParseDurationValue(node["cookTime"]); ok {
		r.CookTime = &n
	}
	if n, ok := textnorm.ParseDurationValue(node["totalTime"]); ok {
		r.TotalTime = &n
	}
	r.Servings = textnorm.YieldPtr(yieldValue(node["recipeYield"]))

	ingredients := node["recipeIngredient"]
	if ingredients == nil {
		ingredients = node["ingredients"]
	}
	r.Ingredients = entity.FlatIngredients(textnorm.CleanIngredients(jsonLDIngredients(ingredients))...)
	r.Instructions = jsonLDInstructions(node["recipeInstructions"])

	r.Media.Items = SelectImages(doc, jsonLDImageURLs(node["image"]), nil)
	if video := jsonLDVideoURL(node["video"]); video != "" {
		r.Media.Items = append(r.Media.Items, entity.MediaItem{URL: doc.Resolve(video), Role: entity.MediaVideo, Source: "structured"})
	}
	if r.Title == "" {
		r.Title = doc.Title()
	}
	return r
}

func yieldValue(v any) any {
	if m, ok := v.(map[string]any); ok {
		return m["value"]
	}
	return v
}

func firstString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case []any:
		for _, item := range t {
			if s := firstString(item); s != "" {
				return s
			}
		}
	case float64:
		return fmt.Sprint(t)
	}
	return ""
}

func jsonLDIngredients(v any) []string {
	switch t := v.(type) {
	case string:
		return textnorm.SplitLines(t)
	case []any:
		var out []string
		for _, item := range t {
			switch it := item.(type) {
			case string:
				out = append(out, it)
			case float64:
				out = append(out, fmt.Sprint(it))
			case map[string]any:
				if s := firstString(it["text"]); s != "" {
					out = append(out, s)
				} else if s := firstString(it["name"]); s != "" {
					out = append(out, s)
				}
			}
		}
		return out
	}
	return nil
}

// jsonLDInstructions flattens strings, HowToStep and HowToSection nodes
// into ordered steps.
func jsonLDInstructions(v any) entity.Instructions {
	var raw []string
	var walk func(any, int)
	walk = func(v any, depth int) {
		if depth > 4 {
			return
		}
		switch t := v.(type) {
		case string:
			if strings.Contains(t, "<li") || strings.Contains(t, "<p") {
				raw = append(raw, htmlListItems(t)...)
				return
			}
			raw = append(raw, textnorm.SplitLines(t)...)
		case []any:
			for _, item := range t {
				walk(item, depth+1)
			}
		case map[string]any:
			if list, ok := t["itemListElement"]; ok {
				walk(list, depth+1)
				return
			}
			if s := firstString(t["text"]); s != "" {
				raw = append(raw, s)
			} else if s := firstString(t["name"]); s != "" {
				raw = append(raw, s)
			}
		}
	}
	walk(v, 0)
	return entity.StepInstructions(textnorm.NormalizeSteps(raw)...)
}

func htmlListItems(fragment string) []string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return []string{fragment}
	}
	var out []string
	doc.Find("li, p").Each(func(_ int, s *goquery.Selection) {
		if s.Find("li, p").Length() > 0 {
			return
		}
		if t := textnorm.CollapseWhitespace(s.Text()); t != "" {
			out = append(out, t)
		}
	})
	if len(out) == 0 {
		return []string{fragment}
	}
	return out
}

func jsonLDImageURLs(v any) []string {
	switch t := v.(type) {
	case string:
		return []string{t}
	case []any:
		var out []string
		for _, item := range t {
			out = append(out, jsonLDImageURLs(item)...)
		}
		return out
	case map[string]any:
		if u := firstString(t["url"]); u != "" {
			return []string{u}
		}
		if u := firstString(t["contentUrl"]); u != "" {
			return []string{u}
		}
	}
	return nil
}

func jsonLDVideoURL(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case []any:
		for _, item := range t {
			if u := jsonLDVideoURL(item); u != "" {
				return u
			}
		}
	case map[string]any:
		for _, key := range []string{"contentUrl", "embedUrl", "url"} {
			if u := firstString(t[key]); u != "" {
				return u
			}
		}
	}
	return ""
}

func recipeFromMicrodata(doc *Document, scope *goquery.Selection) *entity.ParsedRecipe {
	prop := func(name string) *goquery.Selection {
		return scope.Find(fmt.Sprintf(`[itemprop="%s"]`, name))
	}
	r := &entity.ParsedRecipe{
		Title:       textnorm.CollapseWhitespace(prop("name").First().Text()),
		Description: itempropValue(prop("description").First()),
		SourceType:  doc.SourceType,
		SourceURL:   doc.URL,
		PrepTime:    textnorm.DurationPtr(itempropValue(prop("prepTime").First())),
		CookTime:    textnorm.DurationPtr(itempropValue(prop("cookTime").First())),
		TotalTime:   textnorm.DurationPtr(itempropValue(prop("totalTime").First())),
		Servings:    textnorm.YieldPtr(itempropValue(prop("recipeYield").First())),
	}
	ingredients := prop("recipeIngredient")
	if ingredients.Length() == 0 {
		ingredients = prop("ingredients")
	}
	r.Ingredients = entity.FlatIngredients(textnorm.CleanIngredients(texts(ingredients))...)

	steps := prop("recipeInstructions")
	if steps.Find("li").Length() > 0 {
		steps = steps.Find("li")
	}
	r.Instructions = entity.StepInstructions(textnorm.NormalizeSteps(texts(steps))...)

	var images []string
	prop("image").Each(func(_ int, s *goquery.Selection) {
		if v := itempropValue(s); v != "" {
			images = append(images, v)
		}
	})
	r.Media.Items = SelectImages(doc, images, scope)
	if r.Title == "" {
		r.Title = doc.Title()
	}
	return r
}

// itempropValue reads a microdata value from its content, datetime, src or
// text, in that order.
func itempropValue(s *goquery.Selection) string {
	if s.Length() == 0 {
		return ""
	}
	for _, attr := range []string{"content", "datetime", "src", "href"} {
		if v, ok := s.Attr(attr); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return textnorm.CollapseWhitespace(s.Text())
}

func texts(sel *goquery.Selection) []string {
	var out []string
	sel.Each(func(_ int, s *goquery.Selection) {
		if t := textnorm.CollapseWhitespace(s.Text()); t != "" {
			out = append(out, t)
		}
	})
	return out
}
