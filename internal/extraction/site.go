package extraction

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"gopkg.in/yaml.v3"

	"github.com/user/recipe-service/internal/entity"
	"github.com/user/recipe-service/internal/textnorm"
	"github.com/user/recipe-service/internal/worker"
	"github.com/user/recipe-service/pkg/utils"
)

// SiteLayout describes where a known site or recipe plugin keeps each
// recipe field. A layout applies when the page host matches one of Domains
// or, for plugins used across many sites, when Marker is present.
type SiteLayout struct {
	Name                string   `yaml:"name"`
	Domains             []string `yaml:"domains"`
	Marker              string   `yaml:"marker"`
	Container           string   `yaml:"container"`
	Title               string   `yaml:"title"`
	Description         string   `yaml:"description"`
	IngredientGroup     string   `yaml:"ingredient_group"`
	IngredientGroupName string   `yaml:"ingredient_group_name"`
	Ingredients         string   `yaml:"ingredients"`
	Instructions        string   `yaml:"instructions"`
	PrepTime            string   `yaml:"prep_time"`
	CookTime            string   `yaml:"cook_time"`
	TotalTime           string   `yaml:"total_time"`
	Servings            string   `yaml:"servings"`
	Image               string   `yaml:"image"`
}

type layoutFile struct {
	Layouts []SiteLayout `yaml:"layouts"`
}

// DefaultLayouts covers common recipe card plugins and a few large sites.
func DefaultLayouts() []SiteLayout {
	return []SiteLayout{
		{
			Name:                "wp-recipe-maker",
			Marker:              ".wprm-recipe-container",
			Container:           ".wprm-recipe-container",
			Title:               ".wprm-recipe-name",
			Description:         ".wprm-recipe-summary",
			IngredientGroup:     ".wprm-recipe-ingredient-group",
			IngredientGroupName: ".wprm-recipe-group-name",
			Ingredients:         ".wprm-recipe-ingredient",
			Instructions:        ".wprm-recipe-instruction-text",
			PrepTime:            ".wprm-recipe-prep_time-minutes",
			CookTime:            ".wprm-recipe-cook_time-minutes",
			TotalTime:           ".wprm-recipe-total_time-minutes",
			Servings:            ".wprm-recipe-servings",
			Image:               ".wprm-recipe-image img",
		},
		{
			Name:         "tasty-recipes",
			Marker:       ".tasty-recipes",
			Container:    ".tasty-recipes",
			Title:        ".tasty-recipes-title",
			Description:  ".tasty-recipes-description",
			Ingredients:  ".tasty-recipes-ingredients li",
			Instructions: ".tasty-recipes-instructions li",
			PrepTime:     ".tasty-recipes-prep-time",
			CookTime:     ".tasty-recipes-cook-time",
			TotalTime:    ".tasty-recipes-total-time",
			Servings:     ".tasty-recipes-yield",
			Image:        ".tasty-recipes-image img",
		},
		{
			Name:         "mediavine-create",
			Marker:       ".mv-create-card",
			Container:    ".mv-create-card",
			Title:        ".mv-create-title",
			Description:  ".mv-create-description",
			Ingredients:  ".mv-create-ingredients li",
			Instructions: ".mv-create-instructions li",
			PrepTime:     ".mv-create-time-prep .mv-create-time-format",
			CookTime:     ".mv-create-time-active .mv-create-time-format",
			TotalTime:    ".mv-create-time-total .mv-create-time-format",
			Servings:     ".mv-create-yield",
			Image:        ".mv-create-image img",
		},
		{
			Name:         "allrecipes",
			Domains:      []string{"allrecipes.com"},
			Title:        "h1",
			Description:  ".article-subheading",
			Ingredients:  ".mm-recipes-structured-ingredients__list-item",
			Instructions: ".mm-recipes-steps__content li p",
			PrepTime:     ".mm-recipes-details__item:contains('Prep Time') .mm-recipes-details__value",
			CookTime:     ".mm-recipes-details__item:contains('Cook Time') .mm-recipes-details__value",
			TotalTime:    ".mm-recipes-details__item:contains('Total Time') .mm-recipes-details__value",
			Servings:     ".mm-recipes-details__item:contains('Servings') .mm-recipes-details__value",
			Image:        ".primary-image img",
		},
		{
			Name:         "bbc-good-food",
			Domains:      []string{"bbcgoodfood.com"},
			Title:        "h1",
			Description:  ".recipe-header__description",
			Ingredients:  ".recipe__ingredients li",
			Instructions: ".recipe__method-steps li",
			PrepTime:     ".recipe-cook-and-prep-details__item:contains('Prep') time",
			CookTime:     ".recipe-cook-and-prep-details__item:contains('Cook') time",
			Servings:     ".post-header__servings",
			Image:        ".post-header__image-container img",
		},
		{
			Name:         "food-network",
			Domains:      []string{"foodnetwork.com"},
			Title:        ".o-AssetTitle__a-HeadlineText",
			Ingredients:  ".o-Ingredients__a-Ingredient--CheckboxLabel",
			Instructions: ".o-Method__m-Step",
			TotalTime:    ".o-RecipeInfo__a-Description.m-RecipeInfo__a-Description--Total",
			Servings:     ".o-RecipeInfo__m-Yield .o-RecipeInfo__a-Description",
			Image:        ".m-MediaBlock__a-Image",
		},
	}
}

// LoadLayouts reads additional layouts from a YAML file of the form
// `layouts: [...]`.
func LoadLayouts(path string) ([]SiteLayout, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read layouts file: %w", err)
	}
	var f layoutFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse layouts file: %w", err)
	}
	for i, l := range f.Layouts {
		if l.Name == "" {
			return nil, fmt.Errorf("layout %d has no name", i+1)
		}
		if len(l.Domains) == 0 && l.Marker == "" {
			return nil, fmt.Errorf("layout %s needs domains or a marker", l.Name)
		}
	}
	return f.Layouts, nil
}

// LayoutRegistry keeps site layouts by name, in registration order.
type LayoutRegistry struct {
	layouts map[string]SiteLayout
	order   []string
}

func NewLayoutRegistry() *LayoutRegistry {
	return &LayoutRegistry{layouts: map[string]SiteLayout{}}
}

// Register adds or replaces a layout.
func (r *LayoutRegistry) Register(layout SiteLayout) {
	if _, exists := r.layouts[layout.Name]; !exists {
		r.order = append(r.order, layout.Name)
	}
	r.layouts[layout.Name] = layout
}

// Len is the number of registered layouts.
func (r *LayoutRegistry) Len() int { return len(r.order) }

// Resolve finds the layout for a page: domain matches take precedence over
// marker matches.
func (r *LayoutRegistry) Resolve(host string, doc *goquery.Document) (SiteLayout, bool) {
	if host != "" {
		for _, name := range r.order {
			for _, d := range r.layouts[name].Domains {
				if utils.HostMatches(host, d) {
					return r.layouts[name], true
				}
			}
		}
	}
	for _, name := range r.order {
		l := r.layouts[name]
		if l.Marker != "" && doc.Find(l.Marker).Length() > 0 {
			return l, true
		}
	}
	return SiteLayout{}, false
}

// SiteStrategy scrapes pages with a known layout. Scraping runs on a
// bounded worker pool so large documents do not pile up on request
// goroutines.
type SiteStrategy struct {
	registry *LayoutRegistry
	pool     *worker.Pool
}

// NewSiteStrategy creates the strategy. pool may be nil to scrape inline.
func NewSiteStrategy(registry *LayoutRegistry, pool *worker.Pool) *SiteStrategy {
	return &SiteStrategy{registry: registry, pool: pool}
}

func (s *SiteStrategy) Name() string { return "site" }

func (s *SiteStrategy) Attempt(ctx context.Context, doc *Document) (*entity.ParsedRecipe, error) {
	if doc.Doc == nil {
		return nil, entity.NewExtractionError("no HTML document", nil)
	}
	layout, ok := s.registry.Resolve(doc.Host(), doc.Doc)
	if !ok {
		return nil, entity.NewExtractionError("no site layout for "+doc.Host(), nil)
	}
	scrape := func(context.Context) (*entity.ParsedRecipe, error) {
		return scrapeLayout(doc, layout), nil
	}
	if s.pool == nil {
		return scrape(ctx)
	}
	return worker.Do(ctx, s.pool, scrape)
}

func scrapeLayout(doc *Document, l SiteLayout) *entity.ParsedRecipe {
	root := doc.Doc.Selection
	if l.Container != "" {
		if c := root.Find(l.Container).First(); c.Length() > 0 {
			root = c
		}
	}
	text := func(sel string) string {
		if sel == "" {
			return ""
		}
		return textnorm.CollapseWhitespace(root.Find(sel).First().Text())
	}
	value := func(sel string) string {
		if sel == "" {
			return ""
		}
		return itempropValue(root.Find(sel).First())
	}

	r := &entity.ParsedRecipe{
		Title:       text(l.Title),
		Description: text(l.Description),
		SourceType:  doc.SourceType,
		SourceURL:   doc.URL,
		PrepTime:    textnorm.DurationPtr(value(l.PrepTime)),
		CookTime:    textnorm.DurationPtr(value(l.CookTime)),
		TotalTime:   textnorm.DurationPtr(value(l.TotalTime)),
	}
	if r.Title == "" {
		r.Title = doc.Title()
	}
	if servings := value(l.Servings); servings != "" {
		r.Servings = textnorm.YieldPtr(servings)
	}
	r.Ingredients = layoutIngredients(root, l)
	if l.Instructions != "" {
		r.Instructions = entity.StepInstructions(textnorm.NormalizeSteps(texts(root.Find(l.Instructions)))...)
	}

	var images []string
	if l.Image != "" {
		root.Find(l.Image).Each(func(_ int, s *goquery.Selection) {
			if src := imgSource(s); src != "" {
				images = append(images, src)
			}
		})
	}
	r.Media.Items = SelectImages(doc, images, root)
	return r
}

// layoutIngredients returns grouped ingredients when the layout defines
// named groups and the page uses more than one, flat ingredients otherwise.
func layoutIngredients(root *goquery.Selection, l SiteLayout) entity.Ingredients {
	if l.Ingredients == "" {
		return entity.Ingredients{}
	}
	if l.IngredientGroup != "" && l.IngredientGroupName != "" {
		var groups []entity.IngredientGroup
		root.Find(l.IngredientGroup).Each(func(i int, g *goquery.Selection) {
			name := textnorm.CollapseWhitespace(g.Find(l.IngredientGroupName).First().Text())
			items := textnorm.CleanIngredients(texts(g.Find(l.Ingredients)))
			if len(items) == 0 {
				return
			}
			if name == "" {
				name = fmt.Sprintf("Part %d", i+1)
			}
			groups = append(groups, entity.IngredientGroup{Name: strings.TrimSuffix(name, ":"), Items: items})
		})
		if len(groups) > 1 {
			return entity.Ingredients{Groups: groups}
		}
	}
	return entity.FlatIngredients(textnorm.CleanIngredients(texts(root.Find(l.Ingredients)))...)
}
