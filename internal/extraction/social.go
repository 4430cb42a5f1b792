package extraction

import (
	"context"
	"regexp"
	"strings"

	"github.com/user/recipe-service/internal/entity"
	"github.com/user/recipe-service/internal/textnorm"
)

// socialTitleRe strips the "<user> on Instagram:" style prefix platforms put
// in og:title.
var socialTitleRe = regexp.MustCompile(`(?i)^.{1,80}?\s+on\s+(instagram|tiktok|facebook|pinterest|x|twitter)\s*:\s*`)

// inlineHeadingRe finds section headings run together on one caption line.
var inlineHeadingRe = regexp.MustCompile(`(?i)[ \t]+(ingredients|instructions|directions|method|steps)\s*:`)

// CaptionStrategy reads a recipe from the caption of a social media post as
// exposed through the page's Open Graph tags.
type CaptionStrategy struct{}

func NewCaptionStrategy() *CaptionStrategy {
	return &CaptionStrategy{}
}

func (s *CaptionStrategy) Name() string { return "caption" }

func (s *CaptionStrategy) Attempt(ctx context.Context, doc *Document) (*entity.ParsedRecipe, error) {
	caption := doc.MetaContent("og:description", "description", "twitter:description")
	if caption == "" {
		return nil, entity.NewExtractionError("post has no caption", nil)
	}
	caption = strings.Trim(socialTitleRe.ReplaceAllString(caption, ""), `"“” `)
	caption = inlineHeadingRe.ReplaceAllString(caption, "\n$1:")
	sec := parseSections(strings.ReplaceAll(caption, " - ", "\n- "))
	if len(sec.Ingredients) == 0 && len(sec.Steps) == 0 {
		return nil, entity.NewExtractionError("caption has no recipe sections", nil)
	}

	r := recipeFromSections(sec, "", doc.SourceType)
	if r.Title == "" {
		r.Title = textnorm.StripHTML(strings.Trim(socialTitleRe.ReplaceAllString(doc.MetaContent("og:title", "twitter:title"), ""), `"“” `))
	}
	r.SourceURL = doc.URL
	if thumb := doc.MetaContent("og:image", "twitter:image"); thumb != "" {
		r.Media.Items = append(r.Media.Items, entity.MediaItem{URL: doc.Resolve(thumb), Role: entity.MediaThumbnail, Source: "meta"})
	}
	if video := doc.MetaContent("og:video:secure_url", "og:video:url", "og:video", "twitter:player:stream"); video != "" {
		r.Media.Items = append(r.Media.Items, entity.MediaItem{URL: doc.Resolve(video), Role: entity.MediaVideo, Source: "meta"})
	}
	return r, nil
}

// OCRStrategy reads a recipe from text recognised in an image.
type OCRStrategy struct{}

func NewOCRStrategy() *OCRStrategy {
	return &OCRStrategy{}
}

func (s *OCRStrategy) Name() string { return "ocr" }

func (s *OCRStrategy) Attempt(ctx context.Context, doc *Document) (*entity.ParsedRecipe, error) {
	if strings.TrimSpace(doc.Text) == "" {
		return nil, entity.NewExtractionError("no text could be recognised in the image", nil)
	}
	sec := parseSections(doc.Text)
	if len(sec.Ingredients) == 0 && len(sec.Steps) == 0 {
		// Without headings, treat the text as one block of instructions.
		sec.Steps = sec.Preamble
		sec.Preamble = nil
		if len(sec.Steps) > 1 {
			sec.Preamble = sec.Steps[:1]
			sec.Steps = sec.Steps[1:]
		}
	}
	return recipeFromSections(sec, "", doc.SourceType), nil
}
