package extraction

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/user/recipe-service/internal/entity"
	"github.com/user/recipe-service/internal/textnorm"
	"github.com/user/recipe-service/pkg/utils"
)

// Document is the parsed form of a source handed to strategies. HTML sources
// carry a goquery document; OCR sources carry only Text.
type Document struct {
	URL        string
	Base       *url.URL
	SourceType entity.SourceType
	HTML       string
	Doc        *goquery.Document
	Meta       map[string]string
	Text       string
}

// NewHTMLDocument parses html fetched from pageURL.
func NewHTMLDocument(pageURL, html string, sourceType entity.SourceType) (*Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, entity.NewStructuralError("the page could not be parsed as HTML", err)
	}
	d := &Document{
		URL:        pageURL,
		SourceType: sourceType,
		HTML:       html,
		Doc:        doc,
		Meta:       make(map[string]string),
	}
	if pageURL != "" {
		if u, err := url.Parse(pageURL); err == nil {
			d.Base = u
		}
	}

	doc.Find("meta").Each(func(i int, s *goquery.Selection) {
		name, _ := s.Attr("name")
		property, _ := s.Attr("property")
		content, _ := s.Attr("content")
		key := name
		if property != "" {
			key = property
		}
		key = strings.ToLower(strings.TrimSpace(key))
		if key != "" && content != "" {
			if _, seen := d.Meta[key]; !seen {
				d.Meta[key] = strings.TrimSpace(content)
			}
		}
	})

	body := doc.Find("body").Clone()
	body.Find("script, style, noscript, template").Remove()
	d.Text = textnorm.CollapseWhitespace(body.Text())
	return d, nil
}

// NewTextDocument wraps plain text, such as OCR output.
func NewTextDocument(text string, sourceType entity.SourceType) *Document {
	return &Document{SourceType: sourceType, Text: text, Meta: map[string]string{}}
}

// MetaContent returns the first non-empty meta value among keys.
func (d *Document) MetaContent(keys ...string) string {
	for _, k := range keys {
		if v := d.Meta[k]; v != "" {
			return v
		}
	}
	return ""
}

// Resolve turns ref into an absolute URL against the page.
func (d *Document) Resolve(ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" || d.Base == nil {
		return ref
	}
	abs, err := utils.ToAbsoluteURL(d.Base, ref)
	if err != nil {
		return ref
	}
	return abs
}

// Host is the lower-cased hostname of the page, without a "www." prefix.
func (d *Document) Host() string {
	if d.Base == nil {
		return ""
	}
	return utils.NormalizeHost(d.Base.Hostname())
}

// Title returns the best page title from meta tags and headings.
func (d *Document) Title() string {
	if d.Doc == nil {
		return ""
	}
	if t := d.MetaContent("og:title", "twitter:title"); t != "" {
		return textnorm.StripHTML(t)
	}
	if h1 := textnorm.CollapseWhitespace(d.Doc.Find("h1").First().Text()); h1 != "" {
		return h1
	}
	return textnorm.CollapseWhitespace(d.Doc.Find("title").First().Text())
}
