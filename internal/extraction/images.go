package extraction

import (
	"sort"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/user/recipe-service/internal/entity"
)

const (
	maxImages        = 3
	minImageSize     = 200
	rankMeta         = 300
	rankStructured   = 200
	rankContent      = 100
	bonusFoodKeyword = 50
)

var (
	negativeImageKeywords = []string{
		"icon", "logo", "avatar", "sprite", "badge", "emoji", "gravatar",
		"facebook", "twitter", "pinterest", "instagram", "social", "share",
		"/ads/", "advert", "pixel", "spinner", "placeholder", "blank.gif", "loading",
	}
	foodImageKeywords = []string{
		"recipe", "food", "dish", "meal", "cook", "bake", "baking", "cake",
		"bread", "salad", "soup", "pasta", "chicken", "dessert", "dinner", "lunch", "breakfast",
	}
	metaImageKeys = []string{"og:image", "og:image:url", "og:image:secure_url", "twitter:image", "twitter:image:src"}
)

type imageCandidate struct {
	item  entity.MediaItem
	rank  int
	order int
}

// SelectImages ranks image candidates (meta tags, then structured data, then
// <img> tags inside container) and returns at most three usable ones.
// container may be nil, in which case the page's main content area is used.
func SelectImages(doc *Document, structured []string, container *goquery.Selection) []entity.MediaItem {
	var cands []imageCandidate
	add := func(item entity.MediaItem, hint string, rank int) {
		item.URL = doc.Resolve(item.URL)
		if item.URL == "" || strings.HasPrefix(item.URL, "data:") {
			return
		}
		hay := strings.ToLower(item.URL + " " + item.Alt + " " + hint)
		if containsAny(hay, negativeImageKeywords) {
			return
		}
		if (item.Width > 0 && item.Width < minImageSize) || (item.Height > 0 && item.Height < minImageSize) {
			return
		}
		if containsAny(hay, foodImageKeywords) {
			rank += bonusFoodKeyword
		}
		cands = append(cands, imageCandidate{item: item, rank: rank, order: len(cands)})
	}

	for _, key := range metaImageKeys {
		if v := doc.Meta[key]; v != "" {
			add(entity.MediaItem{
				URL:    v,
				Role:   entity.MediaImage,
				Source: "meta",
				Width:  atoiAttr(doc.Meta["og:image:width"]),
				Height: atoiAttr(doc.Meta["og:image:height"]),
			}, "", rankMeta)
		}
	}
	for _, u := range structured {
		add(entity.MediaItem{URL: u, Role: entity.MediaImage, Source: "structured"}, "", rankStructured)
	}
	if doc.Doc != nil {
		if container == nil || container.Length() == 0 {
			container = mainContent(doc.Doc)
		}
		container.Find("img").Each(func(_ int, s *goquery.Selection) {
			src := imgSource(s)
			if src == "" {
				return
			}
			alt, _ := s.Attr("alt")
			class, _ := s.Attr("class")
			w, _ := s.Attr("width")
			h, _ := s.Attr("height")
			add(entity.MediaItem{
				URL:    src,
				Role:   entity.MediaImage,
				Source: "content",
				Alt:    strings.TrimSpace(alt),
				Width:  atoiAttr(w),
				Height: atoiAttr(h),
			}, class, rankContent)
		})
	}

	sort.SliceStable(cands, func(i, j int) bool {
		if cands[i].rank != cands[j].rank {
			return cands[i].rank > cands[j].rank
		}
		return cands[i].order < cands[j].order
	})

	seen := make(map[string]bool)
	var out []entity.MediaItem
	for _, c := range cands {
		key := dedupKey(c.item.URL)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, c.item)
		if len(out) == maxImages {
			break
		}
	}
	return out
}

func imgSource(s *goquery.Selection) string {
	for _, attr := range []string{"data-src", "data-lazy-src", "data-original", "src"} {
		if v, ok := s.Attr(attr); ok && strings.TrimSpace(v) != "" && !strings.HasPrefix(v, "data:") {
			return strings.TrimSpace(v)
		}
	}
	if srcset, ok := s.Attr("srcset"); ok {
		if first := strings.Fields(strings.Split(srcset, ",")[0]); len(first) > 0 {
			return first[0]
		}
	}
	return ""
}

func mainContent(doc *goquery.Document) *goquery.Selection {
	for _, sel := range []string{"[class*='recipe']", "article", "main"} {
		found := doc.Find(sel).FilterFunction(func(_ int, s *goquery.Selection) bool {
			return s.Find("img").Length() > 0
		})
		if found.Length() > 0 {
			return found.First()
		}
	}
	return doc.Selection
}

func containsAny(hay string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(hay, kw) {
			return true
		}
	}
	return false
}

func dedupKey(u string) string {
	if i := strings.IndexAny(u, "?#"); i >= 0 {
		u = u[:i]
	}
	return strings.ToLower(u)
}

func atoiAttr(v string) int {
	n, err := strconv.Atoi(strings.TrimSuffix(strings.TrimSpace(v), "px"))
	if err != nil {
		return 0
	}
	return n
}
