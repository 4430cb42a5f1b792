// Package textnorm normalizes the free text scraped from recipe sources:
// whitespace, bullets, step numbering, durations and yields.
package textnorm

import (
	"html"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
)

var (
	whitespaceRe = regexp.MustCompile(`\s+`)
	bulletRe     = regexp.MustCompile(`^[\s•·◦▪▫■□▢●○✓✔*\-–—>]+`)
	integerRe    = regexp.MustCompile(`\d+`)
)

// CollapseWhitespace replaces whitespace runs with a single space and trims.
func CollapseWhitespace(s string) string {
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(s, " "))
}

// StripHTML removes markup and decodes entities from an HTML fragment.
func StripHTML(s string) string {
	if !strings.ContainsAny(s, "<&") {
		return CollapseWhitespace(s)
	}
	if !strings.Contains(s, "<") {
		return CollapseWhitespace(html.UnescapeString(s))
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return CollapseWhitespace(html.UnescapeString(s))
	}
	return CollapseWhitespace(doc.Text())
}

// StripBullet removes leading list glyphs such as "•", "-" or "▢".
func StripBullet(s string) string {
	return strings.TrimSpace(bulletRe.ReplaceAllString(s, ""))
}

// Capitalize upper-cases the first letter.
func Capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError || !unicode.IsLower(r) {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}

// FirstInt returns the first integer embedded in s.
func FirstInt(s string) (int, bool) {
	m := integerRe.FindString(s)
	if m == "" {
		return 0, false
	}
	n := 0
	for _, c := range m {
		n = n*10 + int(c-'0')
		if n > 1_000_000 {
			return 0, false
		}
	}
	return n, true
}

// CleanIngredient normalizes one ingredient line. Leading quantities are kept.
func CleanIngredient(s string) string {
	return StripBullet(StripHTML(s))
}

// CleanIngredients cleans every line and drops empties.
func CleanIngredients(lines []string) []string {
	out := make([]string, 0, len(lines))
	for _, l := range lines {
		if c := CleanIngredient(l); c != "" {
			out = append(out, c)
		}
	}
	return out
}
