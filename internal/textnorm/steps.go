package textnorm

import (
	"regexp"
	"strings"
)

var (
	// A dash only counts as a separator after "step"; "5-10 minutes" is a range.
	stepNumberRe   = regexp.MustCompile(`(?i)^(?:step\s*\d{1,2}\s*[.):\-]|\d{1,2}\s*[.):])\s*`)
	stepPrefixRe   = regexp.MustCompile(`(?i)^step\s+\d{1,2}\s+`)
	inlineMarkerRe = regexp.MustCompile(`(?:^|\s)\d{1,2}[.)]\s+`)
)

// CleanStep strips bullets and existing numbering, collapses whitespace,
// capitalizes the first letter and makes sure the step ends with punctuation.
func CleanStep(s string) string {
	s = StripBullet(StripHTML(s))
	s = stepNumberRe.ReplaceAllString(s, "")
	s = stepPrefixRe.ReplaceAllString(s, "")
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	s = Capitalize(s)
	switch s[len(s)-1] {
	case '.', '!', '?', ':', ')':
	default:
		s += "."
	}
	return s
}

// SplitSteps splits a single string with embedded "N." markers into steps.
// The split is only used when it yields at least two steps.
func SplitSteps(s string) []string {
	locs := inlineMarkerRe.FindAllStringIndex(s, -1)
	if len(locs) < 2 {
		return []string{s}
	}
	var parts []string
	if lead := strings.TrimSpace(s[:locs[0][0]]); lead != "" {
		parts = append(parts, lead)
	}
	for i, loc := range locs {
		end := len(s)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		if p := strings.TrimSpace(s[loc[1]:end]); p != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) < 2 {
		return []string{s}
	}
	return parts
}

// NormalizeSteps splits, cleans and filters a list of raw instruction texts.
func NormalizeSteps(raw []string) []string {
	out := make([]string, 0, len(raw))
	for _, r := range raw {
		for _, part := range SplitSteps(StripHTML(r)) {
			if c := CleanStep(part); c != "" {
				out = append(out, c)
			}
		}
	}
	return out
}

// SplitLines splits a block of text into trimmed non-empty lines.
func SplitLines(s string) []string {
	var out []string
	for _, line := range strings.Split(strings.ReplaceAll(s, "\r\n", "\n"), "\n") {
		if t := strings.TrimSpace(line); t != "" {
			out = append(out, t)
		}
	}
	return out
}
