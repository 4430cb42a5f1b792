// Package validation inspects extracted recipes and moves them through human
// review: pending, then approved or rejected.
package validation

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/user/recipe-service/internal/entity"
)

// DefaultReviewThreshold is the confidence below which a candidate is
// flagged for careful review.
const DefaultReviewThreshold = 0.6

var (
	escapedEntityRe = regexp.MustCompile(`&(?:#\d+|#x[0-9a-fA-F]+|[a-zA-Z]{2,8});`)
	rawTagRe        = regexp.MustCompile(`</?[a-zA-Z][^>]*>`)

	placeholderStrings = []string{
		"recipe from web",
		"untitled",
		"lorem ipsum",
		"undefined",
		"null",
		"[object object]",
	}
)

// DetectIssues returns the advisory findings for a candidate. Issues never
// block storage.
func DetectIssues(r *entity.ParsedRecipe, reviewThreshold float64) []entity.ValidationIssue {
	issues := []entity.ValidationIssue{}
	if r == nil {
		return append(issues, entity.ValidationIssue{
			Type:     entity.IssueMissingField,
			Severity: entity.SeverityError,
			Message:  "No recipe data was extracted",
		})
	}

	if strings.TrimSpace(r.Title) == "" {
		issues = append(issues, entity.ValidationIssue{
			Type:       entity.IssueMissingField,
			Severity:   entity.SeverityError,
			Field:      "title",
			Message:    "Recipe has no title",
			Suggestion: "Add a title before approving",
		})
	}
	if r.Ingredients.IsEmpty() {
		issues = append(issues, entity.ValidationIssue{
			Type:       entity.IssueMissingField,
			Severity:   entity.SeverityError,
			Field:      "ingredients",
			Message:    "No ingredients were found",
			Suggestion: "Copy the ingredient list from the source",
		})
	}
	if r.Instructions.IsEmpty() {
		issues = append(issues, entity.ValidationIssue{
			Type:       entity.IssueMissingField,
			Severity:   entity.SeverityError,
			Field:      "instructions",
			Message:    "No instructions were found",
			Suggestion: "Copy the method from the source",
		})
	}

	if r.ConfidenceScore != nil && *r.ConfidenceScore < reviewThreshold {
		issues = append(issues, entity.ValidationIssue{
			Type:       entity.IssueLowConfidence,
			Severity:   entity.SeverityWarning,
			Field:      "confidence_score",
			Message:    fmt.Sprintf("Extraction confidence %.2f is below %.2f", *r.ConfidenceScore, reviewThreshold),
			Suggestion: "Compare the recipe with the source before approving",
		})
	}

	for _, f := range []struct{ name, value string }{{"title", r.Title}, {"description", r.Description}} {
		if reason := suspicious(f.value); reason != "" {
			issues = append(issues, entity.ValidationIssue{
				Type:     entity.IssueSuspiciousContent,
				Severity: entity.SeverityWarning,
				Field:    f.name,
				Message:  fmt.Sprintf("The %s %s", f.name, reason),
			})
		}
	}

	for _, f := range []struct {
		name string
		err  error
	}{{"ingredients", r.Ingredients.Validate()}, {"instructions", r.Instructions.Validate()}} {
		if f.err == nil {
			continue
		}
		msg := f.err.Error()
		var appErr *entity.AppError
		if errors.As(f.err, &appErr) {
			msg = appErr.Message
		}
		issues = append(issues, entity.ValidationIssue{
			Type:     entity.IssueStructural,
			Severity: entity.SeverityError,
			Field:    f.name,
			Message:  msg,
		})
	}
	return issues
}

func suspicious(s string) string {
	if strings.TrimSpace(s) == "" {
		return ""
	}
	if escapedEntityRe.MatchString(s) {
		return "contains HTML-escaped characters"
	}
	if rawTagRe.MatchString(s) {
		return "contains HTML markup"
	}
	lower := strings.ToLower(strings.TrimSpace(s))
	for _, p := range placeholderStrings {
		if lower == p || (len(p) > 8 && strings.Contains(lower, p)) {
			return "looks like placeholder text"
		}
	}
	return ""
}
