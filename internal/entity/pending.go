package entity

import "time"

// ValidationStatus is the review state of a pending recipe.
type ValidationStatus string

const (
	StatusPending  ValidationStatus = "pending"
	StatusApproved ValidationStatus = "approved"
	StatusRejected ValidationStatus = "rejected"
)

// IsTerminal reports whether no further transition is allowed.
func (s ValidationStatus) IsTerminal() bool {
	return s == StatusApproved || s == StatusRejected
}

// IssueType categorizes a validation finding.
type IssueType string

const (
	IssueMissingField      IssueType = "missing_field"
	IssueLowConfidence     IssueType = "low_confidence"
	IssueSuspiciousContent IssueType = "suspicious_content"
	IssueStructural        IssueType = "structural"
)

// Severity of a validation finding.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// ValidationIssue is a problem detected on a candidate awaiting review.
type ValidationIssue struct {
	Type       IssueType `json:"type"`
	Severity   Severity  `json:"severity"`
	Message    string    `json:"message"`
	Field      string    `json:"field,omitempty"`
	Suggestion string    `json:"suggestion,omitempty"`
}

// ParsingMetadata records how a candidate was produced and reviewed.
type ParsingMetadata struct {
	Strategy           string     `json:"strategy,omitempty"`
	StrategiesTried    []string   `json:"strategies_tried,omitempty"`
	ElapsedMS          int64      `json:"elapsed_ms"`
	RetryCount         int        `json:"retry_count"`
	CollectionHint     string     `json:"collection_hint,omitempty"`
	RejectionReason    string     `json:"rejection_reason,omitempty"`
	ReviewedAt         *time.Time `json:"reviewed_at,omitempty"`
	FinalizedRecipeID  string     `json:"finalized_recipe_id,omitempty"`
	RescoredOnApproval bool       `json:"rescored_on_approval,omitempty"`
}

// PendingRecipe is one extraction attempt awaiting human review.
type PendingRecipe struct {
	ID               string            `json:"id"`
	ParsedRecipe     *ParsedRecipe     `json:"parsed_recipe"`
	OriginalSource   string            `json:"original_source"`
	ValidationStatus ValidationStatus  `json:"validation_status"`
	Issues           []ValidationIssue `json:"issues"`
	Metadata         ParsingMetadata   `json:"parsing_metadata"`
	CreatedAt        time.Time         `json:"created_at"`
	Owner            string            `json:"owner,omitempty"`
}

// HasErrors reports whether any issue has error severity.
func (p *PendingRecipe) HasErrors() bool {
	for _, issue := range p.Issues {
		if issue.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Clone returns a deep copy so readers never share mutable state with the store.
func (p *PendingRecipe) Clone() *PendingRecipe {
	if p == nil {
		return nil
	}
	c := *p
	c.ParsedRecipe = p.ParsedRecipe.Clone()
	c.Issues = append([]ValidationIssue(nil), p.Issues...)
	c.Metadata.StrategiesTried = append([]string(nil), p.Metadata.StrategiesTried...)
	if p.Metadata.ReviewedAt != nil {
		t := *p.Metadata.ReviewedAt
		c.Metadata.ReviewedAt = &t
	}
	return &c
}

// RecipeEdits are reviewer changes merged into a candidate on approval. Nil
// fields are left untouched.
type RecipeEdits struct {
	Title        *string       `json:"title,omitempty"`
	Description  *string       `json:"description,omitempty"`
	PrepTime     *int          `json:"prep_time,omitempty"`
	CookTime     *int          `json:"cook_time,omitempty"`
	TotalTime    *int          `json:"total_time,omitempty"`
	Servings     *int          `json:"servings,omitempty"`
	Ingredients  *Ingredients  `json:"ingredients,omitempty"`
	Instructions *Instructions `json:"instructions,omitempty"`
}

// IsZero reports whether the edits change nothing.
func (e *RecipeEdits) IsZero() bool {
	return e == nil || (e.Title == nil && e.Description == nil && e.PrepTime == nil &&
		e.CookTime == nil && e.TotalTime == nil && e.Servings == nil &&
		e.Ingredients == nil && e.Instructions == nil)
}

// Apply merges the edits into r.
func (e *RecipeEdits) Apply(r *ParsedRecipe) {
	if e == nil {
		return
	}
	if e.Title != nil {
		r.Title = *e.Title
	}
	if e.Description != nil {
		r.Description = *e.Description
	}
	if e.PrepTime != nil {
		r.PrepTime = cloneInt(e.PrepTime)
	}
	if e.CookTime != nil {
		r.CookTime = cloneInt(e.CookTime)
	}
	if e.TotalTime != nil {
		r.TotalTime = cloneInt(e.TotalTime)
	}
	if e.Servings != nil {
		r.Servings = cloneInt(e.Servings)
	}
	if e.Ingredients != nil {
		r.Ingredients = e.Ingredients.Clone()
	}
	if e.Instructions != nil {
		r.Instructions = e.Instructions.Clone()
	}
}

// ValidationSummary counts pending recipes per status.
type ValidationSummary struct {
	Pending  int `json:"pending"`
	Approved int `json:"approved"`
	Rejected int `json:"rejected"`
	Total    int `json:"total"`
}
