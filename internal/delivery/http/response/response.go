package response

import (
	"net/http"
	"time"

	"github.com/user/recipe-service/internal/entity"
	"github.com/user/recipe-service/internal/usecase"
)

// Error types exposed to API clients.
const (
	ErrorTypeWebsiteProtection = "website_protection"
	ErrorTypeNotFound          = "not_found"
	ErrorTypeTimeout           = "timeout"
	ErrorTypeStructural        = "structural"
	ErrorTypeGeneric           = "generic"
)

type ErrorResponse struct {
	ErrorType   string   `json:"error_type"`
	Message     string   `json:"message"`
	Retryable   bool     `json:"retryable"`
	Suggestions []string `json:"suggestions,omitempty"`
}

// FromError maps a classified error to its HTTP status and body. Only the
// public message of an *entity.AppError is exposed; anything else becomes a
// 500 with a fixed message.
func FromError(err error) (int, ErrorResponse) {
	appErr, ok := entity.AsAppError(err)
	if !ok {
		return http.StatusInternalServerError, ErrorResponse{
			ErrorType: ErrorTypeGeneric,
			Message:   "internal server error",
			Retryable: true,
		}
	}
	body := ErrorResponse{Message: appErr.Message, Suggestions: appErr.Suggestions}
	switch appErr.Kind {
	case entity.KindAccessBlocked:
		body.ErrorType = ErrorTypeWebsiteProtection
		return http.StatusForbidden, body
	case entity.KindNotFound:
		body.ErrorType = ErrorTypeNotFound
		return http.StatusNotFound, body
	case entity.KindTransient:
		body.ErrorType = ErrorTypeTimeout
		body.Retryable = true
		return http.StatusServiceUnavailable, body
	case entity.KindStructural:
		body.ErrorType = ErrorTypeStructural
		return http.StatusUnprocessableEntity, body
	default:
		body.ErrorType = ErrorTypeGeneric
		return http.StatusBadRequest, body
	}
}

// ParseResponse is returned by the synchronous extraction endpoints.
type ParseResponse struct {
	PendingID       string                   `json:"pending_id"`
	Strategy        string                   `json:"strategy"`
	ConfidenceScore float64                  `json:"confidence_score"`
	Recipe          *entity.ParsedRecipe     `json:"recipe"`
	Issues          []entity.ValidationIssue `json:"issues"`
}

func NewParseResponse(res *usecase.SubmitResult) ParseResponse {
	out := ParseResponse{
		PendingID: res.Pending.ID,
		Strategy:  res.Strategy,
		Recipe:    res.Recipe,
		Issues:    res.Pending.Issues,
	}
	if res.Recipe.ConfidenceScore != nil {
		out.ConfidenceScore = *res.Recipe.ConfidenceScore
	}
	return out
}

type SessionStarted struct {
	SessionID string `json:"session_id"`
}

type PendingListResponse struct {
	Items []*entity.PendingRecipe `json:"items"`
	Count int                     `json:"count"`
}

type SessionListResponse struct {
	Sessions []entity.ProgressSession `json:"sessions"`
	Count    int                      `json:"count"`
}

// FailedExtraction is a DTO for entity.FailedExtraction.
type FailedExtraction struct {
	Source               string     `json:"source"`
	SourceType           string     `json:"source_type"`
	ErrorKind            string     `json:"error_kind"`
	FailureReason        string     `json:"failure_reason"`
	HTTPStatusCode       int        `json:"http_status_code,omitempty"`
	LastAttemptTimestamp time.Time  `json:"last_attempt_timestamp"`
	AttemptCount         int        `json:"attempt_count"`
	NextRetryAt          *time.Time `json:"next_retry_at,omitempty"`
}

func NewFailedExtractions(in []*entity.FailedExtraction) []FailedExtraction {
	out := make([]FailedExtraction, 0, len(in))
	for _, f := range in {
		out = append(out, FailedExtraction{
			Source:               f.Source,
			SourceType:           string(f.SourceType),
			ErrorKind:            string(f.ErrorKind),
			FailureReason:        f.FailureReason,
			HTTPStatusCode:       f.HTTPStatusCode,
			LastAttemptTimestamp: f.LastAttemptTimestamp,
			AttemptCount:         f.AttemptCount,
			NextRetryAt:          f.NextRetryAt,
		})
	}
	return out
}
