package entity

import "time"

// FailedExtraction mirrors the `failed_extractions` PostgreSQL table schema.
type FailedExtraction struct {
	ID                   int64
	Source               string
	SourceType           SourceType
	ErrorKind            ErrorKind
	FailureReason        string
	HTTPStatusCode       int
	LastAttemptTimestamp time.Time
	AttemptCount         int
	NextRetryAt          *time.Time
}

// StoredRecipe is a finalized recipe as persisted by the recipe store.
type StoredRecipe struct {
	ID           string
	Owner        string
	CollectionID string
	PendingID    string
	Recipe       *ParsedRecipe
	CreatedAt    time.Time
}
