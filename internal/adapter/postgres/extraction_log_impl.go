package postgres

import (
	"context"
	"math/rand/v2"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/user/recipe-service/internal/entity"
)

const (
	initialBackoff = 5 * time.Minute
	maxBackoff     = 24 * time.Hour
	jitterFactor   = 0.2 // +/- 20%
)

// ExtractionLogRepoImpl provides a concrete implementation for the ExtractionLogRepository interface using PostgreSQL.
type ExtractionLogRepoImpl struct {
	db *pgxpool.Pool
}

// NewExtractionLogRepo creates a new instance of ExtractionLogRepoImpl.
func NewExtractionLogRepo(db *pgxpool.Pool) *ExtractionLogRepoImpl {
	return &ExtractionLogRepoImpl{db: db}
}

// SaveOrUpdate creates or updates a record for a failed source.
// It increments attempt_count on conflict. Only transient failures get a
// next_retry_at; blocked and missing sources are not worth retrying.
func (r *ExtractionLogRepoImpl) SaveOrUpdate(ctx context.Context, f *entity.FailedExtraction) error {
	if f.LastAttemptTimestamp.IsZero() {
		f.LastAttemptTimestamp = time.Now().UTC()
	}
	if f.NextRetryAt == nil && f.ErrorKind == entity.KindTransient {
		next := f.LastAttemptTimestamp.Add(backoff(f.AttemptCount))
		f.NextRetryAt = &next
	}

	query, args, err := psql.Insert("failed_extractions").
		Columns("source", "source_type", "error_kind", "failure_reason", "http_status_code", "last_attempt_timestamp", "attempt_count", "next_retry_at").
		Values(f.Source, string(f.SourceType), string(f.ErrorKind), f.FailureReason, f.HTTPStatusCode, f.LastAttemptTimestamp, 1, f.NextRetryAt).
		Suffix(`ON CONFLICT (source) DO UPDATE SET
			source_type = EXCLUDED.source_type,
			error_kind = EXCLUDED.error_kind,
			failure_reason = EXCLUDED.failure_reason,
			http_status_code = EXCLUDED.http_status_code,
			last_attempt_timestamp = EXCLUDED.last_attempt_timestamp,
			attempt_count = failed_extractions.attempt_count + 1,
			next_retry_at = EXCLUDED.next_retry_at`).
		ToSql()
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx, query, args...)
	return err
}

// FindRecent retrieves the most recent failures.
func (r *ExtractionLogRepoImpl) FindRecent(ctx context.Context, limit int) ([]*entity.FailedExtraction, error) {
	query, args, err := psql.Select("id", "source", "source_type", "error_kind", "failure_reason", "http_status_code", "last_attempt_timestamp", "attempt_count", "next_retry_at").
		From("failed_extractions").
		OrderBy("last_attempt_timestamp DESC").
		Limit(uint64(max(limit, 1))).
		ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var failures []*entity.FailedExtraction
	for rows.Next() {
		var (
			f          entity.FailedExtraction
			sourceType string
			kind       string
		)
		if err := rows.Scan(
			&f.ID,
			&f.Source,
			&sourceType,
			&kind,
			&f.FailureReason,
			&f.HTTPStatusCode,
			&f.LastAttemptTimestamp,
			&f.AttemptCount,
			&f.NextRetryAt,
		); err != nil {
			return nil, err
		}
		f.SourceType = entity.SourceType(sourceType)
		f.ErrorKind = entity.ErrorKind(kind)
		failures = append(failures, &f)
	}
	return failures, rows.Err()
}

// Delete removes a failure record, typically after a later successful extraction.
func (r *ExtractionLogRepoImpl) Delete(ctx context.Context, source string) error {
	query, args, err := psql.Delete("failed_extractions").Where(sq.Eq{"source": source}).ToSql()
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx, query, args...)
	return err
}

// backoff doubles from initialBackoff per previous attempt, capped at
// maxBackoff, with +/- jitterFactor jitter.
func backoff(previousAttempts int) time.Duration {
	d := initialBackoff
	for i := 0; i < previousAttempts && d < maxBackoff; i++ {
		d *= 2
	}
	d = min(d, maxBackoff)
	jitter := (rand.Float64()*2 - 1) * jitterFactor * float64(d)
	return d + time.Duration(jitter)
}
