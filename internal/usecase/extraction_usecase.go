package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/user/recipe-service/internal/entity"
	"github.com/user/recipe-service/internal/extraction"
	"github.com/user/recipe-service/internal/progress"
	"github.com/user/recipe-service/internal/repository"
	"github.com/user/recipe-service/internal/scoring"
	"github.com/user/recipe-service/internal/validation"
	"github.com/user/recipe-service/pkg/metrics"
	"github.com/user/recipe-service/pkg/utils"
)

// SubmitRequest asks for one source to be extracted and queued for review.
type SubmitRequest struct {
	Source         entity.SourceLocator
	CollectionHint string
	Owner          string
}

// SubmitResult is a successful extraction.
type SubmitResult struct {
	Recipe   *entity.ParsedRecipe  `json:"recipe"`
	Pending  *entity.PendingRecipe `json:"pending"`
	Strategy string                `json:"strategy"`
}

// StreamResult is delivered once when a streaming extraction finishes.
type StreamResult struct {
	Result *SubmitResult
	Err    error
}

// FailureInfo is the payload of a failed progress event.
type FailureInfo struct {
	Kind      entity.ErrorKind `json:"kind"`
	Retryable bool             `json:"retryable"`
}

// RecipeExtractor defines the extraction entry points.
type RecipeExtractor interface {
	Submit(ctx context.Context, req SubmitRequest) (*SubmitResult, error)
	SubmitStreaming(ctx context.Context, req SubmitRequest) (string, <-chan StreamResult, error)
	RecentFailures(ctx context.Context, limit int) ([]*entity.FailedExtraction, error)
}

type extractionUseCase struct {
	extractor   *extraction.Extractor
	scorer      *scoring.Scorer
	detector    *scoring.Detector
	pipeline    *validation.Pipeline
	broadcaster *progress.Broadcaster
	failures    repository.ExtractionLogRepository
	logger      *zap.Logger
}

// NewExtractionUseCase creates the extraction use case. failures may be nil
// when no extraction log is configured.
func NewExtractionUseCase(
	extractor *extraction.Extractor,
	scorer *scoring.Scorer,
	detector *scoring.Detector,
	pipeline *validation.Pipeline,
	broadcaster *progress.Broadcaster,
	failures repository.ExtractionLogRepository,
	logger *zap.Logger,
) RecipeExtractor {
	return &extractionUseCase{
		extractor:   extractor,
		scorer:      scorer,
		detector:    detector,
		pipeline:    pipeline,
		broadcaster: broadcaster,
		failures:    failures,
		logger:      logger.Named("extraction_usecase"),
	}
}

// Submit extracts, scores and queues a source, returning the candidate or a
// classified error.
func (uc *extractionUseCase) Submit(ctx context.Context, req SubmitRequest) (*SubmitResult, error) {
	return uc.run(ctx, req, func(entity.ProgressEvent) {})
}

// SubmitStreaming starts the extraction in the background and returns the
// progress session id. Events go to the broadcaster; the final outcome is
// sent once on the returned channel. Cancelling ctx aborts the extraction
// and releases the session.
func (uc *extractionUseCase) SubmitStreaming(ctx context.Context, req SubmitRequest) (string, <-chan StreamResult, error) {
	if err := validateSource(req.Source); err != nil {
		return "", nil, err
	}
	id := uuid.NewString()
	if _, err := uc.broadcaster.CreateSession(req.Source.String(), id); err != nil {
		return "", nil, err
	}

	done := make(chan StreamResult, 1)
	go func() {
		defer close(done)
		result, err := uc.run(ctx, req, func(ev entity.ProgressEvent) {
			uc.broadcaster.Publish(id, ev)
		})
		if err != nil && ctx.Err() != nil {
			uc.logger.Info("Streaming extraction cancelled", zap.String("session_id", id))
			uc.broadcaster.Cleanup(id)
		}
		done <- StreamResult{Result: result, Err: err}
	}()
	return id, done, nil
}

func (uc *extractionUseCase) RecentFailures(ctx context.Context, limit int) ([]*entity.FailedExtraction, error) {
	if uc.failures == nil {
		return []*entity.FailedExtraction{}, nil
	}
	switch {
	case limit <= 0:
		limit = validation.DefaultListLimit
	case limit > validation.MaxListLimit:
		limit = validation.MaxListLimit
	}
	return uc.failures.FindRecent(ctx, limit)
}

func (uc *extractionUseCase) run(ctx context.Context, req SubmitRequest, emit func(entity.ProgressEvent)) (*SubmitResult, error) {
	if err := validateSource(req.Source); err != nil {
		return nil, err
	}
	src := req.Source
	start := time.Now()
	publish := func(phase entity.Phase, status entity.EventStatus, pct int, msg string) {
		emit(entity.ProgressEvent{Phase: phase, Status: status, ProgressPercent: pct, Message: msg})
	}

	uc.logger.Info("Extracting recipe", zap.String("source", src.String()), zap.String("source_type", string(src.Type)))

	publish(entity.PhaseFetching, entity.EventStarted, 5, fetchMessage(src))
	doc, page, err := uc.extractor.Load(ctx, src)
	if err != nil {
		return nil, uc.fail(ctx, req, start, "", err, emit)
	}
	publish(entity.PhaseFetching, entity.EventDone, 25, "")

	publish(entity.PhaseExtracting, entity.EventStarted, 30, "Looking for the recipe")
	outcome, err := uc.extractor.Run(ctx, doc)
	if err != nil {
		return nil, uc.fail(ctx, req, start, "", err, emit)
	}
	emit(entity.ProgressEvent{
		Phase:           entity.PhaseExtracting,
		Status:          entity.EventDone,
		ProgressPercent: 60,
		Method:          outcome.Strategy,
		Message:         fmt.Sprintf("Found recipe data using %s extraction", outcome.Strategy),
	})

	publish(entity.PhaseScoring, entity.EventStarted, 65, "")
	recipe := outcome.Recipe
	score := uc.scorer.Apply(recipe)
	metrics.ConfidenceScore.Observe(score)
	if err := uc.detector.Check(recipe, score, doc.Text); err != nil {
		return nil, uc.fail(ctx, req, start, outcome.Strategy, err, emit)
	}
	publish(entity.PhaseScoring, entity.EventDone, 75, fmt.Sprintf("Confidence %.2f", score))

	publish(entity.PhaseValidating, entity.EventStarted, 80, "")
	meta := entity.ParsingMetadata{
		Strategy:        outcome.Strategy,
		StrategiesTried: outcome.Tried,
		ElapsedMS:       time.Since(start).Milliseconds(),
		CollectionHint:  req.CollectionHint,
	}
	if page != nil {
		meta.RetryCount = page.RetryCount
	}
	pending, err := uc.pipeline.Enqueue(ctx, recipe, src.String(), req.Owner, meta)
	if err != nil {
		return nil, uc.fail(ctx, req, start, outcome.Strategy, err, emit)
	}
	publish(entity.PhaseValidating, entity.EventDone, 95, fmt.Sprintf("%d issue(s) for review", len(pending.Issues)))

	result := &SubmitResult{Recipe: pending.ParsedRecipe, Pending: pending, Strategy: outcome.Strategy}
	emit(entity.ProgressEvent{
		Phase:           entity.PhaseCompleted,
		Status:          entity.EventDone,
		ProgressPercent: 100,
		Method:          outcome.Strategy,
		Message:         "Recipe extracted",
		Payload:         result,
	})

	metrics.ExtractionsTotal.WithLabelValues("success", outcome.Strategy, "").Inc()
	metrics.ExtractionDuration.WithLabelValues(string(src.Type)).Observe(time.Since(start).Seconds())
	if uc.failures != nil && src.URL != "" {
		if err := uc.failures.Delete(ctx, src.URL); err != nil {
			// Not critical; the log only drives diagnostics.
			uc.logger.Warn("Failed to clear extraction failure record", zap.String("source", src.URL), zap.Error(err))
		}
	}
	uc.logger.Info("Recipe extracted",
		zap.String("source", src.String()),
		zap.String("strategy", outcome.Strategy),
		zap.Float64("confidence", score),
		zap.String("pending_id", pending.ID),
	)
	return result, nil
}

// fail records a failed extraction and publishes the terminal event.
// Cancellation is returned as is and never reported as a failure.
func (uc *extractionUseCase) fail(ctx context.Context, req SubmitRequest, start time.Time, strategy string, err error, emit func(entity.ProgressEvent)) error {
	if ctx.Err() != nil || errors.Is(err, context.Canceled) {
		return err
	}
	kind := entity.KindOf(err)
	src := req.Source
	metrics.ExtractionsTotal.WithLabelValues("failure", strategy, string(kind)).Inc()
	metrics.ExtractionDuration.WithLabelValues(string(src.Type)).Observe(time.Since(start).Seconds())
	uc.logger.Warn("Recipe extraction failed", zap.String("source", src.String()), zap.String("kind", string(kind)), zap.Error(err))

	ev := entity.ProgressEvent{
		Phase:           entity.PhaseFailed,
		Status:          entity.EventDone,
		ProgressPercent: 100,
		Message:         publicMessage(err),
		Payload:         FailureInfo{Kind: kind, Retryable: kind == entity.KindTransient},
	}
	var statusCode int
	if appErr, ok := entity.AsAppError(err); ok {
		ev.Suggestions = appErr.Suggestions
		statusCode = appErr.StatusCode
	}
	emit(ev)

	if uc.failures != nil {
		record := &entity.FailedExtraction{
			Source:               src.String(),
			SourceType:           src.Type,
			ErrorKind:            kind,
			FailureReason:        err.Error(),
			HTTPStatusCode:       statusCode,
			LastAttemptTimestamp: time.Now().UTC(),
		}
		// A fresh context: the request may already be on its way out.
		logCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if logErr := uc.failures.SaveOrUpdate(logCtx, record); logErr != nil {
			uc.logger.Error("Failed to record extraction failure", zap.String("source", src.String()), zap.Error(logErr))
		}
	}
	return err
}

func validateSource(src entity.SourceLocator) error {
	switch src.Type {
	case entity.SourceWebsite, entity.SourceSocial:
		if _, err := utils.ValidateSourceURL(src.URL); err != nil {
			return entity.NewStructuralError("a valid http(s) URL is required", err)
		}
	case entity.SourceImage:
		if len(src.Image) == 0 {
			return entity.NewStructuralError("the uploaded image is empty", nil)
		}
	default:
		return entity.NewStructuralError(fmt.Sprintf("unsupported source type %q", src.Type), nil)
	}
	return nil
}

func fetchMessage(src entity.SourceLocator) string {
	if src.Type == entity.SourceImage {
		return "Reading text from the image"
	}
	return "Fetching " + src.URL
}

// publicMessage returns the caller-safe part of an error.
func publicMessage(err error) string {
	if appErr, ok := entity.AsAppError(err); ok {
		return appErr.Message
	}
	return "the recipe could not be extracted"
}
