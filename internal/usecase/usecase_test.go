package usecase

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/user/recipe-service/internal/adapter/httpfetch"
	"github.com/user/recipe-service/internal/adapter/memory"
	"github.com/user/recipe-service/internal/entity"
	"github.com/user/recipe-service/internal/extraction"
	"github.com/user/recipe-service/internal/progress"
	"github.com/user/recipe-service/internal/scoring"
	"github.com/user/recipe-service/internal/validation"
)

const recipePage = `<html><head><title>Weeknight Chili | Example Kitchen</title>
<script type="application/ld+json">
{"@context": "https://schema.org", "@type": "Recipe",
 "name": "Weeknight Chili",
 "description": "A quick beef and bean chili.",
 "prepTime": "PT10M", "cookTime": "PT40M",
 "recipeYield": "6 servings",
 "recipeIngredient": [
   "500 g minced beef",
   "1 large onion, chopped",
   "2 cloves garlic, crushed",
   "400 g tin chopped tomatoes",
   "400 g tin kidney beans, drained"
 ],
 "recipeInstructions": [
   {"@type": "HowToStep", "text": "Brown the beef in a large pan over a high heat."},
   {"@type": "HowToStep", "text": "Add the onion and garlic and cook until soft."},
   {"@type": "HowToStep", "text": "Stir in the tomatoes and beans and bring to a simmer."},
   {"@type": "HowToStep", "text": "Cook gently for 30 minutes, stirring now and then."}
 ]}
</script></head><body><h1>Weeknight Chili</h1></body></html>`

const challengePage = `<html><head><title>Just a moment...</title></head>
<body><p>Please verify you are human to continue.</p></body></html>`

type failureLog struct {
	mu      sync.Mutex
	records map[string]*entity.FailedExtraction
	deleted []string
	limits  []int
}

func newFailureLog() *failureLog {
	return &failureLog{records: map[string]*entity.FailedExtraction{}}
}

func (l *failureLog) SaveOrUpdate(_ context.Context, f *entity.FailedExtraction) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	prev, ok := l.records[f.Source]
	c := *f
	c.AttemptCount = 1
	if ok {
		c.AttemptCount = prev.AttemptCount + 1
	}
	l.records[f.Source] = &c
	return nil
}

func (l *failureLog) FindRecent(_ context.Context, limit int) ([]*entity.FailedExtraction, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.limits = append(l.limits, limit)
	out := []*entity.FailedExtraction{}
	for _, r := range l.records {
		if len(out) == limit {
			break
		}
		out = append(out, r)
	}
	return out, nil
}

func (l *failureLog) Delete(_ context.Context, source string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.records, source)
	l.deleted = append(l.deleted, source)
	return nil
}

func (l *failureLog) get(source string) *entity.FailedExtraction {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.records[source]
}

type harness struct {
	uc          RecipeExtractor
	pipeline    *validation.Pipeline
	broadcaster *progress.Broadcaster
	failures    *failureLog
	server      *httptest.Server
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/chili", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(recipePage))
	})
	mux.HandleFunc("/challenge", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(challengePage))
	})
	mux.HandleFunc("/forbidden", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})
	mux.HandleFunc("/hang", func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	logger := zap.NewNop()
	scorer := scoring.NewScorer()
	pipeline := validation.NewPipeline(memory.NewPendingStore(), scorer, logger, validation.DefaultReviewThreshold)
	broadcaster := progress.NewBroadcaster(logger)
	failures := newFailureLog()
	extractor := extraction.NewExtractor(httpfetch.NewFetcher(nil, 5*time.Second, logger), nil, logger, extraction.Options{})

	return &harness{
		uc:          NewExtractionUseCase(extractor, scorer, scoring.NewDetector(0), pipeline, broadcaster, failures, logger),
		pipeline:    pipeline,
		broadcaster: broadcaster,
		failures:    failures,
		server:      server,
	}
}

func (h *harness) source(path string) entity.SourceLocator {
	return entity.SourceLocator{Type: entity.SourceWebsite, URL: h.server.URL + path}
}

func TestSubmitEndToEnd(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	res, err := h.uc.Submit(ctx, SubmitRequest{Source: h.source("/chili"), CollectionHint: "weeknight", Owner: "user-7"})
	require.NoError(t, err)
	assert.Equal(t, "structured", res.Strategy)
	assert.Equal(t, "Weeknight Chili", res.Recipe.Title)
	assert.Len(t, res.Recipe.Ingredients.Flat, 5)
	assert.Len(t, res.Recipe.Instructions.Steps, 4)
	require.NotNil(t, res.Recipe.ConfidenceScore)
	assert.Greater(t, *res.Recipe.ConfidenceScore, 0.8)

	pending := res.Pending
	assert.Equal(t, entity.StatusPending, pending.ValidationStatus)
	assert.False(t, pending.HasErrors())
	assert.Equal(t, "user-7", pending.Owner)
	assert.Equal(t, "weeknight", pending.Metadata.CollectionHint)
	assert.Equal(t, []string{"structured"}, pending.Metadata.StrategiesTried)

	stored, err := h.pipeline.Get(ctx, pending.ID)
	require.NoError(t, err)
	assert.Equal(t, h.server.URL+"/chili", stored.OriginalSource)
	assert.Contains(t, h.failures.deleted, h.server.URL+"/chili")
}

func TestSubmitRecordsBlockedSources(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	tests := []struct {
		name       string
		path       string
		statusCode int
	}{
		{"forbidden status", "/forbidden", http.StatusForbidden},
		{"challenge page", "/challenge", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.uc.Submit(ctx, SubmitRequest{Source: h.source(tt.path)})
			require.Error(t, err)
			assert.True(t, errors.Is(err, entity.ErrAccessBlocked), "got %v", err)

			rec := h.failures.get(h.server.URL + tt.path)
			require.NotNil(t, rec)
			assert.Equal(t, entity.KindAccessBlocked, rec.ErrorKind)
			assert.Equal(t, tt.statusCode, rec.HTTPStatusCode)
		})
	}

	_, err := h.uc.Submit(ctx, SubmitRequest{Source: h.source("/forbidden")})
	require.Error(t, err)
	assert.Equal(t, 2, h.failures.get(h.server.URL+"/forbidden").AttemptCount)

	recent, err := h.uc.RecentFailures(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, recent, 2)
}

func TestRecentFailuresClampsLimit(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		require.NoError(t, h.failures.SaveOrUpdate(ctx, &entity.FailedExtraction{
			Source:    fmt.Sprintf("https://example.com/%d", i),
			ErrorKind: entity.KindTransient,
		}))
	}

	recent, err := h.uc.RecentFailures(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, recent, 3, "a missing limit lists the default page")

	_, err = h.uc.RecentFailures(ctx, -5)
	require.NoError(t, err)
	_, err = h.uc.RecentFailures(ctx, 1000)
	require.NoError(t, err)
	_, err = h.uc.RecentFailures(ctx, 2)
	require.NoError(t, err)

	h.failures.mu.Lock()
	defer h.failures.mu.Unlock()
	assert.Equal(t, []int{
		validation.DefaultListLimit,
		validation.DefaultListLimit,
		validation.MaxListLimit,
		2,
	}, h.failures.limits)
}

func TestSubmitValidatesSource(t *testing.T) {
	h := newHarness(t)
	for _, src := range []entity.SourceLocator{
		{Type: entity.SourceWebsite, URL: "not a url"},
		{Type: entity.SourceWebsite, URL: "ftp://example.com/recipe"},
		{Type: entity.SourceImage},
		{Type: "fax"},
	} {
		_, err := h.uc.Submit(context.Background(), SubmitRequest{Source: src})
		assert.True(t, errors.Is(err, entity.ErrStructural), "source %+v: %v", src, err)
	}
	recent, err := h.uc.RecentFailures(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, recent, "invalid requests are not extraction failures")
}

func collect(t *testing.T, ch <-chan entity.ProgressEvent) []entity.ProgressEvent {
	t.Helper()
	var events []entity.ProgressEvent
	timeout := time.After(5 * time.Second)
	for {
		select {
		case ev, ok := <-ch:
			if !ok {
				return events
			}
			events = append(events, ev)
		case <-timeout:
			t.Fatal("timed out waiting for progress events")
		}
	}
}

func TestSubmitStreamingPublishesPhases(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	id, done, err := h.uc.SubmitStreaming(ctx, SubmitRequest{Source: h.source("/chili")})
	require.NoError(t, err)
	events := collect(t, h.broadcaster.Subscribe(ctx, id))

	result := <-done
	require.NoError(t, result.Err)
	require.NotNil(t, result.Result)

	require.NotEmpty(t, events)
	last := events[len(events)-1]
	assert.Equal(t, entity.PhaseCompleted, last.Phase)
	assert.Equal(t, 100, last.ProgressPercent)
	assert.Equal(t, "structured", last.Method)

	seen := map[entity.Phase]bool{}
	for i, ev := range events {
		seen[ev.Phase] = true
		assert.Equal(t, i+1, ev.Sequence)
		if i > 0 {
			assert.GreaterOrEqual(t, ev.ProgressPercent, events[i-1].ProgressPercent)
		}
	}
	for _, p := range []entity.Phase{entity.PhaseFetching, entity.PhaseExtracting, entity.PhaseScoring, entity.PhaseValidating} {
		assert.True(t, seen[p], "phase %s published", p)
	}
}

func TestSubmitStreamingFailure(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	id, done, err := h.uc.SubmitStreaming(ctx, SubmitRequest{Source: h.source("/forbidden")})
	require.NoError(t, err)
	events := collect(t, h.broadcaster.Subscribe(ctx, id))
	result := <-done
	assert.True(t, errors.Is(result.Err, entity.ErrAccessBlocked))

	require.NotEmpty(t, events)
	last := events[len(events)-1]
	assert.Equal(t, entity.PhaseFailed, last.Phase)
	assert.Equal(t, entity.AccessBlockedSuggestions, last.Suggestions)
	info, ok := last.Payload.(FailureInfo)
	require.True(t, ok)
	assert.Equal(t, entity.KindAccessBlocked, info.Kind)
	assert.False(t, info.Retryable)
}

func TestSubmitStreamingCancellation(t *testing.T) {
	h := newHarness(t)
	ctx, cancel := context.WithCancel(context.Background())

	id, done, err := h.uc.SubmitStreaming(ctx, SubmitRequest{Source: h.source("/hang")})
	require.NoError(t, err)
	_, ok := h.broadcaster.Session(id)
	assert.True(t, ok)

	cancel()
	select {
	case result := <-done:
		require.Error(t, result.Err)
	case <-time.After(5 * time.Second):
		t.Fatal("extraction did not stop after cancellation")
	}

	_, ok = h.broadcaster.Session(id)
	assert.False(t, ok, "cancelled sessions are released")
	assert.Nil(t, h.failures.get(h.server.URL+"/hang"), "cancellation is not a failure")
}
