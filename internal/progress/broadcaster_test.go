package progress

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/user/recipe-service/internal/entity"
)

func collect(t *testing.T, ch <-chan entity.ProgressEvent) []entity.ProgressEvent {
	t.Helper()
	var out []entity.ProgressEvent
	timeout := time.After(2 * time.Second)
	for {
		select {
		case ev, ok := <-ch:
			if !ok {
				return out
			}
			out = append(out, ev)
		case <-timeout:
			t.Fatal("subscription did not terminate")
			return nil
		}
	}
}

func phases(events []entity.ProgressEvent) []entity.Phase {
	out := make([]entity.Phase, len(events))
	for i, ev := range events {
		out[i] = ev.Phase
	}
	return out
}

func TestSubscribersSeeIdenticalSequences(t *testing.T) {
	b := NewBroadcaster(zap.NewNop())
	_, err := b.CreateSession("https://example.com/r", "s1")
	require.NoError(t, err)

	ctx := context.Background()
	first := b.Subscribe(ctx, "s1")
	require.True(t, b.Publish("s1", entity.ProgressEvent{Phase: entity.PhaseFetching, Status: entity.EventStarted}))
	second := b.Subscribe(ctx, "s1")

	go func() {
		b.Publish("s1", entity.ProgressEvent{Phase: entity.PhaseExtracting, Status: entity.EventStarted})
		b.Publish("s1", entity.ProgressEvent{Phase: entity.PhaseScoring, Status: entity.EventDone})
		b.Publish("s1", entity.ProgressEvent{Phase: entity.PhaseCompleted, Status: entity.EventDone})
	}()

	a := collect(t, first)
	c := collect(t, second)
	want := []entity.Phase{entity.PhaseFetching, entity.PhaseExtracting, entity.PhaseScoring, entity.PhaseCompleted}
	assert.Equal(t, want, phases(a))
	assert.Equal(t, a, c)
	for i, ev := range a {
		assert.Equal(t, "s1", ev.SessionID)
		assert.Equal(t, i+1, ev.Sequence)
		assert.False(t, ev.Timestamp.IsZero())
	}

	info, ok := b.Session("s1")
	require.True(t, ok)
	assert.True(t, info.Terminal)
	assert.Equal(t, entity.PhaseCompleted, info.LastPhase)
	assert.False(t, b.Publish("s1", entity.ProgressEvent{Phase: entity.PhaseFetching}), "finished sessions accept no events")
}

func TestSubscribeAfterCleanupIsClosed(t *testing.T) {
	b := NewBroadcaster(zap.NewNop())
	_, err := b.CreateSession("src", "s1")
	require.NoError(t, err)
	b.Publish("s1", entity.ProgressEvent{Phase: entity.PhaseFetching})

	b.Cleanup("s1")
	b.Cleanup("s1")

	assert.Empty(t, collect(t, b.Subscribe(context.Background(), "s1")))
	assert.Empty(t, collect(t, b.Subscribe(context.Background(), "never-created")))
	_, ok := b.Session("s1")
	assert.False(t, ok)
}

func TestCleanupEndsLiveSubscription(t *testing.T) {
	b := NewBroadcaster(zap.NewNop())
	_, err := b.CreateSession("src", "s1")
	require.NoError(t, err)
	b.Publish("s1", entity.ProgressEvent{Phase: entity.PhaseFetching})

	ch := b.Subscribe(context.Background(), "s1")
	ev := <-ch
	assert.Equal(t, entity.PhaseFetching, ev.Phase)

	b.Cleanup("s1")
	assert.Empty(t, collect(t, ch))
}

func TestSubscriberCancellation(t *testing.T) {
	b := NewBroadcaster(zap.NewNop())
	_, err := b.CreateSession("src", "s1")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	ch := b.Subscribe(ctx, "s1")
	cancel()
	assert.Empty(t, collect(t, ch))

	// Other subscribers are unaffected.
	other := b.Subscribe(context.Background(), "s1")
	b.Publish("s1", entity.ProgressEvent{Phase: entity.PhaseFailed, Message: "boom"})
	got := collect(t, other)
	require.Len(t, got, 1)
	assert.Equal(t, "boom", got[0].Message)
}

func TestPublishIsBounded(t *testing.T) {
	b := NewBroadcaster(zap.NewNop(), WithMaxEvents(2))
	_, err := b.CreateSession("src", "s1")
	require.NoError(t, err)

	assert.True(t, b.Publish("s1", entity.ProgressEvent{Phase: entity.PhaseFetching}))
	assert.True(t, b.Publish("s1", entity.ProgressEvent{Phase: entity.PhaseExtracting}))
	assert.False(t, b.Publish("s1", entity.ProgressEvent{Phase: entity.PhaseScoring}))
	assert.True(t, b.Publish("s1", entity.ProgressEvent{Phase: entity.PhaseCompleted}))
	assert.False(t, b.Publish("missing", entity.ProgressEvent{Phase: entity.PhaseFetching}))

	got := collect(t, b.Subscribe(context.Background(), "s1"))
	assert.Equal(t, []entity.Phase{entity.PhaseFetching, entity.PhaseExtracting, entity.PhaseCompleted}, phases(got))
}

func TestCreateSessionRejectsDuplicateIDs(t *testing.T) {
	b := NewBroadcaster(zap.NewNop())
	_, err := b.CreateSession("src", "s1")
	require.NoError(t, err)
	_, err = b.CreateSession("src", "s1")
	assert.ErrorIs(t, err, ErrSessionExists)
}

func TestExpireRemovesIdleSessions(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	b := NewBroadcaster(zap.NewNop(), WithTTL(time.Minute))
	b.now = func() time.Time { return now }

	_, err := b.CreateSession("src", "old")
	require.NoError(t, err)
	now = now.Add(2 * time.Minute)
	_, err = b.CreateSession("src", "fresh")
	require.NoError(t, err)

	assert.Equal(t, 1, b.Expire())
	sessions := b.Sessions()
	require.Len(t, sessions, 1)
	assert.Equal(t, "fresh", sessions[0].ID)
}
