package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/recipe-service/internal/entity"
)

func newItem(id string, created time.Time) *entity.PendingRecipe {
	return &entity.PendingRecipe{
		ID:               id,
		ParsedRecipe:     &entity.ParsedRecipe{Title: "Recipe " + id},
		ValidationStatus: entity.StatusPending,
		CreatedAt:        created,
	}
}

func TestPendingStoreListNewestFirst(t *testing.T) {
	ctx := context.Background()
	store := NewPendingStore()
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		require.NoError(t, store.Create(ctx, newItem(fmt.Sprintf("r%d", i), base.Add(time.Duration(i)*time.Minute))))
	}

	items, err := store.ListByStatus(ctx, entity.StatusPending, 3)
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, "r4", items[0].ID)
	assert.Equal(t, "r3", items[1].ID)
	assert.Equal(t, "r2", items[2].ID)
}

func TestPendingStoreCreateRejectsDuplicates(t *testing.T) {
	ctx := context.Background()
	store := NewPendingStore()
	require.NoError(t, store.Create(ctx, newItem("a", time.Now())))
	assert.Error(t, store.Create(ctx, newItem("a", time.Now())))
}

func TestPendingStoreReturnsCopies(t *testing.T) {
	ctx := context.Background()
	store := NewPendingStore()
	item := newItem("a", time.Now())
	require.NoError(t, store.Create(ctx, item))

	item.ParsedRecipe.Title = "changed by caller"
	got, err := store.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "Recipe a", got.ParsedRecipe.Title)

	got.ParsedRecipe.Title = "changed again"
	again, err := store.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "Recipe a", again.ParsedRecipe.Title)
}

func TestPendingStoreTransition(t *testing.T) {
	ctx := context.Background()
	store := NewPendingStore()
	require.NoError(t, store.Create(ctx, newItem("a", time.Now())))

	out, err := store.Transition(ctx, "a", entity.StatusPending, entity.StatusApproved, func(p *entity.PendingRecipe) error {
		p.ParsedRecipe.Title = "Edited"
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, entity.StatusApproved, out.ValidationStatus)
	assert.Equal(t, "Edited", out.ParsedRecipe.Title)

	_, err = store.Transition(ctx, "a", entity.StatusPending, entity.StatusRejected, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, entity.ErrNotFound))
	assert.Contains(t, err.Error(), "already approved")

	_, err = store.Transition(ctx, "missing", entity.StatusPending, entity.StatusRejected, nil)
	assert.ErrorIs(t, err, entity.ErrNotFound)

	sum, err := store.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, entity.ValidationSummary{Approved: 1, Total: 1}, sum)
}

func TestPendingStoreFailedMutationLeavesItem(t *testing.T) {
	ctx := context.Background()
	store := NewPendingStore()
	require.NoError(t, store.Create(ctx, newItem("a", time.Now())))

	_, err := store.Transition(ctx, "a", entity.StatusPending, entity.StatusApproved, func(p *entity.PendingRecipe) error {
		p.ParsedRecipe.Title = "half-applied"
		return errors.New("boom")
	})
	require.Error(t, err)

	got, err := store.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, entity.StatusPending, got.ValidationStatus)
	assert.Equal(t, "Recipe a", got.ParsedRecipe.Title)
}

func TestPendingStoreConcurrentTransitions(t *testing.T) {
	ctx := context.Background()
	store := NewPendingStore()
	require.NoError(t, store.Create(ctx, newItem("a", time.Now())))

	const callers = 16
	var (
		wg        sync.WaitGroup
		successes atomic.Int32
		notFounds atomic.Int32
	)
	start := make(chan struct{})
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := store.Transition(ctx, "a", entity.StatusPending, entity.StatusApproved, nil)
			switch {
			case err == nil:
				successes.Add(1)
			case errors.Is(err, entity.ErrNotFound):
				notFounds.Add(1)
			}
		}()
	}
	close(start)
	wg.Wait()

	assert.Equal(t, int32(1), successes.Load())
	assert.Equal(t, int32(callers-1), notFounds.Load())
}
