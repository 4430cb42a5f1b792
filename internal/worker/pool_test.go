package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/user/recipe-service/internal/entity"
)

func TestDoReturnsResult(t *testing.T) {
	p := NewPool(zap.NewNop(), WithWorkers(2))
	defer p.Shutdown(context.Background())

	got, err := Do(context.Background(), p, func(ctx context.Context) (int, error) {
		return 42, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 42, got)

	_, err = Do(context.Background(), p, func(ctx context.Context) (string, error) {
		return "", errors.New("boom")
	})
	assert.EqualError(t, err, "boom")
}

func TestPoolBoundsConcurrency(t *testing.T) {
	p := NewPool(zap.NewNop(), WithWorkers(2), WithQueueSize(16))

	var running, peak int32
	for i := 0; i < 10; i++ {
		require.NoError(t, p.Submit(context.Background(), func() {
			n := atomic.AddInt32(&running, 1)
			for {
				old := atomic.LoadInt32(&peak)
				if n <= old || atomic.CompareAndSwapInt32(&peak, old, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			atomic.AddInt32(&running, -1)
		}))
	}
	p.Shutdown(context.Background())
	assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(2))
}

func TestDoHonoursContext(t *testing.T) {
	p := NewPool(zap.NewNop(), WithWorkers(1))
	defer p.Shutdown(context.Background())

	release := make(chan struct{})
	require.NoError(t, p.Submit(context.Background(), func() { <-release }))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := Do(ctx, p, func(ctx context.Context) (int, error) { return 1, nil })
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	close(release)
}

func TestSubmitAfterShutdown(t *testing.T) {
	p := NewPool(zap.NewNop())
	p.Shutdown(context.Background())
	p.Shutdown(context.Background())
	assert.ErrorIs(t, p.Submit(context.Background(), func() {}), ErrPoolClosed)
}

func TestPanicIsRecovered(t *testing.T) {
	p := NewPool(zap.NewNop(), WithWorkers(1))
	defer p.Shutdown(context.Background())

	require.NoError(t, p.Submit(context.Background(), func() { panic("bad layout") }))
	got, err := Do(context.Background(), p, func(ctx context.Context) (bool, error) { return true, nil })
	require.NoError(t, err)
	assert.True(t, got)
}

func TestDoReturnsPanicAsError(t *testing.T) {
	p := NewPool(zap.NewNop(), WithWorkers(1))
	defer p.Shutdown(context.Background())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	start := time.Now()
	_, err := Do(ctx, p, func(ctx context.Context) (int, error) {
		var layout map[string]int
		layout["title"]++
		return 0, nil
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, entity.ErrExtraction)
	assert.Contains(t, err.Error(), "panicked")
	assert.Less(t, time.Since(start), time.Second)

	got, err := Do(ctx, p, func(ctx context.Context) (int, error) { return 7, nil })
	require.NoError(t, err)
	assert.Equal(t, 7, got, "the worker survives the panic")
}

func TestShutdownReleasesBlockedSubmit(t *testing.T) {
	p := NewPool(zap.NewNop(), WithWorkers(1), WithQueueSize(1))

	release := make(chan struct{})
	require.NoError(t, p.Submit(context.Background(), func() { <-release }))
	// Fill the queue so the next Submit blocks.
	require.NoError(t, p.Submit(context.Background(), func() {}))

	submitted := make(chan error, 1)
	go func() { submitted <- p.Submit(context.Background(), func() {}) }()
	time.Sleep(20 * time.Millisecond)

	shutdownDone := make(chan struct{})
	go func() {
		p.Shutdown(context.Background())
		close(shutdownDone)
	}()

	select {
	case err := <-submitted:
		assert.ErrorIs(t, err, ErrPoolClosed)
	case <-time.After(time.Second):
		t.Fatal("blocked Submit was not released by Shutdown")
	}

	close(release)
	select {
	case <-shutdownDone:
	case <-time.After(time.Second):
		t.Fatal("Shutdown did not finish after the running task returned")
	}
}
