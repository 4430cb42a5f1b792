// Package worker provides a bounded pool for running blocking scraping work
// off the request path.
package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/user/recipe-service/internal/entity"
)

var ErrPoolClosed = errors.New("worker pool is shut down")

// Task is a unit of work executed by a pool worker.
type Task func()

// Pool runs tasks on a fixed number of workers fed by a bounded queue.
type Pool struct {
	logger  *zap.Logger
	workers int

	taskQueue chan Task
	quit      chan struct{}
	wg        sync.WaitGroup
	once      sync.Once

	// inflight counts Submit calls that passed the closed check and may
	// still send on taskQueue.
	inflight sync.WaitGroup
	mu       sync.Mutex
	closed   bool
}

type Option func(*Pool)

func WithWorkers(n int) Option {
	return func(p *Pool) {
		if n > 0 {
			p.workers = n
		}
	}
}

func WithQueueSize(n int) Option {
	return func(p *Pool) {
		if n > 0 {
			p.taskQueue = make(chan Task, n)
		}
	}
}

// NewPool creates and starts a pool. Defaults: 4 workers, queue of 2 per worker.
func NewPool(logger *zap.Logger, opts ...Option) *Pool {
	p := &Pool{
		logger:  logger,
		workers: 4,
		quit:    make(chan struct{}),
	}
	for _, o := range opts {
		o(p)
	}
	if p.taskQueue == nil {
		p.taskQueue = make(chan Task, p.workers*2)
	}
	p.start()
	return p
}

func (p *Pool) start() {
	p.once.Do(func() {
		for i := 0; i < p.workers; i++ {
			p.wg.Add(1)
			go p.worker(i + 1)
		}
	})
}

func (p *Pool) worker(id int) {
	defer p.wg.Done()
	for task := range p.taskQueue {
		p.run(id, task)
	}
	p.logger.Debug("worker stopped", zap.Int("worker_id", id))
}

func (p *Pool) run(id int, task Task) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("worker task panicked", zap.Int("worker_id", id), zap.Any("panic", r))
		}
	}()
	task()
}

// Submit queues task, waiting for queue space until ctx is done or the pool
// shuts down.
func (p *Pool) Submit(ctx context.Context, task Task) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrPoolClosed
	}
	p.inflight.Add(1)
	p.mu.Unlock()
	defer p.inflight.Done()

	select {
	case p.taskQueue <- task:
		return nil
	case <-p.quit:
		return ErrPoolClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Shutdown stops accepting work and waits for queued tasks to finish or ctx
// to expire.
func (p *Pool) Shutdown(ctx context.Context) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.quit)
	p.mu.Unlock()

	// Blocked submitters return on quit, after which nobody sends again.
	p.inflight.Wait()
	close(p.taskQueue)

	done := make(chan struct{})
	go func() { defer close(done); p.wg.Wait() }()

	select {
	case <-ctx.Done():
		p.logger.Warn("worker pool shutdown interrupted by context")
	case <-done:
		p.logger.Info("worker pool drained")
	}
}

type result[T any] struct {
	val T
	err error
}

// Do runs fn on the pool and waits for its result. If ctx ends first, Do
// returns ctx.Err() and the result of fn is discarded. A panic in fn is
// returned as an extraction error.
func Do[T any](ctx context.Context, p *Pool, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	out := make(chan result[T], 1)
	err := p.Submit(ctx, func() {
		defer func() {
			if r := recover(); r != nil {
				p.logger.Error("scraping task panicked", zap.Any("panic", r))
				out <- result[T]{err: entity.NewExtractionError("site scraper panicked", fmt.Errorf("%v", r))}
			}
		}()
		if ctx.Err() != nil {
			out <- result[T]{err: ctx.Err()}
			return
		}
		v, err := fn(ctx)
		out <- result[T]{val: v, err: err}
	})
	if err != nil {
		return zero, err
	}
	select {
	case r := <-out:
		return r.val, r.err
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}
