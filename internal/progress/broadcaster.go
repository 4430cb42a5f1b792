// Package progress fans out extraction phase events to any number of
// subscribers per session.
package progress

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/user/recipe-service/internal/entity"
	"github.com/user/recipe-service/pkg/metrics"
)

const (
	DefaultMaxEvents = 256
	DefaultTTL       = 30 * time.Minute
)

// ErrSessionExists is returned when a session id is reused.
var ErrSessionExists = entity.NewStructuralError("progress session already exists", nil)

type session struct {
	info    entity.ProgressSession
	events  []entity.ProgressEvent
	dropped int
	// notify is closed and replaced on every change so waiting subscribers
	// wake up without the publisher ever blocking.
	notify chan struct{}
	closed bool
}

// Broadcaster keeps an append-only event log per session. Subscribers replay
// the log from the start and then follow new events, so every subscriber
// sees the full ordered sequence.
type Broadcaster struct {
	mu        sync.RWMutex
	sessions  map[string]*session
	maxEvents int
	ttl       time.Duration
	logger    *zap.Logger
	now       func() time.Time
}

type Option func(*Broadcaster)

// WithMaxEvents bounds the per-session event log. Terminal events are always
// recorded.
func WithMaxEvents(n int) Option {
	return func(b *Broadcaster) {
		if n > 0 {
			b.maxEvents = n
		}
	}
}

// WithTTL sets how long an idle session survives before the janitor removes it.
func WithTTL(ttl time.Duration) Option {
	return func(b *Broadcaster) {
		if ttl > 0 {
			b.ttl = ttl
		}
	}
}

func NewBroadcaster(logger *zap.Logger, opts ...Option) *Broadcaster {
	b := &Broadcaster{
		sessions:  make(map[string]*session),
		maxEvents: DefaultMaxEvents,
		ttl:       DefaultTTL,
		logger:    logger.Named("progress"),
		now:       time.Now,
	}
	for _, o := range opts {
		o(b)
	}
	return b
}

// CreateSession allocates a session for source.
func (b *Broadcaster) CreateSession(source, id string) (entity.ProgressSession, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, exists := b.sessions[id]; exists {
		return entity.ProgressSession{}, ErrSessionExists
	}
	now := b.now().UTC()
	s := &session{
		info:   entity.ProgressSession{ID: id, Source: source, CreatedAt: now, UpdatedAt: now},
		notify: make(chan struct{}),
	}
	b.sessions[id] = s
	metrics.ActiveSessions.Set(float64(len(b.sessions)))
	return s.info, nil
}

// Publish appends an event to the session log. It never blocks; events for
// unknown, closed or finished sessions are dropped and reported as false.
func (b *Broadcaster) Publish(id string, ev entity.ProgressEvent) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	s, ok := b.sessions[id]
	if !ok || s.closed || s.info.Terminal {
		return false
	}
	terminal := ev.Phase.IsTerminal()
	if !terminal && len(s.events) >= b.maxEvents {
		s.dropped++
		if s.dropped == 1 {
			b.logger.Warn("Progress session event log is full, dropping events", zap.String("session_id", id))
		}
		return false
	}

	ev.SessionID = id
	ev.Sequence = len(s.events) + 1
	if ev.Timestamp.IsZero() {
		ev.Timestamp = b.now().UTC()
	}
	s.events = append(s.events, ev)
	s.info.EventCount = len(s.events)
	s.info.LastPhase = ev.Phase
	s.info.UpdatedAt = ev.Timestamp
	s.info.Terminal = terminal
	s.wake()
	return true
}

// Subscribe streams the session's events from the beginning. The channel is
// closed after a completed or failed event, when the session is cleaned up,
// or when ctx is done. Unknown sessions yield an already closed channel.
func (b *Broadcaster) Subscribe(ctx context.Context, id string) <-chan entity.ProgressEvent {
	out := make(chan entity.ProgressEvent)
	b.mu.RLock()
	s, ok := b.sessions[id]
	b.mu.RUnlock()
	if !ok {
		close(out)
		return out
	}

	go func() {
		defer close(out)
		next := 0
		for {
			b.mu.RLock()
			pending := s.events[next:len(s.events):len(s.events)]
			closed := s.closed
			wait := s.notify
			b.mu.RUnlock()

			for _, ev := range pending {
				select {
				case out <- ev:
				case <-ctx.Done():
					return
				}
				next++
				if ev.Phase.IsTerminal() {
					return
				}
			}
			if closed {
				return
			}
			if len(pending) > 0 {
				continue
			}
			select {
			case <-wait:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// Cleanup releases the session and ends its subscriptions. It is safe to call
// more than once.
func (b *Broadcaster) Cleanup(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	s, ok := b.sessions[id]
	if !ok {
		return
	}
	s.closed = true
	s.wake()
	delete(b.sessions, id)
	metrics.ActiveSessions.Set(float64(len(b.sessions)))
}

// Session returns a snapshot of one session.
func (b *Broadcaster) Session(id string) (entity.ProgressSession, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	s, ok := b.sessions[id]
	if !ok {
		return entity.ProgressSession{}, false
	}
	return s.info, true
}

// Sessions lists live sessions, most recently created first.
func (b *Broadcaster) Sessions() []entity.ProgressSession {
	b.mu.RLock()
	out := make([]entity.ProgressSession, 0, len(b.sessions))
	for _, s := range b.sessions {
		out = append(out, s.info)
	}
	b.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

// Run removes sessions idle for longer than the TTL until ctx is done.
func (b *Broadcaster) Run(ctx context.Context) {
	interval := b.ttl / 4
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := b.Expire(); n > 0 {
				b.logger.Info("Expired idle progress sessions", zap.Int("count", n))
			}
		}
	}
}

// Expire removes sessions whose last update is older than the TTL and
// returns how many were removed.
func (b *Broadcaster) Expire() int {
	cutoff := b.now().Add(-b.ttl)
	b.mu.Lock()
	defer b.mu.Unlock()
	removed := 0
	for id, s := range b.sessions {
		if s.info.UpdatedAt.Before(cutoff) {
			s.closed = true
			s.wake()
			delete(b.sessions, id)
			removed++
		}
	}
	if removed > 0 {
		metrics.ActiveSessions.Set(float64(len(b.sessions)))
	}
	return removed
}

// wake must be called with the write lock held.
func (s *session) wake() {
	close(s.notify)
	s.notify = make(chan struct{})
}
