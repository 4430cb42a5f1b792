// Package memory holds process-local implementations of repository
// interfaces.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/user/recipe-service/internal/entity"
	"github.com/user/recipe-service/internal/repository"
)

// PendingStore keeps pending recipes in memory. Reads take the read lock;
// status transitions compare and set under the write lock, so at most one
// terminal transition succeeds per id.
type PendingStore struct {
	mu    sync.RWMutex
	items map[string]*entity.PendingRecipe
}

// NewPendingStore creates an empty store.
func NewPendingStore() repository.PendingRepository {
	return &PendingStore{items: make(map[string]*entity.PendingRecipe)}
}

func (s *PendingStore) Create(ctx context.Context, item *entity.PendingRecipe) error {
	if item == nil || item.ID == "" {
		return entity.NewStructuralError("pending recipe needs an id", nil)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.items[item.ID]; exists {
		return fmt.Errorf("pending recipe %s already exists", item.ID)
	}
	s.items[item.ID] = item.Clone()
	return nil
}

func (s *PendingStore) Get(ctx context.Context, id string) (*entity.PendingRecipe, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	item, ok := s.items[id]
	if !ok {
		return nil, notFound(id)
	}
	return item.Clone(), nil
}

func (s *PendingStore) ListByStatus(ctx context.Context, status entity.ValidationStatus, limit int) ([]*entity.PendingRecipe, error) {
	s.mu.RLock()
	matched := make([]*entity.PendingRecipe, 0, len(s.items))
	for _, item := range s.items {
		if item.ValidationStatus == status {
			matched = append(matched, item)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID > matched[j].ID
	})
	if limit > 0 && len(matched) > limit {
		matched = matched[:limit]
	}
	out := make([]*entity.PendingRecipe, len(matched))
	for i, item := range matched {
		out[i] = item.Clone()
	}
	s.mu.RUnlock()
	return out, nil
}

func (s *PendingStore) Transition(ctx context.Context, id string, from, to entity.ValidationStatus, mutate func(*entity.PendingRecipe) error) (*entity.PendingRecipe, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.items[id]
	if !ok {
		return nil, notFound(id)
	}
	if current.ValidationStatus != from {
		return nil, entity.NewNotFoundError(
			fmt.Sprintf("pending recipe %s is already %s", id, current.ValidationStatus), nil)
	}
	// Mutate a copy so a failing mutation leaves the stored item untouched.
	next := current.Clone()
	if mutate != nil {
		if err := mutate(next); err != nil {
			return nil, err
		}
	}
	next.ValidationStatus = to
	s.items[id] = next
	return next.Clone(), nil
}

func (s *PendingStore) Counts(ctx context.Context) (entity.ValidationSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var sum entity.ValidationSummary
	for _, item := range s.items {
		switch item.ValidationStatus {
		case entity.StatusPending:
			sum.Pending++
		case entity.StatusApproved:
			sum.Approved++
		case entity.StatusRejected:
			sum.Rejected++
		}
	}
	sum.Total = len(s.items)
	return sum, nil
}

func notFound(id string) error {
	return entity.NewNotFoundError(fmt.Sprintf("pending recipe %s not found", id), nil)
}
