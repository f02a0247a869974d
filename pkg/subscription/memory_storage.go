package subscription

import (
	"context"
	"sync"
	"time"
)

// MemoryStorage is an in-memory implementation of the Storage interface.
// Suitable for development and testing.
type MemoryStorage struct {
	subs map[string]map[string]Subscription // ownerID -> subscriptionID -> record
	mu   sync.RWMutex
}

// NewMemoryStorage creates a new in-memory subscription storage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		subs: make(map[string]map[string]Subscription),
	}
}

func (s *MemoryStorage) Get(ctx context.Context, ownerID, subID string) (*Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sub, ok := s.subs[ownerID][subID]
	if !ok {
		return nil, ErrSubscriptionNotFound
	}
	// Return a copy to prevent external mutation of stored data
	out := sub
	return &out, nil
}

func (s *MemoryStorage) Put(ctx context.Context, sub Subscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sub.OwnerID == "" || sub.ID == "" {
		return ErrInvalidTarget
	}

	owner, ok := s.subs[sub.OwnerID]
	if !ok {
		owner = make(map[string]Subscription)
		s.subs[sub.OwnerID] = owner
	}
	owner[sub.ID] = sub
	return nil
}

func (s *MemoryStorage) QueryByOwner(ctx context.Context, ownerID string) ([]Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	owner := s.subs[ownerID]
	out := make([]Subscription, 0, len(owner))
	for _, sub := range owner {
		out = append(out, sub)
	}
	return out, nil
}

func (s *MemoryStorage) ScanAll(ctx context.Context) ([]Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Subscription
	for _, owner := range s.subs {
		for _, sub := range owner {
			out = append(out, sub)
		}
	}
	return out, nil
}

func (s *MemoryStorage) Delete(ctx context.Context, ownerID, subID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	owner, ok := s.subs[ownerID]
	if !ok {
		return ErrSubscriptionNotFound
	}
	if _, ok := owner[subID]; !ok {
		return ErrSubscriptionNotFound
	}
	delete(owner, subID)
	if len(owner) == 0 {
		delete(s.subs, ownerID)
	}
	return nil
}

func (s *MemoryStorage) RecordSuccess(ctx context.Context, ownerID, subID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sub, ok := s.subs[ownerID][subID]
	if !ok {
		return ErrSubscriptionNotFound
	}
	sub.FailureCount = 0
	sub.LastSentAt = &at
	sub.UpdatedAt = at
	s.subs[ownerID][subID] = sub
	return nil
}

func (s *MemoryStorage) RecordFailure(ctx context.Context, ownerID, subID string, terminal bool, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sub, ok := s.subs[ownerID][subID]
	if !ok {
		return ErrSubscriptionNotFound
	}
	sub.FailureCount++
	sub.UpdatedAt = at
	if terminal {
		sub.Status = StatusInactive
	}
	s.subs[ownerID][subID] = sub
	return nil
}
