package habilitation

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	derrors "aidantsconnect/pkg/domain-errors"
)

type InMemoryStore struct {
	mu   sync.RWMutex
	byID map[uuid.UUID]Request
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{byID: make(map[uuid.UUID]Request)}
}

func (s *InMemoryStore) Create(_ context.Context, r Request) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r.DatapassID != "" {
		for _, existing := range s.byID {
			if existing.DatapassID == r.DatapassID {
				return derrors.New(derrors.CodeConflict, "datapass id already received")
			}
		}
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}
	if r.UpdatedAt.IsZero() {
		r.UpdatedAt = r.CreatedAt
	}
	s.byID[r.ID] = r
	return nil
}

func (s *InMemoryStore) Get(_ context.Context, id uuid.UUID) (*Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.byID[id]
	if !ok {
		return nil, nil
	}
	return &r, nil
}

func (s *InMemoryStore) GetByDatapassID(_ context.Context, datapassID string) (*Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.byID {
		if r.DatapassID == datapassID {
			req := r
			return &req, nil
		}
	}
	return nil, nil
}

func (s *InMemoryStore) ListByStatus(_ context.Context, status Status) ([]Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Request
	for _, r := range s.byID {
		if r.Status == status {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *InMemoryStore) UpdateStatus(_ context.Context, id uuid.UUID, status Status, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.byID[id]
	if !ok {
		return derrors.New(derrors.CodeNotFound, "habilitation request not found")
	}
	r.Status = status
	r.UpdatedAt = at
	s.byID[id] = r
	return nil
}
