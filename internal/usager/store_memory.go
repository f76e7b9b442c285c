package usager

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	derrors "aidantsconnect/pkg/domain-errors"
)

type InMemoryStore struct {
	mu     sync.RWMutex
	byID   map[uuid.UUID]Usager
	bySub  map[string]uuid.UUID
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		byID:  make(map[uuid.UUID]Usager),
		bySub: make(map[string]uuid.UUID),
	}
}

func (s *InMemoryStore) Create(_ context.Context, u Usager) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.bySub[u.Sub]; exists {
		return derrors.New(derrors.CodeConflict, "usager sub already registered")
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now()
	}
	s.byID[u.ID] = u
	s.bySub[u.Sub] = u.ID
	return nil
}

func (s *InMemoryStore) GetBySub(_ context.Context, sub string) (*Usager, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.bySub[sub]
	if !ok {
		return nil, nil
	}
	u := s.byID[id]
	return &u, nil
}

func (s *InMemoryStore) Get(_ context.Context, id uuid.UUID) (*Usager, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.byID[id]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (s *InMemoryStore) UpdatePhone(_ context.Context, id uuid.UUID, phone string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.byID[id]
	if !ok {
		return derrors.New(derrors.CodeNotFound, "usager not found")
	}
	u.Phone = phone
	s.byID[id] = u
	return nil
}
