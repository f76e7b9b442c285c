package aidant

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	derrors "aidantsconnect/pkg/domain-errors"
)

type InMemoryStore struct {
	mu      sync.RWMutex
	byID    map[uuid.UUID]Aidant
	byEmail map[string]uuid.UUID
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		byID:    make(map[uuid.UUID]Aidant),
		byEmail: make(map[string]uuid.UUID),
	}
}

func (s *InMemoryStore) Create(_ context.Context, a Aidant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	email := strings.ToLower(a.Email)
	if _, exists := s.byEmail[email]; exists {
		return derrors.New(derrors.CodeConflict, "aidant email already registered")
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now()
	}
	s.byID[a.ID] = a
	s.byEmail[email] = a.ID
	return nil
}

func (s *InMemoryStore) Get(_ context.Context, id uuid.UUID) (*Aidant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.byID[id]
	if !ok {
		return nil, nil
	}
	return &a, nil
}

func (s *InMemoryStore) GetByEmail(_ context.Context, email string) (*Aidant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byEmail[strings.ToLower(email)]
	if !ok {
		return nil, nil
	}
	a := s.byID[id]
	return &a, nil
}

func (s *InMemoryStore) Deactivate(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.byID[id]
	if !ok {
		return derrors.New(derrors.CodeNotFound, "aidant not found")
	}
	a.Active = false
	s.byID[id] = a
	return nil
}

// InMemorySessionStore backs sessions in tests and when redis is not
// configured. TTL handling matches the redis store.
type InMemorySessionStore struct {
	mu      sync.RWMutex
	active  map[uuid.UUID]sessionEntry
	ttl     time.Duration
	nowFunc func() time.Time
}

type sessionEntry struct {
	organisationID uuid.UUID
	expiresAt      time.Time
}

func NewInMemorySessionStore(ttl time.Duration) *InMemorySessionStore {
	return &InMemorySessionStore{
		active:  make(map[uuid.UUID]sessionEntry),
		ttl:     ttl,
		nowFunc: time.Now,
	}
}

func (s *InMemorySessionStore) SetActiveOrganisation(_ context.Context, aidantID, organisationID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active[aidantID] = sessionEntry{
		organisationID: organisationID,
		expiresAt:      s.nowFunc().Add(s.ttl),
	}
	return nil
}

func (s *InMemorySessionStore) GetActiveOrganisation(_ context.Context, aidantID uuid.UUID) (uuid.UUID, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.active[aidantID]
	if !ok || s.nowFunc().After(entry.expiresAt) {
		return uuid.Nil, false, nil
	}
	return entry.organisationID, true, nil
}

func (s *InMemorySessionStore) ClearActiveOrganisation(_ context.Context, aidantID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.active, aidantID)
	return nil
}
