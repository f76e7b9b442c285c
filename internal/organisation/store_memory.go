package organisation

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	derrors "aidantsconnect/pkg/domain-errors"
)

type memberKey struct {
	aidant       uuid.UUID
	organisation uuid.UUID
}

type InMemoryStore struct {
	mu            sync.RWMutex
	organisations map[uuid.UUID]Organisation
	members       map[memberKey]Membership
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		organisations: make(map[uuid.UUID]Organisation),
		members:       make(map[memberKey]Membership),
	}
}

func (s *InMemoryStore) Create(_ context.Context, org Organisation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.organisations[org.ID]; exists {
		return derrors.New(derrors.CodeConflict, "organisation id already exists")
	}
	if org.CreatedAt.IsZero() {
		org.CreatedAt = time.Now()
	}
	s.organisations[org.ID] = org
	return nil
}

func (s *InMemoryStore) Get(_ context.Context, id uuid.UUID) (*Organisation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	org, ok := s.organisations[id]
	if !ok {
		return nil, nil
	}
	return &org, nil
}

func (s *InMemoryStore) Deactivate(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	org, ok := s.organisations[id]
	if !ok {
		return derrors.New(derrors.CodeNotFound, "organisation not found")
	}
	org.Active = false
	s.organisations[id] = org
	return nil
}

func (s *InMemoryStore) ListByAidant(_ context.Context, aidantID uuid.UUID) ([]Organisation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Organisation
	for key, m := range s.members {
		if m.AidantID == aidantID {
			if org, ok := s.organisations[key.organisation]; ok {
				out = append(out, org)
			}
		}
	}
	return out, nil
}

func (s *InMemoryStore) AddMember(_ context.Context, m Membership) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := memberKey{aidant: m.AidantID, organisation: m.OrganisationID}
	if _, exists := s.members[key]; exists {
		return derrors.New(derrors.CodeConflict, "aidant already a member")
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now()
	}
	s.members[key] = m
	return nil
}

func (s *InMemoryStore) RemoveMember(_ context.Context, aidantID, organisationID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := memberKey{aidant: aidantID, organisation: organisationID}
	if _, ok := s.members[key]; !ok {
		return derrors.New(derrors.CodeNotFound, "membership not found")
	}
	delete(s.members, key)
	return nil
}

func (s *InMemoryStore) GetMembership(_ context.Context, aidantID, organisationID uuid.UUID) (*Membership, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.members[memberKey{aidant: aidantID, organisation: organisationID}]
	if !ok {
		return nil, nil
	}
	return &m, nil
}
