package mandate

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	derrors "aidantsconnect/pkg/domain-errors"
)

// InMemoryStore mirrors the postgres store semantics under one mutex.
type InMemoryStore struct {
	mu            sync.RWMutex
	mandats       map[uuid.UUID]Mandat
	autorisations map[uuid.UUID]Autorisation
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		mandats:       make(map[uuid.UUID]Mandat),
		autorisations: make(map[uuid.UUID]Autorisation),
	}
}

func (s *InMemoryStore) CreateWithAutorisations(_ context.Context, m Mandat, autorisations []Autorisation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.mandats[m.ID]; exists {
		return derrors.New(derrors.CodeConflict, "mandat id already exists")
	}
	s.mandats[m.ID] = m
	for _, a := range autorisations {
		s.autorisations[a.ID] = a
	}
	return nil
}

func (s *InMemoryStore) GetMandat(_ context.Context, id uuid.UUID) (*Mandat, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.mandats[id]
	if !ok {
		return nil, nil
	}
	return &m, nil
}

func (s *InMemoryStore) GetAutorisation(_ context.Context, id uuid.UUID) (*Autorisation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.autorisations[id]
	if !ok {
		return nil, nil
	}
	return &a, nil
}

func (s *InMemoryStore) ListAutorisations(_ context.Context, mandatID uuid.UUID) ([]Autorisation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Autorisation
	for _, a := range s.autorisations {
		if a.MandatID == mandatID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (s *InMemoryStore) ListByOrganisation(_ context.Context, organisationID uuid.UUID) ([]Mandat, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Mandat
	for _, m := range s.mandats {
		if m.OrganisationID == organisationID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *InMemoryStore) ListByUsager(_ context.Context, organisationID, usagerID uuid.UUID) ([]Mandat, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Mandat
	for _, m := range s.mandats {
		if m.OrganisationID == organisationID && m.UsagerID == usagerID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *InMemoryStore) Revoke(_ context.Context, autorisationID uuid.UUID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.autorisations[autorisationID]
	if !ok {
		return derrors.New(derrors.CodeNotFound, "autorisation not found")
	}
	if a.RevocationDate != nil {
		return derrors.New(derrors.CodeAlreadyRevoked, "autorisation already revoked")
	}
	a.RevocationDate = &at
	s.autorisations[autorisationID] = a
	return nil
}

func (s *InMemoryStore) TransferOrganisation(_ context.Context, ids []uuid.UUID, target uuid.UUID) ([]uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var transferred []uuid.UUID
	for _, id := range ids {
		m, ok := s.mandats[id]
		if !ok {
			continue
		}
		m.OrganisationID = target
		s.mandats[id] = m
		transferred = append(transferred, id)
	}
	return transferred, nil
}
