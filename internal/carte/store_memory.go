package carte

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	derrors "aidantsconnect/pkg/domain-errors"
)

type InMemoryStore struct {
	mu       sync.RWMutex
	bySerial map[string]CarteTOTP
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{bySerial: make(map[string]CarteTOTP)}
}

func (s *InMemoryStore) Create(_ context.Context, c CarteTOTP) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.bySerial[c.Serial]; exists {
		return derrors.New(derrors.CodeConflict, "card serial already registered")
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}
	s.bySerial[c.Serial] = c
	return nil
}

func (s *InMemoryStore) GetBySerial(_ context.Context, serial string) (*CarteTOTP, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.bySerial[serial]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (s *InMemoryStore) GetByAidant(_ context.Context, aidantID uuid.UUID) (*CarteTOTP, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.bySerial {
		if c.AidantID != nil && *c.AidantID == aidantID {
			card := c
			return &card, nil
		}
	}
	return nil, nil
}

func (s *InMemoryStore) Assign(_ context.Context, serial string, aidantID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.bySerial[serial]
	if !ok {
		return derrors.New(derrors.CodeNotFound, "card not found")
	}
	c.AidantID = &aidantID
	c.Confirmed = false
	s.bySerial[serial] = c
	return nil
}

func (s *InMemoryStore) Confirm(_ context.Context, serial string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.bySerial[serial]
	if !ok {
		return derrors.New(derrors.CodeNotFound, "card not found")
	}
	c.Confirmed = true
	s.bySerial[serial] = c
	return nil
}

func (s *InMemoryStore) Unassign(_ context.Context, serial string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.bySerial[serial]
	if !ok {
		return derrors.New(derrors.CodeNotFound, "card not found")
	}
	c.AidantID = nil
	c.Confirmed = false
	s.bySerial[serial] = c
	return nil
}

func (s *InMemoryStore) Delete(_ context.Context, serial string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.bySerial[serial]; !ok {
		return derrors.New(derrors.CodeNotFound, "card not found")
	}
	delete(s.bySerial, serial)
	return nil
}
