package journal

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	derrors "aidantsconnect/pkg/domain-errors"
)

// InMemoryStore keeps journal entries in a slice guarded by one mutex. The
// resolution uniqueness check happens under the same lock as the append, so
// concurrent duplicate callbacks observe the check-then-act as atomic,
// mirroring the partial unique index in the postgres store.
type InMemoryStore struct {
	mu      sync.RWMutex
	entries []Entry
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

func (s *InMemoryStore) Append(_ context.Context, entry Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry.Action.IsConsentResolution() {
		for _, e := range s.entries {
			if e.Action.IsConsentResolution() &&
				e.Phone == entry.Phone && e.ConsentRequestTag == entry.ConsentRequestTag {
				return derrors.New(derrors.CodeConflict, "consent resolution already journaled")
			}
		}
	}

	if entry.ID == "" {
		entry.ID = NewID()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	s.entries = append(s.entries, entry)
	return nil
}

func (s *InMemoryStore) FindConsentRequest(_ context.Context, phone, tag string) (*Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := range s.entries {
		e := s.entries[i]
		if e.Action == ActionConsentRequestSent && e.Phone == phone && e.ConsentRequestTag == tag {
			return &e, nil
		}
	}
	return nil, nil
}

func (s *InMemoryStore) FindConsentResolution(_ context.Context, phone, tag string) (*Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := range s.entries {
		e := s.entries[i]
		if e.Action.IsConsentResolution() && e.Phone == phone && e.ConsentRequestTag == tag {
			return &e, nil
		}
	}
	return nil, nil
}

func (s *InMemoryStore) ListByUsager(_ context.Context, usagerID uuid.UUID) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Entry
	for _, e := range s.entries {
		if e.UsagerID != nil && *e.UsagerID == usagerID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *InMemoryStore) ListByOrganisation(_ context.Context, organisationID uuid.UUID) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Entry
	for _, e := range s.entries {
		if e.OrganisationID != nil && *e.OrganisationID == organisationID {
			out = append(out, e)
		}
	}
	return out, nil
}

// Len reports the number of journaled entries. Test helper.
func (s *InMemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// All returns a copy of every entry in append order. Test helper.
func (s *InMemoryStore) All() []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Entry{}, s.entries...)
}
