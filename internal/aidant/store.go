package aidant

import (
	"context"

	"github.com/google/uuid"
)

// Store persists aidants.
type Store interface {
	Create(ctx context.Context, a Aidant) error
	Get(ctx context.Context, id uuid.UUID) (*Aidant, error)
	GetByEmail(ctx context.Context, email string) (*Aidant, error)
	Deactivate(ctx context.Context, id uuid.UUID) error
}

// SessionStore keeps the per-session active organisation. Entries expire
// with the session TTL; a missing entry means "use the home organisation".
type SessionStore interface {
	SetActiveOrganisation(ctx context.Context, aidantID, organisationID uuid.UUID) error
	GetActiveOrganisation(ctx context.Context, aidantID uuid.UUID) (uuid.UUID, bool, error)
	ClearActiveOrganisation(ctx context.Context, aidantID uuid.UUID) error
}
