package organisation

import (
	"context"

	"github.com/google/uuid"
)

// Store persists organisations and memberships.
type Store interface {
	Create(ctx context.Context, org Organisation) error
	Get(ctx context.Context, id uuid.UUID) (*Organisation, error)
	Deactivate(ctx context.Context, id uuid.UUID) error
	ListByAidant(ctx context.Context, aidantID uuid.UUID) ([]Organisation, error)

	AddMember(ctx context.Context, m Membership) error
	RemoveMember(ctx context.Context, aidantID, organisationID uuid.UUID) error
	GetMembership(ctx context.Context, aidantID, organisationID uuid.UUID) (*Membership, error)
}
