package mandate

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Store persists mandates and their autorisations.
//
// CreateWithAutorisations is atomic: either the mandate and every
// autorisation land, or nothing does. Revoke must be conditional on the
// autorisation not already being revoked and report which case it hit.
// TransferOrganisation updates only the listed mandates that still exist and
// returns the ids actually updated.
type Store interface {
	CreateWithAutorisations(ctx context.Context, m Mandat, autorisations []Autorisation) error
	GetMandat(ctx context.Context, id uuid.UUID) (*Mandat, error)
	GetAutorisation(ctx context.Context, id uuid.UUID) (*Autorisation, error)
	ListAutorisations(ctx context.Context, mandatID uuid.UUID) ([]Autorisation, error)
	ListByOrganisation(ctx context.Context, organisationID uuid.UUID) ([]Mandat, error)
	ListByUsager(ctx context.Context, organisationID, usagerID uuid.UUID) ([]Mandat, error)
	Revoke(ctx context.Context, autorisationID uuid.UUID, at time.Time) error
	TransferOrganisation(ctx context.Context, ids []uuid.UUID, target uuid.UUID) ([]uuid.UUID, error)
}
