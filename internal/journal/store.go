package journal

import (
	"context"

	"github.com/google/uuid"
)

// Store persists journal entries. Implementations enforce the at-most-one
// consent resolution invariant per (phone, tag): appending a second
// resolution for the same key fails with derrors.CodeConflict, atomically
// with respect to concurrent appends.
type Store interface {
	Append(ctx context.Context, entry Entry) error
	FindConsentRequest(ctx context.Context, phone, tag string) (*Entry, error)
	FindConsentResolution(ctx context.Context, phone, tag string) (*Entry, error)
	ListByUsager(ctx context.Context, usagerID uuid.UUID) ([]Entry, error)
	ListByOrganisation(ctx context.Context, organisationID uuid.UUID) ([]Entry, error)
}
