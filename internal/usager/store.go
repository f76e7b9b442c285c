package usager

import (
	"context"

	"github.com/google/uuid"
)

// Store persists usagers. Identity fields never change after create; the
// only mutable field is the contact phone.
type Store interface {
	Create(ctx context.Context, u Usager) error
	GetBySub(ctx context.Context, sub string) (*Usager, error)
	Get(ctx context.Context, id uuid.UUID) (*Usager, error)
	UpdatePhone(ctx context.Context, id uuid.UUID, phone string) error
}
