package carte

import (
	"context"

	"github.com/google/uuid"
)

// Store persists TOTP cards.
type Store interface {
	Create(ctx context.Context, c CarteTOTP) error
	GetBySerial(ctx context.Context, serial string) (*CarteTOTP, error)
	GetByAidant(ctx context.Context, aidantID uuid.UUID) (*CarteTOTP, error)
	// Assign binds the card to an aidant and resets the confirmed flag.
	Assign(ctx context.Context, serial string, aidantID uuid.UUID) error
	Confirm(ctx context.Context, serial string) error
	// Unassign clears the binding. The card row remains for reuse.
	Unassign(ctx context.Context, serial string) error
	Delete(ctx context.Context, serial string) error
}
