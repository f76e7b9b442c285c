// Package carte manages the physical TOTP cards handed to aidants who
// cannot use a phone-based second factor. A card binds to at most one
// aidant and becomes confirmed on its first successful challenge.
package carte

import (
	"time"

	"github.com/google/uuid"
)

// CarteTOTP is one physical card. The seed never leaves the store layer
// except for code verification.
type CarteTOTP struct {
	ID        uuid.UUID
	Serial    string
	Seed      string
	AidantID  *uuid.UUID
	Confirmed bool
	CreatedAt time.Time
}

// IsAssigned reports whether the card is bound to an aidant.
func (c CarteTOTP) IsAssigned() bool {
	return c.AidantID != nil
}
