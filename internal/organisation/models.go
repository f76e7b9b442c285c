// Package organisation is the multi-tenant directory: structures that hold
// mandates, their aidant memberships and the referent role that gates
// administrative actions.
package organisation

import (
	"time"

	"github.com/google/uuid"
)

// Organisation is an accredited structure (CCAS, prefecture, association…).
type Organisation struct {
	ID        uuid.UUID
	Name      string
	SIRET     string
	Address   string
	Active    bool
	CreatedAt time.Time
}

// Membership links an aidant to an organisation. Referent grants the
// elevated rights (card management, mandate transfer).
type Membership struct {
	AidantID       uuid.UUID
	OrganisationID uuid.UUID
	IsReferent     bool
	CreatedAt      time.Time
}
