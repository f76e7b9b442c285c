// Package aidant holds the accredited helper records and the session-scoped
// active organisation.
package aidant

import (
	"time"

	"github.com/google/uuid"
)

// Aidant is an accredited helper. OrganisationID is the home organisation;
// additional memberships live in the organisation directory.
type Aidant struct {
	ID               uuid.UUID
	Email            string
	FirstName        string
	LastName         string
	Profession       string
	OrganisationID   uuid.UUID
	CanCreateMandats bool
	Active           bool
	CreatedAt        time.Time
}
