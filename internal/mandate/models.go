// Package mandate holds the Mandat/Autorisation records and their pure
// read-time derivations. Business rules live in the service package; the
// only methods here are derivations that never touch storage.
package mandate

import (
	"time"

	"github.com/google/uuid"
)

// Duree is the mandate duration keyword chosen at creation.
type Duree string

const (
	DureeShort    Duree = "SHORT"    // one day
	DureeSemester Duree = "SEMESTER" // six months
	DureeLong     Duree = "LONG"     // one year
)

// Span returns the duration a keyword grants.
func (d Duree) Span() (time.Duration, bool) {
	switch d {
	case DureeShort:
		return 24 * time.Hour, true
	case DureeSemester:
		return 6 * 30 * 24 * time.Hour, true
	case DureeLong:
		return 365 * 24 * time.Hour, true
	}
	return 0, false
}

// ConsentMethod tells how a remote mandate's consent was collected.
type ConsentMethod string

const (
	ConsentMethodSMS    ConsentMethod = "SMS"
	ConsentMethodLegacy ConsentMethod = "LEGACY"
)

// Mandat is a time-boxed grant of authority from a usager to an
// organisation. organisation/usager/creation_date are immutable after
// create; "active" is derived, never stored.
type Mandat struct {
	ID             uuid.UUID
	OrganisationID uuid.UUID
	UsagerID       uuid.UUID
	CreationDate   time.Time
	ExpirationDate time.Time
	Duree          Duree
	IsRemote       bool
	ConsentMethod  ConsentMethod
}

// IsExpired reports whether the mandate has passed its expiration date.
func (m Mandat) IsExpired(now time.Time) bool {
	return now.After(m.ExpirationDate)
}

// Autorisation is one procedure-scoped permission within a mandate. A set
// revocation date is terminal; rows are never deleted (legal retention).
type Autorisation struct {
	ID             uuid.UUID
	MandatID       uuid.UUID
	Demarche       string
	RevocationDate *time.Time
}

// IsRevoked reports whether the autorisation reached its terminal state.
func (a Autorisation) IsRevoked() bool {
	return a.RevocationDate != nil
}

// IsActive reports whether the autorisation is usable under its mandate.
func (a Autorisation) IsActive(m Mandat, now time.Time) bool {
	return !a.IsRevoked() && !m.IsExpired(now)
}
