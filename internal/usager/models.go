// Package usager holds the pseudonymous end users created on first
// successful federation login. Identity fields are immutable after create.
package usager

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/google/uuid"
)

// Usager is an end user granting mandates. Sub is the hashed federation
// subject; the raw subject never touches storage.
type Usager struct {
	ID           uuid.UUID
	Sub          string
	GivenName    string
	FamilyName   string
	BirthDate    time.Time
	BirthPlace   string
	BirthCountry string
	Phone        string
	CreatedAt    time.Time
}

// HashSub derives the stored pseudonymous subject id from the raw
// federation subject.
func HashSub(rawSub string) string {
	digest := sha256.Sum256([]byte(rawSub))
	return hex.EncodeToString(digest[:])
}
