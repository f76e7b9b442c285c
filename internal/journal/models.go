// Package journal is the append-only record of every mandate lifecycle
// event. Entries are never updated or deleted after insert; the journal is
// both the audit trail and the source of truth for remote consent
// correlation ("has this phone/tag already answered").
package journal

import (
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// Action identifies the lifecycle event a journal entry records.
type Action string

const (
	ActionFederationLogin          Action = "federation_login"
	ActionMandatCreated            Action = "mandat_created"
	ActionAutorisationCancelled    Action = "autorisation_cancelled"
	ActionAutorisationUsed         Action = "autorisation_used"
	ActionConsentRequestSent       Action = "consent_request_sent"
	ActionConsentAgreementReceived Action = "consent_agreement_received"
	ActionConsentDenialReceived    Action = "consent_denial_received"
	ActionCardAssociated           Action = "card_associated"
	ActionCardValidated            Action = "card_validated"
	ActionCardDissociated          Action = "card_dissociated"
	ActionMandatsTransferred       Action = "mandats_transferred"
	ActionDatapassReceived         Action = "datapass_received"
)

// IsConsentResolution reports whether the action terminates a remote
// consent request.
func (a Action) IsConsentResolution() bool {
	return a == ActionConsentAgreementReceived || a == ActionConsentDenialReceived
}

// Entry is one immutable journal row. References are nullable so entries
// survive deletion of the entities they mention (legal retention).
type Entry struct {
	ID             string
	Action         Action
	AidantID       *uuid.UUID
	OrganisationID *uuid.UUID
	UsagerID       *uuid.UUID
	MandatID       *uuid.UUID
	AutorisationID *uuid.UUID

	Demarche          string
	Duree             string
	Phone             string
	ConsentRequestTag string
	MessageID         string
	CardSerial        string
	UserAgent         string

	CreatedAt time.Time
}

// NewID returns a time-ordered entry id. ULIDs sort by creation time, which
// keeps the journal naturally ordered without a sequence.
func NewID() string {
	return ulid.Make().String()
}

// Ref adapts a uuid for a nullable entry reference.
func Ref(id uuid.UUID) *uuid.UUID {
	return &id
}
