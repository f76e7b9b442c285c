// Package habilitation tracks requests from structures asking to be
// habilitated as an aide organisation. Requests arrive through the
// datapass callback and move through a small review state machine.
package habilitation

import (
	"time"

	"github.com/google/uuid"
)

// Status of a habilitation request.
type Status string

const (
	StatusNew        Status = "NEW"
	StatusProcessing Status = "PROCESSING"
	StatusValidated  Status = "VALIDATED"
	StatusRefused    Status = "REFUSED"
)

// CanTransitionTo encodes the review state machine:
// NEW -> PROCESSING -> VALIDATED | REFUSED. Terminal states never move.
func (s Status) CanTransitionTo(next Status) bool {
	switch s {
	case StatusNew:
		return next == StatusProcessing
	case StatusProcessing:
		return next == StatusValidated || next == StatusRefused
	default:
		return false
	}
}

// Request is one habilitation demand. Draft fields mirror the
// organisation that will be created on validation.
type Request struct {
	ID                uuid.UUID
	OrganisationName  string
	OrganisationSIRET string
	RequesterEmail    string
	DatapassID        string
	Status            Status
	CreatedAt         time.Time
	UpdatedAt         time.Time
}
