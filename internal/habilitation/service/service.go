// Package service implements habilitation request intake and review.
// Requests arrive via the datapass callback, get reviewed, and a
// validated request materializes as a new organisation.
package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"aidantsconnect/internal/habilitation"
	"aidantsconnect/internal/journal"
	"aidantsconnect/internal/organisation"
	derrors "aidantsconnect/pkg/domain-errors"
)

type Service struct {
	store         habilitation.Store
	organisations organisation.Store
	journal       journal.Store
	logger        *slog.Logger
	now           func() time.Time
}

func New(store habilitation.Store, organisations organisation.Store, jstore journal.Store, logger *slog.Logger) *Service {
	return &Service{
		store:         store,
		organisations: organisations,
		journal:       jstore,
		logger:        logger,
		now:           time.Now,
	}
}

// WithClock overrides the time source for tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// IntakeParams carries the datapass payload fields we keep.
type IntakeParams struct {
	OrganisationName  string
	OrganisationSIRET string
	RequesterEmail    string
	DatapassID        string
}

// Intake records a new habilitation request. A replayed datapass id is a
// benign no-op returning the existing request.
func (s *Service) Intake(ctx context.Context, p IntakeParams) (*habilitation.Request, error) {
	if p.OrganisationName == "" {
		return nil, derrors.New(derrors.CodeBadRequest, "organisation name is required")
	}

	if p.DatapassID != "" {
		existing, err := s.store.GetByDatapassID(ctx, p.DatapassID)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			return existing, nil
		}
	}

	r := habilitation.Request{
		ID:                uuid.New(),
		OrganisationName:  p.OrganisationName,
		OrganisationSIRET: p.OrganisationSIRET,
		RequesterEmail:    p.RequesterEmail,
		DatapassID:        p.DatapassID,
		Status:            habilitation.StatusNew,
		CreatedAt:         s.now(),
		UpdatedAt:         s.now(),
	}
	if err := s.store.Create(ctx, r); err != nil {
		if derrors.Is(err, derrors.CodeConflict) {
			// Lost a race against a concurrent delivery of the same payload.
			return s.store.GetByDatapassID(ctx, p.DatapassID)
		}
		return nil, err
	}

	if err := s.journal.Append(ctx, journal.Entry{
		ID:        journal.NewID(),
		Action:    journal.ActionDatapassReceived,
		MessageID: p.DatapassID,
		CreatedAt: s.now(),
	}); err != nil {
		s.logger.Error("failed to journal datapass intake", "datapass_id", p.DatapassID, "error", err)
	}

	s.logger.Info("habilitation request received", "request_id", r.ID, "datapass_id", p.DatapassID)
	return &r, nil
}

// StartProcessing moves a NEW request under review.
func (s *Service) StartProcessing(ctx context.Context, id uuid.UUID) error {
	return s.transition(ctx, id, habilitation.StatusProcessing, nil)
}

// Validate accepts the request and creates the organisation it described.
func (s *Service) Validate(ctx context.Context, id uuid.UUID) (*organisation.Organisation, error) {
	var created *organisation.Organisation
	err := s.transition(ctx, id, habilitation.StatusValidated, func(r *habilitation.Request) error {
		org := organisation.Organisation{
			ID:        uuid.New(),
			Name:      r.OrganisationName,
			SIRET:     r.OrganisationSIRET,
			Active:    true,
			CreatedAt: s.now(),
		}
		if err := s.organisations.Create(ctx, org); err != nil {
			return err
		}
		created = &org
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("habilitation validated", "request_id", id, "organisation_id", created.ID)
	return created, nil
}

// Refuse rejects the request.
func (s *Service) Refuse(ctx context.Context, id uuid.UUID) error {
	return s.transition(ctx, id, habilitation.StatusRefused, nil)
}

func (s *Service) transition(ctx context.Context, id uuid.UUID, next habilitation.Status, before func(*habilitation.Request) error) error {
	r, err := s.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if r == nil {
		return derrors.New(derrors.CodeNotFound, "habilitation request not found")
	}
	if !r.Status.CanTransitionTo(next) {
		return derrors.Newf(derrors.CodeConflict, "cannot move habilitation request from %s to %s", r.Status, next)
	}
	if before != nil {
		if err := before(r); err != nil {
			return err
		}
	}
	return s.store.UpdateStatus(ctx, id, next, s.now())
}
