// Package service implements aidant directory operations and the active
// organisation selection for aidants who belong to several structures.
package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"aidantsconnect/internal/aidant"
	"aidantsconnect/internal/organisation"
	derrors "aidantsconnect/pkg/domain-errors"
)

type Service struct {
	store         aidant.Store
	sessions      aidant.SessionStore
	organisations organisation.Store
	logger        *slog.Logger
}

func New(store aidant.Store, sessions aidant.SessionStore, organisations organisation.Store, logger *slog.Logger) *Service {
	return &Service{
		store:         store,
		sessions:      sessions,
		organisations: organisations,
		logger:        logger,
	}
}

// RegisterParams carries the fields for a new aidant profile.
type RegisterParams struct {
	Email            string
	FirstName        string
	LastName         string
	Profession       string
	OrganisationID   uuid.UUID
	CanCreateMandats bool
}

func (s *Service) Register(ctx context.Context, p RegisterParams) (*aidant.Aidant, error) {
	if p.Email == "" {
		return nil, derrors.New(derrors.CodeBadRequest, "email is required")
	}
	if p.FirstName == "" || p.LastName == "" {
		return nil, derrors.New(derrors.CodeBadRequest, "first and last name are required")
	}

	org, err := s.organisations.Get(ctx, p.OrganisationID)
	if err != nil {
		return nil, err
	}
	if org == nil {
		return nil, derrors.Newf(derrors.CodeBadRequest, "unknown organisation %s", p.OrganisationID)
	}

	a := aidant.Aidant{
		ID:               uuid.New(),
		Email:            p.Email,
		FirstName:        p.FirstName,
		LastName:         p.LastName,
		Profession:       p.Profession,
		OrganisationID:   p.OrganisationID,
		CanCreateMandats: p.CanCreateMandats,
		Active:           true,
		CreatedAt:        time.Now(),
	}
	if err := s.store.Create(ctx, a); err != nil {
		return nil, err
	}
	if err := s.organisations.AddMember(ctx, organisation.Membership{
		AidantID:       a.ID,
		OrganisationID: p.OrganisationID,
		CreatedAt:      a.CreatedAt,
	}); err != nil {
		return nil, err
	}

	s.logger.Info("aidant registered", "aidant_id", a.ID, "organisation_id", p.OrganisationID)
	return &a, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*aidant.Aidant, error) {
	a, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, derrors.New(derrors.CodeNotFound, "aidant not found")
	}
	return a, nil
}

func (s *Service) Deactivate(ctx context.Context, id uuid.UUID) error {
	if err := s.store.Deactivate(ctx, id); err != nil {
		return err
	}
	// A deactivated aidant must not keep acting under a switched organisation.
	if err := s.sessions.ClearActiveOrganisation(ctx, id); err != nil {
		s.logger.Warn("failed to clear active organisation on deactivation", "aidant_id", id, "error", err)
	}
	s.logger.Info("aidant deactivated", "aidant_id", id)
	return nil
}

// SwitchOrganisation records an explicit organisation choice for the current
// session. The aidant must be a member of the target organisation.
func (s *Service) SwitchOrganisation(ctx context.Context, aidantID, organisationID uuid.UUID) error {
	a, err := s.store.Get(ctx, aidantID)
	if err != nil {
		return err
	}
	if a == nil {
		return derrors.New(derrors.CodeNotFound, "aidant not found")
	}
	if !a.Active {
		return derrors.New(derrors.CodeForbidden, "aidant is deactivated")
	}

	m, err := s.organisations.GetMembership(ctx, aidantID, organisationID)
	if err != nil {
		return err
	}
	if m == nil {
		return derrors.Newf(derrors.CodeUnauthorized, "aidant is not a member of organisation %s", organisationID)
	}

	if err := s.sessions.SetActiveOrganisation(ctx, aidantID, organisationID); err != nil {
		return err
	}
	s.logger.Info("active organisation switched", "aidant_id", aidantID, "organisation_id", organisationID)
	return nil
}

// ActiveOrganisation resolves which organisation the aidant is currently
// acting for: an explicit session switch wins while the session lives,
// otherwise the aidant's home organisation applies.
func (s *Service) ActiveOrganisation(ctx context.Context, aidantID uuid.UUID) (uuid.UUID, error) {
	a, err := s.store.Get(ctx, aidantID)
	if err != nil {
		return uuid.Nil, err
	}
	if a == nil {
		return uuid.Nil, derrors.New(derrors.CodeNotFound, "aidant not found")
	}

	orgID, ok, err := s.sessions.GetActiveOrganisation(ctx, aidantID)
	if err != nil {
		s.logger.Warn("session lookup failed, falling back to home organisation", "aidant_id", aidantID, "error", err)
		return a.OrganisationID, nil
	}
	if !ok {
		return a.OrganisationID, nil
	}

	// The membership may have been revoked since the switch.
	m, err := s.organisations.GetMembership(ctx, aidantID, orgID)
	if err != nil {
		return uuid.Nil, err
	}
	if m == nil {
		if err := s.sessions.ClearActiveOrganisation(ctx, aidantID); err != nil {
			s.logger.Warn("failed to clear stale session", "aidant_id", aidantID, "error", err)
		}
		return a.OrganisationID, nil
	}
	return orgID, nil
}

// IsReferent reports whether the aidant is a referent of the organisation.
func (s *Service) IsReferent(ctx context.Context, aidantID, organisationID uuid.UUID) (bool, error) {
	m, err := s.organisations.GetMembership(ctx, aidantID, organisationID)
	if err != nil {
		return false, err
	}
	return m != nil && m.IsReferent, nil
}
