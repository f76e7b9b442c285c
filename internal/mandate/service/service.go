// Package service implements the mandate lifecycle: creation, renewal,
// autorisation cancellation and bulk organisation transfer. It operates on
// record identifiers through store interfaces; no rule lives on a model.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"aidantsconnect/internal/journal"
	"aidantsconnect/internal/mandate"
	"aidantsconnect/internal/organisation"
	"aidantsconnect/internal/platform/metrics"
	derrors "aidantsconnect/pkg/domain-errors"
)

// OrganisationDirectory is the slice of the organisation store the mandate
// service needs.
type OrganisationDirectory interface {
	Get(ctx context.Context, id uuid.UUID) (*organisation.Organisation, error)
}

// Service carries the mandate lifecycle rules.
type Service struct {
	store         mandate.Store
	organisations OrganisationDirectory
	journal       journal.Store
	logger        *slog.Logger
	metrics       *metrics.Metrics
	now           func() time.Time
}

func New(store mandate.Store, orgs OrganisationDirectory, jrnl journal.Store, logger *slog.Logger, m *metrics.Metrics) *Service {
	return &Service{
		store:         store,
		organisations: orgs,
		journal:       jrnl,
		logger:        logger,
		metrics:       m,
		now:           time.Now,
	}
}

// WithClock overrides the time source. Test helper.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// CreateParams describes a mandate to create.
type CreateParams struct {
	AidantID       uuid.UUID
	OrganisationID uuid.UUID
	UsagerID       uuid.UUID
	Demarches      []string
	Duree          mandate.Duree
	IsRemote       bool
	ConsentMethod  mandate.ConsentMethod
	Phone          string
}

// Create validates params and persists the mandate with one autorisation
// per demarche in a single transaction, then journals one creation event
// per demarche.
func (s *Service) Create(ctx context.Context, p CreateParams) (*mandate.Mandat, error) {
	if len(p.Demarches) == 0 {
		return nil, derrors.New(derrors.CodeBadRequest, "at least one demarche is required")
	}
	seen := make(map[string]bool, len(p.Demarches))
	for _, d := range p.Demarches {
		if d == "" {
			return nil, derrors.New(derrors.CodeBadRequest, "demarche must not be empty")
		}
		if seen[d] {
			return nil, derrors.Newf(derrors.CodeBadRequest, "duplicate demarche %q", d)
		}
		seen[d] = true
	}
	span, ok := p.Duree.Span()
	if !ok {
		return nil, derrors.Newf(derrors.CodeBadRequest, "unknown duree %q", p.Duree)
	}
	if p.IsRemote {
		if p.ConsentMethod == "" {
			return nil, derrors.New(derrors.CodeBadRequest, "remote mandate requires a consent method")
		}
		if p.ConsentMethod == mandate.ConsentMethodSMS && p.Phone == "" {
			return nil, derrors.New(derrors.CodeBadRequest, "remote SMS mandate requires a verified phone")
		}
	}

	now := s.now()
	m := mandate.Mandat{
		ID:             uuid.New(),
		OrganisationID: p.OrganisationID,
		UsagerID:       p.UsagerID,
		CreationDate:   now,
		ExpirationDate: now.Add(span),
		Duree:          p.Duree,
		IsRemote:       p.IsRemote,
		ConsentMethod:  p.ConsentMethod,
	}
	autorisations := make([]mandate.Autorisation, len(p.Demarches))
	for i, d := range p.Demarches {
		autorisations[i] = mandate.Autorisation{
			ID:       uuid.New(),
			MandatID: m.ID,
			Demarche: d,
		}
	}

	if err := s.store.CreateWithAutorisations(ctx, m, autorisations); err != nil {
		return nil, fmt.Errorf("create mandat: %w", err)
	}
	s.metrics.MandatsCreated.Inc()

	// One journal entry per demarche keeps creation queryable per procedure.
	// The mandate row is the commit point; an append failure here is logged,
	// not unwound.
	for _, a := range autorisations {
		if err := s.journal.Append(ctx, journal.Entry{
			Action:         journal.ActionMandatCreated,
			AidantID:       journal.Ref(p.AidantID),
			OrganisationID: journal.Ref(m.OrganisationID),
			UsagerID:       journal.Ref(m.UsagerID),
			MandatID:       journal.Ref(m.ID),
			AutorisationID: journal.Ref(a.ID),
			Demarche:       a.Demarche,
			Duree:          string(m.Duree),
		}); err != nil {
			s.metrics.JournalAppendFailures.Inc()
			s.logger.ErrorContext(ctx, "journal append failed after mandat create",
				"mandat_id", m.ID, "demarche", a.Demarche, "error", err)
		}
	}
	return &m, nil
}

// Renew creates a fresh mandate for the same organisation and usager. The
// old mandate is never mutated; overlapping active mandates for one
// (organisation, usager) pair are permitted.
func (s *Service) Renew(ctx context.Context, p CreateParams) (*mandate.Mandat, error) {
	return s.Create(ctx, p)
}

// CancelAutorisation sets the revocation date once. A second cancel fails
// with CodeAlreadyRevoked and leaves the original date untouched.
func (s *Service) CancelAutorisation(ctx context.Context, aidantID, autorisationID uuid.UUID) error {
	now := s.now()
	if err := s.store.Revoke(ctx, autorisationID, now); err != nil {
		return err
	}
	s.metrics.AutorisationsRevoked.Inc()

	a, err := s.store.GetAutorisation(ctx, autorisationID)
	if err != nil || a == nil {
		s.logger.ErrorContext(ctx, "autorisation reload failed after revoke",
			"autorisation_id", autorisationID, "error", err)
		a = &mandate.Autorisation{ID: autorisationID}
	}
	if err := s.journal.Append(ctx, journal.Entry{
		Action:         journal.ActionAutorisationCancelled,
		AidantID:       journal.Ref(aidantID),
		AutorisationID: journal.Ref(autorisationID),
		MandatID:       journal.Ref(a.MandatID),
		Demarche:       a.Demarche,
	}); err != nil {
		s.metrics.JournalAppendFailures.Inc()
		s.logger.ErrorContext(ctx, "journal append failed after cancel",
			"autorisation_id", autorisationID, "error", err)
	}
	return nil
}

// IsActive reports whether the mandate still has at least one usable
// autorisation. Pure read; mutates nothing.
func (s *Service) IsActive(ctx context.Context, mandatID uuid.UUID) (bool, error) {
	m, err := s.store.GetMandat(ctx, mandatID)
	if err != nil {
		return false, err
	}
	if m == nil {
		return false, derrors.New(derrors.CodeNotFound, "mandat not found")
	}
	now := s.now()
	if m.IsExpired(now) {
		return false, nil
	}
	autorisations, err := s.store.ListAutorisations(ctx, mandatID)
	if err != nil {
		return false, err
	}
	for _, a := range autorisations {
		if a.IsActive(*m, now) {
			return true, nil
		}
	}
	return false, nil
}

// TransferResult reports per-id outcomes of a bulk transfer. Callers must
// check Failed; a partial transfer is not an error.
type TransferResult struct {
	Transferred []uuid.UUID
	Failed      []uuid.UUID
}

// Transfer reassigns mandates to the target organisation. An unknown target
// fails validation before any mutation, naming the organisation id.
func (s *Service) Transfer(ctx context.Context, aidantID uuid.UUID, ids []uuid.UUID, target uuid.UUID) (*TransferResult, error) {
	org, err := s.organisations.Get(ctx, target)
	if err != nil {
		return nil, fmt.Errorf("validate transfer target: %w", err)
	}
	if org == nil {
		return nil, derrors.Newf(derrors.CodeBadRequest, "target organisation %s does not exist", target)
	}

	transferred, err := s.store.TransferOrganisation(ctx, ids, target)
	if err != nil {
		return nil, fmt.Errorf("transfer mandats: %w", err)
	}

	done := make(map[uuid.UUID]bool, len(transferred))
	for _, id := range transferred {
		done[id] = true
	}
	result := &TransferResult{Transferred: transferred}
	for _, id := range ids {
		if !done[id] {
			result.Failed = append(result.Failed, id)
		}
	}

	if err := s.journal.Append(ctx, journal.Entry{
		Action:         journal.ActionMandatsTransferred,
		AidantID:       journal.Ref(aidantID),
		OrganisationID: journal.Ref(target),
	}); err != nil {
		s.metrics.JournalAppendFailures.Inc()
		s.logger.ErrorContext(ctx, "journal append failed after transfer",
			"target", target, "error", err)
	}
	return result, nil
}
