// Package service implements the referent-gated lifecycle of TOTP cards:
// association to an aidant, confirmation on the first successful
// challenge, and dissociation.
package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"aidantsconnect/internal/aidant"
	"aidantsconnect/internal/carte"
	"aidantsconnect/internal/journal"
	derrors "aidantsconnect/pkg/domain-errors"
)

// ReferentChecker answers whether an aidant is a referent of an
// organisation. Satisfied by the aidant service.
type ReferentChecker interface {
	IsReferent(ctx context.Context, aidantID, organisationID uuid.UUID) (bool, error)
}

type Service struct {
	store     carte.Store
	aidants   aidant.Store
	referents ReferentChecker
	journal   journal.Store
	logger    *slog.Logger
	now       func() time.Time
}

func New(store carte.Store, aidants aidant.Store, referents ReferentChecker, jstore journal.Store, logger *slog.Logger) *Service {
	return &Service{
		store:     store,
		aidants:   aidants,
		referents: referents,
		journal:   jstore,
		logger:    logger,
		now:       time.Now,
	}
}

// WithClock overrides the time source for tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Register records a card from stock so a referent can later hand it out.
func (s *Service) Register(ctx context.Context, serial, seed string) (*carte.CarteTOTP, error) {
	if serial == "" || seed == "" {
		return nil, derrors.New(derrors.CodeBadRequest, "serial and seed are required")
	}
	c := carte.CarteTOTP{
		ID:        uuid.New(),
		Serial:    serial,
		Seed:      seed,
		CreatedAt: s.now(),
	}
	if err := s.store.Create(ctx, c); err != nil {
		return nil, err
	}
	return &c, nil
}

// Associate binds an unassigned card to an aidant. Only a referent of the
// aidant's home organisation may do this.
func (s *Service) Associate(ctx context.Context, referentID, aidantID uuid.UUID, serial string) error {
	a, err := s.requireReferentOf(ctx, referentID, aidantID)
	if err != nil {
		return err
	}

	c, err := s.store.GetBySerial(ctx, serial)
	if err != nil {
		return err
	}
	if c == nil {
		return derrors.New(derrors.CodeNotFound, "card not found")
	}
	if c.IsAssigned() {
		return derrors.Newf(derrors.CodeConflict, "card %s is already assigned", serial)
	}

	existing, err := s.store.GetByAidant(ctx, aidantID)
	if err != nil {
		return err
	}
	if existing != nil {
		return derrors.Newf(derrors.CodeConflict, "aidant already has card %s", existing.Serial)
	}

	if err := s.store.Assign(ctx, serial, aidantID); err != nil {
		return err
	}
	s.journalCard(ctx, journal.ActionCardAssociated, a, serial)
	s.logger.Info("card associated", "serial", serial, "aidant_id", aidantID)
	return nil
}

// Confirm validates the first TOTP challenge and marks the card confirmed.
// Later successful challenges are accepted without re-journaling.
func (s *Service) Confirm(ctx context.Context, aidantID uuid.UUID, code string) error {
	c, err := s.store.GetByAidant(ctx, aidantID)
	if err != nil {
		return err
	}
	if c == nil {
		return derrors.New(derrors.CodeNotFound, "no card assigned to aidant")
	}

	if !carte.VerifyCode(c.Seed, code, s.now()) {
		return derrors.New(derrors.CodeUnauthorized, "invalid code")
	}
	if c.Confirmed {
		return nil
	}

	if err := s.store.Confirm(ctx, c.Serial); err != nil {
		return err
	}
	a, err := s.aidants.Get(ctx, aidantID)
	if err != nil {
		return err
	}
	s.journalCard(ctx, journal.ActionCardValidated, a, c.Serial)
	s.logger.Info("card confirmed", "serial", c.Serial, "aidant_id", aidantID)
	return nil
}

// Dissociate removes the binding and deletes the card. Referent-gated like
// Associate.
func (s *Service) Dissociate(ctx context.Context, referentID, aidantID uuid.UUID) error {
	a, err := s.requireReferentOf(ctx, referentID, aidantID)
	if err != nil {
		return err
	}

	c, err := s.store.GetByAidant(ctx, aidantID)
	if err != nil {
		return err
	}
	if c == nil {
		return derrors.New(derrors.CodeNotFound, "no card assigned to aidant")
	}

	if err := s.store.Delete(ctx, c.Serial); err != nil {
		return err
	}
	s.journalCard(ctx, journal.ActionCardDissociated, a, c.Serial)
	s.logger.Info("card dissociated", "serial", c.Serial, "aidant_id", aidantID)
	return nil
}

func (s *Service) requireReferentOf(ctx context.Context, referentID, aidantID uuid.UUID) (*aidant.Aidant, error) {
	a, err := s.aidants.Get(ctx, aidantID)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, derrors.New(derrors.CodeNotFound, "aidant not found")
	}
	ok, err := s.referents.IsReferent(ctx, referentID, a.OrganisationID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, derrors.New(derrors.CodeForbidden, "card operations require a referent of the aidant's organisation")
	}
	return a, nil
}

func (s *Service) journalCard(ctx context.Context, action journal.Action, a *aidant.Aidant, serial string) {
	entry := journal.Entry{
		ID:         journal.NewID(),
		Action:     action,
		CardSerial: serial,
		CreatedAt:  s.now(),
	}
	if a != nil {
		entry.AidantID = journal.Ref(a.ID)
		entry.OrganisationID = journal.Ref(a.OrganisationID)
	}
	if err := s.journal.Append(ctx, entry); err != nil {
		s.logger.Error("failed to journal card event", "action", action, "serial", serial, "error", err)
	}
}
