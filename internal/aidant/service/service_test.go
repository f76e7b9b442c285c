package service

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"aidantsconnect/internal/aidant"
	"aidantsconnect/internal/organisation"
	derrors "aidantsconnect/pkg/domain-errors"
)

type AidantServiceSuite struct {
	suite.Suite

	ctx      context.Context
	store    *aidant.InMemoryStore
	sessions *aidant.InMemorySessionStore
	orgs     *organisation.InMemoryStore
	svc      *Service

	homeOrg  organisation.Organisation
	otherOrg organisation.Organisation
}

func TestAidantServiceSuite(t *testing.T) {
	suite.Run(t, new(AidantServiceSuite))
}

func (s *AidantServiceSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = aidant.NewInMemoryStore()
	s.sessions = aidant.NewInMemorySessionStore(time.Hour)
	s.orgs = organisation.NewInMemoryStore()
	s.svc = New(s.store, s.sessions, s.orgs, slog.Default())

	s.homeOrg = organisation.Organisation{ID: uuid.New(), Name: "CCAS de Lille", Active: true}
	s.otherOrg = organisation.Organisation{ID: uuid.New(), Name: "Maison France Services", Active: true}
	s.Require().NoError(s.orgs.Create(s.ctx, s.homeOrg))
	s.Require().NoError(s.orgs.Create(s.ctx, s.otherOrg))
}

func (s *AidantServiceSuite) register() *aidant.Aidant {
	a, err := s.svc.Register(s.ctx, RegisterParams{
		Email:            "marie.dupont@example.org",
		FirstName:        "Marie",
		LastName:         "Dupont",
		Profession:       "Mediatrice numerique",
		OrganisationID:   s.homeOrg.ID,
		CanCreateMandats: true,
	})
	s.Require().NoError(err)
	return a
}

func (s *AidantServiceSuite) TestRegisterCreatesMembership() {
	a := s.register()

	m, err := s.orgs.GetMembership(s.ctx, a.ID, s.homeOrg.ID)
	s.Require().NoError(err)
	s.Require().NotNil(m)
	s.False(m.IsReferent)
}

func (s *AidantServiceSuite) TestRegisterRejectsUnknownOrganisation() {
	_, err := s.svc.Register(s.ctx, RegisterParams{
		Email:          "x@example.org",
		FirstName:      "X",
		LastName:       "Y",
		OrganisationID: uuid.New(),
	})
	s.Equal(derrors.CodeBadRequest, derrors.CodeOf(err))
}

func (s *AidantServiceSuite) TestRegisterRejectsDuplicateEmail() {
	s.register()
	_, err := s.svc.Register(s.ctx, RegisterParams{
		Email:          "Marie.Dupont@example.org",
		FirstName:      "Marie",
		LastName:       "Dupont",
		OrganisationID: s.homeOrg.ID,
	})
	s.Equal(derrors.CodeConflict, derrors.CodeOf(err))
}

func (s *AidantServiceSuite) TestActiveOrganisationDefaultsToHome() {
	a := s.register()

	orgID, err := s.svc.ActiveOrganisation(s.ctx, a.ID)
	s.Require().NoError(err)
	s.Equal(s.homeOrg.ID, orgID)
}

func (s *AidantServiceSuite) TestSwitchOrganisationWinsWhileSessionLives() {
	a := s.register()
	s.Require().NoError(s.orgs.AddMember(s.ctx, organisation.Membership{
		AidantID:       a.ID,
		OrganisationID: s.otherOrg.ID,
	}))

	s.Require().NoError(s.svc.SwitchOrganisation(s.ctx, a.ID, s.otherOrg.ID))

	orgID, err := s.svc.ActiveOrganisation(s.ctx, a.ID)
	s.Require().NoError(err)
	s.Equal(s.otherOrg.ID, orgID)
}

func (s *AidantServiceSuite) TestSwitchToNonMemberOrganisationIsUnauthorized() {
	a := s.register()

	err := s.svc.SwitchOrganisation(s.ctx, a.ID, s.otherOrg.ID)
	s.Equal(derrors.CodeUnauthorized, derrors.CodeOf(err))

	orgID, err := s.svc.ActiveOrganisation(s.ctx, a.ID)
	s.Require().NoError(err)
	s.Equal(s.homeOrg.ID, orgID)
}

func (s *AidantServiceSuite) TestRevokedMembershipFallsBackToHome() {
	a := s.register()
	s.Require().NoError(s.orgs.AddMember(s.ctx, organisation.Membership{
		AidantID:       a.ID,
		OrganisationID: s.otherOrg.ID,
	}))
	s.Require().NoError(s.svc.SwitchOrganisation(s.ctx, a.ID, s.otherOrg.ID))
	s.Require().NoError(s.orgs.RemoveMember(s.ctx, a.ID, s.otherOrg.ID))

	orgID, err := s.svc.ActiveOrganisation(s.ctx, a.ID)
	s.Require().NoError(err)
	s.Equal(s.homeOrg.ID, orgID)

	// The stale session entry is cleaned up.
	_, ok, err := s.sessions.GetActiveOrganisation(s.ctx, a.ID)
	s.Require().NoError(err)
	s.False(ok)
}

func (s *AidantServiceSuite) TestDeactivateClearsSession() {
	a := s.register()
	s.Require().NoError(s.orgs.AddMember(s.ctx, organisation.Membership{
		AidantID:       a.ID,
		OrganisationID: s.otherOrg.ID,
	}))
	s.Require().NoError(s.svc.SwitchOrganisation(s.ctx, a.ID, s.otherOrg.ID))

	s.Require().NoError(s.svc.Deactivate(s.ctx, a.ID))

	_, ok, err := s.sessions.GetActiveOrganisation(s.ctx, a.ID)
	s.Require().NoError(err)
	s.False(ok)

	err = s.svc.SwitchOrganisation(s.ctx, a.ID, s.otherOrg.ID)
	s.Equal(derrors.CodeForbidden, derrors.CodeOf(err))
}

func (s *AidantServiceSuite) TestIsReferent() {
	a := s.register()
	s.Require().NoError(s.orgs.AddMember(s.ctx, organisation.Membership{
		AidantID:       a.ID,
		OrganisationID: s.otherOrg.ID,
		IsReferent:     true,
	}))

	ok, err := s.svc.IsReferent(s.ctx, a.ID, s.otherOrg.ID)
	s.Require().NoError(err)
	s.True(ok)

	ok, err = s.svc.IsReferent(s.ctx, a.ID, s.homeOrg.ID)
	s.Require().NoError(err)
	s.False(ok)
}
