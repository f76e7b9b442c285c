package httptransport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/suite"

	"aidantsconnect/internal/aidant"
	aidantservice "aidantsconnect/internal/aidant/service"
	consentservice "aidantsconnect/internal/consent/service"
	"aidantsconnect/internal/habilitation"
	habilitationservice "aidantsconnect/internal/habilitation/service"
	"aidantsconnect/internal/journal"
	"aidantsconnect/internal/mandate"
	mandateservice "aidantsconnect/internal/mandate/service"
	"aidantsconnect/internal/organisation"
	"aidantsconnect/internal/platform/metrics"
	"aidantsconnect/internal/sms"
	"aidantsconnect/internal/usager"
)

const datapassSecret = "sekret"

// TransportSuite spins the full router over in-memory stores so endpoint
// contracts are checked end to end.
type TransportSuite struct {
	suite.Suite

	server *httptest.Server

	journal *journal.InMemoryStore
	mandats *mandate.InMemoryStore
	orgs    *organisation.InMemoryStore
	habs    *habilitation.InMemoryStore

	orgID    uuid.UUID
	aidantID uuid.UUID
	usagerID uuid.UUID
}

func TestTransportSuite(t *testing.T) {
	suite.Run(t, new(TransportSuite))
}

func (s *TransportSuite) SetupTest() {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	m := metrics.NewWith(prometheus.NewRegistry())
	ctx := context.Background()

	s.journal = journal.NewInMemoryStore()
	s.mandats = mandate.NewInMemoryStore()
	s.orgs = organisation.NewInMemoryStore()
	s.habs = habilitation.NewInMemoryStore()
	aidants := aidant.NewInMemoryStore()
	sessions := aidant.NewInMemorySessionStore(time.Hour)
	usagers := usager.NewInMemoryStore()

	s.orgID = uuid.New()
	s.aidantID = uuid.New()
	s.usagerID = uuid.New()
	s.Require().NoError(s.orgs.Create(ctx, organisation.Organisation{ID: s.orgID, Name: "CCAS", Active: true}))
	s.Require().NoError(aidants.Create(ctx, aidant.Aidant{
		ID: s.aidantID, Email: "a@example.org", OrganisationID: s.orgID, Active: true, CanCreateMandats: true,
	}))
	s.Require().NoError(usagers.Create(ctx, usager.Usager{ID: s.usagerID, Sub: usager.HashSub("sub")}))

	mandateSvc := mandateservice.New(s.mandats, s.orgs, s.journal, logger, m)
	consentSvc := consentservice.New(s.journal, sms.Disabled{}, logger, m, []string{"OUI"})
	aidantSvc := aidantservice.New(aidants, sessions, s.orgs, logger)
	habilitationSvc := habilitationservice.New(s.habs, s.orgs, s.journal, logger)

	router := NewRouter(RouterDeps{
		Logger:        logger,
		Metrics:       m,
		Mandates:      NewMandateHandler(mandateSvc, logger),
		Consents:      NewConsentHandler(consentSvc, logger),
		Callbacks:     NewCallbacksHandler(consentSvc, habilitationSvc, datapassSecret, logger),
		Federation:    NewFederationHandler(failingFederation{}, logger),
		Directory:     NewDirectoryHandler(aidantSvc, s.orgs, noopCards{}, logger),
		Habilitations: NewHabilitationHandler(habilitationSvc, logger),
	})
	s.server = httptest.NewServer(router)
	s.T().Cleanup(s.server.Close)
}

type failingFederation struct{}

func (failingFederation) FinishLogin(context.Context, string, uuid.UUID, string) (*usager.Usager, error) {
	return nil, fmt.Errorf("unreachable in these tests")
}

type noopCards struct{}

func (noopCards) Associate(context.Context, uuid.UUID, uuid.UUID, string) error { return nil }
func (noopCards) Confirm(context.Context, uuid.UUID, string) error              { return nil }
func (noopCards) Dissociate(context.Context, uuid.UUID, uuid.UUID) error        { return nil }

func (s *TransportSuite) postJSON(path string, body any) *http.Response {
	buf, err := json.Marshal(body)
	s.Require().NoError(err)
	resp, err := http.Post(s.server.URL+path, "application/json", bytes.NewReader(buf))
	s.Require().NoError(err)
	s.T().Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func (s *TransportSuite) decode(resp *http.Response, dst any) {
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(dst))
}

func (s *TransportSuite) issueConsent() (phone, tag string) {
	resp := s.postJSON("/consents", map[string]any{
		"aidant_id":       s.aidantID,
		"organisation_id": s.orgID,
		"usager_id":       s.usagerID,
		"phone":           "06 12 34 56 78",
		"demarches":       []string{"argent"},
		"duree":           "SHORT",
	})
	s.Require().Equal(http.StatusAccepted, resp.StatusCode)
	var body map[string]string
	s.decode(resp, &body)
	return "+33612345678", body["tag"]
}

func (s *TransportSuite) postCallback(values url.Values) *http.Response {
	resp, err := http.Post(s.server.URL+"/callbacks/sms",
		"application/x-www-form-urlencoded", strings.NewReader(values.Encode()))
	s.Require().NoError(err)
	s.T().Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func (s *TransportSuite) TestSMSCallbackAgreementFlow() {
	phone, tag := s.issueConsent()

	resp := s.postCallback(url.Values{
		"senderid": {phone}, "tag": {tag}, "message": {"Oui"}, "id": {"MSG-1"},
	})
	s.Equal(http.StatusOK, resp.StatusCode)

	status, err := http.Get(s.server.URL + "/consents/status?phone=" + url.QueryEscape(phone) + "&tag=" + tag)
	s.Require().NoError(err)
	defer status.Body.Close()
	var body map[string]string
	s.Require().NoError(json.NewDecoder(status.Body).Decode(&body))
	s.Equal("AGREED", body["state"])
}

func (s *TransportSuite) TestSMSCallbackReplayIsStill200() {
	phone, tag := s.issueConsent()

	for i := 0; i < 3; i++ {
		resp := s.postCallback(url.Values{
			"senderid": {phone}, "tag": {tag}, "message": {"OUI"}, "id": {"MSG-1"},
		})
		s.Equal(http.StatusOK, resp.StatusCode)
	}
	// One request entry plus exactly one resolution.
	s.Equal(2, s.journal.Len())
}

func (s *TransportSuite) TestSMSCallbackUnknownKeyIsBenign() {
	resp := s.postCallback(url.Values{
		"senderid": {"+33699999999"}, "tag": {uuid.NewString()}, "message": {"OUI"}, "id": {"MSG-9"},
	})
	s.Equal(http.StatusOK, resp.StatusCode)
	s.Zero(s.journal.Len())
}

func (s *TransportSuite) TestSMSCallbackMissingTagIsBadRequest() {
	resp := s.postCallback(url.Values{
		"senderid": {"+33612345678"}, "message": {"OUI"}, "id": {"MSG-2"},
	})
	s.Equal(http.StatusBadRequest, resp.StatusCode)
}

func (s *TransportSuite) TestDatapassSecretMismatchIs403() {
	req, err := http.NewRequest(http.MethodGet, s.server.URL+"/callbacks/datapass?organisation_name=CCAS", nil)
	s.Require().NoError(err)
	req.Header.Set("Authorization", "wrong")

	resp, err := http.DefaultClient.Do(req)
	s.Require().NoError(err)
	defer resp.Body.Close()
	s.Equal(http.StatusForbidden, resp.StatusCode)
}

func (s *TransportSuite) TestDatapassAcceptedAndJournaled() {
	req, err := http.NewRequest(http.MethodGet,
		s.server.URL+"/callbacks/datapass?organisation_name=CCAS+de+Lille&datapass_id=dp-7", nil)
	s.Require().NoError(err)
	req.Header.Set("Authorization", datapassSecret)

	resp, err := http.DefaultClient.Do(req)
	s.Require().NoError(err)
	defer resp.Body.Close()
	s.Equal(http.StatusAccepted, resp.StatusCode)

	pending, err := s.habs.ListByStatus(context.Background(), habilitation.StatusNew)
	s.Require().NoError(err)
	s.Len(pending, 1)
	s.Equal(1, s.journal.Len())
}

func (s *TransportSuite) createMandate() mandateResponse {
	resp := s.postJSON("/mandates", map[string]any{
		"aidant_id":       s.aidantID,
		"organisation_id": s.orgID,
		"usager_id":       s.usagerID,
		"demarches":       []string{"argent", "famille"},
		"duree":           "SHORT",
	})
	s.Require().Equal(http.StatusCreated, resp.StatusCode)
	var m mandateResponse
	s.decode(resp, &m)
	return m
}

func (s *TransportSuite) TestCreateMandateAndStatus() {
	m := s.createMandate()

	resp, err := http.Get(s.server.URL + "/mandates/" + m.ID.String() + "/status")
	s.Require().NoError(err)
	defer resp.Body.Close()
	s.Equal(http.StatusOK, resp.StatusCode)

	var body map[string]bool
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&body))
	s.True(body["active"])
}

func (s *TransportSuite) TestTransferToUnknownOrganisationMutatesNothing() {
	m := s.createMandate()
	bogus := uuid.New()

	resp := s.postJSON("/admin/mandates/transfer", map[string]any{
		"aidant_id":       s.aidantID,
		"mandat_ids":      []uuid.UUID{m.ID},
		"organisation_id": bogus,
	})
	s.Equal(http.StatusBadRequest, resp.StatusCode)

	var body map[string]string
	s.decode(resp, &body)
	s.Contains(body["error_description"], bogus.String())

	stored, err := s.mandats.GetMandat(context.Background(), m.ID)
	s.Require().NoError(err)
	s.Equal(s.orgID, stored.OrganisationID)
}

func (s *TransportSuite) TestTransferReportsTransferredAndFailed() {
	m := s.createMandate()
	target := uuid.New()
	s.Require().NoError(s.orgs.Create(context.Background(), organisation.Organisation{
		ID: target, Name: "Cible", Active: true,
	}))
	missing := uuid.New()

	resp := s.postJSON("/admin/mandates/transfer", map[string]any{
		"aidant_id":       s.aidantID,
		"mandat_ids":      []uuid.UUID{m.ID, missing},
		"organisation_id": target,
	})
	s.Equal(http.StatusOK, resp.StatusCode)

	var body transferResponse
	s.decode(resp, &body)
	s.Equal([]uuid.UUID{m.ID}, body.Transferred)
	s.Equal([]uuid.UUID{missing}, body.Failed)
}

func (s *TransportSuite) TestCancelAutorisationTwiceIsConflict() {
	m := s.createMandate()
	autorisations, err := s.mandats.ListAutorisations(context.Background(), m.ID)
	s.Require().NoError(err)
	s.Require().NotEmpty(autorisations)

	payload := map[string]any{
		"aidant_id":       s.aidantID,
		"autorisation_id": autorisations[0].ID,
	}
	first := s.postJSON("/autorisations/cancel", payload)
	s.Equal(http.StatusOK, first.StatusCode)

	second := s.postJSON("/autorisations/cancel", payload)
	s.Equal(http.StatusConflict, second.StatusCode)

	var body map[string]string
	s.decode(second, &body)
	s.Equal("already_revoked", body["error"])
}

func (s *TransportSuite) TestFederationCallbackBrokerFailureIs500Class() {
	resp, err := http.Get(s.server.URL + "/federation/callback?code=abc&state=" + s.aidantID.String())
	s.Require().NoError(err)
	defer resp.Body.Close()
	s.Equal(http.StatusInternalServerError, resp.StatusCode)
}

func (s *TransportSuite) TestHealthz() {
	resp, err := http.Get(s.server.URL + "/healthz")
	s.Require().NoError(err)
	defer resp.Body.Close()
	s.Equal(http.StatusOK, resp.StatusCode)
}
