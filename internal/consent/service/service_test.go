package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"aidantsconnect/internal/consent"
	"aidantsconnect/internal/journal"
	"aidantsconnect/internal/platform/metrics"
	"aidantsconnect/internal/sms/mocks"
	derrors "aidantsconnect/pkg/domain-errors"
)

type CorrelatorSuite struct {
	suite.Suite
	ctx     context.Context
	journal *journal.InMemoryStore
	gateway *mocks.MockGateway
	svc     *Service
}

func TestCorrelatorSuite(t *testing.T) {
	suite.Run(t, new(CorrelatorSuite))
}

func (s *CorrelatorSuite) SetupTest() {
	s.ctx = context.Background()
	s.journal = journal.NewInMemoryStore()

	ctrl := gomock.NewController(s.T())
	s.gateway = mocks.NewMockGateway(ctrl)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.svc = New(s.journal, s.gateway, logger, metrics.NewWith(prometheus.NewRegistry()), []string{"OUI", "YES"})
}

func (s *CorrelatorSuite) issueRequest(phone string) string {
	s.gateway.EXPECT().Send(gomock.Any(), phone, gomock.Any()).Return(nil)
	tag, err := s.svc.Issue(s.ctx, IssueParams{
		AidantID:       uuid.New(),
		OrganisationID: uuid.New(),
		UsagerID:       uuid.New(),
		Phone:          phone,
		Demarches:      []string{"argent"},
		Duree:          "SHORT",
	})
	s.Require().NoError(err)
	return tag
}

func (s *CorrelatorSuite) TestIssueJournalsRequestAndSendsSMS() {
	tag := s.issueRequest("+33611223344")
	s.NotEmpty(tag)

	request, err := s.journal.FindConsentRequest(s.ctx, "+33611223344", tag)
	s.Require().NoError(err)
	s.Require().NotNil(request)
	s.Equal(journal.ActionConsentRequestSent, request.Action)
}

func (s *CorrelatorSuite) TestIssueNormalizesNationalFormat() {
	s.gateway.EXPECT().Send(gomock.Any(), "+33611223344", gomock.Any()).Return(nil)
	tag, err := s.svc.Issue(s.ctx, IssueParams{
		Phone: "06 11 22 33 44", Demarches: []string{"argent"},
	})
	s.Require().NoError(err)

	request, err := s.journal.FindConsentRequest(s.ctx, "+33611223344", tag)
	s.Require().NoError(err)
	s.NotNil(request)
}

func (s *CorrelatorSuite) TestIssueSendFailureSurfacesUnavailable() {
	s.gateway.EXPECT().Send(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(derrors.New(derrors.CodeUnavailable, "gateway down"))
	_, err := s.svc.Issue(s.ctx, IssueParams{
		Phone: "+33611223344", Demarches: []string{"argent"},
	})
	s.True(derrors.Is(err, derrors.CodeUnavailable))
}

func (s *CorrelatorSuite) TestAgreementCallback() {
	tag := s.issueRequest("+33611223344")

	s.gateway.EXPECT().Send(gomock.Any(), "+33611223344", gomock.Any()).Return(nil)
	s.gateway.EXPECT().DeleteIncoming(gomock.Any(), "msg-1").Return(nil)

	err := s.svc.HandleCallback(s.ctx, consent.Callback{
		SenderID: "+33611223344", Tag: tag, Message: "OUI", MessageID: "msg-1",
	})
	s.Require().NoError(err)

	state, err := s.svc.Status(s.ctx, "+33611223344", tag)
	s.Require().NoError(err)
	s.Equal(consent.StateAgreed, state)
}

func (s *CorrelatorSuite) TestDenialCallback() {
	tag := s.issueRequest("+33611223344")

	s.gateway.EXPECT().Send(gomock.Any(), "+33611223344", gomock.Any()).Return(nil)
	s.gateway.EXPECT().DeleteIncoming(gomock.Any(), "msg-1").Return(nil)

	err := s.svc.HandleCallback(s.ctx, consent.Callback{
		SenderID: "+33611223344", Tag: tag, Message: "non merci", MessageID: "msg-1",
	})
	s.Require().NoError(err)

	state, err := s.svc.Status(s.ctx, "+33611223344", tag)
	s.Require().NoError(err)
	s.Equal(consent.StateDenied, state)
}

// Replaying the same callback N times journals exactly one resolution and
// fires the receipt/delete side effects exactly once.
func (s *CorrelatorSuite) TestReplayedCallbackIsIdempotent() {
	tag := s.issueRequest("+33611223344")

	s.gateway.EXPECT().Send(gomock.Any(), "+33611223344", gomock.Any()).Return(nil).Times(1)
	s.gateway.EXPECT().DeleteIncoming(gomock.Any(), "msg-1").Return(nil).Times(1)

	cb := consent.Callback{SenderID: "+33611223344", Tag: tag, Message: "OUI", MessageID: "msg-1"}
	for i := 0; i < 5; i++ {
		s.Require().NoError(s.svc.HandleCallback(s.ctx, cb))
	}

	// Request entry + one resolution entry, nothing else.
	s.Equal(2, s.journal.Len())
}

// A replay with a denial-looking body after AGREED must not create a DENIED
// record.
func (s *CorrelatorSuite) TestReplayCannotFlipResolution() {
	tag := s.issueRequest("+33611223344")

	s.gateway.EXPECT().Send(gomock.Any(), "+33611223344", gomock.Any()).Return(nil).Times(1)
	s.gateway.EXPECT().DeleteIncoming(gomock.Any(), "msg-1").Return(nil).Times(1)

	s.Require().NoError(s.svc.HandleCallback(s.ctx, consent.Callback{
		SenderID: "+33611223344", Tag: tag, Message: "OUI", MessageID: "msg-1",
	}))
	s.Require().NoError(s.svc.HandleCallback(s.ctx, consent.Callback{
		SenderID: "+33611223344", Tag: tag, Message: "NON", MessageID: "msg-2",
	}))

	state, err := s.svc.Status(s.ctx, "+33611223344", tag)
	s.Require().NoError(err)
	s.Equal(consent.StateAgreed, state)
}

func (s *CorrelatorSuite) TestUnknownKeyIsBenignNoOp() {
	// No request issued; no gateway calls expected.
	err := s.svc.HandleCallback(s.ctx, consent.Callback{
		SenderID: "+33611223344", Tag: uuid.NewString(), Message: "OUI", MessageID: "msg-9",
	})
	s.Require().NoError(err)
	s.Equal(0, s.journal.Len())
}

func (s *CorrelatorSuite) TestCallbackWithoutTagIsBadRequest() {
	err := s.svc.HandleCallback(s.ctx, consent.Callback{
		SenderID: "+33611223344", Message: "OUI",
	})
	s.True(derrors.Is(err, derrors.CodeBadRequest))
}

// Two near-simultaneous callbacks for one key, one OUI and one NON: exactly
// one resolution lands, and neither caller sees an error.
func (s *CorrelatorSuite) TestConcurrentContradictoryCallbacks() {
	tag := s.issueRequest("+33800840800")

	// The winner triggers one receipt send and one delete; AnyTimes
	// tolerates scheduling where both run before either resolves.
	s.gateway.EXPECT().Send(gomock.Any(), "+33800840800", gomock.Any()).Return(nil).AnyTimes()
	s.gateway.EXPECT().DeleteIncoming(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()

	var wg sync.WaitGroup
	errs := make([]error, 2)
	bodies := []string{"OUI", "NON"}
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = s.svc.HandleCallback(s.ctx, consent.Callback{
				SenderID: "+33800840800", Tag: tag, Message: bodies[i], MessageID: "msg",
			})
		}(i)
	}
	wg.Wait()

	s.NoError(errs[0])
	s.NoError(errs[1])

	// Request + exactly one resolution.
	s.Equal(2, s.journal.Len())
	resolution, err := s.journal.FindConsentResolution(s.ctx, "+33800840800", tag)
	s.Require().NoError(err)
	s.Require().NotNil(resolution)
	s.True(resolution.Action.IsConsentResolution())
}

func (s *CorrelatorSuite) TestReceiptFailureDoesNotUndoResolution() {
	tag := s.issueRequest("+33611223344")

	s.gateway.EXPECT().Send(gomock.Any(), "+33611223344", gomock.Any()).
		Return(errors.New("gateway down"))
	s.gateway.EXPECT().DeleteIncoming(gomock.Any(), "msg-1").
		Return(errors.New("gateway down"))

	err := s.svc.HandleCallback(s.ctx, consent.Callback{
		SenderID: "+33611223344", Tag: tag, Message: "OUI", MessageID: "msg-1",
	})
	s.Require().NoError(err)

	state, err := s.svc.Status(s.ctx, "+33611223344", tag)
	s.Require().NoError(err)
	s.Equal(consent.StateAgreed, state)
}

func (s *CorrelatorSuite) TestStatusPendingAndUnknown() {
	state, err := s.svc.Status(s.ctx, "+33611223344", "no-such-tag")
	s.Require().NoError(err)
	s.Equal(consent.StateUnknown, state)

	tag := s.issueRequest("+33611223344")
	state, err = s.svc.Status(s.ctx, "+33611223344", tag)
	s.Require().NoError(err)
	s.Equal(consent.StatePending, state)
}
