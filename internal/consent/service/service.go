// Package service is the remote consent correlator. It matches inbound SMS
// callbacks to previously issued consent requests by (phone, tag), applies
// them idempotently and journals the resolution.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"aidantsconnect/internal/consent"
	"aidantsconnect/internal/journal"
	"aidantsconnect/internal/platform/metrics"
	"aidantsconnect/internal/sms"
	derrors "aidantsconnect/pkg/domain-errors"
)

// Service correlates remote consent requests and callbacks.
type Service struct {
	journal       journal.Store
	gateway       sms.Gateway
	logger        *slog.Logger
	metrics       *metrics.Metrics
	agreeKeywords []string
	now           func() time.Time
}

func New(jrnl journal.Store, gateway sms.Gateway, logger *slog.Logger, m *metrics.Metrics, agreeKeywords []string) *Service {
	return &Service{
		journal:       jrnl,
		gateway:       gateway,
		logger:        logger,
		metrics:       m,
		agreeKeywords: agreeKeywords,
		now:           time.Now,
	}
}

// IssueParams describes a remote consent request to send.
type IssueParams struct {
	AidantID       uuid.UUID
	OrganisationID uuid.UUID
	UsagerID       uuid.UUID
	Phone          string
	Demarches      []string
	Duree          string
}

// Issue journals a consent request and sends the consent SMS. The returned
// tag is the correlation key the gateway echoes back in callbacks.
func (s *Service) Issue(ctx context.Context, p IssueParams) (string, error) {
	phone, err := consent.NormalizePhone(p.Phone)
	if err != nil {
		return "", err
	}
	if len(p.Demarches) == 0 {
		return "", derrors.New(derrors.CodeBadRequest, "at least one demarche is required")
	}

	tag := uuid.NewString()
	if err := s.journal.Append(ctx, journal.Entry{
		Action:            journal.ActionConsentRequestSent,
		AidantID:          journal.Ref(p.AidantID),
		OrganisationID:    journal.Ref(p.OrganisationID),
		UsagerID:          journal.Ref(p.UsagerID),
		Phone:             phone,
		ConsentRequestTag: tag,
		Duree:             p.Duree,
	}); err != nil {
		return "", fmt.Errorf("journal consent request: %w", err)
	}

	message := consentMessage(p.Demarches, s.agreeKeywords)
	if err := s.gateway.Send(ctx, phone, message); err != nil {
		// The journal row stays: the request exists even if delivery failed,
		// and the aidant can re-issue with a fresh tag.
		s.metrics.SMSSendFailures.Inc()
		return "", derrors.Wrap(err, derrors.CodeUnavailable, "consent SMS delivery failed")
	}
	s.metrics.ConsentRequestsSent.Inc()
	return tag, nil
}

// HandleCallback applies one inbound SMS callback. It never returns an
// error for expected situations (unknown key, replay, race loser) — the
// gateway must always get a 2xx for a structurally valid callback.
func (s *Service) HandleCallback(ctx context.Context, cb consent.Callback) error {
	phone, err := consent.NormalizePhone(cb.SenderID)
	if err != nil {
		return err
	}
	if cb.Tag == "" {
		return derrors.New(derrors.CodeBadRequest, "missing consent request tag")
	}

	request, err := s.journal.FindConsentRequest(ctx, phone, cb.Tag)
	if err != nil {
		return fmt.Errorf("lookup consent request: %w", err)
	}
	if request == nil {
		// Unsolicited or stale callback; benign.
		s.metrics.ConsentCallbacks.WithLabelValues(metrics.OutcomeNoMatch).Inc()
		s.logger.InfoContext(ctx, "consent callback without matching request",
			"tag", cb.Tag)
		return nil
	}

	resolution, err := s.journal.FindConsentResolution(ctx, phone, cb.Tag)
	if err != nil {
		return fmt.Errorf("lookup consent resolution: %w", err)
	}
	if resolution != nil {
		// Duplicate delivery: no receipt SMS, no inbox delete.
		s.metrics.ConsentCallbacks.WithLabelValues(metrics.OutcomeReplay).Inc()
		return nil
	}

	agreed := s.classify(cb.Message)
	action := journal.ActionConsentDenialReceived
	outcome := metrics.OutcomeDenial
	if agreed {
		action = journal.ActionConsentAgreementReceived
		outcome = metrics.OutcomeAgreement
	}

	// Commit point. A conflict means a concurrent duplicate won the race;
	// degrade to the idempotent no-op path.
	if err := s.journal.Append(ctx, journal.Entry{
		Action:            action,
		AidantID:          request.AidantID,
		OrganisationID:    request.OrganisationID,
		UsagerID:          request.UsagerID,
		Phone:             phone,
		ConsentRequestTag: cb.Tag,
		MessageID:         cb.MessageID,
	}); err != nil {
		if derrors.Is(err, derrors.CodeConflict) {
			s.metrics.ConsentCallbacks.WithLabelValues(metrics.OutcomeReplay).Inc()
			return nil
		}
		return fmt.Errorf("journal consent resolution: %w", err)
	}
	s.metrics.ConsentCallbacks.WithLabelValues(outcome).Inc()

	// Post-commit side effects are best-effort: the resolution is final
	// whatever happens to the receipt SMS or the inbox delete.
	receipt := "Votre consentement a bien ete enregistre."
	if !agreed {
		receipt = "Votre refus a bien ete enregistre."
	}
	if err := s.gateway.Send(ctx, phone, receipt); err != nil {
		s.metrics.SMSSendFailures.Inc()
		s.logger.WarnContext(ctx, "receipt SMS failed after consent resolution",
			"tag", cb.Tag, "error", err)
	}
	if cb.MessageID != "" {
		if err := s.gateway.DeleteIncoming(ctx, cb.MessageID); err != nil {
			s.logger.WarnContext(ctx, "gateway inbox cleanup failed",
				"message_id", cb.MessageID, "error", err)
		}
	}
	return nil
}

// Status resolves the state of a (phone, tag) key. Browsers poll this while
// the server stays stateless between polls.
func (s *Service) Status(ctx context.Context, rawPhone, tag string) (consent.State, error) {
	phone, err := consent.NormalizePhone(rawPhone)
	if err != nil {
		return consent.StateUnknown, err
	}
	resolution, err := s.journal.FindConsentResolution(ctx, phone, tag)
	if err != nil {
		return consent.StateUnknown, err
	}
	if resolution != nil {
		if resolution.Action == journal.ActionConsentAgreementReceived {
			return consent.StateAgreed, nil
		}
		return consent.StateDenied, nil
	}
	request, err := s.journal.FindConsentRequest(ctx, phone, tag)
	if err != nil {
		return consent.StateUnknown, err
	}
	if request == nil {
		return consent.StateUnknown, nil
	}
	return consent.StatePending, nil
}

func (s *Service) classify(message string) bool {
	return consent.Classify(message, s.agreeKeywords)
}

func consentMessage(demarches []string, agreeKeywords []string) string {
	kw := "OUI"
	if len(agreeKeywords) > 0 {
		kw = agreeKeywords[0]
	}
	msg := "Aidants Connect: un mandat va etre etabli pour les demarches suivantes: "
	for i, d := range demarches {
		if i > 0 {
			msg += ", "
		}
		msg += d
	}
	return msg + fmt.Sprintf(". Repondez %s pour donner votre accord.", kw)
}
