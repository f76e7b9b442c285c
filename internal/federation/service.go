package federation

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/mssola/useragent"

	"aidantsconnect/internal/journal"
	"aidantsconnect/internal/platform/metrics"
	"aidantsconnect/internal/usager"
)

// Service completes a federation login: verified identity in, usager
// record out. Usagers are created on first login; identity fields are
// never updated afterwards.
type Service struct {
	broker  Broker
	usagers usager.Store
	journal journal.Store
	logger  *slog.Logger
	metrics *metrics.Metrics
}

func NewService(broker Broker, usagers usager.Store, jrnl journal.Store, logger *slog.Logger, m *metrics.Metrics) *Service {
	return &Service{broker: broker, usagers: usagers, journal: jrnl, logger: logger, metrics: m}
}

// FinishLogin exchanges the authorization code and resolves the usager.
// rawUserAgent annotates the login journal entry with browser and OS.
func (s *Service) FinishLogin(ctx context.Context, code string, aidantID uuid.UUID, rawUserAgent string) (*usager.Usager, error) {
	identity, err := s.broker.Exchange(ctx, code)
	if err != nil {
		return nil, err
	}

	sub := usager.HashSub(identity.Sub)
	u, err := s.usagers.GetBySub(ctx, sub)
	if err != nil {
		return nil, fmt.Errorf("lookup usager: %w", err)
	}
	if u == nil {
		created := usager.Usager{
			ID:           uuid.New(),
			Sub:          sub,
			GivenName:    identity.GivenName,
			FamilyName:   identity.FamilyName,
			BirthPlace:   identity.BirthPlace,
			BirthCountry: identity.BirthCountry,
		}
		if identity.BirthDate != "" {
			if birth, err := ParseBirthDate(identity.BirthDate); err == nil {
				created.BirthDate = birth
			}
		}
		if err := s.usagers.Create(ctx, created); err != nil {
			return nil, fmt.Errorf("create usager: %w", err)
		}
		u = &created
	}

	s.metrics.FederationLogins.Inc()
	if err := s.journal.Append(ctx, journal.Entry{
		Action:    journal.ActionFederationLogin,
		AidantID:  journal.Ref(aidantID),
		UsagerID:  journal.Ref(u.ID),
		UserAgent: deviceSummary(rawUserAgent),
	}); err != nil {
		s.metrics.JournalAppendFailures.Inc()
		s.logger.ErrorContext(ctx, "journal append failed after federation login",
			"usager_id", u.ID, "error", err)
	}
	return u, nil
}

// deviceSummary condenses the raw User-Agent into "browser/os" for the
// journal; raw UA strings are too noisy to retain.
func deviceSummary(raw string) string {
	if raw == "" {
		return ""
	}
	ua := useragent.New(raw)
	browser, _ := ua.Browser()
	if browser == "" {
		return ua.OS()
	}
	if ua.OS() == "" {
		return browser
	}
	return browser + "/" + ua.OS()
}
