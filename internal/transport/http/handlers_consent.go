package httptransport

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"aidantsconnect/internal/consent"
	consentservice "aidantsconnect/internal/consent/service"
	"aidantsconnect/internal/transport/http/shared"
	derrors "aidantsconnect/pkg/domain-errors"
)

// ConsentService issues remote consent requests and reports their state.
type ConsentService interface {
	Issue(ctx context.Context, p consentservice.IssueParams) (string, error)
	Status(ctx context.Context, phone, tag string) (consent.State, error)
}

type ConsentHandler struct {
	service ConsentService
	logger  *slog.Logger
}

func NewConsentHandler(service ConsentService, logger *slog.Logger) *ConsentHandler {
	return &ConsentHandler{service: service, logger: logger}
}

type issueConsentRequest struct {
	AidantID       uuid.UUID `json:"aidant_id"`
	OrganisationID uuid.UUID `json:"organisation_id"`
	UsagerID       uuid.UUID `json:"usager_id"`
	Phone          string    `json:"phone"`
	Demarches      []string  `json:"demarches"`
	Duree          string    `json:"duree"`
}

// HandleIssue handles POST /consents. The returned tag is the key the
// browser polls with while the usager answers by SMS.
func (h *ConsentHandler) HandleIssue(w http.ResponseWriter, r *http.Request) {
	var req issueConsentRequest
	if err := shared.Decode(r, &req); err != nil {
		shared.WriteError(w, err)
		return
	}

	tag, err := h.service.Issue(r.Context(), consentservice.IssueParams{
		AidantID:       req.AidantID,
		OrganisationID: req.OrganisationID,
		UsagerID:       req.UsagerID,
		Phone:          req.Phone,
		Demarches:      req.Demarches,
		Duree:          req.Duree,
	})
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusAccepted, map[string]string{"tag": tag})
}

// HandleStatus handles GET /consents/status?phone=...&tag=... — the poll
// endpoint the browser hits while waiting for the SMS answer.
func (h *ConsentHandler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	phone := r.URL.Query().Get("phone")
	tag := r.URL.Query().Get("tag")
	if phone == "" || tag == "" {
		shared.WriteError(w, derrors.New(derrors.CodeBadRequest, "phone and tag are required"))
		return
	}

	state, err := h.service.Status(r.Context(), phone, tag)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]string{"state": string(state)})
}
