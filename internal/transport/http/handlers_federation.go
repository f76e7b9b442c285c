package httptransport

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"aidantsconnect/internal/transport/http/shared"
	"aidantsconnect/internal/usager"
	derrors "aidantsconnect/pkg/domain-errors"
)

// FederationService finishes a usager login against the identity broker.
type FederationService interface {
	FinishLogin(ctx context.Context, code string, aidantID uuid.UUID, rawUserAgent string) (*usager.Usager, error)
}

type FederationHandler struct {
	service FederationService
	logger  *slog.Logger
}

func NewFederationHandler(service FederationService, logger *slog.Logger) *FederationHandler {
	return &FederationHandler{service: service, logger: logger}
}

// HandleCallback handles GET /federation/callback?code=...&state=<aidant id>.
// A broker failure is fatal to the flow; the aidant restarts the login.
func (h *FederationHandler) HandleCallback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	code := q.Get("code")
	if code == "" {
		shared.WriteError(w, derrors.New(derrors.CodeBadRequest, "missing authorization code"))
		return
	}
	aidantID, err := uuid.Parse(q.Get("state"))
	if err != nil {
		shared.WriteError(w, derrors.New(derrors.CodeBadRequest, "invalid state parameter"))
		return
	}

	u, err := h.service.FinishLogin(r.Context(), code, aidantID, r.UserAgent())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "federation login failed", "aidant_id", aidantID, "error", err)
		shared.WriteError(w, err)
		return
	}

	shared.WriteJSON(w, http.StatusOK, map[string]string{"usager_id": u.ID.String()})
}
