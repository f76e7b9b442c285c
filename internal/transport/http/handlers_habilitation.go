package httptransport

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"aidantsconnect/internal/organisation"
	"aidantsconnect/internal/transport/http/shared"
)

// HabilitationReview drives a request through the review state machine.
type HabilitationReview interface {
	StartProcessing(ctx context.Context, id uuid.UUID) error
	Validate(ctx context.Context, id uuid.UUID) (*organisation.Organisation, error)
	Refuse(ctx context.Context, id uuid.UUID) error
}

type HabilitationHandler struct {
	service HabilitationReview
	logger  *slog.Logger
}

func NewHabilitationHandler(service HabilitationReview, logger *slog.Logger) *HabilitationHandler {
	return &HabilitationHandler{service: service, logger: logger}
}

// HandleStartProcessing handles POST /admin/habilitations/{id}/process.
func (h *HabilitationHandler) HandleStartProcessing(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	if err := h.service.StartProcessing(r.Context(), id); err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]string{"status": "processing"})
}

// HandleValidate handles POST /admin/habilitations/{id}/validate. Also
// creates the organisation the request described.
func (h *HabilitationHandler) HandleValidate(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	org, err := h.service.Validate(r.Context(), id)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]string{
		"status":          "validated",
		"organisation_id": org.ID.String(),
	})
}

// HandleRefuse handles POST /admin/habilitations/{id}/refuse.
func (h *HabilitationHandler) HandleRefuse(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	if err := h.service.Refuse(r.Context(), id); err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]string{"status": "refused"})
}
