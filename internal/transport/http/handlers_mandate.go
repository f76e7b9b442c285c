package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"aidantsconnect/internal/mandate"
	mandateservice "aidantsconnect/internal/mandate/service"
	"aidantsconnect/internal/transport/http/shared"
	derrors "aidantsconnect/pkg/domain-errors"
)

// MandateService is the slice of the mandate service the handler needs.
type MandateService interface {
	Create(ctx context.Context, p mandateservice.CreateParams) (*mandate.Mandat, error)
	Renew(ctx context.Context, p mandateservice.CreateParams) (*mandate.Mandat, error)
	CancelAutorisation(ctx context.Context, aidantID, autorisationID uuid.UUID) error
	IsActive(ctx context.Context, mandatID uuid.UUID) (bool, error)
	Transfer(ctx context.Context, aidantID uuid.UUID, ids []uuid.UUID, target uuid.UUID) (*mandateservice.TransferResult, error)
}

type MandateHandler struct {
	service MandateService
	logger  *slog.Logger
}

func NewMandateHandler(service MandateService, logger *slog.Logger) *MandateHandler {
	return &MandateHandler{service: service, logger: logger}
}

type createMandateRequest struct {
	AidantID       uuid.UUID `json:"aidant_id"`
	OrganisationID uuid.UUID `json:"organisation_id"`
	UsagerID       uuid.UUID `json:"usager_id"`
	Demarches      []string  `json:"demarches"`
	Duree          string    `json:"duree"`
	IsRemote       bool      `json:"is_remote"`
	ConsentMethod  string    `json:"consent_method,omitempty"`
	Phone          string    `json:"phone,omitempty"`
}

func (req createMandateRequest) toParams() mandateservice.CreateParams {
	return mandateservice.CreateParams{
		AidantID:       req.AidantID,
		OrganisationID: req.OrganisationID,
		UsagerID:       req.UsagerID,
		Demarches:      req.Demarches,
		Duree:          mandate.Duree(req.Duree),
		IsRemote:       req.IsRemote,
		ConsentMethod:  mandate.ConsentMethod(req.ConsentMethod),
		Phone:          req.Phone,
	}
}

type mandateResponse struct {
	ID             uuid.UUID `json:"id"`
	OrganisationID uuid.UUID `json:"organisation_id"`
	UsagerID       uuid.UUID `json:"usager_id"`
	Duree          string    `json:"duree"`
	CreationDate   time.Time `json:"creation_date"`
	ExpirationDate time.Time `json:"expiration_date"`
	IsRemote       bool      `json:"is_remote"`
}

func fromMandat(m *mandate.Mandat) mandateResponse {
	return mandateResponse{
		ID:             m.ID,
		OrganisationID: m.OrganisationID,
		UsagerID:       m.UsagerID,
		Duree:          string(m.Duree),
		CreationDate:   m.CreationDate,
		ExpirationDate: m.ExpirationDate,
		IsRemote:       m.IsRemote,
	}
}

// HandleCreate handles POST /mandates.
func (h *MandateHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req createMandateRequest
	if err := shared.Decode(r, &req); err != nil {
		shared.WriteError(w, err)
		return
	}

	m, err := h.service.Create(r.Context(), req.toParams())
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, fromMandat(m))
}

// HandleRenew handles POST /mandates/renew. Renewal always creates a new
// mandate; the old one is left untouched.
func (h *MandateHandler) HandleRenew(w http.ResponseWriter, r *http.Request) {
	var req createMandateRequest
	if err := shared.Decode(r, &req); err != nil {
		shared.WriteError(w, err)
		return
	}

	m, err := h.service.Renew(r.Context(), req.toParams())
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, fromMandat(m))
}

type cancelAutorisationRequest struct {
	AidantID       uuid.UUID `json:"aidant_id"`
	AutorisationID uuid.UUID `json:"autorisation_id"`
}

// HandleCancelAutorisation handles POST /autorisations/cancel.
func (h *MandateHandler) HandleCancelAutorisation(w http.ResponseWriter, r *http.Request) {
	var req cancelAutorisationRequest
	if err := shared.Decode(r, &req); err != nil {
		shared.WriteError(w, err)
		return
	}

	if err := h.service.CancelAutorisation(r.Context(), req.AidantID, req.AutorisationID); err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]string{"status": "revoked"})
}

// HandleStatus handles GET /mandates/{id}/status.
func (h *MandateHandler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	active, err := h.service.IsActive(r.Context(), id)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]bool{"active": active})
}

type transferRequest struct {
	AidantID       uuid.UUID   `json:"aidant_id"`
	MandatIDs      []uuid.UUID `json:"mandat_ids"`
	OrganisationID uuid.UUID   `json:"organisation_id"`
}

type transferResponse struct {
	Transferred []uuid.UUID `json:"transferred"`
	Failed      []uuid.UUID `json:"failed"`
}

// HandleTransfer handles POST /admin/mandates/transfer. The response
// always lists which ids moved; callers must check it rather than rely on
// the status code alone.
func (h *MandateHandler) HandleTransfer(w http.ResponseWriter, r *http.Request) {
	var req transferRequest
	if err := shared.Decode(r, &req); err != nil {
		shared.WriteError(w, err)
		return
	}
	if len(req.MandatIDs) == 0 {
		shared.WriteError(w, derrors.New(derrors.CodeBadRequest, "at least one mandat id is required"))
		return
	}

	result, err := h.service.Transfer(r.Context(), req.AidantID, req.MandatIDs, req.OrganisationID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, transferResponse{
		Transferred: result.Transferred,
		Failed:      result.Failed,
	})
}
