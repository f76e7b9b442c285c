package httptransport

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"aidantsconnect/internal/aidant"
	aidantservice "aidantsconnect/internal/aidant/service"
	"aidantsconnect/internal/organisation"
	"aidantsconnect/internal/transport/http/shared"
	derrors "aidantsconnect/pkg/domain-errors"
)

// AidantService manages the aidant directory and active organisation.
type AidantService interface {
	Register(ctx context.Context, p aidantservice.RegisterParams) (*aidant.Aidant, error)
	Get(ctx context.Context, id uuid.UUID) (*aidant.Aidant, error)
	Deactivate(ctx context.Context, id uuid.UUID) error
	SwitchOrganisation(ctx context.Context, aidantID, organisationID uuid.UUID) error
	ActiveOrganisation(ctx context.Context, aidantID uuid.UUID) (uuid.UUID, error)
}

// CarteService manages TOTP card bindings.
type CarteService interface {
	Associate(ctx context.Context, referentID, aidantID uuid.UUID, serial string) error
	Confirm(ctx context.Context, aidantID uuid.UUID, code string) error
	Dissociate(ctx context.Context, referentID, aidantID uuid.UUID) error
}

// DirectoryHandler serves the aidant/organisation/card surface.
type DirectoryHandler struct {
	aidants       AidantService
	organisations organisation.Store
	cards         CarteService
	logger        *slog.Logger
}

func NewDirectoryHandler(aidants AidantService, organisations organisation.Store, cards CarteService, logger *slog.Logger) *DirectoryHandler {
	return &DirectoryHandler{
		aidants:       aidants,
		organisations: organisations,
		cards:         cards,
		logger:        logger,
	}
}

type registerAidantRequest struct {
	Email            string    `json:"email"`
	FirstName        string    `json:"first_name"`
	LastName         string    `json:"last_name"`
	Profession       string    `json:"profession,omitempty"`
	OrganisationID   uuid.UUID `json:"organisation_id"`
	CanCreateMandats bool      `json:"can_create_mandats"`
}

type aidantResponse struct {
	ID               uuid.UUID `json:"id"`
	Email            string    `json:"email"`
	FirstName        string    `json:"first_name"`
	LastName         string    `json:"last_name"`
	OrganisationID   uuid.UUID `json:"organisation_id"`
	CanCreateMandats bool      `json:"can_create_mandats"`
	Active           bool      `json:"active"`
}

func fromAidant(a *aidant.Aidant) aidantResponse {
	return aidantResponse{
		ID:               a.ID,
		Email:            a.Email,
		FirstName:        a.FirstName,
		LastName:         a.LastName,
		OrganisationID:   a.OrganisationID,
		CanCreateMandats: a.CanCreateMandats,
		Active:           a.Active,
	}
}

// HandleRegisterAidant handles POST /aidants.
func (h *DirectoryHandler) HandleRegisterAidant(w http.ResponseWriter, r *http.Request) {
	var req registerAidantRequest
	if err := shared.Decode(r, &req); err != nil {
		shared.WriteError(w, err)
		return
	}

	a, err := h.aidants.Register(r.Context(), aidantservice.RegisterParams{
		Email:            req.Email,
		FirstName:        req.FirstName,
		LastName:         req.LastName,
		Profession:       req.Profession,
		OrganisationID:   req.OrganisationID,
		CanCreateMandats: req.CanCreateMandats,
	})
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, fromAidant(a))
}

// HandleGetAidant handles GET /aidants/{id}.
func (h *DirectoryHandler) HandleGetAidant(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	a, err := h.aidants.Get(r.Context(), id)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, fromAidant(a))
}

// HandleDeactivateAidant handles POST /aidants/{id}/deactivate.
func (h *DirectoryHandler) HandleDeactivateAidant(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	if err := h.aidants.Deactivate(r.Context(), id); err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]string{"status": "deactivated"})
}

type switchOrganisationRequest struct {
	OrganisationID uuid.UUID `json:"organisation_id"`
}

// HandleSwitchOrganisation handles POST /aidants/{id}/organisation.
func (h *DirectoryHandler) HandleSwitchOrganisation(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	var req switchOrganisationRequest
	if err := shared.Decode(r, &req); err != nil {
		shared.WriteError(w, err)
		return
	}

	if err := h.aidants.SwitchOrganisation(r.Context(), id, req.OrganisationID); err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]string{"status": "switched"})
}

// HandleActiveOrganisation handles GET /aidants/{id}/organisation.
func (h *DirectoryHandler) HandleActiveOrganisation(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	orgID, err := h.aidants.ActiveOrganisation(r.Context(), id)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]string{"organisation_id": orgID.String()})
}

type associateCardRequest struct {
	ReferentID uuid.UUID `json:"referent_id"`
	Serial     string    `json:"serial"`
}

// HandleAssociateCard handles POST /aidants/{id}/card.
func (h *DirectoryHandler) HandleAssociateCard(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	var req associateCardRequest
	if err := shared.Decode(r, &req); err != nil {
		shared.WriteError(w, err)
		return
	}

	if err := h.cards.Associate(r.Context(), req.ReferentID, id, req.Serial); err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, map[string]string{"status": "associated"})
}

type confirmCardRequest struct {
	Code string `json:"code"`
}

// HandleConfirmCard handles POST /aidants/{id}/card/confirm.
func (h *DirectoryHandler) HandleConfirmCard(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	var req confirmCardRequest
	if err := shared.Decode(r, &req); err != nil {
		shared.WriteError(w, err)
		return
	}

	if err := h.cards.Confirm(r.Context(), id, req.Code); err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]string{"status": "confirmed"})
}

type dissociateCardRequest struct {
	ReferentID uuid.UUID `json:"referent_id"`
}

// HandleDissociateCard handles DELETE /aidants/{id}/card.
func (h *DirectoryHandler) HandleDissociateCard(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	var req dissociateCardRequest
	if err := shared.Decode(r, &req); err != nil {
		shared.WriteError(w, err)
		return
	}

	if err := h.cards.Dissociate(r.Context(), req.ReferentID, id); err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]string{"status": "dissociated"})
}

type createOrganisationRequest struct {
	Name    string `json:"name"`
	SIRET   string `json:"siret,omitempty"`
	Address string `json:"address,omitempty"`
}

// HandleCreateOrganisation handles POST /organisations.
func (h *DirectoryHandler) HandleCreateOrganisation(w http.ResponseWriter, r *http.Request) {
	var req createOrganisationRequest
	if err := shared.Decode(r, &req); err != nil {
		shared.WriteError(w, err)
		return
	}
	if req.Name == "" {
		shared.WriteError(w, derrors.New(derrors.CodeBadRequest, "organisation name is required"))
		return
	}

	org := organisation.Organisation{
		ID:      uuid.New(),
		Name:    req.Name,
		SIRET:   req.SIRET,
		Address: req.Address,
		Active:  true,
	}
	if err := h.organisations.Create(r.Context(), org); err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, map[string]string{"id": org.ID.String()})
}
