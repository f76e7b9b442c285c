package httptransport

import (
	"context"
	"crypto/subtle"
	"log/slog"
	"net/http"

	"aidantsconnect/internal/consent"
	"aidantsconnect/internal/habilitation"
	habilitationservice "aidantsconnect/internal/habilitation/service"
	"aidantsconnect/internal/transport/http/shared"
	derrors "aidantsconnect/pkg/domain-errors"
)

// ConsentCorrelator is the slice of the consent service the callback
// handler needs.
type ConsentCorrelator interface {
	HandleCallback(ctx context.Context, cb consent.Callback) error
}

// HabilitationIntake receives datapass payloads.
type HabilitationIntake interface {
	Intake(ctx context.Context, p habilitationservice.IntakeParams) (*habilitation.Request, error)
}

// CallbacksHandler serves the unauthenticated gateway-facing endpoints.
type CallbacksHandler struct {
	consent        ConsentCorrelator
	habilitations  HabilitationIntake
	datapassSecret string
	logger         *slog.Logger
}

func NewCallbacksHandler(correlator ConsentCorrelator, intake HabilitationIntake, datapassSecret string, logger *slog.Logger) *CallbacksHandler {
	return &CallbacksHandler{
		consent:        correlator,
		habilitations:  intake,
		datapassSecret: datapassSecret,
		logger:         logger,
	}
}

// HandleSMSCallback ingests one inbound SMS from the gateway. Every
// structurally valid payload gets a 200, including replays and callbacks
// for unknown correlation keys; the gateway retries anything else.
func (h *CallbacksHandler) HandleSMSCallback(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		shared.WriteError(w, derrors.Wrap(err, derrors.CodeBadRequest, "malformed form payload"))
		return
	}

	cb := consent.Callback{
		SenderID:  r.PostFormValue("senderid"),
		Tag:       r.PostFormValue("tag"),
		Message:   r.PostFormValue("message"),
		MessageID: r.PostFormValue("id"),
	}

	if err := h.consent.HandleCallback(r.Context(), cb); err != nil {
		// Non-validation failures must surface so the gateway redelivers.
		if !derrors.Is(err, derrors.CodeBadRequest) {
			h.logger.ErrorContext(r.Context(), "sms callback failed", "tag", cb.Tag, "error", err)
		}
		shared.WriteError(w, err)
		return
	}

	shared.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// HandleDatapass receives a habilitation demand pushed by datapass. The
// shared secret in the Authorization header is the only authentication.
func (h *CallbacksHandler) HandleDatapass(w http.ResponseWriter, r *http.Request) {
	provided := r.Header.Get("Authorization")
	if h.datapassSecret == "" ||
		subtle.ConstantTimeCompare([]byte(provided), []byte(h.datapassSecret)) != 1 {
		shared.WriteError(w, derrors.New(derrors.CodeForbidden, "invalid datapass secret"))
		return
	}

	q := r.URL.Query()
	req, err := h.habilitations.Intake(r.Context(), habilitationservice.IntakeParams{
		OrganisationName:  q.Get("organisation_name"),
		OrganisationSIRET: q.Get("siret"),
		RequesterEmail:    q.Get("email"),
		DatapassID:        q.Get("datapass_id"),
	})
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	shared.WriteJSON(w, http.StatusAccepted, map[string]string{"request_id": req.ID.String()})
}
