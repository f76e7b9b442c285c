// Package httptransport is the thin HTTP layer. Handlers delegate to
// domain services without embedding business logic so transport
// concerns stay isolated.
package httptransport

import (
	"database/sql"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"aidantsconnect/internal/platform/metrics"
	"aidantsconnect/internal/platform/middleware"
	"aidantsconnect/internal/transport/http/shared"
	derrors "aidantsconnect/pkg/domain-errors"
)

// RouterDeps bundles everything the router mounts.
type RouterDeps struct {
	Logger  *slog.Logger
	Metrics *metrics.Metrics
	DB      *sql.DB // nil when running on in-memory stores

	Mandates      *MandateHandler
	Consents      *ConsentHandler
	Callbacks     *CallbacksHandler
	Federation    *FederationHandler
	Directory     *DirectoryHandler
	Habilitations *HabilitationHandler

	// CallbackRatePerMinute limits the unauthenticated callback routes.
	CallbackRatePerMinute int
}

// NewRouter assembles the middleware chain and mounts every endpoint.
func NewRouter(deps RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(deps.Logger))
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(middleware.Latency(deps.Metrics))

	r.Get("/healthz", healthz(deps.DB))
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	// Gateway-facing callbacks: unauthenticated, rate limited per IP.
	r.Group(func(r chi.Router) {
		if deps.CallbackRatePerMinute > 0 {
			r.Use(middleware.RateLimit(deps.CallbackRatePerMinute))
		}
		r.Post("/callbacks/sms", deps.Callbacks.HandleSMSCallback)
		r.Get("/callbacks/datapass", deps.Callbacks.HandleDatapass)
	})

	r.Get("/federation/callback", deps.Federation.HandleCallback)

	r.Post("/mandates", deps.Mandates.HandleCreate)
	r.Post("/mandates/renew", deps.Mandates.HandleRenew)
	r.Get("/mandates/{id}/status", deps.Mandates.HandleStatus)
	r.Post("/autorisations/cancel", deps.Mandates.HandleCancelAutorisation)

	r.Post("/consents", deps.Consents.HandleIssue)
	r.Get("/consents/status", deps.Consents.HandleStatus)

	r.Post("/organisations", deps.Directory.HandleCreateOrganisation)
	r.Post("/aidants", deps.Directory.HandleRegisterAidant)
	r.Get("/aidants/{id}", deps.Directory.HandleGetAidant)
	r.Post("/aidants/{id}/deactivate", deps.Directory.HandleDeactivateAidant)
	r.Get("/aidants/{id}/organisation", deps.Directory.HandleActiveOrganisation)
	r.Post("/aidants/{id}/organisation", deps.Directory.HandleSwitchOrganisation)
	r.Post("/aidants/{id}/card", deps.Directory.HandleAssociateCard)
	r.Post("/aidants/{id}/card/confirm", deps.Directory.HandleConfirmCard)
	r.Delete("/aidants/{id}/card", deps.Directory.HandleDissociateCard)

	r.Post("/admin/mandates/transfer", deps.Mandates.HandleTransfer)
	r.Post("/admin/habilitations/{id}/process", deps.Habilitations.HandleStartProcessing)
	r.Post("/admin/habilitations/{id}/validate", deps.Habilitations.HandleValidate)
	r.Post("/admin/habilitations/{id}/refuse", deps.Habilitations.HandleRefuse)

	return r
}

func healthz(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if db != nil {
			if err := db.PingContext(r.Context()); err != nil {
				shared.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
				return
			}
		}
		shared.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

func pathUUID(r *http.Request, param string) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, param))
	if err != nil {
		return uuid.Nil, derrors.Newf(derrors.CodeBadRequest, "invalid %s", param)
	}
	return id, nil
}
