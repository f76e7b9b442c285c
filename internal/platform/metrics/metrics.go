package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	MandatsCreated        prometheus.Counter
	AutorisationsRevoked  prometheus.Counter
	ConsentRequestsSent   prometheus.Counter
	ConsentCallbacks      *prometheus.CounterVec
	SMSSendFailures       prometheus.Counter
	FederationLogins      prometheus.Counter
	RequestDuration       *prometheus.HistogramVec
	JournalAppendFailures prometheus.Counter
}

// New creates all metrics and registers them with the default registry.
func New() *Metrics {
	return NewWith(prometheus.DefaultRegisterer)
}

// NewWith registers against the given registerer so tests can use a fresh
// registry per instance.
func NewWith(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		MandatsCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "aidantsconnect_mandats_created_total",
			Help: "Total number of mandates created.",
		}),
		AutorisationsRevoked: factory.NewCounter(prometheus.CounterOpts{
			Name: "aidantsconnect_autorisations_revoked_total",
			Help: "Total number of autorisations revoked.",
		}),
		ConsentRequestsSent: factory.NewCounter(prometheus.CounterOpts{
			Name: "aidantsconnect_consent_requests_sent_total",
			Help: "Total number of remote consent SMS requests issued.",
		}),
		ConsentCallbacks: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "aidantsconnect_consent_callbacks_total",
			Help: "SMS consent callbacks received, by outcome.",
		}, []string{"outcome"}),
		SMSSendFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "aidantsconnect_sms_send_failures_total",
			Help: "SMS gateway send failures (best-effort paths included).",
		}),
		FederationLogins: factory.NewCounter(prometheus.CounterOpts{
			Name: "aidantsconnect_federation_logins_total",
			Help: "Successful identity federation logins.",
		}),
		RequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "aidantsconnect_http_request_duration_seconds",
			Help:    "HTTP request latency by route and status.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "status"}),
		JournalAppendFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "aidantsconnect_journal_append_failures_total",
			Help: "Failed journal appends (post-commit paths only; creates surface errors).",
		}),
	}
}

// Callback outcome labels.
const (
	OutcomeAgreement = "agreement"
	OutcomeDenial    = "denial"
	OutcomeReplay    = "replay"
	OutcomeNoMatch   = "no_match"
)
