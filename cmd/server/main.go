package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"aidantsconnect/internal/aidant"
	aidantservice "aidantsconnect/internal/aidant/service"
	"aidantsconnect/internal/carte"
	carteservice "aidantsconnect/internal/carte/service"
	consentservice "aidantsconnect/internal/consent/service"
	"aidantsconnect/internal/federation"
	"aidantsconnect/internal/habilitation"
	habilitationservice "aidantsconnect/internal/habilitation/service"
	"aidantsconnect/internal/journal"
	"aidantsconnect/internal/mandate"
	mandateservice "aidantsconnect/internal/mandate/service"
	"aidantsconnect/internal/organisation"
	"aidantsconnect/internal/platform/config"
	"aidantsconnect/internal/platform/httpserver"
	"aidantsconnect/internal/platform/logger"
	"aidantsconnect/internal/platform/metrics"
	"aidantsconnect/internal/platform/postgres"
	platformredis "aidantsconnect/internal/platform/redis"
	"aidantsconnect/internal/sms"
	httptransport "aidantsconnect/internal/transport/http"
	"aidantsconnect/internal/usager"
)

// stores groups the persistence layer so wiring can swap postgres for the
// in-memory implementations when no DSN is configured.
type stores struct {
	journal       journal.Store
	mandats       mandate.Store
	organisations organisation.Store
	aidants       aidant.Store
	usagers       usager.Store
	cartes        carte.Store
	habilitations habilitation.Store
}

// main wires high-level dependencies, exposes the HTTP router, and keeps
// the server lifecycle small. Business logic lives in the internal
// services packages.
func main() {
	cfg := config.Load()
	log := logger.New()
	m := metrics.New()

	var (
		st stores
		db *sql.DB
	)
	if cfg.PostgresDSN != "" {
		var err error
		db, err = postgres.Open(cfg.PostgresDSN)
		if err != nil {
			log.Error("postgres connection failed", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		st = stores{
			journal:       journal.NewPostgres(db),
			mandats:       mandate.NewPostgres(db),
			organisations: organisation.NewPostgres(db),
			aidants:       aidant.NewPostgres(db),
			usagers:       usager.NewPostgres(db),
			cartes:        carte.NewPostgres(db),
			habilitations: habilitation.NewPostgres(db),
		}
	} else {
		log.Warn("no postgres DSN configured, using in-memory stores")
		st = stores{
			journal:       journal.NewInMemoryStore(),
			mandats:       mandate.NewInMemoryStore(),
			organisations: organisation.NewInMemoryStore(),
			aidants:       aidant.NewInMemoryStore(),
			usagers:       usager.NewInMemoryStore(),
			cartes:        carte.NewInMemoryStore(),
			habilitations: habilitation.NewInMemoryStore(),
		}
	}

	var sessions aidant.SessionStore
	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		log.Error("redis connection failed", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
		sessions = aidant.NewRedisSessionStore(redisClient, cfg.SessionTTL)
	} else {
		log.Warn("no redis URL configured, using in-memory sessions")
		sessions = aidant.NewInMemorySessionStore(cfg.SessionTTL)
	}

	var gateway sms.Gateway = sms.Disabled{}
	if cfg.SMS.Enabled {
		gateway = sms.NewOVH(cfg.SMS)
	}

	mandateSvc := mandateservice.New(st.mandats, st.organisations, st.journal, log, m)
	consentSvc := consentservice.New(st.journal, gateway, log, m, cfg.SMS.AgreeKeywords)
	aidantSvc := aidantservice.New(st.aidants, sessions, st.organisations, log)
	carteSvc := carteservice.New(st.cartes, st.aidants, aidantSvc, st.journal, log)
	habilitationSvc := habilitationservice.New(st.habilitations, st.organisations, st.journal, log)
	federationSvc := federation.NewService(federation.NewClient(cfg.Federation), st.usagers, st.journal, log, m)

	router := httptransport.NewRouter(httptransport.RouterDeps{
		Logger:                log,
		Metrics:               m,
		DB:                    db,
		Mandates:              httptransport.NewMandateHandler(mandateSvc, log),
		Consents:              httptransport.NewConsentHandler(consentSvc, log),
		Callbacks:             httptransport.NewCallbacksHandler(consentSvc, habilitationSvc, cfg.Datapass.SharedSecret, log),
		Federation:            httptransport.NewFederationHandler(federationSvc, log),
		Directory:             httptransport.NewDirectoryHandler(aidantSvc, st.organisations, carteSvc, log),
		Habilitations:         httptransport.NewHabilitationHandler(habilitationSvc, log),
		CallbackRatePerMinute: cfg.CallbackRatePerMinute,
	})

	srv := httpserver.New(cfg.Addr, router)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting aidants-connect server", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("server stopped with error", "error", err)
		os.Exit(1)
	}
	log.Info("server stopped")
}
