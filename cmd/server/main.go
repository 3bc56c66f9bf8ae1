// Command server runs the doctor registration HTTP service.
//
// All wiring happens here: config comes from the environment, stores fall
// back to in-memory implementations when their backing service is not
// configured, so a bare `go run ./cmd/server` gives a fully working
// single-process setup for development.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"medboard/internal/audit"
	"medboard/internal/platform/config"
	"medboard/internal/platform/httpserver"
	"medboard/internal/platform/logger"
	"medboard/internal/platform/metrics"
	"medboard/internal/platform/postgres"
	"medboard/internal/platform/redis"
	"medboard/internal/profile"
	"medboard/internal/providers"
	"medboard/internal/registration/handler"
	"medboard/internal/registration/resume"
	"medboard/internal/registration/rules"
	"medboard/internal/registration/session"
	sessionstore "medboard/internal/registration/store"
	vmodels "medboard/internal/verification/models"
	verifstore "medboard/internal/verification/store"
	"medboard/internal/verification/tracker"
	"medboard/internal/wizard"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "server:", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := config.FromEnv()
	log := logger.New()
	m := metrics.New()

	redisClient, err := redis.New(cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	pool, err := postgres.New(ctx, cfg.PostgresURL)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	if pool != nil {
		defer pool.Close()
	}

	var sessions sessionstore.SessionStore
	var records verifstore.RecordStore
	if redisClient != nil {
		// The store TTL is a reclamation backstop, not the expiry policy;
		// keep it comfortably beyond the inactivity timeout.
		sessions = sessionstore.NewRedis(redisClient.Client, 2*cfg.SessionTimeout)
		records = verifstore.NewRedis(redisClient.Client, cfg.VerificationTTL)
		log.Info("using redis stores")
	} else {
		sessions = sessionstore.NewInMemory()
		records = verifstore.NewInMemory()
		log.Warn("redis not configured, sessions are process-local")
	}

	var profiles profile.Store
	if pool != nil {
		profiles = profile.NewPostgres(pool)
		log.Info("using postgres profile store")
	} else {
		profiles = profile.NewInMemory()
		log.Warn("postgres not configured, profiles are process-local")
	}

	var publisher audit.Publisher = audit.Nop{}
	if len(cfg.KafkaBrokers) > 0 {
		kafka, err := audit.NewKafka(cfg.KafkaBrokers, cfg.KafkaTopic, log)
		if err != nil {
			return fmt.Errorf("connect kafka: %w", err)
		}
		defer kafka.Close()
		publisher = kafka
		log.Info("audit events published to kafka", "topic", cfg.KafkaTopic)
	}

	manager := session.New(sessions, rules.NewTable(), cfg.SessionTimeout, log)
	controller := wizard.New(wizard.Deps{
		Sessions: manager,
		Email:    tracker.New(vmodels.ChannelEmail, records, cfg.VerificationTTL, log),
		Phone:    tracker.New(vmodels.ChannelPhone, records, cfg.VerificationTTL, log),
		Document: tracker.New(vmodels.ChannelDocument, records, cfg.VerificationTTL, log),
		Registry: providers.NewStaticLicenseRegistry(),
		Identity: providers.NewStaticIdentityProvider(),
		Profiles: profiles,
		Sender:   wizard.LogSender{Logger: log},
		Tokens:   resume.NewIssuer(cfg.JWTSigningKey, cfg.ResumeTokenTTL),
		Audit:    publisher,
		Metrics:  m,
		Logger:   log,
	})

	router := chi.NewRouter()
	router.Handle("/metrics", promhttp.Handler())
	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if redisClient != nil {
			if err := redisClient.Health(r.Context()); err != nil {
				http.Error(w, "redis unhealthy", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
	})
	handler.New(controller, log).Register(router)

	srv := httpserver.New(cfg.Addr, router)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("listening", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		return httpserver.Shutdown(srv)
	})
	return g.Wait()
}
