package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"keygate/internal/admin"
	"keygate/internal/app"
	"keygate/internal/audit"
	"keygate/internal/auth/metrics"
	"keygate/internal/auth/service"
	"keygate/internal/blacklist"
	"keygate/internal/license"
	"keygate/internal/platform/config"
	"keygate/internal/platform/database"
	"keygate/internal/platform/logger"
	platformredis "keygate/internal/platform/redis"
	"keygate/internal/policy"
	"keygate/internal/session"
	httptransport "keygate/internal/transport/http"
	"keygate/internal/user"
	"keygate/internal/webhook"
	"keygate/migrations"
)

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in the internal services.
func main() {
	cfg := config.FromEnv()
	log := logger.New(cfg.LogLevel)

	log.Info("initializing keygate",
		"addr", cfg.Addr,
		"postgres", cfg.DatabaseURL != "",
		"redis", cfg.RedisURL != "",
	)

	dbCfg := database.DefaultConfig()
	dbCfg.URL = cfg.DatabaseURL
	pool, err := database.New(dbCfg)
	if err != nil {
		log.Error("postgres connection failed", "error", err)
		os.Exit(1)
	}
	if pool != nil {
		if err := pool.Migrate(context.Background(), migrations.FS); err != nil {
			log.Error("migrations failed", "error", err)
			os.Exit(1)
		}
	}
	rdb, err := platformredis.New(cfg.RedisURL)
	if err != nil {
		log.Error("redis connection failed", "error", err)
		os.Exit(1)
	}

	// Store selection: postgres when configured, in-memory otherwise.
	// Sessions prefer redis for its native TTL handling.
	var (
		appStore       app.Store
		userStore      user.Store
		licenseStore   license.Store
		blacklistStore blacklist.Store
		webhookStore   webhook.Store
		sessionStore   session.Store
		auditStore     audit.Store
	)
	health := make(map[string]httptransport.HealthChecker)
	if pool != nil {
		appStore = app.NewPostgresStore(pool.DB())
		userStore = user.NewPostgresStore(pool.DB())
		licenseStore = license.NewPostgresStore(pool.DB())
		blacklistStore = blacklist.NewPostgresStore(pool.DB())
		webhookStore = webhook.NewPostgresStore(pool.DB())
		sessionStore = session.NewPostgresStore(pool.DB())
		auditStore = audit.NewPostgresStore(pool.DB())
		health["postgres"] = pool
	} else {
		appStore = app.NewMemoryStore()
		userStore = user.NewMemoryStore()
		licenseStore = license.NewMemoryStore()
		blacklistStore = blacklist.NewMemoryStore()
		webhookStore = webhook.NewMemoryStore()
		sessionStore = session.NewMemoryStore()
		auditStore = audit.NewMemoryStore()
	}
	if rdb != nil {
		sessionStore = session.NewRedisStore(rdb.Client)
		health["redis"] = rdb
	}

	m := metrics.New()

	publisher := audit.NewPublisher(auditStore,
		audit.WithAsyncBuffer(cfg.AuditBuffer),
		audit.WithPublisherLogger(log),
	)
	dispatcher := webhook.NewDispatcher(webhookStore,
		webhook.WithDeliveryTimeout(cfg.WebhookTimeout),
		webhook.WithDispatcherLogger(log),
		webhook.WithMetrics(m),
	)

	tracker := session.NewTracker(sessionStore,
		session.WithTTL(cfg.SessionTTL),
		session.WithLogger(log),
		session.WithMetrics(m),
	)
	engine := policy.NewEngine(blacklistStore, userStore)
	licenses := license.NewManager(licenseStore, license.WithLogger(log))

	authSvc := service.NewService(appStore, userStore, engine, licenses, tracker,
		service.WithLogger(log),
		service.WithAuditRecorder(publisher),
		service.WithWebhookNotifier(dispatcher),
		service.WithMetrics(m),
	)
	adminSvc := admin.NewService(appStore, userStore, licenseStore, blacklistStore, webhookStore, tracker, licenses,
		admin.WithLogger(log),
		admin.WithAuditReader(publisher),
	)

	sweeper := session.NewSweeper(tracker, sessionStore,
		session.WithInterval(cfg.SweepInterval),
		session.WithSweeperLogger(log),
	)
	sweeper.Start()

	handler := httptransport.NewHandler(authSvc, adminSvc, health, log)
	router := httptransport.NewRouter(handler, log)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	log.Info("starting http server", "addr", cfg.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server gracefully")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
	}

	sweeper.Stop()
	dispatcher.Close()
	publisher.Close()
	if rdb != nil {
		if err := rdb.Close(); err != nil {
			log.Error("redis close failed", "error", err)
		}
	}
	if pool != nil {
		if err := pool.Close(); err != nil {
			log.Error("postgres close failed", "error", err)
		}
	}

	log.Info("server stopped")
}
