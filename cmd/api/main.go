package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"clinicvoice-platform/internal/airtable"
	"clinicvoice-platform/internal/audit"
	"clinicvoice-platform/internal/auth"
	"clinicvoice-platform/internal/config"
	"clinicvoice-platform/internal/directory"
	"clinicvoice-platform/internal/leads"
	"clinicvoice-platform/internal/ratelimit"
	"clinicvoice-platform/internal/reporting"
	"clinicvoice-platform/internal/retell"
	"clinicvoice-platform/internal/webhook"
	"clinicvoice-platform/pkg/logger"
	"clinicvoice-platform/pkg/metrics"
	"clinicvoice-platform/pkg/utils"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	_ "github.com/jackc/pgx/v5/stdlib"
)

func main() {
	// Root context that cancels on shutdown
	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// .env is a local-development convenience; absent in deployment.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}

	log := logger.New(cfg.App.Env)
	slog.SetDefault(log)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	authManager, err := auth.NewManager(cfg.Auth)
	if err != nil {
		log.Error("auth init failed", "err", err)
		os.Exit(1)
	}

	db, err := utils.OpenPostgres(rootCtx, "pgx", cfg.PostgresDSN(), utils.PostgresPoolConfig{})
	if err != nil {
		log.Error("postgres init failed", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	// Redis is optional: without it the rate limiter degrades to a
	// per-process window.
	var limiter ratelimit.Limiter
	if addr := cfg.RedisAddr(); addr != "" {
		rdb, err := utils.OpenRedis(rootCtx, utils.RedisConfig{Addr: addr})
		if err != nil {
			log.Error("redis init failed", "err", err)
			os.Exit(1)
		}
		defer rdb.Close()
		limiter = ratelimit.NewRedisLimiter(rdb, cfg.RateLimit.MaxRequests, cfg.RateLimit.Window)
	} else {
		log.Warn("redis not configured, using in-process rate limiting")
		limiter = ratelimit.NewMemoryLimiter(cfg.RateLimit.MaxRequests, cfg.RateLimit.Window)
	}

	store := airtable.NewClient(cfg.Airtable.APIURL, cfg.Airtable.APIKey)
	voice := retell.NewClient(cfg.Retell.APIURL, cfg.Retell.APIKey)
	tenants := directory.NewPostgresRepo(db)

	deps := appDeps{
		DB:      db,
		Limiter: limiter,
		AuthMW:  auth.RequireAccessToken(authManager),
		Webhook: &webhook.Handler{
			Resolver: &webhook.Resolver{
				Provider:     voice,
				DemoAgentID:  cfg.Retell.DemoAgentID,
				DemoClinicID: cfg.Webhook.DemoClinicID,
			},
			Forwarder:     webhook.NewForwarder(cfg.Webhook.AutomationURL),
			PortalBaseURL: cfg.Webhook.PortalBaseURL,
		},
		Reporting: &reporting.Handler{
			Directory: tenants,
			Store:     store,
		},
		Leads: &leads.Handler{
			Store:    store,
			Caller:   voice,
			Notifier: leads.NewNotifier(cfg.Notify.SlackWebhookURL, cfg.Notify.N8NLeadsURL),

			LeadsBase:  cfg.Airtable.LeadsBase,
			LeadsTable: cfg.Airtable.LeadsTable,
			Mapping: airtable.LeadFieldMapping{
				Name:      cfg.Airtable.LeadFieldName,
				Company:   cfg.Airtable.LeadFieldCompany,
				Email:     cfg.Airtable.LeadFieldEmail,
				Phone:     cfg.Airtable.LeadFieldPhone,
				Source:    cfg.Airtable.LeadFieldSource,
				CreatedAt: cfg.Airtable.LeadFieldCreatedAt,
			},

			DemoAgentID:    cfg.Retell.DemoAgentID,
			DemoFromNumber: cfg.Retell.DemoFromNumber,
		},
		Admin: &directory.Handler{
			Repo:  tenants,
			Audit: audit.NewService(audit.NewPostgresRepo(db)),
		},
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.Middleware(log))
	r.Use(metrics.Middleware())

	registerRoutes(r, deps)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("api listening", "addr", srv.Addr, "env", cfg.App.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", "err", err)
			stop()
		}
	}()

	<-rootCtx.Done()
	log.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", "err", err)
	}

	_ = logger.ShutdownFlush(shutdownCtx, 2*time.Second)
}
