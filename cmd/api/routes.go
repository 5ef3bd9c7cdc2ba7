package main

import (
	"database/sql"
	"net/http"
	"time"

	"clinicvoice-platform/internal/auth"
	"clinicvoice-platform/internal/directory"
	"clinicvoice-platform/internal/leads"
	"clinicvoice-platform/internal/ratelimit"
	"clinicvoice-platform/internal/reporting"
	"clinicvoice-platform/internal/webhook"
	"clinicvoice-platform/pkg/metrics"
	"clinicvoice-platform/pkg/utils"

	"github.com/gin-gonic/gin"
)

type appDeps struct {
	DB      *sql.DB
	Limiter ratelimit.Limiter
	AuthMW  gin.HandlerFunc

	Webhook   *webhook.Handler
	Reporting *reporting.Handler
	Leads     *leads.Handler
	Admin     *directory.Handler
}

// registerRoutes wires HTTP routes to handlers.
// Keep this file free of business logic. Handlers should delegate to internal modules.
func registerRoutes(r *gin.Engine, d appDeps) {
	r.GET("/healthz", func(c *gin.Context) {
		if err := utils.HealthCheck(c.Request.Context(), d.DB, 2*time.Second); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/metrics", metrics.Handler())

	// Provider webhooks (public). The provider retries on non-200, so the
	// handler only fails on unparseable bodies.
	r.POST("/webhooks/retell", d.Webhook.HandleCallCompleted)

	// Public marketing endpoints, rate limited per client IP.
	public := r.Group("/", ratelimit.Middleware(d.Limiter))
	{
		public.POST("/leads", d.Leads.SubmitLead)
		public.POST("/demo-leads", d.Leads.SubmitDemoLead)
		public.POST("/demo-call", d.Leads.DemoCall)
	}

	// Authenticated API group
	v1 := r.Group("/v1")
	v1.Use(d.AuthMW)
	{
		rep := v1.Group("/reporting")
		{
			rep.POST("/call-stats", d.Reporting.GetCallStats)
			rep.POST("/recent-calls", d.Reporting.GetRecentCalls)
		}

		admin := v1.Group("/admin")
		admin.Use(auth.RequireAdmin())
		{
			admin.POST("/clinics", d.Admin.CreateClinic)
			admin.PUT("/clinics/:clinic_id/airtable", d.Admin.UpdateAirtableConfig)
		}
	}
}
