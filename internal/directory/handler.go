package directory

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"clinicvoice-platform/internal/audit"
	"clinicvoice-platform/internal/auth"

	"github.com/gin-gonic/gin"
)

// Handler serves the admin tenant-management endpoints. Routes mounting it
// must be gated by the admin role middleware.
type Handler struct {
	Repo Repository

	// Audit is optional; when set, admin actions are recorded best-effort.
	Audit *audit.Service
}

func (h *Handler) auditLog(c *gin.Context, log func(actorUserID, actorRole, ip string) error) {
	if h.Audit == nil {
		return
	}
	ctx := c.Request.Context()
	actor, _ := auth.UserID(ctx)
	role, _ := auth.Role(ctx)
	if err := log(actor, role, c.ClientIP()); err != nil {
		slog.WarnContext(ctx, "audit append failed", "err", err)
	}
}

type createClinicRequest struct {
	UserID string `json:"user_id"`
	Name   string `json:"name"`
}

// CreateClinic provisions a clinic for a user and assigns it atomically.
func (h *Handler) CreateClinic(c *gin.Context) {
	ctx := c.Request.Context()

	var req createClinicRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.UserID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id is required"})
		return
	}

	clinic, err := h.Repo.CreateClinicForUser(ctx, req.UserID, req.Name)
	if err != nil {
		switch {
		case errors.Is(err, ErrAlreadyAssigned):
			c.JSON(http.StatusBadRequest, gin.H{"error": "user already has a clinic assigned"})
		case errors.Is(err, ErrProfileNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		default:
			slog.ErrorContext(ctx, "clinic creation failed", "user_id", req.UserID, "err", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create clinic"})
		}
		return
	}

	slog.InfoContext(ctx, "clinic created", "clinic_id", clinic.ID, "user_id", req.UserID)
	h.auditLog(c, func(actor, role, ip string) error {
		return h.Audit.LogClinicCreated(ctx, clinic.ID, actor, role, ip, req.UserID)
	})
	c.JSON(http.StatusOK, gin.H{"success": true, "clinic": clinic})
}

type airtableConfigRequest struct {
	BaseID        string   `json:"airtable_base_id"`
	TableName     string   `json:"airtable_table_name"`
	DisplayFields []string `json:"display_fields"`
}

// UpdateAirtableConfig points a clinic's reporting at its store base/table.
func (h *Handler) UpdateAirtableConfig(c *gin.Context) {
	ctx := c.Request.Context()
	clinicID := c.Param("clinic_id")

	var req airtableConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if req.BaseID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "airtable_base_id is required"})
		return
	}

	if err := h.Repo.UpdateAirtableConfig(ctx, clinicID, req.BaseID, req.TableName, req.DisplayFields); err != nil {
		if errors.Is(err, ErrClinicNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "clinic not found"})
			return
		}
		slog.ErrorContext(ctx, "airtable config update failed", "clinic_id", clinicID, "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update configuration"})
		return
	}

	slog.InfoContext(ctx, "airtable config updated", "clinic_id", clinicID)
	h.auditLog(c, func(actor, role, ip string) error {
		meta, _ := json.Marshal(req)
		return h.Audit.LogConfigUpdated(ctx, clinicID, actor, role, ip, string(meta))
	})
	c.JSON(http.StatusOK, gin.H{"success": true})
}
