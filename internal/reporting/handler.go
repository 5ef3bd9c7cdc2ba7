// Package reporting serves the tenant dashboard: aggregated call stats and
// the recent-call list. Every store read is scoped to the caller's clinic,
// resolved from the tenant directory on each request.
package reporting

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"clinicvoice-platform/internal/airtable"
	"clinicvoice-platform/internal/auth"
	"clinicvoice-platform/internal/directory"
	"clinicvoice-platform/internal/stats"

	"github.com/gin-gonic/gin"
)

// defaultTableName is the call table used when a clinic's store config does
// not name one.
const defaultTableName = "Calls"

// defaultRecentLimit caps the recent-call list when the client does not ask
// for a specific page size.
const defaultRecentLimit = 20

// CallSource reads call records from the per-tenant store.
type CallSource interface {
	FetchCalls(ctx context.Context, baseID, tableName, clinicID string, opts *airtable.QueryOptions) ([]airtable.CallRecord, error)
}

type Handler struct {
	Directory directory.Repository
	Store     CallSource
}

// RecentCallsResponse pairs the records with the column set the dashboard
// should render.
type RecentCallsResponse struct {
	Calls         []airtable.CallRecord `json:"calls"`
	DisplayFields []string              `json:"displayFields"`
}

// clinicFor resolves the caller's clinic. A missing profile or an unassigned
// one is not an error: the caller simply has no data yet.
func (h *Handler) clinicFor(ctx context.Context) (directory.Clinic, bool, error) {
	userID, err := auth.UserID(ctx)
	if err != nil {
		return directory.Clinic{}, false, err
	}

	profile, err := h.Directory.GetProfile(ctx, userID)
	if err != nil {
		if errors.Is(err, directory.ErrProfileNotFound) {
			return directory.Clinic{}, false, nil
		}
		return directory.Clinic{}, false, err
	}
	if profile.ClinicID == "" {
		return directory.Clinic{}, false, nil
	}

	clinic, err := h.Directory.GetClinic(ctx, profile.ClinicID)
	if err != nil {
		if errors.Is(err, directory.ErrClinicNotFound) {
			slog.WarnContext(ctx, "profile references missing clinic", "user_id", userID, "clinic_id", profile.ClinicID)
			return directory.Clinic{}, false, nil
		}
		return directory.Clinic{}, false, err
	}
	return clinic, true, nil
}

// GetCallStats returns today's aggregates plus the trailing weekly series.
// Callers without a clinic get the same shape with zero values, so the
// dashboard renders identically for a brand-new account.
func (h *Handler) GetCallStats(c *gin.Context) {
	ctx := c.Request.Context()

	clinic, ok, err := h.clinicFor(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "clinic resolution failed", "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to resolve clinic"})
		return
	}
	if !ok {
		c.JSON(http.StatusOK, stats.ComputeStats(nil))
		return
	}
	if clinic.AirtableBaseID == "" {
		slog.ErrorContext(ctx, "clinic has no store configured", "clinic_id", clinic.ID)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "reporting store is not configured for this clinic"})
		return
	}

	records, err := h.Store.FetchCalls(ctx, clinic.AirtableBaseID, h.tableName(clinic), clinic.ID, nil)
	if err != nil {
		slog.ErrorContext(ctx, "call stats fetch failed", "clinic_id", clinic.ID, "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch call statistics"})
		return
	}

	c.JSON(http.StatusOK, stats.ComputeStats(records))
}

type recentCallsRequest struct {
	Limit int `json:"limit"`
}

// GetRecentCalls returns the newest calls for the caller's clinic, newest
// first, capped by the optional limit in the request body.
func (h *Handler) GetRecentCalls(c *gin.Context) {
	ctx := c.Request.Context()

	clinic, ok, err := h.clinicFor(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "clinic resolution failed", "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to resolve clinic"})
		return
	}
	if !ok {
		c.JSON(http.StatusOK, RecentCallsResponse{
			Calls:         []airtable.CallRecord{},
			DisplayFields: airtable.DefaultDisplayFields,
		})
		return
	}
	if clinic.AirtableBaseID == "" {
		slog.ErrorContext(ctx, "clinic has no store configured", "clinic_id", clinic.ID)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "reporting store is not configured for this clinic"})
		return
	}

	// The body is optional; anything unusable falls back to the default.
	var req recentCallsRequest
	_ = c.ShouldBindJSON(&req)
	limit := defaultRecentLimit
	if req.Limit > 0 {
		limit = req.Limit
	}

	records, err := h.Store.FetchCalls(ctx, clinic.AirtableBaseID, h.tableName(clinic), clinic.ID, &airtable.QueryOptions{
		MaxRecords: limit,
		Sort: []airtable.SortField{
			{Field: airtable.FieldCreatedTime, Direction: "desc"},
		},
	})
	if err != nil {
		slog.ErrorContext(ctx, "recent calls fetch failed", "clinic_id", clinic.ID, "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch recent calls"})
		return
	}
	if records == nil {
		records = []airtable.CallRecord{}
	}

	displayFields := clinic.DisplayFields
	if len(displayFields) == 0 {
		displayFields = airtable.DefaultDisplayFields
	}

	c.JSON(http.StatusOK, RecentCallsResponse{
		Calls:         records,
		DisplayFields: displayFields,
	})
}

func (h *Handler) tableName(clinic directory.Clinic) string {
	if clinic.AirtableTableName != "" {
		return clinic.AirtableTableName
	}
	return defaultTableName
}
