// Package leads serves the public marketing endpoints: lead capture from the
// homepage and demo page, and the instant demo call.
package leads

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"clinicvoice-platform/internal/airtable"
	"clinicvoice-platform/internal/retell"

	"github.com/gin-gonic/gin"
)

const (
	SourceHomepage = "Homepage Popup"
	SourceDemoPage = "Demo Page"
)

// LeadStore persists captured leads.
type LeadStore interface {
	CreateLead(ctx context.Context, baseID, tableName string, lead airtable.Lead, override airtable.LeadFieldMapping) error
}

// DemoCaller places the outbound demo call.
type DemoCaller interface {
	CreatePhoneCall(ctx context.Context, req retell.CreatePhoneCallRequest) (retell.CreatePhoneCallResponse, error)
}

type Handler struct {
	Store    LeadStore
	Caller   DemoCaller
	Notifier *Notifier

	LeadsBase  string
	LeadsTable string
	Mapping    airtable.LeadFieldMapping

	DemoAgentID    string
	DemoFromNumber string

	// now is swappable in tests.
	now func() time.Time
}

func (h *Handler) clock() time.Time {
	if h.now != nil {
		return h.now()
	}
	return time.Now()
}

type leadRequest struct {
	Name    string `json:"name"`
	Company string `json:"company"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
}

// validate applies the shared rules and answers the 400 itself. Returns false
// when the request was rejected.
func (r leadRequest) validate(c *gin.Context, phoneOK func(string) bool, phoneMsg string) bool {
	if r.Name == "" || r.Company == "" || r.Email == "" || r.Phone == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "all fields are required"})
		return false
	}
	if !validEmail(r.Email) {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "please enter a valid email address"})
		return false
	}
	if !phoneOK(r.Phone) {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": phoneMsg})
		return false
	}
	return true
}

func (r leadRequest) toLead(source, phone string, now time.Time) airtable.Lead {
	return airtable.Lead{
		Name:      strings.TrimSpace(r.Name),
		Company:   strings.TrimSpace(r.Company),
		Email:     strings.ToLower(strings.TrimSpace(r.Email)),
		Phone:     phone,
		Source:    source,
		CreatedAt: now.UTC().Format(time.RFC3339),
	}
}

// SubmitLead captures a homepage lead. The store write is the primary effect
// and must succeed; Slack/n8n notifications are best-effort.
func (h *Handler) SubmitLead(c *gin.Context) {
	ctx := c.Request.Context()

	var req leadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "all fields are required"})
		return
	}
	if !req.validate(c, validPhone, "please enter a valid phone number (at least 10 digits)") {
		return
	}

	lead := req.toLead(SourceHomepage, strings.TrimSpace(req.Phone), h.clock())
	slog.InfoContext(ctx, "processing lead", "name", lead.Name, "company", lead.Company, "email", lead.Email)

	if err := h.Store.CreateLead(ctx, h.LeadsBase, h.LeadsTable, lead, h.Mapping); err != nil {
		slog.ErrorContext(ctx, "lead store write failed", "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "something went wrong, please try again"})
		return
	}

	h.Notifier.NotifyAll(ctx, lead)
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// SubmitDemoLead captures a demo-page lead. Phone numbers are normalized to
// E.164 because the lead is dialed shortly after. Unlike the homepage flow,
// the store is optional here: an unconfigured leads base skips the write and
// reports airtableSaved=false rather than failing the submission.
func (h *Handler) SubmitDemoLead(c *gin.Context) {
	ctx := c.Request.Context()

	var req leadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "all fields are required"})
		return
	}
	if !req.validate(c, validUSPhone, "please enter a valid 10-digit US phone number") {
		return
	}

	lead := req.toLead(SourceDemoPage, toE164(req.Phone), h.clock())
	slog.InfoContext(ctx, "processing demo lead", "name", lead.Name, "company", lead.Company, "email", lead.Email)

	saved := false
	if h.LeadsBase == "" {
		slog.WarnContext(ctx, "leads base not configured, skipping store write")
	} else if err := h.Store.CreateLead(ctx, h.LeadsBase, h.LeadsTable, lead, h.Mapping); err != nil {
		slog.ErrorContext(ctx, "lead store write failed", "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "something went wrong, please try again"})
		return
	} else {
		saved = true
	}

	h.Notifier.NotifyAll(ctx, lead)
	c.JSON(http.StatusOK, gin.H{"success": true, "airtableSaved": saved})
}

type demoCallRequest struct {
	Phone string `json:"phone"`
}

// DemoCall places an outbound call from the demo agent to the visitor.
func (h *Handler) DemoCall(c *gin.Context) {
	ctx := c.Request.Context()

	var req demoCallRequest
	if err := c.ShouldBindJSON(&req); err != nil || len(req.Phone) < 10 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid phone number"})
		return
	}
	if h.DemoAgentID == "" || h.DemoFromNumber == "" {
		slog.ErrorContext(ctx, "demo call not configured")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "server configuration error"})
		return
	}

	to := req.Phone
	if !strings.HasPrefix(to, "+") {
		to = "+1" + to
	}
	slog.InfoContext(ctx, "initiating demo call", "to", to)

	out, err := h.Caller.CreatePhoneCall(ctx, retell.CreatePhoneCallRequest{
		FromNumber: h.DemoFromNumber,
		ToNumber:   to,
		AgentID:    h.DemoAgentID,
	})
	if err != nil {
		var apiErr *retell.APIError
		if errors.As(err, &apiErr) {
			slog.ErrorContext(ctx, "demo call rejected upstream", "status", apiErr.StatusCode)
			c.JSON(apiErr.StatusCode, gin.H{"error": "failed to initiate call", "details": apiErr.Body})
			return
		}
		slog.ErrorContext(ctx, "demo call failed", "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to initiate call"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "callId": out.CallID})
}
