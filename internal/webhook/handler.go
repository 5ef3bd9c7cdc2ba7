package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"

	"clinicvoice-platform/pkg/metrics"

	"github.com/gin-gonic/gin"
)

// Forwarder posts normalized events to the downstream automation endpoint.
// Forwarding is fire-and-forget: the response status is logged and failures
// never propagate to the provider.
type Forwarder struct {
	URL  string
	http *http.Client
}

func NewForwarder(url string) *Forwarder {
	return &Forwarder{
		URL:  url,
		http: &http.Client{Timeout: 10 * time.Second},
	}
}

func (f *Forwarder) Forward(ctx context.Context, event NormalizedEvent) {
	body, err := json.Marshal(event)
	if err != nil {
		slog.ErrorContext(ctx, "normalized event marshal failed", "err", err)
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.URL, bytes.NewReader(body))
	if err != nil {
		slog.ErrorContext(ctx, "automation request build failed", "err", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := f.http.Do(req)
	if err != nil {
		slog.ErrorContext(ctx, "automation forward failed", "err", err)
		return
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	slog.InfoContext(ctx, "normalized event forwarded", "status", resp.StatusCode)
}

// Handler is the inbound call-completion endpoint.
type Handler struct {
	Resolver      *Resolver
	Forwarder     *Forwarder
	PortalBaseURL string
}

// HandleCallCompleted normalizes and forwards one provider webhook.
// The provider's retry semantics must not be triggered by resolution
// failure: every path except an unparseable body answers 200.
func (h *Handler) HandleCallCompleted(c *gin.Context) {
	ctx := c.Request.Context()

	var payload inboundPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		slog.ErrorContext(ctx, "webhook body parse failed", "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "invalid payload"})
		return
	}

	clinicID := h.Resolver.resolveClinic(ctx, payload)
	if clinicID != nil {
		metrics.WebhookEventsTotal.WithLabelValues("resolved").Inc()
	} else {
		metrics.WebhookEventsTotal.WithLabelValues("unresolved").Inc()
	}

	event := normalize(payload, clinicID, h.PortalBaseURL)
	h.Forwarder.Forward(ctx, event)

	c.JSON(http.StatusOK, gin.H{"success": true})
}
