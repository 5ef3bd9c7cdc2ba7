// Package webhook receives call-completion events from the voice provider,
// resolves the owning clinic, and republishes a normalized event downstream.
package webhook

import (
	"context"
	"log/slog"

	"clinicvoice-platform/internal/retell"
	"clinicvoice-platform/internal/stats"
)

// ChannelEmail is the only delivery channel emitted today.
const ChannelEmail = "email"

const (
	EventNewPatient      = "new_patient"
	EventExistingPatient = "existing_patient"
)

// demoIntakeSlug is used in the intake URL when no clinic was resolved.
const demoIntakeSlug = "demo"

// metadataClinicKey is the provider-side metadata key naming the owning clinic.
const metadataClinicKey = "clinic_id"

// NormalizedEvent is the provider-agnostic record forwarded to the downstream
// automation endpoint. ClinicID is nil when resolution failed; downstream
// explicitly sees "no clinic resolved" rather than a guess.
type NormalizedEvent struct {
	Channel     string  `json:"channel"`
	Name        string  `json:"name"`
	Address     string  `json:"address"`
	URL         string  `json:"url"`
	PatientType string  `json:"patient_type"`
	ClinicID    *string `json:"clinic_id"`
}

// inboundPayload is the webhook body shape. The provider has sent the call
// object both nested and flattened over time; accept either.
type inboundPayload struct {
	Call         *inboundCall         `json:"call,omitempty"`
	CallID       string               `json:"call_id,omitempty"`
	AgentID      string               `json:"agent_id,omitempty"`
	Metadata     map[string]any       `json:"metadata,omitempty"`
	CallAnalysis *retell.CallAnalysis `json:"call_analysis,omitempty"`
}

type inboundCall struct {
	CallID   string         `json:"call_id,omitempty"`
	AgentID  string         `json:"agent_id,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

func (p inboundPayload) callID() string {
	if p.Call != nil && p.Call.CallID != "" {
		return p.Call.CallID
	}
	return p.CallID
}

func (p inboundPayload) agentID() string {
	if p.Call != nil && p.Call.AgentID != "" {
		return p.Call.AgentID
	}
	return p.AgentID
}

// metadataValue reads a key from the payload's own metadata, nested call
// object first, then top level.
func (p inboundPayload) metadataValue(key string) string {
	if p.Call != nil {
		if v := metaString(p.Call.Metadata, key); v != "" {
			return v
		}
	}
	return metaString(p.Metadata, key)
}

// Resolver maps an inbound payload to a clinic id via the fallback chain:
// provider call-detail metadata, then payload metadata, then the configured
// demo-agent default. First success wins; total failure resolves to nil.
type Resolver struct {
	Provider CallFetcher

	// DemoAgentID/DemoClinicID drive the pre-launch demo fallback.
	// Both must be set for the step to apply.
	DemoAgentID  string
	DemoClinicID string
}

// CallFetcher is the provider call-detail lookup used during resolution.
type CallFetcher interface {
	GetCall(ctx context.Context, callID string) (retell.CallDetail, error)
}

func (r *Resolver) resolveClinic(ctx context.Context, p inboundPayload) *string {
	// Step 1: call-detail lookup. Lookup failures are logged and skipped,
	// never escalated: resolution failure must not trigger provider retries.
	if callID := p.callID(); callID != "" && r.Provider != nil {
		detail, err := r.Provider.GetCall(ctx, callID)
		if err != nil {
			slog.WarnContext(ctx, "call detail lookup failed, continuing resolution", "call_id", callID, "err", err)
		} else if id := metaString(detail.Metadata, metadataClinicKey); id != "" {
			slog.InfoContext(ctx, "clinic resolved from call detail", "call_id", callID, "clinic_id", id)
			return &id
		}
	}

	// Step 2: the payload's own metadata.
	if id := p.metadataValue(metadataClinicKey); id != "" {
		slog.InfoContext(ctx, "clinic resolved from payload metadata", "clinic_id", id)
		return &id
	}

	// Step 3: configured demo-agent default. Disabled unless both sides of
	// the mapping are configured.
	if r.DemoAgentID != "" && r.DemoClinicID != "" && p.agentID() == r.DemoAgentID {
		slog.InfoContext(ctx, "clinic defaulted from demo agent", "agent_id", r.DemoAgentID, "clinic_id", r.DemoClinicID)
		id := r.DemoClinicID
		return &id
	}

	slog.WarnContext(ctx, "clinic resolution failed, forwarding without clinic", "call_id", p.callID())
	return nil
}

// normalize derives the downstream event from the payload and resolved clinic.
func normalize(p inboundPayload, clinicID *string, portalBaseURL string) NormalizedEvent {
	patientType := p.metadataValue("patient_type")
	if p.CallAnalysis != nil && patientType == "" {
		patientType = metaString(p.CallAnalysis.CustomAnalysisData, "patient_type")
	}
	if patientType != stats.PatientTypeNew && patientType != stats.PatientTypeExisting {
		patientType = stats.DefaultPatientType
	}

	name := EventNewPatient
	if patientType == stats.PatientTypeExisting {
		name = EventExistingPatient
	}

	// A missing address is forwarded as empty, never rejected.
	address := ""
	if p.CallAnalysis != nil {
		address = metaString(p.CallAnalysis.CustomAnalysisData, "email")
	}
	if address == "" {
		address = p.metadataValue("email")
	}

	return NormalizedEvent{
		Channel:     ChannelEmail,
		Name:        name,
		Address:     address,
		URL:         intakeURL(portalBaseURL, clinicID),
		PatientType: patientType,
		ClinicID:    clinicID,
	}
}

// intakeURL builds the patient intake link from the clinic id's first eight
// characters, or the demo slug when no clinic was resolved.
func intakeURL(portalBaseURL string, clinicID *string) string {
	slug := demoIntakeSlug
	if clinicID != nil {
		slug = *clinicID
		if len(slug) > 8 {
			slug = slug[:8]
		}
	}
	return portalBaseURL + "/intake?c=" + slug
}

func metaString(m map[string]any, key string) string {
	if m == nil {
		return ""
	}
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}
