package airtable

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
)

// Lead is a marketing-site demo request written to the shared leads table.
type Lead struct {
	Name      string
	Company   string
	Email     string
	Phone     string
	Source    string
	CreatedAt string
}

// LeadFieldMapping maps lead attributes to leads-table column names.
// Different bases have drifted over time; see leadFieldCandidates.
type LeadFieldMapping struct {
	Name      string
	Company   string
	Email     string
	Phone     string
	Source    string
	CreatedAt string
}

func (m LeadFieldMapping) withDefaults() LeadFieldMapping {
	out := m
	if out.Name == "" {
		out.Name = "Name"
	}
	if out.Company == "" {
		out.Company = "Company"
	}
	if out.Email == "" {
		out.Email = "Email"
	}
	if out.Phone == "" {
		out.Phone = "Phone"
	}
	if out.Source == "" {
		out.Source = "Source"
	}
	if out.CreatedAt == "" {
		out.CreatedAt = "Created At"
	}
	return out
}

func (m LeadFieldMapping) isZero() bool {
	return m == LeadFieldMapping{}
}

// leadFieldCandidates are column-name variants seen across leads tables.
// CreateLead walks them in order when the store rejects a field name.
var leadFieldCandidates = []LeadFieldMapping{
	{Name: "Name", Company: "Company", Email: "Email", Phone: "Phone", Source: "Source", CreatedAt: "Created At"},
	{Name: "Name", Company: "Company", Email: "Email Address", Phone: "Phone Number", Source: "Source", CreatedAt: "Created At"},
	{Name: "Full Name", Company: "Company", Email: "Email Address", Phone: "Phone Number", Source: "Source", CreatedAt: "Created At"},
	{Name: "Name", Company: "Company Name", Email: "Email Address", Phone: "Phone Number", Source: "Source", CreatedAt: "Created At"},
}

type storeErrorBody struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// CreateLead writes one lead record. An explicit override mapping is tried
// first; on a 422 UNKNOWN_FIELD_NAME the known column-name variants are tried
// in order. Any other store failure is terminal.
func (c *Client) CreateLead(ctx context.Context, baseID, tableName string, lead Lead, override LeadFieldMapping) error {
	if c.apiKey == "" {
		return fmt.Errorf("airtable: api key not configured")
	}
	if baseID == "" || tableName == "" {
		return fmt.Errorf("airtable: leads base and table are required")
	}

	candidates := leadFieldCandidates
	if !override.isZero() {
		candidates = append([]LeadFieldMapping{override.withDefaults()}, candidates...)
	}

	reqURL := fmt.Sprintf("%s/%s/%s", c.baseURL, baseID, url.PathEscape(tableName))

	var lastBody string
	var lastStatus int
	for attempt, mapping := range candidates {
		payload := map[string]any{
			"records": []map[string]any{
				{"fields": map[string]any{
					mapping.Name:      lead.Name,
					mapping.Company:   lead.Company,
					mapping.Email:     lead.Email,
					mapping.Phone:     lead.Phone,
					mapping.Source:    lead.Source,
					mapping.CreatedAt: lead.CreatedAt,
				}},
			},
		}
		body, err := json.Marshal(payload)
		if err != nil {
			return err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, bytes.NewReader(body))
		if err != nil {
			return err
		}

		resp, err := c.do(req)
		if err != nil {
			return fmt.Errorf("airtable: lead create failed: %w", err)
		}
		respBody, _ := io.ReadAll(resp.Body)
		resp.Body.Close()

		if resp.StatusCode >= 200 && resp.StatusCode <= 299 {
			slog.InfoContext(ctx, "airtable lead created", "table", tableName)
			return nil
		}

		lastBody = string(respBody)
		lastStatus = resp.StatusCode

		var parsed storeErrorBody
		_ = json.Unmarshal(respBody, &parsed)

		// Only a schema mismatch warrants trying the next column-name variant.
		if resp.StatusCode == http.StatusUnprocessableEntity &&
			parsed.Error.Type == "UNKNOWN_FIELD_NAME" &&
			attempt < len(candidates)-1 {
			slog.WarnContext(ctx, "airtable lead field mismatch, retrying with alternate names", "attempt", attempt+1)
			continue
		}
		break
	}

	return &StoreQueryError{StatusCode: lastStatus, Body: lastBody}
}
