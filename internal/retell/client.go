// Package retell is the adapter for the external voice-calling provider.
// No provider API calls happen outside this package.
package retell

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

// CallDetail is the subset of the provider's call object we consume.
// Metadata values are provider-controlled JSON; keep them loosely typed and
// read defensively.
type CallDetail struct {
	CallID       string         `json:"call_id"`
	AgentID      string         `json:"agent_id"`
	Metadata     map[string]any `json:"metadata"`
	CallAnalysis *CallAnalysis  `json:"call_analysis,omitempty"`
}

type CallAnalysis struct {
	CallSummary        string         `json:"call_summary,omitempty"`
	CustomAnalysisData map[string]any `json:"custom_analysis_data,omitempty"`
}

// APIError carries the provider's status and body for non-2xx responses.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("retell: provider returned %d: %s", e.StatusCode, e.Body)
}

// GetCall fetches call detail, including the metadata used for clinic
// resolution on inbound webhooks.
func (c *Client) GetCall(ctx context.Context, callID string) (CallDetail, error) {
	if callID == "" {
		return CallDetail{}, fmt.Errorf("retell: call id is required")
	}

	reqURL := fmt.Sprintf("%s/v2/get-call/%s", c.baseURL, url.PathEscape(callID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return CallDetail{}, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return CallDetail{}, fmt.Errorf("retell: get-call failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return CallDetail{}, fmt.Errorf("retell: read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return CallDetail{}, &APIError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var detail CallDetail
	if err := json.Unmarshal(body, &detail); err != nil {
		return CallDetail{}, fmt.Errorf("retell: decode call detail: %w", err)
	}
	return detail, nil
}

type CreatePhoneCallRequest struct {
	FromNumber string            `json:"from_number"`
	ToNumber   string            `json:"to_number"`
	AgentID    string            `json:"agent_id"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

type CreatePhoneCallResponse struct {
	CallID string `json:"call_id"`
}

// CreatePhoneCall places an outbound call (used by the marketing demo flow).
func (c *Client) CreatePhoneCall(ctx context.Context, reqBody CreatePhoneCallRequest) (CreatePhoneCallResponse, error) {
	if reqBody.FromNumber == "" || reqBody.ToNumber == "" || reqBody.AgentID == "" {
		return CreatePhoneCallResponse{}, fmt.Errorf("retell: from_number, to_number and agent_id are required")
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return CreatePhoneCallResponse{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v2/create-phone-call", bytes.NewReader(payload))
	if err != nil {
		return CreatePhoneCallResponse{}, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return CreatePhoneCallResponse{}, fmt.Errorf("retell: create-phone-call failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return CreatePhoneCallResponse{}, fmt.Errorf("retell: read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return CreatePhoneCallResponse{}, &APIError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var out CreatePhoneCallResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return CreatePhoneCallResponse{}, fmt.Errorf("retell: decode response: %w", err)
	}
	return out, nil
}
