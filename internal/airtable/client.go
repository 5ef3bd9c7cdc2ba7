// Package airtable is the query client for the external spreadsheet store
// that owns per-clinic call records. All reads are clinic-scoped: the clinic
// filter is applied server-side and cannot be omitted by callers.
package airtable

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"clinicvoice-platform/pkg/metrics"
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
		http:    &http.Client{Timeout: 15 * time.Second},
	}
}

// SortField is one entry of a store-side sort specification.
type SortField struct {
	Field     string
	Direction string // "asc" or "desc"
}

// QueryOptions are caller-supplied refinements. The clinic filter is not an
// option: it is always applied, and any FilterByFormula here is ANDed with it.
type QueryOptions struct {
	MaxRecords      int
	Sort            []SortField
	FilterByFormula string
}

// StoreQueryError is returned when the store answers with a non-2xx status.
// It carries the upstream status and raw body for diagnosis; callers decide
// whether any of it is user-facing.
type StoreQueryError struct {
	StatusCode int
	Body       string
}

func (e *StoreQueryError) Error() string {
	return fmt.Sprintf("airtable: store returned %d: %s", e.StatusCode, e.Body)
}

type listResponse struct {
	Records []rawRecord `json:"records"`
	Offset  string      `json:"offset,omitempty"`
}

// FetchCalls retrieves call records for one clinic. Every request filters by
// clinic_id server-side; the response is returned as normalized records
// without any client-side re-filtering. No retries, no caching.
func (c *Client) FetchCalls(ctx context.Context, baseID, tableName, clinicID string, opts *QueryOptions) ([]CallRecord, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("airtable: api key not configured")
	}
	if baseID == "" || tableName == "" {
		return nil, fmt.Errorf("airtable: base and table are required")
	}
	if clinicID == "" {
		return nil, fmt.Errorf("airtable: clinic id is required")
	}

	filter := clinicFilter(clinicID)
	if opts != nil && opts.FilterByFormula != "" {
		filter = fmt.Sprintf("AND(%s, %s)", filter, opts.FilterByFormula)
	}

	params := url.Values{}
	params.Set("filterByFormula", filter)
	if opts != nil {
		if opts.MaxRecords > 0 {
			params.Set("maxRecords", strconv.Itoa(opts.MaxRecords))
		}
		for i, s := range opts.Sort {
			params.Set(fmt.Sprintf("sort[%d][field]", i), s.Field)
			params.Set(fmt.Sprintf("sort[%d][direction]", i), s.Direction)
		}
	}

	reqURL := fmt.Sprintf("%s/%s/%s?%s", c.baseURL, baseID, url.PathEscape(tableName), params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.do(req)
	if err != nil {
		metrics.StoreQueriesTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("airtable: request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		metrics.StoreQueriesTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("airtable: read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		metrics.StoreQueriesTotal.WithLabelValues("upstream_error").Inc()
		return nil, &StoreQueryError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var list listResponse
	if err := json.Unmarshal(body, &list); err != nil {
		metrics.StoreQueriesTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("airtable: decode response: %w", err)
	}

	records := make([]CallRecord, 0, len(list.Records))
	for _, r := range list.Records {
		records = append(records, normalizeRecord(r))
	}

	metrics.StoreQueriesTotal.WithLabelValues("ok").Inc()
	slog.InfoContext(ctx, "airtable calls fetched", "clinic_id", clinicID, "records", len(records))
	return records, nil
}

// clinicFilter builds the mandatory tenant filter. Single quotes in the id
// are escaped so a crafted id cannot break out of the formula literal.
func clinicFilter(clinicID string) string {
	escaped := strings.ReplaceAll(clinicID, "'", "\\'")
	return fmt.Sprintf("{clinic_id} = '%s'", escaped)
}

func (c *Client) do(req *http.Request) (*http.Response, error) {
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	return c.http.Do(req)
}
