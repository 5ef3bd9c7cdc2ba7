package airtable

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

func leadFixture() Lead {
	return Lead{
		Name:      "Pat Doe",
		Company:   "Doe Dental",
		Email:     "pat@example.com",
		Phone:     "5551234567",
		Source:    "Homepage Popup",
		CreatedAt: "2026-08-29T10:00:00Z",
	}
}

func TestCreateLead_Succeeds(t *testing.T) {
	var gotFields map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		var payload struct {
			Records []struct {
				Fields map[string]any `json:"fields"`
			} `json:"records"`
		}
		json.Unmarshal(body, &payload)
		gotFields = payload.Records[0].Fields
		w.Write([]byte(`{"records":[{"id":"rec1"}]}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "key")
	if err := c.CreateLead(context.Background(), "appX", "Leads", leadFixture(), LeadFieldMapping{}); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if gotFields["Name"] != "Pat Doe" || gotFields["Email"] != "pat@example.com" {
		t.Fatalf("unexpected fields: %v", gotFields)
	}
}

func TestCreateLead_RetriesOnUnknownFieldName(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts == 1 {
			w.WriteHeader(http.StatusUnprocessableEntity)
			w.Write([]byte(`{"error":{"type":"UNKNOWN_FIELD_NAME","message":"Unknown field name: \"Email\""}}`))
			return
		}
		w.Write([]byte(`{"records":[{"id":"rec1"}]}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "key")
	if err := c.CreateLead(context.Background(), "appX", "Leads", leadFixture(), LeadFieldMapping{}); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if attempts != 2 {
		t.Fatalf("expected second mapping attempt, got %d", attempts)
	}
}

func TestCreateLead_StopsOnOtherErrors(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":{"type":"AUTHENTICATION_REQUIRED"}}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "key")
	err := c.CreateLead(context.Background(), "appX", "Leads", leadFixture(), LeadFieldMapping{})
	var qe *StoreQueryError
	if !errors.As(err, &qe) || qe.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 StoreQueryError, got %v", err)
	}
	if attempts != 1 {
		t.Fatalf("expected a single attempt, got %d", attempts)
	}
}

func TestCreateLead_OverrideMappingTriedFirst(t *testing.T) {
	var gotFields map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		var payload struct {
			Records []struct {
				Fields map[string]any `json:"fields"`
			} `json:"records"`
		}
		json.Unmarshal(body, &payload)
		gotFields = payload.Records[0].Fields
		w.Write([]byte(`{"records":[{"id":"rec1"}]}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "key")
	override := LeadFieldMapping{Email: "Contact Email"}
	if err := c.CreateLead(context.Background(), "appX", "Leads", leadFixture(), override); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if gotFields["Contact Email"] != "pat@example.com" {
		t.Fatalf("expected override column, got %v", gotFields)
	}
}

func TestFetchTableSchema_FindsTable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/meta/bases/appX/tables" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		w.Write([]byte(`{"tables":[
			{"id":"tbl1","name":"Leads","fields":[{"name":"Name","type":"singleLineText"}]},
			{"id":"tbl2","name":"Calls","fields":[{"name":"Caller Name","type":"singleLineText"}]}
		]}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "key")
	schema, err := c.FetchTableSchema(context.Background(), "appX", "Calls")
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if schema.ID != "tbl2" || len(schema.Fields) != 1 {
		t.Fatalf("unexpected schema: %+v", schema)
	}

	if _, err := c.FetchTableSchema(context.Background(), "appX", "Missing"); err == nil {
		t.Fatalf("expected error for unknown table")
	}
}
