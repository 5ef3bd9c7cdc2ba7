package directory

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"clinicvoice-platform/internal/audit"

	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func adminRequest(h *Handler, method, path, body string) *httptest.ResponseRecorder {
	r := gin.New()
	r.POST("/v1/admin/clinics", h.CreateClinic)
	r.PUT("/v1/admin/clinics/:clinic_id/airtable", h.UpdateAirtableConfig)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	return w
}

func TestCreateClinic_AssignsUser(t *testing.T) {
	repo := NewMemoryRepo()
	repo.Profiles["user-1"] = Profile{UserID: "user-1", Email: "owner@clinic.example"}
	auditRepo := audit.NewMemoryRepo()
	h := &Handler{Repo: repo, Audit: audit.NewService(auditRepo)}

	w := adminRequest(h, http.MethodPost, "/v1/admin/clinics", `{"user_id":"user-1","name":"Smile Dental"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}

	var out struct {
		Clinic Clinic `json:"clinic"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Clinic.Name != "Smile Dental" {
		t.Fatalf("clinic = %+v", out.Clinic)
	}
	p, _ := repo.GetProfile(context.Background(), "user-1")
	if p.ClinicID != out.Clinic.ID {
		t.Fatalf("profile not assigned: %q vs %q", p.ClinicID, out.Clinic.ID)
	}

	evs := auditRepo.Events()
	if len(evs) != 1 || evs[0].Type != audit.EventTypeClinicCreated || evs[0].ClinicID != out.Clinic.ID {
		t.Fatalf("expected one clinic_created audit event, got %+v", evs)
	}
}

func TestCreateClinic_DefaultsNameFromEmail(t *testing.T) {
	repo := NewMemoryRepo()
	repo.Profiles["user-1"] = Profile{UserID: "user-1", Email: "owner@clinic.example"}

	w := adminRequest(&Handler{Repo: repo}, http.MethodPost, "/v1/admin/clinics", `{"user_id":"user-1"}`)
	var out struct {
		Clinic Clinic `json:"clinic"`
	}
	json.Unmarshal(w.Body.Bytes(), &out)
	if out.Clinic.Name != "Clinic for owner@clinic.example" {
		t.Fatalf("name = %q", out.Clinic.Name)
	}
}

func TestCreateClinic_RejectsSecondClinic(t *testing.T) {
	repo := NewMemoryRepo()
	repo.Profiles["user-1"] = Profile{UserID: "user-1", Email: "owner@clinic.example"}
	h := &Handler{Repo: repo}

	adminRequest(h, http.MethodPost, "/v1/admin/clinics", `{"user_id":"user-1"}`)
	w := adminRequest(h, http.MethodPost, "/v1/admin/clinics", `{"user_id":"user-1"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestCreateClinic_Validation(t *testing.T) {
	h := &Handler{Repo: NewMemoryRepo()}

	if w := adminRequest(h, http.MethodPost, "/v1/admin/clinics", `{}`); w.Code != http.StatusBadRequest {
		t.Fatalf("missing user_id: status = %d", w.Code)
	}
	if w := adminRequest(h, http.MethodPost, "/v1/admin/clinics", `{"user_id":"ghost"}`); w.Code != http.StatusNotFound {
		t.Fatalf("unknown user: status = %d", w.Code)
	}
}

func TestUpdateAirtableConfig_Persists(t *testing.T) {
	repo := NewMemoryRepo()
	repo.Clinics["c1"] = Clinic{ID: "c1", Name: "Smile Dental"}
	h := &Handler{Repo: repo}

	w := adminRequest(h, http.MethodPut, "/v1/admin/clinics/c1/airtable",
		`{"airtable_base_id":"appBase1","airtable_table_name":"Calls","display_fields":["Caller Name","Phone Number"]}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}

	c, _ := repo.GetClinic(context.Background(), "c1")
	if c.AirtableBaseID != "appBase1" || len(c.DisplayFields) != 2 {
		t.Fatalf("config not persisted: %+v", c)
	}
}

func TestUpdateAirtableConfig_Errors(t *testing.T) {
	repo := NewMemoryRepo()
	repo.Clinics["c1"] = Clinic{ID: "c1"}
	h := &Handler{Repo: repo}

	if w := adminRequest(h, http.MethodPut, "/v1/admin/clinics/c1/airtable", `{}`); w.Code != http.StatusBadRequest {
		t.Fatalf("missing base id: status = %d", w.Code)
	}
	if w := adminRequest(h, http.MethodPut, "/v1/admin/clinics/ghost/airtable", `{"airtable_base_id":"app1"}`); w.Code != http.StatusNotFound {
		t.Fatalf("unknown clinic: status = %d", w.Code)
	}
}
