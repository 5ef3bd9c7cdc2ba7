package reporting

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"clinicvoice-platform/internal/airtable"
	"clinicvoice-platform/internal/auth"
	"clinicvoice-platform/internal/directory"
	"clinicvoice-platform/internal/stats"

	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeStore struct {
	records []airtable.CallRecord
	err     error

	gotBase   string
	gotTable  string
	gotClinic string
	gotOpts   *airtable.QueryOptions
}

func (s *fakeStore) FetchCalls(_ context.Context, baseID, tableName, clinicID string, opts *airtable.QueryOptions) ([]airtable.CallRecord, error) {
	s.gotBase = baseID
	s.gotTable = tableName
	s.gotClinic = clinicID
	s.gotOpts = opts
	return s.records, s.err
}

func identity(userID string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request = c.Request.WithContext(auth.WithIdentity(c.Request.Context(), userID, auth.RoleMember))
		c.Next()
	}
}

func request(h *Handler, userID, path, body string) *httptest.ResponseRecorder {
	r := gin.New()
	grp := r.Group("/v1/reporting", identity(userID))
	grp.POST("/call-stats", h.GetCallStats)
	grp.POST("/recent-calls", h.GetRecentCalls)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	return w
}

func seededDirectory() *directory.MemoryRepo {
	repo := directory.NewMemoryRepo()
	repo.Clinics["clinic-1"] = directory.Clinic{
		ID:             "clinic-1",
		Name:           "Smile Dental",
		AirtableBaseID: "appBase1",
	}
	repo.Profiles["user-1"] = directory.Profile{UserID: "user-1", ClinicID: "clinic-1"}
	repo.Profiles["user-2"] = directory.Profile{UserID: "user-2"}
	return repo
}

func TestCallStats_ScopesFetchToClinic(t *testing.T) {
	store := &fakeStore{}
	h := &Handler{Directory: seededDirectory(), Store: store}

	w := request(h, "user-1", "/v1/reporting/call-stats", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if store.gotClinic != "clinic-1" || store.gotBase != "appBase1" {
		t.Fatalf("fetch not scoped: clinic=%q base=%q", store.gotClinic, store.gotBase)
	}
	if store.gotTable != "Calls" {
		t.Fatalf("expected default table, got %q", store.gotTable)
	}
}

func TestCallStats_UnassignedUserGetsZeroStats(t *testing.T) {
	h := &Handler{Directory: seededDirectory(), Store: &fakeStore{}}

	w := request(h, "user-2", "/v1/reporting/call-stats", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}

	var out stats.CallStats
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.TotalCallsToday != 0 || len(out.WeeklyData) != 7 {
		t.Fatalf("expected zero stats with full weekly series, got %+v", out)
	}
}

func TestCallStats_UnknownUserGetsZeroStats(t *testing.T) {
	w := request(&Handler{Directory: seededDirectory(), Store: &fakeStore{}}, "stranger", "/v1/reporting/call-stats", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
}

func TestCallStats_MissingStoreConfigIs500(t *testing.T) {
	repo := seededDirectory()
	c := repo.Clinics["clinic-1"]
	c.AirtableBaseID = ""
	repo.Clinics["clinic-1"] = c

	w := request(&Handler{Directory: repo, Store: &fakeStore{}}, "user-1", "/v1/reporting/call-stats", "")
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", w.Code)
	}
}

func TestCallStats_StoreErrorIs500(t *testing.T) {
	store := &fakeStore{err: errors.New("airtable down")}
	w := request(&Handler{Directory: seededDirectory(), Store: store}, "user-1", "/v1/reporting/call-stats", "")
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", w.Code)
	}
}

func TestRecentCalls_DefaultLimitAndSort(t *testing.T) {
	store := &fakeStore{}
	h := &Handler{Directory: seededDirectory(), Store: store}

	w := request(h, "user-1", "/v1/reporting/recent-calls", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if store.gotOpts == nil || store.gotOpts.MaxRecords != 20 {
		t.Fatalf("expected default limit 20, got %+v", store.gotOpts)
	}
	sort := store.gotOpts.Sort
	if len(sort) != 1 || sort[0].Field != airtable.FieldCreatedTime || sort[0].Direction != "desc" {
		t.Fatalf("expected newest-first sort, got %+v", sort)
	}
}

func TestRecentCalls_LimitParam(t *testing.T) {
	store := &fakeStore{}
	h := &Handler{Directory: seededDirectory(), Store: store}

	request(h, "user-1", "/v1/reporting/recent-calls", `{"limit":5}`)
	if store.gotOpts.MaxRecords != 5 {
		t.Fatalf("limit = %d, want 5", store.gotOpts.MaxRecords)
	}

	request(h, "user-1", "/v1/reporting/recent-calls", `{"limit":"junk"}`)
	if store.gotOpts.MaxRecords != 20 {
		t.Fatalf("bad limit must fall back to default, got %d", store.gotOpts.MaxRecords)
	}
}

func TestRecentCalls_UnassignedUserGetsEmptyList(t *testing.T) {
	w := request(&Handler{Directory: seededDirectory(), Store: &fakeStore{}}, "user-2", "/v1/reporting/recent-calls", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}

	var out RecentCallsResponse
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(out.Calls) != 0 {
		t.Fatalf("expected no calls, got %d", len(out.Calls))
	}
	if len(out.DisplayFields) == 0 {
		t.Fatalf("display fields must still be populated")
	}
}

func TestRecentCalls_CustomTableName(t *testing.T) {
	repo := seededDirectory()
	c := repo.Clinics["clinic-1"]
	c.AirtableTableName = "Voice Calls"
	repo.Clinics["clinic-1"] = c

	store := &fakeStore{}
	request(&Handler{Directory: repo, Store: store}, "user-1", "/v1/reporting/recent-calls", "")
	if store.gotTable != "Voice Calls" {
		t.Fatalf("table = %q, want configured name", store.gotTable)
	}
}
