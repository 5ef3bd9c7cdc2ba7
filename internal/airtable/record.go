package airtable

// The store's fields are an untyped key-value bag with optional columns and
// checkbox quirks (an "intake sent" marker may arrive as a string, a bool, or
// a number). normalizeRecord is the single boundary where that bag is turned
// into a typed record; nothing past this package sees the raw shape.

// Store column names for the calls table.
const (
	FieldClinicID        = "clinic_id"
	FieldCreatedTime     = "Created time"
	FieldCallerName      = "Caller Name"
	FieldPhoneNumber     = "Phone Number"
	FieldEmailAddress    = "Email Address"
	FieldPatientType     = "Patient Type"
	FieldCallSummary     = "Call Summary"
	FieldIntakeURLSent   = "Intake URL Sent"
	FieldCallStatus      = "Call Status"
	FieldDurationSeconds = "Duration Seconds"
	FieldNeedsCallback   = "Needs Callback"
)

// DefaultDisplayFields is the dashboard column set used when a clinic has no
// display-field configuration of its own.
var DefaultDisplayFields = []string{
	FieldCallerName,
	FieldPhoneNumber,
	FieldEmailAddress,
	FieldPatientType,
	FieldCallStatus,
	FieldCallSummary,
	FieldDurationSeconds,
	FieldNeedsCallback,
}

type rawRecord struct {
	ID          string         `json:"id"`
	Fields      map[string]any `json:"fields"`
	CreatedTime string         `json:"createdTime"`
}

// CallRecord is one call as read from the store. CreatedTime is kept as the
// raw string: it is nominally ISO-8601 but may be malformed or absent, and
// the aggregator decides how to treat that.
type CallRecord struct {
	ID              string `json:"id"`
	ClinicID        string `json:"clinic_id"`
	CreatedTime     string `json:"created_time,omitempty"`
	CallerName      string `json:"caller_name,omitempty"`
	Phone           string `json:"phone,omitempty"`
	Email           string `json:"email,omitempty"`
	PatientType     string `json:"patient_type,omitempty"`
	CallSummary     string `json:"call_summary,omitempty"`
	IntakeURLSent   bool   `json:"intake_url_sent"`
	CallStatus      string `json:"call_status,omitempty"`
	DurationSeconds int    `json:"duration_seconds,omitempty"`
	NeedsCallback   bool   `json:"needs_callback"`
}

func normalizeRecord(r rawRecord) CallRecord {
	f := r.Fields
	return CallRecord{
		ID:              r.ID,
		ClinicID:        stringField(f, FieldClinicID),
		CreatedTime:     stringField(f, FieldCreatedTime),
		CallerName:      stringField(f, FieldCallerName),
		Phone:           stringField(f, FieldPhoneNumber),
		Email:           stringField(f, FieldEmailAddress),
		PatientType:     stringField(f, FieldPatientType),
		CallSummary:     stringField(f, FieldCallSummary),
		IntakeURLSent:   truthyField(f, FieldIntakeURLSent),
		CallStatus:      stringField(f, FieldCallStatus),
		DurationSeconds: intField(f, FieldDurationSeconds),
		NeedsCallback:   boolField(f, FieldNeedsCallback),
	}
}

func stringField(f map[string]any, key string) string {
	if v, ok := f[key].(string); ok {
		return v
	}
	return ""
}

func boolField(f map[string]any, key string) bool {
	if v, ok := f[key].(bool); ok {
		return v
	}
	return false
}

func intField(f map[string]any, key string) int {
	switch v := f[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	default:
		return 0
	}
}

// truthyField mirrors the store's presence/truthiness semantics: a non-empty
// string, true bool, or non-zero number all count as set.
func truthyField(f map[string]any, key string) bool {
	switch v := f[key].(type) {
	case string:
		return v != ""
	case bool:
		return v
	case float64:
		return v != 0
	default:
		return false
	}
}
