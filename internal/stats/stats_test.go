package stats

import (
	"reflect"
	"testing"
	"time"

	"clinicvoice-platform/internal/airtable"
)

var testNow = time.Date(2026, 8, 29, 14, 30, 0, 0, time.UTC)

func rec(created, patientType string, intakeSent, needsCallback bool) airtable.CallRecord {
	return airtable.CallRecord{
		ID:            "rec",
		ClinicID:      "clinic-1",
		CreatedTime:   created,
		PatientType:   patientType,
		IntakeURLSent: intakeSent,
		NeedsCallback: needsCallback,
	}
}

func TestComputeStats_TodayBuckets(t *testing.T) {
	records := []airtable.CallRecord{
		rec("2026-08-29T10:00:00.000Z", "new", true, false),
		rec("2026-08-29T01:15:00Z", "existing", false, true),
		rec("2026-08-28T23:59:00Z", "new", true, false), // yesterday
	}

	out := computeStatsAt(records, testNow)
	if out.TotalCallsToday != 2 {
		t.Fatalf("totalCallsToday = %d, want 2", out.TotalCallsToday)
	}
	if out.NewPatientsToday != 1 || out.ExistingPatientsToday != 1 {
		t.Fatalf("patient split = %d/%d, want 1/1", out.NewPatientsToday, out.ExistingPatientsToday)
	}
	if out.IntakeLinksSent != 1 {
		t.Fatalf("intakeLinksSent = %d, want 1", out.IntakeLinksSent)
	}
	if out.CallbacksNeeded != 1 {
		t.Fatalf("callbacksNeeded = %d, want 1", out.CallbacksNeeded)
	}
}

func TestComputeStats_SpecimenRecord(t *testing.T) {
	records := []airtable.CallRecord{
		rec(testNow.Format(time.RFC3339), "new", true, false),
	}
	out := computeStatsAt(records, testNow)
	if out.TotalCallsToday != 1 || out.NewPatientsToday != 1 || out.ExistingPatientsToday != 0 || out.IntakeLinksSent != 1 {
		t.Fatalf("unexpected stats: %+v", out)
	}
}

func TestComputeStats_MalformedTimestampsExcluded(t *testing.T) {
	records := []airtable.CallRecord{
		rec("not-a-date", "new", true, true),
		rec("", "new", true, true),
		rec("2026-08-29T10:00:00Z", "new", false, false),
	}
	out := computeStatsAt(records, testNow)
	if out.TotalCallsToday != 1 {
		t.Fatalf("totalCallsToday = %d, want only the valid record", out.TotalCallsToday)
	}
	if out.IntakeLinksSent != 0 || out.CallbacksNeeded != 0 {
		t.Fatalf("malformed records leaked into counts: %+v", out)
	}
	total := 0
	for _, d := range out.WeeklyData {
		total += d.Count
	}
	if total != 1 {
		t.Fatalf("weekly total = %d, want 1", total)
	}
}

func TestComputeStats_WeeklySeriesComplete(t *testing.T) {
	for _, records := range [][]airtable.CallRecord{
		nil,
		{rec("2026-08-27T09:00:00Z", "new", false, false)},
	} {
		out := computeStatsAt(records, testNow)
		if len(out.WeeklyData) != 7 {
			t.Fatalf("weekly series has %d entries, want 7", len(out.WeeklyData))
		}
		for i, d := range out.WeeklyData {
			want := testNow.AddDate(0, 0, i-6).Format("2006-01-02")
			if d.Date != want {
				t.Fatalf("entry %d date = %q, want %q", i, d.Date, want)
			}
		}
		if out.WeeklyData[6].Date != "2026-08-29" {
			t.Fatalf("series must end on today, got %q", out.WeeklyData[6].Date)
		}
	}
}

func TestComputeStats_WeeklyCountsPerDay(t *testing.T) {
	records := []airtable.CallRecord{
		rec("2026-08-23T09:00:00Z", "new", false, false), // oldest in-window day
		rec("2026-08-23T18:00:00Z", "new", false, false),
		rec("2026-08-22T09:00:00Z", "new", false, false), // outside window
		rec("2026-08-29T09:00:00Z", "existing", false, false),
	}
	out := computeStatsAt(records, testNow)
	if out.WeeklyData[0].Count != 2 {
		t.Fatalf("oldest day count = %d, want 2", out.WeeklyData[0].Count)
	}
	if out.WeeklyData[6].Count != 1 {
		t.Fatalf("today count = %d, want 1", out.WeeklyData[6].Count)
	}
}

func TestComputeStats_Idempotent(t *testing.T) {
	records := []airtable.CallRecord{
		rec("2026-08-29T10:00:00Z", "new", true, false),
		rec("bogus", "existing", false, true),
	}
	a := computeStatsAt(records, testNow)
	b := computeStatsAt(records, testNow)
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("aggregation is not deterministic: %+v vs %+v", a, b)
	}
}

func TestComputeStats_UnrecognizedPatientTypeFoldsToDefault(t *testing.T) {
	records := []airtable.CallRecord{
		rec("2026-08-29T10:00:00Z", "unknown-value", false, false),
		rec("2026-08-29T10:05:00Z", "", false, false),
	}
	out := computeStatsAt(records, testNow)
	if out.NewPatientsToday != 2 || out.ExistingPatientsToday != 0 {
		t.Fatalf("fold behavior changed: %+v", out)
	}
}

func TestComputeStats_EmptyInputZeroValues(t *testing.T) {
	out := computeStatsAt(nil, testNow)
	if out.TotalCallsToday != 0 || out.NewPatientsToday != 0 || out.ExistingPatientsToday != 0 ||
		out.IntakeLinksSent != 0 || out.CallbacksNeeded != 0 {
		t.Fatalf("expected zero stats, got %+v", out)
	}
	if len(out.WeeklyData) != 7 {
		t.Fatalf("weekly series has %d entries, want 7", len(out.WeeklyData))
	}
}

func TestRoundPct(t *testing.T) {
	cases := []struct {
		n, d, want int
	}{
		{0, 0, 0},
		{1, 0, 0},
		{1, 2, 50},
		{1, 3, 33},
		{2, 3, 67},
		{3, 3, 100},
	}
	for _, c := range cases {
		if got := roundPct(c.n, c.d); got != c.want {
			t.Fatalf("roundPct(%d, %d) = %d, want %d", c.n, c.d, got, c.want)
		}
	}
}
