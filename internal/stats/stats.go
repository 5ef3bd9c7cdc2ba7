// Package stats computes dashboard rollups from clinic call records.
// Aggregation is pure: the clock is read once per call and no I/O happens here.
package stats

import (
	"math"
	"time"

	"clinicvoice-platform/internal/airtable"
)

const (
	PatientTypeNew      = "new"
	PatientTypeExisting = "existing"

	// DefaultPatientType is where unrecognized classifications are folded.
	// The store defines exactly two values; anything else counts as "new",
	// which matches the dashboard's historical behavior.
	DefaultPatientType = PatientTypeNew
)

const dateKeyLayout = "2006-01-02"

// weeklyDays is the length of the trailing series, current day included.
const weeklyDays = 7

type DailyCount struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// CallStats is the dashboard aggregate. JSON keys match the dashboard's
// existing contract.
type CallStats struct {
	TotalCallsToday       int          `json:"totalCallsToday"`
	NewPatientsToday      int          `json:"newPatientsToday"`
	ExistingPatientsToday int          `json:"existingPatientsToday"`
	IntakeLinksSent       int          `json:"intakeLinksSent"`
	CallbacksNeeded       int          `json:"callbacksNeeded"`
	WeeklyData            []DailyCount `json:"weeklyData"`
}

// ComputeStats aggregates records against the current local calendar day.
func ComputeStats(records []airtable.CallRecord) CallStats {
	return computeStatsAt(records, time.Now())
}

func computeStatsAt(records []airtable.CallRecord, now time.Time) CallStats {
	todayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	// Records whose timestamp is missing or unparseable are excluded from
	// every count rather than miscounted into today.
	type datedRecord struct {
		rec airtable.CallRecord
		at  time.Time
	}
	valid := make([]datedRecord, 0, len(records))
	for _, r := range records {
		at, ok := parseCreated(r.CreatedTime)
		if !ok {
			continue
		}
		valid = append(valid, datedRecord{rec: r, at: at})
	}

	out := CallStats{}
	for _, d := range valid {
		if d.at.Before(todayStart) {
			continue
		}
		out.TotalCallsToday++
		switch d.rec.PatientType {
		case PatientTypeExisting:
			out.ExistingPatientsToday++
		default:
			// Two-valued classification; unrecognized folds into the default.
			out.NewPatientsToday++
		}
		if d.rec.IntakeURLSent {
			out.IntakeLinksSent++
		}
		if d.rec.NeedsCallback {
			out.CallbacksNeeded++
		}
	}

	perDay := make(map[string]int, weeklyDays)
	for i := weeklyDays - 1; i >= 0; i-- {
		perDay[now.AddDate(0, 0, -i).Format(dateKeyLayout)] = 0
	}
	for _, d := range valid {
		key := d.at.In(now.Location()).Format(dateKeyLayout)
		if _, ok := perDay[key]; ok {
			perDay[key]++
		}
	}

	out.WeeklyData = make([]DailyCount, 0, weeklyDays)
	for i := weeklyDays - 1; i >= 0; i-- {
		key := now.AddDate(0, 0, -i).Format(dateKeyLayout)
		out.WeeklyData = append(out.WeeklyData, DailyCount{Date: key, Count: perDay[key]})
	}

	return out
}

var createdLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02",
}

func parseCreated(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range createdLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// roundPct is round(100*numerator/denominator) with a zero denominator
// yielding 0, never NaN.
func roundPct(numerator, denominator int) int {
	if denominator == 0 {
		return 0
	}
	return int(math.Round(100 * float64(numerator) / float64(denominator)))
}
