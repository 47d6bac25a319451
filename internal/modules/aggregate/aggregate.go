// Package aggregate provides the shared roll-ups consumed by the analytics
// modules: per-district and per-month sums over the three record streams,
// plus the derived district ratios.
package aggregate

import (
	"sort"
	"time"

	"github.com/uidai-ops/opsintel/internal/domain"
)

// EnrolmentSums holds summed enrolment counts for one grouping key.
type EnrolmentSums struct {
	Age0to5   int
	Age5to17  int
	Age18Plus int
	Total     int
}

// DistrictAggregate is the full per-district roll-up across all three
// streams, with the derived ratios. Recomputed on every query, never stored.
type DistrictAggregate struct {
	District         string  `json:"district"`
	TotalEnrolments  int     `json:"total_enrolments"`
	Age0to5          int     `json:"age_0_5"`
	Age5to17         int     `json:"age_5_17"`
	Age18Plus        int     `json:"age_18_greater"`
	TotalDemoUpdates int     `json:"total_demo_updates"`
	TotalBioUpdates  int     `json:"total_bio_updates"`
	MigrationRatio   float64 `json:"migration_ratio"`
	UpdateLoadRatio  float64 `json:"update_load_ratio"`
}

// MonthlyEnrolment is one month's summed enrolment counts.
type MonthlyEnrolment struct {
	Month     time.Time `json:"month"`
	Age0to5   int       `json:"age_0_5"`
	Age5to17  int       `json:"age_5_17"`
	Age18Plus int       `json:"age_18_greater"`
	Total     int       `json:"total_enrolments"`
}

// MonthOf truncates a date to the first of its calendar month (UTC).
func MonthOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// DayOf truncates a date to midnight (UTC).
func DayOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// EnrolmentByDistrict sums enrolment counts per district. Map iteration
// order is not guaranteed; consumers sort as needed.
func EnrolmentByDistrict(records []domain.EnrolmentRecord) map[string]EnrolmentSums {
	out := make(map[string]EnrolmentSums)
	for _, r := range records {
		s := out[r.District]
		s.Age0to5 += r.Age0to5
		s.Age5to17 += r.Age5to17
		s.Age18Plus += r.Age18Plus
		s.Total += r.TotalEnrolments()
		out[r.District] = s
	}
	return out
}

// EnrolmentByMonth sums enrolment counts per calendar month, sorted
// ascending by month.
func EnrolmentByMonth(records []domain.EnrolmentRecord) []MonthlyEnrolment {
	sums := make(map[time.Time]EnrolmentSums)
	for _, r := range records {
		m := MonthOf(r.Date)
		s := sums[m]
		s.Age0to5 += r.Age0to5
		s.Age5to17 += r.Age5to17
		s.Age18Plus += r.Age18Plus
		s.Total += r.TotalEnrolments()
		sums[m] = s
	}

	out := make([]MonthlyEnrolment, 0, len(sums))
	for m, s := range sums {
		out = append(out, MonthlyEnrolment{
			Month:     m,
			Age0to5:   s.Age0to5,
			Age5to17:  s.Age5to17,
			Age18Plus: s.Age18Plus,
			Total:     s.Total,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month.Before(out[j].Month) })
	return out
}

// EnrolmentByDay sums state-wide enrolment totals per day, sorted ascending.
// Used by the temporal anomaly check.
func EnrolmentByDay(records []domain.EnrolmentRecord) ([]time.Time, []float64) {
	sums := make(map[time.Time]int)
	for _, r := range records {
		sums[DayOf(r.Date)] += r.TotalEnrolments()
	}

	days := make([]time.Time, 0, len(sums))
	for d := range sums {
		days = append(days, d)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })

	totals := make([]float64, len(days))
	for i, d := range days {
		totals[i] = float64(sums[d])
	}
	return days, totals
}

// UpdatesByDistrict sums update totals per district.
func UpdatesByDistrict(records []domain.UpdateRecord) map[string]int {
	out := make(map[string]int)
	for _, r := range records {
		out[r.District] += r.TotalUpdates()
	}
	return out
}

// UpdatesByMonth sums update totals per calendar month.
func UpdatesByMonth(records []domain.UpdateRecord) map[time.Time]int {
	out := make(map[time.Time]int)
	for _, r := range records {
		out[MonthOf(r.Date)] += r.TotalUpdates()
	}
	return out
}

// UnionKeys returns the full outer union of the keys of any number of
// string-keyed groupings. This is the shared "outer join, fill zero" merge:
// a key present in any input appears exactly once in the output, and lookups
// against the individual maps default to zero for the missing side.
func UnionKeys[V any](maps ...map[string]V) []string {
	seen := make(map[string]bool)
	var keys []string
	for _, m := range maps {
		for k := range m {
			if !seen[k] {
				seen[k] = true
				keys = append(keys, k)
			}
		}
	}
	return keys
}

// UnionMonths is the month-keyed counterpart of UnionKeys, returned sorted
// ascending.
func UnionMonths[V any](maps ...map[time.Time]V) []time.Time {
	seen := make(map[time.Time]bool)
	var months []time.Time
	for _, m := range maps {
		for k := range m {
			if !seen[k] {
				seen[k] = true
				months = append(months, k)
			}
		}
	}
	sort.Slice(months, func(i, j int) bool { return months[i].Before(months[j]) })
	return months
}

// SafeRatio divides num by den, returning 0 on a zero or negative
// denominator. Ratio computations never raise and never produce NaN.
func SafeRatio(num, den float64) float64 {
	if den <= 0 {
		return 0
	}
	return num / den
}

// CombineDistricts joins all three streams per district (full outer join,
// missing sides zero-filled) and computes the derived ratios.
func CombineDistricts(
	enrolment []domain.EnrolmentRecord,
	demographic []domain.UpdateRecord,
	biometric []domain.UpdateRecord,
) []DistrictAggregate {
	enrolSums := EnrolmentByDistrict(enrolment)
	demoSums := UpdatesByDistrict(demographic)
	bioSums := UpdatesByDistrict(biometric)

	districts := UnionKeys(enrolSums)
	// Districts present only in an update stream still appear, zero-filled
	// on the enrolment side.
	for _, d := range UnionKeys(demoSums, bioSums) {
		if _, ok := enrolSums[d]; !ok {
			districts = append(districts, d)
		}
	}

	out := make([]DistrictAggregate, 0, len(districts))
	for _, d := range districts {
		e := enrolSums[d]
		demo := demoSums[d]
		bio := bioSums[d]
		out = append(out, DistrictAggregate{
			District:         d,
			TotalEnrolments:  e.Total,
			Age0to5:          e.Age0to5,
			Age5to17:         e.Age5to17,
			Age18Plus:        e.Age18Plus,
			TotalDemoUpdates: demo,
			TotalBioUpdates:  bio,
			MigrationRatio:   SafeRatio(float64(demo), float64(e.Total)),
			UpdateLoadRatio:  SafeRatio(float64(bio), float64(e.Total+bio)),
		})
	}
	return out
}
