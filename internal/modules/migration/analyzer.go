// Package migration classifies districts by inward-migration intensity from
// the ratio of demographic (address-change) updates to new enrolments.
package migration

import (
	"math"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/uidai-ops/opsintel/internal/config"
	"github.com/uidai-ops/opsintel/internal/domain"
	"github.com/uidai-ops/opsintel/internal/modules/aggregate"
)

// Migration categories.
const (
	CategoryHigh     = "High Migration (Urban Hub)"
	CategoryModerate = "Moderate Migration"
	CategoryStable   = "Stable (Rural)"
	CategoryNoData   = "No Data"
)

// DistrictIntensity is the per-district migration metric set.
type DistrictIntensity struct {
	District           string  `json:"district"`
	TotalEnrolments    int     `json:"total_enrolments"`
	TotalDemoUpdates   int     `json:"total_demo_updates"`
	MigrationRatio     float64 `json:"migration_ratio"`
	MigrationCategory  string  `json:"migration_category"`
	MigrationIntensity float64 `json:"migration_intensity"`
}

// MonthlyTrend is one month of the state-wide migration series.
type MonthlyTrend struct {
	Date           time.Time `json:"date"`
	Enrolments     int       `json:"enrolments"`
	DemoUpdates    int       `json:"demo_updates"`
	MigrationRatio float64   `json:"migration_ratio"`
}

// Summary holds the headline migration numbers.
type Summary struct {
	TotalDistricts         int      `json:"total_districts"`
	HighMigrationCount     int      `json:"high_migration_count"`
	ModerateMigrationCount int      `json:"moderate_migration_count"`
	LowMigrationCount      int      `json:"low_migration_count"`
	AvgMigrationRatio      float64  `json:"avg_migration_ratio"`
	MaxMigrationDistrict   string   `json:"max_migration_district"`
	MaxMigrationRatio      float64  `json:"max_migration_ratio"`
	HighMigrationDistricts []string `json:"high_migration_districts"`
}

// Analyzer computes migration metrics over an already-filtered record set.
type Analyzer struct {
	enrolment   []domain.EnrolmentRecord
	demographic []domain.UpdateRecord
	log         zerolog.Logger
}

// NewAnalyzer creates a migration analyzer. A nil demographic stream is
// tolerated: its contributions are zero.
func NewAnalyzer(enrolment []domain.EnrolmentRecord, demographic []domain.UpdateRecord, log zerolog.Logger) *Analyzer {
	return &Analyzer{
		enrolment:   enrolment,
		demographic: demographic,
		log:         log.With().Str("service", "migration").Logger(),
	}
}

// Classify maps a migration ratio to its category band.
func Classify(ratio float64) string {
	switch {
	case ratio >= config.MigrationThresholdHigh:
		return CategoryHigh
	case ratio >= config.MigrationThresholdMedium:
		return CategoryModerate
	default:
		return CategoryStable
	}
}

// Intensity joins enrolments and demographic updates per district (outer
// join, zero-filled), computes the migration ratio and category, and scores
// each district 0-100 by percentile rank of its ratio within the current
// district set. The rank is relative: the same district's score shifts as
// the filtered set changes. Sorted descending by ratio.
func (a *Analyzer) Intensity() []DistrictIntensity {
	enrolSums := aggregate.EnrolmentByDistrict(a.enrolment)
	demoSums := aggregate.UpdatesByDistrict(a.demographic)

	enrolTotals := make(map[string]int, len(enrolSums))
	for d, s := range enrolSums {
		enrolTotals[d] = s.Total
	}

	districts := aggregate.UnionKeys(enrolTotals, demoSums)

	out := make([]DistrictIntensity, 0, len(districts))
	for _, d := range districts {
		enrol := enrolTotals[d]
		demo := demoSums[d]
		ratio := aggregate.SafeRatio(float64(demo), float64(enrol))
		out = append(out, DistrictIntensity{
			District:          d,
			TotalEnrolments:   enrol,
			TotalDemoUpdates:  demo,
			MigrationRatio:    ratio,
			MigrationCategory: Classify(ratio),
		})
	}

	applyPercentileRank(out)

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].MigrationRatio != out[j].MigrationRatio {
			return out[i].MigrationRatio > out[j].MigrationRatio
		}
		return out[i].District < out[j].District
	})
	return out
}

// applyPercentileRank sets MigrationIntensity to the percentile rank
// (0-100, ties averaged) of each district's ratio. All-zero ratios score 0.
func applyPercentileRank(rows []DistrictIntensity) {
	n := len(rows)
	if n == 0 {
		return
	}

	maxRatio := 0.0
	for _, r := range rows {
		if r.MigrationRatio > maxRatio {
			maxRatio = r.MigrationRatio
		}
	}
	if maxRatio <= 0 {
		return
	}

	// Average rank per value: 1-based ranks over the sorted ratios, tied
	// values sharing the mean of their rank positions.
	sorted := make([]float64, n)
	for i, r := range rows {
		sorted[i] = r.MigrationRatio
	}
	sort.Float64s(sorted)

	avgRank := make(map[float64]float64, n)
	for i := 0; i < n; {
		j := i
		for j < n && sorted[j] == sorted[i] {
			j++
		}
		// Ranks i+1 .. j, averaged
		avgRank[sorted[i]] = float64(i+1+j) / 2.0
		i = j
	}

	for i := range rows {
		pct := avgRank[rows[i].MigrationRatio] / float64(n) * 100
		rows[i].MigrationIntensity = math.Round(pct*10) / 10
	}
}

// Trends returns the monthly state-wide migration series: enrolments and
// demographic updates merged on month (outer join, zero-filled), sorted
// ascending.
func (a *Analyzer) Trends() []MonthlyTrend {
	enrolMonths := make(map[time.Time]int)
	for _, r := range a.enrolment {
		enrolMonths[aggregate.MonthOf(r.Date)] += r.TotalEnrolments()
	}
	demoMonths := aggregate.UpdatesByMonth(a.demographic)

	months := aggregate.UnionMonths(enrolMonths, demoMonths)

	out := make([]MonthlyTrend, 0, len(months))
	for _, m := range months {
		enrol := enrolMonths[m]
		demo := demoMonths[m]
		out = append(out, MonthlyTrend{
			Date:           m,
			Enrolments:     enrol,
			DemoUpdates:    demo,
			MigrationRatio: aggregate.SafeRatio(float64(demo), float64(enrol)),
		})
	}
	return out
}

// HighMigrationDistricts returns the topN districts by migration ratio.
func (a *Analyzer) HighMigrationDistricts(topN int) []DistrictIntensity {
	intensity := a.Intensity()
	if topN > 0 && topN < len(intensity) {
		intensity = intensity[:topN]
	}
	return intensity
}

// LowMigrationDistricts returns the topN most stable districts, sorted
// ascending by ratio.
func (a *Analyzer) LowMigrationDistricts(topN int) []DistrictIntensity {
	intensity := a.Intensity()
	if topN > 0 && topN < len(intensity) {
		intensity = intensity[len(intensity)-topN:]
	}
	// Reverse into ascending order
	out := make([]DistrictIntensity, len(intensity))
	for i, row := range intensity {
		out[len(intensity)-1-i] = row
	}
	return out
}

// MigrationSummary counts districts per category and identifies the
// highest-ratio district (first row of the descending sort on ties).
func (a *Analyzer) MigrationSummary() Summary {
	intensity := a.Intensity()

	s := Summary{
		TotalDistricts:         len(intensity),
		MaxMigrationDistrict:   "N/A",
		HighMigrationDistricts: []string{},
	}
	if len(intensity) == 0 {
		return s
	}

	var ratioSum float64
	for _, row := range intensity {
		ratioSum += row.MigrationRatio
		switch row.MigrationCategory {
		case CategoryHigh:
			s.HighMigrationCount++
			s.HighMigrationDistricts = append(s.HighMigrationDistricts, row.District)
		case CategoryModerate:
			s.ModerateMigrationCount++
		default:
			s.LowMigrationCount++
		}
	}

	s.AvgMigrationRatio = math.Round(ratioSum/float64(len(intensity))*100) / 100
	s.MaxMigrationDistrict = intensity[0].District
	s.MaxMigrationRatio = math.Round(intensity[0].MigrationRatio*100) / 100
	return s
}

// Choropleth left-joins the canonical district list onto the intensity
// rows so every known district appears in map output, "No Data" for
// districts absent from the filtered aggregates. Sorted descending by ratio.
func (a *Analyzer) Choropleth() []DistrictIntensity {
	intensity := a.Intensity()
	byDistrict := make(map[string]DistrictIntensity, len(intensity))
	for _, row := range intensity {
		byDistrict[row.District] = row
	}

	out := make([]DistrictIntensity, 0, len(config.Districts))
	for _, d := range config.Districts {
		if row, ok := byDistrict[d]; ok {
			out = append(out, row)
			continue
		}
		out = append(out, DistrictIntensity{
			District:          d,
			MigrationCategory: CategoryNoData,
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].MigrationRatio != out[j].MigrationRatio {
			return out[i].MigrationRatio > out[j].MigrationRatio
		}
		return out[i].District < out[j].District
	})
	return out
}
