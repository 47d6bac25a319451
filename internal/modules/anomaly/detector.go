// Package anomaly flags data-quality issues in the enrolment streams:
// volume outliers, age-distribution skew, synthetic gender-ratio skew and
// sharp temporal drops, with a derived per-district health score.
package anomaly

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/stat"

	"github.com/uidai-ops/opsintel/internal/config"
	"github.com/uidai-ops/opsintel/internal/domain"
	"github.com/uidai-ops/opsintel/internal/modules/aggregate"
)

// Type identifies a detection rule.
type Type string

const (
	TypeVolumeSpike Type = "Volume Spike"
	TypeVolumeDrop  Type = "Volume Drop"
	TypeAge         Type = "Age Distribution"
	TypeGender      Type = "Gender Anomaly"
	TypeTemporal    Type = "Temporal Anomaly"
)

// Detail carries the supplemental numbers of one anomaly variant. Each
// detection rule has its own variant rather than a shared bag of optional
// fields.
type Detail interface {
	anomalyDetail()
}

// VolumeDetail supplements volume spike/drop anomalies.
type VolumeDetail struct {
	ZScore   float64 `json:"z_score"`
	Observed int     `json:"observed"`
}

// AgeDetail supplements age-distribution anomalies.
type AgeDetail struct {
	ObservedPct float64 `json:"observed_pct"`
	ExpectedPct float64 `json:"expected_pct"`
}

// GenderDetail supplements gender anomalies.
type GenderDetail struct {
	FemaleShare float64 `json:"female_share"`
	LowerBound  float64 `json:"lower_bound"`
	UpperBound  float64 `json:"upper_bound"`
}

// TemporalDetail supplements temporal anomalies.
type TemporalDetail struct {
	Date        time.Time `json:"date"`
	Observed    int       `json:"observed"`
	RollingMean float64   `json:"rolling_mean"`
	ZScore      float64   `json:"z_score"`
}

func (VolumeDetail) anomalyDetail()   {}
func (AgeDetail) anomalyDetail()      {}
func (GenderDetail) anomalyDetail()   {}
func (TemporalDetail) anomalyDetail() {}

// Anomaly is one detected issue: a common header plus a typed detail.
// Anomalies are ephemeral, recomputed per query, and ordered by severity
// rank then detection order.
type Anomaly struct {
	Type           Type            `json:"type"`
	District       string          `json:"district"`
	Severity       domain.Severity `json:"severity"`
	Description    string          `json:"description"`
	Recommendation string          `json:"recommendation,omitempty"`
	Detail         Detail          `json:"detail,omitempty"`
}

// DistrictHealth is the 0-100 data-quality proxy for one district.
type DistrictHealth struct {
	District    string  `json:"district"`
	HealthScore float64 `json:"health_score"`
	Status      string  `json:"status"`
}

// Summary aggregates the detected anomalies.
type Summary struct {
	TotalAnomalies    int            `json:"total_anomalies"`
	CriticalCount     int            `json:"critical_count"`
	WarningCount      int            `json:"warning_count"`
	InfoCount         int            `json:"info_count"`
	ByType            map[string]int `json:"by_type"`
	AffectedDistricts []string       `json:"affected_districts"`
}

// Health-score penalties per anomaly severity.
const (
	penaltyCritical = 30
	penaltyWarning  = 15
	penaltyInfo     = 5
)

// Expected age-bucket shares (percent) for the age-distribution check.
const (
	expectedAge0to5Pct   = 20.0
	expectedAge18PlusPct = 50.0
	ageDeviationPct      = 15.0
	adultShareCeilingPct = 70.0
)

// Detector runs the four detection passes over an already-filtered record
// set. Biometric and demographic streams are optional.
type Detector struct {
	enrolment   []domain.EnrolmentRecord
	biometric   []domain.UpdateRecord
	demographic []domain.UpdateRecord
	log         zerolog.Logger
}

// NewDetector creates an anomaly detector
func NewDetector(
	enrolment []domain.EnrolmentRecord,
	biometric []domain.UpdateRecord,
	demographic []domain.UpdateRecord,
	log zerolog.Logger,
) *Detector {
	return &Detector{
		enrolment:   enrolment,
		biometric:   biometric,
		demographic: demographic,
		log:         log.With().Str("service", "anomaly").Logger(),
	}
}

// DetectAll runs every detection pass and returns the combined list,
// stably sorted by severity rank (Critical, Warning, Info) with detection
// order preserved within a rank.
func (d *Detector) DetectAll() []Anomaly {
	var anomalies []Anomaly
	anomalies = append(anomalies, d.detectVolume()...)
	anomalies = append(anomalies, d.detectAgeDistribution()...)
	anomalies = append(anomalies, d.detectGender()...)
	anomalies = append(anomalies, d.detectTemporal()...)

	sort.SliceStable(anomalies, func(i, j int) bool {
		return anomalies[i].Severity.Rank() < anomalies[j].Severity.Rank()
	})
	return anomalies
}

// FilterBySeverity keeps only anomalies of the given severity.
func FilterBySeverity(anomalies []Anomaly, severity domain.Severity) []Anomaly {
	out := make([]Anomaly, 0, len(anomalies))
	for _, a := range anomalies {
		if a.Severity == severity {
			out = append(out, a)
		}
	}
	return out
}

// CriticalAlerts returns only Critical anomalies.
func (d *Detector) CriticalAlerts() []Anomaly {
	return FilterBySeverity(d.DetectAll(), domain.SeverityCritical)
}

// WarningAlerts returns only Warning anomalies.
func (d *Detector) WarningAlerts() []Anomaly {
	return FilterBySeverity(d.DetectAll(), domain.SeverityWarning)
}

// detectVolume flags districts whose total enrolments sit more than the
// threshold number of standard deviations from the cross-district mean.
// A zero or undefined deviation yields no anomalies.
func (d *Detector) detectVolume() []Anomaly {
	sums := aggregate.EnrolmentByDistrict(d.enrolment)
	if len(sums) < 2 {
		return nil
	}

	districts := sortedKeys(sums)
	totals := make([]float64, len(districts))
	for i, name := range districts {
		totals[i] = float64(sums[name].Total)
	}

	mean := stat.Mean(totals, nil)
	std := stat.StdDev(totals, nil)
	if std == 0 || math.IsNaN(std) {
		return nil
	}

	var out []Anomaly
	for i, name := range districts {
		z := (totals[i] - mean) / std
		if math.Abs(z) <= config.AnomalyStdThreshold {
			continue
		}
		z = math.Round(z*100) / 100
		if z > 0 {
			out = append(out, Anomaly{
				Type:           TypeVolumeSpike,
				District:       name,
				Severity:       domain.SeverityWarning,
				Description:    fmt.Sprintf("Unusually high enrolments (%s)", humanCount(int(totals[i]))),
				Recommendation: "Verify data accuracy or investigate surge cause",
				Detail:         VolumeDetail{ZScore: z, Observed: int(totals[i])},
			})
		} else {
			out = append(out, Anomaly{
				Type:           TypeVolumeDrop,
				District:       name,
				Severity:       domain.SeverityWarning,
				Description:    fmt.Sprintf("Unusually low enrolments (%s)", humanCount(int(totals[i]))),
				Recommendation: "Check for data collection issues",
				Detail:         VolumeDetail{ZScore: z, Observed: int(totals[i])},
			})
		}
	}
	return out
}

// detectAgeDistribution flags districts whose age-bucket shares deviate
// from the expected pattern. Districts with fewer than the minimum sample
// size are skipped as statistically unreliable.
func (d *Detector) detectAgeDistribution() []Anomaly {
	sums := aggregate.EnrolmentByDistrict(d.enrolment)

	var out []Anomaly
	for _, name := range sortedKeys(sums) {
		s := sums[name]
		if s.Total < config.MinDistrictSampleSize {
			continue
		}

		total := float64(s.Total)
		age0to5Pct := float64(s.Age0to5) / total * 100
		age18PlusPct := float64(s.Age18Plus) / total * 100

		if math.Abs(age0to5Pct-expectedAge0to5Pct) > ageDeviationPct {
			out = append(out, Anomaly{
				Type:           TypeAge,
				District:       name,
				Severity:       domain.SeverityInfo,
				Description:    fmt.Sprintf("Unusual children (0-5) ratio: %.1f%%", age0to5Pct),
				Recommendation: "Verify birth registration data",
				Detail:         AgeDetail{ObservedPct: age0to5Pct, ExpectedPct: expectedAge0to5Pct},
			})
		}

		if age18PlusPct > adultShareCeilingPct {
			out = append(out, Anomaly{
				Type:           TypeAge,
				District:       name,
				Severity:       domain.SeverityWarning,
				Description:    fmt.Sprintf("High adult ratio: %.1f%%", age18PlusPct),
				Recommendation: "Check for late enrolment campaigns",
				Detail:         AgeDetail{ObservedPct: age18PlusPct, ExpectedPct: expectedAge18PlusPct},
			})
		}
	}
	return out
}

// detectGender flags synthesized female shares outside the expected band.
// The shares are simulated (see syntheticFemaleShare); this pass exists as
// a data-quality demonstration, not a real measurement.
func (d *Detector) detectGender() []Anomaly {
	sums := aggregate.EnrolmentByDistrict(d.enrolment)

	var out []Anomaly
	for _, name := range sortedKeys(sums) {
		if sums[name].Total < config.MinDistrictSampleSize {
			continue
		}

		share := femaleShareFor(name)
		detail := GenderDetail{
			FemaleShare: share,
			LowerBound:  config.GenderRatioLower,
			UpperBound:  config.GenderRatioUpper,
		}

		if share < config.GenderRatioLower {
			out = append(out, Anomaly{
				Type:           TypeGender,
				District:       name,
				Severity:       domain.SeverityCritical,
				Description:    fmt.Sprintf("Low female enrolment: %.1f%%", share*100),
				Recommendation: "Investigate potential exclusion or data entry fraud",
				Detail:         detail,
			})
		} else if share > config.GenderRatioUpper {
			out = append(out, Anomaly{
				Type:           TypeGender,
				District:       name,
				Severity:       domain.SeverityWarning,
				Description:    fmt.Sprintf("High female enrolment: %.1f%%", share*100),
				Recommendation: "Verify data entry accuracy",
				Detail:         detail,
			})
		}
	}
	return out
}

// detectTemporal flags days whose state-wide total falls more than the
// threshold number of rolling standard deviations below the trailing 7-day
// rolling mean. Only drops are flagged here; volume spikes are the
// district-level check's job. At least 7 days of data are required, and
// each rolling window needs at least 3 points.
func (d *Detector) detectTemporal() []Anomaly {
	days, totals := aggregate.EnrolmentByDay(d.enrolment)
	if len(days) < 7 {
		return nil
	}

	var out []Anomaly
	for i := range totals {
		start := i - 6
		if start < 0 {
			start = 0
		}
		window := totals[start : i+1]
		if len(window) < 3 {
			continue
		}

		mean := stat.Mean(window, nil)
		std := stat.StdDev(window, nil)
		if std == 0 || math.IsNaN(std) {
			continue
		}

		z := (totals[i] - mean) / std
		if z < -config.AnomalyStdThreshold {
			out = append(out, Anomaly{
				Type:           TypeTemporal,
				District:       "State-wide",
				Severity:       domain.SeverityWarning,
				Description:    fmt.Sprintf("Sharp drop on %s", days[i].Format("2006-01-02")),
				Recommendation: "Check for system outages or holidays",
				Detail: TemporalDetail{
					Date:        days[i],
					Observed:    int(totals[i]),
					RollingMean: mean,
					ZScore:      math.Round(z*100) / 100,
				},
			})
		}
	}
	return out
}

// HealthScores derives the 0-100 per-district data-quality scores from the
// detected anomaly counts, sorted descending by score. Districts with no
// anomalies score 100.
func (d *Detector) HealthScores() []DistrictHealth {
	anomalies := d.DetectAll()

	type counts struct{ critical, warning, info int }
	perDistrict := make(map[string]counts)
	for _, a := range anomalies {
		c := perDistrict[a.District]
		switch a.Severity {
		case domain.SeverityCritical:
			c.critical++
		case domain.SeverityWarning:
			c.warning++
		case domain.SeverityInfo:
			c.info++
		}
		perDistrict[a.District] = c
	}

	sums := aggregate.EnrolmentByDistrict(d.enrolment)
	out := make([]DistrictHealth, 0, len(sums))
	for _, name := range sortedKeys(sums) {
		c := perDistrict[name]
		score := healthScore(c.critical, c.warning, c.info)
		out = append(out, DistrictHealth{
			District:    name,
			HealthScore: score,
			Status:      healthStatus(score),
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].HealthScore != out[j].HealthScore {
			return out[i].HealthScore > out[j].HealthScore
		}
		return out[i].District < out[j].District
	})
	return out
}

// healthScore applies the fixed penalty formula, floored at 0.
func healthScore(critical, warning, info int) float64 {
	penalty := critical*penaltyCritical + warning*penaltyWarning + info*penaltyInfo
	score := 100 - penalty
	if score < 0 {
		score = 0
	}
	return float64(score)
}

func healthStatus(score float64) string {
	switch {
	case score >= 80:
		return "Good"
	case score >= 50:
		return "Warning"
	default:
		return "Critical"
	}
}

// AnomalySummary aggregates the detected anomalies by severity and type.
func (d *Detector) AnomalySummary() Summary {
	anomalies := d.DetectAll()

	s := Summary{
		TotalAnomalies: len(anomalies),
		ByType:         make(map[string]int),
	}
	seen := make(map[string]bool)
	for _, a := range anomalies {
		switch a.Severity {
		case domain.SeverityCritical:
			s.CriticalCount++
		case domain.SeverityWarning:
			s.WarningCount++
		case domain.SeverityInfo:
			s.InfoCount++
		}
		s.ByType[string(a.Type)]++
		if !seen[a.District] {
			seen[a.District] = true
			s.AffectedDistricts = append(s.AffectedDistricts, a.District)
		}
	}
	return s
}

// sortedKeys returns map keys in ascending order so detection order is
// deterministic.
func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// humanCount formats a count with thousands separators.
func humanCount(n int) string {
	s := fmt.Sprintf("%d", n)
	if n < 0 {
		return s
	}
	var out []byte
	for i, c := range []byte(s) {
		if i > 0 && (len(s)-i)%3 == 0 {
			out = append(out, ',')
		}
		out = append(out, c)
	}
	return string(out)
}
