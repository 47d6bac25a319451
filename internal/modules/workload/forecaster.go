// Package workload projects near-term enrolment volume and the mandatory
// biometric-update load implied by the enrolled age cohorts.
package workload

import (
	"math"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/uidai-ops/opsintel/internal/config"
	"github.com/uidai-ops/opsintel/internal/domain"
	"github.com/uidai-ops/opsintel/internal/modules/aggregate"
)

// Cohort divisors for the mandatory-update projection. The age_0_5 bucket
// spans roughly six year-cohorts and age_5_17 roughly thirteen; assuming a
// uniform age spread, one cohort per bucket hits a mandatory biometric
// update age (5 and 15) in the coming year. This is a stated heuristic, not
// a fitted demographic model.
const (
	age5CohortDivisor  = 6
	age15CohortDivisor = 13
)

// fallbackGrowthRate is the compounding per-period growth applied by the
// deterministic fallback estimator when the smoothing fit fails.
const fallbackGrowthRate = 0.02

// ForecastPoint is one point of the enrolment volume series, historical or
// extrapolated.
type ForecastPoint struct {
	Date            time.Time `json:"date"`
	TotalEnrolments float64   `json:"total_enrolments"`
	IsForecast      bool      `json:"is_forecast"`
}

// Projection is the projected mandatory-update workload for one district.
type Projection struct {
	District              string `json:"district"`
	Age0to5               int    `json:"age_0_5"`
	Age5to17              int    `json:"age_5_17"`
	TotalEnrolments       int    `json:"total_enrolments"`
	ProjectedAge5Updates  int    `json:"projected_age_5_updates"`
	ProjectedAge15Updates int    `json:"projected_age_15_updates"`
	TotalProjectedUpdates int    `json:"total_projected_updates"`
}

// Summary holds the headline workload numbers.
type Summary struct {
	TotalProjectedUpdates int    `json:"total_projected_updates"`
	AvgPerDistrict        int    `json:"avg_per_district"`
	MaxDistrict           string `json:"max_district"`
	MaxDistrictLoad       int    `json:"max_district_load"`
	Age5Total             int    `json:"age_5_total"`
	Age15Total            int    `json:"age_15_total"`
}

// Forecaster computes enrolment volume forecasts and mandatory-update
// projections. Every method is a pure function of the record set the
// forecaster was built with.
type Forecaster struct {
	enrolment []domain.EnrolmentRecord
	log       zerolog.Logger
}

// NewForecaster creates a forecaster over an already-filtered enrolment set
func NewForecaster(enrolment []domain.EnrolmentRecord, log zerolog.Logger) *Forecaster {
	return &Forecaster{
		enrolment: enrolment,
		log:       log.With().Str("service", "workload").Logger(),
	}
}

// MonthlyTrend groups enrolments by calendar month, sorted ascending.
func (f *Forecaster) MonthlyTrend() []aggregate.MonthlyEnrolment {
	return aggregate.EnrolmentByMonth(f.enrolment)
}

// Forecast returns the historical monthly series plus periods extrapolated
// points. With fewer than four monthly observations there is not enough
// signal to fit anything: the history is returned as-is with an empty
// forecast, which is not an error.
func (f *Forecaster) Forecast(periods int) (historical, forecast []ForecastPoint) {
	trend := f.MonthlyTrend()

	historical = make([]ForecastPoint, len(trend))
	for i, m := range trend {
		historical[i] = ForecastPoint{
			Date:            m.Month,
			TotalEnrolments: float64(m.Total),
			IsForecast:      false,
		}
	}

	if len(trend) < config.MinForecastPoints || periods <= 0 {
		return historical, nil
	}

	series := make([]float64, len(trend))
	for i, m := range trend {
		series[i] = float64(m.Total)
	}

	lastMonth := trend[len(trend)-1].Month

	fit, err := fitHolt(series)
	var values []float64
	if err != nil {
		f.log.Debug().Err(err).Msg("Smoothing fit failed, using fallback estimator")
		values = f.fallbackForecast(series, periods)
	} else {
		values = fit.forecast(periods)
	}

	forecast = make([]ForecastPoint, periods)
	for i := 0; i < periods; i++ {
		forecast[i] = ForecastPoint{
			Date:            lastMonth.AddDate(0, i+1, 0),
			TotalEnrolments: values[i],
			IsForecast:      true,
		}
	}
	return historical, forecast
}

// fallbackForecast is the deterministic estimator used when the smoothing
// fit does not converge: the mean of the last three observations, each
// subsequent period compounding 2% growth over the prior one.
func (f *Forecaster) fallbackForecast(series []float64, periods int) []float64 {
	n := len(series)
	window := 3
	if n < window {
		window = n
	}
	var sum float64
	for _, v := range series[n-window:] {
		sum += v
	}
	avg := sum / float64(window)

	values := make([]float64, periods)
	v := avg
	for i := 0; i < periods; i++ {
		values[i] = v
		v *= 1 + fallbackGrowthRate
	}
	return values
}

// MandatoryUpdateProjection aggregates enrolment by district and applies the
// cohort divisors, sorted descending by projected total.
func (f *Forecaster) MandatoryUpdateProjection() []Projection {
	sums := aggregate.EnrolmentByDistrict(f.enrolment)

	out := make([]Projection, 0, len(sums))
	for district, s := range sums {
		age5 := int(math.Round(float64(s.Age0to5) / age5CohortDivisor))
		age15 := int(math.Round(float64(s.Age5to17) / age15CohortDivisor))
		out = append(out, Projection{
			District:              district,
			Age0to5:               s.Age0to5,
			Age5to17:              s.Age5to17,
			TotalEnrolments:       s.Total,
			ProjectedAge5Updates:  age5,
			ProjectedAge15Updates: age15,
			TotalProjectedUpdates: age5 + age15,
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].TotalProjectedUpdates != out[j].TotalProjectedUpdates {
			return out[i].TotalProjectedUpdates > out[j].TotalProjectedUpdates
		}
		return out[i].District < out[j].District
	})
	return out
}

// HighLoadDistricts returns the topN districts by projected update load.
func (f *Forecaster) HighLoadDistricts(topN int) []Projection {
	projections := f.MandatoryUpdateProjection()
	if topN > 0 && topN < len(projections) {
		projections = projections[:topN]
	}
	return projections
}

// WorkloadSummary computes the headline numbers over all districts. An
// empty district set yields "N/A" and zeroes rather than an error.
func (f *Forecaster) WorkloadSummary() Summary {
	projections := f.MandatoryUpdateProjection()

	s := Summary{MaxDistrict: "N/A"}
	if len(projections) == 0 {
		return s
	}

	for _, p := range projections {
		s.TotalProjectedUpdates += p.TotalProjectedUpdates
		s.Age5Total += p.ProjectedAge5Updates
		s.Age15Total += p.ProjectedAge15Updates
	}
	s.AvgPerDistrict = int(float64(s.TotalProjectedUpdates) / float64(len(projections)))
	s.MaxDistrict = projections[0].District
	s.MaxDistrictLoad = projections[0].TotalProjectedUpdates
	return s
}
