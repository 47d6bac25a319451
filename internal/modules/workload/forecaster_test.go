package workload

import (
	"math"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uidai-ops/opsintel/internal/domain"
)

func testLogger() zerolog.Logger {
	return zerolog.New(nil).Level(zerolog.Disabled)
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// monthlyRecords builds one enrolment row per month carrying the given
// state-wide total in the adult bucket.
func monthlyRecords(firstMonth time.Time, totals ...int) []domain.EnrolmentRecord {
	records := make([]domain.EnrolmentRecord, len(totals))
	for i, total := range totals {
		records[i] = domain.EnrolmentRecord{
			Date:      firstMonth.AddDate(0, i, 0),
			District:  "Hyderabad",
			Age18Plus: total,
		}
	}
	return records
}

func TestForecast_FewerThanFourPointsReturnsHistoryOnly(t *testing.T) {
	records := monthlyRecords(date(2025, 1, 1), 1000, 1100, 1050)
	f := NewForecaster(records, testLogger())

	historical, forecast := f.Forecast(3)

	require.Len(t, historical, 3)
	assert.Empty(t, forecast)
	for _, p := range historical {
		assert.False(t, p.IsForecast)
	}
}

func TestForecast_FourPointsTwoPeriods(t *testing.T) {
	records := monthlyRecords(date(2025, 1, 1), 1000, 1100, 1050, 1200)
	f := NewForecaster(records, testLogger())

	historical, forecast := f.Forecast(2)

	require.Len(t, historical, 4)
	require.Len(t, forecast, 2)

	for i, p := range historical {
		assert.False(t, p.IsForecast)
		assert.Equal(t, date(2025, time.Month(1+i), 1), p.Date)
	}

	// Forecast starts one calendar month after the last historical month.
	assert.True(t, forecast[0].IsForecast)
	assert.Equal(t, date(2025, 5, 1), forecast[0].Date)
	assert.Equal(t, date(2025, 6, 1), forecast[1].Date)

	for _, p := range forecast {
		assert.False(t, math.IsNaN(p.TotalEnrolments), "forecast value must be finite")
		assert.False(t, math.IsInf(p.TotalEnrolments, 0), "forecast value must be finite")
	}
}

func TestForecast_ZeroPeriods(t *testing.T) {
	records := monthlyRecords(date(2025, 1, 1), 1000, 1100, 1050, 1200)
	f := NewForecaster(records, testLogger())

	historical, forecast := f.Forecast(0)
	assert.Len(t, historical, 4)
	assert.Empty(t, forecast)
}

func TestFallbackForecast_CompoundsGrowth(t *testing.T) {
	f := NewForecaster(nil, testLogger())

	values := f.fallbackForecast([]float64{900, 1000, 1100, 1200}, 3)
	require.Len(t, values, 3)

	avg := (1000.0 + 1100.0 + 1200.0) / 3.0
	assert.InDelta(t, avg, values[0], 1e-9)
	assert.InDelta(t, avg*1.02, values[1], 1e-9)
	assert.InDelta(t, avg*1.02*1.02, values[2], 1e-9)
}

func TestFitHolt_ConvergesOnLinearSeries(t *testing.T) {
	fit, err := fitHolt([]float64{100, 110, 120, 130, 140, 150})
	require.NoError(t, err)

	// A clean linear trend should extrapolate close to the next steps.
	values := fit.forecast(2)
	assert.InDelta(t, 160, values[0], 20)
	assert.InDelta(t, 170, values[1], 30)
}

func TestMandatoryUpdateProjection_CohortRatios(t *testing.T) {
	records := []domain.EnrolmentRecord{
		{Date: date(2025, 1, 1), District: "A", Age0to5: 600, Age5to17: 1300},
	}
	f := NewForecaster(records, testLogger())

	projections := f.MandatoryUpdateProjection()
	require.Len(t, projections, 1)

	p := projections[0]
	assert.Equal(t, 100, p.ProjectedAge5Updates)
	assert.Equal(t, 100, p.ProjectedAge15Updates)
	assert.Equal(t, 200, p.TotalProjectedUpdates)
}

func TestMandatoryUpdateProjection_SortedDescending(t *testing.T) {
	records := []domain.EnrolmentRecord{
		{Date: date(2025, 1, 1), District: "Small", Age0to5: 60},
		{Date: date(2025, 1, 1), District: "Big", Age0to5: 6000},
	}
	f := NewForecaster(records, testLogger())

	projections := f.MandatoryUpdateProjection()
	require.Len(t, projections, 2)
	assert.Equal(t, "Big", projections[0].District)
}

func TestMandatoryUpdateProjection_OrderInvariant(t *testing.T) {
	a := []domain.EnrolmentRecord{
		{Date: date(2025, 1, 1), District: "X", Age0to5: 30, Age5to17: 130},
		{Date: date(2025, 2, 1), District: "Y", Age0to5: 90, Age5to17: 26},
		{Date: date(2025, 3, 1), District: "X", Age0to5: 30, Age5to17: 130},
	}
	b := []domain.EnrolmentRecord{a[1], a[2], a[0]}

	pa := NewForecaster(a, testLogger()).MandatoryUpdateProjection()
	pb := NewForecaster(b, testLogger()).MandatoryUpdateProjection()
	assert.Equal(t, pa, pb)

	for _, p := range pa {
		assert.GreaterOrEqual(t, p.TotalProjectedUpdates, 0)
	}
}

func TestHighLoadDistricts_Limit(t *testing.T) {
	records := []domain.EnrolmentRecord{
		{Date: date(2025, 1, 1), District: "A", Age0to5: 600},
		{Date: date(2025, 1, 1), District: "B", Age0to5: 1200},
		{Date: date(2025, 1, 1), District: "C", Age0to5: 60},
	}
	f := NewForecaster(records, testLogger())

	top := f.HighLoadDistricts(2)
	require.Len(t, top, 2)
	assert.Equal(t, "B", top[0].District)
	assert.Equal(t, "A", top[1].District)
}

func TestWorkloadSummary_EmptyDistricts(t *testing.T) {
	f := NewForecaster(nil, testLogger())

	s := f.WorkloadSummary()
	assert.Equal(t, "N/A", s.MaxDistrict)
	assert.Equal(t, 0, s.MaxDistrictLoad)
	assert.Equal(t, 0, s.TotalProjectedUpdates)
}

func TestWorkloadSummary_Totals(t *testing.T) {
	records := []domain.EnrolmentRecord{
		{Date: date(2025, 1, 1), District: "A", Age0to5: 600, Age5to17: 1300},
		{Date: date(2025, 1, 1), District: "B", Age0to5: 60, Age5to17: 130},
	}
	f := NewForecaster(records, testLogger())

	s := f.WorkloadSummary()
	assert.Equal(t, 220, s.TotalProjectedUpdates)
	assert.Equal(t, 110, s.AvgPerDistrict)
	assert.Equal(t, "A", s.MaxDistrict)
	assert.Equal(t, 200, s.MaxDistrictLoad)
	assert.Equal(t, 110, s.Age5Total)
	assert.Equal(t, 110, s.Age15Total)
}

func TestMonthlyTrend_AggregatesAcrossDistricts(t *testing.T) {
	records := []domain.EnrolmentRecord{
		{Date: date(2025, 1, 10), District: "A", Age18Plus: 100},
		{Date: date(2025, 1, 20), District: "B", Age18Plus: 200},
		{Date: date(2025, 2, 5), District: "A", Age18Plus: 50},
	}
	f := NewForecaster(records, testLogger())

	trend := f.MonthlyTrend()
	require.Len(t, trend, 2)
	assert.Equal(t, 300, trend[0].Total)
	assert.Equal(t, 50, trend[1].Total)
}
