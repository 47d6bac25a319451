package aggregate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uidai-ops/opsintel/internal/domain"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestEnrolmentRecord_TotalIsSumOfBuckets(t *testing.T) {
	r := domain.EnrolmentRecord{Age0to5: 10, Age5to17: 20, Age18Plus: 30}
	assert.Equal(t, 60, r.TotalEnrolments())
}

func TestEnrolmentByDistrict_SumsAcrossRows(t *testing.T) {
	records := []domain.EnrolmentRecord{
		{Date: date(2025, 1, 5), District: "Hyderabad", Age0to5: 10, Age5to17: 20, Age18Plus: 30},
		{Date: date(2025, 2, 5), District: "Hyderabad", Age0to5: 5, Age5to17: 5, Age18Plus: 10},
		{Date: date(2025, 1, 5), District: "Medak", Age0to5: 1, Age5to17: 2, Age18Plus: 3},
	}

	sums := EnrolmentByDistrict(records)
	require.Len(t, sums, 2)
	assert.Equal(t, 15, sums["Hyderabad"].Age0to5)
	assert.Equal(t, 25, sums["Hyderabad"].Age5to17)
	assert.Equal(t, 40, sums["Hyderabad"].Age18Plus)
	assert.Equal(t, 80, sums["Hyderabad"].Total)
	assert.Equal(t, 6, sums["Medak"].Total)
}

func TestEnrolmentByDistrict_OrderIndependent(t *testing.T) {
	a := []domain.EnrolmentRecord{
		{Date: date(2025, 1, 1), District: "A", Age0to5: 1, Age5to17: 2, Age18Plus: 3},
		{Date: date(2025, 1, 2), District: "B", Age0to5: 4, Age5to17: 5, Age18Plus: 6},
		{Date: date(2025, 1, 3), District: "A", Age0to5: 7, Age5to17: 8, Age18Plus: 9},
	}
	b := []domain.EnrolmentRecord{a[2], a[0], a[1]}

	assert.Equal(t, EnrolmentByDistrict(a), EnrolmentByDistrict(b))
}

func TestEnrolmentByMonth_TruncatesAndSorts(t *testing.T) {
	records := []domain.EnrolmentRecord{
		{Date: date(2025, 3, 15), District: "A", Age18Plus: 100},
		{Date: date(2025, 1, 20), District: "A", Age18Plus: 50},
		{Date: date(2025, 1, 7), District: "B", Age18Plus: 25},
	}

	monthly := EnrolmentByMonth(records)
	require.Len(t, monthly, 2)
	assert.Equal(t, date(2025, 1, 1), monthly[0].Month)
	assert.Equal(t, 75, monthly[0].Total)
	assert.Equal(t, date(2025, 3, 1), monthly[1].Month)
	assert.Equal(t, 100, monthly[1].Total)
}

func TestEnrolmentByDay_SortedStateWideTotals(t *testing.T) {
	records := []domain.EnrolmentRecord{
		{Date: date(2025, 1, 2), District: "A", Age18Plus: 10},
		{Date: date(2025, 1, 1), District: "A", Age18Plus: 5},
		{Date: date(2025, 1, 2), District: "B", Age18Plus: 20},
	}

	days, totals := EnrolmentByDay(records)
	require.Len(t, days, 2)
	assert.Equal(t, date(2025, 1, 1), days[0])
	assert.Equal(t, []float64{5, 30}, totals)
}

func TestSafeRatio_ZeroDenominator(t *testing.T) {
	assert.Equal(t, 0.0, SafeRatio(50, 0))
	assert.Equal(t, 0.5, SafeRatio(1, 2))
}

func TestUnionKeys_FullOuterUnion(t *testing.T) {
	a := map[string]int{"x": 1, "y": 2}
	b := map[string]int{"y": 3, "z": 4}

	keys := UnionKeys(a, b)
	assert.ElementsMatch(t, []string{"x", "y", "z"}, keys)
}

func TestCombineDistricts_OuterJoinZeroFill(t *testing.T) {
	enrolment := []domain.EnrolmentRecord{
		{Date: date(2025, 1, 1), District: "A", Age0to5: 100, Age5to17: 200, Age18Plus: 700},
	}
	demographic := []domain.UpdateRecord{
		{Date: date(2025, 1, 1), District: "A", Age17Plus: 500},
		{Date: date(2025, 1, 1), District: "B", Age17Plus: 50},
	}
	biometric := []domain.UpdateRecord{
		{Date: date(2025, 1, 1), District: "A", Age5to17: 1000},
	}

	rows := CombineDistricts(enrolment, demographic, biometric)
	require.Len(t, rows, 2)

	byName := map[string]DistrictAggregate{}
	for _, r := range rows {
		byName[r.District] = r
	}

	a := byName["A"]
	assert.Equal(t, 1000, a.TotalEnrolments)
	assert.InDelta(t, 0.5, a.MigrationRatio, 1e-9)
	assert.InDelta(t, 0.5, a.UpdateLoadRatio, 1e-9)

	// District B has demo updates but no enrolments: present, zero ratios.
	b := byName["B"]
	assert.Equal(t, 0, b.TotalEnrolments)
	assert.Equal(t, 50, b.TotalDemoUpdates)
	assert.Equal(t, 0.0, b.MigrationRatio)
	assert.Equal(t, 0.0, b.UpdateLoadRatio)
}

func TestCombineDistricts_MissingStreamsTolerated(t *testing.T) {
	enrolment := []domain.EnrolmentRecord{
		{Date: date(2025, 1, 1), District: "A", Age18Plus: 10},
	}

	rows := CombineDistricts(enrolment, nil, nil)
	require.Len(t, rows, 1)
	assert.Equal(t, 10, rows[0].TotalEnrolments)
	assert.Equal(t, 0.0, rows[0].MigrationRatio)
}

func TestMonthOf(t *testing.T) {
	assert.Equal(t, date(2025, 6, 1), MonthOf(date(2025, 6, 28)))
}
