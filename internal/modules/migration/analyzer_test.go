package migration

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uidai-ops/opsintel/internal/config"
	"github.com/uidai-ops/opsintel/internal/domain"
)

func testLogger() zerolog.Logger {
	return zerolog.New(nil).Level(zerolog.Disabled)
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func enrolRow(district string, total int, d time.Time) domain.EnrolmentRecord {
	return domain.EnrolmentRecord{Date: d, District: district, Age18Plus: total}
}

func demoRow(district string, total int, d time.Time) domain.UpdateRecord {
	return domain.UpdateRecord{Date: d, District: district, Age17Plus: total}
}

func TestClassify_ThresholdBands(t *testing.T) {
	assert.Equal(t, CategoryHigh, Classify(0.7))
	assert.Equal(t, CategoryHigh, Classify(1.5))
	assert.Equal(t, CategoryModerate, Classify(0.4))
	assert.Equal(t, CategoryModerate, Classify(0.69))
	assert.Equal(t, CategoryStable, Classify(0.39))
	assert.Equal(t, CategoryStable, Classify(0))
}

func TestIntensity_RatioAndCategory(t *testing.T) {
	d := date(2025, 1, 1)
	a := NewAnalyzer(
		[]domain.EnrolmentRecord{enrolRow("Urban", 1000, d), enrolRow("Rural", 1000, d)},
		[]domain.UpdateRecord{demoRow("Urban", 800, d), demoRow("Rural", 100, d)},
		testLogger(),
	)

	rows := a.Intensity()
	require.Len(t, rows, 2)

	// Sorted descending by ratio.
	assert.Equal(t, "Urban", rows[0].District)
	assert.InDelta(t, 0.8, rows[0].MigrationRatio, 1e-9)
	assert.Equal(t, CategoryHigh, rows[0].MigrationCategory)

	assert.Equal(t, "Rural", rows[1].District)
	assert.InDelta(t, 0.1, rows[1].MigrationRatio, 1e-9)
	assert.Equal(t, CategoryStable, rows[1].MigrationCategory)
}

func TestIntensity_ZeroEnrolmentsNoDivisionError(t *testing.T) {
	d := date(2025, 1, 1)
	a := NewAnalyzer(
		nil,
		[]domain.UpdateRecord{demoRow("B", 50, d)},
		testLogger(),
	)

	rows := a.Intensity()
	require.Len(t, rows, 1)
	assert.Equal(t, 0.0, rows[0].MigrationRatio)
	assert.Equal(t, CategoryStable, rows[0].MigrationCategory)
}

func TestIntensity_PercentileRankBounds(t *testing.T) {
	d := date(2025, 1, 1)
	a := NewAnalyzer(
		[]domain.EnrolmentRecord{
			enrolRow("A", 1000, d), enrolRow("B", 1000, d), enrolRow("C", 1000, d),
		},
		[]domain.UpdateRecord{
			demoRow("A", 900, d), demoRow("B", 500, d), demoRow("C", 100, d),
		},
		testLogger(),
	)

	rows := a.Intensity()
	require.Len(t, rows, 3)

	for _, r := range rows {
		assert.GreaterOrEqual(t, r.MigrationIntensity, 0.0)
		assert.LessOrEqual(t, r.MigrationIntensity, 100.0)
	}

	// Distinct ratios: the max-ratio district ranks at the top percentile.
	assert.Equal(t, "A", rows[0].District)
	assert.Equal(t, 100.0, rows[0].MigrationIntensity)
}

func TestIntensity_TiedRatiosShareAveragedRank(t *testing.T) {
	d := date(2025, 1, 1)
	a := NewAnalyzer(
		[]domain.EnrolmentRecord{enrolRow("A", 1000, d), enrolRow("B", 1000, d)},
		[]domain.UpdateRecord{demoRow("A", 500, d), demoRow("B", 500, d)},
		testLogger(),
	)

	rows := a.Intensity()
	require.Len(t, rows, 2)
	// Ranks 1 and 2 averaged to 1.5 of 2 -> 75.
	assert.Equal(t, 75.0, rows[0].MigrationIntensity)
	assert.Equal(t, 75.0, rows[1].MigrationIntensity)
}

func TestTrends_OuterJoinZeroFill(t *testing.T) {
	a := NewAnalyzer(
		[]domain.EnrolmentRecord{enrolRow("A", 100, date(2025, 1, 15))},
		[]domain.UpdateRecord{demoRow("A", 50, date(2025, 2, 15))},
		testLogger(),
	)

	trends := a.Trends()
	require.Len(t, trends, 2)

	assert.Equal(t, date(2025, 1, 1), trends[0].Date)
	assert.Equal(t, 100, trends[0].Enrolments)
	assert.Equal(t, 0, trends[0].DemoUpdates)
	assert.Equal(t, 0.0, trends[0].MigrationRatio)

	// Month with demo updates but no enrolments: zero-safe ratio.
	assert.Equal(t, date(2025, 2, 1), trends[1].Date)
	assert.Equal(t, 0, trends[1].Enrolments)
	assert.Equal(t, 50, trends[1].DemoUpdates)
	assert.Equal(t, 0.0, trends[1].MigrationRatio)
}

func TestMigrationSummary_CategoryPartition(t *testing.T) {
	d := date(2025, 1, 1)
	a := NewAnalyzer(
		[]domain.EnrolmentRecord{
			enrolRow("High", 1000, d), enrolRow("Mid", 1000, d),
			enrolRow("Low1", 1000, d), enrolRow("Low2", 1000, d),
		},
		[]domain.UpdateRecord{
			demoRow("High", 900, d), demoRow("Mid", 500, d), demoRow("Low1", 100, d),
		},
		testLogger(),
	)

	s := a.MigrationSummary()
	assert.Equal(t, 4, s.TotalDistricts)
	assert.Equal(t, 1, s.HighMigrationCount)
	assert.Equal(t, 1, s.ModerateMigrationCount)
	assert.Equal(t, 2, s.LowMigrationCount)
	assert.Equal(t, s.TotalDistricts, s.HighMigrationCount+s.ModerateMigrationCount+s.LowMigrationCount)

	assert.Equal(t, "High", s.MaxMigrationDistrict)
	assert.InDelta(t, 0.9, s.MaxMigrationRatio, 1e-9)
	assert.Equal(t, []string{"High"}, s.HighMigrationDistricts)
}

func TestMigrationSummary_Empty(t *testing.T) {
	a := NewAnalyzer(nil, nil, testLogger())

	s := a.MigrationSummary()
	assert.Equal(t, 0, s.TotalDistricts)
	assert.Equal(t, "N/A", s.MaxMigrationDistrict)
}

func TestChoropleth_BackfillsCanonicalDistricts(t *testing.T) {
	d := date(2025, 1, 1)
	a := NewAnalyzer(
		[]domain.EnrolmentRecord{enrolRow("Hyderabad", 1000, d)},
		[]domain.UpdateRecord{demoRow("Hyderabad", 800, d)},
		testLogger(),
	)

	rows := a.Choropleth()
	require.Len(t, rows, len(config.Districts))

	assert.Equal(t, "Hyderabad", rows[0].District)
	assert.Equal(t, CategoryHigh, rows[0].MigrationCategory)

	noData := 0
	for _, r := range rows[1:] {
		assert.Equal(t, CategoryNoData, r.MigrationCategory)
		assert.Equal(t, 0.0, r.MigrationRatio)
		noData++
	}
	assert.Equal(t, len(config.Districts)-1, noData)
}

func TestHighAndLowMigrationDistricts(t *testing.T) {
	d := date(2025, 1, 1)
	a := NewAnalyzer(
		[]domain.EnrolmentRecord{
			enrolRow("A", 1000, d), enrolRow("B", 1000, d), enrolRow("C", 1000, d),
		},
		[]domain.UpdateRecord{
			demoRow("A", 900, d), demoRow("B", 500, d), demoRow("C", 100, d),
		},
		testLogger(),
	)

	high := a.HighMigrationDistricts(2)
	require.Len(t, high, 2)
	assert.Equal(t, "A", high[0].District)

	low := a.LowMigrationDistricts(2)
	require.Len(t, low, 2)
	assert.Equal(t, "C", low[0].District)
	assert.Equal(t, "B", low[1].District)
}

func TestIntensity_RecomputedPerDistrictSet(t *testing.T) {
	d := date(2025, 1, 1)
	enrol := []domain.EnrolmentRecord{
		enrolRow("A", 1000, d), enrolRow("B", 1000, d), enrolRow("C", 1000, d),
	}
	demo := []domain.UpdateRecord{
		demoRow("A", 300, d), demoRow("B", 500, d), demoRow("C", 900, d),
	}

	full := NewAnalyzer(enrol, demo, testLogger()).Intensity()
	narrow := NewAnalyzer(enrol[:2], demo[:2], testLogger()).Intensity()

	// District B is mid-pack in the full set but top-ranked in the narrow
	// set: intensity is relative to the current district set.
	intensityOf := func(rows []DistrictIntensity, name string) float64 {
		for _, r := range rows {
			if r.District == name {
				return r.MigrationIntensity
			}
		}
		t.Fatalf("district %s not found", name)
		return 0
	}

	assert.Less(t, intensityOf(full, "B"), 100.0)
	assert.Equal(t, 100.0, intensityOf(narrow, "B"))
}
