// Package ingest loads the three monthly CSV datasets and owns the
// read-only record cache the analytics modules consume.
package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/uidai-ops/opsintel/internal/config"
	"github.com/uidai-ops/opsintel/internal/domain"
)

// dateLayout matches the DD-MM-YYYY dates used by the source CSVs.
const dateLayout = "02-01-2006"

// Loader reads and cleans the raw CSV datasets. Rows with unparseable dates
// are dropped; district names are normalized; missing counts become zero.
type Loader struct {
	cfg *config.Config
	log zerolog.Logger
}

// NewLoader creates a new dataset loader
func NewLoader(cfg *config.Config, log zerolog.Logger) *Loader {
	return &Loader{
		cfg: cfg,
		log: log.With().Str("component", "ingest").Logger(),
	}
}

// LoadEnrolments reads the enrolment dataset. Expected columns: date,
// district, age_0_5, age_5_17, age_18_greater (extra columns are ignored).
func (l *Loader) LoadEnrolments() ([]domain.EnrolmentRecord, error) {
	rows, header, err := l.readCSV(l.cfg.EnrolmentPath())
	if err != nil {
		return nil, fmt.Errorf("failed to read enrolment dataset: %w", err)
	}

	var records []domain.EnrolmentRecord
	dropped := 0
	for _, row := range rows {
		date, ok := parseDate(field(header, row, "date"))
		if !ok {
			dropped++
			continue
		}
		records = append(records, domain.EnrolmentRecord{
			Date:      date,
			District:  config.NormalizeDistrict(field(header, row, "district")),
			Age0to5:   parseCount(field(header, row, "age_0_5")),
			Age5to17:  parseCount(field(header, row, "age_5_17")),
			Age18Plus: parseCount(field(header, row, "age_18_greater")),
		})
	}

	l.log.Info().
		Int("rows", len(records)).
		Int("dropped", dropped).
		Msg("Loaded enrolment dataset")

	return records, nil
}

// LoadUpdates reads a biometric or demographic update dataset. The age
// columns are prefixed by the stream name in the source files (bio_age_5_17,
// demo_age_17_ etc.).
func (l *Loader) LoadUpdates(stream domain.UpdateStream) ([]domain.UpdateRecord, error) {
	var path, prefix string
	switch stream {
	case domain.StreamBiometric:
		path = l.cfg.BiometricPath()
		prefix = "bio"
	case domain.StreamDemographic:
		path = l.cfg.DemographicPath()
		prefix = "demo"
	default:
		return nil, fmt.Errorf("unknown update stream: %s", stream)
	}

	rows, header, err := l.readCSV(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s dataset: %w", stream, err)
	}

	var records []domain.UpdateRecord
	dropped := 0
	for _, row := range rows {
		date, ok := parseDate(field(header, row, "date"))
		if !ok {
			dropped++
			continue
		}
		records = append(records, domain.UpdateRecord{
			Date:      date,
			District:  config.NormalizeDistrict(field(header, row, "district")),
			Age5to17:  parseCount(field(header, row, prefix+"_age_5_17")),
			Age17Plus: parseCount(field(header, row, prefix+"_age_17_")),
		})
	}

	l.log.Info().
		Str("stream", string(stream)).
		Int("rows", len(records)).
		Int("dropped", dropped).
		Msg("Loaded update dataset")

	return records, nil
}

// readCSV reads all rows of a CSV file and returns them with a column-name
// to index mapping built from the header row.
func (l *Loader) readCSV(path string) ([][]string, map[string]int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1 // Tolerate ragged rows

	headerRow, err := reader.Read()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read header: %w", err)
	}

	header := make(map[string]int, len(headerRow))
	for i, name := range headerRow {
		header[strings.ToLower(strings.TrimSpace(name))] = i
	}

	var rows [][]string
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			// Skip malformed rows rather than failing the whole load
			l.log.Debug().Err(err).Str("path", path).Msg("Skipping malformed CSV row")
			continue
		}
		rows = append(rows, row)
	}

	return rows, header, nil
}

// field extracts a named column from a row, returning "" when the column is
// absent or the row is too short.
func field(header map[string]int, row []string, name string) string {
	idx, ok := header[name]
	if !ok || idx >= len(row) {
		return ""
	}
	return row[idx]
}

// parseDate parses a DD-MM-YYYY date, reporting failure instead of erroring.
func parseDate(s string) (time.Time, bool) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// parseCount parses a numeric count, treating blanks and garbage as zero.
func parseCount(s string) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	if n, err := strconv.Atoi(s); err == nil {
		if n < 0 {
			return 0
		}
		return n
	}
	// Some exports carry counts as floats ("123.0")
	if f, err := strconv.ParseFloat(s, 64); err == nil && f > 0 {
		return int(f)
	}
	return 0
}
