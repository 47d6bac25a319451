// Package domain holds the pure record types shared by the analytics
// modules. No infrastructure dependencies belong here.
package domain

import "time"

// EnrolmentRecord is one row of the monthly enrolment dataset: new identity
// enrolments for a district on a given date, split into age buckets.
type EnrolmentRecord struct {
	Date      time.Time
	District  string
	Age0to5   int
	Age5to17  int
	Age18Plus int
}

// TotalEnrolments is always the sum of the three age buckets. It is derived,
// never stored independently.
func (r EnrolmentRecord) TotalEnrolments() int {
	return r.Age0to5 + r.Age5to17 + r.Age18Plus
}

// UpdateStream identifies which update dataset a record belongs to.
type UpdateStream string

const (
	// StreamBiometric covers mandatory biometric re-captures (ages 5 and 15).
	StreamBiometric UpdateStream = "biometric"
	// StreamDemographic covers demographic updates, chiefly address changes.
	StreamDemographic UpdateStream = "demographic"
)

// UpdateRecord is one row of a biometric or demographic update dataset.
// Missing counts are read as zero at ingestion.
type UpdateRecord struct {
	Date      time.Time
	District  string
	Age5to17  int
	Age17Plus int
}

// TotalUpdates is the sum of the age components.
func (r UpdateRecord) TotalUpdates() int {
	return r.Age5to17 + r.Age17Plus
}

// Severity ranks anomalies. Critical sorts before Warning, Warning before
// Info.
type Severity string

const (
	SeverityCritical Severity = "Critical"
	SeverityWarning  Severity = "Warning"
	SeverityInfo     Severity = "Info"
)

// Rank returns the sort precedence of a severity (lower sorts first).
func (s Severity) Rank() int {
	switch s {
	case SeverityCritical:
		return 0
	case SeverityWarning:
		return 1
	case SeverityInfo:
		return 2
	default:
		return 3
	}
}

// Valid reports whether s is one of the known severities.
func (s Severity) Valid() bool {
	return s == SeverityCritical || s == SeverityWarning || s == SeverityInfo
}
