package ingest

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/uidai-ops/opsintel/internal/domain"
)

// Snapshot is one immutable load of the three datasets. Analyzers only ever
// see a snapshot, so a scheduled reload can swap in new data without
// disturbing requests already in flight.
type Snapshot struct {
	LoadID      uuid.UUID
	LoadedAt    time.Time
	Enrolment   []domain.EnrolmentRecord
	Biometric   []domain.UpdateRecord
	Demographic []domain.UpdateRecord
}

// DateRange returns the min and max enrolment dates in the snapshot.
// ok is false when the snapshot holds no enrolment rows.
func (s *Snapshot) DateRange() (min, max time.Time, ok bool) {
	if len(s.Enrolment) == 0 {
		return time.Time{}, time.Time{}, false
	}
	min, max = s.Enrolment[0].Date, s.Enrolment[0].Date
	for _, r := range s.Enrolment[1:] {
		if r.Date.Before(min) {
			min = r.Date
		}
		if r.Date.After(max) {
			max = r.Date
		}
	}
	return min, max, true
}

// Districts returns the sorted-insertion-order-free set of district names
// present in the enrolment rows.
func (s *Snapshot) Districts() []string {
	seen := make(map[string]bool)
	var out []string
	for _, r := range s.Enrolment {
		if !seen[r.District] {
			seen[r.District] = true
			out = append(out, r.District)
		}
	}
	return out
}

// Store holds the current dataset snapshot. Population is lazy and collapses
// concurrent first accesses into a single load; after that the snapshot is
// read-only and safe for concurrent readers.
type Store struct {
	loader *Loader
	log    zerolog.Logger

	mu       sync.RWMutex
	snapshot *Snapshot
	loadOnce sync.Once
	loadErr  error
}

// NewStore creates a record store backed by the given loader
func NewStore(loader *Loader, log zerolog.Logger) *Store {
	return &Store{
		loader: loader,
		log:    log.With().Str("component", "store").Logger(),
	}
}

// Snapshot returns the current dataset snapshot, loading it on first use.
// Concurrent callers during the initial load block until it completes.
func (s *Store) Snapshot() (*Snapshot, error) {
	s.loadOnce.Do(func() {
		snap, err := s.load()
		s.mu.Lock()
		if err != nil {
			s.loadErr = err
		} else {
			s.snapshot = snap
		}
		s.mu.Unlock()
	})

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.snapshot == nil {
		return nil, s.loadErr
	}
	return s.snapshot, nil
}

// Reload re-reads the datasets and atomically swaps in the new snapshot.
// Used by the scheduled reload job; readers keep their old snapshot.
func (s *Store) Reload() error {
	snap, err := s.load()
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.snapshot = snap
	s.loadErr = nil
	s.mu.Unlock()

	// If the initial lazy load has not happened yet, mark it done so callers
	// do not trigger a second load over the snapshot we just installed.
	s.loadOnce.Do(func() {})

	return nil
}

// Loaded reports whether a snapshot is available without triggering a load
func (s *Store) Loaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot != nil
}

func (s *Store) load() (*Snapshot, error) {
	enrolment, err := s.loader.LoadEnrolments()
	if err != nil {
		return nil, err
	}

	// The update streams are optional: analyzers tolerate their absence, so
	// a missing file degrades to an empty stream instead of failing startup.
	biometric, err := s.loader.LoadUpdates(domain.StreamBiometric)
	if err != nil {
		s.log.Warn().Err(err).Msg("Biometric dataset unavailable, continuing without it")
		biometric = nil
	}
	demographic, err := s.loader.LoadUpdates(domain.StreamDemographic)
	if err != nil {
		s.log.Warn().Err(err).Msg("Demographic dataset unavailable, continuing without it")
		demographic = nil
	}

	snap := &Snapshot{
		LoadID:      uuid.New(),
		LoadedAt:    time.Now(),
		Enrolment:   enrolment,
		Biometric:   biometric,
		Demographic: demographic,
	}

	s.log.Info().
		Str("load_id", snap.LoadID.String()).
		Int("enrolment_rows", len(enrolment)).
		Int("biometric_rows", len(biometric)).
		Int("demographic_rows", len(demographic)).
		Msg("Dataset snapshot loaded")

	return snap, nil
}

// Filter restricts a snapshot to a date range and district subset. Zero
// times disable the corresponding bound; an empty district list keeps all
// districts. Filtering is the route layer's responsibility: analyzers always
// receive an already-filtered view.
func (s *Snapshot) Filter(start, end time.Time, districts []string) *Snapshot {
	keep := func(date time.Time, district string) bool {
		if !start.IsZero() && date.Before(start) {
			return false
		}
		if !end.IsZero() && date.After(end) {
			return false
		}
		if len(districts) > 0 {
			found := false
			for _, d := range districts {
				if d == district {
					found = true
					break
				}
			}
			if !found {
				return false
			}
		}
		return true
	}

	filtered := &Snapshot{
		LoadID:   s.LoadID,
		LoadedAt: s.LoadedAt,
	}
	for _, r := range s.Enrolment {
		if keep(r.Date, r.District) {
			filtered.Enrolment = append(filtered.Enrolment, r)
		}
	}
	for _, r := range s.Biometric {
		if keep(r.Date, r.District) {
			filtered.Biometric = append(filtered.Biometric, r)
		}
	}
	for _, r := range s.Demographic {
		if keep(r.Date, r.District) {
			filtered.Demographic = append(filtered.Demographic, r)
		}
	}
	return filtered
}
