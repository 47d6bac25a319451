package scheduler

import (
	"github.com/rs/zerolog"

	"github.com/uidai-ops/opsintel/internal/ingest"
)

// DatasetReloadJob re-reads the CSV datasets and swaps in a fresh snapshot.
// The monthly exports are replaced in place on the data directory, so a
// nightly reload keeps the served analytics current without a restart.
type DatasetReloadJob struct {
	store *ingest.Store
	log   zerolog.Logger
}

// NewDatasetReloadJob creates the dataset reload job
func NewDatasetReloadJob(store *ingest.Store, log zerolog.Logger) *DatasetReloadJob {
	return &DatasetReloadJob{
		store: store,
		log:   log.With().Str("job", "dataset_reload").Logger(),
	}
}

// Name implements Job
func (j *DatasetReloadJob) Name() string {
	return "dataset_reload"
}

// Run implements Job
func (j *DatasetReloadJob) Run() error {
	if err := j.store.Reload(); err != nil {
		return err
	}
	j.log.Info().Msg("Dataset snapshot reloaded")
	return nil
}
