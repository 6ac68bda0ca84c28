package clientdata

import (
	"github.com/rs/zerolog"

	"github.com/aristath/stockdesk/internal/utils"
)

// CleanupJob removes expired snapshots.
// It is scheduled by the scheduler package.
type CleanupJob struct {
	repo *Repository
	log  zerolog.Logger
}

// NewCleanupJob creates a new snapshot cleanup job.
func NewCleanupJob(repo *Repository, log zerolog.Logger) *CleanupJob {
	return &CleanupJob{
		repo: repo,
		log:  log.With().Str("job", "snapshot_cleanup").Logger(),
	}
}

// Run executes the cleanup job, removing all expired snapshots.
func (j *CleanupJob) Run() error {
	done := utils.MeasureDBQuery("delete_expired_snapshots", j.log)
	deleted, err := j.repo.DeleteExpired()
	done(deleted)
	if err != nil {
		j.log.Error().Err(err).Msg("Failed to delete expired snapshots")
		return err
	}

	if deleted > 0 {
		j.log.Info().
			Int64("deleted", deleted).
			Msg("Snapshot cleanup completed")
	}

	return nil
}

// Name returns the job name for scheduling and logging.
func (j *CleanupJob) Name() string {
	return "snapshot_cleanup"
}
