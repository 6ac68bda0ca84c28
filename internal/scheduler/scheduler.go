// Package scheduler runs background maintenance jobs at fixed intervals.
package scheduler

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/aristath/stockdesk/internal/utils"
)

// slowJob is the duration above which a job run is logged as a warning
const slowJob = 5 * time.Second

// Job represents a scheduled job
type Job interface {
	Run() error
	Name() string
}

// Scheduler runs jobs in the background. A run still in progress when the next one is due is skipped.
type Scheduler struct {
	cron *cron.Cron
	log  zerolog.Logger
}

// New creates a stopped scheduler
func New(log zerolog.Logger) *Scheduler {
	return &Scheduler{
		cron: cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		log:  log.With().Str("component", "scheduler").Logger(),
	}
}

// Start starts the scheduler
func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Debug().Msg("Scheduler started")
}

// Stop stops the scheduler and waits for running jobs
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.log.Debug().Msg("Scheduler stopped")
}

// Every runs job each interval once the scheduler is started. Intervals are rounded down to whole seconds.
func (s *Scheduler) Every(interval time.Duration, job Job) error {
	if interval < time.Second {
		return fmt.Errorf("job %s: interval must be at least 1s, got %s", job.Name(), interval)
	}

	s.cron.Schedule(cron.Every(interval), cron.FuncJob(func() {
		_ = s.run(job)
	}))
	s.log.Info().
		Str("job", job.Name()).
		Dur("interval", interval).
		Msg("Job registered")
	return nil
}

func (s *Scheduler) run(job Job) error {
	timer := utils.NewTimer(job.Name(), s.log, slowJob)
	err := job.Run()
	timer.Stop(map[string]interface{}{"job": job.Name(), "ok": err == nil})
	if err != nil {
		s.log.Error().Err(err).Str("job", job.Name()).Msg("Job failed")
	}
	return err
}
