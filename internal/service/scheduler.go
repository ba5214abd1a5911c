package service

import (
	"context"
	"fmt"
	"time"

	"leadscout/pkg/logger"
)

// Scheduler fires a job once a day at a fixed local time
type Scheduler struct {
	hour, minute int
	runOnStart   bool
	job          func(ctx context.Context)
	now          func() time.Time
	after        func(d time.Duration) <-chan time.Time
	log          *logger.Logger
}

// NewScheduler parses at as HH:MM. When runOnStart is set the job also runs
// immediately so a fresh deployment does not wait a day.
func NewScheduler(at string, runOnStart bool, job func(ctx context.Context)) (*Scheduler, error) {
	t, err := time.Parse("15:04", at)
	if err != nil {
		return nil, fmt.Errorf("invalid schedule time %q: %w", at, err)
	}
	return &Scheduler{
		hour:       t.Hour(),
		minute:     t.Minute(),
		runOnStart: runOnStart,
		job:        job,
		now:        time.Now,
		after:      time.After,
		log:        logger.GetLogger().WithField("component", "scheduler"),
	}, nil
}

// NextRun is the first scheduled time strictly after now
func (s *Scheduler) NextRun(now time.Time) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), s.hour, s.minute, 0, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

// Run blocks until ctx is cancelled
func (s *Scheduler) Run(ctx context.Context) {
	s.log.Info(fmt.Sprintf("Scheduler started - daily run at %02d:%02d", s.hour, s.minute))
	if s.runOnStart {
		s.log.Info("Running initial scrape")
		s.job(ctx)
	}

	for {
		if ctx.Err() != nil {
			s.log.Info("Scheduler stopped")
			return
		}
		next := s.NextRun(s.now())
		s.log.WithField("next_run", next.Format(time.RFC3339)).Debug("Waiting for next scheduled run")

		select {
		case <-ctx.Done():
			s.log.Info("Scheduler stopped")
			return
		case <-s.after(next.Sub(s.now())):
			s.log.Info(fmt.Sprintf("Scheduled run at %s", s.now().Format("2006-01-02 15:04")))
			s.job(ctx)
		}
	}
}
