// Package scheduler runs the nightly maintenance jobs: completing finished stays and expiring
// free intervals that are already in the past.
package scheduler

import (
	"context"
	"errors"
	"time"

	"staybook/pkg/logger"
)

var ErrNoJobs = errors.New("scheduler: no jobs configured")

// Job is one idempotent maintenance step. Run returns the number of records it changed.
type Job struct {
	Name string
	Run  func(ctx context.Context) (int64, error)
}

type Scheduler struct {
	Jobs     []Job
	Log      *logger.Logger
	Location *time.Location

	now   func() time.Time
	after func(d time.Duration) <-chan time.Time
}

func New(log *logger.Logger, jobs ...Job) *Scheduler {
	return &Scheduler{
		Jobs:     jobs,
		Log:      log,
		Location: time.Local,
		now:      time.Now,
		after:    time.After,
	}
}

// Run fires the jobs at every local midnight until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	if len(s.Jobs) == 0 {
		return ErrNoJobs
	}

	for {
		wait := NextMidnight(s.now(), s.Location).Sub(s.now())
		s.Log.Debug("Next maintenance run scheduled", "in", wait.Round(time.Second))

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.after(wait):
			s.RunOnce(ctx)
		}
	}
}

// RunOnce runs every job in order. A failing job is logged and does not stop the others.
func (s *Scheduler) RunOnce(ctx context.Context) map[string]int64 {
	results := make(map[string]int64, len(s.Jobs))
	for _, job := range s.Jobs {
		start := s.now()
		n, err := job.Run(ctx)
		if err != nil {
			s.Log.Error("Maintenance job failed", "job", job.Name, "error", err)
			continue
		}
		results[job.Name] = n
		s.Log.Info("Maintenance job finished",
			"job", job.Name,
			"changed", n,
			"duration", s.now().Sub(start),
		)
	}
	return results
}

// NextMidnight returns the first midnight in loc strictly after now.
func NextMidnight(now time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	local := now.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day()+1, 0, 0, 0, 0, loc)
}
