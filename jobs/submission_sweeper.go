package jobs

import (
	"context"
	"time"

	"content-hub-cms/logger"

	"github.com/robfig/cron/v3"
)

// ClosedSubmissionSweeper is the part of the submission service the sweep
// needs.
type ClosedSubmissionSweeper interface {
	SweepClosed(ctx context.Context, cutoff time.Time) (int, error)
}

// SubmissionSweeper deletes accepted and rejected submissions once they
// are older than the retention window.
type SubmissionSweeper struct {
	sweeper   ClosedSubmissionSweeper
	retention time.Duration
	now       func() time.Time
	log       *logger.Logger
	cron      *cron.Cron
}

func NewSubmissionSweeper(sweeper ClosedSubmissionSweeper, retention time.Duration, log *logger.Logger) *SubmissionSweeper {
	return &SubmissionSweeper{
		sweeper:   sweeper,
		retention: retention,
		now:       func() time.Time { return time.Now().UTC() },
		log:       log.With("job", "submission_sweeper"),
	}
}

// RunOnce sweeps everything last touched before now minus the retention.
func (s *SubmissionSweeper) RunOnce(ctx context.Context) (int, error) {
	cutoff := s.now().Add(-s.retention)
	swept, err := s.sweeper.SweepClosed(ctx, cutoff)
	if err != nil {
		s.log.Error("submission sweep failed", "cutoff", cutoff, "swept", swept, "error", err)
		return swept, err
	}
	s.log.Debug("submission sweep done", "cutoff", cutoff, "swept", swept)
	return swept, nil
}

// Start schedules RunOnce. Overlapping runs are skipped.
func (s *SubmissionSweeper) Start(schedule string) error {
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger)))
	if _, err := c.AddFunc(schedule, func() {
		_, _ = s.RunOnce(context.Background())
	}); err != nil {
		return err
	}
	c.Start()
	s.cron = c
	s.log.Info("submission sweeper scheduled", "schedule", schedule, "retention", s.retention)
	return nil
}

// Stop waits for a running sweep to finish.
func (s *SubmissionSweeper) Stop() {
	if s.cron == nil {
		return
	}
	<-s.cron.Stop().Done()
}
