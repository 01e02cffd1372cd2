package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"content-hub-cms/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSweeper struct {
	cutoffs []time.Time
	swept   int
	err     error
}

func (f *fakeSweeper) SweepClosed(_ context.Context, cutoff time.Time) (int, error) {
	f.cutoffs = append(f.cutoffs, cutoff)
	return f.swept, f.err
}

func TestRunOnceUsesRetentionWindow(t *testing.T) {
	fake := &fakeSweeper{swept: 3}
	s := NewSubmissionSweeper(fake, 14*24*time.Hour, logger.Nop())
	now := time.Date(2026, 6, 15, 3, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	swept, err := s.RunOnce(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 3, swept)
	assert.Equal(t, []time.Time{time.Date(2026, 6, 1, 3, 0, 0, 0, time.UTC)}, fake.cutoffs)
}

func TestRunOnceReturnsSweepError(t *testing.T) {
	fake := &fakeSweeper{swept: 1, err: errors.New("db down")}
	s := NewSubmissionSweeper(fake, time.Hour, logger.Nop())

	swept, err := s.RunOnce(context.Background())

	assert.EqualError(t, err, "db down")
	assert.Equal(t, 1, swept)
}

func TestStartRejectsBadSchedule(t *testing.T) {
	s := NewSubmissionSweeper(&fakeSweeper{}, time.Hour, logger.Nop())

	assert.Error(t, s.Start("every day please"))
	s.Stop()
}

func TestStartAndStop(t *testing.T) {
	s := NewSubmissionSweeper(&fakeSweeper{}, time.Hour, logger.Nop())

	require.NoError(t, s.Start("0 3 * * *"))
	s.Stop()
}
